package pdf

import (
	"log/slog"
	"sort"
)

// AttachLinks turns queued link regions into invisible link annotations on
// the finalized pages. A region that cannot be attached is logged and
// skipped; the rest still go through. The annotation list of each page is
// kept in a canonical order, so the queue order does not matter.
// It returns the number of annotations attached.
func AttachLinks(doc *Document, regions []LinkRegion, log *slog.Logger) int {
	if log == nil {
		log = slog.Default()
	}

	attached := 0
	touched := make(map[int]bool)
	for _, region := range regions {
		if region.PageIndex < 0 || region.PageIndex >= doc.NumPages() {
			log.Warn("link region skipped: page out of range",
				slog.Int("page_index", region.PageIndex),
				slog.Int("pages", doc.NumPages()),
				slog.String("url", region.URL),
			)
			continue
		}
		if !region.Rect.Valid() {
			log.Warn("link region skipped: empty rectangle",
				slog.Int("page_index", region.PageIndex),
				slog.String("url", region.URL),
			)
			continue
		}
		if EscapeString(region.URL) == "" {
			log.Warn("link region skipped: empty target",
				slog.Int("page_index", region.PageIndex),
			)
			continue
		}

		page := doc.pages[region.PageIndex]
		page.annots = append(page.annots, Annotation{Rect: region.Rect, URL: region.URL})
		touched[region.PageIndex] = true
		attached++
	}

	for idx := range touched {
		sortAnnotations(doc.pages[idx].annots)
	}
	return attached
}

// sortAnnotations orders top-to-bottom, then left-to-right.
func sortAnnotations(annots []Annotation) {
	sort.SliceStable(annots, func(i, j int) bool {
		a, b := annots[i], annots[j]
		if a.Rect.Y1 != b.Rect.Y1 {
			return a.Rect.Y1 > b.Rect.Y1
		}
		if a.Rect.X0 != b.Rect.X0 {
			return a.Rect.X0 < b.Rect.X0
		}
		if a.Rect.Y0 != b.Rect.Y0 {
			return a.Rect.Y0 > b.Rect.Y0
		}
		if a.Rect.X1 != b.Rect.X1 {
			return a.Rect.X1 < b.Rect.X1
		}
		return a.URL < b.URL
	})
}
