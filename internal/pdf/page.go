package pdf

// A4 page geometry in points (1" = 72pt).
const (
	PageWidth  = 595.28
	PageHeight = 841.89
	Margin     = 50.0

	ContentWidth    = PageWidth - 2*Margin
	PrintableHeight = PageHeight - 2*Margin
)

// Rect is a rectangle in bottom-left page coordinates.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// LinkRegion is a clickable area registered during layout and turned into an
// annotation once pagination is complete.
type LinkRegion struct {
	PageIndex int
	Rect      Rect
	URL       string
}

// PageBuilder lays content out one page at a time. All layout math uses the
// distance from the top of the printable area; PageY is the only place where
// that turns into PDF's bottom-up coordinates.
type PageBuilder struct {
	doc       *Document
	stream    *Stream
	curY      float64
	pageIndex int
	open      bool
}

// NewPageBuilder starts the first page of doc.
func NewPageBuilder(doc *Document) *PageBuilder {
	b := &PageBuilder{doc: doc}
	b.StartPage()
	return b
}

// PageY converts a distance from the top of the printable area into a page
// y coordinate.
func PageY(top float64) float64 {
	return PageHeight - Margin - top
}

// StartPage opens a fresh page with an empty buffer and the cursor at zero.
func (b *PageBuilder) StartPage() {
	b.stream = NewStream()
	b.curY = 0
	b.pageIndex = b.doc.NumPages()
	b.open = true
}

// FinishPage hands the current buffer to the document. It is a no-op when no
// page is open.
func (b *PageBuilder) FinishPage() {
	if !b.open {
		return
	}
	b.doc.FinalizePage(b.stream)
	b.stream = nil
	b.open = false
}

// EnsureSpace moves to a new page when a block of the given height would not
// fit below the cursor. A page that holds nothing yet is never abandoned, so
// a block taller than the printable area simply overflows its own page.
// It reports whether a page break happened.
func (b *PageBuilder) EnsureSpace(height float64) bool {
	if b.curY+height <= PrintableHeight {
		return false
	}
	if b.stream.Len() == 0 {
		return false
	}
	b.FinishPage()
	b.StartPage()
	return true
}

// Cursor returns the current distance from the top of the printable area.
func (b *PageBuilder) Cursor() float64 { return b.curY }

// Advance moves the cursor down by dy.
func (b *PageBuilder) Advance(dy float64) { b.curY += dy }

// SetCursor places the cursor at an absolute offset on the current page.
func (b *PageBuilder) SetCursor(y float64) { b.curY = y }

// PageIndex is the index the current page will have once finalized.
func (b *PageBuilder) PageIndex() int { return b.pageIndex }

// Text draws a run whose baseline sits at the given offset from the top.
func (b *PageBuilder) Text(x, baseline float64, font FontID, size float64, c Color, s string) {
	b.stream.Text(x, PageY(baseline), b.doc.Font(font), size, c, s)
}

// HRule draws a horizontal line at offset y.
func (b *PageBuilder) HRule(x0, x1, y, width float64, c Color) {
	py := PageY(y)
	b.stream.Line(x0, py, x1, py, width, c)
}

// FillRect fills a rectangle whose top edge sits at the given offset.
func (b *PageBuilder) FillRect(x, top, w, h float64, c Color) {
	b.stream.Rect(x, PageY(top+h), w, h, c)
}

// Image places the document image with its top edge at the given offset.
func (b *PageBuilder) Image(x, top, w, h float64) {
	b.stream.Image(x, PageY(top+h), w, h)
}

// LinkRegion describes a clickable box on the current page. The caller owns
// the returned value and queues it until all pages are finalized.
func (b *PageBuilder) LinkRegion(x, top, w, h float64, url string) LinkRegion {
	return LinkRegion{
		PageIndex: b.pageIndex,
		Rect: Rect{
			X0: x,
			Y0: PageY(top + h),
			X1: x + w,
			Y1: PageY(top),
		},
		URL: url,
	}
}
