package cv

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portfolio/internal/content"
	"portfolio/internal/pdf"
)

const (
	qrSize       = 70.0
	qrPixels     = 256
	headerGap    = 12.0
	sectionGap   = 10.0
	bodySize     = 10.0
	bodyLeading  = 14.0
	smallSize    = 9.0
	smallLeading = 12.5
	linkGap      = 16.0
)

var (
	accent  = pdf.Color{R: 0.11, G: 0.31, B: 0.65}
	muted   = pdf.Color{R: 0.38, G: 0.38, B: 0.38}
	linkRGB = pdf.Color{R: 0.06, G: 0.36, B: 0.82}
	rule    = pdf.Color{R: 0.8, G: 0.82, B: 0.86}
)

// Options 控制一次简历生成。
type Options struct {
	// WebsiteURL 编码进二维码。为空时使用 Profile.Website。
	WebsiteURL string
	// Author 写入文档元数据；为空时使用 Profile.Name。
	Author string
	// Now 用于页脚日期与文档元数据；零值表示当前时间。
	Now    time.Time
	Logger *slog.Logger
}

// Result 是渲染结果：已分页的文档以及挂到页面上的链接区域。
type Result struct {
	Document *pdf.Document
	Links    []pdf.LinkRegion
}

// Pages returns the number of finalized pages.
func (r *Result) Pages() int { return r.Document.NumPages() }

// Generate renders snap and serializes the document.
func Generate(snap content.Snapshot, opts Options) ([]byte, error) {
	res, err := Render(snap, opts)
	if err != nil {
		return nil, err
	}
	data, err := res.Document.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize cv: %w", err)
	}
	return data, nil
}

// Render 按固定顺序排版：页眉、工作经历、技能、项目、页脚。
// 链接区域在排版时入队，全部页面完成后统一挂载。
func Render(snap content.Snapshot, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	author := strings.TrimSpace(opts.Author)
	if author == "" {
		author = snap.Profile.Name
	}

	doc, err := pdf.NewDocument(pdf.Info{
		Title:        tidy(snap.Profile.Name + " - CV"),
		Author:       author,
		Creator:      "portfolio cv generator",
		Producer:     "portfolio",
		CreationDate: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	website := opts.WebsiteURL
	if !validURL(website) {
		website = snap.Profile.Website
	}
	website = strings.TrimSpace(website)

	r := &renderer{doc: doc, log: log}
	if validURL(website) {
		img, err := EncodeQR(website, qrPixels)
		if err != nil {
			return nil, err
		}
		if err := doc.RegisterImage(img); err != nil {
			return nil, fmt.Errorf("embed qr code: %w", err)
		}
	} else {
		website = ""
	}

	r.b = pdf.NewPageBuilder(doc)
	r.header(snap.Profile, website)
	r.experience(snap.Experience)
	r.skills(snap.Skills)
	r.projects(snap.Projects)
	r.footer(now)
	r.b.FinishPage()

	attached := pdf.AttachLinks(doc, r.links, log)
	if attached != len(r.links) {
		log.Warn("some cv links were not attached",
			slog.Int("queued", len(r.links)),
			slog.Int("attached", attached),
		)
	}

	return &Result{Document: doc, Links: r.links}, nil
}

type renderer struct {
	doc   *pdf.Document
	b     *pdf.PageBuilder
	links []pdf.LinkRegion
	log   *slog.Logger
}

// line draws s on the line starting at the cursor and returns its width.
func (r *renderer) line(x float64, font pdf.FontID, size float64, c pdf.Color, s string) float64 {
	s = pdf.Sanitize(s)
	if s == "" {
		return 0
	}
	r.b.Text(x, r.b.Cursor()+size, font, size, c, s)
	return pdf.Measure(s, r.doc.Font(font), size)
}

// link queues a clickable box over a text run drawn by line.
func (r *renderer) link(x, width, size float64, url string) {
	if width <= 0 {
		return
	}
	r.links = append(r.links, r.b.LinkRegion(x, r.b.Cursor()+size*0.15, width, size*1.1, url))
}

// linkedText draws an underlined link label and queues its region.
func (r *renderer) linkedText(x float64, size float64, label, url string) float64 {
	w := r.line(x, pdf.FontRegular, size, linkRGB, label)
	if w > 0 {
		underline := r.b.Cursor() + size + 1.5
		r.b.HRule(x, x+w, underline, 0.5, linkRGB)
		r.link(x, w, size, url)
	}
	return w
}

// paragraph wraps text to width and gives every line its own space check,
// so a long block continues on the next page.
func (r *renderer) paragraph(x, width float64, font pdf.FontID, size, leading float64, c pdf.Color, text string) {
	for _, l := range pdf.Wrap(pdf.Sanitize(text), r.doc.Font(font), size, width) {
		r.b.EnsureSpace(leading)
		r.line(x, font, size, c, l)
		r.b.Advance(leading)
	}
}

func (r *renderer) header(p content.Profile, website string) {
	textWidth := pdf.ContentWidth
	if website != "" {
		textWidth -= qrSize + headerGap
		qrX := pdf.PageWidth - pdf.Margin - qrSize
		r.b.Image(qrX, 0, qrSize, qrSize)
		r.links = append(r.links, r.b.LinkRegion(qrX, 0, qrSize, qrSize, website))

		caption := "Scan for portfolio"
		cw := pdf.Measure(caption, r.doc.Font(pdf.FontItalic), 7)
		r.b.Text(qrX+(qrSize-cw)/2, qrSize+9, pdf.FontItalic, 7, muted, caption)
	}

	r.line(pdf.Margin, pdf.FontBold, 22, pdf.Black, p.Name)
	r.b.Advance(28)

	if title := tidy(p.Title); title != "" {
		r.line(pdf.Margin, pdf.FontItalic, 12, accent, title)
		r.b.Advance(18)
	}

	if email := strings.TrimSpace(p.Email); pdf.Sanitize(email) != "" {
		x := pdf.Margin
		x += r.line(x, pdf.FontBold, smallSize, pdf.Black, "Email:") + 4
		r.linkedText(x, smallSize, email, "mailto:"+pdf.Sanitize(email))
		r.b.Advance(smallLeading + 1)
	}

	if phones := phoneLine(p.Phones); phones != "" {
		r.paragraph(pdf.Margin, textWidth, pdf.FontRegular, smallSize, smallLeading, muted, phones)
		r.b.Advance(1)
	}

	r.socialRow(p.Socials, website, textWidth)

	bottom := r.b.Cursor()
	if website != "" && bottom < qrSize+12 {
		bottom = qrSize + 12
	}
	r.b.SetCursor(bottom + 4)
	r.b.HRule(pdf.Margin, pdf.PageWidth-pdf.Margin, r.b.Cursor(), 1, accent)
	r.b.Advance(sectionGap + 6)
}

func (r *renderer) socialRow(socials []content.SocialLink, website string, width float64) {
	type item struct{ label, url string }
	items := make([]item, 0, len(socials)+1)
	for _, s := range socials {
		if validURL(s.URL) && pdf.Sanitize(s.Label) != "" {
			items = append(items, item{s.Label, strings.TrimSpace(s.URL)})
		}
	}
	if website != "" {
		items = append(items, item{"Portfolio", website})
	}
	if len(items) == 0 {
		return
	}

	font := r.doc.Font(pdf.FontRegular)
	x := pdf.Margin
	for i, it := range items {
		w := pdf.Measure(pdf.Sanitize(it.label), font, smallSize)
		if i > 0 && x+w > pdf.Margin+width {
			r.b.Advance(smallLeading + 1)
			x = pdf.Margin
		}
		x += r.linkedText(x, smallSize, it.label, it.url) + linkGap
	}
	r.b.Advance(smallLeading + 1)
}

func phoneLine(phones []content.Phone) string {
	parts := make([]string, 0, len(phones))
	for _, p := range phones {
		number := pdf.Sanitize(p.Number)
		if number == "" {
			continue
		}
		if label := pdf.Sanitize(p.Label); label != "" {
			number = label + ": " + number
		}
		parts = append(parts, number)
	}
	return strings.Join(parts, " | ")
}

// section draws a heading. keep is the height of the first block that must
// stay on the same page as the heading.
func (r *renderer) section(title string, keep float64) {
	r.b.EnsureSpace(30 + keep)
	r.line(pdf.Margin, pdf.FontBold, 14, accent, title)
	r.b.Advance(19)
	r.b.HRule(pdf.Margin, pdf.PageWidth-pdf.Margin, r.b.Cursor(), 0.5, rule)
	r.b.Advance(11)
}

func (r *renderer) experience(items []content.Experience) {
	if len(items) == 0 {
		return
	}
	r.section("Work Experience", 30+bodyLeading)

	for _, e := range items {
		r.b.EnsureSpace(30 + bodyLeading)
		r.line(pdf.Margin, pdf.FontBold, 11.5, pdf.Black, e.Role)
		r.b.Advance(16)

		meta := joinNonEmpty(" | ", e.Company, e.Period)
		if e.Current {
			meta = joinNonEmpty(" | ", meta, "Current")
		}
		if meta != "" {
			r.line(pdf.Margin, pdf.FontItalic, smallSize, muted, meta)
			r.b.Advance(14)
		}

		r.paragraph(pdf.Margin, pdf.ContentWidth, pdf.FontRegular, bodySize, bodyLeading, pdf.Black, e.Description)
		r.b.Advance(sectionGap)
	}
}

func (r *renderer) skills(items []content.Skill) {
	var frontend, backend []string
	for _, s := range items {
		name := pdf.Sanitize(s.Name)
		if name == "" {
			continue
		}
		if s.Category == content.CategoryFrontend {
			frontend = append(frontend, name)
		} else {
			backend = append(backend, name)
		}
	}
	if len(frontend) == 0 && len(backend) == 0 {
		return
	}

	const rowHeight = 14.0
	colWidth := pdf.ContentWidth / 2
	left, right := pdf.Margin, pdf.Margin+colWidth

	r.section("Technical Skills", 18+rowHeight)
	r.line(left, pdf.FontBold, 11, pdf.Black, "Frontend")
	r.line(right, pdf.FontBold, 11, pdf.Black, "Backend")
	r.b.Advance(18)

	rows := max(len(frontend), len(backend))
	for i := 0; i < rows; i++ {
		r.b.EnsureSpace(rowHeight)
		if i < len(frontend) {
			r.line(left+6, pdf.FontRegular, bodySize, pdf.Black, "- "+frontend[i])
		}
		if i < len(backend) {
			r.line(right+6, pdf.FontRegular, bodySize, pdf.Black, "- "+backend[i])
		}
		r.b.Advance(rowHeight)
	}
	r.b.Advance(sectionGap)
}

func (r *renderer) projects(items []content.Project) {
	if len(items) == 0 {
		return
	}
	r.section("Projects", 16+smallLeading+bodyLeading)

	for _, p := range items {
		links := projectLinks(p)
		keep := 16 + bodyLeading
		if len(p.Tags) > 0 {
			keep += smallLeading
		}
		r.b.EnsureSpace(keep)

		w := r.line(pdf.Margin, pdf.FontBold, 11.5, pdf.Black, p.Title)
		if platform := pdf.Sanitize(p.Platform); platform != "" {
			r.line(pdf.Margin+w+6, pdf.FontItalic, smallSize, muted, "("+platform+")")
		}
		r.b.Advance(16)

		if tags := joinNonEmpty(" | ", p.Tags...); tags != "" {
			r.paragraph(pdf.Margin, pdf.ContentWidth, pdf.FontItalic, smallSize, smallLeading, accent, tags)
			r.b.Advance(2)
		}

		r.paragraph(pdf.Margin, pdf.ContentWidth, pdf.FontRegular, bodySize, bodyLeading, pdf.Black, p.Description)

		if len(links) > 0 {
			r.b.Advance(2)
			r.b.EnsureSpace(smallLeading + 2)
			x := pdf.Margin
			for _, l := range links {
				x += r.linkedText(x, smallSize, l.label, l.url) + linkGap
			}
			r.b.Advance(smallLeading + 2)
		}
		r.b.Advance(sectionGap)
	}
}

type projectLink struct {
	label string
	url   string
}

// projectLinks returns the links of p that carry an http(s) URL, in display order.
func projectLinks(p content.Project) []projectLink {
	candidates := []projectLink{
		{"Live Demo", p.LiveURL},
		{"Play Store", p.PlayStoreURL},
		{"GitHub", p.GitHubURL},
	}
	out := candidates[:0]
	for _, c := range candidates {
		if validURL(c.url) {
			c.url = strings.TrimSpace(c.url)
			out = append(out, c)
		}
	}
	return out
}

func (r *renderer) footer(now time.Time) {
	r.b.EnsureSpace(28)
	r.b.HRule(pdf.Margin, pdf.PageWidth-pdf.Margin, r.b.Cursor()+4, 0.5, rule)
	r.b.Advance(10)

	text := "Generated on " + now.Format("January 2, 2006")
	w := pdf.Measure(text, r.doc.Font(pdf.FontItalic), 8)
	r.b.Text((pdf.PageWidth-w)/2, r.b.Cursor()+8, pdf.FontItalic, 8, muted, text)
	r.b.Advance(14)
}

// validURL accepts only absolute http(s) URLs with something after the scheme.
func validURL(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(u, scheme) && len(u) > len(scheme) {
			return pdf.Sanitize(u) == u
		}
	}
	return false
}

// tidy sanitizes s and drops separators left dangling by removed text,
// e.g. "Developer | <arabic>" becomes "Developer".
func tidy(s string) string {
	return strings.TrimRight(pdf.Sanitize(s), " |-/,")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = pdf.Sanitize(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
