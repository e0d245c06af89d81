package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"
)

const imageResource = "Im1"

// ErrImageRegistered is returned when a second image is registered.
var ErrImageRegistered = errors.New("pdf: document image already registered")

// Info carries the document information dictionary.
type Info struct {
	Title        string
	Author       string
	Creator      string
	Producer     string
	CreationDate time.Time
}

// Annotation is a link annotation attached to a finalized page.
type Annotation struct {
	Rect Rect
	URL  string
}

// Page is a finalized page: an immutable operator buffer plus its annotations.
type Page struct {
	content []byte
	fonts   map[FontID]bool
	image   bool
	annots  []Annotation
}

// Content returns the uncompressed operator stream of the page.
func (p *Page) Content() []byte { return p.content }

// Annotations returns the link annotations attached to the page.
func (p *Page) Annotations() []Annotation { return p.annots }

type rasterImage struct {
	width  int
	height int
	rgb    []byte
}

// Document owns the object graph of one generated file: three fonts, at most
// one raster image and the pages in reading order.
type Document struct {
	info     Info
	fonts    map[FontID]*Metrics
	image    *rasterImage
	pages    []*Page
	compress bool
}

// NewDocument registers the three base fonts.
func NewDocument(info Info) (*Document, error) {
	d := &Document{
		info:     info,
		fonts:    make(map[FontID]*Metrics, 3),
		compress: true,
	}
	for _, id := range AllFonts() {
		m, err := LoadMetrics(id)
		if err != nil {
			return nil, fmt.Errorf("register font %s: %w", id, err)
		}
		d.fonts[id] = m
	}
	return d, nil
}

// Font returns the metrics of a registered font.
func (d *Document) Font(id FontID) *Metrics {
	m, ok := d.fonts[id]
	if !ok {
		return d.fonts[FontRegular]
	}
	return m
}

// SetCompression toggles Flate compression of streams. It is on by default.
func (d *Document) SetCompression(on bool) { d.compress = on }

// RegisterImage stores the document's single raster image as 8-bit RGB.
func (d *Document) RegisterImage(img image.Image) error {
	if d.image != nil {
		return ErrImageRegistered
	}
	if img == nil {
		return errors.New("pdf: nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return errors.New("pdf: empty image")
	}

	raster := &rasterImage{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		rgb:    make([]byte, 0, bounds.Dx()*bounds.Dy()*3),
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			raster.rgb = append(raster.rgb, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}
	d.image = raster
	return nil
}

// HasImage reports whether an image was registered.
func (d *Document) HasImage() bool { return d.image != nil }

// FinalizePage appends the finished stream as the next page and returns its
// index. Pages are kept in the order they are finalized.
func (d *Document) FinalizePage(s *Stream) int {
	fonts := make(map[FontID]bool, len(s.fonts))
	for id := range s.fonts {
		fonts[id] = true
	}
	content := make([]byte, s.Len())
	copy(content, s.Bytes())

	d.pages = append(d.pages, &Page{
		content: content,
		fonts:   fonts,
		image:   s.image,
	})
	return len(d.pages) - 1
}

// Pages returns the finalized pages in reading order.
func (d *Document) Pages() []*Page { return d.pages }

// NumPages returns the number of finalized pages.
func (d *Document) NumPages() int { return len(d.pages) }

// Bytes serializes the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the document. Nothing is written to w unless the whole
// file could be built.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.serialize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (d *Document) serialize() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, errors.New("pdf: document has no pages")
	}

	usedFonts := make(map[FontID]bool, 3)
	usesImage := false
	for i, p := range d.pages {
		for id := range p.fonts {
			usedFonts[id] = true
		}
		if p.image {
			if d.image == nil {
				return nil, fmt.Errorf("pdf: page %d paints an image but none is registered", i)
			}
			usesImage = true
		}
	}

	ow := newObjectWriter()
	const (
		catalogObj = 1
		pagesObj   = 2
		infoObj    = 3
	)
	next := 4

	fontObjs := make(map[FontID]int, 3)
	for _, id := range AllFonts() {
		if usedFonts[id] {
			fontObjs[id] = next
			next++
		}
	}
	imageObj := 0
	if usesImage {
		imageObj = next
		next++
	}
	resourcesObj := next
	next++

	type pageObjs struct {
		page, contents int
		annots         []int
	}
	layout := make([]pageObjs, len(d.pages))
	for i, p := range d.pages {
		layout[i].page = next
		layout[i].contents = next + 1
		next += 2
		for range p.annots {
			layout[i].annots = append(layout[i].annots, next)
			next++
		}
	}

	ow.object(catalogObj, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", ref(pagesObj)))

	kids := make([]string, len(layout))
	for i, l := range layout {
		kids[i] = ref(l.page)
	}
	ow.object(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(layout)))

	ow.object(infoObj, d.infoDict())

	for _, id := range AllFonts() {
		obj, ok := fontObjs[id]
		if !ok {
			continue
		}
		ow.object(obj, fmt.Sprintf(
			"<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>",
			d.fonts[id].BaseFont()))
	}

	if usesImage {
		data, filter, err := d.encodeStream(d.image.rgb)
		if err != nil {
			return nil, fmt.Errorf("embed image: %w", err)
		}
		dict := fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8%s /Length %d >>",
			d.image.width, d.image.height, filter, len(data))
		ow.stream(imageObj, dict, data)
	}

	var res strings.Builder
	res.WriteString("<< /ProcSet [/PDF /Text /ImageC]")
	if len(fontObjs) > 0 {
		res.WriteString(" /Font <<")
		for _, id := range AllFonts() {
			if obj, ok := fontObjs[id]; ok {
				fmt.Fprintf(&res, " /%s %s", d.fonts[id].Resource(), ref(obj))
			}
		}
		res.WriteString(" >>")
	}
	if usesImage {
		fmt.Fprintf(&res, " /XObject << /%s %s >>", imageResource, ref(imageObj))
	}
	res.WriteString(" >>")
	ow.object(resourcesObj, res.String())

	for i, p := range d.pages {
		l := layout[i]
		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Type /Page /Parent %s /MediaBox [0 0 %s %s] /Resources %s /Contents %s",
			ref(pagesObj), num(PageWidth), num(PageHeight), ref(resourcesObj), ref(l.contents))
		if len(l.annots) > 0 {
			refs := make([]string, len(l.annots))
			for j, obj := range l.annots {
				refs[j] = ref(obj)
			}
			fmt.Fprintf(&dict, " /Annots [%s]", strings.Join(refs, " "))
		}
		dict.WriteString(" >>")
		ow.object(l.page, dict.String())

		data, filter, err := d.encodeStream(p.content)
		if err != nil {
			return nil, fmt.Errorf("encode page %d content: %w", i, err)
		}
		ow.stream(l.contents, fmt.Sprintf("<<%s /Length %d >>", filter, len(data)), data)

		for j, a := range p.annots {
			ow.object(l.annots[j], annotationDict(a))
		}
	}

	return ow.finish(catalogObj, infoObj)
}

func (d *Document) infoDict() string {
	var b strings.Builder
	b.WriteString("<<")
	field := func(key, value string) {
		if v := EscapeString(value); v != "" {
			fmt.Fprintf(&b, " /%s (%s)", key, v)
		}
	}
	field("Title", d.info.Title)
	field("Author", d.info.Author)
	field("Creator", d.info.Creator)
	field("Producer", d.info.Producer)
	if !d.info.CreationDate.IsZero() {
		fmt.Fprintf(&b, " /CreationDate (D:%s)", d.info.CreationDate.UTC().Format("20060102150405")+"Z")
	}
	b.WriteString(" >>")
	return b.String()
}

func annotationDict(a Annotation) string {
	r := a.Rect
	return fmt.Sprintf(
		"<< /Type /Annot /Subtype /Link /Rect [%s %s %s %s] /Border [0 0 0] /F 4 /A << /Type /Action /S /URI /URI (%s) >> >>",
		num(r.X0), num(r.Y0), num(r.X1), num(r.Y1), EscapeString(a.URL))
}

func (d *Document) encodeStream(raw []byte) ([]byte, string, error) {
	if !d.compress {
		return raw, "", nil
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, "", fmt.Errorf("create flate writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, "", fmt.Errorf("deflate stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("close flate writer: %w", err)
	}
	return buf.Bytes(), " /Filter /FlateDecode", nil
}

func ref(obj int) string {
	return fmt.Sprintf("%d 0 R", obj)
}

// objectWriter lays indirect objects out sequentially and records their byte
// offsets for the cross-reference table.
type objectWriter struct {
	buf     bytes.Buffer
	offsets map[int]int
	max     int
}

func newObjectWriter() *objectWriter {
	ow := &objectWriter{offsets: make(map[int]int)}
	ow.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return ow
}

func (ow *objectWriter) begin(obj int) {
	ow.offsets[obj] = ow.buf.Len()
	if obj > ow.max {
		ow.max = obj
	}
	fmt.Fprintf(&ow.buf, "%d 0 obj\n", obj)
}

func (ow *objectWriter) object(obj int, body string) {
	ow.begin(obj)
	ow.buf.WriteString(body)
	ow.buf.WriteString("\nendobj\n")
}

func (ow *objectWriter) stream(obj int, dict string, data []byte) {
	ow.begin(obj)
	ow.buf.WriteString(dict)
	ow.buf.WriteString("\nstream\n")
	ow.buf.Write(data)
	ow.buf.WriteString("\nendstream\nendobj\n")
}

func (ow *objectWriter) finish(root, info int) ([]byte, error) {
	for obj := 1; obj <= ow.max; obj++ {
		if _, ok := ow.offsets[obj]; !ok {
			return nil, fmt.Errorf("pdf: object %d was never written", obj)
		}
	}

	xref := ow.buf.Len()
	fmt.Fprintf(&ow.buf, "xref\n0 %d\n", ow.max+1)
	ow.buf.WriteString("0000000000 65535 f \n")
	for obj := 1; obj <= ow.max; obj++ {
		fmt.Fprintf(&ow.buf, "%010d 00000 n \n", ow.offsets[obj])
	}
	fmt.Fprintf(&ow.buf, "trailer\n<< /Size %d /Root %s /Info %s >>\nstartxref\n%d\n%%%%EOF\n",
		ow.max+1, ref(root), ref(info), xref)
	return ow.buf.Bytes(), nil
}
