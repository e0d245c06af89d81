package pdf

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func onePage(t *testing.T, doc *Document, draw func(b *PageBuilder)) {
	t.Helper()
	b := NewPageBuilder(doc)
	draw(b)
	b.FinishPage()
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

// checkXref verifies that every xref entry points at the matching "N 0 obj" header.
func checkXref(t *testing.T, data []byte) {
	t.Helper()
	s := string(data)
	idx := strings.LastIndex(s, "startxref\n")
	if idx < 0 {
		t.Fatal("startxref missing")
	}
	rest := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s[idx+len("startxref\n"):]), "%%EOF"))
	off, err := strconv.Atoi(rest)
	if err != nil {
		t.Fatalf("bad startxref %q: %v", rest, err)
	}
	if !strings.HasPrefix(s[off:], "xref\n") {
		t.Fatalf("startxref %d does not point at xref table", off)
	}

	lines := strings.Split(s[off:], "\n")
	header := strings.Fields(lines[1])
	if len(header) != 2 || header[0] != "0" {
		t.Fatalf("bad xref header %q", lines[1])
	}
	count, err := strconv.Atoi(header[1])
	if err != nil {
		t.Fatalf("bad xref header %q", lines[1])
	}
	for obj := 1; obj < count; obj++ {
		entry := lines[2+obj]
		pos, err := strconv.Atoi(entry[:10])
		if err != nil {
			t.Fatalf("bad xref entry %q", entry)
		}
		want := strconv.Itoa(obj) + " 0 obj\n"
		if !strings.HasPrefix(s[pos:], want) {
			t.Fatalf("object %d: offset %d does not start %q", obj, pos, want)
		}
	}
}

func TestDocumentStructure(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetCompression(false)
	onePage(t, doc, func(b *PageBuilder) {
		b.Text(Margin, 12, FontRegular, 10, Black, "Hello")
	})

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "%PDF-1.7\n") {
		t.Fatalf("bad header %q", s[:12])
	}
	if !strings.HasSuffix(s, "%%EOF\n") {
		t.Fatal("missing EOF marker")
	}
	for _, want := range []string{
		"/Type /Catalog",
		"/Type /Pages /Kids [",
		"/Count 1",
		"/BaseFont /Helvetica /Encoding /WinAnsiEncoding",
		"/Title (Test)",
		"/Author (Tester)",
		"/CreationDate (D:20260102030405Z)",
		"/MediaBox [0 0 595.28 841.89]",
		"(Hello) Tj",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	// 未使用的字体和图片不写入文件
	for _, unwanted := range []string{"Helvetica-Bold", "Helvetica-Oblique", "/XObject", "/Annots"} {
		if strings.Contains(s, unwanted) {
			t.Fatalf("output unexpectedly contains %q", unwanted)
		}
	}
	checkXref(t, data)
}

func TestDocumentSharesResourcesAcrossPages(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetCompression(false)
	b := NewPageBuilder(doc)
	b.Text(Margin, 12, FontBold, 10, Black, "one")
	b.SetCursor(PrintableHeight)
	b.EnsureSpace(10)
	b.Text(Margin, 12, FontBold, 10, Black, "two")
	b.FinishPage()

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	s := string(data)
	if n := strings.Count(s, "/Type /Font "); n != 1 {
		t.Fatalf("font objects = %d, want 1", n)
	}
	refs := regexp.MustCompile(`/Resources (\d+ 0 R)`).FindAllStringSubmatch(s, -1)
	if len(refs) != 2 || refs[0][1] != refs[1][1] {
		t.Fatalf("resources refs = %v", refs)
	}
	if !strings.Contains(s, "/Count 2") {
		t.Fatal("expected two pages")
	}
	checkXref(t, data)
}

func TestDocumentCompressedContent(t *testing.T) {
	doc := newTestDocument(t)
	onePage(t, doc, func(b *PageBuilder) {
		b.Text(Margin, 12, FontItalic, 9, Black, "compressed text")
	})
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "/Filter /FlateDecode") {
		t.Fatal("content stream not compressed")
	}

	start := strings.Index(s, "stream\n") + len("stream\n")
	end := strings.Index(s[start:], "\nendstream") + start
	zr, err := zlib.NewReader(bytes.NewReader(data[start:end]))
	if err != nil {
		t.Fatalf("zlib.NewReader() error = %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if !bytes.Equal(raw, doc.Pages()[0].Content()) {
		t.Fatalf("inflated stream differs from page content")
	}
	checkXref(t, data)
}

func TestDocumentImage(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetCompression(false)
	if err := doc.RegisterImage(solidImage(2, 3)); err != nil {
		t.Fatalf("RegisterImage() error = %v", err)
	}
	if err := doc.RegisterImage(solidImage(1, 1)); !errors.Is(err, ErrImageRegistered) {
		t.Fatalf("second RegisterImage() error = %v, want ErrImageRegistered", err)
	}
	onePage(t, doc, func(b *PageBuilder) {
		b.Image(400, 0, 70, 70)
	})

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{
		"/Subtype /Image /Width 2 /Height 3 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length 18",
		"/XObject << /Im1 ",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	if strings.Contains(s, "/Type /Font ") {
		t.Fatal("no text drawn, but fonts were written")
	}
	checkXref(t, data)
}

func TestDocumentRegisteredImageUnusedIsOmitted(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetCompression(false)
	if err := doc.RegisterImage(solidImage(1, 1)); err != nil {
		t.Fatal(err)
	}
	onePage(t, doc, func(b *PageBuilder) {
		b.Text(Margin, 12, FontRegular, 10, Black, "text only")
	})
	data, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "/Subtype /Image") {
		t.Fatal("unused image was embedded")
	}
}

func TestDocumentErrors(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		doc := newTestDocument(t)
		var buf bytes.Buffer
		if _, err := doc.WriteTo(&buf); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Fatal("partial output written")
		}
	})
	t.Run("image not registered", func(t *testing.T) {
		doc := newTestDocument(t)
		onePage(t, doc, func(b *PageBuilder) { b.Image(0, 0, 10, 10) })
		if _, err := doc.Bytes(); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("bad image", func(t *testing.T) {
		doc := newTestDocument(t)
		if err := doc.RegisterImage(nil); err == nil {
			t.Fatal("expected error for nil image")
		}
		if err := doc.RegisterImage(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
			t.Fatal("expected error for empty image")
		}
		if doc.HasImage() {
			t.Fatal("failed registration left an image behind")
		}
	})
}

func TestDocumentDeterministic(t *testing.T) {
	build := func() []byte {
		doc := newTestDocument(t)
		onePage(t, doc, func(b *PageBuilder) {
			b.Text(Margin, 12, FontRegular, 10, Black, "same")
			b.Text(Margin, 30, FontBold, 10, Black, "output")
		})
		data, err := doc.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	if !bytes.Equal(build(), build()) {
		t.Fatal("two identical documents serialized differently")
	}
}
