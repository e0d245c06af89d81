package pdf

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

// FontID 标识文档使用的三种基础字体。
type FontID int

const (
	FontRegular FontID = iota
	FontBold
	FontItalic
)

// GlyphID 是 WinAnsi 编码下的字形编号，0 表示未映射。
type GlyphID byte

type fontSpec struct {
	baseFont string
	resource string
	style    string
}

var fontSpecs = map[FontID]fontSpec{
	FontRegular: {baseFont: "Helvetica", resource: "F1", style: ""},
	FontBold:    {baseFont: "Helvetica-Bold", resource: "F2", style: "B"},
	FontItalic:  {baseFont: "Helvetica-Oblique", resource: "F3", style: "I"},
}

// AllFonts 按资源名顺序返回全部字体。
func AllFonts() []FontID {
	return []FontID{FontRegular, FontBold, FontItalic}
}

func (id FontID) String() string {
	if spec, ok := fontSpecs[id]; ok {
		return spec.baseFont
	}
	return fmt.Sprintf("FontID(%d)", int(id))
}

// Metrics 保存一种基础字体的可打印 ASCII 字宽表（单位：em 的比例）。
type Metrics struct {
	id       FontID
	baseFont string
	resource string
	widths   [128]float64
}

// LoadMetrics 从 fpdf 内置的核心字体度量中读取字宽。
// fpdf 实例只作为字宽查询使用，不参与输出。
func LoadMetrics(id FontID) (*Metrics, error) {
	spec, ok := fontSpecs[id]
	if !ok {
		return nil, fmt.Errorf("unknown font id %d", int(id))
	}

	oracle := fpdf.New("P", "pt", "A4", "")
	oracle.SetFont("Helvetica", spec.style, 1)
	if err := oracle.Error(); err != nil {
		return nil, fmt.Errorf("load core font %s: %w", spec.baseFont, err)
	}

	m := &Metrics{
		id:       id,
		baseFont: spec.baseFont,
		resource: spec.resource,
	}
	for c := 0x20; c <= 0x7e; c++ {
		m.widths[c] = oracle.GetStringWidth(string(rune(c)))
	}
	if err := oracle.Error(); err != nil {
		return nil, fmt.Errorf("measure core font %s: %w", spec.baseFont, err)
	}
	if m.widths[' '] <= 0 {
		return nil, fmt.Errorf("core font %s has no width for space", spec.baseFont)
	}
	return m, nil
}

// ID 返回字体标识。
func (m *Metrics) ID() FontID { return m.id }

// BaseFont 返回 PDF 标准字体名，例如 Helvetica-Bold。
func (m *Metrics) BaseFont() string { return m.baseFont }

// Resource 返回页面资源字典中的字体名，例如 F2。
func (m *Metrics) Resource() string { return m.resource }

// Glyph 返回码点对应的字形与字宽。未映射的码点返回 0 号字形、零宽度。
func (m *Metrics) Glyph(r rune) (GlyphID, float64) {
	if r < 0x20 || r > 0x7e {
		return 0, 0
	}
	return GlyphID(r), m.widths[r]
}

// Advance 是 Glyph 的简写，只返回字宽。
func (m *Metrics) Advance(r rune) float64 {
	_, w := m.Glyph(r)
	return w
}
