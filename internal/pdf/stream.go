package pdf

import (
	"bytes"
	"strconv"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// Stream accumulates the operators of one page. Coordinates handed to it are
// already in bottom-up page space; PageBuilder does the conversion.
type Stream struct {
	buf   bytes.Buffer
	fonts map[FontID]bool
	image bool
}

// NewStream returns an empty operator stream.
func NewStream() *Stream {
	return &Stream{fonts: make(map[FontID]bool, 3)}
}

// Text draws s with its baseline starting at (x, y).
func (s *Stream) Text(x, y float64, m *Metrics, size float64, c Color, text string) {
	escaped := EscapeString(text)
	if escaped == "" {
		return
	}
	s.fonts[m.ID()] = true
	s.op("BT")
	s.op("/"+m.Resource(), num(size), "Tf")
	s.op(num(c.R), num(c.G), num(c.B), "rg")
	s.op(num(x), num(y), "Td")
	s.op("("+escaped+")", "Tj")
	s.op("ET")
}

// Line strokes a straight segment.
func (s *Stream) Line(x0, y0, x1, y1, width float64, c Color) {
	s.op(num(c.R), num(c.G), num(c.B), "RG")
	s.op(num(width), "w")
	s.op(num(x0), num(y0), "m")
	s.op(num(x1), num(y1), "l")
	s.op("S")
}

// Rect fills the rectangle whose lower-left corner is (x, y).
func (s *Stream) Rect(x, y, w, h float64, c Color) {
	s.op(num(c.R), num(c.G), num(c.B), "rg")
	s.op(num(x), num(y), num(w), num(h), "re")
	s.op("f")
}

// Image paints the document image with its lower-left corner at (x, y).
func (s *Stream) Image(x, y, w, h float64) {
	s.image = true
	s.op("q")
	s.op(num(w), "0", "0", num(h), num(x), num(y), "cm")
	s.op("/"+imageResource, "Do")
	s.op("Q")
}

// Bytes returns the accumulated operators.
func (s *Stream) Bytes() []byte { return s.buf.Bytes() }

// Len reports the number of bytes written so far.
func (s *Stream) Len() int { return s.buf.Len() }

func (s *Stream) op(parts ...string) {
	for i, p := range parts {
		if i > 0 {
			s.buf.WriteByte(' ')
		}
		s.buf.WriteString(p)
	}
	s.buf.WriteByte('\n')
}

// num formats a number with at most two decimals and no trailing zeros.
func num(v float64) string {
	out := strconv.FormatFloat(v, 'f', 2, 64)
	for len(out) > 1 && out[len(out)-1] == '0' {
		out = out[:len(out)-1]
	}
	out = trimDot(out)
	if out == "-0" {
		return "0"
	}
	return out
}

func trimDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}
