package cv

import (
	"image"
	"testing"
)

func TestEncodeQRDeterministic(t *testing.T) {
	a, err := EncodeQR("https://omarhaddad.dev", 128)
	if err != nil {
		t.Fatalf("EncodeQR() error = %v", err)
	}
	b, err := EncodeQR("https://omarhaddad.dev", 128)
	if err != nil {
		t.Fatalf("EncodeQR() error = %v", err)
	}
	if a.Bounds() != image.Rect(0, 0, 128, 128) {
		t.Fatalf("bounds = %v", a.Bounds())
	}
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			ar, ag, ab, _ := a.At(x, y).RGBA()
			br, bg, bb, _ := b.At(x, y).RGBA()
			if ar != br || ag != bg || ab != bb {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}

func TestEncodeQRErrors(t *testing.T) {
	if _, err := EncodeQR("", 128); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := EncodeQR("https://example.com", 0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
