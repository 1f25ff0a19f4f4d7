package pipeline

import (
	"image"
	"image/color"
	"testing"

	"webpoptimizer/internal/testutil"
)

func TestNormalizeTruecolor_Paletted(t *testing.T) {
	p := image.NewPaletted(image.Rect(0, 0, 4, 4), testutil.PaletteColors)
	p.SetColorIndex(3, 3, 2)

	out := NormalizeTruecolor(p)
	n, ok := out.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", out)
	}
	// four bytes per pixel: direct channels, no palette indices
	if n.Stride != 4*4 {
		t.Fatalf("unexpected stride %d", n.Stride)
	}
	got := n.NRGBAAt(3, 3)
	want := testutil.PaletteColors[2].(color.RGBA)
	if got.R != want.R || got.G != want.G || got.B != want.B || got.A != 255 {
		t.Fatalf("palette color lost: got %+v want %+v", got, want)
	}
}

func TestNormalizeTruecolor_Passthrough(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if NormalizeTruecolor(rgba) != image.Image(rgba) {
		t.Fatalf("expected RGBA passthrough")
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	if NormalizeTruecolor(nrgba) != image.Image(nrgba) {
		t.Fatalf("expected NRGBA passthrough")
	}
	if NormalizeTruecolor(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	if _, ok := NormalizeTruecolor(gray).(*image.NRGBA); !ok {
		t.Fatalf("expected gray converted to NRGBA")
	}
}
