package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// PaletteColors are the four entries used by WritePalettedPNG, one per quadrant
// (top-left, top-right, bottom-left, bottom-right).
var PaletteColors = color.Palette{
	color.RGBA{R: 220, G: 20, B: 20, A: 255},
	color.RGBA{R: 20, G: 200, B: 20, A: 255},
	color.RGBA{R: 20, G: 20, B: 220, A: 255},
	color.RGBA{R: 240, G: 240, B: 30, A: 255},
}

// GradientImage returns an RGBA image filled with a gradient pattern.
func GradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8((x*y + 7*x + 13*y) % 256)
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// GenerateTestImage creates a gradient image encoded in the given format
// ("jpeg", "jpg" or "png") and returns it as an io.ReadSeeker.
func GenerateTestImage(t *testing.T, format string, width, height int) io.ReadSeeker {
	t.Helper()

	img := GradientImage(width, height)
	var buf bytes.Buffer

	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	default:
		t.Fatalf("unsupported image format: %s", format)
	}

	return bytes.NewReader(buf.Bytes())
}

// WriteTestImage writes a generated image to dir/name. The format is taken from
// the extension of name. Returns the full path.
func WriteTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	format := "png"
	switch filepath.Ext(name) {
	case ".jpg", ".JPG", ".jpeg", ".JPEG":
		format = "jpeg"
	}
	r := GenerateTestImage(t, format, width, height)
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read generated image: %v", err)
	}
	return WriteFile(t, dir, name, data)
}

// WritePalettedPNG writes a palette-indexed PNG whose four quadrants use the
// four PaletteColors entries.
func WritePalettedPNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewPaletted(image.Rect(0, 0, width, height), PaletteColors)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := 0
			if x >= width/2 {
				idx++
			}
			if y >= height/2 {
				idx += 2
			}
			img.SetColorIndex(x, y, uint8(idx))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode paletted png: %v", err)
	}
	return WriteFile(t, dir, name, buf.Bytes())
}

// WriteCorruptImage writes bytes that carry a valid-looking name but are not an image.
func WriteCorruptImage(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte("definitely not image data"))
}

// WriteFile writes data to dir/name, creating dir when needed.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
