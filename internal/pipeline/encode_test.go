package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"

	webp "github.com/chai2010/webp"

	"webpoptimizer/internal/testutil"
)

func smallTestImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	// put a red dot to avoid fully blank image optimizations
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	return img
}

func TestEncodeWebP_ValidImage(t *testing.T) {
	img := smallTestImage()
	var buf bytes.Buffer
	if err := EncodeWebP(img, &buf, DefaultWebPQuality); err != nil {
		t.Fatalf("EncodeWebP failed: %v", err)
	}
	out, err := webp.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decoded webp failed: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Fatalf("unexpected decoded bounds %v", out.Bounds())
	}
}

func TestEncodeWebP_QualityAffectsSize(t *testing.T) {
	img := testutil.GradientImage(128, 96)
	var low bytes.Buffer
	var high bytes.Buffer
	if err := EncodeWebP(img, &low, 10); err != nil {
		t.Fatalf("encode low quality failed: %v", err)
	}
	if err := EncodeWebP(img, &high, 90); err != nil {
		t.Fatalf("encode high quality failed: %v", err)
	}
	if low.Len() == 0 || high.Len() == 0 {
		t.Fatalf("encoded output empty")
	}
	if high.Len() < low.Len() {
		t.Fatalf("expected q90 size >= q10 size, got %d < %d", high.Len(), low.Len())
	}
}

type badWriter struct{}

func (badWriter) Write(p []byte) (int, error) { return 0, fmt.Errorf("closed writer") }

func TestEncodeWebP_ClosedWriter(t *testing.T) {
	if err := EncodeWebP(smallTestImage(), badWriter{}, DefaultWebPQuality); err == nil {
		t.Fatalf("expected error when writing to closed writer")
	}
}

func TestEncodeWebP_NilArgs(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeWebP(nil, &buf, 80); err == nil {
		t.Fatalf("expected error for nil image")
	}
	if err := EncodeWebP(smallTestImage(), nil, 80); err == nil {
		t.Fatalf("expected error for nil writer")
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	c := &countingWriter{w: &buf}
	c.Write([]byte("abc"))
	c.Write([]byte("de"))
	if c.n != 5 || buf.Len() != 5 {
		t.Fatalf("expected 5 bytes counted, got %d", c.n)
	}
}
