package pipeline

import (
	"errors"
	"image"
	"testing"

	"webpoptimizer/internal/testutil"
)

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.PNG"} {
		path := testutil.WriteTestImage(t, dir, name, 12, 10)
		img, err := DecodeFile(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 10 {
			t.Fatalf("%s: unexpected bounds %v", name, img.Bounds())
		}
	}
}

func TestDecodeFile_Paletted(t *testing.T) {
	path := testutil.WritePalettedPNG(t, t.TempDir(), "p.png", 8, 8)
	img, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := img.(*image.Paletted); !ok {
		t.Fatalf("expected paletted decode, got %T", img)
	}
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	corrupt := testutil.WriteCorruptImage(t, dir, "broken.png")
	if _, err := DecodeFile(corrupt); err == nil {
		t.Fatalf("expected error for corrupt png")
	}

	// JPEG bytes behind a PNG extension go to the PNG decoder and fail
	mislabeled := testutil.WriteTestImage(t, dir, "real.jpg", 4, 4)
	renamed := dir + "/fake.png"
	testutil.WriteFile(t, dir, "fake.png", mustRead(t, mislabeled))
	if _, err := DecodeFile(renamed); err == nil {
		t.Fatalf("expected error for jpeg bytes with png extension")
	}

	gif := testutil.WriteFile(t, dir, "anim.gif", []byte("GIF89a"))
	if _, err := DecodeFile(gif); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}

	if _, err := DecodeFile(dir + "/missing.jpg"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
