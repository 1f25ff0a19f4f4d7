package pipeline

import (
	"image"
	"testing"
)

func newRGBA(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestResize(t *testing.T) {
	cases := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 4000, 2000, 1000, 1000, 500},
		{"portrait", 1000, 3000, 1500, 500, 1500},
		{"smaller untouched", 800, 600, 1920, 800, 600},
		{"disabled", 4000, 2000, 0, 4000, 2000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Resize(newRGBA(tc.w, tc.h), tc.max)
			if out.Bounds().Dx() != tc.wantW || out.Bounds().Dy() != tc.wantH {
				t.Fatalf("got %dx%d want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestResize_Nil(t *testing.T) {
	if Resize(nil, 100) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
