package upload_test

import (
	"testing"

	"webpoptimizer/internal/upload"
)

func TestWebPURL(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"https://s.test/u/photo.jpg":     "https://s.test/u/photo.webp",
		"https://s.test/u/a.b/photo.PNG": "https://s.test/u/a.b/photo.webp",
		"https://s.test/u.d/noext":       "https://s.test/u.d/noext.webp",
	}
	for in, want := range tests {
		if got := upload.WebPURL(in); got != want {
			t.Errorf("WebPURL(%q) = %q, want %q", in, got, want)
		}
	}
}
