package pipeline

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"webpoptimizer/internal/storage"
)

// DecodeFile decodes the JPEG or PNG image at path, choosing the decoder from
// the file extension. The file handle is closed before returning.
func DecodeFile(path string) (image.Image, error) {
	ext := storage.Ext(path)
	if !storage.IsConvertible(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotApplicable, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return decodeAs(f, ext)
}

func decodeAs(r io.Reader, ext string) (image.Image, error) {
	switch ext {
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".png":
		return png.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotApplicable, ext)
	}
}
