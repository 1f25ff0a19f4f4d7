package pipeline

import (
	"errors"
	"image"
	"io"
	"log/slog"

	webp "github.com/chai2010/webp"
)

// EncodeWebP encodes img as lossy WebP into w. quality is handed to the encoder
// untouched; callers are expected to keep it within 0-100.
func EncodeWebP(img image.Image, w io.Writer, quality int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if w == nil {
		return errors.New("nil writer")
	}

	c := &countingWriter{w: w}
	if err := webp.Encode(c, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return err
	}

	slog.Debug("webp encoded", "size", c.n, "quality", quality)
	return nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += int64(m)
	return m, err
}
