package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"webpoptimizer/internal/storage"
)

// Converter turns JPEG and PNG files into sibling WebP files. It is safe for
// concurrent use; conversions that target the same WebP path are serialized.
type Converter struct {
	opts   Options
	locks  *pathLocks
	logger *slog.Logger
}

// NewConverter creates a Converter. A nil logger means slog.Default().
func NewConverter(opts Options, logger *slog.Logger) *Converter {
	return &Converter{
		opts:   opts,
		locks:  newPathLocks(),
		logger: logger,
	}
}

var plain = &Converter{locks: newPathLocks()}

// Convert converts sourcePath with default options. The source file is never
// modified; the WebP file is written next to it as {base}.webp.
func Convert(sourcePath string, quality int) Result {
	return plain.Convert(sourcePath, quality)
}

// Convert decodes sourcePath, re-encodes it as WebP at quality and writes it to
// storage.WebPPath(sourcePath). It never overwrites an existing file.
func (c *Converter) Convert(sourcePath string, quality int) Result {
	res := Result{Source: sourcePath, Quality: quality}

	if !storage.IsConvertible(sourcePath) {
		return res.with(OutcomeNotApplicable, fmt.Errorf("%w: %s", ErrNotApplicable, sourcePath))
	}

	dst := storage.WebPPath(sourcePath)
	unlock := c.locks.Lock(dst)
	defer unlock()

	if storage.Exists(dst) {
		return res.with(OutcomeAlreadyConverted, fmt.Errorf("%w: %s", ErrAlreadyConverted, dst))
	}

	img, err := c.prepare(sourcePath)
	if err != nil {
		c.log().Warn("decode failed", "path", sourcePath, "error", err)
		return res.with(OutcomeDecodeFailed, fmt.Errorf("%w: %v", ErrDecodeFailed, err))
	}

	var written int64
	err = storage.CreateExclusive(dst, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		err := EncodeWebP(img, cw, quality)
		written = cw.n
		return err
	})
	b := img.Bounds()

	switch {
	case errors.Is(err, storage.ErrExists):
		return res.with(OutcomeAlreadyConverted, fmt.Errorf("%w: %s", ErrAlreadyConverted, dst))
	case err != nil:
		c.log().Warn("encode failed", "path", sourcePath, "target", dst, "error", err)
		return res.with(OutcomeEncodeFailed, fmt.Errorf("%w: %v", ErrEncodeFailed, err))
	}

	res.Outcome = OutcomeConverted
	res.Output = dst
	res.Width, res.Height = b.Dx(), b.Dy()
	res.Bytes = written
	c.log().Info("converted", "path", sourcePath, "target", dst, "quality", quality, "size", written)
	return res
}

// prepare decodes the source and applies the pixel transforms that must happen
// before encoding.
func (c *Converter) prepare(path string) (image.Image, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	ext := storage.Ext(path)
	if c.opts.AutoOrient && ext != ".png" {
		img = orientFile(img, path)
	}
	if ext == ".png" {
		img = NormalizeTruecolor(img)
	}
	return Resize(img, c.opts.MaxDimension), nil
}

func (r Result) with(o Outcome, err error) Result {
	r.Outcome = o
	r.Err = err
	return r
}

func (c *Converter) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
