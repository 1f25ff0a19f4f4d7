package pipeline

import "errors"

// Outcome classifies what a single conversion did.
type Outcome string

const (
	OutcomeConverted        Outcome = "converted"
	OutcomeNotApplicable    Outcome = "not_applicable"
	OutcomeAlreadyConverted Outcome = "already_converted"
	OutcomeDecodeFailed     Outcome = "decode_failed"
	OutcomeEncodeFailed     Outcome = "encode_failed"
)

// Produced reports whether a WebP file was written.
func (o Outcome) Produced() bool {
	return o == OutcomeConverted
}

// Skip reports whether the outcome is a skip signal rather than a failure.
func (o Outcome) Skip() bool {
	return o == OutcomeNotApplicable || o == OutcomeAlreadyConverted
}

var (
	ErrNotApplicable    = errors.New("source is not a jpeg or png file")
	ErrAlreadyConverted = errors.New("webp target already exists")
	ErrDecodeFailed     = errors.New("decode source image")
	ErrEncodeFailed     = errors.New("encode webp image")
)

// DefaultWebPQuality is the quality used when the caller has no preference.
const DefaultWebPQuality = 80

// Result describes one conversion. Output is only set when Outcome is
// OutcomeConverted. Err wraps one of the sentinel errors above for every other
// outcome.
type Result struct {
	Source  string
	Output  string
	Outcome Outcome
	Err     error
	Quality int
	Width   int
	Height  int
	Bytes   int64
}

// Options tunes a Converter. The zero value converts pixels as decoded.
type Options struct {
	// AutoOrient rotates JPEG pixels according to their EXIF orientation tag,
	// since the tag does not survive into the WebP output.
	AutoOrient bool
	// MaxDimension downscales images whose width or height exceed it. Zero
	// disables resizing.
	MaxDimension int
}
