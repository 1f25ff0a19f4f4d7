package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// NormalizeTruecolor converts palette-indexed (and any other non-RGBA) images
// into a direct-color *image.NRGBA. RGBA and NRGBA images are returned as is.
func NormalizeTruecolor(img image.Image) image.Image {
	switch img.(type) {
	case nil:
		return nil
	case *image.NRGBA, *image.RGBA:
		return img
	default:
		return imaging.Clone(img)
	}
}
