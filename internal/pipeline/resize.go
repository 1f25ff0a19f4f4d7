package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// Resize shrinks img to fit within a maxDimension square, keeping the aspect
// ratio. Smaller images and a non-positive maxDimension leave img untouched.
func Resize(img image.Image, maxDimension int) image.Image {
	if img == nil || maxDimension <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxDimension && b.Dy() <= maxDimension {
		return img
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
}
