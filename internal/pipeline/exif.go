package pipeline

import (
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ReadOrientation returns the EXIF orientation (1-8) stored in r, or 1 when the
// data carries no readable orientation tag.
func ReadOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orient, err := tag.Int(0)
	if err != nil || orient < 1 || orient > 8 {
		return 1
	}
	return orient
}

// orientFile re-reads path for EXIF data and rotates img upright. Failures to
// read the tag leave img unchanged.
func orientFile(img image.Image, path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return img
	}
	defer f.Close()
	return Orient(img, ReadOrientation(f))
}

// Orient applies the flip/rotation for an EXIF orientation value.
// Unknown values return img unchanged.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		// transpose
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		// transverse
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
