// Package postprocess holds image passes applied to rendered tiles.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample reduces a square render to targetSize with premultiplied-alpha
// CatmullRom filtering, so transparent edges do not darken neighbors.
// Images already at or below targetSize are returned unchanged.
func Downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= targetSize && b.Dy() <= targetSize {
		return img
	}
	return Resample(img, targetSize, targetSize, draw.CatmullRom)
}

// Resample scales img to w×h with the given interpolator, working in
// premultiplied alpha. Same-size input is returned unchanged.
func Resample(img *image.NRGBA, w, h int, kernel draw.Interpolator) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	// image.RGBA is premultiplied; draw.Draw converts from NRGBA exactly.
	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	kernel.Scale(dst, dst.Bounds(), premul, b, draw.Src, nil)

	// Unpremultiply alpha
	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clamp8(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = clamp8(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp8(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}

	return result
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
