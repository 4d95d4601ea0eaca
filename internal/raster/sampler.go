package raster

import "image"

// SampleBilinear performs bilinear filtering with clamp-to-edge addressing and
// texel-center alignment (uv 0 and 1 are the outer edges of the border texels).
// Returns RGBA normalized to [0,1]. Accesses tex.Pix directly for performance.
func SampleBilinear(tex *image.NRGBA, u, v float64) [4]float64 {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	if w == 0 || h == 0 {
		return [4]float64{}
	}

	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5
	x0 := floorInt(fx)
	y0 := floorInt(fy)
	dx := fx - float64(x0)
	dy := fy - float64(y0)
	x1 := clampInt(x0+1, 0, w-1)
	y1 := clampInt(y0+1, 0, h-1)
	x0 = clampInt(x0, 0, w-1)
	y0 = clampInt(y0, 0, h-1)

	stride := tex.Stride
	pix := tex.Pix

	// Four texels
	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]float64
	for c := 0; c < 4; c++ {
		out[c] = (float64(pix[i00+c])*w00 + float64(pix[i10+c])*w10 +
			float64(pix[i01+c])*w01 + float64(pix[i11+c])*w11) / 255
	}
	return out
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
