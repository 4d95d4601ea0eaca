package raster

import (
	"image"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality,
// plus the viewport and scissor state consulted by every draw.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // depth per pixel, len = W*H, initialized to -inf (larger is nearer)

	viewport    image.Rectangle
	scissor     image.Rectangle
	scissorTest bool
}

// NewFrameBuffer allocates a zeroed color buffer and -inf z-buffer.
// The viewport covers the whole buffer and scissoring is off.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:    w,
		Height:   h,
		Color:    make([]uint8, n*4),
		ZBuf:     zbuf,
		viewport: image.Rect(0, 0, w, h),
	}
}

// Bounds returns the full-canvas rectangle.
func (fb *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, fb.Width, fb.Height)
}

// Clear fills every pixel with the given color and resets depth.
// Viewport and scissor are ignored, as with a full-canvas clear.
func (fb *FrameBuffer) Clear(r, g, b, a uint8) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = r
		fb.Color[i+1] = g
		fb.Color[i+2] = b
		fb.Color[i+3] = a
	}
	for i := range fb.ZBuf {
		fb.ZBuf[i] = math.Inf(-1)
	}
}

// SetViewport sets the rectangle that normalized device coordinates map onto.
func (fb *FrameBuffer) SetViewport(r image.Rectangle) {
	fb.viewport = r
}

// Viewport returns the current viewport.
func (fb *FrameBuffer) Viewport() image.Rectangle {
	return fb.viewport
}

// ResetViewport restores the full-canvas viewport.
func (fb *FrameBuffer) ResetViewport() {
	fb.viewport = fb.Bounds()
}

// SetScissor restricts writes to r and enables the scissor test.
func (fb *FrameBuffer) SetScissor(r image.Rectangle) {
	fb.scissor = r
	fb.scissorTest = true
}

// DisableScissor turns the scissor test off and resets the rectangle to full canvas.
func (fb *FrameBuffer) DisableScissor() {
	fb.scissor = fb.Bounds()
	fb.scissorTest = false
}

// ScissorEnabled reports whether writes are currently restricted.
func (fb *FrameBuffer) ScissorEnabled() bool {
	return fb.scissorTest
}

// clipRect is the region a draw may write: the canvas, narrowed by the scissor.
func (fb *FrameBuffer) clipRect() image.Rectangle {
	r := fb.Bounds()
	if fb.scissorTest {
		r = r.Intersect(fb.scissor)
	}
	return r
}

// Blit copies src with its top-left corner at dst. Depth is untouched and
// writes outside the clip rectangle are dropped.
func (fb *FrameBuffer) Blit(dst image.Point, src *image.NRGBA) {
	sb := src.Bounds()
	target := image.Rectangle{Min: dst, Max: dst.Add(sb.Size())}.Intersect(fb.clipRect())
	for y := target.Min.Y; y < target.Max.Y; y++ {
		sy := sb.Min.Y + y - dst.Y
		sx := sb.Min.X + target.Min.X - dst.X
		si := src.PixOffset(sx, sy)
		di := (y*fb.Width + target.Min.X) * 4
		copy(fb.Color[di:di+target.Dx()*4], src.Pix[si:si+target.Dx()*4])
	}
}

// ToNRGBA copies the color buffer into a new image.
func (fb *FrameBuffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(fb.Bounds())
	copy(img.Pix, fb.Color)
	return img
}
