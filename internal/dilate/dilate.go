// Package dilate grows non-empty texel colors outward into empty regions so
// that bilinear sampling near tile edges never picks up the background.
//
// A texel is empty when every color channel is below Epsilon; near-black
// baked content is therefore indistinguishable from background.
package dilate

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"impostor-baker/internal/logger"
	"impostor-baker/internal/mathutil"

	"go.uber.org/zap"
)

// ErrInvalidOptions reports an unusable engine configuration.
var ErrInvalidOptions = errors.New("dilate: invalid options")

// Step is the kind of work one pass performs.
type Step int

const (
	// StepSeed copies the source into the read buffer unchanged.
	StepSeed Step = iota
	// StepPropagate fills empty texels from their nearest non-empty neighbor.
	StepPropagate
)

func (s Step) String() string {
	if s == StepSeed {
		return "seed"
	}
	return "propagate"
}

// Options configures the engine. Gain and ProjectionScale are heuristics:
// the extrapolated color is n + (n - p) * Gain, with p sampled
// max(1, round(radius * ProjectionScale)) texels beyond the neighbor n.
type Options struct {
	Passes          int     // propagate passes after the seed pass
	MaxSteps        int     // search radius in texels per pass
	Epsilon         float64 // emptiness threshold on channels in [0,1]
	Gain            float64
	ProjectionScale float64
	Workers         int // goroutines per pass; results do not depend on it
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Passes:          4,
		MaxSteps:        64,
		Epsilon:         1e-5,
		Gain:            4.0,
		ProjectionScale: 0.25,
		Workers:         1,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	switch {
	case o.Passes < 0:
		return fmt.Errorf("%w: passes %d", ErrInvalidOptions, o.Passes)
	case o.MaxSteps < 1:
		return fmt.Errorf("%w: max steps %d", ErrInvalidOptions, o.MaxSteps)
	case o.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon %g", ErrInvalidOptions, o.Epsilon)
	case o.ProjectionScale < 0:
		return fmt.Errorf("%w: projection scale %g", ErrInvalidOptions, o.ProjectionScale)
	case o.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// offsets is the fixed scan order: W, E, S, N, then the four diagonals.
var offsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, 1}, {0, -1},
	{-1, 1}, {1, 1}, {1, -1}, {-1, -1},
}

// Engine runs fixed-count dilation. It holds no per-image state and may be
// reused.
type Engine struct {
	opts Options
}

// New returns an engine, or an error for out-of-range options.
func New(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// bufferPair is the read/write double buffer. read selects the source of the
// next pass; the other slot is written and the roles flip afterwards.
type bufferPair struct {
	bufs [2][]uint8
	read int
	w, h int
}

func newBufferPair(w, h int) *bufferPair {
	return &bufferPair{
		bufs: [2][]uint8{make([]uint8, w*h*4), make([]uint8, w*h*4)},
		w:    w,
		h:    h,
	}
}

func (p *bufferPair) src() []uint8 { return p.bufs[p.read] }
func (p *bufferPair) dst() []uint8 { return p.bufs[1-p.read] }
func (p *bufferPair) swap()        { p.read = 1 - p.read }

// Dilate runs one seed pass and Passes propagate passes over src and returns
// the last written buffer as a new image. src is not modified. Output alpha
// is opaque everywhere.
func (e *Engine) Dilate(src *image.NRGBA) (*image.NRGBA, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("dilate: empty source image %v", b)
	}

	pair := newBufferPair(w, h)

	e.pass(pair, StepSeed, src)
	pair.swap()

	for i := 0; i < e.opts.Passes; i++ {
		e.pass(pair, StepPropagate, nil)
		pair.swap()
		if logger.Log.Core().Enabled(zap.DebugLevel) {
			logger.Debug("dilation pass",
				zap.Int("pass", i+1),
				zap.Int("empty", countEmptyPix(pair.src(), e.opts.Epsilon)),
			)
		}
	}

	return &image.NRGBA{
		Pix:    pair.src(),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}, nil
}

// pass writes pair.dst(). StepSeed copies src with opaque alpha; StepPropagate
// reads pair.src(). Rows are independent, so they may be split across workers.
func (e *Engine) pass(pair *bufferPair, step Step, src *image.NRGBA) {
	if step == StepSeed {
		seed(pair.dst(), src)
		return
	}

	workers := e.opts.Workers
	if workers > pair.h {
		workers = pair.h
	}
	if workers <= 1 {
		e.propagateRows(pair, 0, pair.h)
		return
	}

	var wg sync.WaitGroup
	chunk := (pair.h + workers - 1) / workers
	for y0 := 0; y0 < pair.h; y0 += chunk {
		y1 := y0 + chunk
		if y1 > pair.h {
			y1 = pair.h
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			e.propagateRows(pair, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}

func seed(dst []uint8, src *image.NRGBA) {
	b := src.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := y * w * 4
		for x := 0; x < w; x++ {
			dst[di] = src.Pix[si]
			dst[di+1] = src.Pix[si+1]
			dst[di+2] = src.Pix[si+2]
			dst[di+3] = 255
			si += 4
			di += 4
		}
	}
}

func (e *Engine) propagateRows(pair *bufferPair, y0, y1 int) {
	read, write := pair.src(), pair.dst()
	w := pair.w
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			r, g, b := read[i], read[i+1], read[i+2]
			if !e.empty(r, g, b) {
				write[i], write[i+1], write[i+2], write[i+3] = r, g, b, 255
				continue
			}
			if c, ok := e.nearest(read, pair.w, pair.h, x, y); ok {
				write[i], write[i+1], write[i+2] = c[0], c[1], c[2]
			} else {
				write[i], write[i+1], write[i+2] = r, g, b
			}
			write[i+3] = 255
		}
	}
}

// nearest scans the 8 rays around (x, y) at growing radius for the closest
// non-empty texel. Strictly closer candidates replace the current best, so
// ties keep the first one in scan order. Samples outside the image are skipped.
func (e *Engine) nearest(read []uint8, w, h, x, y int) ([3]uint8, bool) {
	var best [3]uint8
	bestDist := math.Inf(1)
	found := false

	for step := 1; step <= e.opts.MaxSteps; step++ {
		// No candidate at this radius or beyond is closer than step.
		if float64(step) >= bestDist {
			break
		}
		for _, off := range offsets {
			nx, ny := x+off[0]*step, y+off[1]*step
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := (ny*w + nx) * 4
			if e.empty(read[ni], read[ni+1], read[ni+2]) {
				continue
			}
			dist := float64(step) * math.Hypot(float64(off[0]), float64(off[1]))
			if dist >= bestDist {
				continue
			}
			bestDist = dist
			found = true
			best = e.extrapolate(read, w, h, nx, ny, off, step)
		}
	}
	return best, found
}

// extrapolate pushes the neighbor color at (nx, ny) further along the local
// gradient measured against a sample projected beyond it. If the projected
// sample is empty, or the extrapolated color would read as empty, the
// neighbor color is used unchanged.
func (e *Engine) extrapolate(read []uint8, w, h, nx, ny int, off [2]int, step int) [3]uint8 {
	ni := (ny*w + nx) * 4
	n := [3]uint8{read[ni], read[ni+1], read[ni+2]}

	k := int(math.Round(float64(step) * e.opts.ProjectionScale))
	if k < 1 {
		k = 1
	}
	px, py := nx+off[0]*k, ny+off[1]*k
	if px < 0 || px >= w || py < 0 || py >= h {
		return n
	}
	pi := (py*w + px) * 4
	if e.empty(read[pi], read[pi+1], read[pi+2]) {
		return n
	}

	var out [3]uint8
	for c := 0; c < 3; c++ {
		nv := float64(n[c]) / 255
		pv := float64(read[pi+c]) / 255
		out[c] = uint8(mathutil.Clamp01(nv+(nv-pv)*e.opts.Gain)*255 + 0.5)
	}
	if e.empty(out[0], out[1], out[2]) {
		return n
	}
	return out
}

func (e *Engine) empty(r, g, b uint8) bool {
	return isEmpty(r, g, b, e.opts.Epsilon)
}

func isEmpty(r, g, b uint8, eps float64) bool {
	return float64(r)/255 < eps && float64(g)/255 < eps && float64(b)/255 < eps
}

// IsEmpty reports whether the texel at (x, y) counts as no data.
func IsEmpty(img *image.NRGBA, x, y int, eps float64) bool {
	c := img.NRGBAAt(x, y)
	return isEmpty(c.R, c.G, c.B, eps)
}

// CountEmpty returns the number of empty texels in img.
func CountEmpty(img *image.NRGBA, eps float64) int {
	b := img.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if IsEmpty(img, x, y, eps) {
				n++
			}
		}
	}
	return n
}

func countEmptyPix(pix []uint8, eps float64) int {
	n := 0
	for i := 0; i+3 < len(pix); i += 4 {
		if isEmpty(pix[i], pix[i+1], pix[i+2], eps) {
			n++
		}
	}
	return n
}

// Dilate runs the default engine with the given number of propagate passes.
func Dilate(src *image.NRGBA, passes int) (*image.NRGBA, error) {
	opts := DefaultOptions()
	opts.Passes = passes
	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	return e.Dilate(src)
}
