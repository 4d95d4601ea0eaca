package batch

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"impostor-baker/internal/export"
	"impostor-baker/internal/impostor"
	"impostor-baker/internal/logger"
	"impostor-baker/internal/mesh"
	"impostor-baker/internal/objfile"

	"go.uber.org/zap"
)

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir string
	Format    export.Format
	Impostor  impostor.Config
	Workers   int
	Preview   int  // preview size in pixels; 0 disables previews
	RawAlbedo bool // also write the undilated albedo atlas

	// ProgressInterval is how often progress is logged; 0 means 2s.
	ProgressInterval time.Duration
}

// Job is one mesh to bake.
type Job struct {
	Name   string
	Source string // OBJ path or "primitive:<name>"
	Load   func() (*mesh.Mesh, error)
}

// FileJob bakes an OBJ file, named after its base name.
func FileJob(path string) Job {
	base := filepath.Base(path)
	return Job{
		Name:   strings.TrimSuffix(base, filepath.Ext(base)),
		Source: path,
		Load:   func() (*mesh.Mesh, error) { return objfile.Parse(path) },
	}
}

// PrimitiveJob bakes a built-in primitive.
func PrimitiveJob(name string) Job {
	return Job{
		Name:   name,
		Source: "primitive:" + name,
		Load:   func() (*mesh.Mesh, error) { return mesh.Primitive(name) },
	}
}

// Result holds the outcome of processing one job.
type Result struct {
	Name     string
	Source   string
	Success  bool
	Error    string
	Atlases  export.Atlases
	Previews []string
	Radius   float64
	Elapsed  time.Duration
}

// Run processes all jobs using a worker pool. Results are in job order.
func Run(cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					logger.Info("progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Float64("perSecond", float64(p)/time.Since(start).Seconds()),
					)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processJob(cfg Config, job Job) Result {
	start := time.Now()
	res := Result{Name: job.Name, Source: job.Source}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Elapsed = time.Since(start)
		logger.Warn("bake failed", zap.String("name", job.Name), zap.Error(err))
		return res
	}

	m, err := job.Load()
	if err != nil {
		return fail(err)
	}
	if m.NumTriangles() == 0 {
		// Bakes to empty atlases; not a failure.
		logger.Warn("mesh has no triangles", zap.String("name", job.Name), zap.String("source", job.Source))
	}

	imp, err := impostor.Build(m, cfg.Impostor)
	if err != nil {
		return fail(err)
	}
	res.Radius = imp.Radius

	var raw image.Image
	if cfg.RawAlbedo {
		raw = imp.RawAlbedo
	}
	if res.Atlases, err = export.WriteAtlases(cfg.OutputDir, job.Name, imp.Albedo, raw, imp.Normal, cfg.Format); err != nil {
		return fail(err)
	}

	if cfg.Preview > 0 {
		for i, eye := range impostor.OrbitPositions(4, 4*imp.Radius, 0.35) {
			img, _ := imp.Preview(eye, cfg.Preview)
			name := fmt.Sprintf("%s_preview_%d%s", job.Name, i, cfg.Format.Ext())
			if err := export.WriteFile(filepath.Join(cfg.OutputDir, name), img, cfg.Format); err != nil {
				return fail(err)
			}
			res.Previews = append(res.Previews, name)
		}
	}

	res.Success = true
	res.Elapsed = time.Since(start)
	logger.Debug("job done", zap.String("name", job.Name), zap.Duration("elapsed", res.Elapsed))
	return res
}
