package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"impostor-baker/internal/batch"
	"impostor-baker/internal/config"
	"impostor-baker/internal/export"
	"impostor-baker/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to YAML config file")
	meshes := flag.String("mesh", "", "Comma-separated OBJ files to bake")
	primitive := flag.String("primitive", "", "Bake a built-in mesh: sphere, box or torus")
	tiles := flag.Int("tiles", 0, "Tiles per atlas side (default: 16)")
	resolution := flag.Int("resolution", 0, "Atlas size in pixels, a multiple of -tiles (default: 2048)")
	passes := flag.Int("passes", -1, "Dilation passes (default: 4)")
	outputDir := flag.String("output", "", "Output directory (default: impostors)")
	format := flag.String("format", "", "Atlas format: webp, tga or png (default: webp)")
	workers := flag.Int("workers", 0, "Meshes baked in parallel (default: NumCPU)")
	preview := flag.Int("preview", 0, "Write billboard previews of this size in pixels")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Also log JSON to this file")

	flag.Parse()

	// Load config
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Tiles:      *tiles,
		Resolution: *resolution,
		Passes:     *passes,
		OutputDir:  *outputDir,
		Format:     *format,
		Workers:    *workers,
		Preview:    *preview,
		LogLevel:   *logLevel,
		LogFile:    *logFile,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	jobs := collectJobs(*meshes, *primitive)
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to bake. Use -mesh or -primitive.")
		os.Exit(2)
	}

	impCfg, err := cfg.Impostor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	outFormat, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("baking impostors",
		zap.Int("meshes", len(jobs)),
		zap.Int("tiles", impCfg.TileCount),
		zap.Int("resolution", impCfg.AtlasResolution),
		zap.Int("dilationPasses", impCfg.DilationPasses),
		zap.String("output", cfg.Output.Dir),
		zap.Int("workers", cfg.Output.Workers),
	)

	start := time.Now()

	batchCfg := batch.Config{
		OutputDir: cfg.Output.Dir,
		Format:    outFormat,
		Impostor:  impCfg,
		Workers:   cfg.Output.Workers,
		Preview:   cfg.Output.Preview,
		RawAlbedo: cfg.Output.RawAlbedo,
	}
	results := batch.Run(batchCfg, jobs)

	// Count results
	var failed []batch.Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	logger.Info("done",
		zap.Int("baked", len(results)-len(failed)),
		zap.Int("failed", len(failed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	for _, r := range failed {
		logger.Error("failed", zap.String("name", r.Name), zap.String("error", r.Error))
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.Output.Dir, "manifest.json")
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		logger.Warn("create output dir", zap.Error(err))
	} else if err := batch.WriteManifest(manifestPath, batchCfg, results); err != nil {
		logger.Warn("manifest write failed", zap.Error(err))
	} else {
		logger.Info("manifest written", zap.String("path", manifestPath))
	}

	if len(failed) > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

// collectJobs builds one job per OBJ path and one for the primitive, if any.
func collectJobs(meshes, primitive string) []batch.Job {
	var jobs []batch.Job
	for _, p := range strings.Split(meshes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			jobs = append(jobs, batch.FileJob(p))
		}
	}
	if primitive != "" {
		jobs = append(jobs, batch.PrimitiveJob(primitive))
	}
	return jobs
}
