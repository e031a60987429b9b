package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	cropselector "github.com/menta2k/crop-selector"
	"github.com/menta2k/crop-selector/internal/config"
	"github.com/menta2k/crop-selector/internal/utils"
	"github.com/menta2k/crop-selector/pkg/types"
)

func main() {
	// .env overrides are optional; flags still win.
	_ = godotenv.Load()

	var cropsDir, query, backend, url, model, metaFile, configFile, outFile string
	var imgW, imgH int
	var temperature float64
	var quiet bool

	flag.StringVar(&cropsDir, "crops", "", "directory with crop images named i<track>_f<frame>.jpg|png")
	flag.StringVar(&query, "query", "", "natural-language selection criterion")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp (default ollama)")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "model name (default qwen2.5vl)")
	flag.StringVar(&metaFile, "meta", "", "JSON file with crop metadata records")
	flag.StringVar(&configFile, "config", "", "configuration file (JSON)")
	flag.StringVar(&outFile, "out", "", "write selected track IDs as JSON to this file")
	flag.IntVar(&imgW, "imgw", 0, "original frame width in pixels (default from config)")
	flag.IntVar(&imgH, "imgh", 0, "original frame height in pixels (default from config)")
	flag.Float64Var(&temperature, "temp", 0, "sampling temperature (0 = server default)")
	flag.BoolVar(&quiet, "quiet", false, "suppress per-crop output")

	flag.Parse()
	if cropsDir == "" || query == "" {
		log.Fatalf("usage: %s -crops dir -query \"criterion\" [-backend ollama|llamacpp] [-url server_url] [-model name] [-meta metadata.json]", filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(configFile)

	// Flag and environment overrides, in that order of preference.
	if backend == "" {
		backend = os.Getenv("CROP_SELECTOR_BACKEND")
	}
	if backend != "" {
		cfg.Client.Backend = backend
	}
	if url == "" {
		url = os.Getenv("CROP_SELECTOR_URL")
	}
	if url != "" {
		cfg.Client.URL = url
	} else if cfg.Client.Backend == "llamacpp" && cfg.Client.URL == config.Default().Client.URL {
		cfg.Client.URL = "http://localhost:8080"
	}
	if model == "" {
		model = os.Getenv("CROP_SELECTOR_MODEL")
	}
	if model != "" {
		cfg.Client.Model = model
	}
	if temperature > 0 {
		cfg.Client.Temperature = temperature
	}
	if imgW > 0 {
		cfg.Scene.Width = imgW
	}
	if imgH > 0 {
		cfg.Scene.Height = imgH
	}

	var metadata []types.CropMetadata
	if metaFile != "" {
		var err error
		metadata, err = loadMetadata(metaFile)
		if err != nil {
			log.Fatalf("Failed to load metadata: %v", err)
		}
	}

	selector, err := cropselector.NewWithConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	opts := cropselector.Options{
		Quiet:    quiet,
		Metadata: metadata,
	}

	// In quiet mode a compact progress bar replaces the per-crop log lines.
	var bar *progressbar.ProgressBar
	if quiet {
		opts.OnProgress = func(done, total int, file string) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "selecting")
			}
			_ = bar.Set(done)
		}
	}

	selected := selector.SelectTargets(context.Background(), cropsDir, query, opts)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	fmt.Printf("Selected %d crop(s), track IDs: %v\n", len(selected), selected)

	if outFile != "" {
		if err := writeResult(outFile, selected); err != nil {
			log.Fatalf("Failed to write result: %v", err)
		}
		if !quiet {
			log.Printf("[INFO] Wrote %s", outFile)
		}
	}
}

// loadConfig reads the given config file, or the default one when present,
// falling back to built-in defaults.
func loadConfig(path string) *config.Config {
	if path == "" {
		def := config.GetConfigPath()
		if utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default()
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// loadMetadata reads a JSON array of crop metadata records.
func loadMetadata(path string) ([]types.CropMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var records []types.CropMetadata
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}
	return records, nil
}

// writeResult writes the selected track IDs as a JSON array.
func writeResult(path string, ids []int) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if ids == nil {
		ids = []int{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
