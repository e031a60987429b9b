// Package cropselector selects tracked-object image crops that match a
// natural-language criterion by delegating the judgment to a locally hosted
// vision-language model.
//
// The crops come from a vehicle-tracking pipeline and are named
// "i<trackID>_f<frameID>.jpg". For each crop the selector builds a prompt
// from the query and the crop's spatial metadata, sends the image plus
// prompt to the model, and parses the constrained reply into a decision.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		cropselector "github.com/menta2k/crop-selector"
//		"github.com/menta2k/crop-selector/pkg/types"
//	)
//
//	func main() {
//		selector, err := cropselector.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ids := selector.SelectTargets(context.Background(), "crops/",
//			"cars in the counter direction of ours",
//			cropselector.Options{
//				Dims: types.ImageDims{Width: 1242, Height: 375},
//			})
//
//		fmt.Println("selected track IDs:", ids)
//	}
//
// The package consists of five main components:
//
// 1. Enumerator (pkg/crops): lists and orders crop files, joins metadata
// 2. Prompt builder (pkg/prompt): query classification and prompt templates
// 3. Processing (pkg/processing): image loading and base64 preparation
// 4. Vision clients (pkg/ollama, pkg/llamacpp): one blocking request per crop
// 5. Interpreter (pkg/parse): layered parsing of the model reply
//
// Processing is strictly sequential: one request per crop, in file order. A
// failed request, unreadable image, or unparsable reply only skips that crop;
// the batch always completes and returns whatever was collected.
package cropselector

import (
	"context"
	"fmt"
	"log"

	"github.com/menta2k/crop-selector/internal/config"
	"github.com/menta2k/crop-selector/pkg/client"
	"github.com/menta2k/crop-selector/pkg/crops"
	"github.com/menta2k/crop-selector/pkg/llamacpp"
	"github.com/menta2k/crop-selector/pkg/ollama"
	"github.com/menta2k/crop-selector/pkg/parse"
	"github.com/menta2k/crop-selector/pkg/processing"
	"github.com/menta2k/crop-selector/pkg/prompt"
	"github.com/menta2k/crop-selector/pkg/types"
)

// Version of the crop selector library
const Version = "1.0.0"

// Selector drives the per-crop selection pipeline against one vision backend.
type Selector struct {
	client    client.VisionClient
	processor *processing.Processor
	cfg       *config.Config
}

// Options control one SelectTargets call.
type Options struct {
	// Quiet suppresses progress and debug logging.
	Quiet bool
	// Dims are the dimensions of the original frames; zero values fall back
	// to the configured scene dimensions.
	Dims types.ImageDims
	// Metadata is the optional collection of crop records from the tracker.
	Metadata []types.CropMetadata
	// OnProgress, when set, is called after each crop is processed.
	OnProgress func(done, total int, file string)
}

// New creates a Selector with the default configuration (Ollama backend on
// localhost).
func New() (*Selector, error) {
	return NewWithConfig(config.Default())
}

// NewWithConfig creates a Selector for the given configuration.
func NewWithConfig(cfg *config.Config) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var visionClient client.VisionClient
	switch cfg.Client.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.Client.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		c.SetTemperature(cfg.Client.Temperature)
		visionClient = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.Client.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		c.SetTemperature(cfg.Client.Temperature)
		visionClient = c
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Client.Backend)
	}

	return &Selector{
		client:    visionClient,
		processor: processing.NewProcessor(),
		cfg:       cfg,
	}, nil
}

// NewWithClient creates a Selector around an existing vision client.
func NewWithClient(c client.VisionClient, cfg *config.Config) *Selector {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Selector{
		client:    c,
		processor: processing.NewProcessor(),
		cfg:       cfg,
	}
}

// SelectTargets processes every crop in cropsDir against the query and
// returns the track IDs the model judged as matching, in file order. A track
// ID may appear more than once when several frames of the same track match.
//
// No condition aborts the batch: a missing directory yields an empty result,
// and failures on individual crops are logged and skipped.
func (s *Selector) SelectTargets(ctx context.Context, cropsDir, query string, opts Options) []int {
	files := crops.List(cropsDir)
	if len(files) == 0 {
		return nil
	}

	dims := opts.Dims
	if dims.Width == 0 || dims.Height == 0 {
		dims = types.ImageDims{Width: s.cfg.Scene.Width, Height: s.cfg.Scene.Height}
	}

	// Resolve the query variant once for the whole batch.
	q := prompt.Classify(query)

	var selected []int
	for i, file := range files {
		if !opts.Quiet {
			log.Printf("[INFO] (%d/%d) Processing %s", i+1, len(files), file.Basename())
		}

		if s.processFile(ctx, file, q, dims, opts) {
			selected = append(selected, file.TrackID)
			if !opts.Quiet {
				log.Printf("[RESULT] Target ID: %d selected", file.TrackID)
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(files), file.Basename())
		}
	}

	return selected
}

// processFile runs the full pipeline for one crop and returns the decision.
// Every failure path is a negative decision, never an error.
func (s *Selector) processFile(ctx context.Context, file crops.CropFile, q prompt.Query, dims types.ImageDims, opts Options) bool {
	meta := crops.FindMetadata(file, opts.Metadata)
	promptText := prompt.Build(q, meta, dims)

	imgB64, err := s.processor.EncodeCropFile(file.Path, s.cfg.Image.MinSize, s.cfg.Image.SendQuality)
	if err != nil {
		if !opts.Quiet {
			log.Printf("[ERROR] Failed to prepare %s: %v", file.Basename(), err)
		}
		return false
	}

	reply, err := s.client.Generate(ctx, s.cfg.Client.Model, promptText, imgB64)
	if err != nil {
		if !opts.Quiet {
			log.Printf("[ERROR] LLM request failed: %v", err)
		}
		return false
	}

	if !opts.Quiet {
		log.Printf("[DEBUG] LLM response: %s", reply)
	}

	return parse.Interpret(reply, q)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
