package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MinModelSize is the smallest dimension vision models handle reliably;
// crops below it are upscaled before encoding.
const MinModelSize = 224

// Processor handles image loading and preparation for the vision model.
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	low := strings.ToLower(path)
	if strings.HasSuffix(low, ".webp") || strings.Contains(low, ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err == nil {
			if img, _, err := image.Decode(f); err == nil {
				return img, nil
			}
		}
	} else {
		if _, err := f.Seek(0, 0); err == nil {
			if img, _, err := image.Decode(f); err == nil {
				return img, nil
			}
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// PrepareImageForModel converts an image to base64 for sending to vision
// models, upscaling it first if either dimension is below minSize. Aspect
// ratio is preserved; the smaller side is brought up to minSize.
func (p *Processor) PrepareImageForModel(img image.Image, format string, minSize, quality int) (string, error) {
	if minSize > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w < minSize || h < minSize {
			if w < h {
				img = imaging.Resize(img, minSize, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, minSize, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeCropFile loads a crop file and prepares it for the model in one
// step, picking the encode format from the file extension.
func (p *Processor) EncodeCropFile(path string, minSize, quality int) (string, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	format := "jpg"
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		format = "png"
	}

	return p.PrepareImageForModel(img, format, minSize, quality)
}
