package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func decodeB64JPEG(t *testing.T, b64 string) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid jpeg: %v", err)
	}
	return img
}

func TestPrepareImageForModelUpscalesSmallImages(t *testing.T) {
	p := NewProcessor()

	// 100x50: the smaller side (height) must be brought up to 224 while
	// preserving the aspect ratio.
	b64, err := p.PrepareImageForModel(testImage(100, 50), "jpg", 224, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	out := decodeB64JPEG(t, b64)
	bounds := out.Bounds()
	if bounds.Dy() != 224 {
		t.Errorf("expected height 224, got %d", bounds.Dy())
	}
	if bounds.Dx() != 448 {
		t.Errorf("expected width 448, got %d", bounds.Dx())
	}
}

func TestPrepareImageForModelUpscalesNarrowImages(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(testImage(50, 100), "jpg", 224, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	out := decodeB64JPEG(t, b64)
	bounds := out.Bounds()
	if bounds.Dx() != 224 {
		t.Errorf("expected width 224, got %d", bounds.Dx())
	}
	if bounds.Dy() != 448 {
		t.Errorf("expected height 448, got %d", bounds.Dy())
	}
}

func TestPrepareImageForModelKeepsLargeImages(t *testing.T) {
	p := NewProcessor()

	b64, err := p.PrepareImageForModel(testImage(300, 250), "jpg", 224, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	out := decodeB64JPEG(t, b64)
	bounds := out.Bounds()
	if bounds.Dx() != 300 || bounds.Dy() != 250 {
		t.Errorf("expected 300x250 unchanged, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestEncodeCropFile(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "i1_f1.jpg")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, testImage(40, 40), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	b64, err := p.EncodeCropFile(path, 224, 85)
	if err != nil {
		t.Fatalf("EncodeCropFile failed: %v", err)
	}

	out := decodeB64JPEG(t, b64)
	bounds := out.Bounds()
	if bounds.Dx() != 224 || bounds.Dy() != 224 {
		t.Errorf("expected 224x224, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestEncodeCropFileMissing(t *testing.T) {
	p := NewProcessor()
	if _, err := p.EncodeCropFile(filepath.Join(t.TempDir(), "missing.jpg"), 224, 85); err == nil {
		t.Error("expected error for missing file")
	}
}
