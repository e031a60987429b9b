package cropselector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/menta2k/crop-selector/pkg/types"
)

// scriptedClient replays canned replies in call order; a nil entry simulates
// a failed request.
type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (c *scriptedClient) Generate(_ context.Context, _, prompt, _ string) (string, error) {
	i := c.calls
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "NO", nil
}

func writeCrop(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{200, 64, 64, 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
}

func TestSelectTargets(t *testing.T) {
	dir := t.TempDir()
	// Processing order after sorting: i1_f1, i2_f1, i1_f2.
	for _, name := range []string{"i2_f1.jpg", "i1_f1.jpg", "i1_f2.jpg"} {
		writeCrop(t, dir, name)
	}

	client := &scriptedClient{replies: []string{"YES", "NO", "YES"}}
	selector := NewWithClient(client, nil)

	ids := selector.SelectTargets(context.Background(), dir, "red car", Options{Quiet: true})

	// Track 1 matched in two frames: duplicates are kept.
	if !reflect.DeepEqual(ids, []int{1, 1}) {
		t.Errorf("expected [1 1], got %v", ids)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 requests, got %d", client.calls)
	}
}

func TestSelectTargetsRequestFailureSkipsCrop(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"i1_f1.jpg", "i2_f1.jpg"} {
		writeCrop(t, dir, name)
	}

	client := &scriptedClient{
		replies: []string{"", "YES"},
		errs:    []error{fmt.Errorf("connection refused"), nil},
	}
	selector := NewWithClient(client, nil)

	ids := selector.SelectTargets(context.Background(), dir, "red car", Options{Quiet: true})

	// The failed crop is absent; the batch continues.
	if !reflect.DeepEqual(ids, []int{2}) {
		t.Errorf("expected [2], got %v", ids)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 requests, got %d", client.calls)
	}
}

func TestSelectTargetsMissingDir(t *testing.T) {
	client := &scriptedClient{}
	selector := NewWithClient(client, nil)

	ids := selector.SelectTargets(context.Background(),
		filepath.Join(t.TempDir(), "nope"), "red car", Options{Quiet: true})

	if len(ids) != 0 {
		t.Errorf("expected empty result, got %v", ids)
	}
	if client.calls != 0 {
		t.Errorf("expected no requests, got %d", client.calls)
	}
}

func TestSelectTargetsUnreadableImageSkipped(t *testing.T) {
	dir := t.TempDir()
	writeCrop(t, dir, "i1_f1.jpg")
	// Not a decodable image.
	if err := os.WriteFile(filepath.Join(dir, "i2_f1.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &scriptedClient{replies: []string{"YES"}}
	selector := NewWithClient(client, nil)

	ids := selector.SelectTargets(context.Background(), dir, "red car", Options{Quiet: true})

	if !reflect.DeepEqual(ids, []int{1}) {
		t.Errorf("expected [1], got %v", ids)
	}
	// The broken file never reaches the model.
	if client.calls != 1 {
		t.Errorf("expected 1 request, got %d", client.calls)
	}
}

func TestSelectTargetsMetadataInPrompt(t *testing.T) {
	dir := t.TempDir()
	writeCrop(t, dir, "i1_f1.jpg")

	client := &scriptedClient{replies: []string{"NO"}}
	selector := NewWithClient(client, nil)

	meta := []types.CropMetadata{
		{
			CropPath: "runs/exp1/crops/i1_f1.jpg",
			BBox:     &types.BBox{X1: 0, Y1: 0, X2: 200, Y2: 100},
			Label:    "car",
		},
	}
	selector.SelectTargets(context.Background(), dir, "red car", Options{
		Quiet:    true,
		Dims:     types.ImageDims{Width: 1000, Height: 400},
		Metadata: meta,
	})

	if len(client.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	// Center x = 100 of 1000 -> 10% -> left band.
	for _, want := range []string{"left side", "Object class: car."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSelectTargetsProgressCallback(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"i1_f1.jpg", "i2_f1.jpg"} {
		writeCrop(t, dir, name)
	}

	client := &scriptedClient{replies: []string{"NO", "NO"}}
	selector := NewWithClient(client, nil)

	var seen []int
	selector.SelectTargets(context.Background(), dir, "red car", Options{
		Quiet: true,
		OnProgress: func(done, total int, file string) {
			if total != 2 {
				t.Errorf("expected total 2, got %d", total)
			}
			seen = append(seen, done)
		},
	})

	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("expected progress [1 2], got %v", seen)
	}
}
