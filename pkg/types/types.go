package types

import "path/filepath"

// BBox is a bounding box in pixel coordinates of the original frame.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the center point of the box in pixel coordinates.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// CropMetadata describes one extracted crop as reported by the tracking
// pipeline. BBox and Label are optional; a record without a bounding box
// still joins against its crop file but yields a position-free prompt.
type CropMetadata struct {
	CropPath string `json:"crop_path"`
	BBox     *BBox  `json:"bbox,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Basename returns the last path element of CropPath. Metadata records are
// matched to crop files by basename, so the two pipelines may disagree on
// the directory prefix.
func (m CropMetadata) Basename() string {
	return filepath.Base(m.CropPath)
}

// ImageDims holds the dimensions of the original (uncropped) frame in pixels.
type ImageDims struct {
	Width  int `json:"img_w"`
	Height int `json:"img_h"`
}
