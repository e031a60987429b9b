// Package crops enumerates tracked-object crop files and joins them with
// the metadata records emitted by the tracking pipeline.
//
// Crop files follow the naming convention "i<trackID>_f<frameID>.jpg" (or
// .png). Files that do not match the convention are still listed but carry
// the sentinel identifiers (-1, -1), which sorts them to the front.
package crops

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/menta2k/crop-selector/internal/utils"
	"github.com/menta2k/crop-selector/pkg/types"
)

// namePattern matches the leading "i<trackID>_f<frameID>" of a crop basename.
var namePattern = regexp.MustCompile(`^i(\d+)_f(\d+)`)

// CropFile is one discovered crop, immutable after enumeration.
type CropFile struct {
	Path    string
	TrackID int
	FrameID int
}

// Basename returns the file name component of the crop path.
func (c CropFile) Basename() string {
	return filepath.Base(c.Path)
}

// ParseName extracts (trackID, frameID) from a crop basename. Names that do
// not match the convention yield (-1, -1); this is not an error.
func ParseName(name string) (trackID, frameID int) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return -1, -1
	}
	trackID, _ = strconv.Atoi(m[1])
	frameID, _ = strconv.Atoi(m[2])
	return trackID, frameID
}

// List enumerates the crop files in dir as absolute paths, sorted ascending
// by (frameID, trackID). Only regular .jpg/.png files are included. A missing
// or empty directory yields an empty slice, never an error.
func List(dir string) []CropFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []CropFile
	for _, entry := range entries {
		if entry.IsDir() || !utils.IsCropImage(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if info, err := entry.Info(); err != nil || !info.Mode().IsRegular() {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		trackID, frameID := ParseName(entry.Name())
		files = append(files, CropFile{Path: path, TrackID: trackID, FrameID: frameID})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].FrameID != files[j].FrameID {
			return files[i].FrameID < files[j].FrameID
		}
		if files[i].TrackID != files[j].TrackID {
			return files[i].TrackID < files[j].TrackID
		}
		return files[i].Basename() < files[j].Basename()
	})

	return files
}

// FindMetadata returns the first metadata record whose crop path basename
// equals the file's basename, or nil when no record matches. The scan is
// linear; crop batches are tens to hundreds of files.
func FindMetadata(file CropFile, records []types.CropMetadata) *types.CropMetadata {
	name := file.Basename()
	for i := range records {
		if records[i].Basename() == name {
			return &records[i]
		}
	}
	return nil
}
