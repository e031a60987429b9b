// Package prompt classifies selection queries and renders the instruction
// text sent to the vision model alongside each crop.
//
// A query is resolved exactly once into one of two closed variants: a
// directional query about vehicle orientation (approaching vs. departing)
// or a general attribute/position query. The variant fixes the token the
// response interpreter later looks for.
package prompt

import (
	"fmt"
	"strings"

	"github.com/menta2k/crop-selector/pkg/types"
)

// Token is the constrained answer the model is instructed to produce.
type Token string

const (
	TokenYes     Token = "YES"
	TokenTowards Token = "TOWARDS"
	TokenAway    Token = "AWAY"
	TokenUnclear Token = "UNCLEAR"
)

// Mode discriminates the two query variants.
type Mode int

const (
	// General asks a strict yes/no about attributes or position.
	General Mode = iota
	// Directional asks which way the vehicle is facing.
	Directional
)

// Query is the classified selection criterion. Expected is TokenYes for
// general queries and TokenTowards/TokenAway for directional ones; an empty
// Expected on a directional query means no token could be resolved and no
// crop can be selected.
type Query struct {
	Text     string
	Mode     Mode
	Expected Token
}

// directionalPhrases maps known orientation phrasings to their expected
// answer. Counter/opposite-style phrases name oncoming traffic (front of the
// vehicle faces the camera), same-direction phrases name traffic moving with
// the camera (rear faces it). Checked in order, first hit wins.
var directionalPhrases = []struct {
	phrase string
	token  Token
}{
	{"counter-direction", TokenTowards},
	{"counter direction", TokenTowards},
	{"opposite-direction", TokenTowards},
	{"opposite direction", TokenTowards},
	{"oncoming", TokenTowards},
	{"coming towards", TokenTowards},
	{"approaching", TokenTowards},
	{"same-direction", TokenAway},
	{"same direction", TokenAway},
	{"moving away", TokenAway},
	{"driving away", TokenAway},
	{"departing", TokenAway},
	{"ahead of us", TokenAway},
}

// modeIndicators flag a query as directional even when no phrase from the
// table matches exactly.
var modeIndicators = []string{
	"direction", "facing", "toward", "away", "oncoming",
	"approach", "depart",
}

// Classify resolves the query text into its variant. Matching is
// case-insensitive substring search against the phrase table, then against
// the broader mode indicators with a heuristic token fallback.
func Classify(text string) Query {
	lower := strings.ToLower(text)

	for _, p := range directionalPhrases {
		if strings.Contains(lower, p.phrase) {
			return Query{Text: text, Mode: Directional, Expected: p.token}
		}
	}

	for _, ind := range modeIndicators {
		if strings.Contains(lower, ind) {
			return Query{Text: text, Mode: Directional, Expected: heuristicToken(lower)}
		}
	}

	return Query{Text: text, Mode: General, Expected: TokenYes}
}

// heuristicToken is the last-resort token resolution for queries flagged
// directional without an exact phrase match. An empty result means the query
// cannot select anything.
func heuristicToken(lower string) Token {
	switch {
	case strings.Contains(lower, "counter"),
		strings.Contains(lower, "opposit"),
		strings.Contains(lower, "toward"),
		strings.Contains(lower, "oncoming"),
		strings.Contains(lower, "approach"):
		return TokenTowards
	case strings.Contains(lower, "same"),
		strings.Contains(lower, "away"),
		strings.Contains(lower, "depart"),
		strings.Contains(lower, "leav"):
		return TokenAway
	}
	return ""
}

// Position is the spatial context of a crop inside the original frame.
type Position struct {
	CenterX float64
	CenterY float64
	RelX    float64
	RelY    float64
}

// Locate computes the crop's position from its bounding box and the frame
// dimensions.
func Locate(box types.BBox, dims types.ImageDims) Position {
	cx, cy := box.Center()
	p := Position{CenterX: cx, CenterY: cy}
	if dims.Width > 0 {
		p.RelX = cx / float64(dims.Width)
	}
	if dims.Height > 0 {
		p.RelY = cy / float64(dims.Height)
	}
	return p
}

// HorizontalBand partitions the relative horizontal position into three
// disjoint bands. The comparisons are strict: 0.35 and 0.65 are center.
func HorizontalBand(relX float64) string {
	if relX < 0.35 {
		return "left side"
	}
	if relX > 0.65 {
		return "right side"
	}
	return "center"
}

// describeCrop renders the spatial detail block for a crop with known
// metadata, or "" when no bounding box is available.
func describeCrop(meta *types.CropMetadata, dims types.ImageDims) string {
	if meta == nil || meta.BBox == nil {
		return ""
	}
	box := *meta.BBox
	pos := Locate(box, dims)

	var b strings.Builder
	fmt.Fprintf(&b, "This cropped object is located at the %s of the original image.\n",
		HorizontalBand(pos.RelX))
	fmt.Fprintf(&b, "Detailed position: Center at (%.1f, %.1f), relative position: %.1f%% from left, %.1f%% from top.\n",
		pos.CenterX, pos.CenterY, pos.RelX*100, pos.RelY*100)
	fmt.Fprintf(&b, "Bounding box: (x1: %.1f, y1: %.1f, x2: %.1f, y2: %.1f).\n",
		box.X1, box.Y1, box.X2, box.Y2)
	fmt.Fprintf(&b, "Image dimensions: %dx%d pixels.\n", dims.Width, dims.Height)
	if meta.Label != "" {
		fmt.Fprintf(&b, "Object class: %s.\n", meta.Label)
	}
	return b.String()
}

const divider = "========================================"

// Build renders the full instruction text for one crop.
func Build(q Query, meta *types.CropMetadata, dims types.ImageDims) string {
	if q.Mode == Directional {
		return buildDirectional(q, meta, dims)
	}
	return buildGeneral(q, meta, dims)
}

func buildGeneral(q Query, meta *types.CropMetadata, dims types.ImageDims) string {
	var b strings.Builder
	b.WriteString("You are analyzing a cropped object from a traffic scene.\n\n")
	b.WriteString("Image Information:\n")
	fmt.Fprintf(&b, "Original image size: %dx%d pixels\n", dims.Width, dims.Height)
	b.WriteString(describeCrop(meta, dims))
	b.WriteString("\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Task: %s\n", q.Text)
	b.WriteString(divider + "\n\n")
	b.WriteString("Based on the cropped image and its position information, determine if this object meets the requirement.\n")
	b.WriteString("IMPORTANT: Pay careful attention to:\n")
	b.WriteString("1. The object's position in the scene (left/center/right)\n")
	b.WriteString("2. The object's appearance, characteristics, and color\n")
	b.WriteString("3. Whether all conditions in the task are satisfied\n\n")
	b.WriteString("Judge only the stated attributes and position. Do not reason about the object's identity or about image blur.\n\n")
	b.WriteString("Answer ONLY 'YES' or 'NO' without any explanation.")
	return b.String()
}

func buildDirectional(q Query, meta *types.CropMetadata, dims types.ImageDims) string {
	var b strings.Builder
	b.WriteString("You are analyzing a cropped vehicle from a traffic scene recorded by a forward-facing camera.\n\n")
	b.WriteString("Image Information:\n")
	fmt.Fprintf(&b, "Original image size: %dx%d pixels\n", dims.Width, dims.Height)
	b.WriteString(describeCrop(meta, dims))
	b.WriteString("\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Task: %s\n", q.Text)
	b.WriteString(divider + "\n\n")
	b.WriteString("Determine which way this vehicle is facing relative to the camera.\n")
	b.WriteString("Answer with exactly one word:\n")
	b.WriteString("TOWARDS - the front of the vehicle faces the camera (oncoming traffic)\n")
	b.WriteString("AWAY - the rear of the vehicle faces the camera (traffic moving with us)\n")
	b.WriteString("UNCLEAR - the orientation cannot be determined\n\n")
	b.WriteString("Ignore image quality: blur, compression artifacts and low resolution must not influence your answer.")
	return b.String()
}
