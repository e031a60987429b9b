// Package parse turns the free-text reply of the vision model into a
// selection decision.
//
// The interpreter is an ordered chain of attempts: a structured
// {"match": bool} fragment wins outright, then a whole-word search for the
// token the query expects. Each step either returns a definite decision or
// falls through to the next; anything undecidable is a rejection.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/crop-selector/pkg/prompt"
)

// matchFragment is the structured verdict some models emit despite being
// asked for a bare token.
type matchFragment struct {
	Match *bool `json:"match"`
}

var matchKeyPattern = regexp.MustCompile(`(?i)"match"\s*:\s*(true|false)`)

// Interpret decides whether the model reply selects the crop for the given
// query. It never fails; an unparsable reply is a negative decision.
func Interpret(raw string, q prompt.Query) bool {
	if decision, ok := structuredMatch(raw); ok {
		return decision
	}

	norm := strings.ToUpper(strings.TrimSpace(raw))

	if q.Mode == prompt.Directional {
		if q.Expected == "" || hasWord(norm, string(prompt.TokenUnclear)) {
			return false
		}
		return hasWord(norm, string(q.Expected))
	}

	return hasWord(norm, string(prompt.TokenYes))
}

// structuredMatch tries to locate and parse a {"match": bool} fragment, even
// when it is embedded in surrounding prose or markdown fences.
func structuredMatch(raw string) (decision, ok bool) {
	cleaned := sanitizeModelJSON(raw)

	var frag matchFragment
	if err := json.Unmarshal([]byte(cleaned), &frag); err == nil && frag.Match != nil {
		return *frag.Match, true
	}

	// Fragment may sit inside JSON the model got otherwise wrong.
	if m := matchKeyPattern.FindStringSubmatch(raw); m != nil {
		return strings.EqualFold(m[1], "true"), true
	}

	return false, false
}

// hasWord reports whether token occurs as a whole word in text. Both are
// expected to be uppercase already.
func hasWord(text, token string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(token) + `\b`)
	return re.MatchString(text)
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model reply and keeps only the outermost {...}.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	return strings.TrimSpace(raw)
}
