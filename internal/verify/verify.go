/**
 * Verification Engine
 *
 * Scores a human correction against the machine's original reading with a
 * normalized edit-distance ratio. Comparison is case- and
 * whitespace-insensitive since OCR artifacts often differ only in casing
 * or trailing spaces. Pure functions throughout; no side effects.
 */

package verify

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/veridoc/docverify/internal/document"
)

// Thresholds classifies similarity scores. The defaults are overridable
// configuration, not scattered constants.
type Thresholds struct {
	// Match is the minimum score classified MATCH.
	Match float64
	// Partial is the minimum score classified PARTIAL_MATCH; anything
	// below is MISMATCH.
	Partial float64
}

// DefaultThresholds returns the standard 90/60 classification bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{Match: 90, Partial: 60}
}

// Engine verifies corrected field values against originals.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a verification engine. Zero-valued thresholds fall
// back to the defaults.
func NewEngine(t Thresholds) *Engine {
	if t.Match <= 0 && t.Partial <= 0 {
		t = DefaultThresholds()
	}
	return &Engine{thresholds: t}
}

// Verify scores userValue against the original extracted value for one
// field.
func (e *Engine) Verify(field, original, userValue string) document.VerificationResult {
	a := normalize(original)
	b := normalize(userValue)

	score := Similarity(a, b)
	status := e.classify(score)

	// Nothing was extracted and the user supplied a value: there is
	// nothing to match against, so the field needs manual review
	// regardless of the score formula.
	if a == "" && b != "" {
		status = document.StatusMismatch
	}

	return document.VerificationResult{
		Field:     field,
		Extracted: original,
		UserInput: userValue,
		Score:     score,
		Status:    status,
	}
}

// Similarity computes the normalized edit-distance ratio between two
// already-normalized strings on a 0-100 scale. Both empty is a trivial
// perfect match; exactly one empty scores 0.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	distance := levenshtein.ComputeDistance(a, b)
	score := 100 * (1 - float64(distance)/float64(maxLen))
	return math.Round(score*100) / 100
}

func (e *Engine) classify(score float64) document.VerificationStatus {
	switch {
	case score >= e.thresholds.Match:
		return document.StatusMatch
	case score >= e.thresholds.Partial:
		return document.StatusPartialMatch
	default:
		return document.StatusMismatch
	}
}

// normalize case-folds and trims a value before comparison.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
