/**
 * Region detection for scanned documents
 *
 * Locates text-bearing regions in a decoded image and returns them in
 * reading order. Detection is a pure function of pixel data; blank or
 * unreadable images yield an empty sequence, never an error.
 */

package detect

import (
	"context"
	"image"

	"github.com/veridoc/docverify/internal/document"
)

// Detector locates text-bearing regions in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]document.Region, error)
}

// Config holds detector tuning knobs.
type Config struct {
	// Languages is the Tesseract language list, e.g. "eng" or "eng+deu".
	Languages string
	// MinConfidence drops regions below this detection confidence. The
	// default favors recall over precision: faint text on forms is worth
	// keeping for the recognizer to attempt.
	MinConfidence float64
	// LineTolerancePx is the vertical proximity within which two regions
	// count as the same visual line for reading-order purposes.
	LineTolerancePx int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Languages:       "eng",
		MinConfidence:   0.30,
		LineTolerancePx: 20,
	}
}

func (c Config) withDefaults() Config {
	if c.Languages == "" {
		c.Languages = "eng"
	}
	if c.LineTolerancePx <= 0 {
		c.LineTolerancePx = 20
	}
	return c
}
