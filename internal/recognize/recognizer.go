/**
 * Text recognition for detected regions
 *
 * Given the full document image and one region, returns the recognized
 * character sequence plus a normalized confidence. Degenerate regions
 * (zero-area, out of bounds) degrade to empty text with confidence 0
 * instead of failing the whole pipeline.
 */

package recognize

import (
	"context"
	"image"

	"github.com/veridoc/docverify/internal/document"
)

// Recognizer turns one region of an image into text.
type Recognizer interface {
	// Recognize crops the region internally and returns the recognized
	// text with a confidence in [0,1], monotonic with recognition
	// certainty.
	Recognize(ctx context.Context, img image.Image, region document.Region) (string, float64, error)
}

// Config holds recognizer tuning knobs.
type Config struct {
	// Languages is the Tesseract language list, e.g. "eng" or "eng+deu".
	Languages string
	// PadRatio expands the crop by this fraction of the region height on
	// each side. Tight crops clip ascenders and descenders on scanned
	// forms.
	PadRatio float64
}

// DefaultConfig returns the recognizer defaults.
func DefaultConfig() Config {
	return Config{
		Languages: "eng",
		PadRatio:  0.10,
	}
}

func (c Config) withDefaults() Config {
	if c.Languages == "" {
		c.Languages = "eng"
	}
	if c.PadRatio < 0 {
		c.PadRatio = 0
	}
	return c
}
