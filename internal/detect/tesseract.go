package detect

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/veridoc/docverify/internal/document"
	"github.com/veridoc/docverify/internal/logging"
)

// TesseractDetector finds text line regions using the Tesseract page
// iterator. Each detected line carries a confidence in [0,1].
type TesseractDetector struct {
	config        Config
	clientFactory func() *gosseract.Client
	logger        *logging.Logger
}

// NewTesseractDetector constructs a Tesseract-backed detector.
func NewTesseractDetector(cfg Config) *TesseractDetector {
	return &TesseractDetector{
		config:        cfg.withDefaults(),
		clientFactory: gosseract.NewClient,
		logger:        logging.NewLogger("detect"),
	}
}

// Detect returns text line regions in reading order. A blank image or a
// recognition hiccup degrades to an empty slice rather than failing the
// pipeline.
func (d *TesseractDetector) Detect(ctx context.Context, img image.Image) ([]document.Region, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		d.logger.Warn("Failed to encode image for detection", "error", err)
		return []document.Region{}, nil
	}

	client := d.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		d.logger.Warn("Tesseract rejected image", "error", err)
		return []document.Region{}, nil
	}
	if langs := splitLanguages(d.config.Languages); len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			d.logger.Warn("Failed to set languages", "languages", d.config.Languages, "error", err)
		}
	}

	// Run recognition once so the page iterator has line segmentation.
	if _, err := client.Text(); err != nil {
		d.logger.Warn("Tesseract recognition failed during detection", "error", err)
		return []document.Region{}, nil
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return []document.Region{}, nil
	}

	regions := make([]document.Region, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		if conf < d.config.MinConfidence {
			continue
		}
		regions = append(regions, document.Region{
			X:          b.Box.Min.X,
			Y:          b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
			Confidence: conf,
		})
	}

	document.SortRegionsReadingOrder(regions, d.config.LineTolerancePx)

	d.logger.Debug("Detection complete", "candidates", len(boxes), "regions", len(regions))
	return regions, nil
}

func splitLanguages(langs string) []string {
	if langs == "" {
		return nil
	}
	parts := strings.Split(langs, "+")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
