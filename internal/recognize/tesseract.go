package recognize

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/veridoc/docverify/internal/document"
	"github.com/veridoc/docverify/internal/logging"
)

// TesseractRecognizer recognizes text inside a single region using a fresh
// gosseract client per call, so concurrent recognition across regions
// shares no state.
type TesseractRecognizer struct {
	config        Config
	clientFactory func() *gosseract.Client
	logger        *logging.Logger
}

// NewTesseractRecognizer constructs a Tesseract-backed recognizer.
func NewTesseractRecognizer(cfg Config) *TesseractRecognizer {
	return &TesseractRecognizer{
		config:        cfg.withDefaults(),
		clientFactory: gosseract.NewClient,
		logger:        logging.NewLogger("recognize"),
	}
}

// Recognize crops the region with padding, clamps it to the image bounds
// and runs Tesseract on the crop. Confidence is the mean word confidence
// normalized to [0,1].
func (r *TesseractRecognizer) Recognize(ctx context.Context, img image.Image, region document.Region) (string, float64, error) {
	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
	}

	crop, ok := cropRegion(img, region, r.config.PadRatio)
	if !ok {
		return "", 0, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		r.logger.Warn("Failed to encode crop", "error", err)
		return "", 0, nil
	}

	client := r.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		r.logger.Warn("Tesseract rejected crop", "error", err)
		return "", 0, nil
	}
	if langs := splitLanguages(r.config.Languages); len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			r.logger.Warn("Failed to set languages", "languages", r.config.Languages, "error", err)
		}
	}

	text, err := client.Text()
	if err != nil {
		r.logger.Warn("Tesseract recognition failed", "error", err)
		return "", 0, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, nil
	}

	return text, meanWordConfidence(client), nil
}

// cropRegion extracts the padded region from the image. Returns false when
// the region is degenerate or lies fully outside the image bounds.
func cropRegion(img image.Image, region document.Region, padRatio float64) (image.Image, bool) {
	if region.IsEmpty() {
		return nil, false
	}

	pad := int(float64(region.Height) * padRatio)
	rect := image.Rect(
		region.X-pad,
		region.Y-pad,
		region.X+region.Width+pad,
		region.Y+region.Height+pad,
	).Intersect(img.Bounds())

	if rect.Empty() {
		return nil, false
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)
	return crop, true
}

// meanWordConfidence averages Tesseract word confidences, normalized to
// [0,1]. No words means no signal, which scores 0.
func meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
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
