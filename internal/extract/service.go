/**
 * Extraction Orchestrator
 *
 * Sequences detection -> recognition -> structured parsing and aggregates a
 * scan-quality indicator from per-region confidences. One uploaded image
 * yields one structured record. A document that yields no text is a
 * low-quality result, not an error; only undecodable input fails.
 */

package extract

import (
	"bytes"
	"context"
	"image"
	"strings"
	"sync"

	// Raster formats accepted for uploaded scans.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/veridoc/docverify/internal/detect"
	"github.com/veridoc/docverify/internal/document"
	pipeerrors "github.com/veridoc/docverify/internal/errors"
	"github.com/veridoc/docverify/internal/logging"
	"github.com/veridoc/docverify/internal/recognize"
)

// FieldParser maps recognized text onto a field schema. Satisfied by
// parse.Parser in production and by stubs in tests.
type FieldParser interface {
	Parse(ctx context.Context, text string, schema []string) (document.ExtractedRecord, error)
}

// ProgressFunc receives coarse progress updates while an extraction runs.
// Stage names are free-form; percent is 0-100.
type ProgressFunc func(stage string, percent int)

// Config holds orchestrator configuration.
type Config struct {
	// RecognizeConcurrency bounds parallel region recognition. Recognition
	// is a pure function of one region, so concurrent calls are safe.
	RecognizeConcurrency int
	// LineTolerancePx matches the detector's reading-order tolerance and
	// is reused when re-ordering recognized spans.
	LineTolerancePx int
}

// Service orchestrates the extraction pipeline.
type Service struct {
	detector   detect.Detector
	recognizer recognize.Recognizer
	parser     FieldParser
	config     Config
	logger     *logging.Logger
}

// NewService creates a new extraction service.
func NewService(detector detect.Detector, recognizer recognize.Recognizer, parser FieldParser, cfg Config) *Service {
	if cfg.RecognizeConcurrency <= 0 {
		cfg.RecognizeConcurrency = 4
	}
	if cfg.LineTolerancePx <= 0 {
		cfg.LineTolerancePx = 20
	}
	return &Service{
		detector:   detector,
		recognizer: recognizer,
		parser:     parser,
		config:     cfg,
		logger:     logging.NewLogger("extract"),
	}
}

// Extract runs the full pipeline on raw image bytes. An empty schema
// falls back to the default identity-document schema.
func (s *Service) Extract(ctx context.Context, imageBytes []byte, schema []string) (document.ExtractedRecord, error) {
	return s.ExtractWithProgress(ctx, imageBytes, schema, nil)
}

// ExtractWithProgress runs the full pipeline, reporting coarse progress
// through fn when non-nil. Either the whole record completes or the
// extraction is discarded; partial results are never returned.
func (s *Service) ExtractWithProgress(ctx context.Context, imageBytes []byte, schema []string, fn ProgressFunc) (document.ExtractedRecord, error) {
	if len(schema) == 0 {
		schema = document.DefaultSchema
	}
	report := func(stage string, percent int) {
		if fn != nil {
			fn(stage, percent)
		}
	}

	decoded, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		// The only unrecoverable input error in the pipeline.
		return nil, pipeerrors.NewDecodeFailedError("", err)
	}
	report("decoded", 10)
	s.logger.Debug("Image decoded", "format", format, "bounds", decoded.Bounds())

	// Detection and recognition both run on the binarized image.
	img := binarizeOtsu(decoded)

	regions, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	report("detected", 30)
	s.logger.Info("Region detection complete", "regions", len(regions))

	spans, err := s.recognizeRegions(ctx, img, regions)
	if err != nil {
		return nil, err
	}
	report("recognized", 60)

	text, meanConfidence := joinSpans(spans, s.config.LineTolerancePx)
	s.logger.Info("Recognition complete",
		"spans", len(spans), "meanConfidence", meanConfidence, "textLength", len(text))

	// Zero regions or empty text still goes through the parser so every
	// schema field comes back, empty.
	record, err := s.parser.Parse(ctx, text, schema)
	if err != nil {
		return nil, err
	}
	report("parsed", 90)

	quality := document.QualityFromConfidence(meanConfidence)
	record.SetQuality(quality)
	report("complete", 100)

	s.logger.Info("Extraction complete", "fields", len(schema), "quality", quality)
	return record, nil
}

// recognizeRegions runs the recognizer over all regions with bounded
// concurrency, preserving region order in the result. A context
// cancellation abandons the batch; degraded regions come back as empty
// spans rather than errors.
func (s *Service) recognizeRegions(ctx context.Context, img image.Image, regions []document.Region) ([]document.RecognizedSpan, error) {
	spans := make([]document.RecognizedSpan, len(regions))
	if len(regions) == 0 {
		return spans, nil
	}

	sem := make(chan struct{}, s.config.RecognizeConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, region := range regions {
		wg.Add(1)
		go func(i int, region document.Region) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			text, confidence, err := s.recognizer.Recognize(ctx, img, region)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			spans[i] = document.RecognizedSpan{
				Region:     region,
				Text:       text,
				Confidence: confidence,
			}
		}(i, region)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return spans, nil
}

// joinSpans concatenates recognized span texts in reading order with
// single-space separators and returns the mean recognition confidence
// across all spans.
func joinSpans(spans []document.RecognizedSpan, lineTolerance int) (string, float64) {
	if len(spans) == 0 {
		return "", 0
	}

	ordered := make([]document.RecognizedSpan, len(spans))
	copy(ordered, spans)
	document.SortSpansReadingOrder(ordered, lineTolerance)

	parts := make([]string, 0, len(ordered))
	var sum float64
	for _, span := range ordered {
		sum += span.Confidence
		if span.Text != "" {
			parts = append(parts, span.Text)
		}
	}
	return strings.Join(parts, " "), sum / float64(len(spans))
}
