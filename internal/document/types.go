/**
 * Shared data model for document extraction and verification
 *
 * Types flow one-way through the pipeline:
 * image -> Region -> RecognizedSpan -> ExtractedRecord -> VerificationResult -> VerificationReport
 */

package document

import "sort"

// ScanQualityKey is the reserved pseudo-field carrying the discretized
// scan-quality indicator inside an ExtractedRecord. It is metadata, not a
// document field, and must be skipped when iterating fields for display or
// verification.
const ScanQualityKey = "scan-quality"

// DefaultSchema is the identity-document field set used when the caller
// supplies no schema of its own.
var DefaultSchema = []string{"Name", "Age", "Gender", "Address", "Email", "Phone"}

// ScanQuality is the discretized confidence bucket for one document.
type ScanQuality string

const (
	ScanQualityHigh   ScanQuality = "HIGH"
	ScanQualityMedium ScanQuality = "MEDIUM"
	ScanQualityLow    ScanQuality = "LOW"
)

// Bucket thresholds on mean recognition confidence.
const (
	HighQualityMinConfidence   = 0.80
	MediumQualityMinConfidence = 0.50
)

// QualityFromConfidence maps a mean recognition confidence to a bucket.
func QualityFromConfidence(confidence float64) ScanQuality {
	switch {
	case confidence >= HighQualityMinConfidence:
		return ScanQualityHigh
	case confidence >= MediumQualityMinConfidence:
		return ScanQualityMedium
	default:
		return ScanQualityLow
	}
}

// Region is a detected text-bearing bounding box in pixel coordinates with
// the origin in the upper-left corner of the image.
type Region struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"` // detection confidence, 0..1
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// SortRegionsReadingOrder orders regions top-to-bottom with a left-to-right
// tie-break. Regions whose vertical centers are within lineTolerance pixels
// belong to the same visual line and are ordered by X.
func SortRegionsReadingOrder(regions []Region, lineTolerance int) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		ay := a.Y + a.Height/2
		by := b.Y + b.Height/2
		diff := ay - by
		if diff < 0 {
			diff = -diff
		}
		if diff <= lineTolerance {
			return a.X < b.X
		}
		return ay < by
	})
}

// RecognizedSpan is a Region plus the text recognized inside it.
type RecognizedSpan struct {
	Region     Region  `json:"region"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // recognition confidence, 0..1
}

// SortSpansReadingOrder orders spans top-to-bottom with a left-to-right
// tie-break. Two spans whose vertical centers are within lineTolerance
// pixels belong to the same visual line and are ordered by X.
func SortSpansReadingOrder(spans []RecognizedSpan, lineTolerance int) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i].Region, spans[j].Region
		ay := a.Y + a.Height/2
		by := b.Y + b.Height/2
		diff := ay - by
		if diff < 0 {
			diff = -diff
		}
		if diff <= lineTolerance {
			return a.X < b.X
		}
		return ay < by
	})
}

// ExtractedRecord maps field names to extracted values. Every requested
// schema field is present as a key even when the value is empty. The
// reserved ScanQualityKey entry carries metadata, never document content.
type ExtractedRecord map[string]string

// NewExtractedRecord builds a record with every schema field initialized to
// the empty string.
func NewExtractedRecord(schema []string) ExtractedRecord {
	rec := make(ExtractedRecord, len(schema)+1)
	for _, field := range schema {
		rec[field] = ""
	}
	return rec
}

// Quality returns the scan-quality bucket stored in the record, defaulting
// to LOW when absent.
func (r ExtractedRecord) Quality() ScanQuality {
	switch ScanQuality(r[ScanQualityKey]) {
	case ScanQualityHigh:
		return ScanQualityHigh
	case ScanQualityMedium:
		return ScanQualityMedium
	default:
		return ScanQualityLow
	}
}

// SetQuality stores the scan-quality bucket under the reserved key.
func (r ExtractedRecord) SetQuality(q ScanQuality) {
	r[ScanQualityKey] = string(q)
}

// Fields returns the document field names in sorted order, excluding the
// reserved scan-quality key.
func (r ExtractedRecord) Fields() []string {
	fields := make([]string, 0, len(r))
	for name := range r {
		if name == ScanQualityKey {
			continue
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// VerificationStatus classifies a verified field.
type VerificationStatus string

const (
	StatusMatch        VerificationStatus = "MATCH"
	StatusPartialMatch VerificationStatus = "PARTIAL_MATCH"
	StatusMismatch     VerificationStatus = "MISMATCH"
)

// VerificationResult scores one user-corrected field against the original
// machine-extracted value.
type VerificationResult struct {
	Field     string             `json:"field"`
	Extracted string             `json:"extracted"`
	UserInput string             `json:"user_input"`
	Score     float64            `json:"score"`  // 0..100
	Status    VerificationStatus `json:"status"`
}

// VerificationReport aggregates per-field results for one record.
// Fields without a result are pending review, which is distinct from
// MISMATCH in any consuming UI.
type VerificationReport struct {
	Results        []VerificationResult `json:"results"`
	AggregateScore float64              `json:"aggregate_score"` // rounded mean, 0 with no results
}
