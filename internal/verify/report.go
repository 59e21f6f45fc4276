package verify

import (
	"math"
	"sort"

	"github.com/veridoc/docverify/internal/document"
)

// FieldPair carries the two values compared for one field: the original
// machine-extracted value and the user's correction.
type FieldPair struct {
	Original  string
	UserValue string
}

// Aggregate combines per-field results into an overall integrity report.
// With zero results the aggregate score is 0, never NaN, so callers can
// render "0%" before any verification has occurred. Fields without a
// result are pending review, not failures.
func Aggregate(results []document.VerificationResult) document.VerificationReport {
	report := document.VerificationReport{
		Results: append([]document.VerificationResult(nil), results...),
	}
	if len(results) == 0 {
		report.Results = []document.VerificationResult{}
		return report
	}

	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	report.AggregateScore = math.Round(sum / float64(len(results)))
	return report
}

// VerifyAll applies Verify per field and aggregates the results. The
// reserved scan-quality key is metadata and is skipped. Fields are
// processed in sorted order so reports are reproducible.
func (e *Engine) VerifyAll(pairs map[string]FieldPair) document.VerificationReport {
	fields := make([]string, 0, len(pairs))
	for name := range pairs {
		if name == document.ScanQualityKey {
			continue
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)

	results := make([]document.VerificationResult, 0, len(fields))
	for _, name := range fields {
		pair := pairs[name]
		results = append(results, e.Verify(name, pair.Original, pair.UserValue))
	}
	return Aggregate(results)
}
