package document

import (
	"reflect"
	"testing"
)

func TestQualityFromConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       ScanQuality
	}{
		{0.95, ScanQualityHigh},
		{0.80, ScanQualityHigh}, // boundary is inclusive
		{0.79, ScanQualityMedium},
		{0.50, ScanQualityMedium},
		{0.49, ScanQualityLow},
		{0.0, ScanQualityLow},
	}

	for _, tt := range tests {
		if got := QualityFromConfidence(tt.confidence); got != tt.want {
			t.Errorf("QualityFromConfidence(%.2f) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestNewExtractedRecord(t *testing.T) {
	rec := NewExtractedRecord(DefaultSchema)

	for _, field := range DefaultSchema {
		value, ok := rec[field]
		if !ok {
			t.Errorf("field %q missing from new record", field)
		}
		if value != "" {
			t.Errorf("field %q = %q, want empty", field, value)
		}
	}
}

func TestRecordQualityRoundTrip(t *testing.T) {
	rec := NewExtractedRecord([]string{"Name"})

	// LOW until a quality has been stored.
	if got := rec.Quality(); got != ScanQualityLow {
		t.Errorf("default quality = %s, want LOW", got)
	}

	rec.SetQuality(ScanQualityHigh)
	if got := rec.Quality(); got != ScanQualityHigh {
		t.Errorf("quality = %s, want HIGH", got)
	}

	// Garbage under the reserved key degrades to LOW instead of leaking
	// an unknown bucket.
	rec[ScanQualityKey] = "EXCELLENT"
	if got := rec.Quality(); got != ScanQualityLow {
		t.Errorf("quality for unknown value = %s, want LOW", got)
	}
}

func TestFieldsExcludesReservedKey(t *testing.T) {
	rec := NewExtractedRecord([]string{"Phone", "Name", "Email"})
	rec.SetQuality(ScanQualityMedium)

	got := rec.Fields()
	want := []string{"Email", "Name", "Phone"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
}

func TestRegionIsEmpty(t *testing.T) {
	tests := []struct {
		region Region
		want   bool
	}{
		{Region{X: 0, Y: 0, Width: 10, Height: 10}, false},
		{Region{Width: 0, Height: 10}, true},
		{Region{Width: 10, Height: 0}, true},
		{Region{Width: -5, Height: 10}, true},
	}
	for _, tt := range tests {
		if got := tt.region.IsEmpty(); got != tt.want {
			t.Errorf("IsEmpty(%+v) = %v, want %v", tt.region, got, tt.want)
		}
	}
}

func TestSortRegionsReadingOrder(t *testing.T) {
	// Three regions: two on the same visual line (centers 5px apart,
	// within tolerance) and one clearly below. Same-line regions order by
	// X; lines order by vertical center.
	regions := []Region{
		{X: 300, Y: 105, Width: 50, Height: 20}, // line 1, right
		{X: 10, Y: 400, Width: 50, Height: 20},  // line 2
		{X: 20, Y: 100, Width: 50, Height: 20},  // line 1, left
	}

	SortRegionsReadingOrder(regions, 20)

	wantX := []int{20, 300, 10}
	for i, x := range wantX {
		if regions[i].X != x {
			t.Errorf("regions[%d].X = %d, want %d", i, regions[i].X, x)
		}
	}
}

func TestSortSpansReadingOrder(t *testing.T) {
	spans := []RecognizedSpan{
		{Region: Region{X: 10, Y: 200, Width: 40, Height: 20}, Text: "third"},
		{Region: Region{X: 120, Y: 10, Width: 40, Height: 20}, Text: "second"},
		{Region: Region{X: 10, Y: 12, Width: 40, Height: 20}, Text: "first"},
	}

	SortSpansReadingOrder(spans, 20)

	want := []string{"first", "second", "third"}
	for i, text := range want {
		if spans[i].Text != text {
			t.Errorf("spans[%d].Text = %q, want %q", i, spans[i].Text, text)
		}
	}
}
