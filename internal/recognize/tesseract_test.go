package recognize

import (
	"image"
	"reflect"
	"testing"

	"github.com/veridoc/docverify/internal/document"
)

func TestCropRegionPadding(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	region := document.Region{X: 50, Y: 50, Width: 100, Height: 40}

	// 10% of a 40px-high region pads 4px on every side.
	crop, ok := cropRegion(img, region, 0.10)
	if !ok {
		t.Fatal("cropRegion returned false for a valid region")
	}
	bounds := crop.Bounds()
	if bounds.Dx() != 108 || bounds.Dy() != 48 {
		t.Errorf("crop size = %dx%d, want 108x48", bounds.Dx(), bounds.Dy())
	}
}

func TestCropRegionClampsToImageBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	// Region hugging the top-left corner: padding cannot extend past the
	// image origin.
	region := document.Region{X: 0, Y: 0, Width: 50, Height: 20}
	crop, ok := cropRegion(img, region, 0.5)
	if !ok {
		t.Fatal("cropRegion returned false for a clamped region")
	}
	bounds := crop.Bounds()
	if bounds.Dx() != 60 || bounds.Dy() != 30 {
		t.Errorf("crop size = %dx%d, want 60x30", bounds.Dx(), bounds.Dy())
	}
}

func TestCropRegionDegenerate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	tests := []struct {
		name   string
		region document.Region
	}{
		{"zero size", document.Region{X: 10, Y: 10}},
		{"negative width", document.Region{X: 10, Y: 10, Width: -5, Height: 20}},
		{"fully outside bounds", document.Region{X: 500, Y: 500, Width: 50, Height: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := cropRegion(img, tt.region, 0.10); ok {
				t.Error("cropRegion returned true, want degraded false")
			}
		})
	}
}

func TestSplitLanguages(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"eng", []string{"eng"}},
		{"eng+deu", []string{"eng", "deu"}},
		{"eng+ deu +", []string{"eng", "deu"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitLanguages(tt.input)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitLanguages(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
