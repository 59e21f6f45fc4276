/**
 * Image preprocessing ahead of detection and recognition
 */

package extract

import (
	"image"
	"image/color"
)

// binarizeOtsu converts the image to grayscale and applies Otsu's global
// threshold, separating ink from paper before OCR. Scanned identity
// documents vary widely in exposure, so the threshold is computed per
// image from the gray histogram.
func binarizeOtsu(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			gray.SetGray(x, y, c)
			hist[c.Y]++
		}
	}

	threshold := otsuThreshold(hist, bounds.Dx()*bounds.Dy())
	for i, p := range gray.Pix {
		if p > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}

// otsuThreshold picks the gray level maximizing between-class variance.
func otsuThreshold(hist [256]int, total int) uint8 {
	var sum float64
	for level, count := range hist {
		sum += float64(level * count)
	}

	var sumB, weightB float64
	var maxVariance float64
	var threshold uint8
	for level := 0; level < 256; level++ {
		weightB += float64(hist[level])
		if weightB == 0 {
			continue
		}
		weightF := float64(total) - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(level * hist[level])
		meanB := sumB / weightB
		meanF := (sum - sumB) / weightF
		variance := weightB * weightF * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(level)
		}
	}
	return threshold
}
