package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// Prepare converts img to single-channel intensity and, if opts.Binarize is
// set, applies Otsu's global threshold so text is pure black on white.
func Prepare(img image.Image, opts Options) *image.Gray {
	gray := ToGray(img)
	if opts.Binarize {
		Binarize(gray, OtsuThreshold(gray))
	}
	return gray
}

// ToGray returns a zero-origin 8-bit grayscale copy of img.
func ToGray(img image.Image) *image.Gray {
	src := imaging.Grayscale(img)
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		dstRow := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dstRow {
			dstRow[x] = srcRow[x*4]
		}
	}
	return gray
}

// OtsuThreshold returns the intensity that maximizes between-class variance
// of the image histogram. Pixels <= threshold are foreground.
func OtsuThreshold(gray *image.Gray) uint8 {
	const bins = 256
	var histogram [bins]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for _, v := range row {
			histogram[v]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 127
	}

	var sumAll float64
	for i := range bins {
		sumAll += float64(i) * float64(histogram[i])
	}

	var maxVariance, sumB float64
	best, wB := 0, 0
	for t := range bins {
		wB += histogram[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(t) * float64(histogram[t])
		meanB := sumB / float64(wB)
		meanF := (sumAll - sumB) / float64(wF)

		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			best = t
		}
	}
	return uint8(best) //nolint:gosec // G115: best is a histogram index in [0,255]
}

// Binarize maps pixels <= threshold to 0 and the rest to 255, in place.
func Binarize(gray *image.Gray, threshold uint8) {
	for i, v := range gray.Pix {
		if v <= threshold {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}
}
