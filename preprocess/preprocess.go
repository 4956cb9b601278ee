package preprocess

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Variant is one derived grayscale rendition of the input image. Variants are
// owned by a single solve invocation and never shared across tasks.
type Variant struct {
	Name  string
	Image *image.Gray
}

// Variants derives the ordered preprocessing renditions used by the OCR
// cascade. Each transform is pure and deterministic; a transform that fails
// is omitted rather than surfaced, so callers may receive fewer variants but
// never an error.
func Variants(src image.Image) []Variant {
	gray := Grayscale(src)

	variants := make([]Variant, 0, 3)
	for _, stage := range []struct {
		name string
		fn   func(*image.Gray) *image.Gray
	}{
		{"blur-threshold", blurThreshold},
		{"open-threshold", openThreshold},
		{"erode-dilate", erodeDilate},
	} {
		if img := safely(stage.fn, gray); img != nil {
			variants = append(variants, Variant{Name: stage.name, Image: img})
		}
	}
	return variants
}

func safely(fn func(*image.Gray) *image.Gray, gray *image.Gray) (out *image.Gray) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return fn(gray)
}

// Grayscale converts any raster image to 8-bit grayscale.
func Grayscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray
}

func blurThreshold(gray *image.Gray) *image.Gray {
	blurred := Grayscale(imaging.Blur(gray, 1.0))
	return otsu(blurred)
}

func openThreshold(gray *image.Gray) *image.Gray {
	opened := dilate(erode(gray))
	return otsu(opened)
}

func erodeDilate(gray *image.Gray) *image.Gray {
	return dilate(erode(gray))
}

// otsu binarizes a grayscale image at the threshold maximizing between-class
// variance of the intensity histogram.
func otsu(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return gray
	}

	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumBack, weightBack float64
	var maxVariance float64
	threshold := 0
	for i := 0; i < 256; i++ {
		weightBack += float64(hist[i])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i) * float64(hist[i])

		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > maxVariance {
			maxVariance = variance
			threshold = i
		}
	}

	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if int(gray.GrayAt(x, y).Y) > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// erode and dilate apply min/max filters over a 3x3 square kernel.
func erode(gray *image.Gray) *image.Gray {
	return morph(gray, func(a, b uint8) bool { return a < b })
}

func dilate(gray *image.Gray) *image.Gray {
	return morph(gray, func(a, b uint8) bool { return a > b })
}

func morph(gray *image.Gray, better func(a, b uint8) bool) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			best := gray.GrayAt(x, y).Y
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					if v := gray.GrayAt(nx, ny).Y; better(v, best) {
						best = v
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: best})
		}
	}
	return out
}
