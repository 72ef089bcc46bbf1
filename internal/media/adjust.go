package media

import (
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/disintegration/imaging"
)

// Factor adjustments blend the image with a degenerate version of itself:
// a factor of 1.0 returns the original, 0.0 the degenerate image, and
// values above 1.0 extrapolate away from it.

// Luma is the ITU-R 601-2 luminance of an sRGB pixel.
func Luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func blendChannel(degenerate, original uint8, factor float64) uint8 {
	d := float64(degenerate)
	return clamp8(d + (float64(original)-d)*factor)
}

// Brightness scales every channel towards black (factor < 1) or away from
// it (factor > 1).
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blendChannel(0, c.R, factor),
			G: blendChannel(0, c.G, factor),
			B: blendChannel(0, c.B, factor),
			A: c.A,
		}
	})
}

// Contrast moves every channel away from (factor > 1) or towards
// (factor < 1) the mean luminance of the image.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	mean := uint8(meanLuma(src) + 0.5)
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blendChannel(mean, c.R, factor),
			G: blendChannel(mean, c.G, factor),
			B: blendChannel(mean, c.B, factor),
			A: c.A,
		}
	})
}

// Saturation moves every pixel away from (factor > 1) or towards
// (factor < 1) its own grey value.
func Saturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		gray := Luma(c.R, c.G, c.B)
		return color.NRGBA{
			R: blendChannel(gray, c.R, factor),
			G: blendChannel(gray, c.G, factor),
			B: blendChannel(gray, c.B, factor),
			A: c.A,
		}
	})
}

var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Sharpness blends the image with a smoothed copy: factors above 1.0
// sharpen, below 1.0 blur.
func Sharpness(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	smooth := imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})

	out := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i+0] = blendChannel(smooth.Pix[i+0], src.Pix[i+0], factor)
		out.Pix[i+1] = blendChannel(smooth.Pix[i+1], src.Pix[i+1], factor)
		out.Pix[i+2] = blendChannel(smooth.Pix[i+2], src.Pix[i+2], factor)
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

// GammaLUT builds the lookup table round((i/255)^(1/gamma) * 255).
func GammaLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(math.Pow(float64(i)/255, 1/gamma) * 255)
	}
	return lut
}

// ApplyLUT maps each colour channel through its lookup table. Alpha is
// left untouched.
func ApplyLUT(img image.Image, r, g, b *[256]uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: r[c.R], G: g[c.G], B: b[c.B], A: c.A}
	})
}

// Gamma applies gamma correction to every colour channel.
func Gamma(img image.Image, gamma float64) *image.NRGBA {
	lut := GammaLUT(gamma)
	return ApplyLUT(img, &lut, &lut, &lut)
}

// channelHistograms counts the values of each colour channel.
func channelHistograms(img *image.NRGBA) (r, g, b [256]int) {
	bounds := img.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			r[row[i]]++
			g[row[i+1]]++
			b[row[i+2]]++
		}
	}
	return r, g, b
}

func stretchLUT(hist *[256]int) [256]uint8 {
	var lut [256]uint8
	lo, hi := 0, 255
	for lo < 256 && hist[lo] == 0 {
		lo++
	}
	for hi >= 0 && hist[hi] == 0 {
		hi--
	}
	for i := range lut {
		switch {
		case hi <= lo:
			lut[i] = uint8(i)
		case i <= lo:
			lut[i] = 0
		case i >= hi:
			lut[i] = 255
		default:
			lut[i] = clamp8(float64(i-lo) * 255 / float64(hi-lo))
		}
	}
	return lut
}

// AutoLevels stretches each colour channel so its darkest value maps to 0
// and its brightest to 255.
func AutoLevels(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	rh, gh, bh := channelHistograms(src)
	r, g, b := stretchLUT(&rh), stretchLUT(&gh), stretchLUT(&bh)
	return ApplyLUT(src, &r, &g, &b)
}

func equalizeLUT(hist *[256]int) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(i)
	}

	var nonzero []int
	for _, n := range hist {
		if n > 0 {
			nonzero = append(nonzero, n)
		}
	}
	if len(nonzero) <= 1 {
		return lut
	}

	total := 0
	for _, n := range nonzero {
		total += n
	}
	step := (total - nonzero[len(nonzero)-1]) / 255
	if step == 0 {
		return lut
	}

	n := step / 2
	for i := range lut {
		lut[i] = uint8(min(n/step, 255))
		n += hist[i]
	}
	return lut
}

// Equalize flattens the histogram of each colour channel.
func Equalize(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	rh, gh, bh := channelHistograms(src)
	r, g, b := equalizeLUT(&rh), equalizeLUT(&gh), equalizeLUT(&bh)
	return ApplyLUT(src, &r, &g, &b)
}

// MedianDenoise replaces each colour channel value with the median of its
// 3x3 neighbourhood. Edge pixels use the clamped neighbourhood.
func MedianDenoise(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewNRGBA(src.Rect)

	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*out.Stride + x*4
			for c := 0; c < 3; c++ {
				k := 0
				for dy := -1; dy <= 1; dy++ {
					yy := min(max(y+dy, 0), h-1)
					for dx := -1; dx <= 1; dx++ {
						xx := min(max(x+dx, 0), w-1)
						window[k] = src.Pix[yy*src.Stride+xx*4+c]
						k++
					}
				}
				s := window[:]
				slices.Sort(s)
				out.Pix[o+c] = s[4]
			}
			out.Pix[o+3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return out
}

// ChannelMeans returns the mean red, green and blue values.
func ChannelMeans(img *image.NRGBA) [3]float64 {
	var sums [3]float64
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return sums
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			sums[0] += float64(row[i])
			sums[1] += float64(row[i+1])
			sums[2] += float64(row[i+2])
		}
	}
	return [3]float64{sums[0] / n, sums[1] / n, sums[2] / n}
}

// WhiteBalanceFactors returns the per-channel gains that move each channel
// mean to the grey average of all three, clamped to [0.5, 2.0].
func WhiteBalanceFactors(means [3]float64) [3]float64 {
	gray := (means[0] + means[1] + means[2]) / 3
	var f [3]float64
	for i, m := range means {
		if m == 0 {
			f[i] = 1
			continue
		}
		f[i] = min(max(gray/m, 0.5), 2.0)
	}
	return f
}

// WhiteBalance scales each colour channel by its grey-world gain.
func WhiteBalance(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	f := WhiteBalanceFactors(ChannelMeans(src))
	var r, g, b [256]uint8
	for i := range 256 {
		r[i] = clamp8(float64(i) * f[0])
		g[i] = clamp8(float64(i) * f[1])
		b[i] = clamp8(float64(i) * f[2])
	}
	return ApplyLUT(src, &r, &g, &b)
}

func meanLuma(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum int
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			sum += int(Luma(row[i], row[i+1], row[i+2]))
		}
	}
	return float64(sum) / float64(n)
}
