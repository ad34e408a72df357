package imaging

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const threshold = 128

// Raster is a packed monochrome bitmap ready for GS v 0
type Raster struct {
	Width  int
	Height int
	Data   []byte
}

// AlignedWidth is the largest multiple of 8 not exceeding min(srcWidth, maxWidth)
func AlignedWidth(srcWidth, maxWidth int) int {
	w := srcWidth
	if maxWidth < w {
		w = maxWidth
	}
	if w < 0 {
		return 0
	}
	return w / 8 * 8
}

// AlignUp rounds n up to a multiple of 8
func AlignUp(n int) int {
	return (n + 7) / 8 * 8
}

// Rasterize scales img to fit maxWidth and maxHeight, keeping the aspect
// ratio and an aligned width, then dithers it and packs the rows.
// A maxHeight of zero leaves the height unbounded.
func Rasterize(img image.Image, maxWidth, maxHeight int) (Raster, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return Raster{}, errors.New("empty image")
	}

	width := AlignedWidth(srcW, maxWidth)
	if width == 0 {
		return Raster{}, errors.New("image narrower than one byte")
	}
	height := max(1, srcH*width/srcW)
	if maxHeight > 0 && height > maxHeight {
		// very tall sources keep one byte of width and lose their aspect ratio
		width = max(8, AlignedWidth(srcW*maxHeight/srcH, maxWidth))
		height = min(maxHeight, max(1, srcH*width/srcW))
	}

	// transparent areas print as paper
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	bits := Dither(Grayscale(dst), width, height)
	return Raster{Width: width, Height: height, Data: Pack(bits, width, height)}, nil
}

// Grayscale returns 0.299R + 0.587G + 0.114B for each pixel, row-major
func Grayscale(img image.Image) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out = append(out, 0.299*float64(c.R)+0.587*float64(c.G)+0.114*float64(c.B))
		}
	}
	return out
}

// Dither applies Floyd-Steinberg error diffusion to gray (modified in place)
// and reports which pixels print black.
func Dither(gray []float64, width, height int) []bool {
	black := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			old := gray[i]
			quant := 255.0
			if old < threshold {
				quant = 0
				black[i] = true
			}
			e := old - quant

			if x+1 < width {
				gray[i+1] += e * 7 / 16
			}
			if y+1 < height {
				if x > 0 {
					gray[i+width-1] += e * 3 / 16
				}
				gray[i+width] += e * 5 / 16
				if x+1 < width {
					gray[i+width+1] += e * 1 / 16
				}
			}
		}
	}
	return black
}

// Pack folds rows of pixels into width/8 bytes each, most significant bit
// first, bit set for black. width must be a multiple of 8.
func Pack(bits []bool, width, height int) []byte {
	bytesPerRow := width / 8
	out := make([]byte, bytesPerRow*height)
	for y := 0; y < height; y++ {
		for x := 0; x < bytesPerRow*8; x++ {
			if bits[y*width+x] {
				out[y*bytesPerRow+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return out
}
