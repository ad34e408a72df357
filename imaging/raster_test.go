package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAlignedWidth(t *testing.T) {
	testCases := []struct {
		src, max, want int
	}{
		{100, 384, 96},
		{384, 384, 384},
		{1000, 384, 384},
		{1000, 576, 576},
		{7, 384, 0},
		{8, 384, 8},
		{390, 385, 384},
	}
	for _, tc := range testCases {
		got := AlignedWidth(tc.src, tc.max)
		assert.Equal(t, tc.want, got, "src=%d max=%d", tc.src, tc.max)
		assert.Zero(t, got%8)
	}
}

func TestDitherWhiteAndBlack(t *testing.T) {
	w, h := 16, 4

	white := make([]float64, w*h)
	black := make([]float64, w*h)
	for i := range white {
		white[i] = 255
	}

	for _, b := range Pack(Dither(white, w, h), w, h) {
		assert.Equal(t, byte(0x00), b)
	}
	for _, b := range Pack(Dither(black, w, h), w, h) {
		assert.Equal(t, byte(0xFF), b)
	}
}

func TestDitherMidGrayIsMixed(t *testing.T) {
	w, h := 8, 8
	gray := make([]float64, w*h)
	for i := range gray {
		gray[i] = 127.5
	}
	bits := Dither(gray, w, h)

	blacks := 0
	for _, b := range bits {
		if b {
			blacks++
		}
	}
	assert.Greater(t, blacks, 16)
	assert.Less(t, blacks, 48)
}

func TestPackMSBFirst(t *testing.T) {
	bits := make([]bool, 16)
	bits[0] = true  // first byte, top bit
	bits[7] = true  // first byte, low bit
	bits[9] = true  // second byte, second bit
	out := Pack(bits, 16, 1)
	assert.Equal(t, []byte{0x81, 0x40}, out)
}

func TestRasterize(t *testing.T) {
	t.Run("WideImageScaledDown", func(t *testing.T) {
		r, err := Rasterize(uniform(1000, 500, color.Black), 384, 200)
		require.NoError(t, err)
		assert.Equal(t, 384, r.Width)
		assert.Equal(t, 192, r.Height)
		assert.Len(t, r.Data, 384/8*192)
		for _, b := range r.Data {
			assert.Equal(t, byte(0xFF), b)
		}
	})

	t.Run("SmallImageAligned", func(t *testing.T) {
		r, err := Rasterize(uniform(101, 50, color.White), 576, 280)
		require.NoError(t, err)
		assert.Equal(t, 96, r.Width)
		assert.Len(t, r.Data, 96/8*r.Height)
		for _, b := range r.Data {
			assert.Equal(t, byte(0x00), b)
		}
	})

	t.Run("TransparentIsWhite", func(t *testing.T) {
		r, err := Rasterize(uniform(64, 8, color.Transparent), 384, 200)
		require.NoError(t, err)
		for _, b := range r.Data {
			assert.Equal(t, byte(0x00), b)
		}
	})

	t.Run("TallImageFitsHeight", func(t *testing.T) {
		r, err := Rasterize(uniform(400, 1000, color.Black), 384, 200)
		require.NoError(t, err)
		assert.Equal(t, 80, r.Width)
		assert.Equal(t, 200, r.Height)
		assert.Len(t, r.Data, 80/8*200)
	})

	t.Run("VeryTallImageCapped", func(t *testing.T) {
		r, err := Rasterize(uniform(16, 70000, color.Black), 384, 200)
		require.NoError(t, err)
		assert.Equal(t, 8, r.Width)
		assert.Equal(t, 200, r.Height)
		assert.Len(t, r.Data, 200)
	})

	t.Run("TooNarrow", func(t *testing.T) {
		_, err := Rasterize(uniform(5, 5, color.Black), 384, 200)
		assert.Error(t, err)
	})
}

func TestParsePaperWidth(t *testing.T) {
	for in, want := range map[string]PaperWidth{
		"58": Narrow, "58mm": Narrow, "narrow": Narrow, "": Narrow,
		"80": Wide, "80mm": Wide, "WIDE": Wide,
	} {
		got, err := ParsePaperWidth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePaperWidth("110")
	assert.Error(t, err)

	assert.Equal(t, 384, Narrow.Spec().MaxWidth)
	assert.Equal(t, 576, Wide.Spec().MaxWidth)
	assert.Equal(t, 200, Narrow.Spec().MaxHeight)
	assert.Equal(t, 280, Wide.Spec().MaxHeight)
	assert.Equal(t, Narrow.Spec(), PaperWidth(0).Spec())
}
