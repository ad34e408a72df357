package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderBasicCommands(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *Builder)
		want  []byte
	}{
		{"Init", func(b *Builder) { b.Init() }, []byte{ESC, '@'}},
		{"AlignCenter", func(b *Builder) { b.Align(AlignCenter) }, []byte{ESC, 'a', 1}},
		{"AlignRight", func(b *Builder) { b.Align(AlignRight) }, []byte{ESC, 'a', 2}},
		{"BoldOn", func(b *Builder) { b.Bold(true) }, []byte{ESC, 'E', 1}},
		{"BoldOff", func(b *Builder) { b.Bold(false) }, []byte{ESC, 'E', 0}},
		{"Underline", func(b *Builder) { b.Underline(true) }, []byte{ESC, '-', 1}},
		{"LineFeed", func(b *Builder) { b.LineFeed() }, []byte{LF}},
		{"Feed3", func(b *Builder) { b.Feed(3) }, []byte{LF, LF, LF}},
		{"FeedZero", func(b *Builder) { b.Feed(0) }, []byte{}},
		{"FullCut", func(b *Builder) { b.Cut(CutFull) }, []byte{GS, 'V', 0}},
		{"PartialCut", func(b *Builder) { b.Cut(CutPartial) }, []byte{GS, 'V', 1}},
		{"Text", func(b *Builder) { b.Textln("Año") }, []byte{'A', 'n', 'o', LF}},
		{"Separator", func(b *Builder) { b.Separator('-', 4) }, []byte("----\n")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			tc.build(b)
			assert.Equal(t, tc.want, b.Serialize())
		})
	}
}

func TestBuilderSizeFlagsCombine(t *testing.T) {
	b := NewBuilder().DoubleWidth(true).DoubleHeight(true).DoubleWidth(false).DoubleHeight(false)
	assert.Equal(t, []byte{
		GS, '!', 0x10,
		GS, '!', 0x11,
		GS, '!', 0x01,
		GS, '!', 0x00,
	}, b.Serialize())
}

func TestBuilderChainingOrder(t *testing.T) {
	out := NewBuilder().Init().Align(AlignCenter).Bold(true).Textln("HI").Bold(false).Cut(CutFull).Serialize()
	assert.Equal(t, []byte{
		ESC, '@',
		ESC, 'a', 1,
		ESC, 'E', 1,
		'H', 'I', LF,
		ESC, 'E', 0,
		GS, 'V', 0,
	}, out)
}

func TestRasterImageHeader(t *testing.T) {
	bitmap := make([]byte, 48*300)
	out := NewBuilder().RasterImage(384, 300, bitmap).Serialize()

	assert.Equal(t, []byte{GS, 'v', '0', 0, 48, 0, 0x2C, 0x01}, out[:8])
	assert.Len(t, out, 8+len(bitmap))
}

func TestRasterImageLineCountMatchesData(t *testing.T) {
	bitmap := make([]byte, 2*70000)
	out := NewBuilder().RasterImage(16, 70000, bitmap).Serialize()

	lines := int(out[6]) | int(out[7])<<8
	assert.Equal(t, maxRasterLines, lines)
	assert.Len(t, out, 8+2*lines)
}

func TestSerializeIsCopy(t *testing.T) {
	b := NewBuilder().Text("a")
	out := b.Serialize()
	b.Text("b")
	assert.Equal(t, []byte("a"), out)
	assert.Equal(t, 2, b.Len())

	b.Reset()
	assert.Zero(t, b.Len())
}

func TestClearFormattingResetsSize(t *testing.T) {
	b := NewBuilder().DoubleWidth(true).ClearFormatting()
	b.Reset()
	b.DoubleHeight(true)
	assert.Equal(t, []byte{GS, '!', 0x01}, b.Serialize())
}
