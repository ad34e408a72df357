// Package escpos encodes printer instructions into an ESC/POS byte stream.
package escpos

import (
	"bytes"
	"strings"

	"github.com/nixxel-company-limited/posprint/transcode"
)

// ESC/POS command constants
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// maxRasterLines is the largest line count yL yH can carry
const maxRasterLines = 0xFFFF

// Character size flags for GS !
const (
	sizeDoubleWidth  = 0x10
	sizeDoubleHeight = 0x01
)

// Alignment is the ESC a parameter
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// CutMode selects the GS V cut
type CutMode byte

const (
	CutFull    CutMode = 0
	CutPartial CutMode = 1
)

// Builder accumulates an ESC/POS command stream. Every method appends
// to the buffer and returns the builder so calls can be chained.
// No method fails; callers validate their inputs.
type Builder struct {
	buf  bytes.Buffer
	size byte
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Init sends ESC @ and resets the tracked character size
func (b *Builder) Init() *Builder {
	b.buf.Write([]byte{ESC, '@'})
	b.size = 0
	return b
}

// Text writes s encoded for the printer code page, without a line feed
func (b *Builder) Text(s string) *Builder {
	b.buf.Write(transcode.Encode(s))
	return b
}

// Textln writes s followed by a line feed
func (b *Builder) Textln(s string) *Builder {
	return b.Text(s).LineFeed()
}

// Align sets justification for the following lines
func (b *Builder) Align(a Alignment) *Builder {
	b.buf.Write([]byte{ESC, 'a', byte(a)})
	return b
}

// Bold toggles emphasized mode
func (b *Builder) Bold(on bool) *Builder {
	b.buf.Write([]byte{ESC, 'E', boolByte(on)})
	return b
}

// Underline toggles single-dot underline
func (b *Builder) Underline(on bool) *Builder {
	b.buf.Write([]byte{ESC, '-', boolByte(on)})
	return b
}

// DoubleWidth toggles double-width characters, keeping the current height
func (b *Builder) DoubleWidth(on bool) *Builder {
	return b.setSize(sizeDoubleWidth, on)
}

// DoubleHeight toggles double-height characters, keeping the current width
func (b *Builder) DoubleHeight(on bool) *Builder {
	return b.setSize(sizeDoubleHeight, on)
}

func (b *Builder) setSize(flag byte, on bool) *Builder {
	if on {
		b.size |= flag
	} else {
		b.size &^= flag
	}
	b.buf.Write([]byte{GS, '!', b.size})
	return b
}

// ClearFormatting turns off bold, underline and enlarged characters
func (b *Builder) ClearFormatting() *Builder {
	b.size = 0
	b.buf.Write([]byte{ESC, 'E', 0, ESC, '-', 0, GS, '!', 0})
	return b
}

// LineFeed prints the line buffer and advances one line
func (b *Builder) LineFeed() *Builder {
	b.buf.WriteByte(LF)
	return b
}

// Feed advances n lines
func (b *Builder) Feed(n int) *Builder {
	for i := 0; i < n; i++ {
		b.buf.WriteByte(LF)
	}
	return b
}

// Separator prints a line made of width copies of char
func (b *Builder) Separator(char rune, width int) *Builder {
	if width <= 0 {
		return b
	}
	return b.Textln(strings.Repeat(string(char), width))
}

// Cut sends GS V with the given mode
func (b *Builder) Cut(mode CutMode) *Builder {
	b.buf.Write([]byte{GS, 'V', byte(mode)})
	return b
}

// RasterImage emits GS v 0 in normal mode. width is in dots and must be a
// multiple of 8; bitmap holds width/8 bytes per row for height rows.
// Rows past the 16-bit line count of the header are dropped.
func (b *Builder) RasterImage(width, height int, bitmap []byte) *Builder {
	bytesPerRow := width / 8
	if height > maxRasterLines {
		height = maxRasterLines
	}
	if n := bytesPerRow * height; len(bitmap) > n {
		bitmap = bitmap[:n]
	}
	b.buf.Write([]byte{
		GS, 'v', '0', 0,
		byte(bytesPerRow), byte(bytesPerRow >> 8),
		byte(height), byte(height >> 8),
	})
	b.buf.Write(bitmap)
	return b
}

// Raw appends bytes unchanged
func (b *Builder) Raw(data []byte) *Builder {
	b.buf.Write(data)
	return b
}

// Serialize returns a copy of the accumulated stream
func (b *Builder) Serialize() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Bytes returns the accumulated stream without copying
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// Len returns the number of buffered bytes
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Reset discards the buffer
func (b *Builder) Reset() *Builder {
	b.buf.Reset()
	b.size = 0
	return b
}

func boolByte(on bool) byte {
	if on {
		return 1
	}
	return 0
}
