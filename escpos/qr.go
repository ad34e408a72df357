package escpos

import (
	"github.com/skip2/go-qrcode"

	"github.com/nixxel-company-limited/posprint/imaging"
)

// ErrorCorrection is the QR error-correction level
type ErrorCorrection byte

const (
	ECLow ErrorCorrection = iota
	ECMedium
	ECQuartile
	ECHigh
)

// ParseErrorCorrection accepts L, M, Q or H; anything else is M
func ParseErrorCorrection(s string) ErrorCorrection {
	switch s {
	case "L", "l":
		return ECLow
	case "Q", "q":
		return ECQuartile
	case "H", "h":
		return ECHigh
	default:
		return ECMedium
	}
}

const (
	minModuleSize = 1
	maxModuleSize = 8
	// pL/pH count the data plus cn, fn and m
	maxQRData = 0xFFFF - 3
)

func clampModule(size int) int {
	if size < minModuleSize {
		return minModuleSize
	}
	if size > maxModuleSize {
		return maxModuleSize
	}
	return size
}

// QR stores payload in the printer symbol buffer and prints it using
// GS ( k: select model 2, module size, error correction, store, print.
func (b *Builder) QR(payload string, moduleSize int, ec ErrorCorrection) *Builder {
	data := []byte(payload)
	if len(data) > maxQRData {
		data = data[:maxQRData]
	}
	size := clampModule(moduleSize)

	// fn 65: model 2
	b.buf.Write([]byte{GS, '(', 'k', 4, 0, 0x31, 0x41, 0x32, 0x00})
	// fn 67: module size
	b.buf.Write([]byte{GS, '(', 'k', 3, 0, 0x31, 0x43, byte(size)})
	// fn 69: error correction, 48 + level
	b.buf.Write([]byte{GS, '(', 'k', 3, 0, 0x31, 0x45, 48 + byte(ec)})
	// fn 80: store
	n := len(data) + 3
	b.buf.Write([]byte{GS, '(', 'k', byte(n), byte(n >> 8), 0x31, 0x50, 0x30})
	b.buf.Write(data)
	// fn 81: print
	b.buf.Write([]byte{GS, '(', 'k', 3, 0, 0x31, 0x51, 0x30})
	return b
}

func (ec ErrorCorrection) qrLevel() qrcode.RecoveryLevel {
	switch ec {
	case ECLow:
		return qrcode.Low
	case ECQuartile:
		return qrcode.High
	case ECHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// QRRaster renders the symbol locally and sends it as a raster image, for
// printers without a native QR engine. Each module becomes moduleSize dots.
// If the payload cannot be encoded nothing is appended.
func (b *Builder) QRRaster(payload string, moduleSize int, ec ErrorCorrection) *Builder {
	q, err := qrcode.New(payload, ec.qrLevel())
	if err != nil {
		return b
	}
	bitmap := q.Bitmap()
	scale := clampModule(moduleSize)
	modules := len(bitmap)
	width := imaging.AlignUp(modules * scale)
	height := modules * scale

	bits := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := bitmap[y/scale]
		for x := 0; x < modules*scale; x++ {
			bits[y*width+x] = row[x/scale]
		}
	}
	return b.RasterImage(width, height, imaging.Pack(bits, width, height))
}
