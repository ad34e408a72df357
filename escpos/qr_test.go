package escpos

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRNative(t *testing.T) {
	payload := "20123456789|01|F001|123|18.00|118.00|2024-01-15|6|20987654321"
	out := NewBuilder().QR(payload, 6, ECMedium).Serialize()

	expected := []byte{
		GS, '(', 'k', 4, 0, 0x31, 0x41, 0x32, 0x00,
		GS, '(', 'k', 3, 0, 0x31, 0x43, 6,
		GS, '(', 'k', 3, 0, 0x31, 0x45, 49,
	}
	n := len(payload) + 3
	expected = append(expected, GS, '(', 'k', byte(n), byte(n>>8), 0x31, 0x50, 0x30)
	expected = append(expected, payload...)
	expected = append(expected, GS, '(', 'k', 3, 0, 0x31, 0x51, 0x30)

	assert.Equal(t, expected, out)
}

func TestQRModuleSizeClamped(t *testing.T) {
	low := NewBuilder().QR("x", 0, ECLow).Serialize()
	high := NewBuilder().QR("x", 20, ECHigh).Serialize()

	assert.Equal(t, byte(1), low[16])
	assert.Equal(t, byte(48), low[24])
	assert.Equal(t, byte(8), high[16])
	assert.Equal(t, byte(51), high[24])
}

func TestQRLengthLittleEndian(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 300)
	out := NewBuilder().QR(string(payload), 4, ECQuartile).Serialize()
	// 300 + 3 = 0x012F
	assert.Equal(t, []byte{GS, '(', 'k', 0x2F, 0x01, 0x31, 0x50, 0x30}, out[25:33])
}

func TestQRRaster(t *testing.T) {
	out := NewBuilder().QRRaster("hello", 3, ECMedium).Serialize()
	require.Greater(t, len(out), 8)
	assert.Equal(t, []byte{GS, 'v', '0', 0}, out[:4])

	bytesPerRow := int(out[4]) | int(out[5])<<8
	height := int(out[6]) | int(out[7])<<8
	assert.Equal(t, bytesPerRow*height, len(out)-8)
	assert.Zero(t, height%3)
	assert.GreaterOrEqual(t, bytesPerRow*8, height)
}

func TestParseErrorCorrection(t *testing.T) {
	assert.Equal(t, ECLow, ParseErrorCorrection("L"))
	assert.Equal(t, ECQuartile, ParseErrorCorrection("q"))
	assert.Equal(t, ECHigh, ParseErrorCorrection("H"))
	assert.Equal(t, ECMedium, ParseErrorCorrection(""))
}
