// Package transcode maps text onto what a thermal printer's fixed code page can render.
package transcode

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Table lists every rune replaced by Transcode and its ASCII equivalent.
// The substitution is one rune for one rune.
var Table = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u',
	'Á': 'A', 'É': 'E', 'Í': 'I', 'Ó': 'O', 'Ú': 'U',
	'ñ': 'n', 'Ñ': 'N',
	'ü': 'u', 'Ü': 'U',
	'¿': '?', '¡': '!',
}

// Transcode replaces accented vowels, ñ/Ñ, ü/Ü and inverted punctuation with ASCII.
// All other runes pass through unchanged.
func Transcode(text string) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := Table[r]; ok {
			return repl
		}
		return r
	}, text)
}

// Encode transcodes text and encodes it to CP437 bytes.
// Runes without a CP437 mapping become '?'.
func Encode(text string) []byte {
	text = Transcode(text)
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.CodePage437.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}
