package receipt

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/nixxel-company-limited/posprint/escpos"
	"github.com/nixxel-company-limited/posprint/imaging"
)

// Layout is the character grid of a paper class
type Layout struct {
	Paper imaging.PaperWidth
	// Width is the number of normal-size characters per line
	Width int
	// HashWidth is how much of a signature hash fits on the legal footer
	HashWidth int
}

var layouts = map[imaging.PaperWidth]Layout{
	imaging.Narrow: {Paper: imaging.Narrow, Width: 32, HashWidth: 30},
	imaging.Wide:   {Paper: imaging.Wide, Width: 48, HashWidth: 45},
}

// LayoutFor returns the layout of a paper class, Narrow when unknown
func LayoutFor(paper imaging.PaperWidth) Layout {
	if l, ok := layouts[paper]; ok {
		return l
	}
	return layouts[imaging.Narrow]
}

// Separator is a full-width dashed rule
func (l Layout) Separator() string {
	return strings.Repeat("-", l.Width)
}

// Columns joins left and right with padding so right ends at the margin.
// At least one space separates them even when the line overflows.
func Columns(width int, left, right string) string {
	pad := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// Wrap breaks text into lines of at most width runes, on spaces when possible
func Wrap(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if width <= 0 {
		return []string{text}
	}

	var (
		lines []string
		line  []rune
	)
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = line[:0]
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(line) == 0:
			line = append(line, w...)
		case len(line)+1+len(w) <= width:
			line = append(line, ' ')
			line = append(line, w...)
		default:
			lines = append(lines, string(line))
			line = append(line[:0:0], w...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}

// Money formats an amount with its currency prefix, e.g. "S/ 12.50"
func Money(currency string, amount decimal.Decimal) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if amount.IsNegative() {
		return "-" + currency + " " + amount.Neg().StringFixed(2)
	}
	return currency + " " + amount.StringFixed(2)
}

// Quantity prints whole quantities without decimals
func Quantity(q decimal.Decimal) string {
	if q.IsInteger() {
		return q.StringFixed(0)
	}
	return q.String()
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func formatTime(t time.Time) string {
	return t.Format("03:04 PM")
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// writer adds layout-aware helpers on top of a builder
type writer struct {
	b *escpos.Builder
	l Layout
}

func (w writer) line(s string) {
	w.b.Textln(s)
}

func (w writer) wrapped(prefix, text string) {
	for i, l := range Wrap(text, w.l.Width-utf8.RuneCountInString(prefix)) {
		if i == 0 {
			w.b.Textln(prefix + l)
			continue
		}
		w.b.Textln(strings.Repeat(" ", utf8.RuneCountInString(prefix)) + l)
	}
}

func (w writer) columns(left, right string) {
	w.b.Textln(Columns(w.l.Width, left, right))
}

func (w writer) separator() {
	w.b.Separator('-', w.l.Width)
}

func (w writer) heading(s string) {
	w.b.Bold(true).Textln(s).Bold(false)
}

// title prints s double width when it fits, bold otherwise
func (w writer) title(s string) {
	if utf8.RuneCountInString(s) <= w.l.Width/2 {
		w.b.DoubleWidth(true).Textln(s).ClearFormatting()
		return
	}
	w.b.Bold(true)
	for _, l := range Wrap(s, w.l.Width) {
		w.b.Textln(l)
	}
	w.b.ClearFormatting()
}

func (w writer) finish() {
	w.b.Feed(3).Cut(escpos.CutPartial)
}

// QRStyle selects how QR codes are emitted
type QRStyle struct {
	// Raster renders the symbol on the host for printers without a QR engine
	Raster     bool
	ModuleSize int
	// Level is L, M, Q or H; empty means M
	Level string
}

func (w writer) qr(payload string, style QRStyle) {
	size := style.ModuleSize
	if size == 0 {
		size = 6
	}
	level := escpos.ParseErrorCorrection(style.Level)
	if style.Raster {
		w.b.QRRaster(payload, size, level).LineFeed()
		return
	}
	w.b.QR(payload, size, level).LineFeed()
}
