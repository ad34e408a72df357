package receipt

import (
	"time"

	"github.com/nixxel-company-limited/posprint/escpos"
)

// TestPage describes the printer a test page is sent to
type TestPage struct {
	Transport string
	Address   string
	PrintedAt time.Time
}

// FormatTestPage renders a page that exercises alignment, emphasis,
// underline and the accent substitutions.
func FormatTestPage(b *escpos.Builder, l Layout, info TestPage) {
	w := writer{b: b, l: l}

	b.Init().Align(escpos.AlignCenter).Bold(true)
	w.line("PRUEBA DE IMPRESORA")
	b.ClearFormatting()
	w.separator()
	b.LineFeed().Align(escpos.AlignLeft)
	w.line("Texto en español: áéíóú")
	w.line("Caracteres: ñÑ ¿? ¡!")
	b.Bold(true)
	w.line("Texto en negrita")
	b.ClearFormatting().Underline(true)
	w.line("Texto subrayado")
	b.ClearFormatting().DoubleWidth(true)
	w.line("Doble ancho")
	b.ClearFormatting().DoubleHeight(true)
	w.line("Doble alto")
	b.ClearFormatting().LineFeed()
	w.columns("Izquierda", "Derecha")

	b.LineFeed().Align(escpos.AlignCenter)
	at := orNow(info.PrintedAt)
	w.line("Fecha: " + formatDate(at) + " " + formatTime(at))
	w.line("Ancho: " + l.Paper.String())
	if info.Transport != "" {
		w.line("Conexion: " + info.Transport)
	}
	if info.Address != "" {
		w.wrapped("", info.Address)
	}
	b.LineFeed()
	w.line("Impresora configurada")
	w.line("correctamente!")
	w.finish()
}
