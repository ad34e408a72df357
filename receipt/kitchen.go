package receipt

import (
	"strings"

	"github.com/nixxel-company-limited/posprint/escpos"
)

// KitchenOptions controls rendering of a kitchen order
type KitchenOptions struct {
	Layout Layout
	// Station is the kitchen or bar section the ticket is routed to
	Station string
}

var orderTypes = map[string]string{
	"takeaway": "PARA LLEVAR",
	"delivery": "DELIVERY",
	"dine-in":  "EN MESA",
}

// FormatKitchen renders a kitchen ticket
func FormatKitchen(b *escpos.Builder, o *KitchenOrder, opts KitchenOptions) {
	w := writer{b: b, l: opts.Layout}
	cur := o.Currency

	b.Init().Align(escpos.AlignCenter)
	b.DoubleWidth(true).Bold(true)
	w.line("*** COMANDA ***")
	b.ClearFormatting()
	if opts.Station != "" {
		b.Bold(true).DoubleHeight(true)
		w.line(strings.ToUpper(opts.Station))
		b.ClearFormatting()
	}
	w.separator()

	b.Align(escpos.AlignLeft).Bold(true)
	w.line("Fecha: " + formatDate(orNow(o.CreatedAt)) + " " + formatTime(orNow(o.CreatedAt)))
	if o.Table != "" {
		w.line("Mesa: " + o.Table)
	}
	if o.Waiter != "" {
		w.line("Mozo: " + o.Waiter)
	}
	if o.OrderNumber != "" {
		w.line("Orden: #" + o.OrderNumber)
	}
	if label, ok := orderTypes[strings.ToLower(o.Type)]; ok {
		w.line(label)
	}
	b.ClearFormatting()
	w.separator()

	for _, it := range o.Items {
		b.Bold(true).DoubleHeight(true)
		w.wrapped(Quantity(it.Quantity)+"x ", it.Name)
		b.ClearFormatting()
		for _, m := range it.Modifiers {
			indent := "  "
			if m.Group != "" {
				w.wrapped("  ", m.Group+":")
				indent = "    "
			}
			for _, opt := range m.Options {
				text := opt.Name
				if !opt.PriceDelta.IsZero() {
					sign := "+"
					if opt.PriceDelta.IsNegative() {
						sign = ""
					}
					text += " (" + sign + Money(cur, opt.PriceDelta) + ")"
				}
				w.wrapped(indent+"+ ", text)
			}
		}
		if it.Notes != "" {
			w.wrapped("  Nota: ", it.Notes)
		}
		b.LineFeed()
	}

	if o.Notes != "" {
		w.separator()
		w.heading("NOTAS")
		w.wrapped("", o.Notes)
	}
	w.separator()
	w.finish()
}
