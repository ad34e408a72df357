package receipt

import (
	"strings"

	"github.com/nixxel-company-limited/posprint/escpos"
)

// PreBillOptions controls rendering of a pre-bill
type PreBillOptions struct {
	Layout    Layout
	Tax       TaxConfig
	Surcharge SurchargeConfig
}

// FormatPreBill renders a pre-bill. Amounts are recomputed from the items
// under opts.Tax since the exemption status may have changed since the
// order was taken. It ends with a non-fiscal disclaimer instead of QR.
func FormatPreBill(b *escpos.Builder, p *PreBill, opts PreBillOptions) {
	w := writer{b: b, l: opts.Layout}
	cur := p.Business.currency()
	totals := p.Totals(opts.Tax, opts.Surcharge)

	b.Init().Align(escpos.AlignCenter)
	w.title(p.Business.DisplayName())
	if p.Business.Address != "" {
		w.wrapped("", p.Business.Address)
	}
	if p.Business.Phone != "" {
		w.line("Tel: " + p.Business.Phone)
	}
	b.Bold(true).DoubleWidth(true)
	w.line("PRECUENTA")
	b.ClearFormatting()
	if p.PersonLabel != "" {
		b.Bold(true)
		w.line(strings.ToUpper(p.PersonLabel))
		b.Bold(false)
	}
	w.separator()

	b.Align(escpos.AlignLeft)
	created := orNow(p.CreatedAt)
	w.line("Fecha: " + formatDate(created) + " " + formatTime(created))
	if p.Table != "" {
		w.line("Mesa: " + p.Table)
	}
	if p.Waiter != "" {
		w.line("Mozo: " + p.Waiter)
	}
	if p.OrderNumber != "" {
		w.line("Orden: #" + p.OrderNumber)
	}
	w.separator()

	for _, it := range p.Items {
		w.wrapped("", it.Name)
		w.columns(Quantity(it.Quantity)+"x "+Money(cur, it.UnitPrice), Money(cur, it.Total()))
		if it.Discount.IsPositive() {
			w.columns("  Descuento", "-"+Money(cur, it.Discount))
		}
		if it.Observation != "" {
			w.wrapped("  * ", it.Observation)
		}
	}
	w.separator()

	if opts.Tax.Exempt {
		b.Align(escpos.AlignCenter)
		w.line("*** Exonerado de " + p.Business.taxLabel() + " ***")
		b.Align(escpos.AlignLeft)
	} else {
		rate := opts.Tax.Rate
		if rate.IsZero() {
			rate = DefaultTaxRate
		}
		w.columns("Subtotal:", Money(cur, totals.Subtotal))
		w.columns(p.Business.taxLabel()+" ("+Quantity(rate)+"%):", Money(cur, totals.Tax))
	}
	if totals.Surcharge.IsPositive() {
		label := opts.Surcharge.Label
		if label == "" {
			label = "Recargo al consumo"
		}
		w.columns(label+" ("+Quantity(opts.Surcharge.Rate)+"%):", Money(cur, totals.Surcharge))
	}
	b.Bold(true)
	w.columns("TOTAL:", Money(cur, totals.Total))
	b.Bold(false)

	w.separator()
	b.Align(escpos.AlignCenter).Bold(true)
	w.line("*** PRECUENTA ***")
	b.Bold(false)
	w.line("No valido como comprobante")
	w.line("Solicite su factura o boleta")
	b.LineFeed()
	w.wrapped("", p.Business.closing())
	w.finish()
}
