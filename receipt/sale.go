package receipt

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nixxel-company-limited/posprint/escpos"
	"github.com/nixxel-company-limited/posprint/imaging"
)

// SaleOptions controls rendering of a sale
type SaleOptions struct {
	Layout Layout
	// Logo is printed above the business name when Ready
	Logo imaging.Logo
	QR   QRStyle
}

// QRPayload returns the QR content of a sale. A caller-supplied payload is
// used as is; otherwise one is synthesized for tax documents as
// taxID|docCode|series|number|tax|total|date|customerIdType|customerId.
// Sales notes get no payload.
func QRPayload(s *Sale) string {
	if s.QRPayload != "" {
		return s.QRPayload
	}
	if !s.Kind.IsTaxDocument() || s.Business.TaxID == "" || s.Series == "" {
		return ""
	}
	_, tax, total := s.Totals()
	custID := ""
	if s.Customer != nil {
		custID = s.Customer.IDNumber
	}
	return strings.Join([]string{
		s.Business.TaxID,
		s.Kind.Code(),
		s.Series,
		s.Number,
		tax.StringFixed(2),
		total.StringFixed(2),
		orNow(s.IssuedAt).Format("2006-01-02"),
		s.Customer.idTypeCode(s.Kind),
		custID,
	}, "|")
}

// showTax reports whether tax id and tax lines are printed
func (s *Sale) showTax() bool {
	return !(s.Kind == SalesNote && s.Business.HideTaxOnSalesNote)
}

// FormatSale renders a sale receipt: header, banner, customer, items,
// totals, payments, legal footer, closing message and cut.
func FormatSale(b *escpos.Builder, s *Sale, opts SaleOptions) {
	w := writer{b: b, l: opts.Layout}
	cur := s.Business.currency()

	b.Init()
	saleHeader(w, s, opts.Logo)

	// banner
	w.separator()
	b.Align(escpos.AlignCenter).Bold(true)
	w.line(s.Kind.Title())
	w.line(documentNumber(s))
	b.ClearFormatting().Align(escpos.AlignLeft)

	issued := orNow(s.IssuedAt)
	w.line("Fecha: " + formatDate(issued))
	w.line("Hora: " + formatTime(issued))
	if s.Seller != "" {
		w.wrapped("Vendedor: ", s.Seller)
	}

	saleCustomer(w, s)
	saleItems(w, s, cur)
	saleTotals(w, s, cur)
	salePayments(w, s, cur)
	saleLegal(w, s, opts.QR)

	if s.Notes != "" {
		w.separator()
		w.heading("OBSERVACIONES")
		w.wrapped("", s.Notes)
	}

	w.separator()
	b.Align(escpos.AlignCenter)
	w.wrapped("", s.Business.closing())
	w.finish()
}

func documentNumber(s *Sale) string {
	series := s.Series
	if series == "" {
		series = "B001"
	}
	number := s.Number
	if number == "" {
		number = "000"
	}
	return series + "-" + number
}

func saleHeader(w writer, s *Sale, logo imaging.Logo) {
	b := w.b
	biz := s.Business
	b.Align(escpos.AlignCenter)

	if logo.Ready && len(logo.Raster) > 0 {
		b.RasterImage(logo.PixelWidth, logo.Height, logo.Raster).LineFeed()
	}

	w.title(biz.DisplayName())
	if biz.TradeName != "" && biz.Name != "" && biz.Name != biz.TradeName {
		w.wrapped("", biz.Name)
	}
	if biz.TaxID != "" && s.showTax() {
		w.line("RUC: " + biz.TaxID)
	}
	if biz.Address != "" {
		w.wrapped("", biz.Address)
	}
	var contact []string
	if biz.Phone != "" {
		contact = append(contact, "Tel: "+biz.Phone)
	}
	if biz.Email != "" {
		contact = append(contact, biz.Email)
	}
	for _, c := range contact {
		w.wrapped("", c)
	}
	if biz.Website != "" {
		w.wrapped("", biz.Website)
	}
}

func saleCustomer(w writer, s *Sale) {
	c := s.Customer
	if c.anonymous() {
		return
	}
	w.separator()
	w.heading("DATOS DEL CLIENTE")
	if s.Kind == Invoice {
		if c.IDNumber != "" {
			w.line(c.idLabel(s.Kind) + ": " + c.IDNumber)
		}
		name := c.LegalName
		if name == "" {
			name = c.Name
		}
		if name != "" {
			w.wrapped("Razon Social: ", name)
		}
		if c.Address != "" {
			w.wrapped("Direccion: ", c.Address)
		}
		return
	}
	name := c.Name
	if name == "" {
		name = c.LegalName
	}
	if name != "" {
		w.wrapped("Cliente: ", name)
	}
	if c.IDNumber != "" {
		w.line(c.idLabel(s.Kind) + ": " + c.IDNumber)
	}
}

func saleItems(w writer, s *Sale, cur string) {
	w.separator()
	w.heading("DETALLE")
	w.separator()
	for _, it := range s.Items {
		w.wrapped("", it.Name)
		w.columns(Quantity(it.Quantity)+"x "+Money(cur, it.UnitPrice), Money(cur, it.Total()))
		if it.Discount.IsPositive() {
			w.columns("  Descuento", "-"+Money(cur, it.Discount))
		}
		if it.Code != "" {
			w.wrapped("  Codigo: ", it.Code)
		}
		if it.Batch != "" || it.ExpiresAt != nil {
			var parts []string
			if it.Batch != "" {
				parts = append(parts, "Lote: "+it.Batch)
			}
			if it.ExpiresAt != nil {
				parts = append(parts, "Vence: "+formatDate(*it.ExpiresAt))
			}
			w.wrapped("  ", strings.Join(parts, " "))
		}
		if it.Observation != "" {
			w.wrapped("  Obs: ", it.Observation)
		}
	}
	w.separator()
}

func saleTotals(w writer, s *Sale, cur string) {
	subtotal, tax, total := s.Totals()
	if !s.Business.TaxExempt && s.showTax() {
		w.columns("Subtotal:", Money(cur, subtotal))
		w.columns(s.Business.taxLabel()+" ("+Quantity(s.taxRate())+"%):", Money(cur, tax))
	}
	if s.Discount.IsPositive() {
		w.columns("Descuento:", "-"+Money(cur, s.Discount))
	}
	w.b.Bold(true)
	w.columns("TOTAL:", Money(cur, total))
	w.b.Bold(false)
}

// salePayments prints the single method, every tender of a split payment,
// or the credit state with the balance still owed.
func salePayments(w writer, s *Sale, cur string) {
	_, _, total := s.Totals()

	if c := s.Credit; c != nil && (c.Status == Partial || c.Status == Pending) {
		w.separator()
		w.heading("FORMA DE PAGO")
		if c.Status == Pending {
			w.line("CREDITO")
		} else {
			w.line("PAGO PARCIAL")
		}
		for _, p := range c.History {
			left := formatDate(p.Date)
			if p.Method != "" {
				left += " " + p.Method
			}
			w.columns(left, Money(cur, p.Amount))
		}
		w.columns("Pagado:", Money(cur, c.AmountPaid))
		w.b.Bold(true)
		w.columns("SALDO PENDIENTE:", Money(cur, total.Sub(c.AmountPaid)))
		w.b.Bold(false)
		if c.DueDate != nil {
			w.line("Vence: " + formatDate(*c.DueDate))
		}
		return
	}

	if len(s.Payments) == 0 {
		return
	}
	w.separator()
	w.heading("FORMA DE PAGO")
	paid := decimal.Zero
	for _, p := range s.Payments {
		method := p.Method
		if method == "" {
			method = "Efectivo"
		}
		w.columns(method+":", Money(cur, p.Amount))
		paid = paid.Add(p.Amount)
	}
	if change := paid.Sub(total); change.IsPositive() {
		w.columns("Vuelto:", Money(cur, change))
	}
}

func saleLegal(w writer, s *Sale, style QRStyle) {
	b := w.b
	w.separator()
	b.Align(escpos.AlignCenter)

	if !s.Kind.IsTaxDocument() {
		w.wrapped("", "Documento no valido como comprobante de pago")
		w.wrapped("", "Canjee por boleta o factura")
		return
	}

	w.line("REPRESENTACION IMPRESA DE")
	w.line(s.Kind.Title())

	if s.Hash != "" {
		hash := s.Hash
		if r := []rune(hash); len(r) > w.l.HashWidth {
			hash = string(r[:w.l.HashWidth]) + "..."
		}
		b.Align(escpos.AlignLeft).Bold(true).Text("Hash: ").Bold(false)
		w.line(hash)
		b.Align(escpos.AlignCenter)
	}

	if payload := QRPayload(s); payload != "" {
		b.LineFeed()
		w.qr(payload, style)
	}

	url := s.Business.VerificationURL
	if url == "" {
		url = "www.sunat.gob.pe"
	}
	w.wrapped("", "Consulte en "+url)
}
