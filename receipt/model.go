// Package receipt holds print job documents and renders them as ESC/POS command streams.
package receipt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the fiscal type of a sale document
type DocumentKind string

const (
	Invoice   DocumentKind = "factura"
	Receipt   DocumentKind = "boleta"
	SalesNote DocumentKind = "nota_venta"
)

// ParseDocumentKind accepts the stored names and their English aliases.
// Unknown values are treated as Receipt.
func ParseDocumentKind(s string) DocumentKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "factura", "invoice":
		return Invoice
	case "nota_venta", "sales_note", "note":
		return SalesNote
	default:
		return Receipt
	}
}

// UnmarshalText accepts the same spellings as ParseDocumentKind
func (k *DocumentKind) UnmarshalText(text []byte) error {
	*k = ParseDocumentKind(string(text))
	return nil
}

// Code is the tax authority document type code, empty for non-tax documents
func (k DocumentKind) Code() string {
	switch k {
	case Invoice:
		return "01"
	case Receipt:
		return "03"
	default:
		return ""
	}
}

// IsTaxDocument reports whether the document is reported to the tax authority
func (k DocumentKind) IsTaxDocument() bool {
	return k == Invoice || k == Receipt
}

// Name is the short printed name
func (k DocumentKind) Name() string {
	switch k {
	case Invoice:
		return "FACTURA"
	case SalesNote:
		return "NOTA DE VENTA"
	default:
		return "BOLETA DE VENTA"
	}
}

// Title is the banner printed under the header
func (k DocumentKind) Title() string {
	if k.IsTaxDocument() {
		return k.Name() + " ELECTRONICA"
	}
	return k.Name()
}

// Business identifies the issuer
type Business struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	TaxID     string `json:"tax_id"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	LogoURL   string `json:"logo_url,omitempty"`
	// TaxExempt suppresses every tax line
	TaxExempt bool `json:"tax_exempt,omitempty"`
	// HideTaxOnSalesNote suppresses the tax id and tax lines on sales notes
	HideTaxOnSalesNote bool   `json:"hide_tax_on_sales_note,omitempty"`
	Currency           string `json:"currency,omitempty"`
	TaxLabel           string `json:"tax_label,omitempty"`
	VerificationURL    string `json:"verification_url,omitempty"`
	ClosingMessage     string `json:"closing_message,omitempty"`
}

// DisplayName prefers the trade name
func (b Business) DisplayName() string {
	if b.TradeName != "" {
		return b.TradeName
	}
	if b.Name != "" {
		return b.Name
	}
	return "NEGOCIO"
}

func (b Business) currency() string {
	if b.Currency == "" {
		return DefaultCurrency
	}
	return b.Currency
}

func (b Business) taxLabel() string {
	if b.TaxLabel == "" {
		return "IGV"
	}
	return b.TaxLabel
}

func (b Business) closing() string {
	if b.ClosingMessage == "" {
		return "GRACIAS POR SU PREFERENCIA"
	}
	return b.ClosingMessage
}

// Customer identifies the buyer
type Customer struct {
	Name      string `json:"name,omitempty"`
	LegalName string `json:"legal_name,omitempty"`
	// IDType is RUC, DNI, CE, PASAPORTE or a numeric code
	IDType   string `json:"id_type,omitempty"`
	IDNumber string `json:"id_number,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// anonymous reports whether the customer is the generic walk-in customer
func (c *Customer) anonymous() bool {
	if c == nil {
		return true
	}
	name := strings.ToUpper(strings.TrimSpace(c.Name))
	legal := strings.TrimSpace(c.LegalName)
	return (name == "" || name == "VARIOS" || name == "CLIENTES VARIOS") && legal == "" && c.IDNumber == ""
}

var idTypeCodes = map[string]string{
	"RUC":       "6",
	"DNI":       "1",
	"CE":        "4",
	"PASAPORTE": "7",
	"PASSPORT":  "7",
}

// idTypeCode maps the customer id type to its tax authority code
func (c *Customer) idTypeCode(kind DocumentKind) string {
	if c != nil && c.IDType != "" {
		t := strings.ToUpper(strings.TrimSpace(c.IDType))
		if code, ok := idTypeCodes[t]; ok {
			return code
		}
		return t
	}
	if kind == Invoice {
		return "6"
	}
	return "1"
}

func (c *Customer) idLabel(kind DocumentKind) string {
	if c != nil && c.IDType != "" {
		t := strings.ToUpper(strings.TrimSpace(c.IDType))
		for label, code := range idTypeCodes {
			if t == code && label != "PASSPORT" {
				return label
			}
		}
		return t
	}
	if kind == Invoice {
		return "RUC"
	}
	return "DNI"
}

// Item is a sold line
type Item struct {
	Name        string          `json:"name"`
	Code        string          `json:"code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount,omitempty"`
	Batch       string          `json:"batch,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Observation string          `json:"observation,omitempty"`
}

// Total is UnitPrice × Quantity − Discount, rounded to cents. Caller-supplied
// totals are never used.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(i.Quantity).Sub(i.Discount).Round(2)
}

// Payment is one tender of a sale
type Payment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentStatus is the settlement state of a credit sale
type PaymentStatus string

const (
	Paid    PaymentStatus = "paid"
	Partial PaymentStatus = "partial"
	Pending PaymentStatus = "pending"
)

// PaymentRecord is an installment received against a credit sale
type PaymentRecord struct {
	Date   time.Time       `json:"date"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Credit carries the partial payment state of a sale
type Credit struct {
	Status     PaymentStatus   `json:"status"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	History    []PaymentRecord `json:"history,omitempty"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// Sale is a receipt print job: invoice, receipt or sales note
type Sale struct {
	Kind     DocumentKind    `json:"kind"`
	Series   string          `json:"series"`
	Number   string          `json:"number"`
	IssuedAt time.Time       `json:"issued_at"`
	Business Business        `json:"business"`
	Customer *Customer       `json:"customer,omitempty"`
	Items    []Item          `json:"items"`
	Discount decimal.Decimal `json:"discount,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal,omitempty"`
	Tax      decimal.Decimal `json:"tax,omitempty"`
	// TaxRate is a percentage, 18 when zero
	TaxRate   decimal.Decimal `json:"tax_rate,omitempty"`
	Total     decimal.Decimal `json:"total,omitempty"`
	Payments  []Payment       `json:"payments,omitempty"`
	Credit    *Credit         `json:"credit,omitempty"`
	Hash      string          `json:"hash,omitempty"`
	QRPayload string          `json:"qr_payload,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Seller    string          `json:"seller,omitempty"`
}

// DefaultTaxRate is the general sales tax percentage
var DefaultTaxRate = decimal.NewFromInt(18)

// DefaultCurrency prefixes every amount unless the business overrides it
const DefaultCurrency = "S/"

// JobKind names the job for logs
func (s *Sale) JobKind() string { return "receipt" }

// Validate rejects sales that cannot be rendered
func (s *Sale) Validate() error {
	if s == nil {
		return errors.New("missing sale")
	}
	if len(s.Items) == 0 {
		return errors.New("sale has no items")
	}
	for i, it := range s.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("item %d has no name", i+1)
		}
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d has a negative quantity or price", i+1)
		}
	}
	return nil
}

func (s *Sale) taxRate() decimal.Decimal {
	if s.TaxRate.IsZero() {
		return DefaultTaxRate
	}
	return s.TaxRate
}

// Totals returns subtotal, tax and total. Stored values are used when
// present; a missing total is derived from the items and the discount, and
// missing subtotal and tax are split out of the total at the tax rate.
func (s *Sale) Totals() (subtotal, tax, total decimal.Decimal) {
	total = s.Total
	if total.IsZero() {
		for _, it := range s.Items {
			total = total.Add(it.Total())
		}
		total = total.Sub(s.Discount)
	}
	subtotal, tax = s.Subtotal, s.Tax
	if subtotal.IsZero() && tax.IsZero() {
		if s.Business.TaxExempt {
			subtotal = total
		} else {
			subtotal, tax = SplitTax(total, s.taxRate())
		}
	}
	return subtotal.Round(2), tax.Round(2), total.Round(2)
}

// SplitTax splits a tax-inclusive total into net amount and tax at rate percent
func SplitTax(total, rate decimal.Decimal) (net, tax decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100)))
	net = total.Div(divisor).Round(2)
	return net, total.Sub(net)
}

// ModifierOption is one chosen option of a modifier group
type ModifierOption struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta,omitempty"`
}

// Modifier is a named option group applied to a kitchen item
type Modifier struct {
	Group   string           `json:"group,omitempty"`
	Options []ModifierOption `json:"options"`
}

// KitchenItem is a line of a kitchen order
type KitchenItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
	Modifiers []Modifier      `json:"modifiers,omitempty"`
}

// KitchenOrder is a ticket for the kitchen or bar
type KitchenOrder struct {
	OrderNumber string        `json:"order_number"`
	Table       string        `json:"table,omitempty"`
	Waiter      string        `json:"waiter,omitempty"`
	// Type is dine-in, takeaway or delivery
	Type      string        `json:"type,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Items     []KitchenItem `json:"items"`
	Notes     string        `json:"notes,omitempty"`
	Currency  string        `json:"currency,omitempty"`
}

// JobKind names the job for logs
func (o *KitchenOrder) JobKind() string { return "kitchen" }

// Validate rejects orders that cannot be rendered
func (o *KitchenOrder) Validate() error {
	if o == nil {
		return errors.New("missing kitchen order")
	}
	if len(o.Items) == 0 {
		return errors.New("kitchen order has no items")
	}
	return nil
}

// PreBill is the check handed to a table before the sale is issued
type PreBill struct {
	Business    Business  `json:"business"`
	OrderNumber string    `json:"order_number"`
	Table       string    `json:"table,omitempty"`
	Waiter      string    `json:"waiter,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Item    `json:"items"`
	// PersonLabel marks one share of a split bill, e.g. "Persona 1 de 3"
	PersonLabel string `json:"person_label,omitempty"`
}

// JobKind names the job for logs
func (p *PreBill) JobKind() string { return "prebill" }

// Validate rejects pre-bills that cannot be rendered
func (p *PreBill) Validate() error {
	if p == nil {
		return errors.New("missing pre-bill")
	}
	if len(p.Items) == 0 {
		return errors.New("pre-bill has no items")
	}
	return nil
}

// TaxConfig is the tax setting in force when the pre-bill is printed
type TaxConfig struct {
	Rate   decimal.Decimal `json:"rate"`
	Exempt bool            `json:"exempt"`
}

// SurchargeConfig adds a consumption surcharge to the pre-bill
type SurchargeConfig struct {
	Enabled bool            `json:"enabled"`
	Rate    decimal.Decimal `json:"rate"`
	Label   string          `json:"label,omitempty"`
}

// PreBillTotals are recomputed from the items at print time
type PreBillTotals struct {
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal
}

// Totals recomputes the pre-bill amounts under the current tax setting.
// The surcharge is charged on the net amount and added on top.
func (p *PreBill) Totals(tax TaxConfig, surcharge SurchargeConfig) PreBillTotals {
	var gross decimal.Decimal
	for _, it := range p.Items {
		gross = gross.Add(it.Total())
	}

	var t PreBillTotals
	if tax.Exempt {
		t.Subtotal = gross
	} else {
		rate := tax.Rate
		if rate.IsZero() {
			rate = DefaultTaxRate
		}
		t.Subtotal, t.Tax = SplitTax(gross, rate)
	}
	if surcharge.Enabled && surcharge.Rate.IsPositive() {
		t.Surcharge = t.Subtotal.Mul(surcharge.Rate).Div(decimal.NewFromInt(100)).Round(2)
	}
	t.Total = gross.Add(t.Surcharge)
	return t
}

// Job is implemented by every printable document
type Job interface {
	JobKind() string
	Validate() error
}
