package sale

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/money"
)

// Strictness selects how quantities are checked at submission.
type Strictness int

const (
	// Lenient trusts entry-time clamping and does not re-check quantities.
	Lenient Strictness = iota
	// Strict additionally rejects items whose quantity is not positive.
	Strict
)

func (s Strictness) String() string {
	if s == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseStrictness maps configuration text to a Strictness, defaulting to Lenient.
func ParseStrictness(value string) Strictness {
	if strings.EqualFold(strings.TrimSpace(value), "strict") {
		return Strict
	}
	return Lenient
}

// PayloadItem is the projection of a line item sent to the backend.
type PayloadItem struct {
	ProductID string
	Quantity  int64
	Rate      decimal.Decimal
}

// Payload is the validated sale handed to the backend for create or update.
type Payload struct {
	CustomerID  string
	Items       []PayloadItem
	GrossAmount decimal.Decimal
	Discount    decimal.Decimal
	NetAmount   decimal.Decimal
	PaidAmount  decimal.Decimal
	PaymentMode Mode
}

type wireItem struct {
	ProductID string  `json:"productId"`
	Quantity  int64   `json:"quantity"`
	Rate      float64 `json:"rate"`
}

type wirePayload struct {
	CustomerID  string     `json:"customerId"`
	Items       []wireItem `json:"items"`
	GrossAmount float64    `json:"grossAmount"`
	Discount    float64    `json:"discount"`
	NetAmount   float64    `json:"netAmount"`
	PaidAmount  float64    `json:"paidAmount"`
	PaymentMode Mode       `json:"paymentMode"`
}

// MarshalJSON renders amounts as JSON numbers, the shape the backend expects.
func (p Payload) MarshalJSON() ([]byte, error) {
	items := make([]wireItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, wireItem{ProductID: it.ProductID, Quantity: it.Quantity, Rate: money.Float(it.Rate)})
	}
	return json.Marshal(wirePayload{
		CustomerID:  p.CustomerID,
		Items:       items,
		GrossAmount: money.Float(p.GrossAmount),
		Discount:    money.Float(p.Discount),
		NetAmount:   money.Float(p.NetAmount),
		PaidAmount:  money.Float(p.PaidAmount),
		PaymentMode: p.PaymentMode,
	})
}

// Validate gates submission of d. Rules run in order and the first failure
// is returned: missing customer, empty cart, non-positive quantity (strict
// only), invalid paid amount, and over-payment.
func Validate(d Draft, strictness Strictness) (Payload, error) {
	customerID := strings.TrimSpace(d.CustomerID)
	if customerID == "" {
		return Payload{}, ErrMissingCustomer
	}
	if d.Items.Len() == 0 {
		return Payload{}, ErrEmptyCart
	}
	if strictness == Strict {
		for _, it := range d.Items.items {
			if !it.Quantity.Value().IsPositive() {
				return Payload{}, ErrInvalidQuantity
			}
		}
	}
	if !d.Paid.IsEmpty() && !d.Paid.IsValid() {
		return Payload{}, ErrInvalidPaidAmount
	}
	totals := d.Totals()
	paid := d.Paid.Value()
	if paid.GreaterThan(totals.Net) {
		return Payload{}, ErrOverPayment
	}

	mode := d.Mode
	if mode == "" {
		mode = ModeCash
	}
	items := make([]PayloadItem, 0, d.Items.Len())
	for _, it := range d.Items.items {
		items = append(items, PayloadItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity.Value().IntPart(),
			Rate:      it.Rate.Value(),
		})
	}
	return Payload{
		CustomerID:  customerID,
		Items:       items,
		GrossAmount: totals.Gross,
		Discount:    d.Discount.Value(),
		NetAmount:   totals.Net,
		PaidAmount:  paid,
		PaymentMode: mode,
	}, nil
}
