package sale

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/money"
)

// Draft is a sale being composed. It lives for one create or edit session and
// is discarded once submitted or abandoned.
type Draft struct {
	CustomerID string
	Items      Ledger
	Discount   money.Field
	Paid       money.Field
	Mode       Mode
}

// NewDraft returns an empty draft paid in cash.
func NewDraft() Draft {
	return Draft{Mode: ModeCash}
}

// Totals recomputes the derived amounts of the draft.
func (d Draft) Totals() Totals {
	return ComputeTotals(d.Items.items, d.Discount, d.Paid)
}

// Sale is the persisted sale as returned by the backend.
type Sale struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	CustomerID    string          `json:"customerId"`
	CustomerName  string          `json:"customerName,omitempty"`
	Items         []SaleLine      `json:"items"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	Discount      decimal.Decimal `json:"discount"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	PaymentMode   string          `json:"paymentMode"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	SaleDate      time.Time       `json:"saleDate"`
}

// SeedDraft builds an edit draft from a persisted sale. Unknown payment modes
// fall back to cash.
func SeedDraft(s Sale) (Draft, error) {
	items, err := SeedLedger(s.Items)
	if err != nil {
		return Draft{}, err
	}
	mode, err := ParseMode(s.PaymentMode)
	if err != nil {
		mode = ModeCash
	}
	return Draft{
		CustomerID: strings.TrimSpace(s.CustomerID),
		Items:      items,
		Discount:   money.Of(s.Discount),
		Paid:       money.Of(s.PaidAmount),
		Mode:       mode,
	}, nil
}
