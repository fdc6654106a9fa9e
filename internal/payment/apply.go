package payment

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/lookup"
	"github.com/noah-isme/toko-sales/internal/money"
)

// Bill is a sale of the customer with an outstanding balance.
type Bill = lookup.Bill

// Application is a standalone payment being prepared against a customer's
// outstanding bills. Operations return a new value.
type Application struct {
	CustomerID string
	PendingDue decimal.Decimal
	Bills      []Bill
	Selected   string
	Amount     money.Field
	Mode       Mode
	Remarks    string
}

// NewApplication starts a payment for the customer. Bills without a positive
// pending amount are dropped.
func NewApplication(customerID string, pendingDue decimal.Decimal, bills []Bill) Application {
	pending := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.PendingAmount.IsPositive() {
			pending = append(pending, b)
		}
	}
	return Application{
		CustomerID: strings.TrimSpace(customerID),
		PendingDue: pendingDue,
		Bills:      pending,
		Mode:       ModeCash,
	}
}

// Bill returns the bill with id.
func (a Application) Bill(id string) (Bill, bool) {
	i := slices.IndexFunc(a.Bills, func(b Bill) bool { return b.ID == id })
	if i < 0 {
		return Bill{}, false
	}
	return a.Bills[i], true
}

// Select chooses the bill to pay and defaults the amount to its pending amount.
func (a Application) Select(billID string) (Application, error) {
	bill, ok := a.Bill(strings.TrimSpace(billID))
	if !ok {
		return a, ErrUnknownBill
	}
	a.Bills = slices.Clone(a.Bills)
	a.Selected = bill.ID
	a.Amount = money.Of(bill.PendingAmount)
	return a, nil
}

// Preselect selects saleID when it is one of the pending bills and leaves the
// application unchanged otherwise.
func (a Application) Preselect(saleID string) Application {
	if next, err := a.Select(saleID); err == nil {
		return next
	}
	return a
}

// SetAmount stores the amount typed by the user.
func (a Application) SetAmount(raw string) Application {
	a.Amount = money.Parse(raw)
	return a
}

// Record is the prepared payment handed to the backend.
type Record struct {
	CustomerID  string
	SaleID      string
	Amount      decimal.Decimal
	PaymentMode Mode
	Remarks     string
}

type wireRecord struct {
	CustomerID  string  `json:"customerId"`
	SaleID      string  `json:"saleId,omitempty"`
	Amount      float64 `json:"amount"`
	PaymentMode Mode    `json:"paymentMode"`
	Remarks     string  `json:"remarks,omitempty"`
}

// MarshalJSON renders the record in the backend's shape.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		CustomerID:  r.CustomerID,
		SaleID:      r.SaleID,
		Amount:      money.Float(r.Amount),
		PaymentMode: r.PaymentMode,
		Remarks:     r.Remarks,
	})
}

// Prepare validates the application. Rules run in order: the amount must be
// positive, a bill must be selected when any is pending, and the amount may
// exceed neither the bill's pending amount nor the customer's pending due.
func (a Application) Prepare() (Record, error) {
	amount := a.Amount.Value()
	if !a.Amount.IsValid() || !amount.IsPositive() {
		return Record{}, ErrInvalidAmount
	}
	if len(a.Bills) > 0 && a.Selected == "" {
		return Record{}, ErrBillRequired
	}
	if a.Selected != "" {
		bill, ok := a.Bill(a.Selected)
		if !ok {
			return Record{}, ErrUnknownBill
		}
		if amount.GreaterThan(bill.PendingAmount) {
			return Record{}, ErrExceedsBillDue
		}
	}
	if amount.GreaterThan(a.PendingDue) {
		return Record{}, ErrExceedsCustomerDue
	}
	mode := a.Mode
	if mode == "" {
		mode = ModeCash
	}
	return Record{
		CustomerID:  a.CustomerID,
		SaleID:      a.Selected,
		Amount:      amount,
		PaymentMode: mode,
		Remarks:     strings.TrimSpace(a.Remarks),
	}, nil
}

// Payment is a payment recorded by the backend.
type Payment struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	SaleID      string          `json:"saleId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"paymentMode"`
	Remarks     string          `json:"remarks,omitempty"`
	PaymentDate time.Time       `json:"paymentDate"`
}
