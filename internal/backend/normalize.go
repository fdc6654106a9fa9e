package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/lookup"
	"github.com/noah-isme/toko-sales/internal/payment"
	"github.com/noah-isme/toko-sales/internal/sale"
)

// The backend is loosely typed: ids come as _id or id, amounts as numbers
// or numeric strings, references as plain ids or populated objects. The raw
// types below absorb those shapes; only the typed entities leave this file.

type number decimal.Decimal

func (n *number) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*n = number(decimal.Zero)
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(unquoted)
	}
	if text == "" {
		*n = number(decimal.Zero)
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		*n = number(decimal.Zero)
		return nil
	}
	*n = number(d)
	return nil
}

func (n number) decimal() decimal.Decimal { return decimal.Decimal(n) }

func (n number) int() int64 { return decimal.Decimal(n).IntPart() }

type ident struct {
	ID      string `json:"id"`
	MongoID string `json:"_id"`
}

func (i ident) value() string {
	if id := strings.TrimSpace(i.MongoID); id != "" {
		return id
	}
	return strings.TrimSpace(i.ID)
}

// ref is a reference that is either a bare id or a populated object.
type ref struct {
	ident
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*r = ref{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ref{ident: ident{ID: s}}
		return nil
	}
	type plain ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ref(p)
	return nil
}

type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || strings.TrimSpace(s) == "" {
		*t = timestamp{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	*t = timestamp{}
	return nil
}

type rawProduct struct {
	ident
	Name         string `json:"name"`
	Category     ref    `json:"category"`
	Unit         string `json:"unit"`
	SellingPrice number `json:"sellingPrice"`
	CurrentStock number `json:"currentStock"`
}

func (p rawProduct) typed() sale.Product {
	category := p.Category.Name
	if category == "" {
		category = p.Category.value()
	}
	return sale.Product{
		ID:           p.value(),
		Name:         p.Name,
		Category:     category,
		Unit:         p.Unit,
		SellingPrice: p.SellingPrice.decimal(),
		CurrentStock: p.CurrentStock.int(),
	}
}

type rawCustomer struct {
	ident
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PendingDue    number `json:"pendingDue"`
	TotalPurchase number `json:"totalPurchase"`
}

func (c rawCustomer) typed() lookup.Customer {
	return lookup.Customer{
		ID:            c.value(),
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		PendingDue:    c.PendingDue.decimal(),
		TotalPurchase: c.TotalPurchase.decimal(),
	}
}

type rawSaleItem struct {
	ProductID   ref    `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    number `json:"quantity"`
	Rate        number `json:"rate"`
	LineTotal   number `json:"lineTotal"`
}

type rawSale struct {
	ident
	InvoiceNumber string        `json:"invoiceNumber"`
	CustomerID    ref           `json:"customerId"`
	CustomerName  string        `json:"customerName"`
	Items         []rawSaleItem `json:"items"`
	GrossAmount   number        `json:"grossAmount"`
	Discount      number        `json:"discount"`
	NetAmount     number        `json:"netAmount"`
	PaidAmount    number        `json:"paidAmount"`
	PendingAmount number        `json:"pendingAmount"`
	PaymentMode   string        `json:"paymentMode"`
	PaymentStatus string        `json:"paymentStatus"`
	SaleDate      timestamp     `json:"saleDate"`
	CreatedAt     timestamp     `json:"createdAt"`
}

func (s rawSale) date() time.Time {
	if t := time.Time(s.SaleDate); !t.IsZero() {
		return t
	}
	return time.Time(s.CreatedAt)
}

func (s rawSale) typed() sale.Sale {
	lines := make([]sale.SaleLine, 0, len(s.Items))
	for _, it := range s.Items {
		name := it.ProductName
		if name == "" {
			name = it.ProductID.Name
		}
		total := it.LineTotal.decimal()
		if total.IsZero() {
			total = it.Quantity.decimal().Mul(it.Rate.decimal())
		}
		lines = append(lines, sale.SaleLine{
			ProductID:   it.ProductID.value(),
			ProductName: name,
			Quantity:    it.Quantity.decimal(),
			Rate:        it.Rate.decimal(),
			LineTotal:   total,
		})
	}
	customerName := s.CustomerName
	if customerName == "" {
		customerName = s.CustomerID.Name
	}
	return sale.Sale{
		ID:            s.value(),
		InvoiceNumber: s.InvoiceNumber,
		CustomerID:    s.CustomerID.value(),
		CustomerName:  customerName,
		Items:         lines,
		GrossAmount:   s.GrossAmount.decimal(),
		Discount:      s.Discount.decimal(),
		NetAmount:     s.NetAmount.decimal(),
		PaidAmount:    s.PaidAmount.decimal(),
		PendingAmount: s.PendingAmount.decimal(),
		PaymentMode:   strings.ToUpper(strings.TrimSpace(s.PaymentMode)),
		PaymentStatus: strings.ToUpper(strings.TrimSpace(s.PaymentStatus)),
		SaleDate:      s.date(),
	}
}

func (s rawSale) bill() payment.Bill {
	return payment.Bill{
		ID:            s.value(),
		InvoiceNumber: s.InvoiceNumber,
		SaleDate:      s.date(),
		NetAmount:     s.NetAmount.decimal(),
		PendingAmount: s.PendingAmount.decimal(),
	}
}

type rawPayment struct {
	ident
	CustomerID  ref       `json:"customerId"`
	SaleID      ref       `json:"saleId"`
	Amount      number    `json:"amount"`
	PaymentMode string    `json:"paymentMode"`
	Remarks     string    `json:"remarks"`
	PaymentDate timestamp `json:"paymentDate"`
}

func (p rawPayment) typed() payment.Payment {
	return payment.Payment{
		ID:          p.value(),
		CustomerID:  p.CustomerID.value(),
		SaleID:      p.SaleID.value(),
		Amount:      p.Amount.decimal(),
		PaymentMode: strings.ToUpper(strings.TrimSpace(p.PaymentMode)),
		Remarks:     p.Remarks,
		PaymentDate: time.Time(p.PaymentDate),
	}
}

type rawAttribute struct {
	Name string
}

func (a *rawAttribute) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	a.Name = obj.Name
	return nil
}

// envelope is the {success, data, message} wrapper around every response.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// unwrap returns the data member of an envelope, or body itself when it is
// not wrapped.
func unwrap(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return body
}

// list decodes a collection that is either a bare array or an object holding
// the array under key.
func list[T any](data json.RawMessage, key string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var out []T
		err := json.Unmarshal(data, &out)
		return out, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var out []T
	err := json.Unmarshal(raw, &out)
	return out, err
}

// single decodes an entity that is either the data itself or nested under key.
func single[T any](data json.RawMessage, key string) (T, error) {
	var out T
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if nested, ok := obj[key]; ok && len(nested) > 0 && nested[0] == '{' {
			data = nested
		}
	}
	err := json.Unmarshal(data, &out)
	return out, err
}

func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(env.Error); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}
