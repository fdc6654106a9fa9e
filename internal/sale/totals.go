package sale

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/money"
)

// Totals are the derived amounts of a draft. They are never stored.
type Totals struct {
	Gross   decimal.Decimal `json:"grossAmount"`
	Net     decimal.Decimal `json:"netAmount"`
	Pending decimal.Decimal `json:"pendingAmount"`
}

// ComputeTotals derives gross, net and pending amounts. Empty or non-numeric
// input counts as zero, and net and pending are floored at zero.
func ComputeTotals(items []LineItem, discount, paid money.Field) Totals {
	gross := decimal.Zero
	for _, it := range items {
		gross = gross.Add(it.LineTotal())
	}
	net := money.Max(decimal.Zero, gross.Sub(discount.Value()))
	pending := money.Max(decimal.Zero, net.Sub(paid.Value()))
	return Totals{Gross: gross, Net: net, Pending: pending}
}

// Memo caches the last computed totals keyed on the inputs that produced them.
type Memo struct {
	key    string
	totals Totals
	ok     bool
}

// Totals returns the memoized totals for the inputs, recomputing on change.
func (m *Memo) Totals(items []LineItem, discount, paid money.Field) Totals {
	key := fingerprint(items, discount, paid)
	if m.ok && m.key == key {
		return m.totals
	}
	m.key = key
	m.totals = ComputeTotals(items, discount, paid)
	m.ok = true
	return m.totals
}

func fingerprint(items []LineItem, discount, paid money.Field) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(it.ProductID)
		b.WriteByte(':')
		b.WriteString(it.Quantity.String())
		b.WriteByte('x')
		b.WriteString(it.Rate.String())
		b.WriteByte(';')
	}
	b.WriteString("d=")
	b.WriteString(discount.String())
	b.WriteString("|p=")
	b.WriteString(paid.String())
	return b.String()
}
