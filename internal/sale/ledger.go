package sale

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/money"
)

// EditStockCeiling is the advisory stock ceiling given to items seeded from a
// persisted sale; the live stock is not known while editing.
const EditStockCeiling int64 = 9999

// Product is the catalog snapshot a line item is created from.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	CurrentStock int64           `json:"currentStock"`
}

// LineItem is one product entry of a draft. ProductName is denormalized at
// selection time and never re-synced with the catalog.
type LineItem struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    money.Field `json:"quantity"`
	Rate        money.Field `json:"rate"`
	MaxStock    int64       `json:"maxStock"`
}

// LineTotal returns quantity × rate with empty input counted as zero.
func (it LineItem) LineTotal() decimal.Decimal {
	return it.Quantity.Value().Mul(it.Rate.Value())
}

// Ledger is the ordered set of line items of a draft. Operations return a new
// ledger and leave the receiver untouched.
type Ledger struct {
	items []LineItem
}

// NewLedger builds a ledger from items, rejecting duplicate product ids.
func NewLedger(items ...LineItem) (Ledger, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if _, dup := seen[id]; dup {
			return Ledger{}, ErrDuplicateItem
		}
		seen[id] = struct{}{}
	}
	return Ledger{items: slices.Clone(items)}, nil
}

// SaleLine is a persisted line of an existing sale.
type SaleLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// SeedLedger rebuilds a ledger from a persisted sale for editing.
func SeedLedger(lines []SaleLine) (Ledger, error) {
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, LineItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    money.Of(line.Quantity.Truncate(0)),
			Rate:        money.Of(line.Rate),
			MaxStock:    EditStockCeiling,
		})
	}
	return NewLedger(items...)
}

// Items returns a copy of the line items in display order.
func (l Ledger) Items() []LineItem { return slices.Clone(l.items) }

// Len returns the number of line items.
func (l Ledger) Len() int { return len(l.items) }

// Contains reports whether productID already has a line item.
func (l Ledger) Contains(productID string) bool {
	return slices.ContainsFunc(l.items, func(it LineItem) bool { return it.ProductID == productID })
}

// Add appends a line item for p with quantity 1 at the selling price.
func (l Ledger) Add(p Product) (Ledger, error) {
	if l.Contains(p.ID) {
		return l, ErrDuplicateItem
	}
	if p.CurrentStock <= 0 {
		return l, ErrOutOfStock
	}
	next := make([]LineItem, len(l.items), len(l.items)+1)
	copy(next, l.items)
	next = append(next, LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    money.OfInt(1),
		Rate:        money.Of(p.SellingPrice),
		MaxStock:    p.CurrentStock,
	})
	return Ledger{items: next}, nil
}

// UpdateQuantity stores raw as the quantity of the item at index. Blank input
// keeps the empty sentinel; anything else is truncated to whole units and
// clamped to [0, maxStock]. Clamping down returns a warning, not an error.
func (l Ledger) UpdateQuantity(index int, raw string) (Ledger, *StockWarning, error) {
	if index < 0 || index >= len(l.items) {
		return l, nil, ErrItemIndex
	}
	next := l.Items()
	item := &next[index]
	if raw == "" {
		item.Quantity = money.Empty()
		return Ledger{items: next}, nil, nil
	}
	qty, warning := clampQuantity(item, money.ParseQuantity(raw).Value().IntPart())
	item.Quantity = money.OfInt(qty)
	return Ledger{items: next}, warning, nil
}

// UpdateRate stores raw as the unit rate of the item at index. Blank input
// keeps the empty sentinel; unparsable input becomes zero.
func (l Ledger) UpdateRate(index int, raw string) (Ledger, error) {
	if index < 0 || index >= len(l.items) {
		return l, ErrItemIndex
	}
	next := l.Items()
	if raw == "" {
		next[index].Rate = money.Empty()
	} else {
		next[index].Rate = money.Of(money.Coerce(raw))
	}
	return Ledger{items: next}, nil
}

// Remove drops the item at index.
func (l Ledger) Remove(index int) (Ledger, error) {
	if index < 0 || index >= len(l.items) {
		return l, ErrItemIndex
	}
	return Ledger{items: slices.Delete(l.Items(), index, index+1)}, nil
}

// Clamp applies the stock ceiling to every non-empty quantity. It is used on
// drafts that arrive as a whole rather than through UpdateQuantity.
func (l Ledger) Clamp() (Ledger, []StockWarning) {
	next := l.Items()
	var warnings []StockWarning
	for i := range next {
		item := &next[i]
		if !item.Rate.IsEmpty() {
			item.Rate = money.Of(item.Rate.Value())
		}
		if item.Quantity.IsEmpty() {
			continue
		}
		qty, warning := clampQuantity(item, item.Quantity.Value().IntPart())
		item.Quantity = money.OfInt(qty)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}
	return Ledger{items: next}, warnings
}

func clampQuantity(item *LineItem, qty int64) (int64, *StockWarning) {
	if qty < 0 {
		qty = 0
	}
	if qty > item.MaxStock {
		ceiling := max(item.MaxStock, 0)
		return ceiling, &StockWarning{ProductID: item.ProductID, Requested: qty, Available: ceiling}
	}
	return qty, nil
}
