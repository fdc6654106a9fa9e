package lookup

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a customer snapshot with its outstanding balance.
type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	PendingDue    decimal.Decimal `json:"pendingDue"`
	TotalPurchase decimal.Decimal `json:"totalPurchase"`
}

// Bill is a sale of the customer with an outstanding balance.
type Bill struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	SaleDate      time.Time       `json:"saleDate"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}

// Suggestion is one autocomplete entry for a product attribute.
type Suggestion struct {
	Name string `json:"name"`
}

// AttributeKeys lists the product attributes that support autocomplete.
var AttributeKeys = []string{"product", "category"}

// FilterCustomers returns the customers whose name contains q ignoring case,
// or whose phone contains q. Blank q returns the list unchanged.
func FilterCustomers(list []Customer, q string) []Customer {
	q = strings.TrimSpace(q)
	if q == "" {
		return list
	}
	needle := strings.ToLower(q)
	out := make([]Customer, 0, len(list))
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(c.Phone, q) {
			out = append(out, c)
		}
	}
	return out
}

// FilterSuggestions drops suggestions that do not contain q or that equal it
// ignoring case; at most limit entries are returned.
func FilterSuggestions(list []Suggestion, q string, limit int) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]Suggestion, 0, len(list))
	for _, s := range list {
		name := strings.ToLower(s.Name)
		if name == "" || !strings.Contains(name, needle) || (needle != "" && name == needle) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
