package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/toko-sales/internal/lookup"
)

// SearchCustomers lists customers matching q. A blank q lists everyone.
func (c *Client) SearchCustomers(ctx context.Context, q string) ([]lookup.Customer, error) {
	query := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		query.Set("search", q)
	}
	data, err := c.call(ctx, "customers.search", http.MethodGet, "/customers", query, nil)
	if err != nil {
		return nil, err
	}
	raw, err := list[rawCustomer](data, "customers")
	if err != nil {
		return nil, &NetworkError{Op: "customers.search", Err: err}
	}
	out := make([]lookup.Customer, 0, len(raw))
	for _, cu := range raw {
		out = append(out, cu.typed())
	}
	return out, nil
}

// GetCustomer loads one customer with pendingDue and totalPurchase.
func (c *Client) GetCustomer(ctx context.Context, id string) (lookup.Customer, error) {
	data, err := c.call(ctx, "customers.get", http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return lookup.Customer{}, err
	}
	raw, err := single[rawCustomer](data, "customer")
	if err != nil {
		return lookup.Customer{}, &NetworkError{Op: "customers.get", Err: err}
	}
	return raw.typed(), nil
}
