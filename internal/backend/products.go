package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/toko-sales/internal/lookup"
	"github.com/noah-isme/toko-sales/internal/sale"
)

// SearchProducts lists products matching q.
func (c *Client) SearchProducts(ctx context.Context, q string) ([]sale.Product, error) {
	query := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		query.Set("search", q)
	}
	data, err := c.call(ctx, "products.search", http.MethodGet, "/products", query, nil)
	if err != nil {
		return nil, err
	}
	raw, err := list[rawProduct](data, "products")
	if err != nil {
		return nil, &NetworkError{Op: "products.search", Err: err}
	}
	out := make([]sale.Product, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.typed())
	}
	return out, nil
}

// GetProduct loads one product with its current stock.
func (c *Client) GetProduct(ctx context.Context, id string) (sale.Product, error) {
	data, err := c.call(ctx, "products.get", http.MethodGet, "/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return sale.Product{}, err
	}
	raw, err := single[rawProduct](data, "product")
	if err != nil {
		return sale.Product{}, &NetworkError{Op: "products.get", Err: err}
	}
	return raw.typed(), nil
}

// Attributes returns autocomplete suggestions for a product attribute key.
func (c *Client) Attributes(ctx context.Context, key, q string) ([]lookup.Suggestion, error) {
	query := url.Values{}
	query.Set("searchQuery", q)
	data, err := c.call(ctx, "products.attributes", http.MethodGet, "/products/attributes/"+url.PathEscape(key), query, nil)
	if err != nil {
		return nil, err
	}
	raw, err := list[rawAttribute](data, "attributes")
	if err != nil {
		return nil, &NetworkError{Op: "products.attributes", Err: err}
	}
	out := make([]lookup.Suggestion, 0, len(raw))
	for _, a := range raw {
		if a.Name != "" {
			out = append(out, lookup.Suggestion{Name: a.Name})
		}
	}
	return out, nil
}
