package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/toko-sales/internal/payment"
	"github.com/noah-isme/toko-sales/internal/sale"
)

// ListPendingBills lists the customer's sales with an outstanding balance.
func (c *Client) ListPendingBills(ctx context.Context, customerID string) ([]payment.Bill, error) {
	query := url.Values{}
	query.Set("customerId", customerID)
	query.Set("paymentStatus", "PENDING")
	data, err := c.call(ctx, "sales.pending", http.MethodGet, "/sales", query, nil)
	if err != nil {
		return nil, err
	}
	raw, err := list[rawSale](data, "sales")
	if err != nil {
		return nil, &NetworkError{Op: "sales.pending", Err: err}
	}
	out := make([]payment.Bill, 0, len(raw))
	for _, s := range raw {
		out = append(out, s.bill())
	}
	return out, nil
}

// GetSale loads a persisted sale for editing.
func (c *Client) GetSale(ctx context.Context, id string) (sale.Sale, error) {
	data, err := c.call(ctx, "sales.get", http.MethodGet, "/sales/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return sale.Sale{}, err
	}
	return decodeSale("sales.get", data)
}

// CreateSale submits a new sale. It is attempted once.
func (c *Client) CreateSale(ctx context.Context, p sale.Payload) (sale.Sale, error) {
	data, err := c.call(ctx, "sales.create", http.MethodPost, "/sales", nil, p)
	if err != nil {
		return sale.Sale{}, err
	}
	return decodeSale("sales.create", data)
}

// UpdateSale replaces an existing sale. It is attempted once.
func (c *Client) UpdateSale(ctx context.Context, id string, p sale.Payload) (sale.Sale, error) {
	data, err := c.call(ctx, "sales.update", http.MethodPut, "/sales/"+url.PathEscape(id), nil, p)
	if err != nil {
		return sale.Sale{}, err
	}
	return decodeSale("sales.update", data)
}

func decodeSale(op string, data []byte) (sale.Sale, error) {
	raw, err := single[rawSale](data, "sale")
	if err != nil {
		return sale.Sale{}, &NetworkError{Op: op, Err: err}
	}
	return raw.typed(), nil
}
