package backend

import (
	"context"
	"net/http"

	"github.com/noah-isme/toko-sales/internal/payment"
)

// CreatePayment records a payment against a bill. It is attempted once.
func (c *Client) CreatePayment(ctx context.Context, r payment.Record) (payment.Payment, error) {
	data, err := c.call(ctx, "payments.create", http.MethodPost, "/payments", nil, r)
	if err != nil {
		return payment.Payment{}, err
	}
	raw, err := single[rawPayment](data, "payment")
	if err != nil {
		return payment.Payment{}, &NetworkError{Op: "payments.create", Err: err}
	}
	return raw.typed(), nil
}
