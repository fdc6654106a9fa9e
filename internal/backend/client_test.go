package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-sales/internal/backend"
	"github.com/noah-isme/toko-sales/internal/common"
	"github.com/noah-isme/toko-sales/internal/payment"
	"github.com/noah-isme/toko-sales/internal/sale"
)

func newClient(t *testing.T, h http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cl, err := backend.New(backend.Options{
		BaseURL:     srv.URL + "/api/",
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return cl
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject("cashier").Expiration(exp).Build()
	require.NoError(t, err)
	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("secret")))
	require.NoError(t, err)
	return string(raw)
}

func TestSearchProductsNormalizesShapes(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products", r.URL.Path)
		require.Equal(t, "beras", r.URL.Query().Get("search"))
		_, _ = io.WriteString(w, `{"success":true,"data":{"products":[
			{"_id":"p1","name":"Beras","sellingPrice":"12000.50","currentStock":10,"category":{"_id":"k1","name":"Pangan"}},
			{"id":"p2","name":"Gula","sellingPrice":15000,"currentStock":"3","category":"k2"}
		]}}`)
	}))

	products, err := cl.SearchProducts(context.Background(), " beras ")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "p1", products[0].ID)
	require.Equal(t, "Pangan", products[0].Category)
	require.True(t, decimal.RequireFromString("12000.5").Equal(products[0].SellingPrice))
	require.Equal(t, "p2", products[1].ID)
	require.Equal(t, "k2", products[1].Category)
	require.EqualValues(t, 3, products[1].CurrentStock)
}

func TestCustomersAcceptListOrObject(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/customers":
			_, _ = io.WriteString(w, `{"success":true,"data":[{"_id":"c1","name":"Budi","phone":"0812","pendingDue":"500"}]}`)
		case "/api/customers/c1":
			_, _ = io.WriteString(w, `{"success":true,"data":{"customer":{"_id":"c1","name":"Budi","pendingDue":500,"totalPurchase":"1200"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))

	list, err := cl.SearchCustomers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "500", list[0].PendingDue.String())

	c, err := cl.GetCustomer(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "Budi", c.Name)
	require.Equal(t, "1200", c.TotalPurchase.String())
}

func TestGetSalePopulatedCustomer(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{
			"_id":"s9","invoiceNumber":"INV-9","customerId":{"_id":"c1","name":"Budi"},
			"items":[{"productId":{"_id":"p1","name":"Beras"},"quantity":2,"rate":"50"}],
			"grossAmount":100,"discount":0,"netAmount":100,"paidAmount":"40","pendingAmount":60,
			"paymentMode":"upi","saleDate":"2024-03-01T10:00:00Z"}}`)
	}))

	s, err := cl.GetSale(context.Background(), "s9")
	require.NoError(t, err)
	require.Equal(t, "c1", s.CustomerID)
	require.Equal(t, "Budi", s.CustomerName)
	require.Equal(t, "UPI", s.PaymentMode)
	require.Len(t, s.Items, 1)
	require.Equal(t, "Beras", s.Items[0].ProductName)
	require.Equal(t, "100", s.Items[0].LineTotal.String())
	require.Equal(t, 2024, s.SaleDate.Year())
}

func TestListPendingBills(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "c1", r.URL.Query().Get("customerId"))
		require.Equal(t, "PENDING", r.URL.Query().Get("paymentStatus"))
		_, _ = io.WriteString(w, `{"success":true,"data":{"sales":[{"_id":"b1","invoiceNumber":"INV-1","netAmount":300,"pendingAmount":"200"}]}}`)
	}))

	bills, err := cl.ListPendingBills(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Equal(t, "b1", bills[0].ID)
	require.Equal(t, "200", bills[0].PendingAmount.String())
}

func TestCreateSaleSendsOnceWithIdempotencyKey(t *testing.T) {
	var hits atomic.Int32
	var key string
	var sent map[string]any
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		key = r.Header.Get("Idempotency-Key")
		require.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"success":false,"message":"database busy"}`)
	}))

	ctx := common.WithIdempotencyKey(backend.WithToken(context.Background(), "opaque-token"), "key-1")
	payload := sale.Payload{
		CustomerID:  "c1",
		Items:       []sale.PayloadItem{{ProductID: "p1", Quantity: 2, Rate: decimal.NewFromInt(50)}},
		GrossAmount: decimal.NewFromInt(100),
		NetAmount:   decimal.NewFromInt(100),
		PaymentMode: sale.ModeCash,
	}
	_, err := cl.CreateSale(ctx, payload)
	require.Error(t, err)
	require.EqualValues(t, 1, hits.Load())
	require.Equal(t, "key-1", key)
	require.Equal(t, "c1", sent["customerId"])
	require.InDelta(t, 100.0, sent["netAmount"], 0.001)

	var netErr *backend.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, "database busy", err.Error())
	require.Equal(t, http.StatusBadGateway, netErr.StatusCode())
}

func TestGeneratesIdempotencyKeyWhenMissing(t *testing.T) {
	var key string
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{"_id":"pay1","customerId":"c1","saleId":{"_id":"b1"},"amount":"20","paymentMode":"cash"}}`)
	}))

	p, err := cl.CreatePayment(context.Background(), payment.Record{CustomerID: "c1", SaleID: "b1", Amount: decimal.NewFromInt(20), PaymentMode: payment.ModeCash})
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.Equal(t, "pay1", p.ID)
	require.Equal(t, "b1", p.SaleID)
	require.Equal(t, "CASH", p.PaymentMode)
}

func TestBackendRejectionIsRelayed(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"Insufficient stock for Beras"}`)
	}))

	_, err := cl.UpdateSale(context.Background(), "s1", sale.Payload{CustomerID: "c1"})
	var coded common.StatusCoder
	require.True(t, errors.As(err, &coded))
	require.Equal(t, http.StatusBadRequest, coded.StatusCode())
	require.Equal(t, "BACKEND_REJECTED", coded.ErrorCode())
	require.Equal(t, "Insufficient stock for Beras", coded.Error())
}

func TestGetsAreRetried(t *testing.T) {
	var hits atomic.Int32
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"_id":"p1","name":"Beras","currentStock":4}}`)
	}))

	p, err := cl.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 4, p.CurrentStock)
	require.EqualValues(t, 3, hits.Load())
}

func TestAttributesAcceptStringsAndObjects(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products/attributes/category", r.URL.Path)
		require.Equal(t, "pa", r.URL.Query().Get("searchQuery"))
		_, _ = io.WriteString(w, `{"success":true,"data":["Pangan",{"name":"Pakaian"},""]}`)
	}))

	got, err := cl.Attributes(context.Background(), "category", "pa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Pakaian", got[1].Name)
}

func TestExpiredTokenFailsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	ctx := backend.WithToken(context.Background(), signed(t, time.Now().Add(-time.Hour)))
	_, err := cl.GetCustomer(ctx, "c1")
	require.ErrorIs(t, err, backend.ErrTokenExpired)
	require.Zero(t, hits.Load())
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	cl, err := backend.New(backend.Options{BaseURL: srv.URL, MaxAttempts: 1})
	require.NoError(t, err)

	_, err = cl.GetSale(context.Background(), "s1")
	var netErr *backend.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusBadGateway, netErr.StatusCode())
	require.Equal(t, "BACKEND_UNAVAILABLE", netErr.ErrorCode())
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := backend.New(backend.Options{})
	require.Error(t, err)
}
