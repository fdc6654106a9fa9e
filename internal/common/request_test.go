package common_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-sales/internal/common"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		CustomerID string `json:"customerId"`
	}
	r := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"customerId":"c1"}`))
	require.NoError(t, common.DecodeJSON(r, &dst))
	require.Equal(t, "c1", dst.CustomerID)

	r = httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"customerId":"c1"} {"customerId":"c2"}`))
	require.ErrorIs(t, common.DecodeJSON(r, &dst), common.ErrTrailingData)

	r = httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"customerId":`))
	require.Error(t, common.DecodeJSON(r, &dst))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/lookup/products", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	require.Equal(t, "10.0.0.7", common.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", common.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	require.Equal(t, "10.0.0.7", common.ClientIP(r))
}
