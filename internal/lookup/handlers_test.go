package lookup_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/toko-sales/internal/lookup"
)

func newRouter(t *testing.T, debounce time.Duration, mw ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	svc, _ := newService(t, &fakeBackend{})
	h := &lookup.Handler{Svc: svc, Debounce: lookup.NewDebouncer(debounce)}
	r := chi.NewRouter()
	h.Routes(r, mw...)
	return r
}

func get(r http.Handler, path, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != "" {
		req.Header.Set(lookup.SessionHeader, session)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandlersServeLookups(t *testing.T) {
	r := newRouter(t, 0)

	rr := get(r, "/lookup/products?q=beras", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var products struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &products))
	require.Equal(t, "p1", products.Data[0].ID)

	rr = get(r, "/lookup/customers/c1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"pendingDue"`)

	rr = get(r, "/lookup/customers/c1/bills", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"b1"`)
	require.NotContains(t, rr.Body.String(), `"b2"`)

	rr = get(r, "/lookup/attributes/brand?q=pa", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "UnknownAttribute")
}

func TestHandlersSupersededReturnsNoContent(t *testing.T) {
	r := newRouter(t, 80*time.Millisecond)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- get(r, "/lookup/customers?q=bu", "tab-1") }()
	time.Sleep(20 * time.Millisecond)
	second := get(r, "/lookup/customers?q=budi", "tab-1")

	require.Equal(t, http.StatusNoContent, (<-first).Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.Contains(t, second.Body.String(), "Budi Santoso")
}

func TestRateLimitMiddleware(t *testing.T) {
	store := memory.NewStore()
	r := newRouter(t, 0, lookup.RateLimit(store, limiter.Rate{Period: time.Minute, Limit: 2}))

	require.Equal(t, http.StatusOK, get(r, "/lookup/products?q=a", "").Code)
	require.Equal(t, http.StatusOK, get(r, "/lookup/products?q=b", "").Code)
	rr := get(r, "/lookup/products?q=c", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
}
