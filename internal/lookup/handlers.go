package lookup

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/noah-isme/toko-sales/internal/common"
)

// SessionHeader identifies one typeahead input for debouncing.
const SessionHeader = "X-Typeahead-Session"

// Handler exposes lookup endpoints.
type Handler struct {
	Svc      *Service
	Debounce *Debouncer
}

// Routes mounts the lookup endpoints under /lookup.
func (h *Handler) Routes(r chi.Router, mw ...func(http.Handler) http.Handler) {
	r.Route("/lookup", func(r chi.Router) {
		r.Use(mw...)
		r.Get("/products", h.Products)
		r.Get("/customers", h.Customers)
		r.Get("/customers/{id}", h.Customer)
		r.Get("/customers/{id}/bills", h.PendingBills)
		r.Get("/attributes/{key}", h.Attributes)
	})
}

// RateLimit throttles lookups per client IP using store.
func RateLimit(store limiter.Store, rate limiter.Rate) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(limiter.New(store, rate))
	return mw.Handler
}

// Products handles GET /lookup/products?q=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.settle(w, r, "products") {
		return
	}
	products, err := h.Svc.Products(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, products)
}

// Customers handles GET /lookup/customers?q=.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	if !h.settle(w, r, "customers") {
		return
	}
	customers, err := h.Svc.Customers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, customers)
}

// Customer handles GET /lookup/customers/{id}.
func (h *Handler) Customer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Svc.Customer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, customer)
}

// PendingBills handles GET /lookup/customers/{id}/bills.
func (h *Handler) PendingBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.Svc.PendingBills(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, bills)
}

// Attributes handles GET /lookup/attributes/{key}?q=.
func (h *Handler) Attributes(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.settle(w, r, "attributes:"+key) {
		return
	}
	suggestions, err := h.Svc.Attributes(r.Context(), key, r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, suggestions)
}

// settle debounces the request and reports whether it should be answered.
// Superseded requests get 204.
func (h *Handler) settle(w http.ResponseWriter, r *http.Request, kind string) bool {
	session := strings.TrimSpace(r.Header.Get(SessionHeader))
	if session == "" {
		session = r.RemoteAddr
	}
	err := h.Debounce.Wait(r.Context(), kind+"|"+session)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
	default:
		common.JSONError(w, http.StatusRequestTimeout, "CANCELLED", "request cancelled", nil)
	}
	return false
}
