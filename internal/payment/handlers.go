package payment

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-sales/internal/common"
)

// Handler exposes the payment recording endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the payment endpoints. Submit middlewares wrap only the
// recording route.
func (h *Handler) Routes(r chi.Router, submit ...func(http.Handler) http.Handler) {
	r.Get("/customers/{customerId}/payment", h.Start)
	r.With(submit...).Post("/payments", h.Record)
}

// Start returns the customer's pending bills, preselecting ?saleId.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(chi.URLParam(r, "customerId"))
	if customerID == "" {
		common.BadRequest(w, "customerId is required", nil)
		return
	}
	view, err := h.Svc.Start(r.Context(), customerID, r.URL.Query().Get("saleId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// Record validates and records a payment.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.BadRequest(w, "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.BadRequest(w, "invalid body", err.Error())
			return
		}
	}
	recorded, err := h.Svc.Record(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, recorded)
}
