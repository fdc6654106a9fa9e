package sale

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-sales/internal/common"
)

// Handler exposes the sale composition endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type addItemRequest struct {
	Draft     DraftRequest `json:"draft"`
	ProductID string       `json:"productId" validate:"required"`
}

type lineEditRequest struct {
	Draft DraftRequest `json:"draft"`
	LineEdit
}

// Routes mounts the sale endpoints. Submit middlewares wrap only the
// create and update routes.
func (h *Handler) Routes(r chi.Router, submit ...func(http.Handler) http.Handler) {
	r.Post("/sales/quote", h.Quote)
	r.Post("/sales/items", h.AddItem)
	r.Post("/sales/lines/{index}", h.EditLine)
	r.Post("/sales/lines/{index}/remove", h.RemoveLine)
	r.Get("/sales/{id}/draft", h.EditDraft)
	r.With(submit...).Post("/sales", h.Create)
	r.With(submit...).Put("/sales/{id}", h.Update)
}

// Quote recomputes the totals of a draft.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	quote, err := h.Svc.Quote(req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// AddItem adds a product to the draft.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	quote, err := h.Svc.AddItem(r.Context(), req.Draft, req.ProductID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// EditLine changes the quantity or rate of one line.
func (h *Handler) EditLine(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req lineEditRequest
	if !h.decode(w, r, &req) {
		return
	}
	quote, err := h.Svc.EditLine(req.Draft, index, req.LineEdit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// RemoveLine drops one line from the draft.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req DraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	quote, err := h.Svc.RemoveLine(req, index)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// EditDraft returns an edit draft seeded from a persisted sale.
func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.BadRequest(w, "sale id is required", nil)
		return
	}
	quote, err := h.Svc.EditDraft(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// Create submits a new sale.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.Svc.Submit(r.Context(), req, "")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, result)
}

// Update submits changes to an existing sale.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.BadRequest(w, "sale id is required", nil)
		return
	}
	var req DraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.Svc.Submit(r.Context(), req, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := common.DecodeJSON(r, dst); err != nil {
		common.BadRequest(w, "invalid body", nil)
		return false
	}
	if h.Validate == nil {
		return true
	}
	if err := h.Validate.Struct(dst); err != nil {
		common.BadRequest(w, "invalid body", fieldErrors(err))
		return false
	}
	return true
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.BadRequest(w, "line index must be a number", nil)
		return 0, false
	}
	return index, true
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}
