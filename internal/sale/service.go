package sale

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-sales/internal/common"
	"github.com/noah-isme/toko-sales/internal/lock"
	"github.com/noah-isme/toko-sales/internal/money"
	"github.com/noah-isme/toko-sales/internal/obs"
)

// Backend is the storefront backend as seen by the sale flow.
type Backend interface {
	Submitter
	GetProduct(ctx context.Context, id string) (Product, error)
	GetSale(ctx context.Context, id string) (Sale, error)
}

// Locker guards a submission key while it is being processed.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// DraftItem is a line item as sent by the UI; numeric fields are raw input.
type DraftItem struct {
	ProductID   string      `json:"productId" validate:"required"`
	ProductName string      `json:"productName"`
	Quantity    money.Field `json:"quantity"`
	Rate        money.Field `json:"rate"`
	MaxStock    int64       `json:"maxStock" validate:"gte=0"`
}

// DraftRequest carries a whole draft; the gateway keeps no draft state.
type DraftRequest struct {
	CustomerID  string      `json:"customerId"`
	Items       []DraftItem `json:"items" validate:"dive"`
	Discount    money.Field `json:"discount"`
	PaidAmount  money.Field `json:"paidAmount"`
	PaymentMode string      `json:"paymentMode"`
	Strict      *bool       `json:"strict,omitempty"`
}

// Draft normalizes the request into a draft, clamping quantities to the
// stock snapshot carried by each item.
func (r DraftRequest) Draft() (Draft, []StockWarning, error) {
	mode, err := ParseMode(r.PaymentMode)
	if err != nil {
		return Draft{}, nil, err
	}
	items := make([]LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, LineItem{
			ProductID:   strings.TrimSpace(it.ProductID),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			MaxStock:    it.MaxStock,
		})
	}
	ledger, err := NewLedger(items...)
	if err != nil {
		return Draft{}, nil, err
	}
	ledger, warnings := ledger.Clamp()
	return Draft{
		CustomerID: strings.TrimSpace(r.CustomerID),
		Items:      ledger,
		Discount:   r.Discount,
		Paid:       r.PaidAmount,
		Mode:       mode,
	}, warnings, nil
}

// QuoteLine is a line item with its computed total.
type QuoteLine struct {
	LineItem
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Warning is a stock warning rendered for display.
type Warning struct {
	StockWarning
	Message string `json:"message"`
}

// Quote is the normalized draft plus its derived amounts.
type Quote struct {
	EditID      string      `json:"editId,omitempty"`
	CustomerID  string      `json:"customerId"`
	Items       []QuoteLine `json:"items"`
	Discount    money.Field `json:"discount"`
	PaidAmount  money.Field `json:"paidAmount"`
	PaymentMode Mode        `json:"paymentMode"`
	Totals
	Warnings []Warning `json:"warnings,omitempty"`
}

// NewQuote renders d for the UI.
func NewQuote(d Draft, editID string, warnings []StockWarning) Quote {
	lines := make([]QuoteLine, 0, d.Items.Len())
	for _, it := range d.Items.items {
		lines = append(lines, QuoteLine{LineItem: it, LineTotal: it.LineTotal()})
	}
	return Quote{
		EditID:      editID,
		CustomerID:  d.CustomerID,
		Items:       lines,
		Discount:    d.Discount,
		PaidAmount:  d.Paid,
		PaymentMode: d.Mode,
		Totals:      d.Totals(),
		Warnings:    renderWarnings(warnings),
	}
}

func renderWarnings(warnings []StockWarning) []Warning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, Warning{StockWarning: w, Message: w.Message()})
	}
	return out
}

// LineEdit changes one line of a draft. Nil fields are left as they are.
type LineEdit struct {
	Quantity *string `json:"quantity,omitempty"`
	Rate     *string `json:"rate,omitempty"`
}

// Result is the outcome of a successful submission.
type Result struct {
	Sale     Sale      `json:"sale"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Service runs the sale flow on top of the storefront backend.
type Service struct {
	Backend    Backend
	Locker     Locker
	LockTTL    time.Duration
	Strictness Strictness
	Logger     zerolog.Logger
}

// NewService constructs a sale service.
func NewService(backend Backend, locker Locker, strictness Strictness, logger zerolog.Logger) *Service {
	return &Service{Backend: backend, Locker: locker, LockTTL: 30 * time.Second, Strictness: strictness, Logger: logger}
}

// Quote normalizes req and computes its totals.
func (s *Service) Quote(req DraftRequest) (Quote, error) {
	d, warnings, err := req.Draft()
	if err != nil {
		return Quote{}, err
	}
	obs.AddStockClamps(len(warnings))
	return NewQuote(d, "", warnings), nil
}

// AddItem looks up productID and appends it to the draft.
func (s *Service) AddItem(ctx context.Context, req DraftRequest, productID string) (Quote, error) {
	d, warnings, err := req.Draft()
	if err != nil {
		return Quote{}, err
	}
	productID = strings.TrimSpace(productID)
	if d.Items.Contains(productID) {
		return Quote{}, ErrDuplicateItem
	}
	p, err := s.Backend.GetProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}
	items, err := d.Items.Add(p)
	if err != nil {
		return Quote{}, err
	}
	d.Items = items
	obs.AddStockClamps(len(warnings))
	return NewQuote(d, "", warnings), nil
}

// EditLine applies edit to the item at index.
func (s *Service) EditLine(req DraftRequest, index int, edit LineEdit) (Quote, error) {
	d, warnings, err := req.Draft()
	if err != nil {
		return Quote{}, err
	}
	items := d.Items
	if edit.Quantity != nil {
		var warning *StockWarning
		items, warning, err = items.UpdateQuantity(index, *edit.Quantity)
		if err != nil {
			return Quote{}, err
		}
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}
	if edit.Rate != nil {
		items, err = items.UpdateRate(index, *edit.Rate)
		if err != nil {
			return Quote{}, err
		}
	}
	d.Items = items
	obs.AddStockClamps(len(warnings))
	return NewQuote(d, "", warnings), nil
}

// RemoveLine drops the item at index.
func (s *Service) RemoveLine(req DraftRequest, index int) (Quote, error) {
	d, warnings, err := req.Draft()
	if err != nil {
		return Quote{}, err
	}
	items, err := d.Items.Remove(index)
	if err != nil {
		return Quote{}, err
	}
	d.Items = items
	return NewQuote(d, "", warnings), nil
}

// EditDraft seeds an edit draft from the persisted sale id.
func (s *Service) EditDraft(ctx context.Context, id string) (Quote, error) {
	persisted, err := s.Backend.GetSale(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	d, err := SeedDraft(persisted)
	if err != nil {
		return Quote{}, err
	}
	return NewQuote(d, persisted.ID, nil), nil
}

// Submit validates req and creates the sale, or updates editID when set.
// Identical concurrent submissions are rejected with ErrSubmitInFlight.
func (s *Service) Submit(ctx context.Context, req DraftRequest, editID string) (Result, error) {
	d, warnings, err := req.Draft()
	if err != nil {
		obs.IncSaleValidation(reasonOf(err))
		return Result{}, err
	}
	obs.AddStockClamps(len(warnings))

	strictness := s.Strictness
	if req.Strict != nil {
		strictness = Lenient
		if *req.Strict {
			strictness = Strict
		}
	}
	editID = strings.TrimSpace(editID)
	kind := "create"
	if editID != "" {
		kind = "update"
	}
	session := ResumeSession(d, editID, strictness)

	var persisted Sale
	run := func(ctx context.Context) error {
		var submitErr error
		persisted, submitErr = session.Submit(ctx, s.Backend)
		return submitErr
	}
	if s.Locker != nil {
		err = s.Locker.TryWithLock(ctx, submitLockKey(d, editID), s.LockTTL, run)
	} else {
		err = run(ctx)
	}

	logger := s.Logger.With().Str("kind", kind).Str("customer_id", d.CustomerID).Logger()
	switch {
	case errors.Is(err, lock.ErrLocked):
		obs.IncSaleSubmission(kind, "in_flight")
		logger.Warn().Msg("sale submission already in flight")
		return Result{}, ErrSubmitInFlight
	case session.State() == StateRejected:
		reason := reasonOf(err)
		obs.IncSaleValidation(reason)
		logger.Info().Str("reason", reason).Msg("sale rejected")
		return Result{}, err
	case err != nil:
		obs.IncSaleValidation("ok")
		obs.IncSaleSubmission(kind, "failed")
		logger.Error().Err(err).Msg("sale submission failed")
		return Result{}, err
	}
	obs.IncSaleValidation("ok")
	obs.IncSaleSubmission(kind, "ok")
	logger.Info().Str("sale_id", persisted.ID).Msg("sale submitted")
	return Result{Sale: persisted, Warnings: renderWarnings(warnings)}, nil
}

func submitLockKey(d Draft, editID string) string {
	if editID != "" {
		return "sale:submit:edit:" + editID
	}
	return "sale:submit:" + common.Sha256Hex(d.CustomerID+"|"+fingerprint(d.Items.items, d.Discount, d.Paid)+"|"+string(d.Mode))
}

func reasonOf(err error) string {
	if v, ok := common.AsValidation(err); ok {
		return v.Reason
	}
	return "error"
}
