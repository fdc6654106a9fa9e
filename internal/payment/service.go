package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-sales/internal/lock"
	"github.com/noah-isme/toko-sales/internal/lookup"
	"github.com/noah-isme/toko-sales/internal/money"
	"github.com/noah-isme/toko-sales/internal/obs"
)

// Backend is the storefront backend as seen by the payment flow.
type Backend interface {
	GetCustomer(ctx context.Context, id string) (lookup.Customer, error)
	ListPendingBills(ctx context.Context, customerID string) ([]Bill, error)
	CreatePayment(ctx context.Context, r Record) (Payment, error)
}

// Locker guards a customer while one of its payments is being recorded.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// RecordRequest is a payment as typed by the user.
type RecordRequest struct {
	CustomerID  string      `json:"customerId" validate:"required"`
	SaleID      string      `json:"saleId"`
	Amount      money.Field `json:"amount"`
	PaymentMode string      `json:"paymentMode"`
	Remarks     string      `json:"remarks" validate:"max=500"`
}

// View is what the payment screen needs to start: the customer's balance,
// the bills still pending and the preselected bill, if any.
type View struct {
	Customer lookup.Customer `json:"customer"`
	Bills    []Bill          `json:"bills"`
	Selected string          `json:"selectedBillId,omitempty"`
	Amount   money.Field     `json:"amount"`
	Modes    []Mode          `json:"paymentModes"`
}

// Service records standalone payments.
type Service struct {
	Backend Backend
	Locker  Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// NewService constructs a payment service.
func NewService(backend Backend, locker Locker, logger zerolog.Logger) *Service {
	return &Service{Backend: backend, Locker: locker, LockTTL: 30 * time.Second, Logger: logger}
}

// Start loads the customer's balance and pending bills. A saleID matching a
// pending bill is preselected.
func (s *Service) Start(ctx context.Context, customerID, saleID string) (View, error) {
	app, customer, err := s.load(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	app = app.Preselect(saleID)
	return View{Customer: customer, Bills: app.Bills, Selected: app.Selected, Amount: app.Amount, Modes: Modes()}, nil
}

// Record validates req against a fresh snapshot of the customer's balance and
// hands the payment to the backend.
func (s *Service) Record(ctx context.Context, req RecordRequest) (Payment, error) {
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Record")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.result", result))
		obs.IncPaymentSubmission(result)
	}()

	mode, err := ParseMode(req.PaymentMode)
	if err != nil {
		result = "rejected"
		return Payment{}, err
	}
	app, _, err := s.load(ctx, req.CustomerID)
	if err != nil {
		return Payment{}, err
	}
	if saleID := strings.TrimSpace(req.SaleID); saleID != "" {
		if app, err = app.Select(saleID); err != nil {
			result = "rejected"
			return Payment{}, err
		}
	}
	app.Amount = req.Amount
	app.Mode = mode
	app.Remarks = req.Remarks

	record, err := app.Prepare()
	if err != nil {
		result = "rejected"
		s.Logger.Info().Str("customer_id", app.CustomerID).Str("reason", err.Error()).Msg("payment rejected")
		return Payment{}, err
	}
	span.SetAttributes(attribute.String("customer.id", record.CustomerID), attribute.String("sale.id", record.SaleID))

	var recorded Payment
	run := func(ctx context.Context) error {
		var createErr error
		recorded, createErr = s.Backend.CreatePayment(ctx, record)
		return createErr
	}
	if s.Locker != nil {
		err = s.Locker.TryWithLock(ctx, "payment:submit:"+record.CustomerID, s.LockTTL, run)
	} else {
		err = run(ctx)
	}
	if errors.Is(err, lock.ErrLocked) {
		result = "in_flight"
		return Payment{}, ErrSubmitInFlight
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("customer_id", record.CustomerID).Msg("payment submission failed")
		return Payment{}, err
	}
	result = "ok"
	s.Logger.Info().Str("customer_id", record.CustomerID).Str("payment_id", recorded.ID).Str("amount", record.Amount.String()).Msg("payment recorded")
	return recorded, nil
}

func (s *Service) load(ctx context.Context, customerID string) (Application, lookup.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	customer, err := s.Backend.GetCustomer(ctx, customerID)
	if err != nil {
		return Application{}, lookup.Customer{}, err
	}
	bills, err := s.Backend.ListPendingBills(ctx, customerID)
	if err != nil {
		return Application{}, lookup.Customer{}, err
	}
	due := customer.PendingDue
	if due.IsNegative() {
		due = decimal.Zero
	}
	return NewApplication(customerID, due, bills), customer, nil
}
