package sale

import (
	"context"
	"strings"
	"sync"

	"github.com/noah-isme/toko-sales/internal/money"
)

// State is the lifecycle position of a sale-creation session.
type State int

const (
	StateEmpty State = iota
	StateComposing
	StateValidating
	StateRejected
	StateSubmitting
	StateSubmitted
	StateSubmitFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateComposing:
		return "composing"
	case StateValidating:
		return "validating"
	case StateRejected:
		return "rejected"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateSubmitFailed:
		return "submit_failed"
	default:
		return "unknown"
	}
}

// Submitter persists validated sales.
type Submitter interface {
	CreateSale(ctx context.Context, p Payload) (Sale, error)
	UpdateSale(ctx context.Context, id string, p Payload) (Sale, error)
}

// Session owns one draft from composition to submission. Rejected and
// SubmitFailed sessions accept further edits and resubmission.
type Session struct {
	mu         sync.Mutex
	state      State
	draft      Draft
	editID     string
	strictness Strictness
	memo       Memo
	lastErr    error
	result     Sale
}

// NewSession starts a session for a new sale.
func NewSession(strictness Strictness) *Session {
	return &Session{state: StateEmpty, draft: NewDraft(), strictness: strictness}
}

// ResumeSession starts a session from an existing draft. A non-empty editID
// makes Submit update that sale instead of creating one.
func ResumeSession(d Draft, editID string, strictness Strictness) *Session {
	return &Session{state: StateComposing, draft: d, editID: strings.TrimSpace(editID), strictness: strictness}
}

// EditSession seeds a session from a persisted sale.
func EditSession(s Sale, strictness Strictness) (*Session, error) {
	d, err := SeedDraft(s)
	if err != nil {
		return nil, err
	}
	return ResumeSession(d, s.ID, strictness), nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// EditID returns the id of the sale being edited, if any.
func (s *Session) EditID() string { return s.editID }

// Totals returns the derived amounts of the current draft.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo.Totals(s.draft.Items.items, s.draft.Discount, s.draft.Paid)
}

// LastError returns the reason of the last rejected or failed submission.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Result returns the persisted sale once the session is submitted.
func (s *Session) Result() (Sale, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == StateSubmitted
}

// Edit applies fn to the draft. The draft is left unchanged when fn fails.
func (s *Session) Edit(fn func(Draft) (Draft, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateSubmitted:
		return ErrSessionClosed
	}
	next, err := fn(s.draft)
	if err != nil {
		return err
	}
	s.draft = next
	s.state = StateComposing
	return nil
}

// SetCustomer selects the customer of the sale.
func (s *Session) SetCustomer(id string) error {
	return s.Edit(func(d Draft) (Draft, error) {
		d.CustomerID = strings.TrimSpace(id)
		return d, nil
	})
}

// SetDiscount stores the flat discount typed by the user.
func (s *Session) SetDiscount(raw string) error {
	return s.Edit(func(d Draft) (Draft, error) {
		d.Discount = money.Parse(raw)
		return d, nil
	})
}

// SetPaid stores the amount collected at the time of sale.
func (s *Session) SetPaid(raw string) error {
	return s.Edit(func(d Draft) (Draft, error) {
		d.Paid = money.Parse(raw)
		return d, nil
	})
}

// SetMode selects the payment mode.
func (s *Session) SetMode(raw string) error {
	mode, err := ParseMode(raw)
	if err != nil {
		return err
	}
	return s.Edit(func(d Draft) (Draft, error) {
		d.Mode = mode
		return d, nil
	})
}

// AddItem appends a line item for p.
func (s *Session) AddItem(p Product) error {
	return s.Edit(func(d Draft) (Draft, error) {
		items, err := d.Items.Add(p)
		d.Items = items
		return d, err
	})
}

// UpdateQuantity changes the quantity of the item at index.
func (s *Session) UpdateQuantity(index int, raw string) (*StockWarning, error) {
	var warning *StockWarning
	err := s.Edit(func(d Draft) (Draft, error) {
		items, w, err := d.Items.UpdateQuantity(index, raw)
		d.Items = items
		warning = w
		return d, err
	})
	return warning, err
}

// UpdateRate changes the rate of the item at index.
func (s *Session) UpdateRate(index int, raw string) error {
	return s.Edit(func(d Draft) (Draft, error) {
		items, err := d.Items.UpdateRate(index, raw)
		d.Items = items
		return d, err
	})
}

// RemoveItem drops the item at index.
func (s *Session) RemoveItem(index int) error {
	return s.Edit(func(d Draft) (Draft, error) {
		items, err := d.Items.Remove(index)
		d.Items = items
		return d, err
	})
}

// Submit validates the draft and hands it to sub. Concurrent calls while a
// submission is running return ErrSubmitInFlight.
func (s *Session) Submit(ctx context.Context, sub Submitter) (Sale, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return Sale{}, ErrSubmitInFlight
	case StateSubmitted:
		s.mu.Unlock()
		return Sale{}, ErrSessionClosed
	}
	s.state = StateValidating
	payload, err := Validate(s.draft, s.strictness)
	if err != nil {
		s.state = StateRejected
		s.lastErr = err
		s.mu.Unlock()
		return Sale{}, err
	}
	s.state = StateSubmitting
	editID := s.editID
	s.mu.Unlock()

	var result Sale
	if editID != "" {
		result, err = sub.UpdateSale(ctx, editID, payload)
	} else {
		result, err = sub.CreateSale(ctx, payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateSubmitFailed
		s.lastErr = err
		return Sale{}, err
	}
	s.state = StateSubmitted
	s.lastErr = nil
	s.result = result
	return result, nil
}
