package sale

import (
	"fmt"
	"net/http"

	"github.com/noah-isme/toko-sales/internal/common"
)

var (
	// ErrDuplicateItem is returned when a product is already part of the ledger.
	ErrDuplicateItem = common.NewValidationError("DuplicateItem", "product already added, update quantity in the list")
	// ErrOutOfStock is returned when the selected product has no stock left.
	ErrOutOfStock = common.NewValidationError("OutOfStock", "product out of stock")
	// ErrInvalidPaymentMode indicates a payment mode outside the create-sale set.
	ErrInvalidPaymentMode = common.NewValidationError("InvalidPaymentMode", "payment mode must be one of CASH, UPI, CARD")

	// ErrMissingCustomer is the first submission rule: a customer must be selected.
	ErrMissingCustomer = common.NewValidationError("MissingCustomer", "please select a customer")
	// ErrEmptyCart is reported when the ledger has no items.
	ErrEmptyCart = common.NewValidationError("EmptyCart", "please add at least one item")
	// ErrInvalidQuantity is reported in strict mode when an item quantity is not positive.
	ErrInvalidQuantity = common.NewValidationError("InvalidQuantity", "every item needs a quantity greater than 0")
	// ErrInvalidPaidAmount is reported when the paid amount is not a non-negative number.
	ErrInvalidPaidAmount = common.NewValidationError("InvalidPaidAmount", "please enter a valid paid amount")
	// ErrOverPayment is reported when the paid amount exceeds the net amount.
	ErrOverPayment = common.NewValidationError("OverPayment", "paid amount cannot be greater than net amount")
)

var (
	// ErrItemIndex is returned for ledger positions that do not exist.
	ErrItemIndex = common.NewHTTPError(http.StatusBadRequest, "BAD_REQUEST", "line item index out of range")
	// ErrSubmitInFlight is returned when a submission is already running for the session.
	ErrSubmitInFlight = common.NewHTTPError(http.StatusConflict, "SUBMIT_IN_FLIGHT", "sale submission already in progress")
	// ErrSessionClosed is returned once a session has been submitted.
	ErrSessionClosed = common.NewHTTPError(http.StatusConflict, "SESSION_CLOSED", "sale already submitted")
)

// StockWarning is raised when a requested quantity exceeded the stock snapshot
// and was clamped. It never fails the operation.
type StockWarning struct {
	ProductID string `json:"productId"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// Message renders the warning for display.
func (w StockWarning) Message() string {
	return fmt.Sprintf("only %d units available in stock", w.Available)
}
