package payment

import (
	"net/http"

	"github.com/noah-isme/toko-sales/internal/common"
)

var (
	// ErrInvalidAmount is reported when the amount is not a number greater than zero.
	ErrInvalidAmount = common.NewValidationError("InvalidAmount", "please enter a valid amount")
	// ErrBillRequired is reported when the customer has pending bills and none is selected.
	ErrBillRequired = common.NewValidationError("BillRequired", "please select a bill")
	// ErrExceedsBillDue is reported when the amount is above the selected bill's pending amount.
	ErrExceedsBillDue = common.NewValidationError("ExceedsBillDue", "amount cannot exceed the bill pending amount")
	// ErrExceedsCustomerDue is reported when the amount is above the customer's total pending due.
	ErrExceedsCustomerDue = common.NewValidationError("ExceedsCustomerDue", "amount cannot exceed the customer pending due")
	// ErrUnknownBill is returned when the selected bill is not one of the customer's pending bills.
	ErrUnknownBill = common.NewValidationError("UnknownBill", "selected bill is not pending for this customer")
	// ErrInvalidPaymentMode indicates a payment mode outside the payment-recording set.
	ErrInvalidPaymentMode = common.NewValidationError("InvalidPaymentMode", "payment mode must be one of CASH, UPI, BANK_TRANSFER, CHEQUE")
)

// ErrSubmitInFlight is returned when a payment for the same customer is already being recorded.
var ErrSubmitInFlight = common.NewHTTPError(http.StatusConflict, "SUBMIT_IN_FLIGHT", "payment already being recorded for this customer")
