package payment

import "strings"

// Mode is the way a standalone payment is received.
type Mode string

const (
	ModeCash         Mode = "CASH"
	ModeUPI          Mode = "UPI"
	ModeBankTransfer Mode = "BANK_TRANSFER"
	ModeCheque       Mode = "CHEQUE"
)

// Modes lists the payment modes accepted when recording a payment.
func Modes() []Mode { return []Mode{ModeCash, ModeUPI, ModeBankTransfer, ModeCheque} }

// ParseMode validates s against the payment-recording modes. Blank input
// defaults to cash.
func ParseMode(s string) (Mode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return ModeCash, nil
	}
	for _, m := range Modes() {
		if Mode(normalized) == m {
			return m, nil
		}
	}
	return "", ErrInvalidPaymentMode
}
