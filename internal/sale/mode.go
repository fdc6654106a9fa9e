package sale

import "strings"

// Mode is the way a sale is paid for at the counter.
type Mode string

const (
	ModeCash Mode = "CASH"
	ModeUPI  Mode = "UPI"
	ModeCard Mode = "CARD"
)

// Modes lists the payment modes accepted when creating a sale.
func Modes() []Mode { return []Mode{ModeCash, ModeUPI, ModeCard} }

// ParseMode validates s against the create-sale payment modes. Blank input
// defaults to cash.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModeCash:
		return ModeCash, nil
	case ModeUPI:
		return ModeUPI, nil
	case ModeCard:
		return ModeCard, nil
	default:
		return "", ErrInvalidPaymentMode
	}
}
