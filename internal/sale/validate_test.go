package sale_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-sales/internal/money"
	"github.com/noah-isme/toko-sales/internal/sale"
)

func draftWith(t *testing.T, customer string, items ...sale.LineItem) sale.Draft {
	t.Helper()
	ledger, err := sale.NewLedger(items...)
	require.NoError(t, err)
	d := sale.NewDraft()
	d.CustomerID = customer
	d.Items = ledger
	return d
}

func TestValidateRuleOrder(t *testing.T) {
	d := sale.NewDraft()
	d.Paid = amount("abc")
	_, err := sale.Validate(d, sale.Strict)
	require.ErrorIs(t, err, sale.ErrMissingCustomer)

	d.CustomerID = "  "
	_, err = sale.Validate(d, sale.Strict)
	require.ErrorIs(t, err, sale.ErrMissingCustomer)

	d.CustomerID = "c1"
	_, err = sale.Validate(d, sale.Strict)
	require.ErrorIs(t, err, sale.ErrEmptyCart)

	d = draftWith(t, "c1", item("a", "0", "10"))
	d.Paid = amount("abc")
	_, err = sale.Validate(d, sale.Strict)
	require.ErrorIs(t, err, sale.ErrInvalidQuantity)

	_, err = sale.Validate(d, sale.Lenient)
	require.ErrorIs(t, err, sale.ErrInvalidPaidAmount)
}

func TestValidateEmptyCartRegardlessOfAmounts(t *testing.T) {
	d := draftWith(t, "c1")
	d.Discount = amount("50")
	d.Paid = amount("999")
	_, err := sale.Validate(d, sale.Lenient)
	require.ErrorIs(t, err, sale.ErrEmptyCart)
}

func TestValidateStrictRejectsEmptyQuantity(t *testing.T) {
	d := draftWith(t, "c1", item("a", "2", "10"), item("b", "", "10"))
	_, err := sale.Validate(d, sale.Strict)
	require.ErrorIs(t, err, sale.ErrInvalidQuantity)

	payload, err := sale.Validate(d, sale.Lenient)
	require.NoError(t, err)
	require.EqualValues(t, 0, payload.Items[1].Quantity)
}

func TestValidateNegativePaid(t *testing.T) {
	d := draftWith(t, "c1", item("a", "1", "10"))
	d.Paid = amount("-5")
	_, err := sale.Validate(d, sale.Lenient)
	require.ErrorIs(t, err, sale.ErrInvalidPaidAmount)
}

func TestValidateOverPayment(t *testing.T) {
	d := draftWith(t, "c1", item("a", "1", "100"))
	d.Discount = amount("500")
	d.Paid = amount("1")
	_, err := sale.Validate(d, sale.Lenient)
	require.ErrorIs(t, err, sale.ErrOverPayment)

	d.Paid = money.Empty()
	payload, err := sale.Validate(d, sale.Lenient)
	require.NoError(t, err)
	require.True(t, payload.NetAmount.IsZero())
	require.True(t, payload.PaidAmount.IsZero())
}

func TestValidatePaidEqualToNetIsAccepted(t *testing.T) {
	d := draftWith(t, "c1", item("a", "2", "50"), item("b", "1", "30"))
	d.Discount = amount("10")
	d.Paid = amount("120")
	_, err := sale.Validate(d, sale.Strict)
	require.NoError(t, err)
}

func TestValidatePayloadShape(t *testing.T) {
	d := draftWith(t, " c1 ", item("a", "2", "50"), item("b", "1", "30.5"))
	d.Discount = amount("10")
	d.Paid = amount("50")
	d.Mode = sale.ModeUPI

	payload, err := sale.Validate(d, sale.Lenient)
	require.NoError(t, err)
	require.Equal(t, "c1", payload.CustomerID)
	require.Equal(t, "130.5", payload.GrossAmount.String())
	require.Equal(t, "120.5", payload.NetAmount.String())

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"customerId": "c1",
		"items": [
			{"productId": "a", "quantity": 2, "rate": 50},
			{"productId": "b", "quantity": 1, "rate": 30.5}
		],
		"grossAmount": 130.5,
		"discount": 10,
		"netAmount": 120.5,
		"paidAmount": 50,
		"paymentMode": "UPI"
	}`, string(raw))
}

func TestValidationErrorsCarryReason(t *testing.T) {
	d := draftWith(t, "")
	_, err := sale.Validate(d, sale.Lenient)
	require.Error(t, err)
	require.Equal(t, "please select a customer", err.Error())
	require.Equal(t, "MissingCustomer", sale.ErrMissingCustomer.Reason)
}

func TestParseStrictness(t *testing.T) {
	require.Equal(t, sale.Strict, sale.ParseStrictness(" STRICT "))
	require.Equal(t, sale.Lenient, sale.ParseStrictness(""))
	require.Equal(t, sale.Lenient, sale.ParseStrictness("whatever"))
}

func TestParseMode(t *testing.T) {
	mode, err := sale.ParseMode("")
	require.NoError(t, err)
	require.Equal(t, sale.ModeCash, mode)

	mode, err = sale.ParseMode("card")
	require.NoError(t, err)
	require.Equal(t, sale.ModeCard, mode)

	_, err = sale.ParseMode("CHEQUE")
	require.ErrorIs(t, err, sale.ErrInvalidPaymentMode)
}
