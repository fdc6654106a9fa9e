package sale_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-sales/internal/money"
	"github.com/noah-isme/toko-sales/internal/sale"
)

func qty(raw string) money.Field    { return money.Parse(raw) }
func amount(raw string) money.Field { return money.Parse(raw) }

func item(id, quantity, rate string) sale.LineItem {
	return sale.LineItem{ProductID: id, Quantity: qty(quantity), Rate: amount(rate), MaxStock: 100}
}

func TestComputeTotalsExample(t *testing.T) {
	items := []sale.LineItem{item("a", "2", "50"), item("b", "1", "30")}
	totals := sale.ComputeTotals(items, amount("10"), amount("50"))
	require.Equal(t, "130", totals.Gross.String())
	require.Equal(t, "120", totals.Net.String())
	require.Equal(t, "70", totals.Pending.String())
}

func TestComputeTotalsFloorsAtZero(t *testing.T) {
	items := []sale.LineItem{item("a", "1", "100")}
	totals := sale.ComputeTotals(items, amount("500"), amount("0"))
	require.Equal(t, "100", totals.Gross.String())
	require.True(t, totals.Net.IsZero())
	require.True(t, totals.Pending.IsZero())
}

func TestComputeTotalsCoercesGarbage(t *testing.T) {
	items := []sale.LineItem{item("a", "", "50"), item("b", "2", "x"), item("c", "3", "1.5")}
	totals := sale.ComputeTotals(items, amount("n/a"), amount(""))
	require.Equal(t, "4.5", totals.Gross.String())
	require.Equal(t, "4.5", totals.Net.String())
	require.Equal(t, "4.5", totals.Pending.String())
}

func TestComputeTotalsExactDecimal(t *testing.T) {
	items := []sale.LineItem{item("a", "1", "0.1"), item("b", "1", "0.2")}
	totals := sale.ComputeTotals(items, money.Empty(), money.Empty())
	require.True(t, totals.Gross.Equal(decimal.RequireFromString("0.3")))
}

func TestComputeTotalsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 200 {
		var items []sale.LineItem
		want := decimal.Zero
		for j := range rng.Intn(6) {
			q := decimal.NewFromInt(rng.Int63n(20))
			r := decimal.New(rng.Int63n(100000), -2)
			items = append(items, sale.LineItem{ProductID: string(rune('a' + j)), Quantity: money.Of(q), Rate: money.Of(r)})
			want = want.Add(q.Mul(r))
		}
		discount := decimal.New(rng.Int63n(50000), -2)
		paid := decimal.New(rng.Int63n(50000), -2)

		totals := sale.ComputeTotals(items, money.Of(discount), money.Of(paid))
		require.True(t, totals.Gross.Equal(want))
		require.True(t, totals.Net.Equal(decimal.Max(decimal.Zero, want.Sub(discount))))
		require.True(t, totals.Pending.Equal(decimal.Max(decimal.Zero, totals.Net.Sub(paid))))
		require.False(t, totals.Net.IsNegative())
		require.False(t, totals.Pending.IsNegative())

		again := sale.ComputeTotals(items, money.Of(discount), money.Of(paid))
		require.Equal(t, totals, again)
	}
}

func TestMemoRecomputesOnChange(t *testing.T) {
	var memo sale.Memo
	items := []sale.LineItem{item("a", "2", "50")}

	first := memo.Totals(items, amount("0"), amount("0"))
	second := memo.Totals(items, amount("0"), amount("0"))
	require.Equal(t, first, second)

	items[0].Quantity = qty("3")
	third := memo.Totals(items, amount("0"), amount("0"))
	require.Equal(t, "150", third.Gross.String())

	fourth := memo.Totals(items, amount("20"), amount("100"))
	require.Equal(t, "130", fourth.Net.String())
	require.Equal(t, "30", fourth.Pending.String())
}
