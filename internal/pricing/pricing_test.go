package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func workItem(qty, price string) LineItem {
	return LineItem{Description: "labor", Quantity: dec(qty), UnitPrice: dec(price), Category: CategoryWork}
}

func materialItem(qty, price string) LineItem {
	return LineItem{Description: "material", Quantity: dec(qty), UnitPrice: dec(price), Category: CategoryMaterial}
}

func TestCalculateEmptyItems(t *testing.T) {
	totals, err := Calculate(nil, DefaultConfig(RegimeNone))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.VATAmount.IsZero())
	assert.True(t, totals.TotalAmount.IsZero())
	assert.True(t, totals.DeductionAmount.IsZero())
	assert.True(t, totals.NetPayable.IsZero())
}

func TestCalculateROTScenario(t *testing.T) {
	// 10 000 SEK labor + 2 000 SEK material at 25% VAT under ROT.
	items := []LineItem{
		workItem("2", "2500"),
		workItem("1", "3000"),
		workItem("4", "500"),
		materialItem("1", "2000"),
	}

	totals, err := Calculate(items, DefaultConfig(RegimeROT))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec("12000")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.VATAmount.Equal(dec("3000")), "vat %s", totals.VATAmount)
	assert.True(t, totals.TotalAmount.Equal(dec("15000")), "total %s", totals.TotalAmount)
	assert.True(t, totals.LaborBase.Equal(dec("10000")), "labor base %s", totals.LaborBase)
	// 30% of the 10 000 labor base, well under both caps.
	assert.True(t, totals.DeductionAmount.Equal(dec("3000")), "deduction %s", totals.DeductionAmount)
	assert.True(t, totals.NetPayable.Equal(dec("12000")), "net %s", totals.NetPayable)
}

func TestCalculateRUTCapped(t *testing.T) {
	// Labor-only project of 60 000 SEK, household of one: the raw 50%
	// deduction of 30 000 must be capped at 25 000.
	items := []LineItem{workItem("60", "1000")}
	cfg := DefaultConfig(RegimeRUT)
	cfg.HouseholdSize = 1

	totals, err := Calculate(items, cfg)
	require.NoError(t, err)

	assert.True(t, totals.DeductionAmount.Equal(dec("25000")), "deduction %s", totals.DeductionAmount)
	assert.True(t, totals.NetPayable.Equal(totals.TotalAmount.Sub(dec("25000"))))
}

func TestCalculateRUTHouseholdScalesCap(t *testing.T) {
	items := []LineItem{workItem("60", "1000")}
	cfg := DefaultConfig(RegimeRUT)
	cfg.HouseholdSize = 2

	totals, err := Calculate(items, cfg)
	require.NoError(t, err)

	// Cap is 2 * 25 000, so the raw 30 000 deduction fits.
	assert.True(t, totals.DeductionAmount.Equal(dec("30000")), "deduction %s", totals.DeductionAmount)
}

func TestCalculateRUTHouseholdBelowOneTreatedAsOne(t *testing.T) {
	items := []LineItem{workItem("60", "1000")}
	for _, size := range []int{0, -3} {
		cfg := DefaultConfig(RegimeRUT)
		cfg.HouseholdSize = size

		totals, err := Calculate(items, cfg)
		require.NoError(t, err)
		assert.True(t, totals.DeductionAmount.Equal(dec("25000")), "household %d", size)
	}
}

func TestCalculateRegimeNoneNeverDeducts(t *testing.T) {
	items := []LineItem{workItem("100", "1000"), materialItem("5", "200")}

	totals, err := Calculate(items, DefaultConfig(RegimeNone))
	require.NoError(t, err)
	assert.True(t, totals.DeductionAmount.IsZero())
	assert.True(t, totals.NetPayable.Equal(totals.TotalAmount))
}

func TestCalculateMaterialOnlyYieldsNoDeduction(t *testing.T) {
	items := []LineItem{materialItem("10", "500")}

	for _, regime := range []Regime{RegimeROT, RegimeRUT} {
		totals, err := Calculate(items, DefaultConfig(regime))
		require.NoError(t, err)
		assert.True(t, totals.LaborBase.IsZero())
		assert.True(t, totals.DeductionAmount.IsZero(), "regime %s", regime)
	}
}

func TestCalculateDeductionNeverExceedsTotal(t *testing.T) {
	// A full discount drives the payable total to zero; the deduction must
	// follow it down rather than go negative on the net.
	items := []LineItem{workItem("10", "1000")}
	cfg := DefaultConfig(RegimeROT)
	cfg.DiscountPercent = dec("100")

	totals, err := Calculate(items, cfg)
	require.NoError(t, err)
	assert.True(t, totals.TotalAmount.IsZero())
	assert.True(t, totals.DeductionAmount.IsZero())
	assert.True(t, totals.NetPayable.IsZero())
}

func TestCalculateDiscount(t *testing.T) {
	items := []LineItem{workItem("1", "1000")}
	cfg := DefaultConfig(RegimeNone)
	cfg.DiscountPercent = dec("10")

	totals, err := Calculate(items, cfg)
	require.NoError(t, err)

	assert.True(t, totals.DiscountAmount.Equal(dec("100")))
	assert.True(t, totals.VATAmount.Equal(dec("225")), "vat %s", totals.VATAmount)
	assert.True(t, totals.TotalAmount.Equal(dec("1125")))
}

func TestCalculateRejectsNegativeInput(t *testing.T) {
	cases := []struct {
		name  string
		items []LineItem
		field string
	}{
		{"negative quantity", []LineItem{workItem("-1", "100")}, "quantity"},
		{"negative unit price", []LineItem{workItem("1", "-100")}, "unit_price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.items, DefaultConfig(RegimeNone))
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, 0, verr.Index)
		})
	}
}

func TestCalculateRejectsBadConfig(t *testing.T) {
	items := []LineItem{workItem("1", "100")}

	cfg := DefaultConfig("rotrut")
	_, err := Calculate(items, cfg)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deduction_regime", verr.Field)

	cfg = DefaultConfig(RegimeNone)
	cfg.DiscountPercent = dec("101")
	_, err = Calculate(items, cfg)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "discount_percent", verr.Field)

	cfg = DefaultConfig(RegimeNone)
	cfg.VATRatePercent = dec("-1")
	_, err = Calculate(items, cfg)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "vat_rate_percent", verr.Field)
}

func TestCalculateRejectsUnknownCategory(t *testing.T) {
	items := []LineItem{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1"), Category: "travel"}}

	_, err := Calculate(items, DefaultConfig(RegimeNone))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
}

func TestCalculateSubtotalProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		n := rng.Intn(12)
		items := make([]LineItem, 0, n)
		expected := decimal.Zero
		for i := 0; i < n; i++ {
			qty := decimal.NewFromFloat(rng.Float64() * 50).Round(3)
			price := decimal.NewFromFloat(rng.Float64() * 5000).Round(2)
			cat := CategoryWork
			if rng.Intn(2) == 1 {
				cat = CategoryMaterial
			}
			items = append(items, LineItem{Quantity: qty, UnitPrice: price, Category: cat})
			expected = expected.Add(qty.Mul(price))
		}

		regime := []Regime{RegimeNone, RegimeROT, RegimeRUT}[rng.Intn(3)]
		cfg := DefaultConfig(regime)
		cfg.HouseholdSize = rng.Intn(5)

		totals, err := Calculate(items, cfg)
		require.NoError(t, err)
		require.True(t, totals.Subtotal.Equal(expected), "run %d: subtotal %s != %s", run, totals.Subtotal, expected)
		require.True(t, totals.DeductionAmount.LessThanOrEqual(totals.TotalAmount), "run %d", run)
		require.False(t, totals.NetPayable.IsNegative(), "run %d", run)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	items := []LineItem{workItem("3.33", "999.99"), materialItem("7", "123.45")}
	cfg := DefaultConfig(RegimeROT)
	cfg.DiscountPercent = dec("7.5")

	first, err := Calculate(items, cfg)
	require.NoError(t, err)
	second, err := Calculate(items, cfg)
	require.NoError(t, err)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.VATAmount.Equal(second.VATAmount))
	assert.True(t, first.DeductionAmount.Equal(second.DeductionAmount))
	assert.True(t, first.NetPayable.Equal(second.NetPayable))
}

func TestRoundedUsesBankersRounding(t *testing.T) {
	totals := Totals{
		Subtotal:   dec("100.5"),
		VATAmount:  dec("101.5"),
		NetPayable: dec("99.4999"),
	}

	rounded := totals.Rounded()
	assert.Equal(t, "100", rounded.Subtotal.String())
	assert.Equal(t, "102", rounded.VATAmount.String())
	assert.Equal(t, "99", rounded.NetPayable.String())
}

func TestCalculateUsesInjectedRates(t *testing.T) {
	items := []LineItem{workItem("10", "1000")}
	cfg := DefaultConfig(RegimeROT)
	cfg.Rates = DeductionRates{
		ROTRatePercent:  dec("50"),
		ROTCap:          dec("4000"),
		RUTRatePercent:  dec("50"),
		RUTCapPerPerson: dec("25000"),
	}

	totals, err := Calculate(items, cfg)
	require.NoError(t, err)
	// 50% of 10 000 labor is 5 000, capped by the injected 4 000 ceiling.
	assert.True(t, totals.DeductionAmount.Equal(dec("4000")), "deduction %s", totals.DeductionAmount)
}
