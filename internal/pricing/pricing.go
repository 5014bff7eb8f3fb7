// Package pricing computes quote and invoice totals, Swedish VAT and the
// ROT/RUT labor deduction. All functions are pure and safe for concurrent use.
package pricing

import "github.com/shopspring/decimal"

// Category classifies a line item. Only labor is deduction-eligible.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryMaterial Category = "material"
)

// Regime selects the tax-deduction rule set applied to a document.
type Regime string

const (
	RegimeNone Regime = "none"
	RegimeROT  Regime = "rot"
	RegimeRUT  Regime = "rut"
)

// LineItem is one priced row on a quote or invoice. Amounts are in SEK.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Category    Category
}

// Amount returns quantity * unit price at full precision.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// DeductionRates holds the legally defined ROT/RUT percentages and caps.
// These figures are set by Swedish tax law, not by this codebase; they are
// injected from configuration so a rate change never requires a code change.
type DeductionRates struct {
	ROTRatePercent  decimal.Decimal
	ROTCap          decimal.Decimal
	RUTRatePercent  decimal.Decimal
	RUTCapPerPerson decimal.Decimal
}

// DefaultRates returns the rates in force as of 2025: ROT 30% capped at
// 50 000 SEK per property, RUT 50% capped at 25 000 SEK per household member.
func DefaultRates() DeductionRates {
	return DeductionRates{
		ROTRatePercent:  decimal.NewFromInt(30),
		ROTCap:          decimal.NewFromInt(50000),
		RUTRatePercent:  decimal.NewFromInt(50),
		RUTCapPerPerson: decimal.NewFromInt(25000),
	}
}

// Config drives a single calculation.
type Config struct {
	VATRatePercent  decimal.Decimal
	DiscountPercent decimal.Decimal
	Regime          Regime
	// HouseholdSize is only meaningful under RUT; values below 1 are
	// treated as 1, never rejected, so a half-filled form still previews.
	HouseholdSize int
	Rates         DeductionRates
}

// DefaultConfig returns a Config with the Swedish standard VAT rate of 25%
// and the default deduction rates.
func DefaultConfig(regime Regime) Config {
	return Config{
		VATRatePercent: decimal.NewFromInt(25),
		Regime:         regime,
		Rates:          DefaultRates(),
	}
}

// Totals is the aggregate computed from a line item list. All fields carry
// full precision; call Rounded before display or persistence.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	VATAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	LaborBase       decimal.Decimal
	DeductionAmount decimal.Decimal
	NetPayable      decimal.Decimal
}

// Rounded rounds every monetary field to whole kronor using banker's
// rounding, which avoids systematic bias when totals are aggregated.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:        t.Subtotal.RoundBank(0),
		DiscountAmount:  t.DiscountAmount.RoundBank(0),
		VATAmount:       t.VATAmount.RoundBank(0),
		TotalAmount:     t.TotalAmount.RoundBank(0),
		LaborBase:       t.LaborBase.RoundBank(0),
		DeductionAmount: t.DeductionAmount.RoundBank(0),
		NetPayable:      t.NetPayable.RoundBank(0),
	}
}

var hundred = decimal.NewFromInt(100)

// Calculate computes document totals from line items and configuration.
//
//	subtotal    = Σ quantity*unitPrice
//	discount    = subtotal * discountPercent/100
//	vat         = (subtotal - discount) * vatRate/100
//	total       = subtotal - discount + vat
//	deduction   = min(laborBase * regimeRate, regimeCap, total)
//	netPayable  = total - deduction
//
// The deduction base is the sum of work-category lines only; material cost is
// never deduction-eligible. Invalid input is rejected with *ValidationError,
// never silently clamped.
func Calculate(items []LineItem, cfg Config) (Totals, error) {
	if err := cfg.validate(); err != nil {
		return Totals{}, err
	}

	var subtotal, laborBase decimal.Decimal
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return Totals{}, newItemError("quantity", i, "must not be negative")
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, newItemError("unit_price", i, "must not be negative")
		}
		switch item.Category {
		case CategoryWork, CategoryMaterial:
		default:
			return Totals{}, newItemError("category", i, "must be work or material")
		}

		amount := item.Amount()
		subtotal = subtotal.Add(amount)
		if item.Category == CategoryWork {
			laborBase = laborBase.Add(amount)
		}
	}

	discount := subtotal.Mul(cfg.DiscountPercent).Div(hundred)
	taxableBase := subtotal.Sub(discount)
	vat := taxableBase.Mul(cfg.VATRatePercent).Div(hundred)
	total := taxableBase.Add(vat)

	rates := cfg.Rates
	if rates == (DeductionRates{}) {
		rates = DefaultRates()
	}

	var deduction decimal.Decimal
	switch cfg.Regime {
	case RegimeNone:
	case RegimeROT:
		raw := laborBase.Mul(rates.ROTRatePercent).Div(hundred)
		deduction = decimal.Min(raw, rates.ROTCap, total)
	case RegimeRUT:
		household := cfg.HouseholdSize
		if household < 1 {
			household = 1
		}
		raw := laborBase.Mul(rates.RUTRatePercent).Div(hundred)
		cap := rates.RUTCapPerPerson.Mul(decimal.NewFromInt(int64(household)))
		deduction = decimal.Min(raw, cap, total)
	}

	return Totals{
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		VATAmount:       vat,
		TotalAmount:     total,
		LaborBase:       laborBase,
		DeductionAmount: deduction,
		NetPayable:      total.Sub(deduction),
	}, nil
}

func (cfg Config) validate() error {
	switch cfg.Regime {
	case RegimeNone, RegimeROT, RegimeRUT:
	default:
		return newFieldError("deduction_regime", "must be none, rot or rut")
	}
	if cfg.VATRatePercent.IsNegative() {
		return newFieldError("vat_rate_percent", "must not be negative")
	}
	if cfg.DiscountPercent.IsNegative() || cfg.DiscountPercent.GreaterThan(hundred) {
		return newFieldError("discount_percent", "must be between 0 and 100")
	}
	return nil
}
