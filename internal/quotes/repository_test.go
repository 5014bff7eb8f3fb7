package quotes

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumericRoundTripIsExact(t *testing.T) {
	// The last value exceeds float64's 15-16 significant digits; a float
	// detour would corrupt it.
	for _, s := range []string{
		"0",
		"0.01",
		"15000",
		"-42.50",
		"49999.995",
		"123456789012345678.91",
	} {
		d := decimal.RequireFromString(s)
		assert.True(t, fromNumeric(numeric(d)).Equal(d), "value %s", s)
	}
}

func TestFromNumericZeroValues(t *testing.T) {
	assert.True(t, fromNumeric(pgtype.Numeric{}).IsZero())
	assert.True(t, fromNumeric(pgtype.Numeric{Valid: true, NaN: true}).IsZero())
}
