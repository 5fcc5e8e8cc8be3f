package purchase

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Rates holds the fixed exchange rate per payment asset. The rate is a
// plain multiplier: tokens = paid amount * rate.
type Rates struct {
	Stable decimal.Decimal
	Native decimal.Decimal
}

// NewRates builds Rates from the integer multipliers in config.
func NewRates(stable, native int64) Rates {
	return Rates{
		Stable: decimal.NewFromInt(stable),
		Native: decimal.NewFromInt(native),
	}
}

// Quote is the token amount derived from an entered payment amount.
// Valid is false when the entered amount did not parse as a
// non-negative decimal; callers must render "no preview" instead of a
// number in that case.
type Quote struct {
	Tokens decimal.Decimal
	Valid  bool
}

func (q Quote) String() string {
	if !q.Valid {
		return "-"
	}
	return q.Tokens.String()
}

// Rate returns the multiplier for one asset.
func (r Rates) Rate(asset Asset) decimal.Decimal {
	if asset == AssetNative {
		return r.Native
	}
	return r.Stable
}

// Convert maps an entered payment amount to the equivalent token
// quantity. Pure: no side effects, no chain access.
func (r Rates) Convert(asset Asset, amount string) Quote {
	v, ok := parseAmount(amount)
	if !ok {
		return Quote{}
	}
	return Quote{Tokens: v.Mul(r.Rate(asset)), Valid: true}
}

// parseAmount parses a human-unit decimal string, rejecting anything
// that is not a non-negative number.
func parseAmount(amount string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(amount)
	if err != nil || v.IsNegative() {
		return decimal.Decimal{}, false
	}
	return v, true
}

// ToWei converts a human-unit amount to its smallest-unit integer
// representation at the given decimal scale, truncating any precision
// beyond the scale.
func ToWei(amount string, decimals int32) (*big.Int, error) {
	v, ok := parseAmount(amount)
	if !ok {
		return nil, ErrBadAmount
	}
	return v.Shift(decimals).Truncate(0).BigInt(), nil
}
