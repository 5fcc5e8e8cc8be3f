package purchase

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AssetBalance is one balance query result: the raw smallest-unit
// amount and the scale to read it at. A nil *AssetBalance means the
// balance could not be loaded.
type AssetBalance struct {
	Asset    Asset
	Raw      *big.Int
	Decimals int32
}

// Human returns the balance in human units.
func (b *AssetBalance) Human() decimal.Decimal {
	if b == nil || b.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.Raw, -b.Decimals)
}

// Covers reports whether the balance is sufficient for the requested
// human-unit amount. It fails closed: a nil balance or an amount that
// does not parse as a non-negative decimal is never sufficient.
func (b *AssetBalance) Covers(requested string) bool {
	if b == nil || b.Raw == nil {
		return false
	}
	v, ok := parseAmount(requested)
	if !ok {
		return false
	}
	return v.Cmp(b.Human()) <= 0
}
