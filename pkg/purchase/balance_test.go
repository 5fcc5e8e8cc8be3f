package purchase

import (
	"math/big"
	"testing"
)

func stableBalance(raw string, decimals int32) *AssetBalance {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		panic("bad raw value: " + raw)
	}
	return &AssetBalance{Asset: AssetStable, Raw: v, Decimals: decimals}
}

func TestCovers_NilBalance(t *testing.T) {
	var b *AssetBalance
	if b.Covers("1") {
		t.Error("nil balance must never cover")
	}
	if b.Covers("0") {
		t.Error("nil balance must never cover, even for zero")
	}
}

func TestCovers_ExactBoundary(t *testing.T) {
	// 5 * 10^18 at 18 decimals is exactly 5 human units.
	b := stableBalance("5000000000000000000", 18)

	if !b.Covers("5") {
		t.Error("Covers(5) = false, want true")
	}
	if b.Covers("5.0001") {
		t.Error("Covers(5.0001) = true, want false")
	}
	if !b.Covers("4.999999999999999999") {
		t.Error("Covers(4.999999999999999999) = false, want true")
	}
}

func TestCovers_UnparsableFailsClosed(t *testing.T) {
	b := stableBalance("5000000000000000000", 18)
	for _, amount := range []string{"", "abc", "-1", "1.2.3"} {
		if b.Covers(amount) {
			t.Errorf("Covers(%q) = true, want false", amount)
		}
	}
}

func TestCovers_RespectsDecimals(t *testing.T) {
	// Same raw value, 6 decimals: 5_000_000 raw = 5 human units.
	b := stableBalance("5000000", 6)
	if !b.Covers("5") {
		t.Error("Covers(5) = false, want true")
	}
	if b.Covers("5.000001") {
		t.Error("Covers(5.000001) = true, want false")
	}
}

func TestHuman(t *testing.T) {
	b := stableBalance("1500000000000000000", 18)
	if got := b.Human().String(); got != "1.5" {
		t.Errorf("Human() = %s, want 1.5", got)
	}

	var nilBal *AssetBalance
	if !nilBal.Human().IsZero() {
		t.Error("nil balance Human() should be zero")
	}
}
