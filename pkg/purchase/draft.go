package purchase

import "sync"

// Draft holds the user's in-progress input: which asset tab is active
// and the amount entered per asset. Amounts are kept independently so
// switching tabs never loses input. The derived token amount is never
// stored; Quote recomputes it from the current input every time.
type Draft struct {
	mu       sync.RWMutex
	selected Asset
	amounts  map[Asset]string
}

func NewDraft() *Draft {
	return &Draft{
		selected: AssetStable,
		amounts:  make(map[Asset]string),
	}
}

// Select makes an asset tab active. In-flight attempts on either lane
// are unaffected.
func (d *Draft) Select(asset Asset) {
	d.mu.Lock()
	d.selected = asset
	d.mu.Unlock()
}

// Selected returns the active asset tab.
func (d *Draft) Selected() Asset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// SetAmount records the entered amount for one asset. The raw string
// is kept as typed; validation happens at quote and purchase time.
func (d *Draft) SetAmount(asset Asset, amount string) {
	d.mu.Lock()
	d.amounts[asset] = amount
	d.mu.Unlock()
}

// Amount returns the entered amount for one asset, empty if none.
func (d *Draft) Amount(asset Asset) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.amounts[asset]
}

// Quote derives the token amount for the active tab's entered amount.
func (d *Draft) Quote(rates Rates) Quote {
	d.mu.RLock()
	asset := d.selected
	amount := d.amounts[asset]
	d.mu.RUnlock()
	return rates.Convert(asset, amount)
}
