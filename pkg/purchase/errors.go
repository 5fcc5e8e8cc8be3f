package purchase

import "errors"

var (
	// ErrNotConnected is returned when a purchase is requested without
	// a connected wallet session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrBadAmount is returned when an entered amount does not parse
	// as a non-negative decimal.
	ErrBadAmount = errors.New("amount is not a non-negative decimal")
)
