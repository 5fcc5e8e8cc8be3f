package wallet

import "errors"

var (
	// ErrWalletNotCreated is returned when wallet doesn't exist
	ErrWalletNotCreated = errors.New("wallet not created yet")

	// ErrWalletAlreadyExists is returned when trying to create duplicate wallet
	ErrWalletAlreadyExists = errors.New("wallet already exists")

	// ErrInvalidPIN is returned when PIN is incorrect
	ErrInvalidPIN = errors.New("invalid PIN")

	// ErrInvalidPINFormat is returned when PIN format is invalid
	ErrInvalidPINFormat = errors.New("PIN must be 4 digits")

	// ErrKeystoreFailed is returned when keystore operation fails
	ErrKeystoreFailed = errors.New("keystore operation failed")

	// ErrNotConnected is returned when signing without a connected session
	ErrNotConnected = errors.New("wallet session not connected")
)
