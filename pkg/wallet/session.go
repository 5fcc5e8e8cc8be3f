// Package wallet manages the local wallet session: a keystore-backed
// account with an explicit connect/disconnect lifecycle. Only this
// package mutates connection state; everyone else reads it.
package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topsale/presale/pkg/chain"
	"github.com/topsale/presale/pkg/logger"
)

// Status is the session's connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// WalletInfo stores wallet metadata alongside the keystore.
type WalletInfo struct {
	Address   common.Address `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	Encrypted bool           `json:"encrypted"`
}

// Session is the wallet session. The address is defined if and only if
// the session is connected; a disconnected session reads as the zero
// address.
type Session struct {
	walletDir string
	keystore  *keystore.KeyStore

	mu        sync.RWMutex
	connected bool
	subs      map[chan Status]struct{}
}

// NewSession opens (or creates) the keystore directory.
func NewSession(walletDir string) *Session {
	return newSession(walletDir, keystore.StandardScryptN, keystore.StandardScryptP)
}

func newSession(walletDir string, scryptN, scryptP int) *Session {
	os.MkdirAll(walletDir, 0o700)
	return &Session{
		walletDir: walletDir,
		keystore:  keystore.NewKeyStore(walletDir, scryptN, scryptP),
		subs:      make(map[chan Status]struct{}),
	}
}

// Exists reports whether a wallet has been created.
func (s *Session) Exists() bool {
	return len(s.keystore.Accounts()) > 0
}

// Create creates the wallet account protected by the PIN.
func (s *Session) Create(pin string) (common.Address, error) {
	if s.Exists() {
		return common.Address{}, ErrWalletAlreadyExists
	}
	if !ValidatePIN(pin) {
		return common.Address{}, ErrInvalidPINFormat
	}

	account, err := s.keystore.NewAccount(pin)
	if err != nil {
		return common.Address{}, ErrKeystoreFailed
	}

	info := WalletInfo{
		Address:   account.Address,
		CreatedAt: time.Now(),
		Encrypted: true,
	}
	data, _ := json.MarshalIndent(info, "", "  ")
	os.WriteFile(filepath.Join(s.walletDir, "wallet.json"), data, 0o600)

	logger.InfoCF("wallet", "Wallet created", map[string]any{
		"address": account.Address.Hex(),
	})

	return account.Address, nil
}

// Connect unlocks the wallet with the PIN. A wrong PIN is a declined
// connection: the error is returned and the session stays
// disconnected.
func (s *Session) Connect(pin string) error {
	accts := s.keystore.Accounts()
	if len(accts) == 0 {
		return ErrWalletNotCreated
	}

	if err := s.keystore.Unlock(accts[0], pin); err != nil {
		logger.WarnCF("wallet", "Connection declined", map[string]any{
			"address": accts[0].Address.Hex(),
		})
		return ErrInvalidPIN
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.broadcast(StatusConnected)

	logger.InfoCF("wallet", "Wallet connected", map[string]any{
		"address": accts[0].Address.Hex(),
	})
	return nil
}

// Disconnect locks the key and clears the session address. Already
// submitted transactions keep being watched; disconnecting only hides
// the purchase surface.
func (s *Session) Disconnect() {
	accts := s.keystore.Accounts()
	if len(accts) > 0 {
		s.keystore.Lock(accts[0].Address)
	}

	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.mu.Unlock()

	if wasConnected {
		s.broadcast(StatusDisconnected)
		logger.InfoC("wallet", "Wallet disconnected")
	}
}

// Status returns the connection state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connected {
		return StatusConnected
	}
	return StatusDisconnected
}

// Connected reports whether the session is connected.
func (s *Session) Connected() bool {
	return s.Status() == StatusConnected
}

// Address returns the active account address, or the zero address when
// disconnected.
func (s *Session) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return common.Address{}
	}
	accts := s.keystore.Accounts()
	if len(accts) == 0 {
		return common.Address{}
	}
	return accts[0].Address
}

// Signer returns a SignerFunc bound to the session account. Signing
// fails once the session has disconnected, which the purchase flow
// reports as a submission rejection.
func (s *Session) Signer() chain.SignerFunc {
	return func(ctx context.Context, chainID int64, tx *types.Transaction) (*types.Transaction, error) {
		addr := s.Address()
		if addr == (common.Address{}) {
			return nil, ErrNotConnected
		}
		return s.keystore.SignTx(accounts.Account{Address: addr}, tx, big.NewInt(chainID))
	}
}

// Subscribe returns a status stream and a cancel function.
func (s *Session) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 4)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(status Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
