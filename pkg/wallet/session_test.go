package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	return newSession(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
}

func TestCreateAndConnect(t *testing.T) {
	s := testSession(t)

	if s.Exists() {
		t.Fatal("fresh session should have no wallet")
	}

	addr, err := s.Create("1234")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if addr == (common.Address{}) {
		t.Fatal("create returned zero address")
	}
	if !s.Exists() {
		t.Fatal("wallet should exist after create")
	}

	// Not connected yet: address must read as zero.
	if s.Connected() {
		t.Error("session connected before Connect")
	}
	if s.Address() != (common.Address{}) {
		t.Error("address defined while disconnected")
	}

	if err := s.Connect("1234"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.Connected() {
		t.Error("session not connected after Connect")
	}
	if s.Address() != addr {
		t.Errorf("address = %s, want %s", s.Address().Hex(), addr.Hex())
	}
}

func TestConnect_WrongPINStaysDisconnected(t *testing.T) {
	s := testSession(t)
	if _, err := s.Create("1234"); err != nil {
		t.Fatal(err)
	}

	if err := s.Connect("0000"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("err = %v, want ErrInvalidPIN", err)
	}
	if s.Connected() {
		t.Error("declined connection must leave session disconnected")
	}
	if s.Address() != (common.Address{}) {
		t.Error("address defined after declined connection")
	}
}

func TestConnect_NoWallet(t *testing.T) {
	s := testSession(t)
	if err := s.Connect("1234"); !errors.Is(err, ErrWalletNotCreated) {
		t.Fatalf("err = %v, want ErrWalletNotCreated", err)
	}
}

func TestDisconnect_ClearsAddress(t *testing.T) {
	s := testSession(t)
	if _, err := s.Create("1234"); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect("1234"); err != nil {
		t.Fatal(err)
	}

	s.Disconnect()
	if s.Connected() {
		t.Error("session connected after Disconnect")
	}
	if s.Address() != (common.Address{}) {
		t.Error("address defined after Disconnect")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s := testSession(t)
	if _, err := s.Create("1234"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("1234"); !errors.Is(err, ErrWalletAlreadyExists) {
		t.Fatalf("err = %v, want ErrWalletAlreadyExists", err)
	}
}

func TestCreate_BadPIN(t *testing.T) {
	s := testSession(t)
	for _, pin := range []string{"", "12", "abcd", "12345"} {
		if _, err := s.Create(pin); !errors.Is(err, ErrInvalidPINFormat) {
			t.Errorf("Create(%q) err = %v, want ErrInvalidPINFormat", pin, err)
		}
	}
}

func TestSubscribe_StatusChanges(t *testing.T) {
	s := testSession(t)
	if _, err := s.Create("1234"); err != nil {
		t.Fatal(err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Connect("1234"); err != nil {
		t.Fatal(err)
	}
	if got := <-ch; got != StatusConnected {
		t.Errorf("status = %v, want connected", got)
	}

	s.Disconnect()
	if got := <-ch; got != StatusDisconnected {
		t.Errorf("status = %v, want disconnected", got)
	}
}

func TestSigner_RequiresConnection(t *testing.T) {
	s := testSession(t)
	if _, err := s.Create("1234"); err != nil {
		t.Fatal(err)
	}

	signer := s.Signer()
	if _, err := signer(context.Background(), 56, nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestValidatePIN(t *testing.T) {
	for pin, want := range map[string]bool{
		"1234": true,
		"0000": true,
		"123":  false,
		"12a4": false,
		"":     false,
	} {
		if got := ValidatePIN(pin); got != want {
			t.Errorf("ValidatePIN(%q) = %v, want %v", pin, got, want)
		}
	}
}

func TestGeneratePIN(t *testing.T) {
	pin, err := GeneratePIN()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !ValidatePIN(pin) {
		t.Errorf("generated PIN %q is not valid", pin)
	}
}
