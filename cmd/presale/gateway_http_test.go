package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topsale/presale/pkg/config"
	"github.com/topsale/presale/pkg/notify"
	"github.com/topsale/presale/pkg/purchase"
	"github.com/topsale/presale/pkg/wallet"
)

type stubReader struct{}

func (stubReader) Balance(_ context.Context, asset purchase.Asset, _ common.Address) (*purchase.AssetBalance, error) {
	raw, _ := new(big.Int).SetString("100000000000000000000", 10) // 100 units
	return &purchase.AssetBalance{Asset: asset, Raw: raw, Decimals: 18}, nil
}

type stubCaller struct{}

func (stubCaller) BuyWithStable(context.Context, common.Address, *big.Int, common.Address) (common.Hash, error) {
	return common.HexToHash("0xfeed1"), nil
}

func (stubCaller) BuyWithNative(context.Context, common.Address, common.Address, *big.Int) (common.Hash, error) {
	return common.HexToHash("0xfeed2"), nil
}

type stubWatcher struct{}

func (stubWatcher) Watch(context.Context, common.Hash) <-chan purchase.TxStatus {
	ch := make(chan purchase.TxStatus, 1)
	ch <- purchase.TxStatus{State: purchase.TxConfirmed}
	close(ch)
	return ch
}

func newTestGateway(t *testing.T) (*httptest.Server, *wallet.Session) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Wallet.Dir = t.TempDir()

	session := wallet.NewSession(cfg.WalletDir())
	if _, err := session.Create("1234"); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	hub := notify.NewHub()
	orch := purchase.NewOrchestrator(purchase.Params{
		Receiver:      common.HexToAddress(cfg.Sale.Receiver),
		Decimals:      cfg.Sale.Decimals,
		Rates:         purchase.NewRates(cfg.Sale.StableRate, cfg.Sale.NativeRate),
		ExplorerTxURL: cfg.Chain.Explorer,
		StableSymbol:  cfg.Sale.StableSymbol,
		NativeSymbol:  cfg.Sale.NativeSymbol,
		WatchTimeout:  5 * time.Second,
	}, session, stubReader{}, stubCaller{}, stubWatcher{}, notify.LogNotifier{}, hub)
	t.Cleanup(orch.Close)

	server := setupGatewayHTTP(cfg, session, orch, hub)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, session
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestGateway_SessionLifecycle(t *testing.T) {
	ts, _ := newTestGateway(t)

	resp, err := http.Get(ts.URL + "/session")
	if err != nil {
		t.Fatal(err)
	}
	var sess map[string]string
	decode(t, resp, &sess)
	if sess["status"] != "disconnected" {
		t.Errorf("status = %q, want disconnected", sess["status"])
	}
	if _, ok := sess["address"]; ok {
		t.Error("address present while disconnected")
	}

	// Wrong PIN is a declined connection.
	resp = postJSON(t, ts.URL+"/connect", map[string]string{"pin": "0000"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("connect wrong pin status = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/connect", map[string]string{"pin": "1234"})
	var connected map[string]string
	decode(t, resp, &connected)
	if connected["status"] != "connected" || connected["address"] == "" {
		t.Errorf("connect response = %v", connected)
	}

	resp = postJSON(t, ts.URL+"/disconnect", nil)
	var disconnected map[string]string
	decode(t, resp, &disconnected)
	if disconnected["status"] != "disconnected" {
		t.Errorf("disconnect response = %v", disconnected)
	}
}

func TestGateway_BuyRequiresConnection(t *testing.T) {
	ts, _ := newTestGateway(t)

	resp := postJSON(t, ts.URL+"/buy", map[string]string{"asset": "stable"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("buy while disconnected status = %d, want 409", resp.StatusCode)
	}
}

func TestGateway_QuoteFlow(t *testing.T) {
	ts, _ := newTestGateway(t)

	resp := postJSON(t, ts.URL+"/amount", map[string]string{"asset": "stable", "amount": "2"})
	var quote map[string]any
	decode(t, resp, &quote)
	if quote["tokens"] != "20" || quote["valid"] != true {
		t.Errorf("quote = %v, want 20 tokens", quote)
	}

	// Switching tabs re-derives the quote from the other lane's amount.
	postJSON(t, ts.URL+"/amount", map[string]string{"asset": "native", "amount": "0.5"}).Body.Close()
	resp = postJSON(t, ts.URL+"/select", map[string]string{"asset": "native"})
	decode(t, resp, &quote)
	if quote["tokens"] != "50" {
		t.Errorf("native quote = %v, want 50 tokens", quote)
	}

	// Unparsable input quotes as invalid, not as an error.
	postJSON(t, ts.URL+"/amount", map[string]string{"asset": "native", "amount": "zzz"}).Body.Close()
	resp, err := http.Get(ts.URL + "/quote")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &quote)
	if quote["valid"] != false {
		t.Errorf("quote = %v, want invalid", quote)
	}
}

func TestGateway_BuyAndLanes(t *testing.T) {
	ts, _ := newTestGateway(t)

	postJSON(t, ts.URL+"/connect", map[string]string{"pin": "1234"}).Body.Close()
	postJSON(t, ts.URL+"/amount", map[string]string{"asset": "stable", "amount": "2"}).Body.Close()

	resp := postJSON(t, ts.URL+"/buy", map[string]string{"asset": "stable"})
	var attempt map[string]any
	decode(t, resp, &attempt)
	if attempt["phase"] != "awaiting_confirmation" {
		t.Errorf("phase = %v, want awaiting_confirmation", attempt["phase"])
	}
	if attempt["handle"] == "" {
		t.Error("attempt has no handle")
	}

	resp, err := http.Get(ts.URL + "/lanes")
	if err != nil {
		t.Fatal(err)
	}
	var lanes map[string]map[string]any
	decode(t, resp, &lanes)
	if _, ok := lanes["stable"]; !ok {
		t.Error("lanes missing stable")
	}
	if lanes["native"]["phase"] != "idle" {
		t.Errorf("native phase = %v, want idle", lanes["native"]["phase"])
	}
}

func TestGateway_BadAsset(t *testing.T) {
	ts, _ := newTestGateway(t)
	resp := postJSON(t, ts.URL+"/buy", map[string]string{"asset": "doge"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
