package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/topsale/presale/pkg/config"
	"github.com/topsale/presale/pkg/logger"
	"github.com/topsale/presale/pkg/notify"
	"github.com/topsale/presale/pkg/purchase"
	"github.com/topsale/presale/pkg/wallet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway is a local single-user surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type attemptJSON struct {
	ID     string `json:"id"`
	Asset  string `json:"asset"`
	Amount string `json:"amount,omitempty"`
	Phase  string `json:"phase"`
	Handle string `json:"handle,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func attemptToJSON(a purchase.Attempt) attemptJSON {
	out := attemptJSON{
		ID:     a.ID.String(),
		Asset:  a.Asset.String(),
		Amount: a.Amount,
		Phase:  a.Phase.String(),
		Reason: a.Reason,
	}
	if a.HasHandle {
		out.Handle = a.Handle.Hex()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// setupGatewayHTTP creates the HTTP server exposing the purchase flow.
func setupGatewayHTTP(cfg *config.Config, session *wallet.Session, orch *purchase.Orchestrator, hub *notify.Hub) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "presale-gateway",
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ready",
			"service": "presale-gateway",
		})
	})

	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := map[string]string{"status": session.Status().String()}
		if session.Connected() {
			resp["address"] = session.Address().Hex()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/connect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			PIN string `json:"pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if err := session.Connect(req.PIN); err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, wallet.ErrWalletNotCreated) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  session.Status().String(),
			"address": session.Address().Hex(),
		})
	})

	mux.HandleFunc("/disconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		session.Disconnect()
		writeJSON(w, http.StatusOK, map[string]string{
			"status": session.Status().String(),
		})
	})

	mux.HandleFunc("/select", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Asset string `json:"asset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		asset, err := purchase.ParseAsset(req.Asset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		orch.Draft().Select(asset)
		writeQuote(w, orch)
	})

	mux.HandleFunc("/amount", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Asset  string `json:"asset"`
			Amount string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		asset, err := purchase.ParseAsset(req.Asset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		orch.Draft().SetAmount(asset, req.Amount)
		writeQuote(w, orch)
	})

	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeQuote(w, orch)
	})

	mux.HandleFunc("/buy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Asset string `json:"asset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		asset, err := purchase.ParseAsset(req.Asset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		attempt, err := orch.Buy(r.Context(), asset)
		if err != nil {
			if errors.Is(err, purchase.ErrNotConnected) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, attemptToJSON(attempt))
	})

	mux.HandleFunc("/lanes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lanes := make(map[string]attemptJSON, len(purchase.Assets))
		for _, asset := range purchase.Assets {
			lanes[asset.String()] = attemptToJSON(orch.LaneState(asset))
		}
		writeJSON(w, http.StatusOK, lanes)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnCF("gateway", "Websocket upgrade failed", map[string]any{"error": err.Error()})
			return
		}
		defer conn.Close()

		events, cancel := hub.Subscribe()
		defer cancel()

		// Drain client frames so pings and closes are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	})

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func writeQuote(w http.ResponseWriter, orch *purchase.Orchestrator) {
	draft := orch.Draft()
	asset := draft.Selected()
	quote := orch.Quote()

	resp := map[string]any{
		"asset":  asset.String(),
		"amount": draft.Amount(asset),
		"valid":  quote.Valid,
	}
	if quote.Valid {
		resp["tokens"] = quote.Tokens.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
