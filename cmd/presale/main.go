package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/topsale/presale/pkg/chain"
	"github.com/topsale/presale/pkg/config"
	"github.com/topsale/presale/pkg/logger"
	"github.com/topsale/presale/pkg/notify"
	"github.com/topsale/presale/pkg/purchase"
	"github.com/topsale/presale/pkg/wallet"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "presale",
		Short: "Token-sale purchase gateway",
		Long:  "presale runs the token-sale purchase flow: wallet session, balance checks, contract submission, and confirmation tracking behind an HTTP gateway.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the purchase gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "onboard",
		Short: "Create the config file and the sale wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".presale", "config.json")
}

func runOnboard() error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.SaveConfig(configPath, config.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Created config at %s\n", configPath)
	} else {
		fmt.Printf("Config already exists at %s\n", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	session := wallet.NewSession(cfg.WalletDir())
	if session.Exists() {
		fmt.Println("Wallet already exists.")
		return nil
	}

	pin, err := wallet.GeneratePIN()
	if err != nil {
		return fmt.Errorf("failed to generate PIN: %w", err)
	}
	addr, err := session.Create(pin)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	fmt.Printf("Wallet created: %s\n", addr.Hex())
	fmt.Printf("Wallet PIN: %s (write it down, it unlocks purchases)\n", pin)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Review sale parameters in %s\n", configPath)
	fmt.Println("  2. Start the gateway: presale serve")
	return nil
}

func runServe() error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.Log.Level)
	logger.SetJSON(cfg.Log.JSON)

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := chain.Dial(dialCtx, cfg.Chain)
	cancelDial()
	if err != nil {
		return err
	}
	defer client.Close()

	session := wallet.NewSession(cfg.WalletDir())
	if !session.Exists() {
		logger.WarnC("main", "No wallet found, run 'presale onboard' first")
	}

	reader := chain.NewBalanceReader(client, common.HexToAddress(cfg.Sale.StableContract))
	caller, err := chain.NewSaleCaller(client, common.HexToAddress(cfg.Sale.TokenContract), session.Signer())
	if err != nil {
		return err
	}
	watcher := chain.NewWatcher(client, time.Duration(cfg.Watcher.PollSeconds)*time.Second)

	hub := notify.NewHub()
	notifier := notify.Multi{notify.LogNotifier{}, notify.HubNotifier{Hub: hub}}

	orch := purchase.NewOrchestrator(purchase.Params{
		Receiver:      common.HexToAddress(cfg.Sale.Receiver),
		Decimals:      cfg.Sale.Decimals,
		Rates:         purchase.NewRates(cfg.Sale.StableRate, cfg.Sale.NativeRate),
		ExplorerTxURL: cfg.Chain.Explorer,
		StableSymbol:  cfg.Sale.StableSymbol,
		NativeSymbol:  cfg.Sale.NativeSymbol,
		WatchTimeout:  time.Duration(cfg.Watcher.TimeoutSeconds) * time.Second,
	}, session, reader, caller, watcher, notifier, hub)
	defer orch.Close()

	// Session status changes reach UI subscribers like any other event.
	statusCh, cancelStatus := session.Subscribe()
	defer cancelStatus()
	go func() {
		for status := range statusCh {
			hub.Publish(notify.Event{
				Kind:    notify.EventSession,
				Message: status.String(),
			})
		}
	}()

	server := setupGatewayHTTP(cfg, session, orch, hub)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("main", "Gateway listening", map[string]any{"addr": server.Addr})
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		logger.InfoCF("main", "Shutting down", map[string]any{"signal": sig.String()})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}

	return nil
}
