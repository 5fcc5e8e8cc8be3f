// Package chain provides the EVM-side collaborators of the purchase
// flow: balance reads, sale-contract calls, and confirmation watching.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/topsale/presale/pkg/config"
	"github.com/topsale/presale/pkg/logger"
)

// Client is a connection to the sale's chain RPC endpoint.
type Client struct {
	eth     *ethclient.Client
	chainID int64
}

// Dial connects to the configured RPC endpoint and verifies that the
// remote chain ID matches the configuration.
func Dial(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", cfg.Name, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID for %s: %w", cfg.Name, err)
	}

	if chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, chainID.Int64())
	}

	logger.InfoCF("chain", "Connected to chain", map[string]any{
		"name":    cfg.Name,
		"chainId": cfg.ChainID,
		"rpc":     cfg.RPC,
	})

	return &Client{eth: eth, chainID: cfg.ChainID}, nil
}

// Eth returns the underlying RPC client.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// ChainID returns the verified chain ID.
func (c *Client) ChainID() int64 {
	return c.chainID
}

// Close closes the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
	logger.InfoCF("chain", "Disconnected from chain", map[string]any{
		"chainId": c.chainID,
	})
}
