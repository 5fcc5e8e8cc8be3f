package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topsale/presale/pkg/purchase"
)

// BalanceReader queries per-asset balances for the purchase flow. Each
// call hits the chain; nothing is cached, so a result is only as fresh
// as the query that produced it.
type BalanceReader struct {
	client      *Client
	stableToken common.Address
}

func NewBalanceReader(client *Client, stableToken common.Address) *BalanceReader {
	return &BalanceReader{client: client, stableToken: stableToken}
}

// Balance returns the owner's balance in the given asset.
func (r *BalanceReader) Balance(ctx context.Context, asset purchase.Asset, owner common.Address) (*purchase.AssetBalance, error) {
	if asset == purchase.AssetNative {
		return r.nativeBalance(ctx, owner)
	}
	return r.stableBalance(ctx, owner)
}

func (r *BalanceReader) nativeBalance(ctx context.Context, owner common.Address) (*purchase.AssetBalance, error) {
	balance, err := r.client.Eth().BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &purchase.AssetBalance{
		Asset:    purchase.AssetNative,
		Raw:      balance,
		Decimals: 18,
	}, nil
}

func (r *BalanceReader) stableBalance(ctx context.Context, owner common.Address) (*purchase.AssetBalance, error) {
	// ERC20 balanceOf function signature: balanceOf(address) returns (uint256)
	balanceOfSig := []byte{0x70, 0xa0, 0x82, 0x31}
	callData := append(balanceOfSig, common.LeftPadBytes(owner.Bytes(), 32)...)

	raw, err := r.ethCall(ctx, r.stableToken, callData)
	if err != nil {
		return nil, fmt.Errorf("eth_call balanceOf failed: %w", err)
	}

	decimals, err := r.tokenDecimals(ctx)
	if err != nil {
		// Fallback to 18 if the token does not answer
		decimals = 18
	}

	return &purchase.AssetBalance{
		Asset:    purchase.AssetStable,
		Raw:      new(big.Int).SetBytes(raw),
		Decimals: decimals,
	}, nil
}

// tokenDecimals reads decimals() from the stable token contract.
func (r *BalanceReader) tokenDecimals(ctx context.Context) (int32, error) {
	// decimals() function signature: 0x313ce567
	decimalsSig := []byte{0x31, 0x3c, 0xe5, 0x67}

	result, err := r.ethCall(ctx, r.stableToken, decimalsSig)
	if err != nil {
		return 18, fmt.Errorf("eth_call decimals failed: %w", err)
	}
	if len(result) < 32 {
		return 18, fmt.Errorf("invalid decimals result length: %d", len(result))
	}

	// Decimals is the last byte of the 32-byte word
	return int32(result[31]), nil
}

// ethCall performs a raw eth_call and decodes the hex result.
func (r *BalanceReader) ethCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var resultHex string
	err := r.client.Eth().Client().CallContext(ctx, &resultHex, "eth_call", map[string]interface{}{
		"to":   to.Hex(),
		"data": "0x" + common.Bytes2Hex(data),
	}, "latest")
	if err != nil {
		return nil, err
	}
	return common.FromHex(resultHex), nil
}
