package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topsale/presale/pkg/logger"
)

// saleABI is the sale contract's purchase surface: a nonpayable entry
// taking the stable-asset amount, and a payable entry taking only the
// receiver with the paid amount attached as call value.
const saleABI = `[
  {
    "inputs": [
      {"internalType": "uint256", "name": "amount", "type": "uint256"},
      {"internalType": "address", "name": "receiver", "type": "address"}
    ],
    "name": "buyWithUSDT",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "receiver", "type": "address"}
    ],
    "name": "buyWithBNB",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

// SignerFunc signs a transaction for the given chain.
type SignerFunc func(ctx context.Context, chainID int64, tx *types.Transaction) (*types.Transaction, error)

// SaleCaller submits purchase transactions to the sale contract.
type SaleCaller struct {
	client   *Client
	contract common.Address
	abi      abi.ABI
	signer   SignerFunc
}

// NewSaleCaller wires a caller against the sale contract address. The
// signer is consulted for every submission; a signer refusal surfaces
// as a submission rejection.
func NewSaleCaller(client *Client, contract common.Address, signer SignerFunc) (*SaleCaller, error) {
	parsed, err := abi.JSON(strings.NewReader(saleABI))
	if err != nil {
		return nil, fmt.Errorf("invalid sale ABI: %w", err)
	}
	return &SaleCaller{
		client:   client,
		contract: contract,
		abi:      parsed,
		signer:   signer,
	}, nil
}

// BuyWithStable submits the stable-asset purchase: the smallest-unit
// amount and the receiver as call arguments, no value attached.
func (s *SaleCaller) BuyWithStable(ctx context.Context, from common.Address, amountWei *big.Int, receiver common.Address) (common.Hash, error) {
	data, err := s.abi.Pack("buyWithUSDT", amountWei, receiver)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack method call: %w", err)
	}
	return s.submit(ctx, from, nil, data)
}

// BuyWithNative submits the native-coin purchase: the receiver as sole
// call argument, the paid amount attached as call value.
func (s *SaleCaller) BuyWithNative(ctx context.Context, from, receiver common.Address, valueWei *big.Int) (common.Hash, error) {
	data, err := s.abi.Pack("buyWithBNB", receiver)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack method call: %w", err)
	}
	return s.submit(ctx, from, valueWei, data)
}

func (s *SaleCaller) submit(ctx context.Context, from common.Address, value *big.Int, data []byte) (common.Hash, error) {
	eth := s.client.Eth()

	nonce, err := eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &s.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, s.contract, value, gasLimit, gasPrice, data)

	signedTx, err := s.signer(ctx, s.client.ChainID(), tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	logger.InfoCF("chain", "Purchase transaction submitted", map[string]any{
		"tx_hash": signedTx.Hash().Hex(),
		"from":    from.Hex(),
	})

	return signedTx.Hash(), nil
}
