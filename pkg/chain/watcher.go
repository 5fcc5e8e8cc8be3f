package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topsale/presale/pkg/logger"
	"github.com/topsale/presale/pkg/purchase"
)

// Watcher polls for transaction receipts and reports the outcome as a
// status stream.
type Watcher struct {
	client *Client
	poll   time.Duration
}

func NewWatcher(client *Client, poll time.Duration) *Watcher {
	if poll <= 0 {
		poll = 3 * time.Second
	}
	return &Watcher{client: client, poll: poll}
}

// Watch reports the transaction's state until it reaches confirmed or
// failed, then closes the channel. Cancelling the context closes the
// channel without a terminal state.
func (w *Watcher) Watch(ctx context.Context, handle common.Hash) <-chan purchase.TxStatus {
	out := make(chan purchase.TxStatus, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(w.poll)
		defer ticker.Stop()

		for {
			status, terminal := w.check(ctx, handle)
			select {
			case out <- status:
			case <-ctx.Done():
				return
			}
			if terminal {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (w *Watcher) check(ctx context.Context, handle common.Hash) (purchase.TxStatus, bool) {
	receipt, err := w.client.Eth().TransactionReceipt(ctx, handle)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return purchase.TxStatus{State: purchase.TxPending}, false
		}
		logger.WarnCF("chain", "Receipt query failed", map[string]any{
			"tx_hash": handle.Hex(),
			"error":   err.Error(),
		})
		// Transient RPC errors read as still pending; the poll retries.
		return purchase.TxStatus{State: purchase.TxPending}, false
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		logger.InfoCF("chain", "Transaction confirmed", map[string]any{
			"tx_hash": handle.Hex(),
			"block":   receipt.BlockNumber.Uint64(),
			"gasUsed": receipt.GasUsed,
		})
		return purchase.TxStatus{State: purchase.TxConfirmed}, true
	}

	return purchase.TxStatus{
		State: purchase.TxFailed,
		Err:   fmt.Errorf("transaction reverted in block %s", receipt.BlockNumber),
	}, true
}
