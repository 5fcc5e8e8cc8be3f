// Package purchase implements the token-sale purchase flow: amount to
// token conversion, balance validation, and a per-asset state machine
// driving contract submission and confirmation tracking.
package purchase

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/topsale/presale/pkg/logger"
	"github.com/topsale/presale/pkg/notify"
)

// SessionReader exposes the wallet session's connection state. Only
// the wallet session itself mutates it.
type SessionReader interface {
	Connected() bool
	Address() common.Address
}

// BalanceReader queries the current balance of one asset for an
// account. Each call is a fresh query; results are never cached here.
type BalanceReader interface {
	Balance(ctx context.Context, asset Asset, owner common.Address) (*AssetBalance, error)
}

// ContractCaller submits a purchase to the sale contract and returns
// the transaction hash, or an error when the submission is rejected.
type ContractCaller interface {
	BuyWithStable(ctx context.Context, from common.Address, amountWei *big.Int, receiver common.Address) (common.Hash, error)
	BuyWithNative(ctx context.Context, from, receiver common.Address, valueWei *big.Int) (common.Hash, error)
}

// TxState is the observed state of a submitted transaction.
type TxState int

const (
	TxPending TxState = iota
	TxConfirmed
	TxFailed
)

// TxStatus is one observation from a transaction watch.
type TxStatus struct {
	State TxState
	Err   error
}

// TxWatcher resolves a transaction handle to its outcome. The channel
// delivers pending observations and terminates after a terminal state
// or context cancellation.
type TxWatcher interface {
	Watch(ctx context.Context, handle common.Hash) <-chan TxStatus
}

// Params are the fixed sale constants the orchestrator needs.
type Params struct {
	Receiver      common.Address
	Decimals      int32
	Rates         Rates
	ExplorerTxURL string
	StableSymbol  string
	NativeSymbol  string
	WatchTimeout  time.Duration
}

func (p Params) symbol(asset Asset) string {
	if asset == AssetNative {
		return p.NativeSymbol
	}
	return p.StableSymbol
}

// Orchestrator owns the purchase draft and one state-machine lane per
// asset. Lanes progress independently; both may await confirmation at
// the same time. A new purchase on a lane supersedes the previous
// attempt: the old transaction is no longer observed, but nothing
// cancels it on-chain, so a superseded submission may still land.
type Orchestrator struct {
	params   Params
	session  SessionReader
	reader   BalanceReader
	caller   ContractCaller
	watcher  TxWatcher
	notifier notify.Notifier
	events   notify.Publisher

	draft *Draft

	mu      sync.Mutex
	lanes   map[Asset]*Attempt
	cancels map[Asset]context.CancelFunc

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator wires the purchase flow. events may be nil.
func NewOrchestrator(
	params Params,
	session SessionReader,
	reader BalanceReader,
	caller ContractCaller,
	watcher TxWatcher,
	notifier notify.Notifier,
	events notify.Publisher,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		params:   params,
		session:  session,
		reader:   reader,
		caller:   caller,
		watcher:  watcher,
		notifier: notifier,
		events:   events,
		draft:    NewDraft(),
		lanes:    make(map[Asset]*Attempt),
		cancels:  make(map[Asset]context.CancelFunc),
		baseCtx:  ctx,
		stop:     cancel,
	}
}

// Draft returns the shared purchase draft.
func (o *Orchestrator) Draft() *Draft {
	return o.draft
}

// Quote derives the token amount for the active tab's entered amount.
func (o *Orchestrator) Quote() Quote {
	return o.draft.Quote(o.params.Rates)
}

// LaneState returns a snapshot of a lane's current attempt. A lane
// with no attempt yet reads as idle. Reading never mutates state.
func (o *Orchestrator) LaneState(asset Asset) Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()

	if a := o.lanes[asset]; a != nil {
		return *a
	}
	return Attempt{Asset: asset, Phase: PhaseIdle}
}

// Close stops all confirmation watches and waits for them to finish.
func (o *Orchestrator) Close() {
	o.stop()
	o.wg.Wait()
}

// Buy runs one purchase attempt on the asset's lane: validate the
// entered amount against the balance, submit the contract call, and
// hand the resulting transaction to the watcher. It returns once the
// attempt is awaiting confirmation or has failed; confirmation itself
// resolves asynchronously.
func (o *Orchestrator) Buy(ctx context.Context, asset Asset) (Attempt, error) {
	if !o.session.Connected() {
		return Attempt{}, ErrNotConnected
	}
	owner := o.session.Address()
	amount := o.draft.Amount(asset)

	id := o.begin(asset, amount)
	symbol := o.params.symbol(asset)

	logger.InfoCF("purchase", "Purchase requested", map[string]any{
		"asset":   asset.String(),
		"amount":  amount,
		"attempt": id.String(),
	})

	if _, ok := parseAmount(amount); !ok {
		return o.fail(id, asset, "invalid amount", fmt.Sprintf("Enter a valid %s amount", symbol)), nil
	}

	balance, err := o.reader.Balance(ctx, asset, owner)
	if err != nil || balance == nil {
		if err != nil {
			logger.WarnCF("purchase", "Balance query failed", map[string]any{
				"asset": asset.String(),
				"error": err.Error(),
			})
		}
		return o.fail(id, asset, "balance unavailable", fmt.Sprintf("%s balance unavailable", symbol)), nil
	}

	if !balance.Covers(amount) {
		return o.fail(id, asset, "insufficient balance", fmt.Sprintf("Insufficient %s balance", symbol)), nil
	}

	snap, ok := o.transition(id, asset, func(a *Attempt) {
		a.Phase = PhaseSubmitting
	})
	if !ok {
		return snap, nil
	}

	wei, err := ToWei(amount, o.params.Decimals)
	if err != nil {
		return o.fail(id, asset, "invalid amount", fmt.Sprintf("Enter a valid %s amount", symbol)), nil
	}

	var handle common.Hash
	if asset == AssetStable {
		handle, err = o.caller.BuyWithStable(ctx, owner, wei, o.params.Receiver)
	} else {
		handle, err = o.caller.BuyWithNative(ctx, owner, o.params.Receiver, wei)
	}
	if err != nil {
		logger.WarnCF("purchase", "Submission rejected", map[string]any{
			"asset": asset.String(),
			"error": err.Error(),
		})
		return o.fail(id, asset, "submission rejected", fmt.Sprintf("%s purchase rejected", symbol)), nil
	}

	snap, ok = o.transition(id, asset, func(a *Attempt) {
		a.Phase = PhaseAwaitingConfirmation
		a.Handle = handle
		a.HasHandle = true
	})
	if !ok {
		return snap, nil
	}

	watchCtx, cancel := context.WithTimeout(o.baseCtx, o.params.WatchTimeout)
	o.mu.Lock()
	o.cancels[asset] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.watch(watchCtx, cancel, id, asset, handle)

	return snap, nil
}

// begin installs a fresh attempt on the lane, superseding any prior
// one. The superseded attempt's watch is cancelled: its outcome is no
// longer observed, though the transaction itself remains on-chain.
func (o *Orchestrator) begin(asset Asset, amount string) uuid.UUID {
	o.mu.Lock()
	if cancel := o.cancels[asset]; cancel != nil {
		cancel()
		delete(o.cancels, asset)
	}
	if old := o.lanes[asset]; old != nil && !old.Phase.Terminal() {
		logger.InfoCF("purchase", "Superseding in-flight attempt", map[string]any{
			"asset":   asset.String(),
			"attempt": old.ID.String(),
			"phase":   old.Phase.String(),
		})
	}
	attempt := &Attempt{
		ID:     uuid.New(),
		Asset:  asset,
		Amount: amount,
		Phase:  PhaseValidating,
	}
	o.lanes[asset] = attempt
	id := attempt.ID
	o.mu.Unlock()

	o.publishPhase(*attempt)
	return id
}

// transition applies a mutation to the lane's attempt if it is still
// the one identified by id. A false return means the attempt was
// superseded and its late result must be discarded.
func (o *Orchestrator) transition(id uuid.UUID, asset Asset, mutate func(*Attempt)) (Attempt, bool) {
	o.mu.Lock()
	current := o.lanes[asset]
	if current == nil || current.ID != id {
		o.mu.Unlock()
		logger.DebugCF("purchase", "Discarding result for superseded attempt", map[string]any{
			"asset":   asset.String(),
			"attempt": id.String(),
		})
		return Attempt{Asset: asset, Phase: PhaseIdle}, false
	}
	mutate(current)
	snap := *current
	o.mu.Unlock()

	o.publishPhase(snap)
	return snap, true
}

// fail moves the attempt to its failed terminal state and emits the
// user-visible error notification.
func (o *Orchestrator) fail(id uuid.UUID, asset Asset, reason, message string) Attempt {
	snap, ok := o.transition(id, asset, func(a *Attempt) {
		a.Phase = PhaseFailed
		a.Reason = reason
	})
	if ok {
		o.notifier.Error(message)
	}
	return snap
}

// watch follows a submitted transaction to its terminal state and
// resolves the lane, unless the attempt was superseded meanwhile.
func (o *Orchestrator) watch(ctx context.Context, cancel context.CancelFunc, id uuid.UUID, asset Asset, handle common.Hash) {
	defer o.wg.Done()
	defer cancel()

	statuses := o.watcher.Watch(ctx, handle)
	for {
		select {
		case status, ok := <-statuses:
			if !ok {
				o.watchEnded(ctx, id, asset)
				return
			}
			switch status.State {
			case TxConfirmed:
				if _, ok := o.transition(id, asset, func(a *Attempt) {
					a.Phase = PhaseConfirmed
				}); ok {
					o.notifier.Success(fmt.Sprintf("Purchase successful! View transaction: %s%s",
						o.params.ExplorerTxURL, handle.Hex()))
				}
				return
			case TxFailed:
				reason := "transaction failed"
				if status.Err != nil {
					reason = status.Err.Error()
				}
				if _, ok := o.transition(id, asset, func(a *Attempt) {
					a.Phase = PhaseFailed
					a.Reason = reason
				}); ok {
					o.notifier.Error(fmt.Sprintf("%s purchase failed", o.params.symbol(asset)))
				}
				return
			}
		case <-ctx.Done():
			o.watchEnded(ctx, id, asset)
			return
		}
	}
}

// watchEnded handles a watch that stopped without a terminal status.
// A deadline means the confirmation timed out; cancellation means the
// attempt was superseded or the orchestrator is shutting down, and the
// lane is left untouched.
func (o *Orchestrator) watchEnded(ctx context.Context, id uuid.UUID, asset Asset) {
	if ctx.Err() != context.DeadlineExceeded {
		return
	}
	if _, ok := o.transition(id, asset, func(a *Attempt) {
		a.Phase = PhaseFailed
		a.Reason = "confirmation timed out"
	}); ok {
		o.notifier.Error(fmt.Sprintf("%s purchase confirmation timed out", o.params.symbol(asset)))
	}
}

func (o *Orchestrator) publishPhase(a Attempt) {
	if o.events == nil {
		return
	}
	ev := notify.Event{
		Kind:      notify.EventPhase,
		Asset:     a.Asset.String(),
		AttemptID: a.ID.String(),
		Phase:     a.Phase.String(),
	}
	if a.HasHandle {
		ev.Handle = a.Handle.Hex()
	}
	o.events.Publish(ev)
}
