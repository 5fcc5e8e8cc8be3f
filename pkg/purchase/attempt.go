package purchase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Phase is the lifecycle position of one purchase attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseAwaitingConfirmation
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase is sticky: once reached, only a
// fresh attempt moves the lane again.
func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// Attempt is one run of a lane's state machine. Handle is set only
// once submission succeeded; Reason is set only on failure.
type Attempt struct {
	ID        uuid.UUID
	Asset     Asset
	Amount    string
	Phase     Phase
	Handle    common.Hash
	HasHandle bool
	Reason    string
}
