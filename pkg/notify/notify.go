// Package notify surfaces purchase outcomes to the user: success and
// error notifications plus a typed event stream for UI clients.
package notify

import (
	"time"

	"github.com/topsale/presale/pkg/logger"
)

// Notifier surfaces user-visible messages. Fire and forget: callers
// never consume a return value.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// EventKind classifies hub events.
type EventKind string

const (
	EventPhase   EventKind = "phase"
	EventSession EventKind = "session"
	EventSuccess EventKind = "success"
	EventError   EventKind = "error"
)

// Event is one observable purchase-flow occurrence, pushed to UI
// subscribers so the page can re-render without polling.
type Event struct {
	Kind      EventKind `json:"kind"`
	Asset     string    `json:"asset,omitempty"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Handle    string    `json:"handle,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher receives events. The zero notifier pattern applies: a nil
// Publisher is allowed wherever one is optional.
type Publisher interface {
	Publish(Event)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) {
	logger.InfoCF("notify", msg, map[string]any{"kind": "success"})
}

func (LogNotifier) Error(msg string) {
	logger.WarnCF("notify", msg, map[string]any{"kind": "error"})
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
