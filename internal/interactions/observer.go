package interactions

import (
	"context"
	"time"
)

// Outcome is the terminal state of one inbound request.
type Outcome string

const (
	OutcomeRejected    Outcome = "rejected"
	OutcomePong        Outcome = "pong"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeDenied      Outcome = "denied"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeReplied     Outcome = "replied"
	OutcomeErrored     Outcome = "errored"
	OutcomeTimedOut    Outcome = "timed_out"
)

// Outcomes lists every outcome in a stable order.
var Outcomes = []Outcome{
	OutcomeRejected, OutcomePong, OutcomeUnsupported, OutcomeInvalid,
	OutcomeDenied, OutcomeNotFound, OutcomeReplied, OutcomeErrored, OutcomeTimedOut,
}

// Event describes a finished request.
type Event struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	InteractionID string        `json:"interaction_id,omitempty"`
	UserID        string        `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	Command       string        `json:"command,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Detail        string        `json:"detail,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// Observer receives an Event for every request that reaches a terminal
// state. Implementations must not block for long.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}
