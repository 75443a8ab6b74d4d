package handshake

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/marshub/authgate/hostenv"
	"github.com/marshub/authgate/session"
)

// Status is the lifecycle of one attempt. Every attempt reaches exactly
// one of the four terminal states.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends the attempt.
func (s Status) Terminal() bool { return s != StatusPending }

// Result is the single terminal outcome of an attempt.
type Result struct {
	Status  Status
	Session *session.Session
	// Slot keys the user-facing message to a fixed UI location, "submit"
	// or "telegram". Empty for silent outcomes.
	Slot    string
	Message string
	Err     error
}

// Attempt is one in-flight handshake, owned exclusively by the
// orchestrator.
type Attempt struct {
	ID        uuid.UUID
	Strategy  hostenv.Strategy
	Epoch     uint64
	StartedAt time.Time

	span trace.Span
	done chan struct{}
	// exchanging is set once a credential signal has won the race, so a
	// later bridge signal cannot preempt the in-flight exchange. Guarded
	// by the orchestrator mutex.
	exchanging bool
	result     Result
}

func newAttempt(strategy hostenv.Strategy, epoch uint64, span trace.Span) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		Strategy:  strategy,
		Epoch:     epoch,
		StartedAt: time.Now(),
		span:      span,
		done:      make(chan struct{}),
	}
}

// Done is closed once the attempt reaches a terminal state.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Result blocks until the attempt is terminal and returns its outcome.
func (a *Attempt) Result() Result {
	<-a.done
	return a.result
}
