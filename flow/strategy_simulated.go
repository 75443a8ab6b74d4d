package flow

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// DefaultSimulatedDelay models the latency of a human completing a real
// widget interaction.
const DefaultSimulatedDelay = 1200 * time.Millisecond

// SimulatedStrategy synthesizes a telegram-shaped credential for offline
// development. The orchestrator refuses to start it outside the
// development environment.
type SimulatedStrategy struct {
	Delay time.Duration
	now   func() time.Time
}

func NewSimulatedStrategy() *SimulatedStrategy {
	return &SimulatedStrategy{Delay: DefaultSimulatedDelay, now: time.Now}
}

func (s *SimulatedStrategy) ID() string { return "simulated" }

// Start delivers a deterministic-shaped, non-deterministic-valued
// credential after the fixed artificial delay. Context cancellation before
// the delay elapses fails the attempt as cancelled.
func (s *SimulatedStrategy) Start(ctx context.Context, deliver func(Credential), fail func(error)) error {
	timer := time.NewTimer(s.Delay)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
			fail(ErrCancelled)
		case <-timer.C:
			deliver(s.synthesize())
		}
	}()
	return nil
}

func (s *SimulatedStrategy) synthesize() Credential {
	now := s.now()
	return Credential{
		"id":         fmt.Sprintf("%d", rand.Intn(1_000_000_000)),
		"first_name": "John",
		"username":   fmt.Sprintf("user_%d", now.Unix()),
		"auth_date":  fmt.Sprintf("%d", now.Unix()),
		"hash":       fmt.Sprintf("mock_%d", now.UnixMilli()),
	}
}
