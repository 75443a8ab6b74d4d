// Package handshake arbitrates concurrent login attempts into a single
// race-safe session acquisition. The orchestrator accepts one start per
// strategy, keeps at most one attempt pending, exchanges the obtained
// credential with the backend exactly once, and emits exactly one terminal
// result per attempt regardless of how many completion signals race in.
package handshake

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/hostenv"
	"github.com/marshub/authgate/logger"
	"github.com/marshub/authgate/session"
)

// SuccessPath is where the sink is told to navigate after an accepted
// session.
const SuccessPath = "/"

type Orchestrator struct {
	env       hostenv.Environment
	exchanger flow.Exchanger
	password  *flow.PasswordStrategy
	external  map[hostenv.Strategy]flow.CredentialStrategy
	// exchangePaths maps an external strategy to its backend endpoint.
	exchangePaths map[hostenv.Strategy]string
	surfaces      flow.SurfaceCloser
	sink          session.Sink
	log           *zap.Logger
	tracer        trace.Tracer

	mu      sync.Mutex
	epoch   uint64
	current *Attempt
	loading bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the collaborator that consumes successful sessions.
func WithSink(sink session.Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithStrategy registers an external credential strategy together with the
// backend path its credential exchanges at. An empty path uses the
// exchanger's default.
func WithStrategy(kind hostenv.Strategy, s flow.CredentialStrategy, exchangePath string) Option {
	return func(o *Orchestrator) {
		o.external[kind] = s
		o.exchangePaths[kind] = exchangePath
	}
}

// WithSurfaces sets the bridge whose surfaces are released on every
// terminal transition.
func WithSurfaces(closer flow.SurfaceCloser) Option {
	return func(o *Orchestrator) { o.surfaces = closer }
}

func New(env hostenv.Environment, exchanger flow.Exchanger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		env:           env,
		exchanger:     exchanger,
		password:      flow.NewPasswordStrategy(exchanger),
		external:      make(map[hostenv.Strategy]flow.CredentialStrategy),
		exchangePaths: make(map[hostenv.Strategy]string),
		log:           logger.Log,
		tracer:        otel.Tracer("authgate/handshake"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Loading reports whether an attempt is pending; the caller uses it to
// drive its busy indicator.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// SubmitPassword runs the password strategy. Validation failures are
// returned immediately as a field-keyed ValidationError and never become a
// pending attempt.
func (o *Orchestrator) SubmitPassword(ctx context.Context, email, password string) (*Attempt, error) {
	if verr := o.password.Validate(email, password); verr != nil {
		return nil, verr
	}

	attempt, err := o.begin(ctx, hostenv.StrategyPassword)
	if err != nil {
		return nil, err
	}

	go func() {
		sess, err := o.password.Submit(ctx, email, password)
		if err != nil {
			o.fail(attempt.Epoch, hostenv.StrategyPassword, err)
			return
		}
		o.succeed(attempt.Epoch, sess)
	}()
	return attempt, nil
}

// Start begins an external strategy (widget, popup, or simulated). It is
// rejected when the strategy is not registered, not legal in the current
// environment, or another attempt is pending. A synchronous bridge refusal
// (blocked popup, failed script injection) terminates the freshly created
// attempt immediately rather than returning an error.
func (o *Orchestrator) Start(ctx context.Context, kind hostenv.Strategy) (*Attempt, error) {
	strategy, ok := o.external[kind]
	if !ok {
		return nil, flow.ErrEnvironmentNotSupported
	}

	attempt, err := o.begin(ctx, kind)
	if err != nil {
		return nil, err
	}

	// The first signal wins: a credential claims the attempt before the
	// exchange starts, and any bridge signal arriving afterwards is
	// discarded rather than allowed to preempt the in-flight exchange.
	deliver := func(cred flow.Credential) {
		if !o.claim(attempt.Epoch) {
			o.log.Debug("ignoring duplicate credential signal", zap.Uint64("epoch", attempt.Epoch))
			return
		}
		go o.exchange(ctx, attempt.Epoch, kind, cred)
	}
	fail := func(err error) {
		if o.claimed(attempt.Epoch) {
			o.log.Debug("ignoring bridge signal after credential", zap.Uint64("epoch", attempt.Epoch))
			return
		}
		o.fail(attempt.Epoch, kind, err)
	}

	if err := strategy.Start(ctx, deliver, fail); err != nil {
		o.fail(attempt.Epoch, kind, err)
		return attempt, nil
	}
	return attempt, nil
}

// begin transitions Idle -> Pending under the single-attempt invariant.
func (o *Orchestrator) begin(ctx context.Context, kind hostenv.Strategy) (*Attempt, error) {
	if !o.env.Allows(kind) {
		return nil, flow.ErrEnvironmentNotSupported
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		return nil, flow.ErrAttemptInProgress
	}

	o.epoch++
	_, span := o.tracer.Start(ctx, "handshake.attempt", trace.WithAttributes(
		attribute.String("auth.strategy", string(kind)),
		attribute.Int64("auth.epoch", int64(o.epoch)),
	))
	attempt := newAttempt(kind, o.epoch, span)
	o.current = attempt
	o.loading = true

	o.log.Info("attempt started",
		zap.String("strategy", string(kind)),
		zap.String("attempt_id", attempt.ID.String()),
		zap.Uint64("epoch", attempt.Epoch),
		zap.String("environment", o.env.Kind.String()),
	)
	return attempt, nil
}

// claim marks the current attempt as credential-obtained. It returns false
// when the attempt is stale, terminal, or already claimed.
func (o *Orchestrator) claim(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.current
	if a == nil || a.Epoch != epoch || a.exchanging {
		return false
	}
	a.exchanging = true
	return true
}

// claimed reports whether the attempt at epoch has already been claimed by
// a credential signal. Stale epochs report false; finish discards them
// anyway.
func (o *Orchestrator) claimed(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil && o.current.Epoch == epoch && o.current.exchanging
}

// exchange performs the single backend call for an obtained credential.
func (o *Orchestrator) exchange(ctx context.Context, epoch uint64, kind hostenv.Strategy, cred flow.Credential) {
	if cred.Empty() {
		o.fail(epoch, kind, flow.ErrEmptyCredential)
		return
	}
	sess, err := o.exchanger.CredentialLogin(ctx, o.exchangePaths[kind], cred)
	if err != nil {
		o.fail(epoch, kind, err)
		return
	}
	o.succeed(epoch, sess)
}

func (o *Orchestrator) succeed(epoch uint64, sess *session.Session) {
	o.finish(epoch, Result{Status: StatusSucceeded, Session: sess})
}

func (o *Orchestrator) fail(epoch uint64, kind hostenv.Strategy, err error) {
	slot, msg := userMessage(kind, err)
	o.finish(epoch, Result{Status: statusFor(err), Slot: slot, Message: msg, Err: err})
}

// finish records the terminal transition. Only the first signal for the
// current epoch is honored; anything after the attempt has already been
// recorded terminal is discarded, so a late widget callback or a late
// message cannot resurrect or corrupt a newer attempt.
func (o *Orchestrator) finish(epoch uint64, res Result) {
	o.mu.Lock()
	attempt := o.current
	if attempt == nil || attempt.Epoch != epoch {
		o.mu.Unlock()
		o.log.Debug("ignoring stale completion signal", zap.Uint64("epoch", epoch))
		return
	}
	o.current = nil
	o.loading = false
	o.mu.Unlock()

	// Guaranteed cleanup: every terminal branch releases the external
	// surface and ends the span exactly once, no matter which signal won.
	defer func() {
		if o.surfaces != nil {
			o.surfaces.Teardown()
		}
		attempt.span.End()
	}()

	if res.Err != nil {
		attempt.span.RecordError(res.Err)
		attempt.span.SetStatus(codes.Error, res.Status.String())
	} else {
		attempt.span.SetStatus(codes.Ok, res.Status.String())
	}

	if res.Status == StatusSucceeded && o.sink != nil {
		o.sink.OnAuthenticated(*res.Session)
		o.sink.NavigateTo(SuccessPath)
	}

	// The sink has already observed the session, so anyone released by
	// Done sees a fully delivered result.
	attempt.result = res
	close(attempt.done)

	o.log.Info("attempt finished",
		zap.String("strategy", string(attempt.Strategy)),
		zap.String("attempt_id", attempt.ID.String()),
		zap.Uint64("epoch", attempt.Epoch),
		zap.String("status", res.Status.String()),
		zap.Error(res.Err),
	)
}
