// Package bridge owns the lifecycle of externally-hosted UI surfaces: the
// injected third-party widget script and the separate popup window used
// for the redirect handshake. It converts their eventual, unreliable
// completion signals into a single delivered credential or a single
// failure, and guarantees that teardown detaches every listener and timer
// so a stale signal can never reach a later attempt.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/logger"
)

const (
	// DefaultPollInterval is how often the popup-closed check runs.
	DefaultPollInterval = time.Second
	// DefaultTimeout is the hard upper bound on a popup handshake.
	DefaultTimeout = 5 * time.Minute
)

type Bridge struct {
	widgets  WidgetHost
	opener   WindowOpener
	hub      *Hub
	registry *Registry
	params   WidgetParams
	log      *zap.Logger

	PollInterval time.Duration
	Timeout      time.Duration

	mu sync.Mutex
	// gen increments on every open; completion closures capture their
	// generation and are discarded when it has moved on.
	gen     uint64
	active  bool
	loaded  bool
	cleanup []func()
}

func New(widgets WidgetHost, opener WindowOpener, params WidgetParams) *Bridge {
	if params.CallbackName == "" {
		params.CallbackName = DefaultCallbackName
	}
	if params.Size == "" {
		params.Size = "large"
	}
	if params.RequestAccess == "" {
		params.RequestAccess = "write"
	}
	return &Bridge{
		widgets:      widgets,
		opener:       opener,
		hub:          NewHub(),
		registry:     NewRegistry(),
		params:       params,
		log:          logger.Log,
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
	}
}

// Hub exposes the cross-context message channel so the callback bridge
// page can publish into it.
func (b *Bridge) Hub() *Hub { return b.hub }

// Registry exposes the global callback slot so the widget host can route
// script invocations through it.
func (b *Bridge) Registry() *Registry { return b.registry }

// WidgetLoaded reports whether the most recent widget script finished
// loading.
func (b *Bridge) WidgetLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

var (
	_ flow.WidgetChannel = (*Bridge)(nil)
	_ flow.PopupChannel  = (*Bridge)(nil)
	_ flow.SurfaceCloser = (*Bridge)(nil)
)

// OpenWidget injects the third-party script and registers the named global
// completion callback. Exactly one external surface may be open at a time;
// a second open is rejected rather than silently replacing the first.
func (b *Bridge) OpenWidget(deliver func(flow.Credential), fail func(error)) error {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return flow.ErrAttemptInProgress
	}
	b.gen++
	gen := b.gen
	b.active = true
	b.loaded = false
	b.mu.Unlock()

	name := b.params.CallbackName
	b.registry.register(name, func(cred flow.Credential) {
		if !b.current(gen) {
			b.log.Debug("dropping stale widget callback", zap.Uint64("gen", gen))
			return
		}
		deliver(cred)
	})

	handle, err := b.widgets.Mount(b.params,
		func() {
			b.mu.Lock()
			if b.gen == gen {
				b.loaded = true
			}
			b.mu.Unlock()
			b.log.Debug("widget script loaded")
		},
		func(err error) {
			if !b.current(gen) {
				return
			}
			fail(fmt.Errorf("%w: %v", flow.ErrWidgetLoadFailed, err))
		},
	)
	if err != nil {
		b.registry.deregister(name)
		b.mu.Lock()
		b.active = false
		b.mu.Unlock()
		return fmt.Errorf("%w: %v", flow.ErrWidgetLoadFailed, err)
	}

	b.mu.Lock()
	if b.active && b.gen == gen {
		b.cleanup = []func(){
			func() { b.registry.deregister(name) },
			handle.Remove,
		}
		b.mu.Unlock()
		return nil
	}
	// A load failure already tore the attempt down while Mount was still
	// returning; release what it produced.
	b.mu.Unlock()
	b.registry.deregister(name)
	handle.Remove()
	return nil
}

// OpenPopup opens the authorization window and watches for the first of
// three racing completion signals: a tagged return-channel message, the
// closed poll, or the hard timeout. A refused popup is detected
// synchronously and never becomes a silent hang.
func (b *Bridge) OpenPopup(ctx context.Context, authURL string, deliver func(flow.Credential), fail func(error)) error {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return flow.ErrAttemptInProgress
	}

	win, err := b.opener.Open(authURL)
	if err != nil || win == nil {
		b.mu.Unlock()
		return flow.ErrPopupBlocked
	}

	b.gen++
	gen := b.gen
	b.active = true

	msgs, unsubscribe := b.hub.Subscribe(OAuthMessageType)
	stop := make(chan struct{})
	b.cleanup = []func(){
		unsubscribe,
		func() { close(stop) },
	}
	b.mu.Unlock()

	go b.watch(ctx, gen, win, msgs, stop, deliver, fail)
	return nil
}

// watch runs until the first signal wins or teardown stops it. Whatever
// arrives after the first signal is ignored upstream via the generation
// and epoch guards.
func (b *Bridge) watch(ctx context.Context, gen uint64, win Window, msgs <-chan Message, stop <-chan struct{}, deliver func(flow.Credential), fail func(error)) {
	poll := time.NewTicker(b.PollInterval)
	defer poll.Stop()
	deadline := time.NewTimer(b.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			if b.current(gen) {
				fail(flow.ErrCancelled)
			}
			return
		case m := <-msgs:
			if !b.current(gen) {
				b.log.Debug("dropping stale popup message", zap.Uint64("gen", gen))
				return
			}
			deliver(flow.Credential(m.Payload))
			return
		case <-poll.C:
			if win.Closed() {
				if b.current(gen) {
					fail(flow.ErrCancelled)
				}
				return
			}
		case <-deadline.C:
			win.Close()
			if b.current(gen) {
				fail(flow.ErrTimedOut)
			}
			return
		}
	}
}

// Teardown releases the current surface: it detaches the message
// subscription, stops the watcher, deregisters the global callback slot
// and removes the injected script. Idempotent, and mandatory on every
// terminal transition so a stale callback can never fire into a new
// attempt.
func (b *Bridge) Teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.active = false
	b.loaded = false
	for _, f := range b.cleanup {
		f()
	}
	b.cleanup = nil
}

func (b *Bridge) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active && b.gen == gen
}
