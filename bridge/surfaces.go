package bridge

import (
	"sync"

	"github.com/marshub/authgate/flow"
)

// WidgetParams are the fixed data attributes the injected third-party
// script reads from its element.
type WidgetParams struct {
	ScriptSrc     string
	BotUsername   string
	Size          string
	RequestAccess string
	// CallbackName is the named global completion function the script
	// invokes with the credential payload.
	CallbackName string
}

// DefaultCallbackName is the global slot the telegram widget script
// invokes.
const DefaultCallbackName = "onTelegramAuth"

// WidgetHandle is the injected script element. Remove tears the script and
// any content it rendered out of the mount point.
type WidgetHandle interface {
	Remove()
}

// WidgetHost is the externally-owned mount point capable of injecting a
// third-party script. onLoad and onError report script load; the
// credential itself arrives later through the registered callback slot.
type WidgetHost interface {
	Mount(p WidgetParams, onLoad func(), onError func(error)) (WidgetHandle, error)
}

// Window is an opened popup window. Closed is polled because the window's
// navigation cannot be observed once it leaves our origin.
type Window interface {
	Closed() bool
	Close()
}

// WindowOpener opens a new browser window. A refused popup is reported
// synchronously: implementations return a nil Window (or an error) when
// the environment blocks the open call.
type WindowOpener interface {
	Open(url string) (Window, error)
}

// Registry models the single named completion callback on the shared
// global object. It is a single-owner handle: the bridge registers the
// slot at attempt start and deregisters it at teardown, and an invocation
// of an unowned slot is dropped rather than delivered.
type Registry struct {
	mu    sync.Mutex
	slots map[string]func(flow.Credential)
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]func(flow.Credential))}
}

func (r *Registry) register(name string, fn func(flow.Credential)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[name] = fn
}

func (r *Registry) deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, name)
}

// Invoke is called by the external script through the host. It reports
// whether the slot was owned; stale invocations after teardown return
// false and have no other effect. The callback runs outside the registry
// lock so it may trigger teardown.
func (r *Registry) Invoke(name string, cred flow.Credential) bool {
	r.mu.Lock()
	fn, ok := r.slots[name]
	r.mu.Unlock()
	if !ok {
		return false
	}
	fn(cred)
	return true
}
