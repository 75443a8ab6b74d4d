package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marshub/authgate/flow"
)

type fakeHandle struct {
	mu      sync.Mutex
	removed bool
}

func (h *fakeHandle) Remove() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = true
}

func (h *fakeHandle) Removed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed
}

type fakeWidgetHost struct {
	mu       sync.Mutex
	mountErr error
	handle   *fakeHandle
	onLoad   func()
	onError  func(error)
	mounts   int
}

func (f *fakeWidgetHost) Mount(p WidgetParams, onLoad func(), onError func(error)) (WidgetHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mounts++
	if f.mountErr != nil {
		return nil, f.mountErr
	}
	f.handle = &fakeHandle{}
	f.onLoad = onLoad
	f.onError = onError
	return f.handle, nil
}

type fakeWindow struct {
	mu     sync.Mutex
	closed bool
}

func (w *fakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

type fakeOpener struct {
	blocked bool
	win     *fakeWindow
	opened  []string
}

func (o *fakeOpener) Open(url string) (Window, error) {
	o.opened = append(o.opened, url)
	if o.blocked {
		return nil, nil
	}
	o.win = &fakeWindow{}
	return o.win, nil
}

func newTestBridge(host *fakeWidgetHost, opener *fakeOpener) *Bridge {
	b := New(host, opener, WidgetParams{BotUsername: "TestBot"})
	b.PollInterval = 5 * time.Millisecond
	b.Timeout = time.Minute
	return b
}

type sink struct {
	creds chan flow.Credential
	fails chan error
}

func newSink() *sink {
	return &sink{creds: make(chan flow.Credential, 4), fails: make(chan error, 4)}
}

func (s *sink) deliver(c flow.Credential) { s.creds <- c }
func (s *sink) fail(err error)            { s.fails <- err }

func TestPopupBlockedDetectedSynchronously(t *testing.T) {
	opener := &fakeOpener{blocked: true}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail)
	if !errors.Is(err, flow.ErrPopupBlocked) {
		t.Fatalf("err = %v, want ErrPopupBlocked", err)
	}

	// No watcher, no async signal.
	select {
	case err := <-s.fails:
		t.Fatalf("unexpected async failure: %v", err)
	case c := <-s.creds:
		t.Fatalf("unexpected credential: %v", c)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPopupClosedByUserIsCancelled(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}
	opener.win.Close()

	select {
	case err := <-s.fails:
		if !errors.Is(err, flow.ErrCancelled) {
			t.Errorf("failure = %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close not observed within a poll interval")
	}
}

func TestPopupTimeoutForceCloses(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	b.Timeout = 10 * time.Millisecond
	b.PollInterval = time.Minute // poll must not win this race
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}

	select {
	case err := <-s.fails:
		if !errors.Is(err, flow.ErrTimedOut) {
			t.Errorf("failure = %v, want ErrTimedOut", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no timeout signal")
	}
	if !opener.win.Closed() {
		t.Error("popup not force-closed on timeout")
	}
}

func TestPopupMessageDeliversCredential(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}

	b.Hub().Publish(Message{Type: OAuthMessageType, Payload: map[string]string{"id": "123", "hash": "h"}})

	select {
	case c := <-s.creds:
		if c["id"] != "123" {
			t.Errorf("credential = %v", c)
		}
	case err := <-s.fails:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestPopupIgnoresForeignMessageTags(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}

	b.Hub().Publish(Message{Type: "something_else", Payload: map[string]string{"id": "123"}})

	select {
	case c := <-s.creds:
		t.Fatalf("foreign message delivered: %v", c)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSecondSurfaceRejectedWhileActive(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); !errors.Is(err, flow.ErrAttemptInProgress) {
		t.Errorf("second popup err = %v, want ErrAttemptInProgress", err)
	}
	if err := b.OpenWidget(s.deliver, s.fail); !errors.Is(err, flow.ErrAttemptInProgress) {
		t.Errorf("widget during popup err = %v, want ErrAttemptInProgress", err)
	}

	// After teardown a new surface may open.
	b.Teardown()
	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Errorf("popup after teardown: %v", err)
	}
}

func TestWidgetCallbackDeliversCredential(t *testing.T) {
	host := &fakeWidgetHost{}
	b := newTestBridge(host, &fakeOpener{})
	s := newSink()

	if err := b.OpenWidget(s.deliver, s.fail); err != nil {
		t.Fatalf("OpenWidget: %v", err)
	}
	host.onLoad()
	if !b.WidgetLoaded() {
		t.Error("WidgetLoaded = false after onLoad")
	}

	if ok := b.Registry().Invoke(DefaultCallbackName, flow.Credential{"id": "123"}); !ok {
		t.Fatal("Invoke found no registered slot")
	}

	select {
	case c := <-s.creds:
		if c["id"] != "123" {
			t.Errorf("credential = %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("credential never delivered")
	}
}

func TestWidgetLoadFailure(t *testing.T) {
	host := &fakeWidgetHost{}
	b := newTestBridge(host, &fakeOpener{})
	s := newSink()

	if err := b.OpenWidget(s.deliver, s.fail); err != nil {
		t.Fatalf("OpenWidget: %v", err)
	}
	host.onError(errors.New("script error"))

	select {
	case err := <-s.fails:
		if !errors.Is(err, flow.ErrWidgetLoadFailed) {
			t.Errorf("failure = %v, want ErrWidgetLoadFailed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no load failure signal")
	}
}

func TestWidgetMountErrorIsSynchronous(t *testing.T) {
	host := &fakeWidgetHost{mountErr: errors.New("no mount point")}
	b := newTestBridge(host, &fakeOpener{})
	s := newSink()

	if err := b.OpenWidget(s.deliver, s.fail); !errors.Is(err, flow.ErrWidgetLoadFailed) {
		t.Fatalf("err = %v, want ErrWidgetLoadFailed", err)
	}

	// The failed open left nothing behind.
	if err := b.OpenWidget(s.deliver, s.fail); !errors.Is(err, flow.ErrWidgetLoadFailed) {
		t.Errorf("second open err = %v", err)
	}
}

func TestStaleWidgetCallbackDroppedAfterTeardown(t *testing.T) {
	host := &fakeWidgetHost{}
	b := newTestBridge(host, &fakeOpener{})
	s := newSink()

	if err := b.OpenWidget(s.deliver, s.fail); err != nil {
		t.Fatalf("OpenWidget: %v", err)
	}
	b.Teardown()

	if ok := b.Registry().Invoke(DefaultCallbackName, flow.Credential{"id": "999"}); ok {
		t.Error("stale callback slot still owned after teardown")
	}
	select {
	case c := <-s.creds:
		t.Fatalf("stale credential delivered: %v", c)
	case <-time.After(30 * time.Millisecond):
	}
	if !host.handle.Removed() {
		t.Error("script element not removed at teardown")
	}
}

func TestTeardownIdempotent(t *testing.T) {
	host := &fakeWidgetHost{}
	b := newTestBridge(host, &fakeOpener{})
	s := newSink()

	if err := b.OpenWidget(s.deliver, s.fail); err != nil {
		t.Fatalf("OpenWidget: %v", err)
	}
	b.Teardown()
	b.Teardown()
	b.Teardown()
}

func TestLateMessageAfterTeardownDropped(t *testing.T) {
	opener := &fakeOpener{}
	b := newTestBridge(&fakeWidgetHost{}, opener)
	s := newSink()

	if err := b.OpenPopup(context.Background(), "https://example.com/auth", s.deliver, s.fail); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}
	b.Teardown()

	b.Hub().Publish(Message{Type: OAuthMessageType, Payload: map[string]string{"id": "123"}})

	select {
	case c := <-s.creds:
		t.Fatalf("late message delivered: %v", c)
	case err := <-s.fails:
		t.Fatalf("late failure delivered: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
}
