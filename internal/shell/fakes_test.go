package shell

import (
	"context"
	"errors"
	"sync"
)

type fakeView struct {
	mu        sync.Mutex
	url       string
	history   []string
	pos       int
	attached  bool
	throttled bool
	bounds    Rect
	closed    bool
	reloads   int
	closeErr  error
	hooks     ViewHooks
}

func (v *fakeView) Load(ctx context.Context, url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = append(v.history[:v.pos+min(1, len(v.history))], url)
	v.pos = len(v.history) - 1
	v.url = url
	return nil
}

func (v *fakeView) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.url
}

func (v *fakeView) CanGoBack(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos > 0
}

func (v *fakeView) CanGoForward(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos < len(v.history)-1
}

func (v *fakeView) GoBack(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pos == 0 {
		return errors.New("no history")
	}
	v.pos--
	v.url = v.history[v.pos]
	return nil
}

func (v *fakeView) GoForward(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pos >= len(v.history)-1 {
		return errors.New("no forward history")
	}
	v.pos++
	v.url = v.history[v.pos]
	return nil
}

func (v *fakeView) ReloadIgnoringCache(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads++
	return nil
}

func (v *fakeView) Attach(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = true
	return nil
}

func (v *fakeView) Detach(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = false
	return nil
}

func (v *fakeView) SetBounds(ctx context.Context, r Rect) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bounds = r
	return nil
}

func (v *fakeView) SetThrottled(ctx context.Context, throttled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.throttled = throttled
	return nil
}

func (v *fakeView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return v.closeErr
}

func (v *fakeView) isAttached() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached
}

func (v *fakeView) isThrottled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.throttled
}

type fakeFactory struct {
	mu       sync.Mutex
	views    []*fakeView
	err      error
	closeErr error
}

func (f *fakeFactory) NewView(ctx context.Context, hooks ViewHooks) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v := &fakeView{hooks: hooks, closeErr: f.closeErr}
	f.views = append(f.views, v)
	return v, nil
}

func (f *fakeFactory) view(i int) *fakeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views[i]
}

type fakeWindow struct {
	mu         sync.Mutex
	size       Size
	fullscreen bool
	calls      []bool
}

func (w *fakeWindow) ContentSize(ctx context.Context) (Size, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size, nil
}

func (w *fakeWindow) SetFullscreen(ctx context.Context, on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fullscreen = on
	w.calls = append(w.calls, on)
	return nil
}

func (w *fakeWindow) fullscreenCalls() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.calls...)
}

type notification struct {
	kind    string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
	ch     chan notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notification, 64)}
}

func (n *recordingNotifier) Notify(kind string, payload any) {
	n.mu.Lock()
	n.events = append(n.events, notification{kind: kind, payload: payload})
	n.mu.Unlock()
	select {
	case n.ch <- notification{kind: kind, payload: payload}:
	default:
	}
}

func (n *recordingNotifier) last() (notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notification{}, false
	}
	return n.events[len(n.events)-1], true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type countingRefresher struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (r *countingRefresher) EnsureReady(ctx context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, force)
	return r.err
}
