package cdpview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/cortex/internal/blocker"
	"github.com/dgnsrekt/cortex/internal/shell"
)

// View is one tab. Its target lives in the session's default browser
// context.
type View struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *Session
	hooks   shell.ViewHooks

	mu        sync.RWMutex
	url       string
	mainFrame cdp.FrameID
	worlds    map[runtime.ExecutionContextID]bool

	// Bridge calls in arrival order, handled off the event listener.
	callMu     sync.Mutex
	calls      []bridgeCall
	callReady  chan struct{}
	bridgeOnce sync.Once
	// inFullscreen reports whether the document behind a bridge context has
	// a fullscreen element. Nil asks the page.
	inFullscreen func(ctx context.Context, id runtime.ExecutionContextID) (bool, error)
}

type bridgeCall struct {
	payload string
	context runtime.ExecutionContextID
}

func newView(ctx context.Context, s *Session, hooks shell.ViewHooks) (*View, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	v := &View{ctx: tabCtx, cancel: cancel, session: s, hooks: hooks}
	chromedp.ListenTarget(tabCtx, v.onEvent)

	setup := []chromedp.Action{
		page.Enable(),
		runtime.Enable(),
		runtime.AddBinding(bridgeBinding).WithExecutionContextName(bridgeWorld),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bridgeScript).WithWorldName(bridgeWorld).Do(ctx)
			return err
		}),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			v.mu.Lock()
			v.mainFrame = tree.Frame.ID
			v.mu.Unlock()
			return nil
		}),
	}
	if err := v.run(ctx, setup...); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return v, nil
}

func (v *View) run(ctx context.Context, actions ...chromedp.Action) error {
	return runOn(ctx, v.ctx, actions...)
}

// runOn executes actions on the target behind tabCtx, giving up when ctx is
// done. The actions keep running in the background in that case.
func runOn(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	errCh := make(chan error, 1)
	go func() { errCh <- chromedp.Run(tabCtx, actions...) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *View) onEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		v.filter(ev)
	case *page.EventFrameNavigated:
		if ev.Frame.ParentID != "" {
			return
		}
		v.mu.Lock()
		v.mainFrame = ev.Frame.ID
		v.url = ev.Frame.URL + ev.Frame.URLFragment
		v.mu.Unlock()
		v.fire(v.hooks.URLChanged)
	case *page.EventNavigatedWithinDocument:
		v.mu.Lock()
		main := ev.FrameID == v.mainFrame
		if main {
			v.url = ev.URL
		}
		v.mu.Unlock()
		if main {
			v.fire(v.hooks.URLChanged)
		}
	case *runtime.EventExecutionContextCreated:
		if ev.Context == nil || ev.Context.Name != bridgeWorld {
			return
		}
		v.mu.Lock()
		if v.worlds == nil {
			v.worlds = make(map[runtime.ExecutionContextID]bool)
		}
		v.worlds[ev.Context.ID] = true
		v.mu.Unlock()
	case *runtime.EventExecutionContextDestroyed:
		v.mu.Lock()
		delete(v.worlds, ev.ExecutionContextID)
		v.mu.Unlock()
	case *runtime.EventExecutionContextsCleared:
		v.mu.Lock()
		v.worlds = nil
		v.mu.Unlock()
	case *runtime.EventBindingCalled:
		if ev.Name != bridgeBinding {
			return
		}
		v.mu.RLock()
		trusted := v.worlds[ev.ExecutionContextID]
		v.mu.RUnlock()
		if !trusted {
			slog.Warn("bridge call from outside the bridge world ignored", "context_id", ev.ExecutionContextID)
			return
		}
		v.queueBridge(bridgeCall{payload: ev.Payload, context: ev.ExecutionContextID})
	}
}

func (v *View) fire(fn func()) {
	if fn != nil {
		fn()
	}
}

// queueBridge hands c to the bridge worker. Confirming a fullscreen request
// needs a CDP round trip, which the event listener must not wait for.
func (v *View) queueBridge(c bridgeCall) {
	v.bridgeOnce.Do(func() {
		v.callReady = make(chan struct{}, 1)
		go v.runBridge()
	})
	v.callMu.Lock()
	v.calls = append(v.calls, c)
	v.callMu.Unlock()
	select {
	case v.callReady <- struct{}{}:
	default:
	}
}

func (v *View) runBridge() {
	for {
		select {
		case <-v.ctx.Done():
			return
		case <-v.callReady:
		}
		v.callMu.Lock()
		pending := v.calls
		v.calls = nil
		v.callMu.Unlock()
		for _, c := range pending {
			v.onBridge(c)
		}
	}
}

func (v *View) onBridge(c bridgeCall) {
	switch c.payload {
	case bridgeToggle:
		v.fire(v.hooks.ToggleFullscreen)
	case bridgeEnter:
		on, err := v.documentFullscreen(c.context)
		if err != nil || !on {
			slog.Debug("fullscreen enter not confirmed by the document", "context_id", c.context, "error", err)
			return
		}
		if v.hooks.FullscreenRequested != nil {
			v.hooks.FullscreenRequested(true)
		}
	case bridgeLeave:
		if v.hooks.FullscreenRequested != nil {
			v.hooks.FullscreenRequested(false)
		}
	default:
		slog.Debug("unknown bridge message", "payload", c.payload)
	}
}

func (v *View) documentFullscreen(id runtime.ExecutionContextID) (bool, error) {
	ctx, cancel := context.WithTimeout(v.ctx, 2*time.Second)
	defer cancel()
	if v.inFullscreen != nil {
		return v.inFullscreen(ctx, id)
	}
	var on bool
	err := v.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(fullscreenCheck).WithContextID(id).WithReturnByValue(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("fullscreen check: %s", exc.Text)
		}
		on = res != nil && string(res.Value) == "true"
		return nil
	}))
	return on, err
}

// filter resolves a paused request. Listeners must not block, so the CDP
// reply is sent from a goroutine.
func (v *View) filter(ev *fetch.EventRequestPaused) {
	v.mu.RLock()
	isMain := ev.FrameID == v.mainFrame
	source := hostOf(v.url)
	v.mu.RUnlock()

	req := blocker.Request{
		URL:        ev.Request.URL,
		SourceHost: source,
		Type:       resourceType(ev.ResourceType, isMain),
	}
	blocked := v.session.ShouldBlock(req)
	id := ev.RequestID
	go func() {
		var err error
		if blocked {
			err = chromedp.Run(v.ctx, fetch.FailRequest(id, network.ErrorReasonBlockedByClient))
		} else {
			err = chromedp.Run(v.ctx, fetch.ContinueRequest(id))
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("resolve paused request failed", "url", req.URL, "blocked", blocked, "error", err)
		}
	}()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// resourceType maps a CDP resource type to filter list vocabulary.
func resourceType(t network.ResourceType, mainFrame bool) blocker.ResourceType {
	switch t {
	case network.ResourceTypeDocument:
		if mainFrame {
			return blocker.TypeDocument
		}
		return blocker.TypeSubdocument
	case network.ResourceTypeScript:
		return blocker.TypeScript
	case network.ResourceTypeImage:
		return blocker.TypeImage
	case network.ResourceTypeStylesheet:
		return blocker.TypeStylesheet
	case network.ResourceTypeXHR, network.ResourceTypeFetch, network.ResourceTypeEventSource:
		return blocker.TypeXHR
	case network.ResourceTypeFont:
		return blocker.TypeFont
	case network.ResourceTypeMedia, network.ResourceTypeTextTrack:
		return blocker.TypeMedia
	case network.ResourceTypePing, network.ResourceTypeCSPViolationReport:
		return blocker.TypePing
	case network.ResourceTypeWebSocket:
		return blocker.TypeWebSocket
	default:
		return blocker.TypeOther
	}
}

func navigate(ctx context.Context, target string) (cdp.FrameID, cdp.LoaderID, string, bool, error) {
	return page.Navigate(target).Do(ctx)
}

// Load starts navigating to target without waiting for the page to load.
func (v *View) Load(ctx context.Context, target string) error {
	return v.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := navigate(ctx, target)
		if err != nil {
			return err
		}
		v.mu.Lock()
		v.url = target
		v.mu.Unlock()
		if errText != "" {
			return fmt.Errorf("load %s: %s", target, errText)
		}
		return nil
	}))
}

func (v *View) URL() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.url
}

func (v *View) history(ctx context.Context) (int64, []*page.NavigationEntry, error) {
	var (
		cur     int64
		entries []*page.NavigationEntry
	)
	err := v.run(ctx, chromedp.NavigationEntries(&cur, &entries))
	return cur, entries, err
}

func (v *View) CanGoBack(ctx context.Context) bool {
	cur, _, err := v.history(ctx)
	return err == nil && cur > 0
}

func (v *View) CanGoForward(ctx context.Context) bool {
	cur, entries, err := v.history(ctx)
	return err == nil && cur < int64(len(entries)-1)
}

func (v *View) GoBack(ctx context.Context) error {
	return v.step(ctx, -1)
}

func (v *View) GoForward(ctx context.Context) error {
	return v.step(ctx, 1)
}

func (v *View) step(ctx context.Context, delta int64) error {
	cur, entries, err := v.history(ctx)
	if err != nil {
		return err
	}
	next := cur + delta
	if next < 0 || next >= int64(len(entries)) {
		return errors.New("no history entry in that direction")
	}
	return v.run(ctx, page.NavigateToHistoryEntry(entries[next].ID))
}

func (v *View) ReloadIgnoringCache(ctx context.Context) error {
	return v.run(ctx, page.Reload().WithIgnoreCache(true))
}

// Attach brings the tab to the front of the window.
func (v *View) Attach(ctx context.Context) error {
	return v.run(ctx, page.BringToFront(), page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive))
}

// Detach drops the tab's viewport override. Chromium keeps a background tab
// off screen on its own once another tab is in front.
func (v *View) Detach(ctx context.Context) error {
	return v.run(ctx, emulation.ClearDeviceMetricsOverride())
}

// SetBounds sizes the tab's viewport to r.
func (v *View) SetBounds(ctx context.Context, r shell.Rect) error {
	return v.run(ctx, emulation.SetDeviceMetricsOverride(int64(r.Width), int64(r.Height), 0, false).
		WithPositionX(int64(r.X)).
		WithPositionY(int64(r.Y)))
}

// SetThrottled freezes or resumes the page's web lifecycle.
func (v *View) SetThrottled(ctx context.Context, throttled bool) error {
	state := page.SetWebLifecycleStateStateActive
	if throttled {
		state = page.SetWebLifecycleStateStateFrozen
	}
	return v.run(ctx, page.SetWebLifecycleState(state))
}

// Close closes the tab's target and reports any error doing so.
func (v *View) Close() error {
	err := chromedp.Cancel(v.ctx)
	v.cancel()
	return err
}
