package shell

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/cortex/internal/metrics"
)

// Options configures a Controller.
type Options struct {
	HomeURL   string
	SearchURL string
	Focus     FocusPolicy
	Metrics   *metrics.Metrics
	// BarHeight reserves space above the content for a bar drawn over it.
	// Zero when the bar lives outside the content area.
	BarHeight int
}

// Controller owns the tab registry and the presenter. Every mutation runs on
// a single loop goroutine; API calls and engine events are submitted to it.
type Controller struct {
	factory  ViewFactory
	window   Window
	notifier Notifier
	filters  FilterRefresher
	opts     Options

	cmds     chan func()
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	// Engine events in arrival order, drained by the loop.
	evMu    sync.Mutex
	events  []func(ctx context.Context)
	evReady chan struct{}

	// Owned by the loop.
	loopCtx    context.Context
	registry   *Registry
	presenter  *Presenter
	fullscreen bool
	closed     bool
	report     *TeardownReport
}

// NewController builds a controller. Call Start before submitting commands.
func NewController(factory ViewFactory, window Window, notifier Notifier, filters FilterRefresher, opts Options) *Controller {
	if opts.HomeURL == "" {
		opts.HomeURL = "https://www.google.com"
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	return &Controller{
		factory:   factory,
		window:    window,
		notifier:  notifier,
		filters:   filters,
		opts:      opts,
		cmds:      make(chan func()),
		evReady:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		registry:  NewRegistry(opts.Focus),
		presenter: NewPresenter(window, opts.BarHeight),
	}
}

// Start runs the command loop until ctx is cancelled or Shutdown completes.
func (c *Controller) Start(ctx context.Context) {
	c.loopCtx = ctx
	c.started.Store(true)
	go c.loop(ctx)
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.evReady:
			c.drainEvents()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// do runs fn on the loop and waits for its result.
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errCh := make(chan error, 1)
	cmd := func() {
		if c.closed {
			errCh <- ErrClosed
			return
		}
		errCh <- fn(ctx)
	}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues an engine event without blocking the caller. Events run on the
// loop in the order they were posted.
func (c *Controller) post(fn func(ctx context.Context)) {
	c.evMu.Lock()
	c.events = append(c.events, fn)
	c.evMu.Unlock()
	select {
	case c.evReady <- struct{}{}:
	default:
	}
}

func (c *Controller) drainEvents() {
	c.evMu.Lock()
	pending := c.events
	c.events = nil
	c.evMu.Unlock()
	for _, fn := range pending {
		if c.closed {
			return
		}
		fn(c.loopCtx)
	}
}

// NewTab opens rawURL (the home page when empty) in a new active tab and
// returns its index.
func (c *Controller) NewTab(ctx context.Context, rawURL string) (int, error) {
	var index int
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		index, err = c.newTab(ctx, rawURL)
		return err
	})
	return index, err
}

func (c *Controller) newTab(ctx context.Context, rawURL string) (int, error) {
	target := c.opts.HomeURL
	if rawURL != "" {
		target = Normalize(rawURL, c.opts.SearchURL)
	}
	id := NewTabID()
	view, err := c.factory.NewView(ctx, c.hooks(id))
	if err != nil {
		return -1, newError(CodeEngineUnavailable, "create view failed", err)
	}
	index := c.registry.Append(&Tab{ID: id, View: view})
	if err := view.Load(ctx, target); err != nil {
		slog.Warn("initial load failed", "tab_id", id, "url", target, "error", err)
	}
	c.activate(ctx)
	slog.Info("tab created", "tab_id", id, "index", index, "url", target)
	return index, nil
}

func (c *Controller) hooks(id TabID) ViewHooks {
	return ViewHooks{
		URLChanged: func() {
			c.post(func(context.Context) { c.notifyTabs() })
		},
		FullscreenRequested: func(enter bool) {
			c.post(func(ctx context.Context) { c.setFullscreen(ctx, enter) })
		},
		ToggleFullscreen: func() {
			c.post(func(ctx context.Context) { c.setFullscreen(ctx, !c.fullscreen) })
		},
	}
}

// SwitchTab activates the tab at index. Out of range indexes are ignored.
func (c *Controller) SwitchTab(ctx context.Context, index int) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.switchTo(ctx, index)
		return nil
	})
}

func (c *Controller) switchTo(ctx context.Context, index int) {
	if _, ok := c.registry.At(index); !ok {
		slog.Debug("switch ignored, index out of range", "index", index, "tabs", c.registry.Len())
		return
	}
	c.presenter.Clear(ctx)
	c.registry.SetActive(index)
	c.activate(ctx)
}

// CloseTab releases the tab at index. Out of range indexes are ignored.
func (c *Controller) CloseTab(ctx context.Context, index int) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.closeAt(ctx, index)
		return nil
	})
}

func (c *Controller) closeAt(ctx context.Context, index int) {
	t, ok := c.registry.Remove(index)
	if !ok {
		slog.Debug("close ignored, index out of range", "index", index, "tabs", c.registry.Len())
		return
	}
	if c.presenter.Presented() == t.View {
		c.presenter.Clear(ctx)
	}
	if err := t.View.Close(); err != nil {
		slog.Warn("tab release failed", "tab_id", t.ID, "error", err)
	}
	c.activate(ctx)
	slog.Info("tab closed", "tab_id", t.ID, "index", index, "remaining", c.registry.Len())
}

// ActivateTab activates the tab with the given identifier.
func (c *Controller) ActivateTab(ctx context.Context, id TabID) error {
	return c.do(ctx, func(ctx context.Context) error {
		index := c.registry.IndexOf(id)
		if index < 0 {
			return newError(CodeTabNotFound, "tab not found: "+string(id), nil)
		}
		c.switchTo(ctx, index)
		return nil
	})
}

// CloseTabByID releases the tab with the given identifier.
func (c *Controller) CloseTabByID(ctx context.Context, id TabID) error {
	return c.do(ctx, func(ctx context.Context) error {
		index := c.registry.IndexOf(id)
		if index < 0 {
			return newError(CodeTabNotFound, "tab not found: "+string(id), nil)
		}
		c.closeAt(ctx, index)
		return nil
	})
}

// Tabs returns the current tab snapshot.
func (c *Controller) Tabs(ctx context.Context) ([]TabInfo, error) {
	var out []TabInfo
	err := c.do(ctx, func(context.Context) error {
		out = c.registry.Snapshot()
		return nil
	})
	return out, err
}

// activate presents the active tab, reapplies throttling and pushes a
// snapshot. With no tabs nothing is presented.
func (c *Controller) activate(ctx context.Context) {
	t, index, ok := c.registry.Active()
	if !ok {
		c.presenter.Clear(ctx)
		c.notifyTabs()
		return
	}
	c.presenter.Throttle(ctx, c.registry.Tabs(), index)
	c.presenter.Rebind(ctx, t.View)
	c.notifyTabs()
}

func (c *Controller) notifyTabs() {
	c.opts.Metrics.SetTabs(c.registry.Len())
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(EventTabsChanged, c.registry.Snapshot())
}

// Navigate resolves input and loads it in the active tab. Without an active
// tab, or with blank input, it does nothing.
func (c *Controller) Navigate(ctx context.Context, input string) error {
	return c.do(ctx, func(ctx context.Context) error {
		t, _, ok := c.registry.Active()
		if !ok {
			return nil
		}
		target := Normalize(input, c.opts.SearchURL)
		if target == "" {
			return nil
		}
		if err := t.View.Load(ctx, target); err != nil {
			slog.Warn("navigate failed", "tab_id", t.ID, "url", target, "error", err)
		}
		return nil
	})
}

// Back goes back in the active tab when its history allows.
func (c *Controller) Back(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		t, _, ok := c.registry.Active()
		if !ok || !t.View.CanGoBack(ctx) {
			return nil
		}
		if err := t.View.GoBack(ctx); err != nil {
			slog.Warn("back failed", "tab_id", t.ID, "error", err)
		}
		return nil
	})
}

// Forward goes forward in the active tab when its history allows.
func (c *Controller) Forward(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		t, _, ok := c.registry.Active()
		if !ok || !t.View.CanGoForward(ctx) {
			return nil
		}
		if err := t.View.GoForward(ctx); err != nil {
			slog.Warn("forward failed", "tab_id", t.ID, "error", err)
		}
		return nil
	})
}

// Reload reloads the active tab bypassing the cache.
func (c *Controller) Reload(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		t, _, ok := c.registry.Active()
		if !ok {
			return nil
		}
		if err := t.View.ReloadIgnoringCache(ctx); err != nil {
			slog.Warn("reload failed", "tab_id", t.ID, "error", err)
		}
		return nil
	})
}

// RefreshFilters forces a content blocker refresh. It runs outside the loop
// so tab commands are not held up by list downloads.
func (c *Controller) RefreshFilters(ctx context.Context) error {
	if c.filters == nil {
		return nil
	}
	if err := c.filters.EnsureReady(ctx, true); err != nil {
		return newError(CodeFilterFetchFailed, "filter refresh failed", err)
	}
	return nil
}

// ToggleFullscreen flips window fullscreen and returns the new state.
func (c *Controller) ToggleFullscreen(ctx context.Context) (bool, error) {
	var state bool
	err := c.do(ctx, func(ctx context.Context) error {
		c.setFullscreen(ctx, !c.fullscreen)
		state = c.fullscreen
		return nil
	})
	return state, err
}

// Fullscreen reports the current fullscreen state.
func (c *Controller) Fullscreen(ctx context.Context) (bool, error) {
	var state bool
	err := c.do(ctx, func(context.Context) error {
		state = c.fullscreen
		return nil
	})
	return state, err
}

// WindowResized is called by the engine when the host window changes size.
func (c *Controller) WindowResized() {
	c.post(func(ctx context.Context) {
		t, _, ok := c.registry.Active()
		if !ok {
			return
		}
		c.presenter.Resize(ctx, t.View)
	})
}

func (c *Controller) setFullscreen(ctx context.Context, on bool) {
	if on == c.fullscreen {
		return
	}
	if err := c.window.SetFullscreen(ctx, on); err != nil {
		slog.Warn("set fullscreen failed", "fullscreen", on, "error", err)
		return
	}
	c.fullscreen = on
	c.presenter.SetBarHidden(on)
	if t, _, ok := c.registry.Active(); ok {
		c.presenter.Rebind(ctx, t.View)
	}
	if c.notifier != nil {
		c.notifier.Notify(EventFullscreenChanged, on)
	}
}
