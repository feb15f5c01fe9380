package shell

import "context"

// Rect is a region of the host window in CSS pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size is the inner size of the host window.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// View is one tab's content view. All methods are called from the controller
// loop only.
type View interface {
	Load(ctx context.Context, url string) error
	URL() string
	CanGoBack(ctx context.Context) bool
	CanGoForward(ctx context.Context) bool
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	ReloadIgnoringCache(ctx context.Context) error

	// Attach makes the view the one shown in the window; Detach removes it
	// from the presentation surface.
	Attach(ctx context.Context) error
	Detach(ctx context.Context) error
	SetBounds(ctx context.Context, r Rect) error
	// SetThrottled suspends background rendering and timers when true.
	SetThrottled(ctx context.Context, throttled bool) error

	// Close releases the underlying engine resource.
	Close() error
}

// ViewHooks carries the engine events a view reports back to the shell.
// Hooks may be called from any goroutine.
type ViewHooks struct {
	// URLChanged fires after top-level and in-page navigations.
	URLChanged func()
	// FullscreenRequested fires when page content enters or leaves HTML
	// fullscreen.
	FullscreenRequested func(enter bool)
	// ToggleFullscreen fires on the fullscreen hotkey.
	ToggleFullscreen func()
}

// ViewFactory creates content views inside the shared browsing session.
type ViewFactory interface {
	NewView(ctx context.Context, hooks ViewHooks) (View, error)
}

// Window is the host window that content views are presented in.
type Window interface {
	ContentSize(ctx context.Context) (Size, error)
	SetFullscreen(ctx context.Context, on bool) error
}

// Notifier receives snapshot pushes for the UI layer.
type Notifier interface {
	Notify(kind string, payload any)
}

// FilterRefresher is the content blocker as seen by the shell.
type FilterRefresher interface {
	EnsureReady(ctx context.Context, force bool) error
}

const (
	EventTabsChanged       = "tabs-changed"
	EventFullscreenChanged = "fullscreen-changed"
)
