package shell

import (
	"context"
	"log/slog"
)

// Viewport computes the content area for a window of the given size, leaving
// barHeight pixels at the top for a bar drawn over the content. When the bar
// is hidden (fullscreen) the content fills the whole window.
func Viewport(size Size, barHeight int, barHidden bool) Rect {
	if barHidden || barHeight <= 0 {
		return Rect{X: 0, Y: 0, Width: max(0, size.Width), Height: max(0, size.Height)}
	}
	return Rect{
		X:      0,
		Y:      barHeight,
		Width:  max(0, size.Width),
		Height: max(0, size.Height-barHeight),
	}
}

// Presenter keeps exactly one view bound to the window. Failures from the
// engine are logged and otherwise ignored.
type Presenter struct {
	window    Window
	presented View
	barHeight int
	barHidden bool
}

// NewPresenter builds a presenter that reserves barHeight pixels above the
// content. Zero gives the content the whole window.
func NewPresenter(window Window, barHeight int) *Presenter {
	return &Presenter{window: window, barHeight: barHeight}
}

// Presented returns the currently bound view, or nil.
func (p *Presenter) Presented() View { return p.presented }

// SetBarHidden records whether the navigation bar is hidden.
func (p *Presenter) SetBarHidden(hidden bool) { p.barHidden = hidden }

// Resize applies the viewport to v. A nil v is a no-op.
func (p *Presenter) Resize(ctx context.Context, v View) {
	if v == nil {
		return
	}
	size, err := p.window.ContentSize(ctx)
	if err != nil {
		slog.Debug("window size unavailable", "error", err)
		return
	}
	if err := v.SetBounds(ctx, Viewport(size, p.barHeight, p.barHidden)); err != nil {
		slog.Debug("set view bounds failed", "error", err)
	}
}

// Rebind detaches whatever is presented, attaches v and resizes it. A nil v
// leaves nothing presented.
func (p *Presenter) Rebind(ctx context.Context, v View) {
	p.Clear(ctx)
	if v == nil {
		return
	}
	if err := v.Attach(ctx); err != nil {
		slog.Debug("attach view failed", "error", err)
	}
	p.presented = v
	p.Resize(ctx, v)
}

// Clear detaches the presented view, if any.
func (p *Presenter) Clear(ctx context.Context) {
	if p.presented == nil {
		return
	}
	if err := p.presented.Detach(ctx); err != nil {
		slog.Debug("detach view failed", "error", err)
	}
	p.presented = nil
}

// Throttle suspends background work for every tab except the active one.
func (p *Presenter) Throttle(ctx context.Context, tabs []*Tab, active int) {
	for i, t := range tabs {
		if err := t.View.SetThrottled(ctx, i != active); err != nil {
			slog.Debug("set throttled failed", "tab_id", t.ID, "error", err)
		}
	}
}
