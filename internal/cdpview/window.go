package cdpview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/cortex/internal/shell"
)

// Window is the Chromium window that hosts the navigation bar tab and every
// content tab.
type Window struct {
	ctx context.Context
}

// ContentSize reports the inner size of the window, measured on the
// navigation bar tab.
func (w *Window) ContentSize(ctx context.Context) (shell.Size, error) {
	var size shell.Size
	err := w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, css, _, _, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		if css == nil {
			return fmt.Errorf("layout metrics missing css viewport")
		}
		size = shell.Size{Width: int(css.ClientWidth), Height: int(css.ClientHeight)}
		return nil
	}))
	return size, err
}

// SetFullscreen switches the window between fullscreen and normal state.
func (w *Window) SetFullscreen(ctx context.Context, on bool) error {
	state := browser.WindowStateNormal
	if on {
		state = browser.WindowStateFullscreen
	}
	return w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(w.ctx)
		if c == nil || c.Target == nil || c.Browser == nil {
			return chromedp.ErrInvalidContext
		}
		bctx := cdp.WithExecutor(ctx, c.Browser)
		id, _, err := browser.GetWindowForTarget().WithTargetID(c.Target.TargetID).Do(bctx)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		return browser.SetWindowBounds(id, &browser.Bounds{WindowState: state}).Do(bctx)
	}))
}

// Watch polls the content size every interval and calls fn when it changes.
// It returns when ctx is done.
func (w *Window) Watch(ctx context.Context, interval time.Duration, fn func(shell.Size)) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last shell.Size
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			size, err := w.ContentSize(ctx)
			if err != nil {
				slog.Debug("window size poll failed", "error", err)
				continue
			}
			if size != last {
				last = size
				fn(size)
			}
		}
	}
}

func (w *Window) run(ctx context.Context, actions ...chromedp.Action) error {
	return runOn(ctx, w.ctx, actions...)
}
