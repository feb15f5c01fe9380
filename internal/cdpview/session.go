// Package cdpview implements the shell's content views, host window and
// request filtering on top of a Chromium instance driven over CDP.
package cdpview

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/cortex/internal/blocker"
	"github.com/dgnsrekt/cortex/internal/metrics"
	"github.com/dgnsrekt/cortex/internal/shell"
)

// AllowedPermissions is the permission allow-list for content views.
// Everything else is denied.
var AllowedPermissions = []browser.PermissionType{
	browser.PermissionTypeAutomaticFullscreen,
	browser.PermissionTypePointerLock,
}

// Session is the shared browsing session. All views are tabs in the default
// browser context of one Chromium profile, so cookies, storage and the
// active rule set are shared between them.
type Session struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	uiCtx         context.Context
	uiCancel      context.CancelFunc

	rules   atomic.Pointer[blocker.RuleSet]
	metrics *metrics.Metrics
}

// Connect attaches to the browser at cdpURL. The first open page becomes the
// tab that hosts the navigation bar; one is created when there is none.
func Connect(ctx context.Context, cdpURL string, m *metrics.Metrics) (*Session, error) {
	slog.Info("connecting to chromium", "url", cdpURL)
	s := &Session{metrics: m}
	s.allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cdpURL)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	targets, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("enumerate targets: %w", err)
	}
	var uiTarget target.ID
	for _, t := range targets {
		if t.Type == "page" {
			uiTarget = t.TargetID
			break
		}
	}
	if uiTarget != "" {
		slog.Debug("attaching to existing page", "target_id", uiTarget)
		s.uiCtx, s.uiCancel = chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(uiTarget))
	} else {
		s.uiCtx, s.uiCancel = chromedp.NewContext(s.browserCtx)
	}

	if err := chromedp.Run(s.uiCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	if err := s.applyPermissions(ctx); err != nil {
		slog.Warn("permission policy not applied", "error", err)
	}
	return s, nil
}

func (s *Session) applyPermissions(ctx context.Context) error {
	c := chromedp.FromContext(s.browserCtx)
	if c == nil || c.Browser == nil {
		return chromedp.ErrInvalidContext
	}
	return grantPermissions().Do(cdp.WithExecutor(ctx, c.Browser))
}

// grantPermissions grants the allow-list to every origin in the default
// browser context. Chromium rejects every permission not listed.
func grantPermissions() *browser.GrantPermissionsParams {
	return browser.GrantPermissions(AllowedPermissions)
}

// OpenUI loads the navigation bar page in the host tab.
func (s *Session) OpenUI(ctx context.Context, url string) error {
	return chromedp.Run(s.uiCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := navigate(ctx, url)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("load %s: %s", url, errText)
		}
		return nil
	}))
}

// Activate swaps in rs for every view. It implements blocker.Activator.
func (s *Session) Activate(rs *blocker.RuleSet) {
	s.rules.Store(rs)
	slog.Info("content blocker active", "rules", rs.Len())
}

// ShouldBlock decides a request against the active rule set. Top-level
// documents and requests made before a rule set is active always pass.
func (s *Session) ShouldBlock(req blocker.Request) bool {
	if req.Type == blocker.TypeDocument {
		return false
	}
	rs := s.rules.Load()
	if rs == nil {
		return false
	}
	blocked := rs.ShouldBlock(req)
	s.metrics.ObserveDecision(blocked)
	return blocked
}

// NewView opens a new tab in the shared session. It implements
// shell.ViewFactory.
func (s *Session) NewView(ctx context.Context, hooks shell.ViewHooks) (shell.View, error) {
	return newView(ctx, s, hooks)
}

// Window returns the host window.
func (s *Session) Window() *Window {
	return &Window{ctx: s.uiCtx}
}

// Close detaches from the browser. Tabs must be closed first.
func (s *Session) Close() {
	if s.uiCancel != nil {
		s.uiCancel()
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
