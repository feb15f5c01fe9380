package shell

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// TeardownReport records the outcome of releasing every tab at shutdown.
type TeardownReport struct {
	Released int
	Failures []ReleaseFailure
}

// ReleaseFailure is a view that could not be released cleanly.
type ReleaseFailure struct {
	TabID TabID
	Err   error
}

// OK reports whether every release succeeded.
func (r TeardownReport) OK() bool { return len(r.Failures) == 0 }

// LogValue implements slog.LogValuer.
func (r TeardownReport) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("released", r.Released),
		slog.Int("failed", len(r.Failures)),
	}
	for _, f := range r.Failures {
		attrs = append(attrs, slog.String(string(f.TabID), f.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// releaseTimeout bounds engine calls made while releasing tabs outside the
// loop.
const releaseTimeout = 5 * time.Second

// Shutdown releases every tab and stops the loop. Every release is attempted;
// failures are collected rather than aborting teardown. When ctx ends before
// the loop picks up the request, the loop is stopped and the tabs are
// released from here. Later commands fail with ErrClosed. Calling Shutdown
// again returns the first report.
func (c *Controller) Shutdown(ctx context.Context) TeardownReport {
	var report TeardownReport
	err := ErrClosed
	if c.started.Load() {
		err = c.do(ctx, func(ctx context.Context) error {
			report = c.teardown(ctx)
			return nil
		})
	}
	c.stopOnce.Do(func() { close(c.stop) })
	if err == nil {
		return report
	}
	if !errors.Is(err, ErrClosed) {
		slog.Warn("shutdown did not reach the shell loop, releasing tabs directly", "error", err)
	}
	// stop is closed, so once the loop exits its state is ours.
	if c.started.Load() {
		<-c.done
	}
	rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	return c.teardown(rctx)
}

func (c *Controller) teardown(ctx context.Context) TeardownReport {
	if c.report != nil {
		return *c.report
	}
	var report TeardownReport
	c.presenter.Clear(ctx)
	for _, t := range c.registry.Tabs() {
		if err := t.View.Close(); err != nil {
			report.Failures = append(report.Failures, ReleaseFailure{TabID: t.ID, Err: err})
			continue
		}
		report.Released++
	}
	c.registry = NewRegistry(c.opts.Focus)
	c.closed = true
	c.report = &report
	return report
}
