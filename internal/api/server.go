package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/cortex/internal/blocker"
	"github.com/dgnsrekt/cortex/internal/metrics"
	"github.com/dgnsrekt/cortex/internal/relay"
	"github.com/dgnsrekt/cortex/internal/shell"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the shell core as driven by the UI layer.
type Service interface {
	NewTab(ctx context.Context, url string) (int, error)
	SwitchTab(ctx context.Context, index int) error
	CloseTab(ctx context.Context, index int) error
	ActivateTab(ctx context.Context, id shell.TabID) error
	CloseTabByID(ctx context.Context, id shell.TabID) error
	Tabs(ctx context.Context) ([]shell.TabInfo, error)
	Navigate(ctx context.Context, input string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	RefreshFilters(ctx context.Context) error
	ToggleFullscreen(ctx context.Context) (bool, error)
	Fullscreen(ctx context.Context) (bool, error)
}

// FilterStatus reports the content blocker state.
type FilterStatus interface {
	Status() blocker.Status
}

// Options carries the optional parts of the server. Nil fields disable the
// matching routes.
type Options struct {
	Filters   FilterStatus
	Events    *relay.Broker
	Metrics   *metrics.Metrics
	RateLimit RateLimitConfig
	Access    AccessConfig
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func okStatus() *statusOutput {
	out := &statusOutput{}
	out.Body.Status = "ok"
	return out
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(opts.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(requireAccess(opts.Access))

	cfg := huma.DefaultConfig("Cortex Shell API", "1.0.0")
	cfg.DocsPath = ""

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(navBarHTML)); err != nil {
			slog.Debug("nav bar response write failed", "error", err)
		}
	})
	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}
	if opts.Events != nil {
		router.Get("/api/v1/events", relay.WSHandler(opts.Events, opts.Access.allowsOrigin))
		router.Get("/api/v1/events/sse", relay.SSEHandler(opts.Events))
	}

	router.Group(func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimit))
		api := humachi.New(r, cfg)
		registerTabHandlers(api, svc)
		registerNavigationHandlers(api, svc)
		registerMiscHandlers(api, svc, opts.Filters)
	})

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *shell.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case shell.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case shell.CodeTabNotFound:
			return huma.Error404NotFound(coded.Message)
		case shell.CodeEngineUnavailable, shell.CodeFilterFetchFailed:
			return huma.Error502BadGateway(coded.Message)
		case shell.CodeShellClosed:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
