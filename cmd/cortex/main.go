package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/cortex/internal/api"
	"github.com/dgnsrekt/cortex/internal/blocker"
	"github.com/dgnsrekt/cortex/internal/browser"
	"github.com/dgnsrekt/cortex/internal/cdpview"
	"github.com/dgnsrekt/cortex/internal/config"
	"github.com/dgnsrekt/cortex/internal/metrics"
	"github.com/dgnsrekt/cortex/internal/netutil"
	"github.com/dgnsrekt/cortex/internal/relay"
	"github.com/dgnsrekt/cortex/internal/shell"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.LoadShell()
	if err != nil {
		slog.Error("failed to load shell config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("cortex config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"launch_browser", cfg.LaunchBrowser,
		"browser_binary", cfg.BrowserBinary,
		"profile_dir", cfg.ProfileDir,
		"data_dir", cfg.DataDir,
		"filter_lists", cfg.FilterListsPath,
		"filter_ttl", cfg.FilterTTL,
		"close_focus", cfg.CloseFocus,
		"bar_height", cfg.BarHeight,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	focus, err := shell.ParseFocusPolicy(cfg.CloseFocus)
	if err != nil {
		slog.Error("invalid close focus policy", "error", err)
		os.Exit(1)
	}

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	bindAddr := ln.Addr().String()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			Binary:     cfg.BrowserBinary,
			ProfileDir: cfg.ProfileDir,
			WindowSize: cfg.WindowSize,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		if !launcher.Running() {
			slog.Info("reusing existing browser, it will be left running on exit")
		}
	}

	session, err := cdpview.Connect(ctx, cfg.CDPURL(), m)
	if err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		stopBrowser(launcher)
		os.Exit(1)
	}

	manager, err := newBlocker(cfg, session, m)
	if err != nil {
		slog.Error("failed to set up content blocker", "error", err)
		session.Close()
		stopBrowser(launcher)
		os.Exit(1)
	}

	broker := relay.NewBroker(m)
	window := session.Window()
	ctrl := shell.NewController(session, window, broker, manager, shell.Options{
		HomeURL:   cfg.HomeURL,
		SearchURL: cfg.SearchURL,
		Focus:     focus,
		Metrics:   m,
		BarHeight: cfg.BarHeight,
	})
	ctrl.Start(ctx)

	go func() {
		if err := manager.EnsureReady(ctx, false); err != nil {
			slog.Warn("content blocker not ready", "error", err)
		}
		manager.Watch(ctx, 0)
	}()
	go window.Watch(ctx, time.Duration(cfg.ResizePollMS)*time.Millisecond, func(size shell.Size) {
		slog.Debug("window resized", "width", size.Width, "height", size.Height)
		ctrl.WindowResized()
	})

	// The token reaches the navigation bar through the URL fragment, which
	// is never sent to the server or to other origins.
	token := uuid.NewString()
	uiURL := "http://" + bindAddr + "/"

	h := api.NewServer(ctrl, api.Options{
		Filters: manager,
		Events:  broker,
		Metrics: m,
		Access: api.AccessConfig{
			Origin: "http://" + bindAddr,
			Token:  token,
		},
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})
	srv := &http.Server{Handler: h}

	go func() {
		slog.Info("cortex listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("cortex server failed", "error", err)
			os.Exit(1)
		}
	}()

	if err := session.OpenUI(ctx, uiURL+"#token="+token); err != nil {
		slog.Error("failed to open navigation bar", "error", err)
	}
	if _, err := ctrl.NewTab(ctx, ""); err != nil {
		slog.Error("failed to open initial tab", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	// Event streams never finish on their own, so close them before draining
	// the server.
	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("cortex server shutdown failed", "error", err)
	}

	releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRelease()
	report := ctrl.Shutdown(releaseCtx)
	if report.OK() {
		slog.Info("tabs released", "report", report)
	} else {
		slog.Warn("tabs released with failures", "report", report)
	}

	stop()
	session.Close()
	stopBrowser(launcher)
}

func newBlocker(cfg *config.ShellConfig, session *cdpview.Session, m *metrics.Metrics) (*blocker.Manager, error) {
	sources := blocker.DefaultSources
	lists, err := config.LoadFilterLists(cfg.FilterListsPath)
	switch {
	case err == nil:
		sources = lists.Sources()
	case errors.Is(err, os.ErrNotExist):
		slog.Info("no filter list config, using defaults", "path", cfg.FilterListsPath)
	default:
		return nil, err
	}

	store, err := blocker.NewStore(filepath.Join(cfg.DataDir, "blocker"))
	if err != nil {
		return nil, err
	}
	fetcher := blocker.NewHTTPFetcher(blocker.FetchConfig{
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	}, nil)
	return blocker.NewManager(store, fetcher, session, blocker.Options{
		Sources: sources,
		TTL:     cfg.FilterTTL,
		Metrics: m,
	}), nil
}

func stopBrowser(l *browser.Launcher) {
	if l != nil {
		l.Stop()
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
