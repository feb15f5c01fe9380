package blocker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/cortex/internal/metrics"
)

// DefaultTTL is how long a fetched rule set stays fresh.
const DefaultTTL = 6 * time.Hour

// DefaultSources are the lists compiled when none are configured.
var DefaultSources = []string{
	"https://easylist.to/easylist/easylist.txt",
	"https://easylist.to/easylist/easyprivacy.txt",
}

// State is the manager's lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Activator applies a rule set to the shared browsing session. Requests in
// flight and later requests see the new set.
type Activator interface {
	Activate(rs *RuleSet)
}

// Options configures a Manager.
type Options struct {
	Sources []string
	TTL     time.Duration
	Now     func() time.Time
	Metrics *metrics.Metrics
}

// Status is a point-in-time view of the manager.
type Status struct {
	State     string    `json:"state"`
	Rules     int       `json:"rules"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	Sources   []string  `json:"sources"`
	LastError string    `json:"last_error,omitempty"`
}

// Manager loads, caches and refreshes the content blocker rule set.
type Manager struct {
	store     *Store
	fetcher   Fetcher
	activator Activator
	sources   []string
	ttl       time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics

	// refreshMu serializes EnsureReady. mu guards the fields below and is
	// never held across disk or network access.
	refreshMu sync.Mutex
	mu        sync.Mutex
	state     State
	active    *RuleSet
	fetchedAt time.Time
	lastErr   error
}

func NewManager(store *Store, fetcher Fetcher, activator Activator, opts Options) *Manager {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:     store,
		fetcher:   fetcher,
		activator: activator,
		sources:   opts.Sources,
		ttl:       opts.TTL,
		now:       opts.Now,
		metrics:   opts.Metrics,
	}
}

// EnsureReady makes a rule set active, fetching the lists when the persisted
// set is missing or stale or when force is set. A fresh persisted set is
// loaded from disk without network access. When fetching fails the previous
// set stays active (loaded from disk if needed) and the error is returned;
// with nothing to fall back on blocking stays disabled.
func (m *Manager) EnsureReady(ctx context.Context, force bool) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	meta, haveMeta, err := m.store.ReadMeta()
	if err != nil {
		slog.Warn("blocker metadata unreadable, refreshing", "error", err)
	}
	stale := !haveMeta || m.now().Sub(meta.Time()) > m.ttl
	state := m.State()

	if state == Ready && !stale && !force {
		return nil
	}
	triedDisk := false
	if state != Ready && !stale && !force {
		err := m.loadPersisted(meta)
		if err == nil {
			return nil
		}
		triedDisk = true
		slog.Warn("persisted rule set unusable, refreshing", "error", err)
	}

	if err := m.refresh(ctx); err != nil {
		if state != Ready && haveMeta && !triedDisk {
			if loadErr := m.loadPersisted(meta); loadErr != nil {
				slog.Warn("no usable rule set, blocking disabled", "error", loadErr)
			} else {
				slog.Warn("filter refresh failed, using persisted rule set", "error", err)
			}
		} else {
			slog.Warn("filter refresh failed", "state", state, "error", err)
		}
		m.mu.Lock()
		m.lastErr = err
		rules := m.active.Len()
		m.mu.Unlock()
		m.metrics.ObserveRefresh("failed", rules)
		return err
	}
	return nil
}

func (m *Manager) loadPersisted(meta Meta) error {
	rules, err := m.store.LoadRules()
	if err != nil {
		return err
	}
	rs, err := Compile(rules)
	if err != nil {
		return err
	}
	m.activate(rs, meta.Time(), false)
	m.metrics.ObserveRefresh("loaded", rs.Len())
	slog.Info("rule set loaded from disk", "rules", rs.Len(), "fetched_at", meta.Time())
	return nil
}

func (m *Manager) refresh(ctx context.Context) error {
	if m.fetcher == nil {
		return errors.New("no filter list fetcher configured")
	}
	var rules []string
	for _, src := range m.sources {
		data, err := m.fetcher.Fetch(ctx, src)
		if err != nil {
			return err
		}
		parsed := ParseList(data)
		slog.Debug("filter list parsed", "source", src, "bytes", len(data), "rules", len(parsed))
		rules = append(rules, parsed...)
	}
	if len(rules) == 0 {
		return fmt.Errorf("filter lists produced no rules")
	}
	rs, err := Compile(rules)
	if err != nil {
		return err
	}

	now := m.now()
	if err := m.store.Save(rules, Meta{FetchedAt: now.UnixMilli()}); err != nil {
		// The fetched set is still usable for this session.
		slog.Warn("persist rule set failed", "error", err)
	}
	m.activate(rs, now, true)
	m.metrics.ObserveRefresh("fetched", rs.Len())
	slog.Info("filter lists refreshed", "sources", len(m.sources), "rules", rs.Len())
	return nil
}

// activate publishes rs. Callers hold refreshMu, so activations reach the
// activator in order.
func (m *Manager) activate(rs *RuleSet, fetchedAt time.Time, fetched bool) {
	m.mu.Lock()
	m.active = rs
	m.fetchedAt = fetchedAt
	m.state = Ready
	if fetched {
		m.lastErr = nil
	}
	m.mu.Unlock()
	if m.activator != nil {
		m.activator.Activate(rs)
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current state, rule count and last fetch time.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:     m.state.String(),
		Rules:     m.active.Len(),
		FetchedAt: m.fetchedAt,
		Sources:   append([]string(nil), m.sources...),
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

// Watch calls EnsureReady(false) every interval until ctx is done, so a
// long-running session picks up refreshed lists once the TTL expires.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.EnsureReady(ctx, false); err != nil {
				slog.Debug("periodic filter check failed", "error", err)
			}
		}
	}
}
