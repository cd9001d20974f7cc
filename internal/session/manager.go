// Package session keeps per-user state: the ticker registry and the loader
// cache. Sessions live in memory only and are swept when idle.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockForecast/internal/collector"
	"StockForecast/internal/registry"
)

// Options configure new sessions.
type Options struct {
	Baseline        []string
	DefaultTicker   string
	CacheMaxEntries int
	IdleTTL         time.Duration
	LookbackDays    int // history fetched per ticker; 0 means collector.LookbackDays
}

type entry struct {
	sess     *Session
	lastSeen time.Time
}

// Manager owns all live sessions with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	fetcher  collector.Fetcher
	opts     Options
	now      func() time.Time
	base     *slog.Logger
	log      *slog.Logger
}

// NewManager creates a Manager whose sessions load data through fetcher.
func NewManager(fetcher collector.Fetcher, opts Options, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*entry),
		fetcher:  fetcher,
		opts:     opts,
		now:      time.Now,
		base:     log,
		log:      log.With("component", "sessions"),
	}
}

// SetClock overrides the time source used for idle tracking.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// New starts a session with a fresh id, baseline tickers and an empty cache.
func (m *Manager) New() *Session {
	loader := collector.NewLoader(m.fetcher, collector.NewMemoryCache(m.opts.CacheMaxEntries), m.base)
	loader.SetLookbackDays(m.opts.LookbackDays)
	s := &Session{
		ID:       uuid.NewString(),
		Registry: registry.New(m.opts.Baseline, m.opts.DefaultTicker),
		Loader:   loader,
		created:  m.now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = &entry{sess: s, lastSeen: s.created}
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Debug("session started", "session", s.ID, "live", n)
	return s
}

// Get returns the session for id and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.sess, true
}

// GetOrCreate returns the session for id, starting a new one when id is
// unknown. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.New(), true
}

// End drops the session immediately.
func (m *Manager) End(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep ends sessions idle longer than the configured TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	removed := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	live := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.log.Info("idle sessions swept", "removed", removed, "live", live)
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
