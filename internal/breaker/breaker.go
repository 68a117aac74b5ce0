package breaker

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/ports"
	"github.com/botbridge/routecore/internal/events"
)

// State is the explicit health state of an endpoint, including the
// "never seen" case so callers never deal with a null-like absence.
type State int

const (
	StateAbsent State = iota
	StateClosed
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes the registry. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	// HalfOpenMaxProbes is advisory: probes beyond the cap are logged
	// but never rejected.
	HalfOpenMaxProbes int           `mapstructure:"half_open_max_probes"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	// SweepAfter is the inactivity window after which closed records
	// are removed. Open and half-open records are never swept.
	SweepAfter time.Duration `mapstructure:"sweep_after"`
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		SuccessThreshold:  2,
		OpenTimeout:       30 * time.Second,
		HalfOpenMaxProbes: 3,
		SweepInterval:     time.Minute,
		SweepAfter:        10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxProbes <= 0 {
		c.HalfOpenMaxProbes = d.HalfOpenMaxProbes
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.SweepAfter <= 0 {
		c.SweepAfter = d.SweepAfter
	}
	return c
}

type record struct {
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	lastChange  time.Time
}

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// Registry tracks per-endpoint health. The map is sharded so updates to
// unrelated endpoints never contend on one lock. All operations are
// total; nothing here ever returns an error.
type Registry struct {
	cfg      Config
	clock    ports.Clock
	logger   *zap.Logger
	notifier *events.Notifier
	shards   [shardCount]*shard
}

// Option configures a Registry.
type Option func(*Registry)

// WithNotifier wires state transitions into the async event notifier.
func WithNotifier(n *events.Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

func NewRegistry(cfg Config, clock ports.Clock, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		cfg:    cfg.withDefaults(),
		clock:  clock,
		logger: logger,
	}
	for i := range r.shards {
		r.shards[i] = &shard{records: make(map[string]*record)}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return r.shards[h.Sum32()%shardCount]
}

// Allow reports whether a request may be attempted against the endpoint.
// No record means healthy. In the open state, elapsing the open timeout
// transitions the record to half-open as a side effect of this call.
func (r *Registry) Allow(key string) bool {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return true
	}

	switch rec.state {
	case StateClosed:
		return true
	case StateOpen:
		if r.clock.Now().Sub(rec.lastFailure) >= r.cfg.OpenTimeout {
			r.transition(key, rec, StateHalfOpen, "open timeout elapsed")
			rec.probes = 1
			return true
		}
		return false
	case StateHalfOpen:
		rec.probes++
		if rec.probes > r.cfg.HalfOpenMaxProbes {
			r.logger.Debug("Half-open probe cap exceeded (advisory)",
				zap.String("endpoint", key),
				zap.Int("probes", rec.probes),
			)
		}
		return true
	default:
		return true
	}
}

// RecordSuccess updates health after a successful call. It is a no-op
// for endpoints with no record; success alone never creates state.
func (r *Registry) RecordSuccess(key string) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return
	}

	switch rec.state {
	case StateClosed:
		rec.failures = 0
	case StateHalfOpen:
		rec.successes++
		if rec.successes >= r.cfg.SuccessThreshold {
			r.transition(key, rec, StateClosed, "success threshold met")
			rec.failures = 0
			rec.successes = 0
			rec.probes = 0
		}
	case StateOpen:
		// Late response from before the trip; the open timeout governs
		// recovery, not stray successes.
	}
}

// RecordFailure updates health after a failed call, creating the record
// on first failure. In half-open a single failure reopens immediately.
func (r *Registry) RecordFailure(key string, reason string) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &record{state: StateClosed, lastChange: r.clock.Now()}
		s.records[key] = rec
	}

	rec.failures++
	rec.lastFailure = r.clock.Now()

	switch rec.state {
	case StateHalfOpen:
		r.transition(key, rec, StateOpen, reason)
		rec.successes = 0
		rec.probes = 0
	case StateClosed:
		if rec.failures >= r.cfg.FailureThreshold {
			r.transition(key, rec, StateOpen, reason)
		}
	case StateOpen:
		// Already open; the refreshed lastFailure pushes the next probe out.
	}
}

// Status returns the endpoint's current state without side effects.
func (r *Registry) Status(key string) State {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		return rec.state
	}
	return StateAbsent
}

// Snapshot is a point-in-time copy of one endpoint's record.
type Snapshot struct {
	Endpoint    string    `json:"endpoint"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	Successes   int       `json:"successes"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	LastChange  time.Time `json:"last_change,omitempty"`
}

// OpenEndpoints lists endpoints currently in the open state.
func (r *Registry) OpenEndpoints() []string {
	var open []string
	for _, s := range r.shards {
		s.mu.Lock()
		for key, rec := range s.records {
			if rec.state == StateOpen {
				open = append(open, key)
			}
		}
		s.mu.Unlock()
	}
	return open
}

// Reset removes the endpoint's record, returning it to implicit closed.
func (r *Registry) Reset(key string) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// ResetAll clears every record.
func (r *Registry) ResetAll() {
	for _, s := range r.shards {
		s.mu.Lock()
		s.records = make(map[string]*record)
		s.mu.Unlock()
	}
}

// Stats summarizes the registry for introspection endpoints.
type Stats struct {
	Tracked   int        `json:"tracked"`
	Closed    int        `json:"closed"`
	Open      int        `json:"open"`
	HalfOpen  int        `json:"half_open"`
	Endpoints []Snapshot `json:"endpoints,omitempty"`
}

// Stats returns a snapshot of every tracked endpoint.
func (r *Registry) Stats() Stats {
	var st Stats
	for _, s := range r.shards {
		s.mu.Lock()
		for key, rec := range s.records {
			st.Tracked++
			switch rec.state {
			case StateClosed:
				st.Closed++
			case StateOpen:
				st.Open++
			case StateHalfOpen:
				st.HalfOpen++
			}
			st.Endpoints = append(st.Endpoints, Snapshot{
				Endpoint:    key,
				State:       rec.state.String(),
				Failures:    rec.failures,
				Successes:   rec.successes,
				LastFailure: rec.lastFailure,
				LastChange:  rec.lastChange,
			})
		}
		s.mu.Unlock()
	}
	return st
}

// StartSweeper runs the periodic cleanup loop until ctx is done. Stale
// closed records are removed to bound memory; the sweep snapshots
// candidate keys first so request-path locks are only held briefly.
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Registry) sweep() {
	cutoff := r.clock.Now().Add(-r.cfg.SweepAfter)
	removed := 0

	for _, s := range r.shards {
		s.mu.Lock()
		var stale []string
		for key, rec := range s.records {
			if rec.state != StateClosed {
				continue
			}
			if rec.lastChange.Before(cutoff) && rec.lastFailure.Before(cutoff) {
				stale = append(stale, key)
			}
		}
		s.mu.Unlock()

		if len(stale) == 0 {
			continue
		}

		s.mu.Lock()
		for _, key := range stale {
			rec, ok := s.records[key]
			if !ok || rec.state != StateClosed {
				continue
			}
			if rec.lastChange.Before(cutoff) && rec.lastFailure.Before(cutoff) {
				delete(s.records, key)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		r.logger.Debug("Swept stale breaker records", zap.Int("removed", removed))
	}
}

// transition flips a record's state; caller holds the shard lock.
func (r *Registry) transition(key string, rec *record, to State, reason string) {
	from := rec.state
	rec.state = to
	rec.lastChange = r.clock.Now()

	r.logger.Info("Circuit state change",
		zap.String("endpoint", key),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason),
	)

	if r.notifier != nil {
		r.notifier.Publish(events.Transition{
			Endpoint: key,
			From:     from.String(),
			To:       to.String(),
			Reason:   reason,
			At:       rec.lastChange,
		})
	}
}
