package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/debounce"
	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
)

// DefaultWriteTimeout bounds a single debounced write.
const DefaultWriteTimeout = 5 * time.Second

type persisterConfig struct {
	logger  logging.Logger
	metrics *metrics.Registry
	now     func() time.Time
	timeout time.Duration
}

// Option configures a Persister.
type Option func(*persisterConfig)

// WithLogger sets the logger for write failures.
func WithLogger(l logging.Logger) Option {
	return func(c *persisterConfig) { c.logger = l }
}

// WithMetrics sets the registry write outcomes are counted in.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *persisterConfig) { c.metrics = r }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *persisterConfig) { c.now = now }
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *persisterConfig) { c.timeout = d }
}

// Persister mirrors one preference document in memory. Put updates the copy
// immediately and schedules a debounced write of the whole document.
type Persister[T any] struct {
	store Store
	key   string
	deb   *debounce.Debouncer
	cfg   persisterConfig

	mu  sync.Mutex
	doc Document

	// writeMu orders writes so a slow older write can't land after a newer one.
	writeMu sync.Mutex
}

// NewPersister creates a persister for key. The debouncer may be shared
// between persisters with different keys.
func NewPersister[T any](store Store, key string, deb *debounce.Debouncer, opts ...Option) *Persister[T] {
	cfg := persisterConfig{
		logger:  logging.NewNopLogger(),
		now:     time.Now,
		timeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = metrics.NewRegistry()
	}
	cfg.logger = cfg.logger.With(logging.Component("prefs"), logging.Key(key))

	return &Persister[T]{
		store: store,
		key:   key,
		deb:   deb,
		cfg:   cfg,
		doc:   Document{Data: make(map[string]Entry)},
	}
}

// NewPositionPersister persists node positions keyed by stable node id.
func NewPositionPersister(store Store, deb *debounce.Debouncer, opts ...Option) *Persister[geometry.Point] {
	return NewPersister[geometry.Point](store, KeyPositions, deb, opts...)
}

// NewParameterPersister persists simulation parameter overrides keyed by name.
func NewParameterPersister(store Store, deb *debounce.Debouncer, opts ...Option) *Persister[float64] {
	return NewPersister[float64](store, KeyParameters, deb, opts...)
}

// Key returns the preference key.
func (p *Persister[T]) Key() string { return p.key }

// Load reads the stored document and replaces the in-memory copy. A missing
// document is empty. Entries whose value does not decode are skipped.
func (p *Persister[T]) Load(ctx context.Context) (map[string]T, error) {
	doc, err := p.store.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		doc, err = Document{}, nil
	}
	if err != nil {
		return map[string]T{}, err
	}
	if doc.Data == nil {
		doc.Data = make(map[string]Entry)
	}

	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return p.Values(), nil
}

// Values decodes the in-memory document.
func (p *Persister[T]) Values() map[string]T {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]T, len(p.doc.Data))
	for id, e := range p.doc.Data {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			p.cfg.logger.Debug("skipping undecodable entry", logging.String("id", id), logging.Error(err))
			continue
		}
		out[id] = v
	}
	return out
}

// Put records v for id and schedules a write.
func (p *Persister[T]) Put(id string, v T) error {
	return p.PutAll(map[string]T{id: v})
}

// PutAll records several values under one timestamp and schedules a write.
func (p *Persister[T]) PutAll(values map[string]T) error {
	if len(values) == 0 {
		return nil
	}
	ts := p.cfg.now().UnixMilli()
	entries := make(map[string]Entry, len(values))
	for id, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return &StoreError{Op: "encode", Key: p.key, Cause: err}
		}
		entries[id] = Entry{Value: raw, Timestamp: ts}
	}

	p.mu.Lock()
	for id, e := range entries {
		p.doc.Data[id] = e
	}
	p.mu.Unlock()

	for id := range entries {
		p.schedule(id)
	}
	return nil
}

// Remove drops id and schedules a write when it was present.
func (p *Persister[T]) Remove(id string) bool {
	p.mu.Lock()
	_, ok := p.doc.Data[id]
	delete(p.doc.Data, id)
	p.mu.Unlock()

	if ok {
		p.schedule(id)
	}
	return ok
}

// Reset clears the document and schedules removal of the stored key.
func (p *Persister[T]) Reset() {
	p.mu.Lock()
	p.doc = Document{Data: make(map[string]Entry)}
	p.mu.Unlock()
	p.deb.CancelPrefix(p.key + "/")
	p.schedule("")
}

// Flush cancels this persister's pending writes and, if there were any,
// writes the document once on the caller's goroutine.
func (p *Persister[T]) Flush() bool {
	if p.deb.CancelPrefix(p.key+"/") == 0 {
		return false
	}
	p.write()
	return true
}

// schedule debounces per sub-key so a burst on one node or parameter collapses
// into one write, while each write carries the whole document.
func (p *Persister[T]) schedule(id string) {
	p.deb.Schedule(p.key+"/"+id, p.write)
}

func (p *Persister[T]) write() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	doc := p.doc.Clone()
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.timeout)
	defer cancel()

	timer := logging.StartTimer(p.cfg.logger, "preference write", logging.Count(len(doc.Data)))
	var err error
	if len(doc.Data) == 0 {
		_, err = p.store.Delete(ctx, p.key)
	} else {
		err = p.store.Set(ctx, p.key, doc)
	}
	p.cfg.metrics.RecordPersist(p.key, err)
	if err != nil {
		timer.EndError(err)
		return
	}
	timer.End()
}

// ApplyParameters overlays stored values on base. Unknown names and
// out-of-range values are skipped and reported.
func ApplyParameters(base graph.SimulationParameters, values map[string]float64) (graph.SimulationParameters, []error) {
	var problems []error
	for _, name := range graph.ParameterNames() {
		v, ok := values[name]
		if !ok {
			continue
		}
		next, err := base.With(name, v)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		base = next
	}
	for name := range values {
		if _, err := base.Get(name); err != nil {
			problems = append(problems, err)
		}
	}
	return base, problems
}
