// Package store implements the reactive in-memory entity registry: ordered
// identity storage, incrementally maintained field indexes, and memoized
// query views over an access-filtered collection.
package store

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/pubsub"
	"github.com/karbon0x/clientdb/internal/reactive"
)

// ItemEvent is the payload of entity lifecycle events.
type ItemEvent struct {
	Entity *entity.Entity

	// DataBefore is the pre-mutation data snapshot, set on ItemUpdated.
	DataBefore map[string]any

	// Input is the patch about to be applied, set on ItemWillUpdate.
	Input map[string]any

	Source pubsub.Source
}

// Store is the registry of record identity: an insertion-ordered sequence
// plus an identity map, the root reactive source feeding every index and
// query view. Mutations apply atomically under the store lock; lifecycle
// events are emitted after the transaction commits, so handlers re-entering
// the store always see fully-updated state.
type Store struct {
	def      entity.Definition
	ctx      any
	tracer   trace.Tracer
	diagnose func(error)

	mu        sync.Mutex
	destroyed bool

	graph       *reactive.Graph
	listCell    *reactive.Cell            // membership of sequence and map
	dataCell    *reactive.Cell            // any entity data change
	entityCells map[string]*reactive.Cell // per-entity data changes, for verdict memos

	order []*entity.Entity
	byKey map[string]*entity.Entity

	access   *reactive.Memo[[]*entity.Entity]
	verdicts *reactive.MemoMap[string, bool]

	indexes map[string]*FieldIndex
	queries *gocache.Cache

	bus      *pubsub.Bus[ItemEvent]
	broker   *pubsub.Broker[ItemEvent]
	cleanups *cleanupRegistry
}

// Option configures a store at construction.
type Option func(*Store)

// WithContext sets the opaque handle passed to the access validator.
func WithContext(ctx any) Option {
	return func(s *Store) { s.ctx = ctx }
}

// WithTracer instruments mutating operations with spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithDiagnostics overrides the hook receiving non-fatal diagnostics such as
// ambiguous unique-index lookups. The default logs a warning.
func WithDiagnostics(fn func(error)) Option {
	return func(s *Store) { s.diagnose = fn }
}

// New creates an empty store for one entity definition.
func New(def entity.Definition, opts ...Option) *Store {
	g := reactive.NewGraph()
	s := &Store{
		def:         def,
		graph:       g,
		listCell:    g.NewCell(def.Name + ":list"),
		dataCell:    g.NewCell(def.Name + ":data"),
		entityCells: make(map[string]*reactive.Cell),
		byKey:       make(map[string]*entity.Entity),
		indexes:     make(map[string]*FieldIndex),
		queries:     gocache.New(gocache.NoExpiration, 0),
		bus:         pubsub.NewBus[ItemEvent](),
		broker:      pubsub.NewBroker[ItemEvent](),
		cleanups:    &cleanupRegistry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.diagnose == nil {
		s.diagnose = func(err error) {
			log.Warn(log.CatStore, "diagnostic", "entity", def.Name, "detail", err.Error())
		}
	}

	s.verdicts = reactive.NewMemoMap(g, def.Name+":verdict", func(id string) bool {
		if cell, ok := s.entityCells[id]; ok {
			cell.Observe()
		}
		e, ok := s.byKey[id]
		if !ok {
			return false
		}
		return s.def.AccessValidator(e, s.ctx)
	}, reactive.WithEquals(reactive.Identity[bool]()))

	s.access = reactive.NewMemo(g, def.Name+":accessible", s.computeAccessible,
		reactive.WithEquals(reactive.SliceIdentity[*entity.Entity]))

	// Cleanup registry entries run in registration order on Destroy.
	s.cleanups.register(func() {
		for _, e := range s.order {
			e.Dispose()
		}
	})
	s.cleanups.register(func() { s.queries.Flush() })
	s.cleanups.register(func() { s.verdicts.Clear() })
	s.cleanups.register(s.bus.Destroy)
	s.cleanups.register(s.broker.Close)

	return s
}

// Definition returns the entity definition the store was built from.
func (s *Store) Definition() entity.Definition {
	return s.def
}

// computeAccessible derives the access-filtered root collection shared by
// every index and query view.
func (s *Store) computeAccessible() []*entity.Entity {
	s.listCell.Observe()
	if s.def.AccessValidator == nil {
		out := make([]*entity.Entity, len(s.order))
		copy(out, s.order)
		return out
	}
	s.dataCell.Observe()
	out := make([]*entity.Entity, 0, len(s.order))
	for _, e := range s.order {
		if s.verdicts.Get(e.Key()) {
			out = append(out, e)
		}
	}
	return out
}

// entityAccessible checks one entity against the validator, using the cached
// per-entity verdict.
func (s *Store) entityAccessible(e *entity.Entity) bool {
	if s.def.AccessValidator == nil {
		return true
	}
	return s.verdicts.Get(e.Key())
}

func (s *Store) checkAlive() {
	if s.destroyed {
		panic(fmt.Sprintf("store %s: use after destroy", s.def.Name))
	}
}

func (s *Store) span(name string, attrs ...attribute.KeyValue) trace.Span {
	if s.tracer == nil {
		return nil
	}
	_, span := s.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	return span
}

// Add registers an entity. A second add with an existing identity overwrites
// in place: the sequence slot is reused, the replaced entity is disposed, and
// the map entry is overwritten, so sequence and map never diverge. Emits
// ItemAdded after the transaction commits.
func (s *Store) Add(e *entity.Entity, source pubsub.Source) *entity.Entity {
	if e.KeyField() != s.def.KeyField {
		panic(fmt.Sprintf("store %s: entity keyed by %q, definition expects %q", s.def.Name, e.KeyField(), s.def.KeyField))
	}
	key := e.Key()

	if span := s.span("store.add",
		attribute.String("entity.type", s.def.Name),
		attribute.String("entity.key", key),
		attribute.String("source", string(source)),
	); span != nil {
		defer span.End()
	}

	s.mu.Lock()
	s.checkAlive()
	if old, exists := s.byKey[key]; exists {
		for i, cur := range s.order {
			if cur == old {
				s.order[i] = e
				break
			}
		}
		old.Dispose()
		for _, ix := range s.indexes {
			ix.remove(old)
			ix.add(e)
		}
		log.Debug(log.CatStore, "add overwrote existing entity", "entity", s.def.Name, "key", key)
	} else {
		s.order = append(s.order, e)
		for _, ix := range s.indexes {
			ix.add(e)
		}
	}
	s.byKey[key] = e
	s.entityCells[key] = s.graph.NewCell(s.def.Name + ":entity:" + key)
	s.verdicts.Delete(key)
	s.listCell.Bump()
	s.dataCell.Bump()
	s.mu.Unlock()

	s.emit(pubsub.ItemAdded, ItemEvent{Entity: e, Source: source})
	return e
}

// Update applies a data patch to an existing entity. It emits ItemWillUpdate
// with the input before applying and ItemUpdated with the pre-patch snapshot
// after. The identity field cannot be changed.
func (s *Store) Update(id string, patch map[string]any, source pubsub.Source) (*entity.Entity, error) {
	if span := s.span("store.update",
		attribute.String("entity.type", s.def.Name),
		attribute.String("entity.key", id),
		attribute.String("source", string(source)),
	); span != nil {
		defer span.End()
	}

	s.mu.Lock()
	s.checkAlive()
	e, ok := s.byKey[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{Entity: s.def.Name, Key: id}
	}
	if raw, touches := patch[s.def.KeyField]; touches && !entity.EqualValues(raw, e.Key()) {
		s.mu.Unlock()
		return nil, fmt.Errorf("update %s %q: %w", s.def.Name, id, ErrImmutableKey)
	}
	s.mu.Unlock()

	s.emit(pubsub.ItemWillUpdate, ItemEvent{Entity: e, Input: patch, Source: source})

	s.mu.Lock()
	s.checkAlive()
	// A will-update handler may have removed or replaced the entity.
	if s.byKey[id] != e {
		s.mu.Unlock()
		return nil, &NotFoundError{Entity: s.def.Name, Key: id}
	}
	before := e.Snapshot()
	e.Patch(patch)
	for _, ix := range s.indexes {
		ix.refresh(e)
	}
	if cell, ok := s.entityCells[id]; ok {
		cell.Bump()
	}
	s.dataCell.Bump()
	s.mu.Unlock()

	s.emit(pubsub.ItemUpdated, ItemEvent{Entity: e, DataBefore: before, Source: source})
	return e, nil
}

// RemoveByID removes an entity. Returns false (and emits nothing) when the
// identity is absent; otherwise disposes the entity, removes it from the
// sequence, the map, and every index bucket in one transaction, emits exactly
// one ItemRemoved, and returns true.
func (s *Store) RemoveByID(id string, source pubsub.Source) bool {
	if span := s.span("store.remove",
		attribute.String("entity.type", s.def.Name),
		attribute.String("entity.key", id),
		attribute.String("source", string(source)),
	); span != nil {
		defer span.End()
	}

	s.mu.Lock()
	s.checkAlive()
	e, ok := s.byKey[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.Dispose()
	for i, cur := range s.order {
		if cur == e {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.byKey, id)
	for _, ix := range s.indexes {
		ix.remove(e)
	}
	s.verdicts.Delete(id)
	delete(s.entityCells, id)
	s.listCell.Bump()
	s.dataCell.Bump()
	s.mu.Unlock()

	s.emit(pubsub.ItemRemoved, ItemEvent{Entity: e, Source: source})
	return true
}

// FindByID returns the entity for id, or nil when it is absent or rejected
// by the access validator. Reads are tracked, so a memo built over FindByID
// re-evaluates when the identity map or the entity's accessibility changes.
func (s *Store) FindByID(id string) *entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive()

	s.listCell.Observe()
	e, ok := s.byKey[id]
	if !ok || !s.entityAccessible(e) {
		return nil
	}
	return e
}

// AssertFindByID is FindByID but converts absence into a NotFoundError,
// carrying the optional caller-supplied message.
func (s *Store) AssertFindByID(id string, msg ...string) (*entity.Entity, error) {
	if e := s.FindByID(id); e != nil {
		return e, nil
	}
	nf := &NotFoundError{Entity: s.def.Name, Key: id}
	if len(msg) > 0 {
		nf.Message = msg[0]
	}
	return nil, nf
}

// Find returns all accessible entities matching the filter, in default order.
func (s *Store) Find(f entity.Filter) []*entity.Entity {
	return s.Query(f).All()
}

// FindFirst returns the first accessible entity matching the filter, or nil.
func (s *Store) FindFirst(f entity.Filter) *entity.Entity {
	return s.Query(f).First()
}

// FindByUniqueIndex looks up one entity by a field expected to hold unique
// values. More than one bucket entry raises a non-fatal diagnostic and uses
// the first match in insertion order. Returns nil when there is no match or
// the match is access-filtered out.
func (s *Store) FindByUniqueIndex(field string, value any) *entity.Entity {
	ix := s.KeyIndex(field)

	s.mu.Lock()
	matches := ix.lookupAll(value)
	var match *entity.Entity
	if len(matches) > 0 {
		match = matches[0]
		if !s.entityAccessible(match) {
			match = nil
		}
	}
	s.mu.Unlock()

	if len(matches) > 1 {
		s.diagnose(&AmbiguousUniqueIndexError{
			Entity: s.def.Name,
			Field:  field,
			Value:  value,
			Count:  len(matches),
		})
	}
	return match
}

// AssertFindByUniqueIndex is FindByUniqueIndex but fails with NotFoundError
// on a nil result.
func (s *Store) AssertFindByUniqueIndex(field string, value any) (*entity.Entity, error) {
	if e := s.FindByUniqueIndex(field, value); e != nil {
		return e, nil
	}
	return nil, &NotFoundError{
		Entity:  s.def.Name,
		Key:     entity.FormatValue(value),
		Message: fmt.Sprintf("%s with %s=%v not found", s.def.Name, field, value),
	}
}

// Query returns the cached QueryView for the filter and optional sort.
// Structurally equal arguments yield the same QueryView instance, which is
// what lets consumers re-subscribe cheaply.
func (s *Store) Query(f entity.Filter, sorts ...entity.Sort) *QueryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive()

	var srt entity.Sort
	if len(sorts) > 0 {
		srt = sorts[0]
	} else {
		srt = s.def.DefaultSort
	}

	key := queryCacheKey(f, srt)
	if cached, ok := s.queries.Get(key); ok {
		return cached.(*QueryView)
	}

	v := newQueryView(s, f, srt)
	s.queries.Set(key, v, gocache.NoExpiration)
	log.Debug(log.CatQuery, "query view created", "entity", s.def.Name, "key", key)
	return v
}

// Sort returns the cached QueryView over all accessible entities in the
// given order.
func (s *Store) Sort(srt entity.Sort) *QueryView {
	return s.Query(entity.All, srt)
}

// KeyIndex returns the field index for field, creating it lazily on first
// request. Indexes live until the store is destroyed.
func (s *Store) KeyIndex(field string) *FieldIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive()

	if ix, ok := s.indexes[field]; ok {
		return ix
	}
	ix := newFieldIndex(s, field)
	s.indexes[field] = ix
	s.cleanups.register(ix.dispose)
	log.Debug(log.CatIndex, "field index created", "entity", s.def.Name, "field", field, "entities", len(s.order))
	return ix
}

// Events returns the synchronous lifecycle event bus. Handlers run in
// subscription order before the emitting operation returns.
func (s *Store) Events() *pubsub.Bus[ItemEvent] {
	return s.bus
}

// EventBroker returns the asynchronous broker feed, for consumers such as
// the UI that must not block mutations.
func (s *Store) EventBroker() *pubsub.Broker[ItemEvent] {
	return s.broker
}

// Feed subscribes to the asynchronous event feed. The channel closes when
// ctx is cancelled.
func (s *Store) Feed(ctx context.Context) <-chan pubsub.Event[ItemEvent] {
	return s.broker.Subscribe(ctx)
}

// Len returns the number of live entities, before access filtering.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive()
	s.listCell.Observe()
	return len(s.order)
}

// Destroy tears the store down: every registered cleanup (entity disposers,
// index disposers, query cache, verdict cache, event channels) runs exactly
// once, in registration order. Any operation after Destroy, including a
// second Destroy, panics.
func (s *Store) Destroy() {
	if span := s.span("store.destroy", attribute.String("entity.type", s.def.Name)); span != nil {
		defer span.End()
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		panic(fmt.Sprintf("store %s: destroyed twice", s.def.Name))
	}
	s.destroyed = true
	s.mu.Unlock()

	s.cleanups.run()
	log.Info(log.CatStore, "store destroyed", "entity", s.def.Name)
}

// emit delivers one lifecycle event synchronously on the bus and mirrors it
// onto the async broker. Called with the store lock released so handlers can
// re-enter the store.
func (s *Store) emit(kind pubsub.EventType, ev ItemEvent) {
	log.Debug(log.CatEvent, "emit", "entity", s.def.Name, "type", string(kind), "key", ev.Entity.Key(), "source", string(ev.Source))
	s.bus.Emit(kind, ev)
	s.broker.Publish(kind, ev)
}

// cleanupRegistry holds nullary teardown callbacks invoked in registration
// order, exactly once.
type cleanupRegistry struct {
	mu   sync.Mutex
	fns  []func()
	done bool
}

func (c *cleanupRegistry) register(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

func (c *cleanupRegistry) run() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
