package reactive

import (
	"github.com/karbon0x/clientdb/internal/log"
)

// Memo is a cached derivation. Get returns the cached result while every
// dependency recorded during the last computation is unchanged; otherwise it
// recomputes, re-records what it read, and bumps its own version only when the
// new result differs under the configured equality policy. Staleness checks
// are pull-based: each dependency is refreshed before its version is compared,
// so a chain of memos revalidates from the leaves up.
type Memo[T any] struct {
	graph  *Graph
	name   string
	fn     func() T
	equals func(prev, next T) bool

	versions  map[dependency]uint64
	order     []dependency
	cached    T
	valid     bool
	version   uint64
	computing bool
}

// MemoOption configures a memo.
type MemoOption[T any] func(*Memo[T])

// WithEquals sets the result equality policy. Without it, every recompute is
// treated as a change, which defeats caching for derived slices and maps that
// are recreated on each read.
func WithEquals[T any](eq func(prev, next T) bool) MemoOption[T] {
	return func(m *Memo[T]) { m.equals = eq }
}

// NewMemo creates a memo on the graph. fn must be pure apart from observing
// cells and reading other memos.
func NewMemo[T any](g *Graph, name string, fn func() T, opts ...MemoOption[T]) *Memo[T] {
	m := &Memo[T]{graph: g, name: name, fn: fn}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the derivation result, recomputing only if needed, and records
// the read in any enclosing computation.
func (m *Memo[T]) Get() T {
	m.revalidate()
	m.graph.record(m, m.version)
	return m.cached
}

// Invalidate drops the cache unconditionally. The next Get recomputes.
func (m *Memo[T]) Invalidate() {
	m.valid = false
}

func (m *Memo[T]) refresh()           { m.revalidate() }
func (m *Memo[T]) depVersion() uint64 { return m.version }

func (m *Memo[T]) revalidate() {
	if m.computing {
		panic("reactive: dependency cycle through memo " + m.name)
	}
	if m.valid && !m.stale() {
		return
	}

	m.computing = true
	defer func() { m.computing = false }()

	t := m.graph.begin()
	var result T
	func() {
		defer m.graph.end()
		result = m.fn()
	}()

	changed := !m.valid || m.equals == nil || !m.equals(m.cached, result)
	m.versions = t.versions
	m.order = t.order
	m.cached = result
	m.valid = true
	if changed {
		m.version++
		log.Debug(log.CatReactive, "memo recomputed", "memo", m.name, "version", m.version, "deps", len(m.order))
	}
}

func (m *Memo[T]) stale() bool {
	for _, d := range m.order {
		d.refresh()
		if d.depVersion() != m.versions[d] {
			return true
		}
	}
	return false
}

// MemoMap lazily maintains one memo per key, for derivations that are
// per-item rather than per-collection (e.g. one access verdict per entity).
type MemoMap[K comparable, T any] struct {
	graph *Graph
	name  string
	fn    func(K) T
	opts  []MemoOption[T]
	memos map[K]*Memo[T]
}

// NewMemoMap creates an empty keyed memo family.
func NewMemoMap[K comparable, T any](g *Graph, name string, fn func(K) T, opts ...MemoOption[T]) *MemoMap[K, T] {
	return &MemoMap[K, T]{
		graph: g,
		name:  name,
		fn:    fn,
		opts:  opts,
		memos: make(map[K]*Memo[T]),
	}
}

// Get returns the derivation result for key, creating its memo on first use.
func (mm *MemoMap[K, T]) Get(key K) T {
	m, ok := mm.memos[key]
	if !ok {
		k := key
		m = NewMemo(mm.graph, mm.name, func() T { return mm.fn(k) }, mm.opts...)
		mm.memos[key] = m
	}
	return m.Get()
}

// Delete discards the memo for key.
func (mm *MemoMap[K, T]) Delete(key K) {
	delete(mm.memos, key)
}

// Clear discards all memos.
func (mm *MemoMap[K, T]) Clear() {
	mm.memos = make(map[K]*Memo[T])
}

// Len returns the number of live memos.
func (mm *MemoMap[K, T]) Len() int {
	return len(mm.memos)
}
