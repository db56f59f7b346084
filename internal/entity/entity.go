// Package entity defines the records held by the store: their identity,
// data and view fields, and the declarative filter and sort vocabulary
// queries are built from.
package entity

import (
	"fmt"
	"strconv"
)

// Disposer releases any subscriptions or resources an entity holds.
type Disposer func()

// ViewField computes a derived field from the entity's current data.
type ViewField func(*Entity) any

// Definition describes one entity type to the store. It is supplied by the
// schema layer, which stays outside this module.
type Definition struct {
	// Name identifies the entity type, used in diagnostics and span names.
	Name string

	// KeyField is the designated identity field. Its value must be present
	// and string-coercible on every entity.
	KeyField string

	// DefaultSort orders query results when a query specifies none.
	// Nil means store insertion order.
	DefaultSort Sort

	// AccessValidator decides per-entity visibility. Nil means every entity
	// is accessible. The second argument is the opaque context handle the
	// store was constructed with.
	AccessValidator func(*Entity, any) bool
}

// Entity is one record in a store: a designated identity field, arbitrary
// data fields, optional computed view fields, and a disposer. Identity is
// coerced to a string at construction and immutable afterwards.
type Entity struct {
	key      string
	keyField string
	data     map[string]any
	views    map[string]ViewField
	disposer Disposer
	disposed bool
}

// Option configures an entity at construction.
type Option func(*Entity)

// WithView attaches a computed field. View fields shadow data fields of the
// same name on reads.
func WithView(name string, fn ViewField) Option {
	return func(e *Entity) {
		if e.views == nil {
			e.views = make(map[string]ViewField)
		}
		e.views[name] = fn
	}
}

// WithDisposer attaches the teardown invoked when the entity is removed from
// its store or the store is destroyed.
func WithDisposer(d Disposer) Option {
	return func(e *Entity) { e.disposer = d }
}

// New creates an entity. It fails when the identity field is absent or its
// value cannot be coerced to a string.
func New(keyField string, data map[string]any, opts ...Option) (*Entity, error) {
	raw, ok := data[keyField]
	if !ok {
		return nil, fmt.Errorf("entity: missing identity field %q", keyField)
	}
	key, ok := coerceKey(raw)
	if !ok {
		return nil, fmt.Errorf("entity: identity field %q has non-coercible value %T", keyField, raw)
	}

	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[k] = v
	}

	e := &Entity{key: key, keyField: keyField, data: fields}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MustNew is New for callers with known-good data, such as tests and seeds.
func MustNew(keyField string, data map[string]any, opts ...Option) *Entity {
	e, err := New(keyField, data, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Key returns the entity's identity.
func (e *Entity) Key() string {
	return e.key
}

// KeyField returns the name of the identity field.
func (e *Entity) KeyField() string {
	return e.keyField
}

// Get returns a field value. View fields take precedence over data fields;
// the second result is false when the field is defined by neither.
func (e *Entity) Get(field string) (any, bool) {
	if fn, ok := e.views[field]; ok {
		return fn(e), true
	}
	v, ok := e.data[field]
	return v, ok
}

// Snapshot returns a copy of the entity's data fields. View fields are
// excluded; they are derived, not stored.
func (e *Entity) Snapshot() map[string]any {
	out := make(map[string]any, len(e.data))
	for k, v := range e.data {
		out[k] = v
	}
	return out
}

// Patch merges fields into the entity's data. It must not be used to change
// the identity field; callers mutate through Store.Update, which enforces
// that and keeps indexes and events consistent.
func (e *Entity) Patch(fields map[string]any) {
	for k, v := range fields {
		e.data[k] = v
	}
}

// Dispose invokes the attached disposer. Repeated calls are no-ops.
func (e *Entity) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	if e.disposer != nil {
		e.disposer()
	}
}

func (e *Entity) String() string {
	return fmt.Sprintf("entity(%s=%s)", e.keyField, e.key)
}

// coerceKey converts an identity value to its canonical string form.
func coerceKey(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, k != ""
	case fmt.Stringer:
		return k.String(), true
	case int:
		return strconv.Itoa(k), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case float64:
		// JSON decoding yields float64 for numeric ids.
		if k == float64(int64(k)) {
			return strconv.FormatInt(int64(k), 10), true
		}
		return "", false
	default:
		return "", false
	}
}
