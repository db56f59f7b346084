package store

import (
	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/log"
)

// FieldIndex maintains, for one field, a mapping from field value to the set
// of entity identities currently holding that value. It is updated
// incrementally inside the store's mutation transactions: adds insert into
// the value's bucket, removals delete from the bucket the entity was last
// indexed under, and updates move the identity between buckets when the
// value changed. Entities that do not define the field are not indexed.
type FieldIndex struct {
	store *Store
	field string

	// buckets maps canonical field values to identity sets.
	buckets map[string]map[string]struct{}

	// last records the bucket each identity currently lives in, so removal
	// and moves never need the (possibly already mutated) field value.
	last map[string]string

	disposed bool
}

// newFieldIndex builds the index from the store's current entities.
// Caller holds the store lock.
func newFieldIndex(s *Store, field string) *FieldIndex {
	ix := &FieldIndex{
		store:   s,
		field:   field,
		buckets: make(map[string]map[string]struct{}),
		last:    make(map[string]string),
	}
	for _, e := range s.order {
		ix.add(e)
	}
	return ix
}

// Field returns the indexed field name.
func (ix *FieldIndex) Field() string {
	return ix.field
}

// Find returns the accessible entities currently holding value, in store
// insertion order. Reads are tracked for reactivity.
func (ix *FieldIndex) Find(value any) []*entity.Entity {
	s := ix.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAlive()

	s.listCell.Observe()
	s.dataCell.Observe()

	set := ix.buckets[entity.ValueKey(value)]
	if len(set) == 0 {
		return nil
	}
	out := make([]*entity.Entity, 0, len(set))
	for _, e := range s.order {
		if _, ok := set[e.Key()]; !ok {
			continue
		}
		if s.entityAccessible(e) {
			out = append(out, e)
		}
	}
	return out
}

// lookupAll returns bucket members before access filtering, in insertion
// order. Caller holds the store lock.
func (ix *FieldIndex) lookupAll(value any) []*entity.Entity {
	set := ix.buckets[entity.ValueKey(value)]
	if len(set) == 0 {
		return nil
	}
	out := make([]*entity.Entity, 0, len(set))
	for _, e := range ix.store.order {
		if _, ok := set[e.Key()]; ok {
			out = append(out, e)
		}
	}
	return out
}

// add indexes an entity under its current field value. Caller holds the
// store lock.
func (ix *FieldIndex) add(e *entity.Entity) {
	v, ok := e.Get(ix.field)
	if !ok {
		return
	}
	vk := entity.ValueKey(v)
	bucket, ok := ix.buckets[vk]
	if !ok {
		bucket = make(map[string]struct{})
		ix.buckets[vk] = bucket
	}
	bucket[e.Key()] = struct{}{}
	ix.last[e.Key()] = vk
}

// remove deletes an entity from the bucket it was last indexed under.
// Caller holds the store lock.
func (ix *FieldIndex) remove(e *entity.Entity) {
	key := e.Key()
	vk, ok := ix.last[key]
	if !ok {
		return
	}
	delete(ix.last, key)
	if bucket, ok := ix.buckets[vk]; ok {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(ix.buckets, vk)
		}
	}
}

// refresh re-derives the entity's bucket after a data change and moves the
// identity when the field value changed. Runs for every update: the field
// may be a view computed from other data, so a direct patch check is not
// enough. Caller holds the store lock.
func (ix *FieldIndex) refresh(e *entity.Entity) {
	key := e.Key()
	old, hadOld := ix.last[key]

	v, ok := e.Get(ix.field)
	if !ok {
		if hadOld {
			ix.remove(e)
			log.Debug(log.CatIndex, "entity left index", "field", ix.field, "key", key, "bucket", old)
		}
		return
	}
	vk := entity.ValueKey(v)
	if hadOld && old == vk {
		return
	}
	if hadOld {
		ix.remove(e)
	}
	ix.add(e)
	log.Debug(log.CatIndex, "entity moved bucket", "field", ix.field, "key", key, "from", old, "to", vk)
}

// dispose releases the index. Registered with the store's cleanup registry.
func (ix *FieldIndex) dispose() {
	if ix.disposed {
		return
	}
	ix.disposed = true
	ix.buckets = nil
	ix.last = nil
}
