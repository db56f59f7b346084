package store

import (
	"iter"
	"sort"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/reactive"
)

// QueryView is a cached filtered/sorted derivation over the store's
// access-filtered root collection. All reads go through one memo: the view
// recomputes only when the root collection's membership or an entity's data
// changed, and shallow slice equality keeps purely representational churn
// from propagating downstream. Views are cached per store by the
// structural identity of their filter and sort, so equivalent Query calls
// return the same instance.
type QueryView struct {
	store  *Store
	filter entity.Filter
	sort   entity.Sort // nil means insertion order
	memo   *reactive.Memo[[]*entity.Entity]
}

// newQueryView builds a view. Caller holds the store lock.
func newQueryView(s *Store, f entity.Filter, srt entity.Sort) *QueryView {
	v := &QueryView{store: s, filter: f, sort: srt}
	v.memo = reactive.NewMemo(s.graph, s.def.Name+":query:"+queryCacheKey(f, srt), v.compute,
		reactive.WithEquals(reactive.SliceIdentity[*entity.Entity]))
	return v
}

func (v *QueryView) compute() []*entity.Entity {
	base := v.store.access.Get()
	// Filters and sorts read entity fields, which the collection reference
	// does not cover.
	v.store.dataCell.Observe()

	out := make([]*entity.Entity, 0, len(base))
	for _, e := range base {
		if v.filter.Matches(e) {
			out = append(out, e)
		}
	}
	if v.sort != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return v.sort.Compare(out[i], out[j]) < 0
		})
	}
	return out
}

// All returns the matching entities. The returned slice is the view's cache
// and must not be mutated; it stays reference-identical across reads while
// nothing relevant changed.
func (v *QueryView) All() []*entity.Entity {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.checkAlive()
	return v.memo.Get()
}

// First returns the first matching entity, or nil.
func (v *QueryView) First() *entity.Entity {
	all := v.All()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// Count returns the number of matching entities.
func (v *QueryView) Count() int {
	return len(v.All())
}

// Each streams the matching entities.
func (v *QueryView) Each() iter.Seq[*entity.Entity] {
	return func(yield func(*entity.Entity) bool) {
		for _, e := range v.All() {
			if !yield(e) {
				return
			}
		}
	}
}

// queryCacheKey canonicalizes a (filter, sort) pair for the per-store view
// cache.
func queryCacheKey(f entity.Filter, srt entity.Sort) string {
	sk := "insertion"
	if srt != nil {
		sk = srt.Key()
	}
	return f.Key() + "|" + sk
}
