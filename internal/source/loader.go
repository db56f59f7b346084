package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/pubsub"
	"github.com/karbon0x/clientdb/internal/store"
)

// Stats summarizes one resync pass.
type Stats struct {
	Added   int
	Updated int
	Removed int
}

// Loader mirrors the task table into a store. It remembers the rows it saw
// on the previous pass, so a resync translates into the minimal set of store
// mutations and the store's subscribers only hear about actual changes.
type Loader struct {
	db    *sql.DB
	store *store.Store

	mu    sync.Mutex
	known map[string]map[string]any
}

// NewLoader creates a loader over an opened task database.
func NewLoader(db *sql.DB, s *store.Store) *Loader {
	return &Loader{db: db, store: s, known: make(map[string]map[string]any)}
}

// Load seeds the store with the current table contents. Equivalent to a
// first Resync.
func (l *Loader) Load(ctx context.Context) (Stats, error) {
	return l.Resync(ctx)
}

// Resync re-reads the table and applies the difference to the store: unseen
// ids are added, changed rows are patched with only their changed fields,
// and rows that disappeared are removed. All mutations carry the sync source.
func (l *Loader) Resync(ctx context.Context) (Stats, error) {
	rows, err := l.fetch(ctx)
	if err != nil {
		return Stats{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var stats Stats
	for id, data := range rows {
		prev, seen := l.known[id]
		if !seen {
			e, err := entity.New("id", data)
			if err != nil {
				return stats, fmt.Errorf("row %s: %w", id, err)
			}
			l.store.Add(e, pubsub.SourceSync)
			stats.Added++
			continue
		}
		if patch := diffFields(prev, data); len(patch) > 0 {
			if _, err := l.store.Update(id, patch, pubsub.SourceSync); err != nil {
				return stats, fmt.Errorf("row %s: %w", id, err)
			}
			stats.Updated++
		}
	}
	for id := range l.known {
		if _, still := rows[id]; !still {
			l.store.RemoveByID(id, pubsub.SourceSync)
			stats.Removed++
		}
	}

	l.known = rows
	log.Info(log.CatSource, "resync applied", "added", stats.Added, "updated", stats.Updated, "removed", stats.Removed)
	return stats, nil
}

// fetch reads every task row into a map keyed by id.
func (l *Loader) fetch(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]map[string]any)
	for rows.Next() {
		data, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out[data["id"].(string)] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// diffFields returns the fields of next whose values differ from prev, plus
// a nil entry for fields prev had and next lost.
func diffFields(prev, next map[string]any) map[string]any {
	patch := make(map[string]any)
	for k, v := range next {
		if old, ok := prev[k]; !ok || !entity.EqualValues(old, v) {
			patch[k] = v
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			patch[k] = nil
		}
	}
	return patch
}
