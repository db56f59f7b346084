// Package source feeds a store from a local SQLite task database. The loader
// seeds the store on startup and resyncs on demand, diffing rows against what
// it loaded last time so the store only sees real adds, updates, and removals.
package source

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/karbon0x/clientdb/internal/entity"
)

// Schema creates the task table backing the demo database.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	assignee TEXT,
	project TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// taskColumns is the list of columns selected for task rows.
const taskColumns = `id, title, body, status, priority, assignee, project, created_at, updated_at`

// Open opens the task database read-write, creating the file if needed, and
// ensures the schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open task db %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure task schema: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens an existing task database for loading.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open task db %s: %w", path, err)
	}
	return db, nil
}

// Definition returns the entity definition for task records. Tasks are keyed
// by their row id and default to priority order with creation time as the
// tiebreaker.
func Definition() entity.Definition {
	return entity.Definition{
		Name:        "task",
		KeyField:    "id",
		DefaultSort: entity.SortBy("priority").Then("created_at"),
	}
}

// scanTask converts one row into the entity data map. Nullable columns are
// omitted when NULL rather than stored as empty values.
func scanTask(scanner interface{ Scan(...any) error }) (map[string]any, error) {
	var (
		id, title, body, status string
		priority                int64
		assignee, project       sql.NullString
		createdAt, updatedAt    sql.NullTime
	)
	if err := scanner.Scan(&id, &title, &body, &status, &priority, &assignee, &project, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	data := map[string]any{
		"id":       id,
		"title":    title,
		"body":     body,
		"status":   status,
		"priority": priority,
	}
	if assignee.Valid {
		data["assignee"] = assignee.String
	}
	if project.Valid {
		data["project"] = project.String
	}
	if createdAt.Valid {
		data["created_at"] = createdAt.Time
	}
	if updatedAt.Valid {
		data["updated_at"] = updatedAt.Time
	}
	return data, nil
}
