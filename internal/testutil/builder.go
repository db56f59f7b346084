package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// Builder accumulates task rows and inserts them in one pass.
type Builder struct {
	t     *testing.T
	db    *sql.DB
	tasks []taskData
}

// NewBuilder creates a builder for the given test database.
func NewBuilder(t *testing.T, db *sql.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithTask adds a task with optional configuration.
func (b *Builder) WithTask(id string, opts ...TaskOption) *Builder {
	task := defaultTask(id)
	for _, opt := range opts {
		opt(&task)
	}
	b.tasks = append(b.tasks, task)
	return b
}

// Build inserts all accumulated rows into the database.
func (b *Builder) Build() {
	b.t.Helper()
	for _, task := range b.tasks {
		b.insertTask(task)
	}
}

func (b *Builder) insertTask(task taskData) {
	b.t.Helper()
	_, err := b.db.Exec(
		`INSERT INTO tasks (id, title, body, status, priority, assignee, project, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.id, task.title, task.body, task.status, task.priority,
		task.assignee, task.project, task.createdAt, task.updatedAt,
	)
	require.NoError(b.t, err)
}
