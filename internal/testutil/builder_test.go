package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_WithTask(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).
		WithTask("task-1").
		Build()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var id, title, status string
	var priority int
	err = db.QueryRow(`SELECT id, title, status, priority FROM tasks WHERE id = ?`, "task-1").
		Scan(&id, &title, &status, &priority)
	require.NoError(t, err)
	require.Equal(t, "task-1", id)
	require.Equal(t, "task-1", title) // default title is ID
	require.Equal(t, "open", status)
	require.Equal(t, 2, priority)
}

func TestBuilder_WithTask_AllOptions(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).
		WithTask("task-1",
			Title("Fix bug"), Body("details"), Status("in_progress"),
			Priority(0), Assignee("alice"), Project("auth")).
		Build()

	var title, body, status, assignee, project string
	var priority int
	err := db.QueryRow(
		`SELECT title, body, status, priority, assignee, project FROM tasks WHERE id = ?`, "task-1").
		Scan(&title, &body, &status, &priority, &assignee, &project)
	require.NoError(t, err)
	require.Equal(t, "Fix bug", title)
	require.Equal(t, "details", body)
	require.Equal(t, "in_progress", status)
	require.Equal(t, 0, priority)
	require.Equal(t, "alice", assignee)
	require.Equal(t, "auth", project)
}

func TestBuilder_NullableColumnsStayNull(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).WithTask("task-1").Build()

	var assignee, project any
	err := db.QueryRow(`SELECT assignee, project FROM tasks WHERE id = ?`, "task-1").
		Scan(&assignee, &project)
	require.NoError(t, err)
	require.Nil(t, assignee)
	require.Nil(t, project)
}

func TestBuilder_StandardTasks(t *testing.T) {
	db := NewTestDB(t)
	defer func() { _ = db.Close() }()

	NewBuilder(t, db).WithStandardTasks().Build()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 5, count)

	var open int
	err = db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = 'open'`).Scan(&open)
	require.NoError(t, err)
	require.Equal(t, 3, open)
}
