package testutil

import "time"

// taskData holds all data for a task row to be inserted.
type taskData struct {
	id        string
	title     string
	body      string
	status    string
	priority  int
	assignee  *string
	project   *string
	createdAt time.Time
	updatedAt time.Time
}

// defaultTask returns a taskData with sensible defaults.
func defaultTask(id string) taskData {
	now := time.Now()
	return taskData{
		id:        id,
		title:     id, // Default title is the ID
		status:    "open",
		priority:  2,
		createdAt: now,
		updatedAt: now,
	}
}

// TaskOption configures a task during builder setup.
type TaskOption func(*taskData)

// Title sets the task title.
func Title(title string) TaskOption {
	return func(t *taskData) { t.title = title }
}

// Body sets the markdown body.
func Body(body string) TaskOption {
	return func(t *taskData) { t.body = body }
}

// Status sets the task status.
func Status(status string) TaskOption {
	return func(t *taskData) { t.status = status }
}

// Priority sets the task priority.
func Priority(p int) TaskOption {
	return func(t *taskData) { t.priority = p }
}

// Assignee sets the task assignee.
func Assignee(name string) TaskOption {
	return func(t *taskData) { t.assignee = &name }
}

// Project sets the task project.
func Project(name string) TaskOption {
	return func(t *taskData) { t.project = &name }
}

// CreatedAt sets the creation timestamp.
func CreatedAt(ts time.Time) TaskOption {
	return func(t *taskData) { t.createdAt = ts }
}

// UpdatedAt sets the update timestamp.
func UpdatedAt(ts time.Time) TaskOption {
	return func(t *taskData) { t.updatedAt = ts }
}
