package testutil

import "time"

// WithStandardTasks adds the standard demo dataset used across loader and
// UI tests.
func (b *Builder) WithStandardTasks() *Builder {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	return b.
		WithTask("task-1",
			Title("Fix login bug"), Body("Login fails for SSO users."),
			Status("open"), Priority(0), Assignee("alice"), Project("auth"),
			CreatedAt(lastWeek), UpdatedAt(now)).
		WithTask("task-2",
			Title("Add search"), Body("Full-text search over titles."),
			Status("open"), Priority(1), Project("search"),
			CreatedAt(yesterday), UpdatedAt(yesterday)).
		WithTask("task-3",
			Title("Refactor auth"), Body("Split session handling out of the handler."),
			Status("in_progress"), Priority(2), Assignee("bob"), Project("auth"),
			CreatedAt(lastWeek), UpdatedAt(yesterday)).
		WithTask("task-4",
			Title("Update docs"), Body(""),
			Status("closed"), Priority(3),
			CreatedAt(lastWeek), UpdatedAt(lastWeek)).
		WithTask("task-5",
			Title("Security fix"), Body("Rotate signing keys."),
			Status("open"), Priority(0), Assignee("alice"), Project("auth"),
			CreatedAt(now), UpdatedAt(now))
}
