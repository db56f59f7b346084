package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/source"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo task database",
	Long:  `Creates the task database if missing and fills it with a handful of demo tasks. Safe to re-run: every invocation inserts a fresh batch under new ids.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntP("count", "n", 0, "number of extra filler tasks to generate")
	rootCmd.AddCommand(seedCmd)
}

// demoTask is one row of seed data.
type demoTask struct {
	title    string
	body     string
	status   string
	priority int64
	assignee string
	project  string
}

var demoTasks = []demoTask{
	{
		title:    "Fix the query planner fallback",
		body:     "The planner falls back to a full scan when the filter names an\nunindexed field.\n\n- [ ] add an index hint\n- [ ] benchmark against the naive path",
		status:   "open",
		priority: 1,
		assignee: "alice",
		project:  "engine",
	},
	{
		title:    "Write the resync runbook",
		body:     "Document what a **stuck resync** looks like and how to recover:\n\n1. check the watcher log\n2. force a manual resync\n3. restart with `--no-auto-refresh` as a last resort",
		status:   "in_progress",
		priority: 2,
		assignee: "bob",
		project:  "ops",
	},
	{
		title:    "Ship the saved-query editor",
		body:     "Queries are editable in `config.yaml` today. An in-browser editor\nshould write back through the same comment-preserving save path.",
		status:   "open",
		priority: 2,
		project:  "browser",
	},
	{
		title:    "Retire the legacy export format",
		body:     "Nobody has downloaded a v1 export since March.",
		status:   "closed",
		priority: 3,
		assignee: "alice",
		project:  "ops",
	},
	{
		title:    "Audit unicode handling in titles",
		body:     "Grapheme clusters (👩‍🔬, flags, combining marks) must count as one\ncolumn everywhere the list truncates.",
		status:   "open",
		priority: 1,
		project:  "browser",
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	if debug || os.Getenv("CLIENTDB_DEBUG") != "" {
		cleanup, err := log.Init("clientdb.log")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		defer cleanup()
	}

	dbPath := cfg.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := source.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening task database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tasks := demoTasks
	count, _ := cmd.Flags().GetInt("count")
	for i := 0; i < count; i++ {
		tasks = append(tasks, demoTask{
			title:    fmt.Sprintf("Filler task %d", i+1),
			body:     "Generated filler for load testing the browser.",
			status:   "open",
			priority: 3,
			project:  "filler",
		})
	}

	inserted := 0
	for _, task := range tasks {
		if err := insertDemoTask(db, task); err != nil {
			return fmt.Errorf("inserting %q: %w", task.title, err)
		}
		inserted++
	}

	log.Info(log.CatDB, "seeded demo tasks", "path", dbPath, "count", inserted)
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tasks into %s\n", inserted, dbPath)
	return nil
}

func insertDemoTask(db *sql.DB, task demoTask) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO tasks (id, title, body, status, priority, assignee, project, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		task.title,
		task.body,
		task.status,
		task.priority,
		nullable(task.assignee),
		nullable(task.project),
		now,
		now,
	)
	return err
}

// nullable maps an empty string onto a SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
