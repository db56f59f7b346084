// Package config provides configuration types and defaults for clientdb.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/tracing"
)

// QueryConfig defines a named saved query selectable in the browser.
type QueryConfig struct {
	Name  string `mapstructure:"name"`
	Field string `mapstructure:"field"`
	Value string `mapstructure:"value"`
	Color string `mapstructure:"color"` // hex color e.g. "#10B981"
}

// Config holds all configuration options for clientdb.
type Config struct {
	DBPath              string         `mapstructure:"db_path"`
	AutoRefresh         bool           `mapstructure:"auto_refresh"`
	AutoRefreshDebounce time.Duration  `mapstructure:"auto_refresh_debounce"`
	DefaultSortField    string         `mapstructure:"default_sort_field"`
	DefaultSortDesc     bool           `mapstructure:"default_sort_desc"`
	UI                  UIConfig       `mapstructure:"ui"`
	Queries             []QueryConfig  `mapstructure:"queries"`
	Tracing             tracing.Config `mapstructure:"tracing"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowCounts    bool   `mapstructure:"show_counts"`
	ShowEventFeed bool   `mapstructure:"show_event_feed"`
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// DefaultDBPath returns the default task database location,
// ~/.config/clientdb/tasks.db, or a relative fallback if the home directory
// is unavailable.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tasks.db"
	}
	return filepath.Join(home, ".config", "clientdb", "tasks.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "clientdb", "traces", "traces.jsonl")
}

// DefaultQueries returns the saved queries shipped out of the box.
func DefaultQueries() []QueryConfig {
	return []QueryConfig{
		{
			Name:  "Open",
			Field: "status",
			Value: "open",
			Color: "#73F59F",
		},
		{
			Name:  "In Progress",
			Field: "status",
			Value: "in_progress",
			Color: "#54A0FF",
		},
		{
			Name:  "Closed",
			Field: "status",
			Value: "closed",
			Color: "#BBBBBB",
		},
	}
}

// GetQueries returns the configured queries, or DefaultQueries() if none
// configured.
func (c Config) GetQueries() []QueryConfig {
	if len(c.Queries) > 0 {
		return c.Queries
	}
	return DefaultQueries()
}

// ValidateQueries checks saved query configuration for errors. Returns nil
// if queries are valid or empty (defaults will be used).
func ValidateQueries(queries []QueryConfig) error {
	for i, q := range queries {
		if q.Name == "" {
			return fmt.Errorf("query %d: name is required", i)
		}
		if q.Field == "" {
			return fmt.Errorf("query %d (%s): field is required", i, q.Name)
		}
	}
	return nil
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if cfg.AutoRefreshDebounce < 0 {
		return fmt.Errorf("auto_refresh_debounce must not be negative, got %v", cfg.AutoRefreshDebounce)
	}
	if err := ValidateQueries(cfg.Queries); err != nil {
		return err
	}
	if err := ValidateTracing(cfg.Tracing); err != nil {
		return err
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors. Returns nil if
// the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	// Path requirements only matter when tracing is on.
	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	t := tracing.DefaultConfig()
	t.FilePath = DefaultTracesFilePath()
	return Config{
		DBPath:              DefaultDBPath(),
		AutoRefresh:         true,
		AutoRefreshDebounce: time.Second,
		DefaultSortField:    "priority",
		UI: UIConfig{
			ShowCounts:    true,
			ShowEventFeed: true,
			MarkdownStyle: "dark",
		},
		Queries: DefaultQueries(),
		Tracing: t,
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with
// comments.
func DefaultConfigTemplate() string {
	return `# clientdb Configuration

# Path to the task database (default: ~/.config/clientdb/tasks.db)
# db_path: /path/to/tasks.db

# Resync the store when the database file changes
auto_refresh: true
# auto_refresh_debounce: 1s

# Default ordering for the browser list
default_sort_field: priority
# default_sort_desc: false

# UI settings
ui:
  show_counts: true      # Show match counts next to saved queries
  show_event_feed: true  # Show the live event feed pane
  # markdown_style: dark # Markdown rendering style: "dark" (default) or "light"

# Saved queries - selectable in the browser with Tab
queries:
  - name: Open
    field: status
    value: open
    color: "#73F59F"

  - name: In Progress
    field: status
    value: in_progress
    color: "#54A0FF"

  - name: Closed
    field: status
    value: closed
    color: "#BBBBBB"

# Query options:
#   name: Display name (required)
#   field: Entity field to match (required)
#   value: Value the field must equal
#   color: Hex color for the query tab

# Span export for store operations
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/clientdb/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
