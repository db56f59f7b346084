package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/karbon0x/clientdb/internal/config"
	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/source"
	"github.com/karbon0x/clientdb/internal/store"
	"github.com/karbon0x/clientdb/internal/tracing"
	"github.com/karbon0x/clientdb/internal/ui"
	"github.com/karbon0x/clientdb/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	debug   bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "clientdb",
	Short:   "A terminal browser for a live task database",
	Long:    `A terminal browser over a local task database: saved queries, field filters, a markdown detail pane, and a live event feed that tracks every change as it lands.`,
	Version: version,
	RunE:    runBrowser,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/clientdb/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"write debug logs to clientdb.log")
	rootCmd.Flags().StringP("db", "d", "",
		"path to the task database")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable automatic resync when the database file changes")

	// Bind flags to viper
	_ = viper.BindPFlag("db_path", rootCmd.Flags().Lookup("db"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("db_path", defaults.DBPath)
	viper.SetDefault("auto_refresh", defaults.AutoRefresh)
	viper.SetDefault("auto_refresh_debounce", defaults.AutoRefreshDebounce)
	viper.SetDefault("default_sort_field", defaults.DefaultSortField)
	viper.SetDefault("ui.show_counts", defaults.UI.ShowCounts)
	viper.SetDefault("ui.show_event_feed", defaults.UI.ShowEventFeed)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .clientdb/config.yaml (current directory)
		// 2. ~/.config/clientdb/config.yaml (user config)
		if _, err := os.Stat(".clientdb/config.yaml"); err == nil {
			viper.SetConfigFile(".clientdb/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "clientdb"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the default user config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			home, homeErr := os.UserHomeDir()
			if homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "clientdb", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runBrowser(cmd *cobra.Command, args []string) error {
	if debug || os.Getenv("CLIENTDB_DEBUG") != "" {
		cleanup, err := log.Init("clientdb.log")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		defer cleanup()
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	db, err := source.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening task database: %w\nRun 'clientdb seed' to create a demo database", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	s := store.New(source.Definition(), store.WithTracer(provider.Tracer()))
	defer s.Destroy()

	loader := source.NewLoader(db, s)
	if _, err := loader.Load(ctx); err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	opts := []ui.Option{}
	var w *watcher.Watcher
	if cfg.AutoRefresh {
		w, err = watcher.New(watcher.Config{
			DBPath:      cfg.DBPath,
			DebounceDur: cfg.AutoRefreshDebounce,
		})
		if err != nil {
			return fmt.Errorf("creating database watcher: %w", err)
		}
		changes, err := w.Start()
		if err != nil {
			return fmt.Errorf("starting database watcher: %w", err)
		}
		opts = append(opts, ui.WithAutoRefresh(changes, func(ctx context.Context) error {
			_, err := loader.Resync(ctx)
			return err
		}))
	}

	zone.NewGlobal()
	browser := ui.New(ctx, s, cfg, opts...)
	p := tea.NewProgram(
		browser,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	if w != nil {
		if stopErr := w.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
