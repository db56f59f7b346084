// Package log writes leveled, categorized key=value entries to a log file.
// Logging is off until Init runs; the cmd layer enables it for --debug or
// CLIENTDB_DEBUG. Every entry is also published on a broker so a UI pane can
// tail the log live.
package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/karbon0x/clientdb/internal/pubsub"
)

// Level is log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// Category tags an entry with the subsystem that produced it.
type Category string

const (
	CatStore    Category = "store"    // entity store mutations and lookups
	CatIndex    Category = "index"    // field index maintenance
	CatQuery    Category = "query"    // query view construction and recomputation
	CatReactive Category = "reactive" // memo invalidation and recomputes
	CatEvent    Category = "event"    // lifecycle event emission
	CatSource   Category = "source"   // sync source loads and resyncs
	CatDB       Category = "db"       // seed database operations
	CatConfig   Category = "config"   // configuration loading/saving
	CatUI       Category = "ui"       // browser component updates
	CatTrace    Category = "trace"    // tracing provider lifecycle
)

type logger struct {
	mu       sync.Mutex
	file     *os.File
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[string]
}

var (
	global *logger
	once   sync.Once
)

// Init opens the log file and installs the global logger. Subsequent calls
// are no-ops. The returned func closes the file.
func Init(path string) (func(), error) {
	var initErr error
	once.Do(func() {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is the user-chosen debug log location
		if err != nil {
			initErr = err
			return
		}
		global = &logger{
			file:     f,
			enabled:  true,
			minLevel: LevelDebug,
			broker:   pubsub.NewBroker[string](),
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	if global == nil {
		return nil, fmt.Errorf("logger initialization already failed")
	}
	return func() {
		if global.file != nil {
			_ = global.file.Close()
		}
	}, nil
}

// SetEnabled toggles output without tearing the logger down.
func SetEnabled(enabled bool) {
	if global == nil {
		return
	}
	global.mu.Lock()
	global.enabled = enabled
	global.mu.Unlock()
}

// SetMinLevel drops entries below level.
func SetMinLevel(level Level) {
	if global == nil {
		return
	}
	global.mu.Lock()
	global.minLevel = level
	global.mu.Unlock()
}

func Debug(cat Category, msg string, fields ...any) { emit(LevelDebug, cat, msg, fields...) }
func Info(cat Category, msg string, fields ...any)  { emit(LevelInfo, cat, msg, fields...) }
func Warn(cat Category, msg string, fields ...any)  { emit(LevelWarn, cat, msg, fields...) }
func Error(cat Category, msg string, fields ...any) { emit(LevelError, cat, msg, fields...) }

// ErrorErr logs at error level with the error value as a field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}
	emit(LevelError, cat, msg, append(fields, "error", errText)...)
}

func emit(level Level, cat Category, msg string, fields ...any) {
	l := global
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	entry := formatEntry(level, cat, msg, fields)
	if l.file != nil {
		_, _ = l.file.WriteString(entry)
	}
	if l.broker != nil {
		l.broker.Publish(pubsub.ItemAdded, entry)
	}
}

// formatEntry renders one line:
// 2026-08-29T10:45:00 [ERROR] [store] message key=value key2=value2
func formatEntry(level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)

	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

// LogEvent is one published log line.
type LogEvent = pubsub.Event[string]

// LogListener tails the log for the Bubble Tea update loop.
type LogListener = pubsub.ContinuousListener[string]

// NewListener subscribes to the log line feed for the lifetime of ctx.
// Returns nil before Init.
func NewListener(ctx context.Context) *LogListener {
	if global == nil || global.broker == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, global.broker)
}
