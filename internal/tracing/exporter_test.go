package tracing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestSpans(t *testing.T, names ...string) []sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")
	for _, name := range names {
		_, span := tracer.Start(context.Background(), name)
		span.End()
	}
	ended := recorder.Ended()
	require.Len(t, ended, len(names))
	return ended
}

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "traces.jsonl")

	exporter, err := NewFileExporter(path)
	require.NoError(t, err)
	defer func() { _ = exporter.Shutdown(context.Background()) }()

	_, err = os.Stat(path)
	require.NoError(t, err, "file should be created")
}

func TestFileExporter_WritesValidJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(path)
	require.NoError(t, err)

	spans := newTestSpans(t, "first", "second")
	require.NoError(t, exporter.ExportSpans(context.Background(), spans))
	require.NoError(t, exporter.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var records []SpanRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	require.Equal(t, "first", records[0].Name)
	require.Equal(t, "second", records[1].Name)
	require.NotEmpty(t, records[0].TraceID)
	require.NotEmpty(t, records[0].SpanID)
	require.Equal(t, "UNSET", records[0].Status)
	require.GreaterOrEqual(t, records[0].DurationMs, 0.0)
}

func TestFileExporter_ExportEmptySpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(path)
	require.NoError(t, err)
	defer func() { _ = exporter.Shutdown(context.Background()) }()

	require.NoError(t, exporter.ExportSpans(context.Background(), nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size(), "empty batch writes nothing")
}

func TestFileExporter_AppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")

	for range 2 {
		exporter, err := NewFileExporter(path)
		require.NoError(t, err)
		require.NoError(t, exporter.ExportSpans(context.Background(), newTestSpans(t, "span")))
		require.NoError(t, exporter.Shutdown(context.Background()))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lines++
		}
	}
	require.Equal(t, 2, lines)
}
