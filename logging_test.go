package task_test

import (
	"context"
	"sync"
	"testing"
	"time"

	task "github.com/joeycumines/go-stacktask"
	"github.com/joeycumines/go-stacktask/executor"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

// testEvent is a minimal logiface.Event implementation, adapted from this
// codebase's own logiface test fixtures (eventloop's coverage tests use
// the same shape to exercise structured-logging call sites).
type testEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields map[string]any
}

func (e *testEvent) Level() logiface.Level { return e.level }
func (e *testEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = map[string]any{}
	}
	e.fields[key] = val
}

type testEventFactory struct{}

func (testEventFactory) NewEvent(level logiface.Level) *testEvent {
	return &testEvent{level: level}
}

type testEventWriter struct {
	mu     sync.Mutex
	events []*testEvent
}

func (w *testEventWriter) Write(event *testEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return nil
}

func (w *testEventWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

// logifaceAdapter adapts a logiface.Logger onto this package's own Logger
// interface, exactly the way embedders are expected to: this package
// never imports logiface directly outside of tests (see logging.go).
type logifaceAdapter struct {
	logger *logiface.Logger[*testEvent]
}

func (a *logifaceAdapter) Log(entry task.LogEntry) {
	var b *logiface.Builder[*testEvent]
	switch entry.Level {
	case task.LevelDebug:
		b = a.logger.Debug()
	case task.LevelWarn:
		b = a.logger.Warning()
	default:
		b = a.logger.Err()
	}
	for k, v := range entry.Fields {
		b = b.Any(k, v)
	}
	b.Any("task_id", entry.TaskID).Log(entry.Message)
}

func TestLoggerSeam_AdaptsLogiface(t *testing.T) {
	writer := &testEventWriter{}
	logger := logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](testEventFactory{}),
		logiface.WithWriter[*testEvent](writer),
	)
	adapter := &logifaceAdapter{logger: logger}

	ex := executor.NewInline()
	done := make(chan struct{})
	task.New(ex, func() {
		defer close(done)
		panic("boom")
	}, task.WithName("panicky"), task.WithLogger(adapter))
	<-done

	require.Equal(t, 1, writer.count())
	require.Equal(t, "boom", writer.events[0].fields["panic"])
}

func TestLoggerSeam_GlobalDefault(t *testing.T) {
	writer := &testEventWriter{}
	logger := logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](testEventFactory{}),
		logiface.WithWriter[*testEvent](writer),
	)
	adapter := &logifaceAdapter{logger: logger}

	task.SetStructuredLogger(adapter)
	defer task.SetStructuredLogger(nil)

	ex := executor.NewInline()
	done := make(chan struct{})
	task.New(ex, func() {
		defer close(done)
		panic("global-default")
	}, task.WithName("panicky-global"))
	<-done

	require.Equal(t, 1, writer.count())
}

func TestDefaultLogger_WritesAtOrAboveMinLevel(t *testing.T) {
	l := task.NewDefaultLogger(task.LevelWarn)
	l.Log(task.LogEntry{Level: task.LevelDebug, Time: time.Now(), Message: "ignored"})
	l.Log(task.LogEntry{Level: task.LevelWarn, Time: time.Now(), Message: "kept"})
}

func TestBacktraceAll_ReportsRunningAndSuspended(t *testing.T) {
	loop := executor.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	started := make(chan struct{})
	tk := task.New(loop, func() {
		close(started)
		_ = task.Sleep(time.Hour)
	}, task.WithName("sleeper"))

	<-started
	time.Sleep(20 * time.Millisecond)

	var buf stringWriter
	n := task.BacktraceAll(&buf)
	require.GreaterOrEqual(t, n, 1)

	require.True(t, tk.Wake())
	tk.Join()
}

type stringWriter struct {
	data []byte
}

func (w *stringWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
