package reactorlog

import (
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
	reactor "github.com/joeycumines/go-reactor"
	"github.com/stretchr/testify/require"
)

// recordingEvent is a minimal logiface.Event implementation that captures
// the fields and message it was given, for assertions.
type recordingEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields map[string]any
	msg    string
}

func (e *recordingEvent) Level() logiface.Level { return e.level }

func (e *recordingEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any)
	}
	e.fields[key] = val
}

func (e *recordingEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

type recordingFactory struct{}

func (recordingFactory) NewEvent(level logiface.Level) *recordingEvent {
	return &recordingEvent{level: level}
}

type recordingWriter struct {
	written []*recordingEvent
}

func (w *recordingWriter) Write(event *recordingEvent) error {
	w.written = append(w.written, event)
	return nil
}

func newTestAdapter(t *testing.T, level logiface.Level) (*Adapter, *recordingWriter) {
	t.Helper()
	writer := &recordingWriter{}
	typed := logiface.New[*recordingEvent](
		logiface.WithEventFactory[*recordingEvent](recordingFactory{}),
		logiface.WithWriter[*recordingEvent](writer),
		logiface.WithLevel[*recordingEvent](level),
	)
	return New(typed.Logger()), writer
}

func TestAdapterLogsAtConfiguredLevel(t *testing.T) {
	a, writer := newTestAdapter(t, logiface.LevelInformational)

	a.Log(reactor.LogEntry{Level: reactor.LevelInfo, Message: "listening", FD: 7})

	require.Len(t, writer.written, 1)
	ev := writer.written[0]
	require.Equal(t, "listening", ev.msg)
	require.Equal(t, 7, ev.fields["fd"])
}

func TestAdapterSuppressesBelowConfiguredLevel(t *testing.T) {
	a, writer := newTestAdapter(t, logiface.LevelWarning)

	a.Log(reactor.LogEntry{Level: reactor.LevelDebug, Message: "frame decoded", FD: 3})

	require.Empty(t, writer.written)
}

func TestAdapterAttachesError(t *testing.T) {
	a, writer := newTestAdapter(t, logiface.LevelError)
	wantErr := errors.New("handshake failed")

	a.Log(reactor.LogEntry{Level: reactor.LevelError, Message: "tls error", FD: 9, Err: wantErr})

	require.Len(t, writer.written, 1)
	require.Equal(t, wantErr, writer.written[0].fields["err"])
}

func TestAdapterIsEnabled(t *testing.T) {
	a, _ := newTestAdapter(t, logiface.LevelWarning)

	require.True(t, a.IsEnabled(reactor.LevelWarn))
	require.True(t, a.IsEnabled(reactor.LevelError))
	require.False(t, a.IsEnabled(reactor.LevelInfo))
	require.False(t, a.IsEnabled(reactor.LevelDebug))
}

func TestAdapterHandlesNoFDAndNoError(t *testing.T) {
	a, writer := newTestAdapter(t, logiface.LevelInformational)

	a.Log(reactor.LogEntry{Level: reactor.LevelInfo, Message: "selector started", FD: -1})

	require.Len(t, writer.written, 1)
	_, hasFD := writer.written[0].fields["fd"]
	require.False(t, hasFD)
}
