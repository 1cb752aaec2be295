package logger

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "", formatFields(nil))
	assert.Equal(t, "{a=x, b=3, c=0.50, d=true}", formatFields(Fields{"d": true, "c": 0.5, "b": 3, "a": "x"}))
}

func TestLogConversion(t *testing.T) {
	buf := captureLog(t)

	LogConversion(events.Event{
		Type:      events.ConversionCompleted,
		RequestID: "r1",
		Duration:  1500 * time.Millisecond,
		Fields:    events.Fields{"chords": 4},
	})
	assert.Equal(t, "[INFO] Conversion completed {chords=4, duration_ms=1500, request_id=r1}\n", buf.String())

	buf.Reset()
	LogConversion(events.Event{Type: events.ConversionFailed, RequestID: "r2", Fields: events.Fields{"error": "input is empty"}})
	assert.Contains(t, buf.String(), "[WARN] Conversion failed: input is empty")

	buf.Reset()
	LogConversion(events.Event{Type: events.ParseCompleted, RequestID: "r3"})
	assert.Equal(t, "[DEBUG] Conversion parse.completed {request_id=r3}\n", buf.String())
}

func TestSubscribe(t *testing.T) {
	buf := captureLog(t)
	bus := events.NewBus()
	Subscribe(bus)
	bus.Subscribe(events.RenderCompleted, func(events.Event) { panic("boom") })

	bus.Publish(events.Event{Type: events.RenderCompleted, RequestID: "r4"})
	assert.Contains(t, buf.String(), "[DEBUG] Conversion render.completed")
	assert.Contains(t, buf.String(), "[ERROR] Event subscriber panicked: boom")
}
