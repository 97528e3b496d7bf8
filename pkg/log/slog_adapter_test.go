package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONAdapter(buf *bytes.Buffer) *SlogAdapter {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(handler))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSlogAdapterLogsExchange(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	adapter.Log(Event{
		Timestamp:  time.Now(),
		AttemptID:  "attempt-7",
		Direction:  DirectionIn,
		Step:       StepCapabilities,
		Category:   CategoryMessage,
		RemoteAddr: "192.0.2.10:80",
		Exchange: &ExchangeEvent{
			URL:        "http://192.0.2.10/eSCL/ScannerCapabilities",
			StatusCode: 200,
			Size:       5,
			Body:       []byte("<x/>"),
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "escl", entry["msg"])
	assert.Equal(t, "attempt-7", entry["attempt_id"])
	assert.Equal(t, "IN", entry["direction"])
	assert.Equal(t, "CAPABILITIES", entry["step"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "<x/>", entry["body"])
	assert.Equal(t, "192.0.2.10:80", entry["remote"])
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	adapter.Log(Event{
		AttemptID: "a",
		Step:      StepSubmit,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "Submitting",
			NewState: "InlineDocument",
			Reason:   "status 200",
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "Submitting", entry["old_state"])
	assert.Equal(t, "InlineDocument", entry["new_state"])
	assert.Equal(t, "status 200", entry["reason"])
}

func TestSlogAdapterLogsError(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	code := 404
	adapter.Log(Event{
		AttemptID: "a",
		Step:      StepSubmit,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Message: "server did not accept the scan job",
			Code:    &code,
			Context: "POST ScanJobs",
		},
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["category"])
	assert.Equal(t, float64(404), entry["error_code"])
}

func TestSlogAdapterSilentAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{AttemptID: "a"})
	assert.Zero(t, buf.Len())
}
