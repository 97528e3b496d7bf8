package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var read []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return read
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	now := time.Now()
	events := []Event{
		{Timestamp: now, AttemptID: "attempt-1", Direction: DirectionOut, Step: StepCapabilities, Category: CategoryMessage},
		{Timestamp: now, AttemptID: "attempt-2", Direction: DirectionIn, Step: StepSubmit, Category: CategoryMessage},
		{Timestamp: now, AttemptID: "attempt-3", Direction: DirectionIn, Step: StepRead, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}

	// Verify order
	if read[0].AttemptID != "attempt-1" {
		t.Errorf("first event AttemptID = %q, want %q", read[0].AttemptID, "attempt-1")
	}
	if read[2].AttemptID != "attempt-3" {
		t.Errorf("last event AttemptID = %q, want %q", read[2].AttemptID, "attempt-3")
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Next on empty file = %v, want io.EOF", err)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.alog")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NewReader error = %v, want os.ErrNotExist", err)
	}
}

func TestReaderCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.alog")
	if err := os.WriteFile(path, []byte{0xff, 0xff, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	_, err = reader.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next on corrupt file = %v, want decode error", err)
	}
}

func TestFilteredReader(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, AttemptID: "a", Direction: DirectionOut, Step: StepCapabilities, Category: CategoryMessage},
		{Timestamp: base.Add(time.Second), AttemptID: "a", Direction: DirectionIn, Step: StepCapabilities, Category: CategoryMessage},
		{Timestamp: base.Add(2 * time.Second), AttemptID: "a", Direction: DirectionIn, Step: StepSubmit, Category: CategoryError},
		{Timestamp: base.Add(3 * time.Second), AttemptID: "b", Direction: DirectionIn, Step: StepSubmit, Category: CategoryState},
	}
	path := createTestLogFile(t, events)

	in := DirectionIn
	submit := StepSubmit
	errCat := CategoryError
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"attempt", Filter{AttemptID: "b"}, 1},
		{"direction", Filter{Direction: &in}, 3},
		{"step", Filter{Step: &submit}, 2},
		{"category", Filter{Category: &errCat}, 1},
		{"time start inclusive", Filter{TimeStart: &start}, 3},
		{"time end exclusive", Filter{TimeEnd: &end}, 3},
		{"combined", Filter{AttemptID: "a", Direction: &in, Step: &submit}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			if got := len(readAll(t, reader)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	now := time.Now()
	in := DirectionIn
	errCat := CategoryError
	event := Event{Timestamp: now, AttemptID: "a", Direction: DirectionIn, Category: CategoryMessage}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"attempt match", Filter{AttemptID: "a"}, true},
		{"attempt mismatch", Filter{AttemptID: "b"}, false},
		{"direction", Filter{Direction: &in}, true},
		{"category mismatch", Filter{Category: &errCat}, false},
		{"time end exclusive", Filter{TimeEnd: &now}, false},
		{"time start inclusive", Filter{TimeStart: &now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(event); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
