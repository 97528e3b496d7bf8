// Package commands implements the airscan-log CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/escl-tools/airscan/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	AttemptID string
	Step      *log.Step
	Direction *log.Direction
	Category  *log.Category

	// Bodies prints captured request and response bodies.
	Bodies bool
}

func (f ViewFilter) toLogFilter() log.Filter {
	return log.Filter{
		AttemptID: f.AttemptID,
		Step:      f.Step,
		Direction: f.Direction,
		Category:  f.Category,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event, bodies bool) {
	// Header line: timestamp [attempt:id] DIRECTION STEP Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	attempt := shortenID(event.AttemptID)

	var typeLabel string
	switch {
	case event.Exchange != nil && event.Direction == log.DirectionOut:
		typeLabel = "Request"
	case event.Exchange != nil:
		typeLabel = "Response"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [attempt:%s] %-3s %s %s\n", ts, attempt, event.Direction, event.Step, typeLabel)
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	switch {
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange, bodies)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of an attempt ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatExchangeDetails writes request/response details.
func formatExchangeDetails(w io.Writer, ex *log.ExchangeEvent, bodies bool) {
	if ex.Method != "" {
		fmt.Fprintf(w, "  %s %s\n", ex.Method, ex.URL)
	} else {
		fmt.Fprintf(w, "  URL: %s\n", ex.URL)
	}
	if ex.StatusCode != 0 {
		fmt.Fprintf(w, "  Status: %d\n", ex.StatusCode)
	}
	if ex.ContentType != "" {
		fmt.Fprintf(w, "  Content-Type: %s\n", ex.ContentType)
	}
	if ex.Location != "" {
		fmt.Fprintf(w, "  Location: %s\n", ex.Location)
	}
	if ex.Size >= 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", ex.Size)
	}
	if bodies && len(ex.Body) > 0 {
		fmt.Fprintln(w, "  Body:")
		if utf8.Valid(ex.Body) {
			for _, line := range strings.Split(strings.TrimRight(string(ex.Body), "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		} else {
			fmt.Fprintf(w, "    (%d bytes binary)\n", len(ex.Body))
		}
		if ex.Truncated {
			fmt.Fprintln(w, "    (truncated)")
		}
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseStepFlag parses a step string from command-line flag (case-insensitive).
func ParseStepFlag(s string) (log.Step, error) {
	switch strings.ToLower(s) {
	case "discovery":
		return log.StepDiscovery, nil
	case "capabilities":
		return log.StepCapabilities, nil
	case "submit":
		return log.StepSubmit, nil
	case "fetch":
		return log.StepFetch, nil
	case "read":
		return log.StepRead, nil
	default:
		return 0, fmt.Errorf("invalid step: %s (must be discovery, capabilities, submit, fetch, or read)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toLogFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event, filter.Bodies)
	}

	return nil
}
