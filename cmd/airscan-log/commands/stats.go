package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/escl-tools/airscan/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByStep      map[log.Step]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	StatusCodes       map[int]int
	Attempts          map[string]*AttemptStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// AttemptStats holds statistics for a single scan attempt.
type AttemptStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Remote     string
	FinalState string
	Bytes      int64
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByStep:      make(map[log.Step]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		StatusCodes:       make(map[int]int),
		Attempts:          make(map[string]*AttemptStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByStep[event.Step]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	a, ok := s.Attempts[event.AttemptID]
	if !ok {
		a = &AttemptStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Attempts[event.AttemptID] = a
	}
	a.Events++
	if event.Timestamp.After(a.LastSeen) {
		a.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && a.Remote == "" {
		a.Remote = event.RemoteAddr
	}
	if event.StateChange != nil {
		a.FinalState = event.StateChange.NewState
	}
	if ex := event.Exchange; ex != nil && event.Direction == log.DirectionIn {
		if ex.StatusCode != 0 {
			s.StatusCodes[ex.StatusCode]++
		}
		if ex.Size > 0 {
			a.Bytes += ex.Size
		}
	}

	if event.Error != nil {
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== eSCL Protocol Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Step:")
	for _, step := range []log.Step{log.StepDiscovery, log.StepCapabilities, log.StepSubmit, log.StepFetch, log.StepRead} {
		if count := stats.EventsByStep[step]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", step.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.StatusCodes) > 0 {
		codes := make([]int, 0, len(stats.StatusCodes))
		for c := range stats.StatusCodes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		fmt.Fprintln(w, "HTTP Status Codes:")
		for _, c := range codes {
			fmt.Fprintf(w, "  %-14d %d\n", c, stats.StatusCodes[c])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Attempts: %d\n", len(stats.Attempts))
	if len(stats.Attempts) > 0 {
		// Sort by first seen time
		type attemptInfo struct {
			id    string
			stats *AttemptStats
		}
		attempts := make([]attemptInfo, 0, len(stats.Attempts))
		for id, as := range stats.Attempts {
			attempts = append(attempts, attemptInfo{id, as})
		}
		sort.Slice(attempts, func(i, j int) bool {
			return attempts[i].stats.FirstSeen.Before(attempts[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, a := range attempts {
			duration := a.stats.LastSeen.Sub(a.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(a.id), a.stats.Events, duration)
			if a.stats.Remote != "" {
				fmt.Fprintf(w, "             Scanner: %s\n", a.stats.Remote)
			}
			if a.stats.FinalState != "" {
				fmt.Fprintf(w, "             Final state: %s\n", a.stats.FinalState)
			}
			if a.stats.Bytes > 0 {
				fmt.Fprintf(w, "             Received: %d bytes\n", a.stats.Bytes)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
