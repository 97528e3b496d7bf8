package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
// With a verbose client it echoes captured request and response bodies.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("attempt_id", event.AttemptID),
		slog.String("direction", event.Direction.String()),
		slog.String("step", event.Step.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Exchange != nil:
		ex := event.Exchange
		if ex.Method != "" {
			attrs = append(attrs, slog.String("method", ex.Method))
		}
		attrs = append(attrs, slog.String("url", ex.URL))
		if ex.StatusCode != 0 {
			attrs = append(attrs, slog.Int("status", ex.StatusCode))
		}
		if ex.ContentType != "" {
			attrs = append(attrs, slog.String("content_type", ex.ContentType))
		}
		if ex.Location != "" {
			attrs = append(attrs, slog.String("location", ex.Location))
		}
		attrs = append(attrs, slog.Int64("size", ex.Size))
		if len(ex.Body) > 0 {
			attrs = append(attrs,
				slog.String("body", string(ex.Body)),
				slog.Bool("truncated", ex.Truncated),
			)
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "escl", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
