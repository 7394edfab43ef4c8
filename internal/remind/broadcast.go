package remind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zarlcorp/zbday/internal/birthday"
	"github.com/zarlcorp/zbday/internal/metrics"
	"github.com/zarlcorp/zbday/internal/render"
	"github.com/zarlcorp/zbday/internal/session"
	"github.com/zarlcorp/zbday/internal/telegram"
)

// Kind names a broadcast.
type Kind string

const (
	Daily   Kind = "daily"
	Monthly Kind = "monthly"
)

// Sessions lists bound chats.
type Sessions interface {
	All() []session.Session
}

// Lists loads birthday lists by identity code.
type Lists interface {
	Load(code string) (birthday.List, error)
}

// Sender delivers a text message to a chat handle.
type Sender interface {
	Send(ctx context.Context, handle, text string) error
}

// StepStatus records the outcome for one recipient.
type StepStatus struct {
	Handle string
	Sent   bool
	Err    error
}

// Result summarizes a completed broadcast.
type Result struct {
	RunID string
	Kind  Kind
	Steps []StepStatus
}

// HasErrors returns true if any recipient failed.
func (r Result) HasErrors() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Sent returns the number of delivered messages.
func (r Result) Sent() int {
	n := 0
	for _, s := range r.Steps {
		if s.Sent {
			n++
		}
	}
	return n
}

// Summary returns a human-readable summary of the broadcast.
func (r Result) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s broadcast: %d/%d sent", r.Kind, r.Sent(), len(r.Steps))
	if r.HasErrors() {
		b.WriteString(" (with errors)")
	}

	for _, s := range r.Steps {
		switch {
		case s.Err != nil:
			fmt.Fprintf(&b, "\n- %s: %v", s.Handle, s.Err)
		case s.Sent:
			fmt.Fprintf(&b, "\n- %s: sent", s.Handle)
		default:
			fmt.Fprintf(&b, "\n- %s: nothing to send", s.Handle)
		}
	}

	return b.String()
}

// Broadcaster sends daily and monthly reminders to every session.
type Broadcaster struct {
	sessions Sessions
	lists    Lists
	sender   Sender
	printer  *render.Printer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewBroadcaster wires a broadcaster. m may be nil.
func NewBroadcaster(sessions Sessions, lists Lists, sender Sender, printer *render.Printer, m *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		sessions: sessions,
		lists:    lists,
		sender:   sender,
		printer:  printer,
		metrics:  m,
		logger:   logger,
	}
}

// Daily notifies every session with a birthday on now's date. Sessions
// without a match get nothing.
func (b *Broadcaster) Daily(ctx context.Context, now time.Time) Result {
	return b.run(ctx, Daily, now, func(list birthday.List) (string, bool) {
		today := MatchingToday(list, now)
		if len(today) == 0 {
			return "", false
		}
		return b.printer.TodayNotice(today), true
	})
}

// Monthly sends every session the overview of now's month, including an
// explicit message when the month is empty.
func (b *Broadcaster) Monthly(ctx context.Context, now time.Time) Result {
	return b.run(ctx, Monthly, now, func(list birthday.List) (string, bool) {
		month := MatchingMonth(list, now)
		SortByDay(month)
		return b.printer.MonthlyOverview(int(now.Month()), month), true
	})
}

// Run dispatches by kind.
func (b *Broadcaster) Run(ctx context.Context, kind Kind, now time.Time) (Result, error) {
	switch kind {
	case Daily:
		return b.Daily(ctx, now), nil
	case Monthly:
		return b.Monthly(ctx, now), nil
	}
	return Result{}, fmt.Errorf("unknown broadcast %q", kind)
}

// run is best-effort: every session is attempted regardless of earlier
// failures, and nothing is retried.
func (b *Broadcaster) run(ctx context.Context, kind Kind, now time.Time, compose func(birthday.List) (string, bool)) Result {
	start := time.Now()
	result := Result{RunID: uuid.NewString(), Kind: kind}
	log := b.logger.With("run_id", result.RunID, "kind", string(kind))

	sessions := b.sessions.All()
	log.Info("broadcast started", "sessions", len(sessions), "date", now.Format("02.01"))

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			result.Steps = append(result.Steps, StepStatus{Handle: s.Handle, Err: err})
			continue
		}
		result.Steps = append(result.Steps, b.deliver(ctx, log, kind, s, compose))
	}

	if b.metrics != nil {
		b.metrics.ObserveBroadcast(string(kind), start)
	}
	log.Info("broadcast finished", "sent", result.Sent(), "errors", result.HasErrors())

	return result
}

func (b *Broadcaster) deliver(ctx context.Context, log *slog.Logger, kind Kind, s session.Session, compose func(birthday.List) (string, bool)) StepStatus {
	step := StepStatus{Handle: s.Handle}

	list, err := b.lists.Load(s.Code)
	if err != nil {
		log.Error("load birthdays", "handle", s.Handle, "err", err)
		step.Err = fmt.Errorf("load birthdays: %w", err)
		b.count(kind, "load_error")
		return step
	}

	text, ok := compose(list)
	if !ok {
		b.count(kind, "skipped")
		return step
	}

	if err := b.sender.Send(ctx, s.Handle, text); err != nil {
		step.Err = fmt.Errorf("send: %w", err)

		// the chat is still bound; the user has to /logout to drop it
		var tgErr *telegram.Error
		if errors.As(err, &tgErr) && tgErr.Blocked() {
			log.Warn("recipient blocked the bot", "handle", s.Handle, "err", err)
			b.count(kind, "blocked")
			return step
		}

		log.Warn("send reminder", "handle", s.Handle, "err", err)
		b.count(kind, "send_error")
		return step
	}

	step.Sent = true
	b.count(kind, "ok")
	return step
}

func (b *Broadcaster) count(kind Kind, outcome string) {
	if b.metrics != nil {
		b.metrics.IncrementDelivery(string(kind), outcome)
	}
}
