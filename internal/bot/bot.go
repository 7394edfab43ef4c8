// Package bot implements the chat command surface. It is transport
// agnostic: Telegram polling, the webhook server and the local console all
// feed Messages into the same Handler.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zarlcorp/zbday/internal/birthday"
	"github.com/zarlcorp/zbday/internal/metrics"
	"github.com/zarlcorp/zbday/internal/remind"
	"github.com/zarlcorp/zbday/internal/render"
)

// Directory resolves identity codes to display names.
type Directory interface {
	Resolve(code string) (string, error)
}

// Sessions binds chat handles to identity codes.
type Sessions interface {
	Bind(handle, code string) error
	Unbind(handle string) error
	Lookup(handle string) (string, error)
}

// Lists reads and mutates birthday lists.
type Lists interface {
	Load(code string) (birthday.List, error)
	Add(code string, r birthday.Record) error
	Remove(code, query string) (birthday.Record, error)
}

// Message is one inbound chat message.
type Message struct {
	Handle string
	Text   string
}

// Handler dispatches commands. Replies are plain text; an empty reply means
// nothing should be sent.
type Handler struct {
	dir      Directory
	sessions Sessions
	lists    Lists
	printer  *render.Printer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	awaiting map[string]bool // handles that sent /start and owe a code
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides the time source used for /month and /today.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithMetrics records command and authorization counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a Handler.
func New(dir Directory, sessions Sessions, lists Lists, printer *render.Printer, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		dir:      dir,
		sessions: sessions,
		lists:    lists,
		printer:  printer,
		logger:   logger,
		now:      time.Now,
		awaiting: make(map[string]bool),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle processes one message and returns the reply text.
func (h *Handler) Handle(ctx context.Context, msg Message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}

	cmd, args, isCommand := parseCommand(text)
	if !isCommand {
		if h.isAwaiting(msg.Handle) {
			h.count("code")
			return h.authorize(msg.Handle, text)
		}
		return h.printer.Unknown()
	}

	h.count(cmd)

	switch cmd {
	case "start":
		h.setAwaiting(msg.Handle, true)
		return h.printer.Start()
	case "cancel":
		h.setAwaiting(msg.Handle, false)
		return h.printer.Cancelled()
	case "help":
		return h.printer.Help()
	}

	code, err := h.sessions.Lookup(msg.Handle)
	if err != nil {
		return h.printer.Unauthorized()
	}

	switch cmd {
	case "month":
		return h.month(ctx, code)
	case "today":
		return h.today(ctx, code)
	case "list":
		return h.list(ctx, code)
	case "add":
		return h.add(ctx, code, args)
	case "del":
		return h.del(ctx, code, args)
	case "logout":
		return h.logout(ctx, msg.Handle)
	}

	return h.printer.Unknown()
}

func (h *Handler) authorize(handle, code string) string {
	name, err := h.dir.Resolve(code)
	if err != nil {
		h.logger.Info("rejected code", "handle", handle)
		h.countAuth("invalid")
		return h.printer.WrongCode()
	}

	if err := h.sessions.Bind(handle, code); err != nil {
		h.logger.Error("bind session", "handle", handle, "err", err)
		h.countAuth("error")
		return h.printer.StorageError()
	}

	h.setAwaiting(handle, false)
	h.countAuth("ok")
	h.logger.Info("authorized", "handle", handle, "name", name)

	count := 0
	if list, err := h.lists.Load(code); err != nil {
		h.logger.Error("load birthdays", "handle", handle, "err", err)
	} else {
		count = len(list)
	}

	return h.printer.Welcome(name, count)
}

func (h *Handler) month(_ context.Context, code string) string {
	list, err := h.lists.Load(code)
	if err != nil {
		return h.storageError("load birthdays", err)
	}

	now := h.now()
	month := remind.MatchingMonth(list, now)
	remind.SortByDay(month)
	return h.printer.MonthList(int(now.Month()), month)
}

func (h *Handler) today(_ context.Context, code string) string {
	list, err := h.lists.Load(code)
	if err != nil {
		return h.storageError("load birthdays", err)
	}

	return h.printer.TodayNotice(remind.MatchingToday(list, h.now()))
}

func (h *Handler) list(_ context.Context, code string) string {
	list, err := h.lists.Load(code)
	if err != nil {
		return h.storageError("load birthdays", err)
	}

	sorted := slices.Clone(list)
	remind.SortByDate(sorted)
	return h.printer.FullList(sorted)
}

func (h *Handler) add(_ context.Context, code string, args []string) string {
	if len(args) < 2 {
		return h.printer.AddUsage()
	}

	name := strings.Join(args[:len(args)-1], " ")
	day, month, err := birthday.ParseDayMonth(args[len(args)-1])
	if err != nil {
		return h.printer.BadDate()
	}

	r := birthday.Record{Day: day, Month: month, Name: name}
	if err := h.lists.Add(code, r); err != nil {
		if errors.Is(err, birthday.ErrInvalidDate) {
			return h.printer.BadDate()
		}
		return h.storageError("add birthday", err)
	}

	return h.printer.Added(r)
}

func (h *Handler) del(_ context.Context, code string, args []string) string {
	if len(args) == 0 {
		return h.printer.DelUsage()
	}

	query := strings.Join(args, " ")
	removed, err := h.lists.Remove(code, query)
	if err != nil {
		if errors.Is(err, birthday.ErrNotFound) {
			return h.printer.NotFound(query)
		}
		return h.storageError("remove birthday", err)
	}

	return h.printer.Removed(removed)
}

func (h *Handler) logout(_ context.Context, handle string) string {
	if err := h.sessions.Unbind(handle); err != nil {
		return h.storageError("unbind session", err)
	}
	return h.printer.LoggedOut()
}

func (h *Handler) storageError(op string, err error) string {
	h.logger.Error(op, "err", err)
	return h.printer.StorageError()
}

func (h *Handler) isAwaiting(handle string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.awaiting[handle]
}

func (h *Handler) setAwaiting(handle string, v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v {
		h.awaiting[handle] = true
		return
	}
	delete(h.awaiting, handle)
}

func (h *Handler) count(cmd string) {
	if h.metrics != nil {
		h.metrics.IncrementCommand(cmd)
	}
}

func (h *Handler) countAuth(outcome string) {
	if h.metrics != nil {
		h.metrics.IncrementAuthorization(outcome)
	}
}

// parseCommand splits "/add@zbday_bot Mom 15.03" into ("add", ["Mom", "15.03"]).
func parseCommand(text string) (string, []string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), fields[1:], true
}
