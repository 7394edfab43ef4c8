// Package render produces the user-facing text of every bot reply and
// scheduled reminder.
package render

import (
	"fmt"
	"strings"

	"github.com/zarlcorp/zbday/internal/birthday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer is the minimal message-printer contract required by Printer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Printer renders localized bot text.
type Printer struct {
	loc Localizer
}

// New returns a printer for lang ("ru" or "en"). Unknown values fall back
// to Russian.
func New(lang string) *Printer {
	return &Printer{loc: message.NewPrinter(Tag(lang))}
}

// NewWithLocalizer returns a printer over a custom localizer.
func NewWithLocalizer(loc Localizer) *Printer {
	return &Printer{loc: loc}
}

// Tag maps a language setting to a supported tag. Anything that is not
// Russian or English, including an empty setting, maps to Russian.
func Tag(lang string) language.Tag {
	tag, _ := supported(lang)
	return tag
}

// Supported reports whether lang names a language with a message catalog.
func Supported(lang string) bool {
	_, ok := supported(lang)
	return ok
}

func supported(lang string) (language.Tag, bool) {
	t, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return language.Russian, false
	}
	// Base guesses a language for "und" with low confidence
	base, conf := t.Base()
	if conf != language.Exact {
		return language.Russian, false
	}
	switch base.String() {
	case "ru":
		return language.Russian, true
	case "en":
		return language.English, true
	}
	return language.Russian, false
}

func monthKey(m int) string   { return fmt.Sprintf("month.%d", m) }
func monthInKey(m int) string { return fmt.Sprintf("month.in.%d", m) }

// MonthName returns the nominative month name.
func (p *Printer) MonthName(m int) string { return p.loc.Sprintf(monthKey(m)) }

func (p *Printer) monthIn(m int) string { return p.loc.Sprintf(monthInKey(m)) }

func (p *Printer) Start() string        { return p.loc.Sprintf("start") }
func (p *Printer) WrongCode() string    { return p.loc.Sprintf("code.wrong") }
func (p *Printer) Cancelled() string    { return p.loc.Sprintf("cancelled") }
func (p *Printer) Unauthorized() string { return p.loc.Sprintf("unauthorized") }
func (p *Printer) LoggedOut() string    { return p.loc.Sprintf("logout") }
func (p *Printer) AddUsage() string     { return p.loc.Sprintf("add.usage") }
func (p *Printer) BadDate() string      { return p.loc.Sprintf("add.bad_date") }
func (p *Printer) DelUsage() string     { return p.loc.Sprintf("del.usage") }
func (p *Printer) StorageError() string { return p.loc.Sprintf("storage") }
func (p *Printer) Unknown() string      { return p.loc.Sprintf("unknown") }
func (p *Printer) Help() string         { return p.loc.Sprintf("help") }

// Welcome greets a freshly authorized user.
func (p *Printer) Welcome(name string, count int) string {
	return p.loc.Sprintf("welcome", name, count, p.loc.Sprintf("commands"))
}

// Added confirms an add.
func (p *Printer) Added(r birthday.Record) string {
	return p.loc.Sprintf("add.done", r.Name, r.Day, r.Month)
}

// Removed confirms a delete.
func (p *Printer) Removed(r birthday.Record) string {
	return p.loc.Sprintf("del.done", r.Name, r.Day, r.Month)
}

// NotFound reports a delete query that matched nothing.
func (p *Printer) NotFound(query string) string {
	return p.loc.Sprintf("del.not_found", query)
}

// MonthList renders the /month reply. records must already be sorted.
func (p *Printer) MonthList(month int, records []birthday.Record) string {
	if len(records) == 0 {
		return p.loc.Sprintf("month.empty", p.monthIn(month))
	}

	lines := []string{p.loc.Sprintf("month.header", p.monthIn(month))}
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("  • %d — %s", r.Day, r.Name))
	}
	return strings.Join(lines, "\n")
}

// MonthlyOverview renders the scheduled first-of-month message. records
// must already be sorted.
func (p *Printer) MonthlyOverview(month int, records []birthday.Record) string {
	if len(records) == 0 {
		return p.loc.Sprintf("month.empty", p.monthIn(month))
	}

	lines := []string{p.loc.Sprintf("monthly.header", p.MonthName(month))}
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("  • %d — %s", r.Day, r.Name))
	}
	return strings.Join(lines, "\n")
}

// FullList renders the /list reply grouped by month. list must already be
// sorted by month then day.
func (p *Printer) FullList(list []birthday.Record) string {
	if len(list) == 0 {
		return p.loc.Sprintf("list.empty")
	}

	lines := []string{p.loc.Sprintf("list.header")}
	current := 0
	for _, r := range list {
		if r.Month != current {
			current = r.Month
			lines = append(lines, "\n"+p.MonthName(current)+":")
		}
		lines = append(lines, fmt.Sprintf("  %2d — %s", r.Day, r.Name))
	}
	return strings.Join(lines, "\n")
}

// TodayNotice renders the daily reminder, or the /today empty reply.
func (p *Printer) TodayNotice(records []birthday.Record) string {
	if len(records) == 0 {
		return p.loc.Sprintf("today.none")
	}

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return p.loc.Sprintf("today.notice", strings.Join(names, ", "))
}
