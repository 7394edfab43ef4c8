// Package remind selects birthdays for a reference date and broadcasts
// reminders to every bound chat.
package remind

import (
	"cmp"
	"slices"
	"time"

	"github.com/zarlcorp/zbday/internal/birthday"
)

// MatchingToday returns records on today's day and month, in input order.
func MatchingToday(list birthday.List, today time.Time) []birthday.Record {
	var out []birthday.Record
	for _, r := range list {
		if r.Day == today.Day() && r.Month == int(today.Month()) {
			out = append(out, r)
		}
	}
	return out
}

// MatchingMonth returns records in today's month, in input order.
func MatchingMonth(list birthday.List, today time.Time) []birthday.Record {
	var out []birthday.Record
	for _, r := range list {
		if r.Month == int(today.Month()) {
			out = append(out, r)
		}
	}
	return out
}

// SortByDay sorts records by day ascending. Equal days keep input order.
func SortByDay(records []birthday.Record) {
	slices.SortStableFunc(records, func(a, b birthday.Record) int {
		return cmp.Compare(a.Day, b.Day)
	})
}

// SortByDate sorts records by month then day. Equal dates keep input order.
func SortByDate(records []birthday.Record) {
	slices.SortStableFunc(records, func(a, b birthday.Record) int {
		if c := cmp.Compare(a.Month, b.Month); c != 0 {
			return c
		}
		return cmp.Compare(a.Day, b.Day)
	})
}
