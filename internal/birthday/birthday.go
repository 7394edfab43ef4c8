// Package birthday defines birthday records and the errors shared by the
// session, store and bot layers.
package birthday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnauthorized is returned when no session is bound to a handle.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCode is returned when a code is not in the directory.
	ErrInvalidCode = errors.New("invalid code")
	// ErrInvalidDate is returned for a day or month out of range or a malformed date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrNotFound is returned when a delete query matches no record.
	ErrNotFound = errors.New("birthday not found")
	// ErrIO marks a durable read or write failure.
	ErrIO = errors.New("storage failure")
)

// Record is one recurring birthday. There is no year.
type Record struct {
	Day   int    `json:"day"`
	Month int    `json:"month"`
	Name  string `json:"name"`
}

// List is a birthday list in stored order.
type List []Record

// Validate checks ranges only. Day is not checked against month length,
// so 31.02 is a valid record.
func (r Record) Validate() error {
	if r.Day < 1 || r.Day > 31 || r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: %02d.%02d", ErrInvalidDate, r.Day, r.Month)
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("empty name")
	}
	return nil
}

// String formats the record as "Name — DD.MM".
func (r Record) String() string {
	return fmt.Sprintf("%s — %02d.%02d", r.Name, r.Day, r.Month)
}

// ParseDayMonth parses "DD.MM" (single digits allowed) and range-checks it.
func ParseDayMonth(s string) (day, month int, err error) {
	d, m, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	day, err = strconv.Atoi(d)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	month, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	if day < 1 || day > 31 || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return day, month, nil
}

// IOError wraps a storage error so it matches both ErrIO and the cause.
func IOError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
