package degiro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freelectron/degiro/date"
)

// ErrNoData is returned when a requested range holds no day at all.
var ErrNoData = errors.New("no data")

// FetchError reports a day whose report could not be retrieved or decoded.
type FetchError struct {
	Day    date.Date
	Status int // HTTP status, zero when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http status %d: %v", e.Day, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Day, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchErrors aggregates the failed days of one FetchRaw call, in ascending
// day order.
type FetchErrors struct {
	Errs []*FetchError
}

func (e *FetchErrors) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d days failed: %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *FetchErrors) Unwrap() []error {
	errs := make([]error, len(e.Errs))
	for i, err := range e.Errs {
		errs[i] = err
	}
	return errs
}

// Days returns the failed days.
func (e *FetchErrors) Days() []date.Date {
	days := make([]date.Date, len(e.Errs))
	for i, err := range e.Errs {
		days[i] = err.Day
	}
	return days
}

// ParseError reports a report whose content does not match its format.
type ParseError struct {
	Day    date.Date
	Line   int    // 1-based line of a text report, zero when unknown
	Item   int    // 1-based position of the record in a JSON report, zero when unknown
	Column string // source column name, empty when unknown
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse %s", e.Day)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Item > 0 {
		fmt.Fprintf(&b, " item %d", e.Item)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// MisconfiguredSourceError reports a Format that lacks a required part.
type MisconfiguredSourceError struct {
	Source string
	Reason string
}

func (e *MisconfiguredSourceError) Error() string {
	return fmt.Sprintf("source %s is misconfigured: %s", e.Source, e.Reason)
}
