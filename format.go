package degiro

import (
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

// RawPage is one day's decoded response body.
type RawPage struct {
	Day  date.Date
	Body string
}

// TranslationMap maps source column names to canonical column names.
type TranslationMap map[string]string

// Filter reports whether a row must be excluded from the table.
type Filter func(Row) bool

// Exclude returns a Filter that drops rows whose column equals value.
func Exclude(column string, value any) Filter {
	return func(r Row) bool {
		v, ok := r.Values[column]
		return ok && equalValue(v, value)
	}
}

// Format is what a concrete data source supplies to a Pipeline.
type Format interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Endpoint returns the URL of the report for day.
	Endpoint(s *session.Session, l Locale, day date.Date) string
	// Parse decodes one day's report. Columns keep their source names;
	// row timestamps are set by the Pipeline.
	Parse(page RawPage, l Locale) (*Table, error)
	// Schema is the contract of the final table. A nil Schema is a
	// configuration error detected by the Validate stage.
	Schema() *Schema
	// Translation maps source names to canonical names.
	Translation() TranslationMap
	// Key is the canonical column identifying a product, used to drop
	// duplicate rows of a day. Empty disables deduplication.
	Key() string
}
