package degiro

import (
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata" // the portal timezone must resolve on hosts without a zoneinfo database

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/freelectron/degiro/date"
)

// Locale holds the regional parameters of a portal account.
type Locale struct {
	Country    string // country code sent to the portal, e.g. "NL"
	Language   string // language code sent to the portal, e.g. "nl"
	Timezone   string // IANA timezone of the reported days
	DateFormat string // Go layout of dates in endpoint URLs
	Encoding   string // IANA charset of response bodies
	Decimal    rune   // decimal separator of numbers in reports
}

// DefaultLocale returns the locale of the Dutch web trader.
func DefaultLocale() Locale {
	return Locale{
		Country:    "NL",
		Language:   "nl",
		Timezone:   "Europe/Amsterdam",
		DateFormat: "02/01/2006",
		Encoding:   "utf-8",
		Decimal:    ',',
	}
}

// Location loads the locale timezone.
func (l Locale) Location() (*time.Location, error) {
	if l.Timezone == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", l.Timezone, err)
	}
	return loc, nil
}

// FormatDate formats day for an endpoint URL.
func (l Locale) FormatDate(day date.Date) string { return day.Format(l.DateFormat) }

// Charset resolves the locale encoding.
func (l Locale) Charset() (encoding.Encoding, error) {
	name := l.Encoding
	if name == "" {
		name = "utf-8"
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}

// Validate checks every locale parameter.
func (l Locale) Validate() error {
	if _, err := l.Location(); err != nil {
		return err
	}
	if _, err := l.Charset(); err != nil {
		return err
	}
	if l.DateFormat == "" {
		return fmt.Errorf("date format is required")
	}
	if l.Decimal != ',' && l.Decimal != '.' {
		return fmt.Errorf("unsupported decimal separator %q", l.Decimal)
	}
	return nil
}

// ParseDecimal parses a number written with the locale decimal separator.
//
// With a ',' separator, "1.234,56" is 1234.56, but a number without any ','
// is read as is: the portal writes "123.45" in some fields regardless of the
// account language.
func (l Locale) ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, s)
	switch l.Decimal {
	case ',':
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// ParseFloat is ParseDecimal for table cells: an empty string is NaN.
func (l Locale) ParseFloat(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return math.NaN(), nil
	}
	d, err := l.ParseDecimal(s)
	if err != nil {
		return math.NaN(), err
	}
	return d.InexactFloat64(), nil
}
