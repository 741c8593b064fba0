// Package positions reads the daily position report of a DeGiro account.
//
// The report is a CSV file with Dutch headers, one line per held product:
//
//	Product,Symbool/ISIN,Aantal,Slotkoers,Lokale waarde,Waarde in EUR
//	ASML HOLDING,NL0010273215,10,"600,50",EUR 6005.00,"6005,00"
//
// The "Lokale waarde" cell holds both the currency and the amount; it is
// split into the local_currency and local_value columns.
package positions

import (
	"net/url"
	"strings"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

// Source column names of the Dutch report.
const (
	ColProduct       = "Product"
	ColISIN          = "Symbool/ISIN"
	ColQuantity      = "Aantal"
	ColClosingPrice  = "Slotkoers"
	ColLocalValue    = "Lokale waarde"
	ColLocalCurrency = "Lokale valuta" // derived from ColLocalValue
	ColValueEUR      = "Waarde in EUR"
)

// Canonical column names.
const (
	Product       = "product"
	ISIN          = "isin"
	Quantity      = "quantity"
	ClosingPrice  = "closing_price"
	LocalValue    = "local_value"
	LocalCurrency = "local_currency"
	ValueEUR      = "value_eur"
)

// IndexName is the name of the row index when exported.
const IndexName = "closing_date"

// CashFund is the product name of uninvested cash, which is not a position.
const CashFund = "CASH & CASH FUND & FTX CASH (EUR)"

// Path is the endpoint of the position report, relative to the portal domain.
const Path = "/reporting/secure/v3/positionReport/csv"

var translation = degiro.TranslationMap{
	ColProduct:       Product,
	ColISIN:          ISIN,
	ColQuantity:      Quantity,
	ColClosingPrice:  ClosingPrice,
	ColLocalValue:    LocalValue,
	ColLocalCurrency: LocalCurrency,
	ColValueEUR:      ValueEUR,
}

// Schema is the contract of a positions table.
var Schema = &degiro.Schema{
	Name: "portfolio",
	Columns: []degiro.Column{
		{Name: Product, Kind: degiro.KindString},
		{Name: ISIN, Kind: degiro.KindString},
		{Name: Quantity, Kind: degiro.KindFloat, Nullable: true},     // empty on cash lines
		{Name: ClosingPrice, Kind: degiro.KindFloat, Nullable: true}, // empty on cash lines
		{Name: LocalValue, Kind: degiro.KindFloat},
		{Name: LocalCurrency, Kind: degiro.KindString},
		{Name: ValueEUR, Kind: degiro.KindFloat},
	},
	Index: degiro.IndexType{Name: IndexName, Location: "Europe/Amsterdam"},
}

// ExcludeCash drops the cash fund line.
var ExcludeCash = degiro.Exclude(Product, CashFund)

// Format is the degiro.Format of the daily position report.
type Format struct{}

func (Format) Name() string { return "positions" }

// Endpoint returns the report URL for the positions held at the close of day.
func (Format) Endpoint(s *session.Session, l degiro.Locale, day date.Date) string {
	return s.Domain() + Path + "?" + query(
		"intAccount", s.AccountID,
		"sessionId", s.Token,
		"country", l.Country,
		"lang", l.Language,
		"toDate", l.FormatDate(day),
	)
}

func (Format) Parse(page degiro.RawPage, l degiro.Locale) (*degiro.Table, error) {
	return parse(page.Body, l)
}

func (Format) Schema() *degiro.Schema             { return Schema }
func (Format) Translation() degiro.TranslationMap { return translation }
func (Format) Key() string                        { return ISIN }

// New returns the positions pipeline over s. The cash fund line is always
// excluded; opts may add filters or override the locale.
func New(s *session.Session, opts ...degiro.Option) (*degiro.Pipeline, error) {
	opts = append([]degiro.Option{degiro.WithFilters(ExcludeCash)}, opts...)
	return degiro.NewPipeline(s, Format{}, opts...)
}

// query encodes key/value pairs in the given order.
func query(kv ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[i+1]))
	}
	return b.String()
}
