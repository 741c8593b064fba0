// Package transactions reads the transaction history of a DeGiro account,
// one day at a time.
package transactions

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

// Path is the endpoint of the transaction history, relative to the portal domain.
const Path = "/reporting/secure/v4/transactions"

// rowsPath selects the array of transactions of a response. A response
// without it is an error page, not an empty day.
const rowsPath = "$.data"

// Canonical column names.
const (
	ID                  = "id"
	ProductID           = "product_id"
	Date                = "date"
	BuySell             = "buy_sell"
	Price               = "price"
	Quantity            = "quantity"
	Total               = "total"
	TotalInBaseCurrency = "total_in_base_currency"
	Currency            = "currency"
)

type field struct {
	name string // JSON field name
	kind degiro.Kind
}

// fields are the transaction attributes kept, in column order.
var fields = []field{
	{"id", degiro.KindString},
	{"productId", degiro.KindString},
	{"date", degiro.KindTime},
	{"buysell", degiro.KindString},
	{"price", degiro.KindFloat},
	{"quantity", degiro.KindFloat},
	{"total", degiro.KindFloat},
	{"totalInBaseCurrency", degiro.KindFloat},
	{"currency", degiro.KindString},
}

var translation = degiro.TranslationMap{
	"id":                  ID,
	"productId":           ProductID,
	"date":                Date,
	"buysell":             BuySell,
	"price":               Price,
	"quantity":            Quantity,
	"total":               Total,
	"totalInBaseCurrency": TotalInBaseCurrency,
	"currency":            Currency,
}

// Schema is the contract of a transactions table.
var Schema = &degiro.Schema{
	Name: "transactions",
	Columns: []degiro.Column{
		{Name: ID, Kind: degiro.KindString},
		{Name: ProductID, Kind: degiro.KindString},
		{Name: Date, Kind: degiro.KindTime},
		{Name: BuySell, Kind: degiro.KindString},
		{Name: Price, Kind: degiro.KindFloat},
		{Name: Quantity, Kind: degiro.KindFloat},
		{Name: Total, Kind: degiro.KindFloat},
		{Name: TotalInBaseCurrency, Kind: degiro.KindFloat, Nullable: true},
		{Name: Currency, Kind: degiro.KindString, Nullable: true},
	},
	Index: degiro.IndexType{Name: "transaction_day", Location: "Europe/Amsterdam"},
}

// Format is the degiro.Format of the transaction history.
type Format struct{}

func (Format) Name() string { return "transactions" }

func (Format) Endpoint(s *session.Session, l degiro.Locale, day date.Date) string {
	q := url.Values{}
	q.Set("intAccount", s.AccountID)
	q.Set("sessionId", s.Token)
	q.Set("country", l.Country)
	q.Set("lang", l.Language)
	q.Set("fromDate", l.FormatDate(day))
	q.Set("toDate", l.FormatDate(day))
	q.Set("groupTransactionsByOrder", "false")
	return s.Domain() + Path + "?" + q.Encode()
}

func (Format) Parse(page degiro.RawPage, l degiro.Locale) (*degiro.Table, error) {
	loc, err := l.Location()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal([]byte(page.Body), &doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	jval, err := jsonpath.Get(rowsPath, doc)
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", rowsPath, err)
	}
	items, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is a %T, want an array", rowsPath, jval)
	}

	t := &degiro.Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.name
	}
	for n, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &degiro.ParseError{Item: n + 1, Err: fmt.Errorf("transaction is a %T, want an object", item)}
		}
		values := make(map[string]any, len(fields))
		for _, f := range fields {
			v, err := convert(obj[f.name], f.kind, loc)
			if err != nil {
				return nil, &degiro.ParseError{Item: n + 1, Column: f.name, Err: err}
			}
			values[f.name] = v
		}
		t.Rows = append(t.Rows, degiro.Row{Values: values})
	}
	return t, nil
}

func (Format) Schema() *degiro.Schema             { return Schema }
func (Format) Translation() degiro.TranslationMap { return translation }
func (Format) Key() string                        { return ID }

// New returns the transactions pipeline over s.
func New(s *session.Session, opts ...degiro.Option) (*degiro.Pipeline, error) {
	return degiro.NewPipeline(s, Format{}, opts...)
}

// convert turns a decoded JSON value into a cell of the given kind. A
// missing value is nil, or NaN for floats.
func convert(v any, kind degiro.Kind, loc *time.Location) (any, error) {
	if v == nil {
		if kind == degiro.KindFloat {
			return math.NaN(), nil
		}
		return nil, nil
	}
	switch kind {
	case degiro.KindString:
		switch v := v.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	case degiro.KindFloat:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case degiro.KindTime:
		if s, ok := v.(string); ok {
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, err
			}
			return ts.In(loc), nil
		}
	}
	return nil, fmt.Errorf("got %T, want %v", v, kind)
}
