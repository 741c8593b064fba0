package positions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/freelectron/degiro"
)

var numeric = []string{ColQuantity, ColClosingPrice, ColValueEUR}

// sourceColumns is the column order of a report without any line.
var sourceColumns = []string{ColProduct, ColISIN, ColQuantity, ColClosingPrice, ColLocalValue, ColLocalCurrency, ColValueEUR}

// parse reads a position report. Numbers follow the locale decimal
// convention and an empty number is NaN.
func parse(body string, l degiro.Locale) (*degiro.Table, error) {
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &degiro.Table{Columns: slices.Clone(sourceColumns)}, nil
	}
	if err != nil {
		return nil, &degiro.ParseError{Line: 1, Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if !slices.Contains(header, ColLocalValue) {
		return nil, &degiro.ParseError{Line: 1, Column: ColLocalValue, Err: errors.New("missing column")}
	}

	t := &degiro.Table{Columns: columns(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var cerr *csv.ParseError
			if errors.As(err, &cerr) {
				line = cerr.Line
			}
			return nil, &degiro.ParseError{Line: line, Err: err}
		}
		line, _ := r.FieldPos(0)
		if len(record) != len(header) {
			return nil, &degiro.ParseError{Line: line, Err: fmt.Errorf("got %d fields, want %d", len(record), len(header))}
		}
		row, err := parseRecord(header, record, l)
		if err != nil {
			var perr *degiro.ParseError
			if errors.As(err, &perr) {
				perr.Line = line
			}
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// columns returns the table columns of a report header: blank headers are
// dropped and the local currency follows the local value.
func columns(header []string) []string {
	var cols []string
	for _, h := range header {
		if h == "" {
			continue
		}
		cols = append(cols, h)
		if h == ColLocalValue {
			cols = append(cols, ColLocalCurrency)
		}
	}
	return cols
}

func parseRecord(header, record []string, l degiro.Locale) (degiro.Row, error) {
	values := make(map[string]any, len(header)+1)
	for i, h := range header {
		cell := strings.TrimSpace(record[i])
		switch {
		case h == "":
			continue
		case h == ColLocalValue:
			currency, amount, err := splitAmount(cell, l)
			if err != nil {
				return degiro.Row{}, &degiro.ParseError{Column: h, Err: err}
			}
			values[ColLocalCurrency] = currency
			values[ColLocalValue] = amount
		case slices.Contains(numeric, h):
			v, err := l.ParseFloat(cell)
			if err != nil {
				return degiro.Row{}, &degiro.ParseError{Column: h, Err: err}
			}
			values[h] = v
		default:
			values[h] = cell
		}
	}
	return degiro.Row{Values: values}, nil
}

// splitAmount splits "EUR 123,45" into its currency code and amount. An
// empty cell has no currency and a NaN amount.
func splitAmount(cell string, l degiro.Locale) (currency any, amount float64, err error) {
	fields := strings.Fields(cell)
	switch len(fields) {
	case 0:
		return nil, math.NaN(), nil
	case 2:
	default:
		return nil, 0, fmt.Errorf("want \"<currency> <amount>\", got %q", cell)
	}
	code := strings.ToUpper(fields[0])
	if money.GetCurrency(code) == nil {
		log.Printf("[positions] unknown currency %q", code)
	}
	amount, err = l.ParseFloat(fields[1])
	if err != nil {
		return nil, 0, err
	}
	return code, amount, nil
}
