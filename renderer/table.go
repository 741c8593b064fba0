package renderer

import (
	"bytes"
	"fmt"
	"math"
	"time"

	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
)

// MoneyColumn tells how to format a float column as an amount of money.
// Currency is a fixed ISO code; CurrencyColumn names a column holding the
// code of each row. Currency wins when both are set.
type MoneyColumn struct {
	Currency       string
	CurrencyColumn string
}

// Options configures TableMarkdown.
type Options struct {
	Title      string
	Index      string                 // header of the index column, "Date" when empty
	Money      map[string]MoneyColumn // float columns printed as money
	FailedDays []date.Date            // days listed under the table as missing
}

// TableMarkdown renders t as a markdown document: an optional title, one
// GFM table with the index first, and the list of failed days if any.
func TableMarkdown(t *degiro.Table, opts Options) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	if opts.Title != "" {
		doc.H1(opts.Title)
	}

	index := opts.Index
	if index == "" {
		index = "Date"
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft},
		Header:    []string{index},
		Rows:      [][]string{},
	}
	kinds := columnKinds(t)
	for _, c := range t.Columns {
		table.Header = append(table.Header, c)
		if kinds[c] == degiro.KindFloat {
			table.Alignment = append(table.Alignment, md.AlignRight)
		} else {
			table.Alignment = append(table.Alignment, md.AlignLeft)
		}
	}
	for _, r := range t.Rows {
		row := []string{date.Of(r.Time).String()}
		for _, c := range t.Columns {
			row = append(row, formatCell(r, c, opts.Money))
		}
		table.Rows = append(table.Rows, row)
	}
	if len(t.Rows) == 0 {
		doc.PlainText("No rows.")
	} else {
		doc.Table(table)
	}

	if len(opts.FailedDays) > 0 {
		doc.H2("Missing days")
		days := make([]string, len(opts.FailedDays))
		for i, d := range opts.FailedDays {
			days[i] = d.String()
		}
		doc.BulletList(days...)
	}
	return doc.String()
}

// columnKinds returns the kind of the first non nil value of each column.
func columnKinds(t *degiro.Table) map[string]degiro.Kind {
	kinds := make(map[string]degiro.Kind, len(t.Columns))
	for _, c := range t.Columns {
		for _, r := range t.Rows {
			if k, ok := degiro.KindOf(r.Values[c]); ok {
				kinds[c] = k
				break
			}
		}
	}
	return kinds
}

func formatCell(r degiro.Row, column string, money map[string]MoneyColumn) string {
	switch v := r.Values[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04")
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		if m, ok := money[column]; ok {
			cur := m.Currency
			if cur == "" {
				cur, _ = r.Values[m.CurrencyColumn].(string)
			}
			if cur != "" {
				return FormatMoney(v, cur)
			}
		}
		return decimal.NewFromFloat(v).String()
	default:
		return fmt.Sprint(v)
	}
}
