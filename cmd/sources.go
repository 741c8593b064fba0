package cmd

import (
	"slices"
	"strings"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/positions"
	"github.com/freelectron/degiro/renderer"
	"github.com/freelectron/degiro/session"
	"github.com/freelectron/degiro/transactions"
)

// source binds a data source to its presentation.
type source struct {
	format degiro.Format
	build  func(*session.Session, ...degiro.Option) (*degiro.Pipeline, error)
	title  string
	money  map[string]renderer.MoneyColumn
}

var sources = map[string]source{
	"positions": {
		format: positions.Format{},
		build:  positions.New,
		title:  "Positions",
		money: map[string]renderer.MoneyColumn{
			positions.ClosingPrice: {CurrencyColumn: positions.LocalCurrency},
			positions.LocalValue:   {CurrencyColumn: positions.LocalCurrency},
			positions.ValueEUR:     {Currency: "EUR"},
		},
	},
	"transactions": {
		format: transactions.Format{},
		build:  transactions.New,
		title:  "Transactions",
		money: map[string]renderer.MoneyColumn{
			transactions.Price:               {CurrencyColumn: transactions.Currency},
			transactions.Total:               {CurrencyColumn: transactions.Currency},
			transactions.TotalInBaseCurrency: {Currency: "EUR"},
		},
	},
}

func sourceNames() []string {
	var names []string
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// index returns the name of the index column of s.
func (s source) index() string { return s.format.Schema().Index.Name }

func (s source) options(failed []date.Date) renderer.Options {
	return renderer.Options{
		Title:      s.title,
		Index:      strings.ReplaceAll(s.index(), "_", " "),
		Money:      s.money,
		FailedDays: failed,
	}
}
