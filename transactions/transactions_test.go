package transactions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

const history = `{"data": [
  {"id": 2450163910, "productId": 1153605, "date": "2024-03-04T10:15:32+01:00", "buysell": "B",
   "price": 600.5, "quantity": 10, "total": -6005, "totalInBaseCurrency": -6005, "currency": "EUR"},
  {"id": 2450163911, "productId": 331868, "date": "2024-03-04T16:01:00+01:00", "buysell": "S",
   "price": 170.25, "quantity": -4, "total": 681, "totalInBaseCurrency": 629.51}
]}`

func TestParse(t *testing.T) {
	got, err := Format{}.Parse(degiro.RawPage{Day: date.New(2024, 3, 4), Body: history}, degiro.DefaultLocale())
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Parse() Len() = %d, want 2", got.Len())
	}
	first := got.Rows[0].Values
	if first["id"] != "2450163910" || first["productId"] != "1153605" || first["buysell"] != "B" {
		t.Errorf("first row = %v", first)
	}
	ts, ok := first["date"].(time.Time)
	if !ok || ts.Location().String() != "Europe/Amsterdam" || ts.Hour() != 10 {
		t.Errorf("first row date = %v, want 10:15 in Europe/Amsterdam", first["date"])
	}
	second := got.Rows[1].Values
	if second["currency"] != nil {
		t.Errorf("missing currency = %v, want nil", second["currency"])
	}
	if second["quantity"] != -4.0 || second["totalInBaseCurrency"] != 629.51 {
		t.Errorf("second row = %v", second)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, body string
		wantItem   int
	}{
		{"not json", "<html>", 0},
		{"no data", `{"error": "session expired"}`, 0},
		{"null data", `{"data": null}`, 0},
		{"data not an array", `{"data": {"id": 1}}`, 0},
		{"item not an object", `{"data": [1]}`, 1},
		{"bad date", `{"data": [{"id": 1, "date": "04/03/2024"}]}`, 1},
		{"bad price", `{"data": [{"id": 1, "date": "2024-03-04T10:15:32+01:00"}, {"id": 2, "price": "cheap"}]}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format{}.Parse(degiro.RawPage{Body: tt.body}, degiro.DefaultLocale())
			if err == nil {
				t.Fatal("Parse() expected an error")
			}
			var perr *degiro.ParseError
			if errors.As(err, &perr) != (tt.wantItem > 0) {
				t.Fatalf("Parse() error = %v", err)
			}
			if tt.wantItem > 0 && (perr.Item != tt.wantItem || perr.Line != 0) {
				t.Errorf("ParseError = %+v, want item %d and no line", perr, tt.wantItem)
			}
		})
	}
}

func TestTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != Path || q.Get("fromDate") != q.Get("toDate") || q.Get("groupTransactionsByOrder") != "false" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if q.Get("toDate") == "04/03/2024" {
			fmt.Fprint(w, history)
			return
		}
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer srv.Close()

	s, err := session.Resume("1234567", "tok", session.HTTPConfig{Domain: srv.URL, RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(s)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	got, err := p.Get(context.Background(), date.NewRange(date.New(2024, 3, 3), date.New(2024, 3, 5)))
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if want := Schema.ColumnNames(); !slices.Equal(got.Columns, want) {
		t.Errorf("Columns = %v, want %v", got.Columns, want)
	}
	if want := []any{"2450163910", "2450163911"}; !slices.Equal(got.Column(ID), want) {
		t.Errorf("ids = %v, want %v", got.Column(ID), want)
	}
	if v := got.Rows[1].Values[Currency]; v != nil {
		t.Errorf("currency = %v, want nil", v)
	}
	if v := got.Rows[0].Values[TotalInBaseCurrency].(float64); math.IsNaN(v) {
		t.Error("total_in_base_currency is NaN")
	}
}

func TestTransactionsErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "session expired"}`)
	}))
	defer srv.Close()

	s, err := session.Resume("1234567", "tok", session.HTTPConfig{Domain: srv.URL, RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(s)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	day := date.New(2024, 3, 4)
	got, err := p.Get(context.Background(), date.NewRange(day, day))
	var perr *degiro.ParseError
	if !errors.As(err, &perr) || perr.Day != day {
		t.Fatalf("Get() error = %v, want a ParseError for %s", err, day)
	}
	if got != nil {
		t.Errorf("Get() returned %d rows next to an error page", got.Len())
	}
}
