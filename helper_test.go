package degiro

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

// reportFormat is a minimal semicolon separated source used to exercise the
// pipeline: "Naam;ISIN;Waarde" then one line per product.
type reportFormat struct {
	schema      *Schema
	translation TranslationMap
}

func newReportFormat() *reportFormat {
	return &reportFormat{
		schema: &Schema{
			Name: "report",
			Columns: []Column{
				{Name: "name", Kind: KindString},
				{Name: "isin", Kind: KindString},
				{Name: "value", Kind: KindFloat},
			},
			Index: IndexType{Name: "closing_date", Location: "Europe/Amsterdam"},
		},
		translation: TranslationMap{"Naam": "name", "ISIN": "isin", "Waarde": "value"},
	}
}

func (f *reportFormat) Name() string { return "report" }

func (f *reportFormat) Endpoint(s *session.Session, l Locale, day date.Date) string {
	q := url.Values{}
	q.Set("intAccount", s.AccountID)
	q.Set("sessionId", s.Token)
	q.Set("toDate", l.FormatDate(day))
	return s.Domain() + "/report?" + q.Encode()
}

func (f *reportFormat) Parse(page RawPage, l Locale) (*Table, error) {
	lines := strings.Split(strings.TrimSpace(page.Body), "\n")
	header := strings.Split(lines[0], ";")
	t := &Table{Columns: header}
	for n, line := range lines[1:] {
		cells := strings.Split(line, ";")
		if len(cells) != len(header) {
			return nil, &ParseError{Line: n + 2, Err: fmt.Errorf("got %d cells, want %d", len(cells), len(header))}
		}
		values := make(map[string]any, len(cells))
		for i, c := range cells {
			if header[i] == "Waarde" {
				v, err := l.ParseFloat(c)
				if err != nil {
					return nil, &ParseError{Line: n + 2, Column: header[i], Err: err}
				}
				values[header[i]] = v
				continue
			}
			values[header[i]] = c
		}
		t.Rows = append(t.Rows, Row{Values: values})
	}
	return t, nil
}

func (f *reportFormat) Schema() *Schema             { return f.schema }
func (f *reportFormat) Translation() TranslationMap { return f.translation }
func (f *reportFormat) Key() string                 { return "isin" }

// portal serves one report per day, keyed by the toDate query parameter
// (DD/MM/YYYY).
type portal map[string]func(w http.ResponseWriter)

func body(s string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { fmt.Fprint(w, s) }
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { http.Error(w, http.StatusText(code), code) }
}

// newTestSession starts a fake portal and returns a session logged into it.
func newTestSession(t *testing.T, p portal) *session.Session {
	t.Helper()
	return newTestSessionConfig(t, p, session.HTTPConfig{})
}

// newTestSessionConfig is newTestSession with client settings; the domain is
// always the fake portal.
func newTestSessionConfig(t *testing.T, p portal, cfg session.HTTPConfig) *session.Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(session.CookieName); err != nil || c.Value != "tok" {
			http.Error(w, "not logged in", http.StatusUnauthorized)
			return
		}
		h, ok := p[r.URL.Query().Get("toDate")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	cfg.Domain = srv.URL
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1000
	}
	s, err := session.Resume("1234567", "tok", cfg)
	if err != nil {
		t.Fatalf("session.Resume() unexpected error: %v", err)
	}
	return s
}

func newTestPipeline(t *testing.T, s *session.Session, f Format, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(s, f, opts...)
	if err != nil {
		t.Fatalf("NewPipeline() unexpected error: %v", err)
	}
	return p
}

// stamp is the index value of day in the default locale.
func stamp(t *testing.T, day string) time.Time {
	t.Helper()
	loc, err := DefaultLocale().Location()
	if err != nil {
		t.Fatal(err)
	}
	return date.MustParse(day).In(loc)
}
