package degiro

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/session"
)

// Stages are the five steps of a table extraction, run in order by GetTable.
type Stages interface {
	// FetchRaw downloads one page per day of r. Days that fail are reported
	// in a *FetchErrors next to the pages that succeeded.
	FetchRaw(ctx context.Context, r date.Range) ([]RawPage, error)
	// Reshape parses pages into one table, in ascending day order.
	Reshape(pages []RawPage) (*Table, error)
	// Rename maps source column names to canonical names.
	Rename(t *Table) *Table
	// Filter drops excluded rows.
	Filter(t *Table) *Table
	// Validate checks the table against the source schema.
	Validate(t *Table) (*Table, error)
}

// DefaultConcurrency is the number of days fetched in parallel.
const DefaultConcurrency = 4

// Pipeline implements Stages for a Format over an authenticated Session.
type Pipeline struct {
	sess        *session.Session
	format      Format
	locale      Locale
	loc         *time.Location
	charset     encoding.Encoding
	filters     []Filter
	concurrency int
	requireAll  bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocale overrides DefaultLocale.
func WithLocale(l Locale) Option { return func(p *Pipeline) { p.locale = l } }

// WithFilters adds row exclusion predicates.
func WithFilters(filters ...Filter) Option {
	return func(p *Pipeline) { p.filters = append(p.filters, filters...) }
}

// WithConcurrency sets the number of days fetched in parallel. Values below
// one mean sequential fetching.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = max(1, n) }
}

// RequireAllDays makes a single failed day fail the whole FetchRaw stage.
func RequireAllDays() Option { return func(p *Pipeline) { p.requireAll = true } }

// NewPipeline returns the Pipeline of f over sess.
//
// It fails with a *MisconfiguredSourceError when f has no translation map or
// the locale cannot be resolved.
func NewPipeline(sess *session.Session, f Format, opts ...Option) (*Pipeline, error) {
	if f == nil {
		return nil, &MisconfiguredSourceError{Source: "<nil>", Reason: "no format"}
	}
	p := &Pipeline{
		sess:        sess,
		format:      f,
		locale:      DefaultLocale(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if f.Translation() == nil {
		return nil, &MisconfiguredSourceError{Source: f.Name(), Reason: "no translation map"}
	}
	if err := p.locale.Validate(); err != nil {
		return nil, &MisconfiguredSourceError{Source: f.Name(), Reason: err.Error()}
	}
	// Validate has resolved both already.
	p.loc, _ = p.locale.Location()
	p.charset, _ = p.locale.Charset()
	return p, nil
}

// Format returns the source format of p.
func (p *Pipeline) Format() Format { return p.format }

// Locale returns the locale of p.
func (p *Pipeline) Locale() Locale { return p.locale }

// Get runs every stage of p over r. See GetTable.
func (p *Pipeline) Get(ctx context.Context, r date.Range) (*Table, error) {
	return GetTable(ctx, p, r)
}

// GetTable runs the stages of s over r, strictly in order.
//
// A partial fetch failure yields the table of the days that succeeded
// together with the *FetchErrors. Every other failure, including a
// cancelled ctx, yields a nil table and the stage error unchanged.
func GetTable(ctx context.Context, s Stages, r date.Range) (*Table, error) {
	pages, fetchErr := s.FetchRaw(ctx, r)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		var partial *FetchErrors
		if !errors.As(fetchErr, &partial) || len(pages) == 0 {
			return nil, fetchErr
		}
	}

	t, err := s.Reshape(pages)
	if err != nil {
		return nil, err
	}
	t = s.Rename(t)
	t = s.Filter(t)
	t, err = s.Validate(t)
	if err != nil {
		return nil, err
	}
	return t, fetchErr
}

// FetchRaw implements Stages. The session is held exclusively until every
// request of the range has completed.
func (p *Pipeline) FetchRaw(ctx context.Context, r date.Range) ([]RawPage, error) {
	if err := p.sess.Valid(); err != nil {
		return nil, err
	}
	days := slices.Collect(r.Days())
	if len(days) == 0 {
		return nil, fmt.Errorf("range %v: %w", r, ErrNoData)
	}

	release := p.sess.Exclusive()
	defer release()

	pages := make([]RawPage, len(days))
	failures := make([]*FetchError, len(days))
	// goroutines never return an error: one failed day must not cancel the others.
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, day := range days {
		g.Go(func() error {
			body, err := p.fetchDay(ctx, day)
			if err != nil {
				failures[i] = err
				return nil
			}
			pages[i] = RawPage{Day: day, Body: body}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ok []RawPage
	var failed []*FetchError
	for i := range days {
		if failures[i] != nil {
			failed = append(failed, failures[i])
			continue
		}
		ok = append(ok, pages[i])
	}
	if len(failed) == 0 {
		return ok, nil
	}
	errs := &FetchErrors{Errs: failed}
	log.Printf("[%s] %d of %d days failed: %v", p.format.Name(), len(failed), len(days), errs.Days())
	if p.requireAll {
		return nil, errs
	}
	return ok, errs
}

// fetchDay downloads and decodes the report of day.
func (p *Pipeline) fetchDay(ctx context.Context, day date.Date) (string, *FetchError) {
	// the endpoint carries the session id: never log it.
	resp, err := p.sess.Client().Get(ctx, p.format.Endpoint(p.sess, p.locale, day))
	if err != nil {
		return "", &FetchError{Day: day, Err: err}
	}
	defer resp.Body.Close()
	log.Printf("[%s] GET %s %s", p.format.Name(), day, resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return "", &FetchError{Day: day, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Day: day, Status: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	text, err := decode(body, p.charset)
	if err != nil {
		return "", &FetchError{Day: day, Status: resp.StatusCode, Err: err}
	}
	return text, nil
}

// decode converts body to UTF-8. A UTF-8 body must be valid as is.
func decode(body []byte, charset encoding.Encoding) (string, error) {
	if name, _ := ianaindex.IANA.Name(charset); name == "UTF-8" {
		if !utf8.Valid(body) {
			return "", errors.New("body is not valid UTF-8")
		}
		return strings.TrimPrefix(string(body), "\ufeff"), nil
	}
	out, err := charset.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decoding body: %w", err)
	}
	return string(out), nil
}

// Reshape implements Stages. Rows are stamped with their page day at
// midnight in the locale timezone, and duplicate products of a day are
// dropped, keeping the first.
func (p *Pipeline) Reshape(pages []RawPage) (*Table, error) {
	pages = slices.Clone(pages)
	slices.SortStableFunc(pages, func(a, b RawPage) int { return a.Day.Compare(b.Day) })

	tables := make([]*Table, 0, len(pages))
	for _, page := range pages {
		t, err := p.format.Parse(page, p.locale)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				if perr.Day.IsZero() {
					perr.Day = page.Day
				}
				return nil, perr
			}
			return nil, &ParseError{Day: page.Day, Err: err}
		}
		stamp := page.Day.In(p.loc)
		for i := range t.Rows {
			t.Rows[i].Time = stamp
		}
		tables = append(tables, t)
	}
	return p.dedup(Concat(tables...)), nil
}

// dedup drops rows repeating the (timestamp, key) pair of an earlier row.
func (p *Pipeline) dedup(t *Table) *Table {
	key := p.sourceKey()
	if key == "" {
		return t
	}
	type id struct {
		day int64
		key any
	}
	seen := make(map[id]bool, len(t.Rows))
	rows := t.Rows[:0:0]
	for _, r := range t.Rows {
		v := r.Values[key]
		if blank(v) {
			rows = append(rows, r)
			continue
		}
		k := id{r.Time.Unix(), v}
		if seen[k] {
			log.Printf("[%s] dropping duplicate %s=%v on %s", p.format.Name(), key, v, date.Of(r.Time))
			continue
		}
		seen[k] = true
		rows = append(rows, r)
	}
	t.Rows = rows
	return t
}

// blank reports whether v identifies no product: rows without an
// identifier, such as per-currency cash lines, are never duplicates.
func blank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case float64:
		return math.IsNaN(v)
	}
	return false
}

// sourceKey returns the source column name of the format key.
func (p *Pipeline) sourceKey() string {
	key := p.format.Key()
	if key == "" {
		return ""
	}
	for src, canonical := range p.format.Translation() {
		if canonical == key {
			return src
		}
	}
	return key
}

// Rename implements Stages. Values are not touched and columns absent from
// the translation map keep their name.
func (p *Pipeline) Rename(t *Table) *Table {
	tr := p.format.Translation()
	name := func(c string) string {
		if to, ok := tr[c]; ok {
			return to
		}
		return c
	}
	out := &Table{Columns: make([]string, len(t.Columns)), Rows: make([]Row, len(t.Rows))}
	for i, c := range t.Columns {
		out.Columns[i] = name(c)
	}
	for i, r := range t.Rows {
		values := make(map[string]any, len(r.Values))
		for k, v := range r.Values {
			values[name(k)] = v
		}
		out.Rows[i] = Row{Time: r.Time, Values: values}
	}
	return out
}

// Filter implements Stages.
func (p *Pipeline) Filter(t *Table) *Table {
	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if slices.ContainsFunc(p.filters, func(f Filter) bool { return f(r) }) {
			continue
		}
		out.Rows = append(out.Rows, r.clone())
	}
	if dropped := len(t.Rows) - len(out.Rows); dropped > 0 {
		log.Printf("[%s] filtered out %d rows", p.format.Name(), dropped)
	}
	return out
}

// Validate implements Stages.
func (p *Pipeline) Validate(t *Table) (*Table, error) {
	schema := p.format.Schema()
	if schema == nil {
		return nil, &MisconfiguredSourceError{Source: p.format.Name(), Reason: "no schema"}
	}
	if err := schema.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}
