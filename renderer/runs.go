package renderer

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/store"
)

// RunsMarkdown lists stored runs, most recent first as given.
func RunsMarkdown(runs []store.Run) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf).H1("Runs")
	if len(runs) == 0 {
		doc.PlainText("No runs saved yet.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignLeft, md.AlignLeft},
		Header:    []string{"ID", "Source", "Range", "Rows", "Missing days", "Created"},
		Rows:      [][]string{},
	}
	for _, r := range runs {
		missing := make([]string, len(r.FailedDays))
		for i, d := range r.FailedDays {
			missing[i] = d.String()
		}
		table.Rows = append(table.Rows, []string{
			r.ID,
			r.Source,
			r.Range.String(),
			strconv.Itoa(r.Rows),
			strings.Join(missing, ", "),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	doc.Table(table)
	return doc.String()
}

// SchemaMarkdown documents a source: its index and, for each column, its
// kind and the report header it is renamed from.
func SchemaMarkdown(s *degiro.Schema, tr degiro.TranslationMap) string {
	source := make(map[string]string, len(tr))
	for from, to := range tr {
		source[to] = from
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf).H1("Schema " + s.Name)
	doc.PlainText(fmt.Sprintf("Index `%s` in %s.", s.Index.Name, s.Index.Location))

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"Column", "Kind", "Nullable", "Report header"},
		Rows:      [][]string{},
	}
	for _, c := range s.Columns {
		nullable := ""
		if c.Nullable {
			nullable = "yes"
		}
		table.Rows = append(table.Rows, []string{c.Name, c.Kind.String(), nullable, source[c.Name]})
	}
	doc.Table(table)

	// report columns dropped by the rename
	var extra []string
	for from, to := range tr {
		if _, ok := s.Lookup(to); !ok {
			extra = append(extra, from)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		doc.H2("Unchecked columns")
		doc.BulletList(extra...)
	}
	return doc.String()
}
