package renderer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/freelectron/degiro"
)

// WriteCSV writes t as CSV: a header line, then one line per row, the index
// first in RFC 3339 form. Floats use a '.' separator and NaN is empty.
func WriteCSV(w io.Writer, t *degiro.Table, index string) error {
	cw := csv.NewWriter(w)
	header := append([]string{index}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		record := make([]string, 0, len(header))
		record = append(record, r.Time.Format(time.RFC3339))
		for _, c := range t.Columns {
			record = append(record, csvCell(r.Values[c]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// WriteJSONL writes one JSON object per row, keys in column order after the
// index. NaN is written as null.
func WriteJSONL(w io.Writer, t *degiro.Table, index string) error {
	for _, r := range t.Rows {
		var o objectWriter
		o.Append(index, r.Time.Format(time.RFC3339))
		for _, c := range t.Columns {
			v := r.Values[c]
			if f, ok := v.(float64); ok && math.IsNaN(f) {
				v = nil
			}
			o.Append(c, v)
		}
		line, err := o.MarshalJSON()
		if err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// objectWriter builds a JSON object with a fixed field order.
// Its zero value is ready to use.
type objectWriter struct {
	bytes.Buffer
	err error
}

// Append adds a key and its json.Marshal value.
func (w *objectWriter) Append(key string, value any) *objectWriter {
	if w.err != nil {
		return w
	}
	valBytes, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	if w.Len() > 0 {
		w.WriteByte(',')
	}
	keyBytes, _ := json.Marshal(key)
	w.Write(keyBytes)
	w.WriteByte(':')
	w.Write(valBytes)
	return w
}

func (w *objectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := make([]byte, 0, w.Len()+2)
	out = append(out, '{')
	out = append(out, w.Bytes()...)
	return append(out, '}'), nil
}
