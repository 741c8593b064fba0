package store

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// cell is the JSON form of a table value. Floats and times are tagged so
// that the kind survives a round trip; NaN is a float without a value.
type cell struct {
	S *string    `json:"s,omitempty"`
	F *float64   `json:"f,omitempty"`
	N bool       `json:"nan,omitempty"`
	T *time.Time `json:"t,omitempty"`
}

func encodeCells(values map[string]any) (string, error) {
	cells := make(map[string]cell, len(values))
	for k, v := range values {
		switch v := v.(type) {
		case nil:
			cells[k] = cell{}
		case string:
			cells[k] = cell{S: &v}
		case float64:
			if math.IsNaN(v) {
				cells[k] = cell{N: true}
			} else {
				cells[k] = cell{F: &v}
			}
		case time.Time:
			cells[k] = cell{T: &v}
		default:
			return "", fmt.Errorf("column %s: unsupported value %T", k, v)
		}
	}
	b, err := json.Marshal(cells)
	return string(b), err
}

func decodeCells(data string, loc *time.Location) (map[string]any, error) {
	var cells map[string]cell
	if err := json.Unmarshal([]byte(data), &cells); err != nil {
		return nil, fmt.Errorf("decoding cells: %w", err)
	}
	values := make(map[string]any, len(cells))
	for k, c := range cells {
		switch {
		case c.S != nil:
			values[k] = *c.S
		case c.F != nil:
			values[k] = *c.F
		case c.N:
			values[k] = math.NaN()
		case c.T != nil:
			values[k] = c.T.In(loc)
		default:
			values[k] = nil
		}
	}
	return values, nil
}
