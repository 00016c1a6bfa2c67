package vnstock

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/segmentio/encoding/json"
)

// Frame is an in-memory table returned by one upstream call.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"data"`
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// splitFrame is the pandas "split" orientation.
type splitFrame struct {
	Columns []string `json:"columns"`
	Index   []any    `json:"index,omitempty"`
	Data    [][]any  `json:"data"`
}

// DecodeFrame parses an upstream body in either split or records orientation.
func DecodeFrame(body []byte) (*Frame, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Frame{Columns: []string{}, Rows: [][]any{}}, nil
	}

	switch trimmed[0] {
	case '{':
		return decodeSplit(trimmed)
	case '[':
		return decodeRecords(trimmed)
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrDecode, trimmed[0])
	}
}

func decodeSplit(body []byte) (*Frame, error) {
	var sf splitFrame
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if sf.Columns == nil {
		return nil, fmt.Errorf("%w: object without columns", ErrDecode)
	}

	f := &Frame{Columns: sf.Columns, Rows: make([][]any, 0, len(sf.Data))}
	for i, raw := range sf.Data {
		if len(raw) != len(sf.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrDecode, i, len(raw), len(sf.Columns))
		}
		row := make([]any, len(raw))
		for j, v := range raw {
			row[j] = normalize(v)
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func decodeRecords(body []byte) (*Frame, error) {
	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	if columns == nil {
		columns = []string{}
	}

	f := &Frame{Columns: columns, Rows: make([][]any, 0, len(records))}
	for _, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = normalize(rec[c])
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// normalize converts decoded JSON numbers to int64 or float64.
func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
