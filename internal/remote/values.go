package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValuesOf converts a record into column assignments using its json tags.
// Fields tagged omitempty and left nil are not assigned.
func ValuesOf(record any) (Values, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("remote: encode values: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values Values
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("remote: encode values: %w", err)
	}
	return values, nil
}

// Columns returns the assigned column names in a stable order.
func (v Values) Columns() []string {
	cols := make([]string, 0, len(v))
	for col := range v {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Without returns a copy of v minus the named columns.
func (v Values) Without(columns ...string) Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	for _, col := range columns {
		delete(out, col)
	}
	return out
}

// DecodeRow decodes a JSON object into T. Columns T does not declare are
// ignored and declared fields absent from the object stay zero.
func DecodeRow[T any](data []byte) (T, error) {
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return row, fmt.Errorf("remote: decode row: %w", err)
	}
	return row, nil
}

// DecodeMap decodes a column map into T.
func DecodeMap[T any](m map[string]any) (T, error) {
	data, err := json.Marshal(m)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("remote: decode row: %w", err)
	}
	return DecodeRow[T](data)
}
