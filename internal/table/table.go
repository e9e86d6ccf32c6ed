// Package table provides ordered, label-indexed numeric tables.
//
// A decomposition pipeline hands this server flat tables keyed by
// sample and feature identifiers. Row and column order is significant
// (discovery order drives color assignment and tie-breaking), so both
// types keep their keys in insertion order next to a lookup index.
package table

import "fmt"

// Series is an ordered mapping from string keys to float64 values.
type Series struct {
	keys   []string
	values []float64
	index  map[string]int
}

// NewSeries creates a series from parallel key and value slices.
func NewSeries(keys []string, values []float64) (*Series, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("series: %d keys but %d values", len(keys), len(values))
	}
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := index[k]; ok {
			return nil, fmt.Errorf("series: duplicate key %q", k)
		}
		index[k] = i
	}
	return &Series{
		keys:   append([]string(nil), keys...),
		values: append([]float64(nil), values...),
		index:  index,
	}, nil
}

// Len returns the number of entries.
func (s *Series) Len() int { return len(s.keys) }

// Keys returns the keys in order. The slice is a copy.
func (s *Series) Keys() []string { return append([]string(nil), s.keys...) }

// Values returns the values in key order. The slice is a copy.
func (s *Series) Values() []float64 { return append([]float64(nil), s.values...) }

// At returns the value for key.
func (s *Series) At(key string) (float64, bool) {
	i, ok := s.index[key]
	if !ok {
		return 0, false
	}
	return s.values[i], true
}

// Has reports whether key is present.
func (s *Series) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Frame is a 2D table with ordered string labels on both axes.
// Data is stored row-major.
type Frame struct {
	rowKeys []string
	colKeys []string
	rowIdx  map[string]int
	colIdx  map[string]int
	data    []float64
}

// NewFrame creates a frame from row keys, column keys, and row-major data.
func NewFrame(rowKeys, colKeys []string, rows [][]float64) (*Frame, error) {
	if len(rows) != len(rowKeys) {
		return nil, fmt.Errorf("frame: %d row keys but %d rows", len(rowKeys), len(rows))
	}
	rowIdx := make(map[string]int, len(rowKeys))
	for i, k := range rowKeys {
		if _, ok := rowIdx[k]; ok {
			return nil, fmt.Errorf("frame: duplicate row key %q", k)
		}
		rowIdx[k] = i
	}
	colIdx := make(map[string]int, len(colKeys))
	for i, k := range colKeys {
		if _, ok := colIdx[k]; ok {
			return nil, fmt.Errorf("frame: duplicate column key %q", k)
		}
		colIdx[k] = i
	}
	data := make([]float64, 0, len(rowKeys)*len(colKeys))
	for i, row := range rows {
		if len(row) != len(colKeys) {
			return nil, fmt.Errorf("frame: row %q has %d values, want %d", rowKeys[i], len(row), len(colKeys))
		}
		data = append(data, row...)
	}
	return &Frame{
		rowKeys: append([]string(nil), rowKeys...),
		colKeys: append([]string(nil), colKeys...),
		rowIdx:  rowIdx,
		colIdx:  colIdx,
		data:    data,
	}, nil
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return len(f.rowKeys) }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.colKeys) }

// RowKeys returns the row keys in order. The slice is a copy.
func (f *Frame) RowKeys() []string { return append([]string(nil), f.rowKeys...) }

// ColKeys returns the column keys in order. The slice is a copy.
func (f *Frame) ColKeys() []string { return append([]string(nil), f.colKeys...) }

// HasRow reports whether a row key exists.
func (f *Frame) HasRow(key string) bool {
	_, ok := f.rowIdx[key]
	return ok
}

// HasCol reports whether a column key exists.
func (f *Frame) HasCol(key string) bool {
	_, ok := f.colIdx[key]
	return ok
}

// At returns the value at (row, col).
func (f *Frame) At(row, col string) (float64, bool) {
	i, ok := f.rowIdx[row]
	if !ok {
		return 0, false
	}
	j, ok := f.colIdx[col]
	if !ok {
		return 0, false
	}
	return f.data[i*len(f.colKeys)+j], true
}

// Column returns one column as a series keyed by row.
func (f *Frame) Column(col string) (*Series, bool) {
	j, ok := f.colIdx[col]
	if !ok {
		return nil, false
	}
	values := make([]float64, len(f.rowKeys))
	for i := range f.rowKeys {
		values[i] = f.data[i*len(f.colKeys)+j]
	}
	s, err := NewSeries(f.rowKeys, values)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Row returns one row as a series keyed by column.
func (f *Frame) Row(row string) (*Series, bool) {
	i, ok := f.rowIdx[row]
	if !ok {
		return nil, false
	}
	values := make([]float64, len(f.colKeys))
	copy(values, f.data[i*len(f.colKeys):(i+1)*len(f.colKeys)])
	s, err := NewSeries(f.colKeys, values)
	if err != nil {
		return nil, false
	}
	return s, true
}
