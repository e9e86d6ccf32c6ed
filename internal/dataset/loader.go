// Package dataset loads the flat tables a decomposition pipeline
// exports: the reduced space, loadings, explained variance, group
// assignments, and raw measurement tables. Files are CSV, optionally
// gzip-compressed (.gz), all with a header row.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/decompviz/server/internal/table"
)

type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		g.file.Close()
		return err
	}
	return g.file.Close()
}

func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dataset: open %s: %w", path, err)
		}
		return &gzipReadCloser{Reader: zr, file: f}, nil
	}
	return f, nil
}

func readAll(path string) ([][]string, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %s is empty", path)
	}
	return records, nil
}

// LoadFrame reads a labeled numeric table. The header names the
// columns (the first header cell labels the index and is ignored);
// each data row starts with the row key.
func LoadFrame(path string) (*table.Frame, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset: %s has no value columns", path)
	}
	colKeys := header[1:]

	rowKeys := make([]string, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: %s row %d has %d fields, want %d", path, i+2, len(rec), len(header))
		}
		values := make([]float64, len(colKeys))
		for j, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: %s row %d column %q: %w", path, i+2, colKeys[j], err)
			}
			values[j] = v
		}
		rowKeys = append(rowKeys, rec[0])
		rows = append(rows, values)
	}

	f, err := table.NewFrame(rowKeys, colKeys, rows)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return f, nil
}

// LoadSeries reads a two-column key,value table with a header row.
func LoadSeries(path string) (*table.Series, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(records)-1)
	values := make([]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("dataset: %s row %d has %d fields, want 2", path, i+2, len(rec))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: %s row %d: %w", path, i+2, err)
		}
		keys = append(keys, rec[0])
		values = append(values, v)
	}
	s, err := table.NewSeries(keys, values)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return s, nil
}

// LoadMetadata reads a string-valued table keyed by sample, returning
// column -> sample -> value for tooltip enrichment.
func LoadMetadata(path string) (map[string]map[string]string, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset: %s has no metadata columns", path)
	}
	out := make(map[string]map[string]string, len(header)-1)
	for _, col := range header[1:] {
		out[col] = make(map[string]string, len(records)-1)
	}
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: %s row %d has %d fields, want %d", path, i+2, len(rec), len(header))
		}
		for j, col := range header[1:] {
			out[col][rec[0]] = rec[j+1]
		}
	}
	return out, nil
}

// LoadMapping reads a two-column key,value string table with a header
// row, e.g. sample-to-group assignments or feature renames.
func LoadMapping(path string) (map[string]string, error) {
	records, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("dataset: %s row %d has %d fields, want 2", path, i+2, len(rec))
		}
		out[rec[0]] = rec[1]
	}
	return out, nil
}
