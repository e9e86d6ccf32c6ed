package table

import (
	"reflect"
	"testing"
)

func TestSeries(t *testing.T) {
	s, err := NewSeries([]string{"pc_1", "pc_2"}, []float64{0.4, 0.2})
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("expected length 2, got %d", s.Len())
	}
	if !reflect.DeepEqual(s.Keys(), []string{"pc_1", "pc_2"}) {
		t.Errorf("unexpected keys: %v", s.Keys())
	}
	if v, ok := s.At("pc_2"); !ok || v != 0.2 {
		t.Errorf("At(pc_2) = %g, %v", v, ok)
	}
	if _, ok := s.At("pc_3"); ok {
		t.Error("expected miss for unknown key")
	}
	if !s.Has("pc_1") || s.Has("pc_3") {
		t.Error("Has misreports membership")
	}
}

func TestSeriesErrors(t *testing.T) {
	if _, err := NewSeries([]string{"a", "b"}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if _, err := NewSeries([]string{"a", "a"}, []float64{1, 2}); err == nil {
		t.Error("expected error for duplicate key")
	}
}

func TestSeriesCopiesAreIndependent(t *testing.T) {
	s, err := NewSeries([]string{"a"}, []float64{1})
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	s.Keys()[0] = "mutated"
	s.Values()[0] = 99
	if v, _ := s.At("a"); v != 1 {
		t.Errorf("series mutated through returned slice: %g", v)
	}
}

func TestFrame(t *testing.T) {
	f, err := NewFrame(
		[]string{"s1", "s2"},
		[]string{"pc_1", "pc_2", "pc_3"},
		[][]float64{{1, 2, 3}, {4, 5, 6}},
	)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	if f.NRows() != 2 || f.NCols() != 3 {
		t.Errorf("unexpected shape: %dx%d", f.NRows(), f.NCols())
	}
	if v, ok := f.At("s2", "pc_2"); !ok || v != 5 {
		t.Errorf("At(s2, pc_2) = %g, %v", v, ok)
	}
	if _, ok := f.At("s3", "pc_1"); ok {
		t.Error("expected miss for unknown row")
	}
	if _, ok := f.At("s1", "pc_9"); ok {
		t.Error("expected miss for unknown column")
	}
	if !f.HasRow("s1") || f.HasRow("s3") {
		t.Error("HasRow misreports membership")
	}
	if !f.HasCol("pc_3") || f.HasCol("pc_9") {
		t.Error("HasCol misreports membership")
	}
}

func TestFrameColumnAndRow(t *testing.T) {
	f, err := NewFrame(
		[]string{"s1", "s2"},
		[]string{"pc_1", "pc_2"},
		[][]float64{{1, 2}, {3, 4}},
	)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	col, ok := f.Column("pc_2")
	if !ok {
		t.Fatal("expected pc_2 column")
	}
	if !reflect.DeepEqual(col.Keys(), []string{"s1", "s2"}) {
		t.Errorf("column keys: %v", col.Keys())
	}
	if !reflect.DeepEqual(col.Values(), []float64{2, 4}) {
		t.Errorf("column values: %v", col.Values())
	}

	row, ok := f.Row("s2")
	if !ok {
		t.Fatal("expected s2 row")
	}
	if !reflect.DeepEqual(row.Values(), []float64{3, 4}) {
		t.Errorf("row values: %v", row.Values())
	}

	if _, ok := f.Column("pc_9"); ok {
		t.Error("expected miss for unknown column")
	}
	if _, ok := f.Row("s9"); ok {
		t.Error("expected miss for unknown row")
	}
}

func TestFrameErrors(t *testing.T) {
	cases := map[string]struct {
		rowKeys []string
		colKeys []string
		rows    [][]float64
	}{
		"rowCountMismatch": {[]string{"a", "b"}, []string{"x"}, [][]float64{{1}}},
		"raggedRow":        {[]string{"a"}, []string{"x", "y"}, [][]float64{{1}}},
		"duplicateRowKey":  {[]string{"a", "a"}, []string{"x"}, [][]float64{{1}, {2}}},
		"duplicateColKey":  {[]string{"a"}, []string{"x", "x"}, [][]float64{{1, 2}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewFrame(tc.rowKeys, tc.colKeys, tc.rows); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}
