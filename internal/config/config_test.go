package config

import (
	"os"
	"path/filepath"
	"testing"
)

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestLoad_FullConfig(t *testing.T) {
	content := `
server:
  port: 9000
  cors_origins: ["http://localhost:4000"]
data:
  reduced_space: "/data/reduced.csv"
  loadings: "/data/loadings.csv.gz"
  explained_variance: "/data/variance.csv"
  groupby: "/data/groups.csv"
  data_type: splicing
viz:
  x_pc: pc_2
  y_pc: pc_3
  n_vectors: 10
  distance: L2
  order: [iPSC, NPC, MN]
figure:
  width: 1200
  palette: categorical
cache:
  figure_size_mb: 64
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Data.ReducedSpace != "/data/reduced.csv" {
		t.Errorf("unexpected reduced_space: %s", cfg.Data.ReducedSpace)
	}
	if cfg.Data.DataType != "splicing" {
		t.Errorf("unexpected data_type: %s", cfg.Data.DataType)
	}
	if cfg.Viz.XPC != "pc_2" || cfg.Viz.YPC != "pc_3" {
		t.Errorf("unexpected pcs: %s, %s", cfg.Viz.XPC, cfg.Viz.YPC)
	}
	if cfg.Viz.NVectors != 10 {
		t.Errorf("expected 10 vectors, got %d", cfg.Viz.NVectors)
	}
	if cfg.Viz.Distance != "L2" {
		t.Errorf("unexpected distance: %s", cfg.Viz.Distance)
	}
	if len(cfg.Viz.Order) != 3 || cfg.Viz.Order[0] != "iPSC" {
		t.Errorf("unexpected order: %v", cfg.Viz.Order)
	}
	if cfg.Figure.Width != 1200 {
		t.Errorf("expected width 1200, got %d", cfg.Figure.Width)
	}
	if cfg.Figure.Palette != "categorical" {
		t.Errorf("unexpected palette: %s", cfg.Figure.Palette)
	}
	if cfg.Cache.FigureSizeMB != 64 {
		t.Errorf("expected cache size 64, got %d", cfg.Cache.FigureSizeMB)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
data:
  reduced_space: "/data/reduced.csv"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Viz.XPC != "pc_1" || cfg.Viz.YPC != "pc_2" {
		t.Errorf("expected default pcs, got %s, %s", cfg.Viz.XPC, cfg.Viz.YPC)
	}
	if cfg.Viz.NVectors != 20 {
		t.Errorf("expected default 20 vectors, got %d", cfg.Viz.NVectors)
	}
	if cfg.Viz.Distance != "L1" {
		t.Errorf("expected default distance L1, got %s", cfg.Viz.Distance)
	}
	if cfg.Viz.NTopPCFeatures != 50 {
		t.Errorf("expected default 50 top features, got %d", cfg.Viz.NTopPCFeatures)
	}
	if cfg.Viz.MaxCharWidth != 30 {
		t.Errorf("expected default max char width 30, got %d", cfg.Viz.MaxCharWidth)
	}
	if cfg.Viz.ScaleByVariance != nil {
		t.Errorf("expected scale_by_variance unset, got %v", *cfg.Viz.ScaleByVariance)
	}
	if cfg.Figure.Palette != "husl" {
		t.Errorf("expected default palette husl, got %s", cfg.Figure.Palette)
	}
	if cfg.Cache.FigureSizeMB != 128 {
		t.Errorf("expected default cache size 128, got %d", cfg.Cache.FigureSizeMB)
	}
}

func TestLoad_ScaleByVarianceFalse(t *testing.T) {
	content := `
viz:
  scale_by_variance: false
`
	cfg := loadFromString(t, content)

	if cfg.Viz.ScaleByVariance == nil || *cfg.Viz.ScaleByVariance {
		t.Error("expected scale_by_variance false")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}
