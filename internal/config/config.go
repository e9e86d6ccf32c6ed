// Package config handles configuration loading for the decomposition
// visualization server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Viz    VizConfig    `yaml:"viz"`
	Figure FigureConfig `yaml:"figure"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig names the decomposition output tables on disk. Paths may
// point at plain CSV or gzip-compressed CSV.
type DataConfig struct {
	ReducedSpace      string `yaml:"reduced_space"`
	Loadings          string `yaml:"loadings"`
	ExplainedVariance string `yaml:"explained_variance"`
	GroupBy           string `yaml:"groupby"`
	Singles           string `yaml:"singles"`
	Pooled            string `yaml:"pooled"`
	Outliers          string `yaml:"outliers"`
	FeatureNames      string `yaml:"feature_names"`
	Metadata          string `yaml:"metadata"`
	DataType          string `yaml:"data_type"`
}

// VizConfig contains the view derivation settings.
type VizConfig struct {
	XPC             string   `yaml:"x_pc"`
	YPC             string   `yaml:"y_pc"`
	NVectors        int      `yaml:"n_vectors"`
	Distance        string   `yaml:"distance"`
	NTopPCFeatures  int      `yaml:"n_top_pc_features"`
	ScaleByVariance *bool    `yaml:"scale_by_variance"`
	MaxCharWidth    int      `yaml:"max_char_width"`
	Order           []string `yaml:"order"`
	Featurewise     bool     `yaml:"featurewise"`
}

// FigureConfig contains rendering settings.
type FigureConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	MarkerSize float64 `yaml:"marker_size"`
	Palette    string  `yaml:"palette"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	FigureSizeMB     int `yaml:"figure_size_mb"`
	FigureTTLMinutes int `yaml:"figure_ttl_minutes"`
	QuerySize        int `yaml:"query_size"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			ReducedSpace: "./data/reduced_space.csv",
			Loadings:     "./data/loadings.csv",
			DataType:     "expression",
		},
		Viz: VizConfig{
			XPC:            "pc_1",
			YPC:            "pc_2",
			NVectors:       20,
			Distance:       "L1",
			NTopPCFeatures: 50,
			MaxCharWidth:   30,
		},
		Figure: FigureConfig{
			Width:      900,
			Height:     600,
			MarkerSize: 10,
			Palette:    "husl",
		},
		Cache: CacheConfig{
			FigureSizeMB:     128,
			FigureTTLMinutes: 10,
			QuerySize:        1000,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Data.ReducedSpace == "" {
		cfg.Data.ReducedSpace = defaults.Data.ReducedSpace
	}
	if cfg.Data.Loadings == "" {
		cfg.Data.Loadings = defaults.Data.Loadings
	}
	if cfg.Data.DataType == "" {
		cfg.Data.DataType = defaults.Data.DataType
	}
	if cfg.Viz.XPC == "" {
		cfg.Viz.XPC = defaults.Viz.XPC
	}
	if cfg.Viz.YPC == "" {
		cfg.Viz.YPC = defaults.Viz.YPC
	}
	if cfg.Viz.NVectors == 0 {
		cfg.Viz.NVectors = defaults.Viz.NVectors
	}
	if cfg.Viz.Distance == "" {
		cfg.Viz.Distance = defaults.Viz.Distance
	}
	if cfg.Viz.NTopPCFeatures == 0 {
		cfg.Viz.NTopPCFeatures = defaults.Viz.NTopPCFeatures
	}
	if cfg.Viz.MaxCharWidth == 0 {
		cfg.Viz.MaxCharWidth = defaults.Viz.MaxCharWidth
	}
	if cfg.Figure.Width == 0 {
		cfg.Figure.Width = defaults.Figure.Width
	}
	if cfg.Figure.Height == 0 {
		cfg.Figure.Height = defaults.Figure.Height
	}
	if cfg.Figure.MarkerSize == 0 {
		cfg.Figure.MarkerSize = defaults.Figure.MarkerSize
	}
	if cfg.Figure.Palette == "" {
		cfg.Figure.Palette = defaults.Figure.Palette
	}
	if cfg.Cache.FigureSizeMB == 0 {
		cfg.Cache.FigureSizeMB = defaults.Cache.FigureSizeMB
	}
	if cfg.Cache.FigureTTLMinutes == 0 {
		cfg.Cache.FigureTTLMinutes = defaults.Cache.FigureTTLMinutes
	}
	if cfg.Cache.QuerySize == 0 {
		cfg.Cache.QuerySize = defaults.Cache.QuerySize
	}
}
