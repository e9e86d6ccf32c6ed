// Package api provides HTTP handlers for the decomposition
// visualization server.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/decompviz/server/internal/cache"
	"github.com/decompviz/server/internal/decomp"
	"github.com/decompviz/server/internal/render"
	"github.com/decompviz/server/pkg/colormap"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Renderer    *render.Renderer
	Cache       *cache.Manager
	CORSOrigins []string
	// Metadata enriches interactive tooltips: column -> sample -> value.
	Metadata map[string]map[string]string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/metadata", metadataHandler(cfg))
	r.Get("/api/top_features", topFeaturesHandler(cfg))
	r.Get("/api/magnitudes", magnitudesHandler(cfg))

	r.Get("/plot/samples.png", samplesHandler(cfg))
	r.Get("/plot/figure.png", figureHandler(cfg))
	r.Get("/plot/loadings/{pc}.png", loadingsHandler(cfg))
	r.Get("/plot/variance.png", varianceHandler(cfg))
	r.Get("/plot/violins.png", violinsHandler(cfg))

	r.Get("/interactive", interactiveHandler(cfg))

	return r
}

// writeRenderError maps the render error taxonomy onto status codes:
// missing optional data is 404 (retry once the data exists), bad
// configuration is 400, anything else is 500.
func writeRenderError(w http.ResponseWriter, err error) {
	var missing *decomp.MissingDataError
	if errors.As(err, &missing) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var config *decomp.ConfigurationError
	if errors.As(err, &config) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func servePNG(w http.ResponseWriter, cfg RouterConfig, key string, renderFn func() ([]byte, error)) {
	if data, ok := cfg.Cache.GetFigure(key); ok {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
		return
	}
	data, err := renderFn()
	if err != nil {
		writeRenderError(w, err)
		return
	}
	cfg.Cache.SetFigure(key, data)
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// boolParam parses a query flag, returning def when absent or invalid.
func boolParam(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func sampleOptionsFromQuery(r *http.Request) render.SampleOptions {
	opts := render.DefaultSampleOptions()
	opts.Title = r.URL.Query().Get("title")
	opts.ShowPointLabels = boolParam(r, "point_labels", false)
	opts.ShowVectors = boolParam(r, "vectors", true)
	opts.ShowVectorLabels = boolParam(r, "vector_labels", true)
	opts.Legend = boolParam(r, "legend", true)
	if ms, err := strconv.ParseFloat(r.URL.Query().Get("markersize"), 64); err == nil && ms > 0 {
		opts.MarkerSize = ms
	}
	return opts
}

func sampleOptionsKey(opts render.SampleOptions) map[string]string {
	return map[string]string{
		"title":         opts.Title,
		"point_labels":  strconv.FormatBool(opts.ShowPointLabels),
		"vectors":       strconv.FormatBool(opts.ShowVectors),
		"vector_labels": strconv.FormatBool(opts.ShowVectorLabels),
		"legend":        strconv.FormatBool(opts.Legend),
		"markersize":    strconv.FormatFloat(opts.MarkerSize, 'g', -1, 64),
	}
}

type groupInfo struct {
	Label    string `json:"label"`
	Color    string `json:"color"`
	Marker   string `json:"marker"`
	NSamples int    `json:"n_samples"`
}

type metadataResponse struct {
	XPC        string      `json:"x_pc"`
	YPC        string      `json:"y_pc"`
	Dimensions []string    `json:"dimensions"`
	DataType   string      `json:"data_type"`
	NSamples   int         `json:"n_samples"`
	NFeatures  int         `json:"n_features"`
	Groups     []groupInfo `json:"groups"`
}

func metadataHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := cfg.Renderer.View()
		resp := metadataResponse{
			XPC:        v.XPC(),
			YPC:        v.YPC(),
			Dimensions: v.Dimensions(),
			DataType:   v.DataType(),
			NSamples:   len(v.Samples()),
			NFeatures:  len(v.Ranked()),
		}
		for _, g := range v.Groups() {
			resp.Groups = append(resp.Groups, groupInfo{
				Label:    g.Label,
				Color:    colormap.Hex(v.Color(g.Label)),
				Marker:   string(v.Marker(g.Label)),
				NSamples: len(g.Samples),
			})
		}
		writeJSON(w, resp)
	}
}

type topFeaturesResponse struct {
	PC       string    `json:"pc"`
	Labels   []string  `json:"labels"`
	Loadings []float64 `json:"loadings"`
}

func topFeaturesHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := cfg.Renderer.View()
		pc := r.URL.Query().Get("pc")
		if pc == "" {
			pc = v.XPC()
		}
		key := cache.FigureKey("top_features", map[string]string{"pc": pc})
		if data, ok := cfg.Cache.GetQuery(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
			return
		}
		top, ok := v.ComponentTop(pc)
		if !ok {
			http.Error(w, "dimension not displayed: "+pc, http.StatusBadRequest)
			return
		}
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(topFeaturesResponse{PC: pc, Labels: top.Labels, Loadings: top.Loadings})
		cfg.Cache.SetQuery(key, buf.Bytes())
		w.Header().Set("Content-Type", "application/json")
		w.Write(buf.Bytes())
	}
}

type magnitudeItem struct {
	Feature   string  `json:"feature"`
	Display   string  `json:"display"`
	Magnitude float64 `json:"magnitude"`
}

func magnitudesHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := cfg.Renderer.View()
		n, err := strconv.Atoi(r.URL.Query().Get("n"))
		if err != nil || n <= 0 {
			n = v.NVectors()
		}
		ranked := v.Ranked()
		if n > len(ranked) {
			n = len(ranked)
		}
		out := make([]magnitudeItem, 0, n)
		for _, rf := range ranked[:n] {
			out = append(out, magnitudeItem{
				Feature:   rf.Feature,
				Display:   v.DisplayName(rf.Feature),
				Magnitude: rf.Magnitude,
			})
		}
		writeJSON(w, out)
	}
}

func samplesHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := sampleOptionsFromQuery(r)
		key := cache.FigureKey("samples", sampleOptionsKey(opts))
		servePNG(w, cfg, key, func() ([]byte, error) {
			return cfg.Renderer.Samples(opts)
		})
	}
}

func figureHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := sampleOptionsFromQuery(r)
		key := cache.FigureKey("figure", sampleOptionsKey(opts))
		servePNG(w, cfg, key, func() ([]byte, error) {
			return cfg.Renderer.Figure(opts)
		})
	}
}

func loadingsHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc := chi.URLParam(r, "pc")
		key := cache.FigureKey("loadings", map[string]string{"pc": pc})
		servePNG(w, cfg, key, func() ([]byte, error) {
			return cfg.Renderer.Loadings(pc)
		})
	}
}

func varianceHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("title")
		key := cache.FigureKey("variance", map[string]string{"title": title})
		servePNG(w, cfg, key, func() ([]byte, error) {
			return cfg.Renderer.ExplainedVariance(title)
		})
	}
}

func violinsHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := cache.FigureKey("violins", nil)
		servePNG(w, cfg, key, func() ([]byte, error) {
			return cfg.Renderer.Violins()
		})
	}
}

func interactiveHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		title := r.URL.Query().Get("title")
		if err := cfg.Renderer.Interactive(w, cfg.Metadata, title); err != nil {
			writeRenderError(w, err)
		}
	}
}
