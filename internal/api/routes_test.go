package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/decompviz/server/internal/cache"
	"github.com/decompviz/server/internal/decomp"
	"github.com/decompviz/server/internal/render"
	"github.com/decompviz/server/internal/table"
)

func testRouter(t *testing.T, withVariance, withSingles bool) *chiRouter {
	t.Helper()

	reduced, err := table.NewFrame(
		[]string{"s1", "s2", "s3"},
		[]string{"pc_1", "pc_2"},
		[][]float64{{1, 0.5}, {-0.5, 1}, {-1, -1}},
	)
	if err != nil {
		t.Fatalf("reduced: %v", err)
	}
	loadings, err := table.NewFrame(
		[]string{"GENE_A", "GENE_B", "GENE_C"},
		[]string{"pc_1", "pc_2"},
		[][]float64{{0.8, 0.1}, {-0.6, 0.5}, {0.2, -0.9}},
	)
	if err != nil {
		t.Fatalf("loadings: %v", err)
	}

	cfg := decomp.Config{
		ReducedSpace: reduced,
		Loadings:     loadings,
		GroupBy:      map[string]string{"s1": "NPC", "s2": "iPSC", "s3": "NPC"},
	}
	if withVariance {
		variance, err := table.NewSeries([]string{"pc_1", "pc_2"}, []float64{0.5, 0.3})
		if err != nil {
			t.Fatalf("variance: %v", err)
		}
		cfg.ExplainedVariance = variance
	}
	if withSingles {
		singles, err := table.NewFrame(
			[]string{"s1", "s2", "s3"},
			[]string{"GENE_A", "GENE_B", "GENE_C"},
			[][]float64{{1, 2, 3}, {2, 1, 4}, {3, 3, 1}},
		)
		if err != nil {
			t.Fatalf("singles: %v", err)
		}
		cfg.Singles = singles
	}

	view, err := decomp.New(cfg)
	if err != nil {
		t.Fatalf("failed to derive view: %v", err)
	}

	manager, err := cache.NewManager(cache.Config{
		FigureCacheSizeMB: 16,
		FigureTTL:         time.Minute,
		QueryCacheSize:    10,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return &chiRouter{NewRouter(RouterConfig{
		Renderer: render.New(view, render.Config{Width: 300, Height: 240}),
		Cache:    manager,
		Metadata: map[string]map[string]string{"batch": {"s1": "b1"}},
	})}
}

// chiRouter wraps the mux so tests read as plain GETs.
type chiRouter struct {
	handler http.Handler
}

func (c *chiRouter) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := testRouter(t, false, false)
	rec := r.get(t, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetadataEndpoint(t *testing.T) {
	r := testRouter(t, true, false)
	rec := r.get(t, "/api/metadata")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var resp metadataResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.XPC != "pc_1" || resp.YPC != "pc_2" {
		t.Errorf("unexpected dimensions: %s, %s", resp.XPC, resp.YPC)
	}
	if resp.NSamples != 3 || resp.NFeatures != 3 {
		t.Errorf("unexpected counts: %d samples, %d features", resp.NSamples, resp.NFeatures)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(resp.Groups))
	}
	if resp.Groups[0].Label != "NPC" || resp.Groups[0].NSamples != 2 {
		t.Errorf("unexpected first group: %+v", resp.Groups[0])
	}
	if !strings.HasPrefix(resp.Groups[0].Color, "#") {
		t.Errorf("expected hex color, got %q", resp.Groups[0].Color)
	}
}

func TestTopFeaturesEndpoint(t *testing.T) {
	r := testRouter(t, false, false)

	rec := r.get(t, "/api/top_features?pc=pc_2")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var resp topFeaturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PC != "pc_2" || len(resp.Labels) != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
	for i := 1; i < len(resp.Loadings); i++ {
		if resp.Loadings[i] < resp.Loadings[i-1] {
			t.Fatalf("expected ascending loadings, got %v", resp.Loadings)
		}
	}

	// Cached second hit must match the first byte for byte.
	rec2 := r.get(t, "/api/top_features?pc=pc_2")
	var resp2 topFeaturesResponse
	if err := json.NewDecoder(rec2.Body).Decode(&resp2); err != nil {
		t.Fatalf("failed to decode cached response: %v", err)
	}
	if resp2.PC != resp.PC || len(resp2.Labels) != len(resp.Labels) {
		t.Errorf("cached response differs: %+v vs %+v", resp2, resp)
	}

	if rec := r.get(t, "/api/top_features?pc=pc_9"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for undisplayed dimension, got %d", rec.Code)
	}
}

func TestMagnitudesEndpoint(t *testing.T) {
	r := testRouter(t, false, false)
	rec := r.get(t, "/api/magnitudes?n=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var items []magnitudeItem
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Magnitude > items[0].Magnitude {
		t.Errorf("expected descending magnitudes: %v", items)
	}
}

func TestPlotEndpoints(t *testing.T) {
	r := testRouter(t, true, true)

	paths := []string{
		"/plot/samples.png",
		"/plot/samples.png?vectors=false&legend=false",
		"/plot/figure.png",
		"/plot/loadings/pc_1.png",
		"/plot/variance.png",
		"/plot/violins.png",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := r.get(t, path)
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("unexpected content type: %s", ct)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}
}

func TestPlotCaching(t *testing.T) {
	r := testRouter(t, false, false)

	first := r.get(t, "/plot/samples.png")
	second := r.get(t, "/plot/samples.png")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("unexpected statuses: %d, %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("expected identical bytes from cached figure")
	}
}

func TestPlotErrors(t *testing.T) {
	r := testRouter(t, false, false)

	if rec := r.get(t, "/plot/loadings/pc_9.png"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for undisplayed loadings, got %d", rec.Code)
	}
	if rec := r.get(t, "/plot/variance.png"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without explained variance, got %d", rec.Code)
	}
	if rec := r.get(t, "/plot/violins.png"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without singles, got %d", rec.Code)
	}
}

func TestInteractiveEndpoint(t *testing.T) {
	r := testRouter(t, false, false)
	rec := r.get(t, "/interactive?title=PCA")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<svg") || !strings.Contains(body, "PCA") {
		t.Error("expected SVG page with title")
	}
	if !strings.Contains(body, "batch: b1") {
		t.Error("expected metadata in tooltip")
	}
}
