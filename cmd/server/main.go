// Package main is the entry point for the decomposition
// visualization server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decompviz/server/internal/api"
	"github.com/decompviz/server/internal/cache"
	"github.com/decompviz/server/internal/config"
	"github.com/decompviz/server/internal/dataset"
	"github.com/decompviz/server/internal/decomp"
	"github.com/decompviz/server/internal/render"
	"github.com/decompviz/server/internal/table"
	"github.com/decompviz/server/pkg/colormap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting decomposition visualization server on port %d", cfg.Server.Port)

	reduced, err := dataset.LoadFrame(cfg.Data.ReducedSpace)
	if err != nil {
		log.Fatalf("Failed to load reduced space: %v", err)
	}
	loadings, err := dataset.LoadFrame(cfg.Data.Loadings)
	if err != nil {
		log.Fatalf("Failed to load loadings: %v", err)
	}
	log.Printf("Loaded %d samples x %d dimensions, %d features", reduced.NRows(), reduced.NCols(), loadings.NRows())

	viewCfg := decomp.Config{
		ReducedSpace:    reduced,
		Loadings:        loadings,
		DataType:        cfg.Data.DataType,
		XPC:             cfg.Viz.XPC,
		YPC:             cfg.Viz.YPC,
		NVectors:        cfg.Viz.NVectors,
		Distance:        cfg.Viz.Distance,
		NTopFeatures:    cfg.Viz.NTopPCFeatures,
		ScaleByVariance: cfg.Viz.ScaleByVariance,
		MaxCharWidth:    cfg.Viz.MaxCharWidth,
		Order:           cfg.Viz.Order,
		Featurewise:     cfg.Viz.Featurewise,
	}

	if cfg.Data.ExplainedVariance != "" {
		variance, err := dataset.LoadSeries(cfg.Data.ExplainedVariance)
		if err != nil {
			log.Fatalf("Failed to load explained variance: %v", err)
		}
		viewCfg.ExplainedVariance = variance
	}
	if cfg.Data.GroupBy != "" {
		groups, err := dataset.LoadMapping(cfg.Data.GroupBy)
		if err != nil {
			log.Fatalf("Failed to load group assignments: %v", err)
		}
		viewCfg.GroupBy = groups
	}
	if cfg.Data.FeatureNames != "" {
		names, err := dataset.LoadMapping(cfg.Data.FeatureNames)
		if err != nil {
			log.Fatalf("Failed to load feature names: %v", err)
		}
		viewCfg.Renamer = decomp.MapRenamer(names)
	}
	viewCfg.Singles = loadOptionalFrame(cfg.Data.Singles, "singles")
	viewCfg.Pooled = loadOptionalFrame(cfg.Data.Pooled, "pooled")
	viewCfg.Outliers = loadOptionalFrame(cfg.Data.Outliers, "outliers")

	palette, err := colormap.ByName(cfg.Figure.Palette)
	if err != nil {
		log.Fatalf("Invalid palette: %v", err)
	}
	viewCfg.Palette = palette

	view, err := decomp.New(viewCfg)
	if err != nil {
		log.Fatalf("Failed to derive view: %v", err)
	}
	log.Printf("View ready: %s vs %s, %d groups", view.XPC(), view.YPC(), len(view.Groups()))

	renderer := render.New(view, render.Config{
		Width:      cfg.Figure.Width,
		Height:     cfg.Figure.Height,
		MarkerSize: cfg.Figure.MarkerSize,
	})

	cacheManager, err := cache.NewManager(cache.Config{
		FigureCacheSizeMB: cfg.Cache.FigureSizeMB,
		FigureTTL:         time.Duration(cfg.Cache.FigureTTLMinutes) * time.Minute,
		QueryCacheSize:    cfg.Cache.QuerySize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	var metadata map[string]map[string]string
	if cfg.Data.Metadata != "" {
		metadata, err = dataset.LoadMetadata(cfg.Data.Metadata)
		if err != nil {
			log.Fatalf("Failed to load sample metadata: %v", err)
		}
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Renderer:    renderer,
		Cache:       cacheManager,
		CORSOrigins: cfg.Server.CORSOrigins,
		Metadata:    metadata,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// loadOptionalFrame loads a table when a path is configured; a missing
// path just disables the overlay that needs it.
func loadOptionalFrame(path, what string) *table.Frame {
	if path == "" {
		return nil
	}
	f, err := dataset.LoadFrame(path)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", what, err)
	}
	log.Printf("Loaded %s: %d samples", what, f.NRows())
	return f
}
