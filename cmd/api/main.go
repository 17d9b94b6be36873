// Package main implements the scene-memory API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/graph"
	"github.com/AVSceneAI/scene-memory/engine/search"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/metrics"
	"github.com/AVSceneAI/scene-memory/pkg/mid"
)

var met = metrics.New()

var (
	mSearches  = met.Counter("scene_memory_searches_total", "Total fused searches served")
	mSearchDur = met.Histogram("scene_memory_search_duration_seconds", "Fused search latency", nil)
	mNovel     = met.Counter("scene_memory_novel_verdicts_total", "Searches that judged the scene novel")
	mBadReqs   = met.Counter("scene_memory_bad_requests_total", "Rejected search requests")
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	QdrantURL  string
	Collection string
	CORSOrigin string
	RateRPS    float64
	RateBurst  int
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		Neo4jURL:   envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:  envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:  envOr("NEO4J_PASS", "password"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "scenes"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		RateRPS:    envFloat("RATE_RPS", 50),
		RateBurst:  envInt("RATE_BURST", 100),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encCfg := encode.DefaultConfig()
	encoder, err := encode.New(encCfg)
	if err != nil {
		return fmt.Errorf("encoder: %w", err)
	}

	// --- Connect to Neo4j ---
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	catalog := graph.New(driver)

	// --- Connect to Qdrant ---
	dims := make(map[domain.Modality]int, len(domain.Modalities))
	for _, m := range domain.Modalities {
		dims[m] = encCfg.DimFor(m)
	}
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection, dims)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	svc := search.New(store, catalog, logger)

	met.CollectRuntime("scene_memory_api", 15*time.Second)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /v1/search", handleSearch(svc, encoder, logger))
	mux.HandleFunc("GET /v1/scenes", handleScenes(catalog, logger))
	mux.HandleFunc("GET /v1/scenes/{id}", handleScene(catalog, logger))
	mux.HandleFunc("GET /v1/stats", handleStats(catalog, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("scene-memory-api"),
		mid.RateLimit(cfg.RateRPS, cfg.RateBurst),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
