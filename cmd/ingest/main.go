// Command ingest watches a directory for raw scene JSON files and loads
// them into Qdrant and the Neo4j scene catalog. It can also consume
// scenes from NATS when -nats is set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/graph"
	"github.com/AVSceneAI/scene-memory/engine/ingest"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/fn"
	"github.com/AVSceneAI/scene-memory/pkg/metrics"
)

var met = metrics.New()

var (
	mScenesTotal    = func(edgeType string) *metrics.Counter { return met.Counter(metrics.WithLabels("scene_ingest_scenes_total", "edge_type", edgeType), "Scenes ingested") }
	mErrorsTotal    = func(stage string) *metrics.Counter { return met.Counter(metrics.WithLabels("scene_ingest_errors_total", "stage", stage), "Ingestion errors") }
	mFilesProcessed = met.Counter("scene_ingest_files_processed_total", "Files processed")
	mCatalogWrites  = met.Counter("scene_ingest_catalog_writes_total", "Scene catalog batch writes")
	mLastScan       = met.Gauge("scene_ingest_last_scan_timestamp", "Epoch of last directory scan")
	mQueueDepth     = met.Gauge("scene_ingest_queue_depth", "Files waiting to process")
	mSceneDur       = met.Histogram("scene_ingest_scene_duration_seconds", "Per-scene validate+encode time", nil)
)

func main() {
	var (
		dataDir    = flag.String("dir", "/var/lib/scene-memory/incoming", "directory to watch for scene JSON files")
		neo4jURL   = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser  = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass  = flag.String("neo4j-pass", "password", "Neo4j password")
		qdrantAddr = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "scenes", "Qdrant collection name")
		batchSize  = flag.Int("batch", ingest.DefaultBatchSize, "records per vector upsert batch")
		interval   = flag.Duration("interval", 30*time.Second, "scan interval")
		stateFile  = flag.String("state", "", "processed files state (default <dir>/.ingest-state.json)")
		natsURL    = flag.String("nats", "", "NATS URL to consume scenes from (optional)")
		reset      = flag.Bool("reset", false, "drop and recreate the collection before ingesting")
	)
	flag.Parse()
	if *stateFile == "" {
		*stateFile = filepath.Join(*dataDir, ".ingest-state.json")
	}

	met.CollectRuntime("scene_ingest", 15*time.Second)
	met.ServeAsync(9091)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	encCfg := encode.DefaultConfig()
	encoder, err := encode.New(encCfg)
	if err != nil {
		log.Error("encoder config invalid", "err", err)
		os.Exit(1)
	}

	// Connect Neo4j
	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "err", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Error("neo4j verify failed", "err", err)
		os.Exit(1)
	}
	catalog := graph.New(driver)
	log.Info("connected to Neo4j")

	// Connect Qdrant and provision the collection
	dims := make(map[domain.Modality]int, len(domain.Modalities))
	for _, m := range domain.Modalities {
		dims[m] = encCfg.DimFor(m)
	}
	store, err := semantic.New(*qdrantAddr, *collection, dims)
	if err != nil {
		log.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if *reset {
		log.Warn("resetting collection", "collection", *collection)
		if err := store.DeleteCollection(ctx); err != nil {
			log.Error("collection delete failed", "err", err)
			os.Exit(1)
		}
	}
	if err := store.EnsureCollection(ctx); err != nil {
		log.Error("ensure collection failed", "err", err)
		os.Exit(1)
	}
	if err := store.EnsurePayloadIndexes(ctx); err != nil {
		log.Error("ensure payload indexes failed", "err", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", *collection, "dims", dims)

	// Optional NATS consumer alongside the directory scan.
	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer nc.Close()
		sub, err := ingest.StartConsumer(nc, ingest.Deps{
			Encoder:     encoder,
			VectorStore: store,
			Catalog:     catalog,
			Logger:      log,
		})
		if err != nil {
			log.Error("nats subscribe failed", "err", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("consuming scenes from NATS", "subject", ingest.IngestSubject)
	}

	validate := ingest.Validate
	encodeStage := ingest.NewEncode(encoder)

	processed := loadState(*stateFile)
	os.MkdirAll(*dataDir, 0o755)
	log.Info("watching for scene data", "dir", *dataDir, "interval", *interval, "batch", *batchSize)

	scan := func() {
		mLastScan.Set(time.Now().Unix())
		entries, err := os.ReadDir(*dataDir)
		if err != nil {
			mErrorsTotal("scan").Inc()
			log.Error("readdir failed", "err", err)
			return
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name()[0] == '.' {
				continue
			}
			path := filepath.Join(*dataDir, e.Name())
			info, _ := e.Info()
			key := fmt.Sprintf("%s:%d", e.Name(), info.Size())
			if processed[key] {
				continue
			}

			mQueueDepth.Inc()
			log.Info("processing file", "file", e.Name())
			count, errs := processFile(ctx, path, validate, encodeStage, store, catalog, *batchSize, log)
			mQueueDepth.Dec()
			mFilesProcessed.Inc()
			log.Info("file done", "file", e.Name(), "ingested", count, "errors", errs)

			// Only mark as fully processed if no errors (allows retry on next scan)
			if errs == 0 {
				processed[key] = true
				saveState(*stateFile, processed)
			} else {
				log.Warn("file had errors, will retry on next scan", "file", e.Name(), "errors", errs)
			}
		}
	}

	scan()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			scan()
		}
	}
}

// decodeScenes reads one file holding either a JSON array of raw scenes
// or a stream of concatenated scene objects.
func decodeScenes(data []byte) ([]ingest.RawScene, error) {
	var scenes []ingest.RawScene
	if err := json.Unmarshal(data, &scenes); err == nil {
		return scenes, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	for dec.More() {
		var s ingest.RawScene
		if err := dec.Decode(&s); err != nil {
			return scenes, err
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}

func processFile(
	ctx context.Context,
	path string,
	validate fn.Stage[ingest.RawScene, ingest.RawScene],
	encodeStage fn.Stage[ingest.RawScene, semantic.SceneRecord],
	store *semantic.VectorStore,
	catalog *graph.SceneGraph,
	batchSize int,
	log *slog.Logger,
) (int, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		mErrorsTotal("read").Inc()
		return 0, 1
	}

	scenes, err := decodeScenes(data)
	if err != nil {
		mErrorsTotal("decode").Inc()
		log.Error("decode failed", "file", path, "err", err)
		return 0, 1
	}

	batcher := ingest.NewBatcher(store, batchSize, log)
	var attrs []domain.SceneAttributes
	count, errs := 0, 0

	for _, scene := range scenes {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		record, err := fn.Then(validate, encodeStage)(ctx, scene).Unwrap()
		mSceneDur.Since(start)
		if err != nil {
			mErrorsTotal("encode").Inc()
			log.Error("scene rejected", "scene_id", scene.Attributes.SceneID, "err", err)
			errs++
			continue
		}
		if err := batcher.Add(ctx, record); err != nil {
			mErrorsTotal("upsert").Inc()
			log.Error("batch upsert failed", "err", err)
			errs++
			continue
		}
		attrs = append(attrs, record.Attributes)
		mScenesTotal(string(record.Attributes.EdgeType)).Inc()
		count++
	}

	if err := batcher.Flush(ctx); err != nil {
		mErrorsTotal("upsert").Inc()
		log.Error("final flush failed", "err", err)
		errs++
	}

	if len(attrs) > 0 {
		if err := catalog.SaveBatch(ctx, attrs); err != nil {
			mErrorsTotal("catalog").Inc()
			log.Error("catalog batch failed", "err", err)
			errs++
		} else {
			mCatalogWrites.Inc()
		}
	}
	return count, errs
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
