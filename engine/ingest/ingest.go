// Package ingest runs raw multi-modal scenes through validation, encoding,
// and storage, either from files via the Batcher or from a NATS subject.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/fn"
	"github.com/AVSceneAI/scene-memory/pkg/natsutil"
)

const (
	// IngestSubject is the NATS subject for incoming raw scenes.
	IngestSubject = "scene.ingest"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "scene.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
	// DefaultBucketStep is the lat/lon grid step for location bucketing.
	DefaultBucketStep = 0.01
)

// RecordStore is the slice of the vector store the pipeline needs.
type RecordStore interface {
	Upsert(ctx context.Context, records []semantic.SceneRecord) error
}

// Cataloger mirrors scene attributes into the graph catalog. Catalog
// failures are logged, never fatal to the pipeline.
type Cataloger interface {
	SaveScene(ctx context.Context, attrs domain.SceneAttributes) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Encoder     *encode.Encoder
	VectorStore RecordStore
	Catalog     Cataloger
	Logger      *slog.Logger
}

// Validate checks the attributes, requires at least one payload, and
// fills in the location bucket when coordinates are present.
var Validate fn.Stage[RawScene, RawScene] = func(_ context.Context, scene RawScene) fn.Result[RawScene] {
	if err := domain.ValidateAttributes(scene.Attributes); err != nil {
		return fn.Err[RawScene](err)
	}
	if !scene.HasPayload() {
		return fn.Err[RawScene](domain.NewValidationError("payload", scene.Attributes.SceneID, domain.ErrInvalidShape))
	}
	if scene.Camera != nil && scene.Camera.Image() == nil {
		return fn.Err[RawScene](domain.NewShapeError(domain.ModalityVision, "pixel buffer does not match %dx%dx3", scene.Camera.Width, scene.Camera.Height))
	}
	if scene.Attributes.LocationBucket == "" && (scene.Attributes.Lat != 0 || scene.Attributes.Lon != 0) {
		scene.Attributes.LocationBucket = domain.BucketLocation(scene.Attributes.Lat, scene.Attributes.Lon, DefaultBucketStep)
	}
	return fn.Ok(scene)
}

// NewEncode creates the stage that turns a raw scene into a SceneRecord,
// producing one vector per present modality.
func NewEncode(enc *encode.Encoder) fn.Stage[RawScene, semantic.SceneRecord] {
	return func(_ context.Context, scene RawScene) fn.Result[semantic.SceneRecord] {
		vectors := make(map[domain.Modality][]float32)

		if scene.Camera != nil {
			vec, err := enc.Vision(scene.Camera.Image())
			if err != nil {
				return fn.Err[semantic.SceneRecord](fmt.Errorf("encode vision: %w", err))
			}
			vectors[domain.ModalityVision] = vec
		}
		if len(scene.Lidar) > 0 {
			vec, err := enc.Lidar(scene.Lidar)
			if err != nil {
				return fn.Err[semantic.SceneRecord](fmt.Errorf("encode lidar: %w", err))
			}
			vectors[domain.ModalityLidar] = vec
		}
		if len(scene.Radar) > 0 {
			vec, err := enc.Radar(scene.Radar)
			if err != nil {
				return fn.Err[semantic.SceneRecord](fmt.Errorf("encode radar: %w", err))
			}
			vectors[domain.ModalityRadar] = vec
		}
		if scene.Attributes.Notes != "" {
			vec, err := enc.Text(scene.Attributes.Notes)
			if err != nil {
				return fn.Err[semantic.SceneRecord](fmt.Errorf("encode text: %w", err))
			}
			vectors[domain.ModalityText] = vec
		}

		return fn.Ok(semantic.SceneRecord{Attributes: scene.Attributes, Vectors: vectors})
	}
}

// NewStore creates the stage that upserts the record into Qdrant and
// mirrors the attributes into the scene catalog.
func NewStore(vs RecordStore, catalog Cataloger, log *slog.Logger) fn.Stage[semantic.SceneRecord, string] {
	return func(ctx context.Context, rec semantic.SceneRecord) fn.Result[string] {
		if err := vs.Upsert(ctx, []semantic.SceneRecord{rec}); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
		}
		if catalog != nil {
			if err := catalog.SaveScene(ctx, rec.Attributes); err != nil {
				log.Warn("ingest: catalog save failed, vector copy kept", "scene_id", rec.Attributes.SceneID, "err", err)
			}
		}
		return fn.Ok(rec.Attributes.SceneID)
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full ingestion pipeline with all stages wired.
func NewPipeline(deps Deps) fn.Stage[RawScene, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[RawScene]("validate", log), Validate)
	encoded := fn.Then(validated, fn.Then(LoggedTap[RawScene]("encode", log), NewEncode(deps.Encoder)))
	stored := fn.Then(encoded, fn.Then(LoggedTap[semantic.SceneRecord]("store", log), NewStore(deps.VectorStore, deps.Catalog, log)))

	return fn.TracedStage("ingest.pipeline", stored)
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Scene   RawScene `json:"scene"`
	Error   string   `json:"error"`
	Retries int      `json:"retries"`
}

// retryHeader counts how many times a scene has been re-published.
const retryHeader = "X-Retry-Count"

func retryCount(h nats.Header) int {
	if h == nil {
		return 0
	}
	n, err := strconv.Atoi(h.Get(retryHeader))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// StartConsumer subscribes to the ingest subject and runs every raw scene
// through the pipeline. Trace context rides the NATS headers in both
// directions. Failures are re-published with an incremented retry header
// until MaxRetries, then land on the DLQ.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return natsutil.SubscribeMsg(nc, IngestSubject, func(ctx context.Context, scene RawScene, msg *nats.Msg) {
		retries := retryCount(msg.Header)

		result := pipeline(ctx, scene)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"err", pipeErr,
				"scene_id", scene.Attributes.SceneID,
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Scene: scene, Error: pipeErr.Error(), Retries: retries}
				if err := natsutil.Publish(ctx, nc, DLQSubject, dlq); err != nil {
					log.Error("ingest: DLQ publish failed", "err", err)
				}
			} else {
				hdr := nats.Header{}
				hdr.Set(retryHeader, strconv.Itoa(retries))
				retryMsg, err := natsutil.NewMsg(ctx, IngestSubject, scene, hdr)
				if err == nil {
					err = nc.PublishMsg(retryMsg)
				}
				if err != nil {
					log.Error("ingest: retry publish failed", "err", err)
				}
			}
		} else {
			sceneID, _ := result.Unwrap()
			log.Info("ingest: scene stored", "scene_id", sceneID)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
