package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/fn"
	"github.com/AVSceneAI/scene-memory/pkg/resilience"
)

// DefaultBatchSize is the upsert group size used by the file ingester.
const DefaultBatchSize = 32

// Batcher buffers encoded records and flushes them to the store in
// fixed-size groups. Upserts are idempotent (deterministic point IDs),
// so a flush retry never duplicates a scene. Not safe for concurrent use.
type Batcher struct {
	store   RecordStore
	size    int
	retry   fn.RetryOpts
	limiter *resilience.Limiter
	log     *slog.Logger
	buf     []semantic.SceneRecord
}

// NewBatcher creates a Batcher. size <= 0 falls back to DefaultBatchSize.
func NewBatcher(store RecordStore, size int, log *slog.Logger) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Batcher{
		store: store,
		size:  size,
		retry: fn.DefaultRetry,
		// Paces upserts so a large backlog directory cannot saturate the
		// store while the API is serving queries from it.
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: 4, Burst: 2}),
		log:     log,
		buf:     make([]semantic.SceneRecord, 0, size),
	}
}

// Add buffers one record and flushes when the buffer reaches the batch
// size. The buffered records stay in place if the flush fails.
func (b *Batcher) Add(ctx context.Context, rec semantic.SceneRecord) error {
	b.buf = append(b.buf, rec)
	if len(b.buf) < b.size {
		return nil
	}
	return b.Flush(ctx)
}

// Flush writes any buffered records, retrying with backoff. Call once
// more after the last Add to push the final partial batch.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}

	batch := b.buf
	result := fn.Retry(ctx, b.retry, func(ctx context.Context) fn.Result[int] {
		if err := b.limiter.Wait(ctx); err != nil {
			return fn.Err[int](err)
		}
		if err := b.store.Upsert(ctx, batch); err != nil {
			return fn.Err[int](err)
		}
		return fn.Ok(len(batch))
	})
	if result.IsErr() {
		_, err := result.Unwrap()
		return fmt.Errorf("flush %d records: %w", len(batch), err)
	}

	b.log.Info("ingest: batch flushed", "records", len(batch))
	b.buf = b.buf[:0]
	return nil
}

// Pending returns the number of buffered, unflushed records.
func (b *Batcher) Pending() int { return len(b.buf) }
