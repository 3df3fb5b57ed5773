package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ecosort/backend/pkg/queue"
)

// ObjectDeleter removes one object from storage.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// Janitor processes object deletion jobs: photo deletions, event cascade
// cleanup, and compensation for half-finished upload pipelines.
type Janitor struct {
	objects ObjectDeleter
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewJanitor creates a storage janitor.
func NewJanitor(objects ObjectDeleter, q *queue.Queue, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{objects: objects, queue: q, logger: logger}
}

// Process executes one object deletion job.
func (j *Janitor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeObjectDelete {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ObjectDeletePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := j.objects.DeleteObject(ctx, payload.ObjectKey); err != nil {
		return fmt.Errorf("delete object %s: %w", payload.ObjectKey, err)
	}
	j.logger.Info("object reclaimed", zap.String("object_key", payload.ObjectKey))
	return nil
}

// Run consumes the janitor queue until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopping")
			return
		default:
		}

		job, _, err := j.queue.Dequeue(ctx)
		if err != nil {
			j.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		j.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := j.Process(ctx, job); err != nil {
			j.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := j.queue.Retry(ctx, job); reErr != nil {
				j.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
