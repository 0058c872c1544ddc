package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoken/typemotion/internal/db"
	"github.com/geoken/typemotion/internal/models"
	"github.com/geoken/typemotion/internal/queue"
	"github.com/geoken/typemotion/internal/render"
)

// Worker drains the render job queue and drives queued jobs through the
// pipeline, recording outcomes in the database.
type Worker struct {
	db       *db.DB
	queue    *queue.Queue
	pipeline *render.Pipeline
}

func New(database *db.DB, q *queue.Queue, pipeline *render.Pipeline) *Worker {
	return &Worker{
		db:       database,
		queue:    q,
		pipeline: pipeline,
	}
}

// Start runs concurrency consumers until the context is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) error {
	log.Printf("[Worker] Started with concurrency: %d", concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.consume(ctx)
			return nil
		})
	}

	err := g.Wait()
	log.Println("[Worker] Shut down")
	return err
}

func (w *Worker) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueRenderJobs, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[Worker] Error dequeuing: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) {
	log.Printf("[Worker] Processing render job %s (composition: %s)", job.ID, job.CompositionID)

	if err := w.db.UpdateRenderJobRunning(ctx, job.ID); err != nil {
		log.Printf("[Worker] Failed to mark job %s running: %v", job.ID, err)
	}

	result, err := w.pipeline.RunJob(ctx, models.RenderJobRequest{
		JobID:           job.ID.String(),
		CompositionID:   job.CompositionID,
		Parameters:      job.Parameters,
		DurationSeconds: job.DurationSeconds,
	})
	if err != nil {
		stage := failureStage(err)
		log.Printf("[Worker] Job %s failed (stage: %s): %v", job.ID, stage, err)
		if dbErr := w.db.FailRenderJob(ctx, job.ID, stage, err.Error()); dbErr != nil {
			log.Printf("[Worker] Failed to record job %s failure: %v", job.ID, dbErr)
		}
		return
	}

	if err := w.db.CompleteRenderJob(ctx, job.ID, result.VideoURI, result.DurationSeconds); err != nil {
		log.Printf("[Worker] Failed to record job %s completion: %v", job.ID, err)
		return
	}
	log.Printf("[Worker] Job %s completed: %s", job.ID, result.VideoURI)
}

// failureStage extracts the pipeline stage from a job error. Errors that did
// not come from the pipeline (cancellation, infrastructure faults) carry no
// stage and are recorded as unknown rather than blamed on a stage.
func failureStage(err error) string {
	var rerr *render.Error
	if errors.As(err, &rerr) {
		return rerr.Stage
	}
	return "unknown"
}
