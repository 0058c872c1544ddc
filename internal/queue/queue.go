package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueRenderJobs = "queue:render_jobs"
)

type Queue struct {
	client *redis.Client
}

// Job is a queued render request. Parameters are the composition overrides
// recorded at enqueue time.
type Job struct {
	ID              uuid.UUID              `json:"id"`
	CompositionID   string                 `json:"composition_id"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
	DurationSeconds float64                `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueRenderJob enqueues one render job for background processing
func (q *Queue) EnqueueRenderJob(ctx context.Context, jobID uuid.UUID, compositionID string, params map[string]interface{}, durationSeconds float64) error {
	job := &Job{
		ID:              jobID,
		CompositionID:   compositionID,
		Parameters:      params,
		DurationSeconds: durationSeconds,
	}
	return q.Enqueue(ctx, QueueRenderJobs, job)
}
