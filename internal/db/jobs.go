package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/geoken/typemotion/internal/models"
)

func (db *DB) CreateRenderJob(ctx context.Context, job *models.RenderJobRecord) error {
	query := `
		INSERT INTO render_jobs (
			id, composition_id, parameters, duration_seconds, status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.CompositionID, job.Parameters, job.DurationSeconds, job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (db *DB) GetRenderJob(ctx context.Context, id uuid.UUID) (*models.RenderJobRecord, error) {
	query := `
		SELECT
			id, composition_id, parameters, duration_seconds, status,
			stage, video_uri, error_message, created_at, updated_at
		FROM render_jobs
		WHERE id = $1
	`

	job := &models.RenderJobRecord{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.CompositionID, &job.Parameters, &job.DurationSeconds,
		&job.Status, &job.Stage, &job.VideoURI, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("render job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render job: %w", err)
	}

	return job, nil
}

func (db *DB) UpdateRenderJobRunning(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE render_jobs SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, models.RenderJobRunning, time.Now(), id)
	return err
}

func (db *DB) CompleteRenderJob(ctx context.Context, id uuid.UUID, videoURI string, durationSeconds float64) error {
	query := `
		UPDATE render_jobs
		SET status = $1, video_uri = $2, duration_seconds = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.RenderJobSucceeded, videoURI, durationSeconds, time.Now(), id)
	return err
}

func (db *DB) FailRenderJob(ctx context.Context, id uuid.UUID, stage, errorMessage string) error {
	query := `
		UPDATE render_jobs
		SET status = $1, stage = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.RenderJobFailed, stage, errorMessage, time.Now(), id)
	return err
}
