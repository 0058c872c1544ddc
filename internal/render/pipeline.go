package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/models"
)

// Pipeline stages, in execution order.
const (
	StageBundling  = "Bundling"
	StageRendering = "Rendering"
	StageUploading = "Uploading"
)

// Error is a render failure annotated with the stage it occurred in.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) *Error {
	return &Error{Stage: stage, Err: err}
}

// Encoder renders a bound composition to a local video file.
type Encoder interface {
	Encode(ctx context.Context, comp *composition.Bound, durationFrames int, outputPath string) error
}

// Uploader moves a finished render into durable storage.
type Uploader interface {
	UploadFile(ctx context.Context, objectPath, localPath, contentType string) error
	ObjectURI(objectPath string) string
}

// Bundle is the prepared render environment, built once per process and
// reused by every job.
type Bundle struct {
	ManifestPath string
	BuiltAt      time.Time
}

// Pipeline executes render jobs: bundle, render, upload, with guaranteed
// cleanup of the per-job ephemeral file.
type Pipeline struct {
	registry *composition.Registry
	encoder  Encoder
	uploader Uploader
	tempDir  string

	bundleOnce sync.Once
	bundle     *Bundle
	bundleErr  error
}

// NewPipeline creates a pipeline rendering into tempDir.
func NewPipeline(registry *composition.Registry, encoder Encoder, uploader Uploader, tempDir string) *Pipeline {
	return &Pipeline{
		registry: registry,
		encoder:  encoder,
		uploader: uploader,
		tempDir:  tempDir,
	}
}

// ensureBundle prepares the render environment exactly once. Concurrent jobs
// share the result; a bundling failure is sticky for the process lifetime.
func (p *Pipeline) ensureBundle(ctx context.Context) (*Bundle, error) {
	p.bundleOnce.Do(func() {
		if err := os.MkdirAll(p.tempDir, 0755); err != nil {
			p.bundleErr = fmt.Errorf("failed to create temp dir: %w", err)
			return
		}

		manifest := struct {
			Compositions []string  `json:"compositions"`
			BuiltAt      time.Time `json:"builtAt"`
		}{
			Compositions: p.registry.IDs(),
			BuiltAt:      time.Now().UTC(),
		}

		data, err := json.Marshal(manifest)
		if err != nil {
			p.bundleErr = fmt.Errorf("failed to marshal bundle manifest: %w", err)
			return
		}

		manifestPath := filepath.Join(p.tempDir, "bundle_manifest.json")
		if err := os.WriteFile(manifestPath, data, 0644); err != nil {
			p.bundleErr = fmt.Errorf("failed to write bundle manifest: %w", err)
			return
		}

		p.bundle = &Bundle{ManifestPath: manifestPath, BuiltAt: manifest.BuiltAt}
		log.Printf("[Render] Bundle prepared at %s (%d compositions)", manifestPath, len(manifest.Compositions))
	})
	return p.bundle, p.bundleErr
}

// RunJob renders one job end to end and returns the durable object URI and
// the effective duration. The local output file is removed on every exit
// path; a cleanup failure is logged and never masks the job result.
func (p *Pipeline) RunJob(ctx context.Context, req models.RenderJobRequest) (*models.RenderJobResult, error) {
	start := time.Now()

	if _, err := p.ensureBundle(ctx); err != nil {
		return nil, stageErr(StageBundling, err)
	}

	comp, err := p.registry.Resolve(req.CompositionID, req.Parameters)
	if err != nil {
		return nil, stageErr(StageBundling, err)
	}

	durationFrames := comp.DurationFrames
	if req.DurationSeconds > 0 {
		durationFrames = int(req.DurationSeconds * float64(comp.FPS))
	}

	outputPath := filepath.Join(p.tempDir, req.JobID+".mp4")
	defer func() {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[Render] Failed to clean up %s: %v", outputPath, err)
		}
	}()

	log.Printf("[Render] Job %s: rendering %s (%d frames @ %dfps)", req.JobID, comp.ID, durationFrames, comp.FPS)
	if err := p.encoder.Encode(ctx, comp, durationFrames, outputPath); err != nil {
		return nil, stageErr(StageRendering, err)
	}

	objectPath := "video/" + req.JobID + ".mp4"
	if err := p.uploader.UploadFile(ctx, objectPath, outputPath, "video/mp4"); err != nil {
		return nil, stageErr(StageUploading, err)
	}

	result := &models.RenderJobResult{
		VideoURI:        p.uploader.ObjectURI(objectPath),
		DurationSeconds: float64(durationFrames) / float64(comp.FPS),
	}
	log.Printf("[Render] Job %s: done in %v -> %s", req.JobID, time.Since(start).Round(time.Millisecond), result.VideoURI)
	return result, nil
}
