package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/models"
)

type stubEncoder struct {
	err     error
	calls   int
	noWrite bool // simulate a failure before the output file exists
}

func (e *stubEncoder) Encode(ctx context.Context, comp *composition.Bound, durationFrames int, outputPath string) error {
	e.calls++
	if e.err != nil {
		if e.noWrite {
			return e.err
		}
		// Partial output left behind by a mid-render crash.
		os.WriteFile(outputPath, []byte("partial"), 0644)
		return e.err
	}
	return os.WriteFile(outputPath, []byte("video"), 0644)
}

type stubUploader struct {
	err      error
	uploaded []string
}

func (u *stubUploader) UploadFile(ctx context.Context, objectPath, localPath, contentType string) error {
	if u.err != nil {
		return u.err
	}
	u.uploaded = append(u.uploaded, objectPath)
	return nil
}

func (u *stubUploader) ObjectURI(objectPath string) string {
	return "gs://test-bucket/" + objectPath
}

func newTestPipeline(t *testing.T, enc Encoder, up Uploader) *Pipeline {
	t.Helper()
	return NewPipeline(composition.New(), enc, up, t.TempDir())
}

func TestRunJobSuccess(t *testing.T) {
	enc := &stubEncoder{}
	up := &stubUploader{}
	p := newTestPipeline(t, enc, up)

	result, err := p.RunJob(context.Background(), models.RenderJobRequest{
		JobID:           "x1",
		CompositionID:   "LofiVisualizer",
		Parameters:      map[string]interface{}{"title": "T", "mood": "chill"},
		DurationSeconds: 5,
	})
	if err != nil {
		t.Fatalf("RunJob failed: %v", err)
	}

	if result.VideoURI != "gs://test-bucket/video/x1.mp4" {
		t.Errorf("unexpected video URI: %q", result.VideoURI)
	}
	if result.DurationSeconds != 5 {
		t.Errorf("expected duration 5, got %v", result.DurationSeconds)
	}
	if len(up.uploaded) != 1 || up.uploaded[0] != "video/x1.mp4" {
		t.Errorf("unexpected uploads: %v", up.uploaded)
	}
}

func TestRunJobDefaultDuration(t *testing.T) {
	enc := &stubEncoder{}
	p := newTestPipeline(t, enc, &stubUploader{})

	result, err := p.RunJob(context.Background(), models.RenderJobRequest{
		JobID:         "x2",
		CompositionID: "LofiVisualizer",
	})
	if err != nil {
		t.Fatalf("RunJob failed: %v", err)
	}

	// 300 frames at 30fps.
	if result.DurationSeconds != 10 {
		t.Errorf("expected composition default duration 10, got %v", result.DurationSeconds)
	}
}

func TestRunJobUnknownComposition(t *testing.T) {
	p := newTestPipeline(t, &stubEncoder{}, &stubUploader{})

	_, err := p.RunJob(context.Background(), models.RenderJobRequest{
		JobID:         "x3",
		CompositionID: "DoesNotExist",
	})
	if !errors.Is(err, composition.ErrUnknownComposition) {
		t.Fatalf("expected ErrUnknownComposition, got %v", err)
	}

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Stage != StageBundling {
		t.Errorf("expected Bundling stage failure, got %v", err)
	}
}

func TestRunJobRenderFailureCleansUp(t *testing.T) {
	enc := &stubEncoder{err: errors.New("encoder crashed")}
	p := newTestPipeline(t, enc, &stubUploader{})

	_, err := p.RunJob(context.Background(), models.RenderJobRequest{
		JobID:         "x4",
		CompositionID: "LofiVisualizer",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Stage != StageRendering {
		t.Errorf("expected Rendering stage failure, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(p.tempDir, "x4.mp4")); !os.IsNotExist(statErr) {
		t.Error("expected partial output to be removed after a render failure")
	}
}

func TestRunJobUploadFailureCleansUp(t *testing.T) {
	up := &stubUploader{err: errors.New("storage unreachable")}
	p := newTestPipeline(t, &stubEncoder{}, up)

	_, err := p.RunJob(context.Background(), models.RenderJobRequest{
		JobID:         "x5",
		CompositionID: "LofiVisualizer",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Stage != StageUploading {
		t.Errorf("expected Uploading stage failure, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(p.tempDir, "x5.mp4")); !os.IsNotExist(statErr) {
		t.Error("expected rendered output to be removed after an upload failure")
	}
}

func TestBundleBuiltOnce(t *testing.T) {
	enc := &stubEncoder{}
	p := newTestPipeline(t, enc, &stubUploader{})

	first, err := p.ensureBundle(context.Background())
	if err != nil {
		t.Fatalf("ensureBundle failed: %v", err)
	}
	second, err := p.ensureBundle(context.Background())
	if err != nil {
		t.Fatalf("ensureBundle failed on second call: %v", err)
	}
	if first != second {
		t.Error("expected the same bundle instance on every call")
	}
	if !first.BuiltAt.Equal(second.BuiltAt) {
		t.Error("expected bundle build time to be stable")
	}
}
