package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/models"
	"github.com/geoken/typemotion/internal/services"
)

type fakeClient struct {
	mu         sync.Mutex
	imageCalls []services.ImageRequest
	videoCalls []services.VideoRequest

	imageErr       error
	videoErr       error
	resolveErr     error
	videoURI       string
	failureMessage string

	blockImage     chan struct{} // when set, GenerateImage waits on it
	blockResolve   chan struct{} // when set, ResolveVideoAsset waits on it
	resolveEntered chan struct{} // closed once ResolveVideoAsset is reached
	handle         *services.VideoHandle
}

func (f *fakeClient) GenerateImage(ctx context.Context, req services.ImageRequest) (*services.ImageResult, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, req)
	block := f.blockImage
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &services.ImageResult{Data: []byte("img"), MIMEType: "image/png"}, nil
}

func (f *fakeClient) StartVideoGeneration(ctx context.Context, req services.VideoRequest) (*services.Operation, error) {
	f.mu.Lock()
	f.videoCalls = append(f.videoCalls, req)
	f.mu.Unlock()

	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return &services.Operation{Name: "op-test"}, nil
}

func (f *fakeClient) PollOperation(ctx context.Context, op *services.Operation) (*services.Operation, error) {
	return &services.Operation{
		Name:           op.Name,
		Done:           true,
		VideoURI:       f.videoURI,
		FailureMessage: f.failureMessage,
	}, nil
}

func (f *fakeClient) ResolveVideoAsset(ctx context.Context, uri string) (*services.VideoHandle, error) {
	f.mu.Lock()
	entered := f.resolveEntered
	f.resolveEntered = nil
	block := f.blockResolve
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}

	handle := &services.VideoHandle{Data: []byte("vid"), ContentType: "video/mp4", SourceURI: uri}
	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()
	return handle, nil
}

func (f *fakeClient) imageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imageCalls)
}

func newTestSession(client *fakeClient) *Session {
	s := NewSession(client, &Credentials{EnvKey: "test-key"}, composition.New())
	s.PollInterval = time.Millisecond
	s.MaxWait = time.Second
	return s
}

func TestSubmitStandardFlow(t *testing.T) {
	client := &fakeClient{videoURI: "https://example.com/v.mp4"}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "Luxe Serum"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhasePlaying {
		t.Errorf("expected playing phase, got %s", snap.Phase)
	}
	if snap.Status != "Done." {
		t.Errorf("expected status Done., got %q", snap.Status)
	}
	if !snap.HasImage || !snap.HasVideo {
		t.Error("expected both image and video handles")
	}
	if snap.Style == "" {
		t.Error("expected a random style for an empty style request")
	}
	if len(client.videoCalls) != 1 {
		t.Fatalf("expected 1 video call, got %d", len(client.videoCalls))
	}
	if string(client.videoCalls[0].LastFrame) != "img" {
		t.Error("expected generated still as the video last frame")
	}
}

func TestSubmitPremiumSkipsVideo(t *testing.T) {
	client := &fakeClient{}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "BRAND", Style: "brushed steel", Premium: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhasePlaying {
		t.Errorf("expected playing phase, got %s", snap.Phase)
	}
	if snap.Status != "Render Ready." {
		t.Errorf("expected status Render Ready., got %q", snap.Status)
	}
	if snap.HasVideo {
		t.Error("premium flow must not produce a video handle")
	}
	if len(client.videoCalls) != 0 {
		t.Errorf("expected no video calls, got %d", len(client.videoCalls))
	}

	comp := s.Composition()
	if comp == nil {
		t.Fatal("expected a bound composition")
	}
	if comp.Params["title"] != "BRAND" {
		t.Errorf("expected title override, got %v", comp.Params["title"])
	}
	if comp.Params["backgroundImage"] == nil {
		t.Error("expected generated image as background parameter")
	}
}

func TestSubmitLegacyStyleTriggersPremium(t *testing.T) {
	client := &fakeClient{}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "X", Style: "minimal luxury tabletop"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(client.videoCalls) != 0 {
		t.Error("legacy premium style should skip video generation")
	}
	if len(client.imageCalls) != 1 || !client.imageCalls[0].Premium {
		t.Error("expected premium image request for legacy premium style")
	}
}

func TestSubmitNotFoundReturnsToIdle(t *testing.T) {
	client := &fakeClient{imageErr: fmt.Errorf("gemini returned status 404: Requested entity was not found.")}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	if err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseIdle {
		t.Errorf("expected idle phase, got %s", snap.Phase)
	}
	if !snap.KeyPromptRaised {
		t.Error("expected key-selection prompt")
	}
	if snap.ErrorDetail != "" {
		t.Errorf("expected no error detail, got %q", snap.ErrorDetail)
	}
}

func TestSubmitFailureCarriesVerbatimMessage(t *testing.T) {
	client := &fakeClient{imageErr: errors.New("quota exceeded for model")}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	if err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseError {
		t.Errorf("expected error phase, got %s", snap.Phase)
	}
	if snap.ErrorDetail != "quota exceeded for model" {
		t.Errorf("expected verbatim message, got %q", snap.ErrorDetail)
	}
}

func TestSubmitVideoFailureMessage(t *testing.T) {
	client := &fakeClient{failureMessage: `{"code":400,"message":"unsafe prompt"}`}
	s := newTestSession(client)

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseError {
		t.Errorf("expected error phase, got %s", snap.Phase)
	}
}

func TestSubmitWithoutCredential(t *testing.T) {
	client := &fakeClient{}
	s := NewSession(client, &Credentials{}, composition.New())

	err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseIdle {
		t.Errorf("expected phase unchanged, got %s", snap.Phase)
	}
	if !snap.KeyPromptRaised {
		t.Error("expected key-selection prompt")
	}
	if client.imageCallCount() != 0 {
		t.Error("expected no generation calls without a credential")
	}
}

func TestSubmitWhileGeneratingIsNoOp(t *testing.T) {
	client := &fakeClient{videoURI: "https://example.com/v.mp4", blockImage: make(chan struct{})}
	s := newTestSession(client)

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), models.GenerationRequest{Text: "first"})
	}()

	// Wait for the first attempt to reach the generating phase.
	deadline := time.Now().Add(time.Second)
	for s.Snapshot().Phase != models.PhaseGeneratingImage {
		if time.Now().After(deadline) {
			t.Fatal("first attempt never reached generating phase")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Submit(context.Background(), models.GenerationRequest{Text: "second"}); err != nil {
		t.Errorf("duplicate submit should be a no-op, got %v", err)
	}

	close(client.blockImage)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if client.imageCallCount() != 1 {
		t.Errorf("expected 1 image call, got %d", client.imageCallCount())
	}
}

func TestStyleNotResampledWithinAttempt(t *testing.T) {
	client := &fakeClient{videoURI: "https://example.com/v.mp4"}
	s := newTestSession(client)

	if err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	style := s.Snapshot().Style
	if style == "" {
		t.Fatal("expected a resolved style")
	}
	if client.imageCalls[0].Style != style {
		t.Error("image request used a different style than the session")
	}
	if client.videoCalls[0].Style != style {
		t.Error("video request used a different style than the session")
	}
}

func TestResetReleasesHandles(t *testing.T) {
	client := &fakeClient{videoURI: "https://example.com/v.mp4"}
	s := newTestSession(client)

	if err := s.Submit(context.Background(), models.GenerationRequest{Text: "X"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	handle := s.Video()
	if handle == nil {
		t.Fatal("expected a video handle before reset")
	}

	s.Reset()

	if !handle.Released() {
		t.Error("expected the video handle to be released on reset")
	}
	snap := s.Snapshot()
	if snap.Phase != models.PhaseIdle || snap.HasImage || snap.HasVideo {
		t.Errorf("expected a clean idle session, got %+v", snap)
	}
}

func TestResetDuringImageGenerationDropsLateResult(t *testing.T) {
	client := &fakeClient{videoURI: "https://example.com/v.mp4", blockImage: make(chan struct{})}
	s := newTestSession(client)

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	}()

	deadline := time.Now().Add(time.Second)
	for s.Snapshot().Phase != models.PhaseGeneratingImage {
		if time.Now().After(deadline) {
			t.Fatal("attempt never reached generating phase")
		}
		time.Sleep(time.Millisecond)
	}

	s.Reset()
	close(client.blockImage)
	if err := <-done; err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseIdle {
		t.Errorf("expected idle after reset, got %s", snap.Phase)
	}
	if snap.HasImage || snap.HasVideo {
		t.Error("late image result must not be applied to a reset session")
	}
	if snap.Status != "" {
		t.Errorf("expected empty status after reset, got %q", snap.Status)
	}
	if len(client.videoCalls) != 0 {
		t.Errorf("superseded attempt must not start video generation, got %d calls", len(client.videoCalls))
	}
}

func TestResetDuringAssetResolutionReleasesLateHandle(t *testing.T) {
	client := &fakeClient{
		videoURI:       "https://example.com/v.mp4",
		blockResolve:   make(chan struct{}),
		resolveEntered: make(chan struct{}),
	}
	s := newTestSession(client)

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), models.GenerationRequest{Text: "X"})
	}()

	select {
	case <-client.resolveEntered:
	case <-time.After(time.Second):
		t.Fatal("attempt never reached asset resolution")
	}

	s.Reset()
	close(client.blockResolve)
	if err := <-done; err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if client.handle == nil {
		t.Fatal("expected the fake to have produced a handle")
	}
	if !client.handle.Released() {
		t.Error("late video handle must be released when the attempt is superseded")
	}

	snap := s.Snapshot()
	if snap.Phase != models.PhaseIdle || snap.HasVideo {
		t.Errorf("expected a clean idle session after reset, got %+v", snap)
	}
}

func TestRandomStyleFromPresets(t *testing.T) {
	presets := make(map[string]bool, len(StylePresets()))
	for _, p := range StylePresets() {
		presets[p] = true
	}
	for i := 0; i < 20; i++ {
		if !presets[RandomStyle()] {
			t.Fatal("RandomStyle returned a value outside the preset pool")
		}
	}
}
