package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/models"
	"github.com/geoken/typemotion/internal/services"
)

// ErrCredentialMissing is returned when no usable API key is available at
// submit time. The session raises a key-selection prompt and stays in its
// current phase.
var ErrCredentialMissing = errors.New("no usable API credential")

// AIClient is the generation backend the orchestrator drives.
type AIClient interface {
	GenerateImage(ctx context.Context, req services.ImageRequest) (*services.ImageResult, error)
	StartVideoGeneration(ctx context.Context, req services.VideoRequest) (*services.Operation, error)
	PollOperation(ctx context.Context, op *services.Operation) (*services.Operation, error)
	ResolveVideoAsset(ctx context.Context, uri string) (*services.VideoHandle, error)
}

// Session owns the orchestration state for one in-flight generation. All
// state is mutated under the session mutex; async completions are applied
// through the attempt counter so a reset or a newer submit invalidates
// results from superseded attempts.
type Session struct {
	client   AIClient
	creds    CredentialProvider
	registry *composition.Registry

	PollInterval time.Duration
	MaxWait      time.Duration

	mu        sync.Mutex
	attempt   uint64
	phase     models.SessionPhase
	style     string
	status    string
	errDetail string
	keyPrompt bool
	image     *services.ImageResult
	video     *services.VideoHandle
	comp      *composition.Bound
}

// NewSession creates an idle session.
func NewSession(client AIClient, creds CredentialProvider, registry *composition.Registry) *Session {
	return &Session{
		client:       client,
		creds:        creds,
		registry:     registry,
		PollInterval: services.DefaultPollInterval,
		MaxWait:      services.DefaultMaxWait,
		phase:        models.PhaseIdle,
	}
}

// Snapshot is a point-in-time copy of the externally visible session state.
type Snapshot struct {
	Phase           models.SessionPhase
	Status          string
	Style           string
	ErrorDetail     string
	KeyPromptRaised bool
	HasImage        bool
	HasVideo        bool
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:           s.phase,
		Status:          s.status,
		Style:           s.style,
		ErrorDetail:     s.errDetail,
		KeyPromptRaised: s.keyPrompt,
		HasImage:        s.image != nil,
		HasVideo:        s.video != nil,
	}
}

// Image returns the generated still, or nil.
func (s *Session) Image() *services.ImageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Video returns the resolved video handle, or nil.
func (s *Session) Video() *services.VideoHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}

// Composition returns the bound composition for premium results, or nil.
func (s *Session) Composition() *composition.Bound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp
}

// Submit starts a generation attempt and drives it to a terminal phase.
// A submit while a previous attempt is still generating is a no-op. A submit
// without a usable credential raises the key-selection prompt and fails with
// ErrCredentialMissing without changing phase.
func (s *Session) Submit(ctx context.Context, req models.GenerationRequest) error {
	s.mu.Lock()

	if s.phase == models.PhaseGeneratingImage || s.phase == models.PhaseGeneratingVideo {
		s.mu.Unlock()
		return nil
	}

	if !s.creds.HasUsableKey() {
		s.keyPrompt = true
		s.mu.Unlock()
		return ErrCredentialMissing
	}

	s.releaseLocked()
	s.attempt++
	attempt := s.attempt

	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = RandomStyle()
	}
	s.style = style
	s.keyPrompt = false
	s.errDetail = ""
	s.phase = models.PhaseGeneratingImage
	s.status = fmt.Sprintf("Designing %q...", req.Text)
	s.mu.Unlock()

	return s.run(ctx, attempt, req, style)
}

// Reset returns the session to idle and discards all attempt artifacts.
// Any in-flight attempt is invalidated; its results are dropped on arrival.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt++
	s.releaseLocked()
	s.phase = models.PhaseIdle
	s.status = ""
	s.errDetail = ""
	s.keyPrompt = false
}

// run executes one attempt. Every state write after an await point goes
// through ifCurrent so a superseding submit or reset wins the race.
func (s *Session) run(ctx context.Context, attempt uint64, req models.GenerationRequest, style string) error {
	premium := req.Premium || services.LegacyPremiumStyle(style)

	image, err := s.client.GenerateImage(ctx, services.ImageRequest{
		Text:           req.Text,
		Style:          style,
		Typography:     req.Typography,
		Premium:        premium,
		ReferenceImage: req.ReferenceImage,
		ReferenceMIME:  req.ReferenceImageMIME,
	})
	if err != nil {
		s.fail(attempt, err)
		return err
	}

	if premium {
		comp, resolveErr := s.registry.Resolve("MatteSciFi", map[string]interface{}{
			"title":           req.Text,
			"subtitle":        truncate50(style),
			"backgroundImage": image.DataURI(),
		})
		if resolveErr != nil {
			s.fail(attempt, resolveErr)
			return resolveErr
		}
		s.ifCurrent(attempt, func() {
			s.image = image
			s.comp = comp
			s.phase = models.PhasePlaying
			s.status = "Render Ready."
		})
		return nil
	}

	applied := s.ifCurrent(attempt, func() {
		s.image = image
		s.phase = models.PhaseGeneratingVideo
		s.status = "Animating..."
	})
	if !applied {
		return nil
	}

	op, err := s.client.StartVideoGeneration(ctx, services.VideoRequest{
		Text:          req.Text,
		Style:         style,
		Premium:       premium,
		LastFrame:     image.Data,
		LastFrameMIME: image.MIMEType,
	})
	if err != nil {
		s.fail(attempt, err)
		return err
	}

	op, err = services.AwaitCompletion(ctx, s.client.PollOperation, op, s.PollInterval, s.MaxWait)
	if err != nil {
		s.fail(attempt, err)
		return err
	}

	if op.FailureMessage != "" {
		err = fmt.Errorf("%w: %s", services.ErrGenerationFailed, op.FailureMessage)
		s.fail(attempt, err)
		return err
	}
	if op.VideoURI == "" {
		err = fmt.Errorf("%w: operation completed without a video", services.ErrGenerationFailed)
		s.fail(attempt, err)
		return err
	}

	handle, err := s.client.ResolveVideoAsset(ctx, op.VideoURI)
	if err != nil {
		s.fail(attempt, err)
		return err
	}

	applied = s.ifCurrent(attempt, func() {
		s.video = handle
		s.phase = models.PhasePlaying
		s.status = "Done."
	})
	if !applied {
		handle.Release()
	}
	return nil
}

// ifCurrent applies fn under the lock only when attempt is still the live
// attempt. Reports whether fn ran.
func (s *Session) ifCurrent(attempt uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt {
		return false
	}
	fn()
	return true
}

// fail classifies an attempt failure. A not-found signature means the
// credential or model is unusable: the session returns to idle with a
// key-selection prompt instead of entering the error phase.
func (s *Session) fail(attempt uint64, err error) {
	applied := s.ifCurrent(attempt, func() {
		if isCredentialNotFound(err) {
			s.phase = models.PhaseIdle
			s.status = ""
			s.errDetail = ""
			s.keyPrompt = true
			return
		}
		s.phase = models.PhaseError
		s.status = ""
		s.errDetail = err.Error()
	})
	if applied {
		log.Printf("[Orchestrator] Attempt %d failed: %v", attempt, err)
	}
}

// isCredentialNotFound sniffs the provider's not-found signature out of the
// raw message. Brittle by nature: the provider gives no structured code for
// this case, so the literal substrings are the only available signal.
func isCredentialNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Requested entity was not found") || strings.Contains(msg, "404")
}

// releaseLocked drops attempt artifacts. Caller holds the mutex.
func (s *Session) releaseLocked() {
	if s.video != nil {
		s.video.Release()
		s.video = nil
	}
	s.image = nil
	s.comp = nil
}

func truncate50(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50])
}
