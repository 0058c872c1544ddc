package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums

// SessionPhase is the state of a generation session's state machine.
type SessionPhase string

const (
	PhaseIdle            SessionPhase = "idle"
	PhaseGeneratingImage SessionPhase = "generating_image"
	PhaseGeneratingVideo SessionPhase = "generating_video"
	PhasePlaying         SessionPhase = "playing"
	PhaseError           SessionPhase = "error"
)

// RenderJobStatus tracks a batch render job through its lifecycle.
type RenderJobStatus string

const (
	RenderJobQueued    RenderJobStatus = "queued"
	RenderJobRunning   RenderJobStatus = "running"
	RenderJobSucceeded RenderJobStatus = "succeeded"
	RenderJobFailed    RenderJobStatus = "failed"
)

// Mood selects a color theme for the LofiVisualizer composition.
type Mood string

const (
	MoodChill       Mood = "chill"
	MoodMelancholic Mood = "melancholic"
	MoodDreamy      Mood = "dreamy"
)

// ValidMood reports whether s is one of the supported moods.
func ValidMood(s string) bool {
	switch Mood(s) {
	case MoodChill, MoodMelancholic, MoodDreamy:
		return true
	}
	return false
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

// GenerationRequest is one user submission to the generation orchestrator.
// Immutable once submitted; consumed once per generation attempt.
type GenerationRequest struct {
	Text       string `json:"text"`
	Style      string `json:"style,omitempty"`      // empty = pick a random preset at submit
	Typography string `json:"typography,omitempty"` // free text or a preset prompt

	// Premium switches to the declarative composition path: the generated
	// image becomes a composition background and no remote video is requested.
	Premium bool `json:"premium,omitempty"`

	ReferenceImage     []byte `json:"-"`
	ReferenceImageMIME string `json:"-"`
}

// RenderJobRequest is the input to the render pipeline, either from the
// synchronous /render endpoint or dequeued by the batch worker.
type RenderJobRequest struct {
	JobID           string                 `json:"job_id"`
	CompositionID   string                 `json:"composition_id"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
	DurationSeconds float64                `json:"duration_seconds,omitempty"` // 0 = use the composition default
}

// RenderJobResult is the successful outcome of a render job.
type RenderJobResult struct {
	VideoURI        string  `json:"video_uri"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RenderJobRecord is the persisted state of a batch render job.
type RenderJobRecord struct {
	ID              uuid.UUID       `json:"id"`
	CompositionID   string          `json:"composition_id"`
	Parameters      JSONB           `json:"parameters,omitempty"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	Status          RenderJobStatus `json:"status"`
	Stage           *string         `json:"stage,omitempty"` // failure stage, when failed
	VideoURI        *string         `json:"video_uri,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// API request/response types

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	JobID           string  `json:"jobId"`
	Title           string  `json:"title"`
	Mood            string  `json:"mood"`
	AudioURL        *string `json:"audioUrl,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// RenderResponse is the body of the POST /render response.
type RenderResponse struct {
	Success  bool    `json:"success"`
	VideoURL string  `json:"videoUrl,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Text       string `json:"text"`
	Style      string `json:"style,omitempty"`
	Typography string `json:"typography,omitempty"`
	Premium    bool   `json:"premium,omitempty"`
}

// GenerateResponse reports the outcome of a synchronous generation.
type GenerateResponse struct {
	Phase           SessionPhase `json:"phase"`
	Status          string       `json:"status,omitempty"`
	Style           string       `json:"style,omitempty"`
	ImageURL        string       `json:"imageUrl,omitempty"`
	VideoURL        string       `json:"videoUrl,omitempty"`
	Error           string       `json:"error,omitempty"`
	KeyPromptRaised bool         `json:"keyPromptRaised,omitempty"`
}

// SuggestRequest is the body of POST /v1/suggest.
type SuggestRequest struct {
	Text    string `json:"text"`
	Premium bool   `json:"premium,omitempty"`
}

// SuggestResponse carries the proposed art-direction style.
type SuggestResponse struct {
	Suggestion string `json:"suggestion"`
}

// BatchRenderRequest enqueues a set of render jobs for background processing.
type BatchRenderRequest struct {
	Jobs []RenderRequest `json:"jobs"`
}

// BatchRenderResponse reports the job IDs accepted for background rendering.
type BatchRenderResponse struct {
	JobIDs []uuid.UUID `json:"jobIds"`
}
