package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/db"
	"github.com/geoken/typemotion/internal/models"
	"github.com/geoken/typemotion/internal/orchestrator"
	"github.com/geoken/typemotion/internal/queue"
	"github.com/geoken/typemotion/internal/render"
	"github.com/geoken/typemotion/internal/services"
	"github.com/geoken/typemotion/internal/storage"
)

const serviceName = "typemotion-render"

// SessionFactory builds a fresh orchestration session per generation call.
type SessionFactory func() *orchestrator.Session

type Handler struct {
	pipeline   *render.Pipeline
	registry   *composition.Registry
	suggest    *services.SuggestService
	storage    *storage.Storage
	newSession SessionFactory

	// Optional batch infrastructure; nil when the worker is disabled.
	db    *db.DB
	queue *queue.Queue
}

func NewHandler(
	pipeline *render.Pipeline,
	registry *composition.Registry,
	suggest *services.SuggestService,
	stor *storage.Storage,
	newSession SessionFactory,
	database *db.DB,
	q *queue.Queue,
) *Handler {
	return &Handler{
		pipeline:   pipeline,
		registry:   registry,
		suggest:    suggest,
		storage:    stor,
		newSession: newSession,
		db:         database,
		queue:      q,
	}
}

// Health handles GET /
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

// Render handles POST /render: one synchronous render job.
// Failures always carry {success:false, error} so callers never have to
// parse a bare status code.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondRenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.JobID == "" {
		respondRenderError(w, http.StatusBadRequest, "jobId is required")
		return
	}
	if req.Mood != "" && !models.ValidMood(req.Mood) {
		respondRenderError(w, http.StatusBadRequest, "Unknown mood: "+req.Mood)
		return
	}

	params := map[string]interface{}{
		"title": req.Title,
	}
	if req.Mood != "" {
		params["mood"] = req.Mood
	}
	if req.AudioURL != nil {
		params["audioUrl"] = *req.AudioURL
	}

	result, err := h.pipeline.RunJob(r.Context(), models.RenderJobRequest{
		JobID:           req.JobID,
		CompositionID:   "LofiVisualizer",
		Parameters:      params,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		respondRenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.RenderResponse{
		Success:  true,
		VideoURL: result.VideoURI,
		Duration: result.DurationSeconds,
	})
}

// BatchRender handles POST /v1/render/batch: enqueues jobs for the worker.
func (h *Handler) BatchRender(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Batch rendering is not enabled")
		return
	}

	var req models.BatchRenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Jobs) == 0 {
		respondError(w, http.StatusBadRequest, "No jobs provided")
		return
	}

	jobIDs := make([]uuid.UUID, 0, len(req.Jobs))
	for _, jobReq := range req.Jobs {
		if jobReq.Mood != "" && !models.ValidMood(jobReq.Mood) {
			respondError(w, http.StatusBadRequest, "Unknown mood: "+jobReq.Mood)
			return
		}

		params := models.JSONB{"title": jobReq.Title}
		if jobReq.Mood != "" {
			params["mood"] = jobReq.Mood
		}
		if jobReq.AudioURL != nil {
			params["audioUrl"] = *jobReq.AudioURL
		}

		record := &models.RenderJobRecord{
			ID:            uuid.New(),
			CompositionID: "LofiVisualizer",
			Parameters:    params,
			Status:        models.RenderJobQueued,
		}
		if jobReq.DurationSeconds > 0 {
			d := jobReq.DurationSeconds
			record.DurationSeconds = &d
		}

		if err := h.db.CreateRenderJob(r.Context(), record); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create render job")
			return
		}
		if err := h.queue.EnqueueRenderJob(r.Context(), record.ID, record.CompositionID, params, jobReq.DurationSeconds); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to enqueue render job")
			return
		}
		jobIDs = append(jobIDs, record.ID)
	}

	respondJSON(w, http.StatusAccepted, models.BatchRenderResponse{JobIDs: jobIDs})
}

// GetRenderJob handles GET /v1/render/jobs/{id}
func (h *Handler) GetRenderJob(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, "Batch rendering is not enabled")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetRenderJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Render job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// ListCompositions handles GET /v1/compositions
func (h *Handler) ListCompositions(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.IDs()
	specs := make([]composition.Spec, 0, len(ids))
	for _, id := range ids {
		if spec, ok := h.registry.Get(id); ok {
			specs = append(specs, spec)
		}
	}
	respondJSON(w, http.StatusOK, specs)
}

// ListStylePresets handles GET /v1/presets/styles
func (h *Handler) ListStylePresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orchestrator.StylePresets())
}

// ListTypographyPresets handles GET /v1/presets/typography
func (h *Handler) ListTypographyPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orchestrator.TypographyPresets())
}

// Suggest handles POST /v1/suggest
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	suggestion := h.suggest.Suggest(r.Context(), req.Text, req.Premium)
	respondJSON(w, http.StatusOK, models.SuggestResponse{Suggestion: suggestion})
}

// Generate handles POST /v1/generate: a full synchronous generation run.
// Artifacts are uploaded to storage so the response can reference them after
// the session releases its local handles.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	session := h.newSession()
	defer session.Reset()

	err := session.Submit(r.Context(), models.GenerationRequest{
		Text:       req.Text,
		Style:      req.Style,
		Typography: req.Typography,
		Premium:    req.Premium,
	})
	if errors.Is(err, orchestrator.ErrCredentialMissing) {
		respondError(w, http.StatusServiceUnavailable, "No API credential configured")
		return
	}

	snap := session.Snapshot()
	resp := models.GenerateResponse{
		Phase:           snap.Phase,
		Status:          snap.Status,
		Style:           snap.Style,
		Error:           snap.ErrorDetail,
		KeyPromptRaised: snap.KeyPromptRaised,
	}

	runID := uuid.New().String()
	if image := session.Image(); image != nil && h.storage != nil {
		objectPath := "generated/" + runID + "/image.png"
		if upErr := h.storage.Upload(r.Context(), objectPath, image.Data, image.MIMEType); upErr == nil {
			resp.ImageURL = h.storage.ObjectURI(objectPath)
		}
	}
	if video := session.Video(); video != nil && !video.Released() && h.storage != nil {
		objectPath := "generated/" + runID + "/video.mp4"
		if upErr := h.storage.Upload(r.Context(), objectPath, video.Data, video.ContentType); upErr == nil {
			resp.VideoURL = h.storage.ObjectURI(objectPath)
		}
	}

	status := http.StatusOK
	if snap.Phase == models.PhaseError {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, resp)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondRenderError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.RenderResponse{Success: false, Error: message})
}
