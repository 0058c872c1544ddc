package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Veo video generation via the Google Gen AI SDK.
// Generation is asynchronous: StartVideoGeneration returns an operation
// handle that the caller drives to completion through PollOperation
// (see poller.go for the bounded wait loop).
// ---------------------------------------------------------------------------

// VideoRequest starts one video generation. The provider interpolates from a
// generated blank starting frame toward LastFrame, the previously generated
// still, so the text appears to materialize.
type VideoRequest struct {
	Text          string
	Style         string
	Premium       bool
	LastFrame     []byte
	LastFrameMIME string
}

// Operation is a provider long-running operation. Once Done is true the
// operation is terminal and is never polled again.
type Operation struct {
	Name           string
	Done           bool
	VideoURI       string // set when Done and the provider produced a video
	FailureMessage string // set when Done and the provider reported a failure

	raw *genai.GenerateVideosOperation
}

// buildRevealPrompt picks the motion prompt template for the request mode.
func buildRevealPrompt(req VideoRequest) string {
	if req.Premium {
		return fmt.Sprintf(`Ultra-high-end product reveal. The text %q materializes with extreme precision.
Slow camera pan, smooth motion, high-end commercial aesthetic. %s.`, req.Text, req.Style)
	}
	return fmt.Sprintf(`Cinematic transition. The text %q gradually forms and materializes. %s. High quality, 8k.`, req.Text, req.Style)
}

// StartVideoGeneration submits a video generation request and returns its
// operation handle. Fails with ErrGenerationFailed on provider rejection.
func (c *Client) StartVideoGeneration(ctx context.Context, req VideoRequest) (*Operation, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	startFrame, err := c.blankStartFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to build start frame: %w", err)
	}

	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    "16:9",
		LastFrame: &genai.Image{
			ImageBytes: req.LastFrame,
			MIMEType:   req.LastFrameMIME,
		},
	}

	firstFrame := &genai.Image{
		ImageBytes: startFrame,
		MIMEType:   "image/png",
	}

	prompt := buildRevealPrompt(req)
	log.Printf("[Veo] Starting video generation (model=%s, promptLen=%d, lastFrame=%d bytes)", c.videoModel, len(prompt), len(req.LastFrame))

	raw, err := client.Models.GenerateVideos(ctx, c.videoModel, prompt, firstFrame, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	op := operationFromRaw(raw)
	log.Printf("[Veo] Operation started: %s", op.Name)
	return op, nil
}

// PollOperation advances an operation by one provider status check.
// Idempotent for completed operations: a done operation is returned
// unchanged with no network call.
func (c *Client) PollOperation(ctx context.Context, op *Operation) (*Operation, error) {
	if op.Done {
		return op, nil
	}
	if op.raw == nil {
		return nil, fmt.Errorf("operation %s has no provider handle", op.Name)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	raw, err := client.Operations.GetVideosOperation(ctx, op.raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to poll operation: %w", err)
	}

	return operationFromRaw(raw), nil
}

// operationFromRaw converts the SDK operation into the adapter's handle,
// extracting the video URI or the failure payload for completed operations.
func operationFromRaw(raw *genai.GenerateVideosOperation) *Operation {
	op := &Operation{
		Name: raw.Name,
		Done: raw.Done,
		raw:  raw,
	}

	if !raw.Done {
		return op
	}

	if len(raw.Error) > 0 {
		errJSON, _ := json.Marshal(raw.Error)
		op.FailureMessage = string(errJSON)
		return op
	}

	if raw.Response != nil && len(raw.Response.GeneratedVideos) > 0 {
		if video := raw.Response.GeneratedVideos[0].Video; video != nil {
			op.VideoURI = video.URI
		}
	}

	return op
}
