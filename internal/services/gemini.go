package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ---------------------------------------------------------------------------
// Image generation over the Gemini REST API.
// The image endpoint is called directly over HTTP; the Gen AI SDK is used
// only for video operations (see veo.go), which need its operation types.
// ---------------------------------------------------------------------------

// ImageRequest carries one image generation call.
type ImageRequest struct {
	Text       string
	Style      string
	Typography string
	Premium    bool

	ReferenceImage []byte // optional style/lighting reference
	ReferenceMIME  string
}

// ImageResult is the generated still.
type ImageResult struct {
	Data     []byte
	MIMEType string
}

// DataURI renders the image as an inline data URI, the form the composition
// registry consumes for background parameters.
func (r *ImageResult) DataURI() string {
	return "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// LegacyPremiumStyle reports whether a free-text style reads like a premium
// art-direction prompt. This is a legacy heuristic kept for compatibility
// with prompts written before the explicit premium flag existed; new callers
// should set the flag instead of relying on the sniff.
func LegacyPremiumStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.Contains(s, "phase one") || strings.Contains(s, "minimal luxury")
}

// buildImagePrompt selects the prompt template. Template choice is a pure
// function of the request: premium requests get the executive advertising
// template, everything else the standard cinematic one.
func buildImagePrompt(req ImageRequest) string {
	typo := strings.TrimSpace(req.Typography)
	if typo == "" {
		typo = "High-quality, creative typography that perfectly matches the visual environment. Legible and artistic."
	}

	if req.Premium {
		return fmt.Sprintf(`Executive advertising mode: create an ultra-high-end advertising visual.
Camera: Phase One IQ4 150MP (16K detail).
Lighting: Scandinavian diffused light, color-accurate.
Subject: The text %q rendered as a physical product/material.
Style: %s.
Background: Pure white #FFFFFF unless specified.
Typography: %s.`, req.Text, req.Style, typo)
	}

	return fmt.Sprintf(`A hyper-realistic, cinematic image featuring the text %q.
Typography: %s.
Visual Style: %s.
Dramatic lighting, 8k resolution, detailed texture.`, req.Text, typo, req.Style)
}

// Gemini API request/response structures
type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateImage generates a single 16:9 still for the request text.
// Fails with ErrGenerationFailed when the provider returns no image payload.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	promptText := buildImagePrompt(req)

	var parts []geminiPart
	if len(req.ReferenceImage) > 0 {
		mime := req.ReferenceMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: mime,
				Data:     base64.StdEncoding.EncodeToString(req.ReferenceImage),
			},
		})
		promptText += " Use the reference image for lighting, color palette, and mood."
	}
	parts = append(parts, geminiPart{Text: promptText})

	reqBody := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig: &geminiImageConfig{
				AspectRatio: "16:9",
				ImageSize:   "1K",
			},
		},
	}

	resp, err := c.doGenerateContent(ctx, c.imageModel, reqBody)
	if err != nil {
		return nil, err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 image: %w", err)
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &ImageResult{Data: data, MIMEType: mime}, nil
		}
	}

	return nil, fmt.Errorf("%w: no image generated", ErrGenerationFailed)
}

// generateText runs a plain text generation call (used for art-direction
// suggestions). Returns the first text part of the first candidate.
func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}

	resp, err := c.doGenerateContent(ctx, c.textModel, reqBody)
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return strings.TrimSpace(part.Text), nil
		}
	}
	return "", fmt.Errorf("%w: no text in response", ErrGenerationFailed)
}

func (c *Client) doGenerateContent(ctx context.Context, model string, reqBody geminiGenerateContentRequest) (*geminiGenerateContentResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey())
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed geminiGenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", ErrGenerationFailed)
	}

	return &parsed, nil
}
