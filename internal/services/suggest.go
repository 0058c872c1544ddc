package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// SuggestService proposes art-direction styles for a given text. OpenAI is
// preferred when a key is configured; otherwise suggestions fall back to the
// Gemini text model. Suggestion failures never block generation, so errors
// degrade to an empty suggestion.
type SuggestService struct {
	openaiClient *openai.Client
	gemini       *Client
}

// NewSuggestService creates the service. An empty OpenAI key disables the
// preferred provider and routes everything to Gemini.
func NewSuggestService(openaiKey string, gemini *Client) *SuggestService {
	s := &SuggestService{gemini: gemini}
	if openaiKey != "" {
		s.openaiClient = openai.NewClient(openaiKey)
	}
	return s
}

// buildSuggestionPrompt picks the suggestion template for the request mode.
func buildSuggestionPrompt(text string, premium bool) string {
	if premium {
		return fmt.Sprintf(`You are a creative director for a high-end advertising agency.
Suggest a single visual art direction for a product shot of the text %q.
Think premium materials, studio lighting, minimal luxury aesthetics.
Respond with one short descriptive phrase only, no quotes, no preamble.`, text)
	}
	return fmt.Sprintf(`Suggest a single striking visual style for a cinematic image of the text %q.
Respond with one short descriptive phrase only, no quotes, no preamble.`, text)
}

// Suggest returns a style suggestion for the text, or "" when no provider
// could produce one.
func (s *SuggestService) Suggest(ctx context.Context, text string, premium bool) string {
	prompt := buildSuggestionPrompt(text, premium)

	if s.openaiClient != nil {
		suggestion, err := s.suggestWithOpenAI(ctx, prompt)
		if err == nil && suggestion != "" {
			return suggestion
		}
		log.Printf("[Suggest] OpenAI suggestion failed, falling back to Gemini: %v", err)
	}

	if s.gemini != nil {
		suggestion, err := s.gemini.generateText(ctx, prompt)
		if err != nil {
			log.Printf("[Suggest] Gemini suggestion failed: %v", err)
			return ""
		}
		return suggestion
	}

	return ""
}

func (s *SuggestService) suggestWithOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := s.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-5-mini",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
