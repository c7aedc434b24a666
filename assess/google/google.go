// Package google provides a Gemini-backed assessment service.
package google

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mshields/arflow/assess"
)

// Service implements assess.Service using Google's Gemini models for the
// narrative analysis. The limit flags remain the deterministic arithmetic
// from assess.Evaluate; only the narrative comes from the model.
type Service struct {
	apiKey    string
	modelName string
}

// NewService creates a Gemini-backed assessor. An empty modelName selects
// gemini-2.0-flash-001.
func NewService(apiKey, modelName string) *Service {
	if modelName == "" {
		modelName = "gemini-2.0-flash-001"
	}
	return &Service{apiKey: apiKey, modelName: modelName}
}

// Assess implements assess.Service.
func (s *Service) Assess(ctx context.Context, facts assess.Facts) (assess.Assessment, error) {
	a := assess.Evaluate(facts)

	narrative, err := s.generate(ctx, assess.BuildPrompt(facts))
	if err != nil {
		return assess.Assessment{}, err
	}
	a.Narrative = assess.ParseNarrative(narrative)
	return a, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(s.modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}

	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		break
	}
	if text == "" {
		return "", fmt.Errorf("google API returned no text content")
	}
	return text, nil
}
