// Package anthropic provides a Claude-backed assessment service.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mshields/arflow/assess"
)

// Service implements assess.Service using Anthropic's Claude API for the
// narrative analysis. The limit flags remain the deterministic arithmetic
// from assess.Evaluate; only the narrative comes from the model.
//
// Safe for concurrent use; the underlying SDK client handles concurrent
// requests.
type Service struct {
	client    *anthropic.Client
	modelName string
}

// NewService creates a Claude-backed assessor. An empty modelName selects
// claude-3-5-sonnet-20241022.
func NewService(apiKey, modelName string) *Service {
	if modelName == "" {
		modelName = "claude-3-5-sonnet-20241022"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Service{client: &client, modelName: modelName}
}

// Assess implements assess.Service.
func (s *Service) Assess(ctx context.Context, facts assess.Facts) (assess.Assessment, error) {
	a := assess.Evaluate(facts)

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.modelName),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(assess.BuildPrompt(facts))),
		},
	})
	if err != nil {
		return assess.Assessment{}, fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return assess.Assessment{}, fmt.Errorf("anthropic API returned no text content")
	}

	a.Narrative = assess.ParseNarrative(text)
	return a, nil
}
