// Package openai provides a GPT-backed assessment service.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/mshields/arflow/assess"
)

// Service implements assess.Service using OpenAI's chat completions for the
// narrative analysis. The limit flags remain the deterministic arithmetic
// from assess.Evaluate; only the narrative comes from the model.
type Service struct {
	client    *openai.Client
	modelName string
}

// NewService creates a GPT-backed assessor. An empty modelName selects
// gpt-4o-mini.
func NewService(apiKey, modelName string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Service{client: &client, modelName: modelName}, nil
}

// Assess implements assess.Service.
func (s *Service) Assess(ctx context.Context, facts assess.Facts) (assess.Assessment, error) {
	a := assess.Evaluate(facts)

	if err := ctx.Err(); err != nil {
		return assess.Assessment{}, err
	}

	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(assess.BuildPrompt(facts)),
					},
				},
			},
		},
	})
	if err != nil {
		return assess.Assessment{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return assess.Assessment{}, fmt.Errorf("openai API returned no choices")
	}

	a.Narrative = assess.ParseNarrative(completion.Choices[0].Message.Content)
	return a, nil
}
