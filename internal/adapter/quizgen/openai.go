package quizgen

import (
	"context"
	"strings"

	"quizly/internal/domain"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultOpenAIModel = goopenai.GPT4oMini

// OpenAIQuizGenerator works against any OpenAI compatible chat endpoint.
type OpenAIQuizGenerator struct {
	client      *goopenai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

func NewOpenAIQuizGenerator(apiKey, baseURL, model string, temperature float64, logger *zap.Logger) (*OpenAIQuizGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Key: "openai.api_key", Message: "API key is required for the openai generator"}
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	logger.Info("Initializing OpenAIQuizGenerator", zap.String("model", model), zap.String("base_url", cfg.BaseURL))
	return &OpenAIQuizGenerator{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

func (g *OpenAIQuizGenerator) Generate(ctx context.Context, transcript string) (*domain.CandidateQuiz, error) {
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: BuildPrompt(transcript)},
		},
		Temperature: float32(g.temperature),
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		g.logger.Error("OpenAI request failed", zap.String("model", g.model), zap.Error(err))
		return nil, backendError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.GenerationFormatError{Reason: "response has no choices"}
	}
	return ParseCandidate(resp.Choices[0].Message.Content)
}
