package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizly/internal/domain"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiModels is the part of *genai.Models the generator uses.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiQuizGenerator asks Gemini for JSON constrained by the quiz schema.
type GeminiQuizGenerator struct {
	models      GeminiModels
	model       string
	temperature float64
	schema      map[string]any
	logger      *zap.Logger
}

func NewGeminiQuizGenerator(ctx context.Context, apiKey, model string, temperature float64, logger *zap.Logger) (*GeminiQuizGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Key: "gemini.api_key", Message: "API key is required for the gemini generator"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewGeminiQuizGeneratorWithModels(client.Models, model, temperature, logger)
}

func NewGeminiQuizGeneratorWithModels(models GeminiModels, model string, temperature float64, logger *zap.Logger) (*GeminiQuizGenerator, error) {
	schema, err := quizResponseSchema()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiModel
	}
	logger.Info("Initializing GeminiQuizGenerator", zap.String("model", model))
	return &GeminiQuizGenerator{
		models:      models,
		model:       model,
		temperature: temperature,
		schema:      schema,
		logger:      logger,
	}, nil
}

func (g *GeminiQuizGenerator) Generate(ctx context.Context, transcript string) (*domain.CandidateQuiz, error) {
	config := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr(float32(g.temperature)),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: g.schema,
	}

	response, err := g.models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(transcript)), config)
	if err != nil {
		g.logger.Error("Gemini request failed", zap.String("model", g.model), zap.Error(err))
		return nil, backendError("gemini", err)
	}
	if response == nil {
		return nil, backendError("gemini", errors.New("nil response"))
	}

	raw := response.Text()
	g.logger.Debug("Raw Gemini response received", zap.Int("chars", len(raw)))
	return ParseCandidate(raw)
}
