package quizgen

import (
	"context"
	"fmt"

	"quizly/internal/config"
	"quizly/internal/domain"

	"go.uber.org/zap"
)

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// New builds the configured generator. Missing credentials fail here with a
// *domain.ConfigError so the process refuses to start.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.QuizGenerator, error) {
	gen := cfg.Generator
	logger = logger.Named("quizgen")
	switch gen.Backend {
	case BackendGemini, "":
		return asGenerator(NewGeminiQuizGenerator(ctx, cfg.Gemini.APIKey, gen.Model, gen.Temperature, logger))
	case BackendOpenAI:
		return asGenerator(NewOpenAIQuizGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, gen.Model, gen.Temperature, logger))
	case BackendOllama:
		return asGenerator(NewOllamaQuizGenerator(gen.OllamaServerURL, gen.Model, gen.Temperature, logger))
	default:
		return nil, &domain.ConfigError{Key: "generator.backend", Message: fmt.Sprintf("unknown backend %q", gen.Backend)}
	}
}

// asGenerator keeps a typed nil pointer out of the interface on error.
func asGenerator[T domain.QuizGenerator](g T, err error) (domain.QuizGenerator, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
