package quizgen

import (
	"context"
	"fmt"

	"quizly/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

const defaultOllamaModel = "llama3.2"

// OllamaQuizGenerator drives a local model through langchaingo.
type OllamaQuizGenerator struct {
	llm         llms.Model
	temperature float64
	logger      *zap.Logger
}

func NewOllamaQuizGenerator(serverURL, model string, temperature float64, logger *zap.Logger) (*OllamaQuizGenerator, error) {
	if serverURL == "" {
		return nil, &domain.ConfigError{Key: "generator.ollama_server_url", Message: "server URL is required for the ollama generator"}
	}
	if model == "" {
		model = defaultOllamaModel
	}
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
	}
	logger.Info("Initializing OllamaQuizGenerator", zap.String("model", model), zap.String("server_url", serverURL))
	return NewOllamaQuizGeneratorWithModel(llm, temperature, logger), nil
}

func NewOllamaQuizGeneratorWithModel(llm llms.Model, temperature float64, logger *zap.Logger) *OllamaQuizGenerator {
	return &OllamaQuizGenerator{llm: llm, temperature: temperature, logger: logger}
}

func (g *OllamaQuizGenerator) Generate(ctx context.Context, transcript string) (*domain.CandidateQuiz, error) {
	raw, err := llms.GenerateFromSinglePrompt(ctx, g.llm, BuildPrompt(transcript),
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		g.logger.Error("Ollama request failed", zap.Error(err))
		return nil, backendError("ollama", err)
	}
	return ParseCandidate(raw)
}
