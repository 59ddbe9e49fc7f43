package transcriber

import (
	"context"
	"fmt"

	"quizly/internal/config"
	"quizly/internal/domain"

	"go.uber.org/zap"
)

const (
	BackendGemini  = "gemini"
	BackendWhisper = "whisper"
)

// New validates the transcriber configuration now and defers client creation
// to the first Transcribe call.
func New(cfg *config.Config, logger *zap.Logger) (*Lazy, error) {
	var factory Factory
	switch cfg.Transcriber.Backend {
	case BackendGemini, "":
		if cfg.Gemini.APIKey == "" {
			return nil, &domain.ConfigError{Key: "gemini.api_key", Message: "required by transcriber.backend=gemini"}
		}
		factory = func(ctx context.Context) (domain.Transcriber, error) {
			return NewGeminiTranscriber(ctx, cfg.Gemini.APIKey, cfg.Transcriber.Model, logger)
		}
	case BackendWhisper:
		if cfg.OpenAI.APIKey == "" {
			return nil, &domain.ConfigError{Key: "openai.api_key", Message: "required by transcriber.backend=whisper"}
		}
		factory = func(context.Context) (domain.Transcriber, error) {
			return NewWhisperTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Transcriber.Model, logger)
		}
	default:
		return nil, &domain.ConfigError{Key: "transcriber.backend", Message: fmt.Sprintf("unknown backend %q", cfg.Transcriber.Backend)}
	}
	return NewLazy(factory, cfg.Transcriber.MaxConcurrent, logger.Named("transcriber")), nil
}
