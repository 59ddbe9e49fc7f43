package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"quizly/internal/domain"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const defaultWhisperModel = "whisper-1"

// WhisperTranscriber uses the OpenAI audio transcription endpoint.
type WhisperTranscriber struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewWhisperTranscriber disables SDK retries; retry policy lives in the pipeline.
func NewWhisperTranscriber(apiKey, baseURL, model string, logger *zap.Logger) (*WhisperTranscriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Key: "openai.api_key", Message: "API key is required for the whisper transcriber"}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultWhisperModel
	}
	return &WhisperTranscriber{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio *domain.AudioArtifact) (string, error) {
	file, err := os.Open(audio.Path)
	if err != nil {
		return "", &domain.TranscriptionError{Err: err}
	}
	defer func() {
		_ = file.Close()
	}()

	response, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(w.model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", &domain.TranscriptionError{Err: fmt.Errorf("whisper: %w", err)}
	}
	if response == nil {
		return "", &domain.TranscriptionError{Err: errors.New("audio transcriptions API returned nil response")}
	}

	w.logger.Debug("Whisper transcription finished", zap.String("model", w.model), zap.Int("chars", len(response.Text)))
	return strings.TrimSpace(response.Text), nil
}
