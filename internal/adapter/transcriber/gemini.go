package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"quizly/internal/domain"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	transcriptionPrompt = "Transcribe this audio accurately. Return only the transcript text."
	// Requests above this size must go through the Files API.
	maxInlineAudioBytes = 18 << 20
)

// GeminiModels is the part of *genai.Models the transcriber uses.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiFiles is the part of *genai.Files the transcriber uses.
type GeminiFiles interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// GeminiTranscriber sends audio to a Gemini model with a transcription prompt.
// Small files are sent inline, larger ones are uploaded first.
type GeminiTranscriber struct {
	models      GeminiModels
	files       GeminiFiles
	model       string
	inlineLimit int64
	logger      *zap.Logger
}

func NewGeminiTranscriber(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiTranscriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Key: "gemini.api_key", Message: "API key is required for the gemini transcriber"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewGeminiTranscriberWithClients(client.Models, client.Files, model, logger), nil
}

func NewGeminiTranscriberWithClients(models GeminiModels, files GeminiFiles, model string, logger *zap.Logger) *GeminiTranscriber {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiTranscriber{
		models:      models,
		files:       files,
		model:       model,
		inlineLimit: maxInlineAudioBytes,
		logger:      logger,
	}
}

func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio *domain.AudioArtifact) (string, error) {
	info, err := os.Stat(audio.Path)
	if err != nil {
		return "", &domain.TranscriptionError{Err: err}
	}

	var audioPart *genai.Part
	if info.Size() <= g.inlineLimit || g.files == nil {
		audioBytes, err := os.ReadFile(audio.Path)
		if err != nil {
			return "", &domain.TranscriptionError{Err: err}
		}
		audioPart = genai.NewPartFromBytes(audioBytes, audio.MIMEType)
	} else {
		file, err := g.files.UploadFromPath(ctx, audio.Path, &genai.UploadFileConfig{MIMEType: audio.MIMEType})
		if err != nil {
			return "", &domain.TranscriptionError{Err: fmt.Errorf("upload audio: %w", err)}
		}
		defer func() {
			if _, delErr := g.files.Delete(context.WithoutCancel(ctx), file.Name, nil); delErr != nil {
				g.logger.Warn("Failed to delete uploaded audio", zap.String("file", file.Name), zap.Error(delErr))
			}
		}()
		audioPart = genai.NewPartFromURI(file.URI, file.MIMEType)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(transcriptionPrompt),
				audioPart,
			},
			genai.RoleUser,
		),
	}

	response, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", &domain.TranscriptionError{Err: fmt.Errorf("gemini: %w", err)}
	}
	if response == nil {
		return "", &domain.TranscriptionError{Err: errors.New("gemini returned nil response")}
	}

	transcript := strings.TrimSpace(response.Text())
	g.logger.Debug("Gemini transcription finished",
		zap.String("model", g.model),
		zap.Int("chars", len(transcript)))
	return transcript, nil
}
