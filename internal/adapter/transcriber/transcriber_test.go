package transcriber

import (
	"testing"

	"quizly/internal/config"
	"quizly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ValidatesConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantKey string
	}{
		{name: "gemini without key", cfg: config.Config{Transcriber: config.TranscriberConfig{Backend: BackendGemini}}, wantKey: "gemini.api_key"},
		{name: "whisper without key", cfg: config.Config{Transcriber: config.TranscriberConfig{Backend: BackendWhisper}}, wantKey: "openai.api_key"},
		{name: "unknown backend", cfg: config.Config{Transcriber: config.TranscriberConfig{Backend: "vosk"}}, wantKey: "transcriber.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&tt.cfg, zap.NewNop())
			var cfgErr *domain.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestNew_DefersClientCreation(t *testing.T) {
	cfg := &config.Config{
		Transcriber: config.TranscriberConfig{Backend: BackendWhisper, MaxConcurrent: 2},
		OpenAI:      config.OpenAIConfig{APIKey: "sk-test"},
	}
	lazy, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, lazy.backend)
}
