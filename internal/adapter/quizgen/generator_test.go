package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizly/internal/config"
	"quizly/internal/domain"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	text   string
	err    error
	config *genai.GenerateContentConfig
}

func (f *fakeGeminiModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}},
	}, nil
}

func TestGeminiQuizGenerator_Generate(t *testing.T) {
	models := &fakeGeminiModels{text: quizJSON(t, 10)}
	g, err := NewGeminiQuizGeneratorWithModels(models, "", 0.2, zap.NewNop())
	require.NoError(t, err)

	candidate, err := g.Generate(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Len(t, candidate.Questions, 10)

	require.NotNil(t, models.config)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.NotNil(t, models.config.ResponseJsonSchema)
	require.NotNil(t, models.config.Temperature)
	assert.InDelta(t, 0.2, *models.config.Temperature, 1e-6)
}

func TestGeminiQuizGenerator_BackendErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "rate limited", err: genai.APIError{Code: 429, Message: "quota"}, transient: true},
		{name: "server error", err: genai.APIError{Code: 503, Message: "unavailable"}, transient: true},
		{name: "bad key", err: genai.APIError{Code: 403, Message: "permission denied"}, transient: false},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), transient: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeminiQuizGeneratorWithModels(&fakeGeminiModels{err: tt.err}, "m", 0, zap.NewNop())
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), "transcript")
			var backendErr *domain.GenerationBackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, "gemini", backendErr.Backend)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestGeminiQuizGenerator_FormatError(t *testing.T) {
	g, err := NewGeminiQuizGeneratorWithModels(&fakeGeminiModels{text: `{"questions": []}`}, "m", 0, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "transcript")
	var formatErr *domain.GenerationFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func newChatServer(t *testing.T, status int, content string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = fmt.Fprintf(w, `{"error":{"message":"%s","type":"error"}}`, http.StatusText(status))
			return
		}
		body := map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIQuizGenerator_Generate(t *testing.T) {
	srv, calls := newChatServer(t, http.StatusOK, "```json\n"+quizJSON(t, 10)+"\n```")
	g, err := NewOpenAIQuizGenerator("sk-test", srv.URL+"/v1", "", 0.2, zap.NewNop())
	require.NoError(t, err)

	candidate, err := g.Generate(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency", candidate.Title)
	assert.Equal(t, 1, *calls)
}

func TestOpenAIQuizGenerator_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, calls := newChatServer(t, tt.status, "")
			g, err := NewOpenAIQuizGenerator("sk-test", srv.URL+"/v1", "m", 0, zap.NewNop())
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), "transcript")
			var backendErr *domain.GenerationBackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, tt.transient, backendErr.Transient())
			assert.Equal(t, 1, *calls, "the generator itself never retries")
		})
	}
}

type fakeLLM struct {
	response string
	err      error
	opts     llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.response}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestOllamaQuizGenerator_Generate(t *testing.T) {
	llm := &fakeLLM{response: "<think>ok</think>" + quizJSON(t, 10)}
	g := NewOllamaQuizGeneratorWithModel(llm, 0.3, zap.NewNop())

	candidate, err := g.Generate(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Len(t, candidate.Questions, 10)
	assert.True(t, llm.opts.JSONMode)
	assert.InDelta(t, 0.3, llm.opts.Temperature, 1e-9)
}

func TestOllamaQuizGenerator_ConnectionRefused(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	g := NewOllamaQuizGeneratorWithModel(&fakeLLM{err: opErr}, 0, zap.NewNop())

	_, err := g.Generate(context.Background(), "transcript")
	var backendErr *domain.GenerationBackendError
	require.ErrorAs(t, err, &backendErr)
	assert.True(t, backendErr.Transient())
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, isTemporary(context.Canceled))
	assert.True(t, isTemporary(&goopenai.APIError{HTTPStatusCode: 500}))
	assert.False(t, isTemporary(&goopenai.APIError{HTTPStatusCode: 404}))
	assert.True(t, isTemporary(errors.New("read tcp: connection reset by peer")))
	assert.False(t, isTemporary(errors.New("invalid api key")))
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		key  string
	}{
		{name: "gemini without key", cfg: config.Config{Generator: config.GeneratorConfig{Backend: BackendGemini}}, key: "gemini.api_key"},
		{name: "openai without key", cfg: config.Config{Generator: config.GeneratorConfig{Backend: BackendOpenAI}}, key: "openai.api_key"},
		{name: "ollama without url", cfg: config.Config{Generator: config.GeneratorConfig{Backend: BackendOllama}}, key: "generator.ollama_server_url"},
		{name: "unknown", cfg: config.Config{Generator: config.GeneratorConfig{Backend: "bard"}}, key: "generator.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(context.Background(), &tt.cfg, zap.NewNop())
			assert.Nil(t, g)
			var cfgErr *domain.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestNew_Ollama(t *testing.T) {
	cfg := &config.Config{Generator: config.GeneratorConfig{Backend: BackendOllama, OllamaServerURL: "http://localhost:11434"}}
	g, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OllamaQuizGenerator{}, g)
}
