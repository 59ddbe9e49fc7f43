package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quizly/internal/adapter"
	"quizly/internal/config"
	"quizly/internal/database"
	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/handler"
	"quizly/internal/middleware"
	"quizly/internal/repository"
	"quizly/internal/service"
	"quizly/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is an in-process domain.Cache standing in for Redis.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, videoURL string) (*domain.AudioArtifact, error) {
	if videoURL == "https://youtu.be/unavailable" {
		return nil, &domain.FetchError{URL: videoURL, Kind: domain.FetchNotFound, Err: errors.New("Video unavailable")}
	}
	return domain.NewAudioArtifact("/tmp/fake.m4a", "", 3*time.Minute, func() error { return nil }), nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, *domain.AudioArtifact) (string, error) {
	return "A talk about HTTP methods.", nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(context.Context, string) (*domain.CandidateQuiz, error) {
	quiz := &domain.CandidateQuiz{Title: "HTTP methods", Description: "Verbs and their semantics."}
	for i := 0; i < domain.QuestionsPerQuiz; i++ {
		quiz.Questions = append(quiz.Questions, domain.QuestionCandidate{
			Prompt:        fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"GET", "POST", "PUT", "DELETE"},
			CorrectAnswer: "POST",
		})
	}
	return quiz, nil
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{
		DB:     config.DBConfig{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "api_test.db")},
		Server: config.ServerConfig{Debug: true, AllowedOrigins: "*"},
		JWT: config.JWTConfig{
			SecretKey:       "integration-test-secret-key-32-bytes-min",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
	}

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.Up))

	cacheAdapter := &memoryCache{items: map[string]string{}}
	authService, err := service.NewAuthService(repository.NewSQLXUserRepository(db), adapter.NewCacheTokenBlacklist(cacheAdapter), cfg.JWT)
	require.NoError(t, err)

	pipeline := service.NewPipeline(fakeFetcher{}, fakeTranscriber{}, fakeGenerator{}, validation.NewQuizValidator(),
		service.WithRetryPolicy(service.RetryPolicy{MaxRetries: 0}))
	quizService := service.NewQuizService(pipeline, repository.NewSQLXQuizRepository(db), repository.NewTransactionManagerAdapter(db))

	return newApp(context.Background(), cfg, routeHandlers{
		auth:      handler.NewAuthHandler(authService, cfg),
		quiz:      handler.NewQuizHandler(quizService),
		health:    handler.NewHealthHandler(db, cacheAdapter),
		validator: authService,
	})
}

type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, cookie := range resp.Cookies() {
		if cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return resp
}

func (c *client) registerAndLogin(username string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/register", dto.RegisterRequest{
		Username: username, Email: username + "@example.com", Password: "pw-" + username, ConfirmedPassword: "pw-" + username,
	})
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode)

	resp = c.do(http.MethodPost, "/api/login", dto.LoginRequest{Username: username, Password: "pw-" + username})
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode)
	require.Contains(c.t, c.cookies, middleware.AccessTokenCookie)
	require.Contains(c.t, c.cookies, middleware.RefreshTokenCookie)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	resp := newClient(t, app).do(http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decode[dto.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
}

func TestQuizLifecycle(t *testing.T) {
	app := setupTestApp(t)
	alice := newClient(t, app)
	alice.registerAndLogin("alice")

	resp := alice.do(http.MethodPost, "/api/createQuiz", dto.CreateQuizRequest{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode[dto.QuizResponse](t, resp)
	require.Len(t, created.Questions, 10)
	assert.Equal(t, "HTTP methods", created.Title)
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE"}, created.Questions[3].QuestionOptions)
	assert.Equal(t, "POST", created.Questions[3].Answer)

	resp = alice.do(http.MethodGet, "/api/quizzes", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[[]dto.QuizResponse](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	resp = alice.do(http.MethodPatch, "/api/quizzes/"+created.ID, map[string]string{"title": "Renamed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", decode[dto.QuizResponse](t, resp).Title)

	resp = alice.do(http.MethodGet, "/api/quizzes/"+created.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	fetched := decode[dto.QuizResponse](t, resp)
	assert.Equal(t, "Renamed", fetched.Title)
	assert.Len(t, fetched.Questions, 10)

	// someone else's quiz
	bob := newClient(t, app)
	bob.registerAndLogin("bob")
	resp = bob.do(http.MethodGet, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = bob.do(http.MethodDelete, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = alice.do(http.MethodDelete, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp = alice.do(http.MethodGet, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateQuiz_Failures(t *testing.T) {
	app := setupTestApp(t)
	alice := newClient(t, app)

	resp := alice.do(http.MethodPost, "/api/createQuiz", dto.CreateQuizRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	alice.registerAndLogin("alice")
	resp = alice.do(http.MethodPost, "/api/createQuiz", dto.CreateQuizRequest{URL: "https://vimeo.com/42"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = alice.do(http.MethodPost, "/api/createQuiz", dto.CreateQuizRequest{URL: "https://youtu.be/unavailable"})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Quiz generation failed.", decode[middleware.ErrorResponse](t, resp).Message)

	resp = alice.do(http.MethodGet, "/api/quizzes", nil)
	assert.Empty(t, decode[[]dto.QuizResponse](t, resp))
}

func TestRefreshAndLogout(t *testing.T) {
	app := setupTestApp(t)
	alice := newClient(t, app)
	alice.registerAndLogin("alice")
	refreshCookie := alice.cookies[middleware.RefreshTokenCookie]

	resp := alice.do(http.MethodPost, "/api/token/refresh", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.RefreshResponse](t, resp).Access)

	resp = alice.do(http.MethodPost, "/api/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, alice.cookies, middleware.AccessTokenCookie)

	// the old refresh token is blacklisted now
	alice.cookies[middleware.RefreshTokenCookie] = refreshCookie
	resp = alice.do(http.MethodPost, "/api/token/refresh", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Refresh token invalid!", decode[dto.DetailResponse](t, resp).Detail)
}

func TestRegister_Duplicate(t *testing.T) {
	app := setupTestApp(t)
	alice := newClient(t, app)
	alice.registerAndLogin("alice")

	resp := alice.do(http.MethodPost, "/api/register", dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "x", ConfirmedPassword: "x",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[middleware.ValidationErrorResponse](t, resp)
	assert.Len(t, body.Errors, 2)
}
