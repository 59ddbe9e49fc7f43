package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizly/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name           string
		db             Pinger
		cacheErr       error
		withCache      bool
		expectedStatus int
		expected       dto.HealthResponse
	}{
		{name: "db only", db: ok, expectedStatus: fiber.StatusOK,
			expected: dto.HealthResponse{Status: "ok", Database: "ok", Redis: "disabled"}},
		{name: "db and redis", db: ok, withCache: true, expectedStatus: fiber.StatusOK,
			expected: dto.HealthResponse{Status: "ok", Database: "ok", Redis: "ok"}},
		{name: "redis down", db: ok, withCache: true, cacheErr: errors.New("dial tcp"), expectedStatus: fiber.StatusServiceUnavailable,
			expected: dto.HealthResponse{Status: "unavailable", Database: "ok", Redis: "unreachable"}},
		{name: "db down", db: down, expectedStatus: fiber.StatusServiceUnavailable,
			expected: dto.HealthResponse{Status: "unavailable", Database: "unreachable", Redis: "disabled"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *HealthHandler
			if tt.withCache {
				c := new(MockCache)
				c.On("Ping", mock.Anything).Return(tt.cacheErr)
				h = NewHealthHandler(tt.db, c)
			} else {
				h = NewHealthHandler(tt.db, nil)
			}
			app := fiber.New()
			app.Get("/health", h.Health)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body dto.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expected, body)
		})
	}
}
