package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Manual mock for middleware.TokenValidator
type mockTokenValidator struct {
	validateFunc func(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

func (m *mockTokenValidator) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	return m.validateFunc(ctx, tokenString)
}

func claimsFor(tokens map[string]*dto.AuthClaims) *mockTokenValidator {
	return &mockTokenValidator{validateFunc: func(_ context.Context, tokenString string) (*dto.AuthClaims, error) {
		if claims, ok := tokens[tokenString]; ok {
			return claims, nil
		}
		return nil, errors.New("invalid jwt token")
	}}
}

func TestProtected(t *testing.T) {
	validator := claimsFor(map[string]*dto.AuthClaims{
		"access-token":  {UserID: "user123", TokenType: domain.TokenTypeAccess},
		"refresh-token": {UserID: "user123", TokenType: domain.TokenTypeRefresh},
	})

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		expectedStatus int
		expectedCode   string
		expectedUserID string
	}{
		{name: "No credentials", expectedStatus: fiber.StatusUnauthorized, expectedCode: "MISSING_TOKEN"},
		{name: "Wrong scheme", authHeader: "Basic abc", expectedStatus: fiber.StatusUnauthorized, expectedCode: "INVALID_AUTH_SCHEME"},
		{name: "Empty bearer", authHeader: "Bearer   ", expectedStatus: fiber.StatusUnauthorized, expectedCode: "EMPTY_TOKEN"},
		{name: "Invalid token", authHeader: "Bearer garbage", expectedStatus: fiber.StatusUnauthorized, expectedCode: "INVALID_TOKEN"},
		{name: "Refresh token used as access", authHeader: "Bearer refresh-token", expectedStatus: fiber.StatusForbidden, expectedCode: "INVALID_TOKEN_TYPE"},
		{name: "Valid bearer", authHeader: "Bearer access-token", expectedStatus: fiber.StatusOK, expectedUserID: "user123"},
		{name: "Valid cookie", cookie: "access-token", expectedStatus: fiber.StatusOK, expectedUserID: "user123"},
		{name: "Cookie wins over header", cookie: "access-token", authHeader: "Bearer garbage", expectedStatus: fiber.StatusOK, expectedUserID: "user123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/protected", middleware.Protected(validator), func(c *fiber.Ctx) error {
				return c.SendString(middleware.UserID(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.expectedCode != "" {
				var errResp middleware.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &errResp))
				assert.Equal(t, tt.expectedCode, errResp.Code)
				return
			}
			assert.Equal(t, tt.expectedUserID, string(body))
		})
	}
}

func TestValidateQuizID(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	vm := middleware.NewValidationMiddleware()
	app.Get("/quizzes/:id", vm.ValidateQuizID(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(middleware.QuizIDKey).(string))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/quizzes/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/quizzes/not-a-ulid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var errResp middleware.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	require.Len(t, errResp.Errors, 1)
	assert.Equal(t, "id", errResp.Errors[0].Field)
}
