package middleware

import (
	"context"
	"strings"

	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	UserIDKey           = "userID" // Key for storing UserID in fiber.Ctx locals

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// TokenValidator is the part of the auth service the middleware needs.
type TokenValidator interface {
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

// Protected requires a valid access token, read from the access_token cookie
// or, failing that, from an Authorization: Bearer header. The user id is
// stored under UserIDKey.
func Protected(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(AccessTokenCookie)
		if tokenString == "" {
			authHeader := c.Get(AuthorizationHeader)
			if authHeader == "" {
				return unauthorized(c, "MISSING_TOKEN", "Authentication credentials were not provided.")
			}
			if !strings.HasPrefix(authHeader, BearerSchema) {
				return unauthorized(c, "INVALID_AUTH_SCHEME", "Authorization scheme is not Bearer")
			}
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, BearerSchema))
			if tokenString == "" {
				return unauthorized(c, "EMPTY_TOKEN", "Token is empty")
			}
		}

		claims, err := validator.ValidateJWT(c.UserContext(), tokenString)
		if err != nil {
			logger.Get().Debug("JWT validation error", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c, "INVALID_TOKEN", "Given token not valid for any token type")
		}

		if claims.TokenType != domain.TokenTypeAccess {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Code:    "INVALID_TOKEN_TYPE",
				Message: "Invalid token type: expected access, got " + string(claims.TokenType),
				Status:  fiber.StatusForbidden,
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID returns the id stored by Protected, or "" on unprotected routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

func unauthorized(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Code:    code,
		Message: message,
		Status:  fiber.StatusUnauthorized,
	})
}
