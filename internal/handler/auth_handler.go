package handler

import (
	"errors"
	"time"

	"quizly/internal/config"
	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/logger"
	"quizly/internal/middleware"
	"quizly/internal/service"
	"quizly/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService service.AuthService
	validator   *validation.Validator
	appConfig   *config.Config // cookie settings
}

func NewAuthHandler(authService service.AuthService, appConfig *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validation.NewValidator(),
		appConfig:   appConfig,
	}
}

// Register creates an account.
// @Summary Register a new user
// @Description Creates a user with a bcrypt hashed password.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration form"
// @Success 200 {object} dto.DetailResponse
// @Failure 400 {object} middleware.ValidationErrorResponse "Missing fields, password mismatch or duplicate user"
// @Router /register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if errs := h.validator.ValidateRegistration(req.Username, req.Email, req.Password, req.ConfirmedPassword); len(errs) > 0 {
		return errs
	}

	if _, err := h.authService.Register(c.UserContext(), req.Username, req.Email, req.Password); err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.CodeConflict {
			// lost a race against a concurrent registration
			return domain.FieldErrors{domain.NewDuplicateError("username", "Username or email already exists")}
		}
		return err
	}
	return c.Status(fiber.StatusOK).JSON(dto.DetailResponse{Detail: "User created successfully!"})
}

// Login issues the JWT cookies.
// @Summary Log in
// @Description Sets HttpOnly access_token and refresh_token cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse "Invalid credentials"
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if errs := h.validator.ValidateLogin(req.Username, req.Password); len(errs) > 0 {
		return errs
	}

	user, tokens, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return domain.NewUnauthorizedError("Invalid username or password.")
		}
		return err
	}

	h.setCookie(c, middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessTTL)
	h.setCookie(c, middleware.RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshTTL)
	return c.Status(fiber.StatusOK).JSON(dto.LoginResponse{
		Detail: "Login successfully!",
		User:   dto.NewUserResponse(user),
	})
}

// Logout revokes the refresh token and clears the cookies.
// @Summary Log out
// @Description Blacklists the refresh token until it expires and deletes both cookies.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.DetailResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := c.Cookies(middleware.RefreshTokenCookie); refreshToken != "" {
		if err := h.authService.Logout(c.UserContext(), refreshToken); err != nil {
			logger.Get().Warn("Failed to revoke refresh token on logout",
				zap.String("userID", middleware.UserID(c)),
				zap.Error(err))
		}
	}

	h.clearCookie(c, middleware.AccessTokenCookie)
	h.clearCookie(c, middleware.RefreshTokenCookie)
	return c.Status(fiber.StatusOK).JSON(dto.DetailResponse{
		Detail: "Log-Out successfully! All Tokens will be deleted. Refresh token is now invalid.",
	})
}

// RefreshToken issues a new access token from the refresh_token cookie.
// @Summary Refresh the access token
// @Description Validates the refresh_token cookie and sets a new access_token cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.RefreshResponse
// @Failure 400 {object} dto.DetailResponse "Refresh token not found!"
// @Failure 401 {object} dto.DetailResponse "Refresh token invalid!"
// @Router /token/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies(middleware.RefreshTokenCookie)
	if refreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.DetailResponse{Detail: "Refresh token not found!"})
	}

	access, err := h.authService.RefreshAccessToken(c.UserContext(), refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidJWTToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.DetailResponse{Detail: "Refresh token invalid!"})
		}
		return err
	}

	h.setCookie(c, middleware.AccessTokenCookie, access, h.appConfig.JWT.AccessTokenTTL)
	return c.Status(fiber.StatusOK).JSON(dto.RefreshResponse{Detail: "Token refreshed", Access: access})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   !h.appConfig.Server.Debug,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   !h.appConfig.Server.Debug,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
