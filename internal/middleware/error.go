package middleware

import (
	"errors"
	"net/http"

	"quizly/internal/domain"
	"quizly/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse represents validation error response
type ValidationErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Status  int                `json:"status"`
	Errors  domain.FieldErrors `json:"errors"`
}

// StatusClientClosedRequest is reported when the caller went away mid build.
const StatusClientClosedRequest = 499

// ErrorHandler is a centralized error handling middleware
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log := logger.Get()

		// Handle validation errors
		var fieldErrs domain.FieldErrors
		if errors.As(err, &fieldErrs) {
			log.Warn("Validation errors occurred",
				zap.String("path", c.Path()),
				zap.Int("error_count", len(fieldErrs)),
			)
			return c.Status(http.StatusBadRequest).JSON(ValidationErrorResponse{
				Code:    string(domain.CodeValidation),
				Message: "Request validation failed",
				Status:  http.StatusBadRequest,
				Errors:  fieldErrs,
			})
		}

		var buildErr *domain.QuizBuildError
		if errors.As(err, &buildErr) {
			return handleQuizBuildError(c, buildErr)
		}

		// Handle domain errors
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			statusCode := mapDomainErrorToHTTPStatus(domainErr)

			fields := []zap.Field{
				zap.String("path", c.Path()),
				zap.String("code", string(domainErr.Code)),
				zap.String("message", domainErr.Message),
				zap.Int("status", statusCode),
				zap.Error(domainErr.Cause),
			}
			if statusCode >= http.StatusInternalServerError {
				log.Error("Domain error occurred", fields...)
			} else {
				log.Warn("Domain error occurred", fields...)
			}

			response := ErrorResponse{
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Status:  statusCode,
			}
			if len(domainErr.Context) > 0 {
				response.Details = domainErr.Context
			}
			return c.Status(statusCode).JSON(response)
		}

		// Handle fiber errors
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			log.Warn("Fiber error occurred",
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		// Handle unknown errors
		log.Error("Unknown error occurred",
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.CodeInternal),
			Message: "Internal server error",
			Status:  http.StatusInternalServerError,
		})
	}
}

// handleQuizBuildError hides pipeline internals from the client. Stage and
// cause category only go to the log.
func handleQuizBuildError(c *fiber.Ctx, err *domain.QuizBuildError) error {
	log := logger.Get().With(
		zap.String("path", c.Path()),
		zap.String("stage", string(err.Stage)),
		zap.String("cause", err.CauseCategory()),
	)

	var unsupported *domain.UnsupportedSourceError
	switch {
	case errors.As(err, &unsupported):
		log.Warn("Quiz build rejected the video URL", zap.Error(err))
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    string(domain.CodeInvalidInput),
			Message: "Invalid YouTube-URL.",
			Status:  http.StatusBadRequest,
		})
	case errors.Is(err, domain.ErrCancelled):
		log.Info("Quiz build cancelled", zap.Error(err))
		return c.Status(StatusClientClosedRequest).JSON(ErrorResponse{
			Code:    "REQUEST_CANCELLED",
			Message: "Request cancelled.",
			Status:  StatusClientClosedRequest,
		})
	default:
		log.Error("Quiz build failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.CodeQuizGenerationFailed),
			Message: "Quiz generation failed.",
			Status:  http.StatusInternalServerError,
		})
	}
}

// mapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func mapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.CodeNotFound, domain.CodeQuizNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput, domain.CodeValidation, domain.CodeMissingField,
		domain.CodeInvalidFormat, domain.CodeMismatch:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeConflict, domain.CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
