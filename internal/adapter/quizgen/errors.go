package quizgen

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"quizly/internal/domain"

	goopenai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// backendError wraps a failed model call and decides whether a retry could help.
func backendError(backend string, err error) *domain.GenerationBackendError {
	return &domain.GenerationBackendError{Backend: backend, Err: err, Temporary: isTemporary(err)}
}

func isTemporary(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}
	var genaiErrPtr *genai.APIError
	if errors.As(err, &genaiErrPtr) {
		return retryableStatus(genaiErrPtr.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "timeout", "eof", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
