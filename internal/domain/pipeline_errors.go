package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stage names one step of a quiz build.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageTranscribe Stage = "transcribe"
	// StageGenerate covers both the model call and the structural validation of
	// its output.
	StageGenerate Stage = "generate"
)

// ErrCancelled is matched by errors.Is on every cancellation surfaced by the pipeline.
var ErrCancelled = errors.New("quiz build cancelled")

// QuizBuildError is the single error returned by the pipeline.
type QuizBuildError struct {
	Stage Stage
	Cause error
}

func (e *QuizBuildError) Error() string {
	return fmt.Sprintf("quiz build failed at %s stage: %v", e.Stage, e.Cause)
}

func (e *QuizBuildError) Unwrap() error {
	return e.Cause
}

// CauseCategory is a coarse label of the cause, safe for logs and metrics.
func (e *QuizBuildError) CauseCategory() string {
	var (
		unsupported *UnsupportedSourceError
		fetchErr    *FetchError
		transErr    *TranscriptionError
		backendErr  *GenerationBackendError
		formatErr   *GenerationFormatError
		validErr    *ValidationError
		cancelErr   *CancelledError
	)
	switch {
	case errors.As(e.Cause, &cancelErr):
		return "cancelled"
	case errors.As(e.Cause, &unsupported):
		return "unsupported_source"
	case errors.As(e.Cause, &fetchErr):
		return "fetch_" + string(fetchErr.Kind)
	case errors.As(e.Cause, &transErr):
		return "transcription"
	case errors.As(e.Cause, &backendErr):
		return "generation_backend"
	case errors.As(e.Cause, &formatErr):
		return "generation_format"
	case errors.As(e.Cause, &validErr):
		return "validation"
	default:
		return "unknown"
	}
}

// CancelledError records which context error stopped a build.
type CancelledError struct {
	Err error
}

func NewCancelledError(err error) *CancelledError {
	if err == nil {
		err = context.Canceled
	}
	return &CancelledError{Err: err}
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCancelled, e.Err)
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// UnsupportedSourceError is returned for malformed or non-YouTube URLs.
type UnsupportedSourceError struct {
	URL string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported video source: %q", e.URL)
}

// FetchErrorKind separates retryable download failures from permanent ones.
type FetchErrorKind string

const (
	FetchNotFound  FetchErrorKind = "not_found"
	FetchTransient FetchErrorKind = "transient"
	FetchToolchain FetchErrorKind = "toolchain"
)

type FetchError struct {
	URL  string
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Transient() bool {
	return e.Kind == FetchTransient
}

type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// GenerationBackendError covers network, auth and quota failures of the
// generative backend.
type GenerationBackendError struct {
	Backend   string
	Err       error
	Temporary bool
}

func (e *GenerationBackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *GenerationBackendError) Unwrap() error {
	return e.Err
}

func (e *GenerationBackendError) Transient() bool {
	return e.Temporary
}

// GenerationFormatError means the backend answered but the payload does not
// have the expected structure.
type GenerationFormatError struct {
	Reason string
	Raw    string
}

func (e *GenerationFormatError) Error() string {
	return "malformed quiz payload: " + e.Reason
}

// Violation is a single broken quiz rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rule a candidate quiz broke.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("quiz validation failed with %d violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// ConfigError is a startup misconfiguration, such as a missing API key.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Message)
}

// IsTransient reports whether err is worth a retry.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient()
	}
	var backendErr *GenerationBackendError
	if errors.As(err, &backendErr) {
		return backendErr.Transient()
	}
	return false
}
