package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"quizly/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Factory creates a transcription backend. It is called lazily.
type Factory func(ctx context.Context) (domain.Transcriber, error)

// Lazy is the process-wide transcription backend.
//
// The backend is created on first use by a single caller holding initLock.
// Concurrent first callers wait for that initialisation and then share its
// result, and a waiter whose context ends gives up without waiting for the
// factory to return. A failed initialisation is not cached, so a later call
// tries again; once one succeeds the factory is never called again. After initialisation the
// backend is shared read-only and calls into it are bounded by a weighted
// semaphore, so a limit of 1 serialises backends that are not reentrant.
type Lazy struct {
	factory  Factory
	sem      *semaphore.Weighted
	initLock *semaphore.Weighted
	logger   *zap.Logger

	mu      sync.Mutex
	backend domain.Transcriber
}

func NewLazy(factory Factory, maxConcurrent int64, logger *zap.Logger) *Lazy {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Lazy{
		factory:  factory,
		sem:      semaphore.NewWeighted(maxConcurrent),
		initLock: semaphore.NewWeighted(1),
		logger:   logger,
	}
}

func (l *Lazy) loaded() domain.Transcriber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend
}

func (l *Lazy) get(ctx context.Context) (domain.Transcriber, error) {
	if backend := l.loaded(); backend != nil {
		return backend, nil
	}

	if err := l.initLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.initLock.Release(1)

	// another caller may have finished while this one waited
	if backend := l.loaded(); backend != nil {
		return backend, nil
	}
	backend, err := l.factory(ctx)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Transcription backend initialised")

	l.mu.Lock()
	l.backend = backend
	l.mu.Unlock()
	return backend, nil
}

// Transcribe checks the artifact, initialises the backend if needed and
// returns a non-empty transcript. Every failure other than cancellation is a
// *domain.TranscriptionError.
func (l *Lazy) Transcribe(ctx context.Context, audio *domain.AudioArtifact) (string, error) {
	if err := CheckAudio(audio); err != nil {
		return "", err
	}

	backend, err := l.get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &domain.TranscriptionError{Err: fmt.Errorf("initialise backend: %w", err)}
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)

	text, err := backend.Transcribe(ctx, audio)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var transErr *domain.TranscriptionError
		if errors.As(err, &transErr) {
			return "", err
		}
		return "", &domain.TranscriptionError{Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &domain.TranscriptionError{Err: errors.New("transcription response is empty")}
	}
	return text, nil
}

// CheckAudio rejects artifacts that cannot hold any speech.
func CheckAudio(audio *domain.AudioArtifact) error {
	if audio == nil {
		return &domain.TranscriptionError{Err: errors.New("no audio artifact")}
	}
	// an unknown duration falls through to the size check
	if audio.Duration == 0 {
		return &domain.TranscriptionError{Err: errors.New("audio has zero duration")}
	}
	info, err := os.Stat(audio.Path)
	if err != nil {
		return &domain.TranscriptionError{Err: fmt.Errorf("audio unreadable: %w", err)}
	}
	if info.Size() == 0 {
		return &domain.TranscriptionError{Err: errors.New("audio file is empty")}
	}
	return nil
}
