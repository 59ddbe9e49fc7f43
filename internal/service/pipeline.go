package service

import (
	"context"
	"errors"
	"time"

	"quizly/internal/config"
	"quizly/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// RetryPolicy bounds how often a transient stage failure is retried.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1, Backoff: 500 * time.Millisecond}
}

// StageTimeouts caps each stage. Zero means no stage specific limit.
type StageTimeouts struct {
	Fetch      time.Duration
	Transcribe time.Duration
	Generate   time.Duration
}

type PipelineOption func(*Pipeline)

func WithRetryPolicy(policy RetryPolicy) PipelineOption {
	return func(p *Pipeline) {
		if policy.MaxRetries < 0 {
			policy.MaxRetries = 0
		}
		p.retry = policy
	}
}

func WithStageTimeouts(timeouts StageTimeouts) PipelineOption {
	return func(p *Pipeline) { p.timeouts = timeouts }
}

// WithMaxConcurrent limits the number of builds running at once.
func WithMaxConcurrent(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.sem = semaphore.NewWeighted(n)
		}
	}
}

func WithPipelineLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// Pipeline turns a video URL into a validated quiz: fetch, transcribe,
// generate, validate. Every call owns its artifact, transcript and candidate,
// so a Pipeline is safe for concurrent use.
type Pipeline struct {
	fetcher     domain.AudioFetcher
	transcriber domain.Transcriber
	generator   domain.QuizGenerator
	validator   domain.QuizValidator

	retry    RetryPolicy
	timeouts StageTimeouts
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

func NewPipeline(
	fetcher domain.AudioFetcher,
	transcriber domain.Transcriber,
	generator domain.QuizGenerator,
	validator domain.QuizValidator,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		transcriber: transcriber,
		generator:   generator,
		validator:   validator,
		retry:       DefaultRetryPolicy(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPipelineFromConfig applies the pipeline section of the configuration.
func NewPipelineFromConfig(
	cfg config.PipelineConfig,
	fetcher domain.AudioFetcher,
	transcriber domain.Transcriber,
	generator domain.QuizGenerator,
	validator domain.QuizValidator,
	logger *zap.Logger,
) *Pipeline {
	return NewPipeline(fetcher, transcriber, generator, validator,
		WithRetryPolicy(RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}),
		WithStageTimeouts(StageTimeouts{
			Fetch:      cfg.FetchTimeout,
			Transcribe: cfg.TranscribeTimeout,
			Generate:   cfg.GenerateTimeout,
		}),
		WithMaxConcurrent(cfg.MaxConcurrent),
		WithPipelineLogger(logger.Named("pipeline")),
	)
}

// Build implements domain.QuizBuilder.
func (p *Pipeline) Build(ctx context.Context, videoURL string) (*domain.ValidatedQuiz, error) {
	return p.BuildQuiz(ctx, videoURL)
}

// BuildQuiz runs the full pipeline. Every failure is a *domain.QuizBuildError
// naming the stage; cancellation wraps a *domain.CancelledError.
func (p *Pipeline) BuildQuiz(ctx context.Context, videoURL string) (*domain.ValidatedQuiz, error) {
	start := time.Now()
	log := p.logger.With(zap.String("video_url", videoURL))

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, p.fail(log, domain.StageFetch, domain.NewCancelledError(err))
		}
		defer p.sem.Release(1)
	}

	log.Info("Quiz build started")

	if err := ctx.Err(); err != nil {
		return nil, p.fail(log, domain.StageFetch, domain.NewCancelledError(err))
	}
	audio, err := retryStage(ctx, p, log, domain.StageFetch, p.timeouts.Fetch, func(ctx context.Context) (*domain.AudioArtifact, error) {
		audio, err := p.fetcher.Fetch(ctx, videoURL)
		var fetchErr *domain.FetchError
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &fetchErr) {
			// the stage timeout fired inside the fetcher
			err = &domain.FetchError{URL: videoURL, Kind: domain.FetchTransient, Err: err}
		}
		return audio, err
	})
	if err != nil {
		return nil, p.stageError(ctx, log, domain.StageFetch, err)
	}
	if audio == nil {
		return nil, p.fail(log, domain.StageFetch, &domain.FetchError{
			URL: videoURL, Kind: domain.FetchToolchain, Err: errors.New("fetcher returned no artifact"),
		})
	}
	defer func() {
		if err := audio.Release(); err != nil {
			log.Warn("Failed to release audio artifact", zap.String("path", audio.Path), zap.Error(err))
		}
	}()
	log.Debug("Audio fetched", zap.String("path", audio.Path), zap.Duration("duration", audio.Duration))

	if err := ctx.Err(); err != nil {
		return nil, p.fail(log, domain.StageTranscribe, domain.NewCancelledError(err))
	}
	transcript, err := runStage(ctx, p.timeouts.Transcribe, func(ctx context.Context) (string, error) {
		return p.transcriber.Transcribe(ctx, audio)
	})
	if err != nil {
		var transErr *domain.TranscriptionError
		if !errors.As(err, &transErr) && ctx.Err() == nil {
			// the stage timeout fired inside the transcriber
			err = &domain.TranscriptionError{Err: err}
		}
		return nil, p.stageError(ctx, log, domain.StageTranscribe, err)
	}
	log.Debug("Audio transcribed", zap.Int("transcript_chars", len(transcript)))

	if err := ctx.Err(); err != nil {
		return nil, p.fail(log, domain.StageGenerate, domain.NewCancelledError(err))
	}
	candidate, err := retryStage(ctx, p, log, domain.StageGenerate, p.timeouts.Generate, func(ctx context.Context) (*domain.CandidateQuiz, error) {
		return p.generator.Generate(ctx, transcript)
	})
	if err != nil {
		return nil, p.stageError(ctx, log, domain.StageGenerate, err)
	}

	validated, err := p.validator.Validate(candidate)
	if err != nil {
		return nil, p.fail(log, domain.StageGenerate, err)
	}

	log.Info("Quiz build finished",
		zap.String("title", validated.Title),
		zap.Int("questions", len(validated.Questions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return validated, nil
}

// stageError turns a stage failure into a QuizBuildError, reporting it as a
// cancellation when the caller's context is done.
func (p *Pipeline) stageError(ctx context.Context, log *zap.Logger, stage domain.Stage, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return p.fail(log, stage, domain.NewCancelledError(ctxErr))
	}
	return p.fail(log, stage, err)
}

func (p *Pipeline) fail(log *zap.Logger, stage domain.Stage, cause error) error {
	buildErr := &domain.QuizBuildError{Stage: stage, Cause: cause}
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.String("cause", buildErr.CauseCategory()),
		zap.Error(cause),
	}
	if errors.Is(cause, domain.ErrCancelled) {
		log.Info("Quiz build cancelled", fields...)
	} else {
		log.Warn("Quiz build failed", fields...)
	}
	return buildErr
}

func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// retryStage runs fn and retries transient failures according to the
// pipeline's RetryPolicy. Each attempt gets a fresh stage timeout.
func retryStage[T any](ctx context.Context, p *Pipeline, log *zap.Logger, stage domain.Stage, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := runStage(ctx, timeout, fn)
		if err == nil || attempt >= p.retry.MaxRetries || !domain.IsTransient(err) || ctx.Err() != nil {
			return v, err
		}
		log.Warn("Transient stage failure, retrying",
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", p.retry.Backoff),
			zap.Error(err),
		)
		if werr := wait(ctx, p.retry.Backoff); werr != nil {
			return v, werr
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
