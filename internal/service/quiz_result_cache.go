package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizly/internal/adapter/fetcher"
	"quizly/internal/cache"
	"quizly/internal/domain"
	"quizly/internal/logger"

	"go.uber.org/zap"
)

// CachedQuizBuilder remembers built quizzes per YouTube video id so that a
// second request for the same video skips the pipeline. Cache failures are
// logged and fall through to the wrapped builder.
type CachedQuizBuilder struct {
	next      domain.QuizBuilder
	cache     domain.Cache
	validator domain.QuizValidator
	ttl       time.Duration
}

// NewCachedQuizBuilder wraps next. With a nil cache or a ttl <= 0 it returns
// next unchanged.
func NewCachedQuizBuilder(next domain.QuizBuilder, c domain.Cache, validator domain.QuizValidator, ttl time.Duration) domain.QuizBuilder {
	if c == nil || ttl <= 0 {
		return next
	}
	return &CachedQuizBuilder{next: next, cache: c, validator: validator, ttl: ttl}
}

func quizResultKey(videoID string) string {
	return cache.GenerateCacheKey("pipeline", "quiz", videoID)
}

func (b *CachedQuizBuilder) Build(ctx context.Context, videoURL string) (*domain.ValidatedQuiz, error) {
	videoID := fetcher.VideoID(videoURL)
	if videoID == "" {
		return b.next.Build(ctx, videoURL)
	}
	key := quizResultKey(videoID)

	if quiz, ok := b.get(ctx, key); ok {
		logger.Get().Info("Quiz served from cache", zap.String("videoID", videoID))
		return quiz, nil
	}

	quiz, err := b.next.Build(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	b.put(ctx, key, quiz)
	return quiz, nil
}

// get re-validates the cached payload so a stale or tampered entry is never
// returned as a ValidatedQuiz.
func (b *CachedQuizBuilder) get(ctx context.Context, key string) (*domain.ValidatedQuiz, bool) {
	data, err := b.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Failed to read quiz cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var candidate domain.CandidateQuiz
	if err := json.Unmarshal([]byte(data), &candidate); err != nil {
		logger.Get().Warn("Dropping undecodable quiz cache entry", zap.String("key", key), zap.Error(err))
		_ = b.cache.Delete(ctx, key)
		return nil, false
	}
	quiz, err := b.validator.Validate(&candidate)
	if err != nil {
		logger.Get().Warn("Dropping invalid quiz cache entry", zap.String("key", key), zap.Error(err))
		_ = b.cache.Delete(ctx, key)
		return nil, false
	}
	return quiz, true
}

func (b *CachedQuizBuilder) put(ctx context.Context, key string, quiz *domain.ValidatedQuiz) {
	data, err := json.Marshal(domain.CandidateQuiz{
		Title:       quiz.Title,
		Description: quiz.Description,
		Questions:   quiz.Questions,
	})
	if err != nil {
		logger.Get().Error("Failed to marshal quiz for caching", zap.Error(err))
		return
	}
	if err := b.cache.Set(ctx, key, string(data), b.ttl); err != nil {
		logger.Get().Warn("Failed to cache quiz", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Get().Debug("Quiz cached", zap.String("key", key), zap.Duration("ttl", b.ttl))
}
