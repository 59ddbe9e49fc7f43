package service

import (
	"context"
	"errors"

	"quizly/internal/domain"
	"quizly/internal/logger"

	"go.uber.org/zap"
)

// QuizService owns the quiz records of authenticated users.
type QuizService interface {
	CreateFromVideo(ctx context.Context, userID, videoURL string) (*domain.Quiz, error)
	ListQuizzes(ctx context.Context, userID string) ([]*domain.Quiz, error)
	GetQuiz(ctx context.Context, userID, quizID string) (*domain.Quiz, error)
	UpdateQuiz(ctx context.Context, userID, quizID string, update domain.QuizUpdate) (*domain.Quiz, error)
	DeleteQuiz(ctx context.Context, userID, quizID string) error
}

type quizService struct {
	builder   domain.QuizBuilder
	repo      domain.QuizRepository
	txManager domain.TransactionManager
}

// NewQuizService creates a new instance of quizService
func NewQuizService(builder domain.QuizBuilder, repo domain.QuizRepository, txManager domain.TransactionManager) QuizService {
	return &quizService{
		builder:   builder,
		repo:      repo,
		txManager: txManager,
	}
}

// CreateFromVideo builds a quiz from the video and stores it for userID.
// Pipeline failures are returned unchanged as *domain.QuizBuildError.
func (s *quizService) CreateFromVideo(ctx context.Context, userID, videoURL string) (*domain.Quiz, error) {
	validated, err := s.builder.Build(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	quiz := domain.NewQuiz(userID, videoURL, validated)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.CreateQuiz(txCtx, quiz)
	})
	if err != nil {
		logger.Get().Error("Failed to store generated quiz",
			zap.String("userID", userID),
			zap.String("videoURL", videoURL),
			zap.Error(err))
		return nil, domain.NewInternalError("Failed to save quiz", err)
	}

	logger.Get().Info("Quiz created from video",
		zap.String("userID", userID),
		zap.String("quizID", quiz.ID),
		zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

func (s *quizService) ListQuizzes(ctx context.Context, userID string) ([]*domain.Quiz, error) {
	quizzes, err := s.repo.ListQuizzesByUser(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quizzes", err)
	}
	if quizzes == nil {
		quizzes = []*domain.Quiz{}
	}
	return quizzes, nil
}

func (s *quizService) GetQuiz(ctx context.Context, userID, quizID string) (*domain.Quiz, error) {
	return s.ownedQuiz(ctx, userID, quizID)
}

func (s *quizService) UpdateQuiz(ctx context.Context, userID, quizID string, update domain.QuizUpdate) (*domain.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	update.Apply(quiz)
	if err := s.repo.UpdateQuiz(ctx, quiz); err != nil {
		return nil, mapRepoError(err, "Failed to update quiz")
	}
	return quiz, nil
}

func (s *quizService) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	if _, err := s.ownedQuiz(ctx, userID, quizID); err != nil {
		return err
	}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteQuiz(txCtx, quizID)
	})
	if err != nil {
		return mapRepoError(err, "Failed to delete quiz")
	}
	logger.Get().Info("Quiz deleted", zap.String("userID", userID), zap.String("quizID", quizID))
	return nil
}

// ownedQuiz loads a quiz and checks that userID owns it: missing is 404,
// someone else's is 403.
func (s *quizService) ownedQuiz(ctx context.Context, userID, quizID string) (*domain.Quiz, error) {
	quiz, err := s.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to get quiz", err)
	}
	if quiz == nil {
		return nil, domain.NewQuizNotFoundError(quizID)
	}
	if quiz.UserID != userID {
		return nil, domain.NewForbiddenError("You do not have permission to access this quiz.")
	}
	return quiz, nil
}

// mapRepoError passes domain errors through and wraps everything else.
func mapRepoError(err error, message string) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return domain.NewInternalError(message, err)
}
