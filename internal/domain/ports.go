package domain

import (
	"context"
	"time"
)

// AudioFetcher downloads the audio track of a video into a local artifact.
type AudioFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*AudioArtifact, error)
}

// Transcriber turns an audio artifact into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *AudioArtifact) (string, error)
}

// QuizGenerator asks a language model for a quiz about a transcript.
type QuizGenerator interface {
	Generate(ctx context.Context, transcript string) (*CandidateQuiz, error)
}

// QuizValidator checks a candidate against the quiz rules.
type QuizValidator interface {
	Validate(candidate *CandidateQuiz) (*ValidatedQuiz, error)
}

// QuizBuilder runs the full URL to quiz pipeline.
type QuizBuilder interface {
	Build(ctx context.Context, videoURL string) (*ValidatedQuiz, error)
}

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// QuizRepository defines the interface for quiz data persistence.
// Lookups return (nil, nil) when no row exists.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *Quiz) error
	GetQuizByID(ctx context.Context, id string) (*Quiz, error)
	ListQuizzesByUser(ctx context.Context, userID string) ([]*Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
}

// TransactionManager runs fn inside a single database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenBlacklist remembers revoked token IDs until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
