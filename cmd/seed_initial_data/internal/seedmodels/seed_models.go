package seedmodels

import "quizly/internal/domain"

// SeedQuiz is a ready-made quiz in the JSON seed file. It goes through the
// same validator as a generated one.
type SeedQuiz struct {
	VideoURL string `json:"video_url"`
	domain.CandidateQuiz
}

// SeedUser defines a demo account and the quizzes it owns.
type SeedUser struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Quizzes  []SeedQuiz `json:"quizzes"`
}
