package dto

import (
	"time"

	"quizly/internal/domain"
)

// CreateQuizRequest is the body of POST /api/createQuiz
// @Description Request body for generating a quiz from a YouTube video
type CreateQuizRequest struct {
	URL string `json:"url" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
}

// UpdateQuizRequest is a partial update; absent fields stay unchanged.
// @Description Request body for updating a quiz
type UpdateQuizRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	VideoURL    *string `json:"video_url,omitempty"`
}

func (r UpdateQuizRequest) ToDomain() domain.QuizUpdate {
	return domain.QuizUpdate{
		Title:       r.Title,
		Description: r.Description,
		VideoURL:    r.VideoURL,
	}
}

// QuestionResponse represents a question in the API response
type QuestionResponse struct {
	ID              string    `json:"id"`
	QuestionTitle   string    `json:"question_title"`
	QuestionOptions []string  `json:"question_options"`
	Answer          string    `json:"answer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QuizResponse represents a quiz in the API response
// @Description Quiz with its questions
type QuizResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	VideoURL    string             `json:"video_url"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	User        string             `json:"user"`
	Questions   []QuestionResponse `json:"questions"`
}

func NewQuizResponse(q *domain.Quiz) QuizResponse {
	resp := QuizResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		VideoURL:    q.VideoURL,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
		User:        q.UserID,
		Questions:   make([]QuestionResponse, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		resp.Questions = append(resp.Questions, QuestionResponse{
			ID:              question.ID,
			QuestionTitle:   question.Title,
			QuestionOptions: question.Options,
			Answer:          question.Answer,
			CreatedAt:       question.CreatedAt,
			UpdatedAt:       question.UpdatedAt,
		})
	}
	return resp
}

func NewQuizListResponse(quizzes []*domain.Quiz) []QuizResponse {
	out := make([]QuizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, NewQuizResponse(q))
	}
	return out
}
