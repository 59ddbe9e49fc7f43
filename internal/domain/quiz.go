package domain

import (
	"time"
)

const (
	// QuestionsPerQuiz is the exact number of questions a quiz must hold.
	QuestionsPerQuiz = 10
	// OptionsPerQuestion is the exact number of answer options per question.
	OptionsPerQuestion = 4
)

// QuestionCandidate is one question as produced by a generator, not yet validated.
type QuestionCandidate struct {
	Prompt        string   `json:"question_title" jsonschema:"title=question_title,description=The question text"`
	Options       []string `json:"question_options" jsonschema:"minItems=4,maxItems=4,description=Exactly four distinct answer options"`
	CorrectAnswer string   `json:"answer" jsonschema:"description=Must equal one of question_options exactly"`
}

// CandidateQuiz is the structured output of a generator.
type CandidateQuiz struct {
	Title       string              `json:"title" jsonschema:"description=Short quiz title"`
	Description string              `json:"description" jsonschema:"maxLength=150,description=Quiz summary of at most 150 characters"`
	Questions   []QuestionCandidate `json:"questions" jsonschema:"minItems=10,maxItems=10"`
}

// ValidatedQuiz is a CandidateQuiz that passed every quiz rule.
type ValidatedQuiz struct {
	Title       string
	Description string
	Questions   []QuestionCandidate
}

// Quiz is a stored quiz owned by a user.
type Quiz struct {
	ID          string
	UserID      string
	Title       string
	Description string
	VideoURL    string
	Questions   []Question
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Question is a stored quiz question.
type Question struct {
	ID        string
	QuizID    string
	Position  int
	Title     string
	Options   []string
	Answer    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewQuiz builds an unsaved quiz from a validated result.
func NewQuiz(userID, videoURL string, vq *ValidatedQuiz) *Quiz {
	now := time.Now()
	q := &Quiz{
		UserID:      userID,
		Title:       vq.Title,
		Description: vq.Description,
		VideoURL:    videoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, c := range vq.Questions {
		q.Questions = append(q.Questions, Question{
			Position:  i,
			Title:     c.Prompt,
			Options:   append([]string(nil), c.Options...),
			Answer:    c.CorrectAnswer,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return q
}

// QuizUpdate carries the optional fields of a partial quiz update.
type QuizUpdate struct {
	Title       *string
	Description *string
	VideoURL    *string
}

// Apply copies the set fields onto q.
func (u QuizUpdate) Apply(q *Quiz) {
	if u.Title != nil {
		q.Title = *u.Title
	}
	if u.Description != nil {
		q.Description = *u.Description
	}
	if u.VideoURL != nil {
		q.VideoURL = *u.VideoURL
	}
	q.UpdatedAt = time.Now()
}
