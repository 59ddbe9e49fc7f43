package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizly/internal/domain"
)

// wire types use pointers so a missing key can be told apart from an empty one.
type wireQuiz struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Questions   *[]wireQuestion `json:"questions"`
}

type wireQuestion struct {
	QuestionTitle   *string        `json:"question_title"`
	QuestionOptions *[]interface{} `json:"question_options"`
	Answer          *string        `json:"answer"`
}

// ParseCandidate turns raw model output into a CandidateQuiz. It checks the
// structure only; counts and answer membership are left to the validator.
func ParseCandidate(raw string) (*domain.CandidateQuiz, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &domain.GenerationFormatError{Reason: err.Error(), Raw: raw}
	}

	var w wireQuiz
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, &domain.GenerationFormatError{Reason: "invalid JSON: " + err.Error(), Raw: raw}
	}

	formatErr := func(format string, args ...interface{}) error {
		return &domain.GenerationFormatError{Reason: fmt.Sprintf(format, args...), Raw: raw}
	}

	if w.Title == nil || strings.TrimSpace(*w.Title) == "" {
		return nil, formatErr("missing title")
	}
	if w.Questions == nil {
		return nil, formatErr("missing questions")
	}

	candidate := &domain.CandidateQuiz{
		Title:     *w.Title,
		Questions: make([]domain.QuestionCandidate, 0, len(*w.Questions)),
	}
	if w.Description != nil {
		candidate.Description = *w.Description
	}

	for i, q := range *w.Questions {
		switch {
		case q.QuestionTitle == nil:
			return nil, formatErr("questions[%d]: missing question_title", i)
		case q.QuestionOptions == nil:
			return nil, formatErr("questions[%d]: missing question_options", i)
		case q.Answer == nil:
			return nil, formatErr("questions[%d]: missing answer", i)
		}

		options := make([]string, 0, len(*q.QuestionOptions))
		for j, opt := range *q.QuestionOptions {
			s, ok := opt.(string)
			if !ok {
				return nil, formatErr("questions[%d].question_options[%d]: expected string, got %T", i, j, opt)
			}
			options = append(options, s)
		}

		candidate.Questions = append(candidate.Questions, domain.QuestionCandidate{
			Prompt:        *q.QuestionTitle,
			Options:       options,
			CorrectAnswer: *q.Answer,
		})
	}
	return candidate, nil
}

// extractJSON drops reasoning blocks and code fences and cuts the outermost
// JSON object out of the response.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if start := strings.Index(s, "<think>"); start != -1 {
		if end := strings.Index(s, "</think>"); end > start {
			s = strings.TrimSpace(s[:start] + s[end+len("</think>"):])
		}
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
