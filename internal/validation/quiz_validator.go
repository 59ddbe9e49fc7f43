package validation

import (
	"fmt"
	"strings"

	"quizly/internal/domain"
)

// Violation rule names.
const (
	RuleQuestionCount   = "question_count"
	RuleOptionCount     = "option_count"
	RuleDistinctOptions = "distinct_options"
	RuleAnswerInOptions = "answer_in_options"
	RuleNotBlank        = "not_blank"
)

// QuizValidator enforces the quiz shape on generator output. It keeps no
// state and is safe for concurrent use.
type QuizValidator struct{}

func NewQuizValidator() *QuizValidator {
	return &QuizValidator{}
}

// Validate checks every rule and reports all violations at once. On success
// it returns a deep copy of the candidate.
func (v *QuizValidator) Validate(candidate *domain.CandidateQuiz) (*domain.ValidatedQuiz, error) {
	if candidate == nil {
		return nil, &domain.ValidationError{Violations: []domain.Violation{
			{Field: "quiz", Rule: RuleNotBlank, Message: "quiz is missing"},
		}}
	}

	var violations []domain.Violation
	add := func(field, rule, format string, args ...interface{}) {
		violations = append(violations, domain.Violation{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	if isBlank(candidate.Title) {
		add("title", RuleNotBlank, "title must not be blank")
	}
	if n := len(candidate.Questions); n != domain.QuestionsPerQuiz {
		add("questions", RuleQuestionCount, "expected %d questions, got %d", domain.QuestionsPerQuiz, n)
	}

	for i, q := range candidate.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		if isBlank(q.Prompt) {
			add(field+".question_title", RuleNotBlank, "question must not be blank")
		}
		if n := len(q.Options); n != domain.OptionsPerQuestion {
			add(field+".question_options", RuleOptionCount, "expected %d options, got %d", domain.OptionsPerQuestion, n)
		}

		seen := make(map[string]int, len(q.Options))
		for j, opt := range q.Options {
			if isBlank(opt) {
				add(fmt.Sprintf("%s.question_options[%d]", field, j), RuleNotBlank, "option must not be blank")
			}
			if first, dup := seen[opt]; dup {
				add(fmt.Sprintf("%s.question_options[%d]", field, j), RuleDistinctOptions, "option duplicates question_options[%d]", first)
				continue
			}
			seen[opt] = j
		}

		switch {
		case isBlank(q.CorrectAnswer):
			add(field+".answer", RuleNotBlank, "answer must not be blank")
		case countMatches(q.Options, q.CorrectAnswer) != 1:
			add(field+".answer", RuleAnswerInOptions, "answer %q must match exactly one option", q.CorrectAnswer)
		}
	}

	if len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}

	validated := &domain.ValidatedQuiz{
		Title:       candidate.Title,
		Description: candidate.Description,
		Questions:   make([]domain.QuestionCandidate, len(candidate.Questions)),
	}
	for i, q := range candidate.Questions {
		validated.Questions[i] = domain.QuestionCandidate{
			Prompt:        q.Prompt,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return validated, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func countMatches(options []string, answer string) int {
	n := 0
	for _, opt := range options {
		if opt == answer {
			n++
		}
	}
	return n
}
