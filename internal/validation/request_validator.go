package validation

import (
	"net/mail"
	"strings"

	"quizly/internal/adapter/fetcher"
	"quizly/internal/domain"
	"quizly/internal/util"
)

const invalidYouTubeURL = "Invalid YouTube-URL."

// Validator checks inbound API payloads.
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRegistration checks the register form. Uniqueness is checked by
// the auth service.
func (v *Validator) ValidateRegistration(username, email, password, confirmedPassword string) domain.FieldErrors {
	var errs domain.FieldErrors

	if strings.TrimSpace(username) == "" {
		errs = append(errs, domain.NewMissingFieldError("username"))
	} else if len(username) > 150 {
		errs = append(errs, domain.NewInvalidFormatError("username", "Ensure this field has no more than 150 characters."))
	}

	if strings.TrimSpace(email) == "" {
		errs = append(errs, domain.NewMissingFieldError("email"))
	} else if !isValidEmail(email) {
		errs = append(errs, domain.NewInvalidFormatError("email", "Enter a valid email address."))
	}

	if password == "" {
		errs = append(errs, domain.NewMissingFieldError("password"))
	}
	if confirmedPassword == "" {
		errs = append(errs, domain.NewMissingFieldError("confirmed_password"))
	}
	if password != "" && confirmedPassword != "" && password != confirmedPassword {
		errs = append(errs, domain.NewMismatchError("password", "Passwords do not match"))
	}

	return errs
}

// ValidateLogin only checks presence; wrong credentials are a 401.
func (v *Validator) ValidateLogin(username, password string) domain.FieldErrors {
	var errs domain.FieldErrors
	if strings.TrimSpace(username) == "" {
		errs = append(errs, domain.NewMissingFieldError("username"))
	}
	if password == "" {
		errs = append(errs, domain.NewMissingFieldError("password"))
	}
	return errs
}

func (v *Validator) ValidateCreateQuiz(url string) domain.FieldErrors {
	if strings.TrimSpace(url) == "" {
		return domain.FieldErrors{domain.NewMissingFieldError("url")}
	}
	if !fetcher.IsYouTubeURL(url) {
		return domain.FieldErrors{domain.NewInvalidFormatError("url", invalidYouTubeURL)}
	}
	return nil
}

// ValidateQuizUpdate checks the fields present in a PATCH body.
func (v *Validator) ValidateQuizUpdate(update domain.QuizUpdate) domain.FieldErrors {
	var errs domain.FieldErrors
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		errs = append(errs, domain.NewInvalidFormatError("title", "This field may not be blank."))
	}
	if update.VideoURL != nil && !fetcher.IsYouTubeURL(*update.VideoURL) {
		errs = append(errs, domain.NewInvalidFormatError("video_url", invalidYouTubeURL))
	}
	return errs
}

// ValidateQuizID rejects path ids that cannot be a ULID before they reach
// the database.
func (v *Validator) ValidateQuizID(id string) domain.FieldErrors {
	if !util.IsValidULID(id) {
		return domain.FieldErrors{domain.NewInvalidFormatError("id", "Invalid quiz id.")}
	}
	return nil
}

func isValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
