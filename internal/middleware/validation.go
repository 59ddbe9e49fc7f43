package middleware

import (
	"quizly/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const QuizIDKey = "validated_quiz_id"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateQuizID rejects malformed :id path parameters before the handler
// runs and stores the id under QuizIDKey.
func (vm *ValidationMiddleware) ValidateQuizID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errs := vm.validator.ValidateQuizID(id); len(errs) > 0 {
			return errs // This will be handled by ErrorHandler middleware
		}
		c.Locals(QuizIDKey, id)
		return c.Next()
	}
}
