package handler

import (
	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/middleware"
	"quizly/internal/service"
	"quizly/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// CreateQuiz godoc
// @Summary Generate a quiz from a YouTube video
// @Description Downloads the audio, transcribes it and asks the model for 10 questions. Can take minutes.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param request body dto.CreateQuizRequest true "YouTube URL"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} middleware.ValidationErrorResponse "Invalid YouTube-URL."
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse "Quiz generation failed."
// @Security ApiKeyAuth
// @Router /createQuiz [post]
func (h *QuizHandler) CreateQuiz(c *fiber.Ctx) error {
	var req dto.CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if errs := h.validator.ValidateCreateQuiz(req.URL); len(errs) > 0 {
		return errs
	}

	quiz, err := h.service.CreateFromVideo(c.UserContext(), middleware.UserID(c), req.URL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewQuizResponse(quiz))
}

// ListQuizzes godoc
// @Summary List my quizzes
// @Description Returns the caller's quizzes with their questions, newest first.
// @Tags quizzes
// @Produce json
// @Success 200 {array} dto.QuizResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *fiber.Ctx) error {
	quizzes, err := h.service.ListQuizzes(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizListResponse(quizzes))
}

// GetQuiz godoc
// @Summary Get a quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.QuizResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	quiz, err := h.service.GetQuiz(c.UserContext(), middleware.UserID(c), quizID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResponse(quiz))
}

// UpdateQuiz godoc
// @Summary Update a quiz
// @Description Partial update of title, description and video_url.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param request body dto.UpdateQuizRequest true "Fields to change"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [patch]
func (h *QuizHandler) UpdateQuiz(c *fiber.Ctx) error {
	var req dto.UpdateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	update := req.ToDomain()
	if errs := h.validator.ValidateQuizUpdate(update); len(errs) > 0 {
		return errs
	}

	quiz, err := h.service.UpdateQuiz(c.UserContext(), middleware.UserID(c), quizID(c), update)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResponse(quiz))
}

// DeleteQuiz godoc
// @Summary Delete a quiz
// @Tags quizzes
// @Param id path string true "Quiz ID"
// @Success 204 "No Content"
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *fiber.Ctx) error {
	if err := h.service.DeleteQuiz(c.UserContext(), middleware.UserID(c), quizID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func quizID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.QuizIDKey).(string); ok {
		return id
	}
	return c.Params("id")
}
