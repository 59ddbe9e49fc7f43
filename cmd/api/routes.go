package main

import (
	"context"

	"quizly/internal/config"
	"quizly/internal/handler"
	"quizly/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

type routeHandlers struct {
	auth      *handler.AuthHandler
	quiz      *handler.QuizHandler
	health    *handler.HealthHandler
	validator middleware.TokenValidator
}

// newApp builds the fiber app with the middleware stack and every route.
// Request contexts are cancelled once base is done.
func newApp(base context.Context, cfg *config.Config, h routeHandlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.RequestContext(base))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/health", h.health.Health)

	api := app.Group("/api")
	protected := middleware.Protected(h.validator)

	// Auth routes
	api.Post("/register", h.auth.Register)
	api.Post("/login", h.auth.Login)
	api.Post("/logout", protected, h.auth.Logout)
	api.Post("/token/refresh", h.auth.RefreshToken)

	// Quiz routes (all protected)
	validQuizID := middleware.NewValidationMiddleware().ValidateQuizID()
	api.Post("/createQuiz", protected, h.quiz.CreateQuiz)
	api.Get("/quizzes", protected, h.quiz.ListQuizzes)
	api.Get("/quizzes/:id", protected, validQuizID, h.quiz.GetQuiz)
	api.Patch("/quizzes/:id", protected, validQuizID, h.quiz.UpdateQuiz)
	api.Delete("/quizzes/:id", protected, validQuizID, h.quiz.DeleteQuiz)

	return app
}
