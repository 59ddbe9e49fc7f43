package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"quizly/cmd/seed_initial_data/internal/seedmodels"
	"quizly/internal/config"
	"quizly/internal/database"
	"quizly/internal/domain"
	"quizly/internal/logger"
	"quizly/internal/repository"
	"quizly/internal/service"
	"quizly/internal/validation"

	"go.uber.org/zap"
)

const defaultSeedFilePath = "config/seed_data/demo_quizzes.json"

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		// logger is not initialized yet
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	seedFilePath := defaultSeedFilePath
	if len(os.Args) > 1 {
		seedFilePath = os.Args[1]
	}

	log.Info("Starting demo data seeding process...")
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, database.Up); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	users, err := loadSeedFile(seedFilePath)
	if err != nil {
		log.Fatal("Failed to load seed data", zap.String("path", seedFilePath), zap.Error(err))
	}
	log.Info("Loaded seed data", zap.String("path", seedFilePath), zap.Int("users", len(users)))

	userRepo := repository.NewSQLXUserRepository(db)
	authService, err := service.NewAuthService(userRepo, nil, cfg.JWT)
	if err != nil {
		log.Fatal("Failed to create AuthService", zap.Error(err))
	}
	s := &seeder{
		auth:      authService,
		users:     userRepo,
		quizzes:   repository.NewSQLXQuizRepository(db),
		txManager: repository.NewTransactionManagerAdapter(db),
		validator: validation.NewQuizValidator(),
		log:       log,
	}

	failed := 0
	for _, u := range users {
		if err := s.seedUser(ctx, u); err != nil {
			failed++
			log.Error("Error seeding user, transaction rolled back", zap.String("username", u.Username), zap.Error(err))
		}
	}
	log.Info("Demo data seeding process completed.", zap.Int("users", len(users)), zap.Int("failed", failed))
}

func loadSeedFile(path string) ([]seedmodels.SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var users []seedmodels.SeedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed data: %w", err)
	}
	return users, nil
}

type seeder struct {
	auth      service.AuthService
	users     domain.UserRepository
	quizzes   domain.QuizRepository
	txManager domain.TransactionManager
	validator domain.QuizValidator
	log       *zap.Logger
}

// seedUser creates the account when missing and adds every quiz whose video
// the user does not own yet. Running it twice changes nothing.
func (s *seeder) seedUser(ctx context.Context, su seedmodels.SeedUser) error {
	validated := make([]*domain.ValidatedQuiz, len(su.Quizzes))
	for i := range su.Quizzes {
		vq, err := s.validator.Validate(&su.Quizzes[i].CandidateQuiz)
		if err != nil {
			return fmt.Errorf("seed quiz for %s is invalid: %w", su.Quizzes[i].VideoURL, err)
		}
		validated[i] = vq
	}

	user, err := s.users.GetUserByUsername(ctx, su.Username)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", su.Username, err)
	}
	if user == nil {
		user, err = s.auth.Register(ctx, su.Username, su.Email, su.Password)
		if err != nil {
			return fmt.Errorf("failed to register user %s: %w", su.Username, err)
		}
		s.log.Info("Created user.", zap.String("id", user.ID), zap.String("username", user.Username))
	} else {
		s.log.Info("User exists.", zap.String("id", user.ID), zap.String("username", user.Username))
	}

	existing, err := s.quizzes.ListQuizzesByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error listing quizzes of %s: %w", su.Username, err)
	}
	owned := make(map[string]bool, len(existing))
	for _, q := range existing {
		owned[q.VideoURL] = true
	}

	var pending []*domain.Quiz
	for i, sq := range su.Quizzes {
		if owned[sq.VideoURL] {
			s.log.Info("Quiz exists.", zap.String("video_url", sq.VideoURL))
			continue
		}
		owned[sq.VideoURL] = true
		pending = append(pending, domain.NewQuiz(user.ID, sq.VideoURL, validated[i]))
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, q := range pending {
			if err := s.quizzes.CreateQuiz(txCtx, q); err != nil {
				return fmt.Errorf("failed to save quiz %q: %w", q.Title, err)
			}
			s.log.Info("Successfully created quiz.", zap.String("id", q.ID), zap.String("title", q.Title))
		}
		return nil
	})
}
