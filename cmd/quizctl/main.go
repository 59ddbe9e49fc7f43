package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"quizly/internal/adapter/fetcher"
	"quizly/internal/adapter/quizgen"
	"quizly/internal/adapter/transcriber"
	"quizly/internal/config"
	"quizly/internal/database"
	"quizly/internal/domain"
	"quizly/internal/logger"
	"quizly/internal/repository"
	"quizly/internal/service"
	"quizly/internal/validation"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizctl",
		Short: "Run the video to quiz pipeline from the command line",
	}
	root.AddCommand(buildCmd())
	return root
}

// buildResult is one line of output. Exactly one of Quiz and Error is set.
type buildResult struct {
	URL    string                `json:"url"`
	QuizID string                `json:"quiz_id,omitempty"`
	Quiz   *domain.CandidateQuiz `json:"quiz,omitempty"`
	Stage  string                `json:"stage,omitempty"`
	Cause  string                `json:"cause,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "build <youtube-url>...",
		Short:        "Build quizzes for one or more videos and print them as JSON lines",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         runBuild,
	}
	f := cmd.Flags()
	f.IntP("parallel", "p", 2, "Number of videos processed at once")
	f.String("generator", "", "Generator backend (gemini, openai, ollama); overrides generator.backend")
	f.String("transcriber", "", "Transcriber backend (gemini, whisper); overrides transcriber.backend")
	f.String("save-as", "", "Store every built quiz in the database for this username")
	_ = viper.BindPFlag("generator.backend", f.Lookup("generator"))
	_ = viper.BindPFlag("transcriber.backend", f.Lookup("transcriber"))
	return cmd
}

func runBuild(cmd *cobra.Command, urls []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return err
	}
	log := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	audioFetcher := fetcher.NewYTDLPFetcher(cfg.Fetcher, log.Named("fetcher"))
	if err := audioFetcher.CheckToolchain(); err != nil {
		return err
	}
	audioTranscriber, err := transcriber.New(cfg, log)
	if err != nil {
		return err
	}
	generator, err := quizgen.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	pipeline := service.NewPipelineFromConfig(cfg.Pipeline,
		audioFetcher, audioTranscriber, generator, validation.NewQuizValidator(), log)
	r := &runner{builder: pipeline}

	if username, _ := cmd.Flags().GetString("save-as"); username != "" {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		user, err := repository.NewSQLXUserRepository(db).GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %q not found", username)
		}
		r.userID = user.ID
		r.quizzes = service.NewQuizService(pipeline, repository.NewSQLXQuizRepository(db), repository.NewTransactionManagerAdapter(db))
	}

	parallel, _ := cmd.Flags().GetInt("parallel")
	out := &jsonLines{w: cmd.OutOrStdout()}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, url := range urls {
		g.Go(func() error {
			res := r.buildOne(gctx, url)
			if res.Error != "" {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return out.write(res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Batch finished", zap.Int("videos", len(urls)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(urls))
	}
	return nil
}

// runner builds one video at a time. With quizzes set every result is also
// stored for userID.
type runner struct {
	builder domain.QuizBuilder
	quizzes service.QuizService
	userID  string
}

// buildOne never returns an error so one bad video does not cancel the rest.
func (r *runner) buildOne(ctx context.Context, url string) buildResult {
	if r.quizzes != nil {
		quiz, err := r.quizzes.CreateFromVideo(ctx, r.userID, url)
		if err != nil {
			return failedResult(url, err)
		}
		return buildResult{URL: url, QuizID: quiz.ID, Quiz: storedCandidate(quiz)}
	}

	validated, err := r.builder.Build(ctx, url)
	if err != nil {
		return failedResult(url, err)
	}
	return buildResult{URL: url, Quiz: &domain.CandidateQuiz{
		Title:       validated.Title,
		Description: validated.Description,
		Questions:   validated.Questions,
	}}
}

func failedResult(url string, err error) buildResult {
	res := buildResult{URL: url, Error: err.Error()}
	var buildErr *domain.QuizBuildError
	if errors.As(err, &buildErr) {
		res.Stage = string(buildErr.Stage)
		res.Cause = buildErr.CauseCategory()
	}
	return res
}

func storedCandidate(q *domain.Quiz) *domain.CandidateQuiz {
	c := &domain.CandidateQuiz{Title: q.Title, Description: q.Description}
	for _, question := range q.Questions {
		c.Questions = append(c.Questions, domain.QuestionCandidate{
			Prompt:        question.Title,
			Options:       question.Options,
			CorrectAnswer: question.Answer,
		})
	}
	return c
}

type jsonLines struct {
	mu sync.Mutex
	w  io.Writer
}

func (j *jsonLines) write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.w).Encode(v)
}
