package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quizly/internal/domain"
	"quizly/internal/repository/models"
	"quizly/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	quizColumns     = `ID, USER_ID, TITLE, DESCRIPTION, VIDEO_URL, CREATED_AT, UPDATED_AT`
	questionColumns = `ID, QUIZ_ID, POSITION, QUESTION_TITLE, QUESTION_OPTIONS, ANSWER, CREATED_AT, UPDATED_AT`
)

// sqlxQuizRepository implements domain.QuizRepository using sqlx.
// CreateQuiz writes several rows; callers wrap it in a TransactionManager.
type sqlxQuizRepository struct {
	db *sqlx.DB
}

func NewSQLXQuizRepository(db *sqlx.DB) domain.QuizRepository {
	return &sqlxQuizRepository{db: db}
}

func (r *sqlxQuizRepository) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = now
	}
	quiz.UpdatedAt = now

	exec := GetExecutor(ctx, r.db)
	m := fromDomainQuiz(quiz)
	insertQuiz := exec.Rebind(`INSERT INTO QUIZZES (` + quizColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := exec.ExecContext(ctx, insertQuiz,
		m.ID, m.UserID, m.Title, m.Description, m.VideoURL, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}

	insertQuestion := exec.Rebind(`INSERT INTO QUESTIONS (` + questionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == "" {
			q.ID = util.NewULID()
		}
		q.QuizID = quiz.ID
		q.Position = i
		q.CreatedAt = quiz.CreatedAt
		q.UpdatedAt = quiz.UpdatedAt

		qm := fromDomainQuestion(q)
		if _, err := exec.ExecContext(ctx, insertQuestion,
			qm.ID, qm.QuizID, qm.Position, qm.QuestionTitle, qm.QuestionOptions, qm.Answer, qm.CreatedAt, qm.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create question %d: %w", i, err)
		}
	}
	return nil
}

// GetQuizByID returns (nil, nil) when the quiz does not exist.
func (r *sqlxQuizRepository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.Quiz
	query := exec.Rebind(`SELECT ` + quizColumns + ` FROM QUIZZES WHERE ID = ?`)
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz by id: %w", err)
	}

	questions, err := r.questionsFor(ctx, exec, []string{m.ID})
	if err != nil {
		return nil, err
	}
	return toDomainQuiz(&m, questions[m.ID]), nil
}

// ListQuizzesByUser returns the user's quizzes newest first.
func (r *sqlxQuizRepository) ListQuizzesByUser(ctx context.Context, userID string) ([]*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var rows []models.Quiz
	query := exec.Rebind(`SELECT ` + quizColumns + ` FROM QUIZZES WHERE USER_ID = ? ORDER BY CREATED_AT DESC, ID DESC`)
	if err := exec.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	if len(rows) == 0 {
		return []*domain.Quiz{}, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	questions, err := r.questionsFor(ctx, exec, ids)
	if err != nil {
		return nil, err
	}

	quizzes := make([]*domain.Quiz, 0, len(rows))
	for i := range rows {
		quizzes = append(quizzes, toDomainQuiz(&rows[i], questions[rows[i].ID]))
	}
	return quizzes, nil
}

// UpdateQuiz persists the quiz's own fields. Questions are immutable.
func (r *sqlxQuizRepository) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	m := fromDomainQuiz(quiz)

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE QUIZZES SET TITLE = ?, DESCRIPTION = ?, VIDEO_URL = ?, UPDATED_AT = ? WHERE ID = ?`)
	result, err := exec.ExecContext(ctx, query, m.Title, m.Description, m.VideoURL, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return expectOneRow(result, quiz.ID)
}

func (r *sqlxQuizRepository) DeleteQuiz(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM QUESTIONS WHERE QUIZ_ID = ?`), id); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	result, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM QUIZZES WHERE ID = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return expectOneRow(result, id)
}

func (r *sqlxQuizRepository) questionsFor(ctx context.Context, exec DBTX, quizIDs []string) (map[string][]models.Question, error) {
	query, args, err := sqlx.In(`SELECT `+questionColumns+` FROM QUESTIONS WHERE QUIZ_ID IN (?) ORDER BY QUIZ_ID, POSITION`, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build questions query: %w", err)
	}

	var rows []models.Question
	if err := exec.SelectContext(ctx, &rows, exec.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	byQuiz := make(map[string][]models.Question, len(quizIDs))
	for _, q := range rows {
		byQuiz[q.QuizID] = append(byQuiz[q.QuizID], q)
	}
	return byQuiz, nil
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewQuizNotFoundError(id)
	}
	return nil
}

func toDomainQuiz(m *models.Quiz, questions []models.Question) *domain.Quiz {
	q := &domain.Quiz{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description.String,
		VideoURL:    m.VideoURL,
		Questions:   make([]domain.Question, 0, len(questions)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, qm := range questions {
		q.Questions = append(q.Questions, domain.Question{
			ID:        qm.ID,
			QuizID:    qm.QuizID,
			Position:  qm.Position,
			Title:     qm.QuestionTitle,
			Options:   []string(qm.QuestionOptions),
			Answer:    qm.Answer,
			CreatedAt: qm.CreatedAt,
			UpdatedAt: qm.UpdatedAt,
		})
	}
	return q
}

func fromDomainQuiz(d *domain.Quiz) *models.Quiz {
	return &models.Quiz{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: util.StringToNullString(d.Description),
		VideoURL:    d.VideoURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func fromDomainQuestion(d *domain.Question) *models.Question {
	return &models.Question{
		ID:              d.ID,
		QuizID:          d.QuizID,
		Position:        d.Position,
		QuestionTitle:   d.Title,
		QuestionOptions: models.StringSlice(d.Options),
		Answer:          d.Answer,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}
