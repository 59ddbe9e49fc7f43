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

const userColumns = `ID, USERNAME, EMAIL, PASSWORD_HASH, CREATED_AT, UPDATED_AT`

// sqlxUserRepository implements domain.UserRepository using sqlx.
type sqlxUserRepository struct {
	db *sqlx.DB
}

func NewSQLXUserRepository(db *sqlx.DB) domain.UserRepository {
	return &sqlxUserRepository{db: db}
}

// CreateUser assigns an ID when missing. A duplicate username or email is
// reported as a CodeConflict domain error.
func (r *sqlxUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	m := fromDomainUser(user)
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO USERS (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query, m.ID, m.Username, m.Email, m.PasswordHash, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if util.IsUniqueViolation(err) {
			return domain.NewError(domain.CodeConflict, "user already exists", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqlxUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUserBy(ctx, "ID", id)
}

func (r *sqlxUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUserBy(ctx, "USERNAME", username)
}

func (r *sqlxUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserBy(ctx, "EMAIL", email)
}

// getUserBy returns (nil, nil) when no user matches. column is never user input.
func (r *sqlxUserRepository) getUserBy(ctx context.Context, column, value string) (*domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`SELECT ` + userColumns + ` FROM USERS WHERE ` + column + ` = ?`)

	var m models.User
	if err := exec.GetContext(ctx, &m, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return toDomainUser(&m), nil
}

func toDomainUser(m *models.User) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromDomainUser(d *domain.User) *models.User {
	if d == nil {
		return nil
	}
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
