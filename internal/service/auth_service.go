package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizly/internal/config"
	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/logger"
	"quizly/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidJWTToken    = errors.New("invalid jwt token")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
	CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType domain.TokenType) (string, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

type authServiceImpl struct {
	userRepo   domain.UserRepository
	blacklist  domain.TokenBlacklist
	jwtConfig  config.JWTConfig
	bcryptCost int
}

// NewAuthService creates a new instance of AuthService. blacklist may be nil,
// in which case logout cannot revoke refresh tokens.
func NewAuthService(userRepo domain.UserRepository, blacklist domain.TokenBlacklist, jwtConfig config.JWTConfig) (AuthService, error) {
	if len(jwtConfig.SecretKey) < 32 {
		return nil, &domain.ConfigError{Key: "jwt.secret_key", Message: "JWT secret key must be at least 32 bytes long"}
	}
	return &authServiceImpl{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtConfig:  jwtConfig,
		bcryptCost: bcrypt.DefaultCost,
	}, nil
}

func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	var fieldErrs domain.FieldErrors
	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewInternalError("Failed to check email", err)
	}
	if existing != nil {
		fieldErrs = append(fieldErrs, domain.NewDuplicateError("email", "Email already exists"))
	}
	existing, err = s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.NewInternalError("Failed to check username", err)
	}
	if existing != nil {
		fieldErrs = append(fieldErrs, domain.NewDuplicateError("username", "Username already exists"))
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, domain.NewInternalError("Failed to hash password", err)
	}

	user := domain.NewUser(username, email, string(hash))
	user.ID = util.NewULID()
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, mapRepoError(err, "Failed to create user")
	}

	logger.Get().Info("User registered", zap.String("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, domain.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Get().Info("Login rejected", zap.String("username", user.Username))
		return nil, nil, ErrInvalidCredentials
	}

	accessToken, err := s.CreateJWT(ctx, user, s.jwtConfig.AccessTokenTTL, domain.TokenTypeAccess)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.CreateJWT(ctx, user, s.jwtConfig.RefreshTokenTTL, domain.TokenTypeRefresh)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	logger.Get().Info("User logged in", zap.String("userID", user.ID))
	return user, &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessTTL:    s.jwtConfig.AccessTokenTTL,
		RefreshTTL:   s.jwtConfig.RefreshTokenTTL,
	}, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType domain.TokenType) (string, error) {
	now := time.Now()
	claims := dto.AuthClaims{
		UserID:    user.ID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        util.NewULID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtConfig.SecretKey))
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Debug("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed",
				zap.Error(err),
				zap.String("token_snippet", tokenString[:min(len(tokenString), 20)]+"..."))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	if claims, ok := token.Claims.(*dto.AuthClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidJWTToken
}

// RefreshAccessToken issues a new access token. The refresh token must be
// valid, of refresh type and not revoked by a logout.
func (s *authServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.refreshClaims(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if revoked {
			return "", fmt.Errorf("%w: %w", ErrInvalidJWTToken, ErrTokenRevoked)
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return "", domain.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return "", fmt.Errorf("%w: user %s no longer exists", ErrInvalidJWTToken, claims.UserID)
	}

	accessToken, err := s.CreateJWT(ctx, user, s.jwtConfig.AccessTokenTTL, domain.TokenTypeAccess)
	if err != nil {
		return "", fmt.Errorf("failed to create new access token: %w", err)
	}
	logger.Get().Info("Access token refreshed", zap.String("userID", user.ID))
	return accessToken, nil
}

// Logout revokes the refresh token until it would have expired anyway.
func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.blacklist == nil {
		return nil
	}
	claims, err := s.refreshClaims(ctx, refreshToken)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	logger.Get().Info("Refresh token revoked", zap.String("userID", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

func (s *authServiceImpl) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("User %s not found", userID))
	}
	return user, nil
}

func (s *authServiceImpl) refreshClaims(ctx context.Context, refreshToken string) (*dto.AuthClaims, error) {
	claims, err := s.ValidateJWT(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != domain.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJWTToken, ErrWrongTokenType)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing jti or exp", ErrInvalidJWTToken)
	}
	return claims, nil
}
