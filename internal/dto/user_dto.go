package dto

import (
	"quizly/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims defines the custom claims for JWT.
type AuthClaims struct {
	UserID    string           `json:"user_id"`
	TokenType domain.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// RegisterRequest is the body of POST /api/register
// @Description Request body for creating an account
type RegisterRequest struct {
	Username          string `json:"username" example:"alice"`
	Password          string `json:"password" example:"s3cret!"`
	ConfirmedPassword string `json:"confirmed_password" example:"s3cret!"`
	Email             string `json:"email" example:"alice@example.com"`
}

// LoginRequest is the body of POST /api/login
// @Description Request body for logging in
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"s3cret!"`
}

// UserResponse is the public part of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

// DetailResponse represents a generic message response.
// @Description Generic message response
type DetailResponse struct {
	Detail string `json:"detail"`
}

// LoginResponse is returned after the auth cookies were set.
type LoginResponse struct {
	Detail string       `json:"detail"`
	User   UserResponse `json:"user"`
}

// RefreshResponse carries the new access token; it is also set as a cookie.
type RefreshResponse struct {
	Detail string `json:"detail"`
	Access string `json:"access"`
}

// ErrorResponse is the body of every error returned by the API.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse reports dependency reachability.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
