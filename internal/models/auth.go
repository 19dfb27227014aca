package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies which side of the portal a session belongs to.
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Role     Role   `json:"role" validate:"required,oneof=TEACHER STUDENT"`
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Role        Role      `json:"role"`
	UserID      string    `json:"user_id"`
}

// SessionClaims is the JWT payload for access tokens. The token ID backs
// the logout denylist.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
