package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edu-analytics/student-portal-api/internal/models"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
)

type authRecordStore interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
}

type sessionDenylist interface {
	Deny(ctx context.Context, tokenID string, until time.Duration) error
	IsDenied(ctx context.Context, tokenID string) bool
}

// AuthConfig defines configuration for the session gate. The teacher
// credential is externalized; TeacherPasswordHash (bcrypt) is preferred and
// TeacherPassword exists only for legacy deployments that have not rotated
// to a hash yet.
type AuthConfig struct {
	JWTSecret           string
	TokenExpiry         time.Duration
	TeacherID           string
	TeacherPassword     string
	TeacherPasswordHash string
	Issuer              string
}

// AuthService authenticates teachers and students and manages session
// tokens. Logout is a denylist write keyed by token ID, so it is
// unconditional and idempotent.
type AuthService struct {
	records   authRecordStore
	denylist  sessionDenylist
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(records authRecordStore, denylist sessionDenylist, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "student-portal-api"
	}
	return &AuthService{records: records, denylist: denylist, validator: validate, logger: logger, config: config}
}

// Login authenticates a user for the requested role and returns a session
// token. Unknown student IDs and wrong passwords come back as the same
// error so callers cannot probe which IDs exist.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	switch req.Role {
	case models.RoleTeacher:
		if err := s.checkTeacherCredential(req.ID, req.Password); err != nil {
			return nil, err
		}
	case models.RoleStudent:
		if err := s.checkStudentCredential(ctx, req.ID, req.Password); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	token, issuedAt, err := s.issueToken(req.ID, req.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Role:        req.Role,
		UserID:      req.ID,
	}, nil
}

// Logout revokes the token behind the provided claims. Revoking an already
// revoked or expired token succeeds: the session is gone either way.
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if claims == nil || s.denylist == nil {
		return nil
	}
	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	if remaining <= 0 {
		return nil
	}
	if err := s.denylist.Deny(ctx, claims.ID, remaining); err != nil {
		s.logger.Warn("failed to record session revocation", zap.Error(err))
	}
	return nil
}

// ValidateToken parses and validates an access token, rejecting revoked
// sessions.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.denylist != nil && s.denylist.IsDenied(ctx, claims.ID) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session revoked")
	}

	return claims, nil
}

func (s *AuthService) checkTeacherCredential(id, password string) error {
	if subtle.ConstantTimeCompare([]byte(id), []byte(s.config.TeacherID)) != 1 {
		return appErrors.ErrInvalidCredentials
	}
	if s.config.TeacherPasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(s.config.TeacherPasswordHash), []byte(password)) != nil {
			return appErrors.ErrInvalidCredentials
		}
		return nil
	}
	if s.config.TeacherPassword == "" {
		s.logger.Warn("teacher login attempted with no credential configured")
		return appErrors.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.config.TeacherPassword)) != 1 {
		return appErrors.ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) checkStudentCredential(ctx context.Context, studentID, password string) error {
	record, err := s.records.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrInvalidCredentials
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check credentials")
	}
	if !credentialMatches(record.Password, password) {
		return appErrors.ErrInvalidCredentials
	}
	return nil
}

// credentialMatches compares a stored credential against the supplied
// password. Credentials written by this system are bcrypt hashes; rows
// imported from the legacy portal may still carry plaintext, which gets a
// constant-time comparison until re-hashed via the credential endpoint.
func credentialMatches(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func (s *AuthService) issueToken(userID string, role models.Role) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.SessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
