package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edu-analytics/student-portal-api/internal/models"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
)

type stubAuthRecords struct {
	record *models.StudentRecord
	err    error
}

func (s *stubAuthRecords) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.record == nil || s.record.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

type stubDenylist struct {
	denied map[string]time.Duration
	err    error
}

func (s *stubDenylist) Deny(ctx context.Context, tokenID string, until time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if s.denied == nil {
		s.denied = make(map[string]time.Duration)
	}
	s.denied[tokenID] = until
	return nil
}

func (s *stubDenylist) IsDenied(ctx context.Context, tokenID string) bool {
	_, ok := s.denied[tokenID]
	return ok
}

func newTestAuthService(records *stubAuthRecords, denylist *stubDenylist) *AuthService {
	return NewAuthService(records, denylist, validator.New(), zap.NewNop(), AuthConfig{
		JWTSecret:       "test-secret",
		TokenExpiry:     time.Hour,
		TeacherID:       "teacher1",
		TeacherPassword: "teacherpass",
	})
}

func TestLoginTeacherSuccess(t *testing.T) {
	svc := newTestAuthService(&stubAuthRecords{}, &stubDenylist{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "teacherpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleTeacher, res.Role)
	assert.Equal(t, "teacher1", res.UserID)
}

func TestLoginTeacherHashedCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashedpass"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService(&stubAuthRecords{}, &stubDenylist{}, validator.New(), zap.NewNop(), AuthConfig{
		JWTSecret:           "test-secret",
		TokenExpiry:         time.Hour,
		TeacherID:           "teacher1",
		TeacherPasswordHash: string(hash),
	})

	_, err = svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "hashedpass"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginTeacherWrongPassword(t *testing.T) {
	svc := newTestAuthService(&stubAuthRecords{}, &stubDenylist{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginStudentBcryptCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("studentpass"), bcrypt.MinCost)
	require.NoError(t, err)
	records := &stubAuthRecords{record: &models.StudentRecord{StudentID: "S001", Password: string(hash)}}
	svc := newTestAuthService(records, &stubDenylist{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleStudent, ID: "S001", Password: "studentpass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.Role)
}

func TestLoginStudentLegacyPlaintextCredential(t *testing.T) {
	records := &stubAuthRecords{record: &models.StudentRecord{StudentID: "S001", Password: "legacy-plain"}}
	svc := newTestAuthService(records, &stubDenylist{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleStudent, ID: "S001", Password: "legacy-plain"})
	require.NoError(t, err)
}

func TestLoginStudentUnknownIDAndWrongPasswordIndistinguishable(t *testing.T) {
	records := &stubAuthRecords{record: &models.StudentRecord{StudentID: "S001", Password: "secret"}}
	svc := newTestAuthService(records, &stubDenylist{})

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleStudent, ID: "S999", Password: "secret"})
	_, wrongErr := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleStudent, ID: "S001", Password: "wrong"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, appErrors.FromError(unknownErr).Message, appErrors.FromError(wrongErr).Message)
	assert.Equal(t, appErrors.FromError(unknownErr).Code, appErrors.FromError(wrongErr).Code)
}

func TestLoginStudentEmptyStoredCredentialRejected(t *testing.T) {
	records := &stubAuthRecords{record: &models.StudentRecord{StudentID: "S001", Password: ""}}
	svc := newTestAuthService(records, &stubDenylist{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleStudent, ID: "S001", Password: ""})
	require.Error(t, err)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(&stubAuthRecords{}, &stubDenylist{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "teacherpass"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "teacher1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLogoutRevokesToken(t *testing.T) {
	denylist := &stubDenylist{}
	svc := newTestAuthService(&stubAuthRecords{}, denylist)

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "teacherpass"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))

	_, err = svc.ValidateToken(context.Background(), res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	denylist := &stubDenylist{}
	svc := newTestAuthService(&stubAuthRecords{}, denylist)

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: models.RoleTeacher, ID: "teacher1", Password: "teacherpass"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	require.NoError(t, svc.Logout(context.Background(), claims))
	require.NoError(t, svc.Logout(context.Background(), nil))
}

func TestCredentialMatches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, credentialMatches(string(hash), "pw123456"))
	assert.False(t, credentialMatches(string(hash), "other"))
	assert.True(t, credentialMatches("plaintext", "plaintext"))
	assert.False(t, credentialMatches("plaintext", "plaintex"))
	assert.False(t, credentialMatches("", ""))
}
