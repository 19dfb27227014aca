package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edu-analytics/student-portal-api/internal/models"
	"github.com/edu-analytics/student-portal-api/internal/repository"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
)

type stubRecordStore struct {
	records map[string]*models.StudentRecord
	getErr  error
}

func newStubRecordStore(records ...*models.StudentRecord) *stubRecordStore {
	s := &stubRecordStore{records: make(map[string]*models.StudentRecord)}
	for _, r := range records {
		copied := *r
		s.records[r.StudentID] = &copied
	}
	return s
}

func (s *stubRecordStore) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (s *stubRecordStore) Upsert(ctx context.Context, record *models.StudentRecord) error {
	copied := *record
	s.records[record.StudentID] = &copied
	return nil
}

func (s *stubRecordStore) Scan(ctx context.Context) ([]models.StudentRecord, error) {
	out := make([]models.StudentRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRecordStore) FindByStudent(ctx context.Context, studentID string) ([]models.StudentRecord, error) {
	record, ok := s.records[studentID]
	if !ok {
		return []models.StudentRecord{}, nil
	}
	return []models.StudentRecord{*record}, nil
}

type stubBlobStore struct {
	saved map[string][]byte
	err   error
}

func (s *stubBlobStore) SaveStream(key string, r io.Reader) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.saved[key] = data
	return nil
}

type stubSigner struct{}

func (stubSigner) Sign(key string) (string, time.Time, error) {
	return "tok-" + key, time.Now().Add(10 * time.Minute), nil
}

type stubRosterCache struct {
	entries map[string][]byte
	deletes int
}

func (s *stubRosterCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubRosterCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = raw
	return nil
}

func (s *stubRosterCache) Delete(ctx context.Context, key string) error {
	s.deletes++
	delete(s.entries, key)
	return nil
}

func newTestRecordService(store *stubRecordStore, blobs *stubBlobStore, cache *stubRosterCache) *RecordService {
	return NewRecordService(store, blobs, stubSigner{}, cache, nil, validator.New(), zap.NewNop(), RecordServiceConfig{})
}

func TestUploadAssignmentCreatesRecordWithDefaults(t *testing.T) {
	store := newStubRecordStore()
	blobs := &stubBlobStore{}
	svc := newTestRecordService(store, blobs, &stubRosterCache{})

	record, err := svc.UploadAssignment(context.Background(), "S001", "Alice", AssignmentUpload{
		Filename: "essay.pdf",
		Size:     4,
		Content:  bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)

	assert.Equal(t, "S001", record.StudentID)
	assert.Equal(t, "Alice", record.Name)
	assert.Equal(t, 0, record.Marks)
	assert.Equal(t, 0, record.Attendance)
	assert.Equal(t, models.StatusNA, record.Status)
	assert.Equal(t, models.RiskNA, record.RiskStatus)
	assert.Empty(t, record.Password)
	assert.Equal(t, models.TypeAssignment, record.Type)
	assert.Equal(t, "essay.pdf", record.FileName)
	require.NotNil(t, record.UploadDate)

	assert.Equal(t, []byte("data"), blobs.saved["assignments/S001_essay.pdf"])
}

func TestUploadAssignmentDefaultsNameWhenOmitted(t *testing.T) {
	store := newStubRecordStore()
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	record, err := svc.UploadAssignment(context.Background(), "S001", "", AssignmentUpload{
		Filename: "essay.pdf",
		Content:  strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", record.Name)
}

func TestUploadAssignmentOverwritesSameKey(t *testing.T) {
	store := newStubRecordStore()
	blobs := &stubBlobStore{}
	svc := newTestRecordService(store, blobs, &stubRosterCache{})

	_, err := svc.UploadAssignment(context.Background(), "S001", "Alice", AssignmentUpload{
		Filename: "essay.pdf",
		Content:  strings.NewReader("v1"),
	})
	require.NoError(t, err)

	record, err := svc.UploadAssignment(context.Background(), "S001", "", AssignmentUpload{
		Filename: "essay.pdf",
		Content:  strings.NewReader("v2"),
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("v2"), blobs.saved["assignments/S001_essay.pdf"])
	assert.Len(t, blobs.saved, 1)
	assert.Equal(t, "Alice", record.Name)
}

func TestUploadAssignmentPreservesPerformanceFields(t *testing.T) {
	existing := &models.StudentRecord{
		StudentID: "S001", Name: "Alice", Marks: 80, Attendance: 90,
		Status: models.StatusPass, RiskStatus: models.RiskSafe, Password: "hash",
	}
	store := newStubRecordStore(existing)
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	record, err := svc.UploadAssignment(context.Background(), "S001", "", AssignmentUpload{
		Filename: "essay.pdf",
		Content:  strings.NewReader("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, 80, record.Marks)
	assert.Equal(t, 90, record.Attendance)
	assert.Equal(t, models.StatusPass, record.Status)
	assert.Equal(t, models.RiskSafe, record.RiskStatus)
	assert.Equal(t, "hash", record.Password)
}

func TestUploadAssignmentRejectsOversizeFile(t *testing.T) {
	svc := NewRecordService(newStubRecordStore(), &stubBlobStore{}, stubSigner{}, nil, nil, validator.New(), zap.NewNop(), RecordServiceConfig{MaxUploadBytes: 10})

	_, err := svc.UploadAssignment(context.Background(), "S001", "", AssignmentUpload{
		Filename: "big.pdf",
		Size:     11,
		Content:  strings.NewReader("0123456789a"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdatePerformanceRequiresExistingRecord(t *testing.T) {
	store := newStubRecordStore()
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	_, err := svc.UpdatePerformance(context.Background(), "S404", PerformanceUpdateRequest{Marks: 50, Attendance: 60, Status: models.StatusPass})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.records)
}

func TestUpdatePerformancePreservesIdentityAndRisk(t *testing.T) {
	existing := &models.StudentRecord{
		StudentID: "S001", Name: "Alice", Password: "hash",
		FileName: "essay.pdf", FilePath: "assignments/S001_essay.pdf",
		RiskStatus: models.RiskAtRisk,
	}
	store := newStubRecordStore(existing)
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	record, err := svc.UpdatePerformance(context.Background(), "S001", PerformanceUpdateRequest{Marks: 70, Attendance: 85, Status: models.StatusPass})
	require.NoError(t, err)

	assert.Equal(t, 70, record.Marks)
	assert.Equal(t, 85, record.Attendance)
	assert.Equal(t, models.StatusPass, record.Status)
	assert.Equal(t, models.TypePerformance, record.Type)
	assert.Equal(t, "Alice", record.Name)
	assert.Equal(t, "hash", record.Password)
	assert.Equal(t, models.RiskAtRisk, record.RiskStatus)
	assert.Equal(t, "assignments/S001_essay.pdf", record.FilePath)
	require.NotNil(t, record.LastUpdated)
}

func TestUpdatePerformanceRejectsOutOfRangeMarks(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001"})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	_, err := svc.UpdatePerformance(context.Background(), "S001", PerformanceUpdateRequest{Marks: 101, Attendance: 50, Status: models.StatusPass})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSetCredentialStoresBcryptHash(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001", Name: "Alice", Password: "legacy-plain"})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	err := svc.SetCredential(context.Background(), "S001", SetCredentialRequest{Password: "newpass123"})
	require.NoError(t, err)

	stored := store.records["S001"]
	assert.NotEqual(t, "newpass123", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpass123")))
	assert.Equal(t, "Alice", stored.Name)
}

func TestRosterCountsRiskStatuses(t *testing.T) {
	store := newStubRecordStore(
		&models.StudentRecord{StudentID: "S001", RiskStatus: models.RiskSafe},
		&models.StudentRecord{StudentID: "S002", RiskStatus: models.RiskAtRisk},
		&models.StudentRecord{StudentID: "S003", RiskStatus: models.RiskNA},
	)
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	roster, err := svc.Roster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, roster.Summary.TotalStudents)
	assert.Equal(t, 1, roster.Summary.SafeCount)
	assert.Equal(t, 1, roster.Summary.AtRiskCount)
}

func TestRosterServedFromCache(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001"})
	cache := &stubRosterCache{}
	svc := newTestRecordService(store, &stubBlobStore{}, cache)

	first, err := svc.Roster(context.Background())
	require.NoError(t, err)

	// A direct write bypassing the service is invisible until the cache
	// entry expires or is invalidated.
	store.records["S002"] = &models.StudentRecord{StudentID: "S002"}

	second, err := svc.Roster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Summary.TotalStudents, second.Summary.TotalStudents)
}

func TestWritesInvalidateRosterCache(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001"})
	cache := &stubRosterCache{}
	svc := newTestRecordService(store, &stubBlobStore{}, cache)

	_, err := svc.Roster(context.Background())
	require.NoError(t, err)

	_, err = svc.UploadAssignment(context.Background(), "S002", "", AssignmentUpload{
		Filename: "hw.pdf",
		Content:  strings.NewReader("x"),
	})
	require.NoError(t, err)
	assert.Positive(t, cache.deletes)

	roster, err := svc.Roster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, roster.Summary.TotalStudents)
}

func TestExportRosterCSV(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001", Name: "Alice", Marks: 70, Attendance: 80, Status: models.StatusPass, RiskStatus: models.RiskSafe})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	payload, contentType, filename, err := svc.ExportRoster(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "student-roster.csv", filename)
	assert.Contains(t, string(payload), "StudentID")
	assert.Contains(t, string(payload), "Alice")
}

func TestExportRosterPDF(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001", Name: "Alice"})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	payload, contentType, filename, err := svc.ExportRoster(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "student-roster.pdf", filename)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestExportRosterRejectsUnknownFormat(t *testing.T) {
	svc := newTestRecordService(newStubRecordStore(), &stubBlobStore{}, &stubRosterCache{})

	_, _, _, err := svc.ExportRoster(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentAssignmentsOnlyOwnUploads(t *testing.T) {
	now := time.Now().UTC()
	store := newStubRecordStore(
		&models.StudentRecord{StudentID: "S001", FileName: "essay.pdf", FilePath: "assignments/S001_essay.pdf", Type: models.TypeAssignment, UploadDate: &now, RiskStatus: models.RiskAtRisk},
		&models.StudentRecord{StudentID: "S002", FileName: "other.pdf", FilePath: "assignments/S002_other.pdf", Type: models.TypeAssignment},
	)
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	views, err := svc.StudentAssignments(context.Background(), "S001")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "essay.pdf", views[0].FileName)
	assert.Contains(t, views[0].DownloadURL, "/files/download?token=")
	assert.False(t, views[0].ExpiresAt.IsZero())
}

func TestStudentAssignmentsSkipsPerformanceOnlyRecords(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001", Marks: 50, Type: models.TypePerformance})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	views, err := svc.StudentAssignments(context.Background(), "S001")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestStudentPerformanceAveragesAndAdvice(t *testing.T) {
	store := newStubRecordStore(&models.StudentRecord{StudentID: "S001", Marks: 80, Attendance: 90, Status: models.StatusPass, Type: models.TypePerformance})
	svc := newTestRecordService(store, &stubBlobStore{}, &stubRosterCache{})

	report, err := svc.StudentPerformance(context.Background(), "S001")
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, 80.0, report.AverageMarks)
	assert.Equal(t, 90.0, report.AverageAttendance)
	assert.Equal(t, AdviceExcellent, report.Advice)
}

func TestStudentPerformanceEmptyWithoutRecords(t *testing.T) {
	svc := newTestRecordService(newStubRecordStore(), &stubBlobStore{}, &stubRosterCache{})

	report, err := svc.StudentPerformance(context.Background(), "S404")
	require.NoError(t, err)
	assert.Empty(t, report.Entries)
	assert.Empty(t, report.Advice)
}

func TestAdviceThresholds(t *testing.T) {
	assert.Equal(t, AdviceExcellent, adviceFor(75, 80))
	assert.Equal(t, AdviceAverage, adviceFor(75, 79))
	assert.Equal(t, AdviceAverage, adviceFor(50, 100))
	assert.Equal(t, AdviceNeedsImprovement, adviceFor(49.9, 100))
}

func TestAssignmentKeyStripsDirectories(t *testing.T) {
	assert.Equal(t, "assignments/S001_essay.pdf", AssignmentKey("S001", "../tmp/essay.pdf"))
}
