package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edu-analytics/student-portal-api/internal/models"
	"github.com/edu-analytics/student-portal-api/internal/repository"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
	"github.com/edu-analytics/student-portal-api/pkg/export"
)

const (
	assignmentKeyPrefix = "assignments/"
	rosterCacheKey      = "roster:all"
)

type recordStore interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
	Upsert(ctx context.Context, record *models.StudentRecord) error
	Scan(ctx context.Context) ([]models.StudentRecord, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.StudentRecord, error)
}

type blobStore interface {
	SaveStream(key string, r io.Reader) error
}

type downloadSigner interface {
	Sign(key string) (string, time.Time, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type rosterCacheObserver interface {
	ObserveRosterCache(hit bool)
}

// AssignmentUpload carries the uploaded file stream and metadata.
type AssignmentUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// PerformanceUpdateRequest holds the teacher's marks/attendance update.
type PerformanceUpdateRequest struct {
	Marks      int                      `json:"marks" validate:"min=0,max=100"`
	Attendance int                      `json:"attendance" validate:"min=0,max=100"`
	Status     models.PerformanceStatus `json:"status" validate:"required,oneof=Pass Fail NA"`
}

// SetCredentialRequest carries a new student password to hash and store.
type SetCredentialRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// AssignmentView is what a student sees for an uploaded assignment. It
// deliberately carries no risk status.
type AssignmentView struct {
	StudentID   string     `json:"studentId"`
	FileName    string     `json:"fileName"`
	UploadDate  *time.Time `json:"uploadDate,omitempty"`
	DownloadURL string     `json:"downloadUrl"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// PerformanceEntry is one row of a student's own performance view.
type PerformanceEntry struct {
	Marks       int                      `json:"marks"`
	Attendance  int                      `json:"attendance"`
	Status      models.PerformanceStatus `json:"status"`
	LastUpdated *time.Time               `json:"lastUpdated,omitempty"`
}

// PerformanceReport aggregates a student's performance rows with the
// averages and the advice banner the portal has always shown. Risk status
// is intentionally absent.
type PerformanceReport struct {
	StudentID         string             `json:"studentId"`
	Entries           []PerformanceEntry `json:"entries"`
	AverageMarks      float64            `json:"averageMarks"`
	AverageAttendance float64            `json:"averageAttendance"`
	Advice            string             `json:"advice,omitempty"`
}

// Advice banner levels derived from the averages.
const (
	AdviceExcellent        = "excellent"
	AdviceAverage          = "average"
	AdviceNeedsImprovement = "needs_improvement"
)

// RecordServiceConfig carries the request-independent knobs.
type RecordServiceConfig struct {
	APIPrefix      string
	MaxUploadBytes int64
	RosterCacheTTL time.Duration
}

// RecordService implements the record lifecycle: assignment upload with
// implicit creation, performance update requiring a prior record, the
// teacher roster, and the student's own views. Every write is a
// read-merge-upsert so fields a workflow does not set are preserved.
type RecordService struct {
	repo      recordStore
	blobs     blobStore
	signer    downloadSigner
	cache     rosterCache
	metrics   rosterCacheObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RecordServiceConfig
}

// NewRecordService constructs the record service.
func NewRecordService(repo recordStore, blobs blobStore, signer downloadSigner, cache rosterCache, metrics rosterCacheObserver, validate *validator.Validate, logger *zap.Logger, cfg RecordServiceConfig) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 * 1024 * 1024
	}
	if cfg.RosterCacheTTL <= 0 {
		cfg.RosterCacheTTL = 30 * time.Second
	}
	return &RecordService{
		repo:      repo,
		blobs:     blobs,
		signer:    signer,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// AssignmentKey derives the deterministic object key for a student's
// assignment file, so re-uploading the same file overwrites instead of
// duplicating.
func AssignmentKey(studentID, filename string) string {
	return assignmentKeyPrefix + studentID + "_" + path.Base(filename)
}

// UploadAssignment stores the file and merge-upserts the record's file
// metadata. This is the one workflow that implicitly creates a record:
// a first-time student gets the documented defaults. The blob write and
// the metadata write are not transactional; re-running the upload repairs
// a half-applied one.
func (s *RecordService) UploadAssignment(ctx context.Context, studentID, name string, upload AssignmentUpload) (*models.StudentRecord, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if upload.Content == nil || strings.TrimSpace(upload.Filename) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxUploadBytes))
	}

	filename := path.Base(upload.Filename)
	key := AssignmentKey(studentID, filename)
	if err := s.blobs.SaveStream(key, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store assignment file")
	}

	record, err := s.fetchOrDefault(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		record.Name = name
	}

	now := time.Now().UTC()
	record.FileName = filename
	record.FilePath = key
	record.Type = models.TypeAssignment
	record.UploadDate = &now
	record.LastUpdated = &now

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to save assignment metadata")
	}
	s.invalidateRoster(ctx)
	return record, nil
}

// UpdatePerformance merges marks, attendance and status into an existing
// record. Unlike upload it never creates: an absent record is reported and
// nothing is written.
func (s *RecordService) UpdatePerformance(ctx context.Context, studentID string, req PerformanceUpdateRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance payload")
	}

	record, err := s.fetchExisting(ctx, studentID, "no record found for this student id, upload student data first")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.Marks = req.Marks
	record.Attendance = req.Attendance
	record.Status = req.Status
	record.Type = models.TypePerformance
	record.LastUpdated = &now

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update performance")
	}
	s.invalidateRoster(ctx)
	return record, nil
}

// SetCredential bcrypt-hashes and stores a student's password, preserving
// every other field. This replaces the legacy plaintext column content.
func (s *RecordService) SetCredential(ctx context.Context, studentID string, req SetCredentialRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid credential payload")
	}

	record, err := s.fetchExisting(ctx, studentID, "no record found for this student id")
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credential")
	}

	now := time.Now().UTC()
	record.Password = string(hash)
	record.LastUpdated = &now

	if err := s.repo.Upsert(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store credential")
	}
	return nil
}

// Roster returns every record with the safe / at-risk counts, serving the
// teacher's full view. The scan result is cached briefly in redis and
// invalidated on every write.
func (s *RecordService) Roster(ctx context.Context) (*models.Roster, error) {
	if s.cache != nil {
		var cached models.Roster
		if err := s.cache.Get(ctx, rosterCacheKey, &cached); err == nil {
			s.observeRosterCache(true)
			return &cached, nil
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("roster cache read failed", zap.Error(err))
		}
		s.observeRosterCache(false)
	}

	records, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load records")
	}

	roster := &models.Roster{Records: records}
	roster.Summary.TotalStudents = len(records)
	for _, record := range records {
		switch record.RiskStatus {
		case models.RiskSafe:
			roster.Summary.SafeCount++
		case models.RiskAtRisk:
			roster.Summary.AtRiskCount++
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rosterCacheKey, roster, s.cfg.RosterCacheTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}
	return roster, nil
}

// ExportRoster renders the roster as CSV or PDF bytes.
func (s *RecordService) ExportRoster(ctx context.Context, format string) ([]byte, string, string, error) {
	roster, err := s.Roster(ctx)
	if err != nil {
		return nil, "", "", err
	}

	headers := []string{"StudentID", "Name", "Marks", "Attendance", "Status", "RiskStatus", "LastUpdated"}
	rows := make([]map[string]string, 0, len(roster.Records))
	for _, record := range roster.Records {
		row := map[string]string{
			"StudentID":  record.StudentID,
			"Name":       record.Name,
			"Marks":      strconv.Itoa(record.Marks),
			"Attendance": strconv.Itoa(record.Attendance),
			"Status":     string(record.Status),
			"RiskStatus": string(record.RiskStatus),
		}
		if record.LastUpdated != nil {
			row["LastUpdated"] = record.LastUpdated.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	dataset := export.Dataset{Headers: headers, Rows: rows}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", "student-roster.csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Student Roster")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", "student-roster.pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// StudentAssignments lists the assignments visible to the logged-in
// student: only their own record, only when the last write was an
// assignment upload, each with a time-limited download link.
func (s *RecordService) StudentAssignments(ctx context.Context, studentID string) ([]AssignmentView, error) {
	records, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load assignments")
	}

	views := make([]AssignmentView, 0, len(records))
	for _, record := range records {
		if record.Type != models.TypeAssignment || record.FilePath == "" {
			continue
		}
		token, expiresAt, err := s.signer.Sign(record.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download link")
		}
		views = append(views, AssignmentView{
			StudentID:   record.StudentID,
			FileName:    record.FileName,
			UploadDate:  record.UploadDate,
			DownloadURL: s.downloadURL(token),
			ExpiresAt:   expiresAt,
		})
	}
	return views, nil
}

// StudentPerformance builds the student's own performance report with the
// averages and advice banner.
func (s *RecordService) StudentPerformance(ctx context.Context, studentID string) (*PerformanceReport, error) {
	records, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load performance")
	}

	report := &PerformanceReport{StudentID: studentID, Entries: []PerformanceEntry{}}
	var sumMarks, sumAttendance int
	for _, record := range records {
		if record.Type == models.TypeAssignment {
			continue
		}
		report.Entries = append(report.Entries, PerformanceEntry{
			Marks:       record.Marks,
			Attendance:  record.Attendance,
			Status:      record.Status,
			LastUpdated: record.LastUpdated,
		})
		sumMarks += record.Marks
		sumAttendance += record.Attendance
	}

	if n := len(report.Entries); n > 0 {
		report.AverageMarks = float64(sumMarks) / float64(n)
		report.AverageAttendance = float64(sumAttendance) / float64(n)
		report.Advice = adviceFor(report.AverageMarks, report.AverageAttendance)
	}
	return report, nil
}

func adviceFor(avgMarks, avgAttendance float64) string {
	switch {
	case avgMarks >= 75 && avgAttendance >= 80:
		return AdviceExcellent
	case avgMarks >= 50:
		return AdviceAverage
	default:
		return AdviceNeedsImprovement
	}
}

func (s *RecordService) downloadURL(token string) string {
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	query := url.Values{"token": {token}}
	return fmt.Sprintf("%s/files/download?%s", base, query.Encode())
}

func (s *RecordService) fetchOrDefault(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	record, err := s.repo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewStudentRecord(studentID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load record")
	}
	return record, nil
}

func (s *RecordService) fetchExisting(ctx context.Context, studentID, notFoundMsg string) (*models.StudentRecord, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	record, err := s.repo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load record")
	}
	return record, nil
}

func (s *RecordService) invalidateRoster(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, rosterCacheKey); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func (s *RecordService) observeRosterCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveRosterCache(hit)
	}
}
