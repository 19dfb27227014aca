package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edu-analytics/student-portal-api/internal/ml"
	"github.com/edu-analytics/student-portal-api/internal/models"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
)

// medicalAllowance is the fixed excused-absence policy: a provided medical
// certificate subtracts 30 attendance points, floored at zero.
const medicalAllowance = 30

type predictionRecordStore interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
	Upsert(ctx context.Context, record *models.StudentRecord) error
}

type modelLoader interface {
	Load(ctx context.Context) (*ml.Classifier, error)
}

type predictionObserver interface {
	ObservePrediction(outcome models.RiskStatus)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// PredictionResult echoes the computed status plus the exact inputs fed to
// the classifier, so the caller can display (and a test can assert) what
// the model actually saw.
type PredictionResult struct {
	StudentID          string            `json:"studentId"`
	RiskStatus         models.RiskStatus `json:"riskStatus"`
	Marks              float64           `json:"marks"`
	StoredAttendance   float64           `json:"storedAttendance"`
	AdjustedAttendance float64           `json:"adjustedAttendance"`
	MedicalFlag        int               `json:"medicalFlag"`
	PredictedAt        time.Time         `json:"predictedAt"`
}

// PredictionService runs the risk workflow: fresh record fetch, attendance
// adjustment, model invocation, and the merge-upsert of the outcome. The
// write happens only after a successful prediction, so a failure anywhere
// leaves the record untouched.
type PredictionService struct {
	repo    predictionRecordStore
	loader  modelLoader
	cache   cacheInvalidator
	metrics predictionObserver
	logger  *zap.Logger
}

// NewPredictionService constructs the prediction service.
func NewPredictionService(repo predictionRecordStore, loader modelLoader, cache cacheInvalidator, metrics predictionObserver, logger *zap.Logger) *PredictionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionService{repo: repo, loader: loader, cache: cache, metrics: metrics, logger: logger}
}

// AdjustAttendance applies the excused-absence policy. The result never
// goes negative.
func AdjustAttendance(attendance float64, medicalCertificate bool) (adjusted float64, medicalFlag int) {
	if !medicalCertificate {
		return attendance, 0
	}
	adjusted = attendance - medicalAllowance
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted, 1
}

// Predict runs the classifier for one student and persists the outcome.
func (s *PredictionService) Predict(ctx context.Context, studentID string, medicalCertificate bool) (*PredictionResult, error) {
	record, err := s.repo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load student record")
	}

	marks := float64(record.Marks)
	storedAttendance := float64(record.Attendance)
	adjusted, medicalFlag := AdjustAttendance(storedAttendance, medicalCertificate)

	classifier, err := s.loader.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrModelUnavailable.Code, appErrors.ErrModelUnavailable.Status, "failed to load risk model")
	}

	// Feature order is part of the model contract.
	features := [ml.FeatureCount]float64{marks, adjusted, float64(medicalFlag)}
	outcome := classifier.Predict(features)

	status := models.RiskAtRisk
	if outcome == 1 {
		status = models.RiskSafe
	}

	now := time.Now().UTC()
	record.RiskStatus = status
	record.LastPredicted = &now
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to save prediction")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, rosterCacheKey); err != nil {
			s.logger.Warn("roster cache invalidation failed", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObservePrediction(status)
	}
	s.logger.Info("risk prediction stored",
		zap.String("student_id", studentID),
		zap.String("risk_status", string(status)),
		zap.Float64("marks", marks),
		zap.Float64("adjusted_attendance", adjusted),
		zap.Int("medical_flag", medicalFlag),
	)

	return &PredictionResult{
		StudentID:          studentID,
		RiskStatus:         status,
		Marks:              marks,
		StoredAttendance:   storedAttendance,
		AdjustedAttendance: adjusted,
		MedicalFlag:        medicalFlag,
		PredictedAt:        now,
	}, nil
}
