package models

import "time"

// PerformanceStatus is the teacher-assigned pass/fail flag.
type PerformanceStatus string

const (
	StatusPass PerformanceStatus = "Pass"
	StatusFail PerformanceStatus = "Fail"
	StatusNA   PerformanceStatus = "NA"
)

// RecordType tags which workflow last wrote the record.
type RecordType string

const (
	TypeAssignment  RecordType = "Assignment"
	TypePerformance RecordType = "Performance"
)

// RiskStatus is the classifier outcome rendered for display.
type RiskStatus string

const (
	RiskNA     RiskStatus = "NA"
	RiskSafe   RiskStatus = "Safe / Pass"
	RiskAtRisk RiskStatus = "At Risk / Fail"
)

// StudentRecord is the single per-student row combining identity,
// credentials, academic performance, file metadata and risk status.
// StudentID is immutable after creation; every write is a full-record
// upsert that merges over the previously stored row.
type StudentRecord struct {
	StudentID     string            `db:"student_id" json:"studentId"`
	Name          string            `db:"name" json:"name"`
	Password      string            `db:"password" json:"-"`
	Marks         int               `db:"marks" json:"marks"`
	Attendance    int               `db:"attendance" json:"attendance"`
	Status        PerformanceStatus `db:"status" json:"status"`
	FileName      string            `db:"file_name" json:"fileName,omitempty"`
	FilePath      string            `db:"file_path" json:"filePath,omitempty"`
	Type          RecordType        `db:"type" json:"type,omitempty"`
	UploadDate    *time.Time        `db:"upload_date" json:"uploadDate,omitempty"`
	LastUpdated   *time.Time        `db:"last_updated" json:"lastUpdated,omitempty"`
	LastPredicted *time.Time        `db:"last_predicted" json:"lastPredicted,omitempty"`
	RiskStatus    RiskStatus        `db:"risk_status" json:"riskStatus"`
}

// NewStudentRecord returns a record carrying the documented defaults for
// fields never supplied. Implicit creation on first upload goes through here.
func NewStudentRecord(studentID string) *StudentRecord {
	return &StudentRecord{
		StudentID:  studentID,
		Name:       "Unknown",
		Password:   "",
		Marks:      0,
		Attendance: 0,
		Status:     StatusNA,
		RiskStatus: RiskNA,
	}
}

// RosterSummary accompanies the teacher's full-roster view.
type RosterSummary struct {
	TotalStudents int `json:"totalStudents"`
	SafeCount     int `json:"safeCount"`
	AtRiskCount   int `json:"atRiskCount"`
}

// Roster bundles all records with the derived risk counts.
type Roster struct {
	Records []StudentRecord `json:"records"`
	Summary RosterSummary   `json:"summary"`
}
