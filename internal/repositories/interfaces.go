package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campusfleet/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ResultFilters struct {
	ExamID    *uint   `json:"exam_id"`
	StudentID *string `json:"student_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
}

type SessionFilters struct {
	Finished  *bool      `json:"finished"`
	StudentID *string    `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type UserFilters struct {
	Role   *models.UserRole `json:"role"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ExamScoreStats struct {
	ExamID       uint    `json:"exam_id"`
	Subject      string  `json:"subject"`
	StudentCount int     `json:"student_count"`
	AverageScore float64 `json:"average_score"`
	HighestScore int     `json:"highest_score"`
	LowestScore  int     `json:"lowest_score"`
}

// ===== REPOSITORY INTERFACES =====

// ExamRepository is the read-only view into the exam catalog. Exams and
// questions are owned by the authoring subsystem; this service consumes
// immutable copies.
type ExamRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetQuestions(ctx context.Context, tx *gorm.DB, examID uint) ([]models.Question, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.Exam, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

// SessionRepository persists session records keyed by (student, exam).
type SessionRepository interface {
	Save(ctx context.Context, tx *gorm.DB, record *models.SessionRecord) error
	Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.SessionRecord, error)
	List(ctx context.Context, tx *gorm.DB, filters SessionFilters) ([]*models.SessionRecord, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error
}

// ResultRepository persists graded outcomes. Upsert replaces the prior
// row for the same (student, exam) pair, matching the re-grade policy.
type ResultRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, result *models.Result) error
	Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.Result, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Result, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Result, error)
	List(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*models.Result, int64, error)
	GetExamStats(ctx context.Context, tx *gorm.DB, examID uint) (*ExamScoreStats, error)
}

// ReportCardRepository persists per-student report cards.
type ReportCardRepository interface {
	Save(ctx context.Context, tx *gorm.DB, card *models.ReportCard) error
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.ReportCard, error)
}

// UserRepository is the read-only identity lookup (backed by Casdoor;
// this service is not the owner of user data).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	GetUserRole(ctx context.Context, id string) (models.UserRole, error)
}
