package services

import (
	"context"
	"time"

	"github.com/campusfleet/exam-service/internal/grading"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/session"
	"github.com/campusfleet/exam-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type StartSessionRequest = validator.StartSessionRequest
type SubmitAnswerRequest = validator.SubmitAnswerRequest
type FinishSessionRequest = validator.FinishSessionRequest
type GradeSessionRequest = validator.GradeSessionRequest

type SessionResponse struct {
	StudentID        string `json:"student_id"`
	ExamID           uint   `json:"exam_id"`
	Finished         bool   `json:"finished"`
	RemainingSeconds int    `json:"remaining_seconds"`
	AnswerCount      int    `json:"answer_count"`
	QuestionCount    int    `json:"question_count"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Total    int64              `json:"total"`
}

type ResultResponse struct {
	StudentID string          `json:"student_id"`
	ExamID    uint            `json:"exam_id"`
	Score     int             `json:"score"`
	ExamType  models.ExamType `json:"exam_type"`

	// MCQ variant
	CorrectAnswers *int `json:"correct_answers,omitempty"`
	TotalQuestions *int `json:"total_questions,omitempty"`

	// Descriptive variant
	Comments *string         `json:"comments,omitempty"`
	Feedback map[uint]string `json:"feedback,omitempty"`

	GradedAt time.Time `json:"graded_at"`
}

// BatchGradingSummary reports the outcome of grading every finished
// session. Per-session failures do not abort the batch.
type BatchGradingSummary struct {
	Graded   int      `json:"graded"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Failures []string `json:"failures,omitempty"`
}

type ReportCardResponse struct {
	StudentID    string                 `json:"student_id"`
	AverageScore float64                `json:"average_score"`
	Results      []models.ResultSummary `json:"results"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// BatchReportSummary reports the outcome of rebuilding all cards.
type BatchReportSummary struct {
	Generated int      `json:"generated"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures,omitempty"`
}

type ExamStatisticsResponse struct {
	ExamID       uint    `json:"exam_id"`
	Subject      string  `json:"subject,omitempty"`
	StudentCount int     `json:"student_count"`
	AverageScore float64 `json:"average_score"`
	HighestScore int     `json:"highest_score"`
	LowestScore  int     `json:"lowest_score"`
}

// ===== SERVICE INTERFACES =====

// ExamCatalogService is the read-only view into the exam catalog.
type ExamCatalogService interface {
	GetExam(ctx context.Context, examID uint) (*models.Exam, error)
	GetQuestions(ctx context.Context, examID uint) ([]models.Question, error)
	ListExams(ctx context.Context) ([]*models.Exam, error)

	// ExamByID is the collaborator hook the session registry and the
	// grader consume.
	ExamByID(ctx context.Context, examID uint) (*models.Exam, error)
}

// SessionService drives the attempt lifecycle.
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error)
	SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) error
	Finish(ctx context.Context, req *FinishSessionRequest) (*SessionResponse, error)

	Get(ctx context.Context, studentID string, examID uint) (*SessionResponse, error)
	GetTimeRemaining(ctx context.Context, studentID string, examID uint) (int, error)
	GetResultsView(ctx context.Context, studentID string, examID uint) ([]session.QuestionReview, error)

	List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error)
	SaveAll(ctx context.Context) (int, error)
}

// GradingService derives results from finished sessions.
type GradingService interface {
	GradeSession(ctx context.Context, req *GradeSessionRequest) (*ResultResponse, error)
	GradeAll(ctx context.Context) (*BatchGradingSummary, error)

	GetResult(ctx context.Context, studentID string, examID uint) (*ResultResponse, error)
	GetStudentResults(ctx context.Context, studentID string) ([]*ResultResponse, error)
	ExamStatistics(ctx context.Context, examID uint) (*ExamStatisticsResponse, error)
}

// ReportService builds and serves per-student report cards.
type ReportService interface {
	GetReportCard(ctx context.Context, studentID string) (*ReportCardResponse, error)
	GenerateReportCard(ctx context.Context, studentID string) (*ReportCardResponse, error)
	GenerateAll(ctx context.Context) (*BatchReportSummary, error)

	// ExportExamResults renders all results for one exam as an xlsx
	// workbook.
	ExportExamResults(ctx context.Context, examID uint) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Catalog() ExamCatalogService
	Session() SessionService
	Grading() GradingService
	Report() ReportService

	// Registry exposes the session registry to supporting components
	// such as the expiry sweeper.
	Registry() *session.Registry

	// Store exposes the in-memory result store hydrated at startup.
	Store() *grading.Store

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
