package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/grading"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

type reportService struct {
	repo      repositories.Repository
	store     *grading.Store
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewReportService(repo repositories.Repository, store *grading.Store, publisher events.EventPublisher, logger *slog.Logger) ReportService {
	return &reportService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// ReportGeneratedEvent is the payload published when a card is rebuilt.
type ReportGeneratedEvent struct {
	StudentID    string  `json:"student_id"`
	AverageScore float64 `json:"average_score"`
	ResultCount  int     `json:"result_count"`
}

func (s *reportService) GetReportCard(ctx context.Context, studentID string) (*ReportCardResponse, error) {
	card, err := s.store.ReportCardFor(studentID)
	if err == nil {
		return cardToResponse(card, time.Now().UTC()), nil
	}
	if !errors.Is(err, grading.ErrNoResults) {
		return nil, err
	}

	// Nothing in memory; fall back to the persisted card.
	row, err := s.repo.ReportCard().GetByStudent(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportCardNotFound
		}
		return nil, err
	}

	return &ReportCardResponse{
		StudentID:    row.StudentID,
		AverageScore: row.AverageScore,
		Results:      row.Summaries(),
		GeneratedAt:  row.GeneratedAt,
	}, nil
}

// GenerateReportCard rebuilds the student's card from their current
// results and persists it, discarding any prior card.
func (s *reportService) GenerateReportCard(ctx context.Context, studentID string) (*ReportCardResponse, error) {
	card, err := s.store.GenerateReportCard(studentID)
	if err != nil {
		if errors.Is(err, grading.ErrNoResults) {
			return nil, ErrReportCardNotFound
		}
		return nil, err
	}

	generatedAt := time.Now().UTC()
	row, err := cardToModel(card, generatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReportCard().Save(ctx, nil, row); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicReportGenerated, ReportGeneratedEvent{
		StudentID:    studentID,
		AverageScore: card.AverageScore(),
		ResultCount:  len(card.Results()),
	})

	s.logger.InfoContext(ctx, "Report card generated",
		"student_id", studentID,
		"average_score", card.AverageScore())

	return cardToResponse(card, generatedAt), nil
}

// GenerateAll rebuilds cards for every student with results. Failures
// are isolated per student.
func (s *reportService) GenerateAll(ctx context.Context) (*BatchReportSummary, error) {
	summary := &BatchReportSummary{}

	for _, studentID := range s.store.Students() {
		if _, err := s.GenerateReportCard(ctx, studentID); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("student %s: %v", studentID, err))
			s.logger.ErrorContext(ctx, "Failed to generate report card",
				"student_id", studentID,
				"error", err)
			continue
		}
		summary.Generated++
	}

	s.logger.InfoContext(ctx, "Batch report generation finished",
		"generated", summary.Generated,
		"failed", summary.Failed)

	return summary, nil
}

// ExportExamResults renders the exam's results as an xlsx workbook.
func (s *reportService) ExportExamResults(ctx context.Context, examID uint) ([]byte, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	rows, err := s.repo.Result().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student ID", "Score", "Exam Type", "Correct", "Total", "Comments", "Graded At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		comments := ""
		if row.Comments != nil {
			comments = *row.Comments
		}
		values := []interface{}{
			row.StudentID,
			row.Score,
			string(row.ExamType),
			row.CorrectAnswers,
			row.TotalQuestions,
			comments,
			row.GradedAt.Format(time.RFC3339),
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	f.SetCellValue(sheet, "I1", "Subject")
	f.SetCellValue(sheet, "I2", exam.Subject)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "Exported exam results",
		"exam_id", examID,
		"rows", len(rows))

	return buf.Bytes(), nil
}

func (s *reportService) publish(ctx context.Context, topic string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(topic, data)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"topic", topic,
			"error", err)
	}
}

func cardToResponse(card *grading.ReportCard, generatedAt time.Time) *ReportCardResponse {
	results := card.Results()
	summaries := make([]models.ResultSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, grading.Summary(r))
	}

	return &ReportCardResponse{
		StudentID:    card.StudentID(),
		AverageScore: card.AverageScore(),
		Results:      summaries,
		GeneratedAt:  generatedAt,
	}
}

func cardToModel(card *grading.ReportCard, generatedAt time.Time) (*models.ReportCard, error) {
	results := card.Results()
	summaries := make([]models.ResultSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, grading.Summary(r))
	}

	row := &models.ReportCard{
		StudentID:    card.StudentID(),
		AverageScore: card.AverageScore(),
		GeneratedAt:  generatedAt,
	}
	if err := row.EncodeSummaries(summaries); err != nil {
		return nil, err
	}
	return row, nil
}
