package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/grading"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/session"
	"github.com/campusfleet/exam-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	registry  *session.Registry
	grader    *grading.Grader
	store     *grading.Store
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewGradingService(repo repositories.Repository, registry *session.Registry, grader *grading.Grader, store *grading.Store, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) GradingService {
	return &gradingService{
		repo:      repo,
		registry:  registry,
		grader:    grader,
		store:     store,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ResultGradedEvent is the payload published for each graded session.
type ResultGradedEvent struct {
	StudentID string          `json:"student_id"`
	ExamID    uint            `json:"exam_id"`
	Score     int             `json:"score"`
	ExamType  models.ExamType `json:"exam_type"`
}

// GradeSession grades one finished attempt. Re-grading the same attempt
// replaces the earlier result, in memory and in storage.
func (s *gradingService) GradeSession(ctx context.Context, req *GradeSessionRequest) (*ResultResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.registry.Get(ctx, req.StudentID, req.ExamID)
	if err != nil {
		if session.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	result, err := s.gradeAndRecord(ctx, sess)
	if err != nil {
		return nil, err
	}

	return toResultResponse(result, time.Now().UTC()), nil
}

func (s *gradingService) gradeAndRecord(ctx context.Context, sess *session.Session) (grading.Result, error) {
	result, err := s.grader.Grade(ctx, sess)
	if err != nil {
		if errors.Is(err, grading.ErrSessionNotFinished) {
			return nil, ErrSessionNotFinished
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	gradedAt := time.Now().UTC()
	row, err := result.ToModel(gradedAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Result().Upsert(ctx, nil, row); err != nil {
		return nil, err
	}

	s.store.Add(result)

	s.publish(ctx, events.TopicResultGraded, ResultGradedEvent{
		StudentID: result.StudentID(),
		ExamID:    result.ExamID(),
		Score:     result.Score(),
		ExamType:  result.Type(),
	})

	s.logger.InfoContext(ctx, "Session graded",
		"student_id", result.StudentID(),
		"exam_id", result.ExamID(),
		"score", result.Score(),
		"exam_type", result.Type())

	return result, nil
}

// GradeAll grades every finished session in the registry. Individual
// failures are collected, not fatal.
func (s *gradingService) GradeAll(ctx context.Context) (*BatchGradingSummary, error) {
	summary := &BatchGradingSummary{}

	for _, sess := range s.registry.Sessions() {
		if !sess.Finished() {
			summary.Skipped++
			continue
		}

		if _, err := s.gradeAndRecord(ctx, sess); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("student %s exam %d: %v", sess.StudentID(), sess.ExamID(), err))
			s.logger.ErrorContext(ctx, "Failed to grade session",
				"student_id", sess.StudentID(),
				"exam_id", sess.ExamID(),
				"error", err)
			continue
		}
		summary.Graded++
	}

	s.logger.InfoContext(ctx, "Batch grading finished",
		"graded", summary.Graded,
		"failed", summary.Failed,
		"skipped", summary.Skipped)

	return summary, nil
}

func (s *gradingService) GetResult(ctx context.Context, studentID string, examID uint) (*ResultResponse, error) {
	row, err := s.repo.Result().Find(ctx, nil, studentID, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return rowToResultResponse(row), nil
}

func (s *gradingService) GetStudentResults(ctx context.Context, studentID string) ([]*ResultResponse, error) {
	rows, err := s.repo.Result().GetByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]*ResultResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToResultResponse(row))
	}
	return out, nil
}

func (s *gradingService) ExamStatistics(ctx context.Context, examID uint) (*ExamStatisticsResponse, error) {
	exists, err := s.repo.Exam().ExistsByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	stats, err := s.repo.Result().GetExamStats(ctx, nil, examID)
	if err != nil {
		return nil, err
	}

	return &ExamStatisticsResponse{
		ExamID:       stats.ExamID,
		Subject:      stats.Subject,
		StudentCount: stats.StudentCount,
		AverageScore: stats.AverageScore,
		HighestScore: stats.HighestScore,
		LowestScore:  stats.LowestScore,
	}, nil
}

func (s *gradingService) publish(ctx context.Context, topic string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(topic, data)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"topic", topic,
			"error", err)
	}
}

func toResultResponse(result grading.Result, gradedAt time.Time) *ResultResponse {
	resp := &ResultResponse{
		StudentID: result.StudentID(),
		ExamID:    result.ExamID(),
		Score:     result.Score(),
		ExamType:  result.Type(),
		GradedAt:  gradedAt,
	}

	switch v := result.(type) {
	case *grading.MCQResult:
		correct := v.CorrectAnswers()
		total := v.TotalQuestions()
		resp.CorrectAnswers = &correct
		resp.TotalQuestions = &total
	case *grading.DescriptiveResult:
		comments := v.Comments()
		resp.Comments = &comments
		resp.Feedback = v.Feedback()
	}
	return resp
}

func rowToResultResponse(row *models.Result) *ResultResponse {
	resp := &ResultResponse{
		StudentID: row.StudentID,
		ExamID:    row.ExamID,
		Score:     row.Score,
		ExamType:  row.ExamType,
		GradedAt:  row.GradedAt,
	}

	switch row.ExamType {
	case models.ExamTypeMCQ:
		correct := row.CorrectAnswers
		total := row.TotalQuestions
		resp.CorrectAnswers = &correct
		resp.TotalQuestions = &total
	case models.ExamTypeDescriptive:
		resp.Comments = row.Comments
		resp.Feedback = row.FeedbackMap()
	}
	return resp
}
