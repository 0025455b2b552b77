package services

import (
	"context"
	"log/slog"

	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

type examCatalogService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExamCatalogService(repo repositories.Repository, logger *slog.Logger) ExamCatalogService {
	return &examCatalogService{
		repo:   repo,
		logger: logger,
	}
}

func (s *examCatalogService) GetExam(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

func (s *examCatalogService) GetQuestions(ctx context.Context, examID uint) ([]models.Question, error) {
	exists, err := s.repo.Exam().ExistsByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrExamNotFound
	}
	return s.repo.Exam().GetQuestions(ctx, nil, examID)
}

func (s *examCatalogService) ListExams(ctx context.Context) ([]*models.Exam, error) {
	return s.repo.Exam().List(ctx, nil)
}

// ExamByID satisfies the exam source contract of the session registry
// and the grader.
func (s *examCatalogService) ExamByID(ctx context.Context, examID uint) (*models.Exam, error) {
	return s.GetExam(ctx, examID)
}
