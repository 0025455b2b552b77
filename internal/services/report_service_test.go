package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/grading"
	"github.com/campusfleet/exam-service/internal/models"
)

type reportFixture struct {
	repo      *mockRepository
	store     *grading.Store
	publisher *events.MockEventPublisher
	service   ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	repo := newMockRepository()
	logger := testLogger()
	store := grading.NewStore()
	publisher := events.NewMockEventPublisher(logger)

	return &reportFixture{
		repo:      repo,
		store:     store,
		publisher: publisher,
		service:   NewReportService(repo, store, publisher, logger),
	}
}

func mustMCQ(t *testing.T, studentID string, examID uint, correct, total int) grading.Result {
	t.Helper()
	result, err := grading.NewMCQResult(studentID, examID, correct, total)
	if err != nil {
		t.Fatalf("NewMCQResult failed: %v", err)
	}
	return result
}

func TestReportServiceGenerateReportCard(t *testing.T) {
	fx := newReportFixture(t)
	fx.store.Add(mustMCQ(t, "s1", 1, 3, 5))
	fx.store.Add(mustMCQ(t, "s1", 2, 4, 5))

	resp, err := fx.service.GenerateReportCard(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GenerateReportCard failed: %v", err)
	}
	if resp.StudentID != "s1" {
		t.Errorf("student = %s, want s1", resp.StudentID)
	}
	if resp.AverageScore != 70 {
		t.Errorf("average = %f, want 70", resp.AverageScore)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(resp.Results))
	}
	if resp.Results[0].ExamID != 1 || resp.Results[1].ExamID != 2 {
		t.Errorf("summaries out of insertion order: %+v", resp.Results)
	}

	card, ok := fx.repo.reportCard.cards["s1"]
	if !ok {
		t.Fatal("card was not persisted")
	}
	if card.AverageScore != 70 {
		t.Errorf("persisted average = %f, want 70", card.AverageScore)
	}

	published := fx.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.TopicReportGenerated {
		t.Errorf("expected report_generated event, got %v", published)
	}
}

func TestReportServiceGenerateReportCardNoResults(t *testing.T) {
	fx := newReportFixture(t)

	if _, err := fx.service.GenerateReportCard(context.Background(), "ghost"); !errors.Is(err, ErrReportCardNotFound) {
		t.Errorf("expected ErrReportCardNotFound, got %v", err)
	}
}

func TestReportServiceGetReportCardFallsBackToStorage(t *testing.T) {
	fx := newReportFixture(t)

	persisted := &models.ReportCard{
		StudentID:    "s1",
		AverageScore: 85,
		GeneratedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := persisted.EncodeSummaries([]models.ResultSummary{
		{ExamID: 1, Score: 85, ExamType: models.ExamTypeMCQ, CorrectAnswers: 17, TotalQuestions: 20},
	}); err != nil {
		t.Fatalf("EncodeSummaries failed: %v", err)
	}
	fx.repo.reportCard.cards["s1"] = persisted

	resp, err := fx.service.GetReportCard(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetReportCard failed: %v", err)
	}
	if resp.AverageScore != 85 {
		t.Errorf("average = %f, want 85", resp.AverageScore)
	}
	if len(resp.Results) != 1 || resp.Results[0].ExamID != 1 {
		t.Errorf("unexpected summaries: %+v", resp.Results)
	}

	if _, err := fx.service.GetReportCard(context.Background(), "ghost"); !errors.Is(err, ErrReportCardNotFound) {
		t.Errorf("expected ErrReportCardNotFound, got %v", err)
	}
}

func TestReportServiceGenerateAll(t *testing.T) {
	fx := newReportFixture(t)
	fx.store.Add(mustMCQ(t, "s1", 1, 5, 5))
	fx.store.Add(mustMCQ(t, "s2", 1, 2, 5))

	summary, err := fx.service.GenerateAll(context.Background())
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if summary.Generated != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 generated", summary)
	}
	if len(fx.repo.reportCard.cards) != 2 {
		t.Errorf("expected 2 persisted cards, got %d", len(fx.repo.reportCard.cards))
	}
}

func TestReportServiceGenerateAllIsolatesFailures(t *testing.T) {
	fx := newReportFixture(t)
	fx.store.Add(mustMCQ(t, "s1", 1, 5, 5))
	fx.repo.reportCard.saveErr = errors.New("storage offline")

	summary, err := fx.service.GenerateAll(context.Background())
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if summary.Failed != 1 || summary.Generated != 0 {
		t.Errorf("summary = %+v, want one failure", summary)
	}
}

func TestReportServiceExportExamResults(t *testing.T) {
	fx := newReportFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)

	comments := "2 of 3 questions answered correctly."
	fx.repo.result.rows[sessionKey("s1", 1)] = &models.Result{
		StudentID:      "s1",
		ExamID:         1,
		Score:          66,
		ExamType:       models.ExamTypeMCQ,
		CorrectAnswers: 2,
		TotalQuestions: 3,
		Comments:       &comments,
		GradedAt:       time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
	}

	data, err := fx.service.ExportExamResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("ExportExamResults failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook did not parse: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("Results", "A1"); got != "Student ID" {
		t.Errorf("A1 = %q, want header", got)
	}
	if got, _ := f.GetCellValue("Results", "A2"); got != "s1" {
		t.Errorf("A2 = %q, want s1", got)
	}
	if got, _ := f.GetCellValue("Results", "B2"); got != "66" {
		t.Errorf("B2 = %q, want 66", got)
	}
	if got, _ := f.GetCellValue("Results", "I2"); got != "Mathematics" {
		t.Errorf("I2 = %q, want subject", got)
	}
}

func TestReportServiceExportUnknownExam(t *testing.T) {
	fx := newReportFixture(t)

	if _, err := fx.service.ExportExamResults(context.Background(), 99); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("expected ErrExamNotFound, got %v", err)
	}
}
