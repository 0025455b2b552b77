package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/session"
	"github.com/campusfleet/exam-service/internal/validator"
)

type sessionFixture struct {
	repo      *mockRepository
	registry  *session.Registry
	publisher *events.MockEventPublisher
	clock     *fakeClock
	service   SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	repo := newMockRepository()
	clock := newFakeClock()
	logger := testLogger()

	catalog := NewExamCatalogService(repo, logger)
	registry := session.NewRegistry(catalog, NewSessionRecordStore(repo), clock.Now)
	publisher := events.NewMockEventPublisher(logger)

	return &sessionFixture{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
		clock:     clock,
		service:   NewSessionService(repo, registry, publisher, logger, validator.New()),
	}
}

func TestSessionServiceStart(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	seedStudent(fx.repo, "s1")

	resp, err := fx.service.Start(context.Background(), &StartSessionRequest{StudentID: "s1", ExamID: 1})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if resp.StudentID != "s1" || resp.ExamID != 1 {
		t.Errorf("unexpected identity: %+v", resp)
	}
	if resp.Finished {
		t.Error("new session should not be finished")
	}
	if resp.QuestionCount != 2 {
		t.Errorf("expected 2 questions, got %d", resp.QuestionCount)
	}
	if resp.RemainingSeconds != 3600 {
		t.Errorf("expected 3600 remaining seconds, got %d", resp.RemainingSeconds)
	}

	published := fx.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.TopicSessionStarted {
		t.Errorf("expected one session_started event, got %v", published)
	}
}

func TestSessionServiceStartDuplicate(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	seedStudent(fx.repo, "s1")

	req := &StartSessionRequest{StudentID: "s1", ExamID: 1}
	if _, err := fx.service.Start(context.Background(), req); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	if _, err := fx.service.Start(context.Background(), req); !errors.Is(err, ErrSessionAlreadyExists) {
		t.Errorf("expected ErrSessionAlreadyExists, got %v", err)
	}
}

func TestSessionServiceStartFailures(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	seedStudent(fx.repo, "s1")

	tests := []struct {
		name    string
		req     *StartSessionRequest
		wantErr error
	}{
		{"unknown student", &StartSessionRequest{StudentID: "ghost", ExamID: 1}, ErrUserNotFound},
		{"unknown exam", &StartSessionRequest{StudentID: "s1", ExamID: 99}, ErrExamNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.service.Start(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSessionServiceSubmitAndFinish(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	seedStudent(fx.repo, "s1")

	ctx := context.Background()
	if _, err := fx.service.Start(ctx, &StartSessionRequest{StudentID: "s1", ExamID: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := fx.service.SubmitAnswer(ctx, &SubmitAnswerRequest{StudentID: "s1", ExamID: 1, QuestionID: 1, Answer: "4"}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	fx.clock.Advance(10 * time.Minute)

	resp, err := fx.service.Finish(ctx, &FinishSessionRequest{StudentID: "s1", ExamID: 1})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if !resp.Finished {
		t.Error("response should report finished")
	}
	if resp.AnswerCount != 1 {
		t.Errorf("expected 1 answer, got %d", resp.AnswerCount)
	}
	if resp.RemainingSeconds != 50*60 {
		t.Errorf("expected remaining frozen at 3000s, got %d", resp.RemainingSeconds)
	}

	record, ok := fx.repo.session.records[sessionKey("s1", 1)]
	if !ok {
		t.Fatal("finished session was not persisted")
	}
	if !record.Finished {
		t.Error("persisted record should be finished")
	}
	if got := record.AnswerMap()[1]; got != "4" {
		t.Errorf("persisted answer = %q, want %q", got, "4")
	}

	if err := fx.service.SubmitAnswer(ctx, &SubmitAnswerRequest{StudentID: "s1", ExamID: 1, QuestionID: 2, Answer: "9"}); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("expected ErrSessionFinished after finish, got %v", err)
	}

	published := fx.publisher.GetPublishedEvents()
	if len(published) != 2 || published[1].Type != events.TopicSessionFinished {
		t.Errorf("expected session_finished event, got %v", published)
	}
}

func TestSessionServiceFinishUnknownSession(t *testing.T) {
	fx := newSessionFixture(t)

	if _, err := fx.service.Finish(context.Background(), &FinishSessionRequest{StudentID: "s1", ExamID: 1}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionServiceGetTimeRemaining(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 30)
	seedStudent(fx.repo, "s1")

	ctx := context.Background()
	if _, err := fx.service.Start(ctx, &StartSessionRequest{StudentID: "s1", ExamID: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	fx.clock.Advance(12 * time.Minute)

	remaining, err := fx.service.GetTimeRemaining(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("GetTimeRemaining failed: %v", err)
	}
	if remaining != 18*60 {
		t.Errorf("remaining = %d, want %d", remaining, 18*60)
	}

	fx.clock.Advance(time.Hour)

	remaining, err = fx.service.GetTimeRemaining(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("GetTimeRemaining failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expired remaining = %d, want 0", remaining)
	}
}

func TestSessionServiceGetRestoresFromStorage(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)

	record := &models.SessionRecord{StudentID: "s1", ExamID: 1, Finished: true}
	if err := record.EncodeAnswers(map[uint]string{1: "4"}); err != nil {
		t.Fatalf("EncodeAnswers failed: %v", err)
	}
	fx.repo.session.records[sessionKey("s1", 1)] = record

	resp, err := fx.service.Get(context.Background(), "s1", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !resp.Finished {
		t.Error("restored session should be finished")
	}
	if resp.AnswerCount != 1 {
		t.Errorf("expected 1 restored answer, got %d", resp.AnswerCount)
	}
}

func TestSessionServiceResultsView(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	seedStudent(fx.repo, "s1")

	ctx := context.Background()
	if _, err := fx.service.Start(ctx, &StartSessionRequest{StudentID: "s1", ExamID: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := fx.service.SubmitAnswer(ctx, &SubmitAnswerRequest{StudentID: "s1", ExamID: 1, QuestionID: 1, Answer: "5"}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	view, err := fx.service.GetResultsView(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("GetResultsView failed: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("expected 2 review rows, got %d", len(view))
	}
	if !view[0].Answered || view[0].Correct {
		t.Errorf("question 1 should be answered and incorrect: %+v", view[0])
	}
	if view[1].Answered {
		t.Errorf("question 2 should be unanswered: %+v", view[1])
	}
}

func TestSessionServiceList(t *testing.T) {
	fx := newSessionFixture(t)
	fx.repo.exam.exams[1] = mcqExam(1, 60)
	fx.repo.exam.exams[2] = descriptiveExam(2, 45)
	seedStudent(fx.repo, "s1")
	seedStudent(fx.repo, "s2")

	ctx := context.Background()
	for _, req := range []*StartSessionRequest{
		{StudentID: "s1", ExamID: 1},
		{StudentID: "s2", ExamID: 2},
	} {
		if _, err := fx.service.Start(ctx, req); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if _, err := fx.service.Finish(ctx, &FinishSessionRequest{StudentID: "s1", ExamID: 1}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	saved, err := fx.service.SaveAll(ctx)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if saved != 2 {
		t.Errorf("saved = %d, want 2", saved)
	}

	finished := true
	resp, err := fx.service.List(ctx, repositories.SessionFilters{Finished: &finished})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.Total != 1 || len(resp.Sessions) != 1 {
		t.Fatalf("expected one finished session, got %+v", resp)
	}
	if resp.Sessions[0].StudentID != "s1" {
		t.Errorf("unexpected session in list: %+v", resp.Sessions[0])
	}
}
