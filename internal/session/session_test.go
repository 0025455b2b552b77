package session

import (
	"errors"
	"testing"
	"time"

	"github.com/campusfleet/exam-service/internal/models"
)

func mcqQuestion(id uint, text, correct string) models.Question {
	return models.Question{
		ID:            id,
		Type:          models.MultipleChoice,
		Text:          text,
		CorrectAnswer: correct,
	}
}

func descriptiveQuestion(id uint, text, correct string) models.Question {
	return models.Question{
		ID:            id,
		Type:          models.Descriptive,
		Text:          text,
		CorrectAnswer: correct,
	}
}

func TestSession_StartBindsOnce(t *testing.T) {
	clock := newFakeClock()
	s := New(clock.Now)
	questions := []models.Question{mcqQuestion(1, "Q1", "A")}

	if err := s.Start("student-1", 7, questions, 60); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := s.Start("student-2", 8, questions, 30)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	// Identity and timer from the first bind survive.
	if got := s.StudentID(); got != "student-1" {
		t.Errorf("StudentID() = %q, want %q", got, "student-1")
	}
	if got := s.RemainingTime(); got != 60*time.Minute {
		t.Errorf("RemainingTime() = %v, want 60m", got)
	}
}

func TestSession_SubmitAnswer(t *testing.T) {
	clock := newFakeClock()
	s := New(clock.Now)

	if err := s.SubmitAnswer(1, "A"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("SubmitAnswer() before start error = %v, want ErrNotStarted", err)
	}

	if err := s.Start("student-1", 7, []models.Question{mcqQuestion(1, "Q1", "A")}, 60); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.SubmitAnswer(1, "A"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	// Unknown question IDs are stored, not rejected.
	if err := s.SubmitAnswer(99, "anything"); err != nil {
		t.Fatalf("SubmitAnswer() for unknown question error = %v", err)
	}

	s.Finish()
	if err := s.SubmitAnswer(1, "B"); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("SubmitAnswer() after finish error = %v, want ErrSessionFinished", err)
	}
	if got := s.Answers()[1]; got != "A" {
		t.Errorf("answer mutated after finish: got %q, want %q", got, "A")
	}
}

func TestSession_FinishIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := New(clock.Now)
	if err := s.Start("student-1", 7, []models.Question{mcqQuestion(1, "Q1", "A")}, 60); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	clock.Advance(10 * time.Minute)
	if !s.Finish() {
		t.Fatal("first Finish() = false, want true")
	}
	frozen := s.RemainingTime()

	clock.Advance(30 * time.Minute)
	if s.Finish() {
		t.Error("second Finish() = true, want false")
	}
	if !s.Finished() {
		t.Error("Finished() = false after finish")
	}
	if got := s.RemainingTime(); got != frozen {
		t.Errorf("RemainingTime() changed after second finish: %v, want %v", got, frozen)
	}
}

func TestSession_ResultsView(t *testing.T) {
	clock := newFakeClock()
	s := New(clock.Now)
	questions := []models.Question{
		mcqQuestion(1, "Q1", "A"),
		mcqQuestion(2, "Q2", "B"),
		descriptiveQuestion(3, "Q3", "forty-two"),
	}
	if err := s.Start("student-1", 7, questions, 60); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.SubmitAnswer(1, "A"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if err := s.SubmitAnswer(2, "C"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	reviews := s.ResultsView()
	if len(reviews) != 3 {
		t.Fatalf("len(reviews) = %d, want 3", len(reviews))
	}

	tests := []struct {
		name     string
		review   QuestionReview
		answered bool
		correct  bool
	}{
		{"correct answer", reviews[0], true, true},
		{"wrong answer", reviews[1], true, false},
		{"unanswered", reviews[2], false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.review.Answered != tt.answered {
				t.Errorf("Answered = %v, want %v", tt.review.Answered, tt.answered)
			}
			if tt.review.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v", tt.review.Correct, tt.correct)
			}
		})
	}
}

func TestSession_RecordRestoreRoundtrip(t *testing.T) {
	clock := newFakeClock()
	s := New(clock.Now)
	questions := []models.Question{mcqQuestion(1, "Q1", "A"), mcqQuestion(2, "Q2", "B")}
	if err := s.Start("student-1", 7, questions, 60); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.SubmitAnswer(1, "A"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	s.Finish()

	record, err := s.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !record.Finished {
		t.Error("record.Finished = false, want true")
	}

	restored := Restore(record, questions, 60, clock.Now)
	if !restored.Finished() {
		t.Error("restored Finished() = false, want true")
	}
	if got := restored.Answers()[1]; got != "A" {
		t.Errorf("restored answer = %q, want %q", got, "A")
	}
	if got := restored.StudentID(); got != "student-1" {
		t.Errorf("restored StudentID() = %q, want %q", got, "student-1")
	}
}
