package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/session"
)

// Feedback strings attached to descriptive results, one per question.
const (
	FeedbackCorrect    = "Correct answer. Full points awarded."
	FeedbackIncorrect  = "Incorrect answer. Expected: "
	FeedbackUnanswered = "No answer provided."
)

var (
	ErrNilSession         = errors.New("cannot grade a nil session")
	ErrSessionNotFinished = errors.New("cannot grade an unfinished session")
)

// ExamSource supplies the authoritative exam used for grading. The
// session's own snapshot may be stale; grading always runs against the
// catalog's current content.
type ExamSource interface {
	ExamByID(ctx context.Context, examID uint) (*models.Exam, error)
}

// Grader derives a Result from one finished session.
//
// The result variant is chosen per exam, not per question: if any
// question in the exam is multiple choice the whole attempt is scored
// as MCQ, otherwise as Descriptive with generated per-question
// feedback. An exam with no questions grades as MCQ with a zero score.
type Grader struct {
	exams ExamSource
}

func NewGrader(exams ExamSource) *Grader {
	return &Grader{exams: exams}
}

func (g *Grader) Grade(ctx context.Context, s *session.Session) (Result, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if !s.Finished() {
		return nil, ErrSessionNotFinished
	}

	exam, err := g.exams.ExamByID(ctx, s.ExamID())
	if err != nil {
		return nil, fmt.Errorf("load exam %d for grading: %w", s.ExamID(), err)
	}

	answers := s.Answers()
	correct := 0
	feedback := make(map[uint]string, len(exam.Questions))

	for i := range exam.Questions {
		q := &exam.Questions[i]
		answer, answered := answers[q.ID]

		switch {
		case !answered:
			feedback[q.ID] = FeedbackUnanswered
		case q.CheckAnswer(answer):
			correct++
			feedback[q.ID] = FeedbackCorrect
		default:
			feedback[q.ID] = FeedbackIncorrect + q.CorrectAnswer
		}
	}

	total := len(exam.Questions)
	if total == 0 || exam.HasMultipleChoice() {
		return NewMCQResult(s.StudentID(), exam.ID, correct, total)
	}

	score := correct * 100 / total
	comments := fmt.Sprintf("%d of %d questions answered correctly.", correct, total)
	return NewDescriptiveResult(s.StudentID(), exam.ID, score, comments, feedback)
}
