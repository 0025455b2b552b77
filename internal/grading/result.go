package grading

import (
	"errors"
	"fmt"
	"time"

	"github.com/campusfleet/exam-service/internal/models"
)

// ErrInvalidScore is returned for scores outside [0, 100].
var ErrInvalidScore = errors.New("score must be between 0 and 100")

func validateScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	return nil
}

// Result is the graded outcome of one finished session. It is a closed
// sum: the only implementations are MCQResult and DescriptiveResult,
// enforced by the unexported sealed method. Dispatch on the concrete
// type is exhaustive by construction.
type Result interface {
	sealed()

	StudentID() string
	ExamID() uint
	Score() int
	Type() models.ExamType

	// ToModel converts the result to its persisted row form.
	ToModel(gradedAt time.Time) (*models.Result, error)
}

// MCQResult scores an attempt as a correct-answer count over the exam's
// question total.
type MCQResult struct {
	studentID      string
	examID         uint
	score          int
	correctAnswers int
	totalQuestions int
}

// NewMCQResult derives the score from the counts: correct*100/total,
// zero for an exam with no questions.
func NewMCQResult(studentID string, examID uint, correctAnswers, totalQuestions int) (*MCQResult, error) {
	if correctAnswers < 0 || totalQuestions < 0 || correctAnswers > totalQuestions {
		return nil, fmt.Errorf("invalid answer counts: %d/%d", correctAnswers, totalQuestions)
	}

	score := 0
	if totalQuestions > 0 {
		score = correctAnswers * 100 / totalQuestions
	}

	return &MCQResult{
		studentID:      studentID,
		examID:         examID,
		score:          score,
		correctAnswers: correctAnswers,
		totalQuestions: totalQuestions,
	}, nil
}

func (r *MCQResult) sealed() {}

func (r *MCQResult) StudentID() string     { return r.studentID }
func (r *MCQResult) ExamID() uint          { return r.examID }
func (r *MCQResult) Score() int            { return r.score }
func (r *MCQResult) Type() models.ExamType { return models.ExamTypeMCQ }
func (r *MCQResult) CorrectAnswers() int   { return r.correctAnswers }
func (r *MCQResult) TotalQuestions() int   { return r.totalQuestions }

// SetScore overrides the derived score, for manual adjustment.
func (r *MCQResult) SetScore(score int) error {
	if err := validateScore(score); err != nil {
		return err
	}
	r.score = score
	return nil
}

func (r *MCQResult) ToModel(gradedAt time.Time) (*models.Result, error) {
	return &models.Result{
		StudentID:      r.studentID,
		ExamID:         r.examID,
		Score:          r.score,
		ExamType:       models.ExamTypeMCQ,
		CorrectAnswers: r.correctAnswers,
		TotalQuestions: r.totalQuestions,
		GradedAt:       gradedAt,
	}, nil
}

// DescriptiveResult scores an attempt with per-question feedback text
// and overall comments.
type DescriptiveResult struct {
	studentID string
	examID    uint
	score     int
	comments  string
	feedback  map[uint]string
}

func NewDescriptiveResult(studentID string, examID uint, score int, comments string, feedback map[uint]string) (*DescriptiveResult, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}

	fb := make(map[uint]string, len(feedback))
	for id, text := range feedback {
		fb[id] = text
	}

	return &DescriptiveResult{
		studentID: studentID,
		examID:    examID,
		score:     score,
		comments:  comments,
		feedback:  fb,
	}, nil
}

func (r *DescriptiveResult) sealed() {}

func (r *DescriptiveResult) StudentID() string     { return r.studentID }
func (r *DescriptiveResult) ExamID() uint          { return r.examID }
func (r *DescriptiveResult) Score() int            { return r.score }
func (r *DescriptiveResult) Type() models.ExamType { return models.ExamTypeDescriptive }
func (r *DescriptiveResult) Comments() string      { return r.comments }

// Feedback returns a copy of the per-question feedback mapping.
func (r *DescriptiveResult) Feedback() map[uint]string {
	out := make(map[uint]string, len(r.feedback))
	for id, text := range r.feedback {
		out[id] = text
	}
	return out
}

func (r *DescriptiveResult) SetScore(score int) error {
	if err := validateScore(score); err != nil {
		return err
	}
	r.score = score
	return nil
}

func (r *DescriptiveResult) ToModel(gradedAt time.Time) (*models.Result, error) {
	comments := r.comments
	row := &models.Result{
		StudentID: r.studentID,
		ExamID:    r.examID,
		Score:     r.score,
		ExamType:  models.ExamTypeDescriptive,
		Comments:  &comments,
		GradedAt:  gradedAt,
	}
	if err := row.EncodeFeedback(r.feedback); err != nil {
		return nil, err
	}
	return row, nil
}

// FromModel rebuilds a Result from its persisted row, inverting
// ToModel. Used to hydrate the in-memory store at startup.
func FromModel(row *models.Result) (Result, error) {
	switch row.ExamType {
	case models.ExamTypeMCQ:
		r, err := NewMCQResult(row.StudentID, row.ExamID, row.CorrectAnswers, row.TotalQuestions)
		if err != nil {
			return nil, err
		}
		if err := r.SetScore(row.Score); err != nil {
			return nil, err
		}
		return r, nil
	case models.ExamTypeDescriptive:
		comments := ""
		if row.Comments != nil {
			comments = *row.Comments
		}
		return NewDescriptiveResult(row.StudentID, row.ExamID, row.Score, comments, row.FeedbackMap())
	default:
		return nil, fmt.Errorf("unknown exam type %q", row.ExamType)
	}
}

// Summary flattens a result into the report card line-item form.
func Summary(r Result) models.ResultSummary {
	summary := models.ResultSummary{
		ExamID:   r.ExamID(),
		Score:    r.Score(),
		ExamType: r.Type(),
	}
	switch v := r.(type) {
	case *MCQResult:
		summary.CorrectAnswers = v.CorrectAnswers()
		summary.TotalQuestions = v.TotalQuestions()
	case *DescriptiveResult:
		summary.Comments = v.Comments()
	}
	return summary
}
