package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

type ExamType string

const (
	ExamTypeMCQ         ExamType = "MCQ"
	ExamTypeDescriptive ExamType = "Descriptive"
)

// Result is the persisted graded outcome of one finished session.
// Re-grading replaces the row for the same (student, exam) pair, so the
// composite key is unique.
type Result struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	StudentID string   `json:"student_id" gorm:"not null;size:255;index;uniqueIndex:idx_result_student_exam"`
	ExamID    uint     `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_result_student_exam"`
	Score     int      `json:"score" gorm:"not null" validate:"score_range"`
	ExamType  ExamType `json:"exam_type" gorm:"not null;size:20"`

	// MCQ variant fields
	CorrectAnswers int `json:"correct_answers"`
	TotalQuestions int `json:"total_questions"`

	// Descriptive variant fields
	Comments *string        `json:"comments" gorm:"type:text"`
	Feedback datatypes.JSON `json:"feedback" gorm:"type:jsonb"` // question ID -> feedback text

	GradedAt  time.Time `json:"graded_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackMap decodes the JSONB per-question feedback column.
func (r *Result) FeedbackMap() map[uint]string {
	out := make(map[uint]string)
	if len(r.Feedback) == 0 {
		return out
	}
	var raw map[string]string
	if err := json.Unmarshal(r.Feedback, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		out[uint(id)] = v
	}
	return out
}

// EncodeFeedback sets the JSONB feedback column from a questionID -> text map.
func (r *Result) EncodeFeedback(feedback map[uint]string) error {
	raw := make(map[string]string, len(feedback))
	for id, fb := range feedback {
		raw[strconv.FormatUint(uint64(id), 10)] = fb
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	r.Feedback = data
	return nil
}

// ResultSummary is the per-result line item embedded in a report card.
type ResultSummary struct {
	ExamID         uint     `json:"exam_id"`
	Score          int      `json:"score"`
	ExamType       ExamType `json:"exam_type"`
	CorrectAnswers int      `json:"correct_answers,omitempty"`
	TotalQuestions int      `json:"total_questions,omitempty"`
	Comments       string   `json:"comments,omitempty"`
}

// ReportCard is the persisted per-student aggregate. It is always a full
// rebuild from the student's current results, never an incremental edit.
type ReportCard struct {
	StudentID    string         `json:"student_id" gorm:"primaryKey;size:255"`
	AverageScore float64        `json:"average_score" gorm:"not null"`
	Results      datatypes.JSON `json:"results" gorm:"type:jsonb"` // []ResultSummary, insertion order

	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ReportCard) TableName() string {
	return "report_cards"
}

// Summaries decodes the embedded result summaries.
func (rc *ReportCard) Summaries() []ResultSummary {
	if len(rc.Results) == 0 {
		return nil
	}
	var out []ResultSummary
	if err := json.Unmarshal(rc.Results, &out); err != nil {
		return nil
	}
	return out
}

// EncodeSummaries sets the JSONB results column.
func (rc *ReportCard) EncodeSummaries(summaries []ResultSummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return err
	}
	rc.Results = data
	return nil
}
