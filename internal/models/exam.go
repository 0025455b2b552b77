package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Descriptive    QuestionType = "descriptive"
)

// Question is an immutable piece of exam content. The exam-authoring
// subsystem owns these rows; this service only reads them.
type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	ExamID uint         `json:"exam_id" gorm:"not null;index"`
	Type   QuestionType `json:"type" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Order  int          `json:"order" gorm:"column:display_order;default:0"`

	// CorrectAnswer is the authoritative answer key. For multiple choice
	// it holds the correct option text; for descriptive questions the
	// expected answer.
	CorrectAnswer string `json:"correct_answer" gorm:"type:text;not null"`

	// Options stored as JSONB ([]string); empty for descriptive questions.
	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OptionList decodes the JSONB options column. Returns nil for
// descriptive questions or malformed content.
func (q *Question) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}

// CheckAnswer compares a submitted answer against the answer key.
// Exact match, as the authoring subsystem stores canonical option text.
func (q *Question) CheckAnswer(answer string) bool {
	return answer == q.CorrectAnswer
}

// Exam is a read-only view of an exam owned by the authoring subsystem.
type Exam struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Subject  string `json:"subject" gorm:"not null;size:200" validate:"required,max=200"`
	Duration int    `json:"duration" gorm:"not null" validate:"required,exam_duration"` // minutes

	CreatedBy string `json:"created_by" gorm:"index;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:ExamID"`
}

// HasMultipleChoice reports whether any question in the exam is multiple
// choice. The grading pipeline scores the whole attempt as MCQ when this
// is true, Descriptive otherwise (a per-exam, not per-question rule).
func (e *Exam) HasMultipleChoice() bool {
	for i := range e.Questions {
		if e.Questions[i].Type == MultipleChoice {
			return true
		}
	}
	return false
}
