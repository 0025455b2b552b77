package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// SessionRecord is the persisted form of one exam attempt, keyed by the
// composite (student, exam) pair. The in-memory session in
// internal/session is the source of truth while the process is alive;
// the record exists so the registry can recover attempts across restarts.
type SessionRecord struct {
	StudentID string `json:"student_id" gorm:"primaryKey;size:255"`
	ExamID    uint   `json:"exam_id" gorm:"primaryKey"`
	Finished  bool   `json:"finished" gorm:"not null;default:false;index"`

	// Answers stored as JSONB: question ID (stringified) -> answer text.
	// Unanswered questions are absent, not empty.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionRecord) TableName() string {
	return "exam_sessions"
}

// AnswerMap decodes the JSONB answers column into questionID -> answer.
func (r *SessionRecord) AnswerMap() map[uint]string {
	out := make(map[uint]string)
	if len(r.Answers) == 0 {
		return out
	}
	var raw map[string]string
	if err := json.Unmarshal(r.Answers, &raw); err != nil {
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

// EncodeAnswers sets the JSONB answers column from a questionID -> answer map.
func (r *SessionRecord) EncodeAnswers(answers map[uint]string) error {
	raw := make(map[string]string, len(answers))
	for id, ans := range answers {
		raw[strconv.FormatUint(uint64(id), 10)] = ans
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	r.Answers = data
	return nil
}
