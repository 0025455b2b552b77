package validator

// StartSessionRequest starts one student's attempt at one exam.
type StartSessionRequest struct {
	StudentID string `json:"student_id" validate:"required,max=255"`
	ExamID    uint   `json:"exam_id" validate:"required"`
}

// SubmitAnswerRequest records one answer on a running session. An empty
// answer text is allowed; it clears nothing and counts as answered.
type SubmitAnswerRequest struct {
	StudentID  string `json:"student_id" validate:"required,max=255"`
	ExamID     uint   `json:"exam_id" validate:"required"`
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"max=10000"`
}

// FinishSessionRequest closes an attempt and persists its record.
type FinishSessionRequest struct {
	StudentID string `json:"student_id" validate:"required,max=255"`
	ExamID    uint   `json:"exam_id" validate:"required"`
}

// GradeSessionRequest grades one finished attempt.
type GradeSessionRequest struct {
	StudentID string `json:"student_id" validate:"required,max=255"`
	ExamID    uint   `json:"exam_id" validate:"required"`
}

// ScoreOverrideRequest manually adjusts a graded score.
type ScoreOverrideRequest struct {
	Score int `json:"score" validate:"score_range"`
}
