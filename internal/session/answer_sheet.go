package session

// AnswerSheet maps question IDs to submitted answer text for one
// attempt. Absent keys mean unanswered; an empty string is a real
// (empty) answer. It performs no validation against the exam content;
// the session interprets the mapping when building its results view.
type AnswerSheet struct {
	studentID string
	examID    uint
	answers   map[uint]string
}

func NewAnswerSheet(studentID string, examID uint) *AnswerSheet {
	return &AnswerSheet{
		studentID: studentID,
		examID:    examID,
		answers:   make(map[uint]string),
	}
}

// Add records an answer, overwriting any prior value for the question.
func (s *AnswerSheet) Add(questionID uint, text string) {
	s.answers[questionID] = text
}

// Update changes an existing answer. No-op if the question was never
// answered.
func (s *AnswerSheet) Update(questionID uint, text string) {
	if _, ok := s.answers[questionID]; !ok {
		return
	}
	s.answers[questionID] = text
}

// Remove deletes an answer.
func (s *AnswerSheet) Remove(questionID uint) {
	delete(s.answers, questionID)
}

// Get returns the recorded answer, or the empty string if the question
// was never answered.
func (s *AnswerSheet) Get(questionID uint) string {
	return s.answers[questionID]
}

// Has reports whether an answer was recorded for the question.
func (s *AnswerSheet) Has(questionID uint) bool {
	_, ok := s.answers[questionID]
	return ok
}

// All returns a copy of the current answers.
func (s *AnswerSheet) All() map[uint]string {
	out := make(map[uint]string, len(s.answers))
	for id, text := range s.answers {
		out[id] = text
	}
	return out
}

// Len returns the number of recorded answers.
func (s *AnswerSheet) Len() int {
	return len(s.answers)
}

func (s *AnswerSheet) StudentID() string { return s.studentID }
func (s *AnswerSheet) ExamID() uint      { return s.examID }
