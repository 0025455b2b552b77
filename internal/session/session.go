package session

import (
	"sync"
	"time"

	"github.com/campusfleet/exam-service/internal/models"
)

// QuestionReview is one line of a session's results view: the question
// cross-referenced against the stored answer. Derived on demand, never
// stored.
type QuestionReview struct {
	QuestionID    uint   `json:"question_id"`
	Text          string `json:"text"`
	StudentAnswer string `json:"student_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
}

// Session is the single source of truth for one student's attempt at
// one exam. It owns its timer and answer sheet and serializes all
// access behind one mutex. The snapshot of questions is bound at start
// and never changes afterwards, even if the catalog copy does.
type Session struct {
	mu sync.Mutex

	studentID string
	examID    uint
	snapshot  []models.Question
	sheet     *AnswerSheet
	timer     *Timer
	finished  bool
	bound     bool
}

// New creates an unbound session. Identity binds on Start.
func New(now Clock) *Session {
	return &Session{
		timer: NewTimer(now),
	}
}

// Start binds the session identity, captures the question snapshot and
// starts the timer. Binding happens at most once per session.
func (s *Session) Start(studentID string, examID uint, questions []models.Question, durationMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		return ErrAlreadyStarted
	}

	s.studentID = studentID
	s.examID = examID
	s.snapshot = make([]models.Question, len(questions))
	copy(s.snapshot, questions)
	s.sheet = NewAnswerSheet(studentID, examID)
	s.timer.Start(durationMinutes)
	s.bound = true

	return nil
}

// SubmitAnswer writes through to the answer sheet. The question ID is
// not checked against the snapshot; unknown IDs are stored and surface
// later as unmatched entries in the results view.
func (s *Session) SubmitAnswer(questionID uint, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bound {
		return ErrNotStarted
	}
	if s.finished {
		return ErrSessionFinished
	}

	s.sheet.Add(questionID, text)
	return nil
}

// Finish pauses the timer and marks the session finished. It is a pure
// state transition; persisting the record is the caller's explicit next
// step. Returns false when the session was already finished, in which
// case nothing is mutated.
func (s *Session) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bound || s.finished {
		return false
	}

	s.timer.Pause()
	s.finished = true
	return true
}

// RemainingTime reports the time left on the attempt. Zero for an
// unbound session.
func (s *Session) RemainingTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.Remaining()
}

// Pause freezes the timer without finishing the attempt.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.timer.Pause()
	}
}

// Resume restarts a paused timer. No-op on a finished session.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.timer.Resume()
	}
}

// ResultsView cross-references the answer sheet against the question
// snapshot.
func (s *Session) ResultsView() []QuestionReview {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bound {
		return nil
	}

	reviews := make([]QuestionReview, 0, len(s.snapshot))
	for i := range s.snapshot {
		q := &s.snapshot[i]
		answered := s.sheet.Has(q.ID)
		answer := s.sheet.Get(q.ID)
		reviews = append(reviews, QuestionReview{
			QuestionID:    q.ID,
			Text:          q.Text,
			StudentAnswer: answer,
			CorrectAnswer: q.CorrectAnswer,
			Answered:      answered,
			Correct:       answered && q.CheckAnswer(answer),
		})
	}
	return reviews
}

// Record snapshots the session into its persistable form.
func (s *Session) Record() (*models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bound {
		return nil, ErrNotStarted
	}

	record := &models.SessionRecord{
		StudentID: s.studentID,
		ExamID:    s.examID,
		Finished:  s.finished,
	}
	if err := record.EncodeAnswers(s.sheet.All()); err != nil {
		return nil, err
	}
	return record, nil
}

// Restore rebuilds a session from a persisted record and the exam's
// current question set. A restored unfinished session gets a fresh
// timer for the full duration; elapsed time does not survive a restart.
func Restore(record *models.SessionRecord, questions []models.Question, durationMinutes int, now Clock) *Session {
	s := New(now)
	s.studentID = record.StudentID
	s.examID = record.ExamID
	s.snapshot = make([]models.Question, len(questions))
	copy(s.snapshot, questions)
	s.sheet = NewAnswerSheet(record.StudentID, record.ExamID)
	for id, text := range record.AnswerMap() {
		s.sheet.Add(id, text)
	}
	s.finished = record.Finished
	s.bound = true
	if !s.finished {
		s.timer.Start(durationMinutes)
	}
	return s
}

func (s *Session) StudentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studentID
}

func (s *Session) ExamID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.examID
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Answers returns a copy of the current answer mapping.
func (s *Session) Answers() map[uint]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return map[uint]string{}
	}
	return s.sheet.All()
}

// Questions returns the immutable snapshot bound at start.
func (s *Session) Questions() []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Question, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}
