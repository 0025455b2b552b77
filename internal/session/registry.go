package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/campusfleet/exam-service/internal/models"
)

// Key identifies one attempt: one student, one exam.
type Key struct {
	StudentID string
	ExamID    uint
}

// ExamSource supplies authoritative exam content. Implemented over the
// exam catalog repository; lookups may fail with a not-found error.
type ExamSource interface {
	ExamByID(ctx context.Context, examID uint) (*models.Exam, error)
}

// RecordStore persists session records. Find returns an error the
// caller can classify as not-found when no record exists.
type RecordStore interface {
	Find(ctx context.Context, studentID string, examID uint) (*models.SessionRecord, error)
	Save(ctx context.Context, record *models.SessionRecord) error
	IsNotFound(err error) bool
}

// Registry holds all live sessions keyed by (student, exam). There is
// at most one logical session per key; the lookup-before-create in
// Start and the lazy load in Get both run under the registry mutex so
// concurrent callers cannot materialize duplicates.
type Registry struct {
	mu       sync.Mutex
	sessions map[Key]*Session

	exams   ExamSource
	records RecordStore
	now     Clock
}

func NewRegistry(exams ExamSource, records RecordStore, now Clock) *Registry {
	return &Registry{
		sessions: make(map[Key]*Session),
		exams:    exams,
		records:  records,
		now:      now,
	}
}

// Start creates and starts a session for the key. If one already
// exists in memory the existing session is returned with
// ErrSessionExists and no state changes.
func (r *Registry) Start(ctx context.Context, studentID string, examID uint) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{StudentID: studentID, ExamID: examID}
	if existing, ok := r.sessions[key]; ok {
		return existing, ErrSessionExists
	}

	exam, err := r.exams.ExamByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}

	s := New(r.now)
	if err := s.Start(studentID, examID, exam.Questions, exam.Duration); err != nil {
		return nil, err
	}

	r.sessions[key] = s
	return s, nil
}

// Get returns the in-memory session for the key, or lazily restores
// one from storage. This recovery path lets attempts survive a process
// restart; until a Get reconciles them, the in-memory and persisted
// views can diverge.
func (r *Registry) Get(ctx context.Context, studentID string, examID uint) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{StudentID: studentID, ExamID: examID}
	if s, ok := r.sessions[key]; ok {
		return s, nil
	}

	record, err := r.records.Find(ctx, studentID, examID)
	if err != nil {
		if r.records.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session record: %w", err)
	}

	exam, err := r.exams.ExamByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}

	s := Restore(record, exam.Questions, exam.Duration, r.now)
	r.sessions[key] = s
	return s, nil
}

// End finishes the session for the key and persists the resulting
// record. Finished sessions stay in the registry; they remain
// queryable for grading. A persistence failure is returned but does
// not roll back the in-memory transition.
func (r *Registry) End(ctx context.Context, studentID string, examID uint) (*Session, error) {
	s, err := r.Get(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	if !s.Finish() {
		// Already finished; nothing to persist again.
		return s, nil
	}

	record, err := s.Record()
	if err != nil {
		return s, err
	}
	if err := r.records.Save(ctx, record); err != nil {
		return s, fmt.Errorf("persist finished session: %w", err)
	}
	return s, nil
}

// SaveAll persists every session currently in the registry. Failures
// are isolated per session; the first error is returned alongside the
// count of successful saves.
func (r *Registry) SaveAll(ctx context.Context) (int, error) {
	saved := 0
	var firstErr error
	for _, s := range r.Sessions() {
		record, err := s.Record()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := r.records.Save(ctx, record); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}
	return saved, firstErr
}

// Sessions returns a snapshot of all sessions in the registry.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Active returns the sessions that have not finished yet.
func (r *Registry) Active() []*Session {
	var out []*Session
	for _, s := range r.Sessions() {
		if !s.Finished() {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether a session for the key is in memory.
func (r *Registry) Contains(studentID string, examID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[Key{StudentID: studentID, ExamID: examID}]
	return ok
}

// IsNotFound reports whether err means the registry has no session for
// the requested key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
