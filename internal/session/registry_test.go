package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/campusfleet/exam-service/internal/models"
)

var errFakeNotFound = errors.New("not found")

type fakeExamSource struct {
	exams map[uint]*models.Exam
}

func (f *fakeExamSource) ExamByID(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, ok := f.exams[examID]
	if !ok {
		return nil, fmt.Errorf("exam %d: %w", examID, errFakeNotFound)
	}
	return exam, nil
}

type fakeRecordStore struct {
	records  map[Key]*models.SessionRecord
	saveErr  error
	saves    int
	findHits int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[Key]*models.SessionRecord)}
}

func (f *fakeRecordStore) Find(ctx context.Context, studentID string, examID uint) (*models.SessionRecord, error) {
	f.findHits++
	record, ok := f.records[Key{StudentID: studentID, ExamID: examID}]
	if !ok {
		return nil, errFakeNotFound
	}
	return record, nil
}

func (f *fakeRecordStore) Save(ctx context.Context, record *models.SessionRecord) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[Key{StudentID: record.StudentID, ExamID: record.ExamID}] = record
	return nil
}

func (f *fakeRecordStore) IsNotFound(err error) bool {
	return errors.Is(err, errFakeNotFound)
}

func testExam(id uint) *models.Exam {
	return &models.Exam{
		ID:       id,
		Subject:  "Networking",
		Duration: 60,
		Questions: []models.Question{
			mcqQuestion(1, "Q1", "A"),
			mcqQuestion(2, "Q2", "B"),
		},
	}
}

func newTestRegistry(store *fakeRecordStore) *Registry {
	exams := &fakeExamSource{exams: map[uint]*models.Exam{7: testExam(7)}}
	return NewRegistry(exams, store, newFakeClock().Now)
}

func TestRegistry_StartAtMostOnePerKey(t *testing.T) {
	reg := newTestRegistry(newFakeRecordStore())
	ctx := context.Background()

	first, err := reg.Start(ctx, "student-1", 7)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	second, err := reg.Start(ctx, "student-1", 7)
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("second Start() error = %v, want ErrSessionExists", err)
	}
	if second != first {
		t.Error("second Start() returned a different session")
	}
	if len(reg.Sessions()) != 1 {
		t.Errorf("len(Sessions()) = %d, want 1", len(reg.Sessions()))
	}
}

func TestRegistry_StartUnknownExam(t *testing.T) {
	reg := newTestRegistry(newFakeRecordStore())

	if _, err := reg.Start(context.Background(), "student-1", 99); !errors.Is(err, errFakeNotFound) {
		t.Fatalf("Start() with unknown exam error = %v, want wrapped not-found", err)
	}
	if len(reg.Sessions()) != 0 {
		t.Error("failed Start() left a session in the registry")
	}
}

func TestRegistry_GetLazyLoadsFromStorage(t *testing.T) {
	store := newFakeRecordStore()
	record := &models.SessionRecord{StudentID: "student-1", ExamID: 7, Finished: true}
	if err := record.EncodeAnswers(map[uint]string{1: "A"}); err != nil {
		t.Fatalf("EncodeAnswers() error = %v", err)
	}
	store.records[Key{StudentID: "student-1", ExamID: 7}] = record

	reg := newTestRegistry(store)
	ctx := context.Background()

	s, err := reg.Get(ctx, "student-1", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !s.Finished() {
		t.Error("restored session Finished() = false, want true")
	}
	if got := s.Answers()[1]; got != "A" {
		t.Errorf("restored answer = %q, want %q", got, "A")
	}

	// Second Get hits memory, not storage.
	if _, err := reg.Get(ctx, "student-1", 7); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if store.findHits != 1 {
		t.Errorf("storage lookups = %d, want 1", store.findHits)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := newTestRegistry(newFakeRecordStore())

	_, err := reg.Get(context.Background(), "nobody", 7)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false for ErrSessionNotFound")
	}
}

func TestRegistry_EndFinishesAndPersists(t *testing.T) {
	store := newFakeRecordStore()
	reg := newTestRegistry(store)
	ctx := context.Background()

	if _, err := reg.Start(ctx, "student-1", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s, err := reg.End(ctx, "student-1", 7)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if !s.Finished() {
		t.Error("session not finished after End()")
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}

	// Ending again is a no-op: no second save.
	if _, err := reg.End(ctx, "student-1", 7); err != nil {
		t.Fatalf("second End() error = %v", err)
	}
	if store.saves != 1 {
		t.Errorf("saves after second End() = %d, want 1", store.saves)
	}

	// Finished sessions stay queryable.
	if _, err := reg.Get(ctx, "student-1", 7); err != nil {
		t.Errorf("Get() after End() error = %v", err)
	}
}

func TestRegistry_EndPersistenceFailureKeepsTransition(t *testing.T) {
	store := newFakeRecordStore()
	store.saveErr = errors.New("disk full")
	reg := newTestRegistry(store)
	ctx := context.Background()

	if _, err := reg.Start(ctx, "student-1", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s, err := reg.End(ctx, "student-1", 7)
	if err == nil {
		t.Fatal("End() error = nil, want persistence failure")
	}
	if !s.Finished() {
		t.Error("persistence failure rolled back the finish transition")
	}
}

func TestRegistry_SaveAll(t *testing.T) {
	store := newFakeRecordStore()
	reg := newTestRegistry(store)
	ctx := context.Background()

	if _, err := reg.Start(ctx, "student-1", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := reg.Start(ctx, "student-2", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	saved, err := reg.SaveAll(ctx)
	if err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if saved != 2 {
		t.Errorf("saved = %d, want 2", saved)
	}
}

func TestRegistry_Active(t *testing.T) {
	reg := newTestRegistry(newFakeRecordStore())
	ctx := context.Background()

	if _, err := reg.Start(ctx, "student-1", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := reg.Start(ctx, "student-2", 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := reg.End(ctx, "student-1", 7); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	active := reg.Active()
	if len(active) != 1 {
		t.Fatalf("len(Active()) = %d, want 1", len(active))
	}
	if got := active[0].StudentID(); got != "student-2" {
		t.Errorf("active session student = %q, want %q", got, "student-2")
	}
}
