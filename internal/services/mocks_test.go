package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func sessionKey(studentID string, examID uint) string {
	return fmt.Sprintf("%s:%d", studentID, examID)
}

// ===== MOCK REPOSITORY =====

type mockExamRepository struct {
	exams map[uint]*models.Exam
}

func (m *mockExamRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return nil, repositories.NewNotFoundError("exam", fmt.Sprintf("%d", id))
	}
	return exam, nil
}

func (m *mockExamRepository) GetQuestions(ctx context.Context, tx *gorm.DB, examID uint) ([]models.Question, error) {
	exam, err := m.GetByID(ctx, tx, examID)
	if err != nil {
		return nil, err
	}
	return exam.Questions, nil
}

func (m *mockExamRepository) List(ctx context.Context, tx *gorm.DB) ([]*models.Exam, error) {
	ids := make([]uint, 0, len(m.exams))
	for id := range m.exams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*models.Exam, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.exams[id])
	}
	return out, nil
}

func (m *mockExamRepository) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := m.exams[id]
	return ok, nil
}

type mockSessionRepository struct {
	records map[string]*models.SessionRecord
	saves   int
	saveErr error
}

func (m *mockSessionRepository) Save(ctx context.Context, tx *gorm.DB, record *models.SessionRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[sessionKey(record.StudentID, record.ExamID)] = record
	m.saves++
	return nil
}

func (m *mockSessionRepository) Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.SessionRecord, error) {
	record, ok := m.records[sessionKey(studentID, examID)]
	if !ok {
		return nil, repositories.NewNotFoundError("session", sessionKey(studentID, examID))
	}
	return record, nil
}

func (m *mockSessionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.SessionRecord, int64, error) {
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []*models.SessionRecord
	for _, key := range keys {
		record := m.records[key]
		if filters.Finished != nil && record.Finished != *filters.Finished {
			continue
		}
		if filters.StudentID != nil && record.StudentID != *filters.StudentID {
			continue
		}
		out = append(out, record)
	}
	return out, int64(len(out)), nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error {
	key := sessionKey(studentID, examID)
	if _, ok := m.records[key]; !ok {
		return repositories.NewNotFoundError("session", key)
	}
	delete(m.records, key)
	return nil
}

type mockResultRepository struct {
	rows      map[string]*models.Result
	upserts   int
	upsertErr error
}

func (m *mockResultRepository) Upsert(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[sessionKey(result.StudentID, result.ExamID)] = result
	m.upserts++
	return nil
}

func (m *mockResultRepository) Find(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.Result, error) {
	row, ok := m.rows[sessionKey(studentID, examID)]
	if !ok {
		return nil, repositories.NewNotFoundError("result", sessionKey(studentID, examID))
	}
	return row, nil
}

func (m *mockResultRepository) sorted() []*models.Result {
	keys := make([]string, 0, len(m.rows))
	for key := range m.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*models.Result, 0, len(keys))
	for _, key := range keys {
		out = append(out, m.rows[key])
	}
	return out
}

func (m *mockResultRepository) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Result, error) {
	var out []*models.Result
	for _, row := range m.sorted() {
		if row.StudentID == studentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockResultRepository) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Result, error) {
	var out []*models.Result
	for _, row := range m.sorted() {
		if row.ExamID == examID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockResultRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	var out []*models.Result
	for _, row := range m.sorted() {
		if filters.ExamID != nil && row.ExamID != *filters.ExamID {
			continue
		}
		if filters.StudentID != nil && row.StudentID != *filters.StudentID {
			continue
		}
		out = append(out, row)
	}
	return out, int64(len(out)), nil
}

func (m *mockResultRepository) GetExamStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.ExamScoreStats, error) {
	stats := &repositories.ExamScoreStats{ExamID: examID, LowestScore: 101}
	total := 0
	for _, row := range m.sorted() {
		if row.ExamID != examID {
			continue
		}
		stats.StudentCount++
		total += row.Score
		if row.Score > stats.HighestScore {
			stats.HighestScore = row.Score
		}
		if row.Score < stats.LowestScore {
			stats.LowestScore = row.Score
		}
	}
	if stats.StudentCount == 0 {
		stats.LowestScore = 0
		return stats, nil
	}
	stats.AverageScore = float64(total) / float64(stats.StudentCount)
	return stats, nil
}

type mockReportCardRepository struct {
	cards   map[string]*models.ReportCard
	saves   int
	saveErr error
}

func (m *mockReportCardRepository) Save(ctx context.Context, tx *gorm.DB, card *models.ReportCard) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cards[card.StudentID] = card
	m.saves++
	return nil
}

func (m *mockReportCardRepository) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.ReportCard, error) {
	card, ok := m.cards[studentID]
	if !ok {
		return nil, repositories.NewNotFoundError("report card", studentID)
	}
	return card, nil
}

type mockUserRepository struct {
	users map[string]*models.User
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repositories.NewNotFoundError("user", id)
	}
	return user, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.NewNotFoundError("user", email)
}

func (m *mockUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := m.users[id]
	return ok, nil
}

func (m *mockUserRepository) GetUserRole(ctx context.Context, id string) (models.UserRole, error) {
	user, err := m.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

type mockRepository struct {
	exam       *mockExamRepository
	session    *mockSessionRepository
	result     *mockResultRepository
	reportCard *mockReportCardRepository
	user       *mockUserRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		exam:       &mockExamRepository{exams: make(map[uint]*models.Exam)},
		session:    &mockSessionRepository{records: make(map[string]*models.SessionRecord)},
		result:     &mockResultRepository{rows: make(map[string]*models.Result)},
		reportCard: &mockReportCardRepository{cards: make(map[string]*models.ReportCard)},
		user:       &mockUserRepository{users: make(map[string]*models.User)},
	}
}

func (m *mockRepository) Exam() repositories.ExamRepository             { return m.exam }
func (m *mockRepository) Session() repositories.SessionRepository      { return m.session }
func (m *mockRepository) Result() repositories.ResultRepository        { return m.result }
func (m *mockRepository) ReportCard() repositories.ReportCardRepository { return m.reportCard }
func (m *mockRepository) User() repositories.UserRepository            { return m.user }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== FIXTURES =====

func mcqExam(id uint, durationMinutes int) *models.Exam {
	return &models.Exam{
		ID:       id,
		Subject:  "Mathematics",
		Duration: durationMinutes,
		Questions: []models.Question{
			{ID: 1, ExamID: id, Type: models.MultipleChoice, Text: "2 + 2?", CorrectAnswer: "4", Order: 1},
			{ID: 2, ExamID: id, Type: models.MultipleChoice, Text: "3 * 3?", CorrectAnswer: "9", Order: 2},
		},
	}
}

func descriptiveExam(id uint, durationMinutes int) *models.Exam {
	return &models.Exam{
		ID:       id,
		Subject:  "History",
		Duration: durationMinutes,
		Questions: []models.Question{
			{ID: 10, ExamID: id, Type: models.Descriptive, Text: "Describe the event.", CorrectAnswer: "full account", Order: 1},
		},
	}
}

func seedStudent(repo *mockRepository, id string) {
	repo.user.users[id] = &models.User{
		ID:       id,
		FullName: "Test Student",
		Email:    id + "@example.edu",
		Role:     models.RoleStudent,
	}
}
