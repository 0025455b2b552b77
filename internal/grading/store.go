package grading

import (
	"errors"
	"sort"
	"sync"
)

// ErrNoResults is returned when a report card or statistic is requested
// for a key with no graded results.
var ErrNoResults = errors.New("no results recorded")

// ReportCard aggregates one student's results with their mean score.
// The mean is recomputed over all held results on every change rather
// than maintained incrementally, so removals and replacements cannot
// drift it.
type ReportCard struct {
	studentID    string
	results      []Result
	averageScore float64
}

func NewReportCard(studentID string) *ReportCard {
	return &ReportCard{studentID: studentID}
}

// Add appends a result and recomputes the mean.
func (rc *ReportCard) Add(r Result) {
	rc.results = append(rc.results, r)
	rc.recompute()
}

func (rc *ReportCard) recompute() {
	if len(rc.results) == 0 {
		rc.averageScore = 0
		return
	}
	sum := 0
	for _, r := range rc.results {
		sum += r.Score()
	}
	rc.averageScore = float64(sum) / float64(len(rc.results))
}

func (rc *ReportCard) StudentID() string     { return rc.studentID }
func (rc *ReportCard) AverageScore() float64 { return rc.averageScore }

// Results returns the card's results in insertion order.
func (rc *ReportCard) Results() []Result {
	out := make([]Result, len(rc.results))
	copy(out, rc.results)
	return out
}

// ExamStatistics aggregates scores for one exam across students.
type ExamStatistics struct {
	ExamID       uint
	StudentCount int
	AverageScore float64
	HighestScore int
	LowestScore  int
}

// Store holds all graded results in memory, keyed by student in
// insertion order, plus the report cards derived from them. A second
// grade of the same (student, exam) pair replaces the earlier result
// in place rather than appending a duplicate.
type Store struct {
	mu      sync.Mutex
	results map[string][]Result
	cards   map[string]*ReportCard
}

func NewStore() *Store {
	return &Store{
		results: make(map[string][]Result),
		cards:   make(map[string]*ReportCard),
	}
}

// Add records a result. If the student already has a result for the
// same exam it is replaced in place, keeping its position; otherwise
// the result is appended. An existing report card for the student is
// rebuilt immediately.
func (s *Store) Add(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	studentID := r.StudentID()
	replaced := false
	for i, existing := range s.results[studentID] {
		if existing.ExamID() == r.ExamID() {
			s.results[studentID][i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		s.results[studentID] = append(s.results[studentID], r)
	}

	if _, ok := s.cards[studentID]; ok {
		s.cards[studentID] = s.buildCardLocked(studentID)
	}
}

// ResultsFor returns the student's results in insertion order.
func (s *Store) ResultsFor(studentID string) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Result, len(s.results[studentID]))
	copy(out, s.results[studentID])
	return out
}

// ExamResults returns every result recorded for the exam.
func (s *Store) ExamResults(examID uint) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Result
	for _, studentID := range s.studentsLocked() {
		for _, r := range s.results[studentID] {
			if r.ExamID() == examID {
				out = append(out, r)
			}
		}
	}
	return out
}

// GenerateReportCard rebuilds the student's card from their current
// results, discarding any prior card state.
func (s *Store) GenerateReportCard(studentID string) (*ReportCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results[studentID]) == 0 {
		return nil, ErrNoResults
	}

	card := s.buildCardLocked(studentID)
	s.cards[studentID] = card
	return card, nil
}

// ReportCardFor returns the current card for a student, generating one
// if results exist but no card does.
func (s *Store) ReportCardFor(studentID string) (*ReportCard, error) {
	s.mu.Lock()
	card, ok := s.cards[studentID]
	s.mu.Unlock()
	if ok {
		return card, nil
	}
	return s.GenerateReportCard(studentID)
}

func (s *Store) buildCardLocked(studentID string) *ReportCard {
	card := NewReportCard(studentID)
	for _, r := range s.results[studentID] {
		card.Add(r)
	}
	return card
}

// Statistics aggregates mean, minimum and maximum score for one exam
// over all students' results, independent of report cards.
func (s *Store) Statistics(examID uint) (*ExamStatistics, error) {
	results := s.ExamResults(examID)
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	stats := &ExamStatistics{
		ExamID:       examID,
		StudentCount: len(results),
		HighestScore: results[0].Score(),
		LowestScore:  results[0].Score(),
	}
	sum := 0
	for _, r := range results {
		score := r.Score()
		sum += score
		if score > stats.HighestScore {
			stats.HighestScore = score
		}
		if score < stats.LowestScore {
			stats.LowestScore = score
		}
	}
	stats.AverageScore = float64(sum) / float64(len(results))
	return stats, nil
}

// Students returns every student ID with at least one result, sorted
// for stable iteration.
func (s *Store) Students() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studentsLocked()
}

func (s *Store) studentsLocked() []string {
	out := make([]string, 0, len(s.results))
	for studentID := range s.results {
		out = append(out, studentID)
	}
	sort.Strings(out)
	return out
}
