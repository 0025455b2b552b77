package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/campusfleet/exam-service/internal/events"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/session"
	"github.com/campusfleet/exam-service/internal/validator"
)

// recordStoreAdapter exposes the session repository through the
// registry's storage port.
type recordStoreAdapter struct {
	repo repositories.Repository
}

func (a *recordStoreAdapter) Find(ctx context.Context, studentID string, examID uint) (*models.SessionRecord, error) {
	return a.repo.Session().Find(ctx, nil, studentID, examID)
}

func (a *recordStoreAdapter) Save(ctx context.Context, record *models.SessionRecord) error {
	return a.repo.Session().Save(ctx, nil, record)
}

func (a *recordStoreAdapter) IsNotFound(err error) bool {
	return repositories.IsNotFoundError(err)
}

// NewSessionRecordStore adapts the repository for registry use.
func NewSessionRecordStore(repo repositories.Repository) session.RecordStore {
	return &recordStoreAdapter{repo: repo}
}

type sessionService struct {
	repo      repositories.Repository
	registry  *session.Registry
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSessionService(repo repositories.Repository, registry *session.Registry, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) SessionService {
	return &sessionService{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// SessionStartedEvent is the payload published when an attempt starts.
type SessionStartedEvent struct {
	StudentID string `json:"student_id"`
	ExamID    uint   `json:"exam_id"`
}

// SessionFinishedEvent is the payload published when an attempt ends.
type SessionFinishedEvent struct {
	StudentID   string `json:"student_id"`
	ExamID      uint   `json:"exam_id"`
	AnswerCount int    `json:"answer_count"`
}

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.User().GetByID(ctx, req.StudentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		s.logger.WarnContext(ctx, "Student lookup failed, continuing",
			"student_id", req.StudentID,
			"error", err)
	}

	sess, err := s.registry.Start(ctx, req.StudentID, req.ExamID)
	if err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			s.logger.InfoContext(ctx, "Session already exists",
				"student_id", req.StudentID,
				"exam_id", req.ExamID)
			return nil, ErrSessionAlreadyExists
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	s.publish(ctx, events.TopicSessionStarted, SessionStartedEvent{
		StudentID: req.StudentID,
		ExamID:    req.ExamID,
	})

	s.logger.InfoContext(ctx, "Session started",
		"student_id", req.StudentID,
		"exam_id", req.ExamID)

	return s.toResponse(sess), nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	sess, err := s.getSession(ctx, req.StudentID, req.ExamID)
	if err != nil {
		return err
	}

	if err := sess.SubmitAnswer(req.QuestionID, req.Answer); err != nil {
		if errors.Is(err, session.ErrSessionFinished) {
			return ErrSessionFinished
		}
		return err
	}

	return nil
}

func (s *sessionService) Finish(ctx context.Context, req *FinishSessionRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.registry.End(ctx, req.StudentID, req.ExamID)
	if err != nil {
		if session.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		// The finish transition may have happened even when the save
		// failed; report the error and let the caller retry SaveAll.
		if sess != nil {
			s.logger.ErrorContext(ctx, "Session finished but persistence failed",
				"student_id", req.StudentID,
				"exam_id", req.ExamID,
				"error", err)
		}
		return nil, err
	}

	s.publish(ctx, events.TopicSessionFinished, SessionFinishedEvent{
		StudentID:   req.StudentID,
		ExamID:      req.ExamID,
		AnswerCount: len(sess.Answers()),
	})

	s.logger.InfoContext(ctx, "Session finished",
		"student_id", req.StudentID,
		"exam_id", req.ExamID)

	return s.toResponse(sess), nil
}

func (s *sessionService) Get(ctx context.Context, studentID string, examID uint) (*SessionResponse, error) {
	sess, err := s.getSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sess), nil
}

func (s *sessionService) GetTimeRemaining(ctx context.Context, studentID string, examID uint) (int, error) {
	sess, err := s.getSession(ctx, studentID, examID)
	if err != nil {
		return 0, err
	}
	return int(sess.RemainingTime().Seconds()), nil
}

func (s *sessionService) GetResultsView(ctx context.Context, studentID string, examID uint) ([]session.QuestionReview, error) {
	sess, err := s.getSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	return sess.ResultsView(), nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error) {
	records, total, err := s.repo.Session().List(ctx, nil, filters)
	if err != nil {
		return nil, err
	}

	resp := &SessionListResponse{Total: total}
	for _, record := range records {
		resp.Sessions = append(resp.Sessions, &SessionResponse{
			StudentID:   record.StudentID,
			ExamID:      record.ExamID,
			Finished:    record.Finished,
			AnswerCount: len(record.AnswerMap()),
		})
	}
	return resp, nil
}

func (s *sessionService) SaveAll(ctx context.Context) (int, error) {
	saved, err := s.registry.SaveAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "SaveAll completed with failures",
			"saved", saved,
			"error", err)
	}
	return saved, err
}

func (s *sessionService) getSession(ctx context.Context, studentID string, examID uint) (*session.Session, error) {
	sess, err := s.registry.Get(ctx, studentID, examID)
	if err != nil {
		if session.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *sessionService) toResponse(sess *session.Session) *SessionResponse {
	return &SessionResponse{
		StudentID:        sess.StudentID(),
		ExamID:           sess.ExamID(),
		Finished:         sess.Finished(),
		RemainingSeconds: int(sess.RemainingTime().Seconds()),
		AnswerCount:      len(sess.Answers()),
		QuestionCount:    len(sess.Questions()),
	}
}

func (s *sessionService) publish(ctx context.Context, topic string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(topic, data)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"topic", topic,
			"error", err)
	}
}
