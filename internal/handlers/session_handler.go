package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/services"
	"github.com/campusfleet/exam-service/internal/utils"
	"github.com/campusfleet/exam-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// StartSession starts an exam session for the authenticated student
// @Summary Start exam session
// @Description Starts a timed session for an exam; one session per student and exam
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting exam session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.StudentID = h.getUserID(c)

	session, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// SubmitAnswer records an answer on the student's running session
// @Summary Submit answer
// @Description Records or overwrites the answer to one question
// @Tags sessions
// @Accept json
// @Produce json
// @Param answer body services.SubmitAnswerRequest true "Answer data"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.StudentID = h.getUserID(c)

	h.LogRequest(c, "Submitting answer", "exam_id", req.ExamID, "question_id", req.QuestionID)

	if err := h.sessionService.SubmitAnswer(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer submitted successfully",
	})
}

// FinishSession closes the student's session and persists it
// @Summary Finish exam session
// @Description Finishes the session; the remaining time freezes and answers lock
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.FinishSessionRequest true "Session data"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/finish [post]
func (h *SessionHandler) FinishSession(c *gin.Context) {
	var req services.FinishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.StudentID = h.getUserID(c)

	h.LogRequest(c, "Finishing exam session", "exam_id", req.ExamID)

	session, err := h.sessionService.Finish(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetMySession returns the authenticated student's session for an exam
// @Summary Get own session
// @Tags sessions
// @Produce json
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/me/{exam_id} [get]
func (h *SessionHandler) GetMySession(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), h.getUserID(c), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetTimeRemaining returns the seconds left on the student's session
// @Summary Get remaining time
// @Tags sessions
// @Produce json
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} ErrorResponse
// @Router /sessions/me/{exam_id}/time-remaining [get]
func (h *SessionHandler) GetTimeRemaining(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	remaining, err := h.sessionService.GetTimeRemaining(c.Request.Context(), h.getUserID(c), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exam_id":           examID,
		"remaining_seconds": remaining,
	})
}

// GetSessionReview returns the per-question review of the student's session
// @Summary Review own session
// @Description Lists every question with the submitted answer and the answer key
// @Tags sessions
// @Produce json
// @Param exam_id path uint true "Exam ID"
// @Success 200 {array} session.QuestionReview
// @Failure 404 {object} ErrorResponse
// @Router /sessions/me/{exam_id}/review [get]
func (h *SessionHandler) GetSessionReview(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	review, err := h.sessionService.GetResultsView(c.Request.Context(), h.getUserID(c), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// GetSession returns any student's session, for staff
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param student_id path string true "Student ID"
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{student_id}/{exam_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id",
		})
		return
	}
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), studentID, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists persisted session records, for staff
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Param finished query bool false "Filter by finished state"
// @Param student_id query string false "Filter by student"
// @Success 200 {object} services.SessionListResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := h.parseSessionFilters(c)

	sessions, err := h.sessionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// SaveAllSessions flushes every in-memory session to storage
// @Summary Persist all sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /sessions/save-all [post]
func (h *SessionHandler) SaveAllSessions(c *gin.Context) {
	h.LogRequest(c, "Persisting all sessions")

	saved, err := h.sessionService.SaveAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Some sessions could not be persisted",
			Details: gin.H{"saved": saved, "error": err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sessions persisted successfully",
		Data:    gin.H{"saved": saved},
	})
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.SessionFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if finishedStr := c.Query("finished"); finishedStr != "" {
		finished := finishedStr == "true"
		filters.Finished = &finished
	}

	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		filters.StudentID = &studentID
	}

	return filters
}
