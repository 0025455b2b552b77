package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/services"
	"github.com/campusfleet/exam-service/internal/utils"
	"github.com/campusfleet/exam-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// GradeSession grades one finished session
// @Summary Grade session
// @Description Derives a result from a finished session; re-grading replaces the earlier result
// @Tags grading
// @Produce json
// @Param student_id path string true "Student ID"
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/sessions/{student_id}/{exam_id} [post]
func (h *GradingHandler) GradeSession(c *gin.Context) {
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

	h.LogRequest(c, "Grading session", "student_id", studentID, "exam_id", examID)

	result, err := h.gradingService.GradeSession(c.Request.Context(), &services.GradeSessionRequest{
		StudentID: studentID,
		ExamID:    examID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GradeAllSessions grades every finished session in memory
// @Summary Grade all sessions
// @Description Grades every finished session; unfinished ones are skipped and failures isolated
// @Tags grading
// @Produce json
// @Success 200 {object} services.BatchGradingSummary
// @Router /grading/sessions [post]
func (h *GradingHandler) GradeAllSessions(c *gin.Context) {
	h.LogRequest(c, "Grading all finished sessions")

	summary, err := h.gradingService.GradeAll(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetMyResult returns the authenticated student's result for an exam
// @Summary Get own result
// @Tags grading
// @Produce json
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /results/me/{exam_id} [get]
func (h *GradingHandler) GetMyResult(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	result, err := h.gradingService.GetResult(c.Request.Context(), h.getUserID(c), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyResults returns all of the authenticated student's results
// @Summary List own results
// @Tags grading
// @Produce json
// @Success 200 {array} services.ResultResponse
// @Router /results/me [get]
func (h *GradingHandler) GetMyResults(c *gin.Context) {
	results, err := h.gradingService.GetStudentResults(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetStudentResults returns any student's results, for staff
// @Summary List student results
// @Tags grading
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {array} services.ResultResponse
// @Router /results/student/{student_id} [get]
func (h *GradingHandler) GetStudentResults(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id",
		})
		return
	}

	results, err := h.gradingService.GetStudentResults(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetResult returns one student's result for one exam, for staff
// @Summary Get result
// @Tags grading
// @Produce json
// @Param student_id path string true "Student ID"
// @Param exam_id path uint true "Exam ID"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /results/{student_id}/{exam_id} [get]
func (h *GradingHandler) GetResult(c *gin.Context) {
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

	result, err := h.gradingService.GetResult(c.Request.Context(), studentID, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExamStatistics returns score statistics for one exam
// @Summary Exam statistics
// @Tags grading
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamStatisticsResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/statistics [get]
func (h *GradingHandler) GetExamStatistics(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	stats, err := h.gradingService.ExamStatistics(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
