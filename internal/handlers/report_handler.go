package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/services"
	"github.com/campusfleet/exam-service/internal/utils"
)

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// GetMyReportCard returns the authenticated student's report card
// @Summary Get own report card
// @Tags reports
// @Produce json
// @Success 200 {object} services.ReportCardResponse
// @Failure 404 {object} ErrorResponse
// @Router /reports/me [get]
func (h *ReportHandler) GetMyReportCard(c *gin.Context) {
	card, err := h.reportService.GetReportCard(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// GetReportCard returns any student's report card, for staff
// @Summary Get report card
// @Tags reports
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.ReportCardResponse
// @Failure 404 {object} ErrorResponse
// @Router /reports/{student_id} [get]
func (h *ReportHandler) GetReportCard(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id",
		})
		return
	}

	card, err := h.reportService.GetReportCard(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// GenerateReportCard rebuilds one student's report card
// @Summary Generate report card
// @Description Rebuilds the card from the student's current results, replacing any prior card
// @Tags reports
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.ReportCardResponse
// @Failure 404 {object} ErrorResponse
// @Router /reports/{student_id} [post]
func (h *ReportHandler) GenerateReportCard(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id",
		})
		return
	}

	h.LogRequest(c, "Generating report card", "student_id", studentID)

	card, err := h.reportService.GenerateReportCard(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// GenerateAllReportCards rebuilds cards for every student with results
// @Summary Generate all report cards
// @Tags reports
// @Produce json
// @Success 200 {object} services.BatchReportSummary
// @Router /reports [post]
func (h *ReportHandler) GenerateAllReportCards(c *gin.Context) {
	h.LogRequest(c, "Generating all report cards")

	summary, err := h.reportService.GenerateAll(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportExamResults downloads the exam's results as a spreadsheet
// @Summary Export exam results
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/export [get]
func (h *ReportHandler) ExportExamResults(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Exporting exam results", "exam_id", examID)

	data, err := h.reportService.ExportExamResults(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam_%d_results.xlsx", examID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
