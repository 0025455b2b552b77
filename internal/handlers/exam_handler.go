package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/services"
	"github.com/campusfleet/exam-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	catalogService services.ExamCatalogService
}

func NewExamHandler(catalogService services.ExamCatalogService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:    NewBaseHandler(logger),
		catalogService: catalogService,
	}
}

// examView strips the answer key from questions for student-facing responses.
type examView struct {
	ID        uint           `json:"id"`
	Subject   string         `json:"subject"`
	Duration  int            `json:"duration"`
	Questions []questionView `json:"questions,omitempty"`
}

type questionView struct {
	ID      uint     `json:"id"`
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Order   int      `json:"order"`
	Options []string `json:"options,omitempty"`
}

// ListExams lists the exams available in the catalog
// @Summary List exams
// @Tags exams
// @Produce json
// @Success 200 {array} examView
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.catalogService.ListExams(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	views := make([]examView, 0, len(exams))
	for _, exam := range exams {
		views = append(views, examView{
			ID:       exam.ID,
			Subject:  exam.Subject,
			Duration: exam.Duration,
		})
	}

	c.JSON(http.StatusOK, views)
}

// GetExam returns one exam with its questions, answer key excluded
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} examView
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	exam, err := h.catalogService.GetExam(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	view := examView{
		ID:       exam.ID,
		Subject:  exam.Subject,
		Duration: exam.Duration,
	}
	for i := range exam.Questions {
		q := &exam.Questions[i]
		view.Questions = append(view.Questions, questionView{
			ID:      q.ID,
			Type:    string(q.Type),
			Text:    q.Text,
			Order:   q.Order,
			Options: q.OptionList(),
		})
	}

	c.JSON(http.StatusOK, view)
}

// GetExamQuestions returns the full questions including the answer key,
// for staff
// @Summary Get exam questions with answer key
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {array} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions [get]
func (h *ExamHandler) GetExamQuestions(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	questions, err := h.catalogService.GetQuestions(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}
