package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/config"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/services"
	"github.com/campusfleet/exam-service/internal/utils"
	"github.com/campusfleet/exam-service/internal/validator"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	sessionHandler *SessionHandler
	gradingHandler *GradingHandler
	reportHandler  *ReportHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Catalog(), logger),
		sessionHandler: NewSessionHandler(serviceManager.Session(), validator, logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading(), validator, logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		authMiddleware: NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Exam catalog - all authenticated users; answer key for staff only
		exams := v1.Group("/exams")
		{
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.examHandler.GetExamQuestions)
			exams.GET("/:id/statistics", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.gradingHandler.GetExamStatistics)
			exams.GET("/:id/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.reportHandler.ExportExamResults)
		}

		// Session lifecycle - students act on their own sessions
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/start", hm.sessionHandler.StartSession)
			sessions.POST("/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/finish", hm.sessionHandler.FinishSession)

			sessions.GET("/me/:exam_id", hm.sessionHandler.GetMySession)
			sessions.GET("/me/:exam_id/time-remaining", hm.sessionHandler.GetTimeRemaining)
			sessions.GET("/me/:exam_id/review", hm.sessionHandler.GetSessionReview)

			// Staff access
			sessions.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.sessionHandler.ListSessions)
			sessions.GET("/student/:student_id/:exam_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.sessionHandler.GetSession)
			sessions.POST("/save-all", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.sessionHandler.SaveAllSessions)
		}

		// Grading - teachers and admins only
		grading := v1.Group("/grading")
		grading.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher))
		{
			grading.POST("/sessions", hm.gradingHandler.GradeAllSessions)
			grading.POST("/sessions/:student_id/:exam_id", hm.gradingHandler.GradeSession)
		}

		// Results - students see their own, staff see everything
		results := v1.Group("/results")
		{
			results.GET("/me", hm.gradingHandler.GetMyResults)
			results.GET("/me/:exam_id", hm.gradingHandler.GetMyResult)

			results.GET("/student/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.gradingHandler.GetStudentResults)
			results.GET("/student/:student_id/:exam_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.gradingHandler.GetResult)
		}

		// Report cards
		reports := v1.Group("/reports")
		{
			reports.GET("/me", hm.reportHandler.GetMyReportCard)

			reports.GET("/student/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.reportHandler.GetReportCard)
			reports.POST("/student/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.reportHandler.GenerateReportCard)
			reports.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.reportHandler.GenerateAllReportCards)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})
}
