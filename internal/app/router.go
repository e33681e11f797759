package app

import (
	"examhub_backend/docs"
	"examhub_backend/internal/config"
	"examhub_backend/internal/middleware"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}

	// 3. 本地导出文件，仅教师可下载
	if cfg.Storage.Type == util.StorageLocal {
		exports := router.Group("/exports")
		exports.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Teacher))
		exports.Static("/", cfg.Storage.LocalPath)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/exams/:id/start", c.session.StartExam)
		student.GET("/exams/:id/session", c.session.GetSession)
		student.POST("/submissions/:id/submit", c.session.SubmitAnswers)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/exams", c.exam.CreateExam)
		teacher.GET("/exams", c.exam.ListExams)
		teacher.GET("/exams/:id", c.exam.GetExam)
		teacher.PUT("/exams/:id", c.exam.UpdateExam)
		teacher.PATCH("/exams/:id/status", c.exam.UpdateStatus)
		teacher.GET("/exams/:id/stats", c.exam.GetStats)
		teacher.GET("/exams/:id/submissions", c.submission.ListSubmissions)
		teacher.POST("/exams/:id/export", c.exam.ExportResults)
		teacher.POST("/submissions/:id/grade", c.submission.GradeSubmission)
	}
}
