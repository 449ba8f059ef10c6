package app

import (
	"corp_learning_backend/docs"
	"corp_learning_backend/internal/middleware"
	"corp_learning_backend/internal/model"
	"corp_learning_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 学员路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config.JWT.Secret))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理端
	a.registerAdminRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	courses := group.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
		courses.POST("/:id/enroll", c.course.Enroll)
		courses.POST("/:id/modules/:moduleId/lessons/:lessonId/complete", c.course.CompleteLesson)
	}

	assessments := group.Group("/assessments")
	{
		assessments.GET("", c.assessment.ListAssessments)
		assessments.GET("/:id", c.assessment.GetAssessment)
		assessments.POST("/:id/attempts", c.assessment.StartAttempt)
	}

	attempts := group.Group("/attempts")
	{
		attempts.GET("", c.assessment.History)
		attempts.GET("/current", c.assessment.CurrentAttempt)
		attempts.DELETE("/current", c.assessment.ClearAttempt)
		attempts.PUT("/current/answers/:questionId", c.assessment.SubmitAnswer)
		attempts.POST("/current/submit", c.assessment.SubmitAttempt)
		attempts.GET("/current/ws", c.assessment.AttemptSocket)
		attempts.GET("/:attemptId/result", c.assessment.GetResult)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.Config.JWT.Secret))

	// 报表对 HR 与负责人开放
	reports := admin.Group("/reports")
	reports.Use(middleware.RoleMiddleware(model.HR, model.Lead))
	{
		reports.GET("/courses", c.report.CourseReports)
		reports.GET("/assessments", c.report.AssessmentReports)
		reports.GET("/snapshot", c.report.Snapshot)
	}

	manage := admin.Group("")
	manage.Use(middleware.RoleMiddleware(model.Admin))
	{
		manage.POST("/courses", c.course.CreateCourse)
		manage.GET("/courses/:id", c.course.GetCourseTree)
		manage.PUT("/courses/:id", c.course.UpdateCourse)
		manage.DELETE("/courses/:id", c.course.DeleteCourse)
		manage.POST("/courses/:id/modules", c.course.AddModule)
		manage.PUT("/courses/:id/modules/:moduleId", c.course.UpdateModule)
		manage.DELETE("/courses/:id/modules/:moduleId", c.course.DeleteModule)
		manage.POST("/courses/:id/modules/:moduleId/lessons", c.course.AddLesson)
		manage.PUT("/courses/:id/modules/:moduleId/lessons/order", c.course.ReorderLessons)
		manage.PUT("/courses/:id/modules/:moduleId/lessons/:lessonId", c.course.UpdateLesson)
		manage.DELETE("/courses/:id/modules/:moduleId/lessons/:lessonId", c.course.DeleteLesson)
		manage.POST("/courses/:id/modules/:moduleId/lessons/:lessonId/upload", c.course.UploadLessonContent)

		manage.POST("/assessments", c.assessment.CreateAssessment)
		manage.PUT("/assessments/:id", c.assessment.UpdateAssessment)
		manage.DELETE("/assessments/:id", c.assessment.DeleteAssessment)
		manage.GET("/assessments/:id/questions", c.assessment.ListQuestions)
		manage.POST("/assessments/:id/questions", c.assessment.CreateQuestion)
		manage.PUT("/questions/:questionId", c.assessment.UpdateQuestion)
		manage.DELETE("/questions/:questionId", c.assessment.DeleteQuestion)

		manage.POST("/questions/generate/text", c.review.GenerateFromText)
		manage.POST("/questions/generate/file", c.review.GenerateFromFile)
		manage.GET("/questions/review", c.review.ListPending)
		manage.PUT("/questions/review/:id", c.review.Edit)
		manage.POST("/questions/review/:id/approve", c.review.Approve)
		manage.POST("/questions/review/:id/reject", c.review.Reject)

		manage.GET("/users", c.user.ListUsers)
		manage.POST("/users", c.user.CreateUser)
		manage.PUT("/users/:id", c.user.UpdateUser)
		manage.DELETE("/users/:id", c.user.DeleteUser)
	}
}
