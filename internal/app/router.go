package app

import (
	"course_platform_backend/docs"
	"course_platform_backend/internal/config"
	"course_platform_backend/internal/middleware"
	"course_platform_backend/internal/model"
	"course_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerCommonRoutes(authGroup, c)
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
	router.GET("/health", c.health.HealthCheck)
}

func (a *App) registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.PUT("/profile/password", c.user.ChangePassword)

	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/lessons/:id/tests", c.test.ListTestsByLesson)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/courses/:id/enroll", c.course.Enroll)
		student.GET("/enrollments", c.course.MyEnrollments)

		student.GET("/tests/:id", c.test.GetTestForStudent)
		student.POST("/tests/:id/attempts", c.attempt.StartAttempt)
		student.PUT("/attempts/:id/answers", c.attempt.RecordAnswer)
		student.POST("/attempts/:id/finalize", c.attempt.FinalizeAttempt)
		student.GET("/attempts/:id", c.attempt.GetAttempt)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)
		teacher.POST("/courses/:id/lessons", c.course.AddLesson)
		teacher.PUT("/lessons/:id", c.course.UpdateLesson)
		teacher.DELETE("/lessons/:id", c.course.DeleteLesson)
		teacher.POST("/lessons/:id/attachment", c.course.UploadLessonAttachment)

		teacher.POST("/lessons/:id/tests", c.test.CreateTest)
		teacher.GET("/tests/:id", c.test.GetTest)
		teacher.PUT("/tests/:id", c.test.UpdateTest)
		teacher.DELETE("/tests/:id", c.test.DeleteTest)

		teacher.GET("/tests/:id/pending-review", c.grade.ListPendingReview)
		teacher.GET("/tests/:id/submissions", c.grade.ListSubmissions)
		teacher.GET("/submissions/:id", c.grade.GetSubmission)
		teacher.POST("/submissions/:id/grade", c.grade.ApplyManualGrade)
		teacher.DELETE("/submissions/:id", c.grade.DeleteSubmission)
	}
}
