package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/brightpath-english/academy-api/api/swagger"
	"github.com/brightpath-english/academy-api/internal/middleware"
	"github.com/brightpath-english/academy-api/internal/models"
	"github.com/brightpath-english/academy-api/internal/repository"
	"github.com/brightpath-english/academy-api/internal/service"
	"github.com/brightpath-english/academy-api/pkg/config"
	"github.com/brightpath-english/academy-api/pkg/logger"
	"github.com/brightpath-english/academy-api/pkg/middleware/cors"
	"github.com/brightpath-english/academy-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Students  *StudentHandler
	Teachers  *TeacherHandler
	Schedules *ScheduleHandler
	Classes   *ClassHandler
	Alerts    *AlertHandler
	Materials *MaterialHandler
	Calendar  *CalendarHandler
	Dashboard *DashboardHandler
	Cron      *CronHandler
	Health    *HealthHandler
}

// RouterDeps carries the cross-cutting pieces the router needs besides
// the handlers themselves.
type RouterDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	AuthService *service.AuthService
	Metrics     *service.MetricsService
	UserRepo    *repository.UserRepository
}

// NewRouter builds the gin engine with the full middleware chain and
// every route mounted under the configured API prefix.
func NewRouter(h Handlers, deps RouterDeps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(cors.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if deps.Config.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)
	}

	// Signed token is the authorization; no JWT on this route.
	api.GET("/materials/download", h.Materials.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.AuthService))
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.POST("/auth/change-password", h.Auth.ChangePassword)
		authed.GET("/auth/me", h.Auth.Me)

		authed.GET("/dashboard", h.Dashboard.Get)

		users := authed.Group("/users", middleware.RequireRoles(models.RoleAdmin))
		{
			users.GET("", h.Users.List)
			users.GET("/:id", h.Users.Get)
			users.POST("", h.Users.Create)
			users.PUT("/:id", h.Users.Update)
			users.DELETE("/:id", h.Users.Delete)
		}

		students := authed.Group("/students")
		{
			staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSeller)

			students.GET("", staff, h.Students.List)
			students.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSeller, models.RoleTeacher), h.Students.Get)
			students.POST("", staff,
				middleware.Audit(deps.UserRepo, "student.create", "students"), h.Students.Create)
			students.PUT("/:id", staff,
				middleware.Audit(deps.UserRepo, "student.update", "students"), h.Students.Update)
			students.POST("/:id/block", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "student.block", "students"), h.Students.SetBlocked)
			students.POST("/:id/hours", staff,
				middleware.Audit(deps.UserRepo, "student.add_hours", "students"), h.Students.AddHours)
			students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "student.delete", "students"), h.Students.Delete)

			students.GET("/:id/slots", h.Schedules.List)
			students.PUT("/:id/slots", staff,
				middleware.Audit(deps.UserRepo, "schedule.replace", "schedules"), h.Schedules.Replace)

			students.GET("/:id/schedule.ics", h.Calendar.ExportICS)
			students.GET("/:id/schedule.csv", h.Calendar.ExportCSV)
			students.GET("/:id/schedule.pdf", h.Calendar.ExportPDF)

			students.GET("/:id/materials", h.Materials.List)
			students.POST("/:id/materials", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher),
				middleware.Audit(deps.UserRepo, "material.upload", "materials"), h.Materials.Upload)
		}

		teachers := authed.Group("/teachers")
		{
			teachers.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleSeller), h.Teachers.List)
			teachers.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSeller), h.Teachers.Get)
			teachers.POST("", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "teacher.create", "teachers"), h.Teachers.Create)
			teachers.PUT("/:id", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "teacher.update", "teachers"), h.Teachers.Update)
			teachers.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "teacher.deactivate", "teachers"), h.Teachers.Deactivate)
		}

		classes := authed.Group("/classes")
		{
			classes.GET("", h.Classes.List)
			classes.GET("/:id", h.Classes.Get)
			classes.POST("", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "class.create", "classes"), h.Classes.Create)
			classes.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "class.delete", "classes"), h.Classes.Delete)
			classes.POST("/:id/join", middleware.RequireRoles(models.RoleStudent), h.Classes.Join)
			classes.POST("/:id/mark", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "class.mark", "classes"), h.Classes.Mark)
			classes.POST("/:id/cancel", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
				middleware.Audit(deps.UserRepo, "class.cancel", "classes"), h.Classes.Cancel)
		}

		alerts := authed.Group("/alerts", middleware.RequireRoles(models.RoleAdmin, models.RoleSeller))
		{
			alerts.GET("", h.Alerts.List)
			alerts.POST("/:id/read", h.Alerts.MarkRead)
		}

		materials := authed.Group("/materials")
		{
			materials.POST("/:id/download-url", h.Materials.SignDownload)
			materials.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher),
				middleware.Audit(deps.UserRepo, "material.delete", "materials"), h.Materials.Delete)
		}
	}

	cron := api.Group("/cron", middleware.CronSecret(deps.Config.Cron.Secret))
	{
		cron.POST("/generate-classes", h.Cron.GenerateClasses)
		cron.POST("/send-reminders", h.Cron.SendReminders)
		cron.POST("/sweep-alerts", h.Cron.SweepAlerts)
	}

	return r
}
