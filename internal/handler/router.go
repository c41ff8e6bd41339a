package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/middleware"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Students  *StudentHandler
	Works     *WorkHandler
	Assistant *AssistantHandler
	Teachers  *TeacherHandler
	Settings  *SettingsHandler
	Exports   *ExportHandler
}

// RegisterRoutes mounts the API route tree under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, teacherAuth *service.TeacherAuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/student/login", h.Auth.StudentLogin)
		auth.POST("/student/token", h.Auth.StudentTokenLogin)
		auth.POST("/student/pin", h.Auth.StudentSetPIN)
		auth.POST("/teacher/pin-login", h.Auth.TeacherPINLogin)
		auth.POST("/teacher/login", h.Auth.TeacherLogin)
		auth.POST("/teacher/federated", h.Auth.TeacherFederatedLogin)
	}

	// Self-registration is open; everything else under /teachers is not.
	api.POST("/teachers", h.Teachers.Register)

	// Personal mode and the published gallery need no account at all.
	personal := api.Group("/personal/works")
	{
		personal.POST("/:step", h.Works.SavePersonal)
		personal.GET("/:step/:id", h.Works.GetPersonal)
	}
	api.GET("/gallery/:step", h.Works.Gallery)

	student := api.Group("")
	student.Use(middleware.StudentAuth())
	{
		student.GET("/works/:step", h.Works.GetOwn)
		student.PUT("/works/:step", h.Works.Save)
		student.POST("/works/:step/submit", h.Works.Submit)

		student.POST("/assistant/sessions", h.Assistant.StartSession)
		student.GET("/assistant/sessions", h.Assistant.ListSessions)
		student.POST("/assistant/chat", h.Assistant.Chat)
		student.GET("/assistant/quota", h.Assistant.Quota)
	}

	teacher := api.Group("")
	teacher.Use(middleware.TeacherAuth(teacherAuth))
	{
		teacher.POST("/auth/teacher/logout", h.Auth.TeacherLogout)
		teacher.GET("/auth/teacher/me", h.Auth.TeacherMe)

		readers := teacher.Group("")
		readers.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleViewer))
		{
			readers.GET("/students", h.Students.List)
			readers.GET("/teacher/works/:step", h.Works.ListByStep)
			readers.GET("/teachers", h.Teachers.List)
			readers.GET("/settings", h.Settings.List)
			readers.GET("/exports/students.csv", h.Exports.RosterCSV)
			readers.GET("/exports/works/:step", h.Exports.WorksCSV)
			readers.GET("/exports/story/:step/:name/:number", h.Exports.StoryPDF)
		}

		writers := teacher.Group("")
		writers.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
		{
			writers.POST("/students", h.Students.Register)
			writers.POST("/students/import", h.Students.BulkRegister)
			writers.POST("/students/:name/:number/deactivate", h.Students.Deactivate)
			writers.POST("/students/:name/:number/reactivate", h.Students.Reactivate)
			writers.PUT("/students/:name/:number/pin", h.Students.ResetPIN)
			writers.DELETE("/students/:name/:number", h.Students.Delete)

			writers.POST("/teacher/works/:step/:name/:number/publish", h.Works.Publish)
			writers.DELETE("/teacher/works/:step/:name/:number", h.Works.Delete)

			writers.PUT("/settings", h.Settings.Update)
			writers.PUT("/settings/teacher-pin", h.Settings.SetTeacherPIN)
		}

		// Staff lifecycle actions; the service layer re-checks that the
		// actor is an admin.
		admins := teacher.Group("")
		admins.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admins.POST("/teachers/:email/approve", h.Teachers.Approve)
			admins.POST("/teachers/:email/reject", h.Teachers.Reject)
			admins.PUT("/teachers/:email/role", h.Teachers.UpdateRole)
			admins.POST("/teachers/:email/suspend", h.Teachers.Suspend)
			admins.DELETE("/teachers/:email", h.Teachers.Delete)
		}
	}
}
