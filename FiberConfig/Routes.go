package FiberConfig

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"Atelier/Controllers"
	"Atelier/CronJobs"
	"Atelier/TaskEngine"
	"Atelier/middleware"
)

// Dependencies carries the shared components the HTTP layer needs.
// Everything is injected; the handlers hold no globals beyond the DB.
type Dependencies struct {
	DB        *gorm.DB
	Generator *TaskEngine.Generator
	Evaluator *TaskEngine.Evaluator
	Reviewer  *TaskEngine.Reviewer
	Scheduler *CronJobs.JobScheduler
	Jobs      *CronJobs.StudioJobs
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Initialize handlers
	memberController := Controllers.NewMemberController(deps.DB)
	departmentController := Controllers.NewDepartmentController(deps.DB)
	taskController := Controllers.NewTaskController(deps.DB, deps.Generator)
	reportController := Controllers.NewReportController(deps.DB, deps.Reviewer)
	progressController := Controllers.NewProgressController(deps.DB, deps.Evaluator)
	schedulerController := Controllers.NewSchedulerController(deps.Scheduler, deps.Jobs)
	llmController := Controllers.NewLLMController(deps.DB)

	// API group
	api := app.Group("/api")

	// Auth routes
	api.Post("/login", memberController.Login)
	api.Post("/logout", memberController.Logout)
	api.Get("/me", middleware.Verify(1), memberController.CurrentMember)
	api.Post("/me/password", middleware.Verify(1), memberController.ChangePassword)
	api.Post("/me/fcm-token", middleware.Verify(1), memberController.RegisterFCMToken)

	// Notification routes
	api.Get("/notifications", middleware.Verify(1), memberController.GetNotifications)
	api.Patch("/notifications/:id/read", middleware.Verify(1), memberController.MarkNotificationRead)

	// Member routes
	members := api.Group("/members", middleware.Verify(1))
	members.Get("/", memberController.GetMembers)
	members.Get("/below-average", middleware.Verify(3), progressController.GetBelowAverageMembers)
	members.Post("/", middleware.Verify(4), memberController.Register)
	members.Get("/:id", memberController.GetMember)
	members.Put("/:id", middleware.Verify(4), memberController.UpdateMember)
	members.Delete("/:id", middleware.Verify(4), memberController.DeleteMember)
	members.Get("/:id/progress", middleware.Verify(3), progressController.GetMemberProgress)

	// Department routes
	departments := api.Group("/departments", middleware.Verify(1))
	departments.Get("/", departmentController.GetDepartments)
	departments.Post("/", middleware.Verify(4), departmentController.CreateDepartment)
	departments.Get("/:id", departmentController.GetDepartment)
	departments.Put("/:id", middleware.Verify(4), departmentController.UpdateDepartment)
	departments.Delete("/:id", middleware.Verify(4), departmentController.DeleteDepartment)
	departments.Get("/:id/progress", progressController.GetDepartmentProgress)

	// Period task routes
	tasks := api.Group("/period-tasks", middleware.Verify(1))
	tasks.Get("/", taskController.GetPeriodTasks)
	tasks.Post("/", middleware.Verify(3), taskController.CreatePeriodTask)
	tasks.Get("/:id", taskController.GetPeriodTask)
	tasks.Put("/:id", middleware.Verify(3), taskController.UpdatePeriodTask)
	tasks.Delete("/:id", middleware.Verify(3), taskController.DeletePeriodTask)
	tasks.Post("/:id/complete", taskController.CompletePeriodTask)
	tasks.Get("/:id/progress", progressController.GetTaskProgress)
	tasks.Post("/:id/progress/refresh", progressController.RefreshTaskProgress)

	// Daily task routes
	daily := api.Group("/daily-tasks", middleware.Verify(1))
	daily.Get("/", middleware.Verify(3), taskController.GetDailyTasks)
	daily.Get("/mine", taskController.GetMyDailyTasks)
	daily.Post("/generate", taskController.GenerateMyDailyTask)
	daily.Get("/:id", taskController.GetDailyTask)

	// Report routes
	reports := api.Group("/reports", middleware.Verify(1))
	reports.Get("/", middleware.Verify(3), reportController.GetReports)
	reports.Get("/mine", reportController.GetMyReports)
	reports.Post("/", reportController.SubmitReport)
	reports.Get("/:id", reportController.GetReport)
	reports.Post("/:id/retry-review", middleware.Verify(3), reportController.RetryReview)

	// Progress routes
	api.Get("/progress/mine", middleware.Verify(1), progressController.GetMyProgress)
	api.Get("/progress/export", middleware.Verify(3), progressController.ExportScores)

	// Admin routes
	admin := api.Group("/admin", middleware.Verify(4))
	admin.Get("/jobs", schedulerController.ListJobs)
	admin.Post("/jobs/:name/run", schedulerController.RunJob)
	admin.Post("/run/generator", schedulerController.RunGenerator)
	admin.Post("/run/progress", schedulerController.RunProgressUpdate)
	admin.Post("/run/finalizer", schedulerController.RunFinalizer)
	admin.Post("/run/member-scores", schedulerController.RunMemberScores)
	admin.Post("/run/report-reminder", schedulerController.RunReportReminder)
	admin.Get("/llm-records", llmController.GetRecords)
}

// Serve builds the Fiber app, mounts the routes and blocks on Listen.
func Serve(deps Dependencies) error {
	fmt.Println("Server Up...")
	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024,
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, deps)
	app.Static("/uploads", "uploads/")

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return app.Listen(":" + port)
}
