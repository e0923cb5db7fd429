package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Atelier/CronJobs"
	"Atelier/Notifications"
	"Atelier/TaskEngine"
)

// SchedulerController exposes admin endpoints for inspecting and
// triggering the scheduled jobs
type SchedulerController struct {
	Scheduler *CronJobs.JobScheduler
	Generator *TaskEngine.Generator
	Evaluator *TaskEngine.Evaluator
	Finalizer *TaskEngine.Finalizer
	Rollup    *TaskEngine.Rollup
	Notify    *Notifications.Service
	Location  *time.Location
}

// NewSchedulerController creates a new SchedulerController
func NewSchedulerController(scheduler *CronJobs.JobScheduler, jobs *CronJobs.StudioJobs) *SchedulerController {
	return &SchedulerController{
		Scheduler: scheduler,
		Generator: jobs.Generator,
		Evaluator: jobs.Evaluator,
		Finalizer: jobs.Finalizer,
		Rollup:    jobs.Rollup,
		Notify:    jobs.Notify,
		Location:  jobs.Location,
	}
}

func (c *SchedulerController) today() time.Time {
	return time.Now().In(c.Location)
}

// ListJobs returns the registered jobs with their last run state
func (c *SchedulerController) ListJobs(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Scheduler.Jobs())
}

// RunJob triggers a registered job by name
func (c *SchedulerController) RunJob(ctx *fiber.Ctx) error {
	name := ctx.Params("name")
	result := c.Scheduler.RunNow(name)

	if result.Skipped == "not registered" {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown job: " + name})
	}
	if result.Skipped != "" {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"job":     name,
			"skipped": result.Skipped,
		})
	}

	response := fiber.Map{
		"job":      name,
		"ran":      result.Ran,
		"duration": result.Duration.String(),
	}
	if result.Error != "" {
		response["error"] = result.Error
	}
	return ctx.JSON(response)
}

// RunGenerator generates today's daily tasks and returns the summary
func (c *SchedulerController) RunGenerator(ctx *fiber.Ctx) error {
	summary, err := c.Generator.GenerateAll(c.today())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}

// RunProgressUpdate evaluates progress for all members and rolls the
// departments up
func (c *SchedulerController) RunProgressUpdate(ctx *fiber.Ctx) error {
	progress, err := c.Evaluator.UpdateAll(c.today())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	rollup, err := c.Rollup.RollupAll(c.today())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"progress": progress,
		"rollup":   rollup,
	})
}

// RunFinalizer scores all period tasks whose window has closed
func (c *SchedulerController) RunFinalizer(ctx *fiber.Ctx) error {
	summary, err := c.Finalizer.FinalizeDue(c.today())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}

// RunMemberScores recomputes every member's period task score average
func (c *SchedulerController) RunMemberScores(ctx *fiber.Ctx) error {
	summary, err := c.Rollup.UpdateMemberScores()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}

// RunReportReminder notifies members who have not submitted today
func (c *SchedulerController) RunReportReminder(ctx *fiber.Ctx) error {
	summary, err := c.Notify.RemindMissingReports(c.today())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}
