package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Atelier/Models"
	"Atelier/TaskEngine"
)

// TaskController handles period task and daily task endpoints
type TaskController struct {
	DB        *gorm.DB
	Generator *TaskEngine.Generator
}

// NewTaskController creates a new TaskController
func NewTaskController(db *gorm.DB, generator *TaskEngine.Generator) *TaskController {
	return &TaskController{DB: db, Generator: generator}
}

type PeriodTaskInput struct {
	AssigneeID             uint   `json:"assignee_id" validate:"required"`
	StartTime              string `json:"start_time" validate:"required"`
	EndTime                string `json:"end_time" validate:"required"`
	BasicTaskRequirements  string `json:"basic_task_requirements" validate:"required"`
	DetailTaskRequirements string `json:"detail_task_requirements" validate:"required"`
}

// CreatePeriodTask assigns a new period task. An assignee can hold at
// most one period task whose end time has not passed yet.
func (c *TaskController) CreatePeriodTask(ctx *fiber.Ctx) error {
	assigner, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	var input PeriodTaskInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	start, err := time.Parse("2006-01-02", input.StartTime)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_time, expected YYYY-MM-DD"})
	}
	end, err := time.Parse("2006-01-02", input.EndTime)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_time, expected YYYY-MM-DD"})
	}
	if end.Before(start) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must not be before start_time"})
	}

	var assignee Models.Member
	if err := c.DB.First(&assignee, input.AssigneeID).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignee not found"})
	}

	var open int64
	c.DB.Model(&Models.PeriodTask{}).
		Where("assignee_id = ? AND end_time >= ?", input.AssigneeID, time.Now()).
		Count(&open)
	if open > 0 {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Assignee already has an open period task",
		})
	}

	task := Models.PeriodTask{
		AssignerID:             assigner.ID,
		AssigneeID:             input.AssigneeID,
		StartTime:              start,
		EndTime:                end.Add(24*time.Hour - time.Second),
		BasicTaskRequirements:  input.BasicTaskRequirements,
		DetailTaskRequirements: input.DetailTaskRequirements,
	}
	if err := c.DB.Create(&task).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create period task"})
	}

	return ctx.Status(fiber.StatusCreated).JSON(task)
}

// GetPeriodTasks lists period tasks, filtered by assignee, assigner or
// open/finalized state
func (c *TaskController) GetPeriodTasks(ctx *fiber.Ctx) error {
	query := c.DB.Model(&Models.PeriodTask{}).Order("created_at DESC")

	if assignee := ctx.Query("assignee_id"); assignee != "" {
		query = query.Where("assignee_id = ?", assignee)
	}
	if assigner := ctx.Query("assigner_id"); assigner != "" {
		query = query.Where("assigner_id = ?", assigner)
	}
	switch ctx.Query("state") {
	case "open":
		query = query.Where("end_time >= ?", time.Now())
	case "finalized":
		query = query.Where("finalized_at IS NOT NULL")
	case "pending":
		query = query.Where("end_time < ? AND finalized_at IS NULL", time.Now())
	}

	var tasks []Models.PeriodTask
	if err := query.Find(&tasks).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve period tasks"})
	}
	return ctx.JSON(tasks)
}

// GetPeriodTask retrieves one period task with assigner and assignee
func (c *TaskController) GetPeriodTask(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.PeriodTask
	result := c.DB.Preload("Assigner").Preload("Assignee").First(&task, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period task not found"})
	}
	return ctx.JSON(task)
}

// UpdatePeriodTask edits requirements of a task that has not been
// finalized yet
func (c *TaskController) UpdatePeriodTask(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.PeriodTask
	result := c.DB.First(&task, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period task not found"})
	}
	if task.Finalized() {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Cannot edit a finalized period task"})
	}

	var input struct {
		BasicTaskRequirements  string `json:"basic_task_requirements"`
		DetailTaskRequirements string `json:"detail_task_requirements"`
		EndTime                string `json:"end_time"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updates := map[string]interface{}{}
	if input.BasicTaskRequirements != "" {
		updates["basic_task_requirements"] = input.BasicTaskRequirements
	}
	if input.DetailTaskRequirements != "" {
		updates["detail_task_requirements"] = input.DetailTaskRequirements
	}
	if input.EndTime != "" {
		end, err := time.Parse("2006-01-02", input.EndTime)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_time, expected YYYY-MM-DD"})
		}
		updates["end_time"] = end.Add(24*time.Hour - time.Second)
	}
	if len(updates) > 0 {
		if err := c.DB.Model(&task).Updates(updates).Error; err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update period task"})
		}
	}

	return ctx.JSON(task)
}

// CompletePeriodTask records the assignee's completion note
func (c *TaskController) CompletePeriodTask(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.PeriodTask
	result := c.DB.First(&task, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period task not found"})
	}
	if task.AssigneeID != member.ID {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the assignee can complete this task"})
	}

	var input struct {
		CompletionNote string `json:"completion_note"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if input.CompletionNote == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "completion_note is required"})
	}

	c.DB.Model(&task).Update("completion_note", input.CompletionNote)
	return ctx.JSON(task)
}

// DeletePeriodTask soft deletes a period task and its daily tasks
func (c *TaskController) DeletePeriodTask(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.PeriodTask
	result := c.DB.First(&task, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Period task not found"})
	}

	c.DB.Where("period_task_id = ?", task.ID).Delete(&Models.DailyTask{})
	c.DB.Delete(&task)

	return ctx.JSON(fiber.Map{"message": "Period task deleted successfully"})
}

// GetDailyTasks lists daily tasks for a date, defaulting to today
func (c *TaskController) GetDailyTasks(ctx *fiber.Ctx) error {
	day := time.Now()
	if q := ctx.Query("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		day = parsed
	}

	query := c.DB.Where("task_date = ?", Models.Day(day))
	if assignee := ctx.Query("assignee_id"); assignee != "" {
		query = query.Where("assignee_id = ?", assignee)
	}

	var tasks []Models.DailyTask
	if err := query.Find(&tasks).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve daily tasks"})
	}
	return ctx.JSON(tasks)
}

// GetMyDailyTasks lists today's daily tasks for the logged in member
func (c *TaskController) GetMyDailyTasks(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	var tasks []Models.DailyTask
	err := c.DB.Where("assignee_id = ? AND task_date = ?", member.ID, Models.Day(time.Now())).
		Find(&tasks).Error
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve daily tasks"})
	}
	return ctx.JSON(tasks)
}

// GetDailyTask retrieves one daily task with its period task
func (c *TaskController) GetDailyTask(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.DailyTask
	result := c.DB.Preload("PeriodTask").First(&task, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Daily task not found"})
	}
	return ctx.JSON(task)
}

// GenerateMyDailyTask creates today's daily task for the logged in
// member on demand, for when the overnight job has not run yet
func (c *TaskController) GenerateMyDailyTask(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	now := time.Now()
	dayStart, dayEnd := Models.DayRange(now)

	var period Models.PeriodTask
	err := c.DB.Where("assignee_id = ? AND start_time < ? AND end_time >= ?", member.ID, dayEnd, dayStart).
		First(&period).Error
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active period task"})
	}

	task, status, err := c.Generator.GenerateForPeriodTask(&period, now)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate daily task"})
	}

	return ctx.JSON(fiber.Map{
		"status": status,
		"task":   task,
	})
}
