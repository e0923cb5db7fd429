package Controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"Atelier/Models"
	"Atelier/TaskEngine"
)

// ProgressController exposes task progress history and department
// rollup results
type ProgressController struct {
	DB        *gorm.DB
	Evaluator *TaskEngine.Evaluator
}

// NewProgressController creates a new ProgressController
func NewProgressController(db *gorm.DB, evaluator *TaskEngine.Evaluator) *ProgressController {
	return &ProgressController{DB: db, Evaluator: evaluator}
}

// applyDateRange narrows a query by the optional from/to query params
// on the given date column.
func applyDateRange(ctx *fiber.Ctx, query *gorm.DB, column string) (*gorm.DB, error) {
	if from := ctx.Query("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid from date, expected YYYY-MM-DD")
		}
		query = query.Where(column+" >= ?", Models.Day(parsed))
	}
	if to := ctx.Query("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid to date, expected YYYY-MM-DD")
		}
		query = query.Where(column+" <= ?", Models.Day(parsed))
	}
	return query, nil
}

// GetTaskProgress returns the recorded progress history for one task
func (c *ProgressController) GetTaskProgress(ctx *fiber.Ctx) error {
	taskID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	query := c.DB.Where("task_id = ?", taskID).Order("progress_date ASC")
	if user := ctx.Query("user_id"); user != "" {
		query = query.Where("user_id = ?", user)
	}
	query, err = applyDateRange(ctx, query, "progress_date")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var rows []Models.TaskProgress
	if err := query.Find(&rows).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve progress"})
	}

	// fill=true turns the sparse history into one point per calendar
	// day, carrying the last known value across gaps.
	if ctx.Query("fill") == "true" && ctx.Query("from") != "" && ctx.Query("to") != "" {
		from, _ := time.Parse("2006-01-02", ctx.Query("from"))
		to, _ := time.Parse("2006-01-02", ctx.Query("to"))
		return ctx.JSON(fillForward(rows, Models.Day(from), Models.Day(to)))
	}
	return ctx.JSON(rows)
}

// ProgressPoint is one day of a filled progress series.
type ProgressPoint struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Recorded bool    `json:"recorded"`
}

// fillForward expands sparse, date-ordered progress rows into a daily
// series over [from, to]. Days without a row repeat the last value.
func fillForward(rows []Models.TaskProgress, from, to time.Time) []ProgressPoint {
	byDay := make(map[string]float64, len(rows))
	for _, row := range rows {
		byDay[Models.Day(row.ProgressDate).Format("2006-01-02")] = row.ProgressValue
	}

	var series []ProgressPoint
	var last float64
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		value, recorded := byDay[key]
		if recorded {
			last = value
		}
		series = append(series, ProgressPoint{Date: key, Value: last, Recorded: recorded})
	}
	return series
}

// GetMyProgress returns the latest progress per task for the logged in
// member
func (c *ProgressController) GetMyProgress(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}
	return c.memberProgress(ctx, member.ID)
}

// GetMemberProgress returns the latest progress per task for a member
func (c *ProgressController) GetMemberProgress(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member ID"})
	}
	return c.memberProgress(ctx, uint(id))
}

func (c *ProgressController) memberProgress(ctx *fiber.Ctx, memberID uint) error {
	var rows []Models.TaskProgress
	err := c.DB.Where("user_id = ?", memberID).Order("progress_date ASC").Find(&rows).Error
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve progress"})
	}

	// Later rows win: rows are ordered by date, so the map keeps the
	// most recent value per task.
	latest := map[uint]Models.TaskProgress{}
	for _, row := range rows {
		latest[row.TaskID] = row
	}

	out := make([]Models.TaskProgress, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	return ctx.JSON(out)
}

// RefreshTaskProgress re-evaluates today's progress for a task of the
// logged in member without waiting for the morning sweep
func (c *ProgressController) RefreshTaskProgress(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	taskID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	row, action, err := c.Evaluator.UpdateTaskProgress(member.ID, uint(taskID), "", time.Now())
	if err != nil {
		switch {
		case errors.Is(err, TaskEngine.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
		case errors.Is(err, TaskEngine.ErrOutOfWindow):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task is not active today"})
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update progress"})
		}
	}

	return ctx.JSON(fiber.Map{
		"action":   action,
		"progress": row,
	})
}

// GetDepartmentProgress returns the daily rollup rows for a department
func (c *ProgressController) GetDepartmentProgress(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid department ID"})
	}

	var department Models.Department
	if err := c.DB.First(&department, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Department not found"})
	}

	query := c.DB.Where("department_id = ?", department.ID).Order("progress_date ASC")
	query, err = applyDateRange(ctx, query, "progress_date")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var rows []Models.DepartmentProgress
	if err := query.Find(&rows).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve department progress"})
	}
	return ctx.JSON(rows)
}

// GetBelowAverageMembers lists members flagged by the latest rollup
func (c *ProgressController) GetBelowAverageMembers(ctx *fiber.Ctx) error {
	query := c.DB.Where("below_average_flag = ?", true)
	if dept := ctx.Query("department_id"); dept != "" {
		query = query.Where("department_id = ?", dept)
	}

	var members []Models.Member
	if err := query.Find(&members).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve members"})
	}
	return ctx.JSON(members)
}

// ExportScores writes an xlsx workbook of member period task scores
func (c *ProgressController) ExportScores(ctx *fiber.Ctx) error {
	var members []Models.Member
	if err := c.DB.Order("department_id ASC, name ASC").Find(&members).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve members"})
	}

	departments := map[uint]string{}
	var depts []Models.Department
	c.DB.Find(&depts)
	for _, d := range depts {
		departments[d.ID] = d.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Scores"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Name", "Email", "Department", "Period Task Score", "Below Average"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, m := range members {
		deptName := ""
		if m.DepartmentID != nil {
			deptName = departments[*m.DepartmentID]
		}
		values := []interface{}{m.ID, m.Name, m.Email, deptName, m.PeriodTaskScore, m.BelowAverageFlag}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	// Second sheet: the daily department rollup history.
	progressSheet := "Department Progress"
	f.NewSheet(progressSheet)
	progressHeaders := []string{"Department", "Date", "Average", "Max", "Min", "Members"}
	for i, h := range progressHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(progressSheet, cell, h)
	}

	var rollups []Models.DepartmentProgress
	c.DB.Order("department_id ASC, progress_date ASC").Find(&rollups)
	for row, p := range rollups {
		values := []interface{}{
			departments[p.DepartmentID],
			p.ProgressDate.Format("2006-01-02"),
			p.AverageProgress, p.MaxProgress, p.MinProgress, p.MemberCount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(progressSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build workbook"})
	}

	filename := fmt.Sprintf("member_scores_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return ctx.Send(buf.Bytes())
}
