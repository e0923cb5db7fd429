package Controllers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Atelier/Models"
	"Atelier/TaskEngine"
)

// ReportController handles daily report submission and retrieval
type ReportController struct {
	DB        *gorm.DB
	Reviewer  *TaskEngine.Reviewer
	UploadDir string
}

// NewReportController creates a new ReportController
func NewReportController(db *gorm.DB, reviewer *TaskEngine.Reviewer) *ReportController {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return &ReportController{DB: db, Reviewer: reviewer, UploadDir: dir}
}

// SubmitReport accepts a multipart daily report with optional pictures.
// The report row is returned immediately; the review scores are filled
// in the background.
func (c *ReportController) SubmitReport(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	reportText := ctx.FormValue("report_text")
	if strings.TrimSpace(reportText) == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "report_text is required"})
	}

	var pictureURLs []string
	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		for _, file := range form.File["pictures"] {
			url, err := c.savePicture(ctx, member.ID, file)
			if err != nil {
				return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save picture"})
			}
			pictureURLs = append(pictureURLs, url)
		}
	}

	report, err := c.Reviewer.SubmitReport(member.ID, reportText, pictureURLs, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, TaskEngine.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No daily tasks to report on today"})
		case errors.Is(err, TaskEngine.ErrConflict):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A report was already submitted today"})
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit report"})
		}
	}

	return ctx.Status(fiber.StatusCreated).JSON(report)
}

// GetReport retrieves one report
func (c *ReportController) GetReport(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	var report Models.DailyReport
	result := c.DB.First(&report, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
	}
	return ctx.JSON(report)
}

// GetMyReports lists the logged in member's reports, optionally within
// a date range
func (c *ReportController) GetMyReports(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	query := c.DB.Where("user_id = ?", member.ID).Order("report_date DESC")
	query, err := applyDateRange(ctx, query, "report_date")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var reports []Models.DailyReport
	if err := query.Find(&reports).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve reports"})
	}
	return ctx.JSON(reports)
}

// GetReports lists all reports for a date, defaulting to today
func (c *ReportController) GetReports(ctx *fiber.Ctx) error {
	day := time.Now()
	if q := ctx.Query("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		day = parsed
	}

	query := c.DB.Where("report_date = ?", Models.Day(day))
	if user := ctx.Query("user_id"); user != "" {
		query = query.Where("user_id = ?", user)
	}

	var reports []Models.DailyReport
	if err := query.Find(&reports).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve reports"})
	}
	return ctx.JSON(reports)
}

// RetryReview re-runs the review for a report stuck in generating state
func (c *ReportController) RetryReview(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	var report Models.DailyReport
	result := c.DB.First(&report, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
	}
	if !report.Generating {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Report review is already complete"})
	}

	if err := c.Reviewer.FillReview(report.ID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to regenerate review"})
	}

	c.DB.First(&report, report.ID)
	return ctx.JSON(report)
}

// savePicture stores an uploaded report picture and writes a thumbnail
// alongside it.
func (c *ReportController) savePicture(ctx *fiber.Ctx, memberID uint, file *multipart.FileHeader) (string, error) {
	dir := filepath.Join(c.UploadDir, "reports", strconv.Itoa(int(memberID)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename))
	dest := filepath.Join(dir, name)
	if err := ctx.SaveFile(file, dest); err != nil {
		return "", err
	}

	// Thumbnail failures are not fatal, the original is already saved.
	if img, err := imaging.Open(dest); err == nil {
		thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
		thumbPath := filepath.Join(dir, "thumb_"+name)
		if err := imaging.Save(thumb, thumbPath); err != nil {
			log.Println("Failed to save thumbnail:", err)
		}
	}

	return "/" + filepath.ToSlash(dest), nil
}
