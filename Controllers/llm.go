package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Atelier/Models"
)

// LLMController exposes the model call audit trail
type LLMController struct {
	DB *gorm.DB
}

// NewLLMController creates a new LLMController
func NewLLMController(db *gorm.DB) *LLMController {
	return &LLMController{DB: db}
}

// GetRecords lists recent model calls, newest first
func (c *LLMController) GetRecords(ctx *fiber.Ctx) error {
	limit, err := strconv.Atoi(ctx.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := c.DB.Order("created_at DESC").Limit(limit)
	if user := ctx.Query("user_id"); user != "" {
		query = query.Where("user_id = ?", user)
	}
	if method := ctx.Query("method"); method != "" {
		query = query.Where("method = ?", method)
	}
	if ctx.Query("failed") == "true" {
		query = query.Where("error_text <> ''")
	}

	var records []Models.LLMRecord
	if err := query.Find(&records).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve records"})
	}
	return ctx.JSON(records)
}
