package Controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Atelier/Models"
)

// DepartmentController handles department management endpoints
type DepartmentController struct {
	DB *gorm.DB
}

// NewDepartmentController creates a new DepartmentController
func NewDepartmentController(db *gorm.DB) *DepartmentController {
	return &DepartmentController{DB: db}
}

// GetDepartments retrieves all departments
func (c *DepartmentController) GetDepartments(ctx *fiber.Ctx) error {
	var departments []Models.Department
	result := c.DB.Find(&departments)
	if result.Error != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve departments"})
	}
	return ctx.JSON(departments)
}

// GetDepartment retrieves one department with its members
func (c *DepartmentController) GetDepartment(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid department ID"})
	}

	var department Models.Department
	result := c.DB.Preload("Members").First(&department, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Department not found"})
	}
	return ctx.JSON(department)
}

type DepartmentInput struct {
	Name     string `json:"name" validate:"required"`
	ParentID *uint  `json:"parent_id"`
}

// CreateDepartment creates a new department
func (c *DepartmentController) CreateDepartment(ctx *fiber.Ctx) error {
	var input DepartmentInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if input.ParentID != nil {
		var parent Models.Department
		if err := c.DB.First(&parent, *input.ParentID).Error; err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Parent department not found"})
		}
	}

	department := Models.Department{Name: input.Name, ParentID: input.ParentID}
	result := c.DB.Create(&department)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "UNIQUE constraint") ||
			strings.Contains(result.Error.Error(), "Duplicate entry") {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A department with this name already exists",
			})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create department"})
	}

	return ctx.Status(fiber.StatusCreated).JSON(department)
}

// UpdateDepartment renames or re-parents a department
func (c *DepartmentController) UpdateDepartment(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid department ID"})
	}

	var department Models.Department
	result := c.DB.First(&department, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Department not found"})
	}

	var input DepartmentInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if input.ParentID != nil && *input.ParentID == department.ID {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A department cannot be its own parent"})
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.ParentID != nil {
		updates["parent_id"] = *input.ParentID
	}
	if len(updates) > 0 {
		if err := c.DB.Model(&department).Updates(updates).Error; err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update department"})
		}
	}

	return ctx.JSON(department)
}

// DeleteDepartment soft deletes a department and detaches its members
func (c *DepartmentController) DeleteDepartment(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid department ID"})
	}

	var department Models.Department
	result := c.DB.First(&department, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Department not found"})
	}

	c.DB.Model(&Models.Member{}).Where("department_id = ?", department.ID).Update("department_id", nil)
	c.DB.Delete(&department)

	return ctx.JSON(fiber.Map{"message": "Department deleted successfully"})
}
