package Controllers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"Atelier/Models"
	"Atelier/middleware"
)

var validate = validator.New()

// MemberController handles authentication and member management
type MemberController struct {
	DB *gorm.DB
}

// NewMemberController creates a new MemberController
func NewMemberController(db *gorm.DB) *MemberController {
	return &MemberController{DB: db}
}

type RegisterInput struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Password     string `json:"password" validate:"required,min=6"`
	Permission   int    `json:"permission"`
	DepartmentID *uint  `json:"department_id"`
}

// Register creates a new member account
func (c *MemberController) Register(ctx *fiber.Ctx) error {
	var input RegisterInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	member := Models.Member{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Permission:   input.Permission,
		DepartmentID: input.DepartmentID,
	}
	if err := member.SetPassword(input.Password); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	result := c.DB.Create(&member)
	if result.Error != nil {
		if strings.Contains(result.Error.Error(), "UNIQUE constraint") ||
			strings.Contains(result.Error.Error(), "Duplicate entry") {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A member with this email already exists",
			})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create member"})
	}

	return ctx.Status(fiber.StatusCreated).JSON(member)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a member and sets the JWT cookie
func (c *MemberController) Login(ctx *fiber.Ctx) error {
	var input LoginInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var member Models.Member
	result := c.DB.Where("email = ?", input.Email).First(&member)
	if result.Error != nil || !member.CheckPassword(input.Password) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect email or password"})
	}

	claims := jwt.RegisteredClaims{
		Issuer:    strconv.Itoa(int(member.ID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.SecretKey())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign token"})
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})

	return ctx.JSON(fiber.Map{
		"message": "Logged in successfully",
		"member":  member,
	})
}

// Logout clears the JWT cookie
func (c *MemberController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.JSON(fiber.Map{"message": "Logged out successfully"})
}

// CurrentMember returns the member attached by the auth middleware
func (c *MemberController) CurrentMember(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}
	return ctx.JSON(member)
}

// GetMembers retrieves all members, optionally filtered by department
func (c *MemberController) GetMembers(ctx *fiber.Ctx) error {
	query := c.DB.Model(&Models.Member{})
	if dept := ctx.Query("department_id"); dept != "" {
		query = query.Where("department_id = ?", dept)
	}

	var members []Models.Member
	result := query.Find(&members)
	if result.Error != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve members"})
	}
	return ctx.JSON(members)
}

// GetMember retrieves a single member by ID
func (c *MemberController) GetMember(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member ID"})
	}

	var member Models.Member
	result := c.DB.First(&member, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
	}
	return ctx.JSON(member)
}

// UpdateMember updates profile fields of an existing member
func (c *MemberController) UpdateMember(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member ID"})
	}

	var member Models.Member
	result := c.DB.First(&member, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
	}

	var input struct {
		Name         string   `json:"name"`
		Phone        string   `json:"phone"`
		Permission   *int     `json:"permission"`
		DepartmentID *uint    `json:"department_id"`
		Domains      []string `json:"domains"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.Permission != nil {
		updates["permission"] = *input.Permission
	}
	if input.DepartmentID != nil {
		updates["department_id"] = *input.DepartmentID
	}
	if input.Domains != nil {
		raw, err := json.Marshal(input.Domains)
		if err == nil {
			updates["domains"] = datatypes.JSON(raw)
		}
	}

	if len(updates) > 0 {
		if err := c.DB.Model(&member).Updates(updates).Error; err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update member"})
		}
	}

	return ctx.JSON(member)
}

// ChangePassword sets a new password for the logged in member
func (c *MemberController) ChangePassword(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(input.NewPassword) < 6 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 6 characters"})
	}
	if !member.CheckPassword(input.OldPassword) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect old password"})
	}

	if err := member.SetPassword(input.NewPassword); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}
	c.DB.Model(&member).Update("password", member.Password)

	return ctx.JSON(fiber.Map{"message": "Password changed successfully"})
}

// DeleteMember soft deletes a member
func (c *MemberController) DeleteMember(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member ID"})
	}

	var member Models.Member
	result := c.DB.First(&member, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
	}

	c.DB.Delete(&member)
	return ctx.JSON(fiber.Map{"message": "Member deleted successfully"})
}

// RegisterFCMToken stores a device push token for the logged in member
func (c *MemberController) RegisterFCMToken(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	var input struct {
		Token string `json:"token"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if input.Token == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Token is required"})
	}

	var existing Models.FCMToken
	result := c.DB.Where("token = ?", input.Token).First(&existing)
	if result.Error == nil {
		if existing.MemberID != member.ID {
			c.DB.Model(&existing).Update("member_id", member.ID)
		}
		return ctx.JSON(fiber.Map{"message": "Token already registered"})
	}

	token := Models.FCMToken{MemberID: member.ID, Token: input.Token}
	if err := c.DB.Create(&token).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register token"})
	}
	return ctx.Status(fiber.StatusCreated).JSON(token)
}

// GetNotifications lists the logged in member's notifications
func (c *MemberController) GetNotifications(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	query := c.DB.Where("receiver_id = ?", member.ID).Order("created_at DESC")
	if ctx.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []Models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve notifications"})
	}
	return ctx.JSON(notifications)
}

// MarkNotificationRead flags a notification as read
func (c *MemberController) MarkNotificationRead(ctx *fiber.Ctx) error {
	member, ok := ctx.Locals("member").(Models.Member)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not logged in"})
	}

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	var notification Models.Notification
	result := c.DB.Where("id = ? AND receiver_id = ?", id, member.ID).First(&notification)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}

	c.DB.Model(&notification).Update("is_read", true)
	return ctx.JSON(notification)
}
