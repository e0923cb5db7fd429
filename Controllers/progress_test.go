package Controllers

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Atelier/LLM"
	"Atelier/Models"
	"Atelier/TaskEngine"
)

// testDB opens a fresh in-memory database per test.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&Models.Department{},
		&Models.Member{},
		&Models.FCMToken{},
		&Models.PeriodTask{},
		&Models.DailyTask{},
		&Models.DailyReport{},
		&Models.TaskProgress{},
		&Models.DepartmentProgress{},
		&Models.Notification{},
		&Models.LLMRecord{},
	)
	require.NoError(t, err)
	return db
}

// refreshApp mounts RefreshTaskProgress behind a stub auth layer that
// injects the given member, the way the JWT middleware does.
func refreshApp(t *testing.T, db *gorm.DB, member Models.Member) *fiber.App {
	t.Helper()
	evaluator := TaskEngine.NewEvaluator(db, LLM.NewGateway(LLM.NewChatClient(""), db))
	controller := NewProgressController(db, evaluator)

	app := fiber.New()
	app.Post("/period-tasks/:id/progress/refresh", func(ctx *fiber.Ctx) error {
		ctx.Locals("member", member)
		return controller.RefreshTaskProgress(ctx)
	})
	return app
}

func TestRefreshTaskProgressUnknownTaskReturns404(t *testing.T) {
	db := testDB(t)
	member := Models.Member{Name: "Ada", Email: "ada@studio.dev", Permission: 1}
	require.NoError(t, member.SetPassword("secret"))
	require.NoError(t, db.Create(&member).Error)

	app := refreshApp(t, db, member)
	req := httptest.NewRequest("POST", "/period-tasks/999/progress/refresh", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRefreshTaskProgressExpiredTaskReturns409(t *testing.T) {
	db := testDB(t)
	member := Models.Member{Name: "Ada", Email: "ada@studio.dev", Permission: 1}
	require.NoError(t, member.SetPassword("secret"))
	require.NoError(t, db.Create(&member).Error)

	task := Models.PeriodTask{
		AssignerID:             member.ID,
		AssigneeID:             member.ID,
		StartTime:              time.Now().AddDate(0, 0, -10),
		EndTime:                time.Now().AddDate(0, 0, -2),
		BasicTaskRequirements:  "Design the landing page",
		DetailTaskRequirements: "Produce wireframes and a style guide",
	}
	require.NoError(t, db.Create(&task).Error)

	app := refreshApp(t, db, member)
	req := httptest.NewRequest("POST", fmt.Sprintf("/period-tasks/%d/progress/refresh", task.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
