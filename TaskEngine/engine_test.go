package TaskEngine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Atelier/LLM"
	"Atelier/Models"
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

// fakeGateway wires a gateway to a stub chat-completions server that
// serves the given replies in order, repeating the last one. An empty
// reply produces a 500 response.
func fakeGateway(t *testing.T, db *gorm.DB, replies ...string) *LLM.Gateway {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := calls
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		calls++

		reply := replies[idx]
		if reply == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	client := LLM.NewChatClient("test")
	client.BaseURL = server.URL
	gw := LLM.NewGateway(client, db)
	gw.MaxRetries = 1
	gw.RetryDelay = time.Millisecond
	return gw
}

func makeMember(t *testing.T, db *gorm.DB, name string, deptID *uint) *Models.Member {
	t.Helper()
	member := &Models.Member{Name: name, Email: name + "@studio.test", DepartmentID: deptID}
	require.NoError(t, member.SetPassword("password"))
	require.NoError(t, db.Create(member).Error)
	return member
}

func makePeriodTask(t *testing.T, db *gorm.DB, assignerID, assigneeID uint, start, end time.Time) *Models.PeriodTask {
	t.Helper()
	task := &Models.PeriodTask{
		AssignerID:             assignerID,
		AssigneeID:             assigneeID,
		StartTime:              start,
		EndTime:                end,
		BasicTaskRequirements:  "Design the landing page",
		DetailTaskRequirements: "Produce wireframes and a style guide for the landing page",
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func makeReport(t *testing.T, db *gorm.DB, userID uint, day time.Time, basic, excess, extra float64) *Models.DailyReport {
	t.Helper()
	report := &Models.DailyReport{
		UserID:      userID,
		ReportDate:  Models.Day(day),
		ReportText:  "Finished the planned work",
		BasicScore:  basic,
		ExcessScore: excess,
		ExtraScore:  extra,
	}
	require.NoError(t, db.Create(report).Error)
	return report
}
