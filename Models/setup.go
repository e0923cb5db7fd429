package Models

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "database.db"
	}

	connection, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = connection

	// 1. Base entities without foreign keys
	DB.AutoMigrate(
		&Department{},
		&Member{},
		&FCMToken{},
	)

	// 2. Tasks and reports referencing members
	DB.AutoMigrate(
		&PeriodTask{},
		&DailyTask{},
		&DailyReport{},
	)

	// 3. Derived records and audit rows
	DB.AutoMigrate(
		&TaskProgress{},
		&DepartmentProgress{},
		&Notification{},
		&LLMRecord{},
	)
}

// Day truncates t to midnight in its own location. All task_date,
// report_date and progress_date columns store Day-normalized values so
// the per-day unique indexes hold.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns [midnight, next midnight) for range queries on
// timestamp columns.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := Day(t)
	return start, start.AddDate(0, 0, 1)
}
