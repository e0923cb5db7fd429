package Models

import (
	"gorm.io/gorm"
)

const (
	NotificationDailyTask      = "daily_task_created"
	NotificationReportReminder = "report_reminder"
	NotificationProgressAlert  = "progress_alert"

	// Categories: "once" notifications stay until read, "recurring"
	// ones are swept nightly by the cleanup job.
	NotificationCategoryOnce      = "once"
	NotificationCategoryRecurring = "recurring"
)

type Notification struct {
	gorm.Model
	ReceiverID uint   `json:"receiver_id" gorm:"index;not null"`
	Type       string `json:"type" gorm:"size:50;not null"`
	Category   string `json:"category" gorm:"size:20;not null"`
	Title      string `json:"title" gorm:"size:255;not null"`
	Content    string `json:"content" gorm:"type:text"`
	ResourceID *uint  `json:"resource_id"`
	IsRead     bool   `json:"is_read"`
}

// LLMRecord is the audit row written for every completed LLM call,
// success or final failure. Writing it must never fail the caller.
type LLMRecord struct {
	gorm.Model
	UserID       uint   `json:"user_id" gorm:"index"`
	Method       string `json:"method" gorm:"size:20"` // "report" or "task"
	RequestText  string `json:"request_text" gorm:"type:text"`
	ReceivedText string `json:"received_text" gorm:"type:text"`
	ErrorText    string `json:"error_text" gorm:"type:text"`
}
