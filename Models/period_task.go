package Models

import (
	"time"

	"gorm.io/gorm"
)

// PeriodTask is a multi-day assignment from an assigner to an assignee.
// At most one period task per assignee may be open (end time in the
// future) at a time; CreatePeriodTask enforces this.
type PeriodTask struct {
	gorm.Model
	AssignerID uint      `json:"assigner_id" gorm:"index;not null"`
	AssigneeID uint      `json:"assignee_id" gorm:"index;not null"`
	StartTime  time.Time `json:"start_time" gorm:"not null"`
	EndTime    time.Time `json:"end_time" gorm:"not null"`

	BasicTaskRequirements  string `json:"basic_task_requirements" gorm:"type:text;not null"`
	DetailTaskRequirements string `json:"detail_task_requirements" gorm:"type:text;not null"`

	// Free-text completion note written by the assignee.
	CompletionNote *string `json:"completion_note" gorm:"type:text"`

	// Written exactly once by the score finalizer after EndTime passes.
	// FinalizedAt doubles as the idempotency marker: a task with a
	// non-nil FinalizedAt is never re-scored.
	FinalScore  *float64   `json:"final_score"`
	FinalizedAt *time.Time `json:"finalized_at"`

	Assigner *Member `json:"assigner,omitempty" gorm:"foreignKey:AssignerID"`
	Assignee *Member `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
}

func (t *PeriodTask) Finalized() bool {
	return t.FinalizedAt != nil
}

// ActiveOn reports whether day falls inside [StartTime, EndTime].
func (t *PeriodTask) ActiveOn(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(t.StartTime)) && !d.After(Day(t.EndTime))
}

// DailyTask is one calendar day's derived sub-task under a period task.
// The generator guarantees at most one row per (period_task_id, task_date).
type DailyTask struct {
	gorm.Model
	PeriodTaskID uint      `json:"period_task_id" gorm:"uniqueIndex:idx_daily_task_day;not null"`
	AssignerID   uint      `json:"assigner_id" gorm:"index;not null"`
	AssigneeID   uint      `json:"assignee_id" gorm:"index;not null"`
	TaskDate     time.Time `json:"task_date" gorm:"uniqueIndex:idx_daily_task_day;not null"`

	BasicTaskRequirements  string `json:"basic_task_requirements" gorm:"type:text;not null"`
	DetailTaskRequirements string `json:"detail_task_requirements" gorm:"type:text;not null"`

	// Filled with the report text when the day's report is submitted.
	CompletedTaskDescription *string `json:"completed_task_description" gorm:"type:text"`

	// True when the task carries forward unfinished work from the most
	// recent prior day instead of newly generated content.
	Continued bool `json:"continued"`

	PeriodTask *PeriodTask `json:"period_task,omitempty" gorm:"foreignKey:PeriodTaskID"`
}
