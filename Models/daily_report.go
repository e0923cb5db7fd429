package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DailyReport is a member's end-of-day submission, graded by the LLM
// into sub-scores. At most one report per (user, calendar day).
type DailyReport struct {
	gorm.Model
	UserID     uint      `json:"user_id" gorm:"uniqueIndex:idx_report_user_day;not null"`
	ReportDate time.Time `json:"report_date" gorm:"uniqueIndex:idx_report_user_day;not null"`

	ReportText string `json:"report_text" gorm:"type:text;not null"`

	// URLs of uploaded report pictures, stored as a JSON array.
	Pictures datatypes.JSON `json:"pictures"`

	// Daily task IDs this report completes.
	TaskIDs datatypes.JSON `json:"task_ids"`

	// Raw LLM review structure for display.
	Review datatypes.JSON `json:"review"`

	BasicScore  float64 `json:"basic_score"`  // 0-100
	ExcessScore float64 `json:"excess_score"` // 0-10
	ExtraScore  float64 `json:"extra_score"`  // 0-5

	EfficiencyScore float64 `json:"efficiency_score"`
	InnovationScore float64 `json:"innovation_score"`

	// True while the review has not been computed yet. The submission
	// flow creates the row with Generating set and a background fill
	// clears it, writing either real scores or the failure fallback.
	Generating bool `json:"generating"`
}

// TaskProgress holds the 0-100 completion estimate for one
// (task, user, day). For a fixed task and user the stored value is
// non-decreasing over progress dates; the evaluator clamps new values
// against history before writing.
type TaskProgress struct {
	gorm.Model
	TaskID       uint      `json:"task_id" gorm:"uniqueIndex:idx_progress_task_user_day;not null"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex:idx_progress_task_user_day;not null"`
	ProgressDate time.Time `json:"progress_date" gorm:"uniqueIndex:idx_progress_task_user_day;not null"`

	ProgressValue float64 `json:"progress_value"`
}

// DepartmentProgress is the daily member-progress rollup for a
// department. TaskID nil means the department-wide aggregate; the
// departments themselves carry no tasks.
type DepartmentProgress struct {
	gorm.Model
	DepartmentID uint      `json:"department_id" gorm:"uniqueIndex:idx_dept_task_day;not null"`
	TaskID       *uint     `json:"task_id" gorm:"uniqueIndex:idx_dept_task_day"`
	ProgressDate time.Time `json:"progress_date" gorm:"uniqueIndex:idx_dept_task_day;not null"`

	AverageProgress float64 `json:"average_progress"`
	MaxProgress     float64 `json:"max_progress"`
	MinProgress     float64 `json:"min_progress"`
	MemberCount     int     `json:"member_count"`
}
