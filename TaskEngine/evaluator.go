package TaskEngine

import (
	"fmt"
	"log"
	"time"

	"Atelier/LLM"
	"Atelier/Models"

	"gorm.io/gorm"
)

const reportPlaceholder = "No report submitted today."

// Evaluator computes the 0-100 daily progress value per (task, user,
// day). It enforces the monotonic non-decrease invariant regardless of
// what the model returns.
type Evaluator struct {
	DB      *gorm.DB
	Gateway *LLM.Gateway
}

func NewEvaluator(db *gorm.DB, gateway *LLM.Gateway) *Evaluator {
	return &Evaluator{DB: db, Gateway: gateway}
}

// LastProgress returns the most recent stored progress value for the
// pair, 0 when none exists.
func (e *Evaluator) LastProgress(taskID, userID uint) float64 {
	var last Models.TaskProgress
	err := e.DB.Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("progress_date DESC").First(&last).Error
	if err != nil {
		return 0
	}
	return last.ProgressValue
}

// EvaluateDailyProgress produces today's progress value. The report
// text comes from the caller, or failing that the member's most recent
// report within the last 3 days, or a placeholder. On repeated LLM
// failure the result degrades to the historical value.
func (e *Evaluator) EvaluateDailyProgress(userID, taskID uint, reportText string, today time.Time) (float64, error) {
	var task Models.PeriodTask
	if err := e.DB.First(&task, taskID).Error; err != nil {
		return 0, fmt.Errorf("period task %d: %w", taskID, ErrNotFound)
	}

	history := e.LastProgress(taskID, userID)

	if reportText == "" {
		reportText = e.recentReportText(userID, today)
	}

	prompt := LLM.ProgressPrompt(task.DetailTaskRequirements, history, reportText)
	value := e.Gateway.CompleteNumber(userID, LLM.MethodTask, prompt,
		LLM.CompletionOptions{Temperature: 0.3, MaxTokens: 10}, history)

	// Clamp to [0,100], then never below history.
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	if value < history {
		log.Printf("Progress %.1f for task %d user %d below history %.1f, keeping history",
			value, taskID, userID, history)
		value = history
	}
	return value, nil
}

func (e *Evaluator) recentReportText(userID uint, today time.Time) string {
	day := Models.Day(today)
	var report Models.DailyReport
	err := e.DB.Where("user_id = ? AND report_date >= ?", userID, day.AddDate(0, 0, -3)).
		Order("report_date DESC").First(&report).Error
	if err != nil {
		return reportPlaceholder
	}
	return report.ReportText
}

// UpdateTaskProgress evaluates and upserts the progress row for
// (task, user, today). Re-running on the same day can only raise the
// stored value, never lower it.
func (e *Evaluator) UpdateTaskProgress(userID, taskID uint, reportText string, today time.Time) (*Models.TaskProgress, string, error) {
	day := Models.Day(today)

	var member Models.Member
	if err := e.DB.First(&member, userID).Error; err != nil {
		return nil, "", fmt.Errorf("member %d: %w", userID, ErrNotFound)
	}

	var task Models.PeriodTask
	if err := e.DB.First(&task, taskID).Error; err != nil {
		return nil, "", fmt.Errorf("period task %d: %w", taskID, ErrNotFound)
	}
	if !task.ActiveOn(day) {
		return nil, "", fmt.Errorf("task %d window %s..%s does not contain %s: %w",
			taskID, task.StartTime.Format("2006-01-02"), task.EndTime.Format("2006-01-02"),
			day.Format("2006-01-02"), ErrOutOfWindow)
	}

	value, err := e.EvaluateDailyProgress(userID, taskID, reportText, day)
	if err != nil {
		return nil, "", err
	}

	var progress Models.TaskProgress
	err = e.DB.Where("task_id = ? AND user_id = ? AND progress_date = ?", taskID, userID, day).
		First(&progress).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		progress = Models.TaskProgress{
			TaskID:        taskID,
			UserID:        userID,
			ProgressDate:  day,
			ProgressValue: value,
		}
		if err := e.DB.Create(&progress).Error; err != nil {
			return nil, "", fmt.Errorf("failed to save progress record: %w", err)
		}
		return &progress, "created", nil
	case err != nil:
		return nil, "", fmt.Errorf("failed to load progress record: %w", err)
	}

	if value <= progress.ProgressValue {
		return &progress, "unchanged", nil
	}
	progress.ProgressValue = value
	if err := e.DB.Save(&progress).Error; err != nil {
		return nil, "", fmt.Errorf("failed to update progress record: %w", err)
	}
	return &progress, "updated", nil
}

// ProgressSummary is the structured result of one evaluation sweep.
type ProgressSummary struct {
	Members int `json:"members"`
	Tasks   int `json:"tasks"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// UpdateAll evaluates every member's active period tasks for today.
// Per-member failures are logged and skipped.
func (e *Evaluator) UpdateAll(today time.Time) (*ProgressSummary, error) {
	day := Models.Day(today)
	dayStart, dayEnd := Models.DayRange(day)

	var members []Models.Member
	if err := e.DB.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	summary := &ProgressSummary{Members: len(members)}
	for _, member := range members {
		var tasks []Models.PeriodTask
		err := e.DB.Where("assignee_id = ? AND start_time < ? AND end_time >= ?",
			member.ID, dayEnd, dayStart).Find(&tasks).Error
		if err != nil {
			log.Printf("Failed to load active tasks for member %d: %v", member.ID, err)
			summary.Failed++
			continue
		}

		for _, task := range tasks {
			summary.Tasks++
			if _, _, err := e.UpdateTaskProgress(member.ID, task.ID, "", day); err != nil {
				log.Printf("Failed to update progress for member %d task %d: %v", member.ID, task.ID, err)
				summary.Failed++
				continue
			}
			summary.Updated++
		}
	}

	log.Printf("Progress update done: %d members, %d tasks, %d updated, %d failed",
		summary.Members, summary.Tasks, summary.Updated, summary.Failed)
	return summary, nil
}
