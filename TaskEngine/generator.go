package TaskEngine

import (
	"fmt"
	"log"
	"strings"
	"time"

	"Atelier/LLM"
	"Atelier/Models"

	"gorm.io/gorm"
)

// Summary placeholder used when a generated reply has no separable
// one-line summary.
const defaultTaskSummary = "Today's task"

// Generator derives one daily task per active period task per day.
type Generator struct {
	DB      *gorm.DB
	Gateway *LLM.Gateway
}

func NewGenerator(db *gorm.DB, gateway *LLM.Gateway) *Generator {
	return &Generator{DB: db, Gateway: gateway}
}

// GenerationSummary is the structured result of one generation sweep.
type GenerationSummary struct {
	Members   int `json:"members"`
	Created   int `json:"created"`
	Continued int `json:"continued"`
	Existing  int `json:"existing"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}

// Generation statuses returned by GenerateForPeriodTask.
const (
	GenCreated   = "created"
	GenContinued = "continued"
	GenExists    = "exists"
	GenExpired   = "expired"
)

// GenerateAll walks every member with an active period task and makes
// sure today's daily task exists. One member's failure never aborts the
// sweep.
func (g *Generator) GenerateAll(today time.Time) (*GenerationSummary, error) {
	day := Models.Day(today)
	dayStart, dayEnd := Models.DayRange(day)

	var members []Models.Member
	if err := g.DB.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	summary := &GenerationSummary{Members: len(members)}
	for _, member := range members {
		var tasks []Models.PeriodTask
		err := g.DB.Where("assignee_id = ? AND start_time < ? AND end_time >= ?",
			member.ID, dayEnd, dayStart).Find(&tasks).Error
		if err != nil {
			log.Printf("Failed to load active period tasks for member %d: %v", member.ID, err)
			summary.Failed++
			continue
		}

		for i := range tasks {
			_, status, err := g.GenerateForPeriodTask(&tasks[i], day)
			if err != nil {
				log.Printf("Failed to generate daily task for period task %d (member %d): %v",
					tasks[i].ID, member.ID, err)
				summary.Failed++
				continue
			}
			switch status {
			case GenCreated:
				summary.Created++
			case GenContinued:
				summary.Created++
				summary.Continued++
			case GenExists:
				summary.Existing++
			case GenExpired:
				summary.Expired++
			}
		}
	}

	log.Printf("Daily task generation done: %d members, %d created (%d continued), %d existing, %d expired, %d failed",
		summary.Members, summary.Created, summary.Continued, summary.Existing, summary.Expired, summary.Failed)
	return summary, nil
}

// GenerateForPeriodTask ensures the daily task for (period task, today).
// Re-running it on the same day is a no-op. When the most recent prior
// day's task was left unfinished its content carries forward unchanged;
// otherwise the LLM derives new content from the previous outcome.
func (g *Generator) GenerateForPeriodTask(task *Models.PeriodTask, today time.Time) (*Models.DailyTask, string, error) {
	day := Models.Day(today)

	if Models.Day(task.EndTime).Before(day) {
		return nil, GenExpired, nil
	}

	var existing Models.DailyTask
	err := g.DB.Where("period_task_id = ? AND task_date = ?", task.ID, day).First(&existing).Error
	if err == nil {
		return &existing, GenExists, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, "", fmt.Errorf("failed to check existing daily task: %w", err)
	}

	prev, prevTask, err := g.previousDayStatus(task, day)
	if err != nil {
		return nil, "", err
	}

	daily := Models.DailyTask{
		PeriodTaskID: task.ID,
		AssignerID:   task.AssignerID,
		AssigneeID:   task.AssigneeID,
		TaskDate:     day,
	}

	status := GenCreated
	if prev.HasTask && !prev.Completed {
		// The member is still expected to finish the same work.
		daily.BasicTaskRequirements = prevTask.BasicTaskRequirements
		daily.DetailTaskRequirements = prevTask.DetailTaskRequirements
		daily.Continued = true
		status = GenContinued
	} else {
		basic, detail := g.generateContent(task, prev)
		daily.BasicTaskRequirements = basic
		daily.DetailTaskRequirements = detail
	}

	if err := g.DB.Create(&daily).Error; err != nil {
		return nil, "", fmt.Errorf("failed to save daily task: %w", err)
	}
	return &daily, status, nil
}

// previousDayStatus finds the most recent daily task before today,
// tolerating gaps, and whether its day had a report.
func (g *Generator) previousDayStatus(task *Models.PeriodTask, day time.Time) (LLM.PreviousDay, *Models.DailyTask, error) {
	var prevTask Models.DailyTask
	err := g.DB.Where("period_task_id = ? AND task_date < ?", task.ID, day).
		Order("task_date DESC").First(&prevTask).Error
	if err == gorm.ErrRecordNotFound {
		return LLM.PreviousDay{}, nil, nil
	}
	if err != nil {
		return LLM.PreviousDay{}, nil, fmt.Errorf("failed to load previous daily task: %w", err)
	}

	var report Models.DailyReport
	completed := true
	err = g.DB.Where("user_id = ? AND report_date = ?", task.AssigneeID, Models.Day(prevTask.TaskDate)).
		First(&report).Error
	if err == gorm.ErrRecordNotFound {
		completed = false
	} else if err != nil {
		return LLM.PreviousDay{}, nil, fmt.Errorf("failed to check previous report: %w", err)
	}

	return LLM.PreviousDay{
		HasTask:    true,
		Completed:  completed,
		TaskDetail: prevTask.DetailTaskRequirements,
		ReportText: report.ReportText,
	}, &prevTask, nil
}

// generateContent asks the model for today's summary and detail. When
// the reply has no blank-line separation the whole text becomes the
// detail; when the model is unreachable the period task's own
// requirements stand in.
func (g *Generator) generateContent(task *Models.PeriodTask, prev LLM.PreviousDay) (string, string) {
	prompt := LLM.DailyTaskPrompt(task.DetailTaskRequirements, prev)
	reply, err := g.Gateway.Complete(task.AssigneeID, LLM.MethodTask, prompt, LLM.CompletionOptions{Temperature: 0.7})
	if err != nil {
		log.Printf("LLM generation failed for period task %d, falling back to period requirements: %v", task.ID, err)
		return task.BasicTaskRequirements, task.DetailTaskRequirements
	}
	return SplitTaskReply(reply)
}

// SplitTaskReply separates a generated reply into summary and detail on
// the first blank line.
func SplitTaskReply(reply string) (string, string) {
	reply = strings.TrimSpace(reply)
	if idx := strings.Index(reply, "\n\n"); idx > 0 {
		basic := strings.TrimSpace(reply[:idx])
		detail := strings.TrimSpace(reply[idx+2:])
		if basic != "" && detail != "" {
			return basic, detail
		}
	}
	return defaultTaskSummary, reply
}
