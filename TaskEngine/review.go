package TaskEngine

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"Atelier/LLM"
	"Atelier/Models"

	"gorm.io/gorm"
)

// Reviewer handles daily report submission and LLM grading. Submission
// is two-phase: the report row is created with Generating set, then the
// review fills in the scores in the background, or the failure fallback
// does.
type Reviewer struct {
	DB      *gorm.DB
	Gateway *LLM.Gateway

	// Async controls whether FillReview runs in a goroutine after
	// submission. Tests switch it off.
	Async bool
}

func NewReviewer(db *gorm.DB, gateway *LLM.Gateway) *Reviewer {
	return &Reviewer{DB: db, Gateway: gateway, Async: true}
}

// FallbackReview is the defined review structure used when the model
// cannot produce a valid one. The report is never left pending.
func FallbackReview() map[string]interface{} {
	return map[string]interface{}{
		"basic":  map[string]interface{}{"status": "review failed", "score": 60.0},
		"excess": map[string]interface{}{"status": "could not assess", "score": 0.0},
		"extra":  map[string]interface{}{"status": "could not assess", "score": 0.0},
		"total":  map[string]interface{}{"status": "automatic review failed", "score": 60.0},
	}
}

// SubmitReport creates today's report for the member, marks today's
// daily tasks completed with the report text, and kicks off the review.
// At most one report per member per day.
func (rv *Reviewer) SubmitReport(userID uint, reportText string, pictureURLs []string, now time.Time) (*Models.DailyReport, error) {
	day := Models.Day(now)

	var tasks []Models.DailyTask
	err := rv.DB.Where("assignee_id = ? AND task_date = ?", userID, day).Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load today's tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no daily tasks for today: %w", ErrNotFound)
	}

	var existing Models.DailyReport
	err = rv.DB.Where("user_id = ? AND report_date = ?", userID, day).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("report already submitted today: %w", ErrConflict)
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to check existing report: %w", err)
	}

	taskIDs := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	taskIDsJSON, _ := json.Marshal(taskIDs)
	picturesJSON, _ := json.Marshal(pictureURLs)

	report := Models.DailyReport{
		UserID:     userID,
		ReportDate: day,
		ReportText: reportText,
		Pictures:   picturesJSON,
		TaskIDs:    taskIDsJSON,
		Generating: true,
	}

	err = rv.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		for i := range tasks {
			tasks[i].CompletedTaskDescription = &reportText
			if err := tx.Save(&tasks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	if rv.Async {
		go func() {
			if err := rv.FillReview(report.ID); err != nil {
				log.Printf("Background review for report %d failed: %v", report.ID, err)
			}
		}()
	} else if err := rv.FillReview(report.ID); err != nil {
		log.Printf("Review for report %d failed: %v", report.ID, err)
	}

	return &report, nil
}

// FillReview grades the report and clears the Generating flag. A model
// failure or malformed reply writes the fallback scores instead; the
// flag is cleared either way.
func (rv *Reviewer) FillReview(reportID uint) error {
	var report Models.DailyReport
	if err := rv.DB.First(&report, reportID).Error; err != nil {
		return fmt.Errorf("report %d: %w", reportID, ErrNotFound)
	}

	var tasks []Models.DailyTask
	err := rv.DB.Where("assignee_id = ? AND task_date = ?", report.UserID, Models.Day(report.ReportDate)).
		Find(&tasks).Error
	if err != nil {
		return fmt.Errorf("failed to load tasks for review: %w", err)
	}

	var summaries, details, completed []string
	for _, t := range tasks {
		summaries = append(summaries, t.BasicTaskRequirements)
		details = append(details, t.DetailTaskRequirements)
		if t.CompletedTaskDescription != nil {
			completed = append(completed, *t.CompletedTaskDescription)
		}
	}

	prompt := LLM.ReportReviewPrompt(
		strings.Join(summaries, "\n"),
		strings.Join(details, "\n"),
		strings.Join(completed, "\n"),
		report.ReportText,
	)

	review := rv.Gateway.CompleteJSON(report.UserID, LLM.MethodReport, prompt,
		LLM.CompletionOptions{Temperature: 0.5}, FallbackReview())

	basic, okBasic := reviewScore(review, "basic")
	excess, okExcess := reviewScore(review, "excess")
	extra, okExtra := reviewScore(review, "extra")
	if !okBasic || !okExcess || !okExtra {
		log.Printf("Review for report %d has invalid scores, using fallback", reportID)
		review = FallbackReview()
		basic, _ = reviewScore(review, "basic")
		excess, _ = reviewScore(review, "excess")
		extra, _ = reviewScore(review, "extra")
	}

	reviewJSON, _ := json.Marshal(review)
	report.Review = reviewJSON
	report.BasicScore = basic
	report.ExcessScore = excess
	report.ExtraScore = extra
	report.EfficiencyScore = reviewNumber(review, "efficiency")
	report.InnovationScore = reviewNumber(review, "innovation")
	report.Generating = false

	if err := rv.DB.Save(&report).Error; err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// reviewScore digs the nested {"<key>": {"score": n}} value out of the
// review structure.
func reviewScore(review map[string]interface{}, key string) (float64, bool) {
	section, ok := review[key].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := section["score"].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func reviewNumber(review map[string]interface{}, key string) float64 {
	if v, ok := review[key].(float64); ok {
		return v
	}
	return 0
}
