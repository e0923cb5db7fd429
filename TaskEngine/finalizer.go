package TaskEngine

import (
	"fmt"
	"log"
	"math"
	"time"

	"Atelier/Models"

	"gorm.io/gorm"
)

// Per-report maxima and component weights of the final score formula.
// The three weights sum to 115: a member who maxed every sub-score on
// every reported day earns excess credit above 100.
const (
	BasicScorePerDay  = 100.0
	ExcessScorePerDay = 10.0
	ExtraScorePerDay  = 5.0

	BasicWeight  = 80.0
	ExcessWeight = 20.0
	ExtraWeight  = 15.0
)

// Finalizer computes the one-time final score of expired period tasks.
type Finalizer struct {
	DB *gorm.DB
}

func NewFinalizer(db *gorm.DB) *Finalizer {
	return &Finalizer{DB: db}
}

// FinalScore aggregates daily report sub-scores into the weighted final
// score. The denominator is days-with-a-report, not calendar days.
func FinalScore(reports []Models.DailyReport) float64 {
	n := float64(len(reports))
	if n == 0 {
		return 0
	}

	var basic, excess, extra float64
	for _, r := range reports {
		basic += r.BasicScore
		excess += r.ExcessScore
		extra += r.ExtraScore
	}

	total := basic/(n*BasicScorePerDay)*BasicWeight +
		excess/(n*ExcessScorePerDay)*ExcessWeight +
		extra/(n*ExtraScorePerDay)*ExtraWeight
	return math.Round(total*100) / 100
}

// FinalizeSummary is the structured result of one finalization sweep.
type FinalizeSummary struct {
	Due       int `json:"due"`
	Finalized int `json:"finalized"`
	NoReports int `json:"no_reports"`
	Failed    int `json:"failed"`
}

// FinalizeDue scores every period task whose end date is on or before
// today and which has not been finalized yet. Already-finalized tasks
// are never touched, so the sweep is safe to re-run and catches up on
// days the scheduler missed.
func (f *Finalizer) FinalizeDue(today time.Time) (*FinalizeSummary, error) {
	_, dayEnd := Models.DayRange(today)

	var due []Models.PeriodTask
	err := f.DB.Where("end_time < ? AND finalized_at IS NULL", dayEnd).Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load due period tasks: %w", err)
	}

	summary := &FinalizeSummary{Due: len(due)}
	for i := range due {
		score, n, err := f.finalizeTask(&due[i])
		if err != nil {
			log.Printf("Failed to finalize period task %d: %v", due[i].ID, err)
			summary.Failed++
			continue
		}
		summary.Finalized++
		if n == 0 {
			summary.NoReports++
		}
		log.Printf("Finalized period task %d: score %.2f over %d reported days", due[i].ID, score, n)
	}

	log.Printf("Finalization done: %d due, %d finalized (%d with no reports), %d failed",
		summary.Due, summary.Finalized, summary.NoReports, summary.Failed)
	return summary, nil
}

// finalizeTask computes and persists a task's final score exactly once.
func (f *Finalizer) finalizeTask(task *Models.PeriodTask) (float64, int, error) {
	if task.Finalized() {
		return *task.FinalScore, 0, nil
	}

	var reports []Models.DailyReport
	err := f.DB.Where("user_id = ? AND report_date >= ? AND report_date <= ?",
		task.AssigneeID, Models.Day(task.StartTime), Models.Day(task.EndTime)).
		Find(&reports).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load reports: %w", err)
	}

	score := FinalScore(reports)
	now := time.Now()
	task.FinalScore = &score
	task.FinalizedAt = &now
	if err := f.DB.Save(task).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to save final score: %w", err)
	}
	return score, len(reports), nil
}
