package TaskEngine

import (
	"fmt"
	"log"
	"math"
	"time"

	"Atelier/Models"

	"gorm.io/gorm"
)

// Rollup aggregates member progress into department statistics and
// flags members running below their department's daily mean.
type Rollup struct {
	DB *gorm.DB
}

func NewRollup(db *gorm.DB) *Rollup {
	return &Rollup{DB: db}
}

// DepartmentResult describes one department's rollup outcome.
type DepartmentResult struct {
	DepartmentID    uint    `json:"department_id"`
	MemberCount     int     `json:"member_count"`
	RecordCount     int     `json:"record_count"`
	AverageProgress float64 `json:"average_progress"`
	Flagged         int     `json:"flagged"`
}

// RollupSummary is the structured result of one rollup sweep.
type RollupSummary struct {
	Departments []DepartmentResult `json:"departments"`
	Failed      int                `json:"failed"`
}

// RollupAll runs the daily rollup for every department. One
// department's failure never aborts the others.
func (r *Rollup) RollupAll(today time.Time) (*RollupSummary, error) {
	var departments []Models.Department
	if err := r.DB.Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}

	summary := &RollupSummary{}
	for i := range departments {
		result, err := r.RollupDepartment(&departments[i], today)
		if err != nil {
			log.Printf("Failed to roll up department %d (%s): %v",
				departments[i].ID, departments[i].Name, err)
			summary.Failed++
			continue
		}
		summary.Departments = append(summary.Departments, *result)
	}

	log.Printf("Department rollup done: %d departments, %d failed", len(summary.Departments), summary.Failed)
	return summary, nil
}

// RollupDepartment flags members below today's department mean and
// upserts the department progress aggregate. Members with no progress
// row today are never flagged; a department with no rows today resets
// every flag. The last-check timestamp is bumped regardless of outcome.
func (r *Rollup) RollupDepartment(dept *Models.Department, today time.Time) (*DepartmentResult, error) {
	day := Models.Day(today)
	now := time.Now()

	var members []Models.Member
	if err := r.DB.Where("department_id = ?", dept.ID).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	result := &DepartmentResult{DepartmentID: dept.ID, MemberCount: len(members)}
	if len(members) == 0 {
		return result, nil
	}

	memberIDs := make([]uint, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	var records []Models.TaskProgress
	err := r.DB.Where("user_id IN ? AND progress_date = ?", memberIDs, day).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}
	result.RecordCount = len(records)

	// Latest today's value per member. Multiple active tasks average out.
	memberValues := make(map[uint][]float64)
	for _, rec := range records {
		memberValues[rec.UserID] = append(memberValues[rec.UserID], rec.ProgressValue)
	}
	memberAvg := make(map[uint]float64, len(memberValues))
	var total float64
	for userID, values := range memberValues {
		var sum float64
		for _, v := range values {
			sum += v
		}
		memberAvg[userID] = sum / float64(len(values))
		total += memberAvg[userID]
	}

	var mean float64
	if len(memberAvg) > 0 {
		mean = total / float64(len(memberAvg))
	}
	result.AverageProgress = math.Round(mean*100) / 100

	for i := range members {
		m := &members[i]
		value, has := memberAvg[m.ID]
		m.BelowAverageFlag = has && value < mean
		if m.BelowAverageFlag {
			result.Flagged++
		}
		checked := now
		m.BelowAverageLastCheck = &checked
		if err := r.DB.Save(m).Error; err != nil {
			log.Printf("Failed to save member %d flag state: %v", m.ID, err)
		}
	}

	if len(memberAvg) > 0 {
		if err := r.upsertDepartmentProgress(dept.ID, day, memberAvg); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// upsertDepartmentProgress writes the dept-wide aggregate row (task_id
// NULL) for the day.
func (r *Rollup) upsertDepartmentProgress(departmentID uint, day time.Time, memberAvg map[uint]float64) error {
	var minV, maxV, sum float64
	first := true
	for _, v := range memberAvg {
		if first {
			minV, maxV = v, v
			first = false
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	avg := sum / float64(len(memberAvg))

	var row Models.DepartmentProgress
	err := r.DB.Where("department_id = ? AND task_id IS NULL AND progress_date = ?", departmentID, day).
		First(&row).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		row = Models.DepartmentProgress{
			DepartmentID: departmentID,
			ProgressDate: day,
		}
	case err != nil:
		return fmt.Errorf("failed to load department progress: %w", err)
	}

	row.AverageProgress = avg
	row.MaxProgress = maxV
	row.MinProgress = minV
	row.MemberCount = len(memberAvg)
	if err := r.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save department progress: %w", err)
	}
	return nil
}

// MemberScoreSummary is the structured result of a member score sweep.
type MemberScoreSummary struct {
	Members int `json:"members"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// UpdateMemberScores recomputes every member's period task score as the
// mean of their finalized period task scores. Members with no finalized
// tasks keep their current value.
func (r *Rollup) UpdateMemberScores() (*MemberScoreSummary, error) {
	var members []Models.Member
	if err := r.DB.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	summary := &MemberScoreSummary{Members: len(members)}
	for i := range members {
		m := &members[i]

		var tasks []Models.PeriodTask
		err := r.DB.Where("assignee_id = ? AND final_score IS NOT NULL", m.ID).Find(&tasks).Error
		if err != nil {
			log.Printf("Failed to load finalized tasks for member %d: %v", m.ID, err)
			summary.Failed++
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		var total float64
		for _, t := range tasks {
			total += *t.FinalScore
		}
		average := math.Round(total/float64(len(tasks))*100) / 100

		m.PeriodTaskScore = average
		if err := r.DB.Save(m).Error; err != nil {
			log.Printf("Failed to save member %d score: %v", m.ID, err)
			summary.Failed++
			continue
		}
		summary.Updated++
		log.Printf("Member %d period task score updated to %.2f over %d tasks", m.ID, average, len(tasks))
	}
	return summary, nil
}
