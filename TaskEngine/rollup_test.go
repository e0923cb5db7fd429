package TaskEngine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Atelier/Models"
)

func makeDepartment(t *testing.T, db *gorm.DB, name string) *Models.Department {
	t.Helper()
	dept := &Models.Department{Name: name}
	require.NoError(t, db.Create(dept).Error)
	return dept
}

func addProgress(t *testing.T, db *gorm.DB, taskID, userID uint, day time.Time, value float64) {
	t.Helper()
	require.NoError(t, db.Create(&Models.TaskProgress{
		TaskID:        taskID,
		UserID:        userID,
		ProgressDate:  Models.Day(day),
		ProgressValue: value,
	}).Error)
}

func TestRollupFlagsBelowMean(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	today := time.Date(2026, 8, 10, 5, 0, 0, 0, time.UTC)
	dept := makeDepartment(t, db, "animation")
	a := makeMember(t, db, "artist-a", &dept.ID)
	b := makeMember(t, db, "artist-b", &dept.ID)
	c := makeMember(t, db, "artist-c", &dept.ID)

	addProgress(t, db, 1, a.ID, today, 90)
	addProgress(t, db, 2, b.ID, today, 50)
	addProgress(t, db, 3, c.ID, today, 70)

	result, err := r.RollupDepartment(dept, today)
	require.NoError(t, err)
	assert.Equal(t, 3, result.MemberCount)
	assert.Equal(t, 70.0, result.AverageProgress)
	assert.Equal(t, 1, result.Flagged)

	var gotB Models.Member
	require.NoError(t, db.First(&gotB, b.ID).Error)
	assert.True(t, gotB.BelowAverageFlag)
	require.NotNil(t, gotB.BelowAverageLastCheck)

	// The member exactly at the mean is not flagged.
	var gotC Models.Member
	require.NoError(t, db.First(&gotC, c.ID).Error)
	assert.False(t, gotC.BelowAverageFlag)

	var row Models.DepartmentProgress
	err = db.Where("department_id = ? AND task_id IS NULL", dept.ID).First(&row).Error
	require.NoError(t, err)
	assert.Equal(t, 70.0, row.AverageProgress)
	assert.Equal(t, 90.0, row.MaxProgress)
	assert.Equal(t, 50.0, row.MinProgress)
	assert.Equal(t, 3, row.MemberCount)
}

func TestRollupAveragesMultipleTasksPerMember(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	today := time.Date(2026, 8, 10, 5, 0, 0, 0, time.UTC)
	dept := makeDepartment(t, db, "design")
	a := makeMember(t, db, "artist-a", &dept.ID)
	b := makeMember(t, db, "artist-b", &dept.ID)

	// Member a holds two tasks at 40 and 60: their value is 50.
	addProgress(t, db, 1, a.ID, today, 40)
	addProgress(t, db, 2, a.ID, today, 60)
	addProgress(t, db, 3, b.ID, today, 90)

	result, err := r.RollupDepartment(dept, today)
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.AverageProgress)
	assert.Equal(t, 1, result.Flagged)

	var gotA Models.Member
	require.NoError(t, db.First(&gotA, a.ID).Error)
	assert.True(t, gotA.BelowAverageFlag)
}

func TestRollupNoRecordsResetsFlags(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	today := time.Date(2026, 8, 10, 5, 0, 0, 0, time.UTC)
	dept := makeDepartment(t, db, "story")
	a := makeMember(t, db, "artist-a", &dept.ID)
	require.NoError(t, db.Model(a).Update("below_average_flag", true).Error)

	result, err := r.RollupDepartment(dept, today)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordCount)
	assert.Equal(t, 0, result.Flagged)

	var got Models.Member
	require.NoError(t, db.First(&got, a.ID).Error)
	assert.False(t, got.BelowAverageFlag)
	assert.NotNil(t, got.BelowAverageLastCheck)

	// No aggregate row is written for a day without data.
	var count int64
	db.Model(&Models.DepartmentProgress{}).Where("department_id = ?", dept.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestRollupMemberWithoutRecordNotFlagged(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	today := time.Date(2026, 8, 10, 5, 0, 0, 0, time.UTC)
	dept := makeDepartment(t, db, "layout")
	a := makeMember(t, db, "artist-a", &dept.ID)
	b := makeMember(t, db, "artist-b", &dept.ID)

	addProgress(t, db, 1, a.ID, today, 30)

	result, err := r.RollupDepartment(dept, today)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Flagged)

	// b has no record today: never flagged, whatever the mean.
	var gotB Models.Member
	require.NoError(t, db.First(&gotB, b.ID).Error)
	assert.False(t, gotB.BelowAverageFlag)
}

func TestRollupAllSweep(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	today := time.Date(2026, 8, 10, 5, 0, 0, 0, time.UTC)
	d1 := makeDepartment(t, db, "animation")
	d2 := makeDepartment(t, db, "design")
	a := makeMember(t, db, "artist-a", &d1.ID)
	makeMember(t, db, "artist-b", &d2.ID)
	addProgress(t, db, 1, a.ID, today, 80)

	summary, err := r.RollupAll(today)
	require.NoError(t, err)
	assert.Len(t, summary.Departments, 2)
	assert.Equal(t, 0, summary.Failed)
}

func TestUpdateMemberScores(t *testing.T) {
	db := testDB(t)
	r := NewRollup(db)

	assigner := makeMember(t, db, "lead", nil)
	a := makeMember(t, db, "artist-a", nil)
	b := makeMember(t, db, "artist-b", nil)
	require.NoError(t, db.Model(b).Update("period_task_score", 42.0).Error)

	now := time.Now()
	for _, score := range []float64{80, 90} {
		s := score
		task := makePeriodTask(t, db, assigner.ID, a.ID, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
		task.FinalScore = &s
		task.FinalizedAt = &now
		require.NoError(t, db.Save(task).Error)
	}

	summary, err := r.UpdateMemberScores()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	var gotA Models.Member
	require.NoError(t, db.First(&gotA, a.ID).Error)
	assert.Equal(t, 85.0, gotA.PeriodTaskScore)

	// Members with no finalized tasks keep their current score.
	var gotB Models.Member
	require.NoError(t, db.First(&gotB, b.ID).Error)
	assert.Equal(t, 42.0, gotB.PeriodTaskScore)
}
