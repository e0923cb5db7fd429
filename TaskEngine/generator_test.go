package TaskEngine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Atelier/Models"
)

func TestGenerateForPeriodTaskCreates(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "Sketch the hero section\n\nBlock out the hero layout and pick imagery")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -2), today.AddDate(0, 0, 5))

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenCreated, status)
	assert.Equal(t, "Sketch the hero section", daily.BasicTaskRequirements)
	assert.Equal(t, "Block out the hero layout and pick imagery", daily.DetailTaskRequirements)
	assert.Equal(t, Models.Day(today), daily.TaskDate)
	assert.False(t, daily.Continued)
}

func TestGenerateForPeriodTaskIdempotent(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "Summary\n\nDetail")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -2), today.AddDate(0, 0, 5))

	first, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	require.Equal(t, GenCreated, status)

	second, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenExists, status)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&Models.DailyTask{}).Where("period_task_id = ?", task.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGenerateCarriesForwardUnfinished(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "Should not be used\n\nShould not be used either")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -5), today.AddDate(0, 0, 5))

	// Yesterday's task exists but no report was filed for that day.
	prev := Models.DailyTask{
		PeriodTaskID:           task.ID,
		AssignerID:             assigner.ID,
		AssigneeID:             assignee.ID,
		TaskDate:               Models.Day(today.AddDate(0, 0, -1)),
		BasicTaskRequirements:  "Finish the color study",
		DetailTaskRequirements: "Complete the three remaining color variants",
	}
	require.NoError(t, db.Create(&prev).Error)

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenContinued, status)
	assert.True(t, daily.Continued)
	assert.Equal(t, prev.BasicTaskRequirements, daily.BasicTaskRequirements)
	assert.Equal(t, prev.DetailTaskRequirements, daily.DetailTaskRequirements)
}

func TestGenerateCarriesForwardAcrossGap(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "unused")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -10), today.AddDate(0, 0, 5))

	// The most recent task is three days back; the days between were
	// never generated.
	prev := Models.DailyTask{
		PeriodTaskID:           task.ID,
		AssignerID:             assigner.ID,
		AssigneeID:             assignee.ID,
		TaskDate:               Models.Day(today.AddDate(0, 0, -3)),
		BasicTaskRequirements:  "Storyboard the intro",
		DetailTaskRequirements: "Rough out the first six panels",
	}
	require.NoError(t, db.Create(&prev).Error)

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenContinued, status)
	assert.Equal(t, "Storyboard the intro", daily.BasicTaskRequirements)
}

func TestGenerateAfterReportedDayUsesModel(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "Refine the typography\n\nApply the chosen typeface across all pages")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -5), today.AddDate(0, 0, 5))

	prev := Models.DailyTask{
		PeriodTaskID:           task.ID,
		AssignerID:             assigner.ID,
		AssigneeID:             assignee.ID,
		TaskDate:               Models.Day(today.AddDate(0, 0, -1)),
		BasicTaskRequirements:  "Pick a typeface",
		DetailTaskRequirements: "Evaluate three candidate typefaces",
	}
	require.NoError(t, db.Create(&prev).Error)
	makeReport(t, db, assignee.ID, today.AddDate(0, 0, -1), 90, 5, 0)

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenCreated, status)
	assert.False(t, daily.Continued)
	assert.Equal(t, "Refine the typography", daily.BasicTaskRequirements)
}

func TestGenerateExpiredTask(t *testing.T) {
	db := testDB(t)
	gen := NewGenerator(db, fakeGateway(t, db, "unused"))

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -9), today.AddDate(0, 0, -2))

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenExpired, status)
	assert.Nil(t, daily)
}

func TestGenerateLLMFailureFallsBackToPeriodRequirements(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "") // every call fails
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	assignee := makeMember(t, db, "artist", nil)
	task := makePeriodTask(t, db, assigner.ID, assignee.ID,
		today.AddDate(0, 0, -2), today.AddDate(0, 0, 5))

	daily, status, err := gen.GenerateForPeriodTask(task, today)
	require.NoError(t, err)
	assert.Equal(t, GenCreated, status)
	assert.Equal(t, task.BasicTaskRequirements, daily.BasicTaskRequirements)
	assert.Equal(t, task.DetailTaskRequirements, daily.DetailTaskRequirements)
}

func TestGenerateAllSweep(t *testing.T) {
	db := testDB(t)
	gw := fakeGateway(t, db, "Summary\n\nDetail")
	gen := NewGenerator(db, gw)

	today := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	assigner := makeMember(t, db, "lead", nil)
	a := makeMember(t, db, "artist-a", nil)
	b := makeMember(t, db, "artist-b", nil)
	makePeriodTask(t, db, assigner.ID, a.ID, today.AddDate(0, 0, -2), today.AddDate(0, 0, 5))
	makePeriodTask(t, db, assigner.ID, b.ID, today.AddDate(0, 0, -2), today.AddDate(0, 0, 5))

	summary, err := gen.GenerateAll(today)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Failed)

	// A second sweep only sees existing tasks.
	summary, err = gen.GenerateAll(today)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Existing)
}

func TestSplitTaskReply(t *testing.T) {
	basic, detail := SplitTaskReply("Summary line\n\nDetail body\nwith two lines")
	assert.Equal(t, "Summary line", basic)
	assert.Equal(t, "Detail body\nwith two lines", detail)

	basic, detail = SplitTaskReply("Just one block of text")
	assert.Equal(t, "Today's task", basic)
	assert.Equal(t, "Just one block of text", detail)
}
