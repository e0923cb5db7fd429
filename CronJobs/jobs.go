package CronJobs

import (
	"os"
	"time"

	"Atelier/Notifications"
	"Atelier/TaskEngine"
)

// Job names, also the handles for on-demand triggers.
const (
	JobDailyTaskGenerator  = "daily_task_generator"
	JobDailyTaskNotifier   = "daily_task_notification"
	JobProgressUpdate      = "progress_update"
	JobScoreCalculator     = "period_task_score_calculator"
	JobMemberScoreUpdater  = "member_score_updater"
	JobProgressAlert       = "progress_notification"
	JobReportReminder      = "daily_report_reminder"
	JobNotificationCleanup = "notification_cleanup"
)

// StudioJobs bundles the engine components the scheduled jobs drive.
type StudioJobs struct {
	Generator *TaskEngine.Generator
	Evaluator *TaskEngine.Evaluator
	Finalizer *TaskEngine.Finalizer
	Rollup    *TaskEngine.Rollup
	Notify    *Notifications.Service

	Location *time.Location
}

func (j *StudioJobs) today() time.Time {
	return time.Now().In(j.Location)
}

// Register wires all studio jobs into the scheduler. Trigger specs can
// be overridden per job through the environment (JOB_<NAME>_SPEC).
func (j *StudioJobs) Register(s *JobScheduler) error {
	jobs := []struct {
		name    string
		spec    string
		handler func() error
	}{
		{JobDailyTaskGenerator, "10 1 * * *", func() error {
			_, err := j.Generator.GenerateAll(j.today())
			return err
		}},
		{JobDailyTaskNotifier, "15 1 * * *", func() error {
			_, err := j.Notify.NotifyDailyTasks(j.today())
			return err
		}},
		{JobProgressUpdate, "0 5 * * *", func() error {
			if _, err := j.Evaluator.UpdateAll(j.today()); err != nil {
				return err
			}
			_, err := j.Rollup.RollupAll(j.today())
			return err
		}},
		{JobScoreCalculator, "45 9 * * *", func() error {
			_, err := j.Finalizer.FinalizeDue(j.today())
			return err
		}},
		{JobMemberScoreUpdater, "13 15 * * *", func() error {
			_, err := j.Rollup.UpdateMemberScores()
			return err
		}},
		{JobProgressAlert, "0 17 * * *", func() error {
			_, err := j.Notify.NotifyBelowAverage(j.today())
			return err
		}},
		{JobReportReminder, "0 20 * * *", func() error {
			_, err := j.Notify.RemindMissingReports(j.today())
			return err
		}},
		{JobNotificationCleanup, "0 0 * * *", func() error {
			_, err := j.Notify.CleanupExpired(j.today())
			return err
		}},
	}

	for _, job := range jobs {
		spec := job.spec
		if override := os.Getenv("JOB_" + envKey(job.name) + "_SPEC"); override != "" {
			spec = override
		}
		if err := s.Register(job.name, spec, job.handler); err != nil {
			return err
		}
	}
	return nil
}

func envKey(name string) string {
	key := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		key[i] = c
	}
	return string(key)
}
