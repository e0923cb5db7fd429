package CronJobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobScheduler runs the studio's named daily jobs on cron triggers in a
// fixed timezone. Each job runs at most once concurrently; a trigger
// that fires while the previous run is still going is skipped. A run
// missed while the process was down is coalesced into a single catch-up
// execution on Start, within the grace window.
type JobScheduler struct {
	location *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*job
	started bool

	// StopWait bounds how long Stop blocks for in-flight jobs.
	StopWait time.Duration
	// Grace is the misfire window for catch-up runs on Start.
	Grace time.Duration
}

type job struct {
	name    string
	spec    string
	handler func() error
	entryID cron.EntryID

	running sync.Mutex

	// lastRun and lastErr are guarded by the scheduler's mu so Jobs
	// can read them while a run is in flight.
	lastRun time.Time
	lastErr error
}

// RunResult is the structured outcome of an on-demand job execution.
type RunResult struct {
	Job       string        `json:"job"`
	Ran       bool          `json:"ran"`
	Skipped   string        `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// JobInfo describes a registered job for the admin endpoints.
type JobInfo struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
	LastErr string    `json:"last_error,omitempty"`
}

// NewJobScheduler creates a scheduler running in the given location.
func NewJobScheduler(location *time.Location) *JobScheduler {
	return &JobScheduler{
		location: location,
		cron:     cron.New(cron.WithLocation(location)),
		jobs:     make(map[string]*job),
		StopWait: 10 * time.Second,
		Grace:    time.Hour,
	}
}

// Register adds a named job with a standard 5-field cron spec.
// Re-registering an existing name replaces the prior registration.
func (s *JobScheduler) Register(name, spec string, handler func() error) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q for job %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		s.cron.Remove(existing.entryID)
		delete(s.jobs, name)
		log.Printf("Replacing registration for job %s", name)
	}

	j := &job{name: name, spec: spec, handler: handler}
	entryID, err := s.cron.AddFunc(spec, func() { s.invoke(j) })
	if err != nil {
		return fmt.Errorf("error scheduling job %s: %w", name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j

	log.Printf("Registered job %s with schedule %q", name, spec)
	return nil
}

// Start launches the cron loop and fires one catch-up run for every job
// whose trigger fell inside the grace window while nothing was running.
// Start is reentrant; calling it on a started scheduler is a no-op.
func (s *JobScheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		log.Println("Job scheduler already running")
		return
	}
	s.started = true
	missed := s.missedJobsLocked(time.Now().In(s.location))
	s.cron.Start()
	s.mu.Unlock()

	for _, j := range missed {
		log.Printf("Job %s missed its trigger within the last %v, running catch-up", j.name, s.Grace)
		go s.invoke(j)
	}

	log.Printf("Job scheduler started (%s)", s.location)
}

func (s *JobScheduler) missedJobsLocked(now time.Time) []*job {
	var missed []*job
	for _, j := range s.jobs {
		sched, err := cron.ParseStandard(j.spec)
		if err != nil {
			continue
		}
		if t := sched.Next(now.Add(-s.Grace)); !t.After(now) {
			missed = append(missed, j)
		}
	}
	return missed
}

// Stop halts the cron loop and waits up to StopWait for in-flight jobs.
// In-flight executions are not killed; they finish on their own.
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		log.Println("Job scheduler already stopped")
		return
	}
	s.started = false
	ctx := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		log.Println("Job scheduler stopped")
	case <-time.After(s.StopWait):
		log.Printf("Job scheduler stop timed out after %v, jobs left to finish in background", s.StopWait)
	}
}

// RunNow executes a registered job synchronously, outside its schedule.
// The same one-instance guard applies: a job already running is
// reported as skipped, not queued.
func (s *JobScheduler) RunNow(name string) RunResult {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return RunResult{Job: name, Skipped: "not registered"}
	}
	return s.invoke(j)
}

// Jobs lists the registered jobs and their next trigger times.
func (s *JobScheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		info := JobInfo{
			Name:    j.name,
			Spec:    j.spec,
			NextRun: s.cron.Entry(j.entryID).Next,
			LastRun: j.lastRun,
		}
		if j.lastErr != nil {
			info.LastErr = j.lastErr.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *JobScheduler) recordRun(j *job, startedAt time.Time, err error) {
	s.mu.Lock()
	j.lastRun = startedAt
	j.lastErr = err
	s.mu.Unlock()
}

// invoke runs one job execution with the one-instance guard and panic
// isolation. A handler error or panic is logged and recorded; it never
// reaches the cron loop or other jobs.
func (s *JobScheduler) invoke(j *job) (result RunResult) {
	result.Job = j.name
	result.StartedAt = time.Now()

	if !j.running.TryLock() {
		log.Printf("Job %s is still running, skipping this trigger", j.name)
		result.Skipped = "previous run still in progress"
		return result
	}
	defer j.running.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job panicked: %v", r)
			log.Printf("Job %s panicked: %v", j.name, r)
			s.recordRun(j, result.StartedAt, err)
			result.Error = err.Error()
			result.Ran = true
			result.Duration = time.Since(result.StartedAt)
		}
	}()

	log.Printf("Running job %s", j.name)
	err := j.handler()
	s.recordRun(j, result.StartedAt, err)

	result.Ran = true
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		log.Printf("Job %s failed after %v: %v", j.name, result.Duration, err)
		result.Error = err.Error()
	} else {
		log.Printf("Job %s completed in %v", j.name, result.Duration)
	}
	return result
}
