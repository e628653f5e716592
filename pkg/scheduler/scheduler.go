package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"taskboard/pkg/logger"
)

type EventScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, task func()) error
	AddIntervalJob(id string, every time.Duration, task func()) error
	RemoveJob(id string) error
	GetJob(id string) (*JobInfo, bool)
	ListJobs() map[string]*JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID       string
	Schedule string // cron expression หรือ interval เช่น "30s"
	Job      *gocron.Job
	LastRun  *time.Time
	NextRun  *time.Time
	Runs     int
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*JobInfo
	mu        sync.RWMutex
	running   bool
	log       *slog.Logger
}

func NewEventScheduler() EventScheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &GocronScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]*JobInfo),
		log:       logger.Named("scheduler"),
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Debug("Scheduler is already running")
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	s.log.Info("Event scheduler started", "jobs", len(s.jobs))
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.scheduler.Stop()
	s.running = false
	s.log.Info("Event scheduler stopped")
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) AddJob(id, cronExpr string, task func()) error {
	return s.add(id, cronExpr, func() *gocron.Scheduler { return s.scheduler.Cron(cronExpr) }, task)
}

// AddIntervalJob runs task every interval, starting immediately.
func (s *GocronScheduler) AddIntervalJob(id string, every time.Duration, task func()) error {
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", id)
	}
	return s.add(id, every.String(), func() *gocron.Scheduler { return s.scheduler.Every(every) }, task)
}

// add checks the id before building, gocron registers the job as soon as it is scheduled
func (s *GocronScheduler) add(id, schedule string, build func() *gocron.Scheduler, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %s already exists", id)
	}

	job, err := build().Tag(id).Do(func() {
		now := time.Now()

		s.mu.Lock()
		if info, exists := s.jobs[id]; exists {
			info.LastRun = &now
			info.Runs++
		}
		s.mu.Unlock()

		s.log.Debug("Executing job", "job", id)
		task()
	})
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}

	nextRun := job.NextRun()
	s.jobs[id] = &JobInfo{
		ID:       id,
		Schedule: schedule,
		Job:      job,
		NextRun:  &nextRun,
	}

	s.log.Info("Job added", "job", id, "schedule", schedule)
	return nil
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID %s not found", id)
	}

	if info.Job != nil {
		s.scheduler.RemoveByReference(info.Job)
	}

	delete(s.jobs, id)
	s.log.Info("Job removed", "job", id)
	return nil
}

func (s *GocronScheduler) GetJob(id string) (*JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobs[id]
	if !exists {
		return nil, false
	}
	return snapshot(info), true
}

func (s *GocronScheduler) ListJobs() map[string]*JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]*JobInfo, len(s.jobs))
	for id, info := range s.jobs {
		jobs[id] = snapshot(info)
	}
	return jobs
}

// snapshot copies info so callers never share the mutable times
func snapshot(info *JobInfo) *JobInfo {
	out := &JobInfo{
		ID:       info.ID,
		Schedule: info.Schedule,
		Job:      info.Job,
		Runs:     info.Runs,
	}
	if info.LastRun != nil {
		lastRun := *info.LastRun
		out.LastRun = &lastRun
	}
	if info.Job != nil {
		nextRun := info.Job.NextRun()
		out.NextRun = &nextRun
	}
	return out
}
