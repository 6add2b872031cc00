// Package scheduler runs the daily background sweeps: overdue loans,
// overdue rentals and upcoming-maintenance reminders. Jobs fire at fixed
// UTC times, never overlap themselves, and log failures instead of
// crashing the process.
package scheduler

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Job is a named daily task fired at a fixed UTC hour and minute.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// Scheduler drives registered jobs off a one-minute tick.
type Scheduler struct {
	jobs    []Job
	logger  *log.Logger
	mu      sync.Mutex
	running map[string]bool
	lastRun map[string]string // job name -> yyyy-mm-dd of last fire
	now     func() time.Time
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		logger:  log.New(log.Writer(), "[Scheduler] ", log.LstdFlags),
		running: make(map[string]bool),
		lastRun: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register adds a job. Call before Run.
func (s *Scheduler) Register(j Job) {
	s.jobs = append(s.jobs, j)
}

// Run blocks until ctx is done, firing due jobs once per UTC day each.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Printf("started with %d job(s)", len(s.jobs))
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	day := now.Format("2006-01-02")
	for _, j := range s.jobs {
		if now.Hour() != j.Hour || now.Minute() != j.Minute {
			continue
		}
		s.mu.Lock()
		if s.running[j.Name] || s.lastRun[j.Name] == day {
			s.mu.Unlock()
			continue
		}
		s.running[j.Name] = true
		s.lastRun[j.Name] = day
		s.mu.Unlock()

		go s.execute(ctx, j)
	}
}

func (s *Scheduler) execute(ctx context.Context, j Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("job %s panicked: %v\n%s", j.Name, r, debug.Stack())
		}
		s.mu.Lock()
		s.running[j.Name] = false
		s.mu.Unlock()
	}()

	start := s.now()
	if err := j.Run(ctx); err != nil {
		s.logger.Printf("job %s failed after %s: %v", j.Name, time.Since(start), err)
		return
	}
	s.logger.Printf("job %s completed in %s", j.Name, time.Since(start))
}

// RunJobNow fires one registered job immediately, used by the admin
// trigger endpoint. Returns false when the job name is unknown.
func (s *Scheduler) RunJobNow(ctx context.Context, name string) bool {
	for _, j := range s.jobs {
		if j.Name == name {
			go s.execute(ctx, j)
			return true
		}
	}
	return false
}
