// Package scheduler runs recurring scan sessions on cron expressions.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/scanwell/scanwell/internal/engine"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/session"
	"github.com/scanwell/scanwell/internal/targets"
)

// Entry is one recurring scan definition.
type Entry struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CronExpr   string         `json:"cron"`
	TargetText string         `json:"target_text"`
	Opts       engine.Options `json:"options"`
	NextRun    time.Time      `json:"next_run,omitempty"`
	LastRun    time.Time      `json:"last_run,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
}

type scheduledJob struct {
	entry  Entry
	cronID cron.EntryID
}

// Scheduler fires sessions on cron schedules. Each trigger expands the
// entry's target text and starts a fresh session through the
// coordinator; an at-capacity coordinator makes the run a skipped
// occurrence, not a queued one.
type Scheduler struct {
	coordinator *session.Coordinator
	expander    *targets.Expander
	logger      *logging.Logger
	cron        *cron.Cron

	mu   sync.Mutex
	jobs map[string]*scheduledJob
}

// New creates a scheduler in the given location.
func New(coordinator *session.Coordinator, expander *targets.Expander, location *time.Location, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		coordinator: coordinator,
		expander:    expander,
		logger:      logger.WithComponent("scheduler"),
		cron:        cron.New(cron.WithLocation(location)),
		jobs:        make(map[string]*scheduledJob),
	}
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for any in-flight trigger callback.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Add registers a recurring scan and returns its id.
func (s *Scheduler) Add(name, cronExpr, targetText string, opts engine.Options) (string, error) {
	if targetText == "" {
		return "", scanerrors.NewScanError(scanerrors.CodeValidation, "target text is required")
	}

	job := &scheduledJob{
		entry: Entry{
			ID:         uuid.NewString(),
			Name:       name,
			CronExpr:   cronExpr,
			TargetText: targetText,
			Opts:       opts,
		},
	}

	cronID, err := s.cron.AddFunc(cronExpr, func() { s.fire(job.entry.ID) })
	if err != nil {
		return "", scanerrors.NewScanError(scanerrors.CodeValidation,
			fmt.Sprintf("invalid cron expression %q: %v", cronExpr, err))
	}
	job.cronID = cronID

	s.mu.Lock()
	s.jobs[job.entry.ID] = job
	s.mu.Unlock()

	s.logger.Info("scheduled scan added", "id", job.entry.ID, "name", name, "cron", cronExpr)
	return job.entry.ID, nil
}

// Remove deletes a scheduled scan. Returns false for unknown ids.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.cron.Remove(job.cronID)
	s.logger.Info("scheduled scan removed", "id", id)
	return true
}

// List returns all scheduled entries with their next run times.
func (s *Scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := job.entry
		if ce := s.cron.Entry(job.cronID); ce.ID == job.cronID {
			entry.NextRun = ce.Next
		}
		out = append(out, entry)
	}
	return out
}

// fire runs one occurrence of a scheduled scan.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry := job.entry
	s.mu.Unlock()

	expansion := s.expander.Expand(entry.TargetText)
	if len(expansion.Targets) == 0 {
		s.recordRun(id, "no targets after expansion")
		return
	}

	sessionID, err := s.coordinator.Start(expansion.Targets, entry.Opts)
	if err != nil {
		s.logger.Error("scheduled scan could not start",
			"id", id, "name", entry.Name, "error", err)
		s.recordRun(id, err.Error())
		return
	}

	s.logger.Info("scheduled scan fired",
		"id", id, "name", entry.Name, "session_id", sessionID)
	s.recordRun(id, "")
}

func (s *Scheduler) recordRun(id, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.entry.LastRun = time.Now()
		job.entry.LastError = lastError
	}
}
