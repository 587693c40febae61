package engine

import (
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/targets"
)

// Supervisor owns the set of in-flight scan jobs. It is the only place
// that mutates shared job state: every registry mutation goes through
// supervisor methods holding the registry mutex, so a cancel request
// and a natural completion racing on the same job id can never tear
// down the same process twice.
type Supervisor struct {
	builder *Builder
	logger  *logging.Logger

	limit int
	grace time.Duration

	mu   sync.Mutex
	jobs map[string]*Job

	// hooks for observability; nil-safe
	onJobFinished func(preset, status string, duration time.Duration)
}

// NewSupervisor creates a supervisor enforcing the given concurrency
// limit. grace is the pause between graceful and forced termination on
// cancellation.
func NewSupervisor(builder *Builder, limit int, grace time.Duration, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	if grace <= 0 {
		grace = time.Second
	}
	return &Supervisor{
		builder: builder,
		logger:  logger.WithComponent("supervisor"),
		limit:   limit,
		grace:   grace,
		jobs:    make(map[string]*Job),
	}
}

// SetJobFinishedHook registers a callback invoked once per job as it
// reaches a terminal state. Must be set before any Submit call.
func (s *Supervisor) SetJobFinishedHook(hook func(preset, status string, duration time.Duration)) {
	s.onJobFinished = hook
}

// ActiveCount returns the number of registered in-flight jobs.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// AtCapacity reports whether a submission right now would be rejected.
// Advisory only: the authoritative check happens inside Submit.
func (s *Supervisor) AtCapacity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs) >= s.limit
}

// ActiveJobs returns snapshots of all in-flight jobs.
func (s *Supervisor) ActiveJobs() []JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobSnapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Submit spawns one engine process for the target and registers the
// job as Running. It returns immediately with a handle the caller can
// Wait on; the wait-for-exit happens on a supervisor goroutine.
// Submissions beyond the concurrency limit are rejected with a
// distinguishable at-capacity error. Spawn failures are returned as
// errors for the caller to record; they never register a job.
func (s *Supervisor) Submit(target targets.Target, opts Options, workDir string, onProgress ProgressFunc) (*Job, error) {
	argv, basename := s.builder.Build(target, opts, workDir)

	job := &Job{
		ID:           uuid.NewString(),
		Target:       target,
		Opts:         opts,
		Basename:     basename,
		argv:         commandLine(argv),
		artifactPath: filepath.Join(workDir, basename+".xml"),
		state:        StatePending,
		done:         make(chan struct{}),
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stderr = &job.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, scanerrors.ErrJobSpawn(target.Address, err)
	}

	s.mu.Lock()
	if len(s.jobs) >= s.limit {
		s.mu.Unlock()
		return nil, scanerrors.ErrAtCapacity(s.limit)
	}

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return nil, scanerrors.ErrJobSpawn(target.Address, err)
	}

	job.cmd = cmd
	job.state = StateRunning
	job.startedAt = time.Now()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.InfoJob("scan job started", target.Address,
		"job_id", job.ID, "pid", cmd.Process.Pid, "command", job.argv)

	// Reader and waiter cooperate per job: the reader streams live
	// output into the progress sink, the waiter awaits process exit
	// and finalizes. Both wind down together when the process dies.
	var readerDone sync.WaitGroup
	readerDone.Add(1)
	go func() {
		defer readerDone.Done()
		job.readOutput(stdout, onProgress)
	}()

	go s.awaitExit(job, &readerDone)

	return job, nil
}

// awaitExit blocks until the job's process exits, produces the final
// result, and removes the registry entry in the same step, so there is
// no window where a finished job is still reported as in-flight.
func (s *Supervisor) awaitExit(job *Job, readerDone *sync.WaitGroup) {
	readerDone.Wait()
	waitErr := job.cmd.Wait()

	job.mu.Lock()
	job.endedAt = time.Now()
	exitCode := job.cmd.ProcessState.ExitCode()
	switch {
	case job.cancelRequested:
		job.state = StateCancelled
	case waitErr == nil:
		job.state = StateCompleted
	default:
		job.state = StateFailed
	}
	state := job.state
	duration := job.endedAt.Sub(job.startedAt)
	job.mu.Unlock()

	result := &Result{
		TargetAddress:   job.Target.Address,
		HostStatus:      "unknown",
		Services:        []ServiceEntry{},
		CommandLine:     job.argv,
		ExitCode:        exitCode,
		StdoutText:      job.stdoutText(),
		StderrText:      job.stderr.String(),
		DurationSeconds: duration.Seconds(),
	}
	if state == StateCompleted {
		ParseArtifact(job.artifactPath, result)
	}
	job.result = result

	s.mu.Lock()
	delete(s.jobs, job.ID)
	s.mu.Unlock()

	close(job.done)

	if s.onJobFinished != nil {
		s.onJobFinished(string(job.Opts.Preset), string(state), duration)
	}
	s.logger.InfoJob("scan job finished", job.Target.Address,
		"job_id", job.ID, "state", state, "exit_code", exitCode,
		"duration", duration)
}

// Cancel requests termination of a running job. It signals the process
// to terminate, waits the configured grace period, escalates to a
// forced kill if the process is still alive, and blocks until the
// waiter has removed the job. Returns false when the job id is not in
// the registry — already finished or never existed — which is a no-op
// signal, not an error.
func (s *Supervisor) Cancel(jobID string) bool {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	cmd := job.markCancelRequested()
	if cmd == nil || cmd.Process == nil {
		return false
	}

	s.logger.InfoJob("cancelling scan job", job.Target.Address, "job_id", jobID)
	_ = cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-job.done:
		return true
	case <-time.After(s.grace):
	}

	_ = cmd.Process.Kill()
	<-job.done
	return true
}

// CleanupAbandoned cancels every registered job older than maxAge and
// returns how many were cancelled. A safety net against orphaned
// subprocesses from crashed callers.
func (s *Supervisor) CleanupAbandoned(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var stale []string
	for id, job := range s.jobs {
		job.mu.Lock()
		started := job.startedAt
		job.mu.Unlock()
		if started.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	cancelled := 0
	for _, id := range stale {
		if s.Cancel(id) {
			cancelled++
		}
	}
	if cancelled > 0 {
		s.logger.Info("cleaned up abandoned scan jobs", "count", cancelled)
	}
	return cancelled
}

// commandLine renders argv for logging and result records.
func commandLine(argv []string) string {
	out := argv[0]
	for _, a := range argv[1:] {
		out += " " + a
	}
	return out
}
