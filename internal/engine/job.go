package engine

import (
	"bufio"
	"bytes"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scanwell/scanwell/internal/targets"
)

// ProgressFunc receives live progress from a running job's output
// stream. percent is the engine's own completion estimate for the
// current task. Implementations must not block: they run on the
// reader goroutine.
type ProgressFunc func(percent float64, line string)

// progressPattern matches the engine's periodic task progress lines,
// e.g. "Stats: ... About 42.61% done; ETC: ...".
var progressPattern = regexp.MustCompile(`About ([0-9.]+)% done`)

// Job is one subprocess invocation of the scan engine against one
// target. The supervisor owns the job's registry entry; the job owns
// its process handle only between Running and process exit.
type Job struct {
	ID       string
	Target   targets.Target
	Opts     Options
	Basename string

	argv         string
	artifactPath string

	mu              sync.Mutex
	state           JobState
	startedAt       time.Time
	endedAt         time.Time
	cancelRequested bool

	cmd    *exec.Cmd
	stderr bytes.Buffer

	stdoutMu sync.Mutex
	stdout   strings.Builder

	done   chan struct{}
	result *Result
}

// State returns the job's current lifecycle state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Snapshot returns a read-only view of the job.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:        j.ID,
		Target:    j.Target,
		State:     j.state,
		StartedAt: j.startedAt,
		EndedAt:   j.endedAt,
		Basename:  j.Basename,
	}
}

// Wait blocks until the job reaches a terminal state and returns its
// result. Safe to call from multiple goroutines; all callers see the
// same result value.
func (j *Job) Wait() *Result {
	<-j.done
	return j.result
}

// Done exposes the job's completion channel for select loops.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// markCancelRequested flags the job so the waiter records Cancelled
// rather than Failed when the terminated process exits. Returns the
// process handle to signal, or nil if the job is no longer running.
func (j *Job) markCancelRequested() *exec.Cmd {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateRunning {
		return nil
	}
	j.cancelRequested = true
	return j.cmd
}

// readOutput streams the process's stdout line by line, accumulating
// the full text and surfacing progress estimates. It runs on its own
// goroutine and exits when the pipe closes, which happens on process
// exit whether natural or forced; no registry lock is held here, so
// the cancellation path can never deadlock against the reader.
func (j *Job) readOutput(pipe io.Reader, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		j.stdoutMu.Lock()
		j.stdout.WriteString(line)
		j.stdout.WriteByte('\n')
		j.stdoutMu.Unlock()

		if onProgress == nil {
			continue
		}
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				onProgress(pct, line)
			}
		}
	}
}

// stdoutText returns the accumulated process output. Only called after
// the reader goroutine has finished.
func (j *Job) stdoutText() string {
	j.stdoutMu.Lock()
	defer j.stdoutMu.Unlock()
	return j.stdout.String()
}
