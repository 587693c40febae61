package session

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanwell/scanwell/internal/engine"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/targets"
)

// Status tracks a session's lifecycle. There is no cancelled status:
// cancelling a session stops its current job and the session still
// finishes as Completed, with CompletedCount < TotalCount signaling
// the partial run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Session is the persisted shape of one scan batch. The coordinator
// owns it exclusively and updates the snapshot after every processed
// target.
type Session struct {
	ID             string           `json:"id"`
	Targets        []targets.Target `json:"targets"`
	Opts           engine.Options   `json:"options"`
	Status         Status           `json:"status"`
	CompletedCount int              `json:"completed_count"`
	TotalCount     int              `json:"total_count"`
	StartedAt      time.Time        `json:"started_at"`
	EndedAt        time.Time        `json:"ended_at,omitempty"`
}

// JobRecord is the persisted outcome of one completed job.
type JobRecord struct {
	SessionID string         `json:"session_id"`
	Target    targets.Target `json:"target"`
	Opts      engine.Options `json:"options"`
	Result    *engine.Result `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store is the persistence boundary. The coordinator only produces
// these shapes; storage format is the collaborator's concern.
type Store interface {
	SaveSession(ctx context.Context, session *Session) error
	SaveJobRecord(ctx context.Context, record *JobRecord) error
}

// Metrics is the observability hook the coordinator reports to.
type Metrics interface {
	SessionStarted()
	SessionFinished(status string, duration time.Duration)
	AddOpenPorts(n int)
	ParseError()
}

// sessionState pairs the session snapshot with the coordinator's
// private control fields.
type sessionState struct {
	mu           sync.Mutex
	session      Session
	cancelled    bool
	currentJobID string
}

// Coordinator dispatches session batches. Targets within one session
// run strictly sequentially; concurrency across sessions is bounded by
// the supervisor's registry limit.
type Coordinator struct {
	supervisor *engine.Supervisor
	store      Store
	sink       Sink
	metrics    Metrics
	logger     *logging.Logger
	workDir    string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewCoordinator creates a session coordinator. store, sink, and
// metrics may each be nil when the corresponding collaborator is not
// wired in.
func NewCoordinator(sup *engine.Supervisor, workDir string, store Store, sink Sink, metrics Metrics, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		supervisor: sup,
		store:      store,
		sink:       sink,
		metrics:    metrics,
		logger:     logger.WithComponent("session"),
		workDir:    workDir,
		sessions:   make(map[string]*sessionState),
	}
}

// Start begins a session for the target list and returns its id
// immediately; the batch proceeds on its own goroutine. Submission is
// rejected up front only when the supervisor is already at capacity.
func (c *Coordinator) Start(targetList []targets.Target, opts engine.Options) (string, error) {
	if len(targetList) == 0 {
		return "", scanerrors.NewScanError(scanerrors.CodeValidation, "no targets to scan")
	}
	if c.supervisor.AtCapacity() {
		return "", scanerrors.ErrAtCapacity(c.supervisor.ActiveCount())
	}
	if err := os.MkdirAll(c.workDir, 0750); err != nil {
		return "", scanerrors.WrapScanError(scanerrors.CodeConfiguration,
			"cannot create artifact directory", err)
	}

	state := &sessionState{
		session: Session{
			ID:         uuid.NewString(),
			Targets:    targetList,
			Opts:       opts,
			Status:     StatusRunning,
			TotalCount: len(targetList),
			StartedAt:  time.Now(),
		},
	}

	c.mu.Lock()
	c.sessions[state.session.ID] = state
	c.mu.Unlock()

	go c.run(state)
	return state.session.ID, nil
}

// run is the per-session batch loop. Every target yields exactly one
// result-or-error event; per-target failures never abort the loop. The
// session always terminates as Completed.
func (c *Coordinator) run(state *sessionState) {
	id := state.session.ID
	total := state.session.TotalCount
	start := state.session.StartedAt

	if c.metrics != nil {
		c.metrics.SessionStarted()
	}
	c.emit(Event{Type: EventSessionStarted, SessionID: id, Total: total})
	c.logger.InfoSession("session started", id, "targets", total)
	c.persistSnapshot(state)

	cancelled := false
	for _, target := range state.session.Targets {
		if state.isCancelled() {
			cancelled = true
			break
		}

		completed := state.completedCount()
		elapsed := time.Since(start)
		c.emit(Event{
			Type:          EventProgress,
			SessionID:     id,
			CurrentTarget: target.Address,
			Completed:     completed,
			Total:         total,
			Percentage:    percentage(completed, total),
			ETA:           estimateETA(elapsed, completed, total),
			Elapsed:       formatClock(elapsed),
		})

		c.runTarget(state, target)
		state.incrementCompleted()
		c.persistSnapshot(state)
	}

	state.finish()
	c.persistSnapshot(state)

	if c.metrics != nil {
		c.metrics.SessionFinished(string(StatusCompleted), time.Since(start))
	}
	if cancelled {
		c.emit(Event{Type: EventSessionCancelled, SessionID: id})
	}
	c.emit(Event{
		Type:      EventSessionCompleted,
		SessionID: id,
		Completed: state.completedCount(),
		Total:     total,
	})
	c.logger.InfoSession("session finished", id,
		"completed", state.completedCount(), "total", total, "cancelled", cancelled)
}

// runTarget executes one job and emits its result-or-error event. All
// failure modes are recorded against the target; nothing propagates.
func (c *Coordinator) runTarget(state *sessionState, target targets.Target) {
	id := state.session.ID

	onProgress := func(pct float64, _ string) {
		c.emit(Event{
			Type:          EventProgress,
			SessionID:     id,
			CurrentTarget: target.Address,
			Completed:     state.completedCount(),
			Total:         state.session.TotalCount,
			Percentage:    pct,
		})
	}

	job, err := c.supervisor.Submit(target, state.session.Opts, c.workDir, onProgress)
	if err != nil {
		c.logger.ErrorJob("scan job could not start", target.Address, err, "session_id", id)
		c.emit(Event{
			Type:          EventError,
			SessionID:     id,
			TargetAddress: target.Address,
			Message:       err.Error(),
		})
		return
	}

	state.setCurrentJob(job.ID)
	if state.isCancelled() {
		// A cancel request may have landed between submit and the
		// job id becoming visible; it saw no current job, so settle
		// the score here.
		c.supervisor.Cancel(job.ID)
	}
	result := job.Wait()
	state.setCurrentJob("")

	switch job.State() {
	case engine.StateCompleted:
		if c.metrics != nil {
			c.metrics.AddOpenPorts(result.OpenPortCount)
			if result.ParseError != "" {
				c.metrics.ParseError()
			}
		}
		c.emit(Event{
			Type:          EventResult,
			SessionID:     id,
			TargetAddress: target.Address,
			Result:        result,
		})
		c.persistJobRecord(state, target, result)
	case engine.StateCancelled:
		c.emit(Event{
			Type:          EventError,
			SessionID:     id,
			TargetAddress: target.Address,
			Message:       "scan cancelled",
		})
	default:
		message := "scan process exited abnormally"
		if result.StderrText != "" {
			message = result.StderrText
		}
		c.emit(Event{
			Type:          EventError,
			SessionID:     id,
			TargetAddress: target.Address,
			Message:       message,
		})
	}
}

// Cancel stops the session's currently running job, if any, and marks
// the batch loop to exit. Idempotent: cancelling an unknown or
// finished session returns false.
func (c *Coordinator) Cancel(sessionID string) bool {
	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return false
	}

	jobID, alreadyDone := state.markCancelled()
	if alreadyDone {
		return false
	}

	c.logger.InfoSession("session cancellation requested", sessionID, "current_job", jobID)
	if jobID != "" {
		c.supervisor.Cancel(jobID)
	}
	return true
}

// Get returns a snapshot of the session, or false if unknown.
func (c *Coordinator) Get(sessionID string) (Session, bool) {
	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	return state.snapshot(), true
}

// List returns snapshots of every known session.
func (c *Coordinator) List() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Session, 0, len(c.sessions))
	for _, state := range c.sessions {
		out = append(out, state.snapshot())
	}
	return out
}

func (c *Coordinator) emit(event Event) {
	if c.sink != nil {
		c.sink.Emit(event)
	}
}

func (c *Coordinator) persistSnapshot(state *sessionState) {
	if c.store == nil {
		return
	}
	snapshot := state.snapshot()
	if err := c.store.SaveSession(context.Background(), &snapshot); err != nil {
		c.logger.ErrorSession("failed to persist session snapshot", snapshot.ID, err)
	}
}

func (c *Coordinator) persistJobRecord(state *sessionState, target targets.Target, result *engine.Result) {
	if c.store == nil {
		return
	}
	record := &JobRecord{
		SessionID: state.session.ID,
		Target:    target,
		Opts:      state.session.Opts,
		Result:    result,
		Timestamp: time.Now(),
	}
	if err := c.store.SaveJobRecord(context.Background(), record); err != nil {
		c.logger.ErrorSession("failed to persist job record", state.session.ID, err)
	}
}

func percentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// sessionState accessors. The state mutex covers the snapshot fields
// and the cancellation flag; it is never held across a blocking wait.

func (s *sessionState) snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *sessionState) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.CompletedCount
}

func (s *sessionState) incrementCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.CompletedCount++
}

func (s *sessionState) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Status = StatusCompleted
	s.session.EndedAt = time.Now()
}

func (s *sessionState) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// markCancelled flags the session and returns the current job id to
// cancel. The second return value reports that the session had already
// finished or was already flagged.
func (s *sessionState) markCancelled() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.session.Status == StatusCompleted {
		return "", true
	}
	s.cancelled = true
	return s.currentJobID, false
}

func (s *sessionState) setCurrentJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentJobID = jobID
}
