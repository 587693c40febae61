package session

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/targets"
)

// fakeEngine writes a shell script standing in for the scan binary. It
// locates the -oX path and the target address the way the real engine
// receives them, then runs the body.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts require a POSIX shell")
	}

	script := `#!/bin/sh
xml=""
prev=""
target=""
for arg in "$@"; do
  if [ "$prev" = "-oX" ]; then xml="$arg"; fi
  prev="$arg"
  target="$arg"
done
` + body + "\n"

	path := filepath.Join(t.TempDir(), "fake-nmap")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

const upHostBody = `cat > "$xml" <<'EOF'
<?xml version="1.0"?>
<nmaprun>
  <host>
    <status state="up"/>
    <ports>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
    </ports>
  </host>
</nmaprun>
EOF
exit 0`

// recordingSink collects events in emission order.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) byType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// memoryStore collects persisted snapshots and job records.
type memoryStore struct {
	mu       sync.Mutex
	sessions []Session
	records  []JobRecord
}

func (m *memoryStore) SaveSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memoryStore) SaveJobRecord(_ context.Context, r *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func newTestCoordinator(t *testing.T, binary string, sink Sink, store Store) *Coordinator {
	t.Helper()
	builder := engine.NewBuilder(binary, 3)
	sup := engine.NewSupervisor(builder, 4, 200*time.Millisecond, nil)
	return NewCoordinator(sup, t.TempDir(), store, sink, nil, nil)
}

func waitForCompletion(t *testing.T, c *Coordinator, id string) Session {
	t.Helper()
	deadline := time.After(15 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("session did not complete in time")
		case <-time.After(20 * time.Millisecond):
		}
		if s, ok := c.Get(id); ok && s.Status == StatusCompleted {
			return s
		}
	}
}

func TestSessionHappyPath(t *testing.T) {
	sink := &recordingSink{}
	store := &memoryStore{}
	c := newTestCoordinator(t, fakeEngine(t, upHostBody), sink, store)

	id, err := c.Start([]targets.Target{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
	}, engine.Options{Preset: engine.PresetFast})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	final := waitForCompletion(t, c, id)
	assert.Equal(t, 2, final.CompletedCount)
	assert.Equal(t, 2, final.TotalCount)
	assert.False(t, final.EndedAt.IsZero())

	results := sink.byType(EventResult)
	require.Len(t, results, 2)
	assert.Equal(t, "10.0.0.1", results[0].TargetAddress)
	assert.Equal(t, "10.0.0.2", results[1].TargetAddress)
	assert.Equal(t, 1, results[0].Result.OpenPortCount)

	started := sink.byType(EventSessionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, 2, started[0].Total)

	completedEvents := sink.byType(EventSessionCompleted)
	require.Len(t, completedEvents, 1)
	assert.Equal(t, 2, completedEvents[0].Completed)

	assert.Empty(t, sink.byType(EventSessionCancelled))

	// One job record per completed job, in order.
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.records, 2)
	assert.Equal(t, id, store.records[0].SessionID)
	assert.Equal(t, "10.0.0.1", store.records[0].Target.Address)
}

func TestSessionContinuesPastFailedTarget(t *testing.T) {
	// The middle target's process exits non-zero; the batch must keep
	// going and still finish as completed with every target counted.
	binary := fakeEngine(t, `if [ "$target" = "10.0.0.2" ]; then
  echo "host unreachable" >&2
  exit 1
fi
`+upHostBody)

	sink := &recordingSink{}
	c := newTestCoordinator(t, binary, sink, nil)

	id, err := c.Start([]targets.Target{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
		{Address: "10.0.0.3"},
	}, engine.Options{})
	require.NoError(t, err)

	final := waitForCompletion(t, c, id)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 3, final.CompletedCount)

	results := sink.byType(EventResult)
	errs := sink.byType(EventError)
	require.Len(t, results, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "10.0.0.2", errs[0].TargetAddress)
	assert.Contains(t, errs[0].Message, "host unreachable")

	// Exactly one result-or-error event per target, in target order.
	perTarget := append(sink.byType(EventResult), errs...)
	assert.Len(t, perTarget, 3)
}

func TestSessionCancellation(t *testing.T) {
	binary := fakeEngine(t, `if [ "$target" = "10.0.0.1" ]; then
`+upHostBody+`
fi
exec sleep 30`)

	sink := &recordingSink{}
	c := newTestCoordinator(t, binary, sink, nil)

	id, err := c.Start([]targets.Target{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
		{Address: "10.0.0.3"},
	}, engine.Options{})
	require.NoError(t, err)

	// Let the first target finish and the second get stuck.
	require.Eventually(t, func() bool {
		return len(sink.byType(EventResult)) == 1
	}, 10*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.True(t, c.Cancel(id))

	final := waitForCompletion(t, c, id)
	assert.Equal(t, StatusCompleted, final.Status, "cancelled sessions still finish as completed")
	assert.Less(t, final.CompletedCount, final.TotalCount, "partial run is visible in the counts")

	require.Len(t, sink.byType(EventSessionCancelled), 1)
	require.Len(t, sink.byType(EventSessionCompleted), 1)

	// Cancel is idempotent once the session is done.
	assert.False(t, c.Cancel(id))
}

func TestCancelUnknownSession(t *testing.T) {
	c := newTestCoordinator(t, "nmap", nil, nil)
	assert.False(t, c.Cancel("nope"))
}

func TestStartRejectsEmptyTargetList(t *testing.T) {
	c := newTestCoordinator(t, "nmap", nil, nil)
	_, err := c.Start(nil, engine.Options{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.GetCode(err))
}

func TestProgressEventsPrecedeEachTarget(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCoordinator(t, fakeEngine(t, upHostBody), sink, nil)

	id, err := c.Start([]targets.Target{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
	}, engine.Options{})
	require.NoError(t, err)
	waitForCompletion(t, c, id)

	progress := sink.byType(EventProgress)
	require.GreaterOrEqual(t, len(progress), 2)
	assert.Equal(t, "10.0.0.1", progress[0].CurrentTarget)
	assert.Equal(t, etaNotReady, progress[0].ETA, "no average exists before the first completion")
}

func TestEstimateETA(t *testing.T) {
	tests := []struct {
		name      string
		elapsed   time.Duration
		completed int
		total     int
		want      string
	}{
		{"nothing completed", time.Minute, 0, 5, "Calculating..."},
		{"half done", 2 * time.Minute, 2, 4, "02:00"},
		{"almost done", 90 * time.Second, 3, 4, "00:30"},
		{"all done", time.Minute, 4, 4, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateETA(tt.elapsed, tt.completed, tt.total))
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", formatClock(0))
	assert.Equal(t, "00:59", formatClock(59*time.Second))
	assert.Equal(t, "02:05", formatClock(125*time.Second))
	assert.Equal(t, "00:00", formatClock(-time.Second))
}
