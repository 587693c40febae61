package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/session"
)

// SessionStore persists sessions and job results. It implements the
// session coordinator's Store boundary and adds the read side used for
// aggregation and reporting.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store on the given connection.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// sessionRow is the scan_sessions table shape.
type sessionRow struct {
	ID             string          `db:"id"`
	Status         string          `db:"status"`
	CompletedCount int             `db:"completed_count"`
	TotalCount     int             `db:"total_count"`
	Targets        json.RawMessage `db:"targets"`
	Options        json.RawMessage `db:"options"`
	StartedAt      time.Time       `db:"started_at"`
	EndedAt        *time.Time      `db:"ended_at"`
}

// resultRow is the scan_results table shape.
type resultRow struct {
	ID            int64           `db:"id"`
	SessionID     string          `db:"session_id"`
	TargetAddress string          `db:"target_address"`
	HostStatus    string          `db:"host_status"`
	OpenPortCount int             `db:"open_port_count"`
	Result        json.RawMessage `db:"result"`
	Options       json.RawMessage `db:"options"`
	CreatedAt     time.Time       `db:"created_at"`
}

// SaveSession upserts the session snapshot. Called after every
// processed target, so it must tolerate repeated writes for one id.
func (s *SessionStore) SaveSession(ctx context.Context, sess *session.Session) error {
	targetsJSON, err := json.Marshal(sess.Targets)
	if err != nil {
		return sanitizeDBError("marshal session targets", err)
	}
	optionsJSON, err := json.Marshal(sess.Opts)
	if err != nil {
		return sanitizeDBError("marshal session options", err)
	}

	var endedAt *time.Time
	if !sess.EndedAt.IsZero() {
		endedAt = &sess.EndedAt
	}

	query := `
		INSERT INTO scan_sessions
			(id, status, completed_count, total_count, targets, options, started_at, ended_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_count = EXCLUDED.completed_count,
			ended_at = EXCLUDED.ended_at,
			updated_at = now()`

	_, err = s.db.ExecContext(ctx, query,
		sess.ID, string(sess.Status), sess.CompletedCount, sess.TotalCount,
		targetsJSON, optionsJSON, sess.StartedAt, endedAt)
	return sanitizeDBError("save session", err)
}

// SaveJobRecord inserts one completed job's result.
func (s *SessionStore) SaveJobRecord(ctx context.Context, record *session.JobRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return sanitizeDBError("marshal job result", err)
	}
	optionsJSON, err := json.Marshal(record.Opts)
	if err != nil {
		return sanitizeDBError("marshal job options", err)
	}

	query := `
		INSERT INTO scan_results
			(session_id, target_address, host_status, open_port_count, result, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.db.ExecContext(ctx, query,
		record.SessionID, record.Target.Address,
		record.Result.HostStatus, record.Result.OpenPortCount,
		resultJSON, optionsJSON, record.Timestamp)
	return sanitizeDBError("save job record", err)
}

// GetSession loads one persisted session snapshot.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var row sessionRow
	query := `
		SELECT id, status, completed_count, total_count, targets, options, started_at, ended_at
		FROM scan_sessions WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, sanitizeDBError("get session", err)
	}
	return rowToSession(&row)
}

// ListSessions returns persisted session snapshots, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, limit int) ([]*session.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []sessionRow
	query := `
		SELECT id, status, completed_count, total_count, targets, options, started_at, ended_at
		FROM scan_sessions ORDER BY started_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, sanitizeDBError("list sessions", err)
	}

	out := make([]*session.Session, 0, len(rows))
	for i := range rows {
		sess, err := rowToSession(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// ListResults returns the stored results for one session in insertion
// order, which matches target order.
func (s *SessionStore) ListResults(ctx context.Context, sessionID string) ([]*engine.Result, error) {
	var rows []resultRow
	query := `
		SELECT id, session_id, target_address, host_status, open_port_count, result, options, created_at
		FROM scan_results WHERE session_id = $1 ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, sanitizeDBError("list results", err)
	}

	out := make([]*engine.Result, 0, len(rows))
	for i := range rows {
		var result engine.Result
		if err := json.Unmarshal(rows[i].Result, &result); err != nil {
			return nil, sanitizeDBError("decode job result", err)
		}
		out = append(out, &result)
	}
	return out, nil
}

// Summary aggregates stored results into simple report counters.
type Summary struct {
	TotalSessions  int `db:"total_sessions" json:"total_sessions"`
	TotalResults   int `db:"total_results" json:"total_results"`
	HostsUp        int `db:"hosts_up" json:"hosts_up"`
	TotalOpenPorts int `db:"total_open_ports" json:"total_open_ports"`
}

// GetSummary computes aggregate counters across all stored scans.
func (s *SessionStore) GetSummary(ctx context.Context) (*Summary, error) {
	var summary Summary
	query := `
		SELECT
			(SELECT COUNT(*) FROM scan_sessions) AS total_sessions,
			COUNT(*) AS total_results,
			COUNT(*) FILTER (WHERE host_status = 'up') AS hosts_up,
			COALESCE(SUM(open_port_count), 0) AS total_open_ports
		FROM scan_results`
	if err := s.db.GetContext(ctx, &summary, query); err != nil {
		return nil, sanitizeDBError("get summary", err)
	}
	return &summary, nil
}

func rowToSession(row *sessionRow) (*session.Session, error) {
	sess := &session.Session{
		ID:             row.ID,
		Status:         session.Status(row.Status),
		CompletedCount: row.CompletedCount,
		TotalCount:     row.TotalCount,
		StartedAt:      row.StartedAt,
	}
	if row.EndedAt != nil {
		sess.EndedAt = *row.EndedAt
	}
	if len(row.Targets) > 0 {
		if err := json.Unmarshal(row.Targets, &sess.Targets); err != nil {
			return nil, sanitizeDBError("decode session targets", err)
		}
	}
	if len(row.Options) > 0 {
		if err := json.Unmarshal(row.Options, &sess.Opts); err != nil {
			return nil, sanitizeDBError("decode session options", err)
		}
	}
	return sess, nil
}
