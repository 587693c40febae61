package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/session"
	"github.com/scanwell/scanwell/internal/targets"
)

func newMockStore(t *testing.T) (*SessionStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	wrapped := &DB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return NewSessionStore(wrapped), mock
}

func TestSaveSessionUpsert(t *testing.T) {
	store, mock := newMockStore(t)

	sess := &session.Session{
		ID:             "4f5a1c2e-0000-0000-0000-000000000001",
		Targets:        []targets.Target{{Address: "10.0.0.1"}},
		Status:         session.StatusRunning,
		CompletedCount: 1,
		TotalCount:     3,
		StartedAt:      time.Now(),
	}

	mock.ExpectExec("INSERT INTO scan_sessions").
		WithArgs(sess.ID, "running", 1, 3,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSession(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveJobRecord(t *testing.T) {
	store, mock := newMockStore(t)

	record := &session.JobRecord{
		SessionID: "4f5a1c2e-0000-0000-0000-000000000001",
		Target:    targets.Target{Address: "10.0.0.1"},
		Result: &engine.Result{
			TargetAddress: "10.0.0.1",
			HostStatus:    "up",
			OpenPortCount: 2,
		},
		Timestamp: time.Now(),
	}

	mock.ExpectExec("INSERT INTO scan_results").
		WithArgs(record.SessionID, "10.0.0.1", "up", 2,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveJobRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession(t *testing.T) {
	store, mock := newMockStore(t)

	started := time.Now().Add(-time.Minute)
	ended := time.Now()
	targetsJSON, _ := json.Marshal([]targets.Target{{Address: "10.0.0.1"}})
	optionsJSON, _ := json.Marshal(engine.Options{Preset: engine.PresetFast})

	rows := sqlmock.NewRows([]string{
		"id", "status", "completed_count", "total_count",
		"targets", "options", "started_at", "ended_at",
	}).AddRow("abc", "completed", 1, 1, targetsJSON, optionsJSON, started, &ended)

	mock.ExpectQuery("SELECT (.+) FROM scan_sessions WHERE id").
		WithArgs("abc").
		WillReturnRows(rows)

	sess, err := store.GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, sess.Status)
	assert.Equal(t, 1, sess.CompletedCount)
	require.Len(t, sess.Targets, 1)
	assert.Equal(t, "10.0.0.1", sess.Targets[0].Address)
	assert.Equal(t, engine.PresetFast, sess.Opts.Preset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM scan_sessions WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListResults(t *testing.T) {
	store, mock := newMockStore(t)

	resultJSON, _ := json.Marshal(engine.Result{
		TargetAddress: "10.0.0.1",
		HostStatus:    "up",
		OpenPortCount: 1,
		Services: []engine.ServiceEntry{
			{Port: 22, Protocol: "tcp", State: "open", ServiceName: "ssh"},
		},
	})

	rows := sqlmock.NewRows([]string{
		"id", "session_id", "target_address", "host_status",
		"open_port_count", "result", "options", "created_at",
	}).AddRow(1, "abc", "10.0.0.1", "up", 1, resultJSON, []byte("{}"), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM scan_results WHERE session_id").
		WithArgs("abc").
		WillReturnRows(rows)

	results, err := store.ListResults(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "up", results[0].HostStatus)
	require.Len(t, results[0].Services, 1)
	assert.Equal(t, "ssh", results[0].Services[0].ServiceName)
}

func TestGetSummary(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"total_sessions", "total_results", "hosts_up", "total_open_ports",
	}).AddRow(4, 12, 9, 31)

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	summary, err := store.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalSessions)
	assert.Equal(t, 12, summary.TotalResults)
	assert.Equal(t, 9, summary.HostsUp)
	assert.Equal(t, 31, summary.TotalOpenPorts)
}

func TestSanitizeDBError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{"no rows", sql.ErrNoRows, errors.CodeNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, errors.CodeConflict},
		{"foreign key violation", &pq.Error{Code: "23503"}, errors.CodeValidation},
		{"query canceled", &pq.Error{Code: "57014"}, errors.CodeCanceled},
		{"connection error", &pq.Error{Code: "08006"}, errors.CodeDatabaseConnection},
		{"unknown pq error", &pq.Error{Code: "42P01"}, errors.CodeDatabaseQuery},
		{"generic error", sql.ErrConnDone, errors.CodeDatabaseQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sanitizeDBError("test op", tt.err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}

	assert.NoError(t, sanitizeDBError("noop", nil))
}
