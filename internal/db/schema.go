package db

import "context"

// schema is applied at startup. Statements are idempotent so repeated
// startups against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS scan_sessions (
		id              UUID PRIMARY KEY,
		status          TEXT NOT NULL,
		completed_count INTEGER NOT NULL DEFAULT 0,
		total_count     INTEGER NOT NULL DEFAULT 0,
		targets         JSONB NOT NULL DEFAULT '[]',
		options         JSONB NOT NULL DEFAULT '{}',
		started_at      TIMESTAMPTZ NOT NULL,
		ended_at        TIMESTAMPTZ,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS scan_results (
		id              BIGSERIAL PRIMARY KEY,
		session_id      UUID NOT NULL REFERENCES scan_sessions(id) ON DELETE CASCADE,
		target_address  TEXT NOT NULL,
		host_status     TEXT NOT NULL,
		open_port_count INTEGER NOT NULL DEFAULT 0,
		result          JSONB NOT NULL,
		options         JSONB NOT NULL DEFAULT '{}',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_session
		ON scan_results(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_target
		ON scan_results(target_address)`,
}

// EnsureSchema creates the scanwell tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return sanitizeDBError("ensure schema", err)
		}
	}
	return nil
}
