// Package history records an audit trail of cycles a workflow has
// run: when each one started, when it ended, whether it errored, and
// what variables it captured along the way. It is read-only from the
// engine's perspective — a Flow never consults history to decide
// what to do next. History exists for an operator to inspect, not
// for the daemon to resume from.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remindctl/remind/config"
)

// Cycle is one completed or in-flight run of a workflow.
type Cycle struct {
	ID           int64
	WorkflowName string
	StartedAt    time.Time
	EndedAt      *time.Time
	Error        *string
	Variables    map[string]string
}

// Store persists and queries the cycle audit trail.
type Store interface {
	RecordCycleStart(ctx context.Context, workflowName string, startedAt time.Time) (int64, error)
	RecordCycleEnd(ctx context.Context, cycleID int64, endedAt time.Time, cycleErr error, variables map[string]string) error
	RecentCycles(ctx context.Context, workflowName string, limit int) ([]Cycle, error)
	Close() error
}

// New builds a Store from daemon config.
func New(cfg *config.HistoryConfig) (Store, error) {
	if cfg == nil {
		cfg = &config.HistoryConfig{Driver: "sqlite", DSN: config.DefaultSQLiteDSN}
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return newSQLiteStore(cfg.DSN)
	case "postgres":
		return newPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id %s,
	workflow_name TEXT NOT NULL,
	started_at %s NOT NULL,
	ended_at %s,
	error TEXT,
	variables %s
);
`

type sqlStore struct {
	db      *sql.DB
	dialect string
}

func newSQLiteStore(dsn string) (*sqlStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(schema, "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "INTEGER", "TEXT")
	if _, err := db.Exec(stmt); err != nil {
		return nil, err
	}
	return &sqlStore{db: db, dialect: "sqlite"}, nil
}

func (s *sqlStore) RecordCycleStart(ctx context.Context, workflowName string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO cycles (workflow_name, started_at) VALUES (?, ?)`, workflowName, startedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqlStore) RecordCycleEnd(ctx context.Context, cycleID int64, endedAt time.Time, cycleErr error, variables map[string]string) error {
	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return err
	}
	var errMsg *string
	if cycleErr != nil {
		msg := cycleErr.Error()
		errMsg = &msg
	}
	_, err = s.db.ExecContext(ctx, `UPDATE cycles SET ended_at = ?, error = ?, variables = ? WHERE id = ?`,
		endedAt.Unix(), errMsg, string(varsJSON), cycleID)
	return err
}

func (s *sqlStore) RecentCycles(ctx context.Context, workflowName string, limit int) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_name, started_at, ended_at, error, variables FROM cycles WHERE workflow_name = ? ORDER BY started_at DESC LIMIT ?`,
		workflowName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCycles(rows)
}

func (s *sqlStore) Close() error { return s.db.Close() }

func scanCycles(rows *sql.Rows) ([]Cycle, error) {
	var out []Cycle
	for rows.Next() {
		var c Cycle
		var startedAtUnix int64
		var endedAtUnix sql.NullInt64
		var errMsg sql.NullString
		var varsJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.WorkflowName, &startedAtUnix, &endedAtUnix, &errMsg, &varsJSON); err != nil {
			return nil, err
		}
		c.StartedAt = time.Unix(startedAtUnix, 0)
		if endedAtUnix.Valid {
			t := time.Unix(endedAtUnix.Int64, 0)
			c.EndedAt = &t
		}
		if errMsg.Valid {
			c.Error = &errMsg.String
		}
		if varsJSON.Valid && varsJSON.String != "" {
			var vars map[string]string
			if err := json.Unmarshal([]byte(varsJSON.String), &vars); err == nil {
				c.Variables = vars
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type postgresStore struct {
	db *pgxpool.Pool
}

func newPostgresStore(dsn string) (*postgresStore, error) {
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	stmt := `
CREATE TABLE IF NOT EXISTS cycles (
	id BIGSERIAL PRIMARY KEY,
	workflow_name TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ,
	error TEXT,
	variables JSONB
);
`
	if _, err := db.Exec(context.Background(), stmt); err != nil {
		return nil, err
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) RecordCycleStart(ctx context.Context, workflowName string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO cycles (workflow_name, started_at) VALUES ($1, $2) RETURNING id`, workflowName, startedAt).Scan(&id)
	return id, err
}

func (s *postgresStore) RecordCycleEnd(ctx context.Context, cycleID int64, endedAt time.Time, cycleErr error, variables map[string]string) error {
	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return err
	}
	var errMsg *string
	if cycleErr != nil {
		msg := cycleErr.Error()
		errMsg = &msg
	}
	_, err = s.db.Exec(ctx, `UPDATE cycles SET ended_at = $1, error = $2, variables = $3 WHERE id = $4`,
		endedAt, errMsg, varsJSON, cycleID)
	return err
}

func (s *postgresStore) RecentCycles(ctx context.Context, workflowName string, limit int) ([]Cycle, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_name, started_at, ended_at, error, variables FROM cycles WHERE workflow_name = $1 ORDER BY started_at DESC LIMIT $2`,
		workflowName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var c Cycle
		var varsJSON []byte
		if err := rows.Scan(&c.ID, &c.WorkflowName, &c.StartedAt, &c.EndedAt, &c.Error, &varsJSON); err != nil {
			return nil, err
		}
		if len(varsJSON) > 0 {
			var vars map[string]string
			if err := json.Unmarshal(varsJSON, &vars); err == nil {
				c.Variables = vars
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *postgresStore) Close() error {
	s.db.Close()
	return nil
}
