package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	current_version INTEGER NOT NULL,
	replan_task_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS plan_versions (
	plan_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	snapshot TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (plan_id, version),
	FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS plan_history (
	plan_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	trigger_kind TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	changes TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (plan_id, version),
	FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
);
`

// SQLiteStore is the durable VersionStore backed by SQLite in WAL mode.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite-backed store at path. Use
// ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "open sqlite database", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "ping sqlite database", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_MIGRATION_FAILED, "apply plan schema", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

// Create stores version 1 of a new plan.
func (s *SQLiteStore) Create(ctx context.Context, snap *itinerary.Snapshot) error {
	if snap.ID.IsZero() {
		snap.ID = types.NewID()
	}
	snap.Version = 1

	data, err := json.Marshal(snap)
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "marshal snapshot", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plans (id, current_version) VALUES (?, 1)`, snap.ID.String()); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "insert plan", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plan_versions (plan_id, version, snapshot) VALUES (?, 1, ?)`,
		snap.ID.String(), string(data)); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "insert plan version", err)
	}

	if err := tx.Commit(); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "commit plan", err)
	}
	return nil
}

func (s *SQLiteStore) currentVersion(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, planID types.ID) (int, string, error) {
	var version int
	var replanTask string
	err := q.QueryRowContext(ctx,
		`SELECT current_version, replan_task_id FROM plans WHERE id = ?`,
		planID.String()).Scan(&version, &replanTask)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", types.NewError(types.PLAN_NOT_FOUND, fmt.Sprintf("plan %s not found", planID))
	}
	if err != nil {
		return 0, "", types.WrapError(types.STORE_QUERY_FAILED, "load plan row", err)
	}
	return version, replanTask, nil
}

func (s *SQLiteStore) loadVersion(ctx context.Context, planID types.ID, version int) (*itinerary.Snapshot, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		`SELECT snapshot FROM plan_versions WHERE plan_id = ? AND version = ?`,
		planID.String(), version).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.STORE_NOT_FOUND,
			fmt.Sprintf("plan %s has no version %d", planID, version))
	}
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "load plan version", err)
	}

	var snap itinerary.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "decode snapshot", err)
	}
	return &snap, nil
}

// Get returns the current version of a plan.
func (s *SQLiteStore) Get(ctx context.Context, planID types.ID) (*itinerary.Snapshot, error) {
	version, _, err := s.currentVersion(ctx, s.conn, planID)
	if err != nil {
		return nil, err
	}
	return s.loadVersion(ctx, planID, version)
}

// GetVersion returns one retained version.
func (s *SQLiteStore) GetVersion(ctx context.Context, planID types.ID, version int) (*itinerary.Snapshot, error) {
	if _, _, err := s.currentVersion(ctx, s.conn, planID); err != nil {
		return nil, err
	}
	return s.loadVersion(ctx, planID, version)
}

// SaveReplan commits the next version in a single transaction.
func (s *SQLiteStore) SaveReplan(ctx context.Context, planID types.ID, expectedVersion int, snap *itinerary.Snapshot, summary itinerary.ChangeSummary) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "begin transaction", err)
	}
	defer tx.Rollback()

	current, _, err := s.currentVersion(ctx, tx, planID)
	if err != nil {
		return 0, err
	}
	if current != expectedVersion {
		return 0, types.NewError(types.STORE_VERSION_CONFLICT,
			fmt.Sprintf("plan %s is at version %d, expected %d", planID, current, expectedVersion))
	}

	newVersion := expectedVersion + 1
	stored := snap.Clone()
	stored.ID = planID
	stored.Version = newVersion
	data, err := json.Marshal(stored)
	if err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "marshal snapshot", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plan_versions (plan_id, version, snapshot) VALUES (?, ?, ?)`,
		planID.String(), newVersion, string(data)); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "insert plan version", err)
	}

	changes, err := json.Marshal(summary.Changes)
	if err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "marshal changes", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO plan_history (plan_id, version, trigger_kind, summary, changes) VALUES (?, ?, ?, ?, ?)`,
		planID.String(), expectedVersion, string(summary.TriggerKind), summary.AlertMessage,
		string(changes)); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "insert history entry", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE plans SET current_version = ?, replan_task_id = '', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newVersion, planID.String()); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "update plan row", err)
	}

	// Retain only the newest HistoryLimit prior versions.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM plan_history WHERE plan_id = ? AND version NOT IN (
			SELECT version FROM plan_history WHERE plan_id = ? ORDER BY version DESC LIMIT ?
		)`, planID.String(), planID.String(), HistoryLimit); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "prune history", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM plan_versions WHERE plan_id = ? AND version != ? AND version NOT IN (
			SELECT version FROM plan_history WHERE plan_id = ?
		)`, planID.String(), newVersion, planID.String()); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "prune versions", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, types.WrapError(types.STORE_QUERY_FAILED, "commit replan", err)
	}
	return newVersion, nil
}

// History lists retained entries, newest first.
func (s *SQLiteStore) History(ctx context.Context, planID types.ID) ([]itinerary.VersionHistoryEntry, error) {
	if _, _, err := s.currentVersion(ctx, s.conn, planID); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT version, trigger_kind, summary, changes, created_at
		FROM plan_history WHERE plan_id = ? ORDER BY version DESC`,
		planID.String())
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "query history", err)
	}
	defer rows.Close()

	var out []itinerary.VersionHistoryEntry
	for rows.Next() {
		var e itinerary.VersionHistoryEntry
		var kind, changes string
		if err := rows.Scan(&e.Version, &kind, &e.Summary, &changes, &e.CreatedAt); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan history entry", err)
		}
		e.TriggerKind = itinerary.TriggerKind(kind)
		if changes != "" {
			if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
				return nil, types.WrapError(types.STORE_QUERY_FAILED, "decode history changes", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetReplanTask marks an in-flight replan task.
func (s *SQLiteStore) SetReplanTask(ctx context.Context, planID, taskID types.ID) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE plans SET replan_task_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (replan_task_id = '' OR replan_task_id = ?)`,
		taskID.String(), planID.String(), taskID.String())
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "set replan task", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "set replan task", err)
	}
	if n == 0 {
		if _, _, err := s.currentVersion(ctx, s.conn, planID); err != nil {
			return err
		}
		return types.NewError(types.STORE_VERSION_CONFLICT,
			fmt.Sprintf("plan %s already has a replan task in flight", planID))
	}
	return nil
}

// ReplanTask returns the in-flight replan task ID, or the zero ID.
func (s *SQLiteStore) ReplanTask(ctx context.Context, planID types.ID) (types.ID, error) {
	_, task, err := s.currentVersion(ctx, s.conn, planID)
	if err != nil {
		return types.ID(""), err
	}
	return types.ID(task), nil
}

// ClearReplanTask removes a matching marker.
func (s *SQLiteStore) ClearReplanTask(ctx context.Context, planID, taskID types.ID) error {
	_, err := s.conn.ExecContext(ctx, `
		UPDATE plans SET replan_task_id = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND replan_task_id = ?`,
		planID.String(), taskID.String())
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "clear replan task", err)
	}
	return nil
}

// Delete removes a plan and all versions.
func (s *SQLiteStore) Delete(ctx context.Context, planID types.ID) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, planID.String()); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "delete plan", err)
	}
	return nil
}

var _ VersionStore = (*SQLiteStore)(nil)
var _ VersionStore = (*MemoryStore)(nil)
