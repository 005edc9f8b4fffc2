package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/upskill/internal/domain/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	role_id    TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS focus (
	user_id    TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	ts         TEXT NOT NULL,
	event_type TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_user ON audit_log (user_id, seq);

CREATE TABLE IF NOT EXISTS idempotency (
	user_id      TEXT NOT NULL,
	key          TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	body         TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (user_id, key)
);

CREATE TABLE IF NOT EXISTS roles (
	role_id TEXT PRIMARY KEY,
	body    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
	module_id TEXT PRIMARY KEY,
	body      TEXT NOT NULL
);
`

// SQLiteStore persists state in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrStorage)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrStorage, err)
	}
	// One connection keeps writers serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrStorage, pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrStorage, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Driver implements Store.
func (s *SQLiteStore) Driver() string { return DriverSQLite }

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Atomically implements Store.
func (s *SQLiteStore) Atomically(ctx context.Context, fn func(tx Tx) error) (err error) {
	start := time.Now()
	defer func() { observe(DriverSQLite, "tx", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlTx{sqlReader: sqlReader{q: tx}, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// PutRole implements Store.
func (s *SQLiteStore) PutRole(ctx context.Context, role model.RoleRequirements) (err error) {
	start := time.Now()
	defer func() { observe(DriverSQLite, "put_role", start, err) }()

	b, err := encode(role)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roles (role_id, body) VALUES (?, ?)
		 ON CONFLICT(role_id) DO UPDATE SET body = excluded.body`,
		role.RoleID, string(b))
	return wrap("put role", err)
}

// PutModule implements Store.
func (s *SQLiteStore) PutModule(ctx context.Context, module model.ModuleMeta) (err error) {
	start := time.Now()
	defer func() { observe(DriverSQLite, "put_module", start, err) }()

	b, err := encode(module)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO modules (module_id, body) VALUES (?, ?)
		 ON CONFLICT(module_id) DO UPDATE SET body = excluded.body`,
		module.ModuleID, string(b))
	return wrap("put module", err)
}

// CountProfiles implements Store.
func (s *SQLiteStore) CountProfiles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, wrap("count profiles", err)
	}
	return n, nil
}

// LoadProfile implements Reader.
func (s *SQLiteStore) LoadProfile(ctx context.Context, userID string) (*model.UserSkillProfile, error) {
	return sqlReader{q: s.db}.LoadProfile(ctx, userID)
}

// LoadFocus implements Reader.
func (s *SQLiteStore) LoadFocus(ctx context.Context, userID string) (*model.FocusSet, error) {
	return sqlReader{q: s.db}.LoadFocus(ctx, userID)
}

// LoadAudit implements Reader.
func (s *SQLiteStore) LoadAudit(ctx context.Context, userID string) ([]model.AuditEntry, error) {
	return sqlReader{q: s.db}.LoadAudit(ctx, userID)
}

// LoadIdempotency implements Reader.
func (s *SQLiteStore) LoadIdempotency(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error) {
	return sqlReader{q: s.db}.LoadIdempotency(ctx, userID, key)
}

// GetRoleRequirements implements Reader.
func (s *SQLiteStore) GetRoleRequirements(ctx context.Context, roleID string) (*model.RoleRequirements, error) {
	return sqlReader{q: s.db}.GetRoleRequirements(ctx, roleID)
}

// GetModule implements Reader.
func (s *SQLiteStore) GetModule(ctx context.Context, moduleID string) (*model.ModuleMeta, error) {
	return sqlReader{q: s.db}.GetModule(ctx, moduleID)
}

// ListModules implements Reader.
func (s *SQLiteStore) ListModules(ctx context.Context) ([]model.ModuleMeta, error) {
	return sqlReader{q: s.db}.ListModules(ctx)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlReader struct {
	q querier
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// one scans a single JSON body into v, reporting false when no row matched.
func (r sqlReader) one(ctx context.Context, op string, v any, query string, args ...any) (bool, error) {
	var body string
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(op, err)
	}
	return true, decode([]byte(body), v)
}

func (r sqlReader) LoadProfile(ctx context.Context, userID string) (*model.UserSkillProfile, error) {
	var p model.UserSkillProfile
	ok, err := r.one(ctx, "load profile", &p, `SELECT body FROM profiles WHERE user_id = ?`, userID)
	if !ok || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r sqlReader) LoadFocus(ctx context.Context, userID string) (*model.FocusSet, error) {
	var f model.FocusSet
	ok, err := r.one(ctx, "load focus", &f, `SELECT body FROM focus WHERE user_id = ?`, userID)
	if !ok || err != nil {
		return nil, err
	}
	return &f, nil
}

func (r sqlReader) LoadIdempotency(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	ok, err := r.one(ctx, "load idempotency", &rec,
		`SELECT body FROM idempotency WHERE user_id = ? AND key = ?`, userID, key)
	if !ok || err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r sqlReader) GetRoleRequirements(ctx context.Context, roleID string) (*model.RoleRequirements, error) {
	var role model.RoleRequirements
	ok, err := r.one(ctx, "get role", &role, `SELECT body FROM roles WHERE role_id = ?`, roleID)
	if !ok || err != nil {
		return nil, err
	}
	return &role, nil
}

func (r sqlReader) GetModule(ctx context.Context, moduleID string) (*model.ModuleMeta, error) {
	var m model.ModuleMeta
	ok, err := r.one(ctx, "get module", &m, `SELECT body FROM modules WHERE module_id = ?`, moduleID)
	if !ok || err != nil {
		return nil, err
	}
	return &m, nil
}

func (r sqlReader) LoadAudit(ctx context.Context, userID string) ([]model.AuditEntry, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT body FROM audit_log WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, wrap("load audit", err)
	}
	defer rows.Close()

	out := []model.AuditEntry{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, wrap("scan audit", err)
		}
		var e model.AuditEntry
		if err := decode([]byte(body), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrap("iterate audit", rows.Err())
}

func (r sqlReader) ListModules(ctx context.Context) ([]model.ModuleMeta, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT body FROM modules ORDER BY module_id`)
	if err != nil {
		return nil, wrap("list modules", err)
	}
	defer rows.Close()

	out := []model.ModuleMeta{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, wrap("scan module", err)
		}
		var m model.ModuleMeta
		if err := decode([]byte(body), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, wrap("iterate modules", rows.Err())
}

type sqlTx struct {
	sqlReader
	now func() time.Time
}

func (t *sqlTx) SaveProfile(ctx context.Context, p *model.UserSkillProfile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrStorage)
	}
	b, err := encode(p)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO profiles (user_id, role_id, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET role_id = excluded.role_id, body = excluded.body, updated_at = excluded.updated_at`,
		p.UserID, p.RoleID, string(b), t.now().UTC().Format(time.RFC3339Nano))
	return wrap("save profile", err)
}

func (t *sqlTx) UpsertFocus(ctx context.Context, userID string, set model.FocusSet) error {
	b, err := encode(set)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO focus (user_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		userID, string(b), t.now().UTC().Format(time.RFC3339Nano))
	return wrap("upsert focus", err)
}

func (t *sqlTx) AppendAudit(ctx context.Context, userID string, entry *model.AuditEntry) error {
	stamp(entry, t.now())
	b, err := encode(entry)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, ts, event_type, outcome, body) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, userID, entry.TS, entry.EventType, entry.Outcome, string(b))
	return wrap("append audit", err)
}

func (t *sqlTx) StoreIdempotency(ctx context.Context, userID, key string, rec model.IdempotencyRecord) error {
	b, err := encode(rec)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO idempotency (user_id, key, payload_hash, body, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO NOTHING`,
		userID, key, rec.PayloadHash, string(b), t.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return wrap("store idempotency", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: user %s key %s", ErrKeyExists, userID, key)
	}
	return nil
}
