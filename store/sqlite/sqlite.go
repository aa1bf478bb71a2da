/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists collaborators, ledger entries, the holiday registry, the audit log
  and import history in a single SQLite file.

COLLECTION SEMANTICS:
  The ledger works on whole collections: Save* replaces the stored
  collection inside one SQL transaction (DELETE then INSERT), preserving the
  caller's order through a position column. Reads return rows in that order.

KEY TABLES:
  collaborators:  id, name, title, sub_unit, state
  entries:        one row per ledger entry, metrics stored as computed
  holidays:       the registry (scope NATIONAL / STATE / MUNICIPAL)
  audit_log:      append-only, trimmed to ledger.AuditRetention rows
  import_history: append-only, trimmed to ledger.ImportHistoryRetention rows

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, so an
  in-memory database is shared by every call and WithTx sees its own writes.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collaborators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		sub_unit TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	-- No foreign key to collaborators: entries outlive removed collaborators.
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		collaborator_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('INITIAL_BALANCE', 'SCHEDULED', 'DEDUCTION')),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		calendar_days INTEGER NOT NULL,
		business_days INTEGER NOT NULL,
		holidays_count INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		sub_unit TEXT NOT NULL DEFAULT '',
		note TEXT,
		attachment_ref TEXT,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_collaborator
		ON entries(collaborator_id);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		scope TEXT NOT NULL CHECK (scope IN ('NATIONAL', 'STATE', 'MUNICIPAL')),
		state TEXT NOT NULL DEFAULT '',
		sub_unit TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		actor_name TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS import_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		at TEXT NOT NULL,
		actor_name TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		imported INTEGER NOT NULL,
		rejected INTEGER NOT NULL,
		status TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COLLECTIONS (ledger.Repository interface)
// =============================================================================

func (s *Store) LoadCollaborators(ctx context.Context) ([]ledger.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadCollaborators(ctx, s.db)
}

func (s *Store) SaveCollaborators(ctx context.Context, collaborators []ledger.Collaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveCollaborators(ctx, tx, collaborators) })
}

func (s *Store) LoadEntries(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db)
}

func (s *Store) SaveEntries(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveEntries(ctx, tx, entries) })
}

func (s *Store) LoadHolidays(ctx context.Context) ([]calendar.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadHolidays(ctx, s.db)
}

func (s *Store) SaveHolidays(ctx context.Context, holidays []calendar.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveHolidays(ctx, tx, holidays) })
}

func loadCollaborators(ctx context.Context, db dbtx) ([]ledger.Collaborator, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, title, sub_unit, state FROM collaborators ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	var out []ledger.Collaborator
	for rows.Next() {
		var c ledger.Collaborator
		if err := rows.Scan(&c.ID, &c.Name, &c.Title, &c.SubUnit, &c.State); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func saveCollaborators(ctx context.Context, db dbtx, collaborators []ledger.Collaborator) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM collaborators`); err != nil {
		return fmt.Errorf("failed to clear collaborators: %w", err)
	}
	for i, c := range collaborators {
		_, err := db.ExecContext(ctx, `
			INSERT INTO collaborators (id, name, title, sub_unit, state, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, c.Name, c.Title, c.SubUnit, c.State, i)
		if err != nil {
			return fmt.Errorf("failed to insert collaborator %s: %w", c.ID, err)
		}
	}
	return nil
}

func loadEntries(ctx context.Context, db dbtx) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, collaborator_id, kind, start_date, end_date,
		       calendar_days, business_days, holidays_count,
		       state, sub_unit, note, attachment_ref
		FROM entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e             ledger.Entry
		kind          string
		start, end    string
		state, unit   string
		note, attachm sql.NullString
	)
	err := rows.Scan(
		&e.ID, &e.CollaboratorID, &kind, &start, &end,
		&e.CalendarDays, &e.BusinessDays, &e.HolidaysCount,
		&state, &unit, &note, &attachm,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Kind = ledger.Kind(kind)
	if e.Start, err = calendar.ParseDate(start); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	if e.End, err = calendar.ParseDate(end); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Jurisdiction = calendar.Jurisdiction{State: state, SubUnit: unit}
	e.Note = note.String
	e.AttachmentRef = attachm.String
	return e, nil
}

func saveEntries(ctx context.Context, db dbtx, entries []ledger.Entry) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	for i, e := range entries {
		_, err := db.ExecContext(ctx, `
			INSERT INTO entries
			(id, collaborator_id, kind, start_date, end_date,
			 calendar_days, business_days, holidays_count,
			 state, sub_unit, note, attachment_ref, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.ID, e.CollaboratorID, string(e.Kind), e.Start.String(), e.End.String(),
			e.CalendarDays, e.BusinessDays, e.HolidaysCount,
			e.Jurisdiction.State, e.Jurisdiction.SubUnit,
			nullString(e.Note), nullString(e.AttachmentRef), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func loadHolidays(ctx context.Context, db dbtx) ([]calendar.Holiday, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, date, scope, state, sub_unit FROM holidays ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []calendar.Holiday
	for rows.Next() {
		var (
			h       calendar.Holiday
			dateStr string
			scope   string
		)
		if err := rows.Scan(&h.ID, &h.Name, &dateStr, &scope, &h.State, &h.SubUnit); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = calendar.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		h.Scope = calendar.Scope(scope)
		out = append(out, h)
	}
	return out, rows.Err()
}

func saveHolidays(ctx context.Context, db dbtx, holidays []calendar.Holiday) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM holidays`); err != nil {
		return fmt.Errorf("failed to clear holidays: %w", err)
	}
	for i, h := range holidays {
		_, err := db.ExecContext(ctx, `
			INSERT INTO holidays (id, name, date, scope, state, sub_unit, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, h.ID, h.Name, h.Date.String(), string(h.Scope), h.State, h.SubUnit, i)
		if err != nil {
			return fmt.Errorf("failed to insert holiday %s: %w", h.ID, err)
		}
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AppendAudit inserts an entry and trims the log to ledger.AuditRetention.
func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (id, timestamp, actor_id, actor_name, action, subject, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano),
			entry.ActorID, entry.ActorName, string(entry.Action), entry.Subject, entry.Detail)
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return trim(ctx, tx, "audit_log", ledger.AuditRetention)
	})
}

// RecentAudit returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_id, actor_name, action, subject, detail
		FROM audit_log
		ORDER BY seq DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []ledger.AuditEntry
	for rows.Next() {
		var (
			e      ledger.AuditEntry
			ts     string
			action string
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.ActorName, &action, &e.Subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Action = ledger.AuditAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// IMPORT HISTORY
// =============================================================================

func (s *Store) AppendImport(ctx context.Context, rec ledger.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO import_history (id, at, actor_name, file_name, imported, rejected, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.At.UTC().Format(time.RFC3339Nano), rec.ActorName, rec.FileName,
			rec.Imported, rec.Rejected, string(rec.Status))
		if err != nil {
			return fmt.Errorf("failed to append import record: %w", err)
		}
		return trim(ctx, tx, "import_history", ledger.ImportHistoryRetention)
	})
}

func (s *Store) RecentImports(ctx context.Context, limit int) ([]ledger.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, actor_name, file_name, imported, rejected, status
		FROM import_history
		ORDER BY seq DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query import history: %w", err)
	}
	defer rows.Close()

	var out []ledger.ImportRecord
	for rows.Next() {
		var (
			r      ledger.ImportRecord
			at     string
			status string
		)
		if err := rows.Scan(&r.ID, &at, &r.ActorName, &r.FileName, &r.Imported, &r.Rejected, &status); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		r.Status = ledger.ImportStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore reads and writes through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) LoadCollaborators(ctx context.Context) ([]ledger.Collaborator, error) {
	return loadCollaborators(ctx, ts.tx)
}

func (ts *txStore) SaveCollaborators(ctx context.Context, collaborators []ledger.Collaborator) error {
	return saveCollaborators(ctx, ts.tx, collaborators)
}

func (ts *txStore) LoadEntries(ctx context.Context) ([]ledger.Entry, error) {
	return loadEntries(ctx, ts.tx)
}

func (ts *txStore) SaveEntries(ctx context.Context, entries []ledger.Entry) error {
	return saveEntries(ctx, ts.tx, entries)
}

func (ts *txStore) LoadHolidays(ctx context.Context) ([]calendar.Holiday, error) {
	return loadHolidays(ctx, ts.tx)
}

func (ts *txStore) SaveHolidays(ctx context.Context, holidays []calendar.Holiday) error {
	return saveHolidays(ctx, ts.tx, holidays)
}

// Helper functions

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func trim(ctx context.Context, tx *sql.Tx, table string, keep int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE seq NOT IN (SELECT seq FROM %s ORDER BY seq DESC LIMIT ?)`,
		table, table), keep)
	if err != nil {
		return fmt.Errorf("failed to trim %s: %w", table, err)
	}
	return nil
}
