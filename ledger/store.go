/*
store.go - Persistence ports for the ledger

PURPOSE:
  The ledger never imports a storage mechanism. The host injects a Store
  that loads and saves whole collections; the core only ever sees snapshots.

KEY INTERFACES:
  Repository:    Load/Save for collaborators, entries and holidays
  AuditLog:      Who did what when (newest first, bounded)
  ImportHistory: One record per CSV import
  Store:         All of the above plus WithTx for atomic multi-collection writes

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite
*/
package ledger

import (
	"context"
	"time"

	"github.com/opsdesk/vacation-ledger/calendar"
)

const (
	// AuditRetention bounds the audit log.
	AuditRetention = 1000
	// ImportHistoryRetention bounds the import history.
	ImportHistoryRetention = 10
)

// Repository loads and saves whole collections. Save replaces the stored
// collection with the given one.
type Repository interface {
	LoadCollaborators(ctx context.Context) ([]Collaborator, error)
	SaveCollaborators(ctx context.Context, collaborators []Collaborator) error

	LoadEntries(ctx context.Context) ([]Entry, error)
	SaveEntries(ctx context.Context, entries []Entry) error

	LoadHolidays(ctx context.Context) ([]calendar.Holiday, error)
	SaveHolidays(ctx context.Context, holidays []calendar.Holiday) error
}

// =============================================================================
// AUDIT LOG
// =============================================================================

type AuditAction string

const (
	AuditEntryCreated        AuditAction = "entry_created"
	AuditEntryUpdated        AuditAction = "entry_updated"
	AuditEntryDeleted        AuditAction = "entry_deleted"
	AuditCollaboratorCreated AuditAction = "collaborator_created"
	AuditCollaboratorUpdated AuditAction = "collaborator_updated"
	AuditCollaboratorDeleted AuditAction = "collaborator_deleted"
	AuditHolidayCreated      AuditAction = "holiday_created"
	AuditHolidayUpdated      AuditAction = "holiday_updated"
	AuditHolidayDeleted      AuditAction = "holiday_deleted"
	AuditImport              AuditAction = "import"
)

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   string      `json:"actor_id"`
	ActorName string      `json:"actor_name"`
	Action    AuditAction `json:"action"`
	Subject   string      `json:"subject"` // id of the affected record
	Detail    string      `json:"detail"`
}

// AuditLog stores audit entries, keeping at most AuditRetention.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// =============================================================================
// IMPORT HISTORY
// =============================================================================

type ImportStatus string

const (
	ImportSucceeded ImportStatus = "success"
	ImportFailed    ImportStatus = "error"
)

// ImportRecord summarises one import run.
type ImportRecord struct {
	ID        string       `json:"id"`
	At        time.Time    `json:"at"`
	ActorName string       `json:"actor_name"`
	FileName  string       `json:"file_name"`
	Imported  int          `json:"imported"`
	Rejected  int          `json:"rejected"`
	Status    ImportStatus `json:"status"`
}

// ImportHistory stores import records, keeping at most ImportHistoryRetention.
type ImportHistory interface {
	AppendImport(ctx context.Context, rec ImportRecord) error
	RecentImports(ctx context.Context, limit int) ([]ImportRecord, error)
}

// =============================================================================
// STORE
// =============================================================================

// Store is everything the Service needs from persistence.
type Store interface {
	Repository
	AuditLog
	ImportHistory

	// WithTx runs fn against a transactional view. If fn returns an error
	// nothing written through the view is kept.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
