package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/calendar"
)

// =============================================================================
// SERVICE - Host-side orchestration over a Store
// =============================================================================

// Service wires the pure ledger core to persistence. Every mutation passes
// through Authorize first, runs under a single-writer lock against a fresh
// snapshot, and leaves an audit entry. Reads take no lock.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

type Option func(*Service)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation (tests).
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger.Named("ledger"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the service's notion of the current calendar day.
func (s *Service) Today() calendar.Date { return calendar.TodayAt(s.now()) }

// NewID returns a fresh identifier.
func (s *Service) NewID() string { return s.newID() }

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a consistent read of the three collections.
type Snapshot struct {
	Collaborators []Collaborator
	Entries       []Entry
	Holidays      []calendar.Holiday
}

// Collaborator looks up a collaborator by id.
func (snap Snapshot) Collaborator(id string) (Collaborator, bool) {
	for _, c := range snap.Collaborators {
		if c.ID == id {
			return c, true
		}
	}
	return Collaborator{}, false
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return loadSnapshot(ctx, s.store)
}

func loadSnapshot(ctx context.Context, repo Repository) (Snapshot, error) {
	collaborators, err := repo.LoadCollaborators(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load collaborators: %w", err)
	}
	entries, err := repo.LoadEntries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load entries: %w", err)
	}
	holidays, err := repo.LoadHolidays(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load holidays: %w", err)
	}
	return Snapshot{Collaborators: collaborators, Entries: entries, Holidays: holidays}, nil
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// ListCollaborators returns collaborators sorted by name.
func (s *Service) ListCollaborators(ctx context.Context) ([]Collaborator, error) {
	collaborators, err := s.store.LoadCollaborators(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(collaborators, func(i, j int) bool {
		return strings.ToLower(collaborators[i].Name) < strings.ToLower(collaborators[j].Name)
	})
	return collaborators, nil
}

func (s *Service) GetCollaborator(ctx context.Context, id string) (Collaborator, error) {
	collaborators, err := s.store.LoadCollaborators(ctx)
	if err != nil {
		return Collaborator{}, err
	}
	for _, c := range collaborators {
		if c.ID == id {
			return c, nil
		}
	}
	return Collaborator{}, &NotFoundError{Resource: "collaborator", ID: id}
}

func (s *Service) CreateCollaborator(ctx context.Context, actor Actor, c Collaborator) (Collaborator, error) {
	if err := Authorize(actor, "create collaborators"); err != nil {
		return Collaborator{}, err
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return Collaborator{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collaborators, err := s.store.LoadCollaborators(ctx)
	if err != nil {
		return Collaborator{}, err
	}
	c.ID = s.newID()
	if err := s.store.SaveCollaborators(ctx, append(collaborators, c)); err != nil {
		return Collaborator{}, fmt.Errorf("save collaborators: %w", err)
	}

	s.audit(ctx, actor, AuditCollaboratorCreated, c.ID, "created collaborator "+c.Name)
	return c, nil
}

func (s *Service) UpdateCollaborator(ctx context.Context, actor Actor, id string, c Collaborator) (Collaborator, error) {
	if err := Authorize(actor, "edit collaborators"); err != nil {
		return Collaborator{}, err
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return Collaborator{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collaborators, err := s.store.LoadCollaborators(ctx)
	if err != nil {
		return Collaborator{}, err
	}
	i := indexOf(collaborators, func(x Collaborator) bool { return x.ID == id })
	if i < 0 {
		return Collaborator{}, &NotFoundError{Resource: "collaborator", ID: id}
	}
	c.ID = id
	collaborators[i] = c
	if err := s.store.SaveCollaborators(ctx, collaborators); err != nil {
		return Collaborator{}, fmt.Errorf("save collaborators: %w", err)
	}

	s.audit(ctx, actor, AuditCollaboratorUpdated, id, "edited collaborator "+c.Name)
	return c, nil
}

// DeleteCollaborator removes the collaborator only. Entries referencing it
// are kept and reported with a placeholder name.
func (s *Service) DeleteCollaborator(ctx context.Context, actor Actor, id string) error {
	if err := Authorize(actor, "delete collaborators"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collaborators, err := s.store.LoadCollaborators(ctx)
	if err != nil {
		return err
	}
	i := indexOf(collaborators, func(x Collaborator) bool { return x.ID == id })
	if i < 0 {
		return &NotFoundError{Resource: "collaborator", ID: id}
	}
	name := collaborators[i].Name
	if err := s.store.SaveCollaborators(ctx, removeAt(collaborators, i)); err != nil {
		return fmt.Errorf("save collaborators: %w", err)
	}

	s.audit(ctx, actor, AuditCollaboratorDeleted, id, "deleted collaborator "+name)
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

// ListEntries returns entries newest first by start date. An empty
// collaboratorID returns every entry.
func (s *Service) ListEntries(ctx context.Context, collaboratorID string) ([]Entry, error) {
	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := entries[:0:0]
	for _, e := range entries {
		if collaboratorID == "" || e.CollaboratorID == collaboratorID {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (Entry, error) {
	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, &NotFoundError{Resource: "entry", ID: id}
}

// CreateEntry builds and appends a new entry. When the input carries no
// jurisdiction, the collaborator's current state and sub-unit are snapshotted.
func (s *Service) CreateEntry(ctx context.Context, actor Actor, in EntryInput) (Entry, error) {
	if err := Authorize(actor, "create entries"); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return Entry{}, err
	}
	collab, ok := snap.Collaborator(strings.TrimSpace(in.CollaboratorID))
	if !ok && strings.TrimSpace(in.CollaboratorID) != "" {
		return Entry{}, &ValidationError{Field: "collaborator_id", Message: fmt.Sprintf("unknown collaborator %q", in.CollaboratorID)}
	}
	if in.Jurisdiction.IsZero() {
		in.Jurisdiction = collab.Jurisdiction()
	}

	entry, err := BuildEntry(s.newID(), in, snap.Holidays, s.Today())
	if err != nil {
		s.logger.Debug("entry rejected", zap.String("collaborator_id", in.CollaboratorID), zap.Error(err))
		return Entry{}, err
	}
	if err := s.store.SaveEntries(ctx, append(snap.Entries, entry)); err != nil {
		return Entry{}, fmt.Errorf("save entries: %w", err)
	}

	s.logger.Info("entry created",
		zap.String("entry_id", entry.ID),
		zap.String("collaborator_id", entry.CollaboratorID),
		zap.String("kind", string(entry.Kind)),
		zap.Int("business_days", entry.BusinessDays))
	s.audit(ctx, actor, AuditEntryCreated, entry.ID,
		fmt.Sprintf("recorded %s (%d days) for %s", entry.Kind.Label(), entry.BusinessDays, collab.Name))
	return entry, nil
}

// UpdateEntry replaces an entry wholesale, keeping its id.
func (s *Service) UpdateEntry(ctx context.Context, actor Actor, id string, in EntryInput) (Entry, error) {
	if err := Authorize(actor, "edit entries"); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return Entry{}, err
	}
	i := indexOf(snap.Entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return Entry{}, &NotFoundError{Resource: "entry", ID: id}
	}
	existing := snap.Entries[i]

	collabID := strings.TrimSpace(in.CollaboratorID)
	collab, ok := snap.Collaborator(collabID)
	switch {
	case ok:
		if in.Jurisdiction.IsZero() {
			in.Jurisdiction = collab.Jurisdiction()
		}
	case collabID == existing.CollaboratorID:
		// Collaborator was removed after the entry was recorded.
		if in.Jurisdiction.IsZero() {
			in.Jurisdiction = existing.Jurisdiction
		}
	case collabID != "":
		return Entry{}, &ValidationError{Field: "collaborator_id", Message: fmt.Sprintf("unknown collaborator %q", in.CollaboratorID)}
	}

	entry, err := ReplaceEntry(existing, in, snap.Holidays, s.Today())
	if err != nil {
		return Entry{}, err
	}
	snap.Entries[i] = entry
	if err := s.store.SaveEntries(ctx, snap.Entries); err != nil {
		return Entry{}, fmt.Errorf("save entries: %w", err)
	}

	s.audit(ctx, actor, AuditEntryUpdated, entry.ID,
		fmt.Sprintf("edited %s (%d days)", entry.Kind.Label(), entry.BusinessDays))
	return entry, nil
}

func (s *Service) DeleteEntry(ctx context.Context, actor Actor, id string) error {
	if err := Authorize(actor, "delete entries"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return &NotFoundError{Resource: "entry", ID: id}
	}
	removed := entries[i]
	if err := s.store.SaveEntries(ctx, removeAt(entries, i)); err != nil {
		return fmt.Errorf("save entries: %w", err)
	}

	s.audit(ctx, actor, AuditEntryDeleted, id,
		fmt.Sprintf("deleted %s for collaborator %s", removed.Kind.Label(), removed.CollaboratorID))
	return nil
}

// Balance returns the balance breakdown for one collaborator.
func (s *Service) Balance(ctx context.Context, collaboratorID string) (Summary, error) {
	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(collaboratorID, entries), nil
}

// PreviewMetrics runs the calculator against the current holiday registry.
func (s *Service) PreviewMetrics(ctx context.Context, start, end calendar.Date, j calendar.Jurisdiction) (calendar.Metrics, error) {
	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return calendar.Metrics{}, err
	}
	return calendar.ComputeMetrics(start, end, j, holidays), nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the registry sorted by date.
func (s *Service) ListHolidays(ctx context.Context) ([]calendar.Holiday, error) {
	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays, nil
}

func (s *Service) CreateHoliday(ctx context.Context, actor Actor, h calendar.Holiday) (calendar.Holiday, error) {
	if err := Authorize(actor, "create holidays"); err != nil {
		return calendar.Holiday{}, err
	}
	h = h.Normalize()
	if err := h.Validate(); err != nil {
		return calendar.Holiday{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return calendar.Holiday{}, err
	}
	h.ID = s.newID()
	if err := s.store.SaveHolidays(ctx, append(holidays, h)); err != nil {
		return calendar.Holiday{}, fmt.Errorf("save holidays: %w", err)
	}

	s.audit(ctx, actor, AuditHolidayCreated, h.ID, "created holiday "+h.Name)
	return h, nil
}

// UpdateHoliday overwrites a holiday (last write wins).
func (s *Service) UpdateHoliday(ctx context.Context, actor Actor, id string, h calendar.Holiday) (calendar.Holiday, error) {
	if err := Authorize(actor, "edit holidays"); err != nil {
		return calendar.Holiday{}, err
	}
	h = h.Normalize()
	if err := h.Validate(); err != nil {
		return calendar.Holiday{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return calendar.Holiday{}, err
	}
	i := indexOf(holidays, func(x calendar.Holiday) bool { return x.ID == id })
	if i < 0 {
		return calendar.Holiday{}, &NotFoundError{Resource: "holiday", ID: id}
	}
	h.ID = id
	holidays[i] = h
	if err := s.store.SaveHolidays(ctx, holidays); err != nil {
		return calendar.Holiday{}, fmt.Errorf("save holidays: %w", err)
	}

	s.audit(ctx, actor, AuditHolidayUpdated, id, "edited holiday "+h.Name)
	return h, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, actor Actor, id string) error {
	if err := Authorize(actor, "delete holidays"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return err
	}
	i := indexOf(holidays, func(x calendar.Holiday) bool { return x.ID == id })
	if i < 0 {
		return &NotFoundError{Resource: "holiday", ID: id}
	}
	name := holidays[i].Name
	if err := s.store.SaveHolidays(ctx, removeAt(holidays, i)); err != nil {
		return fmt.Errorf("save holidays: %w", err)
	}

	s.audit(ctx, actor, AuditHolidayDeleted, id, "deleted holiday "+name)
	return nil
}

// SeedDefaultHolidays upserts calendar.DefaultHolidays(year) by id and
// returns how many were written.
func (s *Service) SeedDefaultHolidays(ctx context.Context, actor Actor, year int) (int, error) {
	if err := Authorize(actor, "create holidays"); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holidays, err := s.store.LoadHolidays(ctx)
	if err != nil {
		return 0, err
	}
	defaults := calendar.DefaultHolidays(year)
	for _, d := range defaults {
		if i := indexOf(holidays, func(x calendar.Holiday) bool { return x.ID == d.ID }); i >= 0 {
			holidays[i] = d
		} else {
			holidays = append(holidays, d)
		}
	}
	if err := s.store.SaveHolidays(ctx, holidays); err != nil {
		return 0, fmt.Errorf("save holidays: %w", err)
	}

	s.audit(ctx, actor, AuditHolidayCreated, fmt.Sprintf("defaults-%d", year),
		fmt.Sprintf("seeded %d default holidays for %d", len(defaults), year))
	return len(defaults), nil
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportBatch is what an import plan wants persisted.
type ImportBatch struct {
	NewCollaborators []Collaborator
	Entries          []Entry
	Rejected         int
}

// ImportPlanner turns a snapshot into a batch. It runs under the writer lock
// so collaborator resolution sees the same data that will be written.
type ImportPlanner func(snap Snapshot) (ImportBatch, error)

// Import plans and commits a batch atomically, then records import history.
func (s *Service) Import(ctx context.Context, actor Actor, fileName string, plan ImportPlanner) (ImportRecord, error) {
	if err := Authorize(actor, "import entries"); err != nil {
		return ImportRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ImportRecord{
		ID:        s.newID(),
		At:        s.now(),
		ActorName: actor.Name,
		FileName:  fileName,
		Status:    ImportFailed,
	}

	err := s.store.WithTx(ctx, func(repo Repository) error {
		snap, err := loadSnapshot(ctx, repo)
		if err != nil {
			return err
		}
		batch, err := plan(snap)
		if err != nil {
			return err
		}
		rec.Rejected = batch.Rejected
		if len(batch.Entries) == 0 {
			return &ValidationError{Field: "file", Message: "no valid rows to import"}
		}
		if len(batch.NewCollaborators) > 0 {
			if err := repo.SaveCollaborators(ctx, append(snap.Collaborators, batch.NewCollaborators...)); err != nil {
				return fmt.Errorf("save collaborators: %w", err)
			}
		}
		if err := repo.SaveEntries(ctx, append(snap.Entries, batch.Entries...)); err != nil {
			return fmt.Errorf("save entries: %w", err)
		}
		rec.Imported = len(batch.Entries)
		return nil
	})
	if err == nil {
		rec.Status = ImportSucceeded
	}

	if herr := s.store.AppendImport(ctx, rec); herr != nil {
		s.logger.Warn("failed to record import history", zap.String("file", fileName), zap.Error(herr))
	}
	if err != nil {
		s.logger.Warn("import failed", zap.String("file", fileName), zap.Error(err))
		return rec, err
	}

	s.logger.Info("import committed",
		zap.String("file", fileName),
		zap.Int("imported", rec.Imported),
		zap.Int("rejected", rec.Rejected))
	s.audit(ctx, actor, AuditImport, rec.ID, fmt.Sprintf("imported %d records from %s", rec.Imported, fileName))
	return rec, nil
}

func (s *Service) ImportHistory(ctx context.Context, limit int) ([]ImportRecord, error) {
	return s.store.RecentImports(ctx, limit)
}

// =============================================================================
// AUDIT
// =============================================================================

func (s *Service) AuditTrail(ctx context.Context, limit int) ([]AuditEntry, error) {
	return s.store.RecentAudit(ctx, limit)
}

// AuditTrailBy returns up to limit entries recorded by one actor, newest
// first. limit <= 0 means all.
func (s *Service) AuditTrailBy(ctx context.Context, actorID string, limit int) ([]AuditEntry, error) {
	all, err := s.store.RecentAudit(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []AuditEntry
	for _, e := range all {
		if e.ActorID != actorID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, actor Actor, action AuditAction, subject, detail string) {
	entry := AuditEntry{
		ID:        s.newID(),
		Timestamp: s.now(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// SortNewestFirst orders entries by start date descending, ties by id.
func SortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Start.After(entries[j].Start)
		}
		return entries[i].ID < entries[j].ID
	})
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
