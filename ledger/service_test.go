package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
	"github.com/opsdesk/vacation-ledger/ledger/store"
)

var (
	admin  = ledger.Actor{ID: "u-admin", Name: "Ana Admin", Role: ledger.RoleAdmin}
	reader = ledger.Actor{ID: "u-read", Name: "Rui Reader", Role: ledger.RoleReadOnly}
)

func newTestService(t *testing.T) (*ledger.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	n := 0
	svc := ledger.NewService(mem, nil,
		ledger.WithClock(func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
	return svc, mem
}

func TestService_EntryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	// GIVEN: A collaborator in SP with an initial balance of 30
	c, err := svc.CreateCollaborator(ctx, admin, ledger.Collaborator{Name: "Maria", Title: "Analista", SubUnit: "Sede", State: "sp"})
	require.NoError(t, err)
	assert.Equal(t, "SP", c.State)

	_, err = svc.CreateEntry(ctx, admin, ledger.EntryInput{CollaboratorID: c.ID, Kind: ledger.KindInitialBalance, ManualDays: intPtr(30)})
	require.NoError(t, err)

	// WHEN: Recording a 5-day scheduled week and a 3-day deduction
	sched, err := svc.CreateEntry(ctx, admin, ledger.EntryInput{
		CollaboratorID: c.ID, Kind: ledger.KindScheduled, Start: d("2024-01-08"), End: d("2024-01-12"),
	})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, admin, ledger.EntryInput{
		CollaboratorID: c.ID, Kind: ledger.KindDeduction, Start: d("2024-02-05"), End: d("2024-02-07"),
	})
	require.NoError(t, err)

	// THEN: The jurisdiction was snapshotted and the balance is 32
	assert.Equal(t, calendar.NewJurisdiction("SP", "Sede"), sched.Jurisdiction)
	summary, err := svc.Balance(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, summary.Available())

	// AND: Listing is newest first
	list, err := svc.ListEntries(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-06-15", list[0].Start.String()) // initial balance dated today
	assert.Equal(t, "2024-02-05", list[1].Start.String())

	// WHEN: Editing the scheduled entry down to two days
	in := sched.Input()
	in.End = d("2024-01-09")
	updated, err := svc.UpdateEntry(ctx, admin, sched.ID, in)
	require.NoError(t, err)
	assert.Equal(t, sched.ID, updated.ID)

	summary, _ = svc.Balance(ctx, c.ID)
	assert.Equal(t, 29, summary.Available())

	// WHEN: Deleting it
	require.NoError(t, svc.DeleteEntry(ctx, admin, sched.ID))
	summary, _ = svc.Balance(ctx, c.ID)
	assert.Equal(t, 27, summary.Available())

	// THEN: Every mutation was audited, newest first
	trail, err := svc.AuditTrail(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trail, 6)
	assert.Equal(t, ledger.AuditEntryDeleted, trail[0].Action)
	assert.Equal(t, ledger.AuditCollaboratorCreated, trail[5].Action)
	assert.Equal(t, "Ana Admin", trail[0].ActorName)
}

func TestService_ReadOnlyActorCannotMutate(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	c, err := svc.CreateCollaborator(ctx, admin, ledger.Collaborator{Name: "Maria", State: "SP"})
	require.NoError(t, err)

	_, err = svc.CreateEntry(ctx, reader, ledger.EntryInput{CollaboratorID: c.ID, Kind: ledger.KindInitialBalance, ManualDays: intPtr(5)})
	assert.True(t, ledger.IsUnauthorized(err))
	_, err = svc.CreateHoliday(ctx, reader, calendar.Holiday{Name: "X", Date: d("2024-03-01"), Scope: calendar.ScopeNational})
	assert.True(t, ledger.IsUnauthorized(err))
	assert.True(t, ledger.IsUnauthorized(svc.DeleteCollaborator(ctx, reader, c.ID)))

	entries, _ := mem.LoadEntries(ctx)
	assert.Empty(t, entries)

	// Reads stay open
	_, err = svc.ListCollaborators(ctx)
	assert.NoError(t, err)
}

func TestService_ZeroDurationLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	c, _ := svc.CreateCollaborator(ctx, admin, ledger.Collaborator{Name: "Maria", State: "SP"})

	_, err := svc.CreateEntry(ctx, admin, ledger.EntryInput{
		CollaboratorID: c.ID, Kind: ledger.KindDeduction, Start: d("2024-01-06"), End: d("2024-01-07"),
	})

	assert.ErrorIs(t, err, ledger.ErrZeroDuration)
	entries, _ := mem.LoadEntries(ctx)
	assert.Empty(t, entries)
}

func TestService_UnknownCollaborator(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateEntry(context.Background(), admin, ledger.EntryInput{
		CollaboratorID: "ghost", Kind: ledger.KindInitialBalance, ManualDays: intPtr(1),
	})
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "collaborator_id", verr.Field)
}

func TestService_DeleteCollaboratorKeepsEntries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c, _ := svc.CreateCollaborator(ctx, admin, ledger.Collaborator{Name: "Maria", State: "RJ"})
	e, err := svc.CreateEntry(ctx, admin, ledger.EntryInput{CollaboratorID: c.ID, Kind: ledger.KindInitialBalance, ManualDays: intPtr(12)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCollaborator(ctx, admin, c.ID))

	_, err = svc.GetCollaborator(ctx, c.ID)
	assert.True(t, ledger.IsNotFound(err))
	summary, _ := svc.Balance(ctx, c.ID)
	assert.Equal(t, 12, summary.Available())

	// Entries of a removed collaborator remain editable
	in := e.Input()
	in.ManualDays = intPtr(15)
	_, err = svc.UpdateEntry(ctx, admin, e.ID, in)
	assert.NoError(t, err)
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.True(t, ledger.IsNotFound(svc.DeleteEntry(ctx, admin, "nope")))
	assert.True(t, ledger.IsNotFound(svc.DeleteHoliday(ctx, admin, "nope")))
	_, err := svc.UpdateCollaborator(ctx, admin, "nope", ledger.Collaborator{Name: "X", State: "SP"})
	assert.True(t, ledger.IsNotFound(err))
}

func TestService_HolidaysAffectNewEntriesOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c, _ := svc.CreateCollaborator(ctx, admin, ledger.Collaborator{Name: "Maria", State: "SP"})

	// GIVEN: An entry recorded before a holiday exists
	before, err := svc.CreateEntry(ctx, admin, ledger.EntryInput{
		CollaboratorID: c.ID, Kind: ledger.KindScheduled, Start: d("2024-07-08"), End: d("2024-07-12"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, before.BusinessDays)

	// WHEN: Seeding defaults (includes the SP holiday on July 9)
	n, err := svc.SeedDefaultHolidays(ctx, admin, 2024)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	// THEN: The stored entry keeps its metrics
	got, err := svc.GetEntry(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BusinessDays)

	// AND: The calculator now sees the holiday
	m, err := svc.PreviewMetrics(ctx, d("2024-07-08"), d("2024-07-12"), calendar.NewJurisdiction("SP", ""))
	require.NoError(t, err)
	assert.Equal(t, 4, m.BusinessDays)

	// AND: Seeding twice does not duplicate
	_, err = svc.SeedDefaultHolidays(ctx, admin, 2024)
	require.NoError(t, err)
	holidays, _ := svc.ListHolidays(ctx)
	assert.Len(t, holidays, n)
	for i := 1; i < len(holidays); i++ {
		assert.False(t, holidays[i].Date.Before(holidays[i-1].Date))
	}
}

func TestService_HolidayCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	h, err := svc.CreateHoliday(ctx, admin, calendar.Holiday{Name: "Aniversário", Date: d("2024-01-25"), Scope: calendar.ScopeMunicipal, State: "sp", SubUnit: "Sede"})
	require.NoError(t, err)
	assert.Equal(t, "SP", h.State)

	h.Name = "Aniversário de São Paulo"
	updated, err := svc.UpdateHoliday(ctx, admin, h.ID, h)
	require.NoError(t, err)
	assert.Equal(t, h.ID, updated.ID)

	_, err = svc.CreateHoliday(ctx, admin, calendar.Holiday{Name: "Bad", Date: d("2024-01-25"), Scope: calendar.ScopeState})
	assert.True(t, ledger.IsClientError(err), "state holiday without state")

	require.NoError(t, svc.DeleteHoliday(ctx, admin, h.ID))
	holidays, _ := svc.ListHolidays(ctx)
	assert.Empty(t, holidays)
}

func TestService_ImportIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	// GIVEN: A planner that fails after resolving collaborators
	boom := errors.New("boom")
	_, err := svc.Import(ctx, admin, "bad.csv", func(snap ledger.Snapshot) (ledger.ImportBatch, error) {
		return ledger.ImportBatch{}, boom
	})

	// THEN: Nothing is written and a failed record is kept
	assert.ErrorIs(t, err, boom)
	collaborators, _ := mem.LoadCollaborators(ctx)
	assert.Empty(t, collaborators)
	history, _ := svc.ImportHistory(ctx, 10)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.ImportFailed, history[0].Status)

	// WHEN: A planner returns a valid batch
	rec, err := svc.Import(ctx, admin, "ok.csv", func(snap ledger.Snapshot) (ledger.ImportBatch, error) {
		return ledger.ImportBatch{
			NewCollaborators: []ledger.Collaborator{{ID: "c-new", Name: "João", State: "SP"}},
			Entries:          []ledger.Entry{initial("e-new", "c-new", 30)},
			Rejected:         2,
		}, nil
	})

	// THEN: Both collections are committed together
	require.NoError(t, err)
	assert.Equal(t, ledger.ImportSucceeded, rec.Status)
	assert.Equal(t, 1, rec.Imported)
	assert.Equal(t, 2, rec.Rejected)
	summary, _ := svc.Balance(ctx, "c-new")
	assert.Equal(t, 30, summary.Available())

	history, _ = svc.ImportHistory(ctx, 10)
	require.Len(t, history, 2)
	assert.Equal(t, "ok.csv", history[0].FileName)
}

func TestService_ImportWithNoValidRows(t *testing.T) {
	svc, _ := newTestService(t)
	rec, err := svc.Import(context.Background(), admin, "empty.csv", func(ledger.Snapshot) (ledger.ImportBatch, error) {
		return ledger.ImportBatch{Rejected: 3}, nil
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.Equal(t, ledger.ImportFailed, rec.Status)
	assert.Equal(t, 3, rec.Rejected)
}
