package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	sp    = calendar.NewJurisdiction("SP", "Sede")
	today = calendar.MustParseDate("2024-06-15")
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

func intPtr(n int) *int { return &n }

func nationalNewYear() []calendar.Holiday {
	return []calendar.Holiday{{
		ID:    "h-ny",
		Name:  "Confraternização Universal",
		Date:  d("2024-01-01"),
		Scope: calendar.ScopeNational,
	}}
}

func initial(id, collab string, days int) ledger.Entry {
	e, err := ledger.BuildEntry(id, ledger.EntryInput{
		CollaboratorID: collab,
		Kind:           ledger.KindInitialBalance,
		ManualDays:     intPtr(days),
	}, nil, today)
	if err != nil {
		panic(err)
	}
	return e
}

// =============================================================================
// BUILD ENTRY
// =============================================================================

func TestBuildEntry_InitialBalance(t *testing.T) {
	// GIVEN: An initial balance of 30 with no dates
	in := ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindInitialBalance,
		ManualDays:     intPtr(30),
		Jurisdiction:   sp,
	}

	// WHEN: Building the entry
	e, err := ledger.BuildEntry("e1", in, nationalNewYear(), today)

	// THEN: Manual days become business days; other metrics are zero
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, 30, e.BusinessDays)
	assert.Equal(t, 0, e.CalendarDays)
	assert.Equal(t, 0, e.HolidaysCount)
	assert.True(t, e.Start.Equal(today), "missing start falls back to today")
	assert.True(t, e.End.Equal(e.Start))
}

func TestBuildEntry_InitialBalanceStartFallsBackToEnd(t *testing.T) {
	e, err := ledger.BuildEntry("e1", ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindInitialBalance,
		End:            d("2024-03-01"),
		ManualDays:     intPtr(0),
	}, nil, today)

	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", e.Start.String())
	assert.Equal(t, "2024-03-01", e.End.String())
	assert.Equal(t, 0, e.BusinessDays)
}

func TestBuildEntry_NegativeInitialBalanceRejected(t *testing.T) {
	// GIVEN: A manual amount of -1
	in := ledger.EntryInput{CollaboratorID: "c1", Kind: ledger.KindInitialBalance, ManualDays: intPtr(-1)}

	// WHEN: Building the entry
	_, err := ledger.BuildEntry("e1", in, nil, today)

	// THEN: A validation error is returned
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrValidation))
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "manual_days", verr.Field)
}

func TestBuildEntry_InitialBalanceRequiresDays(t *testing.T) {
	_, err := ledger.BuildEntry("e1", ledger.EntryInput{CollaboratorID: "c1", Kind: ledger.KindInitialBalance}, nil, today)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestBuildEntry_ScheduledDerivesMetrics(t *testing.T) {
	// GIVEN: Dec 30 2023 to Jan 2 2024 with New Year's Day as a national holiday
	in := ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindScheduled,
		Start:          d("2023-12-30"),
		End:            d("2024-01-02"),
		Jurisdiction:   sp,
		ManualDays:     intPtr(99), // ignored for derived kinds
	}

	// WHEN: Building the entry
	e, err := ledger.BuildEntry("e1", in, nationalNewYear(), today)

	// THEN: Sat, Sun and the holiday are excluded
	require.NoError(t, err)
	assert.Equal(t, calendar.Metrics{CalendarDays: 4, BusinessDays: 1, HolidaysCount: 1}, e.Metrics())
	assert.Equal(t, sp, e.Jurisdiction)
}

func TestBuildEntry_WeekendOnlyRangeIsZeroDuration(t *testing.T) {
	// GIVEN: A Saturday-Sunday deduction
	in := ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindDeduction,
		Start:          d("2024-01-06"),
		End:            d("2024-01-07"),
		Jurisdiction:   sp,
	}

	// WHEN: Building the entry
	_, err := ledger.BuildEntry("e1", in, nil, today)

	// THEN: It is rejected as zero-duration
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrZeroDuration))
	assert.True(t, ledger.IsClientError(err))
}

func TestBuildEntry_EndBeforeStart(t *testing.T) {
	_, err := ledger.BuildEntry("e1", ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindScheduled,
		Start:          d("2024-02-10"),
		End:            d("2024-02-01"),
	}, nil, today)

	var rerr *ledger.InvalidRangeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "2024-02-10", rerr.Start.String())
}

func TestBuildEntry_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		in    ledger.EntryInput
		field string
	}{
		{"missing collaborator", ledger.EntryInput{Kind: ledger.KindScheduled, Start: d("2024-01-02"), End: d("2024-01-03")}, "collaborator_id"},
		{"unknown kind", ledger.EntryInput{CollaboratorID: "c1", Kind: "BONUS"}, "kind"},
		{"missing start", ledger.EntryInput{CollaboratorID: "c1", Kind: ledger.KindScheduled, End: d("2024-01-03")}, "start_date"},
		{"missing end", ledger.EntryInput{CollaboratorID: "c1", Kind: ledger.KindDeduction, Start: d("2024-01-03")}, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.BuildEntry("e1", tt.in, nil, today)
			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestReplaceEntry_KeepsID(t *testing.T) {
	// GIVEN: An existing scheduled entry
	orig, err := ledger.BuildEntry("keep-me", ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindScheduled,
		Start:          d("2024-01-08"),
		End:            d("2024-01-12"),
		Jurisdiction:   sp,
	}, nil, today)
	require.NoError(t, err)

	// WHEN: Replacing it with a shorter range
	in := orig.Input()
	in.End = d("2024-01-09")
	replaced, err := ledger.ReplaceEntry(orig, in, nil, today)

	// THEN: Same id, new metrics
	require.NoError(t, err)
	assert.Equal(t, "keep-me", replaced.ID)
	assert.Equal(t, 2, replaced.BusinessDays)
}

func TestReplaceEntry_ValidatesLikeBuild(t *testing.T) {
	orig := initial("e1", "c1", 10)
	in := orig.Input()
	in.ManualDays = intPtr(-5)

	_, err := ledger.ReplaceEntry(orig, in, nil, today)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestEntryInput_RoundTripIsIdempotent(t *testing.T) {
	entries := []ledger.Entry{
		initial("e1", "c1", 30),
	}
	e, err := ledger.BuildEntry("e2", ledger.EntryInput{
		CollaboratorID: "c1",
		Kind:           ledger.KindDeduction,
		Start:          d("2023-12-29"),
		End:            d("2024-01-03"),
		Jurisdiction:   sp,
		Note:           "  year end  ",
	}, nationalNewYear(), today)
	require.NoError(t, err)
	entries = append(entries, e)

	for _, orig := range entries {
		rebuilt, err := ledger.BuildEntry(orig.ID, orig.Input(), nationalNewYear(), today)
		require.NoError(t, err)
		assert.Equal(t, orig, rebuilt, "rebuilding %s must not change it", orig.ID)
	}
}

// =============================================================================
// KINDS AND ROLES
// =============================================================================

func TestParseKind(t *testing.T) {
	tests := map[string]ledger.Kind{
		"INITIAL_BALANCE":             ledger.KindInitialBalance,
		"scheduled":                   ledger.KindScheduled,
		"Desconto do saldo de férias": ledger.KindDeduction,
		" saldo inicial ":             ledger.KindInitialBalance,
	}
	for in, want := range tests {
		got, err := ledger.ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ledger.ParseKind("bonus")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAuthorize(t *testing.T) {
	admin := ledger.Actor{ID: "a1", Name: "Ana", Role: ledger.ParseRole("admin")}
	reader := ledger.Actor{ID: "r1", Name: "Rui", Role: ledger.ParseRole("anything")}

	assert.NoError(t, ledger.Authorize(admin, "create entries"))

	err := ledger.Authorize(reader, "create entries")
	require.Error(t, err)
	assert.True(t, ledger.IsUnauthorized(err))
	assert.False(t, ledger.IsClientError(err))
	assert.Equal(t, ledger.RoleReadOnly, reader.Role)
}

func TestCollaboratorValidate(t *testing.T) {
	c := ledger.Collaborator{Name: "  Maria ", State: "rj"}.Normalize()
	assert.Equal(t, "Maria", c.Name)
	assert.Equal(t, "RJ", c.State)
	assert.NoError(t, c.Validate())

	assert.ErrorIs(t, ledger.Collaborator{State: "SP"}.Validate(), ledger.ErrValidation)
	assert.ErrorIs(t, ledger.Collaborator{Name: "X", State: "São Paulo"}.Validate(), ledger.ErrValidation)
}
