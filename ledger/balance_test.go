package ledger_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/vacation-ledger/ledger"
)

func fixedEntry(id, collab string, kind ledger.Kind, days int) ledger.Entry {
	return ledger.Entry{ID: id, CollaboratorID: collab, Kind: kind, BusinessDays: days}
}

func TestCurrentBalance_InitialScheduledDeduction(t *testing.T) {
	// GIVEN: INITIAL 30, SCHEDULED 5, DEDUCTION 3
	entries := []ledger.Entry{
		fixedEntry("e1", "c1", ledger.KindInitialBalance, 30),
		fixedEntry("e2", "c1", ledger.KindScheduled, 5),
		fixedEntry("e3", "c1", ledger.KindDeduction, 3),
		fixedEntry("e4", "other", ledger.KindDeduction, 100),
	}

	// WHEN: Computing the balance
	s := ledger.Summarize("c1", entries)

	// THEN: 30 + 5 - 3 = 32 and other collaborators are ignored
	assert.Equal(t, 30, s.Initial)
	assert.Equal(t, 5, s.Scheduled)
	assert.Equal(t, 3, s.Deducted)
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 32, s.Available())
	assert.Equal(t, 32, ledger.CurrentBalance("c1", entries))
}

func TestCurrentBalance_EmptyLedger(t *testing.T) {
	assert.Equal(t, 0, ledger.CurrentBalance("c1", nil))
}

func TestCurrentBalance_CanGoNegative(t *testing.T) {
	entries := []ledger.Entry{
		fixedEntry("e1", "c1", ledger.KindInitialBalance, 2),
		fixedEntry("e2", "c1", ledger.KindDeduction, 5),
	}
	assert.Equal(t, -3, ledger.CurrentBalance("c1", entries))
}

func TestCurrentBalance_OrderIndependent(t *testing.T) {
	entries := []ledger.Entry{
		fixedEntry("e1", "c1", ledger.KindInitialBalance, 30),
		fixedEntry("e2", "c1", ledger.KindScheduled, 5),
		fixedEntry("e3", "c1", ledger.KindDeduction, 3),
		fixedEntry("e4", "c1", ledger.KindDeduction, 7),
		fixedEntry("e5", "c1", ledger.KindScheduled, 2),
	}
	want := ledger.CurrentBalance("c1", entries)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]ledger.Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, ledger.CurrentBalance("c1", shuffled))
	}
}

func TestCurrentBalance_DeductionsAreMonotone(t *testing.T) {
	entries := []ledger.Entry{fixedEntry("e1", "c1", ledger.KindInitialBalance, 10)}
	prev := ledger.CurrentBalance("c1", entries)
	for i := 1; i <= 5; i++ {
		entries = append(entries, fixedEntry("d", "c1", ledger.KindDeduction, i))
		cur := ledger.CurrentBalance("c1", entries)
		assert.Less(t, cur, prev)
		prev = cur
	}
}

func TestSummarizeAll(t *testing.T) {
	entries := []ledger.Entry{
		fixedEntry("e1", "c1", ledger.KindInitialBalance, 30),
		fixedEntry("e2", "c2", ledger.KindInitialBalance, 10),
		fixedEntry("e3", "c1", ledger.KindDeduction, 4),
	}

	all := ledger.SummarizeAll(entries)

	require.Len(t, all, 2)
	assert.Equal(t, 26, all["c1"].Available())
	assert.Equal(t, 10, all["c2"].Available())
	assert.Equal(t, ledger.Summarize("c1", entries), all["c1"])
}
