/*
balance.go - Available balance derived from ledger entries

PURPOSE:
  Answers "how many vacation days does this collaborator have?" by scanning
  the whole ledger. Nothing is cached; every call is a pure read.

AVAILABILITY CALCULATION:
  Available = Initial + Scheduled - Deducted

  Scheduled vacation recorded in HR counts as credit toward the displayed
  balance; only DEDUCTION entries reduce it. Every report, dashboard and
  analytics figure goes through Summary.Available so the rule lives in
  exactly one place.

EXAMPLE:
  INITIAL_BALANCE 30, SCHEDULED 5, DEDUCTION 3  ->  30 + 5 - 3 = 32
*/
package ledger

// Summary is the per-kind breakdown of one collaborator's ledger.
type Summary struct {
	CollaboratorID string `json:"collaborator_id"`
	Initial        int    `json:"initial"`
	Scheduled      int    `json:"scheduled"`
	Deducted       int    `json:"deducted"`
	Entries        int    `json:"entries"`
}

// Available applies the balance rule. May be negative.
func (s Summary) Available() int {
	return s.Initial + s.Scheduled - s.Deducted
}

// Summarize sums business days by kind for one collaborator. Order of
// entries does not matter.
func Summarize(collaboratorID string, entries []Entry) Summary {
	s := Summary{CollaboratorID: collaboratorID}
	for _, e := range entries {
		if e.CollaboratorID == collaboratorID {
			s.add(e)
		}
	}
	return s
}

func (s *Summary) add(e Entry) {
	s.Entries++
	switch e.Kind {
	case KindInitialBalance:
		s.Initial += e.BusinessDays
	case KindScheduled:
		s.Scheduled += e.BusinessDays
	case KindDeduction:
		s.Deducted += e.BusinessDays
	}
}

// CurrentBalance returns the available balance for a collaborator. An
// empty ledger yields 0.
func CurrentBalance(collaboratorID string, entries []Entry) int {
	return Summarize(collaboratorID, entries).Available()
}

// SummarizeAll groups entries by collaborator in a single pass.
func SummarizeAll(entries []Entry) map[string]Summary {
	out := make(map[string]Summary)
	for _, e := range entries {
		s, ok := out[e.CollaboratorID]
		if !ok {
			s = Summary{CollaboratorID: e.CollaboratorID}
		}
		s.add(e)
		out[e.CollaboratorID] = s
	}
	return out
}
