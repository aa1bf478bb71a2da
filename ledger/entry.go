package ledger

import (
	"strings"

	"github.com/opsdesk/vacation-ledger/calendar"
)

// =============================================================================
// ENTRY CONSTRUCTION
// =============================================================================

// EntryInput carries everything needed to build an entry. Zero dates mean
// "absent". ManualDays is only read for INITIAL_BALANCE.
type EntryInput struct {
	CollaboratorID string
	Kind           Kind
	Start          calendar.Date
	End            calendar.Date
	Jurisdiction   calendar.Jurisdiction
	ManualDays     *int
	Note           string
	AttachmentRef  string
}

// BuildEntry validates input and derives the stored metrics.
//
// INITIAL_BALANCE:
//   - ManualDays is required and must be >= 0; it becomes BusinessDays
//   - CalendarDays and HolidaysCount are forced to 0
//   - a missing Start falls back to End, then to today; End is set to Start
//
// SCHEDULED / DEDUCTION:
//   - Start and End are required and End must not be before Start
//   - metrics come from calendar.ComputeMetrics under the input jurisdiction
//   - a range without business days is rejected with ZeroDurationError
func BuildEntry(id string, in EntryInput, holidays []calendar.Holiday, today calendar.Date) (Entry, error) {
	collaboratorID := strings.TrimSpace(in.CollaboratorID)
	if collaboratorID == "" {
		return Entry{}, &ValidationError{Field: "collaborator_id", Message: "collaborator is required"}
	}
	if !in.Kind.Valid() {
		return Entry{}, &ValidationError{Field: "kind", Message: "unknown kind " + string(in.Kind)}
	}

	entry := Entry{
		ID:             id,
		CollaboratorID: collaboratorID,
		Kind:           in.Kind,
		Jurisdiction:   calendar.NewJurisdiction(in.Jurisdiction.State, in.Jurisdiction.SubUnit),
		Note:           strings.TrimSpace(in.Note),
		AttachmentRef:  strings.TrimSpace(in.AttachmentRef),
	}

	if in.Kind == KindInitialBalance {
		if in.ManualDays == nil {
			return Entry{}, &ValidationError{Field: "manual_days", Message: "initial balance requires a day count"}
		}
		if *in.ManualDays < 0 {
			return Entry{}, &ValidationError{Field: "manual_days", Message: "initial balance cannot be negative"}
		}
		start := in.Start
		if start.IsZero() {
			start = in.End
		}
		if start.IsZero() {
			start = today
		}
		entry.Start, entry.End = start, start
		entry.BusinessDays = *in.ManualDays
		return entry, nil
	}

	if in.Start.IsZero() {
		return Entry{}, &ValidationError{Field: "start_date", Message: "start date is required"}
	}
	if in.End.IsZero() {
		return Entry{}, &ValidationError{Field: "end_date", Message: "end date is required"}
	}
	if in.End.Before(in.Start) {
		return Entry{}, &InvalidRangeError{Start: in.Start, End: in.End}
	}

	m := calendar.ComputeMetrics(in.Start, in.End, entry.Jurisdiction, holidays)
	if m.BusinessDays == 0 {
		return Entry{}, &ZeroDurationError{Start: in.Start, End: in.End, Jurisdiction: entry.Jurisdiction}
	}

	entry.Start, entry.End = in.Start, in.End
	entry.CalendarDays = m.CalendarDays
	entry.BusinessDays = m.BusinessDays
	entry.HolidaysCount = m.HolidaysCount
	return entry, nil
}

// ReplaceEntry rebuilds an entry from new input, keeping the original id.
// It runs exactly the same validation as BuildEntry.
func ReplaceEntry(existing Entry, in EntryInput, holidays []calendar.Holiday, today calendar.Date) (Entry, error) {
	return BuildEntry(existing.ID, in, holidays, today)
}

// Input converts an entry back into the input that would rebuild it.
func (e Entry) Input() EntryInput {
	in := EntryInput{
		CollaboratorID: e.CollaboratorID,
		Kind:           e.Kind,
		Start:          e.Start,
		End:            e.End,
		Jurisdiction:   e.Jurisdiction,
		Note:           e.Note,
		AttachmentRef:  e.AttachmentRef,
	}
	if e.Kind == KindInitialBalance {
		days := e.BusinessDays
		in.ManualDays = &days
	}
	return in
}
