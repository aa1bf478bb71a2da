package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// JURISDICTION
// =============================================================================

// Jurisdiction selects which holidays apply to a collaborator.
type Jurisdiction struct {
	State   string // 2-letter code, uppercased
	SubUnit string // office/branch name, matched exactly after trimming
}

// NewJurisdiction normalises the state code and trims the sub-unit.
func NewJurisdiction(state, subUnit string) Jurisdiction {
	return Jurisdiction{
		State:   NormalizeState(state),
		SubUnit: strings.TrimSpace(subUnit),
	}
}

// NormalizeState trims and uppercases a state code.
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// IsZero reports whether neither field is set.
func (j Jurisdiction) IsZero() bool {
	return j.State == "" && j.SubUnit == ""
}

// =============================================================================
// HOLIDAY
// =============================================================================

// Scope defines which jurisdictions a holiday applies to.
type Scope string

const (
	ScopeNational  Scope = "NATIONAL"  // every jurisdiction
	ScopeState     Scope = "STATE"     // jurisdictions with the same state code
	ScopeMunicipal Scope = "MUNICIPAL" // jurisdictions with the same sub-unit
)

// ParseScope accepts canonical codes and the Portuguese labels.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NATIONAL", "NACIONAL":
		return ScopeNational, nil
	case "STATE", "ESTADUAL":
		return ScopeState, nil
	case "MUNICIPAL":
		return ScopeMunicipal, nil
	}
	return "", fmt.Errorf("unknown holiday scope %q", s)
}

// Holiday is a named calendar date with a scope.
type Holiday struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Date    Date   `json:"date"`
	Scope   Scope  `json:"scope"`
	State   string `json:"state,omitempty"`
	SubUnit string `json:"sub_unit,omitempty"`
}

// ErrInvalidHoliday is returned by Holiday.Validate.
var ErrInvalidHoliday = errors.New("invalid holiday")

// Normalize trims fields and clears those irrelevant to the scope.
func (h Holiday) Normalize() Holiday {
	h.Name = strings.TrimSpace(h.Name)
	h.State = NormalizeState(h.State)
	h.SubUnit = strings.TrimSpace(h.SubUnit)
	switch h.Scope {
	case ScopeNational:
		h.State, h.SubUnit = "", ""
	case ScopeState:
		h.SubUnit = ""
	}
	return h
}

// Validate checks the scope invariants: STATE needs a state code and
// MUNICIPAL needs a sub-unit.
func (h Holiday) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidHoliday)
	}
	if h.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidHoliday)
	}
	switch h.Scope {
	case ScopeNational:
	case ScopeState:
		if NormalizeState(h.State) == "" {
			return fmt.Errorf("%w: state holiday %q needs a state code", ErrInvalidHoliday, h.Name)
		}
	case ScopeMunicipal:
		if strings.TrimSpace(h.SubUnit) == "" {
			return fmt.Errorf("%w: municipal holiday %q needs a sub-unit", ErrInvalidHoliday, h.Name)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidHoliday, h.Scope)
	}
	return nil
}

// AppliesTo reports whether the holiday is observed in the jurisdiction.
// Empty jurisdiction fields only ever match NATIONAL holidays.
func (h Holiday) AppliesTo(j Jurisdiction) bool {
	switch h.Scope {
	case ScopeNational:
		return true
	case ScopeState:
		state := NormalizeState(j.State)
		return state != "" && NormalizeState(h.State) == state
	case ScopeMunicipal:
		unit := strings.TrimSpace(j.SubUnit)
		return unit != "" && strings.TrimSpace(h.SubUnit) == unit
	}
	return false
}

// ApplicableHolidays returns the holidays within [start, end] observed in j.
// Registry order is preserved. An invalid range yields nil.
func ApplicableHolidays(start, end Date, j Jurisdiction, registry []Holiday) []Holiday {
	r := Range{Start: start, End: end}
	if !r.Valid() {
		return nil
	}
	var out []Holiday
	for _, h := range registry {
		if h.Date.IsZero() || !r.Contains(h.Date) {
			continue
		}
		if h.AppliesTo(j) {
			out = append(out, h)
		}
	}
	return out
}
