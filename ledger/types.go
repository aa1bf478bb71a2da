/*
Package ledger implements the vacation-balance ledger.

PURPOSE:
  Turns dated vacation events into typed ledger entries and derives each
  collaborator's available balance from them. The balance is never stored:
  it is recomputed from the full ledger on every query.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: INITIAL_BALANCE, SCHEDULED or DEDUCTION
  - Entry: one immutable event; edits replace the whole entry
  - Collaborator: the person an entry belongs to (soft reference by id)
  - Actor/Role: who is calling; only admins may mutate

DESIGN PRINCIPLES:
  1. Pure core: BuildEntry and Summarize are functions of their inputs
  2. Derived metrics: non-initial entries always carry calculator output
  3. Single gate: Authorize runs before every mutation, reads are open

SEE ALSO:
  - entry.go: BuildEntry / ReplaceEntry
  - balance.go: Summarize / CurrentBalance
  - service.go: Host-side orchestration over a Repository
*/
package ledger

import (
	"fmt"
	"strings"

	"github.com/opsdesk/vacation-ledger/calendar"
)

// =============================================================================
// ENTRY KIND
// =============================================================================

type Kind string

const (
	KindInitialBalance Kind = "INITIAL_BALANCE" // manual credit, not calculator-derived
	KindScheduled      Kind = "SCHEDULED"       // vacation recorded in HR
	KindDeduction      Kind = "DEDUCTION"       // explicit reduction of the balance
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindInitialBalance, KindScheduled, KindDeduction}

var kindLabels = map[Kind]string{
	KindInitialBalance: "Saldo Inicial",
	KindScheduled:      "Férias agendadas no RH",
	KindDeduction:      "Desconto do saldo de férias",
}

// Label returns the Portuguese label shown to HR.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// ParseKind accepts a canonical code or a label, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Label()) {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", s)}
}

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// Entry is one event affecting a collaborator's balance. Metrics on
// SCHEDULED and DEDUCTION entries come from calendar.ComputeMetrics; on
// INITIAL_BALANCE entries BusinessDays is the manual amount.
type Entry struct {
	ID             string                `json:"id"`
	CollaboratorID string                `json:"collaborator_id"`
	Kind           Kind                  `json:"kind"`
	Start          calendar.Date         `json:"start_date"`
	End            calendar.Date         `json:"end_date"`
	CalendarDays   int                   `json:"calendar_days"`
	BusinessDays   int                   `json:"business_days"`
	HolidaysCount  int                   `json:"holidays_count"`
	Jurisdiction   calendar.Jurisdiction `json:"jurisdiction"`
	Note           string                `json:"note,omitempty"`
	AttachmentRef  string                `json:"attachment_ref,omitempty"`
}

// Metrics returns the stored metric triple.
func (e Entry) Metrics() calendar.Metrics {
	return calendar.Metrics{
		CalendarDays:  e.CalendarDays,
		BusinessDays:  e.BusinessDays,
		HolidaysCount: e.HolidaysCount,
	}
}

// =============================================================================
// COLLABORATOR
// =============================================================================

type Collaborator struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	SubUnit string `json:"sub_unit"`
	State   string `json:"state"`
}

// Jurisdiction returns the collaborator's current (state, sub-unit).
func (c Collaborator) Jurisdiction() calendar.Jurisdiction {
	return calendar.NewJurisdiction(c.State, c.SubUnit)
}

// Normalize trims fields and uppercases the state code.
func (c Collaborator) Normalize() Collaborator {
	c.Name = strings.TrimSpace(c.Name)
	c.Title = strings.TrimSpace(c.Title)
	c.SubUnit = strings.TrimSpace(c.SubUnit)
	c.State = calendar.NormalizeState(c.State)
	return c
}

// Validate requires a name and a 2-letter state code.
func (c Collaborator) Validate() error {
	c = c.Normalize()
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "collaborator name is required"}
	}
	if len(c.State) != 2 {
		return &ValidationError{Field: "state", Message: fmt.Sprintf("state must be a 2-letter code, got %q", c.State)}
	}
	return nil
}

// =============================================================================
// ACTOR
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadOnly Role = "read_only"
)

// ParseRole maps header/CLI values to a Role. Anything unknown is read-only.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrador":
		return RoleAdmin
	default:
		return RoleReadOnly
	}
}

// Actor is the resolved caller. Authentication happens outside this package.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Authorize is the single gate evaluated before every mutating operation.
func Authorize(actor Actor, action string) error {
	if actor.IsAdmin() {
		return nil
	}
	return &UnauthorizedError{ActorID: actor.ID, Action: action}
}
