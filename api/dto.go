/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types carry
  go-playground/validator tags; handlers validate them before touching the
  ledger. Domain types with stable JSON (ledger.Entry, calendar.Holiday,
  report views) are returned as-is.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types built by handlers
  - *Response: Wrappers with more than one part

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/importer"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CollaboratorRequest creates or replaces a collaborator.
type CollaboratorRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Title   string `json:"title" validate:"max=200"`
	SubUnit string `json:"sub_unit" validate:"max=200"`
	State   string `json:"state" validate:"required,len=2,alpha"`
}

func (r CollaboratorRequest) toCollaborator() ledger.Collaborator {
	return ledger.Collaborator{Name: r.Name, Title: r.Title, SubUnit: r.SubUnit, State: r.State}
}

// EntryRequest creates or replaces a ledger entry. Kind accepts the code
// or the Portuguese label. When state and sub-unit are both omitted the
// collaborator's current ones are snapshotted.
type EntryRequest struct {
	CollaboratorID string `json:"collaborator_id" validate:"required"`
	Kind           string `json:"kind" validate:"required"`
	StartDate      string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	State          string `json:"state" validate:"omitempty,len=2,alpha"`
	SubUnit        string `json:"sub_unit" validate:"max=200"`
	ManualDays     *int   `json:"manual_days"`
	Note           string `json:"note" validate:"max=1000"`
	AttachmentRef  string `json:"attachment_ref" validate:"max=500"`
}

// HolidayRequest creates or replaces a holiday. Scope accepts NATIONAL,
// STATE, MUNICIPAL or the Portuguese labels.
type HolidayRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Scope   string `json:"scope" validate:"required"`
	State   string `json:"state" validate:"omitempty,len=2,alpha"`
	SubUnit string `json:"sub_unit" validate:"max=200"`
}

// SeedHolidaysRequest seeds the default holidays of a year (current year
// when omitted).
type SeedHolidaysRequest struct {
	Year int `json:"year" validate:"omitempty,min=1900,max=2200"`
}

// CalculatorRequest previews metrics for a range. Unparseable dates yield
// zero metrics rather than an error.
// CollaboratorID supplies the jurisdiction when State and SubUnit are empty.
type CalculatorRequest struct {
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	CollaboratorID string `json:"collaborator_id"`
	State          string `json:"state" validate:"omitempty,len=2,alpha"`
	SubUnit        string `json:"sub_unit" validate:"max=200"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BalanceDTO is the balance breakdown of one collaborator.
type BalanceDTO struct {
	CollaboratorID string `json:"collaborator_id"`
	Initial        int    `json:"initial"`
	Scheduled      int    `json:"scheduled"`
	Deducted       int    `json:"deducted"`
	Balance        int    `json:"balance"`
	Entries        int    `json:"entries"`
}

func toBalanceDTO(s ledger.Summary) BalanceDTO {
	return BalanceDTO{
		CollaboratorID: s.CollaboratorID,
		Initial:        s.Initial,
		Scheduled:      s.Scheduled,
		Deducted:       s.Deducted,
		Balance:        s.Available(),
		Entries:        s.Entries,
	}
}

// CalculatorResponse is the live preview shown while filling an entry form.
type CalculatorResponse struct {
	calendar.Metrics
	Holidays []calendar.Holiday `json:"holidays"`
}

// ImportResponse reports an import or a dry run.
type ImportResponse struct {
	FileName string               `json:"file_name"`
	DryRun   bool                 `json:"dry_run"`
	Status   ledger.ImportStatus  `json:"status,omitempty"`
	Imported int                  `json:"imported"`
	Rejected int                  `json:"rejected"`
	Rows     []importer.RowResult `json:"rows"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}
