package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// =============================================================================
// ROW VALIDATION
// =============================================================================

// Row is a RawRecord interpreted for the ledger. Errors lists every problem
// found; a row with errors is never imported.
type Row struct {
	RawRecord
	Kind       ledger.Kind   `json:"resolved_kind,omitempty"`
	StartDate  calendar.Date `json:"resolved_start"`
	EndDate    calendar.Date `json:"resolved_end"`
	ManualDays *int          `json:"manual_days,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
}

func (r Row) Valid() bool { return len(r.Errors) == 0 }

// Validate interprets every record. It never fails as a whole; problems are
// attached to the offending row.
func Validate(records []RawRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, validateRecord(rec))
	}
	return rows
}

func validateRecord(rec RawRecord) Row {
	row := Row{RawRecord: rec}
	if strings.TrimSpace(rec.Name) == "" {
		row.Errors = append(row.Errors, "collaborator name is required")
	}

	kind, ok := matchKind(rec.Kind)
	if !ok {
		row.Errors = append(row.Errors, fmt.Sprintf("unknown kind %q", rec.Kind))
	}
	row.Kind = kind

	start, startErr := normalizeDate(rec.Start)
	end, endErr := normalizeDate(rec.End)
	for _, err := range []error{startErr, endErr} {
		if err != nil {
			row.Errors = append(row.Errors, err.Error())
		}
	}
	row.StartDate, row.EndDate = start, end

	if kind == ledger.KindInitialBalance {
		days := floorDays(rec.ManualDaysHint)
		if days <= 0 {
			days = floorDays(rec.BusinessDaysHint)
		}
		if days <= 0 {
			row.Errors = append(row.Errors, "initial balance must be greater than zero")
		}
		row.ManualDays = &days
		return row
	}

	if ok {
		if start.IsZero() && startErr == nil {
			row.Errors = append(row.Errors, "start date is required")
		}
		if end.IsZero() && endErr == nil {
			row.Errors = append(row.Errors, "end date is required")
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			row.Errors = append(row.Errors, "start date is after end date")
		}
	}
	return row
}

// matchKind tries an exact code or label first, then Portuguese and English
// keywords ("saldo", "agend", "desc").
func matchKind(s string) (ledger.Kind, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	if k, err := ledger.ParseKind(s); err == nil {
		return k, true
	}
	f := fold(s)
	switch {
	case strings.Contains(f, "saldo"), strings.Contains(f, "initial"):
		return ledger.KindInitialBalance, true
	case strings.Contains(f, "agend"), strings.Contains(f, "schedul"):
		return ledger.KindScheduled, true
	case strings.Contains(f, "desc"), strings.Contains(f, "deduc"):
		return ledger.KindDeduction, true
	}
	return "", false
}

var brDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// normalizeDate accepts YYYY-MM-DD and d/m/yyyy. An empty string is the
// zero date, not an error.
func normalizeDate(s string) (calendar.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendar.Date{}, nil
	}
	iso := s
	if m := brDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		iso = fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	d, err := calendar.ParseDate(iso)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or DD/MM/YYYY)", s)
	}
	return d, nil
}

// floorDays parses "30", "12,5" or " 7.9 " and floors it. Anything
// unparseable is 0.
func floorDays(s string) int {
	clean := strings.Join(strings.Fields(s), "")
	clean = strings.Replace(clean, ",", ".", 1)
	if clean == "" {
		return 0
	}
	v, err := decimal.NewFromString(clean)
	if err != nil {
		return 0
	}
	return int(v.Floor().IntPart())
}
