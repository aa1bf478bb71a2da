/*
Package calendar provides the date-only primitives used by the vacation ledger.

PURPOSE:
  Everything that decides "is this a working day?" lives here: the Date value
  type, weekend classification, holiday scoping by jurisdiction, and the
  business-day metrics computed for a date range.

KEY CONCEPTS:
  - Date: a calendar day with no time component (always UTC midnight inside)
  - Jurisdiction: state code + sub-unit (office/branch) of a collaborator
  - Holiday: a named date scoped NATIONAL, STATE or MUNICIPAL
  - Metrics: calendar days, business days and holidays for [start, end]

DATE SEMANTICS:
  Dates are parsed and formatted as ISO YYYY-MM-DD at the boundary only.
  Internally every comparison happens on Date values, never strings.
  "Today" is evaluated in the America/Sao_Paulo zone.

SEE ALSO:
  - holiday.go: Holiday scopes and ApplicableHolidays
  - metrics.go: ComputeMetrics (business-day calculator)
*/
package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the only wire format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Calendar day without time component
// =============================================================================

// Date is a calendar day. The zero value means "absent".
type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values normalise the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day in the time's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate panics on malformed input. Intended for tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

var saoPaulo = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Today returns the current calendar day in Brazil.
func Today() Date {
	return TodayAt(time.Now())
}

// TodayAt returns the Brazilian calendar day of an instant.
func TodayAt(now time.Time) Date {
	return DateOf(now.In(saoPaulo))
}

// Comparison
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) IsZero() bool       { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the whole days from d to o (negative when o is earlier).
// Counted on day numbers, so it holds for spans beyond time.Duration's range.
func (d Date) DaysUntil(o Date) int {
	return int(o.dayNumber() - d.dayNumber())
}

func (d Date) dayNumber() int64 {
	y, m, day := d.t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Time() time.Time       { return d.t }

// IsWeekend reports whether the day is a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"; the zero date becomes "".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// RANGE
// =============================================================================

// Range is an inclusive [Start, End] span of days.
type Range struct {
	Start Date
	End   Date
}

// Valid reports whether both ends are present and End is not before Start.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Contains returns true if d falls within [Start, End].
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns every day in the range, or nil for an invalid range.
func (r Range) Days() []Date {
	if !r.Valid() {
		return nil
	}
	days := make([]Date, 0, r.Start.DaysUntil(r.End)+1)
	for cur := r.Start; !cur.After(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
