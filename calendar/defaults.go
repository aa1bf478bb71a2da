package calendar

import (
	"fmt"
	"time"
)

// DefaultHolidays returns the fixed-date Brazilian national holidays for a
// year plus São Paulo's state holiday. Ids are deterministic so seeding the
// same year twice overwrites instead of duplicating.
func DefaultHolidays(year int) []Holiday {
	defaults := []struct {
		month time.Month
		day   int
		name  string
		scope Scope
		state string
	}{
		{time.January, 1, "Confraternização Universal", ScopeNational, ""},
		{time.April, 21, "Tiradentes", ScopeNational, ""},
		{time.May, 1, "Dia do Trabalho", ScopeNational, ""},
		{time.July, 9, "Revolução Constitucionalista", ScopeState, "SP"},
		{time.September, 7, "Independência do Brasil", ScopeNational, ""},
		{time.October, 12, "Nossa Senhora Aparecida", ScopeNational, ""},
		{time.November, 2, "Finados", ScopeNational, ""},
		{time.November, 15, "Proclamação da República", ScopeNational, ""},
		{time.December, 25, "Natal", ScopeNational, ""},
	}

	out := make([]Holiday, 0, len(defaults))
	for _, d := range defaults {
		out = append(out, Holiday{
			ID:    fmt.Sprintf("holiday-%d-%02d%02d", year, d.month, d.day),
			Name:  d.name,
			Date:  NewDate(year, d.month, d.day),
			Scope: d.scope,
			State: d.state,
		})
	}
	return out
}
