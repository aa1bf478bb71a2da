/*
Package report derives read-only views from a ledger snapshot.

PURPOSE:
  Balances, analytics, the dashboard and the individual report all answer
  "who has how many days" from different angles. None of them computes a
  balance on its own: every figure comes from ledger.Summarize and
  Summary.Available, so changing the balance rule changes every view.

VIEWS:
  Balances:   one row per collaborator
  Analytics:  filtered totals, average and top-N
  Dashboard:  headline counters and most recent movements
  Individual: one collaborator's breakdown and history
*/
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// RemovedPlaceholder names entries whose collaborator no longer exists.
const RemovedPlaceholder = "Removed"

// =============================================================================
// BALANCES
// =============================================================================

type BalanceRow struct {
	CollaboratorID string `json:"collaborator_id"`
	Name           string `json:"name"`
	Title          string `json:"title"`
	SubUnit        string `json:"sub_unit"`
	State          string `json:"state"`
	Initial        int    `json:"initial"`
	Scheduled      int    `json:"scheduled"`
	Deducted       int    `json:"deducted"`
	Balance        int    `json:"balance"`
}

func newBalanceRow(c ledger.Collaborator, s ledger.Summary) BalanceRow {
	return BalanceRow{
		CollaboratorID: c.ID,
		Name:           c.Name,
		Title:          c.Title,
		SubUnit:        c.SubUnit,
		State:          c.State,
		Initial:        s.Initial,
		Scheduled:      s.Scheduled,
		Deducted:       s.Deducted,
		Balance:        s.Available(),
	}
}

// Balances returns one row per collaborator, sorted by name.
func Balances(snap ledger.Snapshot) []BalanceRow {
	summaries := ledger.SummarizeAll(snap.Entries)
	rows := make([]BalanceRow, 0, len(snap.Collaborators))
	for _, c := range snap.Collaborators {
		s, ok := summaries[c.ID]
		if !ok {
			s = ledger.Summary{CollaboratorID: c.ID}
		}
		rows = append(rows, newBalanceRow(c, s))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
	return rows
}

// =============================================================================
// ANALYTICS
// =============================================================================

// Filter narrows analytics. Empty fields match everything.
type Filter struct {
	CollaboratorID string `json:"collaborator_id,omitempty"`
	State          string `json:"state,omitempty"`
	SubUnit        string `json:"sub_unit,omitempty"`
}

func (f Filter) matches(r BalanceRow) bool {
	if f.CollaboratorID != "" && r.CollaboratorID != f.CollaboratorID {
		return false
	}
	if f.State != "" && r.State != calendar.NormalizeState(f.State) {
		return false
	}
	if f.SubUnit != "" && r.SubUnit != strings.TrimSpace(f.SubUnit) {
		return false
	}
	return true
}

type AnalyticsReport struct {
	Filter  Filter          `json:"filter"`
	Count   int             `json:"count"`
	Total   int             `json:"total_balance"`
	Average decimal.Decimal `json:"average_balance"`
	Top     []BalanceRow    `json:"top_balances"`
	Rows    []BalanceRow    `json:"rows"`
}

// DefaultTopN is the size of the top-balances list.
const DefaultTopN = 10

// Analytics aggregates balances for the collaborators matching f. The
// average is rounded to one decimal place; an empty selection averages 0.
func Analytics(snap ledger.Snapshot, f Filter, topN int) AnalyticsReport {
	if topN <= 0 {
		topN = DefaultTopN
	}

	rep := AnalyticsReport{Filter: f, Average: decimal.Zero}
	for _, r := range Balances(snap) {
		if f.matches(r) {
			rep.Rows = append(rep.Rows, r)
			rep.Total += r.Balance
		}
	}
	rep.Count = len(rep.Rows)
	if rep.Count > 0 {
		rep.Average = decimal.NewFromInt(int64(rep.Total)).
			Div(decimal.NewFromInt(int64(rep.Count))).
			Round(1)
	}

	top := append([]BalanceRow(nil), rep.Rows...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Balance > top[j].Balance })
	if len(top) > topN {
		top = top[:topN]
	}
	rep.Top = top
	return rep
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Thresholds bound a healthy balance. Anything outside [Low, High] is critical.
type Thresholds struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

var DefaultThresholds = Thresholds{Low: 0, High: 35}

func (t Thresholds) Critical(balance int) bool {
	return balance < t.Low || balance > t.High
}

// Movement is a recent entry enriched for display.
type Movement struct {
	ledger.Entry
	KindLabel        string `json:"kind_label"`
	CollaboratorName string `json:"collaborator_name"`
	Title            string `json:"title"`
	SubUnitName      string `json:"sub_unit_name"`
	AvailableBalance int    `json:"available_balance"`
}

type DashboardReport struct {
	TotalCollaborators int        `json:"total_collaborators"`
	ScheduledDays      int        `json:"scheduled_days"`
	CriticalCount      int        `json:"critical_count"`
	Thresholds         Thresholds `json:"thresholds"`
	Recent             []Movement `json:"recent"`
}

// DefaultRecentLimit is how many movements the dashboard lists.
const DefaultRecentLimit = 6

// Dashboard returns headline counters and the most recent movements by
// start date. Entries of removed collaborators still appear in Recent.
func Dashboard(snap ledger.Snapshot, limit int, t Thresholds) DashboardReport {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	summaries := ledger.SummarizeAll(snap.Entries)

	rep := DashboardReport{
		TotalCollaborators: len(snap.Collaborators),
		Thresholds:         t,
	}
	for _, s := range summaries {
		rep.ScheduledDays += s.Scheduled
	}
	for _, c := range snap.Collaborators {
		if t.Critical(summaries[c.ID].Available()) {
			rep.CriticalCount++
		}
	}

	recent := append([]ledger.Entry(nil), snap.Entries...)
	ledger.SortNewestFirst(recent)
	if len(recent) > limit {
		recent = recent[:limit]
	}
	rep.Recent = make([]Movement, 0, len(recent))
	for _, e := range recent {
		m := Movement{
			Entry:            e,
			KindLabel:        e.Kind.Label(),
			CollaboratorName: RemovedPlaceholder,
			Title:            "-",
			SubUnitName:      "-",
			AvailableBalance: summaries[e.CollaboratorID].Available(),
		}
		if c, ok := snap.Collaborator(e.CollaboratorID); ok {
			m.CollaboratorName, m.Title, m.SubUnitName = c.Name, c.Title, c.SubUnit
		}
		rep.Recent = append(rep.Recent, m)
	}
	return rep
}

// =============================================================================
// INDIVIDUAL
// =============================================================================

type IndividualReport struct {
	Collaborator ledger.Collaborator `json:"collaborator"`
	Summary      ledger.Summary      `json:"summary"`
	Balance      int                 `json:"balance"`
	Negative     bool                `json:"negative"`
	History      []ledger.Entry      `json:"history"`
}

// Individual reports one collaborator. History is newest first.
func Individual(snap ledger.Snapshot, collaboratorID string) (IndividualReport, error) {
	c, ok := snap.Collaborator(collaboratorID)
	if !ok {
		return IndividualReport{}, &ledger.NotFoundError{Resource: "collaborator", ID: collaboratorID}
	}

	var history []ledger.Entry
	for _, e := range snap.Entries {
		if e.CollaboratorID == collaboratorID {
			history = append(history, e)
		}
	}
	ledger.SortNewestFirst(history)

	s := ledger.Summarize(collaboratorID, snap.Entries)
	return IndividualReport{
		Collaborator: c,
		Summary:      s,
		Balance:      s.Available(),
		Negative:     s.Available() < 0,
		History:      history,
	}, nil
}
