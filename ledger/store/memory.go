// Package store provides in-process ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	collaborators []ledger.Collaborator
	entries       []ledger.Entry
	holidays      []calendar.Holiday
	audit         []ledger.AuditEntry   // newest last
	imports       []ledger.ImportRecord // newest last
}

var _ ledger.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadCollaborators(_ context.Context) ([]ledger.Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.data.collaborators), nil
}

func (m *Memory) SaveCollaborators(_ context.Context, collaborators []ledger.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.collaborators = clone(collaborators)
	return nil
}

func (m *Memory) LoadEntries(_ context.Context) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.data.entries), nil
}

func (m *Memory) SaveEntries(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.entries = clone(entries)
	return nil
}

func (m *Memory) LoadHolidays(_ context.Context) ([]calendar.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.data.holidays), nil
}

func (m *Memory) SaveHolidays(_ context.Context, holidays []calendar.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.holidays = clone(holidays)
	return nil
}

// AppendAudit keeps at most ledger.AuditRetention entries, dropping the oldest.
func (m *Memory) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.audit = append(m.data.audit, entry)
	if over := len(m.data.audit) - ledger.AuditRetention; over > 0 {
		m.data.audit = clone(m.data.audit[over:])
	}
	return nil
}

// RecentAudit returns up to limit entries, newest first. limit <= 0 means all.
func (m *Memory) RecentAudit(_ context.Context, limit int) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.audit, limit), nil
}

// AppendImport keeps at most ledger.ImportHistoryRetention records.
func (m *Memory) AppendImport(_ context.Context, rec ledger.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.imports = append(m.data.imports, rec)
	if over := len(m.data.imports) - ledger.ImportHistoryRetention; over > 0 {
		m.data.imports = clone(m.data.imports[over:])
	}
	return nil
}

func (m *Memory) RecentImports(_ context.Context, limit int) ([]ledger.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.imports, limit), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction, simulated with a snapshot and a
// rollback on error. Other writers are blocked until fn returns.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d memoryData) snapshot() memoryData {
	return memoryData{
		collaborators: clone(d.collaborators),
		entries:       clone(d.entries),
		holidays:      clone(d.holidays),
		audit:         clone(d.audit),
		imports:       clone(d.imports),
	}
}

// txMemoryView writes straight into the parent; the lock is already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) LoadCollaborators(context.Context) ([]ledger.Collaborator, error) {
	return clone(tv.parent.data.collaborators), nil
}

func (tv *txMemoryView) SaveCollaborators(_ context.Context, collaborators []ledger.Collaborator) error {
	tv.parent.data.collaborators = clone(collaborators)
	return nil
}

func (tv *txMemoryView) LoadEntries(context.Context) ([]ledger.Entry, error) {
	return clone(tv.parent.data.entries), nil
}

func (tv *txMemoryView) SaveEntries(_ context.Context, entries []ledger.Entry) error {
	tv.parent.data.entries = clone(entries)
	return nil
}

func (tv *txMemoryView) LoadHolidays(context.Context) ([]calendar.Holiday, error) {
	return clone(tv.parent.data.holidays), nil
}

func (tv *txMemoryView) SaveHolidays(_ context.Context, holidays []calendar.Holiday) error {
	tv.parent.data.holidays = clone(holidays)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	return append(make([]T, 0, len(items)), items...)
}

func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}
