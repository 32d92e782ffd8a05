// Package store provides in-memory implementations of the engine's
// collaborator interfaces, for tests and dev mode.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/ledger-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory ledger-of-record plus journal persistence
// =============================================================================

// Memory implements AccountDirectory, TransactionDirectory,
// AdjustmentStore and EntryStore behind one mutex. Mutators exist because
// something has to own the records in dev mode; the engine itself only
// ever calls the read side and ReplaceForPeriod.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[engine.AccountID]engine.Account
	transactions map[engine.TransactionID]engine.Transaction
	adjustments  map[adjustmentKey]engine.BalanceAdjustment
	entries      map[entryKey][]engine.JournalEntry
}

type adjustmentKey struct {
	AccountID engine.AccountID
	PeriodKey string
}

type entryKey struct {
	PeriodKey string
	Scope     string
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[engine.AccountID]engine.Account),
		transactions: make(map[engine.TransactionID]engine.Transaction),
		adjustments:  make(map[adjustmentKey]engine.BalanceAdjustment),
		entries:      make(map[entryKey][]engine.JournalEntry),
	}
}

// =============================================================================
// ACCOUNT DIRECTORY
// =============================================================================

func (m *Memory) ListAccounts(_ context.Context) ([]engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetAccount(_ context.Context, id engine.AccountID) (*engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) PutAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

// =============================================================================
// TRANSACTION DIRECTORY
// =============================================================================

func (m *Memory) ListAllTransactions(_ context.Context) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTransactionsLocked(), nil
}

func (m *Memory) ListByDateRange(_ context.Context, from, to engine.TimePoint) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Transaction
	for _, tx := range m.sortedTransactionsLocked() {
		if from.BeforeOrEqual(tx.OccurredAt) && tx.OccurredAt.BeforeOrEqual(to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *Memory) sortedTransactionsLocked() []engine.Transaction {
	result := make([]engine.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) GetTransaction(_ context.Context, id engine.TransactionID) (*engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *Memory) PutTransaction(_ context.Context, tx engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id engine.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return engine.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

// =============================================================================
// ADJUSTMENT STORE
// =============================================================================

func (m *Memory) Get(_ context.Context, id engine.AccountID, periodKey string) (*engine.BalanceAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adj, ok := m.adjustments[adjustmentKey{AccountID: id, PeriodKey: periodKey}]
	if !ok {
		return nil, nil
	}
	return &adj, nil
}

func (m *Memory) ListByAccount(_ context.Context, id engine.AccountID) ([]engine.BalanceAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.BalanceAdjustment
	for k, adj := range m.adjustments {
		if k.AccountID == id {
			result = append(result, adj)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodKey < result[j].PeriodKey })
	return result, nil
}

// UpsertAdjustment enforces the at-most-one-per-(account, period) invariant:
// set if absent, else overwrite.
func (m *Memory) UpsertAdjustment(_ context.Context, adj engine.BalanceAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[adjustmentKey{AccountID: adj.AccountID, PeriodKey: adj.PeriodKey}] = adj
	return nil
}

func (m *Memory) DeleteAdjustment(_ context.Context, id engine.AccountID, periodKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.adjustments, adjustmentKey{AccountID: id, PeriodKey: periodKey})
	return nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (m *Memory) ReplaceForPeriod(_ context.Context, periodKey string, scope engine.Scope, entries []engine.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := entryKey{PeriodKey: periodKey, Scope: scope.Suffix()}
	stored := make([]engine.JournalEntry, len(entries))
	copy(stored, entries)
	m.entries[k] = stored
	return nil
}

func (m *Memory) EntriesForPeriod(_ context.Context, periodKey string, scope engine.Scope) ([]engine.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := entryKey{PeriodKey: periodKey, Scope: scope.Suffix()}
	result := make([]engine.JournalEntry, len(m.entries[k]))
	copy(result, m.entries[k])
	return result, nil
}

func (m *Memory) CountForPeriod(_ context.Context, periodKey string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for k, list := range m.entries {
		if k.PeriodKey == periodKey {
			count += len(list)
		}
	}
	return count, nil
}
