/*
store.go - Collaborator interfaces consumed and exposed by the engine

PURPOSE:
  Defines the seams between the engine and the external ledger-of-record.
  Accounts, transactions and adjustments are owned elsewhere; the engine
  only reads them. Journal entries are engine-owned: the EntryStore is the
  one surface the engine writes to.

OWNERSHIP:
  AccountDirectory:     read-only (external)
  TransactionDirectory: read-only (external)
  AdjustmentStore:      read-only (external, user-facing layer writes)
  EntryStore:           engine-owned, freely rebuilt
  Preferences:          read-only (user-facing layer writes)

CAPABILITIES:
  The engine never probes storage for optional features. The hosting
  layer injects a Capabilities descriptor instead; with Adjustments
  disabled the engine skips adjustment lookups entirely.

IMPLEMENTATIONS:
  - engine/store/memory.go: In-memory, for tests and dev mode
  - store/sqlite/sqlite.go: SQLite-backed production store
*/
package engine

import "context"

// =============================================================================
// CONSUMED COLLABORATORS
// =============================================================================

// AccountDirectory lists the externally-owned accounts.
type AccountDirectory interface {
	ListAccounts(ctx context.Context) ([]Account, error)

	// GetAccount returns nil when the account does not exist.
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
}

// TransactionDirectory reads the externally-owned transaction set.
type TransactionDirectory interface {
	// ListAllTransactions returns every transaction, ordered by date.
	ListAllTransactions(ctx context.Context) ([]Transaction, error)

	// ListByDateRange returns transactions dated within [from, to].
	ListByDateRange(ctx context.Context, from, to TimePoint) ([]Transaction, error)
}

// AdjustmentStore reads manual closing-balance overrides.
type AdjustmentStore interface {
	// Get returns nil when no adjustment exists for (account, period key).
	Get(ctx context.Context, id AccountID, periodKey string) (*BalanceAdjustment, error)

	ListByAccount(ctx context.Context, id AccountID) ([]BalanceAdjustment, error)
}

// Preferences exposes the period-policy settings chosen by the user.
type Preferences interface {
	FinancialPeriodEnabled() bool
	FinancialPeriodStartDay() int
}

// Capabilities describes optional collaborator features. Injected by the
// hosting layer instead of probing storage.
type Capabilities struct {
	Adjustments bool
}

// =============================================================================
// ENGINE-OWNED PERSISTENCE
// =============================================================================

// EntryStore persists generated journal entries. Writes are scoped per
// (period key, scope) pair; ReplaceForPeriod is atomic for that pair, which
// makes generation idempotent and cancellation safe.
type EntryStore interface {
	// ReplaceForPeriod deletes prior entries for (periodKey, scope) and
	// writes the new set in one atomic step.
	ReplaceForPeriod(ctx context.Context, periodKey string, scope Scope, entries []JournalEntry) error

	// EntriesForPeriod returns the persisted entries for (periodKey, scope).
	EntriesForPeriod(ctx context.Context, periodKey string, scope Scope) ([]JournalEntry, error)

	// CountForPeriod returns the number of persisted entries across all
	// scopes of the period. Used to cross-validate the balance cache.
	CountForPeriod(ctx context.Context, periodKey string) (int, error)
}

// =============================================================================
// CLOCK - Injectable for tests
// =============================================================================

type Clock interface {
	Now() TimePoint
}

type systemClock struct{}

func (systemClock) Now() TimePoint { return Today() }

// SystemClock returns the real day-granularity clock.
func SystemClock() Clock { return systemClock{} }
