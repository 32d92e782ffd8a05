/*
engine.go - Engine facade exposed to collaborators

PURPOSE:
  Wires the generator, propagation controller and balance cache into one
  entry point for the UI, reporting and export layers. Every dependency
  is injected through Config so the engine runs identically against the
  in-memory stores (tests, dev) and the SQLite store (production), with a
  fake clock where needed.

EXPOSED OPERATIONS:
  GetJournal(periodKey, accountID?)        deduplicated, sorted entries
  GetClosingBalance(periodKey, accountID?) amount + source
  OnTransactionAdded/Updated/Deleted       triggers propagation
  RegenerateAll / RegeneratePeriod         manual maintenance
  SweepStale                               cache-consistency sweep

PERIOD KEYS:
  Textual keys are YYYY-MM, always naming the calendar month containing
  the period's end, for both calendar and financial policies. Malformed
  keys are rejected at this boundary before any generation starts.
*/
package engine

import (
	"context"
)

// Config carries the engine's injected dependencies.
type Config struct {
	Accounts     AccountDirectory
	Transactions TransactionDirectory
	Adjustments  AdjustmentStore
	Entries      EntryStore
	Cache        *BalanceCache // nil: a fresh cache is created
	Policy       PeriodPolicy
	Capabilities Capabilities
	Clock        Clock // nil: system clock
	Horizon      int   // 0: DefaultHorizon
}

// Engine is the in-process computation layer tying the components together.
type Engine struct {
	generator  *Generator
	controller *Controller
}

func New(cfg Config) *Engine {
	if cfg.Cache == nil {
		cfg.Cache = NewBalanceCache()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	gen := &Generator{
		Accounts:     cfg.Accounts,
		Transactions: cfg.Transactions,
		Adjustments:  cfg.Adjustments,
		Entries:      cfg.Entries,
		Cache:        cfg.Cache,
		Policy:       cfg.Policy,
		Capabilities: cfg.Capabilities,
	}
	return &Engine{
		generator: gen,
		controller: &Controller{
			Generator: gen,
			Clock:     cfg.Clock,
			Horizon:   cfg.Horizon,
		},
	}
}

func (e *Engine) Policy() PeriodPolicy { return e.generator.Policy }
func (e *Engine) Cache() *BalanceCache { return e.generator.Cache }

func scopeFor(accountID *AccountID) Scope {
	if accountID == nil {
		return ConsolidatedScope()
	}
	return AccountScope(*accountID)
}

// =============================================================================
// READS
// =============================================================================

// GetJournal returns the deduplicated, sorted journal for (periodKey,
// account-or-consolidated). A period never generated before - typically a
// forecast period past the horizon - is generated lazily on demand.
func (e *Engine) GetJournal(ctx context.Context, periodKey string, accountID *AccountID) ([]JournalEntry, error) {
	period, err := e.generator.Policy.PeriodForKey(periodKey)
	if err != nil {
		return nil, err
	}
	scope := scopeFor(accountID)

	entries, err := e.generator.Entries.EntriesForPeriod(ctx, period.Key(), scope)
	if err == nil && len(entries) > 0 {
		entries = Dedupe(entries)
		SortEntries(entries)
		return entries, nil
	}
	return e.generator.Generate(ctx, scope, period)
}

// GetClosingBalance reports the closing balance of (periodKey, scope) and
// where it came from: a manual adjustment, the generated expected entry,
// or a re-derivation from raw transactions. Source "none" means the scope
// holds no accounts at all.
func (e *Engine) GetClosingBalance(ctx context.Context, periodKey string, accountID *AccountID) (ClosingBalance, error) {
	period, err := e.generator.Policy.PeriodForKey(periodKey)
	if err != nil {
		return ClosingBalance{}, err
	}
	scope := scopeFor(accountID)

	if !scope.IsConsolidated() && e.generator.Capabilities.Adjustments {
		adj, err := e.generator.Adjustments.Get(ctx, scope.AccountID(), period.Key())
		if err == nil && adj != nil {
			return ClosingBalance{Amount: adj.Balance, Source: SourceAdjusted}, nil
		}
	}

	entries, err := e.generator.Entries.EntriesForPeriod(ctx, period.Key(), scope)
	if err == nil {
		for _, entry := range entries {
			if entry.Kind == EntryExpected {
				return ClosingBalance{Amount: entry.Amount, Source: SourceExpected}, nil
			}
		}
	}

	accounts, err := e.generator.Accounts.ListAccounts(ctx)
	if err != nil {
		return ClosingBalance{}, err
	}
	inScope := false
	for _, a := range accounts {
		if scope.IsConsolidated() || a.ID == scope.AccountID() {
			inScope = true
			break
		}
	}
	if !inScope {
		return ClosingBalance{Amount: ZeroAmount(), Source: SourceNone}, nil
	}

	txs, err := e.generator.Transactions.ListAllTransactions(ctx)
	if err != nil {
		return ClosingBalance{}, err
	}
	amount := BalanceAt(scope, period.End, accounts, txs)
	return ClosingBalance{Amount: amount, Source: SourceInitial}, nil
}

// =============================================================================
// MUTATION NOTIFICATIONS
// =============================================================================

// OnTransactionAdded propagates a newly recorded transaction.
func (e *Engine) OnTransactionAdded(ctx context.Context, tx Transaction) error {
	return e.controller.OnTransactionChanged(ctx, tx, nil, ChangeAdded)
}

// OnTransactionUpdated propagates an edit. Both the old and the new period
// are regenerated when the date moved.
func (e *Engine) OnTransactionUpdated(ctx context.Context, old, updated Transaction) error {
	return e.controller.OnTransactionChanged(ctx, updated, &old, ChangeUpdated)
}

// OnTransactionDeleted propagates a removal. The passed record is the
// transaction as it existed before deletion.
func (e *Engine) OnTransactionDeleted(ctx context.Context, tx Transaction) error {
	return e.controller.OnTransactionChanged(ctx, tx, nil, ChangeDeleted)
}

// OnAdjustmentChanged propagates an adjustment upsert or removal for the
// given account and period: downstream openings depend on it.
func (e *Engine) OnAdjustmentChanged(ctx context.Context, accountID AccountID, periodKey string) error {
	period, err := e.generator.Policy.PeriodForKey(periodKey)
	if err != nil {
		return err
	}
	changed, err := e.controller.regeneratePeriod(ctx, period)
	if err != nil {
		return err
	}
	return e.controller.walkForward(ctx, period, changed)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// RegenerateAll rebuilds every period from the earliest account or
// transaction through the horizon. Startup and manual repair path.
func (e *Engine) RegenerateAll(ctx context.Context) error {
	return e.controller.RegenerateAll(ctx)
}

// RegeneratePeriod rebuilds one period unconditionally and then walks
// forward from it.
func (e *Engine) RegeneratePeriod(ctx context.Context, periodKey string) error {
	period, err := e.generator.Policy.PeriodForKey(periodKey)
	if err != nil {
		return err
	}
	changed, err := e.controller.regeneratePeriod(ctx, period)
	if err != nil {
		return err
	}
	return e.controller.walkForward(ctx, period, changed)
}

// SweepStale walks the recent past through the horizon and regenerates any
// period whose cache entries are missing or whose persisted journal is
// empty. Used by the maintenance scheduler.
func (e *Engine) SweepStale(ctx context.Context) error {
	p := e.generator.Policy.PeriodOf(e.controller.Clock.Now())
	for i := 0; i < e.controller.horizon(); i++ {
		p = e.generator.Policy.PreviousPeriod(p)
	}
	return e.controller.RegenerateFollowing(ctx, p)
}
