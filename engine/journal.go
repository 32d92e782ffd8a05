/*
journal.go - Journal generation for one (period, scope) pair

PURPOSE:
  Produces the ordered set of journal entries for one period and one
  account (or the consolidated view): an opening balance, one mirror entry
  per transaction, and the computed summary lines (income total, expense
  total, net, expected closing, adjusted closing when present).

GENERATION STEPS:
  1. Delete existing entries for (period, scope) - regeneration never
     duplicates opening-balance or summary rows.
  2. Resolve the opening balance: an account created inside the period
     opens with its declared balance (plus an "account opened" marker);
     otherwise the previous period's closing is used, preferring a manual
     adjustment, then the persisted expected entry, then a cold-start
     replay of the full transaction history.
  3. Mirror each transaction touching the scope within the period.
  4. Emit income total, expense total, net at the period's end.
  5. Emit expected closing = opening + net.
  6. Emit the adjusted closing (if any) dated one day after the period's
     end so it sorts after the expected line.
  7. The consolidated view ignores transfers and sums per-account
     openings instead of using a single account's.

FAILURE SEMANTICS:
  A failing adjustment or prior-period lookup falls back to the cold-start
  path; generation succeeds as long as accounts and transactions are
  readable. The journal produced from a fallback is less precise but
  usable.

ORDERING:
  Opening first regardless of date; then ascending date; then category
  rank; then the summary sub-order (income total < expense total < net <
  expected < adjusted).
*/
package engine

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Generator builds and persists journals. All dependencies are injected;
// the generator holds no mutable state of its own.
type Generator struct {
	Accounts     AccountDirectory
	Transactions TransactionDirectory
	Adjustments  AdjustmentStore
	Entries      EntryStore
	Cache        *BalanceCache
	Policy       PeriodPolicy
	Capabilities Capabilities
}

// Generate rebuilds the journal for (scope, period), persists it, refreshes
// the cache entry, and returns the generated entries. Calling it twice with
// unchanged inputs yields identical entry sets.
func (g *Generator) Generate(ctx context.Context, scope Scope, period Period) ([]JournalEntry, error) {
	accounts, err := g.Accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	allTxs, err := g.Transactions.ListAllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	periodTxs, err := g.Transactions.ListByDateRange(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	// Entries previously persisted for this pair: their IDs are reused so
	// regeneration is stable and dedup can prefer persisted identity.
	existing, err := g.Entries.EntriesForPeriod(ctx, period.Key(), scope)
	if err != nil {
		log.Printf("[Journal] prior entry lookup failed for %s (%s): %v", period.Key(), scope, err)
		existing = nil
	}

	var entries []JournalEntry

	opening, openedMarkers := g.resolveOpening(ctx, scope, period, accounts, allTxs)
	entries = append(entries, g.openingEntry(scope, period, opening))
	entries = append(entries, openedMarkers...)

	income := ZeroAmount()
	expense := ZeroAmount()
	for _, tx := range periodTxs {
		mirrors := mirrorEntries(scope, period, tx)
		for _, m := range mirrors {
			if m.Category == CategoryIncome {
				income = income.Add(m.Amount)
			} else {
				expense = expense.Add(m.Amount)
			}
		}
		entries = append(entries, mirrors...)
	}

	net := income.Add(expense)
	expected := opening.Add(net)
	entries = append(entries,
		g.summaryEntry(scope, period, EntryIncomeTotal, "Income", income, period.End),
		g.summaryEntry(scope, period, EntryExpenseTotal, "Expenses", expense, period.End),
		g.summaryEntry(scope, period, EntryNet, "Net", net, period.End),
		g.summaryEntry(scope, period, EntryExpected, "Expected balance", expected, period.End),
	)

	closing := expected
	if adj := g.adjustmentFor(ctx, scope, period.Key()); adj != nil {
		entries = append(entries,
			g.summaryEntry(scope, period, EntryAdjusted, "Adjusted balance", adj.Balance, period.End.AddDays(1)))
		closing = adj.Balance
	}

	entries = Dedupe(assignIDs(entries, existing))
	SortEntries(entries)

	if err := g.Entries.ReplaceForPeriod(ctx, period.Key(), scope, entries); err != nil {
		return nil, err
	}
	g.Cache.Set(period.Key(), scope, closing)
	return entries, nil
}

// =============================================================================
// OPENING BALANCE RESOLUTION
// =============================================================================

// resolveOpening determines the period's opening balance for the scope and
// returns any "account opened" marker entries for accounts created inside
// the period.
func (g *Generator) resolveOpening(ctx context.Context, scope Scope, period Period, accounts []Account, allTxs []Transaction) (Amount, []JournalEntry) {
	opening := ZeroAmount()
	var markers []JournalEntry

	for _, acct := range accounts {
		if !scope.IsConsolidated() && acct.ID != scope.AccountID() {
			continue
		}
		if period.Contains(acct.CreatedAt) {
			// Account born inside this period: it opens with its declared
			// balance, and the journal records when.
			opening = opening.Add(acct.OpeningBalance)
			markers = append(markers, g.accountOpenedEntry(scope, period, acct))
			continue
		}
		if acct.CreatedAt.After(period.End) {
			continue
		}
		opening = opening.Add(g.previousClosing(ctx, acct, period, accounts, allTxs))
	}
	return opening, markers
}

// previousClosing resolves one account's closing balance for the period
// before the given one: manual adjustment first, then the persisted
// expected entry, then a cold-start replay.
func (g *Generator) previousClosing(ctx context.Context, acct Account, period Period, accounts []Account, allTxs []Transaction) Amount {
	prev := g.Policy.PreviousPeriod(period)

	if g.Capabilities.Adjustments {
		adj, err := g.Adjustments.Get(ctx, acct.ID, prev.Key())
		if err != nil {
			log.Printf("[Journal] adjustment lookup failed for %s %s: %v", acct.ID, prev.Key(), err)
		} else if adj != nil {
			return adj.Balance
		}
	}

	prevEntries, err := g.Entries.EntriesForPeriod(ctx, prev.Key(), AccountScope(acct.ID))
	if err != nil {
		log.Printf("[Journal] prior period lookup failed for %s %s: %v", acct.ID, prev.Key(), err)
	} else {
		for _, e := range prevEntries {
			if e.Kind == EntryExpected {
				return e.Amount
			}
		}
	}

	// Cold start: re-derive from the full history. Authoritative.
	return BalanceAt(AccountScope(acct.ID), prev.End, accounts, allTxs)
}

func (g *Generator) adjustmentFor(ctx context.Context, scope Scope, periodKey string) *BalanceAdjustment {
	// Adjustments are per-account; the consolidated view carries none.
	if scope.IsConsolidated() || !g.Capabilities.Adjustments {
		return nil
	}
	adj, err := g.Adjustments.Get(ctx, scope.AccountID(), periodKey)
	if err != nil {
		log.Printf("[Journal] adjustment lookup failed for %s %s: %v", scope.AccountID(), periodKey, err)
		return nil
	}
	return adj
}

// =============================================================================
// ENTRY CONSTRUCTION
// =============================================================================

func scopeRef(scope Scope) *AccountID {
	if scope.IsConsolidated() {
		return nil
	}
	id := scope.AccountID()
	return &id
}

func (g *Generator) openingEntry(scope Scope, period Period, amount Amount) JournalEntry {
	return JournalEntry{
		PeriodKey: period.Key(),
		Kind:      EntryOpening,
		Category:  CategoryBalance,
		Name:      "Opening balance",
		Amount:    amount,
		Date:      period.Start,
		Computed:  true,
		AccountID: scopeRef(scope),
	}
}

func (g *Generator) accountOpenedEntry(scope Scope, period Period, acct Account) JournalEntry {
	return JournalEntry{
		PeriodKey: period.Key(),
		Kind:      EntryAccountOpened,
		Category:  CategoryBalance,
		Name:      "Account opened: " + acct.Name,
		Amount:    acct.OpeningBalance,
		Date:      acct.CreatedAt,
		Computed:  true,
		AccountID: scopeRef(scope),
	}
}

func (g *Generator) summaryEntry(scope Scope, period Period, kind EntryKind, name string, amount Amount, date TimePoint) JournalEntry {
	return JournalEntry{
		PeriodKey: period.Key(),
		Kind:      kind,
		Category:  CategorySummary,
		Name:      name,
		Amount:    amount,
		Date:      date,
		Computed:  true,
		AccountID: scopeRef(scope),
	}
}

// mirrorEntries returns the journal lines mirroring one transaction within
// the scope. Transfers produce one leg per touched account in an account
// scope and nothing in the consolidated scope.
func mirrorEntries(scope Scope, period Period, tx Transaction) []JournalEntry {
	mirror := func(category Category, amount Amount, accountID AccountID) JournalEntry {
		name := tx.Description
		if name == "" {
			name = tx.Category
		}
		txID := tx.ID
		entry := JournalEntry{
			PeriodKey:     period.Key(),
			Kind:          EntryTransaction,
			Category:      category,
			Name:          name,
			Amount:        amount,
			Date:          tx.OccurredAt,
			Computed:      false,
			TransactionID: &txID,
		}
		if !scope.IsConsolidated() {
			id := accountID
			entry.AccountID = &id
		}
		return entry
	}

	switch tx.Kind {
	case KindIncome:
		if !scope.IsConsolidated() && tx.AccountID != scope.AccountID() {
			return nil
		}
		return []JournalEntry{mirror(CategoryIncome, tx.Amount, tx.AccountID)}

	case KindExpense:
		if !scope.IsConsolidated() && tx.AccountID != scope.AccountID() {
			return nil
		}
		return []JournalEntry{mirror(ExpenseCategory(tx.Category), tx.Amount.Neg(), tx.AccountID)}

	case KindTransfer:
		// Transfers net to zero across the whole ledger.
		if scope.IsConsolidated() {
			return nil
		}
		var legs []JournalEntry
		if tx.AccountID == scope.AccountID() {
			legs = append(legs, mirror(CategoryCurrentExpense, tx.Amount.Neg(), tx.AccountID))
		}
		if tx.DestAccountID == scope.AccountID() {
			legs = append(legs, mirror(CategoryIncome, tx.Amount, tx.DestAccountID))
		}
		return legs
	}
	return nil
}

// ExpenseCategory maps a transaction's category tag to a display category.
// Fixed and recurring charges rank before day-to-day spending; one-off
// exceptional spending ranks after it.
func ExpenseCategory(tag string) Category {
	t := strings.ToLower(tag)
	switch {
	case strings.Contains(t, "fixed"), strings.Contains(t, "recurring"),
		strings.Contains(t, "rent"), strings.Contains(t, "subscription"):
		return CategoryFixedExpense
	case strings.Contains(t, "exceptional"), strings.Contains(t, "one-off"),
		strings.Contains(t, "oneoff"):
		return CategoryExceptionalExpense
	default:
		return CategoryCurrentExpense
	}
}

// =============================================================================
// ORDERING AND DEDUPLICATION
// =============================================================================

// SortEntries orders a journal for display: opening first regardless of
// date, then ascending date, then category rank, then summary sub-order.
func SortEntries(entries []JournalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.Kind == EntryOpening) != (b.Kind == EntryOpening) {
			return a.Kind == EntryOpening
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Kind.summaryRank() < b.Kind.summaryRank()
	})
}

// Dedupe collapses entries sharing a dedup key, preferring the entry that
// already carries a persisted identifier.
func Dedupe(entries []JournalEntry) []JournalEntry {
	seen := make(map[DedupKey]int, len(entries))
	out := entries[:0]
	for _, e := range entries {
		k := e.DedupKey()
		if i, ok := seen[k]; ok {
			if out[i].ID == "" && e.ID != "" {
				out[i] = e
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, e)
	}
	return out
}

// assignIDs reuses the persisted ID of any prior entry with the same dedup
// key and mints fresh IDs for the rest.
func assignIDs(entries, existing []JournalEntry) []JournalEntry {
	persisted := make(map[DedupKey]EntryID, len(existing))
	for _, e := range existing {
		if e.ID != "" {
			persisted[e.DedupKey()] = e.ID
		}
	}
	for i := range entries {
		if entries[i].ID != "" {
			continue
		}
		if id, ok := persisted[entries[i].DedupKey()]; ok {
			entries[i].ID = id
			continue
		}
		entries[i].ID = EntryID(uuid.NewString())
	}
	return entries
}
