/*
Package engine provides the accounting-journal and balance-forecasting core.

PURPOSE:
  This package turns a stream of mutable financial transactions into a
  consistent, per-period ledger of account balances. It computes period
  boundaries (calendar and financial months), generates journal entries,
  propagates closing balances forward through subsequent periods, honors
  manual balance adjustments, and memoizes closing balances so that a
  single edit does not force a full-history recomputation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary quantity backed by decimal.Decimal
  - Account: An externally-owned account record (read-only input)
  - Transaction: An externally-owned income/expense/transfer record
  - JournalEntry: One generated ledger line (mirror or computed summary)
  - BalanceAdjustment: A manual closing-balance override
  - Scope: One account, or the consolidated "all accounts" view

DESIGN PRINCIPLES:
  1. The engine never mutates accounts or transactions; it only reads them
  2. Journal entries and cache entries are engine-owned and freely rebuilt
  3. Precision: decimal.Decimal everywhere, never float arithmetic
  4. Entry kind is a tagged variant; display labels are separate free text

SEE ALSO:
  - period.go: Period boundaries for calendar and financial months
  - evaluator.go: Balance replay from the opening balance
  - journal.go: Journal generation for one (period, scope) pair
  - propagation.go: Forward regeneration across affected periods
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary quantity
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value))}
}

func MustParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Value: decimal.Zero}
	}
	return Amount{Value: d}
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) String() string            { return a.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string
type EntryID string

// =============================================================================
// SCOPE - One account or the consolidated view
// =============================================================================

// Scope selects whose journal is being generated or queried.
// The zero value is the consolidated "all accounts" view.
type Scope struct {
	accountID AccountID
}

// Consolidated is the sentinel used in cache keys and persisted rows for the
// all-accounts view.
const Consolidated = "consolidated"

func ConsolidatedScope() Scope            { return Scope{} }
func AccountScope(id AccountID) Scope     { return Scope{accountID: id} }
func (s Scope) IsConsolidated() bool      { return s.accountID == "" }
func (s Scope) AccountID() AccountID      { return s.accountID }

// Suffix returns the cache/persistence discriminator for this scope.
func (s Scope) Suffix() string {
	if s.IsConsolidated() {
		return Consolidated
	}
	return string(s.accountID)
}

func (s Scope) String() string {
	if s.IsConsolidated() {
		return "all accounts"
	}
	return string(s.accountID)
}

// =============================================================================
// ACCOUNT - Externally-owned, read-only input
// =============================================================================

// Account is owned by the external ledger-of-record. The engine only reads
// its opening balance and creation date. An account has at most one
// opening-balance entry, dated at its creation.
type Account struct {
	ID             AccountID
	Name           string
	OpeningBalance Amount
	CreatedAt      TimePoint
}

// =============================================================================
// TRANSACTION - Externally-owned income/expense/transfer record
// =============================================================================

type TransactionKind string

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

// Transaction amounts are always stored positive; the sign is implied by
// Kind. A transfer has exactly two affected accounts (source, destination);
// income and expense have exactly one.
type Transaction struct {
	ID            TransactionID
	AccountID     AccountID
	DestAccountID AccountID // transfers only, empty otherwise
	Amount        Amount    // always positive
	Kind          TransactionKind
	Category      string
	OccurredAt    TimePoint
	Description   string
}

// Touches reports whether the transaction affects the given account.
func (t Transaction) Touches(id AccountID) bool {
	if t.AccountID == id {
		return true
	}
	return t.Kind == KindTransfer && t.DestAccountID == id
}

// =============================================================================
// JOURNAL ENTRY - One generated ledger line
// =============================================================================

// EntryKind is the tagged variant distinguishing entry roles. Identity and
// ordering logic key off the kind; Name is presentation only.
type EntryKind int

const (
	EntryOpening EntryKind = iota
	EntryAccountOpened
	EntryTransaction
	EntryIncomeTotal
	EntryExpenseTotal
	EntryNet
	EntryExpected
	EntryAdjusted
)

func (k EntryKind) String() string {
	switch k {
	case EntryOpening:
		return "opening"
	case EntryAccountOpened:
		return "account_opened"
	case EntryTransaction:
		return "transaction"
	case EntryIncomeTotal:
		return "income_total"
	case EntryExpenseTotal:
		return "expense_total"
	case EntryNet:
		return "net"
	case EntryExpected:
		return "expected"
	case EntryAdjusted:
		return "adjusted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsComputed reports whether the entry is a derived line rather than a
// mirrored transaction.
func (k EntryKind) IsComputed() bool { return k != EntryTransaction }

// summaryRank orders the computed summary lines at a period's end.
func (k EntryKind) summaryRank() int {
	switch k {
	case EntryIncomeTotal:
		return 0
	case EntryExpenseTotal:
		return 1
	case EntryNet:
		return 2
	case EntryExpected:
		return 3
	case EntryAdjusted:
		return 4
	default:
		return -1
	}
}

// Category ranks entries for display within a day:
// balance < income < fixed expense < current expense < exceptional < summary.
type Category int

const (
	CategoryBalance Category = iota
	CategoryIncome
	CategoryFixedExpense
	CategoryCurrentExpense
	CategoryExceptionalExpense
	CategorySummary
)

func (c Category) String() string {
	switch c {
	case CategoryBalance:
		return "balance"
	case CategoryIncome:
		return "income"
	case CategoryFixedExpense:
		return "fixed_expense"
	case CategoryCurrentExpense:
		return "current_expense"
	case CategoryExceptionalExpense:
		return "exceptional_expense"
	case CategorySummary:
		return "summary"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// JournalEntry is one line of the generated ledger. PeriodKey is the
// YYYY-MM of the calendar month containing the owning period's end.
// AccountID is nil for consolidated entries; TransactionID is set only on
// mirrored transactions.
type JournalEntry struct {
	ID            EntryID
	PeriodKey     string
	Kind          EntryKind
	Category      Category
	Name          string
	Amount        Amount
	Date          TimePoint
	Computed      bool
	AccountID     *AccountID
	TransactionID *TransactionID
}

// DedupKey identifies an entry for deduplication: entries sharing a key are
// collapsed, preferring the one that already carries a persisted ID.
type DedupKey struct {
	Day      string
	Category Category
	Name     string
	Amount   string
	Account  string
}

func (e JournalEntry) DedupKey() DedupKey {
	account := "global"
	if e.AccountID != nil {
		account = string(*e.AccountID)
	}
	return DedupKey{
		Day:      e.Date.String(),
		Category: e.Category,
		Name:     e.Name,
		Amount:   e.Amount.String(),
		Account:  account,
	}
}

// =============================================================================
// BALANCE ADJUSTMENT - Manual closing-balance override
// =============================================================================

// BalanceAdjustment overrides a period's closing balance for one account.
// At most one exists per (account, period key); writers use upsert
// semantics. Highest priority when resolving the next period's opening.
type BalanceAdjustment struct {
	AccountID AccountID
	PeriodKey string
	Balance   Amount
	Note      string
}

// =============================================================================
// CLOSING BALANCE - Read-model for callers
// =============================================================================

// BalanceSource tells a caller where a closing balance came from.
type BalanceSource string

const (
	SourceAdjusted BalanceSource = "adjusted" // manual adjustment
	SourceExpected BalanceSource = "expected" // generated expected entry
	SourceInitial  BalanceSource = "initial"  // re-derived from transactions
	SourceNone     BalanceSource = "none"     // nothing known
)

type ClosingBalance struct {
	Amount Amount
	Source BalanceSource
}
