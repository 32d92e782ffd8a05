package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/ledger-engine/engine"
	"github.com/warp/ledger-engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fixture struct {
	mem *store.Memory
	gen *engine.Generator
}

func newFixture(policy engine.PeriodPolicy) *fixture {
	mem := store.NewMemory()
	return &fixture{
		mem: mem,
		gen: &engine.Generator{
			Accounts:     mem,
			Transactions: mem,
			Adjustments:  mem,
			Entries:      mem,
			Cache:        engine.NewBalanceCache(),
			Policy:       policy,
			Capabilities: engine.Capabilities{Adjustments: true},
		},
	}
}

func (f *fixture) seed(t *testing.T, accounts []engine.Account, txs []engine.Transaction) {
	t.Helper()
	ctx := context.Background()
	for _, a := range accounts {
		if err := f.mem.PutAccount(ctx, a); err != nil {
			t.Fatalf("seeding account: %v", err)
		}
	}
	for _, tx := range txs {
		if err := f.mem.PutTransaction(ctx, tx); err != nil {
			t.Fatalf("seeding transaction: %v", err)
		}
	}
}

func (f *fixture) generate(t *testing.T, scope engine.Scope, date engine.TimePoint) []engine.JournalEntry {
	t.Helper()
	entries, err := f.gen.Generate(context.Background(), scope, f.gen.Policy.PeriodOf(date))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return entries
}

func findEntry(entries []engine.JournalEntry, kind engine.EntryKind) *engine.JournalEntry {
	for i := range entries {
		if entries[i].Kind == kind {
			return &entries[i]
		}
	}
	return nil
}

func assertKindAmount(t *testing.T, entries []engine.JournalEntry, kind engine.EntryKind, want engine.Amount) {
	t.Helper()
	e := findEntry(entries, kind)
	if e == nil {
		t.Fatalf("no %s entry in journal", kind)
	}
	if !e.Amount.Equal(want) {
		t.Errorf("%s: expected %s, got %s", kind, want, e.Amount)
	}
}

// =============================================================================
// JOURNAL GENERATION
// =============================================================================

func TestGenerate_SummaryLines(t *testing.T) {
	// GIVEN: An account opened at 1000 in January, +500 income and -200
	//        expense in February
	// WHEN: Generating January then February
	// THEN: February opens at January's closing; income total 500, expense
	//       total -200, net 300, expected 1300

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("checking", 1000, day(2025, time.January, 1))},
		[]engine.Transaction{
			income("tx-1", "checking", 500, day(2025, time.February, 10)),
			expense("tx-2", "checking", 200, "groceries", day(2025, time.February, 15)),
		})

	scope := engine.AccountScope("checking")
	jan := f.generate(t, scope, day(2025, time.January, 1))
	assertKindAmount(t, jan, engine.EntryOpening, amt(1000))
	assertKindAmount(t, jan, engine.EntryExpected, amt(1000))
	if findEntry(jan, engine.EntryAccountOpened) == nil {
		t.Error("expected an account-opened marker in the creation period")
	}

	feb := f.generate(t, scope, day(2025, time.February, 1))
	assertKindAmount(t, feb, engine.EntryOpening, amt(1000))
	assertKindAmount(t, feb, engine.EntryIncomeTotal, amt(500))
	assertKindAmount(t, feb, engine.EntryExpenseTotal, amt(-200))
	assertKindAmount(t, feb, engine.EntryNet, amt(300))
	assertKindAmount(t, feb, engine.EntryExpected, amt(1300))
}

func TestGenerate_MirrorsCarryTransactionIdentity(t *testing.T) {
	// GIVEN: One expense in the generated period
	// THEN: Its mirror entry references the source transaction and is not
	//       marked computed

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("checking", 100, day(2025, time.January, 1))},
		[]engine.Transaction{expense("tx-rent", "checking", 80, "rent", day(2025, time.January, 5))})

	entries := f.generate(t, engine.AccountScope("checking"), day(2025, time.January, 1))
	mirror := findEntry(entries, engine.EntryTransaction)
	if mirror == nil {
		t.Fatal("no mirror entry generated")
	}
	if mirror.Computed {
		t.Error("mirror entries must not be marked computed")
	}
	if mirror.TransactionID == nil || *mirror.TransactionID != "tx-rent" {
		t.Errorf("mirror should reference tx-rent, got %v", mirror.TransactionID)
	}
	if mirror.Category != engine.CategoryFixedExpense {
		t.Errorf("rent should classify as fixed expense, got %s", mirror.Category)
	}
	if !mirror.Amount.Equal(amt(-80)) {
		t.Errorf("expense mirrors carry the negative amount, got %s", mirror.Amount)
	}
}

func TestGenerate_Ordering(t *testing.T) {
	// GIVEN: Transactions out of date order
	// THEN: Opening first, then ascending date, then the summary block in
	//       income/expense/net/expected order at the period end

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("checking", 0, day(2024, time.December, 1))},
		[]engine.Transaction{
			expense("tx-late", "checking", 10, "groceries", day(2025, time.January, 25)),
			income("tx-early", "checking", 50, day(2025, time.January, 2)),
		})

	entries := f.generate(t, engine.AccountScope("checking"), day(2025, time.January, 1))
	if entries[0].Kind != engine.EntryOpening {
		t.Fatalf("first entry must be the opening, got %s", entries[0].Kind)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Date.Before(entries[i-1].Date) {
			t.Errorf("entries out of date order at %d: %s after %s", i, entries[i].Date, entries[i-1].Date)
		}
	}

	var summaryKinds []engine.EntryKind
	for _, e := range entries {
		if e.Category == engine.CategorySummary {
			summaryKinds = append(summaryKinds, e.Kind)
		}
	}
	want := []engine.EntryKind{engine.EntryIncomeTotal, engine.EntryExpenseTotal, engine.EntryNet, engine.EntryExpected}
	if len(summaryKinds) != len(want) {
		t.Fatalf("expected %d summary lines, got %d", len(want), len(summaryKinds))
	}
	for i, k := range want {
		if summaryKinds[i] != k {
			t.Errorf("summary position %d: expected %s, got %s", i, k, summaryKinds[i])
		}
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	// GIVEN: A generated period
	// WHEN: Generating it again with unchanged inputs
	// THEN: The entry sets are identical, IDs included

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("checking", 1000, day(2025, time.January, 1))},
		[]engine.Transaction{income("tx-1", "checking", 500, day(2025, time.January, 10))})

	scope := engine.AccountScope("checking")
	first := f.generate(t, scope, day(2025, time.January, 1))
	second := f.generate(t, scope, day(2025, time.January, 1))

	if len(first) != len(second) {
		t.Fatalf("entry count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("entry %d changed identity: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if !first[i].Amount.Equal(second[i].Amount) || first[i].Kind != second[i].Kind {
			t.Errorf("entry %d changed content", i)
		}
	}
}

func TestDedupe_PrefersPersistedID(t *testing.T) {
	// GIVEN: A freshly derived entry and a persisted one sharing a dedup key
	// WHEN: Deduplicating
	// THEN: A single entry survives and it keeps the persisted ID

	acct := engine.AccountID("checking")
	fresh := engine.JournalEntry{
		PeriodKey: "2025-01",
		Kind:      engine.EntryTransaction,
		Category:  engine.CategoryIncome,
		Name:      "salary",
		Amount:    amt(500),
		Date:      day(2025, time.January, 10),
		AccountID: &acct,
	}
	persisted := fresh
	persisted.ID = engine.EntryID("persisted-entry")

	deduped := engine.Dedupe([]engine.JournalEntry{fresh, persisted})
	if len(deduped) != 1 {
		t.Fatalf("expected 1 entry after dedupe, got %d", len(deduped))
	}
	if deduped[0].ID != "persisted-entry" {
		t.Errorf("expected the persisted ID to survive, got %q", deduped[0].ID)
	}

	// Order must not matter: persisted first, fresh second.
	deduped = engine.Dedupe([]engine.JournalEntry{persisted, fresh})
	if len(deduped) != 1 || deduped[0].ID != "persisted-entry" {
		t.Errorf("persisted-first order: expected 1 entry with the persisted ID, got %+v", deduped)
	}
}

// =============================================================================
// OPENING RESOLUTION
// =============================================================================

func TestGenerate_AdjustmentOverridesNextOpening(t *testing.T) {
	// GIVEN: February expected 1300, adjusted by hand to 1250
	// WHEN: Regenerating February and generating March
	// THEN: February's journal gains an adjusted line dated after the
	//       expected one, and March opens at 1250

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("checking", 1000, day(2025, time.January, 1))},
		[]engine.Transaction{
			income("tx-1", "checking", 500, day(2025, time.February, 10)),
			expense("tx-2", "checking", 200, "groceries", day(2025, time.February, 15)),
		})

	scope := engine.AccountScope("checking")
	f.generate(t, scope, day(2025, time.January, 1))
	f.generate(t, scope, day(2025, time.February, 1))

	if err := f.mem.UpsertAdjustment(context.Background(), engine.BalanceAdjustment{
		AccountID: "checking",
		PeriodKey: "2025-02",
		Balance:   amt(1250),
		Note:      "bank statement",
	}); err != nil {
		t.Fatalf("upsert adjustment: %v", err)
	}

	feb := f.generate(t, scope, day(2025, time.February, 1))
	assertKindAmount(t, feb, engine.EntryExpected, amt(1300))
	assertKindAmount(t, feb, engine.EntryAdjusted, amt(1250))

	adjusted := findEntry(feb, engine.EntryAdjusted)
	expected := findEntry(feb, engine.EntryExpected)
	if !expected.Date.Before(adjusted.Date) {
		t.Error("adjusted line must sort after the expected line")
	}

	mar := f.generate(t, scope, day(2025, time.March, 1))
	assertKindAmount(t, mar, engine.EntryOpening, amt(1250))
}

func TestGenerate_AdjustmentsIgnoredWithoutCapability(t *testing.T) {
	// GIVEN: An adjustment in the store but the capability disabled
	// THEN: The journal never consults it

	f := newFixture(engine.CalendarPolicy())
	f.gen.Capabilities = engine.Capabilities{Adjustments: false}
	f.seed(t, []engine.Account{account("checking", 1000, day(2025, time.January, 1))}, nil)
	if err := f.mem.UpsertAdjustment(context.Background(), engine.BalanceAdjustment{
		AccountID: "checking", PeriodKey: "2025-01", Balance: amt(1),
	}); err != nil {
		t.Fatalf("upsert adjustment: %v", err)
	}

	jan := f.generate(t, engine.AccountScope("checking"), day(2025, time.January, 1))
	if findEntry(jan, engine.EntryAdjusted) != nil {
		t.Error("adjusted entry emitted although the capability is off")
	}

	feb := f.generate(t, engine.AccountScope("checking"), day(2025, time.February, 1))
	assertKindAmount(t, feb, engine.EntryOpening, amt(1000))
}

func TestGenerate_ColdStartWithFailingAdjustmentStore(t *testing.T) {
	// GIVEN: No persisted prior period and an adjustment store that errors
	// WHEN: Generating February directly
	// THEN: Generation succeeds and the opening is re-derived by replay

	f := newFixture(engine.CalendarPolicy())
	f.gen.Adjustments = erroringAdjustments{}
	f.seed(t,
		[]engine.Account{account("checking", 1000, day(2025, time.January, 1))},
		[]engine.Transaction{income("tx-1", "checking", 500, day(2025, time.January, 10))})

	feb := f.generate(t, engine.AccountScope("checking"), day(2025, time.February, 1))
	assertKindAmount(t, feb, engine.EntryOpening, amt(1500))
}

func TestGenerate_AccountCreatedMidPeriod_UsesDeclaredOpening(t *testing.T) {
	// GIVEN: An account created on Feb 15 with declared balance 800
	// WHEN: Generating February
	// THEN: The declared balance opens the period and a marker records the
	//       creation day; earlier transactions never leak in

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{account("fresh", 800, day(2025, time.February, 15))},
		[]engine.Transaction{income("tx-1", "fresh", 100, day(2025, time.February, 20))})

	feb := f.generate(t, engine.AccountScope("fresh"), day(2025, time.February, 1))
	assertKindAmount(t, feb, engine.EntryOpening, amt(800))
	assertKindAmount(t, feb, engine.EntryExpected, amt(900))

	marker := findEntry(feb, engine.EntryAccountOpened)
	if marker == nil {
		t.Fatal("expected an account-opened marker")
	}
	if !marker.Date.Equal(day(2025, time.February, 15)) {
		t.Errorf("marker should carry the creation date, got %s", marker.Date)
	}
}

// =============================================================================
// CONSOLIDATED SCOPE
// =============================================================================

func TestGenerate_ConsolidatedSkipsTransfersAndSumsOpenings(t *testing.T) {
	// GIVEN: Two accounts with a transfer between them in February
	// WHEN: Generating February for each account and consolidated
	// THEN: The consolidated journal has no transfer mirrors, its opening is
	//       the sum of per-account closings, and its expected balance equals
	//       the sum of the per-account expected balances

	f := newFixture(engine.CalendarPolicy())
	f.seed(t,
		[]engine.Account{
			account("checking", 1000, day(2025, time.January, 1)),
			account("savings", 5000, day(2025, time.January, 1)),
		},
		[]engine.Transaction{
			income("tx-salary", "checking", 2500, day(2025, time.February, 5)),
			transfer("tx-save", "checking", "savings", 400, day(2025, time.February, 20)),
		})

	for _, scope := range []engine.Scope{engine.AccountScope("checking"), engine.AccountScope("savings")} {
		f.generate(t, scope, day(2025, time.January, 1))
		f.generate(t, scope, day(2025, time.February, 1))
	}
	f.generate(t, engine.ConsolidatedScope(), day(2025, time.January, 1))
	all := f.generate(t, engine.ConsolidatedScope(), day(2025, time.February, 1))

	for _, e := range all {
		if e.TransactionID != nil && *e.TransactionID == "tx-save" {
			t.Error("consolidated journal must not mirror transfers")
		}
	}
	assertKindAmount(t, all, engine.EntryOpening, amt(6000))
	assertKindAmount(t, all, engine.EntryExpected, amt(8500))

	// Per-account expecteds: checking 1000+2500-400=3100, savings 5000+400=5400
	checking := f.generate(t, engine.AccountScope("checking"), day(2025, time.February, 1))
	savings := f.generate(t, engine.AccountScope("savings"), day(2025, time.February, 1))
	assertKindAmount(t, checking, engine.EntryExpected, amt(3100))
	assertKindAmount(t, savings, engine.EntryExpected, amt(5400))
}

// =============================================================================
// STUBS
// =============================================================================

type erroringAdjustments struct{}

func (erroringAdjustments) Get(context.Context, engine.AccountID, string) (*engine.BalanceAdjustment, error) {
	return nil, errors.New("adjustment backend down")
}

func (erroringAdjustments) ListByAccount(context.Context, engine.AccountID) ([]engine.BalanceAdjustment, error) {
	return nil, errors.New("adjustment backend down")
}
