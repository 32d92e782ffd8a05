/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates accounts and
	transactions, then triggers a full regeneration so every period's
	journal is immediately browsable.

AVAILABLE SCENARIOS:

	single-account:  One checking account with salary and rent
	two-accounts:    Checking + savings with a monthly transfer
	adjusted:        Checking account with a manual balance correction

HOW SCENARIOS WORK:
 1. Seed accounts via the store
 2. Seed transactions via the store
 3. Optionally seed adjustments
 4. RegenerateAll so journals and caches are populated

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "two-accounts"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios write into the live database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/ledger-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-account",
		Name:        "Single Account",
		Description: "One checking account with salary, rent and groceries over three months",
	},
	{
		ID:          "two-accounts",
		Name:        "Two Accounts",
		Description: "Checking and savings with a recurring monthly transfer",
	},
	{
		ID:          "adjusted",
		Name:        "Adjusted Balance",
		Description: "Checking account with a manual closing-balance correction mid-history",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario seeds the database with one of the demo data sets.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "single-account":
		err = loadSingleAccountScenario(ctx, h)
	case "two-accounts":
		err = loadTwoAccountsScenario(ctx, h)
	case "adjusted":
		err = loadAdjustedScenario(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	if err := h.Engine.RegenerateAll(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Scenario loaded but regeneration failed", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleAccountScenario(ctx context.Context, h *Handler) error {
	checking := engine.Account{
		ID:             "checking",
		Name:           "Checking",
		OpeningBalance: engine.NewAmountFromInt(1000),
		CreatedAt:      engine.NewTimePoint(2025, 1, 1),
	}
	if err := h.Store.PutAccount(ctx, checking); err != nil {
		return err
	}

	txs := []engine.Transaction{
		salary("tx-salary-jan", "checking", 2500, engine.NewTimePoint(2025, 1, 28)),
		salary("tx-salary-feb", "checking", 2500, engine.NewTimePoint(2025, 2, 28)),
		salary("tx-salary-mar", "checking", 2500, engine.NewTimePoint(2025, 3, 28)),
		expense("tx-rent-jan", "checking", 900, "rent", engine.NewTimePoint(2025, 1, 3)),
		expense("tx-rent-feb", "checking", 900, "rent", engine.NewTimePoint(2025, 2, 3)),
		expense("tx-rent-mar", "checking", 900, "rent", engine.NewTimePoint(2025, 3, 3)),
		expense("tx-groceries-jan", "checking", 310, "groceries", engine.NewTimePoint(2025, 1, 15)),
		expense("tx-groceries-feb", "checking", 285, "groceries", engine.NewTimePoint(2025, 2, 14)),
		expense("tx-groceries-mar", "checking", 330, "groceries", engine.NewTimePoint(2025, 3, 16)),
	}
	return putTransactions(ctx, h, txs)
}

func loadTwoAccountsScenario(ctx context.Context, h *Handler) error {
	if err := loadSingleAccountScenario(ctx, h); err != nil {
		return err
	}
	savings := engine.Account{
		ID:             "savings",
		Name:           "Savings",
		OpeningBalance: engine.NewAmountFromInt(5000),
		CreatedAt:      engine.NewTimePoint(2025, 1, 1),
	}
	if err := h.Store.PutAccount(ctx, savings); err != nil {
		return err
	}

	txs := []engine.Transaction{
		transfer("tx-save-jan", "checking", "savings", 400, engine.NewTimePoint(2025, 1, 30)),
		transfer("tx-save-feb", "checking", "savings", 400, engine.NewTimePoint(2025, 2, 27)),
		transfer("tx-save-mar", "checking", "savings", 400, engine.NewTimePoint(2025, 3, 30)),
	}
	return putTransactions(ctx, h, txs)
}

func loadAdjustedScenario(ctx context.Context, h *Handler) error {
	if err := loadSingleAccountScenario(ctx, h); err != nil {
		return err
	}
	// A bank fee nobody recorded: the real February statement shows less
	// than the expected balance, corrected by hand.
	return h.Store.UpsertAdjustment(ctx, engine.BalanceAdjustment{
		AccountID: "checking",
		PeriodKey: "2025-02",
		Balance:   engine.MustParseAmount("3975.50"),
		Note:      "Matched to bank statement",
	})
}

func putTransactions(ctx context.Context, h *Handler, txs []engine.Transaction) error {
	for _, tx := range txs {
		if err := h.Store.PutTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func salary(id, account string, amount int, at engine.TimePoint) engine.Transaction {
	return engine.Transaction{
		ID:         engine.TransactionID(id),
		AccountID:  engine.AccountID(account),
		Amount:     engine.NewAmountFromInt(amount),
		Kind:       engine.KindIncome,
		Category:   "salary",
		OccurredAt: at,
	}
}

func expense(id, account string, amount int, category string, at engine.TimePoint) engine.Transaction {
	return engine.Transaction{
		ID:         engine.TransactionID(id),
		AccountID:  engine.AccountID(account),
		Amount:     engine.NewAmountFromInt(amount),
		Kind:       engine.KindExpense,
		Category:   category,
		OccurredAt: at,
	}
}

func transfer(id, from, to string, amount int, at engine.TimePoint) engine.Transaction {
	return engine.Transaction{
		ID:            engine.TransactionID(id),
		AccountID:     engine.AccountID(from),
		DestAccountID: engine.AccountID(to),
		Amount:        engine.NewAmountFromInt(amount),
		Kind:          engine.KindTransfer,
		Category:      "transfer",
		OccurredAt:    at,
	}
}
