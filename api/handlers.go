/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the journal and balance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                        List all accounts
    POST   /api/accounts                        Create account
    GET    /api/accounts/{id}                   Get account details
    GET    /api/accounts/{id}/adjustments       List adjustments

  Transactions:
    GET    /api/transactions                    List all transactions
    POST   /api/transactions                    Record a transaction
    PUT    /api/transactions/{id}               Edit a transaction
    DELETE /api/transactions/{id}               Delete a transaction

  Journal and balances:
    GET    /api/journal/{periodKey}?account=    Journal for a period
    GET    /api/balance/{periodKey}?account=    Closing balance + source

  Adjustments:
    PUT    /api/accounts/{id}/adjustments/{periodKey}  Set an override
    DELETE /api/accounts/{id}/adjustments/{periodKey}  Clear an override

  Admin:
    POST   /api/admin/regenerate                Full rebuild
    POST   /api/admin/regenerate/{periodKey}    Rebuild one period onward

  Scenarios:
    GET    /api/scenarios                       List demo scenarios
    POST   /api/scenarios/load                  Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Mutate the store, then notify the engine so propagation runs
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed period keys
  - 404: Resource not found
  - 500: Internal errors (including partial regeneration failures)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/engine"
	"github.com/warp/ledger-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *engine.Engine

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(store *sqlite.Store, eng *engine.Engine) *Handler {
	return &Handler{Store: store, Engine: eng}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount registers a new account. The account starts contributing
// to journals from its creation date onward.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	opening, err := parseAmount(req.OpeningBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening_balance", err)
		return
	}
	createdAt := engine.Today()
	if req.CreatedAt != "" {
		createdAt, err = engine.ParseTimePoint(req.CreatedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid created_at, expected YYYY-MM-DD", err)
			return
		}
	}

	account := engine.Account{
		ID:             engine.AccountID(req.ID),
		Name:           req.Name,
		OpeningBalance: opening,
		CreatedAt:      createdAt,
	}
	if err := h.Store.PutAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save account", err)
		return
	}

	// The creation period and everything after it now include this account.
	if err := h.Engine.RegeneratePeriod(r.Context(), h.Engine.Policy().PeriodOf(createdAt).Key()); err != nil {
		log.Printf("[API] regeneration after account create: %v", err)
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns one account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))
	account, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load account", err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", engine.ErrAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// ListAdjustments returns all adjustments of one account.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))
	adjustments, err := h.Store.ListByAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}

	dtos := make([]AdjustmentDTO, len(adjustments))
	for i, adj := range adjustments {
		dtos[i] = toAdjustmentDTO(adj)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions, oldest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Store.ListAllTransactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction records a transaction and propagates it through every
// affected period.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.decodeTransaction(w, r, "")
	if !ok {
		return
	}
	if tx.ID == "" {
		tx.ID = engine.TransactionID(uuid.NewString())
	}

	if err := h.Store.PutTransaction(r.Context(), tx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
		return
	}
	if err := h.Engine.OnTransactionAdded(r.Context(), tx); err != nil {
		log.Printf("[API] propagation after transaction create: %v", err)
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateTransaction edits a transaction. When the date moved across a
// period boundary both the old and the new period are regenerated.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := engine.TransactionID(chi.URLParam(r, "id"))

	old, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transaction", err)
		return
	}
	if old == nil {
		writeError(w, http.StatusNotFound, "Transaction not found", engine.ErrTransactionNotFound)
		return
	}

	updated, ok := h.decodeTransaction(w, r, id)
	if !ok {
		return
	}

	if err := h.Store.PutTransaction(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
		return
	}
	if err := h.Engine.OnTransactionUpdated(r.Context(), *old, updated); err != nil {
		log.Printf("[API] propagation after transaction update: %v", err)
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

// DeleteTransaction removes a transaction and regenerates from its period.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := engine.TransactionID(chi.URLParam(r, "id"))

	old, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transaction", err)
		return
	}
	if old == nil {
		writeError(w, http.StatusNotFound, "Transaction not found", engine.ErrTransactionNotFound)
		return
	}

	if err := h.Store.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "Transaction not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete transaction", err)
		return
	}
	if err := h.Engine.OnTransactionDeleted(r.Context(), *old); err != nil {
		log.Printf("[API] propagation after transaction delete: %v", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeTransaction parses and validates a transaction request body.
// forceID, when non-empty, pins the ID regardless of the body.
func (h *Handler) decodeTransaction(w http.ResponseWriter, r *http.Request, forceID engine.TransactionID) (engine.Transaction, bool) {
	var req PutTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return engine.Transaction{}, false
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required", nil)
		return engine.Transaction{}, false
	}

	kind := engine.TransactionKind(req.Kind)
	switch kind {
	case engine.KindIncome, engine.KindExpense:
	case engine.KindTransfer:
		if req.DestAccountID == "" {
			writeError(w, http.StatusBadRequest, "dest_account_id is required for transfers", nil)
			return engine.Transaction{}, false
		}
	default:
		writeError(w, http.StatusBadRequest, "kind must be income, expense or transfer", nil)
		return engine.Transaction{}, false
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return engine.Transaction{}, false
	}
	if amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be positive; kind carries the sign", nil)
		return engine.Transaction{}, false
	}

	occurred, err := engine.ParseTimePoint(req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurred_at, expected YYYY-MM-DD", err)
		return engine.Transaction{}, false
	}

	id := engine.TransactionID(req.ID)
	if forceID != "" {
		id = forceID
	}
	return engine.Transaction{
		ID:            id,
		AccountID:     engine.AccountID(req.AccountID),
		DestAccountID: engine.AccountID(req.DestAccountID),
		Amount:        amount,
		Kind:          kind,
		Category:      req.Category,
		OccurredAt:    occurred,
		Description:   req.Description,
	}, true
}

// =============================================================================
// JOURNAL AND BALANCE HANDLERS
// =============================================================================

// GetJournal returns the journal of one period, consolidated by default or
// scoped to ?account=.
func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	periodKey := chi.URLParam(r, "periodKey")
	accountID := accountParam(r)

	period, err := h.Engine.Policy().PeriodForKey(periodKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period key, expected YYYY-MM", err)
		return
	}

	entries, err := h.Engine.GetJournal(r.Context(), periodKey, accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build journal", err)
		return
	}

	dtos := make([]JournalEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toJournalEntryDTO(e)
	}
	scope := engine.ConsolidatedScope()
	if accountID != nil {
		scope = engine.AccountScope(*accountID)
	}
	writeJSON(w, http.StatusOK, JournalDTO{
		PeriodKey: period.Key(),
		Label:     period.Label(),
		Start:     period.Start.String(),
		End:       period.End.String(),
		Scope:     scope.Suffix(),
		Entries:   dtos,
	})
}

// GetBalance returns the closing balance of one period and where it came
// from (adjusted, expected, initial or none).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	periodKey := chi.URLParam(r, "periodKey")
	accountID := accountParam(r)

	balance, err := h.Engine.GetClosingBalance(r.Context(), periodKey, accountID)
	if err != nil {
		if engine.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid period key, expected YYYY-MM", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	scope := engine.ConsolidatedScope()
	if accountID != nil {
		scope = engine.AccountScope(*accountID)
	}
	writeJSON(w, http.StatusOK, ClosingBalanceDTO{
		PeriodKey: periodKey,
		Scope:     scope.Suffix(),
		Amount:    balance.Amount.String(),
		Source:    string(balance.Source),
	})
}

// =============================================================================
// ADJUSTMENT HANDLERS
// =============================================================================

// PutAdjustment sets the manual closing-balance override for one account
// and period, then regenerates everything downstream of it.
func (h *Handler) PutAdjustment(w http.ResponseWriter, r *http.Request) {
	accountID := engine.AccountID(chi.URLParam(r, "id"))
	periodKey := chi.URLParam(r, "periodKey")

	if _, err := h.Engine.Policy().PeriodForKey(periodKey); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period key, expected YYYY-MM", err)
		return
	}
	account, err := h.Store.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load account", err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", engine.ErrAccountNotFound)
		return
	}

	var req PutAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	balance, err := parseAmount(req.Balance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid balance", err)
		return
	}

	adj := engine.BalanceAdjustment{
		AccountID: accountID,
		PeriodKey: periodKey,
		Balance:   balance,
		Note:      req.Note,
	}
	if err := h.Store.UpsertAdjustment(r.Context(), adj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
		return
	}
	if err := h.Engine.OnAdjustmentChanged(r.Context(), accountID, periodKey); err != nil {
		log.Printf("[API] propagation after adjustment: %v", err)
	}

	writeJSON(w, http.StatusOK, toAdjustmentDTO(adj))
}

// DeleteAdjustment clears an override; downstream openings fall back to
// the expected balance.
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	accountID := engine.AccountID(chi.URLParam(r, "id"))
	periodKey := chi.URLParam(r, "periodKey")

	if _, err := h.Engine.Policy().PeriodForKey(periodKey); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period key, expected YYYY-MM", err)
		return
	}
	if err := h.Store.DeleteAdjustment(r.Context(), accountID, periodKey); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete adjustment", err)
		return
	}
	if err := h.Engine.OnAdjustmentChanged(r.Context(), accountID, periodKey); err != nil {
		log.Printf("[API] propagation after adjustment delete: %v", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RegenerateAll rebuilds every period from scratch.
func (h *Handler) RegenerateAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.Engine.RegenerateAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Regeneration failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"duration": time.Since(start).String(),
	})
}

// RegeneratePeriod rebuilds one period and walks forward from it.
func (h *Handler) RegeneratePeriod(w http.ResponseWriter, r *http.Request) {
	periodKey := chi.URLParam(r, "periodKey")
	if err := h.Engine.RegeneratePeriod(r.Context(), periodKey); err != nil {
		if engine.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid period key, expected YYYY-MM", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Regeneration failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "period": periodKey})
}

// =============================================================================
// HELPERS
// =============================================================================

func accountParam(r *http.Request) *engine.AccountID {
	raw := r.URL.Query().Get("account")
	if raw == "" {
		return nil
	}
	id := engine.AccountID(raw)
	return &id
}

func parseAmount(s string) (engine.Amount, error) {
	if s == "" {
		return engine.ZeroAmount(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Amount{}, err
	}
	return engine.Amount{Value: d}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
