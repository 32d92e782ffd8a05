/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Account:
    AccountDTO, CreateAccountRequest

  Transaction:
    TransactionDTO, PutTransactionRequest

  Journal:
    JournalDTO, JournalEntryDTO

  Balance:
    ClosingBalanceDTO

  Adjustment:
    AdjustmentDTO, PutAdjustmentRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain model these map from
*/
package api

import (
	"github.com/warp/ledger-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
	CreatedAt      string `json:"created_at"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
	CreatedAt      string `json:"created_at"`
}

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	DestAccountID string `json:"dest_account_id,omitempty"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Category      string `json:"category,omitempty"`
	OccurredAt    string `json:"occurred_at"`
	Description   string `json:"description,omitempty"`
}

// PutTransactionRequest is the request to record or edit a transaction.
// ID is optional on create; the server assigns one when absent.
type PutTransactionRequest struct {
	ID            string `json:"id,omitempty"`
	AccountID     string `json:"account_id"`
	DestAccountID string `json:"dest_account_id,omitempty"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Category      string `json:"category,omitempty"`
	OccurredAt    string `json:"occurred_at"`
	Description   string `json:"description,omitempty"`
}

// JournalEntryDTO represents one journal line.
type JournalEntryDTO struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Category      int    `json:"category"`
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Computed      bool   `json:"computed"`
	AccountID     string `json:"account_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// JournalDTO is the full journal of one period and scope.
type JournalDTO struct {
	PeriodKey string            `json:"period_key"`
	Label     string            `json:"label"`
	Start     string            `json:"start"`
	End       string            `json:"end"`
	Scope     string            `json:"scope"`
	Entries   []JournalEntryDTO `json:"entries"`
}

// ClosingBalanceDTO reports a closing balance and its provenance.
type ClosingBalanceDTO struct {
	PeriodKey string `json:"period_key"`
	Scope     string `json:"scope"`
	Amount    string `json:"amount"`
	Source    string `json:"source"`
}

// AdjustmentDTO represents a manual closing-balance override.
type AdjustmentDTO struct {
	AccountID string `json:"account_id"`
	PeriodKey string `json:"period_key"`
	Balance   string `json:"balance"`
	Note      string `json:"note,omitempty"`
}

// PutAdjustmentRequest is the request to set an adjustment.
type PutAdjustmentRequest struct {
	Balance string `json:"balance"`
	Note    string `json:"note,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAccountDTO(a engine.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		OpeningBalance: a.OpeningBalance.String(),
		CreatedAt:      a.CreatedAt.String(),
	}
}

func toTransactionDTO(tx engine.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            string(tx.ID),
		AccountID:     string(tx.AccountID),
		DestAccountID: string(tx.DestAccountID),
		Amount:        tx.Amount.String(),
		Kind:          string(tx.Kind),
		Category:      tx.Category,
		OccurredAt:    tx.OccurredAt.String(),
		Description:   tx.Description,
	}
}

func toTransactionDTOs(txs []engine.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toJournalEntryDTO(e engine.JournalEntry) JournalEntryDTO {
	dto := JournalEntryDTO{
		ID:       string(e.ID),
		Kind:     e.Kind.String(),
		Category: int(e.Category),
		Name:     e.Name,
		Amount:   e.Amount.String(),
		Date:     e.Date.String(),
		Computed: e.Computed,
	}
	if e.AccountID != nil {
		dto.AccountID = string(*e.AccountID)
	}
	if e.TransactionID != nil {
		dto.TransactionID = string(*e.TransactionID)
	}
	return dto
}

func toAdjustmentDTO(adj engine.BalanceAdjustment) AdjustmentDTO {
	return AdjustmentDTO{
		AccountID: string(adj.AccountID),
		PeriodKey: adj.PeriodKey,
		Balance:   adj.Balance.String(),
		Note:      adj.Note,
	}
}
