/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the ledger-of-record (accounts, transactions, adjustments)
  and the engine-owned journal-entry store using SQLite. The same schema
  applies to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  engine.AccountDirectory:     account records
  engine.TransactionDirectory: transaction records
  engine.AdjustmentStore:      manual closing-balance overrides
  engine.EntryStore:           generated journal entries

KEY TABLES:
  accounts:        externally-owned account records
  transactions:    externally-owned income/expense/transfer records
  adjustments:     one row per (account, period key), upsert semantics
  journal_entries: engine-owned, rebuilt per (period key, scope)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

REPLACE SEMANTICS:
  ReplaceForPeriod runs DELETE + INSERT inside one database transaction,
  so a (period, scope) pair is never observable half-written. This is
  what makes regeneration idempotent and cancellation safe.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/ledger-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (ledger-of-record, engine reads only)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Transactions (ledger-of-record, engine reads only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		dest_account_id TEXT,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		category TEXT,
		occurred_at TEXT NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_occurred_at
		ON transactions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, occurred_at);

	-- Manual closing-balance overrides: at most one per (account, period)
	CREATE TABLE IF NOT EXISTS adjustments (
		account_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		balance TEXT NOT NULL,
		note TEXT,
		PRIMARY KEY (account_id, period_key)
	);

	-- Generated journal entries (engine-owned, rebuilt per period+scope)
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		period_key TEXT NOT NULL,
		scope TEXT NOT NULL,
		kind INTEGER NOT NULL,
		category INTEGER NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		computed BOOLEAN NOT NULL,
		account_id TEXT,
		transaction_id TEXT
	);

	-- Journal read/replace hot path
	CREATE INDEX IF NOT EXISTS idx_entries_period_scope
		ON journal_entries(period_key, scope);
	CREATE INDEX IF NOT EXISTS idx_entries_period
		ON journal_entries(period_key);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT DIRECTORY
// =============================================================================

func (s *Store) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, opening_balance, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []engine.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id engine.AccountID) (*engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, opening_balance, created_at FROM accounts WHERE id = ?`, string(id))
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// PutAccount inserts or overwrites an account record. The account layer
// owns these rows; the engine never calls this.
func (s *Store) PutAccount(ctx context.Context, a engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, opening_balance, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			opening_balance = excluded.opening_balance,
			created_at = excluded.created_at`,
		string(a.ID), a.Name, a.OpeningBalance.String(), a.CreatedAt.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (engine.Account, error) {
	var id, name, balance, createdAt string
	if err := r.Scan(&id, &name, &balance, &createdAt); err != nil {
		return engine.Account{}, err
	}
	created, err := engine.ParseTimePoint(createdAt)
	if err != nil {
		return engine.Account{}, fmt.Errorf("account %s: bad created_at: %w", id, err)
	}
	return engine.Account{
		ID:             engine.AccountID(id),
		Name:           name,
		OpeningBalance: engine.MustParseAmount(balance),
		CreatedAt:      created,
	}, nil
}

// =============================================================================
// TRANSACTION DIRECTORY
// =============================================================================

const txColumns = `id, account_id, dest_account_id, amount, kind, category, occurred_at, description`

func (s *Store) ListAllTransactions(ctx context.Context) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions ORDER BY occurred_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) ListByDateRange(ctx context.Context, from, to engine.TimePoint) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE occurred_at >= ? AND occurred_at <= ?
		 ORDER BY occurred_at, id`,
		from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) GetTransaction(ctx context.Context, id engine.TransactionID) (*engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, string(id))
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// PutTransaction inserts or overwrites a transaction record.
func (s *Store) PutTransaction(ctx context.Context, tx engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dest *string
	if tx.DestAccountID != "" {
		d := string(tx.DestAccountID)
		dest = &d
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			dest_account_id = excluded.dest_account_id,
			amount = excluded.amount,
			kind = excluded.kind,
			category = excluded.category,
			occurred_at = excluded.occurred_at,
			description = excluded.description`,
		string(tx.ID), string(tx.AccountID), dest, tx.Amount.String(),
		string(tx.Kind), tx.Category, tx.OccurredAt.String(), tx.Description)
	return err
}

func (s *Store) DeleteTransaction(ctx context.Context, id engine.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrTransactionNotFound
	}
	return nil
}

func collectTransactions(rows *sql.Rows) ([]engine.Transaction, error) {
	var txs []engine.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(r rowScanner) (engine.Transaction, error) {
	var id, accountID, amount, kind, occurredAt string
	var dest, category, description sql.NullString
	if err := r.Scan(&id, &accountID, &dest, &amount, &kind, &category, &occurredAt, &description); err != nil {
		return engine.Transaction{}, err
	}
	occurred, err := engine.ParseTimePoint(occurredAt)
	if err != nil {
		return engine.Transaction{}, fmt.Errorf("transaction %s: bad occurred_at: %w", id, err)
	}
	return engine.Transaction{
		ID:            engine.TransactionID(id),
		AccountID:     engine.AccountID(accountID),
		DestAccountID: engine.AccountID(dest.String),
		Amount:        engine.MustParseAmount(amount),
		Kind:          engine.TransactionKind(kind),
		Category:      category.String,
		OccurredAt:    occurred,
		Description:   description.String,
	}, nil
}

// =============================================================================
// ADJUSTMENT STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, id engine.AccountID, periodKey string) (*engine.BalanceAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, period_key, balance, note FROM adjustments
		 WHERE account_id = ? AND period_key = ?`, string(id), periodKey)
	adj, err := scanAdjustment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &adj, nil
}

func (s *Store) ListByAccount(ctx context.Context, id engine.AccountID) ([]engine.BalanceAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, period_key, balance, note FROM adjustments
		 WHERE account_id = ? ORDER BY period_key`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adjustments []engine.BalanceAdjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}

// UpsertAdjustment enforces at most one adjustment per (account, period):
// set if absent, else overwrite.
func (s *Store) UpsertAdjustment(ctx context.Context, adj engine.BalanceAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (account_id, period_key, balance, note)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, period_key) DO UPDATE SET
			balance = excluded.balance,
			note = excluded.note`,
		string(adj.AccountID), adj.PeriodKey, adj.Balance.String(), adj.Note)
	return err
}

func (s *Store) DeleteAdjustment(ctx context.Context, id engine.AccountID, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM adjustments WHERE account_id = ? AND period_key = ?`,
		string(id), periodKey)
	return err
}

func scanAdjustment(r rowScanner) (engine.BalanceAdjustment, error) {
	var accountID, periodKey, balance string
	var note sql.NullString
	if err := r.Scan(&accountID, &periodKey, &balance, &note); err != nil {
		return engine.BalanceAdjustment{}, err
	}
	return engine.BalanceAdjustment{
		AccountID: engine.AccountID(accountID),
		PeriodKey: periodKey,
		Balance:   engine.MustParseAmount(balance),
		Note:      note.String,
	}, nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// ReplaceForPeriod deletes and rewrites the entries of one (period, scope)
// pair atomically.
func (s *Store) ReplaceForPeriod(ctx context.Context, periodKey string, scope engine.Scope, entries []engine.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM journal_entries WHERE period_key = ? AND scope = ?`,
		periodKey, scope.Suffix()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal_entries
			(id, period_key, scope, kind, category, name, amount, entry_date, computed, account_id, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		var accountID, transactionID *string
		if e.AccountID != nil {
			a := string(*e.AccountID)
			accountID = &a
		}
		if e.TransactionID != nil {
			t := string(*e.TransactionID)
			transactionID = &t
		}
		if _, err := stmt.ExecContext(ctx,
			string(e.ID), periodKey, scope.Suffix(), int(e.Kind), int(e.Category),
			e.Name, e.Amount.String(), e.Date.String(), e.Computed,
			accountID, transactionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) EntriesForPeriod(ctx context.Context, periodKey string, scope engine.Scope) ([]engine.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_key, kind, category, name, amount, entry_date, computed, account_id, transaction_id
		FROM journal_entries
		WHERE period_key = ? AND scope = ?
		ORDER BY entry_date, category, id`,
		periodKey, scope.Suffix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []engine.JournalEntry
	for rows.Next() {
		var id, pKey, name, amount, entryDate string
		var kind, category int
		var computed bool
		var accountID, transactionID sql.NullString
		if err := rows.Scan(&id, &pKey, &kind, &category, &name, &amount, &entryDate, &computed, &accountID, &transactionID); err != nil {
			return nil, err
		}
		date, err := engine.ParseTimePoint(entryDate)
		if err != nil {
			return nil, fmt.Errorf("entry %s: bad entry_date: %w", id, err)
		}
		entry := engine.JournalEntry{
			ID:        engine.EntryID(id),
			PeriodKey: pKey,
			Kind:      engine.EntryKind(kind),
			Category:  engine.Category(category),
			Name:      name,
			Amount:    engine.MustParseAmount(amount),
			Date:      date,
			Computed:  computed,
		}
		if accountID.Valid {
			a := engine.AccountID(accountID.String)
			entry.AccountID = &a
		}
		if transactionID.Valid {
			t := engine.TransactionID(transactionID.String)
			entry.TransactionID = &t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CountForPeriod(ctx context.Context, periodKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE period_key = ?`, periodKey).Scan(&count)
	return count, err
}
