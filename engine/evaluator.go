/*
evaluator.go - Balance replay from opening balances

PURPOSE:
  Computes an account's balance (or the consolidated balance) at the end
  of a given day by replaying the full transaction history from the
  accounts' opening balances. This is the authoritative cold-start path:
  whenever a cached or persisted balance is in doubt, the evaluator
  re-derives it from first principles.

BOUNDARY RULE:
  One rule everywhere: BalanceAt(asOf) is the END-OF-DAY balance. It
  applies every transaction dated on or before asOf. A period's closing
  balance is BalanceAt(period.End); the cold-start opening of a period is
  BalanceAt of the previous period's end.

COST:
  O(transactions) per call. Acceptable because the engine invokes it
  per-period on cache misses, not per-transaction in steady state.
*/
package engine

// BalanceAt computes the end-of-day balance for the scope by replaying
// transactions chronologically from the opening balances. Pure function.
//
// Rules:
//   - Opening balances count only for accounts created on/before asOf.
//   - Income adds, expense subtracts.
//   - Transfer legs are applied independently: the source loses, the
//     destination gains. In the consolidated scope a transfer between two
//     tracked accounts therefore nets to zero.
//   - A transaction dated before an account's creation never applies to
//     that account.
func BalanceAt(scope Scope, asOf TimePoint, accounts []Account, transactions []Transaction) Amount {
	createdAt := make(map[AccountID]TimePoint, len(accounts))
	balance := ZeroAmount()

	for _, acct := range accounts {
		if !scope.IsConsolidated() && acct.ID != scope.AccountID() {
			continue
		}
		createdAt[acct.ID] = acct.CreatedAt
		if acct.CreatedAt.BeforeOrEqual(asOf) {
			balance = balance.Add(acct.OpeningBalance)
		}
	}

	applies := func(id AccountID, at TimePoint) bool {
		created, tracked := createdAt[id]
		return tracked && !at.Before(created)
	}

	for _, tx := range transactions {
		if tx.OccurredAt.After(asOf) {
			continue
		}
		switch tx.Kind {
		case KindIncome:
			if applies(tx.AccountID, tx.OccurredAt) {
				balance = balance.Add(tx.Amount)
			}
		case KindExpense:
			if applies(tx.AccountID, tx.OccurredAt) {
				balance = balance.Sub(tx.Amount)
			}
		case KindTransfer:
			if applies(tx.AccountID, tx.OccurredAt) {
				balance = balance.Sub(tx.Amount)
			}
			if applies(tx.DestAccountID, tx.OccurredAt) {
				balance = balance.Add(tx.Amount)
			}
		}
	}
	return balance
}
