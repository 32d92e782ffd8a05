/*
propagation.go - Forward regeneration across affected periods

PURPOSE:
  When a transaction is added, edited or deleted, every period whose
  opening balance depends on the change must be regenerated. The
  controller regenerates the period(s) containing the change, then walks
  forward period-by-period, skipping periods the balance cache already
  covers, up to a bounded horizon.

WORK LIST:
  Regeneration is an explicit work list of (period, scope) items with a
  pending/done/failed status each, processed in strictly increasing period
  order so a period never runs before its predecessor has written its
  closing balance. A failed item is re-enqueued once; a second failure is
  surfaced as *PeriodGenerationError and the remaining scopes still run,
  so the consolidated view renders from whatever per-account data exists.

FIXED POINT:
  The forward walk regenerates a period when the predecessor's closing
  balance changed, when its own cache entries are missing, or when its
  persisted journal is empty. Once a regeneration leaves every closing
  unchanged, fresh downstream periods are skipped: this is what keeps a
  small edit from recomputing the whole history.

HORIZON:
  The forward walk stops 12 periods past the current date even if cache
  entries are still missing. Forecast periods beyond the horizon are
  generated lazily on demand, never proactively.

CANCELLATION:
  The context is checked between period iterations. Each period's
  regeneration is self-contained (clear, then rebuild), so a cancelled run
  leaves some periods regenerated and others stale; staleness is always
  re-detected by the cache-miss check.
*/
package engine

import (
	"context"
	"errors"
	"log"
)

// ChangeKind describes a transaction mutation.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// DefaultHorizon bounds the forward walk: periods regenerated proactively
// extend at most this many periods past the current date.
const DefaultHorizon = 12

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates regeneration across all periods affected by a
// change.
type Controller struct {
	Generator *Generator
	Clock     Clock
	Horizon   int
}

func (c *Controller) policy() PeriodPolicy { return c.Generator.Policy }

func (c *Controller) horizon() int {
	if c.Horizon <= 0 {
		return DefaultHorizon
	}
	return c.Horizon
}

// horizonEnd returns the last day covered by the proactive walk.
func (c *Controller) horizonEnd() TimePoint {
	p := c.policy().PeriodOf(c.Clock.Now())
	for i := 0; i < c.horizon(); i++ {
		p = c.policy().NextPeriod(p)
	}
	return p.End
}

// OnTransactionChanged regenerates the period containing the transaction
// and every subsequent period whose opening balance depends on it. For
// updates that moved the transaction across periods, prev carries the
// pre-update record and both periods are regenerated.
func (c *Controller) OnTransactionChanged(ctx context.Context, tx Transaction, prev *Transaction, kind ChangeKind) error {
	periods := []Period{c.policy().PeriodOf(tx.OccurredAt)}
	if kind == ChangeUpdated && prev != nil {
		old := c.policy().PeriodOf(prev.OccurredAt)
		if old.Key() != periods[0].Key() {
			if old.Start.Before(periods[0].Start) {
				periods = []Period{old, periods[0]}
			} else {
				periods = append(periods, old)
			}
		}
	}

	var errs []error
	changed := false
	for _, p := range periods {
		ch, err := c.regeneratePeriod(ctx, p)
		if err != nil {
			errs = append(errs, err)
		}
		changed = changed || ch
	}
	// Walking from the earliest affected period covers the later one too.
	if err := c.walkForward(ctx, periods[0], changed); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RegenerateFollowing walks forward from the period after the given one,
// regenerating each period whose cache entries are missing or whose
// persisted journal is empty, up to the horizon.
func (c *Controller) RegenerateFollowing(ctx context.Context, period Period) error {
	return c.walkForward(ctx, period, false)
}

// walkForward is the forward propagation loop. changed carries whether the
// previous period's closing balances moved; a moved closing forces the next
// period to regenerate even when its cache looks fresh.
func (c *Controller) walkForward(ctx context.Context, period Period, changed bool) error {
	end := c.horizonEnd()
	var errs []error

	for p := c.policy().NextPeriod(period); !p.Start.After(end); p = c.policy().NextPeriod(p) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		stale, err := c.shouldRegenerate(ctx, p)
		if err != nil {
			errs = append(errs, err)
			break
		}
		if !stale && !changed {
			continue
		}
		ch, err := c.regeneratePeriod(ctx, p)
		if err != nil {
			errs = append(errs, err)
			// Closings are in doubt; keep regenerating downstream.
			changed = true
			continue
		}
		changed = ch
	}
	return errors.Join(errs...)
}

// RegenerateRange regenerates the given periods unconditionally, in
// increasing period order.
func (c *Controller) RegenerateRange(ctx context.Context, periods []Period) error {
	var errs []error
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := c.regeneratePeriod(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RegenerateAll rebuilds every period from the earliest relevant instant
// through the horizon and repopulates the cache. Used on startup and for
// manual repair.
func (c *Controller) RegenerateAll(ctx context.Context) error {
	earliest, ok, err := c.earliestInstant(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil // empty ledger, nothing to generate
	}

	c.Generator.Cache.Clear()

	end := c.horizonEnd()
	var periods []Period
	for p := c.policy().PeriodOf(earliest); !p.Start.After(end); p = c.policy().NextPeriod(p) {
		periods = append(periods, p)
	}
	log.Printf("[Propagation] full rebuild: %d periods from %s", len(periods), earliest)
	return c.RegenerateRange(ctx, periods)
}

// earliestInstant finds the earliest account creation or transaction date.
func (c *Controller) earliestInstant(ctx context.Context) (TimePoint, bool, error) {
	accounts, err := c.Generator.Accounts.ListAccounts(ctx)
	if err != nil {
		return TimePoint{}, false, err
	}
	txs, err := c.Generator.Transactions.ListAllTransactions(ctx)
	if err != nil {
		return TimePoint{}, false, err
	}

	var earliest TimePoint
	found := false
	note := func(t TimePoint) {
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	for _, a := range accounts {
		note(a.CreatedAt)
	}
	for _, tx := range txs {
		note(tx.OccurredAt)
	}
	return earliest, found, nil
}

// =============================================================================
// PER-PERIOD WORK LIST
// =============================================================================

type workStatus int

const (
	workPending workStatus = iota
	workDone
	workFailed
)

type workItem struct {
	scope    Scope
	status   workStatus
	attempts int
}

// regeneratePeriod rebuilds all scopes of one period: every account, then
// the consolidated view. Scopes are independent; a failed scope is retried
// once in isolation and the rest continue regardless, so partial results
// remain available. The returned flag reports whether any scope's closing
// balance moved relative to the cache.
func (c *Controller) regeneratePeriod(ctx context.Context, period Period) (bool, error) {
	accounts, err := c.Generator.Accounts.ListAccounts(ctx)
	if err != nil {
		return false, err
	}

	queue := make([]*workItem, 0, len(accounts)+1)
	for _, a := range accounts {
		queue = append(queue, &workItem{scope: AccountScope(a.ID)})
	}
	queue = append(queue, &workItem{scope: ConsolidatedScope()})

	changed := false
	var errs []error
	for i := 0; i < len(queue); i++ {
		item := queue[i]
		item.attempts++
		prior, had := c.Generator.Cache.Get(period.Key(), item.scope)
		if _, err := c.Generator.Generate(ctx, item.scope, period); err != nil {
			if item.attempts == 1 {
				// Re-enqueue for one isolated retry after the other scopes.
				item.status = workPending
				queue = append(queue, item)
				continue
			}
			item.status = workFailed
			errs = append(errs, &PeriodGenerationError{
				PeriodKey: period.Key(),
				Scope:     item.scope,
				Err:       err,
			})
			continue
		}
		item.status = workDone
		if now, ok := c.Generator.Cache.Get(period.Key(), item.scope); !had || !ok || !now.Equal(prior) {
			changed = true
		}
	}
	return changed, errors.Join(errs...)
}

// shouldRegenerate cross-validates the cache against persisted entries: a
// period is fresh only when every scope has a cache entry AND the period
// has persisted journal rows. The cache alone is never trusted.
func (c *Controller) shouldRegenerate(ctx context.Context, period Period) (bool, error) {
	accounts, err := c.Generator.Accounts.ListAccounts(ctx)
	if err != nil {
		return false, err
	}

	for _, a := range accounts {
		if _, ok := c.Generator.Cache.Get(period.Key(), AccountScope(a.ID)); !ok {
			return true, nil
		}
	}
	if _, ok := c.Generator.Cache.Get(period.Key(), ConsolidatedScope()); !ok {
		return true, nil
	}

	count, err := c.Generator.Entries.CountForPeriod(ctx, period.Key())
	if err != nil {
		return true, nil // storage in doubt: regenerate rather than trust
	}
	return count == 0, nil
}
