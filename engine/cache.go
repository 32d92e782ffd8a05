/*
cache.go - Closing-balance memoization

PURPOSE:
  Holds the last known closing balance per (period key, scope) so the
  propagation controller can skip periods that are already correct. The
  cache is an explicit, injectable value - not a package global - so tests
  run with a fresh cache and concurrent access is disciplined by the
  cache's own lock.

LIFECYCLE:
  Populated after every successful generation pass. Superseded on the next
  pass. Never explicitly deleted except on Clear. Never a source of truth:
  the "should regenerate" check always cross-validates cache presence
  against the persisted entry count, and on any doubt the generator
  re-derives balances from transactions.
*/
package engine

import "sync"

// BalanceCache memoizes closing balances per (period key, scope).
type BalanceCache struct {
	mu      sync.RWMutex
	entries map[string]Amount
}

func NewBalanceCache() *BalanceCache {
	return &BalanceCache{entries: make(map[string]Amount)}
}

func cacheKey(periodKey string, scope Scope) string {
	return periodKey + ":" + scope.Suffix()
}

// Get returns the cached closing balance, if any.
func (c *BalanceCache) Get(periodKey string, scope Scope) (Amount, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	amount, ok := c.entries[cacheKey(periodKey, scope)]
	return amount, ok
}

// Set records the closing balance for (periodKey, scope), superseding any
// previous value.
func (c *BalanceCache) Set(periodKey string, scope Scope, amount Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(periodKey, scope)] = amount
}

// Clear empties the cache. Used by full rebuilds.
func (c *BalanceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Amount)
}

// Len returns the number of cached balances.
func (c *BalanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
