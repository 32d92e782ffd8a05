package engine_test

import (
	"sync"
	"testing"

	"github.com/warp/ledger-engine/engine"
)

func TestBalanceCache_ScopesAreIndependent(t *testing.T) {
	cache := engine.NewBalanceCache()

	cache.Set("2025-01", engine.AccountScope("checking"), amt(100))
	cache.Set("2025-01", engine.ConsolidatedScope(), amt(600))

	got, ok := cache.Get("2025-01", engine.AccountScope("checking"))
	if !ok || !got.Equal(amt(100)) {
		t.Errorf("account entry: got %s, ok=%v", got, ok)
	}
	got, ok = cache.Get("2025-01", engine.ConsolidatedScope())
	if !ok || !got.Equal(amt(600)) {
		t.Errorf("consolidated entry: got %s, ok=%v", got, ok)
	}
	if _, ok := cache.Get("2025-02", engine.AccountScope("checking")); ok {
		t.Error("missing period should miss")
	}
}

func TestBalanceCache_SetOverwrites(t *testing.T) {
	cache := engine.NewBalanceCache()
	cache.Set("2025-01", engine.AccountScope("checking"), amt(100))
	cache.Set("2025-01", engine.AccountScope("checking"), amt(150))

	got, _ := cache.Get("2025-01", engine.AccountScope("checking"))
	if !got.Equal(amt(150)) {
		t.Errorf("expected overwrite to 150, got %s", got)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", cache.Len())
	}
}

func TestBalanceCache_Clear(t *testing.T) {
	cache := engine.NewBalanceCache()
	cache.Set("2025-01", engine.ConsolidatedScope(), amt(1))
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestBalanceCache_ConcurrentAccess(t *testing.T) {
	cache := engine.NewBalanceCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set("2025-01", engine.AccountScope("checking"), amt(j))
				cache.Get("2025-01", engine.AccountScope("checking"))
			}
		}()
	}
	wg.Wait()
}
