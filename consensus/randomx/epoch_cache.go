package randomx

import (
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// epochLRUCapacity is "a fixed capacity (≈ 3 epochs)" per spec §4.1.
const epochLRUCapacity = 3

// epochCacheEntry is one seed-keyed light cache held by the
// cross-epoch verification LRU. It tracks its own outstanding-VM
// count so eviction from the LRU index can be deferred until every VM
// handed out against it has been closed (§3 ownership: "the hasher's
// release blocked until all outstanding VMs drop" applies per-entry
// here, not just to the single active cache).
type epochCacheEntry struct {
	seedHex string
	cache   *cache

	mu          sync.Mutex
	outstanding int
	evicted     bool
}

func (e *epochCacheEntry) acquire() {
	e.mu.Lock()
	e.outstanding++
	e.mu.Unlock()
}

func (e *epochCacheEntry) releaseOne() {
	e.mu.Lock()
	e.outstanding--
	closeNow := e.evicted && e.outstanding <= 0
	e.mu.Unlock()
	if closeNow {
		e.cache.close()
	}
}

func (e *epochCacheEntry) markEvicted() {
	e.mu.Lock()
	e.evicted = true
	closeNow := e.outstanding <= 0
	e.mu.Unlock()
	if closeNow {
		e.cache.close()
	}
}

// epochVMCache is the bounded store of light caches for seeds other
// than the currently active one, used when verifying headers mined
// under an older epoch (§4.1 "Light verification across epochs").
type epochVMCache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, *epochCacheEntry]
}

func newEpochVMCache() *epochVMCache {
	evc := &epochVMCache{}
	c, _ := lru.NewWithEvict[string, *epochCacheEntry](epochLRUCapacity, func(_ string, v *epochCacheEntry) {
		v.markEvicted()
	})
	evc.inner = c
	return evc
}

// getOrCreate returns the entry for seed, allocating and inserting a
// light cache on a miss.
func (evc *epochVMCache) getOrCreate(seed []byte) (*epochCacheEntry, error) {
	key := hex.EncodeToString(seed)

	evc.mu.Lock()
	defer evc.mu.Unlock()

	if entry, ok := evc.inner.Get(key); ok {
		return entry, nil
	}
	c, err := newCache(seed, FlagDefault)
	if err != nil {
		return nil, err
	}
	entry := &epochCacheEntry{seedHex: key, cache: c}
	evc.inner.Add(key, entry)
	return entry, nil
}
