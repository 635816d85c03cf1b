package randomx

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/aureuschain/aureusd/domain"
)

// defaultGenesisKey is the fixed seed used for epoch 0, "the bytes of
// a well-known string" per spec §4.1.
const defaultGenesisKey = "AUREUS RandomX genesis key v1"

// seedWaitPollInterval is how often the seed-update writer polls the
// outstanding-VM counter while waiting for it to drop to zero.
const seedWaitPollInterval = 50 * time.Millisecond

// seedWaitHardCap is the bounded retry cap from §4.1 step 1 ("hard cap
// ≈ 60s"); exceeding it means refusing to free old memory rather than
// risk a use-after-free on a VM still in flight.
const seedWaitHardCap = 60 * time.Second

// SeedBlockSource resolves the hash of the block at a given height,
// used to derive an epoch's seed (§4.1: "seed = hash of block at
// height (epoch-1)*EPOCH_LENGTH"). It is the subset of ChainQuery the
// hasher needs, kept narrow to avoid a dependency on the core package.
type SeedBlockSource interface {
	BlockHashByHeight(height uint64) (domain.Hash, bool)
}

// SeedProvider is an optional seed override consulted before falling
// back to the chain store, e.g. a batch of seed hashes already known
// to the caller during header-batch validation (§4.3's
// batch_seed_hashes).
type SeedProvider func(seedBlockHeight uint64) (domain.Hash, bool)

// Config configures an EpochKeyedHasher.
type Config struct {
	EpochLength uint64
	GenesisKey  []byte
	MiningEnabled bool
	// LargePages enables RANDOMX_FLAG_LARGE_PAGES on platforms other
	// than macOS, where it is always skipped (§4.1 step 3).
	LargePages bool
	IsDarwin   bool
}

// EpochKeyedHasher is the lifecycle manager from spec §4.1: it owns
// the single active cache/dataset pair, switches them when the
// required epoch seed changes, and hands out refcounted HashVM
// handles for both mining and cross-epoch verification.
type EpochKeyedHasher struct {
	cfg   Config
	chain SeedBlockSource

	// lifecycle lock: readers check the active seed against what a
	// call needs; writers perform the seed swap (§4.1 "Scheduling").
	mu            sync.RWMutex
	initialized   bool
	activeSeed    []byte
	activeFlags   Flags
	activeCache   *cache
	activeDataset *dataset

	outstanding atomic.Int64
	releaseCh   chan struct{} // buffered signal, drained by the seed-swap waiter

	epochVMs *epochVMCache

	shuttingDown atomic.Bool
}

// New builds an EpochKeyedHasher. Initialization of the active
// cache/dataset is deferred to the first EnsureInitializedForHeight
// call.
func New(cfg Config, chain SeedBlockSource) *EpochKeyedHasher {
	if len(cfg.GenesisKey) == 0 {
		cfg.GenesisKey = []byte(defaultGenesisKey)
	}
	return &EpochKeyedHasher{
		cfg:       cfg,
		chain:     chain,
		releaseCh: make(chan struct{}, 1),
		epochVMs:  newEpochVMCache(),
	}
}

func (h *EpochKeyedHasher) epochOf(height uint64) uint64 {
	return height / h.cfg.EpochLength
}

// seedForEpoch computes the seed for the given epoch per §4.1. epoch 0
// uses the fixed genesis key; otherwise the seed is the hash of the
// block at height (epoch-1)*EPOCH_LENGTH, resolved first through
// provider (if non-nil) and then through the chain store.
func (h *EpochKeyedHasher) seedForEpoch(epoch uint64, provider SeedProvider) ([]byte, error) {
	if epoch == 0 {
		return h.cfg.GenesisKey, nil
	}
	seedHeight := (epoch - 1) * h.cfg.EpochLength
	if provider != nil {
		if seed, ok := provider(seedHeight); ok {
			out := make([]byte, len(seed))
			copy(out, seed[:])
			return out, nil
		}
	}
	if h.chain != nil {
		if seed, ok := h.chain.BlockHashByHeight(seedHeight); ok {
			out := make([]byte, len(seed))
			copy(out, seed[:])
			return out, nil
		}
	}
	return nil, ErrSeedUnavailable
}

// EnsureInitializedForHeight guarantees the active cache/dataset match
// the epoch seed required to mine or verify at height h.
func (h *EpochKeyedHasher) EnsureInitializedForHeight(height uint64) error {
	if h.shuttingDown.Load() {
		return ErrShuttingDown
	}
	epoch := h.epochOf(height)
	seed, err := h.seedForEpoch(epoch, nil)
	if err != nil {
		return err
	}

	h.mu.RLock()
	matches := h.initialized && bytes.Equal(h.activeSeed, seed)
	h.mu.RUnlock()
	if matches {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initialized && bytes.Equal(h.activeSeed, seed) {
		return nil
	}
	return h.swapActiveSeedLocked(seed)
}

// swapActiveSeedLocked performs the release-first seed update
// described in §4.1. Caller holds h.mu for writing.
func (h *EpochKeyedHasher) swapActiveSeedLocked(seed []byte) error {
	if !h.waitForOutstandingDrain() {
		log.Error("randomx: timed out waiting for outstanding VMs before seed swap; leaking old cache/dataset to avoid use-after-free",
			"outstanding", h.outstanding.Load())
		// Per §4.1 step 1: refuse to free old memory, but still
		// install the new seed so future callers get a correct VM;
		// the old cache/dataset are abandoned with their finalizers
		// cleared, so their native memory is never released.
		if h.activeDataset != nil {
			runtime.SetFinalizer(h.activeDataset, nil)
		}
		if h.activeCache != nil {
			runtime.SetFinalizer(h.activeCache, nil)
		}
		return h.allocateAndInstallLocked(seed)
	}

	if h.activeDataset != nil {
		h.activeDataset.close()
		h.activeDataset = nil
	}
	if h.activeCache != nil {
		h.activeCache.close()
		h.activeCache = nil
	}
	return h.allocateAndInstallLocked(seed)
}

// waitForOutstandingDrain polls the outstanding-VM counter, returning
// true once it reaches zero or false if seedWaitHardCap elapses first.
func (h *EpochKeyedHasher) waitForOutstandingDrain() bool {
	deadline := time.Now().Add(seedWaitHardCap)
	for h.outstanding.Load() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		if h.shuttingDown.Load() {
			return h.outstanding.Load() == 0
		}
		select {
		case <-h.releaseCh:
		case <-time.After(seedWaitPollInterval):
		}
	}
	return true
}

// allocateAndInstallLocked attempts the allocation fallback ladder
// from §4.1 step 3 and installs the result as the active state.
func (h *EpochKeyedHasher) allocateAndInstallLocked(seed []byte) error {
	flags := FlagDefault
	if h.cfg.LargePages && !h.cfg.IsDarwin {
		flags |= FlagLargePages
	}
	if h.cfg.MiningEnabled {
		flags |= FlagFullMem
	}

	newCacheInst, err := newCache(seed, flags)
	if err != nil && flags.Has(FlagLargePages) {
		log.Warn("randomx: large-pages allocation failed, retrying without it")
		flags &^= FlagLargePages
		newCacheInst, err = newCache(seed, flags)
	}
	if err != nil {
		log.Error("randomx: cache allocation failed on both paths", "err", err)
		return ErrAllocationFailed
	}

	var newDatasetInst *dataset
	if h.cfg.MiningEnabled {
		newDatasetInst, err = newDataset(newCacheInst, flags)
		if err != nil {
			newCacheInst.close()
			log.Error("randomx: dataset allocation failed", "err", err)
			return ErrAllocationFailed
		}
	}

	h.activeSeed = seed
	h.activeFlags = flags
	h.activeCache = newCacheInst
	h.activeDataset = newDatasetInst
	h.initialized = true
	return nil
}

func (h *EpochKeyedHasher) signalRelease() {
	select {
	case h.releaseCh <- struct{}{}:
	default:
	}
}

// acquireActive increments the outstanding counter and returns a
// release func decrementing it again (§3 ownership, §8 I7).
func (h *EpochKeyedHasher) acquireActive() func() {
	h.outstanding.Add(1)
	return func() {
		h.outstanding.Add(-1)
		h.signalRelease()
	}
}

// CreateMiningVM returns a VM bound to the active cache+dataset. It
// requires mining to be enabled (the active dataset must exist).
func (h *EpochKeyedHasher) CreateMiningVM() (*HashVM, error) {
	if h.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.initialized {
		return nil, ErrNotInitialized
	}
	if h.activeDataset == nil {
		return nil, ErrNotInitialized
	}
	release := h.acquireActive()
	vm, err := newHashVM(h.activeCache, h.activeDataset, h.activeFlags, release)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// LightVMForVerification returns a cache-only VM suitable for
// verifying a header mined at height h, resolving the epoch seed
// through seedProvider first and the chain store second.
func (h *EpochKeyedHasher) LightVMForVerification(height uint64, seedProvider SeedProvider) (*HashVM, error) {
	if h.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}
	epoch := h.epochOf(height)
	seed, err := h.seedForEpoch(epoch, seedProvider)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	if h.initialized && bytes.Equal(h.activeSeed, seed) {
		release := h.acquireActive()
		vm, err := newHashVM(h.activeCache, nil, h.activeFlags&^FlagFullMem, release)
		h.mu.RUnlock()
		return vm, err
	}
	h.mu.RUnlock()

	entry, err := h.epochVMs.getOrCreate(seed)
	if err != nil {
		return nil, err
	}
	entry.acquire()
	vm, err := newHashVM(entry.cache, nil, FlagDefault, entry.releaseOne)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// Shutdown marks the hasher as shutting down and releases the active
// cache/dataset if no VMs remain outstanding. It does not wait for
// outstanding VMs: with the shutdown flag set the drain check returns
// at once, and if any VM is still outstanding native memory is
// intentionally leaked (logged loudly) rather than risk a crash
// (§5 Cancellation/timeout).
func (h *EpochKeyedHasher) Shutdown() {
	h.shuttingDown.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.waitForOutstandingDrain() {
		log.Error("randomx: shutdown with outstanding VMs; native memory intentionally not released",
			"outstanding", h.outstanding.Load())
		return
	}
	if h.activeDataset != nil {
		h.activeDataset.close()
		h.activeDataset = nil
	}
	if h.activeCache != nil {
		h.activeCache.close()
		h.activeCache = nil
	}
	h.initialized = false
	runtime.GC()
}

// OutstandingVMs reports the number of currently live VM handles
// bound to the active cache/dataset (§8 I7). It does not include
// handles bound to the cross-epoch LRU cache.
func (h *EpochKeyedHasher) OutstandingVMs() int64 {
	return h.outstanding.Load()
}

// seedFromHeightBytes is a small helper used by tests to build a
// deterministic fake seed block hash from a height, mirroring what a
// real ChainQuery-backed SeedBlockSource would hand back.
func seedFromHeightBytes(height uint64) domain.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return domain.Hash(crypto.Keccak256Hash(buf[:]))
}
