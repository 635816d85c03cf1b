package mempool

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/aureuschain/aureusd/consensus/validator"
	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

// Status is the outcome MempoolEngine.Add/AddBatch return (§7).
type Status uint8

const (
	StatusAccepted Status = iota
	StatusStale
	StatusInvalid
	StatusRejectedDuplicate
	StatusRejectedRbf
	StatusRejectedMempoolFull
	StatusRejectedNonceTooFarFuture
	StatusRejectedFee
	StatusRejectedState
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusStale:
		return "stale"
	case StatusInvalid:
		return "invalid"
	case StatusRejectedDuplicate:
		return "rejected_duplicate"
	case StatusRejectedRbf:
		return "rejected_rbf"
	case StatusRejectedMempoolFull:
		return "rejected_mempool_full"
	case StatusRejectedNonceTooFarFuture:
		return "rejected_nonce_too_far_future"
	case StatusRejectedFee:
		return "rejected_fee"
	case StatusRejectedState:
		return "rejected_state"
	default:
		return "unknown"
	}
}

// EngineConfig configures an Engine (§4.7 state, §6 CLI surface).
type EngineConfig struct {
	MaxSize             int
	MaxNonceGap         uint64
	MinAcceptableFeeWei domain.Wei
	TxExpireTimeMinutes uint64
	PruneIntervalMs     uint64
}

// Stats is a point-in-time snapshot for operators/metrics.
type Stats struct {
	TotalEntries    int
	ExecutableCount int
	SenderCount     int
	SystemTxCount   int
}

// Engine is the global facade from §4.7: by_hash membership, the two
// fee-ordered indexes, per-sender pools, the system-tx FIFO and the
// governance sets, all wired together behind add/addBatch/
// getExecutableIterator/processNewBlock/addBack/prune/remove/clear.
type Engine struct {
	// globalMu is the read/write lock from §5: readers are
	// add/addBatch; writers are processNewBlock, addBack, clear,
	// prune, removeTransaction(s).
	globalMu sync.RWMutex

	// idxMu guards byHash/feeAll/feeExecutable/systemTxs, the plain
	// Go maps and btrees that need their own synchronization even
	// while multiple adders hold globalMu's read side concurrently.
	idxMu sync.Mutex

	byHash        map[domain.Hash]*Entry
	feeAll        *feeIndex
	feeExecutable *feeIndex
	systemTxs     []*Entry

	bySenderMu sync.Mutex
	bySender   map[domain.Address]*SenderPool

	gov *governanceSets

	cfg        EngineConfig
	chain      core.ChainQuery
	worldState core.WorldState
	eventBus   core.EventBus
	mval       *MempoolValidator

	now func() uint64
}

func NewEngine(cfg EngineConfig, chain core.ChainQuery, worldState core.WorldState, eventBus core.EventBus, txValidator *validator.TxValidator, now func() uint64) *Engine {
	gov := newGovernanceSets()
	e := &Engine{
		byHash:        make(map[domain.Hash]*Entry),
		feeAll:        newFeeIndex(),
		feeExecutable: newFeeIndex(),
		bySender:      make(map[domain.Address]*SenderPool),
		gov:           gov,
		cfg:           cfg,
		chain:         chain,
		worldState:    worldState,
		eventBus:      eventBus,
		now:           now,
	}
	e.mval = NewMempoolValidator(Config{MinAcceptableFeeWei: cfg.MinAcceptableFeeWei}, txValidator, gov)
	return e
}

func (e *Engine) senderPoolFor(sender domain.Address, chainNonce uint64) *SenderPool {
	e.bySenderMu.Lock()
	defer e.bySenderMu.Unlock()
	pool, ok := e.bySender[sender]
	if !ok {
		pool = newSenderPool(chainNonce, e.cfg.MaxNonceGap)
		e.bySender[sender] = pool
	}
	return pool
}

func (e *Engine) senderPoolLookup(sender domain.Address) (*SenderPool, bool) {
	e.bySenderMu.Lock()
	defer e.bySenderMu.Unlock()
	pool, ok := e.bySender[sender]
	return pool, ok
}

func (e *Engine) removeSenderPoolIfEmpty(sender domain.Address) {
	e.bySenderMu.Lock()
	defer e.bySenderMu.Unlock()
	if pool, ok := e.bySender[sender]; ok && pool.IsEmpty() {
		delete(e.bySender, sender)
	}
}

// Add implements §4.7 add(tx, receivedFrom, reason, skipValidation).
func (e *Engine) Add(tx *domain.Tx, receivedFrom *string, reason AddReason, skipValidation bool) (Status, string) {
	e.globalMu.RLock()
	defer e.globalMu.RUnlock()
	return e.addLocked(tx, receivedFrom, reason, skipValidation, e.chain.LatestHeight(), e.now())
}

// AddBatch implements §4.7 addBatch: acquires the global read lock
// once for the whole batch and returns a []Status aligned with txs.
// Events are not deferred: each tx's events are published as its add
// completes, while the global read lock is still held.
func (e *Engine) AddBatch(txs []*domain.Tx, receivedFrom *string, reason AddReason, skipValidation bool) []Status {
	e.globalMu.RLock()
	defer e.globalMu.RUnlock()

	height, nowMs := e.chain.LatestHeight(), e.now()
	out := make([]Status, len(txs))
	for i, tx := range txs {
		status, _ := e.addLocked(tx, receivedFrom, reason, skipValidation, height, nowMs)
		out[i] = status
	}
	return out
}

func (e *Engine) addLocked(tx *domain.Tx, receivedFrom *string, reason AddReason, skipValidation bool, stampHeight, stampTimeMs uint64) (Status, string) {
	entry := &Entry{Tx: tx, ReceivedFrom: receivedFrom}
	validation := e.mval.Validate(entry, skipValidation, e.worldState, stampHeight, stampTimeMs)
	if validation.Outcome == OutcomeStale {
		return StatusStale, "stale nonce"
	}
	if validation.Outcome == OutcomeInvalid {
		switch validation.Kind {
		case InvalidFee:
			return StatusRejectedFee, validation.Reason
		case InvalidState:
			return StatusRejectedState, validation.Reason
		default:
			return StatusInvalid, validation.Reason
		}
	}

	hash := entry.Hash()
	e.idxMu.Lock()
	if _, exists := e.byHash[hash]; exists {
		e.idxMu.Unlock()
		return StatusRejectedDuplicate, "duplicate transaction"
	}
	e.byHash[hash] = entry
	e.feeAll.insert(entry)
	e.idxMu.Unlock()

	var removed []*Entry
	var addedExecutable []*Entry
	wasFuture := false

	if sender, hasSender, _ := tx.Sender(); hasSender {
		pool := e.senderPoolFor(sender, validation.ChainNonce)
		result, added, rem := pool.Add(entry)
		removed = rem
		switch result {
		case ResultStale:
			e.discardUnindexed(hash, removed)
			return StatusStale, "nonce already filled"
		case ResultFailedFeeTooLow:
			e.discardUnindexed(hash, removed)
			return StatusRejectedRbf, "replacement fee too low"
		case ResultNonceTooFarFuture:
			e.discardUnindexed(hash, removed)
			return StatusRejectedNonceTooFarFuture, "nonce too far in the future"
		case ResultAddedFuture:
			wasFuture = true
		case ResultExecutable:
			addedExecutable = added
		}
	} else {
		e.idxMu.Lock()
		e.systemTxs = append(e.systemTxs, entry)
		e.idxMu.Unlock()
	}

	e.idxMu.Lock()
	for _, r := range removed {
		e.feeAll.remove(r.Hash())
		e.feeExecutable.remove(r.Hash())
		delete(e.byHash, r.Hash())
	}
	for _, a := range addedExecutable {
		e.feeExecutable.insert(a)
	}
	e.idxMu.Unlock()

	for _, r := range removed {
		e.gov.apply(r.Tx, -1)
	}
	e.gov.apply(tx, 1)

	var evicted *Entry
	if e.lenByHash() > e.cfg.MaxSize {
		evicted = e.evictForCapacity(entry, wasFuture)
	}

	for _, r := range removed {
		e.eventBus.Publish(TxRemoveEvent{Entry: r, Reason: ReasonRBF})
	}
	e.eventBus.Publish(TxAddEvent{Entry: entry, Reason: reason})
	if evicted != nil {
		e.eventBus.Publish(TxRemoveEvent{Entry: evicted, Reason: ReasonEvictedFull})
		if evicted.Hash() == entry.Hash() {
			return StatusRejectedMempoolFull, "mempool full"
		}
	}
	return StatusAccepted, ""
}

// discardUnindexed undoes the tentative by_hash/fee_index_all
// insertion performed before SenderPool.Add ran, used when the
// sender-pool outcome rejects the entry outright.
func (e *Engine) discardUnindexed(hash domain.Hash, removed []*Entry) {
	e.idxMu.Lock()
	defer e.idxMu.Unlock()
	delete(e.byHash, hash)
	e.feeAll.remove(hash)
	_ = removed // SenderPool already restored any tentatively-removed entry itself
}

func (e *Engine) lenByHash() int {
	e.idxMu.Lock()
	defer e.idxMu.Unlock()
	return len(e.byHash)
}

// evictForCapacity implements §4.7 step 6. Returns the entry that was
// evicted (which may be the entry just added).
func (e *Engine) evictForCapacity(entry *Entry, wasFuture bool) *Entry {
	e.idxMu.Lock()
	lowest, ok := e.feeAll.lowest()
	e.idxMu.Unlock()
	if !ok {
		return nil
	}

	var victim *Entry
	if wasFuture || lowest.Hash() == entry.Hash() {
		victim = entry
	} else {
		victim = lowest
	}
	e.purgeEntry(victim)
	return victim
}

// purgeEntry removes entry from every index, its sender pool (or the
// system-tx queue), and the governance sets. It does not publish an
// event; callers choose the right RemoveReason.
func (e *Engine) purgeEntry(entry *Entry) {
	hash := entry.Hash()
	e.idxMu.Lock()
	delete(e.byHash, hash)
	e.feeAll.remove(hash)
	e.feeExecutable.remove(hash)
	e.idxMu.Unlock()

	e.gov.apply(entry.Tx, -1)

	if sender, hasSender, _ := entry.Tx.Sender(); hasSender {
		if pool, ok := e.senderPoolLookup(sender); ok {
			pool.Remove(map[uint64]struct{}{entry.Nonce(): {}})
			if pool.IsEmpty() {
				e.removeSenderPoolIfEmpty(sender)
			}
		}
	} else {
		e.idxMu.Lock()
		for i, s := range e.systemTxs {
			if s.Hash() == hash {
				e.systemTxs = append(e.systemTxs[:i], e.systemTxs[i+1:]...)
				break
			}
		}
		e.idxMu.Unlock()
	}
}

// executableIterator is the snapshot §4.7 getExecutableIterator
// returns: system txs (FIFO) followed by fee_index_executable in
// authoritative order. It is a snapshot at construction time;
// subsequent mutations are not observed.
type executableIterator struct {
	entries []*Entry
	pos     int
}

func (it *executableIterator) Next() (*Entry, bool) {
	if it.pos >= len(it.entries) {
		return nil, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

// GetExecutableIterator implements §4.7 getExecutableIterator.
func (e *Engine) GetExecutableIterator() *executableIterator {
	e.idxMu.Lock()
	defer e.idxMu.Unlock()

	entries := make([]*Entry, 0, len(e.systemTxs)+e.feeExecutable.len())
	entries = append(entries, e.systemTxs...)
	e.feeExecutable.ascend(func(entry *Entry) bool {
		entries = append(entries, entry)
		return true
	})
	return &executableIterator{entries: entries}
}

// ProcessNewBlock implements §4.7 processNewBlock(minedTxs).
func (e *Engine) ProcessNewBlock(minedTxs []*domain.Tx) {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	affectedSenders := make(map[domain.Address]struct{})
	var minedEvents []*Entry

	for _, tx := range minedTxs {
		hash := tx.Hash()
		e.idxMu.Lock()
		entry, ok := e.byHash[hash]
		e.idxMu.Unlock()
		if !ok {
			continue
		}
		e.purgeEntry(entry)
		minedEvents = append(minedEvents, entry)
		if sender, hasSender, _ := tx.Sender(); hasSender {
			affectedSenders[sender] = struct{}{}
		}
	}

	var staleEvents []*Entry
	for sender := range affectedSenders {
		pool, ok := e.senderPoolLookup(sender)
		if !ok {
			continue
		}
		newChainNonce := e.worldState.Nonce(sender)
		evictedStale, promoted := pool.UpdateChainNonceAndPromote(newChainNonce)

		e.idxMu.Lock()
		for _, a := range promoted {
			e.feeExecutable.insert(a)
		}
		e.idxMu.Unlock()

		for _, stale := range evictedStale {
			e.idxMu.Lock()
			delete(e.byHash, stale.Hash())
			e.feeAll.remove(stale.Hash())
			e.feeExecutable.remove(stale.Hash())
			e.idxMu.Unlock()
			e.gov.apply(stale.Tx, -1)
			staleEvents = append(staleEvents, stale)
		}
		if pool.IsEmpty() {
			e.removeSenderPoolIfEmpty(sender)
		}
	}

	for _, entry := range minedEvents {
		e.eventBus.Publish(TxRemoveEvent{Entry: entry, Reason: ReasonMined})
	}
	for _, entry := range staleEvents {
		e.eventBus.Publish(TxRemoveEvent{Entry: entry, Reason: ReasonStaleNonce})
	}
}

// AddBack implements §4.7 addBack(txs, disconnectedBlock): re-admits
// each tx, stamping firstSeenHeight/firstSeenTime from the
// disconnected block rather than now().
func (e *Engine) AddBack(txs []*domain.Tx, disconnectedBlockHeight, disconnectedBlockTimeMs uint64) []Status {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	out := make([]Status, len(txs))
	for i, tx := range txs {
		status, _ := e.addLocked(tx, nil, ReasonReorg, false, disconnectedBlockHeight, disconnectedBlockTimeMs)
		out[i] = status
	}
	return out
}

// Prune implements §4.7 prune(cutoffTime): evicts every entry whose
// firstSeenTime predates cutoffTimeMs (computed by the caller as
// now - txExpireTimeInMinutes, scheduled every PruneIntervalMs).
func (e *Engine) Prune(cutoffTimeMs uint64) {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	e.idxMu.Lock()
	var expired []*Entry
	for _, entry := range e.byHash {
		if entry.FirstSeenTimeMs < cutoffTimeMs {
			expired = append(expired, entry)
		}
	}
	e.idxMu.Unlock()

	for _, entry := range expired {
		e.purgeEntry(entry)
		e.eventBus.Publish(TxRemoveEvent{Entry: entry, Reason: ReasonExpired})
	}
	if len(expired) > 0 {
		log.Debug("mempool: pruned expired transactions", "count", len(expired))
	}
}

// RemoveTransaction implements §4.7 removeTransaction(hash).
func (e *Engine) RemoveTransaction(hash domain.Hash) {
	e.RemoveTransactions([]domain.Hash{hash})
}

// RemoveTransactions implements §4.7 removeTransactions(hashes).
func (e *Engine) RemoveTransactions(hashes []domain.Hash) {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	var removed []*Entry
	for _, hash := range hashes {
		e.idxMu.Lock()
		entry, ok := e.byHash[hash]
		e.idxMu.Unlock()
		if !ok {
			continue
		}
		e.purgeEntry(entry)
		removed = append(removed, entry)
	}
	for _, entry := range removed {
		e.eventBus.Publish(TxRemoveEvent{Entry: entry, Reason: ReasonInvalid})
	}
}

// Clear drops every entry from every index without publishing
// per-entry events (an operator-invoked reset, not an organic
// lifecycle transition).
func (e *Engine) Clear() {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	e.idxMu.Lock()
	e.byHash = make(map[domain.Hash]*Entry)
	e.feeAll = newFeeIndex()
	e.feeExecutable = newFeeIndex()
	e.systemTxs = nil
	e.idxMu.Unlock()

	e.bySenderMu.Lock()
	e.bySender = make(map[domain.Address]*SenderPool)
	e.bySenderMu.Unlock()

	e.gov = newGovernanceSets()
	e.mval = NewMempoolValidator(e.mval.config, e.mval.txValidator, e.gov)
}

// Stats returns a point-in-time snapshot.
func (e *Engine) Stats() Stats {
	e.idxMu.Lock()
	defer e.idxMu.Unlock()
	e.bySenderMu.Lock()
	defer e.bySenderMu.Unlock()
	return Stats{
		TotalEntries:    len(e.byHash),
		ExecutableCount: e.feeExecutable.len(),
		SenderCount:     len(e.bySender),
		SystemTxCount:   len(e.systemTxs),
	}
}
