package mempool

import (
	"math/big"
	"sort"
	"sync"
)

// AddResult is the outcome of SenderPool.Add (§4.6).
type AddResult uint8

const (
	ResultExecutable AddResult = iota
	ResultAddedFuture
	ResultStale
	ResultFailedFeeTooLow
	ResultNonceTooFarFuture
)

// rbfMinBumpNum/Den implement the "≥ old*110/100" replace-by-fee floor
// (§4.6 step 2, §8 B3) in integer arithmetic to avoid float rounding
// at the fee boundary.
const rbfMinBumpNum = 110
const rbfMinBumpDen = 100

// SenderPool is the per-sender nonce-ordered pool from §4.6: a
// contiguous executable sequence starting at chainNonce+1, and a
// future map of entries past the contiguous frontier.
type SenderPool struct {
	mu sync.Mutex

	chainNonce uint64
	executable map[uint64]*Entry
	future     map[uint64]*Entry

	maxNonceGap uint64
}

func newSenderPool(chainNonce, maxNonceGap uint64) *SenderPool {
	return &SenderPool{
		chainNonce:  chainNonce,
		executable:  make(map[uint64]*Entry),
		future:      make(map[uint64]*Entry),
		maxNonceGap: maxNonceGap,
	}
}

func (p *SenderPool) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.executable) == 0 && len(p.future) == 0
}

func (p *SenderPool) ChainNonce() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainNonce
}

func (p *SenderPool) nextExecLocked() uint64 {
	if len(p.executable) == 0 {
		return p.chainNonce + 1
	}
	max := p.chainNonce + 1
	for n := range p.executable {
		if n+1 > max {
			max = n + 1
		}
	}
	return max
}

// Add implements §4.6 add(entry). The returned added/removed slices
// are exactly the entries the caller must apply to the engine-level
// fee_index_executable (added) and both fee indexes (removed, an RBF
// replacement).
func (p *SenderPool) Add(entry *Entry) (AddResult, []*Entry, []*Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := entry.Nonce()
	if n <= p.chainNonce {
		return ResultStale, nil, nil
	}

	// A replacement at an already-occupied nonce goes straight back
	// into the map it came from: an executable slot stays executable
	// (frontier or not) and a future slot stays future. Re-running the
	// new-nonce frontier classification below would wrongly treat a
	// non-frontier executable bump as "slot already filled" once the
	// old entry's delete has shifted nextExecLocked().
	if existing, ok := p.executable[n]; ok {
		if !rbfAllowed(existing, entry) {
			return ResultFailedFeeTooLow, nil, nil
		}
		p.executable[n] = entry
		added := []*Entry{entry}
		added = append(added, p.promoteLocked()...)
		return ResultExecutable, added, []*Entry{existing}
	}
	if existing, ok := p.future[n]; ok {
		if !rbfAllowed(existing, entry) {
			return ResultFailedFeeTooLow, nil, nil
		}
		p.future[n] = entry
		return ResultAddedFuture, nil, []*Entry{existing}
	}

	nextExec := p.nextExecLocked()
	switch {
	case n == nextExec:
		p.executable[n] = entry
		added := []*Entry{entry}
		added = append(added, p.promoteLocked()...)
		return ResultExecutable, added, nil
	case n > nextExec:
		if n > p.chainNonce+p.maxNonceGap {
			return ResultNonceTooFarFuture, nil, nil
		}
		p.future[n] = entry
		return ResultAddedFuture, nil, nil
	default: // n < nextExec but > chainNonce: slot already filled
		return ResultStale, nil, nil
	}
}

// promoteLocked moves contiguous future entries into executable,
// starting at the new frontier. Caller holds p.mu.
func (p *SenderPool) promoteLocked() []*Entry {
	var promoted []*Entry
	next := p.nextExecLocked()
	for {
		entry, ok := p.future[next]
		if !ok {
			break
		}
		delete(p.future, next)
		p.executable[next] = entry
		promoted = append(promoted, entry)
		next++
	}
	return promoted
}

// UpdateChainNonceAndPromote implements §4.6
// update_chain_nonce_and_promote: drops every entry at or below the
// new chain nonce, advances chainNonce, then runs promotion.
func (p *SenderPool) UpdateChainNonceAndPromote(newChainNonce uint64) (evictedStale []*Entry, promoted []*Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for nonce, e := range p.executable {
		if nonce <= newChainNonce {
			evictedStale = append(evictedStale, e)
			delete(p.executable, nonce)
		}
	}
	for nonce, e := range p.future {
		if nonce <= newChainNonce {
			evictedStale = append(evictedStale, e)
			delete(p.future, nonce)
		}
	}
	p.chainNonce = newChainNonce
	promoted = p.promoteLocked()

	sort.Slice(evictedStale, func(i, j int) bool { return evictedStale[i].Nonce() < evictedStale[j].Nonce() })
	return evictedStale, promoted
}

// Remove deletes the given nonces from both maps, returning the
// entries that were actually present.
func (p *SenderPool) Remove(nonces map[uint64]struct{}) []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var removed []*Entry
	for n := range nonces {
		if e, ok := p.executable[n]; ok {
			removed = append(removed, e)
			delete(p.executable, n)
			continue
		}
		if e, ok := p.future[n]; ok {
			removed = append(removed, e)
			delete(p.future, n)
		}
	}
	return removed
}

// AllEntries returns every entry currently held, for engine-level
// teardown paths (clear, prune scanning). Order is unspecified.
func (p *SenderPool) AllEntries() []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Entry, 0, len(p.executable)+len(p.future))
	for _, e := range p.executable {
		out = append(out, e)
	}
	for _, e := range p.future {
		out = append(out, e)
	}
	return out
}

func rbfAllowed(old, next *Entry) bool {
	oldFee := old.Tx.Fee().Uint256()
	newFee := next.Tx.Fee().Uint256()
	if newFee.Cmp(oldFee) <= 0 {
		return false
	}
	// newFee*100 >= oldFee*110, done in big arithmetic to avoid
	// overflow at large fee values.
	lhs := new(big.Int).Mul(newFee.ToBig(), big.NewInt(rbfMinBumpDen))
	rhs := new(big.Int).Mul(oldFee.ToBig(), big.NewInt(rbfMinBumpNum))
	return lhs.Cmp(rhs) >= 0
}
