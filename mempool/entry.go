// Package mempool implements the nonce-ordered, fee-prioritized,
// governance-aware pending-transaction store from §4.5-§4.7:
// MempoolValidator, SenderPool and MempoolEngine.
package mempool

import (
	"github.com/aureuschain/aureusd/domain"
)

// Entry wraps a Tx with the bookkeeping MempoolEngine needs: when it
// was admitted, at what chain height, and (if known) which peer
// relayed it (§3 MempoolEntry). It is constructed on admission and
// never mutated afterward; eviction simply drops the pointer from
// every index.
type Entry struct {
	Tx               *domain.Tx
	FirstSeenTimeMs  uint64
	FirstSeenHeight  uint64
	ReceivedFrom     *string
}

// FeePerByte is the authoritative sort key for the fee indexes (§4.7
// "Fee ordering"): double precision is sufficient since it is only
// ever compared, never accumulated.
func (e *Entry) FeePerByte() float64 {
	size := e.Tx.Size()
	if size == 0 {
		return 0
	}
	return e.Tx.Fee().Float64() / float64(size)
}

func (e *Entry) Hash() domain.Hash { return e.Tx.Hash() }

// Nonce returns the tx's nonce, or 0 for a sender-less (system) tx —
// callers must check Tx.IsSystem() before relying on this for
// per-sender ordering.
func (e *Entry) Nonce() uint64 {
	if n := e.Tx.Nonce(); n != nil {
		return *n
	}
	return 0
}
