package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSenderPool_SequentialNoncesAllExecutable(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	for n := uint64(1); n <= 3; n++ {
		result, added, removed := p.Add(entryFor(t, priv, n, 10))
		require.Equal(t, ResultExecutable, result)
		require.Len(t, added, 1)
		require.Empty(t, removed)
	}
	require.False(t, p.IsEmpty())
}

// TestSenderPool_FuturePromotion covers S2: a tx that arrives past the
// contiguous frontier queues as future; filling the gap promotes it.
func TestSenderPool_FuturePromotion(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	result, added, removed := p.Add(entryFor(t, priv, 2, 10))
	require.Equal(t, ResultAddedFuture, result)
	require.Empty(t, added)
	require.Empty(t, removed)

	result, added, removed = p.Add(entryFor(t, priv, 1, 10))
	require.Equal(t, ResultExecutable, result)
	require.Empty(t, removed)
	require.Len(t, added, 2, "filling the gap promotes nonce 1 and the queued nonce 2")
	require.Equal(t, uint64(1), added[0].Nonce())
	require.Equal(t, uint64(2), added[1].Nonce())
}

// TestSenderPool_ReplaceByFee covers S3/B3: a replacement must clear
// the >=110% fee bump or it is rejected outright.
func TestSenderPool_ReplaceByFee(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	_, _, _ = p.Add(entryFor(t, priv, 1, 100))

	result, _, removed := p.Add(entryFor(t, priv, 1, 109))
	require.Equal(t, ResultFailedFeeTooLow, result)
	require.Empty(t, removed)

	replacement := entryFor(t, priv, 1, 110)
	result, added, removed := p.Add(replacement)
	require.Equal(t, ResultExecutable, result)
	require.Len(t, removed, 1)
	require.Equal(t, uint64(100), removed[0].Tx.Fee().Uint256().Uint64())
	require.Len(t, added, 1)
	require.Equal(t, replacement.Hash(), added[0].Hash())
}

// TestSenderPool_ReplaceByFee_NonFrontierNonce covers §4.6 step 2 at a
// nonce below the executable frontier: deleting the replaced entry
// must not make nextExecLocked() see the bump as landing on a filled,
// non-frontier slot.
func TestSenderPool_ReplaceByFee_NonFrontierNonce(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	_, _, _ = p.Add(entryFor(t, priv, 1, 10))
	_, _, _ = p.Add(entryFor(t, priv, 2, 10))

	replacement := entryFor(t, priv, 1, 20)
	result, added, removed := p.Add(replacement)
	require.Equal(t, ResultExecutable, result)
	require.Len(t, removed, 1)
	require.Equal(t, uint64(10), removed[0].Tx.Fee().Uint256().Uint64())
	require.Len(t, added, 1)
	require.Equal(t, replacement.Hash(), added[0].Hash())
}

// TestSenderPool_ReplaceFutureByFee exercises RBF against the future
// (not executable) map.
func TestSenderPool_ReplaceFutureByFee(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	_, _, _ = p.Add(entryFor(t, priv, 5, 100))
	result, added, removed := p.Add(entryFor(t, priv, 5, 200))
	require.Equal(t, ResultAddedFuture, result)
	require.Empty(t, added)
	require.Len(t, removed, 1)
}

func TestSenderPool_StaleNonceRejected(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(5, 16)

	result, added, removed := p.Add(entryFor(t, priv, 5, 10))
	require.Equal(t, ResultStale, result)
	require.Empty(t, added)
	require.Empty(t, removed)
}

// TestSenderPool_NonceTooFarFuture covers B2: the gap limit rejects
// the entry outright and never retains a tentatively-removed
// replacement target.
func TestSenderPool_NonceTooFarFuture(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 2)

	result, added, removed := p.Add(entryFor(t, priv, 5, 10))
	require.Equal(t, ResultNonceTooFarFuture, result)
	require.Empty(t, added)
	require.Empty(t, removed)
	require.True(t, p.IsEmpty())
}

func TestSenderPool_NonceTooFarFuture_LeavesOtherEntriesIntact(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 2)

	_, _, _ = p.Add(entryFor(t, priv, 2, 10))
	result, _, _ := p.Add(entryFor(t, priv, 10, 999))
	require.Equal(t, ResultNonceTooFarFuture, result)
	require.False(t, p.IsEmpty(), "the original nonce 2 entry must survive the rejected far-future attempt")
}

// TestSenderPool_UpdateChainNonceAndPromote covers the chain-tip
// advance path used by ProcessNewBlock: stale entries are evicted and
// the new frontier promotes any contiguous future entries.
func TestSenderPool_UpdateChainNonceAndPromote(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	_, _, _ = p.Add(entryFor(t, priv, 1, 10))
	_, _, _ = p.Add(entryFor(t, priv, 2, 10))
	_, _, _ = p.Add(entryFor(t, priv, 3, 10)) // contiguous, so executable

	evictedStale, promoted := p.UpdateChainNonceAndPromote(2)
	require.Len(t, evictedStale, 2, "nonces 1 and 2 are at or below the new chain nonce")
	require.Empty(t, promoted, "nonce 3 was already executable, not re-promoted")
	require.Equal(t, uint64(2), p.ChainNonce())
}

func TestSenderPool_UpdateChainNonceAndPromote_PromotesFuture(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)

	_, _, _ = p.Add(entryFor(t, priv, 1, 10))
	_, _, _ = p.Add(entryFor(t, priv, 3, 10)) // future: gap at 2

	evictedStale, promoted := p.UpdateChainNonceAndPromote(2)
	require.Len(t, evictedStale, 1)
	require.Equal(t, uint64(1), evictedStale[0].Nonce())
	require.Len(t, promoted, 1)
	require.Equal(t, uint64(3), promoted[0].Nonce())
}

func TestSenderPool_Remove(t *testing.T) {
	priv := testKey(t)
	p := newSenderPool(0, 16)
	_, _, _ = p.Add(entryFor(t, priv, 1, 10))
	_, _, _ = p.Add(entryFor(t, priv, 5, 10))

	removed := p.Remove(map[uint64]struct{}{1: {}, 5: {}, 9: {}})
	require.Len(t, removed, 2)
	require.True(t, p.IsEmpty())
}
