package mempool

import (
	"bytes"

	"github.com/google/btree"

	"github.com/aureuschain/aureusd/domain"
)

// feeIndexItem is the ordered-set element backing fee_index_all and
// fee_index_executable (§4.7). Ascending btree iteration over this
// type's Less yields the authoritative order: feePerByte descending,
// then nonce ascending, then hash ascending.
type feeIndexItem struct {
	feePerByte float64
	nonce      uint64
	hash       domain.Hash
	entry      *Entry
}

func feeIndexItemFor(e *Entry) feeIndexItem {
	return feeIndexItem{feePerByte: e.FeePerByte(), nonce: e.Nonce(), hash: e.Hash(), entry: e}
}

func feeIndexLess(a, b feeIndexItem) bool {
	if a.feePerByte != b.feePerByte {
		return a.feePerByte > b.feePerByte
	}
	if a.nonce != b.nonce {
		return a.nonce < b.nonce
	}
	return bytes.Compare(a.hash[:], b.hash[:]) < 0
}

// feeIndex is an ordered set of entries keyed by the §4.7 fee order,
// backed by a google/btree BTreeG. MempoolEngine keeps two of these:
// one over every admitted entry (fee_index_all) and one restricted to
// executable user-pool entries (fee_index_executable), the latter
// feeding the miner iterator.
type feeIndex struct {
	tree *btree.BTreeG[feeIndexItem]
	byHash map[domain.Hash]feeIndexItem
}

func newFeeIndex() *feeIndex {
	return &feeIndex{
		tree:   btree.NewG(32, feeIndexLess),
		byHash: make(map[domain.Hash]feeIndexItem),
	}
}

func (idx *feeIndex) insert(e *Entry) {
	item := feeIndexItemFor(e)
	idx.tree.ReplaceOrInsert(item)
	idx.byHash[item.hash] = item
}

func (idx *feeIndex) remove(hash domain.Hash) {
	item, ok := idx.byHash[hash]
	if !ok {
		return
	}
	idx.tree.Delete(item)
	delete(idx.byHash, hash)
}

func (idx *feeIndex) has(hash domain.Hash) bool {
	_, ok := idx.byHash[hash]
	return ok
}

func (idx *feeIndex) len() int {
	return idx.tree.Len()
}

// lowest returns the entry ordered last (lowest feePerByte, i.e. the
// global eviction candidate per §4.7 "mempool full eviction").
func (idx *feeIndex) lowest() (*Entry, bool) {
	var out *Entry
	idx.tree.Descend(func(item feeIndexItem) bool {
		out = item.entry
		return false
	})
	if out == nil {
		return nil, false
	}
	return out, true
}

// ascend walks the index in authoritative order (highest fee first),
// calling visit for each entry until it returns false.
func (idx *feeIndex) ascend(visit func(*Entry) bool) {
	idx.tree.Ascend(func(item feeIndexItem) bool {
		return visit(item.entry)
	})
}
