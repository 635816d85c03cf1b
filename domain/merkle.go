package domain

import "github.com/ethereum/go-ethereum/crypto"

// MerkleRoot computes the deterministic binary merkle root of a
// transaction list's hashes. The pairing rule on an odd count at any
// level is duplicate-last, matching the decision recorded in
// SPEC_FULL.md §5 (open question in spec.md §9/§4.3): the ingestion
// path (this function) and validate_full_block MUST use the same
// rule, since a mismatch would let two different tx lists hash to the
// same root.
func MerkleRoot(txs []*Tx) Hash {
	if len(txs) == 0 {
		return Hash{}
	}
	level := make([]Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func hashPair(a, b Hash) Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return crypto.Keccak256Hash(buf)
}
