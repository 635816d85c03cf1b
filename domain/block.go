package domain

import (
	"bytes"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// BlockHeader is the fixed-shape header described in §3.
type BlockHeader struct {
	Version       uint32
	Height        uint64
	TimestampMs   uint64
	PreviousHash  Hash
	TxRootHash    Hash
	StateRootHash Hash
	Difficulty    uint256.Int
	Coinbase      Address
	Nonce         uint64
	Sig           Signature

	hash      atomic.Pointer[Hash]
	encodedSz atomic.Int64
}

// rlpHeader mirrors BlockHeader's wire shape. Difficulty is encoded as
// a minimal big-endian byte string, matching Wei's own encoding.
type rlpHeader struct {
	Version       uint32
	Height        uint64
	TimestampMs   uint64
	PreviousHash  Hash
	TxRootHash    Hash
	StateRootHash Hash
	Difficulty    []byte
	Coinbase      Address
	Nonce         uint64
}

func (h *BlockHeader) toWire() rlpHeader {
	return rlpHeader{
		Version:       h.Version,
		Height:        h.Height,
		TimestampMs:   h.TimestampMs,
		PreviousHash:  h.PreviousHash,
		TxRootHash:    h.TxRootHash,
		StateRootHash: h.StateRootHash,
		Difficulty:    h.Difficulty.Bytes(),
		Coinbase:      h.Coinbase,
		Nonce:         h.Nonce,
	}
}

// PowInput returns the canonical encoding minus the signature field,
// fed to the PoW hash function (§4.2, §6). Unlike Tx, the mining nonce
// IS included: PoW input covers everything the miner has committed to
// except the header signature, which is produced (by the block
// proposer, in permissioned networks that sign headers) after a
// solution is found.
func (h *BlockHeader) PowInput() ([]byte, error) {
	w := h.toWire()
	return rlp.EncodeToBytes(&w)
}

// Encode returns the full canonical encoding including the header
// signature.
func (h *BlockHeader) Encode() ([]byte, error) {
	pre, err := h.PowInput()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(pre)
	if err := rlp.Encode(&buf, h.Sig.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash is the digest of the full canonical encoding (including
// signature), cached after first computation.
func (h *BlockHeader) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := h.Encode()
	if err != nil {
		panic(err)
	}
	hh := crypto.Keccak256Hash(enc)
	h.hash.Store((*Hash)(&hh))
	return hh
}

// Size is the encoded byte length of the header.
func (h *BlockHeader) Size() int {
	if sz := h.encodedSz.Load(); sz != 0 {
		return int(sz)
	}
	enc, err := h.Encode()
	if err != nil {
		panic(err)
	}
	h.encodedSz.Store(int64(len(enc)))
	return len(enc)
}

// DecodeBlockHeader parses the wire format produced by Encode.
func DecodeBlockHeader(b []byte) (*BlockHeader, error) {
	s := rlp.NewStream(bytes.NewReader(b), 0)
	var w rlpHeader
	if err := s.Decode(&w); err != nil {
		return nil, err
	}
	var sigBytes []byte
	if err := s.Decode(&sigBytes); err != nil {
		return nil, err
	}
	h := &BlockHeader{
		Version:       w.Version,
		Height:        w.Height,
		TimestampMs:   w.TimestampMs,
		PreviousHash:  w.PreviousHash,
		TxRootHash:    w.TxRootHash,
		StateRootHash: w.StateRootHash,
		Coinbase:      w.Coinbase,
		Nonce:         w.Nonce,
	}
	h.Difficulty.SetBytes(w.Difficulty)
	if len(sigBytes) == 65 {
		h.Sig = Signature{
			R: bigFromBytes(sigBytes[:32]),
			S: bigFromBytes(sigBytes[32:64]),
			V: sigBytes[64],
		}
	}
	h.encodedSz.Store(int64(len(b)))
	return h, nil
}

// Block is a header plus its ordered transaction list.
type Block struct {
	Header *BlockHeader
	Txs    []*Tx
}

// Hash, Height are derived from the header.
func (b *Block) Hash() Hash     { return b.Header.Hash() }
func (b *Block) Height() uint64 { return b.Header.Height }

// Size is the combined encoded size of header + body.
func (b *Block) Size() int {
	sz := b.Header.Size()
	for _, tx := range b.Txs {
		sz += tx.Size()
	}
	return sz
}
