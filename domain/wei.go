package domain

import (
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// ErrWeiOverflow is returned by the checked Wei arithmetic helpers when
// an operation would wrap a 256-bit unsigned integer.
var ErrWeiOverflow = errors.New("domain: wei arithmetic overflow")

// Wei is a non-negative 256-bit unsigned integer amount.
type Wei struct {
	v uint256.Int
}

// ZeroWei is the additive identity.
var ZeroWei = Wei{}

// NewWeiFromUint64 builds a Wei from a uint64.
func NewWeiFromUint64(v uint64) Wei {
	return Wei{v: *uint256.NewInt(v)}
}

// NewWeiFromBytes constructs a Wei from big-endian bytes, as found on the
// wire (RLP strings decode to big-endian byte slices).
func NewWeiFromBytes(b []byte) Wei {
	var w Wei
	w.v.SetBytes(b)
	return w
}

// Bytes returns the minimal big-endian encoding, suitable for RLP.
func (w Wei) Bytes() []byte {
	return w.v.Bytes()
}

// Uint256 exposes the underlying value for callers that need to do
// their own uint256 math (e.g. difficulty retarget fixed point).
func (w Wei) Uint256() *uint256.Int {
	return &w.v
}

// IsZero reports whether the amount is zero.
func (w Wei) IsZero() bool {
	return w.v.IsZero()
}

// Cmp compares two Wei values the way uint256.Int.Cmp does.
func (w Wei) Cmp(o Wei) int {
	return w.v.Cmp(&o.v)
}

// Add returns w+o, or ErrWeiOverflow if the sum wraps 256 bits.
func (w Wei) Add(o Wei) (Wei, error) {
	var out Wei
	if out.v.AddOverflow(&w.v, &o.v) {
		return Wei{}, ErrWeiOverflow
	}
	return out, nil
}

// Sub returns w-o. Callers must ensure w >= o; an underflowing
// subtraction returns ErrWeiOverflow rather than wrapping.
func (w Wei) Sub(o Wei) (Wei, error) {
	if w.Cmp(o) < 0 {
		return Wei{}, ErrWeiOverflow
	}
	var out Wei
	out.v.Sub(&w.v, &o.v)
	return out, nil
}

// MulUint64 returns w*n, or ErrWeiOverflow if the product wraps 256 bits.
func (w Wei) MulUint64(n uint64) (Wei, error) {
	var out Wei
	m := uint256.NewInt(n)
	if out.v.MulOverflow(&w.v, m) {
		return Wei{}, ErrWeiOverflow
	}
	return out, nil
}

// EncodeRLP implements rlp.Encoder, storing Wei as a minimal
// big-endian byte string (the same shape *big.Int gets from rlp).
func (w Wei) EncodeRLP(out io.Writer) error {
	return rlp.Encode(out, w.v.Bytes())
}

// DecodeRLP implements rlp.Decoder.
func (w *Wei) DecodeRLP(s *rlp.Stream) error {
	var b []byte
	if err := s.Decode(&b); err != nil {
		return err
	}
	w.v.SetBytes(b)
	return nil
}

// Float64 returns a best-effort float64 approximation, used only as a
// sort key (fee-per-byte ordering) where double precision is sufficient
// per spec §4.7.
func (w Wei) Float64() float64 {
	f := new(big.Float).SetInt(w.v.ToBig())
	out, _ := f.Float64()
	return out
}
