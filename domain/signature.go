package domain

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when a Signature fails to recover a
// public key, or recovers one that doesn't match a declared sender.
var ErrInvalidSignature = errors.New("domain: invalid signature")

// Signature is an opaque recoverable ECDSA (secp256k1) signature, the
// same R/S/V triple go-ethereum transactions use.
type Signature struct {
	R, S *big.Int
	V    byte // recovery id, 0 or 1
}

// IsEmpty reports whether no signature has been set (system tx).
func (s Signature) IsEmpty() bool {
	return s.R == nil || s.S == nil
}

// Bytes returns the 65-byte [R || S || V] encoding crypto.Ecrecover
// expects.
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	if s.IsEmpty() {
		return out
	}
	r := s.R.Bytes()
	copy(out[32-len(r):32], r)
	sb := s.S.Bytes()
	copy(out[64-len(sb):64], sb)
	out[64] = s.V
	return out
}

// Recover recovers the signer address from sigHash, the digest of the
// canonical pre-image excluding the signature field (§6).
func Recover(sigHash Hash, sig Signature) (Address, error) {
	if sig.IsEmpty() {
		return Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(sigHash[:], sig.Bytes())
	if err != nil {
		return Address{}, errors.Join(ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces a Signature over sigHash using priv.
func Sign(sigHash Hash, priv *ecdsa.PrivateKey) (Signature, error) {
	raw, err := crypto.Sign(sigHash[:], priv)
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		R: new(big.Int).SetBytes(raw[:32]),
		S: new(big.Int).SetBytes(raw[32:64]),
		V: raw[64],
	}, nil
}
