// Package domain defines the wire-stable data model shared by the
// hashing, validation and mempool subsystems: Hash, Address, Wei,
// Signature, TxPayload, Tx, BlockHeader and Block.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte opaque account identifier.
type Address = common.Address

// Hash is a 32-byte opaque identifier, used for both block and
// transaction hashes as well as content-addressed references (BIP
// referenceHash).
type Hash = common.Hash

// NativeToken is the distinguished token address meaning "the chain's
// native coin" when used as a Tx.TokenAddress. It is deliberately not
// the zero address so it can never collide with ZeroAddress, the burn
// sentinel: a TOKEN_BURN or user-burn TRANSFER targets ZeroAddress,
// never NativeToken.
var NativeToken = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

// ZeroAddress is the distinguished burn recipient.
var ZeroAddress = common.Address{}

// IsNativeToken reports whether addr is the native-token sentinel.
func IsNativeToken(addr Address) bool {
	return addr == NativeToken
}

// IsZero reports whether addr is the burn/zero sentinel.
func IsZero(addr Address) bool {
	return addr == ZeroAddress
}
