// Package core defines the narrow collaborator interfaces the
// validation and mempool subsystems consume: WorldState, ChainQuery,
// CheckpointRegistry and EventBus (§6), plus the state-shaped value
// types (NetworkParams, Authority, Token) that flow through them.
// Storage, P2P and REST are out of scope (§1); this package only
// names the boundary.
package core

import (
	"github.com/aureuschain/aureusd/domain"
	"github.com/holiman/uint256"
)

// NetworkParams is NetworkParamsState from §3: the tunable, on-chain
// parameter set DifficultyEngine, BlockValidator and MempoolValidator all
// read a consistent snapshot of at chain tip.
type NetworkParams struct {
	BlockReward            domain.Wei
	BlockRewardPoolAddress domain.Address
	TargetMiningTimeMs     uint64
	AsertHalfLifeBlocks    uint64
	AsertAnchorHeight      uint64
	MinDifficulty          uint256.Int
	MinTxBaseFee           domain.Wei
	MinTxByteFee           domain.Wei
	CurrentAuthorityCount  uint32
}

// Authority is the on-chain record of an address empowered to create
// and vote on BIPs.
type Authority struct {
	Address domain.Address
	AddedAt uint64
}

// Token is the on-chain record created by TOKEN_CREATE and mutated by
// TOKEN_MINT/BURN/UPDATE.
type Token struct {
	Address          domain.Address
	Name             string
	SmallestUnitName string
	Decimals         uint8
	WebsiteURL       string
	LogoURL          string
	TotalSupply      domain.Wei
	MaxSupply        *domain.Wei
	UserBurnable     bool
}

// BipStatus is the lifecycle state of an on-chain BIP.
type BipStatus uint8

const (
	BipPending BipStatus = iota
	BipApproved
	BipRejected
	BipExecuted
)

// Bip is the on-chain governance object a BIP_CREATE materializes and
// BIP_VOTE transactions vote on.
type Bip struct {
	ReferenceHash domain.Hash
	Proposer      domain.Address
	Payload       domain.TxPayload
	Status        BipStatus
	ApproveVotes  map[domain.Address]struct{}
	DisapproveVotes map[domain.Address]struct{}
}

// WorldState is a read-only, chain-tip-consistent snapshot of account
// and governance state (§6). Implementations MUST NOT mutate the
// underlying store through this interface; it exists purely for
// validation reads.
type WorldState interface {
	// Nonce returns the account's last confirmed nonce (0 if none),
	// i.e. the count of transactions already confirmed from addr; the
	// next nonce the account can use is Nonce+1.
	Nonce(addr domain.Address) uint64
	// Balance returns addr's balance of token (domain.NativeToken for
	// the chain's native coin).
	Balance(addr, token domain.Address) domain.Wei
	// Token looks up a created token by its address.
	Token(addr domain.Address) (Token, bool)
	// Authority looks up an authority by address.
	Authority(addr domain.Address) (Authority, bool)
	// AddressAlias resolves a human-readable alias to an address.
	AddressAlias(alias string) (domain.Address, bool)
	// Bip looks up a governance proposal by its reference hash.
	Bip(hash domain.Hash) (Bip, bool)
	// Params returns the current NetworkParamsState snapshot.
	Params() NetworkParams
}

// ChainQuery is the read-only view over stored blocks the validators
// and the hasher's seed resolution consult (§6).
type ChainQuery interface {
	LatestBlock() (*domain.Block, bool)
	LatestHeight() uint64
	StoredBlockByHeight(height uint64) (*domain.Block, bool)
	BlockHashByHeight(height uint64) (domain.Hash, bool)
	StoredBlockByHash(hash domain.Hash) (*domain.Block, bool)
}

// CheckpointRegistry verifies a block hash against a pinned
// (height -> expected hash) table, rejecting any chain that diverges
// from a known-good history (§4.3 step 2).
type CheckpointRegistry interface {
	Verify(height uint64, hash domain.Hash) bool
}

// EventBus publishes domain events to any number of subscribers
// without blocking the publisher (§6). FeedEventBus in core/eventbus.go
// adapts go-ethereum's event.Feed to this interface.
type EventBus interface {
	Publish(event any)
}
