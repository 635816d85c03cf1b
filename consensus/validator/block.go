package validator

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/aureuschain/aureusd/consensus/difficulty"
	"github.com/aureuschain/aureusd/consensus/randomx"
	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

// maxU256Plus1 is 2^256, used to compute target = floor(2^256 / difficulty).
var maxU256Plus1 = new(big.Int).Lsh(big.NewInt(1), 256)

// driftMultiplier sets dynamic_drift(targetMiningTimeMs) = multiplier
// * targetMiningTimeMs + driftFloorMs (§4.3 step 4: "a small multiple
// of the target block time, impl-defined, monotonic in target time").
const driftMultiplier = 6
const driftFloorMs = 2000

func dynamicDriftMs(targetMiningTimeMs uint64) uint64 {
	return driftFloorMs + driftMultiplier*targetMiningTimeMs
}

// BlockValidator implements §4.3: header PoW check, contextual
// parent-linkage check, and full-block check.
type BlockValidator struct {
	hasher      *randomx.EpochKeyedHasher
	diffEngine  *difficulty.Engine
	checkpoints core.CheckpointRegistry
	txValidator *TxValidator
	limits      Limits

	// Now supplies the wall-clock reference validate_header_context
	// checks timestamps against; overridable in tests.
	Now func() uint64
}

func NewBlockValidator(hasher *randomx.EpochKeyedHasher, diffEngine *difficulty.Engine, checkpoints core.CheckpointRegistry, txValidator *TxValidator, limits Limits) *BlockValidator {
	return &BlockValidator{
		hasher:      hasher,
		diffEngine:  diffEngine,
		checkpoints: checkpoints,
		txValidator: txValidator,
		limits:      limits,
		Now:         func() uint64 { return uint64(time.Now().UnixMilli()) },
	}
}

// ValidateHeader runs §4.3's three header-only checks in order.
// batchSeedHashes lets a header-batch caller (e.g. initial block
// download) supply seed hashes it already resolved instead of
// round-tripping through the chain store for each header.
func (v *BlockValidator) ValidateHeader(h *domain.BlockHeader, batchSeedHashes map[uint64]domain.Hash) error {
	if uint64(h.Size()) > v.limits.MaxHeaderSize {
		return newErr(KindHeaderTooLarge, "header size %d exceeds max %d", h.Size(), v.limits.MaxHeaderSize)
	}

	if v.checkpoints != nil {
		if !v.checkpoints.Verify(h.Height, h.Hash()) {
			return newErr(KindCheckpointMismatch, "height %d does not match pinned checkpoint", h.Height)
		}
	}

	var provider randomx.SeedProvider
	if batchSeedHashes != nil {
		provider = func(seedBlockHeight uint64) (domain.Hash, bool) {
			hsh, ok := batchSeedHashes[seedBlockHeight]
			return hsh, ok
		}
	}
	vm, err := v.hasher.LightVMForVerification(h.Height, provider)
	if err != nil {
		if err == randomx.ErrSeedUnavailable {
			return newErr(KindSeedUnavailable, "seed block unavailable for height %d", h.Height)
		}
		return newErr(KindTransient, "light vm unavailable: %v", err)
	}
	defer vm.Close()

	powInput, err := h.PowInput()
	if err != nil {
		return newErr(KindPowInvalid, "pow input encoding failed: %v", err)
	}
	digest := vm.Hash(powInput)

	target := targetFromDifficulty(h.Difficulty)
	digestInt := new(big.Int).SetBytes(digest[:])
	if digestInt.Cmp(target) > 0 {
		return newErr(KindPowInvalid, "pow hash exceeds target")
	}
	return nil
}

// targetFromDifficulty computes target = floor(2^256 / difficulty)
// (§4.2). A zero difficulty has no finite target; treat it as the
// maximal target so any hash passes rather than dividing by zero —
// callers are expected to reject zero difficulty upstream via
// MinDifficulty enforcement in DifficultyEngine.
func targetFromDifficulty(difficulty uint256.Int) *big.Int {
	if difficulty.IsZero() {
		return new(big.Int).Sub(maxU256Plus1, big.NewInt(1))
	}
	d := difficulty.ToBig()
	return new(big.Int).Quo(maxU256Plus1, d)
}

// ValidateHeaderContext runs §4.3's five parent-linkage checks in order.
func (v *BlockValidator) ValidateHeaderContext(child, parent *domain.BlockHeader, params core.NetworkParams) error {
	if child.PreviousHash != parent.Hash() {
		return newErr(KindBadLinkage, "previousHash does not match parent hash")
	}
	if child.Height != parent.Height+1 {
		return newErr(KindBadHeight, "height %d is not parent height %d + 1", child.Height, parent.Height)
	}
	if child.TimestampMs <= parent.TimestampMs {
		return newErr(KindBadTimestamp, "timestamp %d does not exceed parent timestamp %d", child.TimestampMs, parent.TimestampMs)
	}
	now := v.Now()
	drift := dynamicDriftMs(params.TargetMiningTimeMs)
	if child.TimestampMs > now+drift {
		return newErr(KindBadTimestamp, "timestamp %d exceeds now+drift %d", child.TimestampMs, now+drift)
	}

	expected := v.diffEngine.NextDifficulty(difficulty.ParentHeader{
		Height:      parent.Height,
		TimestampMs: parent.TimestampMs,
		Difficulty:  parent.Difficulty,
	}, difficulty.Params{
		TargetMiningTimeMs:  params.TargetMiningTimeMs,
		AsertHalfLifeBlocks: params.AsertHalfLifeBlocks,
		AsertAnchorHeight:   params.AsertAnchorHeight,
		MinDifficulty:       params.MinDifficulty,
	})
	if child.Difficulty.Cmp(&expected) != 0 {
		return newErr(KindBadDifficulty, "difficulty %s does not match expected %s", child.Difficulty.Dec(), expected.Dec())
	}
	return nil
}

// ValidateFullBlock runs §4.3's full-block check: optional PoW
// (already-validated headers during reorg replay can skip it), size,
// merkle root, and per-tx stateless validation. Any single tx error
// fails the whole block atomically.
func (v *BlockValidator) ValidateFullBlock(block *domain.Block, validatePow bool) error {
	if validatePow {
		if err := v.ValidateHeader(block.Header, nil); err != nil {
			return err
		}
	}
	if uint64(block.Size()) > v.limits.MaxBlockSize {
		return newErr(KindBlockTooLarge, "block size %d exceeds max %d", block.Size(), v.limits.MaxBlockSize)
	}

	root := domain.MerkleRoot(block.Txs)
	if root != block.Header.TxRootHash {
		return newErr(KindMerkleMismatch, "computed merkle root does not match header")
	}

	for _, tx := range block.Txs {
		if err := v.txValidator.ValidateStateless(tx); err != nil {
			log.Debug("validator: rejecting block on tx failure", "txHash", tx.Hash(), "err", err)
			return err
		}
	}
	return nil
}
