package validator

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/aureuschain/aureusd/consensus/difficulty"
	"github.com/aureuschain/aureusd/consensus/randomx"
	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

type noopSeedSource struct{}

func (noopSeedSource) BlockHashByHeight(uint64) (domain.Hash, bool) { return domain.Hash{}, false }

type alwaysVerifyCheckpoints struct{}

func (alwaysVerifyCheckpoints) Verify(uint64, domain.Hash) bool { return true }

func newTestBlockValidator(t *testing.T, anchor difficulty.Anchor) *BlockValidator {
	t.Helper()
	hasher := randomx.New(randomx.Config{EpochLength: 1000}, noopSeedSource{})
	diffEngine := difficulty.NewEngine(func(uint64) (difficulty.Anchor, bool) { return anchor, true })
	return NewBlockValidator(hasher, diffEngine, alwaysVerifyCheckpoints{}, NewTxValidator(DefaultLimits), DefaultLimits)
}

func makeHeader(height uint64, ts uint64, prevHash domain.Hash, diff uint256.Int) *domain.BlockHeader {
	return &domain.BlockHeader{
		Version:       1,
		Height:        height,
		TimestampMs:   ts,
		PreviousHash:  prevHash,
		TxRootHash:    domain.MerkleRoot(nil),
		StateRootHash: domain.Hash{},
		Difficulty:    diff,
		Coinbase:      domain.Address{},
		Nonce:         0,
	}
}

func TestValidateHeaderContext_AcceptsWellLinkedChild(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	bv.Now = func() uint64 { return 1_000_000_000 }

	parent := makeHeader(10, 10*10_000, domain.Hash{}, anchor.Difficulty)
	params := core.NetworkParams{
		TargetMiningTimeMs:  10_000,
		AsertHalfLifeBlocks: 100,
		AsertAnchorHeight:   0,
		MinDifficulty:       *uint256.NewInt(1),
	}
	expected := bv.diffEngineNextDifficultyForTest(parent, params)
	child := makeHeader(11, parent.TimestampMs+1, parent.Hash(), expected)

	require.NoError(t, bv.ValidateHeaderContext(child, parent, params))
}

func TestValidateHeaderContext_RejectsWrongPreviousHash(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	parent := makeHeader(10, 10_000, domain.Hash{}, anchor.Difficulty)
	child := makeHeader(11, 20_000, domain.Hash{0xff}, anchor.Difficulty)

	err := bv.ValidateHeaderContext(child, parent, core.NetworkParams{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 100, MinDifficulty: *uint256.NewInt(1)})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBadLinkage, ve.Kind)
}

func TestValidateHeaderContext_RejectsWrongHeight(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	parent := makeHeader(10, 10_000, domain.Hash{}, anchor.Difficulty)
	child := makeHeader(12, 20_000, parent.Hash(), anchor.Difficulty)

	err := bv.ValidateHeaderContext(child, parent, core.NetworkParams{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 100, MinDifficulty: *uint256.NewInt(1)})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBadHeight, ve.Kind)
}

func TestValidateHeaderContext_RejectsNonIncreasingTimestamp(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	parent := makeHeader(10, 10_000, domain.Hash{}, anchor.Difficulty)
	child := makeHeader(11, 10_000, parent.Hash(), anchor.Difficulty)

	err := bv.ValidateHeaderContext(child, parent, core.NetworkParams{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 100, MinDifficulty: *uint256.NewInt(1)})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBadTimestamp, ve.Kind)
}

func TestValidateHeaderContext_RejectsFutureDrift(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	bv.Now = func() uint64 { return 100 }
	parent := makeHeader(10, 10, domain.Hash{}, anchor.Difficulty)
	child := makeHeader(11, 10_000_000, parent.Hash(), anchor.Difficulty)

	err := bv.ValidateHeaderContext(child, parent, core.NetworkParams{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 100, MinDifficulty: *uint256.NewInt(1)})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBadTimestamp, ve.Kind)
}

func TestValidateHeaderContext_RejectsWrongDifficulty(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)
	bv.Now = func() uint64 { return 1_000_000_000 }
	parent := makeHeader(10, 10*10_000, domain.Hash{}, anchor.Difficulty)
	child := makeHeader(11, parent.TimestampMs+1, parent.Hash(), *uint256.NewInt(9_999_999_999))

	err := bv.ValidateHeaderContext(child, parent, core.NetworkParams{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 100, MinDifficulty: *uint256.NewInt(1)})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBadDifficulty, ve.Kind)
}

func TestValidateFullBlock_RejectsMerkleMismatch(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	bv := newTestBlockValidator(t, anchor)

	header := makeHeader(1, 1, domain.Hash{}, anchor.Difficulty)
	header.TxRootHash = domain.Hash{0x42} // deliberately wrong
	block := &domain.Block{Header: header, Txs: nil}

	err := bv.ValidateFullBlock(block, false)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindMerkleMismatch, ve.Kind)
}

func TestValidateFullBlock_RejectsOversizeBlock(t *testing.T) {
	anchor := difficulty.Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	hasher := randomx.New(randomx.Config{EpochLength: 1000}, noopSeedSource{})
	diffEngine := difficulty.NewEngine(func(uint64) (difficulty.Anchor, bool) { return anchor, true })
	bv := NewBlockValidator(hasher, diffEngine, alwaysVerifyCheckpoints{}, NewTxValidator(DefaultLimits), Limits{MaxBlockSize: 1, MaxHeaderSize: DefaultLimits.MaxHeaderSize, MaxTxSize: DefaultLimits.MaxTxSize})

	header := makeHeader(1, 1, domain.Hash{}, anchor.Difficulty)
	header.TxRootHash = domain.MerkleRoot(nil)
	block := &domain.Block{Header: header, Txs: nil}

	err := bv.ValidateFullBlock(block, false)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindBlockTooLarge, ve.Kind)
}

// diffEngineNextDifficultyForTest exposes the internal expected
// difficulty without duplicating the fixed-point math in the test.
func (v *BlockValidator) diffEngineNextDifficultyForTest(parent *domain.BlockHeader, params core.NetworkParams) uint256.Int {
	return v.diffEngine.NextDifficulty(difficulty.ParentHeader{
		Height:      parent.Height,
		TimestampMs: parent.TimestampMs,
		Difficulty:  parent.Difficulty,
	}, difficulty.Params{
		TargetMiningTimeMs:  params.TargetMiningTimeMs,
		AsertHalfLifeBlocks: params.AsertHalfLifeBlocks,
		AsertAnchorHeight:   params.AsertAnchorHeight,
		MinDifficulty:       params.MinDifficulty,
	})
}
