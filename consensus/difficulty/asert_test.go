package difficulty

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func ratio(a, b uint256.Int) float64 {
	af := new(big.Float).SetInt(a.ToBig())
	bf := new(big.Float).SetInt(b.ToBig())
	af.Quo(af, bf)
	f, _ := af.Float64()
	return f
}

func TestNextDifficulty_GenesisFloor(t *testing.T) {
	minDiff := *uint256.NewInt(1000)
	e := NewEngine(func(uint64) (Anchor, bool) { return Anchor{}, false })
	got := e.NextDifficulty(ParentHeader{Height: 0}, Params{MinDifficulty: minDiff})
	require.Equal(t, minDiff, got)
}

func TestNextDifficulty_OnTimeKeepsDifficultyFlat(t *testing.T) {
	minDiff := *uint256.NewInt(1)
	anchor := Anchor{
		Height:      0,
		TimestampMs: 0,
		Difficulty:  *uint256.NewInt(1_000_000),
	}
	e := NewEngine(func(uint64) (Anchor, bool) { return anchor, true })

	params := Params{
		TargetMiningTimeMs:  10_000,
		AsertHalfLifeBlocks: 100,
		AsertAnchorHeight:   0,
		MinDifficulty:       minDiff,
	}
	// Exactly on schedule: heightDelta+1 blocks elapsed in exactly
	// that many target intervals, so the exponent is 0 and difficulty
	// should not move.
	parent := ParentHeader{Height: 10, TimestampMs: (10 + 1) * 10_000, Difficulty: anchor.Difficulty}
	got := e.NextDifficulty(parent, params)
	require.InDelta(t, 1.0, ratio(got, anchor.Difficulty), 0.001)
}

func TestNextDifficulty_FasterThanTargetLowersDifficulty(t *testing.T) {
	minDiff := *uint256.NewInt(1)
	anchor := Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	e := NewEngine(func(uint64) (Anchor, bool) { return anchor, true })
	params := Params{
		TargetMiningTimeMs:  10_000,
		AsertHalfLifeBlocks: 100,
		AsertAnchorHeight:   0,
		MinDifficulty:       minDiff,
	}
	// Blocks arrived twice as fast as target over one half-life
	// window: the exponent is (500_000 - 10_000*101) / 1_000_000 =
	// -0.51, so difficulty scales by 2^-0.51 ≈ 0.702.
	parent := ParentHeader{Height: 100, TimestampMs: 100 * 10_000 / 2, Difficulty: anchor.Difficulty}
	got := e.NextDifficulty(parent, params)
	require.InDelta(t, 0.702, ratio(got, anchor.Difficulty), 0.05)
}

func TestNextDifficulty_SlowerThanTargetLowersDifficulty(t *testing.T) {
	minDiff := *uint256.NewInt(1)
	anchor := Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	e := NewEngine(func(uint64) (Anchor, bool) { return anchor, true })
	params := Params{
		TargetMiningTimeMs:  10_000,
		AsertHalfLifeBlocks: 100,
		AsertAnchorHeight:   0,
		MinDifficulty:       minDiff,
	}
	// Blocks arrived twice as slow as target over one half-life
	// window: difficulty should roughly halve.
	parent := ParentHeader{Height: 100, TimestampMs: 100 * 10_000 * 2, Difficulty: anchor.Difficulty}
	got := e.NextDifficulty(parent, params)
	require.InDelta(t, 0.5, ratio(got, anchor.Difficulty), 0.05)
}

func TestNextDifficulty_AnchorMissingFallsBackToParent(t *testing.T) {
	minDiff := *uint256.NewInt(1)
	parentDiff := *uint256.NewInt(42_000)
	e := NewEngine(func(uint64) (Anchor, bool) { return Anchor{}, false })
	params := Params{TargetMiningTimeMs: 1, AsertHalfLifeBlocks: 1, MinDifficulty: minDiff}
	parent := ParentHeader{Height: 10, Difficulty: parentDiff}
	got := e.NextDifficulty(parent, params)
	require.Equal(t, parentDiff, got)
}

func TestNextDifficulty_ZeroHalfLifeFallsBackToParent(t *testing.T) {
	minDiff := *uint256.NewInt(1)
	anchor := Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(1_000_000)}
	parentDiff := *uint256.NewInt(7_000)
	e := NewEngine(func(uint64) (Anchor, bool) { return anchor, true })
	params := Params{TargetMiningTimeMs: 10_000, AsertHalfLifeBlocks: 0, MinDifficulty: minDiff}
	parent := ParentHeader{Height: 10, TimestampMs: 100_000, Difficulty: parentDiff}
	got := e.NextDifficulty(parent, params)
	require.Equal(t, parentDiff, got)
}

func TestNextDifficulty_FloorsAtMinDifficulty(t *testing.T) {
	minDiff := *uint256.NewInt(5000)
	anchor := Anchor{Height: 0, TimestampMs: 0, Difficulty: *uint256.NewInt(100)}
	e := NewEngine(func(uint64) (Anchor, bool) { return anchor, true })
	params := Params{
		TargetMiningTimeMs:  10_000,
		AsertHalfLifeBlocks: 100,
		MinDifficulty:       minDiff,
	}
	// Very slow blocks: the exponent (about 10_000) overflows, the
	// engine falls back to the parent difficulty (100), and
	// MinDifficulty must clamp that.
	parent := ParentHeader{Height: 1, TimestampMs: 10_000_000_000, Difficulty: anchor.Difficulty}
	got := e.NextDifficulty(parent, params)
	require.Equal(t, minDiff, got)
}

func TestExp2Poly_EndpointsAndMidpoint(t *testing.T) {
	require.InDelta(t, 1.0, exp2Poly(0), 1e-4)
	require.InDelta(t, 2.0, exp2Poly(1), 1e-3)
	require.InDelta(t, 1.4142135623730951, exp2Poly(0.5), 1e-3)
}
