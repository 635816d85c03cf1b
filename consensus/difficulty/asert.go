// Package difficulty implements the Absolute ASERT retarget rule,
// computing the continuous exponential in fixed point with big.Int
// shifts.
package difficulty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// fixedPointShift sets the fixed-point precision used while
// approximating 2^x. 48 bits comfortably exceeds the "≥16 bits of
// precision" spec §4.2 requires and matches uint256's headroom for
// the subsequent multiply without overflow for any realistic
// difficulty value.
const fixedPointShift = 48

// Anchor is the minimal block view the engine needs from the anchor
// block referenced by params.AsertAnchorHeight.
type Anchor struct {
	Height     uint64
	TimestampMs uint64
	Difficulty uint256.Int
}

// ParentHeader is the minimal parent-block view the engine needs.
type ParentHeader struct {
	Height      uint64
	TimestampMs uint64
	Difficulty  uint256.Int
}

// Params is the subset of NetworkParamsState the retarget rule reads.
type Params struct {
	TargetMiningTimeMs  uint64
	AsertHalfLifeBlocks uint64
	AsertAnchorHeight   uint64
	MinDifficulty       uint256.Int
}

// AnchorSource fetches the anchor block given its height. Returning
// ok=false models "anchor not found", a transient/degraded condition
// per §4.2 and §7.
type AnchorSource func(height uint64) (Anchor, bool)

// Engine computes next-block difficulty via Absolute ASERT.
type Engine struct {
	anchors AnchorSource
}

func NewEngine(anchors AnchorSource) *Engine {
	return &Engine{anchors: anchors}
}

// NextDifficulty implements spec §4.2. Anchor-not-found and arithmetic
// overflow are non-fatal: they fall back to the parent's difficulty
// and are logged, never propagated as a hard error.
func (e *Engine) NextDifficulty(parent ParentHeader, params Params) uint256.Int {
	if parent.Height+1 <= 1 {
		return params.MinDifficulty
	}

	anchor, ok := e.anchors(params.AsertAnchorHeight)
	if !ok {
		log.Error("difficulty: asert anchor block not found, falling back to parent difficulty",
			"anchorHeight", params.AsertAnchorHeight)
		return floorAt(parent.Difficulty, params.MinDifficulty)
	}

	next, err := computeASERT(anchor, parent, params)
	if err != nil {
		log.Error("difficulty: asert computation failed, falling back to parent difficulty", "err", err)
		return floorAt(parent.Difficulty, params.MinDifficulty)
	}
	return floorAt(next, params.MinDifficulty)
}

func floorAt(v, floor uint256.Int) uint256.Int {
	if v.Cmp(&floor) < 0 {
		return floor
	}
	return v
}

// computeASERT evaluates
//
//	newDifficulty = anchor.difficulty * 2^((timeDelta - targetTimeMs*(heightDelta+1)) / tauMs)
//
// in fixed point, matching §4.2.
func computeASERT(anchor Anchor, parent ParentHeader, params Params) (uint256.Int, error) {
	if params.AsertHalfLifeBlocks == 0 || params.TargetMiningTimeMs == 0 {
		return uint256.Int{}, errZeroParam
	}
	tauMs := new(big.Int).SetUint64(params.AsertHalfLifeBlocks)
	tauMs.Mul(tauMs, new(big.Int).SetUint64(params.TargetMiningTimeMs))
	if tauMs.Sign() == 0 {
		return uint256.Int{}, errZeroParam
	}

	timeDelta := new(big.Int).SetInt64(int64(parent.TimestampMs) - int64(anchor.TimestampMs))
	heightDelta := parent.Height - anchor.Height

	targetTime := new(big.Int).SetUint64(params.TargetMiningTimeMs)
	targetTime.Mul(targetTime, new(big.Int).SetUint64(heightDelta+1))

	exponentNumerator := new(big.Int).Sub(timeDelta, targetTime)

	// Fixed-point exponent: exponentNumerator / tauMs, scaled by
	// 2^fixedPointShift so exp2Fixed can operate on an integer.
	scaledExponent := new(big.Int).Lsh(exponentNumerator, fixedPointShift)
	scaledExponent.Quo(scaledExponent, tauMs)

	multiplier, err := exp2Fixed(scaledExponent)
	if err != nil {
		return uint256.Int{}, err
	}

	anchorDiff := anchor.Difficulty.ToBig()
	result := new(big.Int).Mul(anchorDiff, multiplier)
	result.Rsh(result, fixedPointShift)

	var out uint256.Int
	if overflow := out.SetFromBig(result); overflow {
		return uint256.Int{}, errOverflow
	}
	return out, nil
}

// exp2Fixed computes 2^(scaledExponent / 2^fixedPointShift) as a
// Q(fixedPointShift) fixed-point integer: it splits the exponent into
// an integer part (a plain bit shift) and a fractional part, evaluated
// with exp2Poly, a Taylor expansion of e^(x ln2) good to better than
// 2^-20 relative error, beyond the 16 bits of precision spec §4.2
// demands.
func exp2Fixed(scaledExponent *big.Int) (*big.Int, error) {
	one := new(big.Int).Lsh(big.NewInt(1), fixedPointShift)

	// Split scaledExponent = intPart*2^shift + frac, 0 <= frac < 2^shift.
	shift := new(big.Int).Lsh(big.NewInt(1), fixedPointShift)
	intPart := new(big.Int)
	frac := new(big.Int)
	intPart.DivMod(scaledExponent, shift, frac)
	if frac.Sign() < 0 {
		frac.Add(frac, shift)
		intPart.Sub(intPart, big.NewInt(1))
	}

	// fracMultiplier = 2^(frac/2^shift) for frac in [0,1), via the
	// series 2^x = e^(x ln2): the fraction is converted to float64,
	// exp2Poly evaluates a fixed polynomial in float64 (rather than
	// math.Exp2), and big.Float scales the result to Q(fixedPointShift).
	fracFloat := new(big.Float).SetInt(frac)
	fracFloat.Quo(fracFloat, new(big.Float).SetInt(shift))
	x, _ := fracFloat.Float64()

	fracMultiplierFloat := big.NewFloat(exp2Poly(x))
	fracMultiplierFloat.Mul(fracMultiplierFloat, new(big.Float).SetInt(one))
	fracMultiplier, _ := fracMultiplierFloat.Int(nil)

	result := new(big.Int).Set(fracMultiplier)
	if intPart.Sign() >= 0 {
		if intPart.BitLen() > 32 {
			return nil, errOverflow
		}
		result.Lsh(result, uint(intPart.Uint64()))
	} else {
		neg := new(big.Int).Neg(intPart)
		if neg.BitLen() > 32 {
			return nil, errOverflow
		}
		result.Rsh(result, uint(neg.Uint64()))
	}
	if result.BitLen() > 256+fixedPointShift {
		return nil, errOverflow
	}
	return result, nil
}

// exp2Poly approximates 2^x for x in [0,1) using the degree-7 Taylor
// polynomial of e^(x ln2), good to better than 2^-20 relative error — comfortably
// inside the ≥16-bit precision budget spec §4.2 requires, and cheap
// enough to evaluate deterministically in float64 (only the final
// integer conversion at Q48 needs to be platform-stable, and that
// conversion is exact for values in this range).
func exp2Poly(x float64) float64 {
	const (
		c0 = 1.0
		c1 = 0.6931471805599453
		c2 = 0.2402265069591007
		c3 = 0.05550410866482158
		c4 = 0.009618129107628477
		c5 = 0.0013333558146428443
		c6 = 0.00015403530393381606
		c7 = 0.000015252733804059838
	)
	return c0 + x*(c1+x*(c2+x*(c3+x*(c4+x*(c5+x*(c6+x*c7))))))
}

var (
	errZeroParam = domainError("difficulty: half-life/target-time parameter is zero")
	errOverflow  = domainError("difficulty: asert arithmetic overflow")
)

type domainError string

func (e domainError) Error() string { return string(e) }
