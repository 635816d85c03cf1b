// Package randomx wraps the native RandomX library (the tevador/RandomX
// memory-hard hash used by the RandomX PoW family) behind two Go
// types: HashVM, an opaque single-VM hasher, and EpochKeyedHasher, the
// thread-safe lifecycle manager described in spec §4.1. The cgo
// binding follows the same shape the pack's own native PoW wrapper
// uses (cequihash/solver.go: a thin Go layer over an opaque native
// handle, reached through #cgo CFLAGS / import "C").
package randomx

// Flags is the Go mirror of the native randomx_flags bitmask.
type Flags uint32

const (
	FlagDefault     Flags = 0
	FlagLargePages  Flags = 1 << 0
	FlagHardAES     Flags = 1 << 1
	FlagFullMem     Flags = 1 << 2
	FlagJIT         Flags = 1 << 3
	FlagSecure      Flags = 1 << 4
	FlagArgon2SSSE3 Flags = 1 << 5
	FlagArgon2AVX2  Flags = 1 << 6
	FlagArgon2      Flags = FlagArgon2SSSE3 | FlagArgon2AVX2
)

// Has reports whether f has every bit in want set.
func (f Flags) Has(want Flags) bool { return f&want == want }
