package randomx

import "errors"

// Failure modes named in spec §4.1/§7.
var (
	// ErrNotInitialized is returned when a VM is requested before
	// ensure_initialized_for_height has run at least once.
	ErrNotInitialized = errors.New("randomx: hasher not initialized")

	// ErrShuttingDown is returned once shutdown() has been called.
	ErrShuttingDown = errors.New("randomx: hasher is shutting down")

	// ErrSeedUnavailable is returned when the seed block is missing
	// from the chain and no seed provider supplied it.
	ErrSeedUnavailable = errors.New("randomx: seed block unavailable")
)
