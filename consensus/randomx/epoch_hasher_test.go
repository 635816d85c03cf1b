package randomx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aureuschain/aureusd/domain"
)

type fakeChain struct {
	hashes map[uint64]domain.Hash
}

func (f *fakeChain) BlockHashByHeight(height uint64) (domain.Hash, bool) {
	h, ok := f.hashes[height]
	return h, ok
}

func newTestHasher(t *testing.T, mining bool) (*EpochKeyedHasher, *fakeChain) {
	t.Helper()
	chain := &fakeChain{hashes: map[uint64]domain.Hash{
		0: seedFromHeightBytes(0),
	}}
	h := New(Config{EpochLength: 100, MiningEnabled: mining}, chain)
	return h, chain
}

func TestEnsureInitializedForHeight_GenesisEpoch(t *testing.T) {
	h, _ := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(99))
	require.True(t, h.initialized)
	require.Equal(t, []byte(defaultGenesisKey), h.activeSeed)
}

// S6: EPOCH_LENGTH=100. ensure_initialized_for_height(99) uses genesis
// seed; ensure_initialized_for_height(100) triggers a write-lock swap
// to seed = hash of block at height 0.
func TestEnsureInitializedForHeight_EpochSwitch(t *testing.T) {
	h, chain := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(99))

	require.NoError(t, h.EnsureInitializedForHeight(100))
	expectedSeed := chain.hashes[0]
	require.Equal(t, expectedSeed[:], h.activeSeed)
}

func TestEnsureInitializedForHeight_MissingSeedBlock(t *testing.T) {
	h, chain := newTestHasher(t, false)
	delete(chain.hashes, 0)
	require.NoError(t, h.EnsureInitializedForHeight(99))
	err := h.EnsureInitializedForHeight(100)
	require.ErrorIs(t, err, ErrSeedUnavailable)
}

func TestLightVMForVerification_SeedProviderOverridesChain(t *testing.T) {
	h, chain := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(99))

	delete(chain.hashes, 0) // force reliance on the provider
	override := seedFromHeightBytes(0)
	provider := func(height uint64) (domain.Hash, bool) {
		if height == 0 {
			return override, true
		}
		return domain.Hash{}, false
	}

	vm, err := h.LightVMForVerification(150, provider)
	require.NoError(t, err)
	require.False(t, vm.IsMining())
	vm.Close()
}

func TestOutstandingVMsReturnsToZeroAfterClose(t *testing.T) {
	h, _ := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(1))

	vm, err := h.LightVMForVerification(1, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), h.OutstandingVMs())
	vm.Close()
	require.Equal(t, int64(0), h.OutstandingVMs())
}

func TestCreateMiningVM_RequiresMiningEnabled(t *testing.T) {
	h, _ := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(1))
	_, err := h.CreateMiningVM()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestShutdown_PreventsFurtherUse(t *testing.T) {
	h, _ := newTestHasher(t, false)
	require.NoError(t, h.EnsureInitializedForHeight(1))
	h.Shutdown()
	_, err := h.LightVMForVerification(1, nil)
	require.ErrorIs(t, err, ErrShuttingDown)
}
