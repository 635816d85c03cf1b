package mempool

import (
	"crypto/ecdsa"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return priv
}

// signedTransfer builds a minimal, well-formed, signed transfer from
// priv with the given nonce and flat fee (no byte-fee scaling needed
// at these sizes for the mempool-level tests).
func signedTransfer(t *testing.T, priv *ecdsa.PrivateKey, nonce uint64, feeWei uint64) *domain.Tx {
	t.Helper()
	recipient := domain.Address{0xAB}
	f := domain.TxFields{
		Version:      domain.TxVersion1,
		TimestampMs:  1,
		Type:         domain.TxTransfer,
		NetworkTag:   1,
		Nonce:        &nonce,
		Recipient:    &recipient,
		TokenAddress: domain.NativeToken,
		Amount:       domain.NewWeiFromUint64(1),
		Fee:          domain.NewWeiFromUint64(feeWei),
	}
	sigHash, err := domain.SigningHash(f)
	require.NoError(t, err)
	sig, err := domain.Sign(sigHash, priv)
	require.NoError(t, err)
	f.Signature = sig
	tx, err := domain.NewTx(f)
	require.NoError(t, err)
	return tx
}

func entryFor(t *testing.T, priv *ecdsa.PrivateKey, nonce uint64, feeWei uint64) *Entry {
	t.Helper()
	return &Entry{Tx: signedTransfer(t, priv, nonce, feeWei)}
}

// fakeWorldState is a minimal in-memory core.WorldState double for
// mempool tests: unknown accounts read as a generous default balance
// so plain transfers validate without per-test bookkeeping.
type fakeWorldState struct {
	mu             sync.Mutex
	nonces         map[domain.Address]uint64
	balances       map[domain.Address]domain.Wei
	defaultBalance domain.Wei
	tokens         map[domain.Address]core.Token
	authorities    map[domain.Address]core.Authority
	aliases        map[string]domain.Address
	bips           map[domain.Hash]core.Bip
	params         core.NetworkParams
}

func newFakeWorldState() *fakeWorldState {
	return &fakeWorldState{
		nonces:         make(map[domain.Address]uint64),
		balances:       make(map[domain.Address]domain.Wei),
		defaultBalance: domain.NewWeiFromUint64(1_000_000_000),
		tokens:         make(map[domain.Address]core.Token),
		authorities:    make(map[domain.Address]core.Authority),
		aliases:        make(map[string]domain.Address),
		bips:           make(map[domain.Hash]core.Bip),
		params: core.NetworkParams{
			TargetMiningTimeMs: 60_000,
			MinTxBaseFee:       domain.ZeroWei,
			MinTxByteFee:       domain.ZeroWei,
		},
	}
}

func (w *fakeWorldState) Nonce(addr domain.Address) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nonces[addr]
}

func (w *fakeWorldState) SetNonce(addr domain.Address, n uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nonces[addr] = n
}

func (w *fakeWorldState) Balance(addr, token domain.Address) domain.Wei {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.balances[addr]; ok {
		return b
	}
	return w.defaultBalance
}

func (w *fakeWorldState) Token(addr domain.Address) (core.Token, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tokens[addr]
	return t, ok
}

func (w *fakeWorldState) Authority(addr domain.Address) (core.Authority, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.authorities[addr]
	return a, ok
}

func (w *fakeWorldState) SetAuthority(addr domain.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authorities[addr] = core.Authority{Address: addr}
}

func (w *fakeWorldState) AddressAlias(alias string) (domain.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.aliases[alias]
	return a, ok
}

func (w *fakeWorldState) Bip(hash domain.Hash) (core.Bip, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bips[hash]
	return b, ok
}

func (w *fakeWorldState) PutBip(b core.Bip) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bips[b.ReferenceHash] = b
}

func (w *fakeWorldState) Params() core.NetworkParams {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// fakeChainQuery supplies LatestHeight only; the other methods are
// unused by the mempool paths under test.
type fakeChainQuery struct {
	mu     sync.Mutex
	height uint64
}

func (c *fakeChainQuery) LatestHeight() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}
func (c *fakeChainQuery) LatestBlock() (*domain.Block, bool)                { return nil, false }
func (c *fakeChainQuery) StoredBlockByHeight(uint64) (*domain.Block, bool)   { return nil, false }
func (c *fakeChainQuery) BlockHashByHeight(uint64) (domain.Hash, bool)       { return domain.Hash{}, false }
func (c *fakeChainQuery) StoredBlockByHash(domain.Hash) (*domain.Block, bool) { return nil, false }

// recordingEventBus captures every published event for assertions.
type recordingEventBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingEventBus) Publish(evt any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
}

func (b *recordingEventBus) snapshot() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]any, len(b.events))
	copy(out, b.events)
	return out
}
