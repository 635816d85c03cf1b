// Package memstate is an in-memory reference implementation of
// core.WorldState and core.ChainQuery, used by cmd/aureusd in place of
// a real storage backend (§1: RocksDB physical layout is out of scope
// for this core).
package memstate

import (
	"sync"

	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

// Store is a mutex-guarded in-memory chain-tip state and block store.
// It is not meant to back a production node; it gives cmd/aureusd a
// consistent WorldState/ChainQuery pair without a database.
type Store struct {
	mu sync.RWMutex

	nonces    map[domain.Address]uint64
	balances  map[domain.Address]map[domain.Address]domain.Wei
	tokens    map[domain.Address]core.Token
	authorities map[domain.Address]core.Authority
	aliases   map[string]domain.Address
	bips      map[domain.Hash]core.Bip
	params    core.NetworkParams

	blocksByHeight map[uint64]*domain.Block
	blocksByHash   map[domain.Hash]*domain.Block
	latestHeight   uint64
	hasLatest      bool
}

func New(params core.NetworkParams) *Store {
	return &Store{
		nonces:         make(map[domain.Address]uint64),
		balances:       make(map[domain.Address]map[domain.Address]domain.Wei),
		tokens:         make(map[domain.Address]core.Token),
		authorities:    make(map[domain.Address]core.Authority),
		aliases:        make(map[string]domain.Address),
		bips:           make(map[domain.Hash]core.Bip),
		params:         params,
		blocksByHeight: make(map[uint64]*domain.Block),
		blocksByHash:   make(map[domain.Hash]*domain.Block),
	}
}

// --- core.WorldState ---

func (s *Store) Nonce(addr domain.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[addr]
}

func (s *Store) Balance(addr, token domain.Address) domain.Wei {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byToken, ok := s.balances[addr]
	if !ok {
		return domain.ZeroWei
	}
	return byToken[token]
}

func (s *Store) Token(addr domain.Address) (core.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[addr]
	return t, ok
}

func (s *Store) Authority(addr domain.Address) (core.Authority, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authorities[addr]
	return a, ok
}

func (s *Store) AddressAlias(alias string) (domain.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.aliases[alias]
	return a, ok
}

func (s *Store) Bip(hash domain.Hash) (core.Bip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bips[hash]
	return b, ok
}

func (s *Store) Params() core.NetworkParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// --- core.ChainQuery ---

func (s *Store) LatestBlock() (*domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLatest {
		return nil, false
	}
	return s.blocksByHeight[s.latestHeight], true
}

func (s *Store) LatestHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestHeight
}

func (s *Store) StoredBlockByHeight(height uint64) (*domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocksByHeight[height]
	return b, ok
}

func (s *Store) BlockHashByHeight(height uint64) (domain.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocksByHeight[height]
	if !ok {
		return domain.Hash{}, false
	}
	return b.Hash(), true
}

func (s *Store) StoredBlockByHash(hash domain.Hash) (*domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocksByHash[hash]
	return b, ok
}

// --- mutators (test/demo use only) ---

func (s *Store) SetNonce(addr domain.Address, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[addr] = nonce
}

func (s *Store) SetBalance(addr, token domain.Address, amount domain.Wei) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byToken, ok := s.balances[addr]
	if !ok {
		byToken = make(map[domain.Address]domain.Wei)
		s.balances[addr] = byToken
	}
	byToken[token] = amount
}

func (s *Store) PutToken(t core.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Address] = t
}

func (s *Store) PutAuthority(a core.Authority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorities[a.Address] = a
}

func (s *Store) RemoveAuthority(addr domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authorities, addr)
}

func (s *Store) PutAlias(alias string, addr domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[alias] = addr
}

func (s *Store) PutBip(b core.Bip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bips[b.ReferenceHash] = b
}

func (s *Store) SetParams(p core.NetworkParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

// AppendBlock installs block as the new chain tip. It does not
// validate anything; callers are expected to have already run it
// through BlockValidator.
func (s *Store) AppendBlock(b *domain.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocksByHeight[b.Height()] = b
	s.blocksByHash[b.Hash()] = b
	if !s.hasLatest || b.Height() > s.latestHeight {
		s.latestHeight = b.Height()
		s.hasLatest = true
	}
}
