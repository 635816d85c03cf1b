package mempool

import (
	"sync"

	"github.com/aureuschain/aureusd/domain"
)

// governanceSets holds the six pending-governance-operation sets
// from §4.7 state. They carry their own lock, independent of
// Engine's global read/write lock (§4.7: "Governance sets
// (thread-safe)"), since MempoolValidator consults them from inside
// Add's read-lock critical section and Engine's own add/remove
// bookkeeping (§4.7.1) must not risk a recursive-lock deadlock with
// the global lock.
type governanceSets struct {
	mu sync.Mutex

	authorityAdds    map[domain.Address]int
	authorityRemoves map[domain.Address]int
	aliasAdds        map[string]int
	aliasRemoves     map[string]int
	paramChanges     map[domain.Address]int
	bipVotes         map[domain.Hash]map[domain.Address]int
}

func newGovernanceSets() *governanceSets {
	return &governanceSets{
		authorityAdds:    make(map[domain.Address]int),
		authorityRemoves: make(map[domain.Address]int),
		aliasAdds:        make(map[string]int),
		aliasRemoves:     make(map[string]int),
		paramChanges:     make(map[domain.Address]int),
		bipVotes:         make(map[domain.Hash]map[domain.Address]int),
	}
}

// apply adds (delta=+1) or removes (delta=-1) the governance-set
// projection of entry, per §4.7.1. Counts rather than bare presence
// are tracked so two queued-but-not-yet-conflicting operations on
// different mempool entries (impossible under the duplicate check,
// but harmless to support) don't clear the set prematurely.
func (g *governanceSets) apply(tx *domain.Tx, delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tx.Type() == domain.TxBipVote {
		ref := *tx.ReferenceHash()
		sender, _, err := tx.Sender()
		if err != nil {
			return
		}
		voters, ok := g.bipVotes[ref]
		if !ok {
			if delta <= 0 {
				return
			}
			voters = make(map[domain.Address]int)
			g.bipVotes[ref] = voters
		}
		voters[sender] += delta
		if voters[sender] <= 0 {
			delete(voters, sender)
		}
		if len(voters) == 0 {
			delete(g.bipVotes, ref)
		}
		return
	}

	if tx.Type() != domain.TxBipCreate {
		return
	}
	payload := tx.Payload()
	if payload == nil {
		return
	}
	sender, _, err := tx.Sender()
	if err != nil {
		return
	}
	switch payload.Code {
	case domain.PayloadAddressAliasAdd:
		bump(g.aliasAdds, payload.AddressAliasAdd.Alias, delta)
	case domain.PayloadAddressAliasRemove:
		bump(g.aliasRemoves, payload.AddressAliasRemove.Alias, delta)
	case domain.PayloadAuthorityAdd:
		bump(g.authorityAdds, payload.AuthorityAdd.Address, delta)
	case domain.PayloadAuthorityRemove:
		bump(g.authorityRemoves, payload.AuthorityRemove.Address, delta)
	case domain.PayloadNetworkParamsSet:
		bump(g.paramChanges, sender, delta)
	}
}

func bump[K comparable](m map[K]int, key K, delta int) {
	m[key] += delta
	if m[key] <= 0 {
		delete(m, key)
	}
}

func (g *governanceSets) HasPendingAuthorityAdd(addr domain.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorityAdds[addr] > 0
}

func (g *governanceSets) HasPendingAuthorityRemove(addr domain.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorityRemoves[addr] > 0
}

func (g *governanceSets) HasPendingAliasAdd(alias string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aliasAdds[alias] > 0
}

func (g *governanceSets) HasPendingAliasRemove(alias string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aliasRemoves[alias] > 0
}

func (g *governanceSets) HasPendingParamChange(authority domain.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paramChanges[authority] > 0
}

func (g *governanceSets) HasPendingVote(ref domain.Hash, voter domain.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	voters, ok := g.bipVotes[ref]
	if !ok {
		return false
	}
	return voters[voter] > 0
}
