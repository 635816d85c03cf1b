package mempool

import (
	"github.com/aureuschain/aureusd/consensus/validator"
	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/domain"
)

// Outcome is the three-way result of MempoolValidator.Validate (§4.5).
type Outcome uint8

const (
	OutcomeValid Outcome = iota
	OutcomeInvalid
	OutcomeStale
)

// InvalidKind distinguishes the three ways OutcomeInvalid can arise,
// so MempoolEngine.Add can map each onto the distinct §7 status codes
// (RejectedFee vs RejectedState vs plain Invalid) without parsing
// Reason strings.
type InvalidKind uint8

const (
	InvalidStructural InvalidKind = iota // TxValidator / encoding failure
	InvalidFee                          // below mempool or network-param fee floor
	InvalidState                        // balance, authority, governance duplicate, system tx
)

// Validation is the return value of Validate: the outcome plus
// whatever detail each branch carries (the chain nonce for
// Valid/Stale, a human-readable reason for Invalid).
type Validation struct {
	Outcome    Outcome
	ChainNonce uint64
	Reason     string
	Kind       InvalidKind
}

// GovernanceView exposes MempoolEngine's pending-governance-operation
// sets (§4.7 state) so MempoolValidator can run the §4.5.1 duplicate
// checks without importing Engine (it's the other direction: Engine
// holds a *MempoolValidator).
type GovernanceView interface {
	HasPendingAuthorityAdd(addr domain.Address) bool
	HasPendingAuthorityRemove(addr domain.Address) bool
	HasPendingAliasAdd(alias string) bool
	HasPendingAliasRemove(alias string) bool
	HasPendingParamChange(authority domain.Address) bool
	HasPendingVote(ref domain.Hash, voter domain.Address) bool
}

// Config is the mempool-local admission parameter MempoolValidator
// enforces ahead of the on-chain fee floor (§4.5 step 1).
type Config struct {
	MinAcceptableFeeWei domain.Wei
}

// MempoolValidator runs the stateful checks from §4.5 against a
// WorldState snapshot and MempoolEngine's governance sets.
type MempoolValidator struct {
	config      Config
	txValidator *validator.TxValidator
	governance  GovernanceView
}

func NewMempoolValidator(config Config, txValidator *validator.TxValidator, governance GovernanceView) *MempoolValidator {
	return &MempoolValidator{config: config, txValidator: txValidator, governance: governance}
}

// Validate implements §4.5. stampHeight/stampTimeMs are written onto
// entry after the mempool fee floor and stateless checks and before
// the state checks (step 3); callers pass chain-tip
// height/now() for a normal add and the disconnected block's
// height/timestamp during addBack re-injection (§4.7 addBack).
func (v *MempoolValidator) Validate(entry *Entry, skipStateless bool, worldState core.WorldState, stampHeight, stampTimeMs uint64) Validation {
	tx := entry.Tx

	if tx.Fee().Cmp(v.config.MinAcceptableFeeWei) < 0 {
		return Validation{Outcome: OutcomeInvalid, Reason: "fee too low", Kind: InvalidFee}
	}

	if !skipStateless {
		if err := v.txValidator.ValidateStateless(tx); err != nil {
			return Validation{Outcome: OutcomeInvalid, Reason: err.Error(), Kind: InvalidStructural}
		}
	}

	entry.FirstSeenHeight = stampHeight
	entry.FirstSeenTimeMs = stampTimeMs

	sender, hasSender, err := tx.Sender()
	if err != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: "sender recovery failed", Kind: InvalidStructural}
	}
	if !hasSender {
		return Validation{Outcome: OutcomeInvalid, Reason: "system tx not accepted over this path", Kind: InvalidState}
	}

	params := worldState.Params()

	chainNonce := worldState.Nonce(sender)
	txNonce := *tx.Nonce()
	if txNonce < chainNonce+1 {
		return Validation{Outcome: OutcomeStale, ChainNonce: chainNonce}
	}

	required, err := params.MinTxBaseFee.Add(mustMulUint64(params.MinTxByteFee, uint64(tx.Size())))
	if err != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: "fee floor overflow", Kind: InvalidFee}
	}
	if tx.Fee().Cmp(required) < 0 {
		return Validation{Outcome: OutcomeInvalid, Reason: "fee below network floor", Kind: InvalidFee}
	}

	switch tx.Type() {
	case domain.TxTransfer:
		if reason, ok := v.checkTransfer(tx, sender, worldState); !ok {
			return Validation{Outcome: OutcomeInvalid, Reason: reason, Kind: InvalidState}
		}
	case domain.TxBipCreate, domain.TxBipVote:
		if _, ok := worldState.Authority(sender); !ok {
			return Validation{Outcome: OutcomeInvalid, Reason: "sender is not an authority", Kind: InvalidState}
		}
		if reason, ok := v.checkGovernanceDuplicate(tx, sender, worldState); !ok {
			return Validation{Outcome: OutcomeInvalid, Reason: reason, Kind: InvalidState}
		}
	default:
		return Validation{Outcome: OutcomeInvalid, Reason: "unsupported type", Kind: InvalidState}
	}

	return Validation{Outcome: OutcomeValid, ChainNonce: chainNonce}
}

func mustMulUint64(w domain.Wei, n uint64) domain.Wei {
	out, err := w.MulUint64(n)
	if err != nil {
		// tx.size() is bounded by MAX_TX_SIZE; a legitimate
		// minTxByteFee cannot overflow 256 bits against it. Treat
		// this as a configuration error: saturate to the largest Wei
		// so the caller's Add() overflows or the floor is the maximum
		// fee, instead of panicking mid-validation.
		all := make([]byte, 32)
		for i := range all {
			all[i] = 0xff
		}
		return domain.NewWeiFromBytes(all)
	}
	return out
}

func (v *MempoolValidator) checkTransfer(tx *domain.Tx, sender domain.Address, ws core.WorldState) (string, bool) {
	token := tx.TokenAddress()
	amount := tx.Amount()
	fee := tx.Fee()

	if !domain.IsNativeToken(token) {
		tok, ok := ws.Token(token)
		if !ok {
			return "transfer references unknown token", false
		}
		if ws.Balance(sender, token).Cmp(amount) < 0 {
			return "insufficient token balance", false
		}
		if tx.Recipient() != nil && domain.IsZero(*tx.Recipient()) && !tok.UserBurnable {
			return "token is not user-burnable", false
		}
		if ws.Balance(sender, domain.NativeToken).Cmp(fee) < 0 {
			return "insufficient native balance for fee", false
		}
		return "", true
	}

	required, err := fee.Add(amount)
	if err != nil {
		return "transfer fee+amount overflow", false
	}
	if ws.Balance(sender, domain.NativeToken).Cmp(required) < 0 {
		return "insufficient native balance", false
	}
	if tx.Recipient() != nil && domain.IsZero(*tx.Recipient()) {
		return "native token burns are not user-initiated", false
	}
	return "", true
}

// checkGovernanceDuplicate implements §4.5.1 for BIP_CREATE payload
// variants and BIP_VOTE.
func (v *MempoolValidator) checkGovernanceDuplicate(tx *domain.Tx, sender domain.Address, ws core.WorldState) (string, bool) {
	payload := tx.Payload()
	if tx.Type() == domain.TxBipVote {
		ref := *tx.ReferenceHash()
		bip, ok := ws.Bip(ref)
		if !ok {
			return "bip does not exist", false
		}
		if bip.Status != core.BipPending {
			return "bip is not pending", false
		}
		if _, voted := bip.ApproveVotes[sender]; voted {
			return "sender already voted on-chain", false
		}
		if _, voted := bip.DisapproveVotes[sender]; voted {
			return "sender already voted on-chain", false
		}
		if v.governance.HasPendingVote(ref, sender) {
			return "sender's vote is already pending", false
		}
		return "", true
	}

	switch payload.Code {
	case domain.PayloadAddressAliasAdd:
		alias := payload.AddressAliasAdd.Alias
		if _, exists := ws.AddressAlias(alias); exists {
			return "alias already taken", false
		}
		if v.governance.HasPendingAliasAdd(alias) {
			return "alias add already pending", false
		}
	case domain.PayloadAddressAliasRemove:
		alias := payload.AddressAliasRemove.Alias
		if _, exists := ws.AddressAlias(alias); !exists {
			return "alias does not exist", false
		}
		if v.governance.HasPendingAliasRemove(alias) {
			return "alias remove already pending", false
		}
	case domain.PayloadAuthorityAdd:
		addr := payload.AuthorityAdd.Address
		if _, exists := ws.Authority(addr); exists {
			return "authority already present", false
		}
		if v.governance.HasPendingAuthorityAdd(addr) {
			return "authority add already pending", false
		}
	case domain.PayloadAuthorityRemove:
		addr := payload.AuthorityRemove.Address
		if _, exists := ws.Authority(addr); !exists {
			return "authority does not exist", false
		}
		if v.governance.HasPendingAuthorityRemove(addr) {
			return "authority remove already pending", false
		}
	case domain.PayloadNetworkParamsSet:
		if v.governance.HasPendingParamChange(sender) {
			return "authority already has a pending params change", false
		}
	case domain.PayloadTokenBurn:
		if _, exists := ws.Token(payload.TokenBurn.TokenAddress); !exists {
			return "token does not exist", false
		}
	case domain.PayloadTokenMint:
		tok, exists := ws.Token(payload.TokenMint.TokenAddress)
		if !exists {
			return "token does not exist", false
		}
		if tok.MaxSupply != nil {
			newSupply, err := tok.TotalSupply.Add(payload.TokenMint.Amount)
			if err != nil || newSupply.Cmp(*tok.MaxSupply) > 0 {
				return "mint would exceed max supply", false
			}
		}
	case domain.PayloadTokenUpdate:
		if _, exists := ws.Token(payload.TokenUpdate.TokenAddress); !exists {
			return "token does not exist", false
		}
	case domain.PayloadTokenCreate:
		// No pre-existing target to collide with: TOKEN_CREATE does
		// not name an address up front.
	}
	return "", true
}
