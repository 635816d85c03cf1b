package validator

import (
	"github.com/aureuschain/aureusd/domain"
)

// Limits are the size ceilings referenced throughout §4.3/§4.4. They
// are deployment-tunable; TxValidator and BlockValidator each read
// the ones relevant to them.
type Limits struct {
	MaxHeaderSize uint64
	MaxBlockSize  uint64
	MaxTxSize     uint64
}

// DefaultLimits mirror a conservative devnet sizing; production
// deployments override via config (see cmd/aureusd).
var DefaultLimits = Limits{
	MaxHeaderSize: 1 << 10,       // 1 KiB
	MaxBlockSize:  4 << 20,       // 4 MiB
	MaxTxSize:     64 << 10,      // 64 KiB
}

// TxValidator runs the stateless per-transaction checks from §4.4: no
// chain or mempool state is consulted here.
type TxValidator struct {
	limits Limits
}

func NewTxValidator(limits Limits) *TxValidator {
	return &TxValidator{limits: limits}
}

// ValidateStateless checks encoded size, type/payload consistency,
// and signature/sender agreement, in the order §4.4 lists them.
func (v *TxValidator) ValidateStateless(tx *domain.Tx) error {
	if uint64(tx.Size()) > v.limits.MaxTxSize {
		return newErr(KindTxInvalid, "tx size %d exceeds max %d", tx.Size(), v.limits.MaxTxSize)
	}

	if err := v.validateTypePayloadConsistency(tx); err != nil {
		return err
	}

	if _, err := tx.Encode(); err != nil {
		return newErr(KindTxInvalid, "tx does not re-encode canonically: %v", err)
	}

	sender, hasSender, err := tx.Sender()
	if err != nil {
		return newErr(KindTxInvalid, "signature does not recover: %v", err)
	}
	wantsSender := !tx.IsSystem()
	if hasSender != wantsSender {
		return newErr(KindTxInvalid, "sender presence disagrees with signature presence")
	}
	if (tx.Nonce() != nil) != hasSender {
		return newErr(KindTxInvalid, "nonce present iff sender present")
	}
	_ = sender

	switch tx.Type() {
	case domain.TxBipVote:
		if tx.ReferenceHash() == nil {
			return newErr(KindTxInvalid, "bip_vote requires a referenceHash")
		}
	case domain.TxTransfer:
		if tx.Recipient() == nil {
			return newErr(KindTxInvalid, "transfer requires a recipient")
		}
	}

	return nil
}

// validateTypePayloadConsistency enforces the type-code <-> payload
// variant table from §3: BIP_CREATE/BIP_VOTE carry a payload, every
// other type carries none, and (for BIP_CREATE) the payload code must
// be one of the governance-creation variants rather than VOTE.
func (v *TxValidator) validateTypePayloadConsistency(tx *domain.Tx) error {
	payload := tx.Payload()
	switch tx.Type() {
	case domain.TxBipCreate:
		if payload == nil {
			return newErr(KindTxInvalid, "bip_create requires a payload")
		}
		if payload.Code == domain.PayloadVote {
			return newErr(KindTxInvalid, "bip_create must not carry a VOTE payload")
		}
	case domain.TxBipVote:
		if payload == nil {
			return newErr(KindTxInvalid, "bip_vote requires a payload")
		}
		if payload.Code != domain.PayloadVote {
			return newErr(KindTxInvalid, "bip_vote must carry a VOTE payload")
		}
	default:
		if payload != nil {
			return newErr(KindTxInvalid, "transaction type %d must not carry a payload", tx.Type())
		}
	}
	return nil
}
