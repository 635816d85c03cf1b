package domain

import (
	"errors"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// PayloadCode is the stable integer discriminator for a TxPayload
// variant. These codes are part of the wire format (§3/§6) and MUST
// NOT be renumbered across releases.
type PayloadCode uint8

const (
	PayloadAddressAliasAdd    PayloadCode = 0
	PayloadAddressAliasRemove PayloadCode = 1
	PayloadAuthorityAdd       PayloadCode = 2
	PayloadAuthorityRemove    PayloadCode = 3
	PayloadNetworkParamsSet   PayloadCode = 4
	PayloadTokenBurn          PayloadCode = 5
	PayloadTokenCreate        PayloadCode = 6
	PayloadTokenMint          PayloadCode = 7
	PayloadTokenUpdate        PayloadCode = 8
	PayloadVote               PayloadCode = 9
)

// VoteKind is the BIP_VOTE ballot value.
type VoteKind uint8

const (
	VoteApprove    VoteKind = 0
	VoteDisapprove VoteKind = 1
)

var ErrUnknownPayloadCode = errors.New("domain: unknown payload code")

// TxPayload is the closed tagged union of governance/system payloads
// carried by BIP_CREATE and VOTE transactions. Exactly one of the
// pointer fields is non-nil, selected by Code.
type TxPayload struct {
	Code PayloadCode

	AddressAliasAdd    *PayloadAddressAliasAddData
	AddressAliasRemove *PayloadAddressAliasRemoveData
	AuthorityAdd       *PayloadAuthorityAddData
	AuthorityRemove    *PayloadAuthorityRemoveData
	NetworkParamsSet   *PayloadNetworkParamsSetData
	TokenBurn          *PayloadTokenBurnData
	TokenCreate        *PayloadTokenCreateData
	TokenMint          *PayloadTokenMintData
	TokenUpdate        *PayloadTokenUpdateData
	Vote               *PayloadVoteData
}

type PayloadAddressAliasAddData struct {
	Address Address
	Alias   string
}

type PayloadAddressAliasRemoveData struct {
	Alias string
}

type PayloadAuthorityAddData struct {
	Address Address
}

type PayloadAuthorityRemoveData struct {
	Address Address
}

// PayloadNetworkParamsSetData fields are all optional: unset fields
// (nil pointer) mean "leave unchanged".
type PayloadNetworkParamsSetData struct {
	BlockReward           *Wei
	BlockRewardPoolAddress *Address
	TargetMiningTimeMs     *uint64
	AsertHalfLifeBlocks    *uint64
	MinDifficulty          *Wei
	MinTxBaseFee           *Wei
	MinTxByteFee           *Wei
}

type PayloadTokenBurnData struct {
	TokenAddress Address
	Sender       Address
	Amount       Wei
}

type PayloadTokenCreateData struct {
	Name             string
	SmallestUnitName string
	Decimals         uint8
	WebsiteURL       string
	LogoURL          string
	MaxSupply        *Wei
	UserBurnable     bool
}

type PayloadTokenMintData struct {
	TokenAddress Address
	Recipient    Address
	Amount       Wei
}

type PayloadTokenUpdateData struct {
	TokenAddress     Address
	Name             *string
	SmallestUnitName *string
	WebsiteURL       *string
	LogoURL          *string
}

type PayloadVoteData struct {
	Type VoteKind
}

// rlpPayload is the on-the-wire shape: a code byte followed by the
// RLP-encoded variant body. Using a byte-string body (rather than
// relying on rlp's own interface support) keeps the encoding forwards
// stable if a variant's internal fields change shape.
type rlpPayload struct {
	Code PayloadCode
	Body []byte
}

// EncodeRLP implements rlp.Encoder.
func (p *TxPayload) EncodeRLP(w io.Writer) error {
	body, err := p.encodeBody()
	if err != nil {
		return err
	}
	return rlp.Encode(w, &rlpPayload{Code: p.Code, Body: body})
}

func (p *TxPayload) encodeBody() ([]byte, error) {
	switch p.Code {
	case PayloadAddressAliasAdd:
		return rlp.EncodeToBytes(p.AddressAliasAdd)
	case PayloadAddressAliasRemove:
		return rlp.EncodeToBytes(p.AddressAliasRemove)
	case PayloadAuthorityAdd:
		return rlp.EncodeToBytes(p.AuthorityAdd)
	case PayloadAuthorityRemove:
		return rlp.EncodeToBytes(p.AuthorityRemove)
	case PayloadNetworkParamsSet:
		return rlp.EncodeToBytes(encodeNetworkParamsSet(p.NetworkParamsSet))
	case PayloadTokenBurn:
		return rlp.EncodeToBytes(p.TokenBurn)
	case PayloadTokenCreate:
		return rlp.EncodeToBytes(encodeTokenCreate(p.TokenCreate))
	case PayloadTokenMint:
		return rlp.EncodeToBytes(p.TokenMint)
	case PayloadTokenUpdate:
		return rlp.EncodeToBytes(encodeTokenUpdate(p.TokenUpdate))
	case PayloadVote:
		return rlp.EncodeToBytes(p.Vote)
	default:
		return nil, ErrUnknownPayloadCode
	}
}

// DecodeRLP implements rlp.Decoder.
func (p *TxPayload) DecodeRLP(s *rlp.Stream) error {
	var raw rlpPayload
	if err := s.Decode(&raw); err != nil {
		return err
	}
	p.Code = raw.Code
	switch raw.Code {
	case PayloadAddressAliasAdd:
		p.AddressAliasAdd = new(PayloadAddressAliasAddData)
		return rlp.DecodeBytes(raw.Body, p.AddressAliasAdd)
	case PayloadAddressAliasRemove:
		p.AddressAliasRemove = new(PayloadAddressAliasRemoveData)
		return rlp.DecodeBytes(raw.Body, p.AddressAliasRemove)
	case PayloadAuthorityAdd:
		p.AuthorityAdd = new(PayloadAuthorityAddData)
		return rlp.DecodeBytes(raw.Body, p.AuthorityAdd)
	case PayloadAuthorityRemove:
		p.AuthorityRemove = new(PayloadAuthorityRemoveData)
		return rlp.DecodeBytes(raw.Body, p.AuthorityRemove)
	case PayloadNetworkParamsSet:
		var wire rlpNetworkParamsSet
		if err := rlp.DecodeBytes(raw.Body, &wire); err != nil {
			return err
		}
		p.NetworkParamsSet = wire.decode()
		return nil
	case PayloadTokenBurn:
		p.TokenBurn = new(PayloadTokenBurnData)
		return rlp.DecodeBytes(raw.Body, p.TokenBurn)
	case PayloadTokenCreate:
		var wire rlpTokenCreate
		if err := rlp.DecodeBytes(raw.Body, &wire); err != nil {
			return err
		}
		p.TokenCreate = wire.decode()
		return nil
	case PayloadTokenMint:
		p.TokenMint = new(PayloadTokenMintData)
		return rlp.DecodeBytes(raw.Body, p.TokenMint)
	case PayloadTokenUpdate:
		var wire rlpTokenUpdate
		if err := rlp.DecodeBytes(raw.Body, &wire); err != nil {
			return err
		}
		p.TokenUpdate = wire.decode()
		return nil
	case PayloadVote:
		p.Vote = new(PayloadVoteData)
		return rlp.DecodeBytes(raw.Body, p.Vote)
	default:
		return ErrUnknownPayloadCode
	}
}
