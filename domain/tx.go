package domain

import (
	"bytes"
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxVersion enumerates wire-format revisions of Tx. Only one exists
// today; the field exists so a future revision can change field order
// without breaking hash stability of already-mined transactions.
type TxVersion uint8

const TxVersion1 TxVersion = 1

// TxType is the closed set of transaction kinds.
type TxType uint8

const (
	TxTransfer TxType = iota
	TxBipCreate
	TxBipVote
	// TxSystemMint and TxSystemReward are system (sender-less)
	// variants. MempoolValidator currently rejects both over the
	// public admission path (§4.5 step 6, §9 open question) but the
	// wire format and MempoolEngine.system_txs queue carry them.
	TxSystemMint
	TxSystemReward
)

var (
	ErrMissingRecipient    = errors.New("domain: transfer requires a recipient")
	ErrMissingReference    = errors.New("domain: vote requires a reference hash")
	ErrNonceSenderMismatch = errors.New("domain: nonce presence must match sender presence")
	ErrMissingPayload      = errors.New("domain: bip_create/vote requires a payload")
	ErrUnexpectedPayload   = errors.New("domain: transfer must not carry a payload")
)

// Tx is an immutable transaction. Construct via NewTx; all exported
// fields are read through accessor methods so the hash, once computed,
// can be cached without risk of a caller mutating the tx out from
// under it.
type Tx struct {
	version TxVersion
	// timestampMs is when the sender claims to have created the tx.
	timestampMs  uint64
	txType       TxType
	networkTag   uint32
	nonce        *uint64
	recipient    *Address
	tokenAddress Address
	amount       Wei
	fee          Wei
	message      []byte
	payload      *TxPayload
	referenceHash *Hash
	sig          Signature

	sender Address
	hasSender bool

	hash      atomic.Pointer[Hash]
	encodedSz atomic.Int64 // 0 means "not yet computed"
}

// TxFields bundles constructor arguments, mirroring the immutable,
// all-at-once construction style of go-ethereum's types.Transaction.
type TxFields struct {
	Version       TxVersion
	TimestampMs   uint64
	Type          TxType
	NetworkTag    uint32
	Nonce         *uint64
	Recipient     *Address
	TokenAddress  Address
	Amount        Wei
	Fee           Wei
	Message       []byte
	Payload       *TxPayload
	ReferenceHash *Hash
	Signature     Signature
}

// NewTx validates the structural invariants from §3 and builds a Tx.
// Sender recovery happens lazily the first time Sender() is called,
// since it requires hashing the canonical pre-image.
func NewTx(f TxFields) (*Tx, error) {
	if f.Type == TxTransfer && f.Recipient == nil {
		return nil, ErrMissingRecipient
	}
	if f.Type == TxBipVote && f.ReferenceHash == nil {
		return nil, ErrMissingReference
	}
	if (f.Type == TxBipCreate || f.Type == TxBipVote) && f.Payload == nil {
		return nil, ErrMissingPayload
	}
	if f.Type == TxTransfer && f.Payload != nil {
		return nil, ErrUnexpectedPayload
	}
	tokenAddress := f.TokenAddress
	if IsZero(tokenAddress) {
		tokenAddress = NativeToken
	}
	tx := &Tx{
		version:       f.Version,
		timestampMs:   f.TimestampMs,
		txType:        f.Type,
		networkTag:    f.NetworkTag,
		nonce:         f.Nonce,
		recipient:     f.Recipient,
		tokenAddress:  tokenAddress,
		amount:        f.Amount,
		fee:           f.Fee,
		message:       f.Message,
		payload:       f.Payload,
		referenceHash: f.ReferenceHash,
		sig:           f.Signature,
	}
	if !tx.sig.IsEmpty() {
		if tx.nonce == nil {
			return nil, ErrNonceSenderMismatch
		}
	} else if tx.nonce != nil {
		return nil, ErrNonceSenderMismatch
	}
	return tx, nil
}

func (tx *Tx) Version() TxVersion      { return tx.version }
func (tx *Tx) TimestampMs() uint64     { return tx.timestampMs }
func (tx *Tx) Type() TxType            { return tx.txType }
func (tx *Tx) NetworkTag() uint32      { return tx.networkTag }
func (tx *Tx) Nonce() *uint64          { return tx.nonce }
func (tx *Tx) Recipient() *Address     { return tx.recipient }
func (tx *Tx) TokenAddress() Address   { return tx.tokenAddress }
func (tx *Tx) Amount() Wei             { return tx.amount }
func (tx *Tx) Fee() Wei                { return tx.fee }
func (tx *Tx) Message() []byte         { return tx.message }
func (tx *Tx) Payload() *TxPayload     { return tx.payload }
func (tx *Tx) ReferenceHash() *Hash    { return tx.referenceHash }
func (tx *Tx) Signature() Signature    { return tx.sig }

// IsSystem reports whether the tx has no sender (§3: sender.is_some()
// iff nonce.is_some()).
func (tx *Tx) IsSystem() bool {
	return tx.sig.IsEmpty()
}

// rlpTx is the canonical wire shape. Field order matches §3's listing.
type rlpTx struct {
	Version      TxVersion
	TimestampMs  uint64
	Type         TxType
	NetworkTag   uint32
	HasNonce     bool
	Nonce        uint64
	HasRecipient bool
	Recipient    Address
	TokenAddress Address
	Amount       Wei
	Fee          Wei
	Message      []byte
	HasPayload   bool
	Payload      *TxPayload `rlp:"nil"`
	HasReference bool
	Reference    Hash
}

func (tx *Tx) toWire(includeSig bool) rlpTx {
	w := fieldsToWire(TxFields{
		Version:       tx.version,
		TimestampMs:   tx.timestampMs,
		Type:          tx.txType,
		NetworkTag:    tx.networkTag,
		Nonce:         tx.nonce,
		Recipient:     tx.recipient,
		TokenAddress:  tx.tokenAddress,
		Amount:        tx.amount,
		Fee:           tx.fee,
		Message:       tx.message,
		Payload:       tx.payload,
		ReferenceHash: tx.referenceHash,
	})
	_ = includeSig
	return w
}

func fieldsToWire(f TxFields) rlpTx {
	tokenAddress := f.TokenAddress
	if IsZero(tokenAddress) {
		tokenAddress = NativeToken
	}
	w := rlpTx{
		Version:      f.Version,
		TimestampMs:  f.TimestampMs,
		Type:         f.Type,
		NetworkTag:   f.NetworkTag,
		TokenAddress: tokenAddress,
		Amount:       f.Amount,
		Fee:          f.Fee,
		Message:      f.Message,
	}
	if f.Nonce != nil {
		w.HasNonce, w.Nonce = true, *f.Nonce
	}
	if f.Recipient != nil {
		w.HasRecipient, w.Recipient = true, *f.Recipient
	}
	if f.Payload != nil {
		w.HasPayload, w.Payload = true, f.Payload
	}
	if f.ReferenceHash != nil {
		w.HasReference, w.Reference = true, *f.ReferenceHash
	}
	return w
}

// SigningHash computes the digest a sender must sign to authorize a
// transaction with the given fields (the Signature field of f is
// ignored). Wallets and tests call this before Sign, then pass the
// resulting Signature into NewTx to build the final, immutable Tx —
// mirroring go-ethereum's signer.Hash-then-SignTx two-step flow.
func SigningHash(f TxFields) (Hash, error) {
	w := fieldsToWire(f)
	pre, err := rlp.EncodeToBytes(&w)
	if err != nil {
		return Hash{}, err
	}
	return Hash(crypto.Keccak256Hash(pre)), nil
}

// preImage returns the canonical encoding excluding the signature
// field, the pre-image over which Signature is computed and against
// which sender recovery is checked (§6).
func (tx *Tx) preImage() ([]byte, error) {
	w := tx.toWire(false)
	return rlp.EncodeToBytes(&w)
}

// sigHash is the digest signed by the sender: Keccak256 of preImage.
func (tx *Tx) sigHash() (Hash, error) {
	pre, err := tx.preImage()
	if err != nil {
		return Hash{}, err
	}
	return Hash(crypto.Keccak256Hash(pre)), nil
}

// Encode returns the full canonical encoding including the signature,
// used for wire transmission and as the pre-image of Hash().
func (tx *Tx) Encode() ([]byte, error) {
	pre, err := tx.preImage()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(pre)
	if err := rlp.Encode(&buf, tx.sig.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTx parses the wire format produced by Encode.
func DecodeTx(b []byte) (*Tx, error) {
	s := rlp.NewStream(bytes.NewReader(b), 0)
	var w rlpTx
	if err := s.Decode(&w); err != nil {
		return nil, err
	}
	var sigBytes []byte
	if err := s.Decode(&sigBytes); err != nil {
		return nil, err
	}
	tx := &Tx{
		version:      w.Version,
		timestampMs:  w.TimestampMs,
		txType:       w.Type,
		networkTag:   w.NetworkTag,
		tokenAddress: w.TokenAddress,
		amount:       w.Amount,
		fee:          w.Fee,
		message:      w.Message,
	}
	if w.HasNonce {
		n := w.Nonce
		tx.nonce = &n
	}
	if w.HasRecipient {
		r := w.Recipient
		tx.recipient = &r
	}
	if w.HasPayload {
		tx.payload = w.Payload
	}
	if w.HasReference {
		r := w.Reference
		tx.referenceHash = &r
	}
	if len(sigBytes) == 65 {
		// Bytes() pads an empty (system-tx) signature to 65 zero
		// bytes, so an all-zero decode must round-trip back to the
		// nil-R/S zero value rather than a spurious R=S=0 signature,
		// or IsEmpty/IsSystem would flip true->false across the wire.
		r := bigFromBytes(sigBytes[:32])
		s := bigFromBytes(sigBytes[32:64])
		if r.Sign() != 0 || s.Sign() != 0 {
			tx.sig = Signature{R: r, S: s, V: sigBytes[64]}
		}
	}
	tx.encodedSz.Store(int64(len(b)))
	return tx, nil
}

// Hash returns the cryptographic digest of the canonical encoding. It
// is computed once and cached; it is stable across the Tx's lifetime
// (§3 invariant).
func (tx *Tx) Hash() Hash {
	if cached := tx.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := tx.Encode()
	if err != nil {
		// Encode only fails on programmer error (unknown payload
		// code); NewTx already validated structural invariants.
		panic(err)
	}
	h := crypto.Keccak256Hash(enc)
	tx.hash.Store((*Hash)(&h))
	return h
}

// Size returns the encoded byte length, cached alongside Hash.
func (tx *Tx) Size() int {
	if sz := tx.encodedSz.Load(); sz != 0 {
		return int(sz)
	}
	enc, err := tx.Encode()
	if err != nil {
		panic(err)
	}
	tx.encodedSz.Store(int64(len(enc)))
	return len(enc)
}

// Sender recovers the sender address from the signature. Returns
// false if the tx is a system tx (no signature).
func (tx *Tx) Sender() (Address, bool, error) {
	if tx.IsSystem() {
		return Address{}, false, nil
	}
	if tx.hasSender {
		return tx.sender, true, nil
	}
	h, err := tx.sigHash()
	if err != nil {
		return Address{}, false, err
	}
	addr, err := Recover(h, tx.sig)
	if err != nil {
		return Address{}, false, err
	}
	tx.sender, tx.hasSender = addr, true
	return addr, true, nil
}

func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
