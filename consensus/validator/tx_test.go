package validator

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/aureuschain/aureusd/domain"
)

func signedTransferFields(t *testing.T, nonce uint64, recipient domain.Address) domain.TxFields {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := domain.TxFields{
		Version:      domain.TxVersion1,
		TimestampMs:  1,
		Type:         domain.TxTransfer,
		NetworkTag:   1,
		Nonce:        &nonce,
		Recipient:    &recipient,
		TokenAddress: domain.NativeToken,
		Amount:       domain.NewWeiFromUint64(10),
		Fee:          domain.NewWeiFromUint64(1),
	}
	sigHash, err := domain.SigningHash(f)
	require.NoError(t, err)
	sig, err := domain.Sign(sigHash, priv)
	require.NoError(t, err)
	f.Signature = sig
	return f
}

func TestValidateStateless_AcceptsWellFormedTransfer(t *testing.T) {
	recipient := domain.Address{1}
	f := signedTransferFields(t, 1, recipient)
	tx, err := domain.NewTx(f)
	require.NoError(t, err)

	v := NewTxValidator(DefaultLimits)
	require.NoError(t, v.ValidateStateless(tx))
}

func TestValidateStateless_RejectsOversizeTx(t *testing.T) {
	recipient := domain.Address{1}
	f := signedTransferFields(t, 1, recipient)
	f.Message = make([]byte, 1<<20)
	sigHash, err := domain.SigningHash(f)
	require.NoError(t, err)
	priv, _ := crypto.GenerateKey()
	sig, err := domain.Sign(sigHash, priv)
	require.NoError(t, err)
	f.Signature = sig
	tx, err := domain.NewTx(f)
	require.NoError(t, err)

	v := NewTxValidator(Limits{MaxTxSize: 1024})
	err = v.ValidateStateless(tx)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindTxInvalid, ve.Kind)
}

func TestNewTx_RejectsTransferWithPayload(t *testing.T) {
	recipient := domain.Address{1}
	f := signedTransferFields(t, 1, recipient)
	f.Payload = &domain.TxPayload{Code: domain.PayloadVote, Vote: &domain.PayloadVoteData{Type: domain.VoteApprove}}
	sigHash, err := domain.SigningHash(f)
	require.NoError(t, err)
	priv, _ := crypto.GenerateKey()
	sig, err := domain.Sign(sigHash, priv)
	require.NoError(t, err)
	f.Signature = sig
	_, err = domain.NewTx(f)
	require.ErrorIs(t, err, domain.ErrUnexpectedPayload)
}

func TestValidateStateless_RejectsBipVoteMissingVotePayload(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	nonce := uint64(1)
	ref := domain.Hash{9}
	badPayload := &domain.TxPayload{Code: domain.PayloadAuthorityAdd, AuthorityAdd: &domain.PayloadAuthorityAddData{Address: domain.Address{2}}}
	f := domain.TxFields{
		Version:       domain.TxVersion1,
		TimestampMs:   1,
		Type:          domain.TxBipVote,
		NetworkTag:    1,
		Nonce:         &nonce,
		TokenAddress:  domain.NativeToken,
		Amount:        domain.ZeroWei,
		Fee:           domain.NewWeiFromUint64(1),
		Payload:       badPayload,
		ReferenceHash: &ref,
	}
	sigHash, err := domain.SigningHash(f)
	require.NoError(t, err)
	sig, err := domain.Sign(sigHash, priv)
	require.NoError(t, err)
	f.Signature = sig
	tx, err := domain.NewTx(f)
	require.NoError(t, err)

	v := NewTxValidator(DefaultLimits)
	err = v.ValidateStateless(tx)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, KindTxInvalid, ve.Kind)
}
