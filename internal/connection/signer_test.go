package connection_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tether/internal/connection"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// keyProvider answers personal_sign with a local key, as a wallet would.
type keyProvider struct {
	t      *testing.T
	method string
	params []any
}

func (p *keyProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	p.method = method
	p.params = params

	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(p.t, err)

	msg, err := hexutil.Decode(params[0].(string))
	require.NoError(p.t, err)

	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(p.t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return json.Marshal(hexutil.Encode(sig))
}

func TestSigner_SignAndVerify(t *testing.T) {
	t.Parallel()
	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	provider := &keyProvider{t: t}
	signer, err := connection.NewSigner(provider, address.Hex())
	require.NoError(t, err)

	msg := []byte("Sign in to tether")
	sig, err := signer.SignMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "personal_sign", provider.method)
	assert.Equal(t, hexutil.Encode(msg), provider.params[0])
	assert.Equal(t, address.Hex(), provider.params[1])
	assert.Len(t, sig, crypto.SignatureLength)

	recovered, err := connection.RecoverMessageSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, address, recovered)
	assert.True(t, signer.VerifyMessage(msg, sig))
	assert.False(t, signer.VerifyMessage([]byte("other message"), sig))
	assert.Equal(t, address, signer.Address())
}

func TestNewSigner_InvalidAddress(t *testing.T) {
	t.Parallel()
	_, err := connection.NewSigner(&keyProvider{t: t}, "0xnothex")
	require.ErrorIs(t, err, tethererr.ErrInvalidAddress)
}

func TestRecoverMessageSigner_BadLength(t *testing.T) {
	t.Parallel()
	_, err := connection.RecoverMessageSigner([]byte("x"), []byte{1, 2, 3})
	require.ErrorIs(t, err, tethererr.ErrInvalidInput)
}

func TestSignerFor_NotConnected(t *testing.T) {
	t.Parallel()
	conn := newStubConnection(connection.MetaMask, successInfo(connection.MetaMask))
	conn.q.mu.Lock()
	conn.q.account = func() (connection.Value[string], error) { return connection.Absent[string](), nil }
	conn.q.mu.Unlock()

	_, err := conn.GetSigner(context.Background())
	require.ErrorIs(t, err, tethererr.ErrNotConnected)
}
