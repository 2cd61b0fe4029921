package connection

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Signer asks the wallet to sign on behalf of one account.
// Keys never leave the wallet.
type Signer struct {
	provider RequestProvider
	address  common.Address
}

// NewSigner binds a request provider to the account it signs for.
func NewSigner(provider RequestProvider, address string) (*Signer, error) {
	if !common.IsHexAddress(address) {
		return nil, tethererr.WithDetails(tethererr.ErrInvalidAddress, map[string]string{"address": address})
	}
	return &Signer{provider: provider, address: common.HexToAddress(address)}, nil
}

// SignerFor builds a signer for the connection's current account.
func SignerFor(ctx context.Context, c Connection) (*Signer, error) {
	addr, err := c.GetWalletAddress(ctx)
	if err != nil {
		return nil, err
	}
	account, ok := addr.Get()
	if !ok {
		return nil, tethererr.ErrNotConnected
	}
	provider, err := c.GetProvider(ctx)
	if err != nil {
		return nil, err
	}
	return NewSigner(provider, account)
}

// Address returns the checksummed signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// Provider returns the request provider the signer forwards to.
func (s *Signer) Provider() RequestProvider {
	return s.provider
}

// SignMessage requests an EIP-191 personal_sign signature over msg.
func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	raw, err := s.provider.Request(ctx, "personal_sign", hexutil.Encode(msg), s.address.Hex())
	if err != nil {
		return nil, err
	}
	var sig hexutil.Bytes
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, tethererr.Wrap(tethererr.ErrInvalidInput, "decoding signature: %v", err)
	}
	return sig, nil
}

// RecoverMessageSigner returns the account that produced an EIP-191 signature.
func RecoverMessageSigner(msg, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, tethererr.WithDetails(tethererr.ErrInvalidInput, map[string]string{"signature_length": strconv.Itoa(len(sig))})
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	// wallets return v as 27/28
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), normalized)
	if err != nil {
		return common.Address{}, tethererr.Wrap(tethererr.ErrInvalidInput, "recovering signer: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyMessage reports whether sig over msg was produced by the signer's account.
func (s *Signer) VerifyMessage(msg, sig []byte) bool {
	addr, err := RecoverMessageSigner(msg, sig)
	return err == nil && addr == s.address
}
