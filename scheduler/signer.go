package scheduler

import (
	"encoding/base64"
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	coreSignature "github.com/oasisprotocol/oasis-core/go/common/crypto/signature"

	sdkSignature "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature"
	sdkEd25519 "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature/ed25519"
)

// rawSigner is an in-memory signer over a raw (non-ADR-0008) Ed25519 private key, for a
// scheduler whose signing key is provisioned directly into its configuration rather than
// through the interactive CLI wallet flow.
type rawSigner struct {
	privateKey ed25519.PrivateKey
}

func (s *rawSigner) Public() coreSignature.PublicKey {
	var pk coreSignature.PublicKey
	_ = pk.UnmarshalBinary(s.privateKey.Public().(ed25519.PublicKey))
	return pk
}

func (s *rawSigner) ContextSign(context coreSignature.Context, message []byte) ([]byte, error) {
	data, err := coreSignature.PrepareSignerMessage(context, message)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(s.privateKey, data), nil
}

func (s *rawSigner) String() string {
	return "[redacted private key]"
}

func (s *rawSigner) Reset() {
	for i := range s.privateKey {
		s.privateKey[i] = 0
	}
}

// LoadSigner decodes a base64-encoded raw Ed25519 private key (seed || public key, 64 bytes)
// into a signer usable for submitting roflmarket transactions.
func LoadSigner(base64Key string) (sdkSignature.Signer, error) {
	data, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("scheduler: malformed signing key: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("scheduler: signing key must be %d bytes, got %d", ed25519.PrivateKeySize, len(data))
	}
	return sdkEd25519.WrapSigner(&rawSigner{privateKey: ed25519.PrivateKey(data)}), nil
}
