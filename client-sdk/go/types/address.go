package types

import (
	"encoding"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/address"
	"github.com/oasisprotocol/oasis-core/go/common/encoding/bech32"
	staking "github.com/oasisprotocol/oasis-core/go/staking/api"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature/ed25519"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature/secp256k1"
)

var (
	// AddressV0Ed25519Context is the unique context for v0 Ed25519-based addresses.
	// It is shared with the consensus layer addresses on purpose.
	AddressV0Ed25519Context = staking.AddressV0Context
	// AddressV0Secp256k1EthContext is the unique context for v0 Secp256k1-based addresses,
	// which are derived from the key's Ethereum address.
	AddressV0Secp256k1EthContext = address.NewContext("oasis-runtime-sdk/address: secp256k1eth", 0)
	// AddressV0ModuleContext is the unique context for v0 module-derived addresses, used to
	// derive addresses owned by a module rather than by a key pair (e.g. stake pools, escrow
	// accounts for a specific instance).
	AddressV0ModuleContext = address.NewContext("oasis-runtime-sdk/address: module", 0)
	// AddressV0MultisigContext is the unique context for v0 multisig-based addresses.
	AddressV0MultisigContext = address.NewContext("oasis-runtime-sdk/address: multisig", 0)
	// AddressBech32HRP is the unique human readable part of Bech32 encoded
	// staking account addresses.
	AddressBech32HRP = staking.AddressBech32HRP

	_ encoding.BinaryMarshaler   = Address{}
	_ encoding.BinaryUnmarshaler = (*Address)(nil)
	_ encoding.TextMarshaler     = Address{}
	_ encoding.TextUnmarshaler   = (*Address)(nil)

	reservedAddresses sync.Map
)

// Address is the account address.
type Address address.Address

// MarshalBinary encodes an address into binary form.
func (a Address) MarshalBinary() ([]byte, error) {
	return (address.Address)(a).MarshalBinary()
}

// UnmarshalBinary decodes a binary marshaled address.
func (a *Address) UnmarshalBinary(data []byte) error {
	return (*address.Address)(a).UnmarshalBinary(data)
}

// MarshalText encodes an address into text form.
func (a Address) MarshalText() ([]byte, error) {
	return (address.Address)(a).MarshalBech32(AddressBech32HRP)
}

// UnmarshalText decodes a text marshaled address.
func (a *Address) UnmarshalText(text []byte) error {
	return (*address.Address)(a).UnmarshalBech32(AddressBech32HRP, text)
}

// Equal compares vs another address for equality.
func (a Address) Equal(cmp Address) bool {
	return (address.Address)(a).Equal((address.Address)(cmp))
}

// String returns the string representation of an address.
func (a Address) String() string {
	bech32Addr, err := bech32.Encode(AddressBech32HRP.String(), a[:])
	if err != nil {
		return "[malformed]"
	}
	return bech32Addr
}

// NewAddress creates a new address from the given public key.
func NewAddress(pk signature.PublicKey) (a Address) {
	var (
		ctx    address.Context
		pkData []byte
	)
	switch pk := pk.(type) {
	case SignatureAddressSpec:
		return NewAddress(pk.PublicKey())
	case ed25519.PublicKey:
		ctx = AddressV0Ed25519Context
		pkData, _ = pk.MarshalBinary()
	case secp256k1.PublicKey:
		ctx = AddressV0Secp256k1EthContext
		// The Ethereum address: the last 20 bytes of Keccak-256 over the untagged uncompressed key.
		untaggedPk, _ := pk.MarshalBinaryUncompressedUntagged()
		h := sha3.NewLegacyKeccak256()
		h.Write(untaggedPk)
		pkData = h.Sum(nil)[32-20:]
	default:
		panic("address: unsupported public key type")
	}
	return (Address)(address.NewAddress(ctx, pkData))
}

// NewAddressFromConsensus converts a consensus layer address into an address.
func NewAddressFromConsensus(addr staking.Address) Address {
	return (Address)(addr)
}

// NewAddressRaw creates a new address from the given context and already prepared data.
func NewAddressRaw(ctx address.Context, data []byte) Address {
	return (Address)(address.NewAddress(ctx, data))
}

// NewAddressForModule creates a new address for a specific module and a kind-specific
// discriminator within that module (e.g. a stake pool or a per-entity escrow account).
// The resulting address is not associated with any private key.
func NewAddressForModule(module string, kind []byte) (a Address) {
	data := append([]byte(module+"."), kind...)
	return (Address)(address.NewAddress(AddressV0ModuleContext, data))
}

// SignatureAddressSpec is information for signature-based authentication and public
// key-based address derivation: exactly one of its variants should be set.
type SignatureAddressSpec struct {
	// Ed25519 is the Ed25519 public key for this authentication/address derivation.
	Ed25519 *ed25519.PublicKey `json:"ed25519,omitempty"`
	// Secp256k1Eth is the Secp256k1 public key for this authentication/address derivation,
	// using the Ethereum-compatible address derivation.
	Secp256k1Eth *secp256k1.PublicKey `json:"secp256k1eth,omitempty"`
}

// NewSignatureAddressSpecEd25519 creates a new Ed25519 signature address specification.
func NewSignatureAddressSpecEd25519(pk ed25519.PublicKey) SignatureAddressSpec {
	return SignatureAddressSpec{Ed25519: &pk}
}

// NewSignatureAddressSpecSecp256k1Eth creates a new Secp256k1-over-Ethereum signature address
// specification.
func NewSignatureAddressSpecSecp256k1Eth(pk secp256k1.PublicKey) SignatureAddressSpec {
	return SignatureAddressSpec{Secp256k1Eth: &pk}
}

// PublicKey returns the concrete public key of whichever variant is set.
func (as SignatureAddressSpec) PublicKey() signature.PublicKey {
	switch {
	case as.Ed25519 != nil:
		return *as.Ed25519
	case as.Secp256k1Eth != nil:
		return *as.Secp256k1Eth
	default:
		panic("address: malformed signature address specification")
	}
}

// String returns a string representation of the underlying public key, satisfying
// signature.PublicKey so a SignatureAddressSpec can be passed directly to NewAddress.
func (as SignatureAddressSpec) String() string {
	return as.PublicKey().String()
}

// Equal compares the underlying public key vs another public key for equality.
func (as SignatureAddressSpec) Equal(other signature.PublicKey) bool {
	return as.PublicKey().Equal(other)
}

// Verify checks a signature against the underlying public key.
func (as SignatureAddressSpec) Verify(context, message, sig []byte) bool {
	return as.PublicKey().Verify(context, message, sig)
}

// NewAddressFromMultisig creates a new address from the given multisig configuration.
func NewAddressFromMultisig(config *MultisigConfig) (a Address) {
	return (Address)(address.NewAddress(AddressV0MultisigContext, cbor.Marshal(config)))
}

// NewAddressFromBech32 creates a new address from the given bech-32 encoded string.
//
// Panics in case of errors -- use UnmarshalText if you want to handle errors.
func NewAddressFromBech32(data string) (a Address) {
	err := a.UnmarshalText([]byte(data))
	if err != nil {
		panic(err)
	}
	return
}
