package roflmarket

import (
	"encoding/binary"
	"fmt"

	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
)

// Increment returns the current value of the offer ID counter and advances it by one. It is
// used to hand out sequential, never-reused identifiers.
func (id *OfferID) Increment() OfferID {
	cur := *id
	binary.BigEndian.PutUint64(id[:], binary.BigEndian.Uint64(id[:])+1)
	return cur
}

// Increment returns the current value of the instance ID counter and advances it by one.
func (id *InstanceID) Increment() InstanceID {
	cur := *id
	binary.BigEndian.PutUint64(id[:], binary.BigEndian.Uint64(id[:])+1)
	return cur
}

// Increment returns the current value of the command ID counter and advances it by one.
func (id *CommandID) Increment() CommandID {
	cur := *id
	binary.BigEndian.PutUint64(id[:], binary.BigEndian.Uint64(id[:])+1)
	return cur
}

// OfferIDFromUint64 returns the offer ID with the given sequential value, used for bulk
// assignment (e.g. assigning ids 0..n to the offers bundled in ProviderCreate).
func OfferIDFromUint64(v uint64) (id OfferID) {
	binary.BigEndian.PutUint64(id[:], v)
	return id
}

// Uint64 returns the numeric value of the offer ID.
func (id OfferID) Uint64() uint64 {
	return binary.BigEndian.Uint64(id[:])
}

// Validate checks an offer descriptor for well-formedness. It does not check capacity, which
// is intentionally left as a best-effort field.
func (o *Offer) Validate() error {
	switch o.Resources.TEE {
	case TeeTypeSGX, TeeTypeTDX:
	default:
		return fmt.Errorf("%w: invalid TEE type", ErrInvalidArgument)
	}
	if o.Resources.Memory == 0 || o.Resources.CPUCount == 0 {
		return fmt.Errorf("%w: missing resource requirements", ErrInvalidArgument)
	}
	if o.Payment.Native == nil && o.Payment.EvmContract == nil {
		return fmt.Errorf("%w: missing payment information", ErrInvalidArgument)
	}
	return nil
}

// InstanceAccept is the body of the roflmarket.InstanceAccept method.
type InstanceAccept struct {
	// Provider is the provider address.
	Provider types.Address `json:"provider"`
	// IDs are the instance identifiers to accept.
	IDs []InstanceID `json:"ids"`
	// Metadata is arbitrary metadata (key-value pairs) assigned by the provider's scheduler.
	Metadata map[string]string `json:"metadata"`
}

// InstanceUpdateItem is a single instance update within a roflmarket.InstanceUpdate call.
type InstanceUpdateItem struct {
	// ID is the target instance identifier.
	ID InstanceID `json:"id"`
	// NodeID optionally updates the node hosting the instance.
	NodeID *signature.PublicKey `json:"node_id,omitempty"`
	// Deployment optionally replaces the instance's deployment descriptor.
	Deployment *Deployment `json:"deployment,omitempty"`
	// Metadata optionally replaces the instance's metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
	// LastCompletedCmd optionally advances the command queue, removing all queued commands
	// with an id less than or equal to this value.
	LastCompletedCmd *CommandID `json:"last_completed_cmd,omitempty"`
}

// InstanceUpdate is the body of the roflmarket.InstanceUpdate method.
type InstanceUpdate struct {
	// Provider is the provider address.
	Provider types.Address `json:"provider"`
	// Updates are the per-instance updates to apply.
	Updates []InstanceUpdateItem `json:"updates"`
}

// InstanceRemove is the body of the roflmarket.InstanceRemove method.
type InstanceRemove struct {
	// Provider is the provider address.
	Provider types.Address `json:"provider"`
	// ID is the target instance identifier.
	ID InstanceID `json:"id"`
}

// InstanceClaimPayment is the body of the roflmarket.InstanceClaimPayment method.
type InstanceClaimPayment struct {
	// Provider is the provider address.
	Provider types.Address `json:"provider"`
	// Instances are the instance identifiers to claim payment for.
	Instances []InstanceID `json:"instances"`
}
