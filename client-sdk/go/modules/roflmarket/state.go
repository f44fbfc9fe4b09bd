package roflmarket

import (
	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
)

// Key layout (§4.1, §6): providers under 'P'; offers under 'O'‖provider‖offer_id; instances
// under 'I'‖provider‖instance_id; commands under 'Q'‖provider‖instance_id‖command_id. Values
// are canonical CBOR, making the store oblivious to entity semantics beyond byte comparison.
const (
	prefixProvider = 'P'
	prefixOffer    = 'O'
	prefixInstance = 'I'
	prefixCommand  = 'Q'
)

func addrBytes(a types.Address) []byte {
	b, _ := a.MarshalBinary()
	return b
}

func providerKey(provider types.Address) []byte {
	return append([]byte{prefixProvider}, addrBytes(provider)...)
}

func offerPrefix(provider types.Address) []byte {
	return append([]byte{prefixOffer}, addrBytes(provider)...)
}

func offerKey(provider types.Address, id OfferID) []byte {
	return append(offerPrefix(provider), id[:]...)
}

func instancePrefix(provider types.Address) []byte {
	return append([]byte{prefixInstance}, addrBytes(provider)...)
}

func instanceKey(provider types.Address, id InstanceID) []byte {
	return append(instancePrefix(provider), id[:]...)
}

func commandPrefix(provider types.Address, instance InstanceID) []byte {
	return append(append([]byte{prefixCommand}, addrBytes(provider)...), instance[:]...)
}

func commandKey(provider types.Address, instance InstanceID, cmd CommandID) []byte {
	return append(commandPrefix(provider, instance), cmd[:]...)
}

// GetProvider fetches a provider descriptor, if present.
func GetProvider(tx Tx, address types.Address) (*Provider, bool) {
	raw, err := tx.Get(providerKey(address))
	if err != nil {
		return nil, false
	}
	var p Provider
	cbor.MustUnmarshal(raw, &p)
	return &p, true
}

// SetProvider stores a provider descriptor.
func SetProvider(tx Tx, p *Provider) {
	must(tx.Set(providerKey(p.Address), cbor.Marshal(p)))
}

// RemoveProvider deletes a provider descriptor.
func RemoveProvider(tx Tx, address types.Address) {
	must(tx.Delete(providerKey(address)))
}

// GetProviders returns all stored provider descriptors in ascending address order.
func GetProviders(tx Tx) []*Provider {
	var out []*Provider
	_ = tx.Iterate([]byte{prefixProvider}, func(_, value []byte) (bool, error) {
		var p Provider
		cbor.MustUnmarshal(value, &p)
		out = append(out, &p)
		return true, nil
	})
	return out
}

// GetOffer fetches an offer descriptor, if present.
func GetOffer(tx Tx, provider types.Address, id OfferID) (*Offer, bool) {
	raw, err := tx.Get(offerKey(provider, id))
	if err != nil {
		return nil, false
	}
	var o Offer
	cbor.MustUnmarshal(raw, &o)
	return &o, true
}

// SetOffer stores an offer descriptor.
func SetOffer(tx Tx, provider types.Address, o *Offer) {
	must(tx.Set(offerKey(provider, o.ID), cbor.Marshal(o)))
}

// RemoveOffer deletes an offer descriptor.
func RemoveOffer(tx Tx, provider types.Address, id OfferID) {
	must(tx.Delete(offerKey(provider, id)))
}

// GetOffers returns all offers belonging to a provider in ascending id order.
func GetOffers(tx Tx, provider types.Address) []*Offer {
	var out []*Offer
	_ = tx.Iterate(offerPrefix(provider), func(_, value []byte) (bool, error) {
		var o Offer
		cbor.MustUnmarshal(value, &o)
		out = append(out, &o)
		return true, nil
	})
	return out
}

// CountOffers returns the number of offers stored under a provider.
func CountOffers(tx Tx, provider types.Address) uint64 {
	n, _ := tx.Count(offerPrefix(provider))
	return n
}

// GetInstance fetches an instance descriptor, if present.
func GetInstance(tx Tx, provider types.Address, id InstanceID) (*Instance, bool) {
	raw, err := tx.Get(instanceKey(provider, id))
	if err != nil {
		return nil, false
	}
	var i Instance
	cbor.MustUnmarshal(raw, &i)
	return &i, true
}

// SetInstance stores an instance descriptor.
func SetInstance(tx Tx, i *Instance) {
	must(tx.Set(instanceKey(i.Provider, i.ID), cbor.Marshal(i)))
}

// RemoveInstance deletes an instance descriptor.
func RemoveInstance(tx Tx, provider types.Address, id InstanceID) {
	must(tx.Delete(instanceKey(provider, id)))
}

// GetInstances returns all instances belonging to a provider in ascending id order.
func GetInstances(tx Tx, provider types.Address) []*Instance {
	var out []*Instance
	_ = tx.Iterate(instancePrefix(provider), func(_, value []byte) (bool, error) {
		var i Instance
		cbor.MustUnmarshal(value, &i)
		out = append(out, &i)
		return true, nil
	})
	return out
}

// CountInstances returns the number of instances (of any status) stored under a provider.
func CountInstances(tx Tx, provider types.Address) uint64 {
	n, _ := tx.Count(instancePrefix(provider))
	return n
}

// SetInstanceCommand enqueues a command.
func SetInstanceCommand(tx Tx, provider types.Address, instance InstanceID, qc *QueuedCommand) {
	must(tx.Set(commandKey(provider, instance, qc.ID), cbor.Marshal(qc)))
}

// RemoveInstanceCommand dequeues a command.
func RemoveInstanceCommand(tx Tx, provider types.Address, instance InstanceID, id CommandID) {
	must(tx.Delete(commandKey(provider, instance, id)))
}

// GetInstanceCommands returns all queued commands for an instance with id ≤ upTo, in ascending
// id order. Passing an all-0xff CommandID returns the entire queue.
func GetInstanceCommands(tx Tx, provider types.Address, instance InstanceID, upTo CommandID) []*QueuedCommand {
	var out []*QueuedCommand
	_ = tx.Iterate(commandPrefix(provider, instance), func(key, value []byte) (bool, error) {
		var qc QueuedCommand
		cbor.MustUnmarshal(value, &qc)
		if idLessOrEqual(qc.ID, upTo) {
			out = append(out, &qc)
		}
		return true, nil
	})
	return out
}

func idLessOrEqual(a, b CommandID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return true
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
