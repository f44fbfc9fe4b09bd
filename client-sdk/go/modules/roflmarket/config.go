package roflmarket

import (
	"math/big"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
)

// Accounts is the subset of the generic accounts module the marketplace module relies on for
// moving funds. It is treated as an external collaborator: this repository does not redesign
// fee accumulation or balance bookkeeping, it only defines the contract it needs.
type Accounts interface {
	// Transfer moves amount from one account to another, failing with ErrInsufficientBalance
	// if the source account does not hold enough funds.
	Transfer(tx Tx, from, to types.Address, amount *types.BaseUnits) error

	// Balance returns an account's balance in the given denomination.
	Balance(tx Tx, address types.Address, denomination types.Denomination) types.Quantity
}

// Rofl is the subset of the generic ROFL app-registration module the marketplace module
// relies on to resolve a scheduler app's currently endorsing node. Treated as an external
// collaborator for the same reason as Accounts above.
type Rofl interface {
	// GetOriginRegistration returns the active registration endorsing the given app, if any.
	GetOriginRegistration(tx Tx, app rofl.AppID) (*rofl.Registration, bool)
}

// Config bounds the deterministic costs and limits of the marketplace module, mirroring the
// Cfg: Config trait bound of the original implementation. A concrete deployment supplies one
// fixed Config value; the tests in this package use DefaultConfig with fake collaborators.
type Config struct {
	Accounts Accounts
	Rofl     Rofl

	StakeProviderCreate types.BaseUnits

	MaxProviderOffers        uint64
	MaxMetadataPairs         int
	MaxMetadataKeySize       int
	MaxMetadataValueSize     int
	MaxInstanceCommandSize   int
	MaxQueuedInstanceCmds    uint64
	MaxInstanceAcceptSeconds uint64

	GasCostCallProviderCreate          uint64
	GasCostCallProviderUpdate          uint64
	GasCostCallProviderUpdateOffersAdd uint64
	GasCostCallProviderUpdateOffersRm  uint64
	GasCostCallProviderUpdateOffersBas uint64
	GasCostCallProviderRemove          uint64
	GasCostCallInstanceCreate          uint64
	GasCostCallInstanceTopUp           uint64
	GasCostCallInstanceAcceptBase      uint64
	GasCostCallInstanceAcceptInstance  uint64
	GasCostCallInstanceUpdateBase      uint64
	GasCostCallInstanceUpdateInst      uint64
	GasCostCallInstanceCancel          uint64
	GasCostCallInstanceRemove          uint64
	GasCostCallInstanceExecCmdsBase    uint64
	GasCostCallInstanceExecCmdsCmd     uint64
	GasCostCallInstanceClaimBase       uint64
	GasCostCallInstanceClaimInst       uint64
}

// DefaultConfig returns gas costs and limits representative of a production deployment. They
// are deliberately round numbers; a live deployment would tune these via the module's
// Parameters the same way it tunes Parameters{} today (currently empty, see types.go).
func DefaultConfig(accounts Accounts, rofl Rofl) Config {
	return Config{
		Accounts: accounts,
		Rofl:     rofl,

		StakeProviderCreate: types.NewBaseUnits(mustQuantity(1_000_000_000), types.NativeDenomination),

		MaxProviderOffers:        32,
		MaxMetadataPairs:         16,
		MaxMetadataKeySize:       64,
		MaxMetadataValueSize:     256,
		MaxInstanceCommandSize:   4096,
		MaxQueuedInstanceCmds:    32,
		MaxInstanceAcceptSeconds: 300,

		GasCostCallProviderCreate:          100_000,
		GasCostCallProviderUpdate:          10_000,
		GasCostCallProviderUpdateOffersAdd: 5_000,
		GasCostCallProviderUpdateOffersRm:  2_000,
		GasCostCallProviderUpdateOffersBas: 5_000,
		GasCostCallProviderRemove:          10_000,
		GasCostCallInstanceCreate:          50_000,
		GasCostCallInstanceTopUp:           10_000,
		GasCostCallInstanceAcceptBase:      5_000,
		GasCostCallInstanceAcceptInstance:  2_000,
		GasCostCallInstanceUpdateBase:      5_000,
		GasCostCallInstanceUpdateInst:      2_000,
		GasCostCallInstanceCancel:          10_000,
		GasCostCallInstanceRemove:          10_000,
		GasCostCallInstanceExecCmdsBase:    2_000,
		GasCostCallInstanceExecCmdsCmd:     500,
		GasCostCallInstanceClaimBase:       5_000,
		GasCostCallInstanceClaimInst:       1_000,
	}
}

func mustQuantity(v uint64) types.Quantity {
	var q types.Quantity
	if err := q.FromBigInt(new(big.Int).SetUint64(v)); err != nil {
		panic(err)
	}
	return q
}
