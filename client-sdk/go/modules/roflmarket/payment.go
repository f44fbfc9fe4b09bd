package roflmarket

import (
	"math/big"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
)

// Pay, Claim and Refund implement term-based prepayment, proration claims, and refunds for an
// instance's Native payment method. Dynamic dispatch over payment methods is modeled as a
// tagged variant (Payment, in types.go) rather than an interface with multiple runtime
// implementations plugged in, per the redesign note on dynamic dispatch: Native is the only
// variant with real on-chain accounting today. EvmContractPayment is accepted on the wire for
// parity with the bundled SDK types, but settling it would require calling out to the EVM
// module, which is out of scope here; Pay/Claim/Refund reject it with ErrInvalidArgument.

// escrowAddress derives the address holding an instance's prepaid funds. It is a pure function
// of (provider, instance id), so it never needs separate storage and can be recomputed by
// anyone who knows the instance's identity.
func escrowAddress(provider types.Address, id InstanceID) types.Address {
	return types.NewAddressForModule(ModuleName, append(append([]byte("escrow."), addrBytes(provider)...), id[:]...))
}

// Pay charges term×termCount against the caller's account into the instance's escrow address
// and extends paid_until accordingly. Terms the offer does not price are rejected.
func Pay(tx Tx, instance *Instance, term Term, termCount uint64) error {
	np := instance.Payment.Native
	if np == nil {
		return ErrInvalidArgument
	}
	unitPrice, ok := np.Terms[term]
	if !ok {
		return ErrInvalidArgument
	}
	total := unitPrice.Clone()
	if err := total.Mul(quantityFromUint64(termCount)); err != nil {
		return ErrInvalidArgument
	}

	if tx.Env.CheckOnly {
		return nil
	}

	amount := types.NewBaseUnits(total, np.Denomination)
	escrow := escrowAddress(instance.Provider, instance.ID)
	if err := tx.Config.Accounts.Transfer(tx, tx.Env.CallerAddress, escrow, &amount); err != nil {
		return ErrInsufficientBalance
	}

	instance.PaidUntil += termSeconds(term) * termCount
	return nil
}

// Claim prorates the escrow between paid_from and paid_until, transfers the claimable amount
// to the provider's payment address, and advances paid_from.
//
// The formula is claimable = escrow_balance × (now − paid_from) / (paid_until − paid_from),
// clamped to [0, escrow_balance]. When now ≥ paid_until (the instance's term has fully
// elapsed), the entire remaining balance is claimable and paid_from is set to paid_until —
// this is the deliberate resolution of the claim-formula Open Question: it keeps the
// conservation invariant (escrow + claimed == paid − refunded) exact in the boundary case.
func Claim(tx Tx, provider *Provider, instance *Instance) error {
	np := instance.Payment.Native
	if np == nil {
		return ErrInvalidArgument
	}
	if tx.Env.CheckOnly {
		return nil
	}

	now := tx.Env.Now
	escrow := escrowAddress(instance.Provider, instance.ID)
	balance := tx.Config.Accounts.Balance(tx, escrow, np.Denomination)
	if balance.IsZero() {
		instance.PaidFrom = minUint64(now, instance.PaidUntil)
		return nil
	}

	var claimable types.Quantity
	switch {
	case now >= instance.PaidUntil || instance.PaidUntil == instance.PaidFrom:
		claimable = balance.Clone()
	default:
		elapsed := new(big.Int).SetUint64(now - instance.PaidFrom)
		span := new(big.Int).SetUint64(instance.PaidUntil - instance.PaidFrom)
		num := new(big.Int).Mul(balance.ToBigInt(), elapsed)
		num.Quo(num, span)
		if err := claimable.FromBigInt(num); err != nil {
			return ErrInvalidArgument
		}
	}
	if claimable.Cmp(&balance) > 0 {
		claimable = balance.Clone()
	}

	if !claimable.IsZero() {
		amount := types.NewBaseUnits(claimable, np.Denomination)
		if err := tx.Config.Accounts.Transfer(tx, escrow, provider.PaymentAddress.toRoutingAddress(), &amount); err != nil {
			return ErrPaymentFailed
		}
	}
	instance.PaidFrom = minUint64(now, instance.PaidUntil)
	return nil
}

// ClaimRemaining transfers the entire remaining escrow balance to the provider's payment
// address and marks the instance as fully settled, regardless of how much of the current term
// has elapsed. It is used when an instance's relationship with a provider ends immediately —
// cancellation after acceptance, or removal once the term has already lapsed — as opposed to
// InstanceClaimPayment's periodic prorated draw via Claim. Using the prorated Claim formula
// here would instead return near-zero when cancellation follows a claim at the same timestamp,
// since elapsed time since the last paid_from would be zero.
func ClaimRemaining(tx Tx, provider *Provider, instance *Instance) error {
	np := instance.Payment.Native
	if np == nil {
		return ErrInvalidArgument
	}
	if tx.Env.CheckOnly {
		return nil
	}

	escrow := escrowAddress(instance.Provider, instance.ID)
	balance := tx.Config.Accounts.Balance(tx, escrow, np.Denomination)
	if !balance.IsZero() {
		amount := types.NewBaseUnits(balance, np.Denomination)
		if err := tx.Config.Accounts.Transfer(tx, escrow, provider.PaymentAddress.toRoutingAddress(), &amount); err != nil {
			return ErrPaymentFailed
		}
	}
	instance.PaidFrom = instance.PaidUntil
	return nil
}

// Refund transfers the entire remaining escrow balance to the address derived from the
// instance's refund-routing data and marks the instance as fully settled.
func Refund(tx Tx, instance *Instance) error {
	np := instance.Payment.Native
	if np == nil {
		return ErrInvalidArgument
	}
	if tx.Env.CheckOnly {
		return nil
	}

	escrow := escrowAddress(instance.Provider, instance.ID)
	balance := tx.Config.Accounts.Balance(tx, escrow, np.Denomination)
	if !balance.IsZero() {
		amount := types.NewBaseUnits(balance, np.Denomination)
		if err := tx.Config.Accounts.Transfer(tx, escrow, refundAddress(instance), &amount); err != nil {
			return ErrPaymentFailed
		}
	}
	instance.PaidFrom = instance.PaidUntil
	return nil
}

func refundAddress(instance *Instance) types.Address {
	// RefundData carries the canonical binary encoding of the deployer's address; this lets
	// refund routing be resolved without needing to know the current caller.
	var a types.Address
	if len(instance.RefundData) > 0 {
		if err := a.UnmarshalBinary(instance.RefundData); err == nil {
			return a
		}
	}
	return instance.Creator
}

func (pa PaymentAddress) toRoutingAddress() types.Address {
	if pa.Native != nil {
		return *pa.Native
	}
	// EVM-routed payment addresses are out of scope for on-chain settlement (see the package
	// doc comment above); route to a module-derived holding address so funds are at least
	// held somewhere addressable rather than silently dropped.
	eth := [20]byte{}
	if pa.Eth != nil {
		eth = *pa.Eth
	}
	return types.NewAddressForModule(ModuleName, append([]byte("evm-payee."), eth[:]...))
}

func termSeconds(t Term) uint64 {
	switch t {
	case TermHour:
		return 3600
	case TermMonth:
		return 30 * 86400
	case TermYear:
		return 365 * 86400
	default:
		return 0
	}
}

func quantityFromUint64(v uint64) *types.Quantity {
	var q types.Quantity
	must(q.FromBigInt(new(big.Int).SetUint64(v)))
	return &q
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
