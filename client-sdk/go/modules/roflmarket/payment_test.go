package roflmarket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/internal/kvstore"
)

// paymentFixture opens a fresh in-memory store and a Tx wired to a Config with fakeAccounts,
// independent of Module, to unit-test Pay/Claim/ClaimRemaining/Refund in isolation.
type paymentFixture struct {
	t     *testing.T
	store *kvstore.Store
	cfg   Config
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	store, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &paymentFixture{t: t, store: store, cfg: DefaultConfig(fakeAccounts{}, fakeRofl{})}
}

func (pf *paymentFixture) tx(now uint64) Tx {
	return Tx{Tx: pf.store.Begin(context.Background()), Env: &Env{Now: now}, Config: &pf.cfg}
}

func (pf *paymentFixture) balance(addr types.Address) uint64 {
	return balanceOf(pf.t, pf.store, addr)
}

func nativeOffer(monthlyPrice uint64) *NativePayment {
	return &NativePayment{
		Denomination: types.NativeDenomination,
		Terms:        map[Term]types.Quantity{TermMonth: *quantityFromUint64(monthlyPrice)},
	}
}

func TestPayDebitsCallerAndExtendsPaidUntil(t *testing.T) {
	pf := newPaymentFixture(t)
	deployer := testAddr("deployer")
	fund(t, pf.store, deployer, 100_000)

	instance := &Instance{
		Provider:  testAddr("provider"),
		ID:        InstanceID{1},
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_000,
		PaidUntil: 1_000,
	}

	tx := pf.tx(1_000)
	tx.Env.CallerAddress = deployer
	require.NoError(t, Pay(tx, instance, TermMonth, 2))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(1_000+2*monthSeconds), instance.PaidUntil)
	require.Equal(t, uint64(20_000), pf.balance(escrowAddress(instance.Provider, instance.ID)))
	require.Equal(t, uint64(80_000), pf.balance(deployer))
}

func TestPayRejectsUnpricedTerm(t *testing.T) {
	pf := newPaymentFixture(t)
	instance := &Instance{
		Provider: testAddr("provider"),
		ID:       InstanceID{1},
		Payment:  Payment{Native: &NativePayment{Denomination: types.NativeDenomination, Terms: map[Term]types.Quantity{}}},
	}
	tx := pf.tx(0)
	require.ErrorIs(t, Pay(tx, instance, TermMonth, 1), ErrInvalidArgument)
	tx.Rollback()
}

func TestPayRejectsInsufficientBalance(t *testing.T) {
	pf := newPaymentFixture(t)
	deployer := testAddr("deployer")
	fund(t, pf.store, deployer, 100)

	instance := &Instance{Provider: testAddr("provider"), ID: InstanceID{1}, Payment: Payment{Native: nativeOffer(10_000)}}
	tx := pf.tx(0)
	tx.Env.CallerAddress = deployer
	require.ErrorIs(t, Pay(tx, instance, TermMonth, 1), ErrInsufficientBalance)
	tx.Rollback()
}

func TestClaimProratesLinearlyBetweenPaidFromAndPaidUntil(t *testing.T) {
	pf := newPaymentFixture(t)
	provider := &Provider{Address: testAddr("provider"), PaymentAddress: PaymentAddress{Native: addrPtr(testAddr("payee"))}}
	instance := &Instance{
		Provider:  provider.Address,
		ID:        InstanceID{1},
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_741_778_021,
		PaidUntil: 1_741_778_021 + monthSeconds,
	}
	escrow := escrowAddress(instance.Provider, instance.ID)
	fund(t, pf.store, escrow, 10_000)

	tx := pf.tx(instance.PaidFrom + 86_400)
	require.NoError(t, Claim(tx, provider, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(333), pf.balance(*provider.PaymentAddress.Native))
	require.Equal(t, uint64(9_667), pf.balance(escrow))
	require.Equal(t, uint64(1_741_778_021+86_400), instance.PaidFrom)
}

func TestClaimPastPaidUntilTakesEverythingAndClampsPaidFrom(t *testing.T) {
	pf := newPaymentFixture(t)
	provider := &Provider{Address: testAddr("provider"), PaymentAddress: PaymentAddress{Native: addrPtr(testAddr("payee"))}}
	instance := &Instance{
		Provider:  provider.Address,
		ID:        InstanceID{1},
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_000,
		PaidUntil: 1_000 + monthSeconds,
	}
	escrow := escrowAddress(instance.Provider, instance.ID)
	fund(t, pf.store, escrow, 10_000)

	tx := pf.tx(instance.PaidUntil + 1_000_000) // well past paid_until
	require.NoError(t, Claim(tx, provider, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(10_000), pf.balance(*provider.PaymentAddress.Native))
	require.Equal(t, uint64(0), pf.balance(escrow))
	require.Equal(t, instance.PaidUntil, instance.PaidFrom)
}

func TestClaimOnZeroBalanceAdvancesPaidFromWithoutTransfer(t *testing.T) {
	pf := newPaymentFixture(t)
	provider := &Provider{Address: testAddr("provider"), PaymentAddress: PaymentAddress{Native: addrPtr(testAddr("payee"))}}
	instance := &Instance{
		Provider:  provider.Address,
		ID:        InstanceID{1},
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_000,
		PaidUntil: 1_000 + monthSeconds,
	}

	tx := pf.tx(1_000 + 86_400)
	require.NoError(t, Claim(tx, provider, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(0), pf.balance(*provider.PaymentAddress.Native))
	require.Equal(t, uint64(1_000+86_400), instance.PaidFrom)
}

// TestClaimRemainingIgnoresElapsedTime is the regression case behind spec scenario 1's second
// half: cancelling in the same instant as a just-completed claim must still hand over the full
// remaining escrow, not the (now zero-elapsed) prorated sliver Claim would compute.
func TestClaimRemainingIgnoresElapsedTime(t *testing.T) {
	pf := newPaymentFixture(t)
	provider := &Provider{Address: testAddr("provider"), PaymentAddress: PaymentAddress{Native: addrPtr(testAddr("payee"))}}
	instance := &Instance{
		Provider:  provider.Address,
		ID:        InstanceID{1},
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_741_778_021 + 86_400, // a claim has just run at this instant
		PaidUntil: 1_741_778_021 + monthSeconds,
	}
	escrow := escrowAddress(instance.Provider, instance.ID)
	fund(t, pf.store, escrow, 9_667)

	tx := pf.tx(instance.PaidFrom) // cancel at the exact same timestamp as the prior claim
	require.NoError(t, ClaimRemaining(tx, provider, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(9_667), pf.balance(*provider.PaymentAddress.Native))
	require.Equal(t, uint64(0), pf.balance(escrow))
	require.Equal(t, instance.PaidUntil, instance.PaidFrom)
}

func TestRefundReturnsFullBalanceToRefundAddress(t *testing.T) {
	pf := newPaymentFixture(t)
	deployer := testAddr("deployer")
	refundData, err := deployer.MarshalBinary()
	require.NoError(t, err)

	instance := &Instance{
		Provider:   testAddr("provider"),
		ID:         InstanceID{1},
		Payment:    Payment{Native: nativeOffer(10_000)},
		PaidFrom:   1_000,
		PaidUntil:  1_000 + monthSeconds,
		RefundData: refundData,
	}
	escrow := escrowAddress(instance.Provider, instance.ID)
	fund(t, pf.store, escrow, 10_000)

	tx := pf.tx(1_100)
	require.NoError(t, Refund(tx, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(10_000), pf.balance(deployer))
	require.Equal(t, uint64(0), pf.balance(escrow))
	require.Equal(t, instance.PaidUntil, instance.PaidFrom)
}

func TestRefundFallsBackToCreatorWithoutRefundData(t *testing.T) {
	pf := newPaymentFixture(t)
	creator := testAddr("creator")
	instance := &Instance{
		Provider:  testAddr("provider"),
		ID:        InstanceID{1},
		Creator:   creator,
		Payment:   Payment{Native: nativeOffer(10_000)},
		PaidFrom:  1_000,
		PaidUntil: 1_000 + monthSeconds,
	}
	escrow := escrowAddress(instance.Provider, instance.ID)
	fund(t, pf.store, escrow, 5_000)

	tx := pf.tx(1_100)
	require.NoError(t, Refund(tx, instance))
	require.NoError(t, tx.Commit())

	require.Equal(t, uint64(5_000), pf.balance(creator))
}

func TestPaymentMethodsRejectEvmContractPayment(t *testing.T) {
	pf := newPaymentFixture(t)
	instance := &Instance{
		Provider: testAddr("provider"),
		ID:       InstanceID{1},
		Payment:  Payment{EvmContract: &EvmContractPayment{Address: [20]byte{1}}},
	}
	provider := &Provider{Address: instance.Provider}

	tx := pf.tx(0)
	require.ErrorIs(t, Pay(tx, instance, TermMonth, 1), ErrInvalidArgument)
	require.ErrorIs(t, Claim(tx, provider, instance), ErrInvalidArgument)
	require.ErrorIs(t, ClaimRemaining(tx, provider, instance), ErrInvalidArgument)
	require.ErrorIs(t, Refund(tx, instance), ErrInvalidArgument)
	tx.Rollback()
}

func addrPtr(a types.Address) *types.Address {
	return &a
}
