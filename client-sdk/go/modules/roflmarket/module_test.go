package roflmarket

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/internal/kvstore"
)

func monthlyOffer(capacity uint64) Offer {
	return Offer{
		Resources: Resources{TEE: TeeTypeTDX, Memory: 512, CPUCount: 1},
		Payment: Payment{
			Native: &NativePayment{
				Denomination: types.NativeDenomination,
				Terms:        map[Term]types.Quantity{TermMonth: *quantityFromUint64(10_000)},
			},
		},
		Capacity: capacity,
	}
}

// marketplace bundles everything a scenario needs: a module bound to a fresh in-memory store,
// one registered provider with a single priced offer, and the scheduler identity endorsed to
// act on the provider's behalf.
type marketplace struct {
	t        *testing.T
	store    *kvstore.Store
	module   *Module
	provider types.Address
	payee    types.Address
	deployer types.Address
	node     signature.PublicKey
	appID    rofl.AppID
}

func newMarketplace(t *testing.T, offerCapacity uint64) *marketplace {
	t.Helper()

	store, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	node := testNode(0x01)
	appID := testAppID("scheduler")
	module, _ := newTestModule(fakeRofl{app: appID, node: node})

	provider := testAddr("provider")
	payee := testAddr("provider-payee")
	deployer := testAddr("deployer")

	fund(t, store, provider, 10_000_000_000)
	fund(t, store, deployer, 1_000_000)

	env := &Env{Now: 1_741_778_021, CallerAddress: provider}
	body := &ProviderCreate{
		Nodes:          []signature.PublicKey{node},
		SchedulerApp:   appID,
		PaymentAddress: PaymentAddress{Native: &payee},
		Offers:         []Offer{monthlyOffer(offerCapacity)},
	}
	require.NoError(t, runTx(t, module, store, env, func(tx Tx) error {
		return module.ProviderCreate(tx, body)
	}))

	return &marketplace{
		t: t, store: store, module: module,
		provider: provider, payee: payee, deployer: deployer,
		node: node, appID: appID,
	}
}

func (mk *marketplace) balance(addr types.Address) uint64 {
	return balanceOf(mk.t, mk.store, addr)
}

func (mk *marketplace) providerInstancesCount() uint64 {
	mk.t.Helper()
	tx := mk.store.View(nil)
	defer tx.Rollback()
	p, ok := GetProvider(Tx{Tx: tx}, mk.provider)
	require.True(mk.t, ok)
	return p.InstancesCount
}

func (mk *marketplace) createInstance(now uint64, admin *types.Address, termCount uint64) (InstanceID, error) {
	mk.t.Helper()
	var id InstanceID
	err := runTx(mk.t, mk.module, mk.store, &Env{Now: now, CallerAddress: mk.deployer}, func(tx Tx) error {
		var err error
		id, err = mk.module.InstanceCreate(tx, &InstanceCreate{
			Provider:  mk.provider,
			Offer:     OfferIDFromUint64(0),
			Admin:     admin,
			Term:      TermMonth,
			TermCount: termCount,
		})
		return err
	})
	return id, err
}

func (mk *marketplace) accept(now uint64, ids ...InstanceID) error {
	mk.t.Helper()
	return runTx(mk.t, mk.module, mk.store, &Env{Now: now, CallerAddress: mk.provider}, func(tx Tx) error {
		return mk.module.InstanceAccept(tx, &InstanceAccept{Provider: mk.provider, IDs: ids})
	})
}

func (mk *marketplace) claim(now uint64, ids ...InstanceID) error {
	mk.t.Helper()
	return runTx(mk.t, mk.module, mk.store, &Env{Now: now, CallerAddress: mk.provider}, func(tx Tx) error {
		return mk.module.InstanceClaimPayment(tx, &InstanceClaimPayment{Provider: mk.provider, Instances: ids})
	})
}

func (mk *marketplace) cancel(now uint64, caller types.Address, id InstanceID) error {
	mk.t.Helper()
	return runTx(mk.t, mk.module, mk.store, &Env{Now: now, CallerAddress: caller}, func(tx Tx) error {
		return mk.module.InstanceCancel(tx, &InstanceCancel{Provider: mk.provider, ID: id})
	})
}

func (mk *marketplace) instance(id InstanceID) *Instance {
	mk.t.Helper()
	tx := mk.store.View(nil)
	defer tx.Rollback()
	i, ok := GetInstance(Tx{Tx: tx}, mk.provider, id)
	require.True(mk.t, ok)
	return i
}

// --- Scenario 1: create, accept, top-up, claim, cancel -------------------------------------

func TestScenarioCreateAcceptClaimCancel(t *testing.T) {
	mk := newMarketplace(t, 1)
	const t0 = 1_741_778_021

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), mk.balance(escrowAddress(mk.provider, id)))
	require.Equal(t, uint64(990_000), mk.balance(mk.deployer))

	require.NoError(t, mk.accept(t0, id))
	require.Equal(t, InstanceStatusAccepted, mk.instance(id).Status)

	const t1 = t0 + 86_400
	require.NoError(t, mk.claim(t1, id))
	require.Equal(t, uint64(333), mk.balance(mk.payee))
	require.Equal(t, uint64(9_667), mk.balance(escrowAddress(mk.provider, id)))
	require.Equal(t, uint64(t1), mk.instance(id).PaidFrom)

	require.NoError(t, mk.cancel(t1, mk.deployer, id))
	require.Equal(t, uint64(333+9_667), mk.balance(mk.payee))
	require.Equal(t, uint64(0), mk.balance(escrowAddress(mk.provider, id)))
	inst := mk.instance(id)
	require.Equal(t, InstanceStatusCancelled, inst.Status)
	require.Equal(t, inst.PaidUntil, inst.PaidFrom)
}

// --- Scenario 2: cancel after the acceptance window lapses refunds fully -------------------

func TestScenarioCancelAfterAcceptanceWindowRefunds(t *testing.T) {
	mk := newMarketplace(t, 1)
	const t0 = 1_741_778_021

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), mk.providerInstancesCount())

	const t1 = t0 + 301 // window is 300s
	require.NoError(t, mk.cancel(t1, mk.deployer, id))

	require.Equal(t, uint64(1_000_000), mk.balance(mk.deployer), "full 10_000 escrow must return to the deployer")
	require.Equal(t, uint64(0), mk.balance(escrowAddress(mk.provider, id)))
	require.Equal(t, uint64(0), mk.providerInstancesCount())

	tx := mk.store.View(nil)
	defer tx.Rollback()
	_, ok := GetInstance(Tx{Tx: tx}, mk.provider, id)
	require.False(t, ok, "instance must be deleted")
}

// --- Scenario 3: unauthorized accept is rejected -------------------------------------------

func TestScenarioUnauthorizedAcceptIsForbidden(t *testing.T) {
	mk := newMarketplace(t, 1)
	const t0 = 1_741_778_021

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)

	// Re-register the fakeRofl collaborator so the endorsed node is not among the provider's
	// authorized nodes.
	mk.module, _ = newTestModule(fakeRofl{app: mk.appID, node: testNode(0xEE)})

	err = mk.accept(t0, id)
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, InstanceStatusCreated, mk.instance(id).Status)
}

// --- Scenario 4: capacity overflow is rejected ----------------------------------------------

func TestScenarioOutOfCapacity(t *testing.T) {
	mk := newMarketplace(t, 0)
	_, err := mk.createInstance(1_741_778_021, nil, 1)
	require.ErrorIs(t, err, ErrOutOfCapacity)
}

// --- Scenario 5: queue cap rejects the 33rd command -----------------------------------------

func TestScenarioQueueCap(t *testing.T) {
	mk := newMarketplace(t, 1)
	const t0 = 1_741_778_021

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.NoError(t, mk.accept(t0, id))

	enqueue := func(n int) error {
		cmds := make([][]byte, n)
		for i := range cmds {
			cmds[i] = []byte{byte(i)}
		}
		return runTx(t, mk.module, mk.store, &Env{Now: t0, CallerAddress: mk.deployer}, func(tx Tx) error {
			return mk.module.InstanceExecuteCmds(tx, &InstanceExecuteCmds{Provider: mk.provider, ID: id, Cmds: cmds})
		})
	}

	require.NoError(t, enqueue(32))
	require.Equal(t, uint64(32), mk.instance(id).CmdCount)

	err = enqueue(1)
	require.ErrorIs(t, err, ErrTooManyQueuedCmds)
	require.Equal(t, uint64(32), mk.instance(id).CmdCount, "the rejected batch must not partially apply")
}

// --- Invariants ------------------------------------------------------------------------------

func TestInvariantOfferAndInstanceCountsTrackStorage(t *testing.T) {
	mk := newMarketplace(t, 5)
	const t0 = 1_741_778_021

	id1, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	_, err = mk.createInstance(t0, nil, 1)
	require.NoError(t, err)

	tx := mk.store.View(nil)
	offerCount := CountOffers(Tx{Tx: tx}, mk.provider)
	instanceCount := CountInstances(Tx{Tx: tx}, mk.provider)
	tx.Rollback()

	p, ok := func() (*Provider, bool) {
		tx := mk.store.View(nil)
		defer tx.Rollback()
		return GetProvider(Tx{Tx: tx}, mk.provider)
	}()
	require.True(t, ok)
	require.Equal(t, offerCount, p.OffersCount)
	require.Equal(t, instanceCount, p.InstancesCount)

	require.NoError(t, mk.accept(t0, id1))
	require.NoError(t, runTx(t, mk.module, mk.store, &Env{Now: t0, CallerAddress: mk.provider}, func(tx Tx) error {
		return mk.module.InstanceRemove(tx, &InstanceRemove{Provider: mk.provider, ID: id1})
	}))

	tx = mk.store.View(nil)
	instanceCount = CountInstances(Tx{Tx: tx}, mk.provider)
	tx.Rollback()
	p, _ = func() (*Provider, bool) {
		tx := mk.store.View(nil)
		defer tx.Rollback()
		return GetProvider(Tx{Tx: tx}, mk.provider)
	}()
	require.Equal(t, instanceCount, p.InstancesCount)
}

func TestInvariantPaidFromNeverExceedsPaidUntil(t *testing.T) {
	mk := newMarketplace(t, 1)
	const t0 = 1_741_778_021

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.NoError(t, mk.accept(t0, id))

	inst := mk.instance(id)
	require.LessOrEqual(t, inst.PaidFrom, inst.PaidUntil)

	// Claim well past paid_until: the formula must clamp, never overshoot.
	require.NoError(t, mk.claim(inst.PaidUntil+1_000_000, id))
	inst = mk.instance(id)
	require.Equal(t, inst.PaidUntil, inst.PaidFrom)
	require.LessOrEqual(t, inst.PaidFrom, inst.PaidUntil)
}

func TestInvariantIdentifiersNeverReuseAcrossRemovals(t *testing.T) {
	mk := newMarketplace(t, 5)
	const t0 = 1_741_778_021

	id1, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.NoError(t, mk.accept(t0, id1))
	require.NoError(t, runTx(t, mk.module, mk.store, &Env{Now: t0, CallerAddress: mk.provider}, func(tx Tx) error {
		return mk.module.InstanceRemove(tx, &InstanceRemove{Provider: mk.provider, ID: id1})
	}))

	id2, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestInvariantCBORRoundTripIsIdentity(t *testing.T) {
	mk := newMarketplace(t, 1)
	id, err := mk.createInstance(1_741_778_021, nil, 1)
	require.NoError(t, err)

	original := mk.instance(id)
	raw := cbor.Marshal(original)
	var roundTripped Instance
	cbor.MustUnmarshal(raw, &roundTripped)
	require.Equal(t, *original, roundTripped)
}

func TestInvariantOfferCapacityRoundTripsOnAcceptThenRemove(t *testing.T) {
	mk := newMarketplace(t, 3)
	const t0 = 1_741_778_021

	offerBefore := func() *Offer {
		tx := mk.store.View(nil)
		defer tx.Rollback()
		o, _ := GetOffer(Tx{Tx: tx}, mk.provider, OfferIDFromUint64(0))
		return o
	}()
	require.EqualValues(t, 3, offerBefore.Capacity)

	id, err := mk.createInstance(t0, nil, 1)
	require.NoError(t, err)
	require.NoError(t, mk.accept(t0, id))

	offerAfterAccept := func() *Offer {
		tx := mk.store.View(nil)
		defer tx.Rollback()
		o, _ := GetOffer(Tx{Tx: tx}, mk.provider, OfferIDFromUint64(0))
		return o
	}()
	require.EqualValues(t, 2, offerAfterAccept.Capacity)

	require.NoError(t, runTx(t, mk.module, mk.store, &Env{Now: t0, CallerAddress: mk.provider}, func(tx Tx) error {
		return mk.module.InstanceRemove(tx, &InstanceRemove{Provider: mk.provider, ID: id})
	}))

	offerAfterRemove := func() *Offer {
		tx := mk.store.View(nil)
		defer tx.Rollback()
		o, _ := GetOffer(Tx{Tx: tx}, mk.provider, OfferIDFromUint64(0))
		return o
	}()
	require.EqualValues(t, 3, offerAfterRemove.Capacity)
}
