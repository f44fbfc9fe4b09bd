package roflmarket

import (
	"context"
	"math/big"
	"testing"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"
	"github.com/oasisprotocol/oasis-core/go/common/quantity"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/internal/kvstore"
)

// monthSeconds mirrors termSeconds(TermMonth), kept independent so scenario math can be
// checked against a value that isn't derived from the code under test.
const monthSeconds = 30 * 86400

// fakeAccounts is a minimal stand-in for the generic accounts module, keeping balances in the
// same kvstore.Tx the marketplace module is operating on so transfers participate in the same
// atomic scope and roll back together with everything else.
type fakeAccounts struct{}

func balanceKey(address types.Address, denom types.Denomination) []byte {
	b, _ := address.MarshalBinary()
	return append(append([]byte("test-balance/"), b...), []byte(denom)...)
}

func (fakeAccounts) getBalance(tx Tx, address types.Address, denom types.Denomination) types.Quantity {
	raw, err := tx.Get(balanceKey(address, denom))
	if err != nil {
		return types.Quantity{}
	}
	var q types.Quantity
	cbor.MustUnmarshal(raw, &q)
	return q
}

func (fakeAccounts) setBalance(tx Tx, address types.Address, denom types.Denomination, q types.Quantity) {
	must(tx.Set(balanceKey(address, denom), cbor.Marshal(&q)))
}

func (f fakeAccounts) Balance(tx Tx, address types.Address, denomination types.Denomination) types.Quantity {
	return f.getBalance(tx, address, denomination)
}

func (f fakeAccounts) Transfer(tx Tx, from, to types.Address, amount *types.BaseUnits) error {
	fromBal := f.getBalance(tx, from, amount.Denomination)
	newFrom, err := quantitySub(fromBal, amount.Amount)
	if err != nil {
		return ErrInsufficientBalance
	}
	toBal := f.getBalance(tx, to, amount.Denomination)
	f.setBalance(tx, from, amount.Denomination, newFrom)
	f.setBalance(tx, to, amount.Denomination, quantityAdd(toBal, amount.Amount))
	return nil
}

func quantityAdd(a, b types.Quantity) types.Quantity {
	var q types.Quantity
	must(q.FromBigInt(new(big.Int).Add(a.ToBigInt(), b.ToBigInt())))
	return q
}

func quantitySub(a, b types.Quantity) (types.Quantity, error) {
	diff := new(big.Int).Sub(a.ToBigInt(), b.ToBigInt())
	if diff.Sign() < 0 {
		return types.Quantity{}, ErrInsufficientBalance
	}
	var q types.Quantity
	if err := q.FromBigInt(diff); err != nil {
		return types.Quantity{}, err
	}
	return q, nil
}

// fakeRofl endorses a single (app, node) pair, standing in for the generic ROFL
// app-registration module. A zero-value fakeRofl endorses nothing.
type fakeRofl struct {
	app  rofl.AppID
	node signature.PublicKey
}

func (f fakeRofl) GetOriginRegistration(tx Tx, app rofl.AppID) (*rofl.Registration, bool) {
	if app != f.app {
		return nil, false
	}
	return &rofl.Registration{App: f.app, NodeID: f.node}, true
}

// testAddr derives a deterministic, distinct address from a tag, the same way escrowAddress
// derives addresses from module-specific byte strings.
func testAddr(tag string) types.Address {
	return types.NewAddressForModule("test", []byte(tag))
}

func testAppID(tag string) rofl.AppID {
	return rofl.AppID(types.NewAddressForModule("test-app", []byte(tag)))
}

func testNode(tag byte) signature.PublicKey {
	var pk signature.PublicKey
	pk[0] = tag
	return pk
}

func fund(t *testing.T, store *kvstore.Store, address types.Address, amount uint64) {
	t.Helper()
	tx := store.Begin(context.Background())
	var fa fakeAccounts
	fa.setBalance(Tx{Tx: tx}, address, types.NativeDenomination, *quantity.NewFromUint64(amount))
	require.NoError(t, tx.Commit())
}

func balanceOf(t *testing.T, store *kvstore.Store, address types.Address) uint64 {
	t.Helper()
	tx := store.View(context.Background())
	defer tx.Rollback()
	var fa fakeAccounts
	q := fa.getBalance(Tx{Tx: tx}, address, types.NativeDenomination)
	return q.ToBigInt().Uint64()
}

func newTestModule(roflCollab Rofl) (*Module, Config) {
	cfg := DefaultConfig(fakeAccounts{}, roflCollab)
	return NewModule(&cfg), cfg
}

func runTx(t *testing.T, m *Module, store *kvstore.Store, env *Env, fn func(tx Tx) error) error {
	t.Helper()
	tx := m.NewTx(store, env)
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}
