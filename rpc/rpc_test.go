package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/client"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
)

// fakeRuntimeClient answers Query with a fixed response or error; every other RuntimeClient
// method is unused by this package and left to panic via the nil embedded interface if ever
// called.
type fakeRuntimeClient struct {
	client.RuntimeClient

	rsp interface{}
	err error
}

func (f *fakeRuntimeClient) Query(_ context.Context, _ uint64, _ string, _, rsp interface{}) error {
	if f.err != nil {
		return f.err
	}
	if rsp != nil && f.rsp != nil {
		raw := cbor.Marshal(f.rsp)
		return cbor.Unmarshal(raw, rsp)
	}
	return nil
}

// fakeRoflCollab answers AppInstances with a fixed registration set per app; every other V1
// method is unused by this package.
type fakeRoflCollab struct {
	rofl.V1

	regs map[rofl.AppID][]*rofl.Registration
	err  error
}

func (f *fakeRoflCollab) AppInstances(_ context.Context, _ uint64, id rofl.AppID) ([]*rofl.Registration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.regs[id], nil
}

func testAppID(tag byte) rofl.AppID {
	return rofl.AppID(types.NewAddressForModule("test-app", []byte{tag}))
}

func testNode(tag byte) signature.PublicKey {
	var pk signature.PublicKey
	pk[0] = tag
	return pk
}

func newTestClient(regs map[rofl.AppID][]*rofl.Registration, rc client.RuntimeClient) *Client {
	return &Client{
		rc:       rc,
		rofl:     &fakeRoflCollab{regs: regs},
		sessions: make(map[rofl.AppID]*Session, sessionPoolSize),
	}
}

func TestRefreshPolicyPopulatesSessionForPeer(t *testing.T) {
	app := testAppID(1)
	node := testNode(7)
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{
		app: {{App: app, NodeID: node}},
	}, &fakeRuntimeClient{})

	require.Nil(t, c.QuotePolicy(app))
	require.NoError(t, c.RefreshPolicy(context.Background(), app))
	require.NotNil(t, c.QuotePolicy(app))

	ok, err := c.SelfEndorsed(context.Background(), app, node)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.SelfEndorsed(context.Background(), app, testNode(9))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelfEndorsedBeforeAnyRefreshDeniesAllPeers(t *testing.T) {
	app := testAppID(1)
	c := newTestClient(nil, &fakeRuntimeClient{})

	ok, err := c.SelfEndorsed(context.Background(), app, testNode(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshPolicyIsLastUpdateWins(t *testing.T) {
	app := testAppID(1)
	first := testNode(1)
	second := testNode(2)
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{
		app: {{App: app, NodeID: first}},
	}, &fakeRuntimeClient{})

	require.NoError(t, c.RefreshPolicy(context.Background(), app))
	ok, _ := c.SelfEndorsed(context.Background(), app, first)
	require.True(t, ok)

	c.sessions[app].update([]*rofl.Registration{{App: app, NodeID: second}}, defaultQuotePolicy())
	ok, _ = c.SelfEndorsed(context.Background(), app, first)
	require.False(t, ok)
	ok, _ = c.SelfEndorsed(context.Background(), app, second)
	require.True(t, ok)
}

func TestRefreshPolicyWrapsTransportError(t *testing.T) {
	app := testAppID(1)
	c := newTestClient(nil, &fakeRuntimeClient{})
	c.rofl = &fakeRoflCollab{err: errors.New("boom")}

	err := c.RefreshPolicy(context.Background(), app)
	require.ErrorIs(t, err, ErrTransport)
}

// TestSessionPoolEvictsLeastRecentlyUsedPeer exercises the fixed-size-pool contract: once
// sessionPoolSize distinct peers have sessions, querying one more evicts whichever existing
// session was least recently touched rather than growing the pool.
func TestSessionPoolEvictsLeastRecentlyUsedPeer(t *testing.T) {
	appA, appB, appC := testAppID(1), testAppID(2), testAppID(3)
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{
		appA: {{App: appA, NodeID: testNode(1)}},
		appB: {{App: appB, NodeID: testNode(2)}},
		appC: {{App: appC, NodeID: testNode(3)}},
	}, &fakeRuntimeClient{})

	require.NoError(t, c.RefreshPolicy(context.Background(), appA))
	require.NoError(t, c.RefreshPolicy(context.Background(), appB))
	require.Len(t, c.sessions, 2)

	// Touch appA again so appB becomes the least recently used of the two.
	require.NoError(t, c.Query(context.Background(), appA, 0, "roflmarket.Provider", nil, nil))

	require.NoError(t, c.RefreshPolicy(context.Background(), appC))
	require.Len(t, c.sessions, sessionPoolSize)
	require.Contains(t, c.sessions, appA)
	require.Contains(t, c.sessions, appC)
	require.NotContains(t, c.sessions, appB)
}

func TestQueryRefreshesPolicyOnFirstUseAndDecodesResponse(t *testing.T) {
	app := testAppID(1)
	type resp struct{ X int }
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{
		app: {{App: app, NodeID: testNode(1)}},
	}, &fakeRuntimeClient{rsp: &resp{X: 42}})

	var out resp
	require.NoError(t, c.Query(context.Background(), app, 10, "roflmarket.Instance", nil, &out))
	require.Equal(t, 42, out.X)
	require.True(t, c.hasSession(app))
}

func TestQueryWrapsDecodeError(t *testing.T) {
	app := testAppID(1)
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{app: {}}, &fakeRuntimeClient{rsp: "not-a-struct"})

	var out struct{ X int }
	err := c.Query(context.Background(), app, 0, "roflmarket.Instance", nil, &out)
	require.ErrorIs(t, err, ErrDecode)
}

func TestQueryWrapsTransportError(t *testing.T) {
	app := testAppID(1)
	c := newTestClient(map[rofl.AppID][]*rofl.Registration{app: {}}, &fakeRuntimeClient{err: errors.New("no route")})

	err := c.Query(context.Background(), app, 0, "roflmarket.Instance", nil, nil)
	require.ErrorIs(t, err, ErrTransport)
}
