package scheduler

import (
	"sync"
	"time"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/rofl"
	"github.com/oasisprotocol/oasis-sdk/scheduler/host"
)

// LabelDeploymentHash tags a running bundle with the CBOR digest of the deployment descriptor it
// was started from, so a later tick can tell whether the running bundle still matches what's
// wanted on-chain without re-pulling anything.
const LabelDeploymentHash = host.LabelDeploymentHash

// pendingStart is one instance whose running bundle doesn't match (or doesn't exist for) its
// desired deployment.
type pendingStart struct {
	Instance    *roflmarket.Instance
	Deployment  *roflmarket.Deployment
	WipeStorage bool
}

// pendingStop is one instance that should not be running.
type pendingStop struct {
	InstanceID  roflmarket.InstanceID
	WipeStorage bool
}

// maybeRemove is a cancelled, unpaid or unacceptable instance that becomes eligible for on-chain
// removal once RemoveInstanceAfter (fuzzed) has passed since Since.
type maybeRemove struct {
	InstanceID roflmarket.InstanceID
	Since      uint64
}

// LocalState is the scheduler's reconciled view of everything for one control loop tick: what's
// accepted on-chain, what the host actually has running, and what work the gap between them
// implies. It is rebuilt from scratch every tick; nothing here persists except via backoffTable.
type LocalState struct {
	Accepted map[roflmarket.InstanceID]*roflmarket.Instance
	Running  map[roflmarket.InstanceID]hostBundle

	PendingStart []pendingStart
	PendingStop  []pendingStop

	InstanceUpdates map[roflmarket.InstanceID]*roflmarket.InstanceUpdateItem

	Accept       []roflmarket.InstanceID
	MaybeRemove  []maybeRemove
	ClaimPayment []roflmarket.InstanceID

	ResourcesUsed roflmarket.Resources
}

// hostBundle is the host's view of a single running bundle, as reported by bundle_manager.list.
type hostBundle struct {
	ID     string
	Labels map[string]string
}

func newLocalState() *LocalState {
	return &LocalState{
		Accepted:        make(map[roflmarket.InstanceID]*roflmarket.Instance),
		Running:         make(map[roflmarket.InstanceID]hostBundle),
		InstanceUpdates: make(map[roflmarket.InstanceID]*roflmarket.InstanceUpdateItem),
	}
}

// update returns the pending update record for id, creating one if this is the first change
// noted against it this tick.
func (s *LocalState) update(id roflmarket.InstanceID) *roflmarket.InstanceUpdateItem {
	u, ok := s.InstanceUpdates[id]
	if !ok {
		u = &roflmarket.InstanceUpdateItem{ID: id}
		s.InstanceUpdates[id] = u
	}
	return u
}

// backoffState tracks a single instance's pull-retry history across control loop ticks. It is
// the only state the scheduler keeps in memory between ticks; everything else is recomputed
// fresh from on-chain and host state each tick so a restart loses no durable information.
type backoffState struct {
	lastDeploymentHash string
	lastError          error
	ignoreStartUntil   time.Time
	attempts           int
}

const (
	baseInstanceBackoff = 2 * time.Second
	maxInstanceBackoff  = 5 * time.Minute
)

func (b *backoffState) nextDelay() time.Duration {
	d := baseInstanceBackoff << uint(b.attempts)
	if d > maxInstanceBackoff || d <= 0 {
		d = maxInstanceBackoff
	}
	return d
}

// backoffTable is a concurrency-safe map of per-instance backoff state, keyed by instance ID.
type backoffTable struct {
	mu    sync.Mutex
	state map[roflmarket.InstanceID]*backoffState
}

func newBackoffTable() *backoffTable {
	return &backoffTable{state: make(map[roflmarket.InstanceID]*backoffState)}
}

// forget drops backoff state for instances no longer present on-chain, so the table doesn't
// grow without bound as instances churn.
func (t *backoffTable) forget(live map[roflmarket.InstanceID]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.state {
		if !live[id] {
			delete(t.state, id)
		}
	}
}

func (t *backoffTable) recordSuccess(id roflmarket.InstanceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, id)
}

func (t *backoffTable) recordFailure(id roflmarket.InstanceID, deploymentHash string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[id]
	if !ok {
		s = &backoffState{}
		t.state[id] = s
	}
	if s.lastDeploymentHash != deploymentHash {
		// A new deployment supersedes whatever we were retrying; start the backoff clock over.
		s.attempts = 0
	}
	s.lastDeploymentHash = deploymentHash
	s.lastError = err
	s.ignoreStartUntil = time.Now().Add(s.nextDelay())
	s.attempts++
}

// runnable reports whether id's backoff window (if any) has elapsed for deploymentHash. A
// different deploymentHash than the one last failed is always runnable immediately, since an
// operator pushing a fix shouldn't wait out a stale backoff.
func (t *backoffTable) runnable(id roflmarket.InstanceID, deploymentHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[id]
	if !ok {
		return true
	}
	if s.lastDeploymentHash != deploymentHash {
		return true
	}
	return !time.Now().Before(s.ignoreStartUntil)
}

// appIDOf returns the deployment's ROFL application ID (the zero ID for a nil deployment), used
// when logging which app a started instance belongs to.
func appIDOf(d *roflmarket.Deployment) rofl.AppID {
	if d == nil {
		return rofl.AppID{}
	}
	return d.AppID
}
