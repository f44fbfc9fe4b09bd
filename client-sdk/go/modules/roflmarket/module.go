// Package roflmarket implements both sides of the roflmarket wire protocol: the V1 RPC client
// used by wallets and the scheduler (roflmarket.go, types.go), and the on-chain module itself
// (this file and its neighbours) that a replicated node would execute to process
// roflmarket.* transactions deterministically.
package roflmarket

import (
	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"
	"github.com/oasisprotocol/oasis-core/go/common/logging"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/internal/kvstore"
)

var logger = logging.GetLogger("roflmarket")

// ProviderStakePoolAddress is the module's address holding staked provider bonds.
var ProviderStakePoolAddress = types.NewAddressForModule(ModuleName, []byte("provider-stake-pool"))

// Env carries the per-call environment: who is calling, when, and under what execution mode.
// It is threaded through every handler the way CurrentState::with_env is consulted in the
// original, but made an explicit argument rather than ambient thread-local state, per the
// redesign note on global mutable state.
type Env struct {
	// Now is the current block timestamp, in Unix seconds.
	Now uint64
	// CallerAddress is the transaction's authenticated caller.
	CallerAddress types.Address
	// Simulation indicates a gas-estimation dry run: authorization checks that would require
	// a real attested session are skipped so callers can obtain an accurate gas quote.
	Simulation bool
	// CheckOnly indicates a mempool admission check: the handler validates arguments and
	// charges no state-mutation gas, but must not mutate state.
	CheckOnly bool
	// GasUsed accumulates the gas charged so far in this call.
	GasUsed uint64
}

// UseGas charges the given amount of gas, saturating rather than overflowing.
func (e *Env) UseGas(amount uint64) {
	sum := e.GasUsed + amount
	if sum < e.GasUsed {
		sum = ^uint64(0)
	}
	e.GasUsed = sum
}

// saturatingMul multiplies a batch length by a per-item gas cost, clamping to the maximum
// uint64 value instead of wrapping around. A caller-controlled batch length (offer count,
// command count, instance count, ...) combined with a configured per-item cost must never be
// able to overflow back to a small number and silently undercharge gas.
func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	if product/a != b {
		return ^uint64(0)
	}
	return product
}

// Tx is the execution context passed to every handler: a scoped store transaction plus the
// environment and module configuration. Accounts/Rofl collaborators receive it so they can
// perform their own reads/writes within the same atomic scope.
type Tx struct {
	*kvstore.Tx
	Env    *Env
	Config *Config
}

// Module binds a store to a Config and exposes the marketplace's transaction and query
// handlers. Each transaction method executes strictly sequentially against a Tx: no
// concurrency is exposed in these contracts, matching the consensus execution model.
type Module struct {
	cfg *Config
}

// NewModule constructs a Module bound to the given configuration.
func NewModule(cfg *Config) *Module {
	return &Module{cfg: cfg}
}

// NewTx opens a transaction scope against store for a single call, binding the module's
// configuration and the caller-supplied environment.
func (m *Module) NewTx(store *kvstore.Store, env *Env) Tx {
	return Tx{Tx: store.Begin(nil), Env: env, Config: m.cfg}
}

func validateMetadata(cfg *Config, md map[string]string) error {
	if len(md) > cfg.MaxMetadataPairs {
		return ErrInvalidArgument
	}
	for k, v := range md {
		if len(k) > cfg.MaxMetadataKeySize || len(v) > cfg.MaxMetadataValueSize {
			return ErrInvalidArgument
		}
	}
	return nil
}

func ensureCallerIsProviderAdmin(env *Env, p *Provider) error {
	if !p.Address.Equal(env.CallerAddress) {
		return ErrForbidden
	}
	return nil
}

func ensureCallerIsInstanceAdmin(env *Env, i *Instance) error {
	if env.Simulation {
		return nil
	}
	if !i.Admin.Equal(env.CallerAddress) {
		return ErrForbidden
	}
	return nil
}

// ensureCallerIsSchedulerApp checks that the transaction originates from an active
// registration of the provider's scheduler app, endorsed by one of the provider's nodes. In
// simulation mode (gas estimation) the check is skipped, since no confidential behavior is
// exposed by doing so.
func ensureCallerIsSchedulerApp(tx Tx, p *Provider) (signature.PublicKey, error) {
	if tx.Env.Simulation {
		return signature.PublicKey{}, nil
	}
	reg, ok := tx.Config.Rofl.GetOriginRegistration(tx, p.SchedulerApp)
	if !ok {
		return signature.PublicKey{}, ErrForbidden
	}
	for _, n := range p.Nodes {
		if n.Equal(reg.NodeID) {
			return reg.NodeID, nil
		}
	}
	return signature.PublicKey{}, ErrForbidden
}

// --- Provider lifecycle -----------------------------------------------------------------

// ProviderCreate registers a new provider, staking the configured bond and creating the
// offers bundled in the request with sequential identifiers 0..n.
func (m *Module) ProviderCreate(tx Tx, body *ProviderCreate) error {
	tx.Env.UseGas(tx.Config.GasCostCallProviderCreate)

	offerCount := uint64(len(body.Offers))
	if offerCount > tx.Config.MaxProviderOffers {
		return ErrInvalidArgument
	}
	tx.Env.UseGas(saturatingMul(offerCount, tx.Config.GasCostCallProviderUpdateOffersAdd))

	if err := validateMetadata(tx.Config, body.Metadata); err != nil {
		return err
	}
	if tx.Env.CheckOnly {
		return nil
	}

	address := tx.Env.CallerAddress
	if _, ok := GetProvider(tx, address); ok {
		return ErrProviderAlreadyExist
	}

	if err := tx.Config.Accounts.Transfer(tx, address, ProviderStakePoolAddress, &tx.Config.StakeProviderCreate); err != nil {
		return ErrInsufficientBalance
	}

	provider := &Provider{
		Address:        address,
		Nodes:          body.Nodes,
		SchedulerApp:   body.SchedulerApp,
		PaymentAddress: body.PaymentAddress,
		Metadata:       body.Metadata,
		Stake:          tx.Config.StakeProviderCreate,
		OffersCount:    offerCount,
		CreatedAt:      tx.Env.Now,
		UpdatedAt:      tx.Env.Now,
	}
	provider.OffersNextID = OfferIDFromUint64(offerCount)
	SetProvider(tx, provider)

	for i, offer := range body.Offers {
		if err := offer.Validate(); err != nil {
			return err
		}
		offer.ID = OfferIDFromUint64(uint64(i))
		SetOffer(tx, address, &offer)
	}

	emitEvent(tx, ProviderCreatedEventCode, &ProviderCreatedEvent{Address: address})
	return nil
}

// ProviderUpdate mutates a provider's nodes, scheduler app, payment address and metadata.
func (m *Module) ProviderUpdate(tx Tx, body *ProviderUpdate) error {
	tx.Env.UseGas(tx.Config.GasCostCallProviderUpdate)

	if err := validateMetadata(tx.Config, body.Metadata); err != nil {
		return err
	}
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if err := ensureCallerIsProviderAdmin(tx.Env, provider); err != nil {
		return err
	}

	provider.Nodes = body.Nodes
	provider.SchedulerApp = body.SchedulerApp
	provider.PaymentAddress = body.PaymentAddress
	provider.Metadata = body.Metadata
	provider.UpdatedAt = tx.Env.Now
	SetProvider(tx, provider)

	emitEvent(tx, ProviderUpdatedEventCode, &ProviderUpdatedEvent{Address: body.Provider})
	return nil
}

// ProviderUpdateOffers adds, updates and removes offers in a single batch.
func (m *Module) ProviderUpdateOffers(tx Tx, body *ProviderUpdateOffers) error {
	tx.Env.UseGas(tx.Config.GasCostCallProviderUpdateOffersBas)

	addCount, updateCount, removeCount := uint64(len(body.Add)), uint64(len(body.Update)), uint64(len(body.Remove))
	tx.Env.UseGas(saturatingMul(addCount, tx.Config.GasCostCallProviderUpdateOffersAdd))
	tx.Env.UseGas(saturatingMul(updateCount, tx.Config.GasCostCallProviderUpdateOffersAdd))
	tx.Env.UseGas(saturatingMul(removeCount, tx.Config.GasCostCallProviderUpdateOffersRm))

	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if err := ensureCallerIsProviderAdmin(tx.Env, provider); err != nil {
		return err
	}

	if removeCount > provider.OffersCount+addCount {
		return ErrInvalidArgument
	}
	newCount := provider.OffersCount + addCount - removeCount
	if newCount > tx.Config.MaxProviderOffers {
		return ErrInvalidArgument
	}

	for _, offer := range body.Add {
		if err := offer.Validate(); err != nil {
			return err
		}
		offer.ID = provider.OffersNextID.Increment()
		SetOffer(tx, provider.Address, &offer)
	}
	for _, offer := range body.Update {
		if err := offer.Validate(); err != nil {
			return err
		}
		// Ensure the offer exists before updating it to prevent a caller-controlled id from
		// creating a brand new offer through the update path.
		if _, ok := GetOffer(tx, provider.Address, offer.ID); !ok {
			return ErrOfferNotFound
		}
		SetOffer(tx, provider.Address, &offer)
	}
	for _, id := range body.Remove {
		if _, ok := GetOffer(tx, provider.Address, id); !ok {
			return ErrOfferNotFound
		}
		RemoveOffer(tx, provider.Address, id)
	}

	provider.OffersCount = newCount
	provider.UpdatedAt = tx.Env.Now
	SetProvider(tx, provider)

	emitEvent(tx, ProviderUpdatedEventCode, &ProviderUpdatedEvent{Address: body.Provider})
	return nil
}

// ProviderRemove deletes a provider and all of its offers, returning the stake. The provider
// must have no remaining instances.
func (m *Module) ProviderRemove(tx Tx, body *ProviderRemove) error {
	tx.Env.UseGas(tx.Config.GasCostCallProviderRemove)
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if err := ensureCallerIsProviderAdmin(tx.Env, provider); err != nil {
		return err
	}
	if provider.InstancesCount > 0 {
		return ErrProviderHasInstances
	}

	tx.Env.UseGas(saturatingMul(provider.OffersCount, tx.Config.GasCostCallProviderUpdateOffersRm))
	for _, offer := range GetOffers(tx, provider.Address) {
		RemoveOffer(tx, provider.Address, offer.ID)
	}
	RemoveProvider(tx, provider.Address)

	if err := tx.Config.Accounts.Transfer(tx, ProviderStakePoolAddress, provider.Address, &provider.Stake); err != nil {
		return ErrPaymentFailed
	}

	emitEvent(tx, ProviderRemovedEventCode, &ProviderRemovedEvent{Address: provider.Address})
	return nil
}

// --- Instance lifecycle ------------------------------------------------------------------

// InstanceCreate allocates a new instance against an offer, snapshotting its resources and
// payment terms and debiting the caller for the requested number of terms.
func (m *Module) InstanceCreate(tx Tx, body *InstanceCreate) (InstanceID, error) {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceCreate)

	if body.TermCount == 0 {
		return InstanceID{}, ErrInvalidArgument
	}
	if tx.Env.CheckOnly {
		return InstanceID{}, nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return InstanceID{}, ErrProviderNotFound
	}
	offer, ok := GetOffer(tx, provider.Address, body.Offer)
	if !ok {
		return InstanceID{}, ErrOfferNotFound
	}
	if offer.Capacity == 0 {
		return InstanceID{}, ErrOutOfCapacity
	}

	caller := tx.Env.CallerAddress
	admin := caller
	if body.Admin != nil {
		admin = *body.Admin
	}
	instanceID := provider.InstancesNextID.Increment()

	refundData, _ := caller.MarshalBinary()
	instance := &Instance{
		Provider:   provider.Address,
		ID:         instanceID,
		Offer:      offer.ID,
		Status:     InstanceStatusCreated,
		Creator:    caller,
		Admin:      admin,
		Resources:  offer.Resources,
		Deployment: body.Deployment,
		CreatedAt:  tx.Env.Now,
		UpdatedAt:  tx.Env.Now,
		PaidFrom:   tx.Env.Now,
		PaidUntil:  tx.Env.Now,
		Payment:    offer.Payment,
		RefundData: refundData,
	}
	if err := Pay(tx, instance, body.Term, body.TermCount); err != nil {
		return InstanceID{}, err
	}
	SetInstance(tx, instance)

	provider.InstancesCount++
	provider.UpdatedAt = tx.Env.Now
	SetProvider(tx, provider)

	emitEvent(tx, InstanceCreatedEventCode, &InstanceCreatedEvent{Provider: body.Provider, ID: instanceID})
	return instanceID, nil
}

// InstanceTopUp extends an accepted instance's paid_until by paying for additional terms.
func (m *Module) InstanceTopUp(tx Tx, body *InstanceTopUp) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceTopUp)
	if body.TermCount == 0 {
		return ErrInvalidArgument
	}
	if tx.Env.CheckOnly {
		return nil
	}

	instance, ok := GetInstance(tx, body.Provider, body.ID)
	if !ok {
		return ErrInstanceNotFound
	}
	if instance.Status != InstanceStatusAccepted {
		return ErrInvalidInstanceState
	}

	if err := Pay(tx, instance, body.Term, body.TermCount); err != nil {
		return err
	}
	instance.UpdatedAt = tx.Env.Now
	SetInstance(tx, instance)

	emitEvent(tx, InstanceUpdatedEventCode, &InstanceUpdatedEvent{Provider: body.Provider, ID: body.ID})
	return nil
}

// InstanceAccept transitions a batch of created instances to Accepted, recording the
// endorsing node and decrementing the offer's best-effort capacity.
func (m *Module) InstanceAccept(tx Tx, body *InstanceAccept) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceAcceptBase)
	tx.Env.UseGas(saturatingMul(uint64(len(body.IDs)), tx.Config.GasCostCallInstanceAcceptInstance))

	if err := validateMetadata(tx.Config, body.Metadata); err != nil {
		return err
	}
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	nodeID, err := ensureCallerIsSchedulerApp(tx, provider)
	if err != nil {
		return err
	}

	for _, id := range body.IDs {
		instance, ok := GetInstance(tx, body.Provider, id)
		if !ok {
			continue // Skip instances that have been removed.
		}
		if instance.Status != InstanceStatusCreated {
			continue // Already accepted or cancelled.
		}

		if offer, ok := GetOffer(tx, body.Provider, instance.Offer); ok {
			if offer.Capacity > 0 {
				offer.Capacity--
			}
			SetOffer(tx, body.Provider, offer)
		}

		instance.Status = InstanceStatusAccepted
		instance.NodeID = &nodeID
		instance.Metadata = body.Metadata
		instance.UpdatedAt = tx.Env.Now
		SetInstance(tx, instance)

		emitEvent(tx, InstanceAcceptedEventCode, &InstanceAcceptedEvent{Provider: provider.Address, ID: id})
	}
	return nil
}

// InstanceUpdate applies scheduler-reported state (node, deployment, metadata, command
// completion) to a batch of instances.
func (m *Module) InstanceUpdate(tx Tx, body *InstanceUpdate) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceUpdateBase)
	tx.Env.UseGas(saturatingMul(uint64(len(body.Updates)), tx.Config.GasCostCallInstanceUpdateInst))

	for _, u := range body.Updates {
		if u.Metadata != nil {
			if err := validateMetadata(tx.Config, u.Metadata); err != nil {
				return err
			}
		}
	}
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if _, err := ensureCallerIsSchedulerApp(tx, provider); err != nil {
		return err
	}

	for _, u := range body.Updates {
		instance, ok := GetInstance(tx, body.Provider, u.ID)
		if !ok {
			return ErrInstanceNotFound
		}

		changed := false
		if u.NodeID != nil {
			instance.NodeID = u.NodeID
			changed = true
		}
		if u.Deployment != nil {
			instance.Deployment = u.Deployment
			changed = true
		}
		if u.Metadata != nil {
			instance.Metadata = u.Metadata
			changed = true
		}
		if u.LastCompletedCmd != nil {
			cmds := GetInstanceCommands(tx, body.Provider, u.ID, *u.LastCompletedCmd)
			if uint64(len(cmds)) > instance.CmdCount {
				instance.CmdCount = 0
			} else {
				instance.CmdCount -= uint64(len(cmds))
			}
			for _, qc := range cmds {
				RemoveInstanceCommand(tx, body.Provider, u.ID, qc.ID)
				changed = true
			}
		}

		if !changed {
			continue
		}
		instance.UpdatedAt = tx.Env.Now
		SetInstance(tx, instance)

		emitEvent(tx, InstanceUpdatedEventCode, &InstanceUpdatedEvent{Provider: body.Provider, ID: u.ID})
	}
	return nil
}

// InstanceCancel implements the three-way cancellation policy: full refund and delete when
// cancelled outside the acceptance window before ever being accepted; a no-op when already
// cancelled; and a full provider claim (marking Cancelled) in every other case.
func (m *Module) InstanceCancel(tx Tx, body *InstanceCancel) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceCancel)
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	instance, ok := GetInstance(tx, body.Provider, body.ID)
	if !ok {
		return ErrInstanceNotFound
	}
	if err := ensureCallerIsInstanceAdmin(tx.Env, instance); err != nil {
		return err
	}

	switch {
	case instance.Status == InstanceStatusCreated && tx.Env.Now-instance.CreatedAt > tx.Config.MaxInstanceAcceptSeconds:
		if err := Refund(tx, instance); err != nil {
			return err
		}
		RemoveInstance(tx, body.Provider, body.ID)
		if provider.InstancesCount > 0 {
			provider.InstancesCount--
		}
		provider.UpdatedAt = tx.Env.Now
		SetProvider(tx, provider)
		emitEvent(tx, InstanceRemovedEventCode, &InstanceRemovedEvent{Provider: body.Provider, ID: body.ID})
	case instance.Status == InstanceStatusCancelled:
		// Already cancelled, nothing to do.
	default:
		instance.UpdatedAt = tx.Env.Now
		instance.Status = InstanceStatusCancelled
		if err := ClaimRemaining(tx, provider, instance); err != nil {
			return err
		}
		SetInstance(tx, instance)
		emitEvent(tx, InstanceCancelledEventCode, &InstanceCancelledEvent{Provider: body.Provider, ID: body.ID})
	}
	return nil
}

// InstanceRemove is called by the scheduler once it has stopped an instance's workload: the
// remaining prepayment is refunded (or claimed if the term already lapsed), offer capacity is
// restored, and the instance and its command queue are deleted.
func (m *Module) InstanceRemove(tx Tx, body *InstanceRemove) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceRemove)
	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if _, err := ensureCallerIsSchedulerApp(tx, provider); err != nil {
		return err
	}
	instance, ok := GetInstance(tx, body.Provider, body.ID)
	if !ok {
		return ErrInstanceNotFound
	}

	if provider.InstancesCount > 0 {
		provider.InstancesCount--
	}
	provider.UpdatedAt = tx.Env.Now

	var err error
	if instance.PaidUntil > tx.Env.Now {
		err = Refund(tx, instance)
	} else {
		instance.Status = InstanceStatusCancelled
		err = ClaimRemaining(tx, provider, instance)
	}
	if err != nil {
		return err
	}

	if offer, ok := GetOffer(tx, body.Provider, instance.Offer); ok {
		offer.Capacity++
		SetOffer(tx, body.Provider, offer)
	}

	SetProvider(tx, provider)
	RemoveInstance(tx, body.Provider, body.ID)
	for _, cmd := range GetInstanceCommands(tx, body.Provider, body.ID, maxCommandID) {
		RemoveInstanceCommand(tx, body.Provider, body.ID, cmd.ID)
	}

	emitEvent(tx, InstanceRemovedEventCode, &InstanceRemovedEvent{Provider: body.Provider, ID: body.ID})
	return nil
}

// InstanceExecuteCmds enqueues scheduler-specific opaque commands for an accepted instance,
// bounded by the configured queue depth.
func (m *Module) InstanceExecuteCmds(tx Tx, body *InstanceExecuteCmds) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceExecCmdsBase)
	tx.Env.UseGas(saturatingMul(uint64(len(body.Cmds)), tx.Config.GasCostCallInstanceExecCmdsCmd))

	for _, cmd := range body.Cmds {
		if len(cmd) > tx.Config.MaxInstanceCommandSize {
			return ErrInvalidArgument
		}
	}
	if tx.Env.CheckOnly {
		return nil
	}

	instance, ok := GetInstance(tx, body.Provider, body.ID)
	if !ok {
		return ErrInstanceNotFound
	}
	if err := ensureCallerIsInstanceAdmin(tx.Env, instance); err != nil {
		return err
	}
	if instance.Status != InstanceStatusAccepted {
		return ErrInvalidInstanceState
	}

	newCount := instance.CmdCount + uint64(len(body.Cmds))
	if newCount > tx.Config.MaxQueuedInstanceCmds {
		return ErrTooManyQueuedCmds
	}

	for _, cmd := range body.Cmds {
		qc := &QueuedCommand{ID: instance.CmdNextID.Increment(), Cmd: cmd}
		SetInstanceCommand(tx, body.Provider, body.ID, qc)
	}
	instance.CmdCount = newCount
	instance.UpdatedAt = tx.Env.Now
	SetInstance(tx, instance)

	emitEvent(tx, InstanceUpdatedEventCode, &InstanceUpdatedEvent{Provider: body.Provider, ID: body.ID})
	return nil
}

// InstanceClaimPayment claims the accrued, unclaimed prepayment for a batch of instances on
// the provider's behalf.
func (m *Module) InstanceClaimPayment(tx Tx, body *InstanceClaimPayment) error {
	tx.Env.UseGas(tx.Config.GasCostCallInstanceClaimBase)
	tx.Env.UseGas(saturatingMul(uint64(len(body.Instances)), tx.Config.GasCostCallInstanceClaimInst))

	if tx.Env.CheckOnly {
		return nil
	}

	provider, ok := GetProvider(tx, body.Provider)
	if !ok {
		return ErrProviderNotFound
	}
	if _, err := ensureCallerIsSchedulerApp(tx, provider); err != nil {
		return err
	}

	for _, id := range body.Instances {
		instance, ok := GetInstance(tx, body.Provider, id)
		if !ok {
			return ErrInstanceNotFound
		}
		if err := Claim(tx, provider, instance); err != nil {
			return err
		}
		instance.UpdatedAt = tx.Env.Now
		SetInstance(tx, instance)

		emitEvent(tx, InstanceUpdatedEventCode, &InstanceUpdatedEvent{Provider: body.Provider, ID: id})
	}
	return nil
}

// --- Queries -----------------------------------------------------------------------------

// QueryStakeThresholds returns the minimum stake required of a new provider.
func (m *Module) QueryStakeThresholds(tx Tx) *StakeThresholds {
	return &StakeThresholds{ProviderCreate: tx.Config.StakeProviderCreate}
}

// QueryProvider returns a single provider descriptor.
func (m *Module) QueryProvider(tx Tx, provider types.Address) (*Provider, error) {
	p, ok := GetProvider(tx, provider)
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// QueryProviders returns every stored provider descriptor.
func (m *Module) QueryProviders(tx Tx) []*Provider {
	return GetProviders(tx)
}

// QueryOffer returns a single offer descriptor.
func (m *Module) QueryOffer(tx Tx, provider types.Address, id OfferID) (*Offer, error) {
	o, ok := GetOffer(tx, provider, id)
	if !ok {
		return nil, ErrOfferNotFound
	}
	return o, nil
}

// QueryOffers returns every offer belonging to a provider.
func (m *Module) QueryOffers(tx Tx, provider types.Address) []*Offer {
	return GetOffers(tx, provider)
}

// QueryInstance returns a single instance descriptor.
func (m *Module) QueryInstance(tx Tx, provider types.Address, id InstanceID) (*Instance, error) {
	i, ok := GetInstance(tx, provider, id)
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return i, nil
}

// QueryInstances returns every instance belonging to a provider.
func (m *Module) QueryInstances(tx Tx, provider types.Address) []*Instance {
	return GetInstances(tx, provider)
}

// QueryInstanceCommands returns the full queued command list for an instance.
func (m *Module) QueryInstanceCommands(tx Tx, provider types.Address, id InstanceID) []*QueuedCommand {
	return GetInstanceCommands(tx, provider, id, maxCommandID)
}

var maxCommandID = func() (id CommandID) {
	for i := range id {
		id[i] = 0xff
	}
	return id
}()

func emitEvent(tx Tx, code uint32, value interface{}) {
	logger.Debug("emitting event", "code", code, "provider", tx.Env.CallerAddress)
	_ = value // Event collection/emission is performed by the host runtime in a real
	// deployment (an out-of-scope collaborator); locally we only log for observability and
	// let callers inspect state directly, the same way module tests do in test.rs.
}
