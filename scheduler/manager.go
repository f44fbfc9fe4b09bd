// Package scheduler implements the off-chain control loop a ROFL marketplace provider runs
// alongside its host node: it watches the roflmarket module for instances assigned to this
// node, pulls and runs their deployments, keeps the chain's record of running state current,
// and periodically claims payment for the resources it has actually provided.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/signature"
	"github.com/oasisprotocol/oasis-core/go/common/logging"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/client"
	sdkSignature "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/scheduler/host"
	"github.com/oasisprotocol/oasis-sdk/submitter"
)

var logger = logging.GetLogger("scheduler")

// MetadataKeyError is the instance metadata key the scheduler reports its most recent pull or
// deploy failure under, truncated to MetadataValueErrorMaxSize, so an operator or client can see
// why an instance never came up without digging through scheduler logs.
const MetadataKeyError = "net.oasis.scheduler.error"

// MetadataValueErrorMaxSize bounds how much of an error string is published on-chain.
const MetadataValueErrorMaxSize = 256

// jobChunkSize bounds how many instance IDs are batched into a single accept/claim transaction.
const jobChunkSize = 16

// Manager runs the discover/plan/act control loop for a single provider account on behalf of a
// single host node.
type Manager struct {
	cfg LocalConfig

	rc   client.RuntimeClient
	mkt  roflmarket.V1
	host *host.Host
	sub  *submitter.Submitter

	signer sdkSignature.Signer
	spec   types.SignatureAddressSpec

	provider types.Address
	nodeID   signature.PublicKey

	backoff *backoffTable
}

// NewManager constructs a Manager. nodeID is this host's own node identity, as reported by the
// host's Identity RPC; it is used to recognize which accepted instances belong to this node
// rather than a sibling scheduler sharing the same provider account.
func NewManager(cfg LocalConfig, rc client.RuntimeClient, h *host.Host, sub *submitter.Submitter, signer sdkSignature.Signer, spec types.SignatureAddressSpec, nodeID signature.PublicKey) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var provider types.Address
	if err := provider.UnmarshalText([]byte(cfg.ProviderAddress)); err != nil {
		return nil, fmt.Errorf("scheduler: bad provider_address: %w", err)
	}
	return &Manager{
		cfg:      cfg,
		rc:       rc,
		mkt:      roflmarket.NewV1(rc),
		host:     h,
		sub:      sub,
		signer:   signer,
		spec:     spec,
		provider: provider,
		nodeID:   nodeID,
		backoff:  newBackoffTable(),
	}, nil
}

// Run polls the chain and host at cfg.PollInterval (fuzzed +/-20%) until ctx is cancelled,
// running one discover/plan/act tick per interval. A failed tick is logged and retried at the
// next interval rather than stopping the loop.
func (m *Manager) Run(ctx context.Context) {
	for {
		if err := m.Tick(ctx); err != nil {
			logger.Error("tick failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(fuzzed(m.cfg.PollInterval, 20)):
		}
	}
}

// fuzzed returns d adjusted by a uniformly random +/-pct% offset, so that many schedulers on the
// same interval don't all poll the chain in the same block.
func fuzzed(d time.Duration, pct int) time.Duration {
	if d <= 0 {
		return d
	}
	spread := int64(d) * int64(pct) / 100
	offset := rand.Int63n(2*spread+1) - spread
	return d + time.Duration(offset)
}

// Tick runs one discover/plan/act cycle.
func (m *Manager) Tick(ctx context.Context) error {
	local, err := m.discover(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: discover: %w", err)
	}
	if err := m.processPending(ctx, local); err != nil {
		return fmt.Errorf("scheduler: process pending: %w", err)
	}
	m.processJobs(ctx, local)

	live := make(map[roflmarket.InstanceID]bool, len(local.Accepted))
	for id := range local.Accepted {
		live[id] = true
	}
	m.backoff.forget(live)
	return nil
}

// discover builds this tick's LocalState from the host's reported bundles/volumes and the
// chain's reported instances and queued commands.
func (m *Manager) discover(ctx context.Context) (*LocalState, error) {
	local := newLocalState()
	now := uint64(time.Now().Unix())

	bundles, err := m.host.BundleList(host.BundleListRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing bundles: %w", err)
	}
	for _, b := range bundles {
		id, ok := parseInstanceIDLabel(b.Labels)
		if !ok {
			continue
		}
		local.Running[id] = hostBundle{ID: b.TemporaryName, Labels: b.Labels}
	}

	instances, err := m.mkt.Instances(ctx, client.RoundLatest, m.provider)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}

	for _, instance := range instances {
		switch instance.Status {
		case roflmarket.InstanceStatusCreated:
			continue
		case roflmarket.InstanceStatusCancelled:
			if _, running := local.Running[instance.ID]; running {
				local.PendingStop = append(local.PendingStop, pendingStop{InstanceID: instance.ID, WipeStorage: true})
			}
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.UpdatedAt})
			continue
		case roflmarket.InstanceStatusAccepted:
			if instance.NodeID == nil || !instance.NodeID.Equal(m.nodeID) {
				continue
			}
		}

		if instance.PaidUntil < now {
			if _, running := local.Running[instance.ID]; running {
				local.PendingStop = append(local.PendingStop, pendingStop{InstanceID: instance.ID, WipeStorage: true})
			}
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.PaidUntil})
			continue
		}

		local.Accepted[instance.ID] = instance
		local.ResourcesUsed = local.ResourcesUsed.Add(instance.Resources)

		cmds, err := m.mkt.InstanceCommands(ctx, client.RoundLatest, m.provider, instance.ID)
		if err != nil {
			return nil, fmt.Errorf("listing commands for instance %s: %w", instance.ID, err)
		}

		desired := instance.Deployment
		wipeStorage := false
		forceRestart := false
		var lastCmd roflmarket.CommandID
		for _, qc := range cmds {
			lastCmd = qc.ID
			cmd, ok := decodeCommand(qc.Cmd)
			if !ok {
				continue
			}
			switch cmd.Method {
			case MethodDeploy:
				var req DeployRequest
				if err := cbor.Unmarshal(cmd.Args, &req); err != nil {
					continue
				}
				d := req.Deployment
				desired = &d
				wipeStorage = wipeStorage || req.WipeStorage
			case MethodTerminate:
				var req TerminateRequest
				if err := cbor.Unmarshal(cmd.Args, &req); err != nil {
					continue
				}
				desired = nil
				wipeStorage = wipeStorage || req.WipeStorage
			case MethodRestart:
				var req RestartRequest
				if err := cbor.Unmarshal(cmd.Args, &req); err != nil {
					continue
				}
				wipeStorage = wipeStorage || req.WipeStorage
				forceRestart = true
			}
		}
		if len(cmds) > 0 {
			id := lastCmd
			local.update(instance.ID).LastCompletedCmd = &id
		}
		if !deploymentEqual(instance.Deployment, desired) {
			local.update(instance.ID).Deployment = desired
		}

		interval := fuzzed(m.cfg.claimInterval(), 25)
		if now > instance.PaidFrom+uint64(interval.Seconds()) {
			local.ClaimPayment = append(local.ClaimPayment, instance.ID)
		}

		running, isRunning := local.Running[instance.ID]
		switch {
		case isRunning && desired != nil:
			if running.Labels[LabelDeploymentHash] != deploymentHash(desired) || forceRestart {
				local.PendingStart = append(local.PendingStart, pendingStart{Instance: instance, Deployment: desired, WipeStorage: wipeStorage})
			}
		case !isRunning && desired != nil:
			local.PendingStart = append(local.PendingStart, pendingStart{Instance: instance, Deployment: desired, WipeStorage: wipeStorage})
		case isRunning && desired == nil:
			local.PendingStop = append(local.PendingStop, pendingStop{InstanceID: instance.ID, WipeStorage: wipeStorage})
		}
	}

	for id := range local.Running {
		if _, ok := local.Accepted[id]; !ok {
			local.PendingStop = append(local.PendingStop, pendingStop{InstanceID: id, WipeStorage: true})
		}
	}

	return local, nil
}

func (c *LocalConfig) claimInterval() time.Duration {
	if c.ClaimPaymentInterval <= 0 {
		return DefaultClaimPaymentInterval
	}
	return c.ClaimPaymentInterval
}

// processPending evaluates every Created instance against local policy and capacity, marking
// acceptable ones for acceptance and unacceptable ones for eventual removal.
func (m *Manager) processPending(ctx context.Context, local *LocalState) error {
	offers, err := m.mkt.Offers(ctx, client.RoundLatest, m.provider)
	if err != nil {
		return fmt.Errorf("listing offers: %w", err)
	}
	acceptable := make(map[roflmarket.OfferID]bool)
	for _, offer := range offers {
		if key, ok := offer.Metadata[MetadataKeyOffer]; ok && m.cfg.IsOfferAccepted(key) {
			acceptable[offer.ID] = true
		}
	}

	instances, err := m.mkt.Instances(ctx, client.RoundLatest, m.provider)
	if err != nil {
		return fmt.Errorf("listing instances: %w", err)
	}

	for _, instance := range instances {
		if instance.Status != roflmarket.InstanceStatusCreated {
			continue
		}

		if !m.cfg.IsCreatorAllowed(instance.Creator.String()) {
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.CreatedAt})
			continue
		}
		if !acceptable[instance.Offer] {
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.CreatedAt})
			continue
		}
		if m.cfg.MaxInstances > 0 && uint64(len(local.Accepted)) >= m.cfg.MaxInstances {
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.CreatedAt})
			continue
		}
		newUse := local.ResourcesUsed.Add(instance.Resources)
		if !newUse.FitsWithin(m.cfg.Capacity) {
			local.MaybeRemove = append(local.MaybeRemove, maybeRemove{InstanceID: instance.ID, Since: instance.CreatedAt})
			continue
		}

		local.Accept = append(local.Accept, instance.ID)
		local.Accepted[instance.ID] = instance
		local.ResourcesUsed = newUse
		if instance.Deployment != nil {
			local.PendingStart = append(local.PendingStart, pendingStart{Instance: instance, Deployment: instance.Deployment, WipeStorage: true})
		}
	}
	return nil
}

// processJobs executes wave 1 (accept, removal, start, stop, claim) concurrently, then wave 2
// (instance metadata updates folded from wave 1's outcomes) once wave 1 has fully settled —
// wave 2 needs wave 1's final running/error state to report it on-chain.
func (m *Manager) processJobs(ctx context.Context, local *LocalState) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobChunkSize)

	for _, chunk := range chunkInstanceIDs(local.Accept, jobChunkSize) {
		chunk := chunk
		g.Go(func() error { m.logJobErr("accept", m.acceptInstances(gctx, chunk)); return nil })
	}
	for _, job := range local.MaybeRemove {
		job := job
		g.Go(func() error { m.logJobErr("remove", m.maybeRemoveInstance(gctx, job)); return nil })
	}
	for _, job := range local.PendingStart {
		job := job
		g.Go(func() error { m.logJobErr("start", m.startInstance(gctx, local, job)); return nil })
	}
	for _, job := range local.PendingStop {
		job := job
		g.Go(func() error { m.logJobErr("stop", m.stopInstance(gctx, job)); return nil })
	}
	for _, chunk := range chunkInstanceIDs(local.ClaimPayment, jobChunkSize) {
		chunk := chunk
		g.Go(func() error { m.logJobErr("claim", m.claimPayment(gctx, chunk)); return nil })
	}
	_ = g.Wait()

	m.processInstanceUpdates(ctx, local)
}

func (m *Manager) logJobErr(kind string, err error) {
	if err != nil {
		logger.Error("job failed", "kind", kind, "err", err)
	}
}

func chunkInstanceIDs(ids []roflmarket.InstanceID, size int) [][]roflmarket.InstanceID {
	var chunks [][]roflmarket.InstanceID
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func (m *Manager) acceptInstances(ctx context.Context, ids []roflmarket.InstanceID) error {
	tx := roflmarket.NewInstanceAcceptTx(nil, &roflmarket.InstanceAccept{Provider: m.provider, IDs: ids, Metadata: map[string]string{}})
	_, err := m.sub.Submit(ctx, m.signer, m.spec, tx)
	return err
}

func (m *Manager) maybeRemoveInstance(ctx context.Context, job maybeRemove) error {
	if time.Since(time.Unix(int64(job.Since), 0)) < fuzzed(RemoveInstanceAfter, 25) {
		return nil
	}
	tx := roflmarket.NewInstanceRemoveTx(nil, &roflmarket.InstanceRemove{Provider: m.provider, ID: job.InstanceID})
	_, err := m.sub.Submit(ctx, m.signer, m.spec, tx)
	return err
}

func (m *Manager) claimPayment(ctx context.Context, ids []roflmarket.InstanceID) error {
	tx := roflmarket.NewInstanceClaimPaymentTx(nil, &roflmarket.InstanceClaimPayment{Provider: m.provider, Instances: ids})
	_, err := m.sub.Submit(ctx, m.signer, m.spec, tx)
	return err
}

func (m *Manager) stopInstance(ctx context.Context, job pendingStop) error {
	if job.WipeStorage {
		if err := m.host.VolumeRemove(host.VolumeRemoveRequest{Labels: host.LabelsForInstance(job.InstanceID.String())}); err != nil {
			return fmt.Errorf("wiping storage: %w", err)
		}
	}
	if err := m.host.BundleRemove(host.BundleRemoveRequest{Labels: host.LabelsForInstance(job.InstanceID.String())}); err != nil {
		return fmt.Errorf("removing bundle: %w", err)
	}
	return nil
}

func (m *Manager) startInstance(ctx context.Context, local *LocalState, job pendingStart) error {
	hash := deploymentHash(job.Deployment)
	if !m.backoff.runnable(job.Instance.ID, hash) {
		return nil
	}
	logger.Info("starting instance", "instance_id", job.Instance.ID, "app_id", appIDOf(job.Deployment))
	if err := m.stopInstance(ctx, pendingStop{InstanceID: job.Instance.ID, WipeStorage: job.WipeStorage}); err != nil {
		return fmt.Errorf("stopping previous deployment: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, m.cfg.PullTimeout)
	defer cancel()
	info, err := m.pullAndValidateDeployment(pullCtx, job.Instance, job.Deployment)
	if err != nil {
		m.backoff.recordFailure(job.Instance.ID, hash, err)
		local.update(job.Instance.ID).Metadata = errorMetadata(job.Instance.Metadata, err)
		return err
	}
	if err := m.deployInstance(job.Instance, job.Deployment, info); err != nil {
		m.backoff.recordFailure(job.Instance.ID, hash, err)
		local.update(job.Instance.ID).Metadata = errorMetadata(job.Instance.Metadata, err)
		return err
	}
	m.backoff.recordSuccess(job.Instance.ID)
	local.update(job.Instance.ID).Metadata = clearErrorMetadata(job.Instance.Metadata)
	return nil
}

func (m *Manager) deployInstance(instance *roflmarket.Instance, deployment *roflmarket.Deployment, info *deploymentInfo) error {
	volumes := make(map[string]string, len(info.Volumes))
	for _, name := range info.Volumes {
		labels := host.LabelsForInstance(instance.ID.String())
		labels[host.LabelVolumeName] = "000"
		existing, err := m.host.VolumeList(host.VolumeListRequest{Labels: labels})
		if err != nil {
			return fmt.Errorf("listing volumes: %w", err)
		}
		if len(existing) > 0 {
			volumes[name] = existing[0].ID
			continue
		}
		id, err := m.host.VolumeAdd(host.VolumeAddRequest{Labels: labels})
		if err != nil {
			return fmt.Errorf("creating volume: %w", err)
		}
		volumes[name] = id
	}

	labels := host.LabelsForInstance(instance.ID.String())
	labels[host.LabelDeploymentHash] = deploymentHash(deployment)
	return m.host.BundleAdd(host.BundleAddRequest{
		TemporaryName: info.TemporaryName,
		ManifestHash:  info.ManifestHash.String(),
		Labels:        labels,
		Volumes:       volumes,
	})
}

// processInstanceUpdates folds every update noted during discover/processJobs into as few
// roflmarket.InstanceUpdate transactions as jobChunkSize allows.
func (m *Manager) processInstanceUpdates(ctx context.Context, local *LocalState) {
	var items []roflmarket.InstanceUpdateItem
	for id, update := range local.InstanceUpdates {
		instance, ok := local.Accepted[id]
		if !ok {
			continue
		}
		if update.Metadata == nil {
			meta := instance.Metadata
			update.Metadata = meta
		}
		items = append(items, *update)
	}

	for _, chunk := range chunkUpdates(items, jobChunkSize) {
		tx := roflmarket.NewInstanceUpdateTx(nil, &roflmarket.InstanceUpdate{Provider: m.provider, Updates: chunk})
		if _, err := m.sub.Submit(ctx, m.signer, m.spec, tx); err != nil {
			logger.Error("instance update failed", "err", err)
		}
	}
}

func chunkUpdates(items []roflmarket.InstanceUpdateItem, size int) [][]roflmarket.InstanceUpdateItem {
	var chunks [][]roflmarket.InstanceUpdateItem
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}

func errorMetadata(base map[string]string, err error) map[string]string {
	meta := cloneMetadata(base)
	msg := err.Error()
	if len(msg) > MetadataValueErrorMaxSize {
		msg = msg[:MetadataValueErrorMaxSize]
	}
	meta[MetadataKeyError] = msg
	return meta
}

func clearErrorMetadata(base map[string]string) map[string]string {
	if _, ok := base[MetadataKeyError]; !ok {
		return nil
	}
	meta := cloneMetadata(base)
	delete(meta, MetadataKeyError)
	return meta
}

func cloneMetadata(base map[string]string) map[string]string {
	meta := make(map[string]string, len(base)+1)
	for k, v := range base {
		meta[k] = v
	}
	return meta
}

// deploymentHash is the CBOR digest identifying a deployment descriptor, used both as the
// bundle label recording what's running and as the backoff table's dedup key.
func deploymentHash(d *roflmarket.Deployment) string {
	if d == nil {
		return ""
	}
	h := cbor.Marshal(d)
	return fmt.Sprintf("%x", h)
}

func deploymentEqual(a, b *roflmarket.Deployment) bool {
	return deploymentHash(a) == deploymentHash(b)
}

func parseInstanceIDLabel(labels map[string]string) (roflmarket.InstanceID, bool) {
	raw, ok := labels[host.LabelInstanceID]
	if !ok {
		return roflmarket.InstanceID{}, false
	}
	var id roflmarket.InstanceID
	if err := id.UnmarshalText([]byte(raw)); err != nil {
		return roflmarket.InstanceID{}, false
	}
	return id, true
}
