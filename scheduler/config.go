package scheduler

import (
	"time"

	"github.com/oasisprotocol/oasis-core/go/common/crypto/hash"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
)

// LocalConfig is the scheduler's operator-provided configuration: the resources this host makes
// available to the marketplace, and the tuning knobs for the control loop's pull pipeline and
// polling cadence.
type LocalConfig struct {
	// ProviderAddress is the bech32 address of the provider account this scheduler manages
	// instances on behalf of.
	ProviderAddress string `mapstructure:"provider_address"`
	// Offers names the offer metadata keys (roflmarket.Offer.Metadata[MetadataKeyOffer]) this
	// scheduler is willing to service. An offer not named here is never auto-accepted even if
	// it belongs to the configured provider.
	Offers []string `mapstructure:"offers"`
	// AllowedCreators, if non-empty, restricts auto-acceptance to instances created by one of
	// these addresses. Empty means any creator is accepted.
	AllowedCreators []string `mapstructure:"allowed_creators"`

	// Capacity is the total resource pool available for accepted instances.
	Capacity roflmarket.Resources `mapstructure:"capacity"`
	// MaxInstances caps how many accepted instances this scheduler will run concurrently,
	// independent of whether Capacity would allow more. Zero means no cap.
	MaxInstances uint64 `mapstructure:"max_instances"`
	// ClaimPaymentInterval is the target spacing between successive InstanceClaimPayment calls
	// for a given instance. Actual spacing is fuzzed +/-25% across instances so schedulers with
	// many instances don't submit every claim in the same block.
	ClaimPaymentInterval time.Duration `mapstructure:"claim_payment_interval"`

	// PollInterval is the base interval between discover/plan/act ticks; each tick's actual
	// delay is fuzzed by +/-20% so that many schedulers polling the same chain don't
	// synchronize their query load.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// PullTimeout bounds how long a single bundle pull (OCI fetch through host write) may run
	// before it is abandoned and retried under backoff.
	PullTimeout time.Duration `mapstructure:"pull_timeout"`

	// ArtifactAllowlist is the set of artifact digests this scheduler will deploy. A manifest
	// referencing any other digest is rejected outright; an empty allowlist rejects everything,
	// which is the conservative default until an operator opts in.
	ArtifactAllowlist []hash.Hash `mapstructure:"artifact_allowlist"`

	// StorageRoot is the host path bundle and volume data is written under.
	StorageRoot string `mapstructure:"storage_root"`
}

// DefaultPollInterval is used when an operator leaves PollInterval unset.
const DefaultPollInterval = 30 * time.Second

// DefaultPullTimeout is used when an operator leaves PullTimeout unset.
const DefaultPullTimeout = 10 * time.Minute

// DefaultClaimPaymentInterval is used when an operator leaves ClaimPaymentInterval unset.
const DefaultClaimPaymentInterval = 1 * time.Hour

// RemoveInstanceAfter is how long a created-but-unacceptable or cancelled instance is left
// on-chain before the scheduler removes it outright, fuzzed +/-25% across ticks so that
// multiple schedulers watching the same provider don't race to remove the same instance.
const RemoveInstanceAfter = 30 * time.Minute

// MetadataKeyOffer is the offer metadata key a provider uses to tag which logical offer (as
// named in LocalConfig.Offers) an on-chain offer descriptor corresponds to.
const MetadataKeyOffer = "net.oasis.scheduler.offer"

// MetadataKeyDeploymentORCRef names the deployment metadata entry carrying the OCI reference
// (registry/repository:tag) of the ORC bundle to pull for a deployment.
const MetadataKeyDeploymentORCRef = "net.oasis.deployment.orc.ref"

// IsCreatorAllowed reports whether creator may have its instances auto-accepted.
func (c *LocalConfig) IsCreatorAllowed(creator string) bool {
	if len(c.AllowedCreators) == 0 {
		return true
	}
	for _, a := range c.AllowedCreators {
		if a == creator {
			return true
		}
	}
	return false
}

// IsOfferAccepted reports whether offerKey (an offer's MetadataKeyOffer value) is one this
// scheduler services.
func (c *LocalConfig) IsOfferAccepted(offerKey string) bool {
	for _, o := range c.Offers {
		if o == offerKey {
			return true
		}
	}
	return false
}

// Validate fills in defaults and rejects a configuration that cannot safely run.
func (c *LocalConfig) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = DefaultPullTimeout
	}
	if c.ProviderAddress == "" {
		return errConfigMissingField("provider_address")
	}
	if len(c.Offers) == 0 {
		return errConfigMissingField("offers")
	}
	if c.StorageRoot == "" {
		return errConfigMissingField("storage_root")
	}
	return nil
}

// AllowlistSet returns ArtifactAllowlist as a lookup set, for manifest.ValidateArtifacts.
func (c *LocalConfig) AllowlistSet() map[hash.Hash]bool {
	set := make(map[hash.Hash]bool, len(c.ArtifactAllowlist))
	for _, d := range c.ArtifactAllowlist {
		set[d] = true
	}
	return set
}

func errConfigMissingField(field string) error {
	return &configError{field: field}
}

type configError struct {
	field string
}

func (e *configError) Error() string {
	return "scheduler: missing required configuration field " + e.field
}
