package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-core/go/common/crypto/hash"
)

func validConfig() LocalConfig {
	return LocalConfig{
		ProviderAddress: "oasis1qzq8u7xs6qhe0qqvfmh0evnay7c2ff0z9cqrvf0t",
		Offers:          []string{"small"},
		StorageRoot:     "/var/lib/rofl-scheduler",
	}
}

func TestConfigValidateFillsDefaults(t *testing.T) {
	require := require.New(t)

	c := validConfig()
	require.NoError(c.Validate())
	require.Equal(DefaultPollInterval, c.PollInterval)
	require.Equal(DefaultPullTimeout, c.PullTimeout)
}

func TestConfigValidateRejectsMissingFields(t *testing.T) {
	require := require.New(t)

	c := validConfig()
	c.ProviderAddress = ""
	require.ErrorContains(c.Validate(), "provider_address")

	c = validConfig()
	c.Offers = nil
	require.ErrorContains(c.Validate(), "offers")

	c = validConfig()
	c.StorageRoot = ""
	require.ErrorContains(c.Validate(), "storage_root")
}

func TestConfigValidatePreservesExplicitIntervals(t *testing.T) {
	require := require.New(t)

	c := validConfig()
	c.PollInterval = 5
	c.PullTimeout = 7
	require.NoError(c.Validate())
	require.EqualValues(5, c.PollInterval)
	require.EqualValues(7, c.PullTimeout)
}

func TestIsCreatorAllowed(t *testing.T) {
	require := require.New(t)

	c := validConfig()
	require.True(c.IsCreatorAllowed("anyone"))

	c.AllowedCreators = []string{"oasis1alice"}
	require.True(c.IsCreatorAllowed("oasis1alice"))
	require.False(c.IsCreatorAllowed("oasis1mallory"))
}

func TestIsOfferAccepted(t *testing.T) {
	c := validConfig()
	require.True(t, c.IsOfferAccepted("small"))
	require.False(t, c.IsOfferAccepted("large"))
}

func TestAllowlistSet(t *testing.T) {
	require := require.New(t)

	c := validConfig()
	d1 := hash.NewFromBytes([]byte("one"))
	d2 := hash.NewFromBytes([]byte("two"))
	c.ArtifactAllowlist = []hash.Hash{d1, d2}

	set := c.AllowlistSet()
	require.True(set[d1])
	require.True(set[d2])
	require.False(set[hash.NewFromBytes([]byte("three"))])
}
