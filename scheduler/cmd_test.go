package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/oasis-core/go/common/cbor"
	"github.com/oasisprotocol/oasis-core/go/common/crypto/hash"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
)

func TestNewCommandRoundTrip(t *testing.T) {
	require := require.New(t)

	manifestHash := hash.NewFromBytes([]byte("manifest"))
	raw := NewCommand(MethodDeploy, DeployRequest{
		Deployment:  roflmarket.Deployment{ManifestHash: manifestHash},
		WipeStorage: true,
	})

	cmd, ok := decodeCommand(raw)
	require.True(ok)
	require.Equal(MethodDeploy, cmd.Method)

	var req DeployRequest
	require.NoError(cbor.Unmarshal(cmd.Args, &req))
	require.Equal(manifestHash, req.Deployment.ManifestHash)
	require.True(req.WipeStorage)
}

func TestDecodeCommandRejectsUnknownMethod(t *testing.T) {
	require := require.New(t)

	raw := NewCommand("SelfDestruct", struct{}{})
	_, ok := decodeCommand(raw)
	require.False(ok)
}

func TestDecodeCommandRejectsGarbage(t *testing.T) {
	_, ok := decodeCommand([]byte("not cbor"))
	require.False(t, ok)
}

func TestDecodeCommandRecognizesAllMethods(t *testing.T) {
	require := require.New(t)

	for _, method := range []string{MethodDeploy, MethodTerminate, MethodRestart} {
		raw := NewCommand(method, struct{}{})
		cmd, ok := decodeCommand(raw)
		require.True(ok, method)
		require.Equal(method, cmd.Method)
	}
}
