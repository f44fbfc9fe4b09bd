// Command rofl-scheduler runs the off-chain control loop that reconciles a ROFL marketplace
// provider's accepted instances against what is actually running on this host, pulling and
// deploying ORC bundles, claiming payment, and reporting instance state back on-chain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oasisprotocol/oasis-core/go/common"
	coreSignature "github.com/oasisprotocol/oasis-core/go/common/crypto/signature"
	"github.com/oasisprotocol/oasis-core/go/common/logging"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/config"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/connection"
	sdkSignature "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature"
	sdkEd25519 "github.com/oasisprotocol/oasis-sdk/client-sdk/go/crypto/signature/ed25519"
	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/types"
	"github.com/oasisprotocol/oasis-sdk/scheduler"
	"github.com/oasisprotocol/oasis-sdk/scheduler/host"
	"github.com/oasisprotocol/oasis-sdk/submitter"
)

var logger = logging.GetLogger("rofl-scheduler")

// fileConfig is the on-disk configuration format, loaded from TOML via viper.
type fileConfig struct {
	// Network describes the Oasis node this scheduler talks to.
	Network config.Network `mapstructure:"network"`
	// ParaTime describes the runtime the roflmarket module lives on.
	ParaTime config.ParaTime `mapstructure:"paratime"`
	// SigningKey is the base64-encoded raw Ed25519 key the scheduler signs transactions with.
	SigningKey string `mapstructure:"signing_key"`
	// FeeDenomination is the denomination transaction fees are paid in. Empty means the
	// paratime's native token.
	FeeDenomination string `mapstructure:"fee_denomination"`
	// GasPrice is the floor gas price used when the queried minimum is zero.
	GasPrice uint64 `mapstructure:"gas_price"`
	// HostSocketPath is the local host RPC socket the scheduler talks to for bundle/volume
	// management.
	HostSocketPath string `mapstructure:"host_socket_path"`
	// Local is the provider-specific policy and capacity configuration.
	Local scheduler.LocalConfig `mapstructure:"local"`
}

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:     "rofl-scheduler",
		Short:   "Off-chain control loop for a ROFL marketplace provider",
		Version: "0.1.0",
		RunE:    run,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "scheduler.toml", "path to scheduler configuration file")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*fileConfig, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := fc.Network.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network configuration: %w", err)
	}
	return &fc, nil
}

func run(cmd *cobra.Command, args []string) error {
	fc, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	signer, err := scheduler.LoadSigner(fc.SigningKey)
	if err != nil {
		return err
	}
	pk, ok := signer.Public().(sdkEd25519.PublicKey)
	if !ok {
		return fmt.Errorf("rofl-scheduler: signing key is not Ed25519")
	}
	spec := types.NewSignatureAddressSpecEd25519(pk)

	conn, err := connection.Connect(ctx, &fc.Network)
	if err != nil {
		return fmt.Errorf("connecting to node: %w", err)
	}
	rc := conn.Runtime(&fc.ParaTime)

	h, err := host.Dial(ctx, fc.HostSocketPath)
	if err != nil {
		return fmt.Errorf("connecting to host: %w", err)
	}
	defer h.Close()

	identity, err := h.Identity()
	if err != nil {
		return fmt.Errorf("querying host identity: %w", err)
	}
	var nodeID coreSignature.PublicKey
	if err := nodeID.UnmarshalText([]byte(identity.NodeID)); err != nil {
		return fmt.Errorf("parsing host node ID: %w", err)
	}

	var runtimeID common.Namespace
	if err := runtimeID.UnmarshalHex(fc.ParaTime.ID); err != nil {
		return fmt.Errorf("parsing paratime id: %w", err)
	}
	chainCtx := &sdkSignature.RichContext{
		RuntimeID:    runtimeID,
		ChainContext: fc.Network.ChainContext,
		Base:         types.SignatureContextBase,
	}

	denom := types.Denomination(fc.FeeDenomination)
	sub := submitter.New(rc, h, chainCtx, denom, fc.GasPrice)
	sub.Start()
	defer sub.Stop()

	mgr, err := scheduler.NewManager(fc.Local, rc, h, sub, signer, spec, nodeID)
	if err != nil {
		return fmt.Errorf("constructing manager: %w", err)
	}

	logger.Info("starting scheduler", "provider", fc.Local.ProviderAddress)
	mgr.Run(ctx)
	return nil
}
