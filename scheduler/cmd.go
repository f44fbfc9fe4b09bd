package scheduler

import (
	"github.com/oasisprotocol/oasis-core/go/common/cbor"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
)

// Scheduler-specific command methods, CBOR-encoded into roflmarket.QueuedCommand.Cmd. These are
// opaque to the on-chain module; it only stores and orders them.
const (
	MethodDeploy    = "Deploy"
	MethodTerminate = "Terminate"
	MethodRestart   = "Restart"
)

// Command is the envelope every queued instance command is wrapped in.
type Command struct {
	Method string          `json:"method"`
	Args   cbor.RawMessage `json:"args"`
}

// DeployRequest asks the scheduler to replace an instance's running deployment.
type DeployRequest struct {
	Deployment  roflmarket.Deployment `json:"deployment"`
	WipeStorage bool                  `json:"wipe_storage"`
}

// TerminateRequest asks the scheduler to stop an instance's deployment without replacing it.
type TerminateRequest struct {
	WipeStorage bool `json:"wipe_storage"`
}

// RestartRequest asks the scheduler to restart the instance's current deployment in place.
type RestartRequest struct {
	WipeStorage bool `json:"wipe_storage"`
}

// NewCommand CBOR-encodes method and its arguments into the wire form InstanceExecuteCmds
// expects.
func NewCommand(method string, args interface{}) []byte {
	return cbor.Marshal(Command{Method: method, Args: cbor.Marshal(args)})
}

// decodeCommand decodes a single queued command envelope, returning ok=false for anything
// malformed or using a method this scheduler doesn't recognize, so discover() can skip it
// instead of failing the whole tick.
func decodeCommand(raw []byte) (cmd Command, ok bool) {
	if err := cbor.Unmarshal(raw, &cmd); err != nil {
		return Command{}, false
	}
	switch cmd.Method {
	case MethodDeploy, MethodTerminate, MethodRestart:
		return cmd, true
	default:
		return Command{}, false
	}
}
