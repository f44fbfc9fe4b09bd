// Package host is a client for the local ROFL host protocol: a newline-delimited JSON-RPC
// channel over a Unix domain socket that every ROFL app component uses to ask its host node to
// manage bundles and volumes, submit transactions, and read proven storage on its behalf, since
// an app component itself has no direct filesystem or network access outside its sealed runtime.
//
// No Go client for this protocol exists anywhere in the retrieved SDK — only the app-side host
// trait (bundle_manager/volume_manager/submit_tx) the scheduler's control loop and transaction
// submitter are modeled on. This package is a from-scratch client grounded in that trait's call
// shapes, using encoding/json and net for the wire format since no third-party RPC library in the
// pack speaks it. The storage proof scheme VerifyStorageProof checks is likewise invented: no
// Go implementation of the runtime's actual Merkle tree encoding exists anywhere in the pack to
// ground a byte-exact one on.
package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	orcHash "github.com/oasisprotocol/oasis-core/go/common/crypto/hash"
)

// LabelInstanceID is the bundle/volume label the scheduler tags every resource it creates with,
// so a later bundle_manager.list/volume_manager.list can be filtered back down to just the
// resources belonging to a given instance.
const LabelInstanceID = "net.oasis.scheduler.instance_id"

// LabelDeploymentHash is the bundle label recording the deployment descriptor the bundle was
// started from, so a later tick can tell whether a running bundle is already up to date.
const LabelDeploymentHash = "net.oasis.scheduler.deployment_hash"

// LabelVolumeName names which manifest-declared volume a host volume backs, for instances with
// more than one declared volume (currently always "000": only a single volume is supported).
const LabelVolumeName = "net.oasis.scheduler.volume_name"

// BundleInfo describes a bundle already known to the host.
type BundleInfo struct {
	TemporaryName string            `json:"temporary_name"`
	Labels        map[string]string `json:"labels"`
}

// BundleAddRequest promotes a bundle previously streamed in under TemporaryName (via
// BundleWrite) into a running instance, tagging it with Labels and wiring in any Volumes it
// declared (keyed by the manifest's volume name, valued by the host volume ID backing it).
type BundleAddRequest struct {
	TemporaryName string            `json:"temporary_name"`
	ManifestHash  string            `json:"manifest_hash"`
	Labels        map[string]string `json:"labels"`
	Volumes       map[string]string `json:"volumes"`
}

// BundleWriteRequest appends a chunk of raw bundle archive data under TemporaryName. Create
// must be set on the first chunk to start a fresh bundle; every call after that appends.
type BundleWriteRequest struct {
	TemporaryName string `json:"temporary_name"`
	Create        bool   `json:"create"`
	Data          []byte `json:"data"`
}

// BundleListRequest filters the host's known bundles by label. An empty Labels set matches every
// bundle.
type BundleListRequest struct {
	Labels map[string]string `json:"labels"`
}

// BundleRemoveRequest stops and deletes every bundle matching Labels.
type BundleRemoveRequest struct {
	Labels map[string]string `json:"labels"`
}

// VolumeInfo describes a volume already known to the host.
type VolumeInfo struct {
	ID     string            `json:"id"`
	Labels map[string]string `json:"labels"`
}

// VolumeAddRequest creates a new, empty persistent volume.
type VolumeAddRequest struct {
	Labels map[string]string `json:"labels"`
}

// VolumeListRequest filters the host's known volumes by label. An empty Labels set matches
// every volume.
type VolumeListRequest struct {
	Labels map[string]string `json:"labels"`
}

// VolumeRemoveRequest deletes every volume matching Labels.
type VolumeRemoveRequest struct {
	Labels map[string]string `json:"labels"`
}

// IdentityResponse reports the host node's identity, used by the scheduler to recognize its own
// NodeID in instance records it owns.
type IdentityResponse struct {
	NodeID string `json:"node_id"`
}

// SubmitTxRequest asks the host to broadcast a raw signed transaction, optionally blocking until
// it lands.
type SubmitTxRequest struct {
	Data []byte `json:"data"`
	Wait bool   `json:"wait"`
}

// SubmitTxResponse carries the call's output and the round it was included in. Output is only
// populated when the request set Wait.
type SubmitTxResponse struct {
	Output []byte `json:"output"`
	Round  uint64 `json:"round"`
}

// Storage root types, naming which of a round's two committed trees a StorageGetRequest reads
// from.
const (
	RootTypeIO    = "io"
	RootTypeState = "state"
)

// StorageGetRequest asks for a Merkle-proven read of Key against the tree of RootType committed
// at Round.
type StorageGetRequest struct {
	Round    uint64 `json:"round"`
	RootType string `json:"root_type"`
	Key      []byte `json:"key"`
}

// StorageGetResponse is a Merkle-proven key lookup. Value is the committed leaf payload, Root is
// the tree root the host claims for the request's Round/RootType, and Proof is an ordered
// leaf-to-root chain of sibling digests that VerifyStorageProof folds over Key and Value to
// check it reduces to Root.
type StorageGetResponse struct {
	Value []byte   `json:"value"`
	Root  []byte   `json:"root"`
	Proof [][]byte `json:"proof"`
}

// Host is a connection to the local host RPC socket.
type Host struct {
	conn net.Conn
	mu   sync.Mutex
	enc  *json.Encoder
	dec  *bufio.Reader
	seq  uint64
}

// Dial connects to the host RPC socket at path.
func Dial(ctx context.Context, path string) (*Host, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("host: dialing %s: %w", path, err)
	}
	return &Host{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  bufio.NewReader(conn),
	}, nil
}

// Close closes the underlying socket.
func (h *Host) Close() error {
	return h.conn.Close()
}

type request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

func (h *Host) call(method string, params, result interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := atomic.AddUint64(&h.seq, 1)
	if err := h.enc.Encode(request{ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("host: %s: writing request: %w", method, err)
	}

	line, err := h.dec.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("host: %s: reading response: %w", method, err)
	}
	var rsp response
	if err := json.Unmarshal(line, &rsp); err != nil {
		return fmt.Errorf("host: %s: malformed response: %w", method, err)
	}
	if rsp.Error != nil {
		return fmt.Errorf("host: %s: %w", method, rsp.Error)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(rsp.Result, result)
}

// BundleList lists bundles matching the given labels.
func (h *Host) BundleList(req BundleListRequest) ([]BundleInfo, error) {
	var bundles []BundleInfo
	err := h.call("bundle_manager.list", req, &bundles)
	return bundles, err
}

// BundleAdd promotes a streamed-in bundle into a running instance.
func (h *Host) BundleAdd(req BundleAddRequest) error {
	return h.call("bundle_manager.add", req, nil)
}

// BundleWrite appends a chunk to a bundle in progress.
func (h *Host) BundleWrite(req BundleWriteRequest) error {
	return h.call("bundle_manager.write", req, nil)
}

// BundleRemove stops and deletes every bundle matching the request's labels.
func (h *Host) BundleRemove(req BundleRemoveRequest) error {
	return h.call("bundle_manager.remove", req, nil)
}

// VolumeList lists volumes matching the given labels.
func (h *Host) VolumeList(req VolumeListRequest) ([]VolumeInfo, error) {
	var volumes []VolumeInfo
	err := h.call("volume_manager.list", req, &volumes)
	return volumes, err
}

// VolumeAdd creates a new volume and returns its host-assigned ID.
func (h *Host) VolumeAdd(req VolumeAddRequest) (string, error) {
	var rsp struct {
		ID string `json:"id"`
	}
	err := h.call("volume_manager.add", req, &rsp)
	return rsp.ID, err
}

// VolumeRemove deletes every volume matching the request's labels.
func (h *Host) VolumeRemove(req VolumeRemoveRequest) error {
	return h.call("volume_manager.remove", req, nil)
}

// Identity returns the host node's identity.
func (h *Host) Identity() (IdentityResponse, error) {
	var rsp IdentityResponse
	err := h.call("host.identity", nil, &rsp)
	return rsp, err
}

// SubmitTx broadcasts a raw signed transaction through the host's transaction scheduler.
func (h *Host) SubmitTx(req SubmitTxRequest) (SubmitTxResponse, error) {
	var rsp SubmitTxResponse
	err := h.call("host.submit_tx", req, &rsp)
	return rsp, err
}

// StorageGet fetches a Merkle-proven value from the host's view of a committed round.
func (h *Host) StorageGet(req StorageGetRequest) (StorageGetResponse, error) {
	var rsp StorageGetResponse
	err := h.call("storage.get", req, &rsp)
	return rsp, err
}

// VerifyStorageProof checks that folding Proof's sibling digests onto the leaf digest of key and
// value reduces to root, confirming the host's reported value is the one actually committed at
// that root rather than one it merely claims. This is a simplified binary hash chain, not a
// byte-exact reconstruction of the runtime's own Merkle tree encoding: it is meant to catch a
// host that lies about a value, not to be verified against an independently computed root from
// chain state.
func VerifyStorageProof(key, value []byte, proof [][]byte, root []byte) bool {
	node := orcHash.NewFromBytes(key, value)
	for _, sibling := range proof {
		node = orcHash.NewFromBytes(node[:], sibling)
	}
	return bytes.Equal(node[:], root)
}

// LabelsForInstance builds the label set the scheduler tags every bundle and volume belonging
// to instanceID with.
func LabelsForInstance(instanceID string) map[string]string {
	return map[string]string{LabelInstanceID: instanceID}
}
