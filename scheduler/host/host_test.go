package host

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	orcHash "github.com/oasisprotocol/oasis-core/go/common/crypto/hash"
)

// fakeHost is a minimal stand-in for the real ROFL host daemon, serving just enough of the
// newline-delimited JSON-RPC protocol to exercise the client's framing and error handling.
type fakeHost struct {
	ln       net.Listener
	handlers map[string]func(json.RawMessage) (interface{}, *rpcError)
}

func startFakeHost(t *testing.T) (*fakeHost, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "host.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)

	fh := &fakeHost{ln: ln, handlers: make(map[string]func(json.RawMessage) (interface{}, *rpcError))}
	go fh.serve(t)
	t.Cleanup(func() { ln.Close() })
	return fh, sockPath
}

func (fh *fakeHost) serve(t *testing.T) {
	for {
		conn, err := fh.ln.Accept()
		if err != nil {
			return
		}
		go fh.handleConn(t, conn)
	}
}

func (fh *fakeHost) handleConn(t *testing.T, conn net.Conn) {
	defer conn.Close()
	dec := bufio.NewReader(conn)
	enc := json.NewEncoder(conn)
	for {
		line, err := dec.ReadBytes('\n')
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		handler, ok := fh.handlers[req.Method]
		var rsp response
		rsp.ID = req.ID
		if !ok {
			rsp.Error = &rpcError{Message: "unknown method " + req.Method}
		} else {
			result, rpcErr := handler(nil)
			if rpcErr != nil {
				rsp.Error = rpcErr
			} else {
				raw, err := json.Marshal(result)
				require.NoError(t, err)
				rsp.Result = raw
			}
		}
		require.NoError(t, enc.Encode(rsp))
	}
}

func TestBundleListRoundTrip(t *testing.T) {
	require := require.New(t)

	fh, sockPath := startFakeHost(t)
	fh.handlers["bundle_manager.list"] = func(json.RawMessage) (interface{}, *rpcError) {
		return []BundleInfo{{TemporaryName: "instance-1", Labels: map[string]string{LabelInstanceID: "1"}}}, nil
	}

	h, err := Dial(context.Background(), sockPath)
	require.NoError(err)
	defer h.Close()

	bundles, err := h.BundleList(BundleListRequest{})
	require.NoError(err)
	require.Len(bundles, 1)
	require.Equal("instance-1", bundles[0].TemporaryName)
}

func TestIdentityRoundTrip(t *testing.T) {
	require := require.New(t)

	fh, sockPath := startFakeHost(t)
	fh.handlers["host.identity"] = func(json.RawMessage) (interface{}, *rpcError) {
		return IdentityResponse{NodeID: "abc123"}, nil
	}

	h, err := Dial(context.Background(), sockPath)
	require.NoError(err)
	defer h.Close()

	id, err := h.Identity()
	require.NoError(err)
	require.Equal("abc123", id.NodeID)
}

func TestCallPropagatesRPCError(t *testing.T) {
	require := require.New(t)

	fh, sockPath := startFakeHost(t)
	fh.handlers["volume_manager.add"] = func(json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Message: "no space left"}
	}

	h, err := Dial(context.Background(), sockPath)
	require.NoError(err)
	defer h.Close()

	_, err = h.VolumeAdd(VolumeAddRequest{})
	require.ErrorContains(err, "no space left")
}

func TestDialFailsOnMissingSocket(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "does-not-exist.sock"))
	require.Error(t, err)
}

func TestLabelsForInstance(t *testing.T) {
	labels := LabelsForInstance("instance-42")
	require.Equal(t, "instance-42", labels[LabelInstanceID])
}

func TestSubmitTxRoundTrip(t *testing.T) {
	require := require.New(t)

	fh, sockPath := startFakeHost(t)
	fh.handlers["host.submit_tx"] = func(json.RawMessage) (interface{}, *rpcError) {
		return SubmitTxResponse{Output: []byte("result-bytes"), Round: 7}, nil
	}

	h, err := Dial(context.Background(), sockPath)
	require.NoError(err)
	defer h.Close()

	rsp, err := h.SubmitTx(SubmitTxRequest{Data: []byte("raw-tx"), Wait: true})
	require.NoError(err)
	require.Equal(uint64(7), rsp.Round)
	require.Equal([]byte("result-bytes"), rsp.Output)
}

func TestStorageGetRoundTrip(t *testing.T) {
	require := require.New(t)

	fh, sockPath := startFakeHost(t)
	fh.handlers["storage.get"] = func(json.RawMessage) (interface{}, *rpcError) {
		return StorageGetResponse{Value: []byte("value"), Root: []byte("root"), Proof: [][]byte{[]byte("sibling")}}, nil
	}

	h, err := Dial(context.Background(), sockPath)
	require.NoError(err)
	defer h.Close()

	rsp, err := h.StorageGet(StorageGetRequest{Round: 1, RootType: RootTypeIO, Key: []byte("key")})
	require.NoError(err)
	require.Equal([]byte("value"), rsp.Value)
	require.Equal([][]byte{[]byte("sibling")}, rsp.Proof)
}

func TestVerifyStorageProof(t *testing.T) {
	require := require.New(t)

	key, value := []byte("the-key"), []byte("the-value")
	leaf := orcHash.NewFromBytes(key, value)
	sibling := orcHash.NewFromBytes([]byte("sibling-data"))
	root := orcHash.NewFromBytes(leaf[:], sibling[:])

	require.True(VerifyStorageProof(key, value, [][]byte{sibling[:]}, root[:]))
	require.False(VerifyStorageProof(key, []byte("wrong-value"), [][]byte{sibling[:]}, root[:]))
	require.False(VerifyStorageProof(key, value, [][]byte{[]byte("wrong-sibling")}, root[:]))
}
