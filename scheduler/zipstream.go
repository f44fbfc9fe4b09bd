package scheduler

import (
	"archive/zip"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	orcHash "github.com/oasisprotocol/oasis-core/go/common/crypto/hash"
)

// bundleWriter streams pulled OCI layers straight into a ZIP archive shaped like an ORC bundle,
// verifying each layer's digest as it is produced and (for the one layer designated the stage2
// disk image) capturing enough of its leading bytes to parse a QCOW2 header — all without ever
// buffering a whole layer in memory. archive/zip is the stdlib answer here since no third-party
// streaming zip writer appears anywhere in the example pack.
type bundleWriter struct {
	zw *zip.Writer
}

func newBundleWriter(w io.Writer) *bundleWriter {
	return &bundleWriter{zw: zip.NewWriter(w)}
}

// WriteManifest writes the (possibly rewritten) ORC manifest as the archive's first entry.
func (b *bundleWriter) WriteManifest(name string, data []byte) error {
	fw, err := b.zw.Create(name)
	if err != nil {
		return fmt.Errorf("scheduler: creating manifest entry: %w", err)
	}
	_, err = fw.Write(data)
	return err
}

// entryHasher tees everything written to it into a running digest and, up to a fixed cap, into
// a header-capture buffer.
type entryHasher struct {
	w       io.Writer
	hasher  hash.Hash
	capture []byte
	capCap  int
}

func (e *entryHasher) Write(p []byte) (int, error) {
	e.hasher.Write(p)
	if e.capCap > 0 && len(e.capture) < e.capCap {
		n := e.capCap - len(e.capture)
		if n > len(p) {
			n = len(p)
		}
		e.capture = append(e.capture, p[:n]...)
	}
	return e.w.Write(p)
}

// WriteLayer streams r into a new archive entry named name, returning its SHA-512/256 digest
// for comparison against the ORC manifest's declared digest. If captureHeader is set, the first
// qcow2MinHeaderLen bytes written are also returned so the caller can parse a QCOW2 header
// without a second pass over the layer.
func (b *bundleWriter) WriteLayer(name string, r io.Reader, captureHeader bool) (digest orcHash.Hash, headerBytes []byte, err error) {
	fw, err := b.zw.Create(name)
	if err != nil {
		return orcHash.Hash{}, nil, fmt.Errorf("scheduler: creating layer entry %q: %w", name, err)
	}
	capCap := 0
	if captureHeader {
		capCap = qcow2MinHeaderLen
	}
	eh := &entryHasher{w: fw, hasher: sha512.New512_256(), capCap: capCap}
	if _, err := io.Copy(eh, r); err != nil {
		return orcHash.Hash{}, nil, fmt.Errorf("scheduler: streaming layer %q: %w", name, err)
	}
	var h orcHash.Hash
	copy(h[:], eh.hasher.Sum(nil))
	return h, eh.capture, nil
}

// Close finalizes the archive's central directory.
func (b *bundleWriter) Close() error {
	return b.zw.Close()
}
