package scheduler

import (
	"encoding/binary"
	"fmt"
)

// qcow2Magic is the fixed 4-byte signature every QCOW2 image starts with.
var qcow2Magic = [4]byte{'Q', 'F', 'I', 0xfb}

// qcow2MinHeaderLen is enough of the header to reach the virtual disk size field; the rest of
// the header (snapshot tables, feature bitmaps, extensions) is irrelevant to capacity planning.
const qcow2MinHeaderLen = 32

// qcow2Header is the subset of a QCOW2 image header the scheduler needs to validate declared
// storage usage against an instance's purchased storage allotment, without needing to read the
// rest of the image.
type qcow2Header struct {
	Version    uint32
	ClusterBits uint32
	// SizeBytes is the virtual disk size, i.e. how much storage this volume will claim once
	// fully allocated.
	SizeBytes uint64
}

// parseQCOW2Header reads the disk-size declaration out of the first bytes of a QCOW2 image. No
// QCOW2-aware library exists anywhere in the retrieved dependency set, so this hand-decodes the
// fixed-layout portion of the header directly via encoding/binary, which is the idiomatic
// approach for a one-off binary struct with no surrounding ecosystem support.
func parseQCOW2Header(buf []byte) (qcow2Header, error) {
	if len(buf) < qcow2MinHeaderLen {
		return qcow2Header{}, fmt.Errorf("scheduler: qcow2 header truncated: got %d bytes", len(buf))
	}
	if [4]byte(buf[0:4]) != qcow2Magic {
		return qcow2Header{}, fmt.Errorf("scheduler: not a qcow2 image (bad magic)")
	}
	version := binary.BigEndian.Uint32(buf[4:8])
	if version < 2 || version > 3 {
		return qcow2Header{}, fmt.Errorf("scheduler: unsupported qcow2 version %d", version)
	}
	// Layout from the qcow2 spec: magic(4) version(4) backing_file_offset(8)
	// backing_file_size(4) cluster_bits(4) size(8) ...
	clusterBits := binary.BigEndian.Uint32(buf[20:24])
	size := binary.BigEndian.Uint64(buf[24:32])
	if clusterBits < 9 || clusterBits > 21 {
		return qcow2Header{}, fmt.Errorf("scheduler: implausible qcow2 cluster_bits %d", clusterBits)
	}
	return qcow2Header{Version: version, ClusterBits: clusterBits, SizeBytes: size}, nil
}
