package scheduler

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildHeader(version, clusterBits uint32, size uint64) []byte {
	buf := make([]byte, qcow2MinHeaderLen)
	copy(buf[0:4], qcow2Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], version)
	binary.BigEndian.PutUint32(buf[20:24], clusterBits)
	binary.BigEndian.PutUint64(buf[24:32], size)
	return buf
}

func TestParseQCOW2HeaderHappyPath(t *testing.T) {
	require := require.New(t)

	hdr, err := parseQCOW2Header(buildHeader(3, 16, 10*1024*1024*1024))
	require.NoError(err)
	require.EqualValues(3, hdr.Version)
	require.EqualValues(16, hdr.ClusterBits)
	require.EqualValues(10*1024*1024*1024, hdr.SizeBytes)
}

func TestParseQCOW2HeaderTruncated(t *testing.T) {
	_, err := parseQCOW2Header(make([]byte, 10))
	require.Error(t, err)
}

func TestParseQCOW2HeaderBadMagic(t *testing.T) {
	buf := buildHeader(3, 16, 1024)
	buf[0] = 'X'
	_, err := parseQCOW2Header(buf)
	require.ErrorContains(t, err, "bad magic")
}

func TestParseQCOW2HeaderUnsupportedVersion(t *testing.T) {
	_, err := parseQCOW2Header(buildHeader(1, 16, 1024))
	require.ErrorContains(t, err, "unsupported")

	_, err = parseQCOW2Header(buildHeader(4, 16, 1024))
	require.ErrorContains(t, err, "unsupported")
}

func TestParseQCOW2HeaderImplausibleClusterBits(t *testing.T) {
	_, err := parseQCOW2Header(buildHeader(2, 3, 1024))
	require.ErrorContains(t, err, "cluster_bits")

	_, err = parseQCOW2Header(buildHeader(2, 30, 1024))
	require.ErrorContains(t, err, "cluster_bits")
}
