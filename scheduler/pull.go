package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"

	orcHash "github.com/oasisprotocol/oasis-core/go/common/crypto/hash"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
	"github.com/oasisprotocol/oasis-sdk/scheduler/host"
	"github.com/oasisprotocol/oasis-sdk/scheduler/manifest"
)

// pullChunkSize is the unit the reassembled bundle is streamed to the host in. It mirrors the
// ORC layer's own streaming granularity so the host write pipeline never buffers more than one
// chunk's worth of data beyond what the OCI client and zip writer already hold.
const pullChunkSize = 128 * 1024

// deploymentInfo is what pullAndValidateDeployment hands back once a bundle has been pulled,
// repackaged, and streamed to the host under a temporary name, ready to be promoted into a
// running instance.
type deploymentInfo struct {
	TemporaryName string
	ManifestHash  orcHash.Hash
	Volumes       []string
}

// pullAndValidateDeployment fetches deployment's ORC bundle from the OCI registry its metadata
// points at, validates its manifest and every layer's digest against the provider's local
// policy and the instance's purchased resources, and streams the reassembled bundle to the host
// under a temporary, instance-scoped name.
func (m *Manager) pullAndValidateDeployment(ctx context.Context, instance *roflmarket.Instance, deployment *roflmarket.Deployment) (*deploymentInfo, error) {
	rawRef, ok := deployment.Metadata[MetadataKeyDeploymentORCRef]
	if !ok {
		return nil, fmt.Errorf("scheduler: deployment has no bundle location set")
	}
	ref, err := registry.ParseReference(rawRef)
	if err != nil {
		return nil, fmt.Errorf("scheduler: bad bundle location %q: %w", rawRef, err)
	}
	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("scheduler: opening registry repository: %w", err)
	}

	manifestDesc, manifestRC, err := oras.Fetch(ctx, repo, ref.Reference, oras.DefaultFetchOptions)
	if err != nil {
		return nil, fmt.Errorf("scheduler: pulling OCI manifest: %w", err)
	}
	manifestBytes, err := content.ReadAll(manifestRC, manifestDesc)
	manifestRC.Close()
	if err != nil {
		return nil, fmt.Errorf("scheduler: reading OCI manifest: %w", err)
	}
	var ociManifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &ociManifest); err != nil {
		return nil, fmt.Errorf("scheduler: malformed OCI manifest: %w", err)
	}

	if ociManifest.Config.MediaType != manifest.ConfigMediaType {
		return nil, fmt.Errorf("scheduler: invalid ORC config media type %q", ociManifest.Config.MediaType)
	}
	totalSize := ociManifest.Config.Size
	if totalSize > manifest.MaxManifestSize {
		return nil, fmt.Errorf("scheduler: ORC manifest too big: %d bytes", totalSize)
	}
	for _, layer := range ociManifest.Layers {
		if layer.MediaType != manifest.LayerMediaType {
			return nil, fmt.Errorf("scheduler: invalid ORC layer media type %q", layer.MediaType)
		}
		if layer.Size > manifest.MaxLayerSize {
			return nil, fmt.Errorf("scheduler: ORC layer %q too big: %d bytes", layer.Digest, layer.Size)
		}
		totalSize += layer.Size
	}
	if totalSize > manifest.MaxTotalPullSize {
		return nil, fmt.Errorf("scheduler: ORC bundle too big: %d bytes total", totalSize)
	}

	configRC, err := repo.Fetch(ctx, ociManifest.Config)
	if err != nil {
		return nil, fmt.Errorf("scheduler: pulling ORC config: %w", err)
	}
	configBytes, err := content.ReadAll(configRC, ociManifest.Config)
	configRC.Close()
	if err != nil {
		return nil, fmt.Errorf("scheduler: reading ORC config: %w", err)
	}

	newManifestHash := manifest.Hash(configBytes)
	if newManifestHash != deployment.ManifestHash {
		return nil, fmt.Errorf("scheduler: ORC manifest hash mismatch")
	}
	orcManifest, err := manifest.Parse(configBytes)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid ORC manifest: %w", err)
	}
	if err := orcManifest.ValidateResources(instance.Resources); err != nil {
		return nil, err
	}
	if err := orcManifest.ValidateArtifacts(m.cfg.AllowlistSet()); err != nil {
		return nil, err
	}

	artifacts, _ := orcManifest.Artifacts()
	stage2Name := ""
	var volumes []string
	if orcManifest.HasPersistentVolume() {
		stage2Name = artifacts.Stage2Image
		volumes = []string{stage2Name}
	}

	tempName := fmt.Sprintf("instance-%s", instance.ID.String())
	availableStorage := instance.Resources.Storage * 1024 * 1024

	pr, pw := io.Pipe()
	packErrCh := make(chan error, 1)
	go func() {
		packErrCh <- packBundle(ctx, repo, &ociManifest, orcManifest, configBytes, stage2Name, availableStorage, pw)
		pw.Close()
	}()

	if err := m.streamBundleToHost(ctx, tempName, pr); err != nil {
		return nil, fmt.Errorf("scheduler: streaming bundle to host: %w", err)
	}
	if err := <-packErrCh; err != nil {
		return nil, err
	}

	return &deploymentInfo{TemporaryName: tempName, ManifestHash: newManifestHash, Volumes: volumes}, nil
}

// packBundle pulls every OCI layer and repackages it, along with the (possibly rewritten)
// manifest, into a ZIP archive written to w, verifying each layer's digest and the running
// storage total as it goes.
func packBundle(ctx context.Context, repo *remote.Repository, oci *ocispec.Manifest, orc *manifest.Manifest, configBytes []byte, stage2Name string, availableStorage uint64, w io.Writer) error {
	bw := newBundleWriter(w)
	if err := bw.WriteManifest(manifest.ManifestFileName, configBytes); err != nil {
		return err
	}

	var totalStorage uint64
	for _, layer := range oci.Layers {
		name, ok := layer.Annotations[ocispec.AnnotationTitle]
		if !ok || name == "" {
			return fmt.Errorf("scheduler: OCI layer missing title annotation")
		}

		rc, err := repo.Fetch(ctx, layer)
		if err != nil {
			return fmt.Errorf("scheduler: pulling layer %q: %w", name, err)
		}
		isStage2 := stage2Name != "" && name == stage2Name
		digest, header, err := bw.WriteLayer(name, rc, isStage2)
		rc.Close()
		if err != nil {
			return err
		}

		expected, ok := orc.Digests[name]
		if !ok {
			return fmt.Errorf("scheduler: ORC manifest missing digest for layer %q", name)
		}
		if expected != digest {
			return fmt.Errorf("scheduler: digest mismatch for layer %q", name)
		}

		if isStage2 {
			hdr, err := parseQCOW2Header(header)
			if err != nil {
				return fmt.Errorf("scheduler: layer %q: %w", name, err)
			}
			totalStorage += hdr.SizeBytes
			if totalStorage > availableStorage {
				return fmt.Errorf("scheduler: ORC exceeds instance storage resources")
			}
		}
	}
	return bw.Close()
}

// streamBundleToHost reads the assembled archive from r in fixed-size chunks and writes each to
// the host's bundle manager under name, creating the bundle on the first chunk.
func (m *Manager) streamBundleToHost(ctx context.Context, name string, r io.Reader) error {
	buf := make([]byte, pullChunkSize)
	create := true
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := m.host.BundleWrite(host.BundleWriteRequest{TemporaryName: name, Create: create, Data: chunk}); werr != nil {
				return werr
			}
			create = false
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
