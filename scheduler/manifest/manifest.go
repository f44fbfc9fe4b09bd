// Package manifest parses and validates ORC ("Oasis Runtime Container") bundle manifests: the
// config document of the OCI image a deployment references, describing the TEE components,
// their resource requirements, and the digests of the artifacts that make them up.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/oasisprotocol/oasis-core/go/common/crypto/hash"

	"github.com/oasisprotocol/oasis-sdk/client-sdk/go/modules/roflmarket"
)

// ConfigMediaType is the OCI config media type an ORC bundle's config layer must carry.
const ConfigMediaType = "application/vnd.oasis.orc.config.v1+json"

// ManifestFileName is the entry name the manifest is rewritten under inside the reassembled
// ORC archive.
const ManifestFileName = "manifest.json"

// LayerMediaType is the OCI media type used for every ORC bundle layer.
const LayerMediaType = "application/vnd.oasis.orc.layer.v1"

// Size caps enforced while pulling a bundle (spec.md §4.6).
const (
	MaxManifestSize  = 16 * 1024
	MaxLayerSize     = 128 * 1024 * 1024
	MaxTotalPullSize = 128 * 1024 * 1024
)

// Manifest is the decoded ORC config document: it declares exactly one component, which may
// target SGX or TDX hardware (or neither, for a plain ELF component on a non-TEE host).
type Manifest struct {
	Component Component `json:"component"`
	// Digests maps each artifact name referenced by Component to its SHA-512/256 digest.
	Digests map[string]hash.Hash `json:"digests"`
}

// Component describes a single deployable unit within the manifest.
type Component struct {
	ELF *ELFComponent `json:"elf,omitempty"`
	SGX *TDXComponent `json:"sgx,omitempty"`
	TDX *TDXComponent `json:"tdx,omitempty"`
}

// ELFComponent is a plain (non-TEE) executable component.
type ELFComponent struct {
	Executable string `json:"executable"`
}

// TDXComponent describes an SGX or TDX component's resource requirements and artifacts.
type TDXComponent struct {
	Resources TDXResources `json:"resources"`
	Artifacts TDXArtifacts `json:"artifacts"`
}

// TDXResources is the resource footprint declared for a TEE component.
type TDXResources struct {
	Memory uint64 `json:"memory"`
	CPUs   uint16 `json:"cpus"`
}

// TDXArtifacts names, by artifact name, the firmware/kernel/initrd/stage2 images that make up
// a TEE component. Names are looked up in the manifest's Digests table.
type TDXArtifacts struct {
	Firmware      string `json:"firmware"`
	Kernel        string `json:"kernel"`
	Initrd        string `json:"initrd,omitempty"`
	Stage2Image   string `json:"stage2_image,omitempty"`
	Stage2Persist bool   `json:"stage2_persist,omitempty"`
}

// Parse decodes a manifest from its JSON config document, rejecting anything past
// MaxManifestSize before attempting to decode it.
func Parse(data []byte) (*Manifest, error) {
	if len(data) > MaxManifestSize {
		return nil, fmt.Errorf("manifest: config exceeds %d bytes", MaxManifestSize)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: malformed config: %w", err)
	}
	if err := m.validateShape(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validateShape() error {
	c := m.Component
	count := 0
	if c.ELF != nil {
		count++
	}
	if c.SGX != nil {
		count++
	}
	if c.TDX != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("manifest: exactly one of elf/sgx/tdx must be set, got %d", count)
	}
	if len(m.stage2Names()) > 1 {
		return fmt.Errorf("manifest: multiple persistent stage2 volumes are not supported")
	}
	return nil
}

// stage2Names returns the names of any declared persistent stage2 volumes.
func (m *Manifest) stage2Names() []string {
	var names []string
	for _, tc := range []*TDXComponent{m.Component.SGX, m.Component.TDX} {
		if tc != nil && tc.Artifacts.Stage2Persist && tc.Artifacts.Stage2Image != "" {
			names = append(names, tc.Artifacts.Stage2Image)
		}
	}
	return names
}

// HasPersistentVolume reports whether the manifest declares a persistent stage2 volume.
func (m *Manifest) HasPersistentVolume() bool {
	return len(m.stage2Names()) == 1
}

// TEE returns the component's TEE kind, matching it against the declared resource.TeeType.
func (m *Manifest) TEE() (roflmarket.TeeType, bool) {
	switch {
	case m.Component.SGX != nil:
		return roflmarket.TeeTypeSGX, true
	case m.Component.TDX != nil:
		return roflmarket.TeeTypeTDX, true
	default:
		return 0, false
	}
}

// Resources returns the TEE component's declared resource footprint, if any.
func (m *Manifest) Resources() (TDXResources, bool) {
	switch {
	case m.Component.SGX != nil:
		return m.Component.SGX.Resources, true
	case m.Component.TDX != nil:
		return m.Component.TDX.Resources, true
	default:
		return TDXResources{}, false
	}
}

// Artifacts returns the TEE component's artifact name table, if any.
func (m *Manifest) Artifacts() (TDXArtifacts, bool) {
	switch {
	case m.Component.SGX != nil:
		return m.Component.SGX.Artifacts, true
	case m.Component.TDX != nil:
		return m.Component.TDX.Artifacts, true
	default:
		return TDXArtifacts{}, false
	}
}

// ValidateResources checks the component's declared resources against what was actually
// purchased for the instance.
func (m *Manifest) ValidateResources(want roflmarket.Resources) error {
	tee, ok := m.TEE()
	if !ok {
		return fmt.Errorf("manifest: component has no TEE kind to validate")
	}
	if tee != want.TEE {
		return fmt.Errorf("manifest: component TEE kind %d does not match instance resource TEE %d", tee, want.TEE)
	}
	res, _ := m.Resources()
	if res.Memory > want.Memory {
		return fmt.Errorf("manifest: component memory %d exceeds instance allotment %d", res.Memory, want.Memory)
	}
	if uint64(res.CPUs) > uint64(want.CPUCount) {
		return fmt.Errorf("manifest: component cpu count %d exceeds instance allotment %d", res.CPUs, want.CPUCount)
	}
	return nil
}

// ValidateArtifacts checks that every artifact name the component references appears in the
// manifest's digest table, and that every referenced digest appears in allowlist.
func (m *Manifest) ValidateArtifacts(allowlist map[hash.Hash]bool) error {
	artifacts, ok := m.Artifacts()
	if !ok {
		return nil
	}
	names := []string{artifacts.Firmware, artifacts.Kernel}
	if artifacts.Initrd != "" {
		names = append(names, artifacts.Initrd)
	}
	if artifacts.Stage2Image != "" {
		names = append(names, artifacts.Stage2Image)
	}
	for _, name := range names {
		digest, ok := m.Digests[name]
		if !ok {
			return fmt.Errorf("manifest: artifact %q has no digest entry", name)
		}
		if !allowlist[digest] {
			return fmt.Errorf("manifest: artifact %q digest %s is not allowlisted", name, digest)
		}
	}
	return nil
}

// Hash computes the canonical digest of the raw config document, for comparison against a
// deployment's committed ManifestHash.
func Hash(rawConfig []byte) hash.Hash {
	return hash.NewFromBytes(rawConfig)
}
