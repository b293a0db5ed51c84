package compliance

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the current surface manifest format version.
const ManifestVersion = "1"

// SurfaceManifest overrides the built-in surfaces from YAML.
type SurfaceManifest struct {
	Version  string    `json:"version" yaml:"version"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Surfaces []Surface `json:"surfaces" yaml:"surfaces"`
	Source   string    `json:"-" yaml:"-"`
}

// ReadManifest loads a manifest file from disk.
func ReadManifest(path string) (*SurfaceManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("compliance: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("compliance: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest, checks it against the schema and decodes
// it strictly.
func DecodeManifest(r io.Reader) (*SurfaceManifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compliance: read manifest: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("compliance: manifest is empty")
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("compliance: parse manifest: %w", err)
	}
	if m, ok := tree.(map[string]any); ok && m["version"] != nil {
		m["version"] = fmt.Sprint(m["version"])
	}
	if err := ValidateManifestValue(tree); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var doc SurfaceManifest
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("compliance: parse manifest: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the constraints the schema cannot express.
func (doc *SurfaceManifest) Validate() error {
	if doc.Version != ManifestVersion {
		return fmt.Errorf("compliance: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[SurfaceKind]struct{}, len(doc.Surfaces))
	for idx, surface := range doc.Surfaces {
		if _, err := ParseSurfaceKind(string(surface.Kind)); err != nil {
			return fmt.Errorf("compliance: manifest surface at index %d: %w", idx, err)
		}
		if _, dup := seen[surface.Kind]; dup {
			return fmt.Errorf("compliance: manifest duplicates surface %s", surface.Kind)
		}
		seen[surface.Kind] = struct{}{}
		if surface.Kind == SurfaceFormTab && surface.HasFilter(FilterCustomer) {
			return fmt.Errorf("compliance: form_tab surface cannot mount a customer filter")
		}
		dims := make(map[FilterDimension]struct{}, len(surface.Filters))
		for _, f := range surface.Filters {
			if _, dup := dims[f.Dimension]; dup {
				return fmt.Errorf("compliance: surface %s mounts filter %s twice", surface.Kind, f.Dimension)
			}
			dims[f.Dimension] = struct{}{}
		}
		charts := make(map[string]struct{}, len(surface.Charts))
		for _, c := range surface.Charts {
			if _, dup := charts[c.Key]; dup {
				return fmt.Errorf("compliance: surface %s duplicates chart %s", surface.Kind, c.Key)
			}
			charts[c.Key] = struct{}{}
		}
	}
	return nil
}

// Apply overlays the manifest onto base, replacing whole surfaces by kind.
func (doc *SurfaceManifest) Apply(base map[SurfaceKind]Surface) map[SurfaceKind]Surface {
	out := make(map[SurfaceKind]Surface, len(base))
	for kind, surface := range base {
		out[kind] = surface
	}
	if doc == nil {
		return out
	}
	for _, surface := range doc.Surfaces {
		out[surface.Kind] = surface.normalized()
	}
	return out
}

// Encode writes the manifest as YAML.
func (doc *SurfaceManifest) Encode(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("compliance: encode manifest: %w", err)
	}
	return encoder.Close()
}

// DefaultManifest describes the built-in surfaces.
func DefaultManifest() *SurfaceManifest {
	return &SurfaceManifest{
		Version:  ManifestVersion,
		Name:     "default",
		Surfaces: []Surface{PageSurface(), FormTabSurface(), IndicatorSurface()},
	}
}
