package registry

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// manifestFile mirrors the top-level structure of a manifest.hcl file.
type manifestFile struct {
	Providers []*providerBlock `hcl:"provider,block"`
}

type providerBlock struct {
	Type        string        `hcl:"type,label"`
	Description string        `hcl:"description,optional"`
	Open        bool          `hcl:"open,optional"`
	Inputs      []*inputBlock `hcl:"input,block"`
}

type inputBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Required    bool           `hcl:"required,optional"`
	Default     *string        `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

// RegisterManifest parses an HCL manifest source and registers every
// provider block it declares. The filename is used for diagnostics only.
func (r *Registry) RegisterManifest(filename string, src []byte) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	var mf manifestFile
	if diags := gohcl.DecodeBody(file.Body, nil, &mf); diags.HasErrors() {
		return fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}

	for _, pb := range mf.Providers {
		if _, exists := r.manifests[pb.Type]; exists {
			return fmt.Errorf("manifest %s: provider '%s' already declared", filename, pb.Type)
		}
		manifest := &Manifest{
			Type:        pb.Type,
			Description: pb.Description,
			Open:        pb.Open,
			Inputs:      make(map[string]*Input, len(pb.Inputs)),
		}
		for _, ib := range pb.Inputs {
			ty, diags := typeexpr.TypeConstraint(ib.Type)
			if diags.HasErrors() {
				return fmt.Errorf("manifest %s: input '%s' of provider '%s': %w",
					filename, ib.Name, pb.Type, diags)
			}
			in := &Input{
				Name:        ib.Name,
				Type:        ty,
				Required:    ib.Required,
				Description: ib.Description,
			}
			if ib.Default != nil {
				in.Default = *ib.Default
				in.HasDefault = true
			}
			if _, exists := manifest.Inputs[ib.Name]; exists {
				return fmt.Errorf("manifest %s: duplicate input '%s' for provider '%s'",
					filename, ib.Name, pb.Type)
			}
			manifest.Inputs[ib.Name] = in
		}
		slog.Debug("Registering provider manifest.", "name", pb.Type, "file", filename)
		r.manifests[pb.Type] = manifest
	}
	return nil
}

// MustRegisterManifest is RegisterManifest for embedded manifests, where a
// parse failure is a programmer error.
func (r *Registry) MustRegisterManifest(filename string, src []byte) {
	if err := r.RegisterManifest(filename, src); err != nil {
		panic(err)
	}
}
