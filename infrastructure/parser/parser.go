// Package parser converts heterogeneous vendor capability descriptors into
// unified capability definitions. It is a pure transform: persistence is the
// caller's responsibility.
package parser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// descriptor is the structural shape shared by supported vendors, following
// the Zigbee2MQTT exposes convention: vendor/model identifiers plus a nested
// list of exposes, where composite exposes carry their own feature lists.
type descriptor struct {
	Vendor       string   `json:"vendor"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Integration  string   `json:"integration"`
	Description  string   `json:"description"`
	Exposes      []expose `json:"exposes"`
}

type expose struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Property string   `json:"property"`
	Values   []string `json:"values"`
	Features []expose `json:"features"`
}

// Parser parses raw vendor descriptors. Stateless; safe for concurrent use.
type Parser struct {
	// defaultIntegration fills the key when the descriptor omits it.
	defaultIntegration string
}

// Option configures the parser.
type Option func(*Parser)

// WithDefaultIntegration sets the integration used when descriptors omit one.
func WithDefaultIntegration(name string) Option {
	return func(p *Parser) {
		p.defaultIntegration = name
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{defaultIntegration: "zigbee"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw descriptor into a capability definition. A
// descriptor missing vendor or model yields ErrParseFailure and nothing is
// stored. Parsing is idempotent: the same input always yields the same
// definition (modulo LastUpdated).
func (p *Parser) Parse(raw capability.RawDescriptor) (*capability.Definition, error) {
	var doc descriptor
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", capability.ErrParseFailure, err)
	}

	vendor := doc.Vendor
	if vendor == "" {
		vendor = doc.Manufacturer
	}
	if vendor == "" {
		return nil, fmt.Errorf("%w: missing vendor", capability.ErrParseFailure)
	}
	if doc.Model == "" {
		return nil, fmt.Errorf("%w: missing model", capability.ErrParseFailure)
	}

	integration := doc.Integration
	if integration == "" {
		integration = p.defaultIntegration
	}

	def := &capability.Definition{
		Key: capability.Key{
			Vendor:      vendor,
			Model:       doc.Model,
			Integration: integration,
		},
		Description: doc.Description,
		LastUpdated: time.Now().UTC(),
	}

	for _, ex := range doc.Exposes {
		def.Features = append(def.Features, flatten(ex)...)
	}

	return def, nil
}

// flatten expands one expose into features. Composite exposes (light,
// climate, ...) contribute one feature per nested entry, carrying the
// composite's category; plain exposes contribute themselves.
func flatten(ex expose) []capability.Feature {
	if len(ex.Features) > 0 {
		parentCat := categoryFor(ex.Type, ex.Property)
		features := make([]capability.Feature, 0, len(ex.Features))
		for _, f := range ex.Features {
			name := f.Name
			if name == "" {
				name = f.Property
			}
			if name == "" {
				continue
			}
			cat := parentCat
			if parentCat == capability.CategoryUnknown {
				cat = categoryFor(f.Type, f.Property)
			}
			features = append(features, capability.Feature{
				Name:     name,
				Property: f.Property,
				Category: cat,
				Options:  f.Values,
				RawType:  ex.Type,
			})
		}
		return features
	}

	name := ex.Name
	if name == "" {
		name = ex.Property
	}
	if name == "" {
		return nil
	}
	return []capability.Feature{{
		Name:     name,
		Property: ex.Property,
		Category: categoryFor(ex.Type, ex.Property),
		Options:  ex.Values,
		RawType:  ex.Type,
	}}
}
