package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Product is the per-product-ID processing configuration, one YAML file per
// processing ID (e.g. e00.yaml). It binds a model to the variables it
// consumes and the formatting of what it predicts.
type Product struct {
	ModelName     string   `yaml:"model_name"`
	Inputs        []string `yaml:"inputs"`
	Outputs       []string `yaml:"outputs"`
	KeptVariables []string `yaml:"kept_variables"`

	Preprocessing    *Preprocessing            `yaml:"preprocessing"`
	RangeFilters     map[string]Range          `yaml:"range_filters"`
	QualityVariables *QualityConfig            `yaml:"quality_variables"`
	Attributes       map[string]map[string]any `yaml:"attributes"`

	// ReferenceProduct points at the blanked template used for land-only
	// acquisitions (see cmd/l2ref). Relative paths resolve against the
	// config directory.
	ReferenceProduct string `yaml:"reference_product"`
}

// Preprocessing lists dataset manipulations applied before retrieval.
type Preprocessing struct {
	// DropSel removes label entries from a dimension before retrieval,
	// e.g. pol: [HH] to discard the HH polarization.
	DropSel map[string][]string `yaml:"drop_sel"`
}

// Range bounds a Level-1 variable for output masking.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// QualityVar derives one quality flag from a confidence variable.
type QualityVar struct {
	Input      string         `yaml:"input"`
	Thresholds []float64      `yaml:"thresholds"`
	Attributes map[string]any `yaml:"attributes"`
}

// QualityConfig configures quality flag derivation.
type QualityConfig struct {
	DropConfidence bool                  `yaml:"drop_confidence"`
	Vars           map[string]QualityVar `yaml:"vars"`
}

// LoadProduct reads and validates <dir>/<lowercase product ID>.yaml. Unknown
// fields are rejected so configuration typos fail loudly.
func LoadProduct(dir, productID string) (*Product, error) {
	path := filepath.Join(dir, strings.ToLower(productID)+".yaml")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var p Product
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse product config %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("product config %s: %w", path, err)
	}
	if p.ReferenceProduct != "" && !filepath.IsAbs(p.ReferenceProduct) {
		p.ReferenceProduct = filepath.Join(dir, p.ReferenceProduct)
	}
	return &p, nil
}

func (p *Product) validate() error {
	if p.ModelName == "" {
		return errors.New("model_name is required")
	}
	if len(p.Inputs) == 0 {
		return errors.New("inputs is required")
	}
	if len(p.Outputs) == 0 {
		return errors.New("outputs is required")
	}
	if p.QualityVariables != nil {
		for name, qv := range p.QualityVariables.Vars {
			if qv.Input == "" {
				return fmt.Errorf("quality variable %q: input is required", name)
			}
			if len(qv.Thresholds) != 2 {
				return fmt.Errorf("quality variable %q: exactly two thresholds required", name)
			}
			if qv.Thresholds[0] >= qv.Thresholds[1] {
				return fmt.Errorf("quality variable %q: thresholds must be increasing", name)
			}
		}
	}
	for v, r := range p.RangeFilters {
		if r.Min > r.Max {
			return fmt.Errorf("range filter %q: min %g exceeds max %g", v, r.Min, r.Max)
		}
	}
	return nil
}
