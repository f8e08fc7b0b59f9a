// Package model evaluates the exported empirical retrieval networks. The
// networks are small fully-connected regressors trained against
// WAVEWATCH-III hindcast collocations and exported as JSON weight bundles;
// evaluation is a handful of dense matrix products per batch.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Input describes one named model input. Width is the number of feature
// columns the input contributes per acquisition: 1 for scalars such as
// incidence or sigma0, 20 for the CWAVE parameter block.
type Input struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// bundle is the on-disk JSON layout of an exported network.
type bundle struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Exporter string   `json:"exporter"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []string `json:"outputs"`
	Norm     struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"normalization"`
	Layers []struct {
		Weights    [][]float64 `json:"weights"` // [in][out]
		Bias       []float64   `json:"bias"`
		Activation string      `json:"activation"`
	} `json:"layers"`
}

type layer struct {
	weights    *mat.Dense
	bias       []float64
	activation func(float64) float64
}

// Model is a loaded retrieval network ready for batch prediction.
type Model struct {
	name     string
	version  string
	exporter string
	inputs   []Input
	outputs  []string
	mean     []float64
	scale    []float64
	layers   []layer
	width    int
}

// Load reads and validates a JSON weight bundle.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model bundle: %w", err)
	}
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse model bundle %s: %w", path, err)
	}
	return fromBundle(&b, path)
}

func fromBundle(b *bundle, path string) (*Model, error) {
	if len(b.Inputs) == 0 || len(b.Outputs) == 0 || len(b.Layers) == 0 {
		return nil, fmt.Errorf("model bundle %s: inputs, outputs and layers are all required", path)
	}

	m := &Model{
		name:     b.Name,
		version:  b.Version,
		exporter: b.Exporter,
		inputs:   b.Inputs,
		outputs:  b.Outputs,
		mean:     b.Norm.Mean,
		scale:    b.Norm.Scale,
	}
	for i := range m.inputs {
		if m.inputs[i].Width == 0 {
			m.inputs[i].Width = 1
		}
		if m.inputs[i].Width < 0 {
			return nil, fmt.Errorf("model bundle %s: input %q has negative width", path, m.inputs[i].Name)
		}
		m.width += m.inputs[i].Width
	}

	if len(m.mean) != m.width || len(m.scale) != m.width {
		return nil, fmt.Errorf("model bundle %s: normalization length %d/%d, want %d",
			path, len(m.mean), len(m.scale), m.width)
	}
	for i, s := range m.scale {
		if s == 0 {
			return nil, fmt.Errorf("model bundle %s: zero normalization scale at column %d", path, i)
		}
	}

	in := m.width
	for li, bl := range b.Layers {
		if len(bl.Weights) != in {
			return nil, fmt.Errorf("model bundle %s: layer %d expects %d rows, has %d", path, li, in, len(bl.Weights))
		}
		out := len(bl.Bias)
		flat := make([]float64, 0, in*out)
		for r, row := range bl.Weights {
			if len(row) != out {
				return nil, fmt.Errorf("model bundle %s: layer %d row %d has %d columns, want %d", path, li, r, len(row), out)
			}
			flat = append(flat, row...)
		}
		act, err := activation(bl.Activation)
		if err != nil {
			return nil, fmt.Errorf("model bundle %s: layer %d: %w", path, li, err)
		}
		m.layers = append(m.layers, layer{
			weights:    mat.NewDense(in, out, flat),
			bias:       bl.Bias,
			activation: act,
		})
		in = out
	}

	if in != len(m.outputs) {
		return nil, fmt.Errorf("model bundle %s: final layer width %d, want %d outputs", path, in, len(m.outputs))
	}
	return m, nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "linear", "":
		return func(x float64) float64 { return x }, nil
	case "relu":
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return x // NaN falls through unchanged
		}, nil
	case "tanh":
		return math.Tanh, nil
	case "sigmoid":
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

// Name returns the bundle's model name.
func (m *Model) Name() string { return m.name }

// Version returns the bundle's version string.
func (m *Model) Version() string { return m.version }

// Exporter records the tool that produced the bundle, for provenance.
func (m *Model) Exporter() string { return m.exporter }

// Inputs returns the named inputs in feature-column order.
func (m *Model) Inputs() []Input { return m.inputs }

// Outputs returns the predicted variable names in output-column order.
func (m *Model) Outputs() []string { return m.outputs }

// Width returns the total number of feature columns per acquisition.
func (m *Model) Width() int { return m.width }

// Predict evaluates the network on a batch. rows is the acquisition count
// and features holds rows*Width() values, row-major, columns in input order.
// Predictions come back keyed by output name, one value per acquisition.
// Acquisitions with NaN features yield NaN predictions; they do not affect
// the rest of the batch.
func (m *Model) Predict(rows int, features []float64) (map[string][]float64, error) {
	if rows < 0 || len(features) != rows*m.width {
		return nil, fmt.Errorf("predict: have %d values for %d acquisitions, want %d", len(features), rows, rows*m.width)
	}
	if rows == 0 {
		out := make(map[string][]float64, len(m.outputs))
		for _, name := range m.outputs {
			out[name] = nil
		}
		return out, nil
	}

	normalized := make([]float64, len(features))
	for i, v := range features {
		c := i % m.width
		normalized[i] = (v - m.mean[c]) / m.scale[c]
	}

	h := mat.NewDense(rows, m.width, normalized)
	for _, l := range m.layers {
		var next mat.Dense
		next.Mul(h, l.weights)
		next.Apply(func(_, j int, v float64) float64 {
			return l.activation(v + l.bias[j])
		}, &next)
		h = &next
	}

	out := make(map[string][]float64, len(m.outputs))
	for j, name := range m.outputs {
		col := make([]float64, rows)
		mat.Col(col, j, h)
		out[name] = col
	}
	return out, nil
}
