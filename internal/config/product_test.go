package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductYAML = `model_name: seastate-mlp-e00
inputs:
  - incidence
  - sigma0
  - cwave_params
outputs:
  - swh
  - windwave_swh
  - tm0
kept_variables:
  - time
  - longitude
  - latitude
  - land_flag
preprocessing:
  drop_sel:
    pol: [HH]
range_filters:
  sigma0:
    min: 0.0
    max: 10.0
quality_variables:
  drop_confidence: true
  vars:
    swh_quality:
      input: swh_confidence
      thresholds: [0.3, 1.0]
      attributes:
        long_name: significant wave height quality flag
attributes:
  swh:
    long_name: significant wave height
    units: m
reference_product: ref/l2_ref_e00.nc
`

// writeProductConfig writes YAML as <dir>/e00.yaml and returns dir.
func writeProductConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e00.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadProduct(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		dir := writeProductConfig(t, testProductYAML)

		p, err := LoadProduct(dir, "E00")
		require.NoError(t, err)

		assert.Equal(t, "seastate-mlp-e00", p.ModelName)
		assert.Equal(t, []string{"incidence", "sigma0", "cwave_params"}, p.Inputs)
		assert.Equal(t, []string{"swh", "windwave_swh", "tm0"}, p.Outputs)
		assert.Equal(t, []string{"HH"}, p.Preprocessing.DropSel["pol"])
		assert.Equal(t, Range{Min: 0, Max: 10}, p.RangeFilters["sigma0"])
		assert.True(t, p.QualityVariables.DropConfidence)
		assert.Equal(t, "swh_confidence", p.QualityVariables.Vars["swh_quality"].Input)
		assert.Equal(t, "m", p.Attributes["swh"]["units"])
		// Relative reference paths resolve against the config directory.
		assert.Equal(t, filepath.Join(dir, "ref", "l2_ref_e00.nc"), p.ReferenceProduct)
	})

	t.Run("product ID is lowercased for lookup", func(t *testing.T) {
		dir := writeProductConfig(t, testProductYAML)
		_, err := LoadProduct(dir, "e00")
		assert.NoError(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadProduct(t.TempDir(), "E00")
		assert.Error(t, err)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		dir := writeProductConfig(t, testProductYAML+"model_naem: typo\n")
		_, err := LoadProduct(dir, "E00")
		assert.ErrorContains(t, err, "model_naem")
	})

	t.Run("model name is required", func(t *testing.T) {
		dir := writeProductConfig(t, "inputs: [a]\noutputs: [y]\n")
		_, err := LoadProduct(dir, "E00")
		assert.ErrorContains(t, err, "model_name")
	})

	t.Run("thresholds must be an increasing pair", func(t *testing.T) {
		dir := writeProductConfig(t, `model_name: m
inputs: [a]
outputs: [y]
quality_variables:
  vars:
    q:
      input: c
      thresholds: [1.0, 0.3]
`)
		_, err := LoadProduct(dir, "E00")
		assert.ErrorContains(t, err, "increasing")
	})

	t.Run("range min must not exceed max", func(t *testing.T) {
		dir := writeProductConfig(t, `model_name: m
inputs: [a]
outputs: [y]
range_filters:
  sigma0:
    min: 5.0
    max: 1.0
`)
		_, err := LoadProduct(dir, "E00")
		assert.ErrorContains(t, err, "exceeds max")
	})
}
