package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/printcost/internal/config"
	"github.com/Simplici0/printcost/internal/costmodel"
)

const recipeYAML = `
device:
  length: 2
  width: 0.5
  method: flexographic
  power_performance: 0.5
  energy_performance: 0.25
layers:
  - key: current collector
    thickness: 10
    ingredients:
      - [AG, 1, p]
`

func writeRecipe(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		DBPath:                      filepath.Join(t.TempDir(), "estimate.db"),
		CostSource:                  costmodel.CheapMaterials,
		ElectrolyteThicknessMicrons: costmodel.DefaultElectrolyteThicknessMicrons,
		HalveAdditionalLayers:       true,
		SecondElectrodePass:         true,
	}
}

func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"-recipe", writeRecipe(t, recipeYAML), "-format", "json"}, &out)
	require.NoError(t, err)

	var rep costmodel.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, "flexographic", rep.Method)
	assert.InDelta(t, 94.41, rep.MaterialCost, 1e-9)
	assert.InDelta(t, 0.5, rep.ManufacturingCost, 1e-9)
	assert.InDelta(t, 94.91*2, rep.CostPerPower, 1e-9)
}

func TestRunText(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"-recipe", writeRecipe(t, recipeYAML)}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "TOTAL COST = $94.9100 for 1 square meter(s)")
}

func TestRunUsesConfiguredSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.CostSource = costmodel.ReliableMaterials

	var out bytes.Buffer
	err := run(context.Background(), cfg, []string{"-recipe", writeRecipe(t, recipeYAML), "-format", "json"}, &out)
	require.NoError(t, err)

	var rep costmodel.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, costmodel.ReliableMaterials, rep.Source)
	assert.InDelta(t, 10*10.49*1.1, rep.MaterialCost, 1e-9)
}

func TestRunRejectsBadArguments(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()

	assert.Error(t, run(ctx, testConfig(t), nil, &out))
	assert.Error(t, run(ctx, testConfig(t), []string{"-recipe", writeRecipe(t, recipeYAML), "-format", "xml"}, &out))
	assert.Error(t, run(ctx, testConfig(t), []string{"-recipe", filepath.Join(t.TempDir(), "missing.yaml")}, &out))

	err := run(ctx, testConfig(t), []string{"-recipe", writeRecipe(t, "device: {length: 1, width: 1, method: screen}\nlayers: []\n")}, &out)
	var ve *costmodel.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRunSupercapacitorExample(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"-recipe", filepath.Join("testdata", "supercapacitor.yaml"), "-format", "json"}, &out)
	require.NoError(t, err)

	var rep costmodel.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	require.Len(t, rep.Layers, 3)
	assert.Equal(t, 2, rep.Layers[0].Copies)
	assert.Equal(t, costmodel.ThicknessDefault, rep.Layers[1].ThicknessSource)
	assert.InDelta(t, 170.0, rep.Layers[1].WetThicknessMicrons, 1e-9)
	assert.Len(t, rep.AdditionalLayers, 1)
	assert.Greater(t, rep.TotalCost, rep.ManufacturingCost)
}
