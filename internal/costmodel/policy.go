package costmodel

import "strings"

// DefaultElectrolyteThicknessMicrons is the electrolyte thickness assumed by
// the legacy two-electrode recipe format.
const DefaultElectrolyteThicknessMicrons = 170.0

// Policy holds the conventions inherited from the spreadsheet cost model of
// symmetric two-electrode devices. Each one can be switched off.
type Policy struct {
	// LegacyThickness lets electrode, anode, cathode and electrolyte layers
	// omit their thickness.
	LegacyThickness bool
	// ElectrolyteThicknessMicrons is used for an electrolyte without a declared thickness.
	ElectrolyteThicknessMicrons float64
	// SecondElectrodePass adds one manufacturing pass when an electrode layer
	// stands for both electrodes of the device.
	SecondElectrodePass bool
	// HalveAdditionalLayers prices an additional layer deposit as shared by two electrode faces.
	HalveAdditionalLayers bool
	// MultiplyRepeatedLayers prices an N-copy layer on N times its declared thickness.
	MultiplyRepeatedLayers bool
}

// DefaultPolicy reproduces the numbers of the spreadsheet cost model.
func DefaultPolicy() Policy {
	return Policy{
		LegacyThickness:             true,
		ElectrolyteThicknessMicrons: DefaultElectrolyteThicknessMicrons,
		SecondElectrodePass:         true,
		HalveAdditionalLayers:       true,
	}
}

// ThicknessSource records where a layer's wet thickness came from.
type ThicknessSource string

const (
	ThicknessDeclared ThicknessSource = "declared"
	ThicknessProcess  ThicknessSource = "process"
	ThicknessDefault  ThicknessSource = "default"
)

type layerArchetype int

const (
	archetypeOther layerArchetype = iota
	archetypeElectrode
	archetypeHalfElectrode
	archetypeElectrolyte
)

func archetypeOf(key string) layerArchetype {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "electrode":
		return archetypeElectrode
	case "anode", "cathode":
		return archetypeHalfElectrode
	case "electrolyte":
		return archetypeElectrolyte
	}
	return archetypeOther
}

// wetThickness resolves the as-deposited thickness of a single copy of the layer.
// A declared thickness always wins over the fallbacks.
func (p Policy) wetThickness(layer Layer, proc ProcessProperties) (float64, ThicknessSource, error) {
	if layer.WetThicknessMicrons > 0 {
		return layer.WetThicknessMicrons, ThicknessDeclared, nil
	}
	if !p.LegacyThickness {
		return 0, "", invalid("layer "+layer.Key, "thickness is required")
	}

	switch archetypeOf(layer.Key) {
	case archetypeElectrode, archetypeHalfElectrode:
		if !positive(proc.DepositThicknessMicrons) {
			return 0, "", invalid("layer "+layer.Key, "process reports no deposit thickness to fall back on")
		}
		if archetypeOf(layer.Key) == archetypeElectrode {
			return 2 * proc.DepositThicknessMicrons, ThicknessProcess, nil
		}
		return proc.DepositThicknessMicrons, ThicknessProcess, nil
	case archetypeElectrolyte:
		t := p.ElectrolyteThicknessMicrons
		if !positive(t) {
			t = DefaultElectrolyteThicknessMicrons
		}
		return t, ThicknessDefault, nil
	}
	return 0, "", invalid("layer "+layer.Key, "unsupported layer type without a declared thickness")
}
