package costmodel

const (
	metersPerMicron          = 1e-6
	millilitersPerCubicMeter = 1e6
)

// VolumeMilliliters converts a deposit thickness over an area in m² to the
// volume unit of the property table.
func VolumeMilliliters(thicknessMicrons, area float64) float64 {
	return thicknessMicrons * metersPerMicron * area * millilitersPerCubicMeter
}

// VolumeFractions turns parts by mass into volume fractions that sum to 1.
func VolumeFractions(massRatios, densities []float64) ([]float64, error) {
	if len(massRatios) != len(densities) {
		return nil, invalid("layer", "got %d mass ratios for %d densities", len(massRatios), len(densities))
	}

	volumes := make([]float64, len(massRatios))
	total := 0.0
	for i, ratio := range massRatios {
		if !positive(densities[i]) {
			return nil, invalid("layer", "density must be greater than 0, got %v", densities[i])
		}
		volumes[i] = ratio / densities[i]
		total += volumes[i]
	}
	if !positive(total) {
		return nil, invalid("layer", "total ingredient volume is zero")
	}

	for i := range volumes {
		volumes[i] /= total
	}
	return volumes, nil
}

// DryThickness applies the solid-loading shrinkage of every ingredient to
// the wet thickness. Contributions are independent and accumulate.
func DryThickness(wet float64, fractions, solidLoadings []float64) float64 {
	dry := wet
	for i, f := range fractions {
		if sl := solidLoadings[i]; sl < 1 {
			dry -= wet * f * (1 - sl)
		}
	}
	return dry
}

// layerMix is the volume view of one layer.
type layerMix struct {
	fractions  []float64
	properties []MaterialProperties
	dry        float64
	final      float64
}

func mixLayer(layer Layer, properties []MaterialProperties, wet float64) (layerMix, error) {
	ratios := make([]float64, len(layer.Ingredients))
	densities := make([]float64, len(layer.Ingredients))
	loadings := make([]float64, len(layer.Ingredients))
	for i, ing := range layer.Ingredients {
		ratios[i] = ing.MassRatio
		densities[i] = properties[i].Density
		loadings[i] = properties[i].EffectiveSolidLoading()
	}

	fractions, err := VolumeFractions(ratios, densities)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Field = "layer " + layer.Key
		}
		return layerMix{}, err
	}

	dry := DryThickness(wet, fractions, loadings)

	// Non-persisting ingredients leave nothing behind once processing ends.
	final := dry
	for i, ing := range layer.Ingredients {
		if ing.Persistence == NonPersisting {
			final -= wet * fractions[i] * loadings[i]
		}
	}

	return layerMix{
		fractions:  fractions,
		properties: properties,
		dry:        dry,
		final:      final,
	}, nil
}
