// Package costmodel estimates the material and manufacturing cost of a
// printed energy-storage device from its layer recipe.
package costmodel

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Model computes cost reports against a property provider.
// It keeps no per-calculation state and may be shared.
type Model struct {
	provider MaterialPropertyProvider
	policy   Policy
}

// New returns a Model that queries provider and follows policy.
func New(provider MaterialPropertyProvider, policy Policy) *Model {
	return &Model{provider: provider, policy: policy}
}

// Calculate prices recipe for the device. The recipe is not modified.
// Provider errors are returned as they are; no partial report is produced.
func (m *Model) Calculate(ctx context.Context, recipe Recipe, device DeviceSpec) (Report, error) {
	if err := validate(recipe, device); err != nil {
		return Report{}, err
	}

	recipe = recipe.Clone()
	cache := newLookupCache(m.provider)
	footprint := device.Footprint()

	proc, err := cache.process(ctx, device.Method)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Footprint:  footprint,
		Method:     device.Method,
		Source:     device.Source,
		LayerCosts: make(map[string]float64, len(recipe.Layers)),
	}

	for _, layer := range recipe.Layers {
		lr, err := m.priceLayer(ctx, cache, device.Source, layer, proc, footprint)
		if err != nil {
			return Report{}, err
		}
		rep.Layers = append(rep.Layers, lr)
		rep.Ingredients = append(rep.Ingredients, lr.Ingredients...)
		rep.LayerCosts[lr.Key] = lr.Cost
		rep.MaterialCost += lr.Cost
	}

	for _, al := range recipe.AdditionalLayers {
		cost, err := m.priceAdditionalLayer(ctx, cache, device.Source, al, footprint)
		if err != nil {
			return Report{}, err
		}
		rep.AdditionalLayers = append(rep.AdditionalLayers, AdditionalLayerCost{
			Material:         al.Material,
			ThicknessMicrons: al.ThicknessMicrons,
			Cost:             cost,
		})
		rep.AdditionalLayersCost += cost
	}

	rep.LayerCount = m.policy.layerCount(rep.Layers, len(recipe.AdditionalLayers))
	rep.ManufacturingCost = footprint * proc.UnitAreaCost * float64(rep.LayerCount)
	rep.TotalCost = rep.ManufacturingCost + rep.MaterialCost + rep.AdditionalLayersCost
	if !nonNegative(rep.TotalCost) {
		return Report{}, invalid("recipe", "total cost overflows, got %v", rep.TotalCost)
	}

	if rep.CostPerPower, err = normalize(rep.TotalCost, "power performance", device.PowerPerformance); err != nil {
		return Report{}, err
	}
	if rep.CostPerEnergy, err = normalize(rep.TotalCost, "energy performance", device.EnergyPerformance); err != nil {
		return Report{}, err
	}

	return rep, nil
}

func (m *Model) priceLayer(ctx context.Context, cache *lookupCache, source CostSource, layer Layer, proc ProcessProperties, footprint float64) (LayerReport, error) {
	wet, thicknessSource, err := m.policy.wetThickness(layer, proc)
	if err != nil {
		return LayerReport{}, err
	}

	props := make([]MaterialProperties, len(layer.Ingredients))
	for i, ing := range layer.Ingredients {
		if props[i], err = cache.material(ctx, source, ing.Name); err != nil {
			return LayerReport{}, err
		}
	}

	mix, err := mixLayer(layer, props, wet)
	if err != nil {
		return LayerReport{}, err
	}

	priced := wet
	if m.policy.MultiplyRepeatedLayers {
		priced *= float64(layer.Copies())
	}
	volume := VolumeMilliliters(priced, footprint)

	lr := LayerReport{
		Key:                   layer.Key,
		Copies:                layer.Copies(),
		ThicknessSource:       thicknessSource,
		WetThicknessMicrons:   wet,
		DryThicknessMicrons:   mix.dry,
		FinalThicknessMicrons: mix.final,
		VolumeMilliliters:     volume,
		Ingredients:           make([]IngredientCost, 0, len(layer.Ingredients)),
	}
	for i, ing := range layer.Ingredients {
		cost := mix.fractions[i] * volume * props[i].Density * props[i].UnitCost
		lr.Ingredients = append(lr.Ingredients, IngredientCost{
			Layer:          layer.Key,
			Ingredient:     ing.Name,
			VolumeFraction: mix.fractions[i],
			Cost:           cost,
		})
		lr.Cost += cost
	}
	return lr, nil
}

func (m *Model) priceAdditionalLayer(ctx context.Context, cache *lookupCache, source CostSource, al AdditionalLayer, footprint float64) (float64, error) {
	props, err := cache.material(ctx, source, al.Material)
	if err != nil {
		return 0, err
	}

	cost := VolumeMilliliters(al.ThicknessMicrons, footprint) * props.Density * props.UnitCost
	if m.policy.HalveAdditionalLayers {
		// One face's deposit, shared by two electrode faces.
		cost /= 2
	}
	return cost, nil
}

// layerCount is the number of deposition passes the process is paid for.
func (p Policy) layerCount(layers []LayerReport, additional int) int {
	n := len(layers) + additional
	secondPass := false
	for _, l := range layers {
		n += l.Copies - 1
		if archetypeOf(l.Key) == archetypeElectrode && l.ThicknessSource == ThicknessProcess {
			secondPass = true
		}
	}
	if p.SecondElectrodePass && secondPass {
		n++
	}
	return n
}

func normalize(total float64, quantity string, denominator float64) (float64, error) {
	if !positive(denominator) {
		return 0, &DivisionError{Quantity: quantity, Value: denominator}
	}
	return total / denominator, nil
}

func validate(recipe Recipe, device DeviceSpec) error {
	if !positive(device.Length) || !positive(device.Width) {
		return invalid("dimensions", "length and width must be greater than 0, got %v x %v", device.Length, device.Width)
	}
	if strings.TrimSpace(device.Method) == "" {
		return invalid("method", "manufacturing method is required")
	}
	if len(recipe.Layers) == 0 {
		return invalid("recipe", "at least one layer is required")
	}

	seen := make(map[string]bool, len(recipe.Layers))
	for _, l := range recipe.Layers {
		field := "layer " + l.Key
		if strings.TrimSpace(l.Key) == "" {
			return invalid("layer.key", "must not be empty")
		}
		if strings.Contains(l.Key, "*") {
			return invalid(field, "multiplicity must be parsed out of the key")
		}
		if seen[l.Key] {
			return invalid(field, "duplicate layer key")
		}
		seen[l.Key] = true

		if l.Multiplicity < 0 {
			return invalid(field, "multiplicity must not be negative")
		}
		if !nonNegative(l.WetThicknessMicrons) {
			return invalid(field, "thickness must not be negative, got %v", l.WetThicknessMicrons)
		}
		if len(l.Ingredients) == 0 {
			return invalid(field, "at least one ingredient is required")
		}
		for _, ing := range l.Ingredients {
			if strings.TrimSpace(ing.Name) == "" {
				return invalid(field, "ingredient name is required")
			}
			if !positive(ing.MassRatio) {
				return invalid(field, "mass ratio of %s must be greater than 0, got %v", ing.Name, ing.MassRatio)
			}
		}
	}

	for _, al := range recipe.AdditionalLayers {
		if strings.TrimSpace(al.Material) == "" {
			return invalid("additional layer", "material is required")
		}
		if !positive(al.ThicknessMicrons) {
			return invalid("additional layer "+al.Material, "thickness must be greater than 0, got %v", al.ThicknessMicrons)
		}
	}
	return nil
}

// positive reports whether v is a finite number greater than zero.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// nonNegative reports whether v is a finite number not below zero.
func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// IsInputError reports whether err is caused by the recipe, the device
// description or the property table contents rather than by the provider transport.
func IsInputError(err error) bool {
	var ve *ValidationError
	var ne *NotFoundError
	var de *DivisionError
	return errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &de)
}
