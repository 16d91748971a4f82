package costmodel

import "context"

// MaterialProperties holds per-material values from the property table.
// UnitCost is currency per gram and Density is grams per milliliter.
// SolidLoading is the fraction of the material left in the dry film; zero
// means the table does not report one, which is treated as 1.
type MaterialProperties struct {
	UnitCost     float64
	Density      float64
	SolidLoading float64
}

// EffectiveSolidLoading returns the solid loading with the "not reported" case resolved.
func (m MaterialProperties) EffectiveSolidLoading() float64 {
	if m.SolidLoading == 0 {
		return 1
	}
	return m.SolidLoading
}

// ProcessProperties holds per-process values from the property table.
type ProcessProperties struct {
	UnitAreaCost            float64
	DepositThicknessMicrons float64
}

// MaterialPropertyProvider answers property lookups by name.
// Unknown names must produce a *NotFoundError.
type MaterialPropertyProvider interface {
	LookupMaterial(ctx context.Context, source CostSource, name string) (MaterialProperties, error)
	LookupProcess(ctx context.Context, name string) (ProcessProperties, error)
}

type materialKey struct {
	source CostSource
	name   string
}

// lookupCache memoizes provider answers for the duration of one calculation.
type lookupCache struct {
	provider  MaterialPropertyProvider
	materials map[materialKey]MaterialProperties
	processes map[string]ProcessProperties
}

func newLookupCache(p MaterialPropertyProvider) *lookupCache {
	return &lookupCache{
		provider:  p,
		materials: make(map[materialKey]MaterialProperties),
		processes: make(map[string]ProcessProperties),
	}
}

func (c *lookupCache) material(ctx context.Context, source CostSource, name string) (MaterialProperties, error) {
	k := materialKey{source: source, name: name}
	if m, ok := c.materials[k]; ok {
		return m, nil
	}

	m, err := c.provider.LookupMaterial(ctx, source, name)
	if err != nil {
		return MaterialProperties{}, err
	}
	if !positive(m.Density) {
		return MaterialProperties{}, invalid("material "+name, "density must be greater than 0, got %v", m.Density)
	}
	if !nonNegative(m.UnitCost) {
		return MaterialProperties{}, invalid("material "+name, "unit cost must not be negative, got %v", m.UnitCost)
	}
	if !(m.SolidLoading >= 0 && m.SolidLoading <= 1) {
		return MaterialProperties{}, invalid("material "+name, "solid loading must be in (0, 1], got %v", m.SolidLoading)
	}

	c.materials[k] = m
	return m, nil
}

func (c *lookupCache) process(ctx context.Context, name string) (ProcessProperties, error) {
	if p, ok := c.processes[name]; ok {
		return p, nil
	}

	p, err := c.provider.LookupProcess(ctx, name)
	if err != nil {
		return ProcessProperties{}, err
	}
	if !nonNegative(p.UnitAreaCost) {
		return ProcessProperties{}, invalid("process "+name, "unit area cost must not be negative, got %v", p.UnitAreaCost)
	}
	if !nonNegative(p.DepositThicknessMicrons) {
		return ProcessProperties{}, invalid("process "+name, "deposit thickness must not be negative, got %v", p.DepositThicknessMicrons)
	}

	c.processes[name] = p
	return p, nil
}
