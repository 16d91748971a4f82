package costmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Persistence tells whether an ingredient stays in the dry film.
type Persistence int

const (
	Persisting Persistence = iota
	NonPersisting
)

func (p Persistence) String() string {
	if p == NonPersisting {
		return "np"
	}
	return "p"
}

// ParsePersistence accepts the short recipe tags ("p", "np") and their long forms.
// An empty tag means persisting.
func ParsePersistence(raw string) (Persistence, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "p", "persisting":
		return Persisting, nil
	case "np", "non-persisting", "nonpersisting":
		return NonPersisting, nil
	}
	return Persisting, &ValidationError{Field: "persistence", Reason: fmt.Sprintf("unknown value %q", raw)}
}

// CostSource selects which material price table is queried.
type CostSource string

const (
	CheapMaterials    CostSource = "cheap"
	ReliableMaterials CostSource = "reliable"
)

// ParseCostSource accepts "cheap"/"reliable" and the spreadsheet tab names
// "Cheap Materials"/"Reliable Materials".
func ParseCostSource(raw string) (CostSource, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, " materials")
	switch s {
	case "", "cheap":
		return CheapMaterials, nil
	case "reliable":
		return ReliableMaterials, nil
	}
	return "", &ValidationError{Field: "source", Reason: fmt.Sprintf("unknown cost source %q", raw)}
}

// Ingredient is one component of a layer, given in parts by mass.
type Ingredient struct {
	Name        string
	MassRatio   float64
	Persistence Persistence
}

// Layer is one printed layer of the device.
// WetThicknessMicrons of zero means the thickness is not declared and the
// fallback policy decides it.
type Layer struct {
	Key                 string
	Multiplicity        int
	Ingredients         []Ingredient
	WetThicknessMicrons float64
}

// Copies returns the number of physically identical copies of the layer.
func (l Layer) Copies() int {
	if l.Multiplicity < 1 {
		return 1
	}
	return l.Multiplicity
}

// ParseLayerKey splits a legacy multiplicity-prefixed key such as
// "2*electrode" or "2* electrode" into its name and copy count.
func ParseLayerKey(raw string) (string, int, error) {
	key := strings.TrimSpace(raw)
	prefix, name, ok := strings.Cut(key, "*")
	if !ok {
		if key == "" {
			return "", 0, &ValidationError{Field: "layer.key", Reason: "must not be empty"}
		}
		return key, 1, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil || n < 1 {
		return "", 0, &ValidationError{Field: "layer.key", Reason: fmt.Sprintf("invalid multiplicity prefix in %q", raw)}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, &ValidationError{Field: "layer.key", Reason: fmt.Sprintf("missing layer name in %q", raw)}
	}
	return name, n, nil
}

// AdditionalLayer is a deposit outside the main recipe, such as a conductor trace.
type AdditionalLayer struct {
	Material         string
	ThicknessMicrons float64
}

// Recipe lists the device layers in report order.
type Recipe struct {
	Layers           []Layer
	AdditionalLayers []AdditionalLayer
}

// Clone returns a deep copy of the recipe.
func (r Recipe) Clone() Recipe {
	out := Recipe{
		Layers:           make([]Layer, len(r.Layers)),
		AdditionalLayers: append([]AdditionalLayer(nil), r.AdditionalLayers...),
	}
	for i, l := range r.Layers {
		l.Ingredients = append([]Ingredient(nil), l.Ingredients...)
		out.Layers[i] = l
	}
	return out
}

// DeviceSpec describes the device footprint, process and performance.
// Dimensions are in meters, power in kW/m² and energy in kWh/m².
type DeviceSpec struct {
	Length            float64
	Width             float64
	Method            string
	Source            CostSource
	PowerPerformance  float64
	EnergyPerformance float64
}

// Footprint returns the planar device area in m².
func (d DeviceSpec) Footprint() float64 {
	return d.Length * d.Width
}
