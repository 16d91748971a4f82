package costmodel

// IngredientCost is one line item of a layer's material cost.
type IngredientCost struct {
	Layer          string  `json:"layer"`
	Ingredient     string  `json:"ingredient"`
	VolumeFraction float64 `json:"volume_fraction"`
	Cost           float64 `json:"cost"`
}

// LayerReport describes one recipe layer after calculation.
// Thicknesses are per copy, in microns.
type LayerReport struct {
	Key                   string           `json:"key"`
	Copies                int              `json:"copies"`
	ThicknessSource       ThicknessSource  `json:"thickness_source"`
	WetThicknessMicrons   float64          `json:"wet_thickness_microns"`
	DryThicknessMicrons   float64          `json:"dry_thickness_microns"`
	FinalThicknessMicrons float64          `json:"final_thickness_microns"`
	VolumeMilliliters     float64          `json:"volume_ml"`
	Ingredients           []IngredientCost `json:"ingredients"`
	Cost                  float64          `json:"cost"`
}

// AdditionalLayerCost is the priced form of an AdditionalLayer.
type AdditionalLayerCost struct {
	Material         string  `json:"material"`
	ThicknessMicrons float64 `json:"thickness_microns"`
	Cost             float64 `json:"cost"`
}

// Report is the read-only outcome of a calculation.
type Report struct {
	Footprint            float64               `json:"footprint_m2"`
	Method               string                `json:"method"`
	Source               CostSource            `json:"source"`
	Layers               []LayerReport         `json:"layers"`
	Ingredients          []IngredientCost      `json:"ingredients"`
	LayerCosts           map[string]float64    `json:"layer_costs"`
	AdditionalLayers     []AdditionalLayerCost `json:"additional_layers"`
	AdditionalLayersCost float64               `json:"additional_layers_cost"`
	LayerCount           int                   `json:"layer_count"`
	ManufacturingCost    float64               `json:"manufacturing_cost"`
	MaterialCost         float64               `json:"material_cost"`
	TotalCost            float64               `json:"total_cost"`
	CostPerPower         float64               `json:"cost_per_kw"`
	CostPerEnergy        float64               `json:"cost_per_kwh"`
}
