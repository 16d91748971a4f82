// Package recipe reads device recipes from YAML or JSON documents.
package recipe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/printcost/internal/costmodel"
)

// Document is the on-disk form of a recipe and its device.
type Document struct {
	Device           Device            `yaml:"device"`
	Layers           []Layer           `yaml:"layers"`
	AdditionalLayers []AdditionalLayer `yaml:"additional_layers"`
}

// Device describes footprint, process and performance.
// Dimensions is the legacy [length, width] pair and is used when Length and Width are absent.
type Device struct {
	Length            float64   `yaml:"length"`
	Width             float64   `yaml:"width"`
	Dimensions        []float64 `yaml:"dimensions"`
	Method            string    `yaml:"method"`
	Source            string    `yaml:"source"`
	PowerPerformance  float64   `yaml:"power_performance"`
	EnergyPerformance float64   `yaml:"energy_performance"`
}

// Layer is one layer entry. Key may carry a legacy "N*" multiplicity prefix.
type Layer struct {
	Key         string       `yaml:"key"`
	Copies      int          `yaml:"copies"`
	Thickness   float64      `yaml:"thickness"`
	Ingredients []Ingredient `yaml:"ingredients"`
}

// Ingredient is either a mapping {name, ratio, persistence} or the compact
// sequence form [name, ratio, persistence].
type Ingredient struct {
	Name        string  `yaml:"name"`
	Ratio       float64 `yaml:"ratio"`
	Persistence string  `yaml:"persistence"`
}

// AdditionalLayer is a deposit outside the main recipe.
type AdditionalLayer struct {
	Material  string  `yaml:"material"`
	Thickness float64 `yaml:"thickness"`
}

// UnmarshalYAML accepts both ingredient forms.
func (i *Ingredient) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		type plain Ingredient
		return node.Decode((*plain)(i))
	}

	if len(node.Content) < 2 || len(node.Content) > 3 {
		return fmt.Errorf("line %d: ingredient needs [name, ratio] or [name, ratio, persistence]", node.Line)
	}
	if err := node.Content[0].Decode(&i.Name); err != nil {
		return err
	}
	if err := node.Content[1].Decode(&i.Ratio); err != nil {
		return err
	}
	if len(node.Content) == 3 {
		return node.Content[2].Decode(&i.Persistence)
	}
	return nil
}

// Decode reads a Document from r and builds the recipe and device from it.
func Decode(r io.Reader) (costmodel.Recipe, costmodel.DeviceSpec, error) {
	doc, err := DecodeDocument(r)
	if err != nil {
		return costmodel.Recipe{}, costmodel.DeviceSpec{}, err
	}
	return doc.Build()
}

// DecodeDocument reads a Document from r without building it.
// Unknown fields are rejected.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, &costmodel.ValidationError{Field: "recipe", Reason: "document is empty"}
		}
		return Document{}, &costmodel.ValidationError{Field: "recipe", Reason: err.Error()}
	}
	return doc, nil
}

// WithDefaultSource returns a copy of d whose device uses source when the
// document names none.
func (d Document) WithDefaultSource(source costmodel.CostSource) Document {
	if strings.TrimSpace(d.Device.Source) == "" {
		d.Device.Source = string(source)
	}
	return d
}

// Build converts the document, reporting every problem found rather than the first.
func (d Document) Build() (costmodel.Recipe, costmodel.DeviceSpec, error) {
	var errs *multierror.Error

	device, err := d.Device.build()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	var recipe costmodel.Recipe
	if len(d.Layers) == 0 {
		errs = multierror.Append(errs, &costmodel.ValidationError{Field: "layers", Reason: "at least one layer is required"})
	}

	seen := make(map[string]int, len(d.Layers))
	for i, l := range d.Layers {
		layer, err := l.build()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("layer %d: %w", i+1, err))
		}
		if layer.Key == "" {
			continue
		}
		if prev, ok := seen[layer.Key]; ok {
			errs = multierror.Append(errs, &costmodel.ValidationError{
				Field:  "layer " + layer.Key,
				Reason: fmt.Sprintf("layers %d and %d share the same key", prev, i+1),
			})
			continue
		}
		seen[layer.Key] = i + 1
		if err == nil {
			recipe.Layers = append(recipe.Layers, layer)
		}
	}

	for i, al := range d.AdditionalLayers {
		name := strings.TrimSpace(al.Material)
		if name == "" {
			errs = multierror.Append(errs, &costmodel.ValidationError{Field: fmt.Sprintf("additional layer %d", i+1), Reason: "material is required"})
			continue
		}
		if !positive(al.Thickness) {
			errs = multierror.Append(errs, &costmodel.ValidationError{Field: "additional layer " + name, Reason: "thickness must be greater than 0"})
			continue
		}
		recipe.AdditionalLayers = append(recipe.AdditionalLayers, costmodel.AdditionalLayer{
			Material:         name,
			ThicknessMicrons: al.Thickness,
		})
	}

	if err := errs.ErrorOrNil(); err != nil {
		return costmodel.Recipe{}, costmodel.DeviceSpec{}, err
	}
	return recipe, device, nil
}

func (d Device) build() (costmodel.DeviceSpec, error) {
	var errs *multierror.Error

	length, width := d.Length, d.Width
	if length == 0 && width == 0 && len(d.Dimensions) > 0 {
		if len(d.Dimensions) != 2 {
			errs = multierror.Append(errs, &costmodel.ValidationError{Field: "dimensions", Reason: "must be [length, width]"})
		} else {
			length, width = d.Dimensions[0], d.Dimensions[1]
		}
	}
	if !positive(length) || !positive(width) {
		errs = multierror.Append(errs, &costmodel.ValidationError{
			Field:  "dimensions",
			Reason: fmt.Sprintf("length and width must be greater than 0, got %v x %v", length, width),
		})
	}

	method := strings.TrimSpace(d.Method)
	if method == "" {
		errs = multierror.Append(errs, &costmodel.ValidationError{Field: "method", Reason: "manufacturing method is required"})
	}

	source, err := costmodel.ParseCostSource(d.Source)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	return costmodel.DeviceSpec{
		Length:            length,
		Width:             width,
		Method:            method,
		Source:            source,
		PowerPerformance:  d.PowerPerformance,
		EnergyPerformance: d.EnergyPerformance,
	}, errs.ErrorOrNil()
}

func (l Layer) build() (costmodel.Layer, error) {
	key, copies, err := costmodel.ParseLayerKey(l.Key)
	if err != nil {
		return costmodel.Layer{}, err
	}

	var errs *multierror.Error
	field := "layer " + key

	switch {
	case l.Copies < 0:
		errs = multierror.Append(errs, &costmodel.ValidationError{Field: field, Reason: "copies must not be negative"})
	case l.Copies > 0 && copies > 1 && l.Copies != copies:
		errs = multierror.Append(errs, &costmodel.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("key prefix says %d copies but copies is %d", copies, l.Copies),
		})
	case l.Copies > 0:
		copies = l.Copies
	}

	if l.Thickness != 0 && !positive(l.Thickness) {
		errs = multierror.Append(errs, &costmodel.ValidationError{Field: field, Reason: "thickness must be a finite number not below 0"})
	}
	if len(l.Ingredients) == 0 {
		errs = multierror.Append(errs, &costmodel.ValidationError{Field: field, Reason: "at least one ingredient is required"})
	}

	layer := costmodel.Layer{
		Key:                 key,
		Multiplicity:        copies,
		WetThicknessMicrons: l.Thickness,
		Ingredients:         make([]costmodel.Ingredient, 0, len(l.Ingredients)),
	}
	for _, ing := range l.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			errs = multierror.Append(errs, &costmodel.ValidationError{Field: field, Reason: "ingredient name is required"})
			continue
		}
		if !positive(ing.Ratio) {
			errs = multierror.Append(errs, &costmodel.ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("mass ratio of %s must be greater than 0, got %v", name, ing.Ratio),
			})
		}
		persistence, err := costmodel.ParsePersistence(ing.Persistence)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		layer.Ingredients = append(layer.Ingredients, costmodel.Ingredient{
			Name:        name,
			MassRatio:   ing.Ratio,
			Persistence: persistence,
		})
	}

	return layer, errs.ErrorOrNil()
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
