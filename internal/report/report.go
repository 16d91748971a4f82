// Package report renders cost reports as plain text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Simplici0/printcost/internal/costmodel"
)

// Render writes a human-readable form of rep to w.
func Render(w io.Writer, rep costmodel.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Assuming thicknesses in microns:")
	for _, l := range rep.Layers {
		name := l.Key
		if l.Copies > 1 {
			name = fmt.Sprintf("%s (%d layers, each individually)", l.Key, l.Copies)
		}
		fmt.Fprintf(tw, "%s\t[%s]\n", name, l.ThicknessSource)
		fmt.Fprintf(tw, "    wet thickness\t%.4g\n", l.WetThicknessMicrons)
		fmt.Fprintf(tw, "    dry thickness\t%.4g\n", l.DryThicknessMicrons)
		if l.FinalThicknessMicrons != l.DryThicknessMicrons {
			fmt.Fprintf(tw, "    after removal\t%.4g\n", l.FinalThicknessMicrons)
		}
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "MANUFACTURING COST to print %d layers with %s = $%.4f\n", rep.LayerCount, rep.Method, rep.ManufacturingCost)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "MATERIAL COSTS:")
	fmt.Fprintln(tw, "INGREDIENT\tLAYER\tVOLUME FRACTION\tCOST ($)")
	for _, ing := range rep.Ingredients {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\n", ing.Ingredient, ing.Layer, ing.VolumeFraction, ing.Cost)
	}
	for _, al := range rep.AdditionalLayers {
		fmt.Fprintf(tw, "%s\t%s\t\t%.4f\n", al.Material, "additional", al.Cost)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "LAYER\tCOST ($)")
	for _, l := range rep.Layers {
		fmt.Fprintf(tw, "%s\t%.4f\n", l.Key, rep.LayerCosts[l.Key])
	}
	if len(rep.AdditionalLayers) > 0 {
		fmt.Fprintf(tw, "additional layers\t%.4f\n", rep.AdditionalLayersCost)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "TOTAL COST = $%.4f for %s square meter(s)\n", rep.TotalCost, trimFloat(rep.Footprint))
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "COST PER UNIT POWER = $%.4f/kW\n", rep.CostPerPower)
	fmt.Fprintf(tw, "COST PER UNIT ENERGY = $%.4f/kWh\n", rep.CostPerEnergy)

	return tw.Flush()
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
