package app

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	F "diesel.com/sph2d/fluid"
	"github.com/mazznoer/colorgrad"
)

//Density heat map export. Below the pivot density the ramp runs blue to green, above it green
//to red. The pivot is the rest density when it lies inside the sampled range.

const heatmapGamma = 0.8

//NewDensityGradient - blue, green, red ramp over [0,1] with green at 0.5
func NewDensityGradient() (colorgrad.Gradient, error) {
	return colorgrad.NewGradient().
		HtmlColors("#0000ff", "#00ff00", "#ff0000").
		Build()
}

//densityPivots - green and high reference densities of a field
func densityPivots(field F.DensityField) (float64, float64) {
	green := field.Rest
	if green < field.Min || green > field.Max {
		green = field.Min + 0.35*(field.Max-field.Min)
	}
	high := green + 0.65*(field.Max-green)
	if high <= green {
		high = green + 1.0
	}
	return green, high
}

//rampPosition maps a density onto the gradient domain
func rampPosition(d float64, lo float64, green float64, high float64) float64 {
	if d <= green {
		t := saturate((d - lo) / math.Max(1e-12, green-lo))
		return 0.5 * math.Pow(t, heatmapGamma)
	}
	t := saturate((d - green) / math.Max(1e-12, high-green))
	return 0.5 + 0.5*math.Pow(t, heatmapGamma)
}

func saturate(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

//HeatmapImage renders a density field, image row 0 is the top of the domain
func HeatmapImage(field F.DensityField, grad colorgrad.Gradient) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, field.Cols, field.Rows))
	green, high := densityPivots(field)
	for r := 0; r < field.Rows; r++ {
		y := field.Rows - 1 - r
		for c := 0; c < field.Cols; c++ {
			img.Set(c, y, grad.At(rampPosition(field.At(c, r), field.Min, green, high)))
		}
	}
	return img
}

//WriteHeatmap samples the simulation and writes dir/density_<frame>.png
func WriteHeatmap(dir string, frame uint64, fluid *F.Simulation, cols int, rows int, grad colorgrad.Gradient) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("heatmap dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("density_%06d.png", frame))
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("heatmap file: %w", err)
	}

	img := HeatmapImage(fluid.SampleDensity(cols, rows), grad)
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return name, f.Close()
}
