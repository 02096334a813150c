package fluid

import (
	"fmt"
	"math"
	"strings"
)

//KernelFunc maps (smoothing radius h, distance r) to a weight or a radial derivative. Every
//kernel here returns exactly 0 for r >= h and for h <= 0.
type KernelFunc func(h float64, r float64) float64

func outside(h float64, r float64) bool {
	return !(h > 0) || !(r < h)
}

//SpikyPow2 - density weight (h-r)^2 / (pi h^4 / 6)
func SpikyPow2(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	v := h - r
	volume := math.Pi * math.Pow(h, 4) / 6.0
	return v * v / volume
}

//SpikyPow2Derivative - dW/dr of SpikyPow2, negative inside the support
func SpikyPow2Derivative(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	scale := 12.0 / (math.Pi * math.Pow(h, 4))
	return (r - h) * scale
}

//SpikyPow3 - near density weight with a steeper falloff
func SpikyPow3(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	v := h - r
	return v * v * v / (math.Pi * math.Pow(h, 6))
}

func SpikyPow3Derivative(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	v := h - r
	return -3.0 * v * v / (math.Pi * math.Pow(h, 6))
}

//Poly6 - smooth weight 315/(64 pi h^9) (h^2-r^2)^3 used for viscosity averaging
func Poly6(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	d := h*h - r*r
	return 315.0 / (64.0 * math.Pi * math.Pow(h, 9)) * d * d * d
}

//SpikyGradient - Muller spiky kernel derivative -45/(pi h^6) (h-r)^2
func SpikyGradient(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	v := h - r
	return -45.0 / (math.Pi * math.Pow(h, 6)) * v * v
}

//ViscosityLaplacian - Laplacian of the Muller viscosity kernel 45/(pi h^6) (h-r)
func ViscosityLaplacian(h float64, r float64) float64 {
	if outside(h, r) {
		return 0.0
	}
	return 45.0 / (math.Pi * math.Pow(h, 6)) * (h - r)
}

//KernelProfile selects the kernel family one Simulation dispatches to
type KernelProfile int

const (
	//KernelSpiky - SpikyPow2 density, SpikyPow3 near density, Poly6 viscosity
	KernelSpiky KernelProfile = iota
	//KernelMuller - Poly6 density with spiky gradient and viscosity laplacian
	KernelMuller
)

func (k KernelProfile) String() string {
	switch k {
	case KernelSpiky:
		return "spiky"
	case KernelMuller:
		return "muller"
	}
	return fmt.Sprintf("KernelProfile(%d)", int(k))
}

func (k KernelProfile) Valid() bool {
	return k == KernelSpiky || k == KernelMuller
}

//ParseKernelProfile accepts the names produced by String, case insensitive
func ParseKernelProfile(s string) (KernelProfile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spiky":
		return KernelSpiky, nil
	case "muller", "müller":
		return KernelMuller, nil
	}
	return KernelSpiky, fmt.Errorf("unknown kernel profile %q", s)
}

//kernelSet - the five functions the passes need
type kernelSet struct {
	density      KernelFunc
	densitySlope KernelFunc
	near         KernelFunc
	nearSlope    KernelFunc
	viscosity    KernelFunc
}

func (k KernelProfile) kernels() kernelSet {
	if k == KernelMuller {
		return kernelSet{
			density:      Poly6,
			densitySlope: SpikyGradient,
			near:         SpikyPow3,
			nearSlope:    SpikyPow3Derivative,
			viscosity:    ViscosityLaplacian,
		}
	}
	return kernelSet{
		density:      SpikyPow2,
		densitySlope: SpikyPow2Derivative,
		near:         SpikyPow3,
		nearSlope:    SpikyPow3Derivative,
		viscosity:    Poly6,
	}
}
