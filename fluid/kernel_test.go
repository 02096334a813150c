//Kernel Testing
package fluid

import (
	"math"
	"testing"
)

var allKernels = []struct {
	name string
	f    KernelFunc
}{
	{"SpikyPow2", SpikyPow2},
	{"SpikyPow2Derivative", SpikyPow2Derivative},
	{"SpikyPow3", SpikyPow3},
	{"SpikyPow3Derivative", SpikyPow3Derivative},
	{"Poly6", Poly6},
	{"SpikyGradient", SpikyGradient},
	{"ViscosityLaplacian", ViscosityLaplacian},
}

func TestKernelSupport(t *testing.T) {
	const h = 0.16433

	for _, k := range allKernels {
		for _, r := range []float64{h, h * 1.0001, 2 * h, 100} {
			if w := k.f(h, r); w != 0.0 {
				t.Errorf("%s(%f, %f) = %g outside support", k.name, h, r, w)
			}
		}
		//Degenerate radius must not divide by zero
		for _, hh := range []float64{0, -1, math.NaN()} {
			if w := k.f(hh, 0); w != 0.0 {
				t.Errorf("%s(%f, 0) = %g for degenerate radius", k.name, hh, w)
			}
		}
	}
}

func TestKernelMonotonic(t *testing.T) {
	const h = 0.5
	const steps = 200

	for _, k := range []struct {
		name string
		f    KernelFunc
	}{{"SpikyPow2", SpikyPow2}, {"SpikyPow3", SpikyPow3}, {"Poly6", Poly6}} {
		prev := k.f(h, 0)
		if !(prev > 0) {
			t.Errorf("%s should be positive at the origin, got %g", k.name, prev)
		}
		for i := 1; i <= steps; i++ {
			r := h * float64(i) / steps
			w := k.f(h, r)
			if w > prev {
				t.Errorf("%s increased at r=%f: %g > %g", k.name, r, w, prev)
			}
			prev = w
		}
	}
}

func TestKernelDerivativeSign(t *testing.T) {
	const h = 1.0
	for _, r := range []float64{0, 0.25, 0.5, 0.99} {
		if SpikyPow2Derivative(h, r) >= 0 || SpikyPow3Derivative(h, r) >= 0 || SpikyGradient(h, r) >= 0 {
			t.Errorf("Derivatives must be negative inside the support at r=%f", r)
		}
		if ViscosityLaplacian(h, r) <= 0 {
			t.Errorf("Viscosity laplacian must be positive at r=%f", r)
		}
	}

	//Derivative matches a central difference of the weight
	const r = 0.4
	const d = 1e-6
	numeric := (SpikyPow2(h, r+d) - SpikyPow2(h, r-d)) / (2 * d)
	if math.Abs(numeric-SpikyPow2Derivative(h, r)) > 1e-4 {
		t.Errorf("SpikyPow2Derivative %g does not match numeric %g", SpikyPow2Derivative(h, r), numeric)
	}
	numeric = (SpikyPow3(h, r+d) - SpikyPow3(h, r-d)) / (2 * d)
	if math.Abs(numeric-SpikyPow3Derivative(h, r)) > 1e-4 {
		t.Errorf("SpikyPow3Derivative %g does not match numeric %g", SpikyPow3Derivative(h, r), numeric)
	}
}

func TestKernelValues(t *testing.T) {
	const h = 1.0
	if w := SpikyPow2(h, 0); math.Abs(w-6/math.Pi) > 1e-12 {
		t.Errorf("SpikyPow2(1,0) = %g", w)
	}
	if w := Poly6(h, 0); math.Abs(w-315/(64*math.Pi)) > 1e-12 {
		t.Errorf("Poly6(1,0) = %g", w)
	}
}

func TestKernelProfile(t *testing.T) {
	for _, k := range []KernelProfile{KernelSpiky, KernelMuller} {
		parsed, err := ParseKernelProfile(k.String())
		if err != nil || parsed != k {
			t.Errorf("Profile %s did not parse back: %v", k, err)
		}
	}
	if _, err := ParseKernelProfile("gaussian"); err == nil {
		t.Errorf("Expected error for unknown profile")
	}
	if KernelProfile(7).Valid() {
		t.Errorf("Out of range profile reported valid")
	}

	ks := KernelMuller.kernels()
	if ks.density(1, 0.5) != Poly6(1, 0.5) || ks.viscosity(1, 0.5) != ViscosityLaplacian(1, 0.5) {
		t.Errorf("Muller profile dispatches to the wrong kernels")
	}
}

func BenchmarkKernels(b *testing.B) {
	const h = 0.16433
	var sum float64
	for i := 0; i < b.N; i++ {
		r := h * float64(i%100) / 100
		sum += SpikyPow2(h, r) + SpikyPow3(h, r) + Poly6(h, r)
	}
	_ = sum
}
