// Package dll implements the second-order digital loop filter (DLL) used
// by real-time I/O endpoints to convert a fill-level error into a rate
// correction factor (§4.4). It has no grounding in the retrieved example
// corpus — no example repo implements a clock-recovery PLL — and is built
// directly from the specification's closed-form equations.
package dll

import "math"

// Filter holds a second-order loop filter's delay registers and derived
// coefficients, in IEEE-754 single precision per the numerical policy.
type Filter struct {
	bw     float32
	period float32
	rate   float32

	z1, z2, z3 float32
	w0, w1, w2 float32
}

// New returns a Filter in its initial (bw=0, all delays zero) state.
func New() *Filter {
	f := &Filter{}
	f.Init()
	return f
}

// Init resets all delays and sets bw = 0, per §4.4 init().
func (f *Filter) Init() {
	f.z1, f.z2, f.z3 = 0, 0, 0
	f.bw = 0
	f.period = 0
	f.rate = 0
	f.w0, f.w1, f.w2 = 0, 0, 0
}

// SetBW recomputes the filter's coefficients for the given loop bandwidth,
// nominal period, and sample rate, preserving z3 so the current correction
// stays continuous across reconfiguration.
func (f *Filter) SetBW(bw, period, rate float32) {
	f.bw = bw
	f.period = period
	f.rate = rate

	w := 2 * math.Pi * float64(bw) / float64(rate)
	w0 := 1.0 - math.Exp(-1.0*w*float64(period))
	w1 := w * float64(period) * w0 * (1.0 / math.Sqrt2)
	w2 := w * float64(period) * w0

	f.w0 = float32(w0)
	f.w1 = float32(w1)
	f.w2 = float32(w2)
	// z3 intentionally left untouched.
}

// maxError returns the clamp bound for a given configured period, per
// §4.4: max(256, period/2).
func maxError(period float32) float32 {
	half := period / 2
	if half > 256 {
		return half
	}
	return 256
}

// Update applies the standard second-order difference equations to error
// (clamped to ±maxError) and returns the next dimensionless rate
// correction, near 1.0 in steady state. A positive error (buffer running
// ahead of target) pulls the correction below 1.0; a negative error
// (buffer running behind) pushes it above 1.0, so a downstream resampler
// slows or speeds up accordingly.
func (f *Filter) Update(errIn float32) float32 {
	if f.period == 0 {
		// set_bw was never called: no tuned loop to run, report unity.
		return 1.0
	}

	me := maxError(f.period)
	e := errIn
	if e > me {
		e = me
	} else if e < -me {
		e = -me
	}

	z1 := e*f.w0 + f.z2
	z2 := e*f.w1 + f.z3
	z3 := e * f.w2
	f.z1, f.z2, f.z3 = z1, z2, z3

	return 1.0 - z1/f.period
}
