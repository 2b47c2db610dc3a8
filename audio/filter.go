package audio

import "math"

// Filter kind codes carried by automation events.
const (
	filterLP = iota
	filterBP
	filterHP
)

// biquad is a direct-form-1 second order section with cookbook
// coefficients.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (b *biquad) set(kind int, cutoff, q, sampleRate float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	sin, cos := math.Sin(w0), math.Cos(w0)
	alpha := sin / (2 * q)

	var b0, b1, b2 float64
	switch kind {
	case filterBP:
		b0, b1, b2 = alpha, 0, -alpha
	case filterHP:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	default:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
	}
	a0 := 1 + alpha
	b.b0 = b0 / a0
	b.b1 = b1 / a0
	b.b2 = b2 / a0
	b.a1 = -2 * cos / a0
	b.a2 = (1 - alpha) / a0
}

func (b *biquad) process(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

func (b *biquad) reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// filter is one of the two shared filter busses. Automation sets
// targets; the audible parameters slew toward them so cutoff sweeps
// never zipper.
type filter struct {
	sampleRate float64
	kind       int
	cutoff     float64
	res        float64
	targCutoff float64
	targRes    float64
	slew       float64
	bq         biquad
}

func newFilter(sampleRate, cutoff, res float64, kind int) *filter {
	f := &filter{
		sampleRate: sampleRate,
		kind:       kind,
		cutoff:     cutoff,
		res:        res,
		targCutoff: cutoff,
		targRes:    res,
		// ~5ms parameter smoothing
		slew: 1 - math.Exp(-1/(0.005*sampleRate)),
	}
	f.bq.set(kind, cutoff, res, sampleRate)
	return f
}

func (f *filter) setTarget(cutoff, res float64) {
	f.targCutoff = cutoff
	f.targRes = res
}

func (f *filter) setKind(kind int) {
	if kind == f.kind {
		return
	}
	f.kind = kind
	f.bq.set(kind, f.cutoff, f.res, f.sampleRate)
	f.bq.reset()
}

func (f *filter) process(x float64) float64 {
	if f.cutoff != f.targCutoff || f.res != f.targRes {
		f.cutoff += (f.targCutoff - f.cutoff) * f.slew
		f.res += (f.targRes - f.res) * f.slew
		if math.Abs(f.targCutoff-f.cutoff) < 0.01 {
			f.cutoff = f.targCutoff
		}
		if math.Abs(f.targRes-f.res) < 1e-4 {
			f.res = f.targRes
		}
		f.bq.set(f.kind, f.cutoff, f.res, f.sampleRate)
	}
	return f.bq.process(x)
}
