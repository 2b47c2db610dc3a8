package audio

import "math"

// LFO waveform shapes.
const (
	ShapeSine     = "sine"
	ShapeTriangle = "triangle"
	ShapeSquare   = "square"
	ShapeSawUp    = "saw"
	ShapeSawDown  = "ramp"
	ShapeStep     = "step"   // stepped pseudo-random, held per cycle
	ShapeNoise    = "noise"  // interpolated random values
	ShapePerlin   = "perlin" // coherent noise, period-wrapped
	ShapeDrawn    = "drawn"  // freeform table sampled by phase
)

const perlinPeriod = 16

// lfoRun is one LFO's runtime: the phase accumulator, the one-pole
// smoothing state and a seed for the stochastic shapes. Phase is
// advanced incrementally so that rate modulation affects future cycles
// without rewinding the waveform.
type lfoRun struct {
	phase  float64
	cycle  int
	smooth float64 // one-pole output state
	seed   uint32
}

// advance moves the phase forward by dt seconds at the given effective
// rate in Hz.
func (l *lfoRun) advance(dt, rate float64) {
	if rate <= 0 || dt <= 0 {
		return
	}
	l.phase += dt * rate
	for l.phase >= 1 {
		l.phase -= 1
		l.cycle++
	}
}

// value produces the raw shape value in [-1, 1] at the current phase,
// then applies the one-pole smoothing stage. The smoothing cutoff is
// rate*(1+(1-smooth)*100): at smooth=0 the filter is far above the
// cycle rate and passes edges through, at smooth=1 it sits at the
// cycle rate and rounds everything toward a sine.
func (l *lfoRun) value(st *LFOState, rate, dt float64) float64 {
	raw := l.shapeValue(st)
	if dt <= 0 || rate <= 0 {
		l.smooth = raw
		return raw
	}
	cutoff := rate * (1 + (1-clamp(st.Smooth, 0, 1))*100)
	a := 1 - math.Exp(-2*math.Pi*cutoff*dt)
	l.smooth += (raw - l.smooth) * a
	return l.smooth
}

func (l *lfoRun) shapeValue(st *LFOState) float64 {
	p := l.phase
	switch st.Shape {
	case ShapeTriangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	case ShapeSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case ShapeSawUp:
		return 2*p - 1
	case ShapeSawDown:
		return 1 - 2*p
	case ShapeStep:
		return hashNoise(l.seed, uint32(l.cycle))
	case ShapeNoise:
		a := hashNoise(l.seed, uint32(l.cycle))
		b := hashNoise(l.seed, uint32(l.cycle+1))
		return a + (b-a)*smoothstep(p)
	case ShapePerlin:
		return l.perlinValue(p)
	case ShapeDrawn:
		if len(st.Table) == 0 {
			return 0
		}
		idx := int(p * float64(len(st.Table)))
		if idx >= len(st.Table) {
			idx = len(st.Table) - 1
		}
		return clamp(st.Table[idx], -1, 1)
	default: // ShapeSine
		return math.Sin(2 * math.Pi * p)
	}
}

// perlinValue is 1-D value noise over a fixed wrapped lattice, so the
// shape repeats every cycle like the periodic waveforms do.
func (l *lfoRun) perlinValue(phase float64) float64 {
	x := phase * perlinPeriod
	i := int(x) % perlinPeriod
	frac := x - math.Floor(x)
	a := hashNoise(l.seed, uint32(i))
	b := hashNoise(l.seed, uint32((i+1)%perlinPeriod))
	return a + (b-a)*smootherstep(frac)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func smootherstep(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

// hashNoise maps (seed, n) deterministically to [-1, 1].
func hashNoise(seed, n uint32) float64 {
	h := seed ^ n*2654435761
	h ^= h >> 13
	h *= 2246822519
	h ^= h >> 16
	return float64(h)/float64(math.MaxUint32)*2 - 1
}
