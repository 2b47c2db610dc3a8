package audio

import "math"

// destKind enumerates modulation destinations. Destinations are typed
// identifiers end to end; nothing in the matrix is looked up by name.
type destKind int

const (
	DestFilterACutoff destKind = iota
	DestFilterARes
	DestFilterBCutoff
	DestFilterBRes
	DestEngineVolume
	DestEnginePitch
	DestGrainSize
	DestGrainDensity
	DestGrainPos
	DestGrainJitter
	DestEngineRate
	DestLFORate
)

// Dest identifies one modulation destination; Index selects the engine
// or LFO for the per-entity kinds.
type Dest struct {
	Kind  destKind
	Index int
}

// Modulation scaling per destination kind. The summed modulation value
// is nominally in [-1, 1] per source at full depth.
const (
	modCutoffOctaves  = 4.0  // cutoff multiplier 2^(mod*4)
	modResRange       = 6.0  // resonance offset
	modPitchSemitones = 12.0 // pitch offset range
	modRateOctaves    = 2.0  // rate multiplier 2^(mod*2), ±2 octaves
	modPosRange       = 0.5
	modJitterRange    = 0.5
)

// gateWindow is an open interval during which an engine's sequencer
// gate contributes as a modulation source.
type gateWindow struct {
	engine      int
	open, close float64
}

// Matrix computes per-destination modulation sums from the LFOs and
// sequencer gates. It owns the LFO phase accumulators so that rate
// modulation of an LFO shifts only its future phase progress.
type Matrix struct {
	lfos  [NumLFOs]lfoRun
	vals  [NumLFOs]float64 // smoothed values from the last Advance
	rateF [NumLFOs]float64 // rate factor applied to the next interval
	gates []gateWindow
	last  float64
}

func NewMatrix(seed uint32) *Matrix {
	m := &Matrix{}
	for i := range m.lfos {
		m.lfos[i].seed = seed + uint32(i)*7919
		m.rateF[i] = 1
	}
	return m
}

// AddGate records a sequencer gate window. Gates are emitted for every
// active pattern step whether or not the engine is audible, since the
// gate is an independent modulation source.
func (m *Matrix) AddGate(engine int, open, close float64) {
	m.gates = append(m.gates, gateWindow{engine: engine, open: open, close: close})
}

// ClearGates drops all gate windows (panic path).
func (m *Matrix) ClearGates() {
	m.gates = m.gates[:0]
}

// Advance moves every LFO forward to now and recomputes their values,
// then derives the rate factors for the next interval. Cross-LFO rate
// routes use the values computed in this pass, so a feedback patch
// settles one tick at a time instead of recursing.
func (m *Matrix) Advance(st *State, now float64) {
	dt := now - m.last
	if dt < 0 {
		dt = 0
	}
	m.last = now

	for i := range m.lfos {
		rate := st.LFOs[i].RateHz(st.Tempo) * m.rateF[i]
		m.lfos[i].advance(dt, rate)
		m.vals[i] = m.lfos[i].value(&st.LFOs[i], rate, dt)
	}
	for i := range m.lfos {
		mod := m.Value(st, Dest{Kind: DestLFORate, Index: i}, now)
		m.rateF[i] = math.Exp2(modRateOctaves * mod)
	}

	// Drop gate windows that have fallen behind.
	keep := m.gates[:0]
	for _, g := range m.gates {
		if g.close > now-1 {
			keep = append(keep, g)
		}
	}
	m.gates = keep
}

// Value sums the modulation contributions of every source routed to
// dest at time t. LFO contributions are scaled by depth; gate sources
// contribute their held value (1) while their window is open.
func (m *Matrix) Value(st *State, dest Dest, t float64) float64 {
	var sum float64
	for i := range st.LFOs {
		if routed(&st.LFOs[i].Routes, dest) {
			sum += m.vals[i] * st.LFOs[i].Depth
		}
	}
	for e := range st.Engines {
		if !routed(&st.Engines[e].GateRoutes, dest) {
			continue
		}
		for _, g := range m.gates {
			if g.engine == e && t >= g.open && t < g.close {
				sum += 1
				break
			}
		}
	}
	return sum
}

// RateFactor converts the summed modulation for a rate destination to
// a multiplicative factor, ±2 octaves at full modulation. LFO-sourced
// and gate-sourced contributions share one additive sum before the
// exponent; see the characterization test.
func (m *Matrix) RateFactor(st *State, dest Dest, t float64) float64 {
	return math.Exp2(modRateOctaves * m.Value(st, dest, t))
}

func routed(r *RouteSet, dest Dest) bool {
	switch dest.Kind {
	case DestFilterACutoff:
		return r.FilterACutoff
	case DestFilterARes:
		return r.FilterARes
	case DestFilterBCutoff:
		return r.FilterBCutoff
	case DestFilterBRes:
		return r.FilterBRes
	case DestLFORate:
		return r.LFORate[dest.Index]
	}
	e := &r.Engines[dest.Index]
	switch dest.Kind {
	case DestEngineVolume:
		return e.Volume
	case DestEnginePitch:
		return e.Pitch
	case DestGrainSize:
		return e.Size
	case DestGrainDensity:
		return e.Density
	case DestGrainPos:
		return e.Pos
	case DestGrainJitter:
		return e.Jitter
	case DestEngineRate:
		return e.Rate
	}
	return false
}
