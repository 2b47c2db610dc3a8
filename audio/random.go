package audio

import (
	"math"
	"math/rand"
)

// Randomize modes.
const (
	ModeChaotic  = "chaotic"
	ModeMelodic  = "melodic"
	ModeRhythmic = "rhythmic"
)

// Scope kinds for randomize and init.
const (
	ScopeGlobal  = "global"
	ScopeEngine  = "engine"
	ScopeLFO     = "lfo"
	ScopeFilter  = "filter"
	ScopeEffect  = "effect"
	ScopeRouting = "routing"
)

// Scope selects what a randomize pass touches; Index picks the engine,
// LFO, filter or effect for the per-entity kinds.
type Scope struct {
	Kind  string
	Index int
}

var waveNames = []string{"sine", "triangle", "saw", "square"}

var voicingNames = []string{VoicePoly, VoiceMono, VoiceLegato, VoiceTrill}

var stepCounts = []int{8, 12, 16, 24, 32}

var stepDivs = []float64{0.125, 0.25, 0.25, 0.5, 1}

// Randomizer draws candidate states. Chaotic mode redraws everything in
// scope, melodic mode redraws pitch material and envelopes from the
// current scale, rhythmic mode redraws only the Euclidean descriptors.
// Locked leaves always keep their current value.
type Randomizer struct {
	rng *rand.Rand
}

func NewRandomizer(seed int64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewSource(seed))}
}

// Randomize returns a candidate state drawn under mode and scope. The
// input state is not modified.
func (r *Randomizer) Randomize(st *State, locks *LockState, mode string, scope Scope) *State {
	out := st.Copy()
	switch scope.Kind {
	case ScopeEngine:
		if scope.Index >= 0 && scope.Index < NumEngines {
			r.engine(out, scope.Index, locks, mode)
		}
	case ScopeLFO:
		if scope.Index >= 0 && scope.Index < NumLFOs {
			r.lfo(out, scope.Index, locks, mode)
		}
	case ScopeFilter:
		r.filter(out, scope.Index, locks)
	case ScopeEffect:
		if scope.Index >= 0 && scope.Index < len(out.Effects) {
			r.effect(out, scope.Index, locks)
		}
	case ScopeRouting:
		r.routing(out, locks)
	default:
		r.global(out, locks, mode)
	}
	return out
}

func (r *Randomizer) global(st *State, locks *LockState, mode string) {
	if mode == ModeChaotic && !locks.Tempo {
		st.Tempo = math.Round(r.unit(70, 160))
	}
	if mode == ModeMelodic {
		if !locks.Scale {
			st.Scale = r.pickScale()
		}
		if !locks.Root {
			st.Root = 36 + r.rng.Intn(25)
		}
	}
	for e := 0; e < NumEngines; e++ {
		r.engine(st, e, locks, mode)
	}
	if mode != ModeRhythmic {
		for i := 0; i < NumLFOs; i++ {
			r.lfo(st, i, locks, mode)
		}
		r.filter(st, 0, locks)
		r.filter(st, 1, locks)
		for i := range st.Effects {
			r.effect(st, i, locks)
		}
	}
	if mode == ModeChaotic {
		r.routing(st, locks)
	}
}

func (r *Randomizer) engine(st *State, e int, locks *LockState, mode string) {
	eng := &st.Engines[e]
	lk := &locks.Engines[e]

	switch mode {
	case ModeRhythmic:
		r.rhythm(eng, &lk.Rhythm)
	case ModeMelodic:
		r.melodic(st, eng, lk)
	default:
		r.layers(eng, lk)
		r.envelope(&eng.Env, &lk.Env, 0.001, 1, 0.02, 2, 0.02, 3)
		r.rhythm(eng, &lk.Rhythm)
		if !lk.Pitch {
			eng.Pitch = clampInt(st.Root+r.rng.Intn(37)-12, 12, 108)
		}
		if !lk.Seq {
			r.chromaticSeq(st, eng)
		}
		if !lk.Voicing {
			eng.Voicing = voicingNames[r.rng.Intn(len(voicingNames))]
		}
		if !lk.Glide {
			eng.Glide = r.unit(0, 0.3)
		}
		if !lk.Output {
			eng.Output = r.rng.Intn(3)
		}
	}
}

func (r *Randomizer) layers(eng *EngineState, lk *EngineLock) {
	if !lk.Tone.Enabled {
		eng.Tone.Enabled = r.chance(0.85)
	}
	if !lk.Tone.Level {
		eng.Tone.Level = r.unit(-18, -3)
	}
	if !lk.Tone.Wave {
		eng.Tone.Wave = waveNames[r.rng.Intn(len(waveNames))]
	}
	if !lk.Noise.Enabled {
		eng.Noise.Enabled = r.chance(0.4)
	}
	if !lk.Noise.Level {
		eng.Noise.Level = r.unit(-30, -9)
	}
	// Sample.Enabled is structural (it tracks whether a buffer is
	// loaded) and is never randomized.
	if !lk.Sample.Level {
		eng.Sample.Level = r.unit(-18, -3)
	}
	if !lk.Sample.Size {
		eng.Sample.Size = r.unit(0.01, 0.3)
	}
	if !lk.Sample.Density {
		eng.Sample.Density = r.unit(4, 60)
	}
	if !lk.Sample.Pos {
		eng.Sample.Pos = r.unit(0, 1)
	}
	if !lk.Sample.Jitter {
		eng.Sample.Jitter = r.unit(0, 0.5)
	}
}

// melodic redraws pitch material from the current scale and softens
// envelopes, leaving rhythm and layer structure alone.
func (r *Randomizer) melodic(st *State, eng *EngineState, lk *EngineLock) {
	r.envelope(&eng.Env, &lk.Env, 0.001, 0.3, 0.1, 1.5, 0.2, 2.5)
	if !lk.Pitch {
		eng.Pitch = r.scaleNote(st)
	}
	if !lk.Seq {
		for i := range eng.Seq {
			switch {
			case !eng.Pattern[i%len(eng.Pattern)]:
				eng.Seq[i] = nil
			case r.chance(0.25):
				eng.Seq[i] = []int{r.scaleNote(st), r.scaleNote(st)}
			default:
				eng.Seq[i] = []int{r.scaleNote(st)}
			}
		}
	}
	if !lk.Voicing {
		eng.Voicing = voicingNames[r.rng.Intn(len(voicingNames))]
	}
	if !lk.Glide {
		eng.Glide = r.unit(0, 0.25)
	}
}

func (r *Randomizer) chromaticSeq(st *State, eng *EngineState) {
	for i := range eng.Seq {
		if r.chance(0.3) {
			eng.Seq[i] = []int{clampInt(st.Root+r.rng.Intn(37)-12, 12, 108)}
		} else {
			eng.Seq[i] = nil
		}
	}
}

func (r *Randomizer) envelope(env *Env, lk *EnvLock, aLo, aHi, dLo, dHi, rLo, rHi float64) {
	if !lk.Attack {
		env.Attack = r.unit(aLo, aHi)
	}
	if !lk.Decay {
		env.Decay = r.unit(dLo, dHi)
	}
	if !lk.Sustain {
		env.Sustain = r.unit(0, 1)
	}
	if !lk.Release {
		env.Release = r.unit(rLo, rHi)
	}
}

func (r *Randomizer) rhythm(eng *EngineState, lk *RhythmLock) {
	rh := &eng.Rhythm
	changed := false
	if !lk.Steps {
		rh.Steps = stepCounts[r.rng.Intn(len(stepCounts))]
		changed = true
	}
	if !lk.Pulses {
		rh.Pulses = 1 + r.rng.Intn(rh.Steps)
		changed = true
	}
	if !lk.Rotation {
		rh.Rotation = r.rng.Intn(rh.Steps)
		changed = true
	}
	if !lk.Div {
		rh.Div = stepDivs[r.rng.Intn(len(stepDivs))]
	}
	if changed {
		eng.RegeneratePattern()
	}
}

func (r *Randomizer) lfo(st *State, i int, locks *LockState, mode string) {
	l := &st.LFOs[i]
	lk := &locks.LFOs[i]
	if !lk.Rate {
		// Log-uniform over 0.05..8 Hz.
		l.Rate = 0.05 * math.Exp2(r.unit(0, 7.3))
	}
	if !lk.Sync && r.chance(0.3) {
		l.Sync = r.pickSubdivision()
	} else if !lk.Sync {
		l.Sync = ""
	}
	if !lk.Depth {
		l.Depth = r.unit(0, 1)
	}
	if !lk.Shape {
		shapes := []string{
			ShapeSine, ShapeTriangle, ShapeSquare, ShapeSawUp,
			ShapeSawDown, ShapeStep, ShapeNoise, ShapePerlin,
		}
		if mode == ModeMelodic {
			shapes = shapes[:5]
		}
		l.Shape = shapes[r.rng.Intn(len(shapes))]
	}
	if !lk.Smooth {
		l.Smooth = r.unit(0, 1)
	}
}

func (r *Randomizer) filter(st *State, i int, locks *LockState) {
	f, lk := &st.FilterA, &locks.FilterA
	if i == 1 {
		f, lk = &st.FilterB, &locks.FilterB
	}
	if !lk.Kind {
		kinds := []string{"lp", "lp", "bp", "hp"}
		f.Kind = kinds[r.rng.Intn(len(kinds))]
	}
	if !lk.Cutoff {
		// Log-uniform over 100..12800 Hz.
		f.Cutoff = 100 * math.Exp2(r.unit(0, 7))
	}
	if !lk.Res {
		f.Res = r.unit(0.3, 6)
	}
}

func (r *Randomizer) effect(st *State, i int, locks *LockState) {
	fx := &st.Effects[i]
	var lk EffectLock
	if i < len(locks.Effects) {
		lk = locks.Effects[i]
	}
	if !lk.Time {
		fx.Time = r.unit(0.05, 1)
	}
	if !lk.Feedback {
		fx.Feedback = r.unit(0, 0.85)
	}
	if !lk.Mix {
		fx.Mix = r.unit(0, 1)
	}
	if !lk.Amount {
		fx.Amount = r.unit(0, 1)
	}
}

// routing redraws every route enable with a low on-probability so the
// result stays sparse.
func (r *Randomizer) routing(st *State, locks *LockState) {
	if locks.Routing {
		return
	}
	for i := range st.LFOs {
		r.routeSet(&st.LFOs[i].Routes, 0.15)
	}
	for e := range st.Engines {
		r.routeSet(&st.Engines[e].GateRoutes, 0.1)
	}
}

func (r *Randomizer) routeSet(rs *RouteSet, p float64) {
	rs.FilterACutoff = r.chance(p)
	rs.FilterARes = r.chance(p)
	rs.FilterBCutoff = r.chance(p)
	rs.FilterBRes = r.chance(p)
	for e := range rs.Engines {
		d := &rs.Engines[e]
		d.Volume = r.chance(p)
		d.Pitch = r.chance(p)
		d.Size = r.chance(p)
		d.Density = r.chance(p)
		d.Pos = r.chance(p)
		d.Jitter = r.chance(p)
		d.Rate = r.chance(p)
	}
	for i := range rs.LFORate {
		rs.LFORate[i] = r.chance(p)
	}
}

func (r *Randomizer) scaleNote(st *State) int {
	iv, ok := Scales[st.Scale]
	if !ok {
		iv = Scales["chromatic"]
	}
	oct := r.rng.Intn(3) - 1
	n := st.Root + 12*oct + iv[r.rng.Intn(len(iv))]
	return clampInt(n, 12, 108)
}

func (r *Randomizer) pickScale() string {
	names := []string{
		"major", "minor", "dorian", "phrygian", "lydian",
		"mixolydian", "pent.min", "pent.maj",
	}
	return names[r.rng.Intn(len(names))]
}

func (r *Randomizer) pickSubdivision() string {
	names := []string{"1/1", "1/2", "1/4", "1/8", "1/16", "1/4t", "1/8."}
	return names[r.rng.Intn(len(names))]
}

func (r *Randomizer) unit(lo, hi float64) float64 {
	return lo + r.rng.Float64()*(hi-lo)
}

func (r *Randomizer) chance(p float64) bool {
	return r.rng.Float64() < p
}
