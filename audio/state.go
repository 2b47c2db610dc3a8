package audio

const (
	// NumEngines is the number of independently sequenced sound
	// engines in the fixed topology.
	NumEngines = 4
	// NumLFOs is the number of global modulation LFOs.
	NumLFOs = 3

	beatsPerBar = 4
)

// Engine output routing.
const (
	OutFilterA = iota
	OutFilterB
	OutMix
)

// Voicing modes.
const (
	VoicePoly   = "poly"
	VoiceMono   = "mono"
	VoiceLegato = "legato"
	VoiceTrill  = "trill"
)

// ToneLayer is an engine's oscillator layer.
type ToneLayer struct {
	Enabled bool    `json:"enabled"`
	Level   float64 `json:"level"` // dB
	Wave    string  `json:"wave"`  // sine, triangle, saw, square
}

// NoiseLayer is an engine's noise generator layer.
type NoiseLayer struct {
	Enabled bool    `json:"enabled"`
	Level   float64 `json:"level"` // dB
}

// SampleLayer is an engine's sample/granular player layer. Position is
// normalized to the sample duration.
type SampleLayer struct {
	Enabled bool    `json:"enabled"`
	Level   float64 `json:"level"`   // dB
	Size    float64 `json:"size"`    // grain duration, seconds
	Density float64 `json:"density"` // grains per second
	Pos     float64 `json:"pos"`     // 0..1
	Jitter  float64 `json:"jitter"`  // 0..1, random position spread
}

// Env holds ADSR times in seconds and the sustain level.
type Env struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// Rhythm describes an engine's Euclidean sequence.
type Rhythm struct {
	Steps    int     `json:"steps"`
	Pulses   int     `json:"pulses"`
	Rotation int     `json:"rotation"`
	Div      float64 `json:"div"` // step length in beats
	Enabled  bool    `json:"enabled"`
}

// EngineDests are the per-engine modulation destinations a route can
// target.
type EngineDests struct {
	Volume  bool `json:"volume"`
	Pitch   bool `json:"pitch"`
	Size    bool `json:"size"`
	Density bool `json:"density"`
	Pos     bool `json:"pos"`
	Jitter  bool `json:"jitter"`
	Rate    bool `json:"rate"`
}

// RouteSet is one modulation source's full routing selection. Keeping
// destinations as struct fields (rather than string keys) makes a
// mistyped destination a compile error instead of a silent no-op.
type RouteSet struct {
	FilterACutoff bool                    `json:"filterACutoff"`
	FilterARes    bool                    `json:"filterARes"`
	FilterBCutoff bool                    `json:"filterBCutoff"`
	FilterBRes    bool                    `json:"filterBRes"`
	Engines       [NumEngines]EngineDests `json:"engines"`
	LFORate       [NumLFOs]bool           `json:"lfoRate"`
}

// EngineState is the full parameter set of one engine.
type EngineState struct {
	Tone   ToneLayer   `json:"tone"`
	Noise  NoiseLayer  `json:"noise"`
	Sample SampleLayer `json:"sample"`

	Env    Env    `json:"env"`
	Rhythm Rhythm `json:"rhythm"`

	// Pattern is derived from Rhythm and cached; its length always
	// equals Rhythm.Steps.
	Pattern []bool `json:"pattern"`

	// Seq holds an optional pitch list per step; an empty list falls
	// back to Pitch. Its length always equals Rhythm.Steps.
	Seq   [][]int `json:"seq"`
	Pitch int     `json:"pitch"`

	Voicing   string  `json:"voicing"`
	Glide     float64 `json:"glide"`     // seconds, when GlideSync is empty
	GlideSync string  `json:"glideSync"` // subdivision name or ""

	Muted  bool `json:"muted"`
	Output int  `json:"output"`

	// GateRoutes routes this engine's sequencer gate as a modulation
	// source.
	GateRoutes RouteSet `json:"gateRoutes"`
}

// LFOState is the parameter set of one LFO.
type LFOState struct {
	Rate   float64   `json:"rate"` // Hz, when Sync is empty
	Sync   string    `json:"sync"` // subdivision name or ""
	Depth  float64   `json:"depth"`
	Shape  string    `json:"shape"`
	Smooth float64   `json:"smooth"` // 0 sharp .. 1 sine-like
	Table  []float64 `json:"table"`  // freeform drawn shape, sampled by phase
	Routes RouteSet  `json:"routes"`
}

// FilterState is one of the two shared filters.
type FilterState struct {
	Kind   string  `json:"kind"` // lp, bp, hp
	Cutoff float64 `json:"cutoff"`
	Res    float64 `json:"res"`
}

// filterKindCode maps a filter kind name to the numeric code carried
// by automation events.
func filterKindCode(kind string) int {
	switch kind {
	case "bp":
		return 1
	case "hp":
		return 2
	default:
		return 0
	}
}

// EffectState is one element of the ordered effect chain. The meaning
// of the numeric fields depends on Kind; unused fields are ignored.
type EffectState struct {
	Kind     string  `json:"kind"` // delay, drive, reverb
	Time     float64 `json:"time"`
	Feedback float64 `json:"feedback"`
	Mix      float64 `json:"mix"`
	Amount   float64 `json:"amount"`
}

// MorphSettings configure how randomized or loaded states are applied.
type MorphSettings struct {
	Duration float64 `json:"duration"` // seconds, when Sync is empty
	Sync     string  `json:"sync"`
}

// AutoRandom periodically triggers randomization from the machine
// loop.
type AutoRandom struct {
	Enabled bool    `json:"enabled"`
	Beats   float64 `json:"beats"` // interval between triggers
	Mode    string  `json:"mode"`
	Scope   string  `json:"scope"`
}

// State is the complete serializable parameter tree. Values are never
// mutated in place once published: Machine.Update copies the tree,
// applies the change and swaps the copy in, so timer callbacks can
// hold a consistent snapshot for the duration of a tick.
type State struct {
	Tempo   float64                 `json:"tempo"`
	Engines [NumEngines]EngineState `json:"engines"`
	LFOs    [NumLFOs]LFOState       `json:"lfos"`
	FilterA FilterState             `json:"filterA"`
	FilterB FilterState             `json:"filterB"`
	Effects []EffectState           `json:"effects"`
	Scale   string                  `json:"scale"`
	Root    int                     `json:"root"`
	Morph   MorphSettings           `json:"morph"`
	Auto    AutoRandom              `json:"auto"`
}

// DefaultState returns the initial parameter tree.
func DefaultState() *State {
	st := &State{
		Tempo:   120,
		FilterA: FilterState{Kind: "lp", Cutoff: 2000, Res: 0.7},
		FilterB: FilterState{Kind: "lp", Cutoff: 800, Res: 0.7},
		Scale:   "minor",
		Root:    48,
		Morph:   MorphSettings{Duration: 0},
		Auto:    AutoRandom{Beats: 16, Mode: "chaotic", Scope: "global"},
	}
	for i := range st.Engines {
		e := &st.Engines[i]
		e.Tone = ToneLayer{Enabled: true, Level: -6, Wave: "saw"}
		e.Noise = NoiseLayer{Level: -18}
		e.Sample = SampleLayer{Level: -6, Size: 0.08, Density: 20, Pos: 0.25, Jitter: 0.05}
		e.Env = Env{Attack: 0.005, Decay: 0.2, Sustain: 0.5, Release: 0.3}
		e.Rhythm = Rhythm{Steps: 16, Pulses: 4, Rotation: 0, Div: 0.25, Enabled: true}
		e.Pattern = Rotate(Euclid(16, 4), 0)
		e.Seq = make([][]int, 16)
		e.Pitch = 48 + 12*i
		e.Voicing = VoicePoly
		e.Glide = 0.05
		e.Output = OutMix
	}
	for i := range st.LFOs {
		l := &st.LFOs[i]
		l.Rate = 0.5
		l.Depth = 0.5
		l.Shape = ShapeSine
		l.Smooth = 0.2
	}
	return st
}

// Copy returns a deep copy of the state.
func (st *State) Copy() *State {
	out := *st
	for i := range out.Engines {
		e := &out.Engines[i]
		e.Pattern = append([]bool(nil), e.Pattern...)
		seq := make([][]int, len(e.Seq))
		for j, notes := range e.Seq {
			seq[j] = append([]int(nil), notes...)
		}
		e.Seq = seq
	}
	for i := range out.LFOs {
		out.LFOs[i].Table = append([]float64(nil), out.LFOs[i].Table...)
	}
	out.Effects = append([]EffectState(nil), st.Effects...)
	return &out
}

// RegeneratePattern recomputes the cached pattern from the rhythm
// descriptor and resizes the melodic sequence, preserving existing
// entries modulo the old length.
func (e *EngineState) RegeneratePattern() {
	r := &e.Rhythm
	if r.Steps < 1 {
		r.Steps = 1
	}
	if r.Pulses > r.Steps {
		r.Pulses = r.Steps
	}
	if r.Pulses < 0 {
		r.Pulses = 0
	}
	r.Rotation = ((r.Rotation % r.Steps) + r.Steps) % r.Steps
	e.Pattern = Rotate(Euclid(r.Steps, r.Pulses), r.Rotation)
	e.Seq = resizeSeq(e.Seq, r.Steps)
}

func resizeSeq(seq [][]int, steps int) [][]int {
	out := make([][]int, steps)
	if len(seq) == 0 {
		return out
	}
	for i := range out {
		out[i] = append([]int(nil), seq[i%len(seq)]...)
	}
	return out
}

// StepBeats is the step length in beats after tempo sync resolution.
func (r Rhythm) StepBeats() float64 {
	if r.Div <= 0 {
		return 0.25
	}
	return r.Div
}

// LoopBeats is the engine's full loop length in beats.
func (e *EngineState) LoopBeats() float64 {
	return float64(e.Rhythm.Steps) * e.Rhythm.StepBeats()
}

// GlideTime resolves the glide duration in seconds at the given tempo.
func (e *EngineState) GlideTime(tempo float64) float64 {
	if e.GlideSync != "" {
		if beats, ok := SubdivisionBeats(e.GlideSync); ok && tempo > 0 {
			return beats * 60 / tempo
		}
	}
	return e.Glide
}

// RateHz resolves an LFO's cycle rate in Hz at the given tempo.
func (l *LFOState) RateHz(tempo float64) float64 {
	if l.Sync != "" {
		if beats, ok := SubdivisionBeats(l.Sync); ok && tempo > 0 && beats > 0 {
			return tempo / 60 / beats
		}
	}
	return l.Rate
}

// MorphTime resolves the morph duration in seconds at the given tempo.
func (m MorphSettings) MorphTime(tempo float64) float64 {
	if m.Sync != "" {
		if beats, ok := SubdivisionBeats(m.Sync); ok && tempo > 0 {
			return beats * 60 / tempo
		}
	}
	return m.Duration
}
