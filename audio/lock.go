package audio

// LockState mirrors the randomizable part of the parameter tree with
// booleans; true means the randomizer must leave that value unchanged.
// The mirror is typed on purpose: a lock on a parameter that does not
// exist cannot be expressed.
type LockState struct {
	Tempo   bool
	Engines [NumEngines]EngineLock
	LFOs    [NumLFOs]LFOLock
	FilterA FilterLock
	FilterB FilterLock
	Effects [8]EffectLock // by chain position
	Routing bool          // all route enables
	Scale   bool
	Root    bool
}

type LayerLock struct {
	Enabled bool
	Level   bool
	Wave    bool // tone layer only
}

type SampleLock struct {
	Enabled bool
	Level   bool
	Size    bool
	Density bool
	Pos     bool
	Jitter  bool
}

type EnvLock struct {
	Attack  bool
	Decay   bool
	Sustain bool
	Release bool
}

type RhythmLock struct {
	Steps    bool
	Pulses   bool
	Rotation bool
	Div      bool
}

type EngineLock struct {
	Tone    LayerLock
	Noise   LayerLock
	Sample  SampleLock
	Env     EnvLock
	Rhythm  RhythmLock
	Seq     bool
	Pitch   bool
	Voicing bool
	Glide   bool
	Output  bool
}

type LFOLock struct {
	Rate   bool
	Sync   bool
	Depth  bool
	Shape  bool
	Smooth bool
}

type FilterLock struct {
	Kind   bool
	Cutoff bool
	Res    bool
}

type EffectLock struct {
	Time     bool
	Feedback bool
	Mix      bool
	Amount   bool
}

// SetAll sets every lock in the tree to v.
func (l *LockState) SetAll(v bool) {
	l.Tempo = v
	for i := range l.Engines {
		e := &l.Engines[i]
		e.Tone = LayerLock{v, v, v}
		e.Noise = LayerLock{v, v, v}
		e.Sample = SampleLock{v, v, v, v, v, v}
		e.Env = EnvLock{v, v, v, v}
		e.Rhythm = RhythmLock{v, v, v, v}
		e.Seq = v
		e.Pitch = v
		e.Voicing = v
		e.Glide = v
		e.Output = v
	}
	for i := range l.LFOs {
		l.LFOs[i] = LFOLock{v, v, v, v, v}
	}
	l.FilterA = FilterLock{v, v, v}
	l.FilterB = FilterLock{v, v, v}
	for i := range l.Effects {
		l.Effects[i] = EffectLock{v, v, v, v}
	}
	l.Routing = v
	l.Scale = v
	l.Root = v
}
