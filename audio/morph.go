package audio

import "math"

// morphThreshold is the duration below which a candidate state is
// applied atomically instead of animated.
const morphThreshold = 0.02

// Morph animates a transition between two full parameter states.
// Numeric leaves are linearly interpolated per frame, discrete rhythm
// parameters are rounded and their patterns regenerated, and
// structural collections (route enables, melodic sequences, the effect
// chain's membership) snap rather than interpolate.
type Morph struct {
	start   *State
	target  *State
	t0      float64
	dur     float64
	running bool
}

// Begin starts a morph from cur to target. If the duration is below
// the threshold the morph completes immediately and Begin returns the
// target; otherwise it returns nil and Frame drives the animation.
func (m *Morph) Begin(cur, target *State, now, duration float64) *State {
	if duration < morphThreshold {
		m.running = false
		return target
	}
	m.start = cur.Copy()
	m.target = target
	m.t0 = now
	m.dur = duration
	m.running = true
	return nil
}

// Running reports whether a morph is in progress.
func (m *Morph) Running() bool { return m.running }

// Cancel abandons the animation, leaving the state wherever the last
// frame put it.
func (m *Morph) Cancel() { m.running = false }

// Frame returns the state for time now. At or past the end it returns
// the target exactly and stops.
func (m *Morph) Frame(now float64) *State {
	if !m.running {
		return nil
	}
	u := (now - m.t0) / m.dur
	if u >= 1 {
		m.running = false
		return m.target.Copy()
	}
	if u < 0 {
		u = 0
	}
	return m.interp(u)
}

func (m *Morph) interp(u float64) *State {
	a, b := m.start, m.target
	st := a.Copy()

	st.Tempo = lerp(a.Tempo, b.Tempo, u)
	if u >= 0.5 {
		st.Scale = b.Scale
		st.Root = b.Root
	}

	for e := range st.Engines {
		m.interpEngine(&st.Engines[e], &a.Engines[e], &b.Engines[e], u)
	}
	for i := range st.LFOs {
		sl, al, bl := &st.LFOs[i], &a.LFOs[i], &b.LFOs[i]
		sl.Rate = lerp(al.Rate, bl.Rate, u)
		sl.Depth = lerp(al.Depth, bl.Depth, u)
		sl.Smooth = lerp(al.Smooth, bl.Smooth, u)
		if u >= 0.5 {
			sl.Sync = bl.Sync
			sl.Shape = bl.Shape
			sl.Routes = bl.Routes
			sl.Table = append([]float64(nil), bl.Table...)
		}
	}

	interpFilter(&st.FilterA, &a.FilterA, &b.FilterA, u)
	interpFilter(&st.FilterB, &a.FilterB, &b.FilterB, u)

	// Only elements present in both chains morph; membership changes
	// are structural and snap with the final frame.
	n := len(st.Effects)
	if len(b.Effects) < n {
		n = len(b.Effects)
	}
	for i := 0; i < n; i++ {
		sf, af, bf := &st.Effects[i], &a.Effects[i], &b.Effects[i]
		if af.Kind != bf.Kind {
			continue
		}
		sf.Time = lerp(af.Time, bf.Time, u)
		sf.Feedback = lerp(af.Feedback, bf.Feedback, u)
		sf.Mix = lerp(af.Mix, bf.Mix, u)
		sf.Amount = lerp(af.Amount, bf.Amount, u)
	}
	return st
}

func (m *Morph) interpEngine(s, a, b *EngineState, u float64) {
	s.Tone.Level = lerp(a.Tone.Level, b.Tone.Level, u)
	s.Noise.Level = lerp(a.Noise.Level, b.Noise.Level, u)
	s.Sample.Level = lerp(a.Sample.Level, b.Sample.Level, u)
	s.Sample.Size = lerp(a.Sample.Size, b.Sample.Size, u)
	s.Sample.Density = lerp(a.Sample.Density, b.Sample.Density, u)
	s.Sample.Pos = lerp(a.Sample.Pos, b.Sample.Pos, u)
	s.Sample.Jitter = lerp(a.Sample.Jitter, b.Sample.Jitter, u)

	s.Env.Attack = lerp(a.Env.Attack, b.Env.Attack, u)
	s.Env.Decay = lerp(a.Env.Decay, b.Env.Decay, u)
	s.Env.Sustain = lerp(a.Env.Sustain, b.Env.Sustain, u)
	s.Env.Release = lerp(a.Env.Release, b.Env.Release, u)

	s.Glide = lerp(a.Glide, b.Glide, u)
	s.Pitch = roundLerp(a.Pitch, b.Pitch, u)

	rh := Rhythm{
		Steps:    roundLerp(a.Rhythm.Steps, b.Rhythm.Steps, u),
		Pulses:   roundLerp(a.Rhythm.Pulses, b.Rhythm.Pulses, u),
		Rotation: roundLerp(a.Rhythm.Rotation, b.Rhythm.Rotation, u),
		Div:      lerp(a.Rhythm.Div, b.Rhythm.Div, u),
		Enabled:  a.Rhythm.Enabled,
	}
	if u >= 0.5 {
		rh.Enabled = b.Rhythm.Enabled
	}
	if rh != s.Rhythm {
		s.Rhythm = rh
		s.RegeneratePattern()
	}

	if u >= 0.5 {
		s.Tone.Enabled = b.Tone.Enabled
		s.Tone.Wave = b.Tone.Wave
		s.Noise.Enabled = b.Noise.Enabled
		s.Voicing = b.Voicing
		s.GlideSync = b.GlideSync
		s.Muted = b.Muted
		s.Output = b.Output
		s.GateRoutes = b.GateRoutes
	}
}

func interpFilter(s, a, b *FilterState, u float64) {
	s.Cutoff = lerp(a.Cutoff, b.Cutoff, u)
	s.Res = lerp(a.Res, b.Res, u)
	if u >= 0.5 {
		s.Kind = b.Kind
	}
}

func lerp(a, b, u float64) float64 {
	return a + (b-a)*u
}

func roundLerp(a, b int, u float64) int {
	return int(math.Round(lerp(float64(a), float64(b), u)))
}
