package audio

import (
	"reflect"
	"testing"
)

func between(t *testing.T, name string, a, v, b float64) {
	t.Helper()
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v <= lo || v >= hi {
		t.Errorf("%s = %v, want strictly between %v and %v", name, v, a, b)
	}
}

func morphTarget() (*State, *State) {
	a := DefaultState()
	b := a.Copy()
	b.Tempo = 140
	b.Engines[0].Env.Attack = 0.5
	b.Engines[0].Tone.Level = -12
	b.Engines[0].Sample.Pos = 0.75
	b.FilterA.Cutoff = 4000
	b.LFOs[0].Rate = 2
	return a, b
}

func TestMorphBelowThresholdIsAtomic(t *testing.T) {
	a, b := morphTarget()
	var m Morph
	got := m.Begin(a, b, 0, 0.001)
	if got != b {
		t.Fatal("short morph did not return the target for atomic apply")
	}
	if m.Running() {
		t.Error("short morph left the animation running")
	}
}

func TestMorphMidpointBetweenness(t *testing.T) {
	a, b := morphTarget()
	var m Morph
	if st := m.Begin(a, b, 0, 1.0); st != nil {
		t.Fatal("long morph applied atomically")
	}
	mid := m.Frame(0.5)
	between(t, "tempo", a.Tempo, mid.Tempo, b.Tempo)
	between(t, "attack", a.Engines[0].Env.Attack, mid.Engines[0].Env.Attack, b.Engines[0].Env.Attack)
	between(t, "tone level", a.Engines[0].Tone.Level, mid.Engines[0].Tone.Level, b.Engines[0].Tone.Level)
	between(t, "sample pos", a.Engines[0].Sample.Pos, mid.Engines[0].Sample.Pos, b.Engines[0].Sample.Pos)
	between(t, "cutoff", a.FilterA.Cutoff, mid.FilterA.Cutoff, b.FilterA.Cutoff)
	between(t, "lfo rate", a.LFOs[0].Rate, mid.LFOs[0].Rate, b.LFOs[0].Rate)
}

func TestMorphEndsExactlyOnTarget(t *testing.T) {
	a, b := morphTarget()
	var m Morph
	m.Begin(a, b, 0, 1.0)
	m.Frame(0.5)
	end := m.Frame(1.0)
	if !reflect.DeepEqual(end, b) {
		t.Error("final frame differs from the target state")
	}
	if m.Running() {
		t.Error("morph still running past its duration")
	}
	if m.Frame(1.1) != nil {
		t.Error("finished morph produced another frame")
	}
}

func TestMorphRoundsRhythmAndRegenerates(t *testing.T) {
	a := DefaultState()
	b := a.Copy()
	b.Engines[0].Rhythm.Steps = 32
	b.Engines[0].Rhythm.Pulses = 8
	b.Engines[0].RegeneratePattern()

	var m Morph
	m.Begin(a, b, 0, 1.0)
	mid := m.Frame(0.5)
	eng := &mid.Engines[0]
	if eng.Rhythm.Steps != 24 {
		t.Fatalf("midpoint steps = %d, want 24", eng.Rhythm.Steps)
	}
	if eng.Rhythm.Pulses != 6 {
		t.Fatalf("midpoint pulses = %d, want 6", eng.Rhythm.Pulses)
	}
	if len(eng.Pattern) != 24 || len(eng.Seq) != 24 {
		t.Errorf("pattern/seq not regenerated: %d/%d", len(eng.Pattern), len(eng.Seq))
	}
	var pulses int
	for _, bit := range eng.Pattern {
		if bit {
			pulses++
		}
	}
	if pulses != 6 {
		t.Errorf("midpoint pattern has %d pulses, want 6", pulses)
	}
}

func TestMorphLeavesChainMembershipAlone(t *testing.T) {
	a := DefaultState()
	a.Effects = []EffectState{{Kind: "delay", Time: 0.2, Feedback: 0.3, Mix: 0.2}}
	b := a.Copy()
	b.Effects[0].Mix = 0.8
	b.Effects = append(b.Effects, EffectState{Kind: "reverb", Amount: 0.5, Mix: 0.4})

	var m Morph
	m.Begin(a, b, 0, 1.0)
	mid := m.Frame(0.5)
	if len(mid.Effects) != 1 {
		t.Fatalf("midpoint chain has %d effects, membership should not interpolate", len(mid.Effects))
	}
	between(t, "delay mix", 0.2, mid.Effects[0].Mix, 0.8)

	end := m.Frame(1.0)
	if len(end.Effects) != 2 {
		t.Errorf("final chain has %d effects, want 2", len(end.Effects))
	}
}

func TestMorphSnapsDiscreteAtMidpoint(t *testing.T) {
	a := DefaultState()
	b := a.Copy()
	b.Engines[0].Tone.Wave = "square"
	b.FilterA.Kind = "hp"

	var m Morph
	m.Begin(a, b, 0, 1.0)
	early := m.Frame(0.4)
	if early.Engines[0].Tone.Wave != "saw" || early.FilterA.Kind != "lp" {
		t.Error("discrete values switched before the midpoint")
	}
	late := m.Frame(0.6)
	if late.Engines[0].Tone.Wave != "square" || late.FilterA.Kind != "hp" {
		t.Error("discrete values did not switch after the midpoint")
	}
}
