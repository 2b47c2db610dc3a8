package audio

import (
	"math"
	"testing"
)

type fakeClock struct {
	snap  Snapshot
	start float64
}

func (f *fakeClock) Snapshot(now float64) Snapshot { return f.snap }
func (f *fakeClock) Start(now float64)             {}
func (f *fakeClock) Stop(now float64)              {}
func (f *fakeClock) StartBeat() float64            { return f.start }
func (f *fakeClock) Reset()                        {}

func schedState() *State {
	st := DefaultState()
	for i := range st.Engines {
		st.Engines[i].Pattern = make([]bool, 16)
	}
	return st
}

func ofKind(evs []renderEvent, kind int) []renderEvent {
	var out []renderEvent
	for _, ev := range evs {
		if ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestSchedulerStepTiming(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	s := NewScheduler(NewVoiceManager(emit), NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true
	st.Engines[0].Pattern[8] = true

	clk := newInternalClock(120)
	clk.Start(0)

	// 120 BPM, 1/4-beat steps: 0.125s per step. Step 0 fires at 0,
	// step 8 at 1.0.
	s.Tick(st, clk, 0, false)
	ons := ofKind(evs, evNoteOn)
	if len(ons) != 1 || ons[0].when != 0 {
		t.Fatalf("first tick: got %d note-ons, want 1 at t=0", len(ons))
	}

	for now := PollInterval; now < 1.0; now += PollInterval {
		s.Tick(st, clk, now, false)
	}
	ons = ofKind(evs, evNoteOn)
	if len(ons) != 2 {
		t.Fatalf("got %d note-ons, want 2", len(ons))
	}
	if math.Abs(ons[1].when-1.0) > 1e-9 {
		t.Errorf("step 8 scheduled at %v, want 1.0", ons[1].when)
	}
	offs := ofKind(evs, evRelease)
	if len(offs) != 2 {
		t.Fatalf("got %d releases, want 2", len(offs))
	}
	if math.Abs(offs[0].when-gateFraction*0.125) > 1e-9 {
		t.Errorf("note released at %v, want %v", offs[0].when, gateFraction*0.125)
	}
}

func TestSchedulerStoppedTransportIsSilent(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	s := NewScheduler(NewVoiceManager(emit), NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true
	clk := newInternalClock(120)

	s.Tick(st, clk, 0, false)
	if len(evs) != 0 {
		t.Fatalf("stopped clock emitted %d events", len(evs))
	}
}

func TestSchedulerQuantizedLaunch(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	s := NewScheduler(NewVoiceManager(emit), NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true

	// Transport running but the launch beat is 0.1 beats ahead; the
	// first step must land exactly on it, not on the current tick.
	clk := &fakeClock{
		snap:  Snapshot{Tempo: 120, Running: true, Beat: 7.9},
		start: 8,
	}
	s.Tick(st, clk, 10.0, false)
	ons := ofKind(evs, evNoteOn)
	if len(ons) != 1 {
		t.Fatalf("got %d note-ons, want 1", len(ons))
	}
	if math.Abs(ons[0].when-10.05) > 1e-9 {
		t.Errorf("launch step at %v, want 10.05", ons[0].when)
	}
}

func TestSchedulerHardResync(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	s := NewScheduler(NewVoiceManager(emit), NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Pattern[8] = true

	// The remote beat says the loop is at step 8 right now. Without
	// resync the engine would start from step 0 and only reach bit 8 a
	// second later; with resync the step fires immediately.
	clk := &fakeClock{snap: Snapshot{Tempo: 120, Running: true, Beat: 2.0}}
	s.Tick(st, clk, 1.0, true)
	ons := ofKind(evs, evNoteOn)
	if len(ons) == 0 {
		t.Fatal("no note-on after resync")
	}
	if math.Abs(ons[0].when-1.0) > 1e-9 {
		t.Errorf("resynced step at %v, want 1.0", ons[0].when)
	}
}

func TestSchedulerGateFiresWhenMuted(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	mx := NewMatrix(1)
	s := NewScheduler(NewVoiceManager(emit), mx, emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true
	st.Engines[0].Muted = true
	st.Engines[0].GateRoutes.FilterACutoff = true

	clk := newInternalClock(120)
	clk.Start(0)
	s.Tick(st, clk, 0, false)

	// Gate window is [0, 0.0625); the routed destination sees the held
	// value inside it.
	if got := mx.Value(st, Dest{Kind: DestFilterACutoff}, 0.03); got != 1 {
		t.Errorf("gate value = %v, want 1", got)
	}
	if got := mx.Value(st, Dest{Kind: DestFilterACutoff}, 0.08); got != 0 {
		t.Errorf("gate value past window = %v, want 0", got)
	}
	// Muting zeroes the engine bus, not the trigger.
	for _, ev := range ofKind(evs, evParam) {
		if ev.target == paramEngineVolume && ev.index == 0 && ev.value != 0 {
			t.Errorf("muted engine volume = %v, want 0", ev.value)
		}
	}
}

func TestSchedulerGateWithoutTriggerWhenDisabled(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	mx := NewMatrix(1)
	s := NewScheduler(NewVoiceManager(emit), mx, emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true
	st.Engines[0].Rhythm.Enabled = false
	st.Engines[0].GateRoutes.FilterBRes = true

	clk := newInternalClock(120)
	clk.Start(0)
	s.Tick(st, clk, 0, false)

	if ons := ofKind(evs, evNoteOn); len(ons) != 0 {
		t.Fatalf("disabled sequencer triggered %d voices", len(ons))
	}
	if got := mx.Value(st, Dest{Kind: DestFilterBRes}, 0.03); got != 1 {
		t.Errorf("gate value = %v, want 1", got)
	}
}

func TestSchedulerRateModulationStretchesSteps(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	mx := NewMatrix(1)
	s := NewScheduler(NewVoiceManager(emit), mx, emit, 1)

	st := schedState()
	for i := range st.Engines[0].Pattern {
		st.Engines[0].Pattern[i] = true
	}
	st.LFOs[0].Shape = ShapeSquare
	st.LFOs[0].Rate = 0.25
	st.LFOs[0].Smooth = 0
	st.LFOs[0].Depth = 0.5
	st.LFOs[0].Routes.Engines[0].Rate = true

	clk := newInternalClock(120)
	clk.Start(0)

	// Settle the LFO so its +1 half cycle is in effect, then schedule:
	// modulation 0.5 doubles the rate, halving the base 0.125s step.
	mx.Advance(st, 0.05)
	s.Tick(st, clk, 0.05, false)

	ons := ofKind(evs, evNoteOn)
	if len(ons) < 2 {
		t.Fatalf("got %d note-ons, want at least 2", len(ons))
	}
	gap := ons[1].when - ons[0].when
	if math.Abs(gap-0.0625) > 1e-3 {
		t.Errorf("modulated step interval = %v, want 0.0625", gap)
	}
}

func TestSchedulerGrainStream(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	vm := NewVoiceManager(emit)
	s := NewScheduler(vm, NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Sample.Enabled = true
	st.Engines[0].Sample.Jitter = 0

	vm.Trigger(st, 0, 72, 0)
	clk := newInternalClock(120)
	clk.Start(0)
	s.Tick(st, clk, 0, false)

	// Density 20/s over a 0.1s horizon: grains at 0 and 0.05.
	grains := ofKind(evs, evGrain)
	if len(grains) != 2 {
		t.Fatalf("got %d grains, want 2", len(grains))
	}
	if math.Abs(grains[1].when-0.05) > 1e-9 {
		t.Errorf("second grain at %v, want 0.05", grains[1].when)
	}
	for _, g := range grains {
		if g.pos < 0 || g.pos > 1 {
			t.Errorf("grain pos %v out of range", g.pos)
		}
		if g.dur != 0.08 {
			t.Errorf("grain dur = %v, want 0.08", g.dur)
		}
		if math.Abs(g.rate-2.0) > 1e-9 {
			t.Errorf("grain rate = %v, want 2.0 for note 72", g.rate)
		}
	}
}

func TestSchedulerGrainsContinueAfterRelease(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	vm := NewVoiceManager(emit)
	s := NewScheduler(vm, NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Sample.Enabled = true

	vm.Trigger(st, 0, 60, 0)
	clk := newInternalClock(120)
	clk.Start(0)
	s.Tick(st, clk, 0, false)
	vm.Release(st, 0, 60, 0.05)

	evs = evs[:0]
	s.Tick(st, clk, 0.1, false)
	if grains := ofKind(evs, evGrain); len(grains) == 0 {
		t.Fatal("released voice stopped producing grains before teardown")
	}

	// Past the release tail the voice is pruned and the stream stops.
	s.Tick(st, clk, 10.0, false)
	evs = evs[:0]
	s.Tick(st, clk, 10.1, false)
	if grains := ofKind(evs, evGrain); len(grains) != 0 {
		t.Fatalf("pruned voice still produced %d grains", len(grains))
	}
}

func TestSchedulerResetSteps(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	s := NewScheduler(NewVoiceManager(emit), NewMatrix(1), emit, 1)

	st := schedState()
	st.Engines[0].Pattern[0] = true

	clk := newInternalClock(120)
	clk.Start(0)
	s.Tick(st, clk, 0.05, false)
	if len(ofKind(evs, evNoteOn)) != 1 {
		t.Fatal("expected one note-on before reset")
	}

	s.ResetSteps()
	s.Tick(st, clk, 0.5, false)
	ons := ofKind(evs, evNoteOn)
	if len(ons) != 2 {
		t.Fatalf("got %d note-ons after reset, want 2", len(ons))
	}
	if math.Abs(ons[1].when-0.5) > 1e-9 {
		t.Errorf("reset step at %v, want 0.5", ons[1].when)
	}
}

func TestSchedulerAutomationClamps(t *testing.T) {
	var evs []renderEvent
	emit := func(ev renderEvent) { evs = append(evs, ev) }
	mx := NewMatrix(1)
	s := NewScheduler(NewVoiceManager(emit), mx, emit, 1)

	st := schedState()
	st.FilterA.Cutoff = 16000
	st.LFOs[0].Shape = ShapeSquare
	st.LFOs[0].Rate = 0.25
	st.LFOs[0].Smooth = 0
	st.LFOs[0].Depth = 1
	st.LFOs[0].Routes.FilterACutoff = true

	clk := newInternalClock(120)
	clk.Start(0)
	mx.Advance(st, 0.05)
	s.Tick(st, clk, 0.05, false)

	for _, ev := range ofKind(evs, evParam) {
		if ev.target == paramFilterACutoff && ev.value > 18000 {
			t.Errorf("cutoff automation %v exceeds clamp", ev.value)
		}
	}
}
