package audio

import (
	"math"
	"math/rand"
	"testing"
)

func TestInternalClockAdvances(t *testing.T) {
	c := newInternalClock(120)
	c.Start(1.0)
	snap := c.Snapshot(3.0) // 2 seconds at 120 bpm = 4 beats
	if math.Abs(snap.Beat-4) > 1e-9 {
		t.Errorf("beat after 2s at 120bpm: got %f, want 4", snap.Beat)
	}
	if math.Abs(snap.Phase) > 1e-9 {
		t.Errorf("phase at a bar boundary: got %f, want 0", snap.Phase)
	}
	if !snap.Running {
		t.Error("clock should be running")
	}
}

func TestInternalClockTempoChangeKeepsBeat(t *testing.T) {
	c := newInternalClock(120)
	c.Start(0)
	c.SetTempo(1.0, 60) // at beat 2
	snap := c.Snapshot(2.0)
	if math.Abs(snap.Beat-3) > 1e-9 {
		t.Errorf("beat after tempo change: got %f, want 3", snap.Beat)
	}
}

func TestInternalClockStopFreezes(t *testing.T) {
	c := newInternalClock(120)
	c.Start(0)
	c.Stop(1.0)
	a := c.Snapshot(1.0).Beat
	b := c.Snapshot(5.0).Beat
	if a != b {
		t.Errorf("stopped clock advanced from %f to %f", a, b)
	}
}

func TestMIDIClockTempoSettlesUnderJitter(t *testing.T) {
	const trueBPM = 128.0
	pulseDur := 60 / trueBPM / midiPPQN
	rng := rand.New(rand.NewSource(3))

	c := newMIDIClock()
	c.StartMsg(0)
	now := 0.0
	// 4 beats of jittered pulses.
	for i := 0; i < 4*midiPPQN; i++ {
		now += pulseDur
		jitter := (rng.Float64()*2 - 1) * 0.005
		c.Pulse(now + jitter)
	}
	snap := c.Snapshot(now)
	if math.Abs(snap.Tempo-trueBPM) > 2 {
		t.Errorf("tempo after 4 jittered beats: got %f, want %f +-2", snap.Tempo, trueBPM)
	}
	if math.Abs(snap.Beat-4) > 0.1 {
		t.Errorf("beat counter: got %f, want ~4", snap.Beat)
	}
}

func TestMIDIClockStartStopContinue(t *testing.T) {
	c := newMIDIClock()
	c.StartMsg(0)
	for i := 0; i < midiPPQN; i++ {
		c.Pulse(float64(i) * 0.02)
	}
	if beat := c.Snapshot(0.48).Beat; math.Abs(beat-1) > 0.1 {
		t.Fatalf("beat after 24 pulses: got %f, want ~1", beat)
	}
	c.StopMsg(0.5)
	if c.Snapshot(0.6).Running {
		t.Error("clock should not be running after stop")
	}
	frozen := c.Snapshot(0.6).Beat
	c.ContinueMsg(1.0)
	c.Pulse(1.02)
	if got := c.Snapshot(1.02).Beat; got <= frozen {
		t.Errorf("continue should resume the counter: %f <= %f", got, frozen)
	}
	c.StartMsg(2.0)
	if got := c.Snapshot(2.0).Beat; got != 0 {
		t.Errorf("start should reset the counter, got %f", got)
	}
}

func TestMIDIClockStaleStopsAdvancing(t *testing.T) {
	c := newMIDIClock()
	c.StartMsg(0)
	for i := 1; i <= 2*midiPPQN; i++ {
		c.Pulse(float64(i) * 0.5 / midiPPQN)
	}
	soon := c.Snapshot(1.1).Beat
	late := c.Snapshot(60).Beat
	if late > soon+0.5 {
		t.Errorf("silent device should not keep advancing: %f -> %f", soon, late)
	}
}

func TestLinkClockProjection(t *testing.T) {
	c := newLinkClock()
	c.Update(Snapshot{Tempo: 120, Running: true, Beat: 8}, 10.0)
	snap := c.Snapshot(10.5) // half a second at 120bpm = 1 beat
	if math.Abs(snap.Beat-9) > 1e-9 {
		t.Errorf("projected beat: got %f, want 9", snap.Beat)
	}
}

func TestLinkClockQuantizedStart(t *testing.T) {
	tests := []struct {
		beat float64
		want float64
	}{
		{8.0, 8},     // exactly on a bar: snap to it
		{8.02, 8},    // just past a boundary: snap back
		{7.98, 8},    // just before: snap forward
		{9.3, 12},    // mid-bar: wait for the next bar
		{11.999, 12}, // at the boundary from below
	}
	for _, test := range tests {
		c := newLinkClock()
		c.Update(Snapshot{Tempo: 120, Running: false, Beat: test.beat}, 0)
		c.Update(Snapshot{Tempo: 120, Running: true, Beat: test.beat}, 0.01)
		if got := c.StartBeat(); math.Abs(got-test.want) > 1e-6 {
			t.Errorf("quantized start from beat %f: got %f, want %f", test.beat, got, test.want)
		}
	}
}

func TestLinkClockStaleFreezes(t *testing.T) {
	c := newLinkClock()
	c.Update(Snapshot{Tempo: 120, Running: true, Beat: 4}, 0)
	fresh := c.Snapshot(1.0).Beat
	stale := c.Snapshot(30).Beat
	if stale > fresh+2.5 {
		t.Errorf("stale peer should freeze the beat: %f -> %f", fresh, stale)
	}
}

func TestClockSwitchDiscardsAlignment(t *testing.T) {
	c := newLinkClock()
	c.Update(Snapshot{Tempo: 120, Running: false, Beat: 9.3}, 0)
	c.Update(Snapshot{Tempo: 120, Running: true, Beat: 9.3}, 0.01)
	if c.StartBeat() == 0 {
		t.Fatal("expected a pending quantized start")
	}
	c.Reset()
	if c.StartBeat() != 0 {
		t.Error("Reset should discard pending launch alignment")
	}
}
