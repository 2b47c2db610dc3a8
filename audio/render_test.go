package audio

import (
	"math"
	"testing"
)

func stereoBuf(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func noteOnEvent(voice int, freq float64) renderEvent {
	return renderEvent{
		kind:     evNoteOn,
		voice:    voice,
		freq:     freq,
		attack:   0.001,
		decay:    0.1,
		sustain:  0.8,
		wave:     "sine",
		toneGain: 0.3,
	}
}

func TestRendererVoiceProducesAudio(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)
	ring.push(noteOnEvent(1, 110))

	buf := stereoBuf(512)
	r.Process(buf)

	var peak float64
	for _, s := range buf[0] {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak < 0.01 {
		t.Fatalf("peak %v, expected audible output", peak)
	}
	if r.Now() != 512.0/sampleRate {
		t.Errorf("render clock = %v, want %v", r.Now(), 512.0/sampleRate)
	}
}

func TestRendererHoldsFutureEvents(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)
	ev := noteOnEvent(1, 110)
	ev.when = 1.0
	ring.push(ev)

	buf := stereoBuf(512)
	r.Process(buf)
	for i, s := range buf[0] {
		if s != 0 {
			t.Fatalf("sample %d nonzero before the event's timestamp", i)
		}
	}
	if len(r.voices) != 0 {
		t.Error("future note started early")
	}
}

func TestPanicRampsToSilenceWithoutClicks(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)
	for n := 0; n < 3; n++ {
		ring.push(noteOnEvent(n+1, 110+40*float64(n)))
	}
	r.Process(stereoBuf(512))
	r.Process(stereoBuf(512))
	if len(r.voices) != 3 {
		t.Fatalf("%d voices active, want 3", len(r.voices))
	}

	ring.push(renderEvent{kind: evKillAll, when: r.Now(), ramp: 0.003})

	// The ramp is 132 samples; follow it with headroom and check the
	// output never steps discontinuously.
	prev := float64(math.NaN())
	var maxJump float64
	for block := 0; block < 3; block++ {
		buf := stereoBuf(512)
		r.Process(buf)
		for _, s := range buf[0] {
			v := float64(s)
			if !math.IsNaN(prev) {
				if j := math.Abs(v - prev); j > maxJump {
					maxJump = j
				}
			}
			prev = v
		}
	}
	if maxJump > 0.05 {
		t.Errorf("max sample-to-sample jump %v during panic ramp", maxJump)
	}
	if len(r.voices) != 0 {
		t.Errorf("%d voices still active after the kill ramp", len(r.voices))
	}

	buf := stereoBuf(256)
	r.Process(buf)
	for _, s := range buf[0] {
		if s != 0 {
			t.Fatal("output not silent after panic")
		}
	}
}

func TestRendererDropsNonFiniteAutomation(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)
	ring.push(renderEvent{kind: evParam, target: paramFilterACutoff, value: math.NaN()})
	ring.push(renderEvent{kind: evParam, target: paramFilterBCutoff, value: math.Inf(1)})
	r.Process(stereoBuf(64))

	if r.filterA.targCutoff != 2000 || r.filterB.targCutoff != 800 {
		t.Errorf("non-finite automation reached the filters: %v, %v",
			r.filterA.targCutoff, r.filterB.targCutoff)
	}
}

func TestRendererGrainPlayback(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)

	buf := make([]float64, 2000)
	for i := range buf {
		buf[i] = 1
	}
	ring.push(renderEvent{kind: evSample, engine: 0, buf: buf})

	on := noteOnEvent(1, 110)
	on.toneGain = 0
	on.attack = 0.0001
	ring.push(on)
	ring.push(renderEvent{kind: evGrain, voice: 1, engine: 0, pos: 0.2, dur: 0.01, rate: 1, level: 1})

	out := stereoBuf(512)
	r.Process(out)
	var peak float64
	for _, s := range out[0] {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak < 0.01 {
		t.Fatalf("grain produced no output, peak %v", peak)
	}

	// The grain is 441 samples; after a second buffer it is done and
	// collected.
	r.Process(stereoBuf(512))
	if len(r.grains) != 0 {
		t.Errorf("%d grains alive past their length", len(r.grains))
	}
}

func TestRendererGrainWithoutSampleIsSilent(t *testing.T) {
	ring := newEventRing(256)
	r := NewRenderer(ring)
	ring.push(noteOnEvent(1, 110))
	ring.push(renderEvent{kind: evGrain, voice: 1, engine: 2, pos: 0.5, dur: 0.05, rate: 1, level: 1})
	r.Process(stereoBuf(128))
	if len(r.grains) != 0 {
		t.Error("grain started with no sample loaded")
	}
}
