package audio

import "math"

// Clock source selection.
const (
	ClockInternal = "internal"
	ClockMIDI     = "midi"
	ClockLink     = "link"
)

// Snapshot is the read-only signal every clock source reduces to. Beat
// increases monotonically while the transport runs; Phase is the
// position within the current bar in [0, 1).
type Snapshot struct {
	Tempo   float64
	Running bool
	Beat    float64
	Phase   float64
}

// clockSource abstracts the internal, MIDI and network clocks behind
// one signal. Reset discards any pending alignment state so that
// switching sources can never double-schedule.
type clockSource interface {
	Snapshot(now float64) Snapshot
	Start(now float64)
	Stop(now float64)
	// StartBeat is the beat playback may begin at; sources without
	// launch quantization return 0.
	StartBeat() float64
	Reset()
}

func barPhase(beat float64) float64 {
	p := math.Mod(beat, beatsPerBar) / beatsPerBar
	if p < 0 {
		p += 1
	}
	return p
}

// internalClock free-runs from elapsed render time at a set tempo.
type internalClock struct {
	tempo   float64
	running bool
	ref     float64 // render time the beat counter was last anchored
	beatRef float64 // beat count at ref
}

func newInternalClock(tempo float64) *internalClock {
	return &internalClock{tempo: tempo}
}

// SetTempo re-anchors the beat counter so a tempo change never jumps
// the beat position.
func (c *internalClock) SetTempo(now, tempo float64) {
	if tempo <= 0 {
		return
	}
	c.beatRef = c.beatAt(now)
	c.ref = now
	c.tempo = tempo
}

func (c *internalClock) beatAt(now float64) float64 {
	if !c.running {
		return c.beatRef
	}
	return c.beatRef + (now-c.ref)*c.tempo/60
}

func (c *internalClock) Snapshot(now float64) Snapshot {
	beat := c.beatAt(now)
	return Snapshot{Tempo: c.tempo, Running: c.running, Beat: beat, Phase: barPhase(beat)}
}

func (c *internalClock) Start(now float64) {
	c.ref = now
	c.beatRef = 0
	c.running = true
}

func (c *internalClock) Stop(now float64) {
	c.beatRef = c.beatAt(now)
	c.ref = now
	c.running = false
}

func (c *internalClock) StartBeat() float64 { return 0 }

func (c *internalClock) Reset() {}
