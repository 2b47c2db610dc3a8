package audio

import (
	"runtime"
	"sync/atomic"
)

// Render event kinds. All control → render communication is expressed
// as one of these, stamped with the render time it takes effect at,
// because the render side may run ahead of control wall-clock time.
const (
	evNoteOn = iota
	evGlide
	evRelease
	evKill
	evKillAll
	evGrain
	evParam
	evSample
	evEffects
)

// Automation targets for evParam.
const (
	paramFilterACutoff = iota
	paramFilterARes
	paramFilterBCutoff
	paramFilterBRes
	paramEngineVolume // gain factor, by engine index
	paramEnginePitch  // semitone offset, by engine index
	paramFilterAKind
	paramFilterBKind
	paramEngineOutput // routing code, by engine index
)

type renderEvent struct {
	kind int
	when float64 // render time, seconds

	voice  int
	engine int

	freq      float64 // target oscillator frequency
	glideFrom float64 // prior frequency, 0 = no glide
	glideTime float64

	attack, decay, sustain float64
	release                float64 // evRelease: release time in seconds
	ramp                   float64 // evKill / evKillAll: fade length

	wave                            string
	toneGain, noiseGain, sampleGain float64 // linear, 0 = layer off

	pos, dur, rate, level float64 // evGrain

	target, index int
	value         float64

	buf   []float64     // evSample
	chain []EffectState // evEffects
}

// eventRing is a lock-free spsc queue from the control goroutine to
// the render callback.
type eventRing struct {
	events      []renderEvent
	read, write *uint32
}

func newEventRing(size int) *eventRing {
	if size <= 0 || size&(size-1) != 0 {
		panic("event ring size must be a power of 2")
	}
	return &eventRing{
		events: make([]renderEvent, size),
		read:   new(uint32),
		write:  new(uint32),
	}
}

func (r *eventRing) push(ev renderEvent) {
	for atomic.LoadUint32(r.write)-atomic.LoadUint32(r.read) == uint32(len(r.events)) {
		runtime.Gosched()
	}
	write := atomic.LoadUint32(r.write)
	r.events[write%uint32(len(r.events))] = ev
	atomic.StoreUint32(r.write, write+1)
}

// drain consumes every queued event. Events are not necessarily
// ordered by timestamp across scheduler ticks, so the consumer keeps
// its own pending list rather than popping until a cutoff.
func (r *eventRing) drain(f func(renderEvent)) {
	read := atomic.LoadUint32(r.read)
	write := atomic.LoadUint32(r.write)
	for read != write {
		f(r.events[read%uint32(len(r.events))])
		read++
	}
	atomic.StoreUint32(r.read, read)
}
