package audio

import (
	"log"
	"math"
	"sync/atomic"
)

const (
	sampleRate = 44100
	bufferSize = 512
)

const twoPi = 2 * math.Pi

// dspVoice is the render side of one logical voice. It knows nothing
// about voicing policy; it executes the commands the control side
// sent it.
type dspVoice struct {
	engine int

	phase float64
	freq  float64

	glideTo   float64
	glideStep float64 // Hz per sample, 0 = no glide in progress

	wave      string
	toneGain  float64
	noiseGain float64

	env   envelope
	noise uint32
}

// grain is one playing snippet of an engine's sample buffer. It holds
// its owning voice so the voice envelope shapes the stream into a
// tail after release.
type grain struct {
	buf   []float64
	owner *dspVoice
	pos   float64
	rate  float64
	n     int // samples played
	total int
	gain  float64
}

type engineBus struct {
	gain       float64
	gainTarg   float64
	pitchSemis float64
	pitchTarg  float64
}

// Renderer runs inside the audio callback. It consumes timestamped
// events from the control ring, hosts the DSP voices, grain players,
// filter busses and the effect chain, and publishes its sample clock
// for the control side's timeline.
type Renderer struct {
	ring    *eventRing
	pending []renderEvent

	voices  map[int]*dspVoice
	grains  []grain
	samples [NumEngines][]float64
	outputs [NumEngines]int
	buses   [NumEngines]engineBus

	filterA *filter
	filterB *filter
	chain   []effectProc

	clock  atomic.Uint64 // samples rendered
	master float64
}

func NewRenderer(ring *eventRing) *Renderer {
	r := &Renderer{
		ring:    ring,
		voices:  make(map[int]*dspVoice),
		filterA: newFilter(sampleRate, 2000, 0.7, filterLP),
		filterB: newFilter(sampleRate, 800, 0.7, filterLP),
		master:  0.8,
	}
	for i := range r.buses {
		r.buses[i] = engineBus{gain: 1, gainTarg: 1}
	}
	return r
}

// Now is the render timeline in seconds. The control side schedules
// against this, not against the wall clock.
func (r *Renderer) Now() float64 {
	return float64(r.clock.Load()) / sampleRate
}

// Process renders one stereo buffer. It implements the sink's Source.
func (r *Renderer) Process(out [][]float32) {
	frames := len(out[0])
	base := r.clock.Load()

	r.ring.drain(func(ev renderEvent) {
		r.pending = append(r.pending, ev)
	})

	for i := 0; i < frames; i++ {
		now := float64(base+uint64(i)) / sampleRate
		r.applyDue(now)

		for b := range r.buses {
			bus := &r.buses[b]
			bus.gain += (bus.gainTarg - bus.gain) * 0.001
			bus.pitchSemis += (bus.pitchTarg - bus.pitchSemis) * 0.001
		}

		var busA, busB, mix float64
		r.renderVoices(&busA, &busB, &mix)
		r.renderGrains(&busA, &busB, &mix)

		s := r.filterA.process(busA) + r.filterB.process(busB) + mix
		for _, fx := range r.chain {
			s = fx.process(s)
		}
		s *= r.master
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[0][i] += float32(s)
		out[1][i] += float32(s)
	}
	r.clock.Store(base + uint64(frames))
	r.gcGrains()
}

func (r *Renderer) renderVoices(busA, busB, mix *float64) {
	for id, v := range r.voices {
		s := v.sample(r.buses[v.engine].pitchSemis)
		if v.env.idle() {
			delete(r.voices, id)
			continue
		}
		r.route(v.engine, s*r.buses[v.engine].gain, busA, busB, mix)
	}
}

func (r *Renderer) renderGrains(busA, busB, mix *float64) {
	for i := range r.grains {
		g := &r.grains[i]
		if g.n >= g.total {
			continue
		}
		idx := int(g.pos)
		if idx < 0 || idx >= len(g.buf)-1 {
			g.n = g.total
			continue
		}
		frac := g.pos - float64(idx)
		s := g.buf[idx]*(1-frac) + g.buf[idx+1]*frac
		// Linear in/out ramps over the grain edges.
		w := 1.0
		if ramp := g.total / 4; ramp > 0 {
			switch {
			case g.n < ramp:
				w = float64(g.n) / float64(ramp)
			case g.n >= g.total-ramp:
				w = float64(g.total-g.n) / float64(ramp)
			}
		}
		s *= w * g.gain * g.owner.env.val
		r.route(g.owner.engine, s*r.buses[g.owner.engine].gain, busA, busB, mix)
		g.pos += g.rate
		g.n++
	}
}

func (r *Renderer) route(engine int, s float64, busA, busB, mix *float64) {
	switch r.outputs[engine] {
	case OutFilterA:
		*busA += s
	case OutFilterB:
		*busB += s
	default:
		*mix += s
	}
}

// sample advances and renders one voice sample, including glide and
// the per-engine pitch automation in semitones.
func (v *dspVoice) sample(pitchSemis float64) float64 {
	if v.glideStep != 0 {
		v.freq += v.glideStep
		if (v.glideStep > 0 && v.freq >= v.glideTo) ||
			(v.glideStep < 0 && v.freq <= v.glideTo) {
			v.freq = v.glideTo
			v.glideStep = 0
		}
	}
	freq := v.freq
	if pitchSemis != 0 {
		freq *= math.Exp2(pitchSemis / 12)
	}

	var s float64
	if v.toneGain > 0 {
		s += oscSample(v.wave, v.phase) * v.toneGain
	}
	if v.noiseGain > 0 {
		v.noise = v.noise*1664525 + 1013904223
		s += (float64(v.noise)/math.MaxUint32*2 - 1) * v.noiseGain
	}
	v.phase += freq * twoPi / sampleRate
	if v.phase >= twoPi {
		v.phase -= twoPi
	}
	return s * v.env.value()
}

func oscSample(wave string, phase float64) float64 {
	t := phase / twoPi
	switch wave {
	case "sine":
		return math.Sin(phase)
	case "square":
		if t < 0.5 {
			return 1
		}
		return -1
	case "triangle":
		return 1 - 4*math.Abs(t-0.5)
	default: // saw
		return 2*t - 1
	}
}

// applyDue executes every pending event whose timestamp has arrived.
// The pending list is not globally ordered (the control side pushes
// batches per tick), so it is scanned rather than popped. A due
// kill-all also cancels queued notes and grains at or past its
// timestamp, so nothing re-triggers right after a panic.
func (r *Renderer) applyDue(now float64) {
	killAt := math.Inf(1)
	for _, ev := range r.pending {
		if ev.kind == evKillAll && ev.when <= now && ev.when < killAt {
			killAt = ev.when
		}
	}

	kept := r.pending[:0]
	for _, ev := range r.pending {
		switch ev.kind {
		case evNoteOn, evGlide, evGrain:
			if ev.when >= killAt {
				continue
			}
		}
		if ev.when > now {
			kept = append(kept, ev)
			continue
		}
		r.apply(ev)
	}
	r.pending = kept
}

func (r *Renderer) apply(ev renderEvent) {
	switch ev.kind {
	case evNoteOn:
		v := &dspVoice{
			engine:    ev.engine,
			freq:      ev.freq,
			wave:      ev.wave,
			toneGain:  ev.toneGain,
			noiseGain: ev.noiseGain,
			noise:     uint32(ev.voice)*2654435761 + 1,
		}
		if ev.glideFrom > 0 && ev.glideTime > 0 {
			v.freq = ev.glideFrom
			v.glideTo = ev.freq
			v.glideStep = (ev.freq - ev.glideFrom) / (ev.glideTime * sampleRate)
		}
		v.env.startAttack(ev.attack, ev.decay, ev.sustain, sampleRate)
		r.voices[ev.voice] = v

	case evGlide:
		if v, ok := r.voices[ev.voice]; ok {
			v.glideTo = ev.freq
			if ev.glideTime > 0 {
				v.glideStep = (ev.freq - v.freq) / (ev.glideTime * sampleRate)
			} else {
				v.freq = ev.freq
				v.glideStep = 0
			}
		}

	case evRelease:
		if v, ok := r.voices[ev.voice]; ok {
			v.env.startRelease(ev.release, sampleRate)
		}

	case evKill:
		if v, ok := r.voices[ev.voice]; ok {
			v.env.startKill(ev.ramp, sampleRate)
		}

	case evKillAll:
		for _, v := range r.voices {
			v.env.startKill(ev.ramp, sampleRate)
		}

	case evGrain:
		r.startGrain(ev)

	case evParam:
		r.applyParam(ev)

	case evSample:
		r.samples[ev.engine] = ev.buf

	case evEffects:
		r.chain = buildChain(r.chain, ev.chain, sampleRate)
	}
}

func (r *Renderer) startGrain(ev renderEvent) {
	buf := r.samples[ev.engine]
	if len(buf) < 2 {
		return
	}
	v, ok := r.voices[ev.voice]
	if !ok {
		return
	}
	total := int(ev.dur * sampleRate)
	if total < 8 {
		total = 8
	}
	r.grains = append(r.grains, grain{
		buf:   buf,
		owner: v,
		pos:   ev.pos * float64(len(buf)-1),
		rate:  ev.rate,
		total: total,
		gain:  ev.level,
	})
}

func (r *Renderer) applyParam(ev renderEvent) {
	if math.IsNaN(ev.value) || math.IsInf(ev.value, 0) {
		log.Printf("render: dropping non-finite automation value for target %d", ev.target)
		return
	}
	switch ev.target {
	case paramFilterACutoff:
		r.filterA.setTarget(ev.value, r.filterA.targRes)
	case paramFilterARes:
		r.filterA.setTarget(r.filterA.targCutoff, ev.value)
	case paramFilterBCutoff:
		r.filterB.setTarget(ev.value, r.filterB.targRes)
	case paramFilterBRes:
		r.filterB.setTarget(r.filterB.targCutoff, ev.value)
	case paramFilterAKind:
		r.filterA.setKind(int(ev.value))
	case paramFilterBKind:
		r.filterB.setKind(int(ev.value))
	case paramEngineVolume:
		r.buses[ev.index].gainTarg = ev.value
	case paramEnginePitch:
		r.buses[ev.index].pitchTarg = ev.value
	case paramEngineOutput:
		r.outputs[ev.index] = int(ev.value)
	}
}

func (r *Renderer) gcGrains() {
	kept := r.grains[:0]
	for _, g := range r.grains {
		if g.n < g.total {
			kept = append(kept, g)
		}
	}
	r.grains = kept
}
