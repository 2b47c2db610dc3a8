package audio

import (
	"log"
	"math"
	"math/rand"
)

const (
	// PollInterval is the scheduler's wall-clock tick; Horizon is how
	// far ahead of the render deadline events are emitted. The poll
	// must be strictly shorter than the horizon or steps can slip past
	// unscheduled.
	PollInterval = 0.025
	Horizon      = 0.100

	gateFraction = 0.5 // of the step duration

	grainMinSize    = 0.005 // seconds
	grainMinDensity = 1.0   // grains per second
	grainSizeMod    = 0.2   // seconds of size change at full modulation
	grainDensityMod = 30.0  // grains/sec of density change at full modulation
)

type engineRun struct {
	step    int
	nextDue float64
	primed  bool
}

// Scheduler polls the active clock source and, for every engine
// independently, schedules step, voice and grain events a fixed
// horizon ahead of the render deadline. It runs entirely on the
// control goroutine and reads one state snapshot per tick.
type Scheduler struct {
	voices *VoiceManager
	matrix *Matrix
	emit   func(renderEvent)
	rng    *rand.Rand

	engines [NumEngines]engineRun
}

func NewScheduler(voices *VoiceManager, matrix *Matrix, emit func(renderEvent), seed int64) *Scheduler {
	return &Scheduler{
		voices: voices,
		matrix: matrix,
		emit:   emit,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Tick advances scheduling to now. resync enables hard step-counter
// correction against the clock's beat, used with the network-synced
// source; the free-running sources own their timeline, and per-engine
// rate modulation legitimately detaches an engine from the global
// beat.
func (s *Scheduler) Tick(st *State, clk clockSource, now float64, resync bool) {
	snap := clk.Snapshot(now)
	if !snap.Running {
		return
	}
	for e := range st.Engines {
		s.scheduleEngine(st, e, snap, clk.StartBeat(), now, resync)
	}
	s.scheduleGrains(st, now)
	s.matrix.Advance(st, now)
	s.emitAutomation(st, now)
	s.voices.Prune(now)
}

func (s *Scheduler) scheduleEngine(st *State, e int, snap Snapshot, startBeat, now float64, resync bool) {
	// One engine misbehaving must not stall the others; real-time
	// deadlines leave no room for a global halt.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: engine %d: %v", e, r)
		}
	}()

	eng := &st.Engines[e]
	er := &s.engines[e]
	stepBeats := eng.Rhythm.StepBeats()
	secPerBeat := 60 / snap.Tempo

	if !er.primed {
		// Quantized launch: the first step lands exactly on the
		// clock's start beat, which may still be in the future.
		er.step = 0
		er.nextDue = now + (startBeat-snap.Beat)*secPerBeat
		if er.nextDue < now {
			er.nextDue = now
		}
		er.primed = true
	}

	if resync {
		s.resyncStep(eng, er, snap, startBeat, now)
	}

	steps := eng.Rhythm.Steps
	if steps <= 0 || len(eng.Pattern) != steps {
		return
	}
	for er.nextDue < now+Horizon {
		t := er.nextDue
		stepDur := stepBeats * secPerBeat
		// Rate modulation stretches only the upcoming interval; events
		// already scheduled keep their times.
		stepDur /= s.matrix.RateFactor(st, Dest{Kind: DestEngineRate, Index: e}, t)

		idx := er.step % steps
		if eng.Pattern[idx] {
			// The gate fires even when the engine is muted: it is a
			// modulation source independent of audibility.
			s.matrix.AddGate(e, t, t+gateFraction*stepDur)
			if eng.Rhythm.Enabled {
				s.triggerStep(st, e, idx, t, t+gateFraction*stepDur)
			}
		}
		er.step = (er.step + 1) % steps
		er.nextDue = t + stepDur
	}
}

func (s *Scheduler) triggerStep(st *State, e, idx int, t, off float64) {
	eng := &st.Engines[e]
	notes := eng.Seq[idx]
	if len(notes) == 0 {
		notes = []int{eng.Pitch}
	}
	for _, n := range notes {
		s.voices.Trigger(st, e, n, t)
		s.voices.Release(st, e, n, off)
	}
}

// resyncStep projects the remote beat forward to the engine's next
// scheduled step and hard-corrects the step counter when the
// discrepancy exceeds resyncTolerance beats. Rare audible snaps beat
// constant micro-drift.
const resyncTolerance = 0.1

func (s *Scheduler) resyncStep(eng *EngineState, er *engineRun, snap Snapshot, startBeat, now float64) {
	loopBeats := eng.LoopBeats()
	if loopBeats <= 0 || !er.primed {
		return
	}
	projected := snap.Beat + (er.nextDue-now)*snap.Tempo/60
	pos := math.Mod(projected-startBeat, loopBeats)
	if pos < 0 {
		pos += loopBeats
	}
	own := math.Mod(float64(er.step)*eng.Rhythm.StepBeats(), loopBeats)
	diff := math.Abs(pos - own)
	if diff > loopBeats/2 {
		diff = loopBeats - diff
	}
	if diff > resyncTolerance {
		steps := eng.Rhythm.Steps
		er.step = int(math.Round(pos/eng.Rhythm.StepBeats())) % steps
	}
}

func (s *Scheduler) scheduleGrains(st *State, now float64) {
	for e := range st.Engines {
		eng := &st.Engines[e]
		for _, v := range s.voices.Active(e) {
			if !v.Granular {
				continue
			}
			// Grains keep flowing after release until teardown; the
			// envelope shapes them into a natural decay tail.
			for v.NextGrain < now+Horizon {
				t := v.NextGrain
				v.NextGrain = t + 1/s.emitGrain(st, eng, e, v, t)
			}
		}
	}
}

// emitGrain computes one grain from the static sample layer plus live
// modulation, emits it, and returns the effective density.
func (s *Scheduler) emitGrain(st *State, eng *EngineState, e int, v *Voice, t float64) float64 {
	mod := func(kind destKind) float64 {
		return s.matrix.Value(st, Dest{Kind: kind, Index: e}, t)
	}
	size := eng.Sample.Size + grainSizeMod*mod(DestGrainSize)
	if size < grainMinSize {
		size = grainMinSize
	}
	density := eng.Sample.Density + grainDensityMod*mod(DestGrainDensity)
	if density < grainMinDensity {
		density = grainMinDensity
	}
	jitter := clamp(eng.Sample.Jitter+mod(DestGrainJitter)*modJitterRange, 0, 1)
	pos := eng.Sample.Pos + mod(DestGrainPos)*modPosRange
	pos += (s.rng.Float64()*2 - 1) * jitter
	pos = clamp(pos, 0, 1)

	level := dbToGain(eng.Sample.Level)
	s.emit(renderEvent{
		kind:   evGrain,
		when:   t,
		voice:  v.ID,
		engine: e,
		pos:    pos,
		dur:    size,
		rate:   playbackRate(v.Note),
		level:  level,
	})
	return density
}

// emitAutomation publishes the modulated continuous parameters as
// timestamped automation points; the render side slews toward them.
func (s *Scheduler) emitAutomation(st *State, now float64) {
	param := func(target, index int, value float64) {
		s.emit(renderEvent{kind: evParam, when: now, target: target, index: index, value: value})
	}
	mod := func(kind destKind, index int) float64 {
		return s.matrix.Value(st, Dest{Kind: kind, Index: index}, now)
	}

	cutA := clamp(st.FilterA.Cutoff*math.Exp2(modCutoffOctaves*mod(DestFilterACutoff, 0)), 20, 18000)
	cutB := clamp(st.FilterB.Cutoff*math.Exp2(modCutoffOctaves*mod(DestFilterBCutoff, 0)), 20, 18000)
	param(paramFilterACutoff, 0, cutA)
	param(paramFilterBCutoff, 0, cutB)
	param(paramFilterARes, 0, clamp(st.FilterA.Res+modResRange*mod(DestFilterARes, 0), 0.1, 12))
	param(paramFilterBRes, 0, clamp(st.FilterB.Res+modResRange*mod(DestFilterBRes, 0), 0.1, 12))
	param(paramFilterAKind, 0, float64(filterKindCode(st.FilterA.Kind)))
	param(paramFilterBKind, 0, float64(filterKindCode(st.FilterB.Kind)))

	for e := range st.Engines {
		gain := clamp(1+mod(DestEngineVolume, e), 0, 2)
		if st.Engines[e].Muted {
			gain = 0
		}
		param(paramEngineVolume, e, gain)
		param(paramEnginePitch, e, modPitchSemitones*mod(DestEnginePitch, e))
		param(paramEngineOutput, e, float64(st.Engines[e].Output))
	}
}

// ResetSteps rewinds every engine to step zero at the next tick and
// clears pending gate windows (panic path).
func (s *Scheduler) ResetSteps() {
	for i := range s.engines {
		s.engines[i] = engineRun{}
	}
	s.matrix.ClearGates()
}
