package audio

import (
	"fmt"
	"log"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Machine wires the whole instrument together: the parameter tree, the
// clock sources, the scheduler, the voice manager, the randomize/morph
// engine and the renderer. All control-side mutation goes through its
// mutex; the renderer is reached only via the event ring.
type Machine struct {
	mu    sync.Mutex
	state atomic.Value // *State
	locks LockState

	ring     *eventRing
	renderer *Renderer
	voices   *VoiceManager
	matrix   *Matrix
	sched    *Scheduler
	rnd      *Randomizer
	morph    Morph

	internal *internalClock
	midi     *midiClock
	link     *linkClock
	source   string

	lastEffects []EffectState
	nextAuto    float64 // beat of the next auto-randomize trigger

	quit chan struct{}
	done chan struct{}
}

func NewMachine(seed int64) *Machine {
	st := DefaultState()
	ring := newEventRing(1024)
	m := &Machine{
		ring:     ring,
		renderer: NewRenderer(ring),
		matrix:   NewMatrix(uint32(seed)),
		rnd:      NewRandomizer(seed),
		internal: newInternalClock(st.Tempo),
		midi:     newMIDIClock(),
		link:     newLinkClock(),
		source:   ClockInternal,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.voices = NewVoiceManager(ring.push)
	m.sched = NewScheduler(m.voices, m.matrix, ring.push, seed)
	m.state.Store(st)
	return m
}

// Renderer exposes the render-side source for the sink.
func (m *Machine) Renderer() *Renderer { return m.renderer }

// Run drives the scheduler and morph animation until Stop. It owns the
// control timeline; everything it does is timed against the render
// clock, not the wall clock.
func (m *Machine) Run() {
	ticker := time.NewTicker(time.Duration(PollInterval * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			close(m.done)
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Close stops the control loop.
func (m *Machine) Close() {
	close(m.quit)
	<-m.done
}

func (m *Machine) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.renderer.Now()
	if frame := m.morph.Frame(now); frame != nil {
		m.setState(frame)
	}

	st := m.current()
	clk := m.clock()
	m.autoRandomize(st, clk, now)
	m.sched.Tick(st, clk, now, m.source == ClockLink)
}

func (m *Machine) autoRandomize(st *State, clk clockSource, now float64) {
	if !st.Auto.Enabled || st.Auto.Beats <= 0 {
		return
	}
	snap := clk.Snapshot(now)
	if !snap.Running {
		return
	}
	if m.nextAuto == 0 {
		m.nextAuto = snap.Beat + st.Auto.Beats
		return
	}
	if snap.Beat < m.nextAuto {
		return
	}
	m.nextAuto += st.Auto.Beats
	m.randomizeLocked(st, now, st.Auto.Mode, parseScope(st.Auto.Scope))
}

func parseScope(s string) Scope {
	var kind string
	var idx int
	// Scope strings carry 1-based indices, matching command numbering.
	switch n, _ := fmt.Sscanf(s, "%s %d", &kind, &idx); n {
	case 2:
		return Scope{Kind: kind, Index: idx - 1}
	case 1:
		return Scope{Kind: kind}
	}
	return Scope{Kind: ScopeGlobal}
}

func (m *Machine) current() *State {
	return m.state.Load().(*State)
}

// setState publishes a new state and pushes the structural pieces the
// scheduler does not cover to the renderer.
func (m *Machine) setState(st *State) {
	prev := m.current()
	if st.Tempo != prev.Tempo {
		m.internal.SetTempo(m.renderer.Now(), st.Tempo)
	}
	if !reflect.DeepEqual(st.Effects, m.lastEffects) {
		m.lastEffects = append([]EffectState(nil), st.Effects...)
		m.ring.push(renderEvent{
			kind:  evEffects,
			when:  m.renderer.Now(),
			chain: m.lastEffects,
		})
	}
	m.state.Store(st)
}

// Update applies a mutation to a copy of the state and publishes it.
// This is the only way state changes.
func (m *Machine) Update(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.current().Copy()
	fn(st)
	m.setState(st)
}

// UpdateLocks mutates the lock tree under the machine lock.
func (m *Machine) UpdateLocks(fn func(*LockState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.locks)
}

// Locks returns a copy of the lock tree.
func (m *Machine) Locks() LockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks
}

// CurrentState returns a deep copy for display or persistence.
func (m *Machine) CurrentState() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current().Copy()
}

// Apply replaces the whole state, e.g. from a loaded preset. Cached
// patterns are regenerated so a hand-edited file cannot desync them.
func (m *Machine) Apply(st *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := st.Copy()
	for e := range cp.Engines {
		cp.Engines[e].RegeneratePattern()
	}
	m.setState(cp)
}

func (m *Machine) clock() clockSource {
	switch m.source {
	case ClockMIDI:
		return m.midi
	case ClockLink:
		return m.link
	default:
		return m.internal
	}
}

// ClockSource reports the active source name.
func (m *Machine) ClockSource() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

// SetClockSource switches the clock. The old source's alignment state
// is discarded and the engines rewound so the switch can never
// double-schedule a step.
func (m *Machine) SetClockSource(name string) error {
	switch name {
	case ClockInternal, ClockMIDI, ClockLink:
	default:
		return fmt.Errorf("unknown clock source %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.source {
		return nil
	}
	m.clock().Reset()
	m.voices.ReleaseAll(m.current(), m.renderer.Now())
	m.sched.ResetSteps()
	m.source = name
	m.nextAuto = 0
	return nil
}

// Play starts the transport. With an external source the transport
// follows the remote peer and a local play request only logs.
func (m *Machine) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source != ClockInternal {
		log.Printf("machine: transport follows the %s clock", m.source)
		return
	}
	m.internal.Start(m.renderer.Now())
	m.sched.ResetSteps()
	m.nextAuto = 0
}

// StopTransport halts playback and releases everything still sounding.
func (m *Machine) StopTransport() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.renderer.Now()
	if m.source == ClockInternal {
		m.internal.Stop(now)
	}
	m.voices.ReleaseAll(m.current(), now)
	m.sched.ResetSteps()
}

// Panic tears everything down: voices ramp to silence, pending gates
// and queued notes are dropped, step counters rewind and the transport
// is left stopped.
func (m *Machine) Panic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.renderer.Now()
	m.voices.KillAll(now, stealRamp)
	m.sched.ResetSteps()
	m.clock().Stop(now)
	m.morph.Cancel()
	m.nextAuto = 0
}

// NoteOn triggers a note on an engine through its voicing mode, for
// MIDI or keyboard input.
func (m *Machine) NoteOn(engine, note int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if engine < 0 || engine >= NumEngines {
		return
	}
	m.voices.Trigger(m.current(), engine, note, m.renderer.Now())
}

func (m *Machine) NoteOff(engine, note int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if engine < 0 || engine >= NumEngines {
		return
	}
	m.voices.Release(m.current(), engine, note, m.renderer.Now())
}

// Randomize draws a candidate state and applies or morphs to it per
// the state's morph settings.
func (m *Machine) Randomize(mode string, scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.randomizeLocked(m.current(), m.renderer.Now(), mode, scope)
}

func (m *Machine) randomizeLocked(st *State, now float64, mode string, scope Scope) {
	candidate := m.rnd.Randomize(st, &m.locks, mode, scope)
	dur := st.Morph.MorphTime(st.Tempo)
	if target := m.morph.Begin(st, candidate, now, dur); target != nil {
		m.setState(target)
	}
}

// Init resets the scoped part of the state to its defaults.
func (m *Machine) Init(scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.current().Copy()
	def := DefaultState()
	switch scope.Kind {
	case ScopeEngine:
		if scope.Index >= 0 && scope.Index < NumEngines {
			sample := st.Engines[scope.Index].Sample.Enabled
			st.Engines[scope.Index] = def.Engines[scope.Index]
			st.Engines[scope.Index].Sample.Enabled = sample
		}
	case ScopeLFO:
		if scope.Index >= 0 && scope.Index < NumLFOs {
			st.LFOs[scope.Index] = def.LFOs[scope.Index]
		}
	case ScopeFilter:
		if scope.Index == 1 {
			st.FilterB = def.FilterB
		} else {
			st.FilterA = def.FilterA
		}
	case ScopeEffect:
		st.Effects = nil
	case ScopeRouting:
		for i := range st.LFOs {
			st.LFOs[i].Routes = RouteSet{}
		}
		for e := range st.Engines {
			st.Engines[e].GateRoutes = RouteSet{}
		}
	default:
		enabled := [NumEngines]bool{}
		for e := range st.Engines {
			enabled[e] = st.Engines[e].Sample.Enabled
		}
		*st = *def
		for e := range st.Engines {
			st.Engines[e].Sample.Enabled = enabled[e]
		}
	}
	m.setState(st)
}

// LoadSample hands an engine a decoded mono buffer as its granular
// source and enables the sample layer.
func (m *Machine) LoadSample(engine int, buf []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if engine < 0 || engine >= NumEngines {
		return
	}
	m.ring.push(renderEvent{kind: evSample, when: m.renderer.Now(), engine: engine, buf: buf})
	st := m.current().Copy()
	st.Engines[engine].Sample.Enabled = len(buf) > 0
	m.setState(st)
}

// MIDI realtime input, forwarded by the midi package.

func (m *Machine) MIDIPulse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midi.Pulse(m.renderer.Now())
}

func (m *Machine) MIDIStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midi.StartMsg(m.renderer.Now())
	m.sched.ResetSteps()
}

func (m *Machine) MIDIContinue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midi.ContinueMsg(m.renderer.Now())
}

func (m *Machine) MIDIStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midi.StopMsg(m.renderer.Now())
	m.voices.ReleaseAll(m.current(), m.renderer.Now())
}

// LinkUpdate feeds a remote tempo-sync snapshot to the link clock.
func (m *Machine) LinkUpdate(remote Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link.Update(remote, m.renderer.Now())
}

// LinkSnapshot is the local view the peer broadcasts.
func (m *Machine) LinkSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock().Snapshot(m.renderer.Now())
}
