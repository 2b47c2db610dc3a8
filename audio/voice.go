package audio

// Voice is one sounding note. Voices are owned exclusively by the
// VoiceManager; the scheduler and MIDI input only request triggers and
// releases. The render side holds a matching DSP voice under the same
// id and is driven purely by timestamped events.
type Voice struct {
	ID     int
	Engine int
	Note   int

	// Granular playback continues emitting grains until the voice is
	// torn down, which is what produces grain-based release tails.
	Granular  bool
	NextGrain float64

	Released bool
	EndAt    float64 // teardown time once released, 0 while held
}

type voiceGroup struct {
	active    []*Voice
	held      []int // trill stack, most recent last
	current   *Voice
	lastPitch int
}

// VoiceManager applies each engine's voicing mode and glide policy to
// incoming triggers and releases, emitting render events for the
// resulting voice lifecycle.
type VoiceManager struct {
	emit   func(renderEvent)
	nextID int
	groups [NumEngines]voiceGroup
}

const stealRamp = 0.003 // seconds, silent teardown of a stolen voice

func NewVoiceManager(emit func(renderEvent)) *VoiceManager {
	vm := &VoiceManager{emit: emit}
	for i := range vm.groups {
		vm.groups[i].lastPitch = -1
	}
	return vm
}

// Trigger starts (or, for legato, re-pitches) a note on an engine at
// render time when.
func (vm *VoiceManager) Trigger(st *State, engine, note int, when float64) *Voice {
	g := &vm.groups[engine]
	e := &st.Engines[engine]
	glide := e.GlideTime(st.Tempo)

	switch e.Voicing {
	case VoiceMono:
		vm.releaseCurrent(st, engine, when)
		return vm.start(st, engine, note, when, g.glidePitch(), glide)

	case VoiceLegato:
		if g.current != nil && !g.current.Released {
			// Seamless: reuse the sounding voice's envelope and glide
			// the oscillator instead of re-attacking.
			vm.emit(renderEvent{
				kind:      evGlide,
				when:      when,
				voice:     g.current.ID,
				freq:      midiToFreq(note),
				glideTime: glide,
			})
			g.current.Note = note
			g.lastPitch = note
			return g.current
		}
		return vm.start(st, engine, note, when, g.glidePitch(), glide)

	case VoiceTrill:
		g.held = append(g.held, note)
		vm.releaseCurrent(st, engine, when)
		return vm.start(st, engine, note, when, g.glidePitch(), glide)

	default: // poly
		// Re-triggering an identity that is still sounding tears the
		// old instance down silently first, so two live instances
		// never race in the teardown path.
		for _, v := range g.active {
			if v.Note == note && !v.Released {
				vm.kill(v, when)
			}
		}
		return vm.start(st, engine, note, when, -1, 0)
	}
}

// Release ends a note according to the engine's voicing mode.
func (vm *VoiceManager) Release(st *State, engine, note int, when float64) {
	g := &vm.groups[engine]
	e := &st.Engines[engine]

	switch e.Voicing {
	case VoiceTrill:
		top := len(g.held) - 1
		idx := -1
		for i := top; i >= 0; i-- {
			if g.held[i] == note {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		g.held = append(g.held[:idx], g.held[idx+1:]...)
		if idx != top {
			// Releasing a non-top note only removes it from the stack.
			return
		}
		vm.releaseCurrent(st, engine, when)
		if len(g.held) > 0 {
			next := g.held[len(g.held)-1]
			vm.start(st, engine, next, when, g.glidePitch(), e.GlideTime(st.Tempo))
		}

	case VoiceMono, VoiceLegato:
		if g.current != nil && !g.current.Released && g.current.Note == note {
			vm.releaseCurrent(st, engine, when)
		}

	default: // poly
		for i := len(g.active) - 1; i >= 0; i-- {
			v := g.active[i]
			if v.Note == note && !v.Released {
				vm.release(st, v, when)
				return
			}
		}
	}
}

func (vm *VoiceManager) start(st *State, engine, note int, when float64, glideFrom int, glide float64) *Voice {
	g := &vm.groups[engine]
	e := &st.Engines[engine]

	vm.nextID++
	v := &Voice{
		ID:        vm.nextID,
		Engine:    engine,
		Note:      note,
		Granular:  e.Sample.Enabled,
		NextGrain: when,
	}
	g.active = append(g.active, v)
	g.current = v

	ev := renderEvent{
		kind:    evNoteOn,
		when:    when,
		voice:   v.ID,
		engine:  engine,
		freq:    midiToFreq(note),
		attack:  e.Env.Attack,
		decay:   e.Env.Decay,
		sustain: e.Env.Sustain,
		wave:    e.Tone.Wave,
	}
	if e.Tone.Enabled {
		ev.toneGain = dbToGain(e.Tone.Level)
	}
	if e.Noise.Enabled {
		ev.noiseGain = dbToGain(e.Noise.Level)
	}
	if glideFrom >= 0 && glide > 0 {
		ev.glideFrom = midiToFreq(glideFrom)
		ev.glideTime = glide
	}
	vm.emit(ev)
	g.lastPitch = note
	return v
}

func (vm *VoiceManager) releaseCurrent(st *State, engine int, when float64) {
	g := &vm.groups[engine]
	if g.current != nil && !g.current.Released {
		vm.release(st, g.current, when)
	}
	g.current = nil
}

func (vm *VoiceManager) release(st *State, v *Voice, when float64) {
	rel := st.Engines[v.Engine].Env.Release
	v.Released = true
	v.EndAt = when + releaseTail(rel)
	vm.emit(renderEvent{kind: evRelease, when: when, voice: v.ID, release: rel})
}

func (vm *VoiceManager) kill(v *Voice, when float64) {
	v.Released = true
	v.EndAt = when + stealRamp
	vm.emit(renderEvent{kind: evKill, when: when, voice: v.ID, ramp: stealRamp})
}

// KillAll tears down every voice with a short ramp (panic path).
func (vm *VoiceManager) KillAll(when, ramp float64) {
	vm.emit(renderEvent{kind: evKillAll, when: when, ramp: ramp})
	for i := range vm.groups {
		g := &vm.groups[i]
		g.active = g.active[:0]
		g.held = g.held[:0]
		g.current = nil
	}
}

// ReleaseAll releases every held voice, e.g. on transport stop.
func (vm *VoiceManager) ReleaseAll(st *State, when float64) {
	for i := range vm.groups {
		g := &vm.groups[i]
		for _, v := range g.active {
			if !v.Released {
				vm.release(st, v, when)
			}
		}
		g.held = g.held[:0]
		g.current = nil
	}
}

// Prune destroys voices whose release tail has fully elapsed.
func (vm *VoiceManager) Prune(now float64) {
	for i := range vm.groups {
		g := &vm.groups[i]
		keep := g.active[:0]
		for _, v := range g.active {
			if v.Released && now >= v.EndAt {
				if g.current == v {
					g.current = nil
				}
				continue
			}
			keep = append(keep, v)
		}
		g.active = keep
	}
}

// Active returns the live voices for an engine; the grain scheduler
// walks these.
func (vm *VoiceManager) Active(engine int) []*Voice {
	return vm.groups[engine].active
}

// Sounding reports how many unreleased voices an engine has.
func (vm *VoiceManager) Sounding(engine int) int {
	var n int
	for _, v := range vm.groups[engine].active {
		if !v.Released {
			n++
		}
	}
	return n
}

func (g *voiceGroup) glidePitch() int {
	return g.lastPitch
}
