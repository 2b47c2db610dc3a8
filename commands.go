package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dkmn/drift/audio"
	"github.com/dkmn/drift/dub"
)

var commands = []command{
	{"play", playCommand, 0},
	{"stop", stopCommand, 0},
	{"panic", panicCommand, 0},
	{"bpm", bpmCommand, 1},
	{"clock", clockCommand, 1},
	{"scale", scaleCommand, 1},
	{"root", rootCommand, 1},

	{"tone", toneCommand, 3},
	{"noise", noiseCommand, 3},
	{"sample", sampleCommand, 3},
	{"env", envCommand, 5},
	{"steps", stepsCommand, 2},
	{"pulses", pulsesCommand, 2},
	{"rotate", rotateCommand, 2},
	{"div", divCommand, 2},
	{"trig", trigCommand, 2},
	{"pattern", patternCommand, 2},
	{"seq", seqCommand, -2},
	{"pitch", pitchCommand, 2},
	{"voicing", voicingCommand, 2},
	{"glide", glideCommand, 2},
	{"mute", muteCommand, 1},
	{"unmute", unmuteCommand, 1},
	{"out", outCommand, 2},

	{"lfo", lfoCommand, 3},
	{"table", tableCommand, -3},
	{"route", routeCommand, 3},

	{"filter", filterCommand, 3},
	{"fx", fxCommand, -1},

	{"lock", lockCommand, -1},
	{"unlock", unlockCommand, -1},
	{"rand", randCommand, variadic},
	{"morph", morphCommand, 1},
	{"auto", autoCommand, -1},
	{"init", initCommand, variadic},

	{"load-sound", loadSoundCommand, 2},
	{"capture", captureCommand, 2},
	{"save", saveCommand, 1},
	{"open", openCommand, 1},
	{"show", showCommand, 0},
}

func playCommand(s *session, args []dub.Node) error {
	s.machine.Play()
	return nil
}

func stopCommand(s *session, args []dub.Node) error {
	s.machine.StopTransport()
	return nil
}

func panicCommand(s *session, args []dub.Node) error {
	s.machine.Panic()
	return nil
}

func bpmCommand(s *session, args []dub.Node) error {
	var bpm float64
	if err := readArgs(args, &bpm); err != nil {
		return err
	}
	if bpm < 20 || bpm > 999 {
		return fmt.Errorf("bpm out of range: %v", bpm)
	}
	s.machine.Update(func(st *audio.State) { st.Tempo = bpm })
	return nil
}

func clockCommand(s *session, args []dub.Node) error {
	var source string
	if err := readArgs(args, &source); err != nil {
		return err
	}
	return s.machine.SetClockSource(source)
}

func scaleCommand(s *session, args []dub.Node) error {
	var name string
	if err := readArgs(args, &name); err != nil {
		return err
	}
	if _, ok := audio.Scales[name]; !ok {
		return fmt.Errorf("unknown scale: %s", name)
	}
	s.machine.Update(func(st *audio.State) { st.Scale = name })
	return nil
}

func rootCommand(s *session, args []dub.Node) error {
	var note int
	if err := readArgs(args, &note); err != nil {
		return err
	}
	if note < 0 || note > 127 {
		return fmt.Errorf("root note out of range: %d", note)
	}
	s.machine.Update(func(st *audio.State) { st.Root = note })
	return nil
}

func onOff(word string) (bool, error) {
	switch word {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", word)
}

func toneCommand(s *session, args []dub.Node) error {
	var num int
	var prop string
	if err := readArgs(args[:2], &num, &prop); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	switch prop {
	case "state":
		var word string
		if err := readArgs(args[2:], &word); err != nil {
			return err
		}
		v, err := onOff(word)
		if err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Tone.Enabled = v })
		return nil
	case "level":
		var db float64
		if err := readArgs(args[2:], &db); err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Tone.Level = db })
		return nil
	case "wave":
		var wave string
		if err := readArgs(args[2:], &wave); err != nil {
			return err
		}
		switch wave {
		case "sine", "triangle", "saw", "square":
		default:
			return fmt.Errorf("unknown wave: %s", wave)
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Tone.Wave = wave })
		return nil
	}
	return fmt.Errorf("unknown tone property: %s", prop)
}

func noiseCommand(s *session, args []dub.Node) error {
	var num int
	var prop string
	if err := readArgs(args[:2], &num, &prop); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	switch prop {
	case "state":
		var word string
		if err := readArgs(args[2:], &word); err != nil {
			return err
		}
		v, err := onOff(word)
		if err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Noise.Enabled = v })
		return nil
	case "level":
		var db float64
		if err := readArgs(args[2:], &db); err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Noise.Level = db })
		return nil
	}
	return fmt.Errorf("unknown noise property: %s", prop)
}

func sampleCommand(s *session, args []dub.Node) error {
	var num int
	var prop string
	if err := readArgs(args[:2], &num, &prop); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	if prop == "state" {
		var word string
		if err := readArgs(args[2:], &word); err != nil {
			return err
		}
		v, err := onOff(word)
		if err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].Sample.Enabled = v })
		return nil
	}
	var v float64
	if err := readArgs(args[2:], &v); err != nil {
		return err
	}
	switch prop {
	case "level", "size", "density", "pos", "jitter":
	default:
		return fmt.Errorf("unknown sample property: %s", prop)
	}
	s.machine.Update(func(st *audio.State) {
		sm := &st.Engines[e].Sample
		switch prop {
		case "level":
			sm.Level = v
		case "size":
			sm.Size = clamp(v, 0.005, 2)
		case "density":
			sm.Density = clamp(v, 1, 200)
		case "pos":
			sm.Pos = clamp(v, 0, 1)
		case "jitter":
			sm.Jitter = clamp(v, 0, 1)
		}
	})
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func envCommand(s *session, args []dub.Node) error {
	var num int
	var a, d, sus, r float64
	if err := readArgs(args, &num, &a, &d, &sus, &r); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	if a < 0 || d < 0 || r < 0 || sus < 0 || sus > 1 {
		return fmt.Errorf("invalid envelope: %v %v %v %v", a, d, sus, r)
	}
	s.machine.Update(func(st *audio.State) {
		st.Engines[e].Env = audio.Env{Attack: a, Decay: d, Sustain: sus, Release: r}
	})
	return nil
}

func rhythmUpdate(s *session, num int, fn func(*audio.Rhythm)) error {
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) {
		fn(&st.Engines[e].Rhythm)
		st.Engines[e].RegeneratePattern()
	})
	return nil
}

func stepsCommand(s *session, args []dub.Node) error {
	var num, steps int
	if err := readArgs(args, &num, &steps); err != nil {
		return err
	}
	if steps < 1 || steps > 64 {
		return fmt.Errorf("steps out of range: %d", steps)
	}
	return rhythmUpdate(s, num, func(r *audio.Rhythm) { r.Steps = steps })
}

func pulsesCommand(s *session, args []dub.Node) error {
	var num, pulses int
	if err := readArgs(args, &num, &pulses); err != nil {
		return err
	}
	if pulses < 0 {
		return fmt.Errorf("pulses out of range: %d", pulses)
	}
	return rhythmUpdate(s, num, func(r *audio.Rhythm) { r.Pulses = pulses })
}

func rotateCommand(s *session, args []dub.Node) error {
	var num, n int
	if err := readArgs(args, &num, &n); err != nil {
		return err
	}
	return rhythmUpdate(s, num, func(r *audio.Rhythm) { r.Rotation += n })
}

// divCommand sets the step length, in beats or as a named subdivision
// like "1/16".
func divCommand(s *session, args []dub.Node) error {
	var num int
	if err := readArgs(args[:1], &num); err != nil {
		return err
	}
	beats, err := beatsArg(args[1])
	if err != nil {
		return err
	}
	if beats <= 0 {
		return fmt.Errorf("step length must be positive")
	}
	return rhythmUpdate(s, num, func(r *audio.Rhythm) { r.Div = beats })
}

func beatsArg(arg dub.Node) (float64, error) {
	switch v := arg.(type) {
	case dub.Int:
		return float64(v), nil
	case dub.Float:
		return float64(v), nil
	case dub.String:
		if beats, ok := audio.SubdivisionBeats(string(v)); ok {
			return beats, nil
		}
		return 0, fmt.Errorf("unknown subdivision: %s", string(v))
	}
	return 0, fmt.Errorf("expected a number or subdivision name")
}

func trigCommand(s *session, args []dub.Node) error {
	var num int
	var word string
	if err := readArgs(args, &num, &word); err != nil {
		return err
	}
	v, err := onOff(word)
	if err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) { st.Engines[e].Rhythm.Enabled = v })
	return nil
}

// patternCommand toggles pattern bits at the selected steps. Edits
// survive until the next rhythm change regenerates the pattern.
func patternCommand(s *session, args []dub.Node) error {
	var num int
	var expr dub.StepExpr
	if err := readArgs(args, &num, &expr); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) {
		eng := &st.Engines[e]
		for _, i := range expr.Eval(len(eng.Pattern)) {
			eng.Pattern[i] = !eng.Pattern[i]
		}
	})
	return nil
}

// seqCommand sets the melodic sequence at the selected steps. With no
// notes the steps fall back to the engine pitch.
func seqCommand(s *session, args []dub.Node) error {
	var num int
	var expr dub.StepExpr
	if err := readArgs(args[:2], &num, &expr); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	var notes []int
	for _, arg := range args[2:] {
		n, ok := arg.(dub.Int)
		if !ok {
			return fmt.Errorf("expected note numbers")
		}
		if n < 0 || n > 127 {
			return fmt.Errorf("note out of range: %d", int(n))
		}
		notes = append(notes, int(n))
	}
	s.machine.Update(func(st *audio.State) {
		eng := &st.Engines[e]
		for _, i := range expr.Eval(len(eng.Seq)) {
			eng.Seq[i] = append([]int(nil), notes...)
		}
	})
	return nil
}

func pitchCommand(s *session, args []dub.Node) error {
	var num, note int
	if err := readArgs(args, &num, &note); err != nil {
		return err
	}
	if note < 0 || note > 127 {
		return fmt.Errorf("note out of range: %d", note)
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) { st.Engines[e].Pitch = note })
	return nil
}

func voicingCommand(s *session, args []dub.Node) error {
	var num int
	var mode string
	if err := readArgs(args, &num, &mode); err != nil {
		return err
	}
	switch mode {
	case audio.VoicePoly, audio.VoiceMono, audio.VoiceLegato, audio.VoiceTrill:
	default:
		return fmt.Errorf("unknown voicing: %s", mode)
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) { st.Engines[e].Voicing = mode })
	return nil
}

// glideCommand takes seconds or a quoted subdivision, which tracks
// tempo.
func glideCommand(s *session, args []dub.Node) error {
	var num int
	if err := readArgs(args[:1], &num); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	if sync, ok := args[1].(dub.String); ok {
		if _, ok := audio.SubdivisionBeats(string(sync)); !ok {
			return fmt.Errorf("unknown subdivision: %s", string(sync))
		}
		s.machine.Update(func(st *audio.State) { st.Engines[e].GlideSync = string(sync) })
		return nil
	}
	secs, err := beatsArg(args[1])
	if err != nil {
		return err
	}
	if secs < 0 {
		return fmt.Errorf("negative glide time")
	}
	s.machine.Update(func(st *audio.State) {
		st.Engines[e].Glide, st.Engines[e].GlideSync = secs, ""
	})
	return nil
}

func muteCommand(s *session, args []dub.Node) error {
	return setMuted(s, args, true)
}

func unmuteCommand(s *session, args []dub.Node) error {
	return setMuted(s, args, false)
}

func setMuted(s *session, args []dub.Node, v bool) error {
	var num int
	if err := readArgs(args, &num); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) { st.Engines[e].Muted = v })
	return nil
}

func outCommand(s *session, args []dub.Node) error {
	var num int
	var dest string
	if err := readArgs(args, &num, &dest); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	var out int
	switch dest {
	case "a":
		out = audio.OutFilterA
	case "b":
		out = audio.OutFilterB
	case "mix":
		out = audio.OutMix
	default:
		return fmt.Errorf("unknown output: %s (want a, b or mix)", dest)
	}
	s.machine.Update(func(st *audio.State) { st.Engines[e].Output = out })
	return nil
}

func lfoCommand(s *session, args []dub.Node) error {
	var num int
	var prop string
	if err := readArgs(args[:2], &num, &prop); err != nil {
		return err
	}
	i, err := lfoIndex(num)
	if err != nil {
		return err
	}
	switch prop {
	case "rate":
		if sync, ok := args[2].(dub.String); ok {
			if _, ok := audio.SubdivisionBeats(string(sync)); !ok {
				return fmt.Errorf("unknown subdivision: %s", string(sync))
			}
			s.machine.Update(func(st *audio.State) { st.LFOs[i].Sync = string(sync) })
			return nil
		}
		hz, err := beatsArg(args[2])
		if err != nil {
			return err
		}
		if hz <= 0 {
			return fmt.Errorf("rate must be positive")
		}
		s.machine.Update(func(st *audio.State) {
			st.LFOs[i].Rate, st.LFOs[i].Sync = hz, ""
		})
		return nil
	case "depth":
		var v float64
		if err := readArgs(args[2:], &v); err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.LFOs[i].Depth = clamp(v, 0, 1) })
		return nil
	case "smooth":
		var v float64
		if err := readArgs(args[2:], &v); err != nil {
			return err
		}
		s.machine.Update(func(st *audio.State) { st.LFOs[i].Smooth = clamp(v, 0, 1) })
		return nil
	case "shape":
		var shape string
		if err := readArgs(args[2:], &shape); err != nil {
			return err
		}
		switch shape {
		case audio.ShapeSine, audio.ShapeTriangle, audio.ShapeSquare,
			audio.ShapeSawUp, audio.ShapeSawDown, audio.ShapeStep,
			audio.ShapeNoise, audio.ShapePerlin, audio.ShapeDrawn:
		default:
			return fmt.Errorf("unknown shape: %s", shape)
		}
		s.machine.Update(func(st *audio.State) { st.LFOs[i].Shape = shape })
		return nil
	}
	return fmt.Errorf("unknown lfo property: %s", prop)
}

// tableCommand loads a freeform waveform into an LFO and switches it
// to the drawn shape.
func tableCommand(s *session, args []dub.Node) error {
	var num int
	if err := readArgs(args[:1], &num); err != nil {
		return err
	}
	i, err := lfoIndex(num)
	if err != nil {
		return err
	}
	vals := make([]float64, 0, len(args)-1)
	for _, arg := range args[1:] {
		v, err := beatsArg(arg)
		if err != nil {
			return fmt.Errorf("expected numbers")
		}
		vals = append(vals, clamp(v, -1, 1))
	}
	s.machine.Update(func(st *audio.State) {
		st.LFOs[i].Table = vals
		st.LFOs[i].Shape = audio.ShapeDrawn
	})
	return nil
}

// routeCommand toggles a modulation route. The source is lfoN or
// gateN, the destination a route name:
//
//	route lfo1 e2.pitch on
//	route gate1 filtera.cutoff on
func routeCommand(s *session, args []dub.Node) error {
	var src, dest, word string
	if err := readArgs(args, &src, &dest, &word); err != nil {
		return err
	}
	v, err := onOff(word)
	if err != nil {
		return err
	}
	var routes func(*audio.State) *audio.RouteSet
	switch {
	case strings.HasPrefix(src, "lfo"):
		num, err := strconv.Atoi(src[3:])
		if err != nil {
			return fmt.Errorf("bad source: %s", src)
		}
		i, err := lfoIndex(num)
		if err != nil {
			return err
		}
		routes = func(st *audio.State) *audio.RouteSet { return &st.LFOs[i].Routes }
	case strings.HasPrefix(src, "gate"):
		num, err := strconv.Atoi(src[4:])
		if err != nil {
			return fmt.Errorf("bad source: %s", src)
		}
		e, err := engineIndex(num)
		if err != nil {
			return err
		}
		routes = func(st *audio.State) *audio.RouteSet { return &st.Engines[e].GateRoutes }
	default:
		return fmt.Errorf("unknown source: %s (want lfoN or gateN)", src)
	}
	apply, err := routeSetter(dest, v)
	if err != nil {
		return err
	}
	s.machine.Update(func(st *audio.State) { apply(routes(st)) })
	return nil
}

func routeSetter(dest string, v bool) (func(*audio.RouteSet), error) {
	switch dest {
	case "filtera.cutoff":
		return func(rs *audio.RouteSet) { rs.FilterACutoff = v }, nil
	case "filtera.res":
		return func(rs *audio.RouteSet) { rs.FilterARes = v }, nil
	case "filterb.cutoff":
		return func(rs *audio.RouteSet) { rs.FilterBCutoff = v }, nil
	case "filterb.res":
		return func(rs *audio.RouteSet) { rs.FilterBRes = v }, nil
	}
	if strings.HasPrefix(dest, "lfo") && strings.HasSuffix(dest, ".rate") {
		num, err := strconv.Atoi(strings.TrimSuffix(dest[3:], ".rate"))
		if err != nil {
			return nil, fmt.Errorf("bad destination: %s", dest)
		}
		i, err := lfoIndex(num)
		if err != nil {
			return nil, err
		}
		return func(rs *audio.RouteSet) { rs.LFORate[i] = v }, nil
	}
	engine, prop, ok := strings.Cut(dest, ".")
	if !ok || !strings.HasPrefix(engine, "e") {
		return nil, fmt.Errorf("bad destination: %s", dest)
	}
	num, err := strconv.Atoi(engine[1:])
	if err != nil {
		return nil, fmt.Errorf("bad destination: %s", dest)
	}
	e, err := engineIndex(num)
	if err != nil {
		return nil, err
	}
	var set func(*audio.EngineDests)
	switch prop {
	case "volume":
		set = func(d *audio.EngineDests) { d.Volume = v }
	case "pitch":
		set = func(d *audio.EngineDests) { d.Pitch = v }
	case "size":
		set = func(d *audio.EngineDests) { d.Size = v }
	case "density":
		set = func(d *audio.EngineDests) { d.Density = v }
	case "pos":
		set = func(d *audio.EngineDests) { d.Pos = v }
	case "jitter":
		set = func(d *audio.EngineDests) { d.Jitter = v }
	case "rate":
		set = func(d *audio.EngineDests) { d.Rate = v }
	default:
		return nil, fmt.Errorf("unknown destination: %s", dest)
	}
	return func(rs *audio.RouteSet) { set(&rs.Engines[e]) }, nil
}

func filterCommand(s *session, args []dub.Node) error {
	var which, prop string
	if err := readArgs(args[:2], &which, &prop); err != nil {
		return err
	}
	if which != "a" && which != "b" {
		return fmt.Errorf("unknown filter: %s (want a or b)", which)
	}
	sel := func(st *audio.State) *audio.FilterState {
		if which == "b" {
			return &st.FilterB
		}
		return &st.FilterA
	}
	if prop == "kind" {
		var kind string
		if err := readArgs(args[2:], &kind); err != nil {
			return err
		}
		switch kind {
		case "lp", "bp", "hp":
		default:
			return fmt.Errorf("unknown filter kind: %s", kind)
		}
		s.machine.Update(func(st *audio.State) { sel(st).Kind = kind })
		return nil
	}
	var v float64
	if err := readArgs(args[2:], &v); err != nil {
		return err
	}
	switch prop {
	case "cutoff":
		s.machine.Update(func(st *audio.State) { sel(st).Cutoff = clamp(v, 20, 18000) })
	case "res":
		s.machine.Update(func(st *audio.State) { sel(st).Res = clamp(v, 0.1, 12) })
	default:
		return fmt.Errorf("unknown filter property: %s", prop)
	}
	return nil
}

// fxCommand manages the ordered effect chain:
//
//	fx add delay
//	fx set 1 time 0.375
//	fx rm 1
//	fx clear
func fxCommand(s *session, args []dub.Node) error {
	var sub string
	if err := readArgs(args[:1], &sub); err != nil {
		return err
	}
	switch sub {
	case "add":
		var kind string
		if err := readArgs(args[1:], &kind); err != nil {
			return err
		}
		fx, err := defaultEffect(kind)
		if err != nil {
			return err
		}
		var full bool
		s.machine.Update(func(st *audio.State) {
			if len(st.Effects) >= maxEffects {
				full = true
				return
			}
			st.Effects = append(st.Effects, fx)
		})
		if full {
			return fmt.Errorf("effect chain is full")
		}
		return nil
	case "rm":
		var pos int
		if err := readArgs(args[1:], &pos); err != nil {
			return err
		}
		var bad bool
		s.machine.Update(func(st *audio.State) {
			if pos < 1 || pos > len(st.Effects) {
				bad = true
				return
			}
			st.Effects = append(st.Effects[:pos-1], st.Effects[pos:]...)
		})
		if bad {
			return fmt.Errorf("no effect at position %d", pos)
		}
		return nil
	case "clear":
		if len(args) != 1 {
			return fmt.Errorf("fx clear takes no arguments")
		}
		s.machine.Update(func(st *audio.State) { st.Effects = nil })
		return nil
	case "set":
		var pos int
		var prop string
		var v float64
		if err := readArgs(args[1:], &pos, &prop, &v); err != nil {
			return err
		}
		var setErr error
		s.machine.Update(func(st *audio.State) {
			if pos < 1 || pos > len(st.Effects) {
				setErr = fmt.Errorf("no effect at position %d", pos)
				return
			}
			fx := &st.Effects[pos-1]
			switch prop {
			case "time":
				fx.Time = clamp(v, 0.001, 2)
			case "feedback":
				fx.Feedback = clamp(v, 0, 0.95)
			case "mix":
				fx.Mix = clamp(v, 0, 1)
			case "amount":
				fx.Amount = clamp(v, 0, 1)
			default:
				setErr = fmt.Errorf("unknown effect property: %s", prop)
			}
		})
		return setErr
	}
	return fmt.Errorf("unknown fx subcommand: %s", sub)
}

// maxEffects matches the lock tree's chain-position mirror.
const maxEffects = 8

func defaultEffect(kind string) (audio.EffectState, error) {
	switch kind {
	case "delay":
		return audio.EffectState{Kind: kind, Time: 0.375, Feedback: 0.4, Mix: 0.3}, nil
	case "drive":
		return audio.EffectState{Kind: kind, Amount: 0.3, Mix: 1}, nil
	case "reverb":
		return audio.EffectState{Kind: kind, Amount: 0.5, Mix: 0.25}, nil
	}
	return audio.EffectState{}, fmt.Errorf("unknown effect kind: %s", kind)
}

func lockCommand(s *session, args []dub.Node) error {
	return setLocks(s, args, true)
}

func unlockCommand(s *session, args []dub.Node) error {
	return setLocks(s, args, false)
}

func setLocks(s *session, args []dub.Node, v bool) error {
	paths := make([]string, len(args))
	for i, arg := range args {
		id, ok := arg.(dub.Identifier)
		if !ok {
			return fmt.Errorf("expected a lock path")
		}
		paths[i] = string(id)
	}
	var err error
	s.machine.UpdateLocks(func(l *audio.LockState) {
		for _, path := range paths {
			if e := setLockPath(l, path, v); e != nil && err == nil {
				err = e
			}
		}
	})
	return err
}

// setLockPath walks the typed lock tree by a dotted path. A path can
// stop at any level; locking an inner node locks the whole subtree.
// Array indices in paths are 1-based to match command numbering.
func setLockPath(root *audio.LockState, path string, v bool) error {
	if path == "all" {
		root.SetAll(v)
		return nil
	}
	cur := reflect.ValueOf(root).Elem()
	for _, seg := range strings.Split(path, ".") {
		switch cur.Kind() {
		case reflect.Struct:
			f := cur.FieldByNameFunc(func(name string) bool {
				return strings.EqualFold(name, seg)
			})
			if !f.IsValid() {
				return fmt.Errorf("unknown lock path: %s", path)
			}
			cur = f
		case reflect.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 1 || i > cur.Len() {
				return fmt.Errorf("unknown lock path: %s", path)
			}
			cur = cur.Index(i - 1)
		default:
			return fmt.Errorf("unknown lock path: %s", path)
		}
	}
	return setLockValue(cur, v, path)
}

func setLockValue(val reflect.Value, v bool, path string) error {
	switch val.Kind() {
	case reflect.Bool:
		val.SetBool(v)
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if err := setLockValue(val.Field(i), v, path); err != nil {
				return err
			}
		}
	case reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if err := setLockValue(val.Index(i), v, path); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown lock path: %s", path)
	}
	return nil
}

// randCommand draws a new state: rand [mode [scope [index]]].
func randCommand(s *session, args []dub.Node) error {
	mode := audio.ModeChaotic
	scope := audio.Scope{Kind: audio.ScopeGlobal}
	if len(args) > 0 {
		var m string
		if err := readArgs(args[:1], &m); err != nil {
			return err
		}
		switch m {
		case audio.ModeChaotic, audio.ModeMelodic, audio.ModeRhythmic:
		default:
			return fmt.Errorf("unknown mode: %s", m)
		}
		mode = m
	}
	if len(args) > 1 {
		var kind string
		if err := readArgs(args[1:2], &kind); err != nil {
			return err
		}
		switch kind {
		case audio.ScopeGlobal, audio.ScopeEngine, audio.ScopeLFO,
			audio.ScopeFilter, audio.ScopeEffect, audio.ScopeRouting:
		default:
			return fmt.Errorf("unknown scope: %s", kind)
		}
		scope.Kind = kind
	}
	if len(args) > 2 {
		var num int
		if err := readArgs(args[2:], &num); err != nil {
			return err
		}
		scope.Index = num - 1
	}
	if len(args) > 3 {
		return fmt.Errorf("too many arguments")
	}
	s.machine.Randomize(mode, scope)
	return nil
}

// morphCommand sets how state changes are applied: a duration in
// seconds, or a quoted subdivision to track tempo. Zero means atomic.
func morphCommand(s *session, args []dub.Node) error {
	if sync, ok := args[0].(dub.String); ok {
		if _, ok := audio.SubdivisionBeats(string(sync)); !ok {
			return fmt.Errorf("unknown subdivision: %s", string(sync))
		}
		s.machine.Update(func(st *audio.State) {
			st.Morph = audio.MorphSettings{Sync: string(sync)}
		})
		return nil
	}
	dur, err := beatsArg(args[0])
	if err != nil {
		return err
	}
	if dur < 0 {
		return fmt.Errorf("negative duration")
	}
	s.machine.Update(func(st *audio.State) {
		st.Morph = audio.MorphSettings{Duration: dur}
	})
	return nil
}

// autoCommand controls periodic randomization:
//
//	auto off
//	auto 16 melodic
//	auto 8 rhythmic engine 2
func autoCommand(s *session, args []dub.Node) error {
	if id, ok := args[0].(dub.Identifier); ok && string(id) == "off" {
		s.machine.Update(func(st *audio.State) { st.Auto.Enabled = false })
		return nil
	}
	var beats float64
	if err := readArgs(args[:1], &beats); err != nil {
		return err
	}
	if beats <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	mode := audio.ModeChaotic
	if len(args) > 1 {
		if err := readArgs(args[1:2], &mode); err != nil {
			return err
		}
		switch mode {
		case audio.ModeChaotic, audio.ModeMelodic, audio.ModeRhythmic:
		default:
			return fmt.Errorf("unknown mode: %s", mode)
		}
	}
	scope := audio.ScopeGlobal
	if len(args) > 2 {
		parts := make([]string, 0, len(args)-2)
		for _, arg := range args[2:] {
			parts = append(parts, fmt.Sprint(arg))
		}
		scope = strings.Join(parts, " ")
	}
	s.machine.Update(func(st *audio.State) {
		st.Auto = audio.AutoRandom{Enabled: true, Beats: beats, Mode: mode, Scope: scope}
	})
	return nil
}

// initCommand resets state to defaults: init [scope [index]].
func initCommand(s *session, args []dub.Node) error {
	scope := audio.Scope{Kind: audio.ScopeGlobal}
	if len(args) > 0 {
		var kind string
		if err := readArgs(args[:1], &kind); err != nil {
			return err
		}
		scope.Kind = kind
	}
	if len(args) > 1 {
		var num int
		if err := readArgs(args[1:], &num); err != nil {
			return err
		}
		scope.Index = num - 1
	}
	s.machine.Init(scope)
	return nil
}

func loadSoundCommand(s *session, args []dub.Node) error {
	var num int
	var file string
	if err := readArgs(args, &num, &file); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	buf, err := loadSound(file)
	if err != nil {
		return err
	}
	s.machine.LoadSample(e, buf)
	return nil
}

// captureCommand records from the default input device into an
// engine's granular buffer.
func captureCommand(s *session, args []dub.Node) error {
	var num int
	var seconds float64
	if err := readArgs(args, &num, &seconds); err != nil {
		return err
	}
	e, err := engineIndex(num)
	if err != nil {
		return err
	}
	if seconds <= 0 || seconds > 30 {
		return fmt.Errorf("capture length out of range: %v", seconds)
	}
	fmt.Printf("capturing %.1fs...\n", seconds)
	buf, err := audio.Capture(seconds)
	if err != nil {
		return err
	}
	s.machine.LoadSample(e, buf)
	return nil
}

type preset struct {
	Name    string       `json:"name"`
	SavedAt time.Time    `json:"savedAt"`
	State   *audio.State `json:"state"`
}

func saveCommand(s *session, args []dub.Node) error {
	var name string
	if err := readArgs(args, &name); err != nil {
		return err
	}
	p := preset{Name: name, SavedAt: time.Now(), State: s.machine.CurrentState()}
	data, err := json.MarshalIndent(&p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(name+".json", data, 0o644)
}

func openCommand(s *session, args []dub.Node) error {
	var name string
	if err := readArgs(args, &name); err != nil {
		return err
	}
	data, err := os.ReadFile(name + ".json")
	if err != nil {
		return err
	}
	var p preset
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.State == nil {
		return fmt.Errorf("%s.json holds no state", name)
	}
	s.machine.Apply(p.State)
	return nil
}

func showCommand(s *session, args []dub.Node) error {
	renderState(os.Stdout, s.machine.CurrentState(), s.machine.Locks(), s.machine.ClockSource())
	return nil
}
