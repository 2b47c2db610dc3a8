package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dkmn/drift/audio"
)

// renderState prints the engine grid plus a summary of the shared
// filters, LFOs and effect chain.
func renderState(w io.Writer, st *audio.State, locks audio.LockState, clock string) {
	fmt.Fprintf(w, "♩ %.1f  clock %s  scale %s  root %d\n\n",
		st.Tempo, clock, st.Scale, st.Root)

	for e := range st.Engines {
		eng := &st.Engines[e]

		speaker := "🔈"
		if eng.Muted {
			speaker = "🔇"
		}
		var steps strings.Builder
		for i, v := range eng.Pattern {
			step := "⬜️"
			if v {
				step = "⬛️"
			}
			if len(eng.Seq[i]) > 0 && v {
				step = "🟪"
			}
			steps.WriteString(step + " ")
		}

		id := colorize(fmt.Sprint(e+1), colorGreen)
		fmt.Fprintf(w, "%s %s %s %s\n", id, engineLabel(eng), speaker, steps.String())
		fmt.Fprintf(w, "  %s\n", colorize(rhythmLabel(eng, locks.Engines[e]), colorMagenta))
	}

	fmt.Fprintf(w, "\nfilter a %s %.0fHz q%.1f   filter b %s %.0fHz q%.1f\n",
		st.FilterA.Kind, st.FilterA.Cutoff, st.FilterA.Res,
		st.FilterB.Kind, st.FilterB.Cutoff, st.FilterB.Res)

	for i := range st.LFOs {
		l := &st.LFOs[i]
		rate := fmt.Sprintf("%.2fHz", l.Rate)
		if l.Sync != "" {
			rate = l.Sync
		}
		fmt.Fprintf(w, "lfo%d %s %s depth %.2f\n", i+1, l.Shape, rate, l.Depth)
	}

	if len(st.Effects) > 0 {
		var kinds []string
		for _, fx := range st.Effects {
			kinds = append(kinds, fx.Kind)
		}
		fmt.Fprintf(w, "fx %s\n", strings.Join(kinds, " → "))
	}
}

func engineLabel(eng *audio.EngineState) string {
	var layers []string
	if eng.Tone.Enabled {
		layers = append(layers, eng.Tone.Wave)
	}
	if eng.Noise.Enabled {
		layers = append(layers, "noise")
	}
	if eng.Sample.Enabled {
		layers = append(layers, "grain")
	}
	if len(layers) == 0 {
		layers = append(layers, "-")
	}
	label := fmt.Sprintf("%-7s %3d %s", eng.Voicing, eng.Pitch, strings.Join(layers, "+"))
	return colorize(fmt.Sprintf("%-24s", label), colorBlue)
}

// rhythmLabel shows the Euclidean descriptor; a lock on any rhythm
// field is marked so randomize surprises are visible at a glance.
func rhythmLabel(eng *audio.EngineState, lock audio.EngineLock) string {
	r := eng.Rhythm
	label := fmt.Sprintf("%d/%d rot %d div %g", r.Pulses, r.Steps, r.Rotation, r.Div)
	if !r.Enabled {
		label += " (off)"
	}
	if lock.Rhythm.Steps || lock.Rhythm.Pulses || lock.Rhythm.Rotation || lock.Rhythm.Div {
		label += " 🔒"
	}
	return label
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}
