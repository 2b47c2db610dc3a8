package audio

import "math"

// Subdivisions map musical division names to their length in beats,
// assuming the beat is a quarter note. Used wherever a rate, glide or
// morph duration can be tempo-synced.
var Subdivisions = map[string]float64{
	"1/1":   4.0,
	"1/2":   2.0,
	"1/2t":  4.0 / 3.0,
	"1/4":   1.0,
	"1/4.":  1.5,
	"1/4t":  2.0 / 3.0,
	"1/8":   0.5,
	"1/8.":  0.75,
	"1/8t":  1.0 / 3.0,
	"1/16":  0.25,
	"1/16.": 0.375,
	"1/16t": 1.0 / 6.0,
	"1/32":  0.125,
}

// SubdivisionBeats returns the beat length of a named subdivision, or
// (0, false) if the name is unknown.
func SubdivisionBeats(name string) (float64, bool) {
	beats, ok := Subdivisions[name]
	return beats, ok
}

const refPitch = 60 // middle C, reference for sample playback rate

func midiToFreq(note int) float64 {
	return math.Pow(2, float64(note-69)/12.0) * 440
}

// playbackRate converts a note number to a playback speed relative to
// the reference pitch.
func playbackRate(note int) float64 {
	return math.Pow(2, float64(note-refPitch)/12.0)
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// clamp bounds v to [lo, hi]. Out-of-range control input is clamped
// rather than rejected: parameters are continuous and arrive from
// real-time surfaces.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Scales usable by melodic randomization; intervals in semitones from
// the root.
var Scales = map[string][]int{
	"chromatic":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
	"phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"lydian":     {0, 2, 4, 6, 7, 9, 11},
	"mixolydian": {0, 2, 4, 5, 7, 9, 10},
	"pent.min":   {0, 3, 5, 7, 10},
	"pent.maj":   {0, 2, 4, 7, 9},
}
