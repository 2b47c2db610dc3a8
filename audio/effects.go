package audio

import "math"

// effectProc is one render-side element of the master effect chain.
type effectProc interface {
	kind() string
	set(st EffectState)
	process(x float64) float64
}

// buildChain reconciles the running chain against the desired one.
// Elements whose kind is unchanged at their position are kept (their
// delay lines and reverb tails survive) and only their parameters are
// updated; a kind change at a position rebuilds that element alone.
func buildChain(cur []effectProc, want []EffectState, sampleRate float64) []effectProc {
	out := make([]effectProc, 0, len(want))
	for i, st := range want {
		if i < len(cur) && cur[i].kind() == st.Kind {
			cur[i].set(st)
			out = append(out, cur[i])
			continue
		}
		p := newEffectProc(st.Kind, sampleRate)
		if p == nil {
			continue
		}
		p.set(st)
		out = append(out, p)
	}
	return out
}

func newEffectProc(kind string, sampleRate float64) effectProc {
	switch kind {
	case "delay":
		return newDelayProc(sampleRate)
	case "drive":
		return &driveProc{}
	case "reverb":
		return newReverbProc(sampleRate)
	}
	return nil
}

// delayProc is a feedback delay with a dry/wet mix. The line is sized
// for its 2s maximum so time changes never reallocate.
type delayProc struct {
	buf      []float64
	w        int
	time     float64
	feedback float64
	mix      float64
	sr       float64
}

func newDelayProc(sampleRate float64) *delayProc {
	return &delayProc{
		buf: make([]float64, int(2*sampleRate)),
		sr:  sampleRate,
	}
}

func (d *delayProc) kind() string { return "delay" }

func (d *delayProc) set(st EffectState) {
	d.time = clamp(st.Time, 0.001, 2)
	d.feedback = clamp(st.Feedback, 0, 0.95)
	d.mix = clamp(st.Mix, 0, 1)
}

func (d *delayProc) process(x float64) float64 {
	n := int(d.time * d.sr)
	if n < 1 {
		n = 1
	}
	r := d.w - n
	if r < 0 {
		r += len(d.buf)
	}
	wet := d.buf[r]
	d.buf[d.w] = x + wet*d.feedback
	d.w++
	if d.w == len(d.buf) {
		d.w = 0
	}
	return x*(1-d.mix) + wet*d.mix
}

// driveProc is a soft clipper; amount maps to input gain.
type driveProc struct {
	gain float64
	mix  float64
}

func (d *driveProc) kind() string { return "drive" }

func (d *driveProc) set(st EffectState) {
	d.gain = 1 + clamp(st.Amount, 0, 1)*15
	d.mix = clamp(st.Mix, 0, 1)
}

func (d *driveProc) process(x float64) float64 {
	wet := math.Tanh(x*d.gain) / math.Tanh(d.gain)
	return x*(1-d.mix) + wet*d.mix
}

// reverbProc is a small Schroeder reverb, four combs into two
// allpasses. Amount scales the comb feedback (decay length).
type reverbProc struct {
	combs  [4]comb
	aps    [2]allpass
	amount float64
	mix    float64
}

var combTunings = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
var allpassTunings = [2]float64{0.0050, 0.0017}

func newReverbProc(sampleRate float64) *reverbProc {
	r := &reverbProc{}
	for i := range r.combs {
		r.combs[i].buf = make([]float64, int(combTunings[i]*sampleRate))
	}
	for i := range r.aps {
		r.aps[i].buf = make([]float64, int(allpassTunings[i]*sampleRate))
	}
	return r
}

func (r *reverbProc) kind() string { return "reverb" }

func (r *reverbProc) set(st EffectState) {
	r.amount = clamp(st.Amount, 0, 1)
	r.mix = clamp(st.Mix, 0, 1)
}

func (r *reverbProc) process(x float64) float64 {
	fb := 0.7 + r.amount*0.28
	var wet float64
	for i := range r.combs {
		wet += r.combs[i].process(x, fb)
	}
	wet *= 0.25
	for i := range r.aps {
		wet = r.aps[i].process(wet)
	}
	return x*(1-r.mix) + wet*r.mix
}

type comb struct {
	buf []float64
	i   int
}

func (c *comb) process(x, fb float64) float64 {
	y := c.buf[c.i]
	c.buf[c.i] = x + y*fb
	c.i++
	if c.i == len(c.buf) {
		c.i = 0
	}
	return y
}

type allpass struct {
	buf []float64
	i   int
}

func (a *allpass) process(x float64) float64 {
	const g = 0.5
	d := a.buf[a.i]
	y := -x + d
	a.buf[a.i] = x + d*g
	a.i++
	if a.i == len(a.buf) {
		a.i = 0
	}
	return y
}
