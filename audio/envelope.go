package audio

import "math"

type envelopeState int

const (
	stateIdle envelopeState = iota
	stateAttack
	stateDecay
	stateSustain
	stateRelease
	stateKill
)

const envSilence = 1e-4

// envelope is the per-voice amplitude envelope: a linear attack to
// unity, an exponential approach to the sustain level with time
// constant decay/3, and an exponential release with time constant
// release/5. The value never steps discontinuously; kill ramps down
// linearly over a short window instead of jumping.
type envelope struct {
	attack  float64
	decay   float64
	sustain float64

	attackRate float64 // per-sample linear increment
	decayCoef  float64 // one-pole coefficient toward sustain
	relCoef    float64 // one-pole coefficient toward zero
	killRate   float64

	val   float64
	state envelopeState
}

func (e *envelope) startAttack(attack, decay, sustain, sampleRate float64) {
	e.attack = attack
	e.decay = decay
	e.sustain = clamp(sustain, 0, 1)
	if attack <= 0 {
		attack = 1e-4
	}
	e.attackRate = 1.0 / (attack * sampleRate)
	tc := decay / 3
	if tc <= 0 {
		tc = 1e-4
	}
	e.decayCoef = 1 - math.Exp(-1/(tc*sampleRate))
	e.state = stateAttack
}

func (e *envelope) startRelease(release, sampleRate float64) {
	tc := release / 5
	if tc <= 0 {
		tc = 1e-4
	}
	e.relCoef = 1 - math.Exp(-1/(tc*sampleRate))
	e.state = stateRelease
}

// startKill fades to silence over ramp seconds, for voice stealing and
// panic. A linear ramp avoids the click an instant jump would cause.
func (e *envelope) startKill(ramp, sampleRate float64) {
	if e.state == stateIdle {
		return
	}
	if ramp <= 0 {
		ramp = 0.001
	}
	e.killRate = e.val / (ramp * sampleRate)
	if e.killRate <= 0 {
		e.killRate = 1
	}
	e.state = stateKill
}

func (e *envelope) value() float64 {
	switch e.state {
	case stateIdle:
		return 0
	case stateAttack:
		e.val += e.attackRate
		if e.val >= 1 {
			e.val = 1
			e.state = stateDecay
		}
	case stateDecay:
		e.val += (e.sustain - e.val) * e.decayCoef
		if math.Abs(e.val-e.sustain) < envSilence {
			e.val = e.sustain
			e.state = stateSustain
		}
	case stateSustain:
		e.val = e.sustain
	case stateRelease:
		e.val -= e.val * e.relCoef
		if e.val < envSilence {
			e.val = 0
			e.state = stateIdle
		}
	case stateKill:
		e.val -= e.killRate
		if e.val <= 0 {
			e.val = 0
			e.state = stateIdle
		}
	}
	return e.val
}

func (e *envelope) idle() bool { return e.state == stateIdle }

// releaseTail is how long a voice takes to fall below audibility after
// release, used by the control side to schedule teardown.
func releaseTail(release float64) float64 {
	tc := release / 5
	if tc <= 0 {
		tc = 1e-4
	}
	return tc * math.Log(1/envSilence)
}
