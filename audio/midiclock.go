package audio

// midiClock follows external MIDI realtime messages: 24 clock pulses
// per quarter note, with start/stop/continue controlling the beat
// counter. Every 24th pulse yields an instantaneous tempo estimate
// which is smoothed over the last four beats to absorb jitter.
type midiClock struct {
	tempo     float64
	running   bool
	pulses    int
	beat      float64 // beat count at the last pulse
	lastPulse float64
	beatTimes [4]float64 // durations of the last beats
	beatCount int
	lastBeatT float64
	seen      bool
}

const (
	midiPPQN      = 24
	midiStaleSecs = 1.0 // no pulses for this long = source not advancing
)

func newMIDIClock() *midiClock {
	return &midiClock{tempo: 120}
}

// Pulse handles one 0xF8 clock byte received at render time now.
func (c *midiClock) Pulse(now float64) {
	c.pulses++
	c.beat = float64(c.pulses) / midiPPQN
	c.lastPulse = now
	c.seen = true

	if c.pulses%midiPPQN == 0 {
		if c.lastBeatT > 0 {
			dur := now - c.lastBeatT
			if dur > 0 {
				c.beatTimes[c.beatCount%len(c.beatTimes)] = dur
				c.beatCount++
				c.tempo = 60 / c.avgBeat()
			}
		}
		c.lastBeatT = now
	}
}

func (c *midiClock) avgBeat() float64 {
	n := c.beatCount
	if n > len(c.beatTimes) {
		n = len(c.beatTimes)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += c.beatTimes[i]
	}
	return sum / float64(n)
}

// StartMsg (0xFA) resets the beat counter; ContinueMsg (0xFB) resumes
// it; StopMsg (0xFC) halts without resetting.
func (c *midiClock) StartMsg(now float64) {
	c.pulses = 0
	c.beat = 0
	c.lastPulse = now
	c.running = true
}

func (c *midiClock) ContinueMsg(now float64) {
	c.lastPulse = now
	c.running = true
}

func (c *midiClock) StopMsg(now float64) {
	c.running = false
}

func (c *midiClock) Snapshot(now float64) Snapshot {
	beat := c.beat
	if c.running && c.seen && now-c.lastPulse < midiStaleSecs {
		// Extrapolate between pulses at the smoothed tempo.
		beat += (now - c.lastPulse) * c.tempo / 60
	}
	return Snapshot{
		Tempo:   c.tempo,
		Running: c.running,
		Beat:    beat,
		Phase:   barPhase(beat),
	}
}

// Start and Stop mirror local transport requests onto the follower; a
// real device will confirm with its own realtime bytes.
func (c *midiClock) Start(now float64) { c.StartMsg(now) }
func (c *midiClock) Stop(now float64)  { c.StopMsg(now) }

func (c *midiClock) StartBeat() float64 { return 0 }

func (c *midiClock) Reset() {
	c.pulses = 0
	c.beat = 0
	c.beatCount = 0
	c.lastBeatT = 0
	c.seen = false
	c.running = false
}
