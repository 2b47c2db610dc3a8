package audio

import "math"

// linkClock follows a network peer publishing (tempo, phase, beat,
// running) snapshots at high frequency. Between updates the remote
// beat is projected forward by the elapsed local render time.
//
// On transport start the clock performs a quantized launch: if the
// remote phase is within a small epsilon of a bar boundary, playback
// snaps to the current bar; otherwise the next bar boundary becomes
// the start beat and the scheduler withholds events until it is
// reached.
type linkClock struct {
	tempo    float64
	running  bool
	beat     float64 // remote beat at recvTime
	recvTime float64
	seen     bool

	startBeat float64
}

const (
	linkBarEpsilon = 0.05 // beats from a bar boundary counted as "on" it
	linkStaleSecs  = 2.0
)

func newLinkClock() *linkClock {
	return &linkClock{tempo: 120}
}

// Update applies a remote snapshot received at render time now.
func (c *linkClock) Update(remote Snapshot, now float64) {
	if remote.Tempo > 0 {
		c.tempo = remote.Tempo
	}
	c.beat = remote.Beat
	c.recvTime = now
	c.seen = true

	if remote.Running && !c.running {
		c.startBeat = quantizedStart(remote.Beat)
	}
	if !remote.Running {
		c.startBeat = 0
	}
	c.running = remote.Running
}

// quantizedStart picks the beat playback begins at: the current bar
// when the remote sits on (or just after) a bar boundary, the next bar
// boundary otherwise.
func quantizedStart(beat float64) float64 {
	bar := math.Floor(beat / beatsPerBar)
	within := beat - bar*beatsPerBar
	if within < linkBarEpsilon || beatsPerBar-within < linkBarEpsilon {
		return math.Round(beat/beatsPerBar) * beatsPerBar
	}
	return (bar + 1) * beatsPerBar
}

func (c *linkClock) projectBeat(now float64) float64 {
	if !c.seen {
		return 0
	}
	if !c.running || now-c.recvTime > linkStaleSecs {
		// A silent peer degrades to "not advancing" rather than
		// drifting off on stale data.
		return c.beat
	}
	return c.beat + (now-c.recvTime)*c.tempo/60
}

func (c *linkClock) Snapshot(now float64) Snapshot {
	beat := c.projectBeat(now)
	return Snapshot{Tempo: c.tempo, Running: c.running, Beat: beat, Phase: barPhase(beat)}
}

// Start and Stop are local transport requests; the peer relay is
// responsible for broadcasting them, so locally we only mirror the
// flag and alignment.
func (c *linkClock) Start(now float64) {
	if !c.running {
		c.startBeat = quantizedStart(c.projectBeat(now))
		c.running = true
	}
}

func (c *linkClock) Stop(now float64) {
	c.beat = c.projectBeat(now)
	c.recvTime = now
	c.running = false
	c.startBeat = 0
}

func (c *linkClock) StartBeat() float64 { return c.startBeat }

func (c *linkClock) Reset() {
	c.startBeat = 0
	c.seen = false
	c.running = false
}
