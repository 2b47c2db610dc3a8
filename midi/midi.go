// Package midi feeds MIDI input into the machine: notes play engines,
// realtime messages drive the external clock source.
package midi

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/rakyll/portmidi"

	"github.com/dkmn/drift/audio"
)

const (
	statusNoteOff  = 0x80
	statusNoteOn   = 0x90
	statusCC       = 0xB0
	statusPulse    = 0xF8
	statusStart    = 0xFA
	statusContinue = 0xFB
	statusStop     = 0xFC

	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

var initOnce sync.Once

func initialize() error {
	var err error
	initOnce.Do(func() { err = portmidi.Initialize() })
	return err
}

// PrintDevices lists the available MIDI inputs.
func PrintDevices(w io.Writer) error {
	if err := initialize(); err != nil {
		return err
	}
	for id := 0; id < portmidi.CountDevices(); id++ {
		info := portmidi.Info(portmidi.DeviceID(id))
		if info == nil || !info.IsInputAvailable {
			continue
		}
		fmt.Fprintf(w, "%d: %s\n", id, info.Name)
	}
	return nil
}

// Input reads one MIDI device and forwards its events to the machine.
// Channels 1 to 4 address the engines; realtime messages feed the MIDI
// clock regardless of channel.
type Input struct {
	stream  *portmidi.Stream
	machine *audio.Machine
	quit    chan struct{}
	done    chan struct{}
}

func Open(device int, m *audio.Machine) (*Input, error) {
	if err := initialize(); err != nil {
		return nil, err
	}
	info := portmidi.Info(portmidi.DeviceID(device))
	if info == nil || !info.IsInputAvailable {
		return nil, fmt.Errorf("midi: no input device %d", device)
	}
	stream, err := portmidi.NewInputStream(portmidi.DeviceID(device), 256)
	if err != nil {
		return nil, err
	}
	in := &Input{
		stream:  stream,
		machine: m,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go in.loop()
	return in, nil
}

func (in *Input) Close() {
	close(in.quit)
	<-in.done
	in.stream.Close()
}

func (in *Input) loop() {
	defer close(in.done)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-in.quit:
			return
		case <-ticker.C:
		}
		events, err := in.stream.Read(64)
		if err != nil {
			// Device unplugged; the clock source keeps its last
			// tempo and the transport stays controllable.
			log.Printf("midi: read failed, stopping input: %v", err)
			return
		}
		for _, ev := range events {
			in.handle(ev)
		}
	}
}

func (in *Input) handle(ev portmidi.Event) {
	status := int(ev.Status)
	switch status {
	case statusPulse:
		in.machine.MIDIPulse()
		return
	case statusStart:
		in.machine.MIDIStart()
		return
	case statusContinue:
		in.machine.MIDIContinue()
		return
	case statusStop:
		in.machine.MIDIStop()
		return
	}

	channel := status & 0x0F
	if channel >= audio.NumEngines {
		return
	}
	note, vel := int(ev.Data1), int(ev.Data2)
	switch status & 0xF0 {
	case statusNoteOn:
		if vel == 0 {
			in.machine.NoteOff(channel, note)
			return
		}
		in.machine.NoteOn(channel, note)
	case statusNoteOff:
		in.machine.NoteOff(channel, note)
	case statusCC:
		if note == ccAllSoundOff || note == ccAllNotesOff {
			in.machine.Panic()
		}
	}
}
