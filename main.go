package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dkmn/drift/audio"
	"github.com/dkmn/drift/link"
	"github.com/dkmn/drift/midi"
)

func main() {
	var (
		bpm      = flag.Float64("bpm", 120, "initial tempo")
		seed     = flag.Int64("seed", 0, "randomizer seed, 0 means time-based")
		run      = flag.String("run", "", "command script to run at startup")
		midiDev  = flag.Int("midi", -1, "MIDI input device id")
		devices  = flag.Bool("devices", false, "list MIDI devices and exit")
		linkAddr = flag.String("link", "", "UDP listen address for clock sync")
		peerAddr = flag.String("peer", "", "UDP peer address for clock sync")
	)
	flag.Parse()

	if *devices {
		if err := midi.PrintDevices(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	machine := audio.NewMachine(*seed)
	machine.Update(func(st *audio.State) { st.Tempo = *bpm })

	sink, err := audio.NewSink()
	if err != nil {
		log.Fatal(err)
	}
	sink.AddSources(machine.Renderer())
	if err := sink.Start(); err != nil {
		log.Fatal(err)
	}
	defer sink.Stop()

	go machine.Run()
	defer machine.Close()

	if *midiDev >= 0 {
		in, err := midi.Open(*midiDev, machine)
		if err != nil {
			log.Fatal(err)
		}
		defer in.Close()
	}

	if *linkAddr != "" {
		peer, err := link.NewPeer(*linkAddr, *peerAddr, machine)
		if err != nil {
			log.Fatal(err)
		}
		go peer.Run()
		defer peer.Close()
	}

	s := &session{machine: machine}

	if *run != "" {
		f, err := os.Open(*run)
		if err != nil {
			log.Fatal(err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := s.eval(line); err != nil {
				log.Fatal(err)
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			log.Fatal(err)
		}
	}

	if err := repl(s); err != nil {
		log.Fatal(err)
	}
}
