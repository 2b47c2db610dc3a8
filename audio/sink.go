package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Source produces audio into a stereo buffer. Sources add into the
// buffer, so several can share one sink.
type Source interface {
	Process([][]float32)
}

// Sink owns the portaudio output stream.
type Sink struct {
	sources []Source
	stream  *portaudio.Stream
}

func NewSink() (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	var s Sink
	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, bufferSize, s.process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return &s, nil
}

func (s *Sink) AddSources(sources ...Source) {
	s.sources = append(s.sources, sources...)
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

func (s *Sink) process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0
		}
	}
	for _, source := range s.sources {
		source.Process(samples)
	}
}

// Capture records seconds of mono audio from the default input device,
// for use as a granular source. It blocks until the recording is done.
func Capture(seconds float64) ([]float64, error) {
	want := int(seconds * sampleRate)
	if want < 1 {
		want = 1
	}
	buf := make([]float64, 0, want)
	done := make(chan struct{})
	var once sync.Once

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, bufferSize, func(in []float32) {
		for _, v := range in {
			if len(buf) < want {
				buf = append(buf, float64(v))
			}
		}
		if len(buf) >= want {
			once.Do(func() { close(done) })
		}
	})
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	<-done
	stream.Stop()
	stream.Close()
	return buf, nil
}
