package main

import (
	"io"
	"os"

	wav "github.com/youpy/go-wav"
)

// loadSound decodes a WAV file into a mono float buffer for the
// granular engines. Multi-channel files are averaged down.
func loadSound(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, err
	}
	channels := int(format.NumChannels)

	var buf []float64
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, sample := range samples {
			var v float64
			for ch := 0; ch < channels; ch++ {
				v += r.FloatValue(sample, uint(ch))
			}
			buf = append(buf, v/float64(channels))
		}
	}
	return buf, nil
}
