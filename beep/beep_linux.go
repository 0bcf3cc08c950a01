//go:build linux

package beep

import (
	"github.com/jfreymuth/pulse"
)

func initOutput() {}

// playSamples opens a short-lived playback stream per cue. The cues
// are under half a second, so stream setup cost does not matter.
func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	client, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer client.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		return
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	stream.Stop()
}
