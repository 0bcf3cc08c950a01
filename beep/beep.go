// Package beep plays short synthesized cues for recording start, stop
// and error events. Playback is fire-and-forget; failures are silent
// because a missing output device must never affect a recording.
package beep

import (
	"math"
	"sync"
)

var disabled bool

// Disable turns all cues off.
func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200.0
	startVolume = 0.5
	startDecay  = 60.0

	// Stop cue: medium pitch, slightly longer
	stopFreq   = 900.0
	stopVolume = 0.5
	stopDecay  = 40.0

	// Error cue: low pitch double tone
	errorFreq   = 350.0
	errorVolume = 0.6
	errorDecay  = 30.0
)

var (
	startSamples []int16
	stopSamples  []int16
	errorSamples []int16
	soundOnce    sync.Once
)

func initSound() {
	startSamples = tone(startFreq, 0.08, startVolume, startDecay)
	stopSamples = tone(stopFreq, 0.12, stopVolume, stopDecay)
	errorSamples = doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	initOutput()
}

func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tone(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	out = append(out, b...)
	return out
}

// Init warms up the synth and the output device so the first cue does
// not lag. Optional; cues initialize lazily otherwise.
func Init() {
	soundOnce.Do(initSound)
}

func PlayStart() { play(&startSamples) }
func PlayStop()  { play(&stopSamples) }
func PlayError() { play(&errorSamples) }

// play snapshots the sample slice after initSound has filled it.
func play(samples *[]int16) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(*samples)
}
