package beep

import (
	"math"
	"testing"
)

func TestToneLength(t *testing.T) {
	samples := tone(1000, 0.1, 0.5, 50)
	if want := int(sampleRate * 0.1); len(samples) != want {
		t.Fatalf("tone length = %d, want %d", len(samples), want)
	}
}

func TestToneEnvelopeDecays(t *testing.T) {
	samples := tone(startFreq, 0.2, startVolume, startDecay)
	peak := func(from, to int) float64 {
		var p float64
		for _, s := range samples[from:to] {
			if a := math.Abs(float64(s)); a > p {
				p = a
			}
		}
		return p
	}
	early := peak(0, len(samples)/4)
	late := peak(3*len(samples)/4, len(samples))
	if late >= early {
		t.Fatalf("envelope did not decay: early peak %.0f, late peak %.0f", early, late)
	}
}

func TestDoubleToneHasSilentGap(t *testing.T) {
	const beepDur, gapDur = 0.08, 0.05
	samples := doubleTone(errorFreq, beepDur, gapDur, errorVolume, errorDecay)

	beepLen := int(sampleRate * beepDur)
	gapLen := int(sampleRate * gapDur)
	if want := 2*beepLen + gapLen; len(samples) != want {
		t.Fatalf("doubleTone length = %d, want %d", len(samples), want)
	}
	for i := beepLen; i < beepLen+gapLen; i++ {
		if samples[i] != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, samples[i])
		}
	}
}
