//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// A single playback device stays open for the process lifetime.
// Re-initializing per cue adds an audible delay on macOS.
var (
	outCtx *malgo.AllocatedContext
	outDev *malgo.Device
	outMu  sync.Mutex

	playBuf atomic.Pointer[[]int16]
	playPos atomic.Uint32
)

func initOutput() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	outCtx = ctx
	if err := initOutputDevice(); err != nil {
		_ = outCtx.Uninit()
		outCtx = nil
	}
}

func initOutputDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(outCtx.Context, config, malgo.DeviceCallbacks{
		Data: outputCallback,
	})
	if err != nil {
		return err
	}
	outDev = dev
	return nil
}

func outputCallback(pOutput, _ []byte, frameCount uint32) {
	for i := range pOutput {
		pOutput[i] = 0
	}
	buf := playBuf.Load()
	if buf == nil {
		return
	}
	samples := *buf
	pos := playPos.Load()
	if pos >= uint32(len(samples)) {
		playBuf.Store(nil)
		return
	}
	n := frameCount
	if remaining := uint32(len(samples)) - pos; n > remaining {
		n = remaining
	}
	for i := uint32(0); i < n; i++ {
		s := samples[pos+i]
		pOutput[i*2] = byte(s)
		pOutput[i*2+1] = byte(s >> 8)
	}
	playPos.Store(pos + n)
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	if outCtx == nil || outDev == nil {
		return
	}

	_ = outDev.Stop()
	playPos.Store(0)
	playBuf.Store(&samples)
	if err := outDev.Start(); err != nil {
		// The device handle goes stale after sleep/wake; rebuild once.
		outDev.Uninit()
		outDev = nil
		if err := initOutputDevice(); err != nil {
			playBuf.Store(nil)
			return
		}
		if err := outDev.Start(); err != nil {
			playBuf.Store(nil)
		}
	}
}
