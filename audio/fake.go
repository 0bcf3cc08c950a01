package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrFakeRead is the error injected by FailReads.
var ErrFakeRead = errors.New("audio: injected read failure")

// FakeContext produces FakeSources that replay canned PCM. Once the
// samples run out a source keeps returning silence chunks, so a
// silence-based auto stop fires the same way it would on a quiet mic.
type FakeContext struct {
	pcm      []int16
	realtime bool

	// FailReads makes the first N reads of each source fail with
	// ErrFakeRead before any samples flow.
	FailReads int
	// OpenErr makes Start fail on every source.
	OpenErr error
	// HoldAfterData makes Read block until Stop once the samples run
	// out, like a device that went quiet, instead of feeding silence.
	HoldAfterData bool
}

// NewFakeContext replays the given samples. With realtime set, reads
// are paced at the configured sample rate; otherwise data chunks return
// immediately and silence chunks tick every millisecond.
func NewFakeContext(pcm []int16, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// NewFakeContextFromWAV replays the PCM payload of a 16-bit mono WAV file.
func NewFakeContextFromWAV(path string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	} else {
		data = nil
	}
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &FakeContext{pcm: pcm, realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewSource(_ *DeviceInfo, config CaptureConfig) (Source, error) {
	if config.ChunkFrames <= 0 {
		return nil, fmt.Errorf("fake: chunk frames must be positive, got %d", config.ChunkFrames)
	}
	src := NewFakeSource(f.pcm, config)
	src.realtime = f.realtime
	src.failReads = f.FailReads
	src.openErr = f.OpenErr
	src.holdAfterData = f.HoldAfterData
	return src, nil
}

// FakeSource replays samples chunk by chunk. Start rewinds playback and
// re-arms injected failures, so a source can be replayed.
type FakeSource struct {
	pcm      []int16
	config   CaptureConfig
	realtime bool

	failReads     int
	openErr       error
	holdAfterData bool

	mu      sync.Mutex
	pos     int
	failed  int
	started bool
	stop    chan struct{}
}

func NewFakeSource(pcm []int16, config CaptureConfig) *FakeSource {
	return &FakeSource{
		pcm:    pcm,
		config: config,
		stop:   make(chan struct{}),
	}
}

func (f *FakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.pos = 0
	f.failed = 0
	f.started = true
	f.stop = make(chan struct{})
	return nil
}

func (f *FakeSource) Read() ([]int16, error) {
	f.mu.Lock()
	select {
	case <-f.stop:
		f.mu.Unlock()
		return nil, ErrStopped
	default:
	}
	if f.failed < f.failReads {
		f.failed++
		f.mu.Unlock()
		return nil, ErrFakeRead
	}

	chunk := make([]int16, f.config.ChunkFrames)
	n := copy(chunk, f.pcm[f.pos:])
	f.pos += n
	exhausted := n == 0
	stop := f.stop
	f.mu.Unlock()

	if f.holdAfterData && exhausted {
		<-stop
		return nil, ErrStopped
	}

	// Remaining frames stay zero, so a partial final chunk is padded
	// with silence and later chunks are pure silence.
	var wait time.Duration
	if f.realtime && f.config.SampleRate > 0 {
		wait = time.Duration(f.config.ChunkFrames) * time.Second / time.Duration(f.config.SampleRate)
	} else if exhausted {
		wait = time.Millisecond
	}
	if wait > 0 {
		select {
		case <-stop:
			return nil, ErrStopped
		case <-time.After(wait):
		}
	}
	return chunk, nil
}

func (f *FakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
}

func (f *FakeSource) Close() {}
