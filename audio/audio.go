// Package audio abstracts microphone capture behind a pull-based Source
// so the recording loop and tests run against the same contract. Platform
// backends live in audio_linux.go (PulseAudio) and audio_other.go
// (miniaudio); fake.go replays canned PCM.
package audio

import "errors"

const WAVHeaderSize = 44

// ErrStopped is returned by Read once the source has been stopped.
var ErrStopped = errors.New("audio: source stopped")

type CaptureConfig struct {
	SampleRate  uint32
	Channels    uint32
	ChunkFrames int // frames returned per Read
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewSource(device *DeviceInfo, config CaptureConfig) (Source, error)
	Close()
}

// Source is a pull-based PCM16 stream. Start opens the device; Read
// blocks until up to ChunkFrames frames are available or the source is
// stopped. Chunks are owned by the caller once returned.
type Source interface {
	Start() error
	Read() ([]int16, error)
	Stop()
	Close()
}
