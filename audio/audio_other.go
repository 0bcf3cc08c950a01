//go:build !linux

package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewSource(device *DeviceInfo, config CaptureConfig) (Source, error) {
	if config.ChunkFrames <= 0 {
		return nil, fmt.Errorf("malgo: chunk frames must be positive, got %d", config.ChunkFrames)
	}
	return &malgoSource{
		ctx:    m.ctx,
		device: device,
		config: config,
		chunks: make(chan []int16, 32),
		stop:   make(chan struct{}),
	}, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

// malgoSource adapts miniaudio's data callback to the pull-based Source
// contract. The callback slices incoming samples into fixed-size chunks
// on a buffered channel; Read drains it. Chunks are dropped when the
// consumer falls more than the channel depth behind.
type malgoSource struct {
	ctx    *malgo.AllocatedContext
	device *DeviceInfo
	config CaptureConfig

	chunks  chan []int16
	pending []int16

	mu       sync.Mutex
	dev      *malgo.Device
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *malgoSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		return fmt.Errorf("malgo: source already started")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = s.config.Channels
	deviceConfig.SampleRate = s.config.SampleRate

	if s.device != nil {
		idBytes, err := hex.DecodeString(s.device.ID)
		if err != nil {
			return fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			s.push(data, frameCount)
		},
	}

	dev, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("malgo init device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("malgo start: %w", err)
	}
	s.dev = dev
	return nil
}

// push runs on the miniaudio callback thread only.
func (s *malgoSource) push(data []byte, frameCount uint32) {
	samples := int(frameCount) * int(s.config.Channels)
	for i := 0; i < samples && i*2+1 < len(data); i++ {
		s.pending = append(s.pending, int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	for len(s.pending) >= s.config.ChunkFrames {
		chunk := make([]int16, s.config.ChunkFrames)
		copy(chunk, s.pending)
		s.pending = s.pending[:copy(s.pending, s.pending[s.config.ChunkFrames:])]
		select {
		case s.chunks <- chunk:
		default:
		}
	}
}

func (s *malgoSource) Read() ([]int16, error) {
	// Drain buffered chunks even after Stop.
	select {
	case chunk := <-s.chunks:
		return chunk, nil
	default:
	}
	select {
	case chunk := <-s.chunks:
		return chunk, nil
	case <-s.stop:
		return nil, ErrStopped
	}
}

func (s *malgoSource) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stop)
		if s.dev != nil {
			s.dev.Stop()
			s.dev.Uninit()
			s.dev = nil
		}
	})
}

func (s *malgoSource) Close() {
	s.Stop()
}
