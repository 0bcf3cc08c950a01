//go:build linux

package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}

func (p *pulseContext) NewSource(device *DeviceInfo, config CaptureConfig) (Source, error) {
	if config.ChunkFrames <= 0 {
		return nil, fmt.Errorf("pulse: chunk frames must be positive, got %d", config.ChunkFrames)
	}
	return &pulseSource{
		client: p.client,
		device: device,
		config: config,
		chunks: make(chan []int16, 32),
		stop:   make(chan struct{}),
	}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseSource adapts the push-style record stream to the pull-based
// Source contract. The stream writer slices incoming samples into
// fixed-size chunks on a buffered channel; Read drains it. Chunks are
// dropped when the consumer falls more than the channel depth behind.
type pulseSource struct {
	client *pulse.Client
	device *DeviceInfo
	config CaptureConfig

	chunks  chan []int16
	pending []int16

	mu       sync.Mutex
	stream   *pulse.RecordStream
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *pulseSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return fmt.Errorf("pulse: source already started")
	}

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		s.push(buf)
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(s.config.SampleRate)),
		pulse.RecordLatency(0.05),
	}
	if s.device != nil {
		source, err := s.client.SourceByID(s.device.ID)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := s.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	s.stream = stream
	stream.Start()
	return nil
}

// push runs on the pulse client goroutine only.
func (s *pulseSource) push(buf []int16) {
	s.pending = append(s.pending, buf...)
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

func (s *pulseSource) Read() ([]int16, error) {
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

func (s *pulseSource) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stop)
		if s.stream != nil {
			s.stream.Stop()
			s.stream.Close()
			s.stream = nil
		}
	})
}

func (s *pulseSource) Close() {
	s.Stop()
}
