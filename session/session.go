// Package session runs one recording: it pulls PCM chunks from an audio
// source, assembles fixed five second windows, transcribes each window
// and accumulates the text. A session moves through Idle, Recording,
// Stopping and Closed exactly once; manual stop and the silence watchdog
// race for the same transition and only one wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"listen/audio"
	"listen/encoder"
	"listen/log"
	"listen/transcriber"
)

const (
	// ChunkFrames is the capture read granularity.
	ChunkFrames = 1024
	// WindowSeconds is how much audio each transcription window holds.
	WindowSeconds = 5

	windowChunks = encoder.SampleRate * WindowSeconds / ChunkFrames
	windowFrames = windowChunks * ChunkFrames

	// DefaultVoiceAmplitude is the mean absolute normalized amplitude
	// above which a window counts as voice and feeds the silence clock.
	DefaultVoiceAmplitude = 0.01

	// DefaultSilenceTimeout stops the session after this much time
	// without voice or transcribed text.
	DefaultSilenceTimeout = 15 * time.Second

	// SilencePollInterval is how often hosts should call CheckSilence.
	SilencePollInterval = time.Second

	readRetryDelay = 100 * time.Millisecond
	drainTimeout   = 2 * time.Second
)

var (
	// ErrNotIdle is returned by Start on a session that already ran.
	ErrNotIdle = errors.New("session: not idle")
	// ErrNotRecording is returned by Stop when the session is not in
	// the Recording state, including when another stopper already won.
	ErrNotRecording = errors.New("session: not recording")
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notifier receives session events. Calls arrive on the capture
// goroutine, so implementations must hand off to their own loop instead
// of blocking.
type Notifier interface {
	// TranscriptChanged delivers the full transcript so far.
	TranscriptChanged(transcript string)
	// AudioLevel delivers the mean absolute amplitude of the latest
	// chunk, normalized to 0..1.
	AudioLevel(level float64)
	// SessionError reports a failed window or a fatal capture error.
	// The session keeps running unless the state says otherwise.
	SessionError(err error)
}

type nopNotifier struct{}

func (nopNotifier) TranscriptChanged(string) {}
func (nopNotifier) AudioLevel(float64)       {}
func (nopNotifier) SessionError(error)       {}

type Config struct {
	Audio       audio.Context
	Device      *audio.DeviceInfo
	Transcriber transcriber.Transcriber
	Notifier    Notifier

	// SilenceTimeout defaults to DefaultSilenceTimeout when zero; a
	// negative value disables the silence watchdog.
	SilenceTimeout time.Duration
	// VoiceAmplitude defaults to DefaultVoiceAmplitude when zero. The
	// thresholds are heuristics, not tuned constants, so both stay
	// configurable.
	VoiceAmplitude float64
}

type Session struct {
	id       string
	cfg      Config
	notifier Notifier
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	src       audio.Source
	segments  []string
	finalText string

	stopCh chan struct{}
	done   chan struct{}

	drainWait time.Duration

	lastVoice atomic.Int64 // UnixNano of the last voice or text activity
}

func New(cfg Config) (*Session, error) {
	if cfg.Audio == nil {
		return nil, errors.New("session: audio context is required")
	}
	if cfg.Transcriber == nil {
		return nil, errors.New("session: transcriber is required")
	}
	if cfg.SilenceTimeout == 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.VoiceAmplitude == 0 {
		cfg.VoiceAmplitude = DefaultVoiceAmplitude
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	id := uuid.New().String()[:8]
	return &Session{
		id:        id,
		cfg:       cfg,
		notifier:  notifier,
		log:       log.New("session").With().Str("session", id).Logger(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		drainWait: drainTimeout,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the text accumulated so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.segments, " ")
}

// Final returns the transcript fixed at close; empty until then.
func (s *Session) Final() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalText
}

// Start launches the capture loop. Only an Idle session can start.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotIdle, state)
	}
	s.state = StateRecording
	s.mu.Unlock()

	s.touch(time.Now())
	s.log.Info().
		Str("transcriber", s.cfg.Transcriber.Name()).
		Dur("silence_timeout", s.cfg.SilenceTimeout).
		Msg("recording started")
	go s.run()
	return nil
}

// Stop ends the recording and returns the final transcript. Any audio
// captured since the last full window is transcribed before the
// transcript is fixed. Callers that lose the stop race get
// ErrNotRecording along with whatever final transcript the winner
// produced.
func (s *Session) Stop() (string, error) {
	if !s.beginStop() {
		return s.Final(), ErrNotRecording
	}
	s.log.Info().Msg("stop requested")
	return s.finish(), nil
}

// CheckSilence stops the session when the silence timeout has elapsed
// since the last voice activity. Hosts call it on a timer; it reports
// whether this call closed the session, returning the final transcript
// when it did.
func (s *Session) CheckSilence(now time.Time) (string, bool) {
	if s.cfg.SilenceTimeout < 0 {
		return "", false
	}
	s.mu.Lock()
	recording := s.state == StateRecording
	s.mu.Unlock()
	if !recording {
		return "", false
	}
	last := time.Unix(0, s.lastVoice.Load())
	if now.Sub(last) < s.cfg.SilenceTimeout {
		return "", false
	}
	if !s.beginStop() {
		return "", false
	}
	s.log.Info().
		Dur("silence_timeout", s.cfg.SilenceTimeout).
		Msg("silence timeout reached, stopping")
	return s.finish(), true
}

// beginStop performs the single Recording -> Stopping transition and
// stops the source so a blocked Read unwinds immediately.
func (s *Session) beginStop() bool {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return false
	}
	s.state = StateStopping
	close(s.stopCh)
	src := s.src
	s.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	return true
}

// finish waits for the capture loop to drain its partial window, then
// fixes the transcript. The wait is bounded: a stuck backend cannot
// hold the stop forever, and any text that lands after the bound is
// dropped.
func (s *Session) finish() string {
	select {
	case <-s.done:
	case <-time.After(s.drainWait):
		s.log.Warn().Msg("capture loop did not drain in time")
	}

	s.mu.Lock()
	s.state = StateClosed
	s.finalText = strings.Join(s.segments, " ")
	final := s.finalText
	s.mu.Unlock()

	s.log.Info().Int("segments", len(s.segments)).Msg("session closed")
	return final
}

func (s *Session) touch(now time.Time) {
	s.lastVoice.Store(now.UnixNano())
}

func (s *Session) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// fail reports a fatal capture error and closes a still-recording
// session. A session already being stopped keeps its normal path.
func (s *Session) fail(err error) {
	s.log.Error().Err(err).Msg("capture failed")
	s.mu.Lock()
	if s.state == StateRecording {
		s.state = StateClosed
		s.finalText = strings.Join(s.segments, " ")
	}
	s.mu.Unlock()
	s.notifier.SessionError(err)
}

func (s *Session) run() {
	defer close(s.done)

	src, err := s.cfg.Audio.NewSource(s.cfg.Device, audio.CaptureConfig{
		SampleRate:  encoder.SampleRate,
		Channels:    encoder.Channels,
		ChunkFrames: ChunkFrames,
	})
	if err != nil {
		s.fail(fmt.Errorf("creating capture source: %w", err))
		return
	}
	if err := src.Start(); err != nil {
		s.fail(fmt.Errorf("opening capture device: %w", err))
		return
	}
	defer src.Close()

	s.mu.Lock()
	s.src = src
	s.mu.Unlock()

	window := make([]int16, 0, windowFrames)
	for {
		window = window[:0]
		for i := 0; i < windowChunks; i++ {
			if s.stopRequested() {
				break
			}
			chunk, err := src.Read()
			if err != nil {
				if errors.Is(err, audio.ErrStopped) {
					break
				}
				s.log.Warn().Err(err).Msg("audio read failed")
				select {
				case <-s.stopCh:
				case <-time.After(readRetryDelay):
				}
				continue
			}
			s.notifier.AudioLevel(amplitude(chunk))
			window = append(window, chunk...)
		}
		if len(window) > 0 {
			// Speech presence is judged per window, so a lone loud
			// chunk in an otherwise quiet window does not reset the
			// silence clock.
			if amplitude(window) > s.cfg.VoiceAmplitude {
				s.touch(time.Now())
			}
			s.transcribeWindow(window)
		}
		if s.stopRequested() {
			return
		}
	}
}

func (s *Session) transcribeWindow(pcm []int16) {
	start := time.Now()
	segments, err := s.cfg.Transcriber.Transcribe(context.Background(), pcm)
	if err != nil {
		// The window is lost but the session keeps recording.
		s.log.Error().Err(err).Msg("transcription failed")
		s.notifier.SessionError(fmt.Errorf("transcription failed: %w", err))
		return
	}
	text := transcriber.JoinSegments(segments)
	s.log.Debug().
		Int("frames", len(pcm)).
		Dur("took", time.Since(start)).
		Int("chars", len(text)).
		Msg("window transcribed")
	if text == "" {
		return
	}
	s.touch(time.Now())

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.segments = append(s.segments, text)
	snapshot := strings.Join(s.segments, " ")
	s.mu.Unlock()

	s.notifier.TranscriptChanged(snapshot)
}

// amplitude is the mean absolute amplitude of a chunk, normalized to 0..1.
func amplitude(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, v := range chunk {
		f := float64(v) / 32768.0
		if f < 0 {
			f = -f
		}
		sum += f
	}
	return sum / float64(len(chunk))
}
