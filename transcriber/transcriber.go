// Package transcriber turns PCM16 audio windows into text segments.
// Two backends exist: the hosted Groq whisper API (picked when
// GROQ_API_KEY is set) and a local whisper server speaking the
// OpenAI-compatible transcription protocol.
package transcriber

import (
	"context"
	"os"
	"strings"
)

type Segment struct {
	Text  string
	Start float64
	End   float64
}

// JoinSegments strips each segment's text and joins the non-empty ones
// with single spaces.
func JoinSegments(segments []Segment) string {
	var parts []string
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

type Config struct {
	// ModelSize is one of tiny, base, small, medium, large-v3.
	ModelSize string
	// CUDA requests GPU inference from the local server. The hosted
	// backend ignores it.
	CUDA bool
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, pcm []int16) ([]Segment, error)
}

// New picks a backend from the environment: GROQ_API_KEY selects the
// hosted API, otherwise the local whisper server is probed and an error
// is returned when it is unreachable.
func New(cfg Config) (Transcriber, error) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return NewGroq(key, cfg.ModelSize), nil
	}
	return NewServer(cfg)
}
