package transcriber

import (
	"context"
	"sync"
)

// FakeResult is one scripted Transcribe outcome.
type FakeResult struct {
	Segments []Segment
	Err      error
}

// TextResult scripts a single-segment transcription.
func TextResult(text string) FakeResult {
	return FakeResult{Segments: []Segment{{Text: text}}}
}

// ErrorResult scripts a failed transcription.
func ErrorResult(err error) FakeResult {
	return FakeResult{Err: err}
}

// Fake replays scripted results in order; once the script runs out every
// call returns no segments, like whisper on silence.
type Fake struct {
	mu      sync.Mutex
	script  []FakeResult
	windows []int // frames per Transcribe call
}

func NewFake(results ...FakeResult) *Fake {
	return &Fake{script: results}
}

// NewFakeText scripts one single-segment result per text.
func NewFakeText(texts ...string) *Fake {
	results := make([]FakeResult, len(texts))
	for i, t := range texts {
		results[i] = TextResult(t)
	}
	return NewFake(results...)
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(_ context.Context, pcm []int16) ([]Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, len(pcm))
	if len(f.script) == 0 {
		return nil, nil
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r.Segments, r.Err
}

// Calls reports how many windows have been transcribed so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// Windows returns the frame count of each transcribed window in order.
func (f *Fake) Windows() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.windows))
	copy(out, f.windows)
	return out
}
