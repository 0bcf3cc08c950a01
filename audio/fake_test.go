package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(chunkFrames int) CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1, ChunkFrames: chunkFrames}
}

func TestFakeSourceReplaysChunks(t *testing.T) {
	pcm := []int16{1, 2, 3, 4, 5}
	src := NewFakeSource(pcm, testConfig(2))
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	want := [][]int16{{1, 2}, {3, 4}, {5, 0}}
	for i, w := range want {
		chunk, err := src.Read()
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if len(chunk) != 2 {
			t.Fatalf("Read %d: got %d frames, want 2", i, len(chunk))
		}
		for j := range w {
			if chunk[j] != w[j] {
				t.Errorf("chunk %d[%d] = %d, want %d", i, j, chunk[j], w[j])
			}
		}
	}
}

func TestFakeSourceSilenceAfterExhaustion(t *testing.T) {
	src := NewFakeSource([]int16{7}, testConfig(4))
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	if _, err := src.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < 3; i++ {
		chunk, err := src.Read()
		if err != nil {
			t.Fatalf("silence Read %d: %v", i, err)
		}
		for _, s := range chunk {
			if s != 0 {
				t.Fatalf("silence Read %d returned sample %d", i, s)
			}
		}
	}
}

func TestFakeSourceInjectedReadFailures(t *testing.T) {
	ctx := NewFakeContext([]int16{42, 43}, false)
	ctx.FailReads = 2

	src, err := ctx.NewSource(nil, testConfig(2))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	for i := 0; i < 2; i++ {
		if _, err := src.Read(); !errors.Is(err, ErrFakeRead) {
			t.Fatalf("Read %d: got %v, want ErrFakeRead", i, err)
		}
	}
	chunk, err := src.Read()
	if err != nil {
		t.Fatalf("Read after failures: %v", err)
	}
	if chunk[0] != 42 || chunk[1] != 43 {
		t.Errorf("got %v, want [42 43]", chunk)
	}
}

func TestFakeSourceInjectedOpenError(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	ctx.OpenErr = errors.New("no device")

	src, err := ctx.NewSource(nil, testConfig(2))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if err := src.Start(); err == nil {
		t.Fatal("Start succeeded, want injected error")
	}
}

func TestFakeSourceStopUnblocksRead(t *testing.T) {
	// Realtime pacing makes Read wait, so Stop must interrupt it.
	ctx := NewFakeContext(make([]int16, 16000), true)
	src, err := ctx.NewSource(nil, testConfig(8000))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		for {
			if _, err := src.Read(); err != nil {
				done <- err
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	src.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("got %v, want ErrStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not unblock after Stop")
	}
}

func TestFakeSourceStartRewinds(t *testing.T) {
	src := NewFakeSource([]int16{9, 8}, testConfig(2))
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := src.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	src.Stop()

	if err := src.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer src.Stop()
	chunk, err := src.Read()
	if err != nil {
		t.Fatalf("Read after restart: %v", err)
	}
	if chunk[0] != 9 || chunk[1] != 8 {
		t.Errorf("got %v, want [9 8]", chunk)
	}
}

func TestNewFakeContextFromWAV(t *testing.T) {
	samples := []int16{100, -100, 200}
	data := make([]byte, WAVHeaderSize+len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[WAVHeaderSize+i*2:], uint16(s))
	}
	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, err := NewFakeContextFromWAV(path, false)
	if err != nil {
		t.Fatalf("NewFakeContextFromWAV: %v", err)
	}
	src, err := ctx.NewSource(nil, testConfig(3))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	chunk, err := src.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, want := range samples {
		if chunk[i] != want {
			t.Errorf("sample %d = %d, want %d", i, chunk[i], want)
		}
	}
}
