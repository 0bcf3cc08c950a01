package transcriber

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewPicksGroqFromEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	tr, err := New(Config{ModelSize: "base"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Name() != "groq" {
		t.Errorf("Name() = %q, want %q", tr.Name(), "groq")
	}
}

func TestNewFallsBackToLocalServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("WHISPER_SERVER_URL", ts.URL)

	tr, err := New(Config{ModelSize: "small"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Name() != "local" {
		t.Errorf("Name() = %q, want %q", tr.Name(), "local")
	}
}

func TestNewServerUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("WHISPER_SERVER_URL", ts.URL)

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestGroqModelMapping(t *testing.T) {
	for _, tt := range []struct{ size, want string }{
		{"tiny", "whisper-large-v3-turbo"},
		{"base", "whisper-large-v3-turbo"},
		{"medium", "whisper-large-v3-turbo"},
		{"large-v3", "whisper-large-v3"},
	} {
		t.Run(tt.size, func(t *testing.T) {
			g := NewGroq("key", tt.size)
			if g.model != tt.want {
				t.Errorf("model = %q, want %q", g.model, tt.want)
			}
		})
	}
}

func TestGroqTranscribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gsk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3-turbo" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if !bytes.HasPrefix(data, []byte("fLaC")) {
			t.Error("uploaded file is not flac")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" hello world","segments":[{"text":" hello","start":0,"end":1.2},{"text":" world","start":1.2,"end":2}]}`)
	}))
	defer ts.Close()

	g := NewGroq("gsk_test", "base")
	g.apiURL = ts.URL

	segs, err := g.Transcribe(context.Background(), make([]int16, 4096))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if got := JoinSegments(segs); got != "hello world" {
		t.Errorf("joined = %q, want %q", got, "hello world")
	}
	if segs[1].Start != 1.2 || segs[1].End != 2 {
		t.Errorf("segment timing = %v-%v", segs[1].Start, segs[1].End)
	}
}

func TestGroqAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	g := NewGroq("gsk_test", "base")
	g.apiURL = ts.URL

	if _, err := g.Transcribe(context.Background(), make([]int16, 16)); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestServerTranscribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			if got := r.FormValue("model"); got != "medium" {
				t.Errorf("model = %q", got)
			}
			if got := r.FormValue("device"); got != "cuda" {
				t.Errorf("device = %q", got)
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if !bytes.HasPrefix(data, []byte("RIFF")) {
				t.Error("uploaded file is not wav")
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"text":" ok","segments":[{"text":" ok","start":0,"end":0.5}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	t.Setenv("WHISPER_SERVER_URL", ts.URL)
	s, err := NewServer(Config{ModelSize: "medium", CUDA: true})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	segs, err := s.Transcribe(context.Background(), make([]int16, 1024))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got := JoinSegments(segs); got != "ok" {
		t.Errorf("joined = %q, want %q", got, "ok")
	}
}

func TestParseVerboseResponseTextFallback(t *testing.T) {
	segs, err := parseVerboseResponse([]byte(`{"text":"just text"}`), "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "just text" {
		t.Errorf("got %v, want single segment with full text", segs)
	}
}

func TestJoinSegments(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   []Segment
		want string
	}{
		{"empty", nil, ""},
		{"single", []Segment{{Text: " hello "}}, "hello"},
		{"multiple", []Segment{{Text: " a"}, {Text: "b "}}, "a b"},
		{"drops blanks", []Segment{{Text: "a"}, {Text: "   "}, {Text: "b"}}, "a b"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinSegments(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFakeScript(t *testing.T) {
	boom := errors.New("boom")
	f := NewFake(TextResult("one"), ErrorResult(boom), TextResult("two"))

	segs, err := f.Transcribe(context.Background(), make([]int16, 10))
	if err != nil || JoinSegments(segs) != "one" {
		t.Fatalf("call 1: %v %v", segs, err)
	}
	if _, err := f.Transcribe(context.Background(), make([]int16, 20)); !errors.Is(err, boom) {
		t.Fatalf("call 2: got %v, want boom", err)
	}
	segs, err = f.Transcribe(context.Background(), make([]int16, 30))
	if err != nil || JoinSegments(segs) != "two" {
		t.Fatalf("call 3: %v %v", segs, err)
	}
	// Script exhausted: silence.
	segs, err = f.Transcribe(context.Background(), nil)
	if err != nil || segs != nil {
		t.Fatalf("call 4: %v %v", segs, err)
	}

	if f.Calls() != 4 {
		t.Errorf("Calls() = %d, want 4", f.Calls())
	}
	windows := f.Windows()
	want := []int{10, 20, 30, 0}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("window %d = %d, want %d", i, windows[i], want[i])
		}
	}
}
