package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"listen/encoder"
)

const (
	// DefaultServerURL is where a locally running whisper server is
	// expected; override with WHISPER_SERVER_URL.
	DefaultServerURL = "http://localhost:8080"

	serverProbeTimeout = 5 * time.Second
)

type Server struct {
	baseURL string
	model   string
	device  string
	client  *http.Client
}

// NewServer builds the local backend and probes its health endpoint so
// a missing server fails at startup rather than on the first window.
func NewServer(cfg Config) (*Server, error) {
	base := os.Getenv("WHISPER_SERVER_URL")
	if base == "" {
		base = DefaultServerURL
	}
	base = strings.TrimRight(base, "/")

	model := cfg.ModelSize
	if model == "" {
		model = "base"
	}
	device := "cpu"
	if cfg.CUDA {
		device = "cuda"
	}

	s := &Server{
		baseURL: base,
		model:   model,
		device:  device,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	if err := s.ping(); err != nil {
		return nil, fmt.Errorf("whisper server not reachable at %s: %w (set GROQ_API_KEY to use the hosted API)", base, err)
	}
	return s, nil
}

func (s *Server) Name() string { return "local" }

func (s *Server) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), serverProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (s *Server) Transcribe(ctx context.Context, pcm []int16) ([]Segment, error) {
	wavData, err := encodeWav(pcm)
	if err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, err
	}
	writer.WriteField("model", s.model)
	writer.WriteField("device", s.device)
	writer.WriteField("response_format", "verbose_json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper server error %d: %s", resp.StatusCode, string(data))
	}
	return parseVerboseResponse(data, "whisper server")
}

func encodeWav(pcm []int16) ([]byte, error) {
	enc, err := encoder.NewWav()
	if err != nil {
		return nil, err
	}
	for pos := 0; pos < len(pcm); pos += encoder.BlockSize {
		end := min(pos+encoder.BlockSize, len(pcm))
		if err := enc.EncodeBlock(pcm[pos:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
