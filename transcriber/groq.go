package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"listen/encoder"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// NewGroq maps the local model size onto the hosted whisper models:
// large-v3 runs on whisper-large-v3, everything smaller on the turbo
// variant.
func NewGroq(apiKey, modelSize string) *Groq {
	model := "whisper-large-v3-turbo"
	if modelSize == "large-v3" {
		model = "whisper-large-v3"
	}
	return &Groq{
		apiKey: apiKey,
		model:  model,
		apiURL: groqAPIURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *Groq) Name() string { return "groq" }

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, pcm []int16) ([]Segment, error) {
	flacData, err := encodeFlac(pcm)
	if err != nil {
		return nil, fmt.Errorf("flac encode: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(flacData); err != nil {
		return nil, err
	}
	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "verbose_json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(data))
	}
	return parseVerboseResponse(data, "groq")
}

func parseVerboseResponse(data []byte, backend string) ([]Segment, error) {
	var vr verboseResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("%s response parse error: %w", backend, err)
	}
	var segments []Segment
	for _, seg := range vr.Segments {
		segments = append(segments, Segment{Text: seg.Text, Start: seg.Start, End: seg.End})
	}
	if segments == nil && vr.Text != "" {
		segments = []Segment{{Text: vr.Text}}
	}
	return segments, nil
}

func encodeFlac(pcm []int16) ([]byte, error) {
	enc, err := encoder.NewFlac()
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
