// Package llm selects a completion backend from the environment and
// wraps it for transcript cleanup. Two providers are understood: Gemini
// through its OpenAI-compatible endpoint when GEMINI_API_KEY is set, and
// a local Ollama instance found by probing its native API. With neither
// available the improver degrades to pass-through.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultOllamaBaseURL is the native Ollama API root; override with
	// OPENAI_BASE_URL.
	DefaultOllamaBaseURL = "http://localhost:11434/api"

	geminiCompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	GeminiModel = "gemini-2.0-flash"
	OllamaModel = "gemma3:latest"

	probeTimeout = 5 * time.Second
)

type Kind int

const (
	KindNone Kind = iota
	KindGemini
	KindOllama
)

func (k Kind) String() string {
	switch k {
	case KindGemini:
		return "gemini"
	case KindOllama:
		return "ollama"
	default:
		return "none"
	}
}

// Provider is the backend resolved once at startup. BaseURL points at
// an OpenAI-compatible completion endpoint.
type Provider struct {
	Kind    Kind
	Model   string
	BaseURL string

	apiKey string
}

// Detect resolves the provider: a Gemini credential wins, then a
// reachable Ollama, then none.
func Detect() Provider {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return Provider{
			Kind:    KindGemini,
			Model:   GeminiModel,
			BaseURL: geminiCompatBaseURL,
			apiKey:  key,
		}
	}

	base := OllamaBaseURL()
	if err := probeOllama(base); err == nil {
		return Provider{
			Kind:    KindOllama,
			Model:   OllamaModel,
			BaseURL: compatBaseURL(base),
			// Ollama ignores credentials but the client wants one.
			apiKey: "ollama",
		}
	}
	return Provider{Kind: KindNone}
}

// OllamaBaseURL returns the native Ollama API root from the environment.
func OllamaBaseURL() string {
	base := os.Getenv("OPENAI_BASE_URL")
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	return strings.TrimRight(base, "/")
}

// compatBaseURL derives the OpenAI-compatible endpoint from the native
// API root: .../api becomes .../v1.
func compatBaseURL(base string) string {
	if strings.HasSuffix(base, "/api") {
		return strings.TrimSuffix(base, "/api") + "/v1"
	}
	return base + "/v1"
}

// probeOllama checks the tags endpoint, which answers instantly on a
// running instance.
func probeOllama(base string) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/tags", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tags endpoint returned %d", resp.StatusCode)
	}
	return nil
}
