package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// geminiAPIBase is a var so tests can point it at a local server.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// ModelInfo describes one model a provider offers. Ref is the
// provider-prefixed identifier used to address the model in requests.
type ModelInfo struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Ref         string `json:"any_llm_string"`
	Description string `json:"description,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

// ListGemini fetches the Gemini model catalog. It fails when
// GEMINI_API_KEY is unset or the API cannot be reached.
func ListGemini(ctx context.Context) ([]ModelInfo, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	var models []ModelInfo
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/models?key=%s&pageSize=100", geminiAPIBase, url.QueryEscape(apiKey))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("listing Gemini models: %w", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Gemini models API returned %d: %s", resp.StatusCode, string(data))
		}

		var page struct {
			Models []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
			} `json:"models"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("parsing Gemini models: %w", err)
		}

		for _, m := range page.Models {
			id := strings.TrimPrefix(m.Name, "models/")
			name := m.DisplayName
			if name == "" {
				name = id
			}
			models = append(models, ModelInfo{
				Provider:    "Gemini",
				Name:        name,
				ID:          id,
				Ref:         "gemini:" + id,
				Description: m.Description,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return models, nil
}

// ListOllama fetches installed models from the local Ollama instance.
func ListOllama(ctx context.Context) ([]ModelInfo, error) {
	base := OllamaBaseURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing Ollama models: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama tags API returned %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name       string `json:"name"`
			Size       int64  `json:"size"`
			ModifiedAt string `json:"modified_at"`
		} `json:"models"`
	}
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("parsing Ollama models: %w", err)
	}

	var models []ModelInfo
	for _, m := range tags.Models {
		models = append(models, ModelInfo{
			Provider: "Ollama",
			Name:     m.Name,
			ID:       m.Name,
			Ref:      "ollama:" + m.Name,
			Size:     m.Size,
			Modified: m.ModifiedAt,
		})
	}
	return models, nil
}
