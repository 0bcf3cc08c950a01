package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"listen/log"
)

// Improver cleans up transcribed text through the selected provider.
// Every failure path returns the input unchanged: callers always get
// usable text back, at worst the raw transcript.
type Improver struct {
	provider Provider
	client   *openai.Client
	prompt   string
	log      zerolog.Logger
}

func NewImprover(provider Provider, prompt string) *Improver {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	imp := &Improver{
		provider: provider,
		prompt:   prompt,
		log:      log.New("improve"),
	}
	if provider.Kind == KindNone {
		return imp
	}
	cfg := openai.DefaultConfig(provider.apiKey)
	cfg.BaseURL = provider.BaseURL
	imp.client = openai.NewClientWithConfig(cfg)
	return imp
}

func (i *Improver) Provider() Provider { return i.provider }

// Improve sends one system message (the prompt) and one user message
// (the text). Without a provider, or on any provider error or empty
// response, the original text comes back unchanged.
func (i *Improver) Improve(ctx context.Context, text string) string {
	if i.client == nil {
		return text
	}

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.provider.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: i.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		i.log.Error().Err(err).
			Str("provider", i.provider.Kind.String()).
			Str("model", i.provider.Model).
			Msg("improvement request failed")
		return text
	}
	if len(resp.Choices) == 0 {
		i.log.Warn().Str("model", i.provider.Model).Msg("improvement response had no choices")
		return text
	}
	improved := strings.TrimSpace(resp.Choices[0].Message.Content)
	if improved == "" {
		return text
	}
	return improved
}
