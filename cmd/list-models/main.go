// list-models queries the configured AI providers (Gemini, Ollama) and
// prints the available models with their provider:model reference
// strings.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"listen/llm"
)

var version = "0.1.0"

const listTimeout = 30 * time.Second

func main() {
	godotenv.Load()

	var (
		provider string
		format   string
		refsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list-models",
		Short: "List AI models available from configured providers",
		Long: `Queries Gemini and/or Ollama for their available models and prints
each model with its provider:model reference string.

Environment variables:
  GEMINI_API_KEY    API key for Google Gemini
  OPENAI_BASE_URL   Custom Ollama URL (default: http://localhost:11434/api)`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(provider, format, refsOnly)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "all", "provider to query (gemini, ollama, all)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, list, json)")
	cmd.Flags().BoolVarP(&refsOnly, "any-llm-only", "a", false, "print only the provider:model reference strings")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(provider, format string, refsOnly bool) error {
	switch provider {
	case "gemini", "ollama", "all":
	default:
		return fmt.Errorf("invalid provider %q (choose from gemini, ollama, all)", provider)
	}
	switch format {
	case "table", "list", "json":
	default:
		return fmt.Errorf("invalid format %q (choose from table, list, json)", format)
	}

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	var all []llm.ModelInfo
	if provider == "gemini" || provider == "all" {
		models := collectGemini(ctx)
		if len(models) > 0 {
			all = append(all, models...)
		} else if provider == "gemini" {
			fmt.Fprintln(os.Stderr, "Error: Gemini API not available. Set GEMINI_API_KEY environment variable.")
			os.Exit(1)
		}
	}
	if provider == "ollama" || provider == "all" {
		models := collectOllama(ctx)
		if len(models) > 0 {
			all = append(all, models...)
		} else if provider == "ollama" {
			fmt.Fprintln(os.Stderr, "Error: Ollama not available. Make sure it's running at the configured URL.")
			os.Exit(1)
		}
	}
	if len(all) == 0 {
		fmt.Fprintln(os.Stderr, "No models available. Configure at least one provider:")
		fmt.Fprintln(os.Stderr, "  - Set GEMINI_API_KEY for Gemini")
		fmt.Fprintln(os.Stderr, "  - Start Ollama for local models")
		os.Exit(1)
	}

	switch {
	case refsOnly:
		llm.WriteRefs(os.Stdout, all)
	case format == "json":
		return llm.WriteJSON(os.Stdout, all)
	case format == "list":
		llm.WriteList(os.Stdout, all)
	default:
		llm.WriteTable(os.Stdout, all)
	}
	return nil
}

// collectGemini returns nil when the provider is unconfigured or the
// listing fails; only the failure is reported.
func collectGemini(ctx context.Context) []llm.ModelInfo {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil
	}
	models, err := llm.ListGemini(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing Gemini models: %v\n", err)
		return nil
	}
	return models
}

func collectOllama(ctx context.Context) []llm.ModelInfo {
	models, err := llm.ListOllama(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing Ollama models: %v\n", err)
		return nil
	}
	return models
}
