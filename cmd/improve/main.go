// improve fixes grammar and punctuation in transcribed text using a
// configured AI provider, passing the text through unchanged when none
// is available. Designed as the downstream half of `listen | improve`.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"listen/llm"
	"listen/log"
)

var version = "0.1.0"

const improveTimeout = 60 * time.Second

func main() {
	godotenv.Load()

	var (
		prompt    string
		raw       bool
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "improve [TEXT]",
		Short: "Fix grammar and punctuation in transcribed text",
		Long: `Improves transcribed text with a configured AI provider (Gemini or
Ollama) while preserving the original meaning. Without a provider the
text passes through unchanged. Reads stdin when no argument is given,
so it composes with listen: listen | improve`,
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, prompt, raw, fromStdin)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "override the system prompt")
	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "print the result without the \"Improved: \" prefix")
	cmd.Flags().BoolVarP(&fromStdin, "stdin", "s", false, "read text from stdin even when TEXT is given")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(args []string, prompt string, raw, fromStdin bool) error {
	if dir, err := log.ResolveDir(""); err == nil {
		log.SetDir(dir)
		log.EnsureDir()
	}
	defer log.Close()

	text, err := readInput(args, fromStdin)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text provided (pass TEXT as an argument or pipe it on stdin)")
	}

	improver := llm.NewImprover(llm.Detect(), prompt)
	ctx, cancel := context.WithTimeout(context.Background(), improveTimeout)
	defer cancel()
	improved := improver.Improve(ctx, text)

	if raw {
		fmt.Println(improved)
		return nil
	}
	fmt.Println("Improved: " + improved)
	return nil
}

// readInput prefers the positional argument unless --stdin forces the
// pipe. With no argument and an interactive terminal there is nothing
// to read, which the caller reports as empty input.
func readInput(args []string, fromStdin bool) (string, error) {
	if len(args) > 0 && !fromStdin {
		return args[0], nil
	}
	if !fromStdin && term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
