package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteRefs prints just the provider-prefixed model identifiers, one
// per line.
func WriteRefs(w io.Writer, models []ModelInfo) {
	for _, m := range models {
		fmt.Fprintln(w, m.Ref)
	}
}

// WriteList prints one compact line per model.
func WriteList(w io.Writer, models []ModelInfo) {
	for _, m := range models {
		fmt.Fprintf(w, "%s: %s (%s)\n", m.Provider, m.Name, m.Ref)
	}
}

// WriteJSON prints the models as an indented JSON array.
func WriteJSON(w io.Writer, models []ModelInfo) error {
	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteTable prints models grouped by provider with descriptions and
// sizes.
func WriteTable(w io.Writer, models []ModelInfo) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, "\nAvailable AI Models:")
	fmt.Fprintln(w, rule)

	sorted := make([]ModelInfo, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Provider != sorted[j].Provider {
			return sorted[i].Provider < sorted[j].Provider
		}
		return sorted[i].Name < sorted[j].Name
	})

	currentProvider := ""
	for _, m := range sorted {
		if m.Provider != currentProvider {
			currentProvider = m.Provider
			fmt.Fprintf(w, "\n%s:\n", currentProvider)
			fmt.Fprintln(w, strings.Repeat("-", 80))
		}

		fmt.Fprintf(w, "  Model: %s\n", m.Name)
		fmt.Fprintf(w, "    any-llm-sdk: %s\n", m.Ref)

		if m.Description != "" {
			desc := m.Description
			if len(desc) > 60 {
				desc = desc[:57] + "..."
			}
			fmt.Fprintf(w, "    Description: %s\n", desc)
		}
		if m.Size > 0 {
			fmt.Fprintf(w, "    Size: %s\n", humanSize(m.Size))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d models available\n\n", len(models))
}

func humanSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes > gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes > mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	}
}
