package prefetch

import (
	"os"
	"strings"
)

// SplitList turns a comma separated flag value into trimmed items.
func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ShowHelp prints usage information for the prefetch tool.
func ShowHelp() {
	os.Stdout.WriteString(`Badgeboard Prefetch Tool
========================

Downloads badges and user pictures into the local cache so they are ready
before a game session starts. Server and cache settings come from the same
config file and BADGEBOARD_* variables as the client.

Usage:
  go run ./cmd/prefetch [options]

Options:
  -badges string
        Comma separated badge ids
  -users string
        Comma separated user names
  -w int
        Width to materialize at (default 64)
  -h int
        Height to materialize at (default 64)
  -workers int
        Number of concurrent pollers (default 4)
  -timeout duration
        Per-asset deadline (default 30s)
  -verbose
        Log every asset as it becomes ready
  -help
        Show this help message

Examples:
  go run ./cmd/prefetch -badges 12345,67890 -users alice,bob
`)
}
