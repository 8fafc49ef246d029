package main

import (
	"fmt"
	"os"
)

// Terminal colors for diagnostics. Results (search listings, config dumps,
// JSON output) go to stdout; everything decorated here goes to stderr so
// piped output stays machine-readable.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

func stderrLine(color, prefix, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, prefix+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { stderrLine(ansiGreen, "✓ ", format, args...) }

func printError(format string, args ...any) { stderrLine(ansiRed, "✗ ", format, args...) }

func printWarning(format string, args ...any) { stderrLine(ansiYellow, "⚠ ", format, args...) }

func printStep(format string, args ...any) { stderrLine(ansiCyan, "→ ", format, args...) }

// printStatus renders a labeled value line, used by stats and run summaries.
func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}

// printCheck renders one line of the database sanity report.
func printCheck(name string, passed bool, detail string) {
	if passed {
		printSuccess("%s: %s", name, detail)
		return
	}
	printError("%s: %s", name, detail)
}
