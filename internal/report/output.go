package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yacobolo/stylebuild/internal/engine"
	"github.com/yacobolo/stylebuild/internal/logger"
)

// Format selects how a Result is printed.
type Format string

const (
	// FormatText prints a one-line human summary.
	FormatText Format = "text"
	// FormatJSON prints the JSONOutput document.
	FormatJSON Format = "json"
	// FormatNone prints nothing; the exit code carries the outcome.
	FormatNone Format = "none"
)

// DetermineFormat selects the output format from flags. Quiet wins over everything.
func DetermineFormat(formatFlag string, quiet bool) (Format, error) {
	if quiet {
		return FormatNone, nil
	}
	switch strings.ToLower(formatFlag) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", formatFlag)
	}
}

// Write prints result in format.
func Write(w io.Writer, result *Result, format Format, useColors bool) error {
	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		return WriteJSON(w, result)
	default:
		_, err := fmt.Fprintln(w, summaryLine(result, useColors))
		return err
	}
}

func summaryLine(r *Result, useColors bool) string {
	if r.Skipped {
		return logger.RenderStyle(logger.StyleGray, "No stylesheet changes, nothing compiled", useColors)
	}

	line := fmt.Sprintf("%s: %s, %s",
		pluralizeCount(len(r.Pairs), "stylesheet directory", "stylesheet directories"),
		pluralizeCount(len(r.Updated), "file updated", "files updated"),
		pluralizeCount(len(r.Errors), "error", "errors"))
	if r.Duration > 0 {
		line += fmt.Sprintf(" (%s)", r.Duration.Round(time.Millisecond))
	}

	if r.Failed() {
		return logger.RenderStyle(logger.StyleRed, line, useColors)
	}
	return logger.RenderStyle(logger.StyleGreen, line, useColors)
}

// JSONOutput is the machine-readable result schema.
type JSONOutput struct {
	Operation  string                    `json:"operation"`
	Timestamp  string                    `json:"timestamp"`
	Skipped    bool                      `json:"skipped"`
	DurationMS int64                     `json:"duration_ms"`
	Summary    JSONSummary               `json:"summary"`
	Pairs      []JSONPair                `json:"pairs"`
	Updated    []string                  `json:"updated"`
	Errors     []engine.CompilationError `json:"errors"`
}

// JSONSummary contains the headline counts.
type JSONSummary struct {
	Directories int `json:"directories"`
	Updated     int `json:"updated"`
	Errors      int `json:"errors"`
}

// JSONPair is one source directory and its output directory.
type JSONPair struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Relative    string `json:"relative,omitempty"`
}

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(result, time.Now()))
}

func buildJSONOutput(r *Result, now time.Time) JSONOutput {
	pairs := make([]JSONPair, len(r.Pairs))
	for i, p := range r.Pairs {
		pairs[i] = JSONPair{Source: p.SourceDir, Destination: p.DestDir, Relative: p.Rel}
	}

	updated := r.Updated
	if updated == nil {
		updated = []string{}
	}
	errs := r.Errors
	if errs == nil {
		errs = []engine.CompilationError{}
	}

	return JSONOutput{
		Operation:  r.Operation,
		Timestamp:  now.UTC().Format(time.RFC3339),
		Skipped:    r.Skipped,
		DurationMS: r.Duration.Milliseconds(),
		Summary: JSONSummary{
			Directories: len(r.Pairs),
			Updated:     len(r.Updated),
			Errors:      len(r.Errors),
		},
		Pairs:   pairs,
		Updated: updated,
		Errors:  errs,
	}
}
