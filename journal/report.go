package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Verbosity controls how much of the journal is reported.
type Verbosity int

// Verbosity levels.
const (
	// Quiet reports items that did not succeed and the totals.
	Quiet Verbosity = iota
	// Normal reports every item that is not unchanged and the summary.
	Normal
	// Verbose reports every item with changes, attempts and durations.
	Verbose
)

// ParseVerbosity parses quiet, normal or verbose.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "quiet":
		return Quiet, nil
	case "", "normal":
		return Normal, nil
	case "verbose":
		return Verbose, nil
	}
	return Normal, errors.Errorf("unknown verbosity %q", s)
}

func stateColor(s State) *color.Color {
	switch s {
	case Created, Updated, Deleted:
		return color.New(color.FgGreen)
	case Unchanged:
		return color.New(color.Faint)
	case Conflict, Skipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// WriteText writes a human readable report.
func (j *Journal) WriteText(w io.Writer, v Verbosity) error {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range j.Entries() {
		switch {
		case v == Quiet && e.State.Success():
			continue
		case v == Normal && e.State == Unchanged:
			continue
		}
		state := stateColor(e.State).Sprint(e.State)
		line := fmt.Sprintf("%s\t%s\t%s", e.Kind, e.Key, state)
		if e.ID != "" && v == Verbose {
			line += "\t" + faint(e.ID)
		}
		if len(e.Changes) > 0 && (v == Verbose || e.State == Conflict) {
			line += "\t" + strings.Join(e.Changes, ",")
		}
		if e.Message != "" {
			line += "\t" + e.Message
		}
		if v == Verbose {
			line += "\t" + faint(fmt.Sprintf("%d attempt(s), %s", e.Attempts, e.Duration.Round(time.Millisecond)))
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	summary := j.Summary()
	if v != Quiet {
		for _, kind := range j.Kinds() {
			if _, err := fmt.Fprintf(w, "%s: %s\n", bold(kind), formatCounts(summary[kind])); err != nil {
				return err
			}
		}
	}

	for _, n := range j.Notes() {
		if _, err := fmt.Fprintf(w, "%s %s\n", faint("note:"), n); err != nil {
			return err
		}
	}

	total := make(map[State]int)
	for _, s := range TerminalStates {
		total[s] = summary.Total(s)
	}
	_, err := fmt.Fprintf(w, "%s %s\n", bold("Total:"), formatCounts(total))
	return err
}

func formatCounts(counts map[State]int) string {
	var parts []string
	for _, s := range TerminalStates {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(s.String())))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}

type jsonEntry struct {
	Entry
	Duration float64 `json:"duration_seconds"`
}

type jsonReport struct {
	Run      string                    `json:"run,omitempty"`
	Entries  []jsonEntry               `json:"entries"`
	Summary  map[string]map[string]int `json:"summary"`
	Notes    []string                  `json:"notes,omitempty"`
	ExitCode int                       `json:"exit_code"`
}

// WriteJSON writes the journal as a JSON document.
func (j *Journal) WriteJSON(w io.Writer, run string) error {
	entries := j.Entries()
	rep := jsonReport{
		Run:      run,
		Entries:  make([]jsonEntry, len(entries)),
		Summary:  make(map[string]map[string]int),
		Notes:    j.Notes(),
		ExitCode: j.ExitCode(),
	}
	for i, e := range entries {
		rep.Entries[i] = jsonEntry{Entry: e, Duration: e.Duration.Seconds()}
	}
	for kind, counts := range j.Summary() {
		m := make(map[string]int, len(counts))
		for s, n := range counts {
			m[s.String()] = n
		}
		rep.Summary[kind] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
