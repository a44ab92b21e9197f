// Package report renders the progress and outcome of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/probe/config"
	"github.com/punasusi/pihole-probe/pkg/probe/storage"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Report is the document written in JSON mode.
type Report struct {
	Timestamp   time.Time     `json:"timestamp"`
	Target      string        `json:"target"`
	Passed      bool          `json:"passed"`
	State       string        `json:"state"`
	FailedCheck string        `json:"failed_check,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
	Summary     Summary       `json:"summary"`
	Checks      []CheckOutput `json:"checks"`
	Diff        *DiffOutput   `json:"diff,omitempty"`
}

type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type CheckOutput struct {
	ID         string `json:"id"`
	Rank       int    `json:"rank"`
	Summary    string `json:"summary"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type DiffOutput struct {
	PreviousTime   time.Time `json:"previous_time"`
	PreviousPassed bool      `json:"previous_passed"`
	NewlyFailing   []string  `json:"newly_failing,omitempty"`
	Recovered      []string  `json:"recovered,omitempty"`
}

// Writer reports a run as it happens. In text mode every check is printed
// when it starts and finishes; in JSON mode nothing is written until
// Finished.
type Writer struct {
	w         io.Writer
	format    Format
	verbosity config.Verbosity
	diff      *storage.RunDiff
}

var _ probe.Reporter = (*Writer)(nil)

func NewWriter(w io.Writer, format Format, verbosity config.Verbosity) *Writer {
	return &Writer{
		w:         w,
		format:    format,
		verbosity: verbosity,
	}
}

func (w *Writer) SetDiff(diff *storage.RunDiff) {
	w.diff = diff
}

func (w *Writer) text(v config.Verbosity) bool {
	return w.format == FormatText && w.verbosity == v
}

func (w *Writer) Running(c probe.Check, summary string) {
	if w.text(config.VerbosityNormal) {
		fmt.Fprintf(w.w, "%-80s ... ", summary)
	}
}

func (w *Writer) Passed(c probe.Check, summary string, o probe.Outcome) {
	if w.text(config.VerbosityNormal) {
		fmt.Fprintf(w.w, "PASS %s\n", o.Detail)
	}
}

func (w *Writer) Failed(c probe.Check, summary string, o probe.Outcome) {
	switch {
	case w.text(config.VerbosityNormal):
		fmt.Fprintln(w.w, "FAIL")
		if o.Detail != "" {
			fmt.Fprintf(w.w, "OUTPUT:\n%s\n", o.Detail)
		}
	case w.text(config.VerbosityQuiet):
		fmt.Fprintf(w.w, "%s FAIL\n", summary)
	}
}

// Finished writes the verdict of the run.
func (w *Writer) Finished(result *probe.RunResult) error {
	if w.format == FormatJSON {
		return w.writeJSON(w.buildReport(result))
	}
	return w.writeText(result)
}

func (w *Writer) buildReport(result *probe.RunResult) *Report {
	passed, failed := result.Counts()
	report := &Report{
		Timestamp:   result.Started.UTC(),
		Target:      result.Target,
		Passed:      result.Passed(),
		State:       result.State.String(),
		FailedCheck: result.FailedCheck,
		DurationMS:  result.Duration.Milliseconds(),
		Summary:     Summary{Total: len(result.Results), Passed: passed, Failed: failed},
		Checks:      make([]CheckOutput, 0, len(result.Results)),
	}

	for _, cr := range result.Results {
		report.Checks = append(report.Checks, CheckOutput{
			ID:         cr.ID,
			Rank:       cr.Rank,
			Summary:    cr.Summary,
			Status:     cr.Status.String(),
			Detail:     cr.Detail,
			DurationMS: cr.Duration.Milliseconds(),
		})
	}

	if w.diff != nil && w.diff.HasPrevious {
		report.Diff = &DiffOutput{
			PreviousTime:   w.diff.PreviousTime,
			PreviousPassed: w.diff.PreviousPassed,
		}
		for _, c := range w.diff.NewlyFailing {
			report.Diff.NewlyFailing = append(report.Diff.NewlyFailing, c.ID)
		}
		for _, c := range w.diff.Recovered {
			report.Diff.Recovered = append(report.Diff.Recovered, c.ID)
		}
	}

	return report
}

func (w *Writer) writeJSON(report *Report) error {
	encoder := json.NewEncoder(w.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (w *Writer) writeText(result *probe.RunResult) error {
	if w.verbosity == config.VerbosityNormal && w.diff.Changed() {
		w.writeDiff()
	}

	var err error
	switch {
	case result.Passed():
		if w.verbosity == config.VerbosityNormal {
			_, err = fmt.Fprintf(w.w, "All tests pass on %s\n", result.Target)
		}
	default:
		_, err = fmt.Fprintf(w.w, "Testing failed on %s\n", result.Target)
	}
	return err
}

func (w *Writer) writeDiff() {
	since := w.diff.PreviousTime.Local().Format("2006-01-02 15:04:05")
	for _, c := range w.diff.NewlyFailing {
		fmt.Fprintf(w.w, "Newly failing since %s: %s\n", since, c.ID)
	}
	for _, c := range w.diff.Recovered {
		fmt.Fprintf(w.w, "Recovered since %s: %s\n", since, c.ID)
	}
}
