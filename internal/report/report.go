// Package report renders baseline comparison results for the console and for
// machine consumption.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"go.trai.ch/replay/internal/core/domain"
)

// Report is one run's renderable outcome.
type Report struct {
	// Suite labels the report.
	Suite string `json:"suite"`
	// Diff classifies every scenario against the previous baseline.
	Diff domain.BaselineDiff `json:"diff"`
	// Summaries holds the fresh per-scenario summaries.
	Summaries map[string]domain.BaselineSummary `json:"summaries"`
	// Replayed counts runs answered from the cache.
	Replayed int `json:"replayed"`
	// Exhausted counts models that ran out of rate limit retries.
	Exhausted map[string]int `json:"exhausted,omitempty"`
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Join(domain.ErrRunFailed, err)
	}
	return nil
}

// Text writes the human-readable report: a one-line count summary followed by
// the per-class scenario lists with before and after scores.
func Text(w io.Writer, r Report) error {
	improved, worsened, unchanged, added, removed, skipped := r.Diff.Counts()
	if _, err := fmt.Fprintf(
		w,
		"suite %s: %d improved, %d worsened, %d unchanged, %d added, %d removed, %d skipped\n",
		r.Suite, improved, worsened, unchanged, added, removed, skipped,
	); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	writeClass(tw, "improved", r.Diff.Improved)
	writeClass(tw, "worsened", r.Diff.Worsened)
	writeClass(tw, "added", r.Diff.Added)
	writeNames(tw, "removed", r.Diff.Removed)
	writeNames(tw, "skipped", r.Diff.Skipped)
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Replayed > 0 {
		if _, err := fmt.Fprintf(w, "%d runs replayed from cache\n", r.Replayed); err != nil {
			return err
		}
	}
	for model, n := range r.Exhausted {
		if _, err := fmt.Fprintf(w, "model %s exhausted its rate limit retries %d time(s)\n", model, n); err != nil {
			return err
		}
	}
	return nil
}

func writeClass(w io.Writer, label string, list []domain.Comparison) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, c := range list {
		note := ""
		if c.Optional {
			note = "\t(optional)"
		}
		if c.IsNew {
			fmt.Fprintf(w, "\t%s\t%.2f%s\n", c.Name, c.CurrScore, note)
			continue
		}
		fmt.Fprintf(w, "\t%s\t%.2f -> %.2f%s\n", c.Name, c.PrevScore, c.CurrScore, note)
	}
}

func writeNames(w io.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, name := range names {
		fmt.Fprintf(w, "\t%s\n", name)
	}
}
