package cache

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// NearestRequest finds the recorded request closest to payload and renders a
// diff against it. Printed when a required replay entry is absent: the most
// common cause is a drifted prompt, and seeing what changed beats staring at
// two hashes.
func NearestRequest(payload []byte, recorded map[string][]byte) (hash, rendered string, found bool) {
	if len(recorded) == 0 {
		return "", "", false
	}

	dmp := diffmatchpatch.New()
	target := string(payload)

	bestDistance := -1
	var bestHash string
	var bestDiffs []diffmatchpatch.Diff

	for h, candidate := range recorded {
		diffs := dmp.DiffMain(string(candidate), target, false)
		distance := dmp.DiffLevenshtein(diffs)
		if bestDistance < 0 || distance < bestDistance {
			bestDistance = distance
			bestHash = h
			bestDiffs = diffs
		}
	}

	return bestHash, renderDiffs(dmp, bestDiffs), true
}

func renderDiffs(dmp *diffmatchpatch.DiffMatchPatch, diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&b, "+{%s}", d.Text)
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&b, "-{%s}", d.Text)
		default:
			b.WriteString(contextWindow(d.Text))
		}
	}
	return b.String()
}

// contextWindow shortens long unchanged stretches so the diff stays readable.
func contextWindow(s string) string {
	const keep = 32
	if len(s) <= 2*keep+5 {
		return s
	}
	return s[:keep] + " ... " + s[len(s)-keep:]
}
