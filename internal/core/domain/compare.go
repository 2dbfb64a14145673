package domain

import (
	"math"
	"sort"
)

// CompareBaselines classifies the movement between a previous and a current
// summary for the same scenario, robustly across differing sample counts.
//
// When the two runs used a different number of repetitions, the estimate taken
// with fewer samples is widened to the scale of the larger run: the extra,
// never-executed repetitions could each have gone either way, so the score is
// only known to lie in an interval. A movement counts as improved or worsened
// only when the two intervals do not overlap, which keeps the classification
// stable when the repetition count changes between baselines.
func CompareBaselines(prev, curr BaselineSummary) Outcome {
	prevN := prev.Samples()
	currN := curr.Samples()

	prevPass := int(math.Round(prev.Score * float64(prevN)))
	currPass := int(math.Round(curr.Score * float64(currN)))

	prevMin, prevMax := prev.Score, prev.Score
	currMin, currMax := curr.Score, curr.Score

	switch {
	case prevN > currN:
		scale := float64(prevN)
		currMin = float64(currPass) / scale
		currMax = float64(currPass+(prevN-currN)) / scale
	case prevN < currN:
		scale := float64(currN)
		prevMin = float64(prevPass) / scale
		prevMax = float64(prevPass+(currN-prevN)) / scale
	}

	switch {
	case currMin > prevMax:
		return OutcomeImproved
	case currMax < prevMin:
		return OutcomeWorsened
	default:
		return OutcomeUnchanged
	}
}

// DiffBaselines classifies every scenario across two baseline sets. Scenarios
// only in curr are added; scenarios only in prev are removed. skipped lists
// scenarios that were defined but not executed this run.
func DiffBaselines(prev, curr map[string]BaselineSummary, skipped []string) BaselineDiff {
	var diff BaselineDiff

	names := make([]string, 0, len(curr))
	for name := range curr {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := curr[name]
		p, ok := prev[name]
		if !ok {
			diff.Added = append(diff.Added, Comparison{
				Name:      name,
				Outcome:   OutcomeUnchanged,
				IsNew:     true,
				CurrScore: c.Score,
				Optional:  c.Optional,
			})
			continue
		}

		cmp := Comparison{
			Name:      name,
			Outcome:   CompareBaselines(p, c),
			PrevScore: p.Score,
			CurrScore: c.Score,
			Optional:  c.Optional,
		}
		switch cmp.Outcome {
		case OutcomeImproved:
			diff.Improved = append(diff.Improved, cmp)
		case OutcomeWorsened:
			diff.Worsened = append(diff.Worsened, cmp)
		default:
			diff.Unchanged = append(diff.Unchanged, cmp)
		}
	}

	skippedSet := make(map[string]bool, len(skipped))
	for _, name := range skipped {
		skippedSet[name] = true
	}

	// A scenario that was deliberately skipped this run is not gone, just not
	// re-measured; only names absent from both curr and the skip list count as
	// removed.
	removed := make([]string, 0)
	for name := range prev {
		if _, ok := curr[name]; !ok && !skippedSet[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	diff.Removed = removed

	skippedCopy := make([]string, len(skipped))
	copy(skippedCopy, skipped)
	sort.Strings(skippedCopy)
	diff.Skipped = skippedCopy

	return diff
}
