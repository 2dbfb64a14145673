package domain

// BaselineSummary is the persisted pass/fail record for one scenario, carried
// between runs of the whole suite.
type BaselineSummary struct {
	Name      string  `json:"name"`
	PassCount int     `json:"passCount"`
	FailCount int     `json:"failCount"`
	Score     float64 `json:"score"`
	Optional  bool    `json:"optional,omitempty"`
}

// NewBaselineSummary builds a summary with its score derived from the counts.
// Score is always passCount / (passCount + failCount).
func NewBaselineSummary(name string, passCount, failCount int, optional bool) BaselineSummary {
	s := BaselineSummary{
		Name:      name,
		PassCount: passCount,
		FailCount: failCount,
		Optional:  optional,
	}
	if total := passCount + failCount; total > 0 {
		s.Score = float64(passCount) / float64(total)
	}
	return s
}

// Samples returns the number of runs the summary is based on.
func (s BaselineSummary) Samples() int {
	return s.PassCount + s.FailCount
}

// Outcome classifies a scenario's movement between two baselines.
type Outcome string

const (
	// OutcomeImproved means the current score is unambiguously higher.
	OutcomeImproved Outcome = "improved"
	// OutcomeWorsened means the current score is unambiguously lower.
	OutcomeWorsened Outcome = "worsened"
	// OutcomeUnchanged means the movement is within re-sampling noise.
	OutcomeUnchanged Outcome = "unchanged"
)

// Comparison is the derived classification for one scenario across two runs.
type Comparison struct {
	Name      string  `json:"name"`
	Outcome   Outcome `json:"outcome"`
	IsNew     bool    `json:"isNew,omitempty"`
	PrevScore float64 `json:"prevScore"`
	CurrScore float64 `json:"currScore"`
	Optional  bool    `json:"optional,omitempty"`
}

// BaselineDiff aggregates all per-scenario comparisons for reporting.
type BaselineDiff struct {
	Improved  []Comparison `json:"improved"`
	Worsened  []Comparison `json:"worsened"`
	Unchanged []Comparison `json:"unchanged"`
	Added     []Comparison `json:"added"`
	Removed   []string     `json:"removed"`
	Skipped   []string     `json:"skipped"`
}

// Counts returns the classification counts in reporting order.
func (d BaselineDiff) Counts() (improved, worsened, unchanged, added, removed, skipped int) {
	return len(d.Improved), len(d.Worsened), len(d.Unchanged), len(d.Added), len(d.Removed), len(d.Skipped)
}

// HasRegressions reports whether any non-optional scenario worsened.
func (d BaselineDiff) HasRegressions() bool {
	for _, c := range d.Worsened {
		if !c.Optional {
			return true
		}
	}
	return false
}
