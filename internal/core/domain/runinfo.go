package domain

import "fmt"

// RunInfo identifies one execution of one scenario. The cache layer treats it
// as an opaque source of salts and slot numbers; it carries no behavior.
type RunInfo struct {
	// Scenario is the name of the scenario being executed.
	Scenario string
	// RunIndex is the slot in [0, Runs): each repetition of a scenario records
	// and replays its own independent cache entries.
	RunIndex int
	// Live reports whether a real endpoint is reachable for this run. When
	// false, a miss cannot be populated and behaves like require mode.
	Live bool
}

// Slot returns the cache slot for this run.
func (r RunInfo) Slot() int {
	return r.RunIndex
}

func (r RunInfo) String() string {
	return fmt.Sprintf("%s#%d", r.Scenario, r.RunIndex)
}
