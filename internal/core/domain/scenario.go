package domain

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// Scenario is one independent test case: a prompt sent to a model N times,
// each run judged by the scenario's assertions.
type Scenario struct {
	// Name uniquely identifies the scenario within the suite.
	Name string
	// Model is the endpoint model identifier.
	Model string
	// Messages is the prompt sent on every run.
	Messages []ChatMessage
	// Temperature and MaxTokens are forwarded to the endpoint unchanged.
	Temperature float64
	MaxTokens   int
	// Runs is how many times the scenario executes; zero means the suite default.
	Runs int
	// Optional scenarios are reported but never fail the run.
	Optional bool
	// Assertions judge each run's response.
	Assertions []Assertion
}

// Validate reports whether the scenario is complete enough to execute.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return zerr.With(ErrScenarioInvalid, "reason", "missing name")
	}
	if s.Model == "" {
		return zerr.With(zerr.With(ErrScenarioInvalid, "scenario", s.Name), "reason", "missing model")
	}
	if len(s.Messages) == 0 {
		return zerr.With(zerr.With(ErrScenarioInvalid, "scenario", s.Name), "reason", "no messages")
	}
	for _, a := range s.Assertions {
		if err := a.compile(); err != nil {
			return err
		}
	}
	return nil
}

// Request builds the outbound call for this scenario.
func (s Scenario) Request() ModelRequest {
	return ModelRequest{
		Model:       s.Model,
		Messages:    s.Messages,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}

// AssertionKind selects how an assertion judges a response.
type AssertionKind string

const (
	// AssertContains passes when the response contains Value as a substring.
	AssertContains AssertionKind = "contains"
	// AssertMatches passes when the response matches the Value regexp.
	AssertMatches AssertionKind = "matches"
	// AssertNotEmpty passes when the response is non-blank.
	AssertNotEmpty AssertionKind = "notEmpty"
)

// Assertion is one pass/fail check against a response body. The full
// assertion DSL of scenario authors lives outside the harness; these are the
// built-in checks the executor understands at its boundary.
type Assertion struct {
	Kind  AssertionKind
	Value string

	re *regexp.Regexp
}

func (a *Assertion) compile() error {
	if a.Kind != AssertMatches {
		return nil
	}
	re, err := regexp.Compile(a.Value)
	if err != nil {
		return zerr.With(zerr.With(ErrScenarioInvalid, "reason", "bad pattern"), "pattern", a.Value)
	}
	a.re = re
	return nil
}

// Holds reports whether the assertion passes for the given response content.
func (a Assertion) Holds(content string) bool {
	switch a.Kind {
	case AssertContains:
		return strings.Contains(content, a.Value)
	case AssertMatches:
		re := a.re
		if re == nil {
			var err error
			re, err = regexp.Compile(a.Value)
			if err != nil {
				return false
			}
		}
		return re.MatchString(content)
	case AssertNotEmpty:
		return strings.TrimSpace(content) != ""
	default:
		return false
	}
}
