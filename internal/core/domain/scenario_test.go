package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/replay/internal/core/domain"
)

func TestScenario_Validate(t *testing.T) {
	valid := domain.Scenario{
		Name:     "greets",
		Model:    "gpt-4",
		Messages: []domain.ChatMessage{{Role: "user", Content: "say hi"}},
	}

	tests := []struct {
		name    string
		mutate  func(*domain.Scenario)
		wantErr bool
	}{
		{name: "complete scenario", mutate: func(*domain.Scenario) {}},
		{name: "missing name", mutate: func(s *domain.Scenario) { s.Name = "" }, wantErr: true},
		{name: "missing model", mutate: func(s *domain.Scenario) { s.Model = "" }, wantErr: true},
		{name: "no messages", mutate: func(s *domain.Scenario) { s.Messages = nil }, wantErr: true},
		{
			name: "bad assertion pattern",
			mutate: func(s *domain.Scenario) {
				s.Assertions = []domain.Assertion{{Kind: domain.AssertMatches, Value: "("}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrScenarioInvalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAssertion_Holds(t *testing.T) {
	tests := []struct {
		name      string
		assertion domain.Assertion
		content   string
		want      bool
	}{
		{"contains hit", domain.Assertion{Kind: domain.AssertContains, Value: "world"}, "hello world", true},
		{"contains miss", domain.Assertion{Kind: domain.AssertContains, Value: "mars"}, "hello world", false},
		{"matches hit", domain.Assertion{Kind: domain.AssertMatches, Value: `^\d+$`}, "1234", true},
		{"matches miss", domain.Assertion{Kind: domain.AssertMatches, Value: `^\d+$`}, "12a4", false},
		{"notEmpty hit", domain.Assertion{Kind: domain.AssertNotEmpty}, "x", true},
		{"notEmpty blank", domain.Assertion{Kind: domain.AssertNotEmpty}, "  \n ", false},
		{"unknown kind fails closed", domain.Assertion{Kind: "telepathy"}, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.assertion.Holds(tt.content))
		})
	}
}
