package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRejectsPatternClasses(t *testing.T) {
	t.Parallel()

	f := New(DefaultRules())

	cases := []struct {
		title string
		want  Verdict
	}{
		{"Read more", Noise},
		{"1. Smart CRM Properties", Noise},
		{"Table of Contents", Noise},
		{"Posted by the HubSpot Product Team", Noise},
		{"Privacy Policy", Noise},
		{"Product Updates", Noise},
		{"HubSpot Product Updates: October 2025", Rollup},
		{"The Top Product Updates for Q3", Rollup},
		{"Monthly Product Roundup from the Team", Rollup},
		{"HubSpot Named a Leader in the Gartner Magic Quadrant", Informational},
		{"Join Our Webinar on AI Agents", Informational},
		{"New Apps in the Marketplace This Month", Informational},
		{"Celebrating 250,000 Customers Worldwide", Informational},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, f.Evaluate(tc.title, false))
			assert.False(t, f.Accept(tc.title, false))
		})
	}
}

func TestNoiseAndInformationalIgnoreExpansion(t *testing.T) {
	t.Parallel()

	f := New(DefaultRules())

	assert.Equal(t, Noise, f.Evaluate("Learn more", true))
	assert.Equal(t, Informational, f.Evaluate("Join Our Webinar on AI Agents", true))
}

func TestRollupAcceptedWhenExpanded(t *testing.T) {
	t.Parallel()

	f := New(DefaultRules())
	title := "HubSpot Product Updates: October 2025"

	assert.True(t, f.IsRollup(title))
	assert.Equal(t, Rollup, f.Evaluate(title, false))
	assert.Equal(t, Valid, f.Evaluate(title, true))
}

func TestStructuralCheck(t *testing.T) {
	t.Parallel()

	f := New(DefaultRules())

	assert.Equal(t, Valid, f.Evaluate("New Sequence Automation Beta", false))
	assert.Equal(t, Valid, f.Evaluate("  Custom objects for everyone  ", false))
	assert.Equal(t, Malformed, f.Evaluate("Too short", false))
	assert.Equal(t, Malformed, f.Evaluate("all lowercase sentence fragment here", false))
	assert.Equal(t, Malformed, f.Evaluate("A "+strings.Repeat("x", 250), false))
}

func TestCustomBounds(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.MinLength = 3
	rules.MaxLength = 8
	f := New(rules)

	assert.Equal(t, Valid, f.Evaluate("AI Beta", false))
	assert.Equal(t, Malformed, f.Evaluate("AI Beta Two", false))
}
