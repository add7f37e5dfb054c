package filter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Verdict is the outcome of evaluating a title.
type Verdict string

const (
	Valid         Verdict = "valid"
	Noise         Verdict = "noise"
	Rollup        Verdict = "rollup"
	Informational Verdict = "informational"
	Malformed     Verdict = "malformed"
)

// Rules holds the ordered pattern classes and the structural bounds.
type Rules struct {
	Noise         []*regexp.Regexp
	Rollup        []*regexp.Regexp
	Informational []*regexp.Regexp
	MinLength     int
	MaxLength     int
}

// DefaultRules returns the built-in pattern sets.
func DefaultRules() Rules {
	return Rules{
		Noise: compile(
			`^\s*\d+[.)]\s`,
			`^(read more|learn more|see more|view all|show more|load more|back to top|skip to (main )?content)\b`,
			`^(table of contents|contents|related (posts|articles)|share this|subscribe|sign up|log ?in|menu|search|home|next|previous)\s*$`,
			`^(posted|published|updated) (on|by)\b`,
			`^(tags?|categories|filed under)\s*:`,
			`^(cookie (settings|policy|preferences)|privacy policy|terms of (use|service))\b`,
			`all rights reserved`,
			`^(what's new|what is new|product updates?|changelog)\s*$`,
		),
		Rollup: compile(
			`\btop (\d+ )?(product )?updates (for|from|in)\b`,
			`\b(product|platform) updates?\s*[:\-–]\s*(january|february|march|april|may|june|july|august|september|october|november|december|q[1-4])`,
			`\b(monthly|weekly|quarterly) (product )?(updates|roundup|recap|digest)\b`,
			`\b(roundup|recap|digest)\s*[:\-–]?\s*(january|february|march|april|may|june|july|august|september|october|november|december|q[1-4])\b`,
			`\bwhat'?s new in (january|february|march|april|may|june|july|august|september|october|november|december|q[1-4])\b`,
		),
		Informational: compile(
			`\b(award|awards|recognized|recognised|named a leader|gartner|forrester)\b`,
			`\b(webinar|webinars|conference|inbound \d{4}|summit|livestream)\b`,
			`\b(marketplace|app partner|partner program|certification)\b`,
			`\b(milestone|anniversary|celebrat\w*|customers served|\d+[kmb]?\+? customers)\b`,
			`\b(hiring|careers|press release|earnings|acquires|acquisition)\b`,
		),
		MinLength: 10,
		MaxLength: 200,
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Filter classifies titles as noise, rollup, informational or valid.
type Filter struct {
	rules Rules
}

// New builds a filter over rules. Zero bounds take the defaults.
func New(rules Rules) *Filter {
	defaults := DefaultRules()
	if rules.MinLength <= 0 {
		rules.MinLength = defaults.MinLength
	}
	if rules.MaxLength <= 0 {
		rules.MaxLength = defaults.MaxLength
	}
	return &Filter{rules: rules}
}

// IsRollup reports whether title names a periodic digest.
func (f *Filter) IsRollup(title string) bool {
	return matchAny(f.rules.Rollup, strings.TrimSpace(title))
}

// Evaluate applies the classes in precedence order. Rollup titles pass only
// when the candidate came out of a successful expansion.
func (f *Filter) Evaluate(title string, expanded bool) Verdict {
	title = strings.TrimSpace(title)

	if matchAny(f.rules.Noise, title) {
		return Noise
	}
	if matchAny(f.rules.Rollup, title) && !expanded {
		return Rollup
	}
	if matchAny(f.rules.Informational, title) {
		return Informational
	}

	n := utf8.RuneCountInString(title)
	if n < f.rules.MinLength || n > f.rules.MaxLength {
		return Malformed
	}
	if !hasCapitalizedToken(title) {
		return Malformed
	}

	return Valid
}

// Accept is shorthand for Evaluate(...) == Valid.
func (f *Filter) Accept(title string, expanded bool) bool {
	return f.Evaluate(title, expanded) == Valid
}

func matchAny(exprs []*regexp.Regexp, s string) bool {
	for _, e := range exprs {
		if e.MatchString(s) {
			return true
		}
	}
	return false
}

func hasCapitalizedToken(title string) bool {
	for _, field := range strings.Fields(title) {
		r, _ := utf8.DecodeRuneInString(field)
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
