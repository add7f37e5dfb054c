package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

// StatusRule maps a status to the keywords that signal it. A tentative
// rule labels new items but never moves a known item to another status.
type StatusRule struct {
	Status    domain.Status `yaml:"status"`
	Keywords  []string      `yaml:"keywords"`
	Tentative bool          `yaml:"tentative"`
}

// CategoryRule maps a category to the keywords that signal it.
type CategoryRule struct {
	Category domain.Category `yaml:"category"`
	Keywords []string        `yaml:"keywords"`
}

// Rules is the keyword configuration of a Classifier. Statuses are
// evaluated in order and the first match wins, so specific labels must
// come before generic ones. A status may appear in several rules.
type Rules struct {
	Statuses    []StatusRule    `yaml:"statuses"`
	Categories  []CategoryRule  `yaml:"categories"`
	Fallback    domain.Status   `yaml:"fallback"`
	Placeholder domain.Category `yaml:"placeholder"`
}

// DefaultRules returns the built-in keyword tables.
func DefaultRules() Rules {
	return Rules{
		Statuses: []StatusRule{
			{Status: domain.StatusPublicBeta, Keywords: []string{"public beta", "open beta"}},
			{Status: domain.StatusPrivateBeta, Keywords: []string{"private beta", "closed beta", "early access", "invite-only", "invite only", "limited beta"}},
			{Status: domain.StatusSunset, Keywords: []string{"sunset", "sunsetting", "deprecated", "deprecating", "deprecation", "retired", "retiring", "end of life"}},
			{Status: domain.StatusLive, Keywords: []string{"now live", "now available", "generally available", "general availability", "rolled out", "available to all"}},
			// Product names keep "Beta" long after launch.
			{Status: domain.StatusPublicBeta, Keywords: []string{"beta"}, Tentative: true},
			{Status: domain.StatusLive, Keywords: []string{"live", "launched", "released"}},
		},
		Categories: []CategoryRule{
			{Category: "marketing", Keywords: []string{"marketing", "email", "campaign", "campaigns", "ads", "social", "landing page", "landing pages", "forms", "seo"}},
			{Category: "sales", Keywords: []string{"sales", "sequence", "sequences", "deal", "deals", "pipeline", "quotes", "forecast", "forecasting", "prospecting", "meetings"}},
			{Category: "service", Keywords: []string{"service", "ticket", "tickets", "help desk", "helpdesk", "knowledge base", "customer portal", "feedback surveys", "inbox"}},
			{Category: "content", Keywords: []string{"cms", "content hub", "website", "blog", "themes", "templates", "memberships"}},
			{Category: "operations", Keywords: []string{"operations hub", "data sync", "workflow", "workflows", "automation", "data quality", "custom code", "datasets"}},
			{Category: "commerce", Keywords: []string{"commerce", "payments", "invoice", "invoices", "subscriptions", "checkout", "stripe"}},
			{Category: "ai", Keywords: []string{"ai", "breeze", "copilot", "agent", "agents", "chatgpt", "generative"}},
			{Category: "crm", Keywords: []string{"crm", "contacts", "companies", "records", "custom objects", "properties", "associations", "lists", "segments"}},
			{Category: "reporting", Keywords: []string{"report", "reports", "reporting", "dashboard", "dashboards", "analytics", "attribution"}},
			{Category: "developer", Keywords: []string{"api", "apis", "webhook", "webhooks", "developer", "developers", "sdk", "cli", "app marketplace", "ui extensions", "oauth"}},
		},
		Fallback:    domain.StatusUpdate,
		Placeholder: domain.CategoryUncategorized,
	}
}

// LoadRules reads a rules file. Missing fallback or placeholder values are
// taken from the defaults.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}

	defaults := DefaultRules()
	if rules.Fallback == "" {
		rules.Fallback = defaults.Fallback
	}
	if rules.Placeholder == "" {
		rules.Placeholder = defaults.Placeholder
	}
	if len(rules.Statuses) == 0 {
		rules.Statuses = defaults.Statuses
	}
	if len(rules.Categories) == 0 {
		rules.Categories = defaults.Categories
	}

	return rules, nil
}
