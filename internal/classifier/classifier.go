package classifier

import (
	"regexp"
	"strings"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

type statusMatcher struct {
	status    domain.Status
	tentative bool
	expr      *regexp.Regexp
}

type categoryMatcher struct {
	category domain.Category
	expr     *regexp.Regexp
}

// Classifier assigns a status and categories to announcement text.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	statuses    []statusMatcher
	categories  []categoryMatcher
	fallback    domain.Status
	placeholder domain.Category
}

// New compiles rules into a Classifier.
func New(rules Rules) *Classifier {
	c := &Classifier{
		fallback:    rules.Fallback,
		placeholder: rules.Placeholder,
	}
	if c.fallback == "" {
		c.fallback = domain.StatusUpdate
	}
	if c.placeholder == "" {
		c.placeholder = domain.CategoryUncategorized
	}

	for _, rule := range rules.Statuses {
		if expr := keywordExpr(rule.Keywords); expr != nil {
			c.statuses = append(c.statuses, statusMatcher{status: rule.Status, tentative: rule.Tentative, expr: expr})
		}
	}
	for _, rule := range rules.Categories {
		if expr := keywordExpr(rule.Keywords); expr != nil {
			c.categories = append(c.categories, categoryMatcher{category: rule.Category, expr: expr})
		}
	}

	return c
}

// Fallback is the status returned when nothing matched.
func (c *Classifier) Fallback() domain.Status {
	return c.fallback
}

// Placeholder is the category returned when nothing matched.
func (c *Classifier) Placeholder() domain.Category {
	return c.placeholder
}

// Classify evaluates title and description together.
func (c *Classifier) Classify(title, description string) (domain.Status, []domain.Category) {
	text := strings.ToLower(title + " " + description)
	return c.status(text), c.categoriesOf(text)
}

// Match is Classify plus whether the status came from a tentative rule.
func (c *Classifier) Match(title, description string) (domain.Status, bool, []domain.Category) {
	text := strings.ToLower(title + " " + description)
	status, tentative := c.match(text)
	return status, tentative, c.categoriesOf(text)
}

// Status returns the first status whose keywords occur in text.
func (c *Classifier) Status(text string) domain.Status {
	return c.status(strings.ToLower(text))
}

// Categories returns every category whose keywords occur in text, in rule
// order, or the placeholder alone.
func (c *Classifier) Categories(text string) []domain.Category {
	return c.categoriesOf(strings.ToLower(text))
}

func (c *Classifier) status(lower string) domain.Status {
	status, _ := c.match(lower)
	return status
}

func (c *Classifier) match(lower string) (domain.Status, bool) {
	for _, m := range c.statuses {
		if m.expr.MatchString(lower) {
			return m.status, m.tentative
		}
	}
	return c.fallback, false
}

func (c *Classifier) categoriesOf(lower string) []domain.Category {
	var found []domain.Category
	seen := map[domain.Category]struct{}{}
	for _, m := range c.categories {
		if _, ok := seen[m.category]; ok {
			continue
		}
		if m.expr.MatchString(lower) {
			seen[m.category] = struct{}{}
			found = append(found, m.category)
		}
	}
	if len(found) == 0 {
		return []domain.Category{c.placeholder}
	}
	return found
}

// keywordExpr builds one alternation matching any keyword on word
// boundaries, so "live" does not fire inside "delivered".
func keywordExpr(keywords []string) *regexp.Regexp {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(kw))
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?:^|[^\pL\pN])(?:` + strings.Join(parts, "|") + `)(?:$|[^\pL\pN])`)
}
