package parser

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
)

const (
	defaultTitleSelector   = "h1"
	defaultContentSelector = "article, main, [role=main]"
	defaultMaxDocuments    = 10

	expandRollup = "rollup"
	expandAlways = "always"
	expandNever  = "never"
)

var (
	spaceExpr     = regexp.MustCompile(`\s+`)
	numberingExpr = regexp.MustCompile(`^(\d+[.)]|[•·*\-–])\s*`)
	sectionLevels = []string{"h2", "h3", "h4"}
)

// RollupDetector recognises titles of periodic digest documents.
type RollupDetector interface {
	IsRollup(title string) bool
}

// Section is one sub-heading with the body text that follows it.
type Section struct {
	Title  string
	Body   string
	Anchor string
}

// ExtractSections splits root on the first heading level that occurs at
// least twice. Each heading owns the text of its following siblings up to
// the next heading of the same level. It returns nil when no such structure
// exists.
func ExtractSections(root *goquery.Selection) []Section {
	for _, level := range sectionLevels {
		headings := root.Find(level)
		if headings.Length() < 2 {
			continue
		}

		var sections []Section
		headings.Each(func(_ int, h *goquery.Selection) {
			title := cleanHeading(h.Text())
			if title == "" {
				return
			}

			var parts []string
			h.NextUntil(level).Each(func(_ int, s *goquery.Selection) {
				if text := normalizeSpace(s.Text()); text != "" {
					parts = append(parts, text)
				}
			})

			anchor, _ := h.Attr("id")
			sections = append(sections, Section{
				Title:  title,
				Body:   strings.Join(parts, " "),
				Anchor: anchor,
			})
		})

		if len(sections) >= 2 {
			return sections
		}
	}
	return nil
}

// documentCandidates turns one parsed document into candidates, expanding
// it into sections when the expand mode allows.
func documentCandidates(doc *goquery.Document, docURL string, req scanner.Request, rollups RollupDetector) []domain.Candidate {
	title := documentTitle(doc, req.Option("titleSelector", defaultTitleSelector))
	root := contentRoot(doc, req.Option("contentSelector", defaultContentSelector))
	published := publishedAt(doc)
	author := normalizeSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))

	if shouldExpand(req.Option("expand", expandRollup), title, rollups) {
		if sections := ExtractSections(root); len(sections) > 0 {
			out := make([]domain.Candidate, 0, len(sections))
			for _, s := range sections {
				link := docURL
				if s.Anchor != "" {
					link = docURL + "#" + s.Anchor
				}
				out = append(out, domain.Candidate{
					Title:       s.Title,
					Description: domain.TruncateDescription(s.Body),
					Source:      req.SourceName,
					URL:         link,
					PublishedAt: published,
					Author:      author,
					Expanded:    true,
					Parent:      title,
				})
			}
			return out
		}
	}

	if title == "" {
		return nil
	}

	description := normalizeSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if body := normalizeSpace(root.Text()); len(body) > len(description) {
		description = body
	}

	return []domain.Candidate{{
		Title:       title,
		Description: domain.TruncateDescription(description),
		Source:      req.SourceName,
		URL:         docURL,
		PublishedAt: published,
		Author:      author,
	}}
}

func shouldExpand(mode, title string, rollups RollupDetector) bool {
	switch mode {
	case expandAlways:
		return true
	case expandNever:
		return false
	default:
		return rollups != nil && rollups.IsRollup(title)
	}
}

func documentTitle(doc *goquery.Document, selector string) string {
	if title := normalizeSpace(doc.Find(selector).First().Text()); title != "" {
		return title
	}
	if title := normalizeSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); title != "" {
		return title
	}
	return normalizeSpace(doc.Find("title").First().Text())
}

func contentRoot(doc *goquery.Document, selector string) *goquery.Selection {
	if root := doc.Find(selector).First(); root.Length() > 0 {
		return root
	}
	return doc.Find("body").First()
}

func publishedAt(doc *goquery.Document) *time.Time {
	candidates := []string{
		doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// collectLinks returns up to limit distinct absolute links matching pattern,
// in document order.
func collectLinks(doc *goquery.Document, base *url.URL, pattern *regexp.Regexp, limit int) []string {
	var links []string
	seen := map[string]struct{}{}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		link := abs.String()

		if !pattern.MatchString(link) {
			return true
		}
		if _, ok := seen[link]; ok {
			return true
		}
		seen[link] = struct{}{}
		links = append(links, link)
		return limit <= 0 || len(links) < limit
	})

	return links
}

// flattenHTML returns the visible text of an HTML fragment.
func flattenHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return normalizeSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeSpace(fragment)
	}
	return normalizeSpace(doc.Text())
}

func cleanHeading(text string) string {
	return normalizeSpace(numberingExpr.ReplaceAllString(normalizeSpace(text), ""))
}

func normalizeSpace(text string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}
