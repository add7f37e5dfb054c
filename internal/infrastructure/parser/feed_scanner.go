package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
)

// FeedScanner reads RSS/Atom feeds; each entry is one candidate. Entries
// whose title is a rollup are expanded from their HTML content.
type FeedScanner struct {
	fetcher ports.Fetcher
	rollups RollupDetector
	logger  *slog.Logger
}

var _ scanner.Scanner = (*FeedScanner)(nil)

// NewFeedScanner wires the fetcher used to download feeds.
func NewFeedScanner(fetcher ports.Fetcher, rollups RollupDetector, logger *slog.Logger) *FeedScanner {
	return &FeedScanner{fetcher: fetcher, rollups: rollups, logger: logger}
}

// Name identifies the strategy inside the registry.
func (f *FeedScanner) Name() string {
	return "feed"
}

// Scan downloads and parses every feed URL of the request.
func (f *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("no urls provided for source %s", req.SourceName)
	}

	var (
		results []domain.Candidate
		errs    []error
	)
	for _, feedURL := range req.URLs {
		body, err := f.fetcher.Fetch(ctx, feedURL)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		items, err := f.parse(body, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", feedURL, err))
			continue
		}
		f.debug("feed parsed", "source", req.SourceName, "url", feedURL, "candidates", len(items))
		results = append(results, items...)
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		f.warn("feed skipped", "source", req.SourceName, "error", err)
	}
	return results, nil
}

func (f *FeedScanner) parse(body string, req scanner.Request) ([]domain.Candidate, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []domain.Candidate
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := normalizeSpace(item.Title)
		if title == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		author := ""
		if item.Author != nil {
			author = normalizeSpace(item.Author.Name)
		}

		if f.rollups != nil && f.rollups.IsRollup(title) && strings.Contains(item.Content, "<") {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Content)); err == nil {
				if sections := ExtractSections(doc.Selection); len(sections) > 0 {
					for _, s := range sections {
						out = append(out, domain.Candidate{
							Title:       s.Title,
							Description: domain.TruncateDescription(s.Body),
							Source:      req.SourceName,
							URL:         item.Link,
							PublishedAt: published,
							Author:      author,
							Expanded:    true,
							Parent:      title,
						})
					}
					continue
				}
			}
		}

		description := flattenHTML(item.Description)
		if content := flattenHTML(item.Content); len(content) > len(description) {
			description = content
		}

		out = append(out, domain.Candidate{
			Title:       title,
			Description: domain.TruncateDescription(description),
			Source:      req.SourceName,
			URL:         item.Link,
			PublishedAt: published,
			Author:      author,
		})
	}

	return out, nil
}

func (f *FeedScanner) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *FeedScanner) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
