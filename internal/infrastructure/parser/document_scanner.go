package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
)

// DocumentScanner fetches static HTML documents. With a linkPattern option
// each URL is treated as a listing whose matching links are the documents.
type DocumentScanner struct {
	fetcher ports.Fetcher
	rollups RollupDetector
	logger  *slog.Logger
}

var _ scanner.Scanner = (*DocumentScanner)(nil)

// NewDocumentScanner wires the fetcher used for listings and documents.
func NewDocumentScanner(fetcher ports.Fetcher, rollups RollupDetector, logger *slog.Logger) *DocumentScanner {
	return &DocumentScanner{fetcher: fetcher, rollups: rollups, logger: logger}
}

// Name identifies the strategy inside the registry.
func (d *DocumentScanner) Name() string {
	return "document"
}

// Scan walks every configured URL and extracts candidates from each document.
func (d *DocumentScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("no urls provided for source %s", req.SourceName)
	}

	pattern, limit, err := listingOptions(req)
	if err != nil {
		return nil, err
	}

	var (
		results []domain.Candidate
		errs    []error
	)
	for _, pageURL := range req.URLs {
		doc, err := d.load(ctx, pageURL)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if pattern == nil {
			results = append(results, documentCandidates(doc, pageURL, req, d.rollups)...)
			continue
		}

		base, err := url.Parse(pageURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid listing url %s: %w", pageURL, err))
			continue
		}
		links := collectLinks(doc, base, pattern, limit)
		d.debug("listing links", "source", req.SourceName, "url", pageURL, "links", len(links))

		for _, link := range links {
			child, err := d.load(ctx, link)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, documentCandidates(child, link, req, d.rollups)...)
		}
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		d.warn("document skipped", "source", req.SourceName, "error", err)
	}
	return results, nil
}

func (d *DocumentScanner) load(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := d.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", pageURL, err)
	}
	return doc, nil
}

// listingOptions reads linkPattern and maxDocuments; a nil pattern means
// the URLs are documents themselves.
func listingOptions(req scanner.Request) (*regexp.Regexp, int, error) {
	limit := defaultMaxDocuments
	if raw := req.Option("maxDocuments", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("source %s: invalid maxDocuments %q: %w", req.SourceName, raw, err)
		}
		limit = n
	}

	raw := req.Option("linkPattern", "")
	if raw == "" {
		return nil, limit, nil
	}
	pattern, err := regexp.Compile(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("source %s: invalid linkPattern: %w", req.SourceName, err)
	}
	return pattern, limit, nil
}

func (d *DocumentScanner) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *DocumentScanner) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
