package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
)

// Browser opens headless browsing sessions.
type Browser interface {
	Open(ctx context.Context) (BrowserSession, error)
}

// BrowserSession renders pages inside one browser tab. Close releases the
// tab and the browser process behind it.
type BrowserSession interface {
	Render(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// BrowserScanner handles sources that only render client side: it loads
// the listing page, follows links matching linkPattern and expands each
// visited document.
type BrowserScanner struct {
	browser Browser
	rollups RollupDetector
	logger  *slog.Logger
}

var _ scanner.Scanner = (*BrowserScanner)(nil)

// NewBrowserScanner wires the browser used for every scan.
func NewBrowserScanner(browser Browser, rollups RollupDetector, logger *slog.Logger) *BrowserScanner {
	return &BrowserScanner{browser: browser, rollups: rollups, logger: logger}
}

// Name identifies the strategy inside the registry.
func (b *BrowserScanner) Name() string {
	return "browser"
}

// Scan runs one browsing session for the whole request. The session is
// closed on every return path.
func (b *BrowserScanner) Scan(ctx context.Context, req scanner.Request) (results []domain.Candidate, err error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("no urls provided for source %s", req.SourceName)
	}
	if b.browser == nil {
		return nil, fmt.Errorf("source %s: browser is not configured", req.SourceName)
	}

	pattern, limit, err := listingOptions(req)
	if err != nil {
		return nil, err
	}

	session, err := b.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			b.warn("close browser session", "source", req.SourceName, "error", closeErr)
		}
	}()

	var errs []error
	for _, listingURL := range req.URLs {
		doc, err := b.render(ctx, session, listingURL)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if pattern == nil {
			results = append(results, documentCandidates(doc, listingURL, req, b.rollups)...)
			continue
		}

		base, err := url.Parse(listingURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid listing url %s: %w", listingURL, err))
			continue
		}
		links := collectLinks(doc, base, pattern, limit)
		b.debug("listing links", "source", req.SourceName, "url", listingURL, "links", len(links))

		for _, link := range links {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			child, err := b.render(ctx, session, link)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, documentCandidates(child, link, req, b.rollups)...)
		}
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, e := range errs {
		b.warn("page skipped", "source", req.SourceName, "error", e)
	}
	return results, nil
}

func (b *BrowserScanner) render(ctx context.Context, session BrowserSession, pageURL string) (*goquery.Document, error) {
	html, err := session.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered %s: %w", pageURL, err)
	}
	return doc, nil
}

func (b *BrowserScanner) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *BrowserScanner) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
