package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/classifier"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/dedup"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/filter"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/merge"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

// ErrPersist marks scans whose results could not be loaded or written.
var ErrPersist = errors.New("persist scan results")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources     []ports.CandidateSource
	Filter      *filter.Filter
	Classifier  *classifier.Classifier
	Engine      *merge.Engine
	Store       ports.ItemStore
	History     ports.HistoryLog
	Notifier    ports.Notifier
	Logger      *slog.Logger
	MaxParallel int
	Now         func() time.Time
	NewID       func() string
}

// Pipeline implements the scan workflow: collect candidates from every
// source, filter and classify them, deduplicate, merge into the store and
// record what changed.
type Pipeline struct {
	sources     []ports.CandidateSource
	filter      *filter.Filter
	classifier  *classifier.Classifier
	engine      *merge.Engine
	store       ports.ItemStore
	history     ports.HistoryLog
	notifier    ports.Notifier
	logger      *slog.Logger
	maxParallel int
	now         func() time.Time
	newID       func() string

	mu sync.Mutex
}

// NewPipeline constructs the orchestration component. Missing filter,
// classifier or engine fall back to the built-in rules.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		sources:     deps.Sources,
		filter:      deps.Filter,
		classifier:  deps.Classifier,
		engine:      deps.Engine,
		store:       deps.Store,
		history:     deps.History,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		maxParallel: deps.MaxParallel,
		now:         deps.Now,
		newID:       deps.NewID,
	}
	if p.filter == nil {
		p.filter = filter.New(filter.DefaultRules())
	}
	if p.classifier == nil {
		p.classifier = classifier.New(classifier.DefaultRules())
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.engine == nil {
		p.engine = merge.New(p.classifier.Fallback(), p.classifier.Placeholder(), p.now)
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

type sourceResult struct {
	stats      domain.SourceStats
	candidates []domain.Candidate
}

// RunScan executes one full scan. Scans never overlap: a second caller
// waits for the running scan to finish. Source failures only show up in
// the per-source stats; a store failure aborts the scan with ErrPersist.
func (p *Pipeline) RunScan(ctx context.Context) (domain.ScanReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil || p.history == nil {
		return domain.ScanReport{}, fmt.Errorf("%w: store is not configured", ErrPersist)
	}

	report := domain.ScanReport{
		ScanID:    p.newID(),
		StartedAt: p.now(),
		Sources:   []domain.SourceStats{},
	}
	p.info("scan started", "scan_id", report.ScanID, "sources", len(p.sources))

	var accepted []domain.Candidate
	for _, res := range p.collect(ctx) {
		stats := res.stats
		for _, c := range res.candidates {
			if verdict := p.filter.Evaluate(c.Title, c.Expanded); verdict != filter.Valid {
				stats.Rejected++
				p.debug("candidate rejected", "source", stats.Name, "title", c.Title, "verdict", verdict)
				continue
			}

			c.Key = domain.IdentityKey(c.Title)
			if c.Key == "" {
				stats.Rejected++
				continue
			}
			c.Description = domain.TruncateDescription(c.Description)
			c.Status, c.Tentative, c.Categories = p.classifier.Match(c.Title, c.Description)
			if c.Source == "" {
				c.Source = stats.Name
			}

			stats.Accepted++
			accepted = append(accepted, c)
		}

		if stats.Candidates == 0 {
			report.EmptySources++
			p.warn("source returned no candidates", "source", stats.Name, "error", stats.Error)
		}
		report.Sources = append(report.Sources, stats)
	}

	batch := dedup.Deduplicate(accepted)
	report.DuplicatesDropped = len(accepted) - len(batch)

	state, err := p.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: load store: %w", ErrPersist, err)
	}

	report.Changes = p.engine.Merge(&state, batch)
	report.ScanNumber = state.ScanCount

	report.CompletedAt = p.now()
	if report.CompletedAt.Before(report.StartedAt) {
		report.CompletedAt = report.StartedAt
	}

	// History goes first: if it fails the store stays untouched and the
	// next scan reports the same changes again.
	if err := p.history.Append(ctx, report.Snapshot()); err != nil {
		return report, fmt.Errorf("%w: append history: %w", ErrPersist, err)
	}
	if err := p.store.Save(ctx, state); err != nil {
		return report, fmt.Errorf("%w: save store: %w", ErrPersist, err)
	}

	p.info("scan completed",
		"scan_id", report.ScanID,
		"scan_number", report.ScanNumber,
		"candidates", len(accepted),
		"new", len(report.Changes.New),
		"status_changes", len(report.Changes.StatusChanges),
		"updated", len(report.Changes.Updated),
		"empty_sources", report.EmptySources,
	)

	if p.notifier != nil && !report.Changes.Empty() {
		if err := p.notifier.PublishDigest(ctx, BuildDigest(report)); err != nil {
			p.warn("publish digest", "scan_id", report.ScanID, "error", err)
		}
	}

	return report, nil
}

// Items returns the whole item store.
func (p *Pipeline) Items(ctx context.Context) (domain.StoreState, error) {
	if p.store == nil {
		return domain.NewStoreState(), nil
	}
	state, err := p.store.Load(ctx)
	if err != nil {
		return state, fmt.Errorf("load items: %w", err)
	}
	return state, nil
}

// History returns the snapshots recorded on day.
func (p *Pipeline) History(ctx context.Context, day time.Time) ([]domain.HistorySnapshot, error) {
	if p.history == nil {
		return []domain.HistorySnapshot{}, nil
	}
	entries, err := p.history.Day(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// collect runs every source concurrently and waits for all of them. A
// failing source yields an empty slot and never cancels its siblings.
func (p *Pipeline) collect(ctx context.Context) []sourceResult {
	results := make([]sourceResult, len(p.sources))

	var g errgroup.Group
	if p.maxParallel > 0 {
		g.SetLimit(p.maxParallel)
	}

	for i, src := range p.sources {
		i, src := i, src
		g.Go(func() error {
			res := sourceResult{stats: domain.SourceStats{Name: src.Name(), Kind: src.Kind()}}
			started := time.Now()

			candidates, err := src.FetchCandidates(ctx)
			if err != nil {
				res.stats.Error = err.Error()
				p.warn("source failed", "source", res.stats.Name, "error", err)
			}
			res.candidates = candidates
			res.stats.Candidates = len(candidates)
			p.debug("source collected", "source", res.stats.Name, "candidates", len(candidates), "elapsed", time.Since(started))

			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BuildDigest renders a plain-text summary of a scan for chat delivery.
func BuildDigest(report domain.ScanReport) string {
	var b strings.Builder
	changes := report.Changes

	fmt.Fprintf(&b, "Scan #%d: %d new, %d status changes, %d updated\n",
		report.ScanNumber, len(changes.New), len(changes.StatusChanges), len(changes.Updated))

	if len(changes.New) > 0 {
		b.WriteString("\nNew\n")
		for _, item := range changes.New {
			fmt.Fprintf(&b, "- %s [%s]\n", item.Title, item.Status)
			if item.URL != "" {
				fmt.Fprintf(&b, "  %s\n", item.URL)
			}
		}
	}

	if len(changes.StatusChanges) > 0 {
		b.WriteString("\nStatus changes\n")
		for _, sc := range changes.StatusChanges {
			fmt.Fprintf(&b, "- %s: %s -> %s\n", sc.Title, sc.From, sc.To)
		}
	}

	if len(changes.Updated) > 0 {
		b.WriteString("\nUpdated\n")
		for _, u := range changes.Updated {
			fmt.Fprintf(&b, "- %s (+%d chars)\n", u.Title, u.Length-u.PreviousLength)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
