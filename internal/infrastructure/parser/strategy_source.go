package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/config"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
)

// StrategySource binds config-defined sources to registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Sources resolves every enabled source into a CandidateSource.
func (s *StrategySource) Sources() ([]ports.CandidateSource, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	bound := make([]ports.CandidateSource, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Disabled {
			s.debug("source disabled", "source", src.Name)
			continue
		}
		strategy, err := s.registry.Resolve(src.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		bound = append(bound, &boundSource{
			strategy: strategy,
			kind:     src.Kind,
			req: scanner.Request{
				SourceName: src.Name,
				URLs:       src.URLs,
				Options:    src.Options,
			},
		})
	}

	s.debug("sources bound", "count", len(bound))
	return bound, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// boundSource is one configured source paired with its strategy.
type boundSource struct {
	strategy scanner.Scanner
	kind     string
	req      scanner.Request
}

var _ ports.CandidateSource = (*boundSource)(nil)

func (b *boundSource) Name() string { return b.req.SourceName }

func (b *boundSource) Kind() string { return b.kind }

// FetchCandidates runs the strategy and tags untagged candidates with the
// source name.
func (b *boundSource) FetchCandidates(ctx context.Context) ([]domain.Candidate, error) {
	results, err := b.strategy.Scan(ctx, b.req)
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", b.req.SourceName, err)
	}
	for i := range results {
		if results[i].Source == "" {
			results[i].Source = b.req.SourceName
		}
	}
	return results, nil
}
