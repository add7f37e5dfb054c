package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

// ErrUnknownScanner is returned when a source names an unregistered kind.
var ErrUnknownScanner = errors.New("scanner is not registered")

// Request carries everything a strategy needs to scan one source.
type Request struct {
	SourceName string
	URLs       []string
	Options    map[string]string
}

// Option returns the named option or def when it is unset.
func (r Request) Option(name, def string) string {
	if v, ok := r.Options[name]; ok && v != "" {
		return v
	}
	return def
}

// Scanner is one extraction strategy (feed, document, browser).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Candidate, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownScanner)
}

// Names lists registered scanners in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
