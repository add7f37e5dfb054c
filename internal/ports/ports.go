package ports

import (
	"context"
	"time"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

// Fetcher retrieves raw text content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CandidateSource produces candidate records from one configured source.
type CandidateSource interface {
	Name() string
	Kind() string
	FetchCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// ItemStore persists the tracked item map and scan metadata.
type ItemStore interface {
	Load(ctx context.Context) (domain.StoreState, error)
	Save(ctx context.Context, state domain.StoreState) error
}

// HistoryLog keeps the append-only per-day record of change sets.
type HistoryLog interface {
	Append(ctx context.Context, snapshot domain.HistorySnapshot) error
	Day(ctx context.Context, day time.Time) ([]domain.HistorySnapshot, error)
}

// Notifier streams scan digests to chat channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when scans execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
