package domain

import (
	"sort"
	"time"
)

// MaxDescriptionLength bounds candidate descriptions, in runes.
const MaxDescriptionLength = 1000

// Status is the lifecycle stage an announcement reports.
type Status string

const (
	StatusPublicBeta  Status = "public beta"
	StatusPrivateBeta Status = "private beta"
	StatusLive        Status = "now live"
	StatusSunset      Status = "sunset"
	// StatusUpdate is the fallback when no specific keyword matched.
	StatusUpdate Status = "update"
)

// Category is a product area label.
type Category string

// CategoryUncategorized is the placeholder assigned when no category matched.
const CategoryUncategorized Category = "uncategorized"

// Candidate is a record extracted from a source during one scan.
type Candidate struct {
	Key         string
	Title       string
	Description string
	Status      Status
	Categories  []Category
	Source      string
	URL         string
	PublishedAt *time.Time
	Author      string

	// Tentative marks a status taken from a weak signal, such as "Beta"
	// in a product name. It labels new items only.
	Tentative bool

	// Expanded marks candidates produced by splitting a rollup document.
	Expanded bool
	Parent   string
}

// StatusEntry is one element of an item's status history.
type StatusEntry struct {
	Status         Status    `json:"status"`
	At             time.Time `json:"at"`
	Source         string    `json:"source"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
}

// TrackedItem is the persistent record of an item's observed lifecycle.
type TrackedItem struct {
	Key         string        `json:"key"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Categories  []Category    `json:"categories"`
	URL         string        `json:"url,omitempty"`
	FirstSeen   time.Time     `json:"firstSeen"`
	LastSeen    time.Time     `json:"lastSeen"`
	History     []StatusEntry `json:"history"`
	Sources     []string      `json:"sources"`
}

// StoreState is the whole persisted item store.
type StoreState struct {
	Items     map[string]*TrackedItem `json:"items"`
	LastScan  time.Time               `json:"lastScan"`
	ScanCount int                     `json:"scanCount"`
}

// NewStoreState returns an empty store.
func NewStoreState() StoreState {
	return StoreState{Items: map[string]*TrackedItem{}}
}

// SortedKeys returns item keys in lexical order.
func (s StoreState) SortedKeys() []string {
	keys := make([]string, 0, len(s.Items))
	for k := range s.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TruncateDescription cuts text to MaxDescriptionLength runes.
func TruncateDescription(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxDescriptionLength {
		return text
	}
	return string(runes[:MaxDescriptionLength])
}
