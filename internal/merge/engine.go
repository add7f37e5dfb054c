// Package merge reconciles a deduplicated scan batch with the item store.
package merge

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

// Engine applies scan batches to a store state.
//
// Per identity:
//   - unknown key: a new item with one history entry;
//   - known key, same status, the fallback status or a tentative status:
//     only lastSeen, sources and categories move;
//   - known key, different non-fallback status: a history entry recording
//     the previous status is appended.
//
// Independently, a strictly longer description replaces the stored one.
type Engine struct {
	fallback    domain.Status
	placeholder domain.Category
	now         func() time.Time
}

// New builds an engine. A nil clock defaults to time.Now in UTC.
func New(fallback domain.Status, placeholder domain.Category, now func() time.Time) *Engine {
	if fallback == "" {
		fallback = domain.StatusUpdate
	}
	if placeholder == "" {
		placeholder = domain.CategoryUncategorized
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{fallback: fallback, placeholder: placeholder, now: now}
}

// Merge mutates state with batch and returns what changed. The scan
// counter and last-scan time advance even when nothing changed.
func (e *Engine) Merge(state *domain.StoreState, batch []domain.Candidate) domain.ChangeSet {
	if state.Items == nil {
		state.Items = map[string]*domain.TrackedItem{}
	}

	now := e.now()
	changes := domain.ChangeSet{
		New:           []domain.ItemRef{},
		StatusChanges: []domain.StatusChange{},
		Updated:       []domain.DescriptionUpdate{},
	}

	for _, c := range batch {
		key := c.Key
		if key == "" {
			key = domain.IdentityKey(c.Title)
		}
		if key == "" {
			continue
		}

		item, ok := state.Items[key]
		if !ok {
			item = e.track(key, c, now)
			state.Items[key] = item
			changes.New = append(changes.New, domain.ItemRef{
				Key:    key,
				Title:  item.Title,
				Status: item.Status,
				Source: c.Source,
				URL:    item.URL,
			})
			continue
		}

		at := now
		if n := len(item.History); n > 0 && at.Before(item.History[n-1].At) {
			at = item.History[n-1].At
		}
		if at.After(item.LastSeen) {
			item.LastSeen = at
		}
		item.Sources = unionSources(item.Sources, c.Source)
		item.Categories = e.unionCategories(item.Categories, c.Categories)
		if item.URL == "" {
			item.URL = c.URL
		}

		if c.Status != "" && c.Status != e.fallback && !c.Tentative && c.Status != item.Status {
			changes.StatusChanges = append(changes.StatusChanges, domain.StatusChange{
				Key:    key,
				Title:  item.Title,
				From:   item.Status,
				To:     c.Status,
				Source: c.Source,
			})
			item.History = append(item.History, domain.StatusEntry{
				Status:         c.Status,
				At:             at,
				Source:         c.Source,
				PreviousStatus: item.Status,
			})
			item.Status = c.Status
		}

		prev := utf8.RuneCountInString(item.Description)
		if next := utf8.RuneCountInString(c.Description); next > prev {
			item.Description = c.Description
			if c.Title != "" {
				item.Title = c.Title
			}
			changes.Updated = append(changes.Updated, domain.DescriptionUpdate{
				Key:            key,
				Title:          item.Title,
				PreviousLength: prev,
				Length:         next,
				Source:         c.Source,
			})
		}
	}

	state.ScanCount++
	state.LastScan = now

	return changes
}

func (e *Engine) track(key string, c domain.Candidate, now time.Time) *domain.TrackedItem {
	status := c.Status
	if status == "" {
		status = e.fallback
	}
	return &domain.TrackedItem{
		Key:         key,
		Title:       c.Title,
		Description: c.Description,
		Status:      status,
		Categories:  e.unionCategories(nil, c.Categories),
		URL:         c.URL,
		FirstSeen:   now,
		LastSeen:    now,
		History: []domain.StatusEntry{
			{Status: status, At: now, Source: c.Source},
		},
		Sources: unionSources([]string{}, c.Source),
	}
}

// unionCategories never drops a category except the placeholder, which
// goes away as soon as a real category is present.
func (e *Engine) unionCategories(existing, incoming []domain.Category) []domain.Category {
	merged := make([]domain.Category, 0, len(existing)+len(incoming))
	seen := map[domain.Category]struct{}{}
	hasReal := false

	for _, list := range [][]domain.Category{existing, incoming} {
		for _, cat := range list {
			if cat == "" {
				continue
			}
			if _, ok := seen[cat]; ok {
				continue
			}
			seen[cat] = struct{}{}
			merged = append(merged, cat)
			if cat != e.placeholder {
				hasReal = true
			}
		}
	}

	if !hasReal {
		return []domain.Category{e.placeholder}
	}

	out := merged[:0]
	for _, cat := range merged {
		if cat != e.placeholder {
			out = append(out, cat)
		}
	}
	return out
}

func unionSources(existing []string, source string) []string {
	if source == "" {
		return existing
	}
	for _, s := range existing {
		if s == source {
			return existing
		}
	}
	out := append(append([]string{}, existing...), source)
	sort.Strings(out)
	return out
}
