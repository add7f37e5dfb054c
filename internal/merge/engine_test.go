package merge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEngine() (*Engine, *clock) {
	c := &clock{t: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)}
	return New(domain.StatusUpdate, domain.CategoryUncategorized, c.now), c
}

func cand(title, desc string, status domain.Status, source string, cats ...domain.Category) domain.Candidate {
	if len(cats) == 0 {
		cats = []domain.Category{domain.CategoryUncategorized}
	}
	return domain.Candidate{
		Key:         domain.IdentityKey(title),
		Title:       title,
		Description: desc,
		Status:      status,
		Categories:  cats,
		Source:      source,
		URL:         "https://example.com/" + domain.IdentityKey(title),
	}
}

func TestMergeLifecycleScenario(t *testing.T) {
	engine, clk := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("New Sequence Automation Beta")

	// Absent -> tracked.
	changes := engine.Merge(&state, []domain.Candidate{
		cand("New Sequence Automation Beta", "Short.", domain.StatusPublicBeta, "feed", "sales"),
	})
	require.Len(t, changes.New, 1)
	assert.Empty(t, changes.StatusChanges)
	assert.Empty(t, changes.Updated)

	item := state.Items[key]
	require.NotNil(t, item)
	assert.Equal(t, domain.StatusPublicBeta, item.Status)
	require.Len(t, item.History, 1)
	assert.Equal(t, domain.StatusPublicBeta, item.History[0].Status)
	assert.Equal(t, "feed", item.History[0].Source)
	assert.Equal(t, 1, state.ScanCount)

	// Transition to live.
	clk.advance(24 * time.Hour)
	changes = engine.Merge(&state, []domain.Candidate{
		cand("New Sequence Automation Beta", "Short.", domain.StatusLive, "docs", "sales"),
	})
	require.Len(t, changes.StatusChanges, 1)
	assert.Equal(t, domain.StatusPublicBeta, changes.StatusChanges[0].From)
	assert.Equal(t, domain.StatusLive, changes.StatusChanges[0].To)
	assert.Equal(t, "docs", changes.StatusChanges[0].Source)
	require.Len(t, item.History, 2)
	assert.Equal(t, domain.StatusPublicBeta, item.History[1].PreviousStatus)
	assert.Equal(t, domain.StatusLive, item.Status)
	assert.Equal(t, []string{"docs", "feed"}, item.Sources)

	// Fallback status with a longer description.
	clk.advance(24 * time.Hour)
	longer := "Sequences can now be automated from workflows across every portal."
	changes = engine.Merge(&state, []domain.Candidate{
		cand("New Sequence Automation Beta", longer, domain.StatusUpdate, "feed", "sales"),
	})
	assert.Empty(t, changes.New)
	assert.Empty(t, changes.StatusChanges)
	require.Len(t, changes.Updated, 1)
	assert.Equal(t, len("Short."), changes.Updated[0].PreviousLength)
	assert.Len(t, item.History, 2)
	assert.Equal(t, domain.StatusLive, item.Status)
	assert.Equal(t, longer, item.Description)
	assert.Equal(t, clk.t, item.LastSeen)
	assert.Equal(t, 3, state.ScanCount)
	assert.Equal(t, clk.t, state.LastScan)
}

func TestMergeUnchangedBatchIsNoOp(t *testing.T) {
	engine, clk := newEngine()
	state := domain.NewStoreState()
	batch := []domain.Candidate{
		cand("Custom Objects Now Live", "Custom objects for all tiers.", domain.StatusLive, "feed", "crm"),
		cand("Breeze Agents Beta", "Agents that act on records.", domain.StatusPublicBeta, "docs", "ai", "crm"),
	}

	engine.Merge(&state, batch)
	before := map[string]domain.TrackedItem{}
	for k, v := range state.Items {
		before[k] = *v
	}

	clk.advance(time.Hour)
	changes := engine.Merge(&state, batch)
	assert.True(t, changes.Empty())

	for k, after := range state.Items {
		prev := before[k]
		assert.Equal(t, prev.History, after.History)
		assert.Equal(t, prev.Description, after.Description)
		assert.Equal(t, prev.Categories, after.Categories)
		assert.Equal(t, prev.Status, after.Status)
		assert.Equal(t, prev.FirstSeen, after.FirstSeen)
		assert.Equal(t, clk.t, after.LastSeen)
	}
}

func TestMergeShorterDescriptionIsKept(t *testing.T) {
	engine, _ := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Smart Properties Beta")

	engine.Merge(&state, []domain.Candidate{cand("Smart Properties Beta", strings.Repeat("x", 80), domain.StatusPublicBeta, "a")})
	changes := engine.Merge(&state, []domain.Candidate{cand("Smart Properties Beta", "tiny", domain.StatusPublicBeta, "b")})

	assert.Empty(t, changes.Updated)
	assert.Len(t, state.Items[key].Description, 80)
}

func TestMergePlaceholderNeverReturns(t *testing.T) {
	engine, _ := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Mystery Feature Beta")

	engine.Merge(&state, []domain.Candidate{cand("Mystery Feature Beta", "a", domain.StatusPublicBeta, "a")})
	assert.Equal(t, []domain.Category{domain.CategoryUncategorized}, state.Items[key].Categories)

	engine.Merge(&state, []domain.Candidate{cand("Mystery Feature Beta", "a", domain.StatusPublicBeta, "a", "reporting")})
	assert.Equal(t, []domain.Category{"reporting"}, state.Items[key].Categories)

	engine.Merge(&state, []domain.Candidate{cand("Mystery Feature Beta", "a", domain.StatusPublicBeta, "a")})
	assert.Equal(t, []domain.Category{"reporting"}, state.Items[key].Categories)

	engine.Merge(&state, []domain.Candidate{cand("Mystery Feature Beta", "a", domain.StatusPublicBeta, "a", "ai", "reporting")})
	assert.Equal(t, []domain.Category{"reporting", "ai"}, state.Items[key].Categories)
}

func TestMergeFallbackNeverTransitions(t *testing.T) {
	engine, _ := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Payments Private Beta")

	engine.Merge(&state, []domain.Candidate{cand("Payments Private Beta", "a", domain.StatusPrivateBeta, "a")})
	changes := engine.Merge(&state, []domain.Candidate{cand("Payments Private Beta", "a", domain.StatusUpdate, "a")})

	assert.Empty(t, changes.StatusChanges)
	assert.Equal(t, domain.StatusPrivateBeta, state.Items[key].Status)
	assert.Len(t, state.Items[key].History, 1)
}

func TestMergeTentativeStatusNeverTransitions(t *testing.T) {
	engine, _ := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Sequences Beta")

	engine.Merge(&state, []domain.Candidate{cand("Sequences Beta", "a", domain.StatusLive, "a")})

	weak := cand("Sequences Beta", "a", domain.StatusPublicBeta, "a")
	weak.Tentative = true
	changes := engine.Merge(&state, []domain.Candidate{weak})

	assert.Empty(t, changes.StatusChanges)
	assert.Equal(t, domain.StatusLive, state.Items[key].Status)
	assert.Len(t, state.Items[key].History, 1)

	// A tentative status still labels a new item.
	fresh := cand("Forecasting Beta", "a", domain.StatusPublicBeta, "a")
	fresh.Tentative = true
	changes = engine.Merge(&state, []domain.Candidate{fresh})
	require.Len(t, changes.New, 1)
	assert.Equal(t, domain.StatusPublicBeta, state.Items[domain.IdentityKey("Forecasting Beta")].Status)
}

func TestMergeNewItemWithFallbackCanUpgrade(t *testing.T) {
	engine, _ := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Improved Inbox Routing")

	engine.Merge(&state, []domain.Candidate{cand("Improved Inbox Routing", "a", domain.StatusUpdate, "a")})
	changes := engine.Merge(&state, []domain.Candidate{cand("Improved Inbox Routing", "a", domain.StatusLive, "a")})

	require.Len(t, changes.StatusChanges, 1)
	assert.Equal(t, domain.StatusUpdate, changes.StatusChanges[0].From)
	assert.Len(t, state.Items[key].History, 2)
}

func TestMergeHistoryTimestampsNeverDecrease(t *testing.T) {
	engine, clk := newEngine()
	state := domain.NewStoreState()
	key := domain.IdentityKey("Quote Templates Beta")

	engine.Merge(&state, []domain.Candidate{cand("Quote Templates Beta", "a", domain.StatusPublicBeta, "a")})
	clk.advance(-2 * time.Hour)
	engine.Merge(&state, []domain.Candidate{cand("Quote Templates Beta", "a", domain.StatusLive, "a")})

	history := state.Items[key].History
	require.Len(t, history, 2)
	assert.False(t, history[1].At.Before(history[0].At))
}

func TestMergeEmptyBatchAdvancesScan(t *testing.T) {
	engine, _ := newEngine()
	state := domain.StoreState{}

	changes := engine.Merge(&state, nil)
	assert.True(t, changes.Empty())
	assert.NotNil(t, state.Items)
	assert.Equal(t, 1, state.ScanCount)
	assert.False(t, state.LastScan.IsZero())
}
