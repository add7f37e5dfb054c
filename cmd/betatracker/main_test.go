package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestPrintReport(t *testing.T) {
	start := time.Date(2025, time.October, 6, 9, 0, 0, 0, time.UTC)
	report := domain.ScanReport{
		ScanID:      "abc",
		ScanNumber:  3,
		StartedAt:   start,
		CompletedAt: start.Add(1500 * time.Millisecond),
		Sources: []domain.SourceStats{
			{Name: "changelog", Kind: "feed", Candidates: 4, Accepted: 3, Rejected: 1},
			{Name: "community", Kind: "browser", Error: "render failed"},
		},
		EmptySources: 1,
		Changes: domain.ChangeSet{
			New:           []domain.ItemRef{{Title: "Breeze Agents Beta", Status: domain.StatusPublicBeta}},
			StatusChanges: []domain.StatusChange{{Title: "Custom Objects", From: domain.StatusPrivateBeta, To: domain.StatusLive}},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "=== Scan #3 (abc) ===")
	assert.Contains(t, out, "took 1.5s")
	assert.Contains(t, out, "render failed")
	assert.Contains(t, out, "1 source(s) returned nothing")
	assert.Contains(t, out, "+ Breeze Agents Beta [public beta]")
	assert.Contains(t, out, "~ Custom Objects: private beta -> now live")
}

func TestPrintReportNoChanges(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, domain.ScanReport{})
	assert.Contains(t, buf.String(), "No changes.")
}

func TestPrintItemsFiltersByStatus(t *testing.T) {
	seen := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	state := domain.NewStoreState()
	state.ScanCount = 2
	state.Items["a"] = &domain.TrackedItem{Title: "Breeze Agents Beta", Status: domain.StatusPublicBeta,
		Categories: []domain.Category{"ai"}, FirstSeen: seen, LastSeen: seen,
		History: []domain.StatusEntry{{Status: domain.StatusPublicBeta, At: seen}}}
	state.Items["b"] = &domain.TrackedItem{Title: "Custom Objects", Status: domain.StatusLive,
		Categories: []domain.Category{"crm"}, FirstSeen: seen, LastSeen: seen,
		History: []domain.StatusEntry{{Status: domain.StatusLive, At: seen}}}

	var buf bytes.Buffer
	printItems(&buf, state, domain.StatusLive)
	out := buf.String()

	assert.Contains(t, out, "Custom Objects (crm)")
	assert.NotContains(t, out, "Breeze")
	assert.Contains(t, out, "1 item(s), 2 scan(s), last scan never")
}

func TestPrintHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.Contains(t, buf.String(), "=== 2025-10-01 ===")
	assert.Contains(t, buf.String(), "No scans recorded.")
}
