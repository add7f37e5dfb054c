package domain

import "time"

// ItemRef identifies an item inside a change set.
type ItemRef struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Status Status `json:"status"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// StatusChange records a lifecycle transition detected during a scan.
type StatusChange struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	From   Status `json:"from"`
	To     Status `json:"to"`
	Source string `json:"source"`
}

// DescriptionUpdate records a description replaced by a longer one.
type DescriptionUpdate struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	PreviousLength int    `json:"previousLength"`
	Length         int    `json:"length"`
	Source         string `json:"source"`
}

// ChangeSet is everything one scan changed in the store.
type ChangeSet struct {
	New           []ItemRef           `json:"new"`
	StatusChanges []StatusChange      `json:"statusChanges"`
	Updated       []DescriptionUpdate `json:"updated"`
}

// Empty reports whether the scan changed nothing visible.
func (c ChangeSet) Empty() bool {
	return len(c.New) == 0 && len(c.StatusChanges) == 0 && len(c.Updated) == 0
}

// SourceStats describes one source's contribution to a scan.
type SourceStats struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Candidates int    `json:"candidates"`
	Accepted   int    `json:"accepted"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

// ScanReport is returned by a completed scan.
type ScanReport struct {
	ScanID            string        `json:"scanId"`
	ScanNumber        int           `json:"scanNumber"`
	StartedAt         time.Time     `json:"startedAt"`
	CompletedAt       time.Time     `json:"completedAt"`
	Changes           ChangeSet     `json:"changes"`
	Sources           []SourceStats `json:"sources"`
	EmptySources      int           `json:"emptySources"`
	DuplicatesDropped int           `json:"duplicatesDropped"`
}

// HistorySnapshot is one history log entry appended after a scan.
type HistorySnapshot struct {
	ScanID      string        `json:"scanId"`
	ScanNumber  int           `json:"scanNumber"`
	CompletedAt time.Time     `json:"completedAt"`
	Changes     ChangeSet     `json:"changes"`
	Sources     []SourceStats `json:"sources,omitempty"`
}

// Snapshot converts a report into the form kept in the history log.
func (r ScanReport) Snapshot() HistorySnapshot {
	return HistorySnapshot{
		ScanID:      r.ScanID,
		ScanNumber:  r.ScanNumber,
		CompletedAt: r.CompletedAt,
		Changes:     r.Changes,
		Sources:     r.Sources,
	}
}
