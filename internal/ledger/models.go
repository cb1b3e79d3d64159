package ledger

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an episode record.
type Status string

const (
	StatusDiscovered   Status = "discovered"
	StatusResolving    Status = "resolving"
	StatusResolved     Status = "resolved"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusSummarizing  Status = "summarizing"
	StatusSummarized   Status = "summarized"
	StatusRendering    Status = "rendering"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusResolving,
	StatusResolved,
	StatusTranscribing,
	StatusTranscribed,
	StatusSummarizing,
	StatusSummarized,
	StatusRendering,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusResolving:    {},
	StatusTranscribing: {},
	StatusSummarizing:  {},
	StatusRendering:    {},
}

// HealthSummary describes aggregated episode counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Discovered int
	Processing int
	Failed     int
	Done       int
}

// Episode represents a claimed episode persisted in SQLite.
type Episode struct {
	ID              int64
	Identity        string
	SourceRecordID  string
	URL             string
	Title           string
	PodcastName     string
	Status          Status
	AudioURL        string
	DurationSeconds int
	TaskID          string
	TranscriptJSON  string
	SummaryJSON     string
	NotePath        string
	MirrorPath      string
	Degraded        bool
	ErrorMessage    string
	FailedAt        *time.Time
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (e Episode) IsProcessing() bool {
	_, ok := processingStatuses[e.Status]
	return ok
}

// IsTerminal reports whether the status will never change again.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// SetFailed marks the episode as failed with the given error message.
// Failure is a terminal transition, so it stamps ProcessedAt as well.
func (e *Episode) SetFailed(message string) {
	now := time.Now().UTC()
	e.Status = StatusFailed
	e.ErrorMessage = message
	e.FailedAt = &now
	e.ProcessedAt = &now
}
