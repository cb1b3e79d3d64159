// Package notes renders episode summaries into markdown documents and
// persists them to the note archive and optional mirror.
package notes

import (
	"time"
)

// Chapter is an auto-detected chapter carried into the note's outline table.
type Chapter struct {
	Title        string
	StartSeconds int
	EndSeconds   int
	Summary      string
}

// Segment is one elaborated slice of the episode.
type Segment struct {
	Index        int
	Topic        string
	StartSeconds int
	EndSeconds   int
	Summary      string
	Quotes       []string
	KeyPoints    []string
}

// TranscriptLine is one speaker-attributed utterance of the full transcript.
type TranscriptLine struct {
	Speaker      string
	StartSeconds int
	Text         string
}

// Draft holds everything the renderer needs to produce a note.
type Draft struct {
	Title           string
	PodcastName     string
	SourceURL       string
	AudioURL        string
	DurationSeconds int
	ProcessedAt     time.Time
	Keywords        []string

	Overview string
	Insights []string

	Chapters   []Chapter
	Segments   []Segment
	Transcript []TranscriptLine

	// Degraded is set when summarization fell back to placeholders; the note
	// says so instead of passing placeholder prose off as a summary.
	Degraded bool
}
