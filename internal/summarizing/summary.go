package summarizing

// SegmentNote is the summarized content of one time window.
type SegmentNote struct {
	Index        int      `json:"index"`
	Topic        string   `json:"topic"`
	StartSeconds int      `json:"start_seconds"`
	EndSeconds   int      `json:"end_seconds"`
	Summary      string   `json:"summary"`
	Quotes       []string `json:"quotes,omitempty"`
	KeyPoints    []string `json:"key_points,omitempty"`
}

// Summary is the stage output persisted on the episode.
type Summary struct {
	Overview string        `json:"overview"`
	Insights []string      `json:"insights,omitempty"`
	Segments []SegmentNote `json:"segments,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
}
