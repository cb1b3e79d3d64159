package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Window describes one planned time slice of an episode.
type Window struct {
	Index        int
	StartSeconds int
	EndSeconds   int
}

// SegmentPlan is the result of the first summarization pass: a draft
// whole-episode summary plus a topic per planned window.
type SegmentPlan struct {
	OverallSummary string
	Topics         []string
}

// SegmentDetail is the result of elaborating a single window.
type SegmentDetail struct {
	Summary   string
	Quotes    []string
	KeyPoints []string
}

// FinalSummary is the polished output of the last pass.
type FinalSummary struct {
	Overview string
	Insights []string
}

// Segment drafts the overall summary and assigns a topic to each window.
func (c *Client) Segment(ctx context.Context, transcript string, windows []Window) (SegmentPlan, error) {
	var empty SegmentPlan
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return empty, errors.New("llm segment: transcript required")
	}
	if len(windows) == 0 {
		return empty, errors.New("llm segment: windows required")
	}

	var builder strings.Builder
	builder.WriteString("Time windows:\n")
	for _, window := range windows {
		fmt.Fprintf(&builder, "- index %d: %s to %s\n", window.Index, formatClock(window.StartSeconds), formatClock(window.EndSeconds))
	}
	builder.WriteString("\nTranscript:\n")
	builder.WriteString(transcript)

	content, err := c.CompleteJSON(ctx, segmentPrompt, builder.String())
	if err != nil {
		return empty, err
	}

	var parsed struct {
		OverallSummary string `json:"overall_summary"`
		Segments       []struct {
			Index int    `json:"index"`
			Topic string `json:"topic"`
		} `json:"segments"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("llm segment: parse payload: %w", err)
	}

	plan := SegmentPlan{
		OverallSummary: strings.TrimSpace(parsed.OverallSummary),
		Topics:         make([]string, len(windows)),
	}
	for _, segment := range parsed.Segments {
		if segment.Index >= 0 && segment.Index < len(plan.Topics) {
			plan.Topics[segment.Index] = strings.TrimSpace(segment.Topic)
		}
	}
	if plan.OverallSummary == "" {
		return empty, errors.New("llm segment: empty overall summary")
	}
	return plan, nil
}

// Elaborate expands one window's transcript into a detailed note.
func (c *Client) Elaborate(ctx context.Context, topic, transcript string) (SegmentDetail, error) {
	var empty SegmentDetail
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return empty, errors.New("llm elaborate: transcript required")
	}

	var builder strings.Builder
	if topic = strings.TrimSpace(topic); topic != "" {
		builder.WriteString("Topic: ")
		builder.WriteString(topic)
		builder.WriteString("\n\n")
	}
	builder.WriteString("Segment transcript:\n")
	builder.WriteString(transcript)

	content, err := c.CompleteJSON(ctx, elaboratePrompt, builder.String())
	if err != nil {
		return empty, err
	}

	var parsed struct {
		Summary   string   `json:"summary"`
		Quotes    []string `json:"quotes"`
		KeyPoints []string `json:"key_points"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("llm elaborate: parse payload: %w", err)
	}

	detail := SegmentDetail{
		Summary:   strings.TrimSpace(parsed.Summary),
		Quotes:    trimAll(parsed.Quotes),
		KeyPoints: trimAll(parsed.KeyPoints),
	}
	if detail.Summary == "" {
		return empty, errors.New("llm elaborate: empty summary")
	}
	return detail, nil
}

// Finalize polishes the overview and distills the requested number of insights.
func (c *Client) Finalize(ctx context.Context, draftSummary string, segmentSummaries []string, targetInsights int) (FinalSummary, error) {
	var empty FinalSummary
	draftSummary = strings.TrimSpace(draftSummary)
	if draftSummary == "" {
		return empty, errors.New("llm finalize: draft summary required")
	}
	if targetInsights <= 0 {
		targetInsights = 6
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Produce %d insights.\n\nDraft overall summary:\n%s\n", targetInsights, draftSummary)
	if len(segmentSummaries) > 0 {
		builder.WriteString("\nSegment notes:\n")
		for i, summary := range segmentSummaries {
			fmt.Fprintf(&builder, "%d. %s\n", i+1, strings.TrimSpace(summary))
		}
	}

	content, err := c.CompleteJSON(ctx, finalizePrompt, builder.String())
	if err != nil {
		return empty, err
	}

	var parsed struct {
		Overview string   `json:"overview"`
		Insights []string `json:"insights"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("llm finalize: parse payload: %w", err)
	}

	final := FinalSummary{
		Overview: strings.TrimSpace(parsed.Overview),
		Insights: trimAll(parsed.Insights),
	}
	if final.Overview == "" {
		return empty, errors.New("llm finalize: empty overview")
	}
	return final, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
