package summarizing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"log/slog"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services"
	"podnotes/internal/services/llm"
	"podnotes/internal/services/tingwu"
	"podnotes/internal/stage"
)

// SummaryService is the subset of the LLM client the stage needs.
type SummaryService interface {
	Segment(ctx context.Context, transcript string, windows []llm.Window) (llm.SegmentPlan, error)
	Elaborate(ctx context.Context, topic, transcript string) (llm.SegmentDetail, error)
	Finalize(ctx context.Context, draftSummary string, segmentSummaries []string, targetInsights int) (llm.FinalSummary, error)
}

// Summarizer runs the three-pass summarization over a transcript.
type Summarizer struct {
	store   *ledger.Store
	cfg     *config.Config
	logger  *slog.Logger
	service SummaryService
}

// NewSummarizer constructs the summarization stage handler using default dependencies.
func NewSummarizer(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Summarizer {
	shared := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         shared.APIKey,
		BaseURL:        shared.BaseURL,
		Model:          shared.Model,
		Referer:        shared.Referer,
		Title:          shared.Title,
		TimeoutSeconds: shared.TimeoutSeconds,
	})
	return NewSummarizerWithDependencies(cfg, store, logger, client)
}

// NewSummarizerWithDependencies allows injecting collaborators (used in tests).
func NewSummarizerWithDependencies(cfg *config.Config, store *ledger.Store, logger *slog.Logger, service SummaryService) *Summarizer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "summarizer"))
	}
	return &Summarizer{store: store, cfg: cfg, logger: stageLogger, service: service}
}

func (s *Summarizer) Prepare(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, s.logger)
	episode.ErrorMessage = ""
	logger.Info("starting summarization", logging.String("title", strings.TrimSpace(episode.Title)))
	return nil
}

func (s *Summarizer) Execute(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, s.logger)

	if strings.TrimSpace(episode.TranscriptJSON) == "" {
		return services.Wrap(
			services.ErrConfiguration, "summarizing", "validate inputs",
			"Episode has no transcript; transcription must run first", nil)
	}
	var transcript tingwu.Transcript
	if err := json.Unmarshal([]byte(episode.TranscriptJSON), &transcript); err != nil {
		return services.Wrap(
			services.ErrConfiguration, "summarizing", "decode transcript",
			"Stored transcript payload is unreadable", err)
	}
	if len(transcript.Sentences) == 0 {
		return services.Wrap(
			services.ErrConfiguration, "summarizing", "validate inputs",
			"Stored transcript contains no sentences", nil)
	}

	duration := episode.DurationSeconds
	if duration <= 0 {
		last := transcript.Sentences[len(transcript.Sentences)-1]
		duration = (last.EndMs + 999) / 1000
	}

	summary := s.summarize(ctx, logger, &transcript, duration)

	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	episode.SummaryJSON = string(encoded)
	episode.Degraded = summary.Degraded

	logger.Info(
		"summarization completed",
		logging.Int("segments", len(summary.Segments)),
		logging.Int("insights", len(summary.Insights)),
		logging.Bool("degraded", summary.Degraded),
	)
	return nil
}

func (s *Summarizer) summarize(ctx context.Context, logger *slog.Logger, transcript *tingwu.Transcript, duration int) Summary {
	windows := planWindows(duration, s.cfg.Summarize)
	fullText := transcriptText(transcript.Sentences, 0, duration)

	plan, err := s.service.Segment(ctx, fullText, windows)
	if err != nil {
		logger.Warn("segment pass failed, falling back to backend material", logging.Error(err))
		return fallbackSummary(transcript, duration)
	}

	degraded := false
	segments := make([]SegmentNote, 0, len(windows))
	summaries := make([]string, 0, len(windows))
	for _, window := range windows {
		topic := ""
		if window.Index < len(plan.Topics) {
			topic = plan.Topics[window.Index]
		}
		note := SegmentNote{
			Index:        window.Index,
			Topic:        topic,
			StartSeconds: window.StartSeconds,
			EndSeconds:   window.EndSeconds,
		}
		windowText := transcriptText(transcript.Sentences, window.StartSeconds, window.EndSeconds)
		if strings.TrimSpace(windowText) == "" {
			segments = append(segments, note)
			continue
		}
		detail, err := s.service.Elaborate(ctx, topic, windowText)
		if err != nil {
			logger.Warn(
				"elaborate pass failed for window",
				logging.Int("window", window.Index),
				logging.Error(err),
			)
			degraded = true
			segments = append(segments, note)
			continue
		}
		note.Summary = detail.Summary
		note.Quotes = detail.Quotes
		note.KeyPoints = detail.KeyPoints
		segments = append(segments, note)
		summaries = append(summaries, detail.Summary)
	}

	final, err := s.service.Finalize(ctx, plan.OverallSummary, summaries, s.cfg.Summarize.TargetInsights)
	if err != nil {
		logger.Warn("finalize pass failed, keeping draft overview", logging.Error(err))
		return Summary{
			Overview: plan.OverallSummary,
			Segments: segments,
			Degraded: true,
		}
	}

	return Summary{
		Overview: final.Overview,
		Insights: final.Insights,
		Segments: segments,
		Degraded: degraded,
	}
}

// fallbackSummary builds a best-effort summary from material the
// transcription backend already produced.
func fallbackSummary(transcript *tingwu.Transcript, duration int) Summary {
	summary := Summary{
		Overview: strings.TrimSpace(transcript.Summary),
		Degraded: true,
	}
	if len(transcript.Chapters) > 0 {
		for i, chapter := range transcript.Chapters {
			summary.Segments = append(summary.Segments, SegmentNote{
				Index:        i,
				Topic:        strings.TrimSpace(chapter.Title),
				StartSeconds: chapter.StartMs / 1000,
				EndSeconds:   (chapter.EndMs + 999) / 1000,
				Summary:      strings.TrimSpace(chapter.Summary),
			})
		}
		return summary
	}
	summary.Segments = []SegmentNote{{Index: 0, StartSeconds: 0, EndSeconds: duration}}
	return summary
}

// planWindows slices the episode into evenly sized time windows. Short
// episodes still get the configured minimum so the planning pass has
// something to assign topics to.
func planWindows(duration int, cfg config.Summarize) []llm.Window {
	segmentSeconds := cfg.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = 720
	}
	minSegments := cfg.MinSegments
	if minSegments <= 0 {
		minSegments = 1
	}
	if duration <= 0 {
		duration = segmentSeconds
	}

	count := (duration + segmentSeconds - 1) / segmentSeconds
	if count < minSegments {
		count = minSegments
	}

	windows := make([]llm.Window, count)
	for i := range windows {
		start := duration * i / count
		end := duration * (i + 1) / count
		windows[i] = llm.Window{Index: i, StartSeconds: start, EndSeconds: end}
	}
	return windows
}

func transcriptText(sentences []tingwu.Sentence, startSeconds, endSeconds int) string {
	var b strings.Builder
	startMs := startSeconds * 1000
	endMs := endSeconds * 1000
	for _, sentence := range sentences {
		if sentence.StartMs < startMs || (endMs > startMs && sentence.StartMs >= endMs) {
			continue
		}
		text := strings.TrimSpace(sentence.Text)
		if text == "" {
			continue
		}
		seconds := sentence.StartMs / 1000
		fmt.Fprintf(&b, "[%02d:%02d:%02d] 说话人%s：%s\n",
			seconds/3600, seconds%3600/60, seconds%60,
			strings.TrimSpace(sentence.SpeakerID), text)
	}
	return b.String()
}

// HealthCheck verifies summarization credentials are configured.
func (s *Summarizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "summarizer"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(s.cfg.GetLLM().APIKey) == "" {
		return stage.Unhealthy(name, "llm api key not configured")
	}
	if s.service == nil {
		return stage.Unhealthy(name, "llm client unavailable")
	}
	return stage.Healthy(name)
}
