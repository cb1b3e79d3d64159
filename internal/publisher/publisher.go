package publisher

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"log/slog"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/notes"
	"podnotes/internal/notifications"
	"podnotes/internal/services"
	"podnotes/internal/services/tingwu"
	"podnotes/internal/stage"
	"podnotes/internal/summarizing"
)

// Publisher renders and archives the finished note.
type Publisher struct {
	store    *ledger.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	clock    func() time.Time
}

// NewPublisher constructs the publishing stage handler using default dependencies.
func NewPublisher(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Publisher {
	return NewPublisherWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewPublisherWithDependencies allows injecting collaborators (used in tests).
func NewPublisherWithDependencies(cfg *config.Config, store *ledger.Store, logger *slog.Logger, notifier notifications.Service) *Publisher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "publisher"))
	}
	return &Publisher{store: store, cfg: cfg, logger: stageLogger, notifier: notifier, clock: time.Now}
}

func (p *Publisher) Prepare(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, p.logger)
	episode.ErrorMessage = ""
	logger.Info("starting note rendering", logging.String("title", strings.TrimSpace(episode.Title)))
	return nil
}

func (p *Publisher) Execute(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, p.logger)

	draft, err := p.buildDraft(episode)
	if err != nil {
		return err
	}

	content := notes.Render(draft)
	notePath := notes.TargetPath(p.cfg.Paths.NotesDir, draft.ProcessedAt, draft.Title)
	if err := notes.WriteArchive(notePath, content); err != nil {
		return services.Wrap(
			services.ErrRender, "rendering", "write archive",
			"Failed to write the note into the archive", err)
	}
	episode.NotePath = notePath
	processed := draft.ProcessedAt.UTC()
	episode.ProcessedAt = &processed

	if mirrorDir := strings.TrimSpace(p.cfg.Paths.MirrorDir); mirrorDir != "" {
		mirrorPath, err := notes.WriteMirror(mirrorDir, notePath, content)
		if err != nil {
			logger.Warn("mirror copy failed", logging.String("mirror_dir", mirrorDir), logging.Error(err))
		} else {
			episode.MirrorPath = mirrorPath
		}
	}

	logger.Info(
		"note archived",
		logging.String("note_path", notePath),
		logging.String("mirror_path", strings.TrimSpace(episode.MirrorPath)),
		logging.Bool("degraded", episode.Degraded),
	)

	if p.notifier != nil {
		if err := p.notifier.NotifyNoteReady(ctx, draft.Title, notePath, episode.Degraded); err != nil {
			logger.Warn("note notification failed", logging.Error(err))
		}
	}
	return nil
}

func (p *Publisher) buildDraft(episode *ledger.Episode) (*notes.Draft, error) {
	if strings.TrimSpace(episode.SummaryJSON) == "" {
		return nil, services.Wrap(
			services.ErrConfiguration, "rendering", "validate inputs",
			"Episode has no summary; summarization must run first", nil)
	}
	var summary summarizing.Summary
	if err := json.Unmarshal([]byte(episode.SummaryJSON), &summary); err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "rendering", "decode summary",
			"Stored summary payload is unreadable", err)
	}
	var transcript tingwu.Transcript
	if raw := strings.TrimSpace(episode.TranscriptJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &transcript); err != nil {
			return nil, services.Wrap(
				services.ErrConfiguration, "rendering", "decode transcript",
				"Stored transcript payload is unreadable", err)
		}
	}

	draft := &notes.Draft{
		Title:           strings.TrimSpace(episode.Title),
		PodcastName:     strings.TrimSpace(episode.PodcastName),
		SourceURL:       strings.TrimSpace(episode.URL),
		AudioURL:        strings.TrimSpace(episode.AudioURL),
		DurationSeconds: episode.DurationSeconds,
		ProcessedAt:     p.clock().UTC(),
		Keywords:        transcript.Keywords,
		Overview:        summary.Overview,
		Insights:        summary.Insights,
		Degraded:        summary.Degraded || episode.Degraded,
	}
	for _, chapter := range transcript.Chapters {
		draft.Chapters = append(draft.Chapters, notes.Chapter{
			Title:        chapter.Title,
			StartSeconds: chapter.StartMs / 1000,
			EndSeconds:   (chapter.EndMs + 999) / 1000,
			Summary:      chapter.Summary,
		})
	}
	for _, segment := range summary.Segments {
		draft.Segments = append(draft.Segments, notes.Segment{
			Index:        segment.Index,
			Topic:        segment.Topic,
			StartSeconds: segment.StartSeconds,
			EndSeconds:   segment.EndSeconds,
			Summary:      segment.Summary,
			Quotes:       segment.Quotes,
			KeyPoints:    segment.KeyPoints,
		})
	}
	for _, sentence := range transcript.Sentences {
		draft.Transcript = append(draft.Transcript, notes.TranscriptLine{
			Speaker:      sentence.SpeakerID,
			StartSeconds: sentence.StartMs / 1000,
			Text:         sentence.Text,
		})
	}
	return draft, nil
}

// HealthCheck verifies the archive directory is configured.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	const name = "publisher"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(p.cfg.Paths.NotesDir) == "" {
		return stage.Unhealthy(name, "notes directory not configured")
	}
	return stage.Healthy(name)
}
