package resolver

import (
	"context"
	"strings"

	"log/slog"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services"
	"podnotes/internal/services/xiaoyuzhou"
	"podnotes/internal/stage"
)

// EpisodeSource fetches episode pages and extracts audio metadata.
type EpisodeSource interface {
	Resolve(ctx context.Context, pageURL string) (xiaoyuzhou.Episode, error)
}

// Resolver extracts the audio enclosure for a discovered episode link.
type Resolver struct {
	store  *ledger.Store
	cfg    *config.Config
	logger *slog.Logger
	source EpisodeSource
}

// NewResolver constructs the resolver stage handler using default dependencies.
func NewResolver(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Resolver {
	return NewResolverWithDependencies(cfg, store, logger, xiaoyuzhou.NewClient())
}

// NewResolverWithDependencies allows injecting collaborators (used in tests).
func NewResolverWithDependencies(cfg *config.Config, store *ledger.Store, logger *slog.Logger, source EpisodeSource) *Resolver {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "resolver"))
	}
	return &Resolver{store: store, cfg: cfg, logger: stageLogger, source: source}
}

func (r *Resolver) Prepare(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, r.logger)
	episode.ErrorMessage = ""
	logger.Info("starting resolution", logging.String("url", strings.TrimSpace(episode.URL)))
	return nil
}

func (r *Resolver) Execute(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, r.logger)

	url := strings.TrimSpace(episode.URL)
	if url == "" {
		return services.Wrap(
			services.ErrResolution, "resolving", "validate inputs",
			"Episode has no source URL", nil)
	}
	if _, ok := xiaoyuzhou.EpisodeID(url); !ok {
		return services.Wrap(
			services.ErrResolution, "resolving", "validate url",
			"URL does not point at a xiaoyuzhou episode page", nil)
	}

	resolved, err := r.source.Resolve(ctx, url)
	if err != nil {
		return services.Wrap(
			services.ErrResolution, "resolving", "fetch episode page",
			"Failed to extract audio from the episode page", err)
	}

	episode.AudioURL = resolved.AudioURL
	if title := strings.TrimSpace(resolved.Title); title != "" {
		episode.Title = title
	}
	if show := strings.TrimSpace(resolved.PodcastName); show != "" {
		episode.PodcastName = show
	}
	if resolved.DurationSeconds > 0 {
		episode.DurationSeconds = resolved.DurationSeconds
	}

	logger.Info(
		"resolution completed",
		logging.String("title", strings.TrimSpace(episode.Title)),
		logging.String("audio_url", strings.TrimSpace(episode.AudioURL)),
		logging.Int("duration_seconds", episode.DurationSeconds),
	)
	return nil
}

// HealthCheck verifies the resolver has a page source to talk to.
func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	const name = "resolver"
	if r.source == nil {
		return stage.Unhealthy(name, "episode source unavailable")
	}
	return stage.Healthy(name)
}
