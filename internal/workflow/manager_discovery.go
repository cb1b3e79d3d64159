package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"podnotes/internal/identity"
	"podnotes/internal/logging"
)

// discover polls the link source and claims every link not yet in the ledger.
func (m *Manager) discover(ctx context.Context) error {
	candidates, err := m.source.ListCandidates(ctx)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}

	discovered := 0
	for _, candidate := range candidates {
		url := strings.TrimSpace(candidate.URL)
		if url == "" {
			continue
		}
		id, err := identity.ForURL(url)
		if err != nil {
			m.logger.Warn(
				"skipping malformed link",
				logging.String("url", url),
				logging.String("record_id", candidate.RecordID),
				logging.Error(err),
			)
			continue
		}
		known, err := m.store.IsKnown(ctx, id)
		if err != nil {
			return fmt.Errorf("check ledger: %w", err)
		}
		if known {
			continue
		}

		episode, err := m.store.NewEpisode(ctx, id, candidate.RecordID, url, candidate.Title)
		if err != nil {
			// A concurrent claim for the same identity is not an error; the
			// claim simply went to whoever inserted first.
			m.logger.Warn("claim failed", logging.String(logging.FieldIdentity, id), logging.Error(err))
			continue
		}
		discovered++
		m.logger.Info(
			"episode discovered",
			logging.Int64(logging.FieldEpisodeID, episode.ID),
			logging.String(logging.FieldIdentity, id),
			logging.String("url", url),
			logging.String("title", strings.TrimSpace(candidate.Title)),
		)
		if m.notifier != nil {
			title := strings.TrimSpace(candidate.Title)
			if title == "" {
				title = url
			}
			if err := m.notifier.NotifyEpisodeDiscovered(ctx, title, url); err != nil {
				m.logger.Warn("discovery notification failed", logging.Error(err))
			}
		}
	}

	if err := m.store.SetLastCheckTime(ctx, time.Now().UTC()); err != nil {
		m.logger.Warn("failed to record poll time", logging.Error(err))
	}
	if discovered > 0 {
		m.logger.Info("discovery completed", logging.Int("new_episodes", discovered), logging.Int("candidates", len(candidates)))
	}
	return nil
}
