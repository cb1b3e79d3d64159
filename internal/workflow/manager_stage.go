package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services"
)

// processPending drives every non-terminal episode to done or failed.
// Episodes left mid-flight by a crash resume from their processing status.
func (m *Manager) processPending(ctx context.Context) error {
	episodes, err := m.store.List(ctx,
		ledger.StatusDiscovered,
		ledger.StatusResolving,
		ledger.StatusResolved,
		ledger.StatusTranscribing,
		ledger.StatusTranscribed,
		ledger.StatusSummarizing,
		ledger.StatusSummarized,
		ledger.StatusRendering,
	)
	if err != nil {
		return fmt.Errorf("list pending episodes: %w", err)
	}

	for _, episode := range episodes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.processEpisode(ctx, episode); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// The episode is already marked failed; keep going with the rest.
		}
	}
	return nil
}

// processEpisode runs stages in order until the episode reaches a terminal
// status or a stage fails.
func (m *Manager) processEpisode(ctx context.Context, episode *ledger.Episode) error {
	for !episode.Status.IsTerminal() {
		stg, ok := m.stageForStatus(episode.Status)
		if !ok {
			m.logger.Warn(
				"no stage configured for status",
				logging.Int64(logging.FieldEpisodeID, episode.ID),
				logging.String("status", string(episode.Status)),
			)
			return nil
		}
		if err := m.runStage(ctx, stg, episode); err != nil {
			return err
		}
	}
	return nil
}

// stageForStatus maps both start and processing statuses to their stage so an
// interrupted episode re-enters the stage it was in.
func (m *Manager) stageForStatus(status ledger.Status) (pipelineStage, bool) {
	if stg, ok := m.stageByStart[status]; ok {
		return stg, true
	}
	for _, stg := range m.stages {
		if stg.processingStatus == status {
			return stg, true
		}
	}
	return pipelineStage{}, false
}

func (m *Manager) runStage(ctx context.Context, stg pipelineStage, episode *ledger.Episode) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(
		services.WithStage(
			services.WithIdentity(
				services.WithEpisodeID(ctx, episode.ID),
				episode.Identity),
			stg.name),
		requestID)
	logger := logging.WithContext(stageCtx, m.logger)

	if stg.handler == nil {
		err := fmt.Errorf("stage %s has no handler", stg.name)
		m.handleStageFailure(stageCtx, stg.name, episode, err)
		return err
	}

	episode.Status = stg.processingStatus
	episode.ErrorMessage = ""
	if err := m.store.Update(stageCtx, episode); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	stageStart := time.Now()
	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("title", strings.TrimSpace(episode.Title)),
	)

	if err := stg.handler.Prepare(stageCtx, episode); err != nil {
		m.handleStageFailure(stageCtx, stg.name, episode, err)
		return err
	}
	if err := m.store.Update(stageCtx, episode); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := stg.handler.Execute(stageCtx, episode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(stageCtx, stg.name, episode, err)
		return err
	}

	episode.Status = stg.doneStatus
	if err := m.store.Update(stageCtx, episode); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(episode.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}
