package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, episode *ledger.Episode, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	kind := services.Classify(stageErr)
	message := failureMessage(stageName, stageErr)
	episode.SetFailed(message)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldFailureKind, string(kind)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, episode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastError(stageErr)

	if m.notifier != nil {
		label := stageName
		if title := strings.TrimSpace(episode.Title); title != "" {
			label = fmt.Sprintf("%s (%s)", stageName, title)
		}
		if err := m.notifier.NotifyError(ctx, stageErr, label); err != nil {
			logger.Warn("error notification failed", logging.Error(err))
		}
	}
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return fmt.Sprintf("%s failed", stageName)
	}
	return message
}
