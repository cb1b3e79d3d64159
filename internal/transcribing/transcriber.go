package transcribing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services"
	"podnotes/internal/services/tingwu"
	"podnotes/internal/stage"
)

// TranscriptionService is the subset of the Tingwu client the stage needs.
type TranscriptionService interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Poll(ctx context.Context, taskID string) (tingwu.TaskInfo, error)
	FetchTranscript(ctx context.Context, info tingwu.TaskInfo) (tingwu.Transcript, error)
}

// Transcriber submits audio for transcription and waits for the result.
type Transcriber struct {
	store   *ledger.Store
	cfg     *config.Config
	logger  *slog.Logger
	service TranscriptionService
	clock   func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option adjusts transcriber behavior, primarily for tests.
type Option func(*Transcriber)

// WithClock overrides the time source used for the poll ceiling.
func WithClock(now func() time.Time) Option {
	return func(t *Transcriber) {
		if now != nil {
			t.clock = now
		}
	}
}

// WithSleeper overrides the wait between poll attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Transcriber) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// NewTranscriber constructs the transcription stage handler using default dependencies.
func NewTranscriber(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Transcriber {
	client := tingwu.NewClient(tingwu.Config{
		AccessKeyID:     cfg.Tingwu.AccessKeyID,
		AccessKeySecret: cfg.Tingwu.AccessKeySecret,
		AppKey:          cfg.Tingwu.AppKey,
		BaseURL:         cfg.Tingwu.BaseURL,
	})
	return NewTranscriberWithDependencies(cfg, store, logger, client)
}

// NewTranscriberWithDependencies allows injecting collaborators (used in tests).
func NewTranscriberWithDependencies(cfg *config.Config, store *ledger.Store, logger *slog.Logger, service TranscriptionService, opts ...Option) *Transcriber {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "transcriber"))
	}
	t := &Transcriber{
		store:   store,
		cfg:     cfg,
		logger:  stageLogger,
		service: service,
		clock:   time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcriber) Prepare(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, t.logger)
	episode.ErrorMessage = ""
	logger.Info(
		"starting transcription",
		logging.String("title", strings.TrimSpace(episode.Title)),
		logging.String("task_id", strings.TrimSpace(episode.TaskID)),
	)
	return nil
}

func (t *Transcriber) Execute(ctx context.Context, episode *ledger.Episode) error {
	logger := logging.WithContext(ctx, t.logger)

	audioURL, err := stage.RequireAudioURL(episode, "transcribing")
	if err != nil {
		return err
	}

	if strings.TrimSpace(episode.TaskID) == "" {
		taskID, err := t.service.Submit(ctx, audioURL)
		if err != nil {
			return services.Wrap(
				services.ErrSubmission, "transcribing", "submit task",
				"Failed to submit audio for transcription", err)
		}
		episode.TaskID = taskID
		// The task is already billable on the backend; record its identifier
		// before anything else can go wrong.
		if err := t.store.Update(ctx, episode); err != nil {
			return fmt.Errorf("persist task id: %w", err)
		}
		logger.Info("transcription task submitted", logging.String("task_id", taskID))
	} else {
		logger.Info("resuming existing transcription task", logging.String("task_id", episode.TaskID))
	}

	info, err := t.waitForCompletion(ctx, episode.TaskID)
	if err != nil {
		return err
	}

	transcript, err := t.service.FetchTranscript(ctx, info)
	if err != nil {
		return services.Wrap(
			services.ErrTranscriptionFailed, "transcribing", "fetch results",
			"Task completed but its results could not be retrieved", err)
	}

	encoded, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	episode.TranscriptJSON = string(encoded)
	if transcript.DurationSeconds > 0 {
		episode.DurationSeconds = transcript.DurationSeconds
	}

	logger.Info(
		"transcription completed",
		logging.String("task_id", episode.TaskID),
		logging.Int("sentences", len(transcript.Sentences)),
		logging.Int("chapters", len(transcript.Chapters)),
		logging.Int("duration_seconds", transcript.DurationSeconds),
	)
	return nil
}

func (t *Transcriber) waitForCompletion(ctx context.Context, taskID string) (tingwu.TaskInfo, error) {
	var empty tingwu.TaskInfo

	pollInterval := time.Duration(t.cfg.Workflow.TranscribePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	timeout := time.Duration(t.cfg.Workflow.TranscribeTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	maxTransient := t.cfg.Workflow.PollRetryAttempts
	if maxTransient <= 0 {
		maxTransient = 3
	}

	logger := logging.WithContext(ctx, t.logger)
	deadline := t.clock().Add(timeout)
	transient := 0

	for {
		info, err := t.service.Poll(ctx, taskID)
		if err != nil {
			transient++
			if transient >= maxTransient {
				return empty, services.Wrap(
					services.ErrTransient, "transcribing", "poll task",
					fmt.Sprintf("Task status unavailable after %d consecutive attempts", transient), err)
			}
			logger.Warn(
				"poll attempt failed",
				logging.String("task_id", taskID),
				logging.Int("consecutive_failures", transient),
				logging.Error(err),
			)
		} else {
			transient = 0
			switch info.State {
			case tingwu.StateCompleted:
				return info, nil
			case tingwu.StateFailed:
				detail := strings.TrimSpace(info.ErrorMessage)
				if detail == "" {
					detail = "backend reported failure"
				}
				if code := strings.TrimSpace(info.ErrorCode); code != "" {
					detail = fmt.Sprintf("%s (%s)", detail, code)
				}
				return empty, services.Wrap(
					services.ErrTranscriptionFailed, "transcribing", "poll task", detail, nil)
			default:
				logger.Debug("task still running", logging.String("task_id", taskID), logging.String("state", info.State))
			}
		}

		if !t.clock().Add(pollInterval).Before(deadline) {
			return empty, services.Wrap(
				services.ErrTranscriptionTimeout, "transcribing", "poll task",
				fmt.Sprintf("Task did not finish within %s", timeout), nil)
		}
		if err := t.sleep(ctx, pollInterval); err != nil {
			return empty, err
		}
	}
}

// HealthCheck verifies transcription credentials are configured.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcriber"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(t.cfg.Tingwu.AccessKeyID) == "" || strings.TrimSpace(t.cfg.Tingwu.AccessKeySecret) == "" {
		return stage.Unhealthy(name, "access keys not configured")
	}
	if strings.TrimSpace(t.cfg.Tingwu.AppKey) == "" {
		return stage.Unhealthy(name, "app key not configured")
	}
	if t.service == nil {
		return stage.Unhealthy(name, "transcription client unavailable")
	}
	return stage.Healthy(name)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
