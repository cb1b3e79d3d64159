package workflow

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/notifications"
	"podnotes/internal/publisher"
	"podnotes/internal/resolver"
	"podnotes/internal/services/feishu"
	"podnotes/internal/stage"
	"podnotes/internal/summarizing"
	"podnotes/internal/transcribing"
)

// CandidateSource lists episode links discovered in the tracking table.
type CandidateSource interface {
	ListCandidates(ctx context.Context) ([]feishu.Candidate, error)
}

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Resolver    stage.Handler
	Transcriber stage.Handler
	Summarizer  stage.Handler
	Publisher   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      ledger.Status
	processingStatus ledger.Status
	doneStatus       ledger.Status
}

// Manager coordinates discovery and stage processing.
type Manager struct {
	cfg      *config.Config
	store    *ledger.Store
	logger   *slog.Logger
	notifier notifications.Service
	source   CandidateSource

	stages       []pipelineStage
	stageByStart map[ledger.Status]pipelineStage

	pollInterval       time.Duration
	errorRetryInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with default dependencies.
func NewManager(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Manager {
	source := feishu.NewClient(feishu.Config{
		AppID:      cfg.Feishu.AppID,
		AppSecret:  cfg.Feishu.AppSecret,
		BaseURL:    cfg.Feishu.BaseURL,
		AppToken:   cfg.Feishu.AppToken,
		TableID:    cfg.Feishu.TableID,
		PageSize:   cfg.Feishu.PageSize,
		LinkFields: cfg.Feishu.LinkFields,
	})
	stages := StageSet{
		Resolver:    resolver.NewResolver(cfg, store, logger),
		Transcriber: transcribing.NewTranscriber(cfg, store, logger),
		Summarizer:  summarizing.NewSummarizer(cfg, store, logger),
		Publisher:   publisher.NewPublisher(cfg, store, logger),
	}
	return NewManagerWithDependencies(cfg, store, logger, notifications.NewService(cfg), source, stages)
}

// NewManagerWithDependencies allows injecting collaborators (used in tests).
func NewManagerWithDependencies(cfg *config.Config, store *ledger.Store, logger *slog.Logger, notifier notifications.Service, source CandidateSource, stages StageSet) *Manager {
	managerLogger := logger
	if managerLogger == nil {
		managerLogger = logging.NewNop()
	}
	managerLogger = managerLogger.With(logging.String(logging.FieldComponent, "workflow"))

	m := &Manager{
		cfg:                cfg,
		store:              store,
		logger:             managerLogger,
		notifier:           notifier,
		source:             source,
		pollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Minute
	}
	if m.errorRetryInterval <= 0 {
		m.errorRetryInterval = 5 * time.Minute
	}

	m.stages = []pipelineStage{
		{name: "resolving", handler: stages.Resolver, startStatus: ledger.StatusDiscovered, processingStatus: ledger.StatusResolving, doneStatus: ledger.StatusResolved},
		{name: "transcribing", handler: stages.Transcriber, startStatus: ledger.StatusResolved, processingStatus: ledger.StatusTranscribing, doneStatus: ledger.StatusTranscribed},
		{name: "summarizing", handler: stages.Summarizer, startStatus: ledger.StatusTranscribed, processingStatus: ledger.StatusSummarizing, doneStatus: ledger.StatusSummarized},
		{name: "rendering", handler: stages.Publisher, startStatus: ledger.StatusSummarized, processingStatus: ledger.StatusRendering, doneStatus: ledger.StatusDone},
	}
	m.stageByStart = make(map[ledger.Status]pipelineStage, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
	}
	return m
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Health runs every stage health check.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.stages))
	for _, stg := range m.stages {
		if stg.handler == nil {
			checks = append(checks, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		checks = append(checks, stg.handler.HealthCheck(ctx))
	}
	return checks
}
