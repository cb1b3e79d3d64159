package workflow

import (
	"context"
	"errors"
	"time"

	"podnotes/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info(
		"workflow started",
		logging.Duration("poll_interval", m.pollInterval),
		logging.Duration("error_retry_interval", m.errorRetryInterval),
	)

	for {
		wait := m.pollInterval
		if err := m.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			wait = m.errorRetryInterval
			m.logger.Warn(
				"poll cycle failed, retrying on error interval",
				logging.Error(err),
				logging.Duration("retry_in", wait),
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("workflow stopped")
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single poll cycle: discover new links, then process
// every pending episode to a terminal state.
func (m *Manager) RunOnce(ctx context.Context) error {
	if err := m.discover(ctx); err != nil {
		m.setLastError(err)
		return err
	}
	if err := m.processPending(ctx); err != nil {
		m.setLastError(err)
		return err
	}
	return nil
}
