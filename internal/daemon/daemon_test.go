package daemon_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"podnotes/internal/config"
	"podnotes/internal/daemon"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/services/feishu"
	"podnotes/internal/testsupport"
	"podnotes/internal/workflow"
)

type emptySource struct{}

func (emptySource) ListCandidates(ctx context.Context) ([]feishu.Candidate, error) {
	return nil, nil
}

func newDaemon(t *testing.T, cfg *config.Config, store *ledger.Store) *daemon.Daemon {
	t.Helper()
	manager := workflow.NewManagerWithDependencies(
		cfg, store, logging.NewNop(), nil, emptySource{}, workflow.StageSet{})
	d, err := daemon.New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	err := second.Start(context.Background())
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestDaemonReleasesLockOnStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	first.Stop()

	// A clean stop clears the recorded pid so the next start is not treated
	// as a stale-lock reclaim.
	raw, err := os.ReadFile(cfg.LockPath())
	if err != nil {
		t.Fatalf("read lock file after Stop: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "" {
		t.Fatalf("expected empty lock file after clean Stop, got %q", raw)
	}

	second := newDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
	second.Stop()
}

func TestDaemonReclaimsStaleLockFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// A leftover pid with no flock holder simulates an unclean shutdown.
	if err := os.WriteFile(cfg.LockPath(), []byte("999999\n"), 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	d := newDaemon(t, cfg, store)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed over stale lock: %v", err)
	}
	defer d.Stop()

	raw, err := os.ReadFile(cfg.LockPath())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("lock file does not hold a pid: %q", raw)
	}
	if pid != os.Getpid() {
		t.Fatalf("lock file pid = %d, want current process", pid)
	}
}

func TestDaemonStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d := newDaemon(t, cfg, store)
	status := d.Status()
	if status.Running {
		t.Fatal("daemon must not report running before Start")
	}
	if status.LedgerPath != store.Path() {
		t.Fatalf("unexpected ledger path: %q", status.LedgerPath)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path: %q", status.LockFilePath)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon must report running after Start")
	}
	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon must not report running after Stop")
	}
}
